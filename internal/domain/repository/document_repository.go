package repository

import (
	"context"
	"time"

	"github.com/tu-usuario/facturalo-pe/internal/domain/entity"
)

// DocumentRepository define el puerto de persistencia del comprobante y su
// máquina de estados. Las transiciones condicionadas devuelven false cuando
// otra instancia ya consumió el estado origen: así se garantiza un solo
// intento en vuelo por documento sin locks distribuidos.
type DocumentRepository interface {
	Create(ctx context.Context, doc *entity.Document) error
	CreateDetail(ctx context.Context, detail *entity.Detail) error
	// Update reescribe los campos mutables; solo la aplicación lo usa y solo
	// sobre documentos en PENDING o REJECTED.
	Update(ctx context.Context, doc *entity.Document) error

	GetByID(ctx context.Context, id string) (*entity.Document, error)
	GetByFullNumber(ctx context.Context, companyID, kind, series, correlative string) (*entity.Document, error)
	GetDetails(ctx context.Context, documentID string) ([]*entity.Detail, error)

	// TransitionStatus ejecuta UPDATE ... WHERE status = from de forma atómica;
	// devuelve true si la fila cambió (el caller ganó la transición).
	TransitionStatus(ctx context.Context, id, from, to string) (bool, error)
	// ClaimForSending toma un documento QUEUED, lo pasa a SENT e incrementa el
	// contador de intentos en la misma sentencia.
	ClaimForSending(ctx context.Context, id string) (claimed bool, attempts int, err error)

	// Finalizaciones condicionadas a status = SENT (exactamente una gana).
	FinalizeAccepted(ctx context.Context, id, cdrHash, response string) (bool, error)
	FinalizeRejected(ctx context.Context, id, errorCode, response string) (bool, error)
	FinalizeError(ctx context.Context, id, response string) (bool, error)

	// MarkVoided fija voided=true con la referencia al batch de baja. Es el
	// único camino por el que voided pasa a true.
	MarkVoided(ctx context.Context, id, voidedID, reason string, date time.Time) error

	// HasAcceptedNoteReferencing indica si existe una nota de crédito o débito
	// ACCEPTED que referencia al documento (bloquea su baja).
	HasAcceptedNoteReferencing(ctx context.Context, documentID string) (bool, error)
}
