package repository

import (
	"context"

	"github.com/tu-usuario/facturalo-pe/internal/domain/entity"
)

// VoidedRepository persiste comunicaciones de baja y sus referencias.
type VoidedRepository interface {
	Create(ctx context.Context, batch *entity.VoidedDocuments) error
	GetByID(ctx context.Context, id string) (*entity.VoidedDocuments, error)

	// NextSequence devuelve el siguiente número NNN del identificador
	// RA-YYYYMMDD-NNN para la empresa y fecha dadas.
	NextSequence(ctx context.Context, companyID string, date string) (int, error)

	// HasActiveRequestFor indica si ya existe una solicitud de baja en
	// PENDING, SENT o ACCEPTED que referencia al documento.
	HasActiveRequestFor(ctx context.Context, documentID string) (bool, error)

	// MarkSent guarda el ticket y transiciona PENDING→SENT (condicionado).
	MarkSent(ctx context.Context, id, ticket string) (bool, error)
	// Finalizaciones condicionadas a status = SENT.
	FinalizeAccepted(ctx context.Context, id, cdrHash, response string) (bool, error)
	FinalizeRejected(ctx context.Context, id, response string) (bool, error)
}
