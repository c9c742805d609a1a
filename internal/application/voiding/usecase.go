package voiding

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tu-usuario/facturalo-pe/internal/application/dto"
	"github.com/tu-usuario/facturalo-pe/internal/domain"
	"github.com/tu-usuario/facturalo-pe/internal/domain/entity"
	"github.com/tu-usuario/facturalo-pe/internal/domain/repository"
	"github.com/tu-usuario/facturalo-pe/pkg/logger"
)

// VoidWindowDays plazo máximo en días entre la emisión del comprobante y su
// comunicación de baja.
const VoidWindowDays = 7

// Enqueuer empuja trabajos del flujo de baja: envío del batch y polling del
// ticket.
type Enqueuer interface {
	EnqueueVoided(ctx context.Context, voidedID string) error
	EnqueueVoidedDelayed(ctx context.Context, voidedID string, delay time.Duration) error
	EnqueueTicketPoll(ctx context.Context, voidedID string, delay time.Duration) error
}

// UseCase gestiona comunicaciones de baja: valida el batch completo contra
// los comprobantes referenciados, lo persiste en PENDING y lo encola para el
// flujo sendSummary → ticket → getStatus.
type UseCase struct {
	voidedRepo repository.VoidedRepository
	docRepo    repository.DocumentRepository
	queue      Enqueuer
	log        *logger.Logger
	now        func() time.Time
}

// NewUseCase construye el caso de uso de bajas.
func NewUseCase(voidedRepo repository.VoidedRepository, docRepo repository.DocumentRepository, queue Enqueuer, log *logger.Logger) *UseCase {
	return &UseCase{voidedRepo: voidedRepo, docRepo: docRepo, queue: queue, log: log, now: time.Now}
}

// Create valida y registra una comunicación de baja. Todo el batch se valida
// antes de persistir: un solo ítem inválido rechaza la solicitud completa.
func (uc *UseCase) Create(ctx context.Context, companyID string, in dto.CreateVoidedRequest) (*dto.VoidedResponse, error) {
	ve := domain.NewValidationError()
	now := uc.now()

	refDate, err := time.Parse("2006-01-02", in.ReferenceDate)
	switch {
	case err != nil:
		ve.Add("reference_date", "formato inválido, se espera YYYY-MM-DD")
	case refDate.After(now):
		ve.Add("reference_date", "no puede ser una fecha futura")
	case now.Sub(refDate) > VoidWindowDays*24*time.Hour:
		ve.Add("reference_date", fmt.Sprintf("fuera del plazo de %d días", VoidWindowDays))
	}
	if len(in.Items) == 0 {
		ve.Add("items", "debe incluir al menos un comprobante")
	}
	if len(in.Items) > entity.MaxVoidedItems {
		ve.Add("items", fmt.Sprintf("máximo %d comprobantes por comunicación", entity.MaxVoidedItems))
	}
	if err := ve.ErrOrNil(); err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(in.Items))
	items := make([]entity.VoidedItem, 0, len(in.Items))

	for i, it := range in.Items {
		field := fmt.Sprintf("items[%d]", i)

		if it.Reason == "" {
			ve.Add(field+".reason", "es obligatorio")
		}

		key := it.Kind + "-" + it.Series + "-" + it.Correlative
		if seen[key] {
			ve.Add(field, "comprobante repetido en el batch")
			continue
		}
		seen[key] = true

		doc, err := uc.docRepo.GetByFullNumber(ctx, companyID, it.Kind, it.Series, it.Correlative)
		if err != nil {
			return nil, err
		}
		if doc == nil {
			ve.Add(field, "comprobante no encontrado")
			continue
		}
		if !doc.CanBeVoided() {
			if doc.Voided {
				ve.Add(field, "el comprobante ya fue dado de baja")
			} else {
				ve.Add(field, "solo se puede dar de baja un comprobante ACCEPTED")
			}
			continue
		}
		if now.Sub(doc.IssueDate) > VoidWindowDays*24*time.Hour {
			ve.Add(field, fmt.Sprintf("fuera del plazo de %d días desde la emisión", VoidWindowDays))
			continue
		}

		active, err := uc.voidedRepo.HasActiveRequestFor(ctx, doc.ID)
		if err != nil {
			return nil, err
		}
		if active {
			ve.Add(field, "ya existe una solicitud de baja en curso para el comprobante")
			continue
		}

		// Una nota de crédito/débito aceptada que referencia al comprobante
		// bloquea su baja: primero hay que dar de baja la nota.
		if doc.Kind == "01" || doc.Kind == "03" {
			hasNote, err := uc.docRepo.HasAcceptedNoteReferencing(ctx, doc.ID)
			if err != nil {
				return nil, err
			}
			if hasNote {
				ve.Add(field, "tiene notas aceptadas que lo referencian")
				continue
			}
		}

		items = append(items, entity.VoidedItem{
			ID:          uuid.New().String(),
			DocumentID:  doc.ID,
			Kind:        it.Kind,
			Series:      it.Series,
			Correlative: it.Correlative,
			Reason:      it.Reason,
		})
	}

	if err := ve.ErrOrNil(); err != nil {
		return nil, err
	}

	issueDate := now
	seq, err := uc.voidedRepo.NextSequence(ctx, companyID, issueDate.Format("20060102"))
	if err != nil {
		return nil, err
	}

	batch := &entity.VoidedDocuments{
		ID:            uuid.New().String(),
		CompanyID:     companyID,
		Identifier:    fmt.Sprintf("RA-%s-%03d", issueDate.Format("20060102"), seq),
		ReferenceDate: refDate,
		IssueDate:     issueDate,
		Status:        entity.VoidedStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	for i := range items {
		items[i].VoidedID = batch.ID
	}
	batch.Items = items

	if err := uc.voidedRepo.Create(ctx, batch); err != nil {
		return nil, err
	}

	uc.log.Info().
		Str("voided_id", batch.ID).
		Str("identifier", batch.Identifier).
		Int("items", len(batch.Items)).
		Msg("comunicación de baja registrada")

	if err := uc.queue.EnqueueVoided(ctx, batch.ID); err != nil {
		uc.log.Error().Err(err).Str("voided_id", batch.ID).Msg("no se pudo encolar la comunicación de baja")
	}

	return toResponse(batch), nil
}

// Get devuelve el estado de una comunicación de baja.
func (uc *UseCase) Get(ctx context.Context, companyID, id string) (*dto.VoidedResponse, error) {
	batch, err := uc.voidedRepo.GetByID(ctx, id)
	if err != nil || batch == nil {
		return nil, domain.ErrNotFound
	}
	if batch.CompanyID != companyID {
		return nil, domain.ErrForbidden
	}
	return toResponse(batch), nil
}

func toResponse(batch *entity.VoidedDocuments) *dto.VoidedResponse {
	return &dto.VoidedResponse{
		ID:            batch.ID,
		Identifier:    batch.Identifier,
		Status:        batch.Status,
		Ticket:        batch.Ticket,
		ReferenceDate: batch.ReferenceDate.Format("2006-01-02"),
		Items:         len(batch.Items),
		CreatedAt:     batch.CreatedAt,
	}
}
