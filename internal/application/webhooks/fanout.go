package webhooks

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/tu-usuario/facturalo-pe/internal/application/dto"
	"github.com/tu-usuario/facturalo-pe/internal/domain/entity"
	"github.com/tu-usuario/facturalo-pe/internal/domain/repository"
	"github.com/tu-usuario/facturalo-pe/pkg/logger"
)

// DeliveryEnqueuer empuja trabajos de entrega al carril de webhooks.
type DeliveryEnqueuer interface {
	EnqueueDelivery(ctx context.Context, deliveryID string) error
	EnqueueDeliveryDelayed(ctx context.Context, deliveryID string, delay time.Duration) error
}

// Fanout materializa un evento de documento en una entrega por cada webhook
// suscrito. Crear la fila de entrega y encolarla son pasos separados: si el
// encolado falla la fila queda en pending y el barrido de reintentos la
// recoge después.
type Fanout struct {
	repo  repository.WebhookRepository
	queue DeliveryEnqueuer
	log   *logger.Logger
	now   func() time.Time
}

// NewFanout construye el fan-out de eventos a webhooks.
func NewFanout(repo repository.WebhookRepository, queue DeliveryEnqueuer, log *logger.Logger) *Fanout {
	return &Fanout{repo: repo, queue: queue, log: log, now: time.Now}
}

// NotifyAccepted emite document.accepted a los suscriptores de la empresa.
func (f *Fanout) NotifyAccepted(ctx context.Context, doc *entity.Document) error {
	return f.fanout(ctx, entity.EventDocumentAccepted, doc, "", "")
}

// NotifyRejected emite document.rejected con el código y mensaje del rechazo.
func (f *Fanout) NotifyRejected(ctx context.Context, doc *entity.Document, errorCode, errorMessage string) error {
	return f.fanout(ctx, entity.EventDocumentRejected, doc, errorCode, errorMessage)
}

func (f *Fanout) fanout(ctx context.Context, event string, doc *entity.Document, errorCode, errorMessage string) error {
	subs, err := f.repo.ListSubscribed(ctx, doc.CompanyID, event)
	if err != nil {
		return err
	}
	if len(subs) == 0 {
		return nil
	}

	payload, err := json.Marshal(BuildPayload(event, doc, errorCode, errorMessage))
	if err != nil {
		return err
	}

	for _, wh := range subs {
		d := &entity.WebhookDelivery{
			ID:         uuid.New().String(),
			WebhookID:  wh.ID,
			CompanyID:  doc.CompanyID,
			EventName:  event,
			DocumentID: doc.ID,
			Payload:    string(payload),
			Status:     entity.DeliveryStatusPending,
			CreatedAt:  f.now(),
			UpdatedAt:  f.now(),
		}
		if err := f.repo.CreateDelivery(ctx, d); err != nil {
			f.log.Error().Err(err).Str("webhook_id", wh.ID).Str("document_id", doc.ID).Msg("no se pudo crear la entrega")
			continue
		}
		if err := f.queue.EnqueueDelivery(ctx, d.ID); err != nil {
			f.log.Error().Err(err).Str("delivery_id", d.ID).Msg("no se pudo encolar la entrega")
		}
	}
	return nil
}

// BuildPayload arma el cuerpo del webhook según el tipo de documento: los
// comprobantes de venta llevan monto/moneda, la guía de remisión lleva
// peso_total/destinatario, y los rechazos añaden error_code/error_message.
func BuildPayload(event string, doc *entity.Document, errorCode, errorMessage string) dto.WebhookPayload {
	p := dto.WebhookPayload{
		EventName:    event,
		DocumentID:   doc.ID,
		Kind:         doc.Kind,
		Numero:       doc.FullNumber,
		Serie:        doc.Series,
		Correlativo:  doc.Correlative,
		FechaEmision: doc.IssueDate.Format("2006-01-02"),
		EstadoSunat:  doc.Status,
	}
	if doc.IsSalesDocument() {
		total := doc.GrandTotal
		p.Monto = &total
		p.Moneda = doc.Currency
	} else {
		peso := doc.TotalWeight
		p.PesoTotal = &peso
		p.Destinatario = doc.Consignee
	}
	if event == entity.EventDocumentRejected {
		p.ErrorCode = errorCode
		p.ErrorMessage = errorMessage
	}
	return p
}
