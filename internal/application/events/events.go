package events

import (
	"context"

	"github.com/tu-usuario/facturalo-pe/internal/domain/entity"
	"github.com/tu-usuario/facturalo-pe/pkg/logger"
)

// DocumentAccepted se emite exactamente una vez cuando la reconciliación gana
// la transición SENT → ACCEPTED.
type DocumentAccepted struct {
	Document *entity.Document
}

// DocumentRejected se emite exactamente una vez en SENT → REJECTED con el
// código NNNN extraído de la respuesta SUNAT.
type DocumentRejected struct {
	Document     *entity.Document
	ErrorCode    string
	ErrorMessage string
}

// DocumentErrored se emite cuando se agotan los reintentos de envío. No sale
// por webhooks; solo alimenta los avisos internos.
type DocumentErrored struct {
	Document *entity.Document
	LastErr  string
}

// WebhookNotifier encola entregas de webhook para los suscriptores del evento.
type WebhookNotifier interface {
	NotifyAccepted(ctx context.Context, doc *entity.Document) error
	NotifyRejected(ctx context.Context, doc *entity.Document, errorCode, errorMessage string) error
}

// NotificationSink registra avisos internos (campana + correo).
type NotificationSink interface {
	DocumentAccepted(ctx context.Context, doc *entity.Document) error
	DocumentRejected(ctx context.Context, doc *entity.Document, errorCode, errorMessage string) error
	DocumentErrored(ctx context.Context, doc *entity.Document, lastErr string) error
}

// Dispatcher enruta eventos tipados a sus consumidores de forma explícita: no
// hay bus global ni suscripción dinámica, el cableado vive en el constructor.
// Los fallos de un consumidor se loguean y no bloquean al resto.
type Dispatcher struct {
	webhooks      WebhookNotifier
	notifications NotificationSink
	log           *logger.Logger
}

// NewDispatcher construye el dispatcher. Cualquier consumidor puede ser nil
// (por ejemplo en tests o cuando el correo está deshabilitado).
func NewDispatcher(webhooks WebhookNotifier, notifications NotificationSink, log *logger.Logger) *Dispatcher {
	return &Dispatcher{webhooks: webhooks, notifications: notifications, log: log}
}

// Accepted propaga la aceptación a webhooks y avisos.
func (d *Dispatcher) Accepted(ctx context.Context, ev DocumentAccepted) {
	if d.webhooks != nil {
		if err := d.webhooks.NotifyAccepted(ctx, ev.Document); err != nil {
			d.log.Error().Err(err).Str("document_id", ev.Document.ID).Msg("fan-out webhook de aceptación falló")
		}
	}
	if d.notifications != nil {
		if err := d.notifications.DocumentAccepted(ctx, ev.Document); err != nil {
			d.log.Error().Err(err).Str("document_id", ev.Document.ID).Msg("aviso de aceptación falló")
		}
	}
}

// Rejected propaga el rechazo semántico a webhooks y avisos.
func (d *Dispatcher) Rejected(ctx context.Context, ev DocumentRejected) {
	if d.webhooks != nil {
		if err := d.webhooks.NotifyRejected(ctx, ev.Document, ev.ErrorCode, ev.ErrorMessage); err != nil {
			d.log.Error().Err(err).Str("document_id", ev.Document.ID).Msg("fan-out webhook de rechazo falló")
		}
	}
	if d.notifications != nil {
		if err := d.notifications.DocumentRejected(ctx, ev.Document, ev.ErrorCode, ev.ErrorMessage); err != nil {
			d.log.Error().Err(err).Str("document_id", ev.Document.ID).Msg("aviso de rechazo falló")
		}
	}
}

// Errored registra el agotamiento de reintentos en los avisos internos.
func (d *Dispatcher) Errored(ctx context.Context, ev DocumentErrored) {
	if d.notifications != nil {
		if err := d.notifications.DocumentErrored(ctx, ev.Document, ev.LastErr); err != nil {
			d.log.Error().Err(err).Str("document_id", ev.Document.ID).Msg("aviso de error de envío falló")
		}
	}
}
