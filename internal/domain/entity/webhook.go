package entity

import "time"

// Nombres de eventos suscribibles.
const (
	EventDocumentAccepted = "document.accepted"
	EventDocumentRejected = "document.rejected"
)

// Estados de una entrega de webhook.
const (
	DeliveryStatusPending = "pending"
	DeliveryStatusSuccess = "success"
	DeliveryStatusFailed  = "failed"
)

// Webhook es la configuración de un suscriptor: URL de destino, secreto para
// la firma HMAC y la lista de eventos que le interesan.
type Webhook struct {
	ID         string
	CompanyID  string
	URL        string
	Secret     string
	Events     []string // nombres de eventos suscritos
	Active     bool
	MaxRetries int           // tope de reintentos de entrega
	RetryDelay time.Duration // base del backoff: next = now + RetryDelay*attempts
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// SubscribedTo indica si el webhook está suscrito al evento.
func (w *Webhook) SubscribedTo(event string) bool {
	if !w.Active {
		return false
	}
	for _, e := range w.Events {
		if e == event {
			return true
		}
	}
	return false
}

// WebhookDelivery es la cadena de intentos de una (evento, destino). La crea
// la emisión del evento y solo la muta el worker de entrega.
type WebhookDelivery struct {
	ID          string
	WebhookID   string
	CompanyID   string
	EventName   string
	DocumentID  string
	Payload     string // JSON serializado del payload a entregar
	Status      string
	Attempts    int
	NextRetryAt *time.Time
	LastError   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
