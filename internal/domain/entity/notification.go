package entity

import "time"

// Notification es el aviso interno generado por un evento terminal del
// documento (aceptado o rechazado). Su entrega por correo es independiente y
// su fallo nunca afecta el estado del documento ni de los webhooks.
type Notification struct {
	ID         string
	CompanyID  string
	DocumentID string
	EventName  string
	Title      string
	Body       string
	Read       bool
	EmailSent  bool
	CreatedAt  time.Time
}
