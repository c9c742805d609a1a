package entity

import "time"

// Estados de la comunicación de baja (ciclo propio, independiente del
// documento referenciado pero que condiciona su flag voided).
const (
	VoidedStatusPending  = "PENDING"
	VoidedStatusSent     = "SENT"
	VoidedStatusAccepted = "ACCEPTED"
	VoidedStatusRejected = "REJECTED"
)

// MaxVoidedItems máximo de referencias por comunicación de baja.
const MaxVoidedItems = 100

// VoidedDocuments es una comunicación de baja: agrupa hasta 100 referencias a
// comprobantes ACCEPTED. No es dueña de los documentos, solo los referencia
// por (tipo, serie, correlativo).
type VoidedDocuments struct {
	ID            string
	CompanyID     string
	Identifier    string    // RA-YYYYMMDD-NNN
	ReferenceDate time.Time // fecha de los comprobantes dados de baja
	IssueDate     time.Time // fecha de la comunicación
	Status        string
	Ticket        string // ticket devuelto por sendSummary
	SunatResponse string
	CDRHash       string
	Items         []VoidedItem
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// VoidedItem es una referencia a un comprobante dentro del batch.
type VoidedItem struct {
	ID          string
	VoidedID    string
	DocumentID  string // lookup débil, sin ownership
	Kind        string
	Series      string
	Correlative string
	Reason      string
}

// Key devuelve la clave (tipo, serie, correlativo) para detectar duplicados
// dentro del mismo batch.
func (i VoidedItem) Key() string {
	return i.Kind + "-" + i.Series + "-" + i.Correlative
}
