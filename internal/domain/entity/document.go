package entity

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Estados SUNAT del documento. El ciclo de vida es:
//
//	PENDING → QUEUED → SENT → ACCEPTED | REJECTED | ERROR
//
// ACCEPTED/REJECTED/ERROR solo los asigna la reconciliación de estado; la
// aplicación solo puede mutar documentos en PENDING o REJECTED.
const (
	StatusPending  = "PENDING"  // validado y persistido, aún no encolado
	StatusQueued   = "QUEUED"   // en cola de envío
	StatusSent     = "SENT"     // intento de transmisión en curso o respuesta pendiente
	StatusAccepted = "ACCEPTED" // CDR de aceptación recibido (terminal)
	StatusRejected = "REJECTED" // rechazo semántico de SUNAT (terminal, sin reintentos)
	StatusError    = "ERROR"    // reintentos agotados; requiere reenvío manual
)

// ResubmitableStatuses estados desde los cuales se permite (re)encolar un envío.
var ResubmitableStatuses = map[string]bool{
	StatusPending:  true,
	StatusRejected: true,
	StatusError:    true,
}

// Document es el comprobante fiscal con variante etiquetada: factura, boleta,
// nota de crédito/débito, guía de remisión o nota de venta comparten campos y
// lógica de cómputo; Kind discrimina el comportamiento específico.
type Document struct {
	ID          string
	CompanyID   string
	BranchID    string
	Kind        string // catálogo 01 (+ "80" nota de venta)
	Series      string // máx. 4 caracteres (F001, B001, T001...)
	Correlative string // numérico con ceros a la izquierda
	FullNumber  string // Series-Correlative, único por empresa+serie

	ClientID      string // vacío para algunos tipos (ej. guía sin adquiriente)
	Currency      string // PEN | USD
	ExchangeRate  decimal.Decimal
	IssueDate     time.Time
	DueDate       *time.Time
	OperationType string // catálogo 51

	Details []Detail

	// Totales calculados por el motor; el caller nunca los fija a mano.
	TotalTaxed      decimal.Decimal // base gravada
	TotalExempt     decimal.Decimal // exonerado
	TotalUnaffected decimal.Decimal // inafecto
	TotalExport     decimal.Decimal // exportación
	TotalIGV        decimal.Decimal
	TotalISC        decimal.Decimal
	TotalICBPER     decimal.Decimal
	TotalOtherTaxes decimal.Decimal
	GlobalDiscount  decimal.Decimal
	GrandTotal      decimal.Decimal

	// Estado SUNAT.
	Status        string
	SunatResponse string // payload opaco de la respuesta (JSON)
	ErrorCode     string // código NNNN extraído del rechazo, si existe
	CDRHash       string
	XMLPath       string
	CDRPath       string
	PDFPath       string
	SendAttempts  int

	// Baja (comunicación de baja). Solo la reconciliación del batch de baja
	// pone Voided en true.
	Voided           bool
	VoidedDocumentID string
	VoidReason       string
	VoidDate         *time.Time

	// Enlace a documento afectado (notas de crédito/débito).
	AffectedDocumentID string

	// Bancarización: una de las dos formas de declarar medios de pago.
	Payment       *Payment
	MultiPayments []MultiPayment

	// Cuotas (ventas al crédito).
	Installments []Installment

	// Guía de remisión.
	TotalWeight decimal.Decimal
	Consignee   string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Detail es una línea del comprobante.
type Detail struct {
	ID              string
	DocumentID      string
	ProductCode     string
	Description     string
	Quantity        decimal.Decimal // > 0
	UnitPrice       decimal.Decimal // >= 0
	AffectationCode string          // catálogo 07
	IGVPercent      decimal.Decimal // [0,100]
	Discount        decimal.Decimal
	ISC             decimal.Decimal
	ICBPER          decimal.Decimal

	// Derivados por el motor de cómputo.
	LineValue decimal.Decimal
	LineIGV   decimal.Decimal
}

// Payment es el registro legado de medio de pago único.
type Payment struct {
	MethodCode      string
	Amount          decimal.Decimal
	OperationNumber string
	BankName        string
	Date            *time.Time
}

// MultiPayment es una entrada del esquema moderno de pagos múltiples.
type MultiPayment struct {
	MethodCode      string
	Amount          decimal.Decimal // >= 0.01
	OperationNumber string
	BankName        string
	Date            *time.Time
}

// Installment es una cuota del cronograma de pago al crédito.
type Installment struct {
	Number  int
	Amount  decimal.Decimal
	DueDate time.Time
}

// BuildFullNumber arma el número completo serie-correlativo.
func BuildFullNumber(series, correlative string) string {
	return fmt.Sprintf("%s-%s", series, correlative)
}

// IsSalesDocument indica si el documento lleva montos de venta en el payload
// de webhooks (monto/moneda); la guía de remisión lleva peso y destinatario.
func (d *Document) IsSalesDocument() bool {
	return d.Kind != "09"
}

// CanBeVoided valida el invariante de baja: aceptado y no anulado.
func (d *Document) CanBeVoided() bool {
	return d.Status == StatusAccepted && !d.Voided
}
