package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateDocumentRequest body para POST /api/documents. El intake se valida
// completo antes de tocar la máquina de estados: o se normaliza y persiste en
// PENDING, o se rechaza con el mapa de errores campo -> mensajes.
type CreateDocumentRequest struct {
	BranchID      string          `json:"branch_id"`
	Kind          string          `json:"kind"` // catálogo 01 (+ 80 nota de venta)
	Series        string          `json:"series"`
	Correlative   string          `json:"correlative"`
	ClientID      string          `json:"client_id,omitempty"`
	Currency      string          `json:"currency"`
	ExchangeRate  decimal.Decimal `json:"exchange_rate,omitempty"`
	IssueDate     string          `json:"issue_date"` // YYYY-MM-DD
	DueDate       string          `json:"due_date,omitempty"`
	OperationType string          `json:"operation_type,omitempty"` // catálogo 51

	Items []DocumentItemRequest `json:"items"`

	GlobalDiscount decimal.Decimal `json:"global_discount,omitempty"`
	OtherTaxes     decimal.Decimal `json:"other_taxes,omitempty"`

	// Bancarización: exactamente una de las dos formas cuando aplica.
	Payment       *PaymentRequest  `json:"payment,omitempty"`
	MultiPayments []PaymentRequest `json:"multi_payments,omitempty"`

	// Cuotas (obligatorias en operación al crédito).
	Installments []InstallmentRequest `json:"installments,omitempty"`

	// Nota de crédito/débito: documento afectado.
	AffectedDocumentID string `json:"affected_document_id,omitempty"`

	// Guía de remisión.
	TotalWeight decimal.Decimal `json:"total_weight,omitempty"`
	Consignee   string          `json:"consignee,omitempty"`
}

// DocumentItemRequest línea del comprobante tal como la envía el caller.
type DocumentItemRequest struct {
	ProductCode     string          `json:"product_code"`
	Description     string          `json:"description"`
	Quantity        decimal.Decimal `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	AffectationCode string          `json:"affectation_code"` // catálogo 07
	IGVPercent      decimal.Decimal `json:"igv_percent"`
	Discount        decimal.Decimal `json:"discount,omitempty"`
	ISC             decimal.Decimal `json:"isc,omitempty"`
	ICBPER          decimal.Decimal `json:"icbper,omitempty"`
}

// PaymentRequest registro de medio de pago (esquema legado de registro único
// o entrada del esquema moderno de pagos múltiples).
type PaymentRequest struct {
	MethodCode      string          `json:"method_code"`
	Amount          decimal.Decimal `json:"amount"`
	OperationNumber string          `json:"operation_number,omitempty"`
	BankName        string          `json:"bank_name,omitempty"`
	Date            string          `json:"date,omitempty"` // YYYY-MM-DD
}

// InstallmentRequest cuota del cronograma al crédito.
type InstallmentRequest struct {
	Number  int             `json:"number"`
	Amount  decimal.Decimal `json:"amount"`
	DueDate string          `json:"due_date"` // YYYY-MM-DD
}

// DocumentResponse comprobante con totales en respuestas.
type DocumentResponse struct {
	ID            string                 `json:"id"`
	CompanyID     string                 `json:"company_id"`
	Kind          string                 `json:"kind"`
	Serie         string                 `json:"serie"`
	Correlativo   string                 `json:"correlativo"`
	Numero        string                 `json:"numero"`
	Currency      string                 `json:"moneda"`
	IssueDate     string                 `json:"fecha_emision"`
	Status        string                 `json:"estado_sunat"`
	TotalTaxed    decimal.Decimal        `json:"total_gravada"`
	TotalExempt   decimal.Decimal        `json:"total_exonerada"`
	TotalUnaffect decimal.Decimal        `json:"total_inafecta"`
	TotalExport   decimal.Decimal        `json:"total_exportacion"`
	TotalIGV      decimal.Decimal        `json:"total_igv"`
	TotalISC      decimal.Decimal        `json:"total_isc"`
	TotalICBPER   decimal.Decimal        `json:"total_icbper"`
	GrandTotal    decimal.Decimal        `json:"total"`
	Voided        bool                   `json:"anulado"`
	ErrorCode     string                 `json:"error_code,omitempty"`
	Items         []DocumentItemResponse `json:"items,omitempty"`
}

// DocumentItemResponse línea con los derivados del motor de cómputo.
type DocumentItemResponse struct {
	ProductCode     string          `json:"product_code"`
	Description     string          `json:"description"`
	Quantity        decimal.Decimal `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	AffectationCode string          `json:"affectation_code"`
	IGVPercent      decimal.Decimal `json:"igv_percent"`
	LineValue       decimal.Decimal `json:"line_value"`
	LineIGV         decimal.Decimal `json:"line_igv"`
}

// DocumentStatusResponse respuesta ligera para el endpoint de polling
// GET /api/documents/:id/status.
type DocumentStatusResponse struct {
	ID           string `json:"id"`
	Status       string `json:"estado_sunat"`
	SendAttempts int    `json:"send_attempts"`
	ErrorCode    string `json:"error_code,omitempty"`
	CDRHash      string `json:"cdr_hash,omitempty"`
}

// CreateVoidedRequest body para POST /api/voided (comunicación de baja).
type CreateVoidedRequest struct {
	ReferenceDate string              `json:"reference_date"` // YYYY-MM-DD
	Items         []VoidedItemRequest `json:"items"`
}

// VoidedItemRequest referencia a un comprobante a dar de baja.
type VoidedItemRequest struct {
	Kind        string `json:"kind"`
	Series      string `json:"series"`
	Correlative string `json:"correlative"`
	Reason      string `json:"reason"`
}

// VoidedResponse estado de una comunicación de baja.
type VoidedResponse struct {
	ID            string    `json:"id"`
	Identifier    string    `json:"identifier"`
	Status        string    `json:"status"`
	Ticket        string    `json:"ticket,omitempty"`
	ReferenceDate string    `json:"reference_date"`
	Items         int       `json:"items"`
	CreatedAt     time.Time `json:"created_at"`
}

// WebhookRequest alta/edición de un suscriptor de webhooks.
type WebhookRequest struct {
	URL        string   `json:"url"`
	Secret     string   `json:"secret"`
	Events     []string `json:"events"`
	Active     *bool    `json:"active,omitempty"`
	MaxRetries int      `json:"max_retries,omitempty"`
	RetrySecs  int      `json:"retry_delay_seconds,omitempty"`
}

// WebhookResponse suscriptor en respuestas.
type WebhookResponse struct {
	ID         string   `json:"id"`
	URL        string   `json:"url"`
	Events     []string `json:"events"`
	Active     bool     `json:"active"`
	MaxRetries int      `json:"max_retries"`
}

// WebhookPayload es el cuerpo entregado al suscriptor. Campos en el contrato
// del consumidor: numero/serie/correlativo/fecha_emision/estado_sunat, más
// monto/moneda para documentos de venta, peso_total/destinatario para guías y
// error_code/error_message en rechazos.
type WebhookPayload struct {
	EventName    string `json:"event_name"`
	DocumentID   string `json:"document_id"`
	Kind         string `json:"tipo_documento"`
	Numero       string `json:"numero"`
	Serie        string `json:"serie"`
	Correlativo  string `json:"correlativo"`
	FechaEmision string `json:"fecha_emision"`
	EstadoSunat  string `json:"estado_sunat"`

	Monto  *decimal.Decimal `json:"monto,omitempty"`
	Moneda string           `json:"moneda,omitempty"`

	PesoTotal    *decimal.Decimal `json:"peso_total,omitempty"`
	Destinatario string           `json:"destinatario,omitempty"`

	ErrorCode    string `json:"error_code,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}
