package billing

import (
	"fmt"
	"regexp"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tu-usuario/facturalo-pe/internal/application/dto"
	"github.com/tu-usuario/facturalo-pe/internal/domain"
	"github.com/tu-usuario/facturalo-pe/internal/domain/entity"
	"github.com/tu-usuario/facturalo-pe/pkg/sunat"
)

// Formatos de número de documento de identidad (catálogo 06).
var (
	dniPattern       = regexp.MustCompile(`^\d{8}$`)
	rucPattern       = regexp.MustCompile(`^\d{11}$`)
	passportPattern  = regexp.MustCompile(`^[A-Za-z0-9]{5,12}$`)
	foreignerPattern = regexp.MustCompile(`^[A-Za-z0-9]{8,12}$`)
	seriesPattern    = regexp.MustCompile(`^[A-Z0-9]{1,4}$`)
	correlPattern    = regexp.MustCompile(`^\d{1,8}$`)
)

// ValidateDocument aplica el set de reglas del intake sobre el request crudo
// y el cliente resuelto (puede ser nil si el tipo no lo exige). Acumula TODOS
// los fallos en el mapa campo -> mensajes; no corta en el primero.
func ValidateDocument(req *dto.CreateDocumentRequest, client *entity.Client) *domain.ValidationError {
	ve := domain.NewValidationError()

	if !sunat.ValidDocumentKinds[req.Kind] {
		ve.Add("kind", fmt.Sprintf("tipo de documento %q no soportado", req.Kind))
	}
	if !seriesPattern.MatchString(req.Series) {
		ve.Add("series", "la serie debe tener entre 1 y 4 caracteres alfanuméricos")
	}
	if !correlPattern.MatchString(req.Correlative) {
		ve.Add("correlative", "el correlativo debe ser numérico")
	}
	if !sunat.ValidCurrencies[req.Currency] {
		ve.Add("currency", "moneda no soportada: usar PEN o USD")
	}
	if _, err := time.Parse("2006-01-02", req.IssueDate); err != nil {
		ve.Add("issue_date", "fecha de emisión inválida (YYYY-MM-DD)")
	}
	if req.DueDate != "" {
		if _, err := time.Parse("2006-01-02", req.DueDate); err != nil {
			ve.Add("due_date", "fecha de vencimiento inválida (YYYY-MM-DD)")
		}
	}
	if req.OperationType != "" && !sunat.ValidOperationTypes[req.OperationType] {
		ve.Add("operation_type", fmt.Sprintf("tipo de operación %q no está en el catálogo 51", req.OperationType))
	}

	if len(req.Items) == 0 {
		ve.Add("items", "el documento debe tener al menos una línea de detalle")
	}
	for i, item := range req.Items {
		field := fmt.Sprintf("items[%d]", i)
		if !item.Quantity.GreaterThan(decimal.Zero) {
			ve.Add(field+".quantity", "la cantidad debe ser mayor que cero")
		}
		if item.UnitPrice.LessThan(decimal.Zero) {
			ve.Add(field+".unit_price", "el precio unitario no puede ser negativo")
		}
		if !sunat.IsValidAffectation(item.AffectationCode) {
			ve.Add(field+".affectation_code", fmt.Sprintf("afectación %q no está en el catálogo 07", item.AffectationCode))
		}
		if item.IGVPercent.LessThan(decimal.Zero) || item.IGVPercent.GreaterThan(oneHundred) {
			ve.Add(field+".igv_percent", "el porcentaje de IGV debe estar entre 0 y 100")
		}
	}

	validateClient(req, client, ve)
	validateInstallments(req, ve)
	validateLinkage(req, ve)

	return ve
}

// validateClient exige adquiriente en los tipos que lo requieren y valida el
// formato del número según el tipo de identidad.
func validateClient(req *dto.CreateDocumentRequest, client *entity.Client, ve *domain.ValidationError) {
	// La guía de remisión y la nota de venta admiten emitirse sin cliente.
	required := req.Kind == sunat.DocKindFactura || req.Kind == sunat.DocKindBoleta ||
		req.Kind == sunat.DocKindNotaCredito || req.Kind == sunat.DocKindNotaDebito
	if client == nil {
		if required {
			ve.Add("client_id", "el tipo de documento exige un adquiriente")
		}
		return
	}

	switch client.DocType {
	case sunat.IdentityDocDNI:
		if !dniPattern.MatchString(client.DocNumber) {
			ve.Add("client.doc_number", "el DNI debe tener exactamente 8 dígitos")
		}
	case sunat.IdentityDocRUC:
		if !rucPattern.MatchString(client.DocNumber) {
			ve.Add("client.doc_number", "el RUC debe tener exactamente 11 dígitos")
		}
	case sunat.IdentityDocPasaporte:
		if !passportPattern.MatchString(client.DocNumber) {
			ve.Add("client.doc_number", "el pasaporte debe tener entre 5 y 12 caracteres")
		}
	case sunat.IdentityDocCarnetExt:
		if !foreignerPattern.MatchString(client.DocNumber) {
			ve.Add("client.doc_number", "el carné de extranjería debe tener entre 8 y 12 caracteres")
		}
	case sunat.IdentityDocSinDoc:
		// sin documento: nada que validar
	default:
		ve.Add("client.doc_type", fmt.Sprintf("tipo de identidad %q no está en el catálogo 06", client.DocType))
	}

	// La factura solo se emite a adquirientes con RUC.
	if req.Kind == sunat.DocKindFactura && client.DocType != sunat.IdentityDocRUC {
		ve.Add("client.doc_type", "la factura exige un adquiriente con RUC")
	}
}

// validateInstallments aplica la regla de la venta al crédito sobre el código
// enumerado del catálogo 51 (0102). El cronograma es obligatorio en crédito;
// su presencia en facturas de operación no-crédito se rechaza.
func validateInstallments(req *dto.CreateDocumentRequest, ve *domain.ValidationError) {
	credit := req.OperationType == sunat.OperationVentaCredito
	if credit && len(req.Installments) == 0 {
		ve.Add("installments", "la venta al crédito exige un cronograma de cuotas")
	}
	if !credit && len(req.Installments) > 0 && req.Kind == sunat.DocKindFactura {
		ve.Add("installments", "el cronograma de cuotas solo aplica a operaciones al crédito")
	}
	for i, inst := range req.Installments {
		field := fmt.Sprintf("installments[%d]", i)
		if !inst.Amount.GreaterThan(decimal.Zero) {
			ve.Add(field+".amount", "el monto de la cuota debe ser mayor que cero")
		}
		if _, err := time.Parse("2006-01-02", inst.DueDate); err != nil {
			ve.Add(field+".due_date", "fecha de cuota inválida (YYYY-MM-DD)")
		}
	}
}

// validateLinkage exige el documento afectado en notas de crédito/débito.
func validateLinkage(req *dto.CreateDocumentRequest, ve *domain.ValidationError) {
	isNote := req.Kind == sunat.DocKindNotaCredito || req.Kind == sunat.DocKindNotaDebito
	if isNote && req.AffectedDocumentID == "" {
		ve.Add("affected_document_id", "la nota debe referenciar al documento que modifica")
	}
	if !isNote && req.AffectedDocumentID != "" {
		ve.Add("affected_document_id", "solo las notas de crédito/débito referencian otro documento")
	}
}
