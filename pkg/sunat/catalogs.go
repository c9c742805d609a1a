// Package sunat contiene los catálogos SUNAT (Perú) usados por la facturación
// electrónica: tipos de documento, tipos de identidad, afectaciones de IGV,
// medios de pago y motivos de baja. Los códigos siguen los anexos de la
// Resolución 097-2012/SUNAT y sus modificatorias.
package sunat

// =============================================================================
// Catálogo 01 - Tipo de documento (comprobantes de pago)
// =============================================================================

const (
	DocKindFactura      = "01" // Factura
	DocKindBoleta       = "03" // Boleta de venta
	DocKindNotaCredito  = "07" // Nota de crédito
	DocKindNotaDebito   = "08" // Nota de débito
	DocKindGuiaRemision = "09" // Guía de remisión remitente
	DocKindNotaVenta    = "80" // Nota de venta (documento interno, sin efecto tributario)
)

// ValidDocumentKinds contiene los tipos de documento que el sistema emite.
var ValidDocumentKinds = map[string]bool{
	DocKindFactura:      true,
	DocKindBoleta:       true,
	DocKindNotaCredito:  true,
	DocKindNotaDebito:   true,
	DocKindGuiaRemision: true,
	DocKindNotaVenta:    true,
}

// =============================================================================
// Catálogo 06 - Tipo de documento de identidad del adquiriente
// =============================================================================

const (
	IdentityDocDNI       = "1" // DNI - exactamente 8 dígitos
	IdentityDocCarnetExt = "4" // Carné de extranjería - 8 a 12 caracteres
	IdentityDocRUC       = "6" // RUC - exactamente 11 dígitos
	IdentityDocPasaporte = "7" // Pasaporte - 5 a 12 caracteres
	IdentityDocSinDoc    = "0" // No domiciliado / sin documento
)

// ValidIdentityDocTypes tipos de identidad aceptados en clientes.
var ValidIdentityDocTypes = map[string]bool{
	IdentityDocDNI: true, IdentityDocCarnetExt: true, IdentityDocRUC: true,
	IdentityDocPasaporte: true, IdentityDocSinDoc: true,
}

// =============================================================================
// Catálogo 07 - Afectación del IGV por línea
// Gravadas {10,17}, exoneradas {20,21}, inafectas {30..37}, exportación {40}.
// =============================================================================

const (
	AffectationGravada       = "10" // Gravado - operación onerosa
	AffectationGravadaIVAP   = "17" // Gravado - IVAP (arroz pilado)
	AffectationExonerada     = "20" // Exonerado - operación onerosa
	AffectationExoneradaGrat = "21" // Exonerado - transferencia gratuita
	AffectationInafecta      = "30" // Inafecto - operación onerosa
	AffectationExportacion   = "40" // Exportación de bienes o servicios
)

// taxedCodes, exemptCodes, unaffectedCodes y exportCodes clasifican el catálogo 07.
var (
	taxedCodes      = map[string]bool{"10": true, "17": true}
	exemptCodes     = map[string]bool{"20": true, "21": true}
	unaffectedCodes = map[string]bool{"30": true, "31": true, "32": true, "33": true, "34": true, "35": true, "36": true, "37": true}
	exportCodes     = map[string]bool{"40": true}
)

// IsValidAffectation indica si el código pertenece al catálogo 07.
func IsValidAffectation(code string) bool {
	return taxedCodes[code] || exemptCodes[code] || unaffectedCodes[code] || exportCodes[code]
}

// IsTaxed indica si la afectación está gravada con IGV.
func IsTaxed(code string) bool { return taxedCodes[code] }

// IsExempt indica si la afectación está exonerada.
func IsExempt(code string) bool { return exemptCodes[code] }

// IsUnaffected indica si la afectación es inafecta.
func IsUnaffected(code string) bool { return unaffectedCodes[code] }

// IsExport indica si la afectación es de exportación.
func IsExport(code string) bool { return exportCodes[code] }

// =============================================================================
// Catálogo 51 - Tipo de operación
// =============================================================================

const (
	OperationVentaInterna = "0101" // Venta interna
	OperationExportacion  = "0200" // Exportación de bienes
	OperationVentaCredito = "0102" // Venta interna al crédito (cuotas)
)

// ValidOperationTypes tipos de operación aceptados.
var ValidOperationTypes = map[string]bool{
	OperationVentaInterna: true,
	OperationExportacion:  true,
	OperationVentaCredito: true,
}

// =============================================================================
// Monedas
// =============================================================================

const (
	CurrencyPEN = "PEN"
	CurrencyUSD = "USD"
)

// ValidCurrencies monedas soportadas por el emisor.
var ValidCurrencies = map[string]bool{CurrencyPEN: true, CurrencyUSD: true}

// =============================================================================
// Catálogo 59 - Medios de pago (bancarización). Metadata de campos exigidos.
// =============================================================================

// PaymentMethodMeta describe qué campos exige cada medio de pago al declararse.
type PaymentMethodMeta struct {
	Code             string
	Description      string
	RequiresOpNumber bool // número de operación bancaria
	RequiresBank     bool // entidad financiera
	RequiresDate     bool // fecha de la operación
}

// DefaultPaymentMethods tabla de referencia usada por el seeder; en runtime la
// validación consulta la tabla persistida (administrable fuera del core).
var DefaultPaymentMethods = []PaymentMethodMeta{
	{Code: "001", Description: "Depósito en cuenta", RequiresOpNumber: true, RequiresBank: true, RequiresDate: true},
	{Code: "002", Description: "Giro", RequiresOpNumber: true, RequiresBank: true, RequiresDate: true},
	{Code: "003", Description: "Transferencia de fondos", RequiresOpNumber: true, RequiresBank: true, RequiresDate: true},
	{Code: "004", Description: "Orden de pago", RequiresOpNumber: true, RequiresBank: true, RequiresDate: false},
	{Code: "005", Description: "Tarjeta de débito", RequiresOpNumber: false, RequiresBank: true, RequiresDate: true},
	{Code: "006", Description: "Tarjeta de crédito emitida en el país", RequiresOpNumber: false, RequiresBank: true, RequiresDate: true},
	{Code: "007", Description: "Cheque no negociable", RequiresOpNumber: true, RequiresBank: true, RequiresDate: true},
	{Code: "008", Description: "Efectivo (operación no bancarizada)", RequiresOpNumber: false, RequiresBank: false, RequiresDate: false},
	{Code: "101", Description: "Transferencias - comercio exterior", RequiresOpNumber: true, RequiresBank: true, RequiresDate: true},
}

// =============================================================================
// Motivos de baja (comunicación de baja)
// =============================================================================

const (
	VoidReasonErrorDatos    = "ERROR EN DATOS DEL COMPROBANTE"
	VoidReasonErrorRUC      = "ERROR EN RUC DEL ADQUIRIENTE"
	VoidReasonAnulacionOper = "ANULACION DE LA OPERACION"
	VoidReasonErrorSerie    = "ERROR EN LA SERIE O CORRELATIVO"
)

// DefaultVoidReasons catálogo base de motivos de baja (seeder).
var DefaultVoidReasons = []string{
	VoidReasonErrorDatos,
	VoidReasonErrorRUC,
	VoidReasonAnulacionOper,
	VoidReasonErrorSerie,
}
