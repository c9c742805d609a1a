package sunat

// Entornos de envío. "dev" no llama al WS: firma, empaqueta y simula un CDR
// de aceptación. "beta" y "prod" llaman a los endpoints reales de SUNAT.
const (
	AppEnvDev  = "dev"
	AppEnvBeta = "beta"
	AppEnvProd = "prod"

	billServiceBeta = "https://e-beta.sunat.gob.pe/ol-ti-itcpfegem-beta/billService"
	billServiceProd = "https://e-factura.sunat.gob.pe/ol-ti-itcpfegem/billService"
)

// Namespaces UBL 2.1 y de firma.
const (
	NsInvoice    = "urn:oasis:names:specification:ubl:schema:xsd:Invoice-2"
	NsCreditNote = "urn:oasis:names:specification:ubl:schema:xsd:CreditNote-2"
	NsDebitNote  = "urn:oasis:names:specification:ubl:schema:xsd:DebitNote-2"
	NsDespatch   = "urn:oasis:names:specification:ubl:schema:xsd:DespatchAdvice-2"
	NsVoided     = "urn:sunat:names:specification:ubl:peru:schema:xsd:VoidedDocuments-1"
	NsSac        = "urn:sunat:names:specification:ubl:peru:schema:xsd:SunatAggregateComponents-1"

	NsCac = "urn:oasis:names:specification:ubl:schema:xsd:CommonAggregateComponents-2"
	NsCbc = "urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2"
	NsExt = "urn:oasis:names:specification:ubl:schema:xsd:CommonExtensionComponents-2"
	NsDs  = "http://www.w3.org/2000/09/xmldsig#"
)

// Catálogo 05: códigos de tributo usados en cac:TaxTotal.
const (
	TaxIDIGV    = "1000"
	TaxIDISC    = "2000"
	TaxIDICBPER = "7152"
	TaxIDExport = "9995"
	TaxIDExo    = "9997"
	TaxIDIna    = "9998"
)
