package sunat_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tu-usuario/facturalo-pe/internal/domain/entity"
	"github.com/tu-usuario/facturalo-pe/internal/infrastructure/sunat"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func emisorCompleto() *entity.Company {
	return &entity.Company{
		ID:      "comp-1",
		Name:    "ACME PERU S.A.C.",
		RUC:     "20123456789",
		Address: "Av. Siempre Viva 123, Lima",
	}
}

func facturaComputada() *entity.Document {
	return &entity.Document{
		ID:          "doc-1",
		Kind:        "01",
		Series:      "F001",
		Correlative: "00000123",
		FullNumber:  "F001-00000123",
		Currency:    "PEN",
		IssueDate:   time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC),
		Details: []entity.Detail{{
			ProductCode:     "P001",
			Description:     "Servicio de consultoría",
			Quantity:        dec("2"),
			UnitPrice:       dec("100.00"),
			AffectationCode: "10",
			IGVPercent:      dec("18"),
			LineValue:       dec("200.00"),
			LineIGV:         dec("36.00"),
		}},
		TotalTaxed: dec("200.00"),
		TotalIGV:   dec("36.00"),
		GrandTotal: dec("236.00"),
	}
}

func adquirienteRUC() *entity.Client {
	return &entity.Client{Name: "CLIENTE S.A.", DocType: "6", DocNumber: "20987654321"}
}

// ──────────────────────────────────────────────────────────────────────────────
// Tests BuildDocument
// ──────────────────────────────────────────────────────────────────────────────

func TestBuildDocument_Factura(t *testing.T) {
	b := sunat.NewXMLBuilder()
	out, err := b.BuildDocument(emisorCompleto(), facturaComputada(), adquirienteRUC(), nil)
	require.NoError(t, err)

	xml := string(out)
	assert.Contains(t, xml, "<Invoice")
	assert.Contains(t, xml, "urn:oasis:names:specification:ubl:schema:xsd:Invoice-2")
	assert.Contains(t, xml, "<cbc:ID>F001-00000123</cbc:ID>")
	assert.Contains(t, xml, ">01</cbc:InvoiceTypeCode>")
	assert.Contains(t, xml, `listID="0101"`, "sin tipo de operación explícito va venta interna")
	assert.Contains(t, xml, "20123456789")
	assert.Contains(t, xml, "20987654321")
	assert.Contains(t, xml, `currencyID="PEN"`)
	assert.Contains(t, xml, ">236.00</cbc:PayableAmount>")

	// El placeholder de la firma va como primer contenido del documento.
	assert.Contains(t, xml, "<ext:UBLExtensions>")
	assert.Contains(t, xml, "<ext:ExtensionContent></ext:ExtensionContent>")
}

// La nota de crédito exige el documento afectado para el BillingReference.
func TestBuildDocument_NotaSinAfectado(t *testing.T) {
	nota := facturaComputada()
	nota.Kind = "07"
	nota.AffectedDocumentID = "doc-0"

	_, err := sunat.NewXMLBuilder().BuildDocument(emisorCompleto(), nota, adquirienteRUC(), nil)
	assert.Error(t, err)
}

func TestBuildDocument_NotaConAfectado(t *testing.T) {
	nota := facturaComputada()
	nota.Kind = "07"
	nota.Series = "FC01"
	nota.FullNumber = "FC01-00000001"
	nota.AffectedDocumentID = "doc-0"

	afectada := facturaComputada()
	out, err := sunat.NewXMLBuilder().BuildDocument(emisorCompleto(), nota, adquirienteRUC(), afectada)
	require.NoError(t, err)

	xml := string(out)
	assert.Contains(t, xml, "<CreditNote")
	assert.Contains(t, xml, "DiscrepancyResponse")
	assert.Contains(t, xml, "F001-00000123", "debe referenciar al comprobante afectado")
}

// La nota de venta es interna: nunca se serializa a UBL.
func TestBuildDocument_NotaDeVentaNoSeTransmite(t *testing.T) {
	interno := facturaComputada()
	interno.Kind = "80"

	_, err := sunat.NewXMLBuilder().BuildDocument(emisorCompleto(), interno, nil, nil)
	assert.Error(t, err)
}

// Boleta sin adquiriente: se emite a CLIENTES VARIOS con documento "0".
func TestBuildDocument_BoletaSinCliente(t *testing.T) {
	boleta := facturaComputada()
	boleta.Kind = "03"
	boleta.Series = "B001"
	boleta.FullNumber = "B001-00000123"

	out, err := sunat.NewXMLBuilder().BuildDocument(emisorCompleto(), boleta, nil, nil)
	require.NoError(t, err)
	assert.Contains(t, string(out), "CLIENTES VARIOS")
}

// ──────────────────────────────────────────────────────────────────────────────
// Tests BuildVoided
// ──────────────────────────────────────────────────────────────────────────────

func TestBuildVoided(t *testing.T) {
	batch := &entity.VoidedDocuments{
		Identifier:    "RA-20260815-001",
		ReferenceDate: time.Date(2026, 8, 14, 0, 0, 0, 0, time.UTC),
		IssueDate:     time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC),
		Items: []entity.VoidedItem{
			{Kind: "03", Series: "B001", Correlative: "00000001", Reason: "ERROR EN DATOS DEL COMPROBANTE"},
			{Kind: "03", Series: "B001", Correlative: "00000002", Reason: "ANULACION DE LA OPERACION"},
		},
	}

	out, err := sunat.NewXMLBuilder().BuildVoided(emisorCompleto(), batch)
	require.NoError(t, err)

	xml := string(out)
	assert.Contains(t, xml, "VoidedDocuments")
	assert.Contains(t, xml, "RA-20260815-001")
	assert.Contains(t, xml, "ERROR EN DATOS DEL COMPROBANTE")
	assert.Contains(t, xml, "00000002")
}
