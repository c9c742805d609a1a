package sunat

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/tu-usuario/facturalo-pe/internal/domain/entity"
	pkgsunat "github.com/tu-usuario/facturalo-pe/pkg/sunat"
)

// XMLBuilder construye el XML UBL 2.1 del comprobante (sin firma). La raíz
// depende del tipo: Invoice para factura/boleta, CreditNote, DebitNote,
// DespatchAdvice para la guía y VoidedDocuments para la comunicación de baja.
type XMLBuilder struct{}

// NewXMLBuilder crea el builder.
func NewXMLBuilder() *XMLBuilder {
	return &XMLBuilder{}
}

// BuildDocument genera el XML del comprobante según su Kind. Las notas de
// crédito/débito requieren el documento afectado para armar la referencia.
func (b *XMLBuilder) BuildDocument(company *entity.Company, doc *entity.Document, client *entity.Client, affected *entity.Document) ([]byte, error) {
	if company == nil || doc == nil {
		return nil, fmt.Errorf("sunat: faltan company o document")
	}
	switch doc.Kind {
	case "01", "03":
		return b.buildInvoice(company, doc, client)
	case "07":
		return b.buildNote(company, doc, client, affected, "CreditNote", NsCreditNote)
	case "08":
		return b.buildNote(company, doc, client, affected, "DebitNote", NsDebitNote)
	case "09":
		return b.buildDespatch(company, doc)
	default:
		return nil, fmt.Errorf("sunat: tipo %q no se transmite", doc.Kind)
	}
}

func (b *XMLBuilder) buildInvoice(company *entity.Company, doc *entity.Document, client *entity.Client) ([]byte, error) {
	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")

	root := rootElement("Invoice", NsInvoice)
	if err := enc.EncodeToken(root); err != nil {
		return nil, err
	}

	writeSignaturePlaceholder(enc)

	writeCbc(enc, "UBLVersionID", "2.1")
	writeCbc(enc, "CustomizationID", "2.0")
	writeCbc(enc, "ID", doc.FullNumber)
	writeCbc(enc, "IssueDate", doc.IssueDate.Format("2006-01-02"))
	if doc.DueDate != nil {
		writeCbc(enc, "DueDate", doc.DueDate.Format("2006-01-02"))
	}
	opType := doc.OperationType
	if opType == "" {
		opType = pkgsunat.OperationVentaInterna
	}
	writeCbcAttr(enc, "InvoiceTypeCode", doc.Kind, xml.Attr{Name: xml.Name{Local: "listID"}, Value: opType})
	writeCbc(enc, "DocumentCurrencyCode", doc.Currency)
	writeCbc(enc, "LineCountNumeric", strconv.Itoa(len(doc.Details)))

	b.writeSupplier(enc, company)
	b.writeCustomer(enc, client)
	b.writePaymentTerms(enc, doc)
	b.writeTaxTotals(enc, doc)
	b.writeMonetaryTotal(enc, "LegalMonetaryTotal", doc)
	for i := range doc.Details {
		b.writeLine(enc, "InvoiceLine", "InvoicedQuantity", i+1, &doc.Details[i], doc.Currency)
	}

	return finish(enc, &buf, root)
}

// buildNote arma CreditNote/DebitNote con la referencia al documento afectado.
func (b *XMLBuilder) buildNote(company *entity.Company, doc *entity.Document, client *entity.Client, affected *entity.Document, local, ns string) ([]byte, error) {
	if affected == nil {
		return nil, fmt.Errorf("sunat: la nota %s requiere el documento afectado", doc.FullNumber)
	}
	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")

	root := rootElement(local, ns)
	if err := enc.EncodeToken(root); err != nil {
		return nil, err
	}

	writeSignaturePlaceholder(enc)

	writeCbc(enc, "UBLVersionID", "2.1")
	writeCbc(enc, "CustomizationID", "2.0")
	writeCbc(enc, "ID", doc.FullNumber)
	writeCbc(enc, "IssueDate", doc.IssueDate.Format("2006-01-02"))
	writeCbc(enc, "DocumentCurrencyCode", doc.Currency)

	// cac:DiscrepancyResponse y cac:BillingReference apuntan al afectado.
	_ = enc.EncodeToken(startCac("DiscrepancyResponse"))
	writeCbc(enc, "ReferenceID", affected.FullNumber)
	writeCbc(enc, "ResponseCode", "01")
	writeCbc(enc, "Description", "Modificación del comprobante")
	_ = enc.EncodeToken(endCac("DiscrepancyResponse"))

	_ = enc.EncodeToken(startCac("BillingReference"))
	_ = enc.EncodeToken(startCac("InvoiceDocumentReference"))
	writeCbc(enc, "ID", affected.FullNumber)
	writeCbc(enc, "DocumentTypeCode", affected.Kind)
	_ = enc.EncodeToken(endCac("InvoiceDocumentReference"))
	_ = enc.EncodeToken(endCac("BillingReference"))

	b.writeSupplier(enc, company)
	b.writeCustomer(enc, client)
	b.writeTaxTotals(enc, doc)
	total := "LegalMonetaryTotal"
	if local == "DebitNote" {
		total = "RequestedMonetaryTotal"
	}
	b.writeMonetaryTotal(enc, total, doc)
	qty := "CreditedQuantity"
	if local == "DebitNote" {
		qty = "DebitedQuantity"
	}
	for i := range doc.Details {
		b.writeLine(enc, local+"Line", qty, i+1, &doc.Details[i], doc.Currency)
	}

	return finish(enc, &buf, root)
}

func (b *XMLBuilder) buildDespatch(company *entity.Company, doc *entity.Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")

	root := rootElement("DespatchAdvice", NsDespatch)
	if err := enc.EncodeToken(root); err != nil {
		return nil, err
	}

	writeSignaturePlaceholder(enc)

	writeCbc(enc, "UBLVersionID", "2.1")
	writeCbc(enc, "CustomizationID", "2.0")
	writeCbc(enc, "ID", doc.FullNumber)
	writeCbc(enc, "IssueDate", doc.IssueDate.Format("2006-01-02"))
	writeCbc(enc, "DespatchAdviceTypeCode", doc.Kind)

	b.writeSupplier(enc, company)

	// Destinatario de la guía.
	if doc.Consignee != "" {
		_ = enc.EncodeToken(startCac("DeliveryCustomerParty"))
		_ = enc.EncodeToken(startCac("Party"))
		_ = enc.EncodeToken(startCac("PartyLegalEntity"))
		writeCbc(enc, "RegistrationName", doc.Consignee)
		_ = enc.EncodeToken(endCac("PartyLegalEntity"))
		_ = enc.EncodeToken(endCac("Party"))
		_ = enc.EncodeToken(endCac("DeliveryCustomerParty"))
	}

	_ = enc.EncodeToken(startCac("Shipment"))
	writeCbc(enc, "ID", "SUNAT_Envio")
	writeCbcAttr(enc, "GrossWeightMeasure", doc.TotalWeight.StringFixed(3),
		xml.Attr{Name: xml.Name{Local: "unitCode"}, Value: "KGM"})
	_ = enc.EncodeToken(endCac("Shipment"))

	for i := range doc.Details {
		d := &doc.Details[i]
		_ = enc.EncodeToken(startCac("DespatchLine"))
		writeCbc(enc, "ID", strconv.Itoa(i+1))
		writeCbcAttr(enc, "DeliveredQuantity", d.Quantity.String(),
			xml.Attr{Name: xml.Name{Local: "unitCode"}, Value: "NIU"})
		_ = enc.EncodeToken(startCac("Item"))
		writeCbc(enc, "Description", d.Description)
		_ = enc.EncodeToken(endCac("Item"))
		_ = enc.EncodeToken(endCac("DespatchLine"))
	}

	return finish(enc, &buf, root)
}

// BuildVoided genera el XML VoidedDocuments de la comunicación de baja.
func (b *XMLBuilder) BuildVoided(company *entity.Company, batch *entity.VoidedDocuments) ([]byte, error) {
	if company == nil || batch == nil {
		return nil, fmt.Errorf("sunat: faltan company o batch")
	}
	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")

	root := xml.StartElement{
		Name: xml.Name{Local: "VoidedDocuments"},
		Attr: []xml.Attr{
			{Name: xml.Name{Local: "xmlns"}, Value: NsVoided},
			{Name: xml.Name{Local: "xmlns:cac"}, Value: NsCac},
			{Name: xml.Name{Local: "xmlns:cbc"}, Value: NsCbc},
			{Name: xml.Name{Local: "xmlns:ext"}, Value: NsExt},
			{Name: xml.Name{Local: "xmlns:sac"}, Value: NsSac},
			{Name: xml.Name{Local: "xmlns:ds"}, Value: NsDs},
		},
	}
	if err := enc.EncodeToken(root); err != nil {
		return nil, err
	}

	writeSignaturePlaceholder(enc)

	writeCbc(enc, "UBLVersionID", "2.0")
	writeCbc(enc, "CustomizationID", "1.0")
	writeCbc(enc, "ID", batch.Identifier)
	writeCbc(enc, "ReferenceDate", batch.ReferenceDate.Format("2006-01-02"))
	writeCbc(enc, "IssueDate", batch.IssueDate.Format("2006-01-02"))

	b.writeSupplier(enc, company)

	for i, item := range batch.Items {
		_ = enc.EncodeToken(xml.StartElement{Name: xml.Name{Local: "sac:VoidedDocumentsLine"}})
		writeCbc(enc, "LineID", strconv.Itoa(i+1))
		writeCbc(enc, "DocumentTypeCode", item.Kind)
		writeCbc(enc, "DocumentSerialID", item.Series)
		writeCbc(enc, "DocumentNumberID", item.Correlative)
		_ = enc.EncodeToken(xml.StartElement{Name: xml.Name{Local: "sac:VoidReasonDescription"}})
		_ = enc.EncodeToken(xml.CharData(item.Reason))
		_ = enc.EncodeToken(xml.EndElement{Name: xml.Name{Local: "sac:VoidReasonDescription"}})
		_ = enc.EncodeToken(xml.EndElement{Name: xml.Name{Local: "sac:VoidedDocumentsLine"}})
	}

	return finish(enc, &buf, root)
}

// ── secciones compartidas ────────────────────────────────────────────────────

func (b *XMLBuilder) writeSupplier(enc *xml.Encoder, company *entity.Company) {
	_ = enc.EncodeToken(startCac("AccountingSupplierParty"))
	_ = enc.EncodeToken(startCac("Party"))
	_ = enc.EncodeToken(startCac("PartyIdentification"))
	writeCbcAttr(enc, "ID", company.RUC, xml.Attr{Name: xml.Name{Local: "schemeID"}, Value: "6"})
	_ = enc.EncodeToken(endCac("PartyIdentification"))
	_ = enc.EncodeToken(startCac("PartyLegalEntity"))
	writeCbc(enc, "RegistrationName", company.Name)
	if company.Address != "" {
		_ = enc.EncodeToken(startCac("RegistrationAddress"))
		_ = enc.EncodeToken(startCac("AddressLine"))
		writeCbc(enc, "Line", company.Address)
		_ = enc.EncodeToken(endCac("AddressLine"))
		_ = enc.EncodeToken(endCac("RegistrationAddress"))
	}
	_ = enc.EncodeToken(endCac("PartyLegalEntity"))
	_ = enc.EncodeToken(endCac("Party"))
	_ = enc.EncodeToken(endCac("AccountingSupplierParty"))
}

// writeCustomer escribe el adquiriente. Sin cliente (boleta menor) va el
// genérico con documento "-" y schemeID 0.
func (b *XMLBuilder) writeCustomer(enc *xml.Encoder, client *entity.Client) {
	docType, docNumber, name := "0", "-", "CLIENTES VARIOS"
	if client != nil {
		docType, docNumber, name = client.DocType, client.DocNumber, client.Name
	}
	_ = enc.EncodeToken(startCac("AccountingCustomerParty"))
	_ = enc.EncodeToken(startCac("Party"))
	_ = enc.EncodeToken(startCac("PartyIdentification"))
	writeCbcAttr(enc, "ID", docNumber, xml.Attr{Name: xml.Name{Local: "schemeID"}, Value: docType})
	_ = enc.EncodeToken(endCac("PartyIdentification"))
	_ = enc.EncodeToken(startCac("PartyLegalEntity"))
	writeCbc(enc, "RegistrationName", name)
	_ = enc.EncodeToken(endCac("PartyLegalEntity"))
	_ = enc.EncodeToken(endCac("Party"))
	_ = enc.EncodeToken(endCac("AccountingCustomerParty"))
}

// writePaymentTerms declara Contado o las cuotas del crédito.
func (b *XMLBuilder) writePaymentTerms(enc *xml.Encoder, doc *entity.Document) {
	if len(doc.Installments) == 0 {
		_ = enc.EncodeToken(startCac("PaymentTerms"))
		writeCbc(enc, "ID", "FormaPago")
		writeCbc(enc, "PaymentMeansID", "Contado")
		_ = enc.EncodeToken(endCac("PaymentTerms"))
		return
	}
	_ = enc.EncodeToken(startCac("PaymentTerms"))
	writeCbc(enc, "ID", "FormaPago")
	writeCbc(enc, "PaymentMeansID", "Credito")
	writeAmount(enc, "Amount", doc.GrandTotal, doc.Currency)
	_ = enc.EncodeToken(endCac("PaymentTerms"))
	for _, inst := range doc.Installments {
		_ = enc.EncodeToken(startCac("PaymentTerms"))
		writeCbc(enc, "ID", "FormaPago")
		writeCbc(enc, "PaymentMeansID", fmt.Sprintf("Cuota%03d", inst.Number))
		writeAmount(enc, "Amount", inst.Amount, doc.Currency)
		writeCbc(enc, "PaymentDueDate", inst.DueDate.Format("2006-01-02"))
		_ = enc.EncodeToken(endCac("PaymentTerms"))
	}
}

// writeTaxTotals agrega un cac:TaxSubtotal por cada cubeta con monto.
func (b *XMLBuilder) writeTaxTotals(enc *xml.Encoder, doc *entity.Document) {
	totalTax := doc.TotalIGV.Add(doc.TotalISC).Add(doc.TotalICBPER)
	_ = enc.EncodeToken(startCac("TaxTotal"))
	writeAmount(enc, "TaxAmount", totalTax, doc.Currency)

	writeBucket := func(taxable, tax decimal.Decimal, taxID, name, typeCode string) {
		if taxable.IsZero() && tax.IsZero() {
			return
		}
		_ = enc.EncodeToken(startCac("TaxSubtotal"))
		writeAmount(enc, "TaxableAmount", taxable, doc.Currency)
		writeAmount(enc, "TaxAmount", tax, doc.Currency)
		_ = enc.EncodeToken(startCac("TaxCategory"))
		_ = enc.EncodeToken(startCac("TaxScheme"))
		writeCbc(enc, "ID", taxID)
		writeCbc(enc, "Name", name)
		writeCbc(enc, "TaxTypeCode", typeCode)
		_ = enc.EncodeToken(endCac("TaxScheme"))
		_ = enc.EncodeToken(endCac("TaxCategory"))
		_ = enc.EncodeToken(endCac("TaxSubtotal"))
	}

	writeBucket(doc.TotalTaxed, doc.TotalIGV, TaxIDIGV, "IGV", "VAT")
	writeBucket(doc.TotalExempt, decimal.Zero, TaxIDExo, "EXO", "VAT")
	writeBucket(doc.TotalUnaffected, decimal.Zero, TaxIDIna, "INA", "FRE")
	writeBucket(doc.TotalExport, decimal.Zero, TaxIDExport, "EXP", "FRE")
	if !doc.TotalISC.IsZero() {
		writeBucket(doc.TotalTaxed, doc.TotalISC, TaxIDISC, "ISC", "EXC")
	}
	if !doc.TotalICBPER.IsZero() {
		writeBucket(decimal.Zero, doc.TotalICBPER, TaxIDICBPER, "ICBPER", "OTH")
	}

	_ = enc.EncodeToken(endCac("TaxTotal"))
}

func (b *XMLBuilder) writeMonetaryTotal(enc *xml.Encoder, local string, doc *entity.Document) {
	lineExtension := doc.TotalTaxed.Add(doc.TotalExempt).Add(doc.TotalUnaffected).Add(doc.TotalExport)
	_ = enc.EncodeToken(startCac(local))
	writeAmount(enc, "LineExtensionAmount", lineExtension, doc.Currency)
	writeAmount(enc, "TaxInclusiveAmount", doc.GrandTotal, doc.Currency)
	if !doc.GlobalDiscount.IsZero() {
		writeAmount(enc, "AllowanceTotalAmount", doc.GlobalDiscount, doc.Currency)
	}
	writeAmount(enc, "PayableAmount", doc.GrandTotal, doc.Currency)
	_ = enc.EncodeToken(endCac(local))
}

func (b *XMLBuilder) writeLine(enc *xml.Encoder, local, qtyLocal string, n int, d *entity.Detail, currency string) {
	_ = enc.EncodeToken(startCac(local))
	writeCbc(enc, "ID", strconv.Itoa(n))
	writeCbcAttr(enc, qtyLocal, d.Quantity.String(),
		xml.Attr{Name: xml.Name{Local: "unitCode"}, Value: "NIU"})
	writeAmount(enc, "LineExtensionAmount", d.LineValue, currency)

	_ = enc.EncodeToken(startCac("TaxTotal"))
	writeAmount(enc, "TaxAmount", d.LineIGV, currency)
	_ = enc.EncodeToken(startCac("TaxSubtotal"))
	writeAmount(enc, "TaxableAmount", d.LineValue, currency)
	writeAmount(enc, "TaxAmount", d.LineIGV, currency)
	_ = enc.EncodeToken(startCac("TaxCategory"))
	writeCbc(enc, "Percent", d.IGVPercent.String())
	writeCbc(enc, "TaxExemptionReasonCode", d.AffectationCode)
	_ = enc.EncodeToken(startCac("TaxScheme"))
	writeCbc(enc, "ID", TaxIDIGV)
	writeCbc(enc, "Name", "IGV")
	writeCbc(enc, "TaxTypeCode", "VAT")
	_ = enc.EncodeToken(endCac("TaxScheme"))
	_ = enc.EncodeToken(endCac("TaxCategory"))
	_ = enc.EncodeToken(endCac("TaxSubtotal"))
	_ = enc.EncodeToken(endCac("TaxTotal"))

	_ = enc.EncodeToken(startCac("Item"))
	writeCbc(enc, "Description", d.Description)
	if d.ProductCode != "" {
		_ = enc.EncodeToken(startCac("SellersItemIdentification"))
		writeCbc(enc, "ID", d.ProductCode)
		_ = enc.EncodeToken(endCac("SellersItemIdentification"))
	}
	_ = enc.EncodeToken(endCac("Item"))

	_ = enc.EncodeToken(startCac("Price"))
	writeAmount(enc, "PriceAmount", d.UnitPrice, currency)
	_ = enc.EncodeToken(endCac("Price"))

	_ = enc.EncodeToken(endCac(local))
}

// ── helpers de tokens ────────────────────────────────────────────────────────

func rootElement(local, ns string) xml.StartElement {
	return xml.StartElement{
		Name: xml.Name{Local: local},
		Attr: []xml.Attr{
			{Name: xml.Name{Local: "xmlns"}, Value: ns},
			{Name: xml.Name{Local: "xmlns:cac"}, Value: NsCac},
			{Name: xml.Name{Local: "xmlns:cbc"}, Value: NsCbc},
			{Name: xml.Name{Local: "xmlns:ext"}, Value: NsExt},
			{Name: xml.Name{Local: "xmlns:ds"}, Value: NsDs},
		},
	}
}

// writeSignaturePlaceholder deja ext:UBLExtensions con un ExtensionContent
// vacío como primer hijo; el firmador inyecta ahí el ds:Signature.
func writeSignaturePlaceholder(enc *xml.Encoder) {
	_ = enc.EncodeToken(xml.StartElement{Name: xml.Name{Local: "ext:UBLExtensions"}})
	_ = enc.EncodeToken(xml.StartElement{Name: xml.Name{Local: "ext:UBLExtension"}})
	_ = enc.EncodeToken(xml.StartElement{Name: xml.Name{Local: "ext:ExtensionContent"}})
	_ = enc.EncodeToken(xml.EndElement{Name: xml.Name{Local: "ext:ExtensionContent"}})
	_ = enc.EncodeToken(xml.EndElement{Name: xml.Name{Local: "ext:UBLExtension"}})
	_ = enc.EncodeToken(xml.EndElement{Name: xml.Name{Local: "ext:UBLExtensions"}})
}

func startCac(local string) xml.StartElement {
	return xml.StartElement{Name: xml.Name{Local: "cac:" + local}}
}

func endCac(local string) xml.EndElement {
	return xml.EndElement{Name: xml.Name{Local: "cac:" + local}}
}

func writeCbc(enc *xml.Encoder, local, value string) {
	writeCbcAttr(enc, local, value)
}

func writeCbcAttr(enc *xml.Encoder, local, value string, attrs ...xml.Attr) {
	name := xml.Name{Local: "cbc:" + local}
	_ = enc.EncodeToken(xml.StartElement{Name: name, Attr: attrs})
	_ = enc.EncodeToken(xml.CharData(value))
	_ = enc.EncodeToken(xml.EndElement{Name: name})
}

func writeAmount(enc *xml.Encoder, local string, amount decimal.Decimal, currency string) {
	writeCbcAttr(enc, local, amount.StringFixed(2),
		xml.Attr{Name: xml.Name{Local: "currencyID"}, Value: currency})
}

func finish(enc *xml.Encoder, buf *bytes.Buffer, root xml.StartElement) ([]byte, error) {
	if err := enc.EncodeToken(root.End()); err != nil {
		return nil, err
	}
	if err := enc.Flush(); err != nil {
		return nil, err
	}
	out := append([]byte(xml.Header), buf.Bytes()...)
	return out, nil
}
