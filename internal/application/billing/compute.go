package billing

import (
	"github.com/shopspring/decimal"

	"github.com/tu-usuario/facturalo-pe/internal/domain/entity"
	"github.com/tu-usuario/facturalo-pe/pkg/sunat"
)

var oneHundred = decimal.NewFromInt(100)

// ComputeTotals calcula los derivados de cada línea y los totales del
// documento, agregando por bucket de afectación (catálogo 07):
//
//	line_value = cantidad * precio_unitario - descuento
//	line_igv   = line_value * igv% / 100   (solo afectaciones gravadas)
//	total      = gravada + exonerada + inafecta + exportación
//	             + IGV + ISC + ICBPER + otros tributos - descuento global
//
// Todo monto se redondea half-up a 2 decimales en el punto de cómputo, no en
// la presentación, para que el total sea reproducible en recomputaciones.
func ComputeTotals(doc *entity.Document) {
	var taxed, exempt, unaffected, export, igv, isc, icbper decimal.Decimal

	for i := range doc.Details {
		d := &doc.Details[i]

		lineValue := d.Quantity.Mul(d.UnitPrice).Sub(d.Discount).Round(2)
		var lineIGV decimal.Decimal
		if sunat.IsTaxed(d.AffectationCode) {
			lineIGV = lineValue.Mul(d.IGVPercent).Div(oneHundred).Round(2)
		}
		d.LineValue = lineValue
		d.LineIGV = lineIGV

		switch {
		case sunat.IsTaxed(d.AffectationCode):
			taxed = taxed.Add(lineValue)
			igv = igv.Add(lineIGV)
		case sunat.IsExempt(d.AffectationCode):
			exempt = exempt.Add(lineValue)
		case sunat.IsExport(d.AffectationCode):
			export = export.Add(lineValue)
		default:
			unaffected = unaffected.Add(lineValue)
		}
		isc = isc.Add(d.ISC)
		icbper = icbper.Add(d.ICBPER)
	}

	doc.TotalTaxed = taxed.Round(2)
	doc.TotalExempt = exempt.Round(2)
	doc.TotalUnaffected = unaffected.Round(2)
	doc.TotalExport = export.Round(2)
	doc.TotalIGV = igv.Round(2)
	doc.TotalISC = isc.Round(2)
	doc.TotalICBPER = icbper.Round(2)
	doc.TotalOtherTaxes = doc.TotalOtherTaxes.Round(2)
	doc.GlobalDiscount = doc.GlobalDiscount.Round(2)

	doc.GrandTotal = doc.TotalTaxed.
		Add(doc.TotalExempt).
		Add(doc.TotalUnaffected).
		Add(doc.TotalExport).
		Add(doc.TotalIGV).
		Add(doc.TotalISC).
		Add(doc.TotalICBPER).
		Add(doc.TotalOtherTaxes).
		Sub(doc.GlobalDiscount).
		Round(2)
}

// NormalizeSaleNote fuerza la semántica de la nota de venta (kind 80):
// documento interno sin efecto tributario, IGV en 0 y afectación inafecta,
// ignorando lo que haya enviado el caller.
func NormalizeSaleNote(doc *entity.Document) {
	if doc.Kind != sunat.DocKindNotaVenta {
		return
	}
	for i := range doc.Details {
		doc.Details[i].IGVPercent = decimal.Zero
		doc.Details[i].AffectationCode = sunat.AffectationInafecta
	}
}
