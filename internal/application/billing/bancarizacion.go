package billing

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/tu-usuario/facturalo-pe/internal/domain"
	"github.com/tu-usuario/facturalo-pe/internal/domain/entity"
	"github.com/tu-usuario/facturalo-pe/internal/domain/repository"
	"github.com/tu-usuario/facturalo-pe/pkg/sunat"
)

// Umbrales de bancarización (Ley 28194 / D.Leg. 1529): montos estrictamente
// por encima del umbral exigen declarar el medio de pago. Son constantes de
// política fijadas por ley, no configuración por tenant.
var (
	BancarizationThresholdPEN = decimal.NewFromInt(2000)
	BancarizationThresholdUSD = decimal.NewFromInt(500)

	// Umbral de identificación del adquiriente en boletas: por encima de
	// S/ 700.00 el DNI declarado no puede ser un placeholder.
	DNIDisclosureThresholdPEN = decimal.RequireFromString("700.00")

	// Tolerancia de la restricción de suma en pagos múltiples.
	multiPaymentTolerance = decimal.RequireFromString("0.01")
	minMultiPaymentAmount = decimal.RequireFromString("0.01")
)

// placeholderDNIs lista negra de DNIs de relleno: ocho dígitos iguales y la
// secuencia trivial.
var placeholderDNIs = map[string]bool{
	"00000000": true, "11111111": true, "22222222": true, "33333333": true,
	"44444444": true, "55555555": true, "66666666": true, "77777777": true,
	"88888888": true, "99999999": true, "12345678": true,
}

// BancarizationChecker valida la política de declaración de medios de pago y
// la regla de identidad del adquiriente. Siempre corre en el intake, nunca se
// difiere; reporta por el mismo canal de ValidationError que el motor de
// validación.
type BancarizationChecker struct {
	catalogs repository.CatalogRepository
}

// NewBancarizationChecker construye el checker con la tabla de referencia de
// medios de pago.
func NewBancarizationChecker(catalogs repository.CatalogRepository) *BancarizationChecker {
	return &BancarizationChecker{catalogs: catalogs}
}

// Threshold devuelve el umbral de bancarización para la moneda.
func Threshold(currency string) decimal.Decimal {
	if currency == sunat.CurrencyUSD {
		return BancarizationThresholdUSD
	}
	return BancarizationThresholdPEN
}

// RequiresDisclosure indica si el total en la moneda dada obliga a declarar
// el medio de pago (estrictamente por encima del umbral).
func RequiresDisclosure(total decimal.Decimal, currency string) bool {
	return total.GreaterThan(Threshold(currency))
}

// Check aplica ambas reglas sobre un documento ya computado:
//
//  1. Identidad: en PEN con total > 700.00 y adquiriente con DNI, el número
//     no puede ser un placeholder. Corre aunque la bancarización no aplique,
//     porque concierne a la contraparte y no al canal de pago.
//  2. Bancarización: total estrictamente sobre el umbral de la moneda exige
//     exactamente un registro legado o una lista de pagos múltiples cuya
//     suma cubra el total declarado.
func (c *BancarizationChecker) Check(ctx context.Context, doc *entity.Document, client *entity.Client) *domain.ValidationError {
	ve := domain.NewValidationError()

	if doc.Currency == sunat.CurrencyPEN && doc.GrandTotal.GreaterThan(DNIDisclosureThresholdPEN) &&
		client != nil && client.DocType == sunat.IdentityDocDNI {
		if placeholderDNIs[client.DocNumber] {
			ve.Add("client.doc_number", "el DNI declarado es un número de relleno no admitido para montos mayores a S/ 700.00")
		}
	}

	if !RequiresDisclosure(doc.GrandTotal, doc.Currency) {
		return ve
	}

	hasLegacy := doc.Payment != nil
	hasMulti := len(doc.MultiPayments) > 0

	switch {
	case !hasLegacy && !hasMulti:
		ve.Add("payment", fmt.Sprintf("el monto supera el umbral de bancarización (%s %s): declare el medio de pago",
			doc.Currency, Threshold(doc.Currency).StringFixed(2)))
		return ve
	case hasLegacy && hasMulti:
		ve.Add("payment", "declare el medio de pago con un único registro o con la lista de pagos múltiples, no ambos")
		return ve
	}

	if hasLegacy {
		c.checkMethod(ctx, "payment", doc.Payment.MethodCode, doc.Payment.OperationNumber, doc.Payment.BankName, doc.Payment.Date != nil, ve)
		return ve
	}

	var sum decimal.Decimal
	for i, mp := range doc.MultiPayments {
		field := fmt.Sprintf("multi_payments[%d]", i)
		if mp.Amount.LessThan(minMultiPaymentAmount) {
			ve.Add(field+".amount", "cada pago debe ser de al menos 0.01")
		}
		sum = sum.Add(mp.Amount)
		c.checkMethod(ctx, field, mp.MethodCode, mp.OperationNumber, mp.BankName, mp.Date != nil, ve)
	}
	if doc.GrandTotal.Sub(sum).GreaterThan(multiPaymentTolerance) {
		ve.Add("multi_payments", fmt.Sprintf("la suma de pagos (%s) no cubre el total declarado (%s)",
			sum.StringFixed(2), doc.GrandTotal.StringFixed(2)))
	}

	return ve
}

// checkMethod valida solo los campos que el medio de pago exige según la
// tabla de referencia.
func (c *BancarizationChecker) checkMethod(ctx context.Context, field, code, opNumber, bank string, hasDate bool, ve *domain.ValidationError) {
	meta, err := c.catalogs.GetPaymentMethod(ctx, code)
	if err != nil || meta == nil {
		ve.Add(field+".method_code", fmt.Sprintf("medio de pago %q no está en el catálogo", code))
		return
	}
	if meta.RequiresOpNumber && opNumber == "" {
		ve.Add(field+".operation_number", fmt.Sprintf("el medio de pago %s exige número de operación", code))
	}
	if meta.RequiresBank && bank == "" {
		ve.Add(field+".bank_name", fmt.Sprintf("el medio de pago %s exige la entidad financiera", code))
	}
	if meta.RequiresDate && !hasDate {
		ve.Add(field+".date", fmt.Sprintf("el medio de pago %s exige la fecha de la operación", code))
	}
}
