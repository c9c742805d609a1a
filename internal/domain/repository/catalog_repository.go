package repository

import (
	"context"

	"github.com/tu-usuario/facturalo-pe/pkg/sunat"
)

// CatalogRepository expone las tablas de referencia (solo lectura desde el
// core; la administración escribe por flujos separados).
type CatalogRepository interface {
	// GetPaymentMethod devuelve la metadata del medio de pago o nil si el
	// código no existe en el catálogo.
	GetPaymentMethod(ctx context.Context, code string) (*sunat.PaymentMethodMeta, error)
	ListVoidReasons(ctx context.Context) ([]string, error)
}
