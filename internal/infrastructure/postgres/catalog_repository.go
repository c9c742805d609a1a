package postgres

import (
	"context"
	"fmt"

	"github.com/tu-usuario/facturalo-pe/internal/domain/repository"
	"github.com/tu-usuario/facturalo-pe/pkg/sunat"
)

var _ repository.CatalogRepository = (*CatalogRepo)(nil)

// CatalogRepo tablas de referencia SUNAT cargadas por el seeder.
type CatalogRepo struct {
	q Querier
}

// NewCatalogRepository construye el adaptador de catálogos.
func NewCatalogRepository(q Querier) *CatalogRepo {
	return &CatalogRepo{q: q}
}

// GetPaymentMethod devuelve la metadata del medio de pago o nil si el código
// no existe.
func (r *CatalogRepo) GetPaymentMethod(ctx context.Context, code string) (*sunat.PaymentMethodMeta, error) {
	query := `
		SELECT code, description, requires_op_number, requires_bank, requires_date
		FROM payment_methods WHERE code = $1`
	var m sunat.PaymentMethodMeta
	err := r.q.QueryRow(ctx, query, code).Scan(
		&m.Code, &m.Description, &m.RequiresOpNumber, &m.RequiresBank, &m.RequiresDate,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get payment method: %w", err)
	}
	return &m, nil
}

// ListVoidReasons devuelve los motivos de baja del catálogo.
func (r *CatalogRepo) ListVoidReasons(ctx context.Context) ([]string, error) {
	rows, err := r.q.Query(ctx, `SELECT description FROM void_reasons ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("list void reasons: %w", err)
	}
	defer rows.Close()
	var reasons []string
	for rows.Next() {
		var reason string
		if err := rows.Scan(&reason); err != nil {
			return nil, fmt.Errorf("scan void reason: %w", err)
		}
		reasons = append(reasons, reason)
	}
	return reasons, rows.Err()
}
