package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tu-usuario/facturalo-pe/internal/domain/entity"
	"github.com/tu-usuario/facturalo-pe/internal/domain/repository"
)

var _ repository.WebhookRepository = (*WebhookRepo)(nil)

// WebhookRepo implementación de WebhookRepository (usable con pool o tx).
type WebhookRepo struct {
	q Querier
}

// NewWebhookRepository construye el adaptador. Pasar pool o tx (Querier).
func NewWebhookRepository(q Querier) *WebhookRepo {
	return &WebhookRepo{q: q}
}

// Create persiste un suscriptor. Events va como array nativo de Postgres.
func (r *WebhookRepo) Create(ctx context.Context, wh *entity.Webhook) error {
	if wh.ID == "" {
		wh.ID = uuid.New().String()
	}
	query := `
		INSERT INTO webhooks (id, company_id, url, secret, events, active, max_retries, retry_delay_seconds, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.q.Exec(ctx, query,
		wh.ID, wh.CompanyID, wh.URL, wh.Secret, wh.Events, wh.Active,
		wh.MaxRetries, int(wh.RetryDelay.Seconds()), wh.CreatedAt, wh.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert webhook: %w", err)
	}
	return nil
}

// Update reescribe la configuración del suscriptor.
func (r *WebhookRepo) Update(ctx context.Context, wh *entity.Webhook) error {
	query := `
		UPDATE webhooks
		SET url = $2, secret = $3, events = $4, active = $5,
		    max_retries = $6, retry_delay_seconds = $7, updated_at = $8
		WHERE id = $1`
	_, err := r.q.Exec(ctx, query,
		wh.ID, wh.URL, wh.Secret, wh.Events, wh.Active,
		wh.MaxRetries, int(wh.RetryDelay.Seconds()), wh.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update webhook: %w", err)
	}
	return nil
}

// Delete elimina el suscriptor; sus entregas históricas se conservan.
func (r *WebhookRepo) Delete(ctx context.Context, id string) error {
	_, err := r.q.Exec(ctx, `DELETE FROM webhooks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete webhook: %w", err)
	}
	return nil
}

const webhookColumns = `id, company_id, url, secret, events, active, max_retries, retry_delay_seconds, created_at, updated_at`

// GetByID obtiene un suscriptor.
func (r *WebhookRepo) GetByID(ctx context.Context, id string) (*entity.Webhook, error) {
	row := r.q.QueryRow(ctx, `SELECT `+webhookColumns+` FROM webhooks WHERE id = $1`, id)
	return scanWebhook(row)
}

// ListByCompany devuelve los suscriptores de la empresa.
func (r *WebhookRepo) ListByCompany(ctx context.Context, companyID string) ([]*entity.Webhook, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+webhookColumns+` FROM webhooks WHERE company_id = $1 ORDER BY created_at`, companyID)
	if err != nil {
		return nil, fmt.Errorf("list webhooks: %w", err)
	}
	defer rows.Close()
	return collectWebhooks(rows)
}

// ListSubscribed devuelve los webhooks activos suscritos al evento.
func (r *WebhookRepo) ListSubscribed(ctx context.Context, companyID, event string) ([]*entity.Webhook, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+webhookColumns+` FROM webhooks
		 WHERE company_id = $1 AND active = TRUE AND $2 = ANY(events)
		 ORDER BY created_at`, companyID, event)
	if err != nil {
		return nil, fmt.Errorf("list subscribed webhooks: %w", err)
	}
	defer rows.Close()
	return collectWebhooks(rows)
}

// CreateDelivery persiste una entrega pendiente.
func (r *WebhookRepo) CreateDelivery(ctx context.Context, d *entity.WebhookDelivery) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	query := `
		INSERT INTO webhook_deliveries (id, webhook_id, company_id, event_name, document_id, payload, status, attempts, next_retry_at, last_error, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := r.q.Exec(ctx, query,
		d.ID, d.WebhookID, d.CompanyID, d.EventName, d.DocumentID, d.Payload,
		d.Status, d.Attempts, d.NextRetryAt, nullIfEmpty(d.LastError), d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert webhook delivery: %w", err)
	}
	return nil
}

// GetDelivery obtiene una entrega por ID.
func (r *WebhookRepo) GetDelivery(ctx context.Context, id string) (*entity.WebhookDelivery, error) {
	query := `
		SELECT id, webhook_id, company_id, event_name, document_id, payload,
		       status, attempts, next_retry_at, COALESCE(last_error, ''), created_at, updated_at
		FROM webhook_deliveries WHERE id = $1`
	var d entity.WebhookDelivery
	err := r.q.QueryRow(ctx, query, id).Scan(
		&d.ID, &d.WebhookID, &d.CompanyID, &d.EventName, &d.DocumentID, &d.Payload,
		&d.Status, &d.Attempts, &d.NextRetryAt, &d.LastError, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get webhook delivery: %w", err)
	}
	return &d, nil
}

// UpdateDelivery persiste el resultado de un intento.
func (r *WebhookRepo) UpdateDelivery(ctx context.Context, d *entity.WebhookDelivery) error {
	query := `
		UPDATE webhook_deliveries
		SET status = $2, attempts = $3, next_retry_at = $4, last_error = $5, updated_at = $6
		WHERE id = $1`
	_, err := r.q.Exec(ctx, query,
		d.ID, d.Status, d.Attempts, d.NextRetryAt, nullIfEmpty(d.LastError), d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update webhook delivery: %w", err)
	}
	return nil
}

// ListDeliveriesByWebhook historial reciente de entregas del suscriptor.
func (r *WebhookRepo) ListDeliveriesByWebhook(ctx context.Context, webhookID string, limit int) ([]*entity.WebhookDelivery, error) {
	query := `
		SELECT id, webhook_id, company_id, event_name, document_id, payload,
		       status, attempts, next_retry_at, COALESCE(last_error, ''), created_at, updated_at
		FROM webhook_deliveries WHERE webhook_id = $1
		ORDER BY created_at DESC LIMIT $2`
	rows, err := r.q.Query(ctx, query, webhookID, limit)
	if err != nil {
		return nil, fmt.Errorf("list webhook deliveries: %w", err)
	}
	defer rows.Close()
	var list []*entity.WebhookDelivery
	for rows.Next() {
		var d entity.WebhookDelivery
		if err := rows.Scan(&d.ID, &d.WebhookID, &d.CompanyID, &d.EventName, &d.DocumentID, &d.Payload,
			&d.Status, &d.Attempts, &d.NextRetryAt, &d.LastError, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan delivery: %w", err)
		}
		list = append(list, &d)
	}
	return list, rows.Err()
}

func scanWebhook(row pgx.Row) (*entity.Webhook, error) {
	var wh entity.Webhook
	var retrySecs int
	err := row.Scan(&wh.ID, &wh.CompanyID, &wh.URL, &wh.Secret, &wh.Events, &wh.Active,
		&wh.MaxRetries, &retrySecs, &wh.CreatedAt, &wh.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get webhook: %w", err)
	}
	wh.RetryDelay = secondsToDuration(retrySecs)
	return &wh, nil
}

func collectWebhooks(rows pgx.Rows) ([]*entity.Webhook, error) {
	var list []*entity.Webhook
	for rows.Next() {
		var wh entity.Webhook
		var retrySecs int
		if err := rows.Scan(&wh.ID, &wh.CompanyID, &wh.URL, &wh.Secret, &wh.Events, &wh.Active,
			&wh.MaxRetries, &retrySecs, &wh.CreatedAt, &wh.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan webhook: %w", err)
		}
		wh.RetryDelay = secondsToDuration(retrySecs)
		list = append(list, &wh)
	}
	return list, rows.Err()
}
