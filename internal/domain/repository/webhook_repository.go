package repository

import (
	"context"

	"github.com/tu-usuario/facturalo-pe/internal/domain/entity"
)

// WebhookRepository persiste suscriptores de webhooks y sus entregas.
type WebhookRepository interface {
	Create(ctx context.Context, wh *entity.Webhook) error
	Update(ctx context.Context, wh *entity.Webhook) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*entity.Webhook, error)
	ListByCompany(ctx context.Context, companyID string) ([]*entity.Webhook, error)
	// ListSubscribed devuelve los webhooks activos de la empresa suscritos al evento.
	ListSubscribed(ctx context.Context, companyID, event string) ([]*entity.Webhook, error)

	CreateDelivery(ctx context.Context, d *entity.WebhookDelivery) error
	GetDelivery(ctx context.Context, id string) (*entity.WebhookDelivery, error)
	// UpdateDelivery la muta únicamente el worker de entrega.
	UpdateDelivery(ctx context.Context, d *entity.WebhookDelivery) error
	ListDeliveriesByWebhook(ctx context.Context, webhookID string, limit int) ([]*entity.WebhookDelivery, error)
}
