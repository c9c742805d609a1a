package repository

import (
	"context"

	"github.com/tu-usuario/facturalo-pe/internal/domain/entity"
)

// CompanyRepository persiste emisores y sucursales.
type CompanyRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Company, error)
	GetBranch(ctx context.Context, id string) (*entity.Branch, error)
}

// ClientRepository persiste adquirientes.
type ClientRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Client, error)
	Create(ctx context.Context, c *entity.Client) error
}

// NotificationRepository persiste avisos internos.
type NotificationRepository interface {
	Create(ctx context.Context, n *entity.Notification) error
	MarkEmailSent(ctx context.Context, id string) error
}
