package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/tu-usuario/facturalo-pe/internal/domain/entity"
	"github.com/tu-usuario/facturalo-pe/internal/domain/repository"
)

var _ repository.NotificationRepository = (*NotificationRepo)(nil)

// NotificationRepo implementación del puerto NotificationRepository.
type NotificationRepo struct {
	q Querier
}

// NewNotificationRepository construye el adaptador de avisos internos.
func NewNotificationRepository(q Querier) *NotificationRepo {
	return &NotificationRepo{q: q}
}

// Create persiste un aviso.
func (r *NotificationRepo) Create(ctx context.Context, n *entity.Notification) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	query := `
		INSERT INTO notifications (id, company_id, document_id, event_name, title, body, read, email_sent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE, FALSE, $7)`
	_, err := r.q.Exec(ctx, query,
		n.ID, n.CompanyID, n.DocumentID, n.EventName, n.Title, n.Body, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// MarkEmailSent marca el aviso como notificado por correo.
func (r *NotificationRepo) MarkEmailSent(ctx context.Context, id string) error {
	_, err := r.q.Exec(ctx, `UPDATE notifications SET email_sent = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark email sent: %w", err)
	}
	return nil
}
