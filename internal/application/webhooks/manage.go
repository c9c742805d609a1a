package webhooks

import (
	"context"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/tu-usuario/facturalo-pe/internal/application/dto"
	"github.com/tu-usuario/facturalo-pe/internal/domain"
	"github.com/tu-usuario/facturalo-pe/internal/domain/entity"
	"github.com/tu-usuario/facturalo-pe/internal/domain/repository"
)

var validEvents = map[string]bool{
	entity.EventDocumentAccepted: true,
	entity.EventDocumentRejected: true,
}

// ManageUseCase administra suscriptores de webhooks (alta, edición, baja).
type ManageUseCase struct {
	repo              repository.WebhookRepository
	defaultMaxRetries int
	defaultRetryDelay time.Duration
}

// NewManageUseCase construye la administración de webhooks con los defaults
// de reintento de la configuración.
func NewManageUseCase(repo repository.WebhookRepository, defaultMaxRetries int, defaultRetryDelay time.Duration) *ManageUseCase {
	return &ManageUseCase{repo: repo, defaultMaxRetries: defaultMaxRetries, defaultRetryDelay: defaultRetryDelay}
}

// Create registra un suscriptor nuevo.
func (uc *ManageUseCase) Create(ctx context.Context, companyID string, in dto.WebhookRequest) (*dto.WebhookResponse, error) {
	if err := validateRequest(&in, true); err != nil {
		return nil, err
	}
	wh := &entity.Webhook{
		ID:         uuid.New().String(),
		CompanyID:  companyID,
		URL:        in.URL,
		Secret:     in.Secret,
		Events:     in.Events,
		Active:     true,
		MaxRetries: uc.defaultMaxRetries,
		RetryDelay: uc.defaultRetryDelay,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	if in.Active != nil {
		wh.Active = *in.Active
	}
	if in.MaxRetries > 0 {
		wh.MaxRetries = in.MaxRetries
	}
	if in.RetrySecs > 0 {
		wh.RetryDelay = time.Duration(in.RetrySecs) * time.Second
	}
	if err := uc.repo.Create(ctx, wh); err != nil {
		return nil, err
	}
	return toResponse(wh), nil
}

// Update edita un suscriptor existente.
func (uc *ManageUseCase) Update(ctx context.Context, companyID, id string, in dto.WebhookRequest) (*dto.WebhookResponse, error) {
	wh, err := uc.get(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	// En la edición el secreto vacío significa "conservar el actual".
	if err := validateRequest(&in, false); err != nil {
		return nil, err
	}
	wh.URL = in.URL
	if in.Secret != "" {
		wh.Secret = in.Secret
	}
	wh.Events = in.Events
	if in.Active != nil {
		wh.Active = *in.Active
	}
	if in.MaxRetries > 0 {
		wh.MaxRetries = in.MaxRetries
	}
	if in.RetrySecs > 0 {
		wh.RetryDelay = time.Duration(in.RetrySecs) * time.Second
	}
	wh.UpdatedAt = time.Now()
	if err := uc.repo.Update(ctx, wh); err != nil {
		return nil, err
	}
	return toResponse(wh), nil
}

// Delete da de baja un suscriptor.
func (uc *ManageUseCase) Delete(ctx context.Context, companyID, id string) error {
	if _, err := uc.get(ctx, companyID, id); err != nil {
		return err
	}
	return uc.repo.Delete(ctx, id)
}

// List devuelve los suscriptores de la empresa.
func (uc *ManageUseCase) List(ctx context.Context, companyID string) ([]*dto.WebhookResponse, error) {
	whs, err := uc.repo.ListByCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	out := make([]*dto.WebhookResponse, 0, len(whs))
	for _, wh := range whs {
		out = append(out, toResponse(wh))
	}
	return out, nil
}

// ListDeliveries devuelve el historial de entregas de un suscriptor.
func (uc *ManageUseCase) ListDeliveries(ctx context.Context, companyID, id string, limit int) ([]*entity.WebhookDelivery, error) {
	if _, err := uc.get(ctx, companyID, id); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return uc.repo.ListDeliveriesByWebhook(ctx, id, limit)
}

func (uc *ManageUseCase) get(ctx context.Context, companyID, id string) (*entity.Webhook, error) {
	wh, err := uc.repo.GetByID(ctx, id)
	if err != nil || wh == nil {
		return nil, domain.ErrNotFound
	}
	if wh.CompanyID != companyID {
		return nil, domain.ErrForbidden
	}
	return wh, nil
}

func validateRequest(in *dto.WebhookRequest, requireSecret bool) error {
	ve := domain.NewValidationError()
	u, err := url.Parse(in.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		ve.Add("url", "debe ser una URL http(s) válida")
	}
	if requireSecret && in.Secret == "" {
		ve.Add("secret", "es obligatorio")
	}
	if len(in.Events) == 0 {
		ve.Add("events", "debe suscribir al menos un evento")
	}
	for _, e := range in.Events {
		if !validEvents[e] {
			ve.Add("events", "evento no soportado: "+e)
		}
	}
	return ve.ErrOrNil()
}

func toResponse(wh *entity.Webhook) *dto.WebhookResponse {
	return &dto.WebhookResponse{
		ID:         wh.ID,
		URL:        wh.URL,
		Events:     wh.Events,
		Active:     wh.Active,
		MaxRetries: wh.MaxRetries,
	}
}
