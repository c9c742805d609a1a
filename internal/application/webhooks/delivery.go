package webhooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"github.com/tu-usuario/facturalo-pe/internal/domain/entity"
	"github.com/tu-usuario/facturalo-pe/internal/domain/repository"
	"github.com/tu-usuario/facturalo-pe/pkg/logger"
)

// Cabeceras de la entrega.
const (
	HeaderSignature = "X-Webhook-Signature" // HMAC-SHA256 hex del cuerpo
	HeaderEvent     = "X-Webhook-Event"
	HeaderDelivery  = "X-Webhook-Delivery"
)

// Deliverer ejecuta los intentos de entrega de un webhook. El backoff es
// lineal creciente: next_retry = ahora + retry_delay * intentos acumulados.
type Deliverer struct {
	repo   repository.WebhookRepository
	queue  DeliveryEnqueuer
	client *http.Client
	log    *logger.Logger
	now    func() time.Time
}

// NewDeliverer construye el worker de entregas. timeout acota cada POST.
func NewDeliverer(repo repository.WebhookRepository, queue DeliveryEnqueuer, timeout time.Duration, log *logger.Logger) *Deliverer {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Deliverer{
		repo:   repo,
		queue:  queue,
		client: &http.Client{Timeout: timeout},
		log:    log,
		now:    time.Now,
	}
}

// Deliver ejecuta un intento para la entrega indicada. Cualquier respuesta
// 2xx marca success; lo demás cuenta como fallo y programa el reintento o
// marca failed al agotar el tope del suscriptor.
func (d *Deliverer) Deliver(ctx context.Context, deliveryID string) error {
	del, err := d.repo.GetDelivery(ctx, deliveryID)
	if err != nil {
		return err
	}
	if del == nil || del.Status != entity.DeliveryStatusPending {
		return nil
	}

	wh, err := d.repo.GetByID(ctx, del.WebhookID)
	if err != nil {
		return err
	}
	if wh == nil || !wh.Active {
		// El suscriptor se dio de baja entre la emisión y la entrega.
		del.Status = entity.DeliveryStatusFailed
		del.LastError = "webhook inactivo o eliminado"
		del.UpdatedAt = d.now()
		return d.repo.UpdateDelivery(ctx, del)
	}

	del.Attempts++
	attemptErr := d.post(ctx, wh, del)
	if attemptErr == nil {
		del.Status = entity.DeliveryStatusSuccess
		del.LastError = ""
		del.NextRetryAt = nil
		del.UpdatedAt = d.now()
		d.log.Info().
			Str("delivery_id", del.ID).
			Str("webhook_id", wh.ID).
			Str("event", del.EventName).
			Int("attempts", del.Attempts).
			Msg("webhook entregado")
		return d.repo.UpdateDelivery(ctx, del)
	}

	del.LastError = attemptErr.Error()
	del.UpdatedAt = d.now()

	if del.Attempts >= wh.MaxRetries {
		del.Status = entity.DeliveryStatusFailed
		del.NextRetryAt = nil
		d.log.Warn().
			Str("delivery_id", del.ID).
			Str("webhook_id", wh.ID).
			Int("attempts", del.Attempts).
			Str("last_error", del.LastError).
			Msg("entrega de webhook agotada")
		return d.repo.UpdateDelivery(ctx, del)
	}

	delay := wh.RetryDelay * time.Duration(del.Attempts)
	next := d.now().Add(delay)
	del.NextRetryAt = &next
	if err := d.repo.UpdateDelivery(ctx, del); err != nil {
		return err
	}
	return d.queue.EnqueueDeliveryDelayed(ctx, del.ID, delay)
}

// post firma el cuerpo con el secreto del suscriptor y lo envía.
func (d *Deliverer) post(ctx context.Context, wh *entity.Webhook, del *entity.WebhookDelivery) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, wh.URL, bytes.NewReader([]byte(del.Payload)))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderEvent, del.EventName)
	req.Header.Set(HeaderDelivery, del.ID)
	req.Header.Set(HeaderSignature, Sign(wh.Secret, []byte(del.Payload)))

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("destino respondió %d", resp.StatusCode)
	}
	return nil
}

// Sign calcula la firma HMAC-SHA256 en hex que el consumidor verifica.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
