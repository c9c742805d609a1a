package webhooks_test

import (
	"context"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tu-usuario/facturalo-pe/internal/application/webhooks"
	"github.com/tu-usuario/facturalo-pe/internal/domain/entity"
	"github.com/tu-usuario/facturalo-pe/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fakes en memoria
// ──────────────────────────────────────────────────────────────────────────────

type fakeWebhookRepo struct {
	webhooks   map[string]*entity.Webhook
	deliveries map[string]*entity.WebhookDelivery
}

func newFakeWebhookRepo() *fakeWebhookRepo {
	return &fakeWebhookRepo{
		webhooks:   make(map[string]*entity.Webhook),
		deliveries: make(map[string]*entity.WebhookDelivery),
	}
}

func (r *fakeWebhookRepo) Create(_ context.Context, wh *entity.Webhook) error {
	r.webhooks[wh.ID] = wh
	return nil
}
func (r *fakeWebhookRepo) Update(_ context.Context, wh *entity.Webhook) error {
	r.webhooks[wh.ID] = wh
	return nil
}
func (r *fakeWebhookRepo) Delete(_ context.Context, id string) error {
	delete(r.webhooks, id)
	return nil
}
func (r *fakeWebhookRepo) GetByID(_ context.Context, id string) (*entity.Webhook, error) {
	return r.webhooks[id], nil
}
func (r *fakeWebhookRepo) ListByCompany(_ context.Context, companyID string) ([]*entity.Webhook, error) {
	var out []*entity.Webhook
	for _, wh := range r.webhooks {
		if wh.CompanyID == companyID {
			out = append(out, wh)
		}
	}
	return out, nil
}
func (r *fakeWebhookRepo) ListSubscribed(_ context.Context, companyID, event string) ([]*entity.Webhook, error) {
	var out []*entity.Webhook
	for _, wh := range r.webhooks {
		if wh.CompanyID == companyID && wh.SubscribedTo(event) {
			out = append(out, wh)
		}
	}
	return out, nil
}
func (r *fakeWebhookRepo) CreateDelivery(_ context.Context, d *entity.WebhookDelivery) error {
	r.deliveries[d.ID] = d
	return nil
}
func (r *fakeWebhookRepo) GetDelivery(_ context.Context, id string) (*entity.WebhookDelivery, error) {
	return r.deliveries[id], nil
}
func (r *fakeWebhookRepo) UpdateDelivery(_ context.Context, d *entity.WebhookDelivery) error {
	r.deliveries[d.ID] = d
	return nil
}
func (r *fakeWebhookRepo) ListDeliveriesByWebhook(_ context.Context, webhookID string, _ int) ([]*entity.WebhookDelivery, error) {
	var out []*entity.WebhookDelivery
	for _, d := range r.deliveries {
		if d.WebhookID == webhookID {
			out = append(out, d)
		}
	}
	return out, nil
}

type fakeDeliveryQueue struct {
	ids    []string
	delays []time.Duration
}

func (q *fakeDeliveryQueue) EnqueueDelivery(_ context.Context, id string) error {
	q.ids = append(q.ids, id)
	q.delays = append(q.delays, 0)
	return nil
}

func (q *fakeDeliveryQueue) EnqueueDeliveryDelayed(_ context.Context, id string, delay time.Duration) error {
	q.ids = append(q.ids, id)
	q.delays = append(q.delays, delay)
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

const secreto = "secreto-compartido"

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Env: "production", Level: "error"})
}

func suscriptor(url string) *entity.Webhook {
	return &entity.Webhook{
		ID:         "wh-1",
		CompanyID:  "comp-1",
		URL:        url,
		Secret:     secreto,
		Events:     []string{entity.EventDocumentAccepted, entity.EventDocumentRejected},
		Active:     true,
		MaxRetries: 3,
		RetryDelay: 10 * time.Second,
	}
}

func entregaPendiente(webhookID string) *entity.WebhookDelivery {
	return &entity.WebhookDelivery{
		ID:        "del-1",
		WebhookID: webhookID,
		CompanyID: "comp-1",
		EventName: entity.EventDocumentAccepted,
		Payload:   `{"event_name":"document.accepted","numero":"B001-00000001"}`,
		Status:    entity.DeliveryStatusPending,
	}
}

// armarEntrega monta el deliverer contra el servidor de destino dado.
func armarEntrega(destino string, wh *entity.Webhook) (*webhooks.Deliverer, *fakeWebhookRepo, *fakeDeliveryQueue) {
	repo := newFakeWebhookRepo()
	queue := &fakeDeliveryQueue{}
	if wh != nil {
		wh.URL = destino
		repo.webhooks[wh.ID] = wh
	}
	return webhooks.NewDeliverer(repo, queue, 2*time.Second, testLogger()), repo, queue
}

// ──────────────────────────────────────────────────────────────────────────────
// Tests Sign
// ──────────────────────────────────────────────────────────────────────────────

func TestSign_FirmaDeterminista(t *testing.T) {
	body := []byte(`{"numero":"F001-00000001"}`)

	firma := webhooks.Sign(secreto, body)
	raw, err := hex.DecodeString(firma)
	require.NoError(t, err, "la firma debe ser hex válido")
	assert.Len(t, raw, 32, "HMAC-SHA256 produce 32 bytes")

	assert.Equal(t, firma, webhooks.Sign(secreto, body))
	assert.NotEqual(t, firma, webhooks.Sign("otro-secreto", body))
	assert.NotEqual(t, firma, webhooks.Sign(secreto, []byte(`{}`)))
}

// ──────────────────────────────────────────────────────────────────────────────
// Tests Deliver
// ──────────────────────────────────────────────────────────────────────────────

// Entrega exitosa: el destino recibe el cuerpo firmado con las cabeceras del
// contrato y la entrega queda en success.
func TestDeliver_Exito(t *testing.T) {
	var gotSignature, gotEvent, gotDelivery string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSignature = r.Header.Get("X-Webhook-Signature")
		gotEvent = r.Header.Get("X-Webhook-Event")
		gotDelivery = r.Header.Get("X-Webhook-Delivery")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d, repo, queue := armarEntrega(srv.URL, suscriptor(srv.URL))
	del := entregaPendiente("wh-1")
	repo.deliveries[del.ID] = del

	require.NoError(t, d.Deliver(context.Background(), del.ID))

	assert.Equal(t, entity.DeliveryStatusSuccess, del.Status)
	assert.Equal(t, 1, del.Attempts)
	assert.Empty(t, del.LastError)
	assert.Nil(t, del.NextRetryAt)
	assert.Empty(t, queue.ids, "una entrega exitosa no se re-encola")

	// El consumidor verifica la firma HMAC sobre el cuerpo recibido.
	assert.Equal(t, webhooks.Sign(secreto, gotBody), gotSignature)
	assert.Equal(t, entity.EventDocumentAccepted, gotEvent)
	assert.Equal(t, del.ID, gotDelivery)
}

// Backoff lineal: cada fallo programa el siguiente intento a retry_delay por
// el número de intentos acumulados; al agotar el tope queda en failed.
func TestDeliver_BackoffLinealHastaAgotar(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	d, repo, queue := armarEntrega(srv.URL, suscriptor(srv.URL))
	del := entregaPendiente("wh-1")
	repo.deliveries[del.ID] = del
	ctx := context.Background()

	// Intento 1 → reintento a 10s.
	require.NoError(t, d.Deliver(ctx, del.ID))
	assert.Equal(t, entity.DeliveryStatusPending, del.Status)
	assert.Equal(t, 1, del.Attempts)
	require.NotNil(t, del.NextRetryAt)
	require.Len(t, queue.delays, 1)
	assert.Equal(t, 10*time.Second, queue.delays[0])

	// Intento 2 → reintento a 20s.
	require.NoError(t, d.Deliver(ctx, del.ID))
	require.Len(t, queue.delays, 2)
	assert.Equal(t, 20*time.Second, queue.delays[1])

	// Intento 3 → tope del suscriptor alcanzado: failed, sin re-encolado.
	require.NoError(t, d.Deliver(ctx, del.ID))
	assert.Equal(t, entity.DeliveryStatusFailed, del.Status)
	assert.Equal(t, 3, del.Attempts)
	assert.NotEmpty(t, del.LastError)
	assert.Nil(t, del.NextRetryAt)
	assert.Len(t, queue.delays, 2)

	// Un trabajo rezagado sobre la entrega agotada es un no-op.
	require.NoError(t, d.Deliver(ctx, del.ID))
	assert.Equal(t, 3, del.Attempts)
}

// El suscriptor se desactivó entre la emisión y la entrega: failed sin POST.
func TestDeliver_WebhookInactivo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Error("no debe llegar ninguna petición a un webhook inactivo")
	}))
	defer srv.Close()

	wh := suscriptor(srv.URL)
	wh.Active = false
	d, repo, queue := armarEntrega(srv.URL, wh)
	del := entregaPendiente("wh-1")
	repo.deliveries[del.ID] = del

	require.NoError(t, d.Deliver(context.Background(), del.ID))

	assert.Equal(t, entity.DeliveryStatusFailed, del.Status)
	assert.Equal(t, 0, del.Attempts)
	assert.Empty(t, queue.ids)
}

func TestDeliver_EntregaInexistente(t *testing.T) {
	d, _, queue := armarEntrega("http://127.0.0.1:0", suscriptor("http://127.0.0.1:0"))
	require.NoError(t, d.Deliver(context.Background(), "no-existe"))
	assert.Empty(t, queue.ids)
}
