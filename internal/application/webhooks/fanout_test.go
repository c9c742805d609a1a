package webhooks_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tu-usuario/facturalo-pe/internal/application/webhooks"
	"github.com/tu-usuario/facturalo-pe/internal/domain/entity"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

func boletaAceptada() *entity.Document {
	return &entity.Document{
		ID:          "doc-1",
		CompanyID:   "comp-1",
		Kind:        "03",
		Series:      "B001",
		Correlative: "00000001",
		FullNumber:  "B001-00000001",
		Currency:    "PEN",
		GrandTotal:  decimal.RequireFromString("118.00"),
		IssueDate:   time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC),
		Status:      entity.StatusAccepted,
	}
}

func guiaAceptada() *entity.Document {
	return &entity.Document{
		ID:          "doc-2",
		CompanyID:   "comp-1",
		Kind:        "09",
		Series:      "T001",
		Correlative: "00000001",
		FullNumber:  "T001-00000001",
		TotalWeight: decimal.RequireFromString("120.500"),
		Consignee:   "Almacén Central SAC",
		IssueDate:   time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC),
		Status:      entity.StatusAccepted,
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Tests BuildPayload
// ──────────────────────────────────────────────────────────────────────────────

// Los comprobantes de venta llevan monto y moneda en el payload.
func TestBuildPayload_DocumentoDeVenta(t *testing.T) {
	p := webhooks.BuildPayload(entity.EventDocumentAccepted, boletaAceptada(), "", "")

	assert.Equal(t, "document.accepted", p.EventName)
	assert.Equal(t, "B001-00000001", p.Numero)
	assert.Equal(t, "B001", p.Serie)
	assert.Equal(t, "00000001", p.Correlativo)
	assert.Equal(t, "2026-08-15", p.FechaEmision)
	assert.Equal(t, entity.StatusAccepted, p.EstadoSunat)

	require.NotNil(t, p.Monto)
	assert.Equal(t, "118.00", p.Monto.StringFixed(2))
	assert.Equal(t, "PEN", p.Moneda)
	assert.Nil(t, p.PesoTotal)
	assert.Empty(t, p.Destinatario)
}

// La guía de remisión no lleva montos: el payload cambia a peso y destinatario.
func TestBuildPayload_GuiaDeRemision(t *testing.T) {
	p := webhooks.BuildPayload(entity.EventDocumentAccepted, guiaAceptada(), "", "")

	assert.Nil(t, p.Monto)
	assert.Empty(t, p.Moneda)
	require.NotNil(t, p.PesoTotal)
	assert.Equal(t, "120.500", p.PesoTotal.StringFixed(3))
	assert.Equal(t, "Almacén Central SAC", p.Destinatario)
}

// Los rechazos añaden código y mensaje de error; la aceptación no los lleva.
func TestBuildPayload_Rechazo(t *testing.T) {
	doc := boletaAceptada()
	doc.Status = entity.StatusRejected

	p := webhooks.BuildPayload(entity.EventDocumentRejected, doc, "2324", "comprobante duplicado")
	assert.Equal(t, "2324", p.ErrorCode)
	assert.Equal(t, "comprobante duplicado", p.ErrorMessage)

	p = webhooks.BuildPayload(entity.EventDocumentAccepted, boletaAceptada(), "2324", "no debe copiarse")
	assert.Empty(t, p.ErrorCode)
	assert.Empty(t, p.ErrorMessage)
}

// ──────────────────────────────────────────────────────────────────────────────
// Tests Fanout
// ──────────────────────────────────────────────────────────────────────────────

// Cada suscriptor del evento recibe su propia entrega; los no suscritos y los
// inactivos quedan fuera.
func TestFanout_UnaEntregaPorSuscriptor(t *testing.T) {
	repo := newFakeWebhookRepo()
	queue := &fakeDeliveryQueue{}

	a := suscriptor("http://a.example.com/hook")
	b := suscriptor("http://b.example.com/hook")
	b.ID = "wh-2"
	soloRechazos := suscriptor("http://c.example.com/hook")
	soloRechazos.ID = "wh-3"
	soloRechazos.Events = []string{entity.EventDocumentRejected}
	inactivo := suscriptor("http://d.example.com/hook")
	inactivo.ID = "wh-4"
	inactivo.Active = false
	for _, wh := range []*entity.Webhook{a, b, soloRechazos, inactivo} {
		repo.webhooks[wh.ID] = wh
	}

	f := webhooks.NewFanout(repo, queue, testLogger())
	require.NoError(t, f.NotifyAccepted(context.Background(), boletaAceptada()))

	require.Len(t, repo.deliveries, 2, "solo los suscriptores activos de document.accepted")
	assert.Len(t, queue.ids, 2)
	for _, d := range repo.deliveries {
		assert.Equal(t, entity.DeliveryStatusPending, d.Status)
		assert.Equal(t, entity.EventDocumentAccepted, d.EventName)
		assert.Equal(t, "doc-1", d.DocumentID)
		assert.Contains(t, d.Payload, `"numero":"B001-00000001"`)
	}
}

// Sin suscriptores no se crea ninguna entrega.
func TestFanout_SinSuscriptores(t *testing.T) {
	repo := newFakeWebhookRepo()
	queue := &fakeDeliveryQueue{}
	f := webhooks.NewFanout(repo, queue, testLogger())

	require.NoError(t, f.NotifyRejected(context.Background(), boletaAceptada(), "2324", "duplicado"))
	assert.Empty(t, repo.deliveries)
	assert.Empty(t, queue.ids)
}
