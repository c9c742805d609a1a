package submission_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tu-usuario/facturalo-pe/internal/application/events"
	"github.com/tu-usuario/facturalo-pe/internal/application/submission"
	"github.com/tu-usuario/facturalo-pe/internal/domain/entity"
	"github.com/tu-usuario/facturalo-pe/pkg/logger"
	"github.com/tu-usuario/facturalo-pe/pkg/ratelimit"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fakes en memoria
// ──────────────────────────────────────────────────────────────────────────────

// fakeDocRepo implementa la máquina de estados del documento en memoria con
// las mismas transiciones condicionadas del repositorio real.
type fakeDocRepo struct {
	doc     *entity.Document
	details []*entity.Detail
	claims  int
}

func (r *fakeDocRepo) GetByID(_ context.Context, id string) (*entity.Document, error) {
	if r.doc == nil || r.doc.ID != id {
		return nil, nil
	}
	return r.doc, nil
}

func (r *fakeDocRepo) GetDetails(_ context.Context, _ string) ([]*entity.Detail, error) {
	return r.details, nil
}

func (r *fakeDocRepo) ClaimForSending(_ context.Context, id string) (bool, int, error) {
	if r.doc == nil || r.doc.ID != id || r.doc.Status != entity.StatusQueued {
		return false, 0, nil
	}
	r.doc.Status = entity.StatusSent
	r.doc.SendAttempts++
	r.claims++
	return true, r.doc.SendAttempts, nil
}

func (r *fakeDocRepo) TransitionStatus(_ context.Context, id, from, to string) (bool, error) {
	if r.doc == nil || r.doc.ID != id || r.doc.Status != from {
		return false, nil
	}
	r.doc.Status = to
	return true, nil
}

func (r *fakeDocRepo) FinalizeAccepted(_ context.Context, id, cdrHash, response string) (bool, error) {
	if r.doc.Status != entity.StatusSent {
		return false, nil
	}
	r.doc.Status = entity.StatusAccepted
	r.doc.CDRHash = cdrHash
	r.doc.SunatResponse = response
	return true, nil
}

func (r *fakeDocRepo) FinalizeRejected(_ context.Context, id, errorCode, response string) (bool, error) {
	if r.doc.Status != entity.StatusSent {
		return false, nil
	}
	r.doc.Status = entity.StatusRejected
	r.doc.ErrorCode = errorCode
	r.doc.SunatResponse = response
	return true, nil
}

func (r *fakeDocRepo) FinalizeError(_ context.Context, id, response string) (bool, error) {
	if r.doc.Status != entity.StatusSent {
		return false, nil
	}
	r.doc.Status = entity.StatusError
	r.doc.SunatResponse = response
	return true, nil
}

func (r *fakeDocRepo) Create(_ context.Context, _ *entity.Document) error     { return nil }
func (r *fakeDocRepo) CreateDetail(_ context.Context, _ *entity.Detail) error { return nil }
func (r *fakeDocRepo) Update(_ context.Context, _ *entity.Document) error     { return nil }
func (r *fakeDocRepo) GetByFullNumber(_ context.Context, _, _, _, _ string) (*entity.Document, error) {
	return nil, nil
}
func (r *fakeDocRepo) MarkVoided(_ context.Context, _, _, _ string, _ time.Time) error { return nil }
func (r *fakeDocRepo) HasAcceptedNoteReferencing(_ context.Context, _ string) (bool, error) {
	return false, nil
}

type fakeCompanyRepo struct{ company *entity.Company }

func (r *fakeCompanyRepo) GetByID(_ context.Context, _ string) (*entity.Company, error) {
	return r.company, nil
}
func (r *fakeCompanyRepo) GetBranch(_ context.Context, _ string) (*entity.Branch, error) {
	return nil, nil
}

type fakeClientRepo struct{ client *entity.Client }

func (r *fakeClientRepo) GetByID(_ context.Context, _ string) (*entity.Client, error) {
	return r.client, nil
}
func (r *fakeClientRepo) Create(_ context.Context, _ *entity.Client) error { return nil }

// fakeTransmitter ejecuta un guion de respuestas, una por intento.
type fakeTransmitter struct {
	calls   int
	results []*submission.BillResult
	errs    []error
}

func (f *fakeTransmitter) SendBill(_ context.Context, _ *entity.Company, _ *entity.Document, _ *entity.Client) (*submission.BillResult, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i < len(f.results) {
		return f.results[i], nil
	}
	return &submission.BillResult{Accepted: true}, nil
}

// fakeEnqueuer registra los re-encolados diferidos del pipeline.
type fakeEnqueuer struct {
	ids    []string
	delays []time.Duration
}

func (f *fakeEnqueuer) EnqueueSubmission(_ context.Context, id string) error {
	f.ids = append(f.ids, id)
	f.delays = append(f.delays, 0)
	return nil
}

func (f *fakeEnqueuer) EnqueueSubmissionDelayed(_ context.Context, id string, delay time.Duration) error {
	f.ids = append(f.ids, id)
	f.delays = append(f.delays, delay)
	return nil
}

// fakeNotifier y fakeSink cuentan los eventos propagados por el dispatcher.
type fakeNotifier struct{ accepted, rejected int }

func (f *fakeNotifier) NotifyAccepted(_ context.Context, _ *entity.Document) error {
	f.accepted++
	return nil
}
func (f *fakeNotifier) NotifyRejected(_ context.Context, _ *entity.Document, _, _ string) error {
	f.rejected++
	return nil
}

type fakeSink struct{ accepted, rejected, errored int }

func (f *fakeSink) DocumentAccepted(_ context.Context, _ *entity.Document) error {
	f.accepted++
	return nil
}
func (f *fakeSink) DocumentRejected(_ context.Context, _ *entity.Document, _, _ string) error {
	f.rejected++
	return nil
}
func (f *fakeSink) DocumentErrored(_ context.Context, _ *entity.Document, _ string) error {
	f.errored++
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Armado del pipeline de prueba
// ──────────────────────────────────────────────────────────────────────────────

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Env: "production", Level: "error"})
}

func docEncolado() *entity.Document {
	return &entity.Document{
		ID:         "doc-1",
		CompanyID:  "comp-1",
		Kind:       "03",
		Series:     "B001",
		FullNumber: "B001-00000001",
		Currency:   "PEN",
		GrandTotal: decimal.RequireFromString("118.00"),
		Status:     entity.StatusQueued,
	}
}

type armado struct {
	pipeline *submission.Pipeline
	docs     *fakeDocRepo
	tx       *fakeTransmitter
	queue    *fakeEnqueuer
	notifier *fakeNotifier
	sink     *fakeSink
}

func armar(doc *entity.Document, tx *fakeTransmitter, limiter *ratelimit.TenantLimiter) *armado {
	log := testLogger()
	docs := &fakeDocRepo{doc: doc}
	queue := &fakeEnqueuer{}
	notifier := &fakeNotifier{}
	sink := &fakeSink{}
	dispatcher := events.NewDispatcher(notifier, sink, log)

	p := submission.NewPipeline(
		docs,
		&fakeCompanyRepo{company: &entity.Company{ID: "comp-1", RUC: "20123456789"}},
		&fakeClientRepo{},
		tx,
		limiter,
		queue,
		dispatcher,
		log,
		time.Second,
	)
	return &armado{pipeline: p, docs: docs, tx: tx, queue: queue, notifier: notifier, sink: sink}
}

// ──────────────────────────────────────────────────────────────────────────────
// Tests Pipeline.Process
// ──────────────────────────────────────────────────────────────────────────────

func TestProcess_AceptadoAlPrimerIntento(t *testing.T) {
	a := armar(docEncolado(), &fakeTransmitter{
		results: []*submission.BillResult{{Accepted: true, CDRHash: "hash-cdr"}},
	}, nil)

	require.NoError(t, a.pipeline.Process(context.Background(), "doc-1"))

	assert.Equal(t, entity.StatusAccepted, a.docs.doc.Status)
	assert.Equal(t, 1, a.docs.doc.SendAttempts)
	assert.Equal(t, "hash-cdr", a.docs.doc.CDRHash)
	assert.Equal(t, 1, a.notifier.accepted, "debe salir exactamente un webhook de aceptación")
	assert.Equal(t, 1, a.sink.accepted)
	assert.Empty(t, a.queue.ids, "un envío aceptado no re-encola nada")
}

// El rechazo semántico de SUNAT es terminal: no consume reintentos ni vuelve a
// la cola, y el evento de rechazo sale exactamente una vez.
func TestProcess_RechazoSemanticoEsTerminal(t *testing.T) {
	a := armar(docEncolado(), &fakeTransmitter{
		results: []*submission.BillResult{{Accepted: false, Code: "2324", Description: "comprobante duplicado"}},
	}, nil)

	require.NoError(t, a.pipeline.Process(context.Background(), "doc-1"))

	assert.Equal(t, entity.StatusRejected, a.docs.doc.Status)
	assert.Equal(t, "2324", a.docs.doc.ErrorCode)
	assert.Equal(t, 1, a.docs.doc.SendAttempts, "el rechazo llega en el primer intento")
	assert.Equal(t, 1, a.tx.calls)
	assert.Equal(t, 1, a.notifier.rejected)
	assert.Equal(t, 1, a.sink.rejected)
	assert.Empty(t, a.queue.ids, "el rechazo no programa reintentos")
}

// Tres fallos transitorios agotan el presupuesto: 30s y 60s de espera entre
// intentos y finalización en ERROR sin cuarto envío.
func TestProcess_ReintentosTransitoriosHastaError(t *testing.T) {
	caida := errors.New("dial tcp: connection refused")
	a := armar(docEncolado(), &fakeTransmitter{errs: []error{caida, caida, caida}}, nil)
	ctx := context.Background()

	// Intento 1: falla y se reprograma a 30s.
	require.NoError(t, a.pipeline.Process(ctx, "doc-1"))
	assert.Equal(t, entity.StatusQueued, a.docs.doc.Status)
	require.Len(t, a.queue.delays, 1)
	assert.Equal(t, 30*time.Second, a.queue.delays[0])

	// Intento 2: falla y se reprograma a 60s.
	require.NoError(t, a.pipeline.Process(ctx, "doc-1"))
	require.Len(t, a.queue.delays, 2)
	assert.Equal(t, 60*time.Second, a.queue.delays[1])

	// Intento 3: presupuesto agotado → ERROR, aviso interno, sin re-encolado.
	require.NoError(t, a.pipeline.Process(ctx, "doc-1"))
	assert.Equal(t, entity.StatusError, a.docs.doc.Status)
	assert.Equal(t, 3, a.docs.doc.SendAttempts)
	assert.Equal(t, 3, a.tx.calls)
	assert.Len(t, a.queue.delays, 2, "el tercer fallo no programa más reintentos")
	assert.Equal(t, 1, a.sink.errored)
	assert.Equal(t, 0, a.notifier.accepted+a.notifier.rejected,
		"el agotamiento de reintentos no sale por webhooks")

	// Un trabajo rezagado sobre el documento en ERROR es un no-op.
	require.NoError(t, a.pipeline.Process(ctx, "doc-1"))
	assert.Equal(t, 3, a.tx.calls)
}

// El diferimiento por cupo ocurre ANTES del claim: no consume intento ni toca
// el estado, solo re-encola con el delay corto.
func TestProcess_DiferimientoPorCupo(t *testing.T) {
	limiter := ratelimit.NewTenantLimiter(1, 1, nil)
	require.True(t, limiter.Allow("comp-1"), "se consume el único token del minuto")

	a := armar(docEncolado(), &fakeTransmitter{}, limiter)
	require.NoError(t, a.pipeline.Process(context.Background(), "doc-1"))

	assert.Equal(t, entity.StatusQueued, a.docs.doc.Status)
	assert.Equal(t, 0, a.docs.doc.SendAttempts, "el diferimiento no incrementa send_attempts")
	assert.Equal(t, 0, a.docs.claims)
	assert.Equal(t, 0, a.tx.calls)
	require.Len(t, a.queue.delays, 1)
	assert.Equal(t, 5*time.Second, a.queue.delays[0])
}

// Un trabajo sobre un documento que ya no está QUEUED retorna sin efecto.
func TestProcess_DocumentoNoEncolado(t *testing.T) {
	doc := docEncolado()
	doc.Status = entity.StatusPending
	a := armar(doc, &fakeTransmitter{}, nil)

	require.NoError(t, a.pipeline.Process(context.Background(), "doc-1"))
	assert.Equal(t, 0, a.tx.calls)
	assert.Equal(t, entity.StatusPending, a.docs.doc.Status)
}

func TestProcess_DocumentoInexistente(t *testing.T) {
	a := armar(docEncolado(), &fakeTransmitter{}, nil)
	require.NoError(t, a.pipeline.Process(context.Background(), "doc-que-no-existe"))
	assert.Equal(t, 0, a.tx.calls)
}
