package billing_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tu-usuario/facturalo-pe/internal/application/billing"
	"github.com/tu-usuario/facturalo-pe/internal/domain"
	"github.com/tu-usuario/facturalo-pe/internal/domain/entity"
	"github.com/tu-usuario/facturalo-pe/internal/domain/repository"
	"github.com/tu-usuario/facturalo-pe/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

// fakeDocStore repositorio de documentos en memoria con transiciones
// condicionadas reales: la transición solo gana si el estado origen coincide.
type fakeDocStore struct {
	docs    map[string]*entity.Document
	details map[string][]*entity.Detail
}

func newFakeDocStore() *fakeDocStore {
	return &fakeDocStore{
		docs:    make(map[string]*entity.Document),
		details: make(map[string][]*entity.Detail),
	}
}

func (f *fakeDocStore) Create(_ context.Context, doc *entity.Document) error {
	copia := *doc
	f.docs[doc.ID] = &copia
	return nil
}

func (f *fakeDocStore) CreateDetail(_ context.Context, d *entity.Detail) error {
	copia := *d
	f.details[d.DocumentID] = append(f.details[d.DocumentID], &copia)
	return nil
}

func (f *fakeDocStore) Update(_ context.Context, doc *entity.Document) error {
	copia := *doc
	f.docs[doc.ID] = &copia
	return nil
}

func (f *fakeDocStore) GetByID(_ context.Context, id string) (*entity.Document, error) {
	doc, ok := f.docs[id]
	if !ok {
		return nil, nil
	}
	copia := *doc
	return &copia, nil
}

func (f *fakeDocStore) GetByFullNumber(_ context.Context, companyID, kind, series, correlative string) (*entity.Document, error) {
	for _, d := range f.docs {
		if d.CompanyID == companyID && d.Kind == kind && d.Series == series && d.Correlative == correlative {
			copia := *d
			return &copia, nil
		}
	}
	return nil, nil
}

func (f *fakeDocStore) GetDetails(_ context.Context, documentID string) ([]*entity.Detail, error) {
	return f.details[documentID], nil
}

func (f *fakeDocStore) TransitionStatus(_ context.Context, id, from, to string) (bool, error) {
	doc, ok := f.docs[id]
	if !ok || doc.Status != from {
		return false, nil
	}
	doc.Status = to
	return true, nil
}

func (f *fakeDocStore) ClaimForSending(_ context.Context, id string) (bool, int, error) {
	doc, ok := f.docs[id]
	if !ok || doc.Status != entity.StatusQueued {
		return false, 0, nil
	}
	doc.Status = entity.StatusSent
	doc.SendAttempts++
	return true, doc.SendAttempts, nil
}

func (f *fakeDocStore) FinalizeAccepted(_ context.Context, id, cdrHash, response string) (bool, error) {
	return f.TransitionStatus(context.Background(), id, entity.StatusSent, entity.StatusAccepted)
}

func (f *fakeDocStore) FinalizeRejected(_ context.Context, id, errorCode, response string) (bool, error) {
	return f.TransitionStatus(context.Background(), id, entity.StatusSent, entity.StatusRejected)
}

func (f *fakeDocStore) FinalizeError(_ context.Context, id, response string) (bool, error) {
	return f.TransitionStatus(context.Background(), id, entity.StatusSent, entity.StatusError)
}

func (f *fakeDocStore) MarkVoided(_ context.Context, id, voidedID, reason string, _ time.Time) error {
	if doc, ok := f.docs[id]; ok {
		doc.Voided = true
	}
	return nil
}

func (f *fakeDocStore) HasAcceptedNoteReferencing(_ context.Context, _ string) (bool, error) {
	return false, nil
}

// fakeTx ejecuta la función directamente sobre el store; si fn falla, revierte
// el mapa completo para simular el rollback.
type fakeTx struct{ store *fakeDocStore }

func (f *fakeTx) RunDocument(ctx context.Context, fn func(repository.DocumentRepository) error) error {
	antes := make(map[string]*entity.Document, len(f.store.docs))
	for k, v := range f.store.docs {
		antes[k] = v
	}
	if err := fn(f.store); err != nil {
		f.store.docs = antes
		return err
	}
	return nil
}

type fakeBranches struct{ branches map[string]*entity.Branch }

func (f *fakeBranches) GetByID(_ context.Context, id string) (*entity.Company, error) {
	return nil, nil
}
func (f *fakeBranches) GetBranch(_ context.Context, id string) (*entity.Branch, error) {
	return f.branches[id], nil
}

type fakeClients struct{ clients map[string]*entity.Client }

func (f *fakeClients) GetByID(_ context.Context, id string) (*entity.Client, error) {
	return f.clients[id], nil
}
func (f *fakeClients) Create(_ context.Context, _ *entity.Client) error { return nil }

type fakeSubmitQueue struct{ ids []string }

func (f *fakeSubmitQueue) EnqueueSubmission(_ context.Context, id string) error {
	f.ids = append(f.ids, id)
	return nil
}

func armarIntake(store *fakeDocStore, cola *fakeSubmitQueue) *billing.DocumentUseCase {
	cli := clienteDNI("45678912")
	cli.CompanyID = "comp-1"
	return billing.NewDocumentUseCase(
		&fakeTx{store: store},
		store,
		&fakeBranches{branches: map[string]*entity.Branch{
			"suc-1": {ID: "suc-1", CompanyID: "comp-1", Code: "0000"},
			"suc-2": {ID: "suc-2", CompanyID: "comp-2", Code: "0000"},
		}},
		&fakeClients{clients: map[string]*entity.Client{"cli-1": cli}},
		newChecker(),
		cola,
		logger.New(logger.Config{Env: "production", Level: "error"}),
	)
}

// ──────────────────────────────────────────────────────────────────────────────
// Tests CreateDocument
// ──────────────────────────────────────────────────────────────────────────────

func TestCreateDocument_PersisteYEncola(t *testing.T) {
	store := newFakeDocStore()
	cola := &fakeSubmitQueue{}
	uc := armarIntake(store, cola)

	req := boletaValida()
	req.BranchID = "suc-1"

	resp, err := uc.CreateDocument(context.Background(), "comp-1", *req)
	require.NoError(t, err)
	require.NotNil(t, resp)

	assert.Equal(t, "B001-00000001", resp.Numero)
	assert.Equal(t, "118.00", resp.GrandTotal.StringFixed(2))

	doc := store.docs[resp.ID]
	require.NotNil(t, doc)
	// El intake persiste en PENDING y el encolado lo consume hacia QUEUED.
	assert.Equal(t, entity.StatusQueued, doc.Status)
	assert.Len(t, store.details[resp.ID], 1)
	assert.Equal(t, []string{resp.ID}, cola.ids)
}

func TestCreateDocument_ValidacionFallidaNoEscribeNada(t *testing.T) {
	store := newFakeDocStore()
	cola := &fakeSubmitQueue{}
	uc := armarIntake(store, cola)

	req := boletaValida()
	req.BranchID = "suc-1"
	req.Items = nil

	_, err := uc.CreateDocument(context.Background(), "comp-1", *req)
	ve, ok := domain.AsValidationError(err)
	require.True(t, ok)
	assert.Contains(t, ve.Fields, "items")

	assert.Empty(t, store.docs)
	assert.Empty(t, cola.ids)
}

func TestCreateDocument_SucursalDeOtraEmpresa(t *testing.T) {
	store := newFakeDocStore()
	uc := armarIntake(store, &fakeSubmitQueue{})

	req := boletaValida()
	req.BranchID = "suc-2"

	_, err := uc.CreateDocument(context.Background(), "comp-1", *req)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

// ──────────────────────────────────────────────────────────────────────────────
// Tests Resubmit
// ──────────────────────────────────────────────────────────────────────────────

// Caso central: un documento ACCEPTED no se reenvía jamás. Conflicto sin
// alterar estado ni tocar la cola.
func TestResubmit_AceptadoEsConflicto(t *testing.T) {
	store := newFakeDocStore()
	cola := &fakeSubmitQueue{}
	uc := armarIntake(store, cola)

	store.docs["doc-1"] = &entity.Document{
		ID: "doc-1", CompanyID: "comp-1", Status: entity.StatusAccepted,
	}

	err := uc.Resubmit(context.Background(), "comp-1", "doc-1")
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, entity.StatusAccepted, store.docs["doc-1"].Status)
	assert.Empty(t, cola.ids)
}

func TestResubmit_DesdeErrorReencola(t *testing.T) {
	store := newFakeDocStore()
	cola := &fakeSubmitQueue{}
	uc := armarIntake(store, cola)

	store.docs["doc-1"] = &entity.Document{
		ID: "doc-1", CompanyID: "comp-1", Status: entity.StatusError, SendAttempts: 3,
	}

	err := uc.Resubmit(context.Background(), "comp-1", "doc-1")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusQueued, store.docs["doc-1"].Status)
	assert.Equal(t, []string{"doc-1"}, cola.ids)
}

func TestResubmit_EnColaEsConflicto(t *testing.T) {
	store := newFakeDocStore()
	uc := armarIntake(store, &fakeSubmitQueue{})

	store.docs["doc-1"] = &entity.Document{
		ID: "doc-1", CompanyID: "comp-1", Status: entity.StatusQueued,
	}

	err := uc.Resubmit(context.Background(), "comp-1", "doc-1")
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestResubmit_DocumentoInexistente(t *testing.T) {
	uc := armarIntake(newFakeDocStore(), &fakeSubmitQueue{})

	err := uc.Resubmit(context.Background(), "comp-1", "no-existe")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestResubmit_OtraEmpresa(t *testing.T) {
	store := newFakeDocStore()
	uc := armarIntake(store, &fakeSubmitQueue{})

	store.docs["doc-1"] = &entity.Document{
		ID: "doc-1", CompanyID: "comp-2", Status: entity.StatusError,
	}

	err := uc.Resubmit(context.Background(), "comp-1", "doc-1")
	assert.ErrorIs(t, err, domain.ErrForbidden)
}
