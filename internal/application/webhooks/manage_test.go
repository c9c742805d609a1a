package webhooks_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tu-usuario/facturalo-pe/internal/application/dto"
	"github.com/tu-usuario/facturalo-pe/internal/application/webhooks"
	"github.com/tu-usuario/facturalo-pe/internal/domain"
	"github.com/tu-usuario/facturalo-pe/internal/domain/entity"
)

func armarManage() (*webhooks.ManageUseCase, *fakeWebhookRepo) {
	repo := newFakeWebhookRepo()
	return webhooks.NewManageUseCase(repo, 3, 10*time.Second), repo
}

func altaValida() dto.WebhookRequest {
	return dto.WebhookRequest{
		URL:    "https://erp.example.com/hooks/sunat",
		Secret: secreto,
		Events: []string{entity.EventDocumentAccepted},
	}
}

func TestManageCreate_AltaConDefaults(t *testing.T) {
	uc, repo := armarManage()

	resp, err := uc.Create(context.Background(), "comp-1", altaValida())
	require.NoError(t, err)

	assert.True(t, resp.Active)
	assert.Equal(t, 3, resp.MaxRetries, "toma el default de configuración")

	wh := repo.webhooks[resp.ID]
	require.NotNil(t, wh)
	assert.Equal(t, "comp-1", wh.CompanyID)
	assert.Equal(t, 10*time.Second, wh.RetryDelay)
}

func TestManageCreate_RequestInvalido(t *testing.T) {
	uc, _ := armarManage()

	_, err := uc.Create(context.Background(), "comp-1", dto.WebhookRequest{
		URL:    "ftp://no-es-http",
		Events: []string{"document.deleted"},
	})

	ve, ok := domain.AsValidationError(err)
	require.True(t, ok)
	assert.Contains(t, ve.Fields, "url")
	assert.Contains(t, ve.Fields, "secret")
	assert.Contains(t, ve.Fields, "events")
}

// En la edición el secreto vacío conserva el actual.
func TestManageUpdate_SecretoVacioConservaElActual(t *testing.T) {
	uc, repo := armarManage()
	resp, err := uc.Create(context.Background(), "comp-1", altaValida())
	require.NoError(t, err)

	edicion := altaValida()
	edicion.Secret = ""
	edicion.Events = []string{entity.EventDocumentRejected}
	_, err = uc.Update(context.Background(), "comp-1", resp.ID, edicion)
	require.NoError(t, err)

	assert.Equal(t, secreto, repo.webhooks[resp.ID].Secret)
	assert.Equal(t, []string{entity.EventDocumentRejected}, repo.webhooks[resp.ID].Events)
}

// El acceso siempre queda acotado a la empresa del token.
func TestManage_AcotadoPorEmpresa(t *testing.T) {
	uc, _ := armarManage()
	resp, err := uc.Create(context.Background(), "comp-1", altaValida())
	require.NoError(t, err)

	_, err = uc.Update(context.Background(), "otra-empresa", resp.ID, altaValida())
	assert.ErrorIs(t, err, domain.ErrForbidden)

	err = uc.Delete(context.Background(), "otra-empresa", resp.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = uc.ListDeliveries(context.Background(), "otra-empresa", resp.ID, 10)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestManageDelete(t *testing.T) {
	uc, repo := armarManage()
	resp, err := uc.Create(context.Background(), "comp-1", altaValida())
	require.NoError(t, err)

	require.NoError(t, uc.Delete(context.Background(), "comp-1", resp.ID))
	assert.Empty(t, repo.webhooks)

	err = uc.Delete(context.Background(), "comp-1", resp.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
