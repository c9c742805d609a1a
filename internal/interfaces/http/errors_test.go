package http_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tu-usuario/facturalo-pe/internal/application/voiding"
	apphttp "github.com/tu-usuario/facturalo-pe/internal/interfaces/http"
	"github.com/tu-usuario/facturalo-pe/pkg/logger"
)

// buildUnscopedApp monta un handler real SIN AuthMiddleware: no hay empresa en
// locals, el escenario que los handlers deben cortar con 401.
func buildUnscopedApp() *fiber.App {
	app := fiber.New()
	app.Use(recover.New())
	log := logger.New(logger.Config{Env: "production", Level: "error"})
	h := apphttp.NewVoidedHandler(voiding.NewUseCase(nil, nil, nil, log))
	app.Get("/api/voided/:id", h.GetByID)
	return app
}

// Caso: contexto sin empresa → 401 con el envelope de error. El handler no
// debe seguir ejecutando con un companyID vacío.
func TestHandler_SinEmpresaEnContexto_Retorna401(t *testing.T) {
	app := buildUnscopedApp()

	req := httptest.NewRequest(http.MethodGet, "/api/voided/rba-1", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "UNAUTHORIZED")
}
