package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tu-usuario/facturalo-pe/internal/application/billing"
	"github.com/tu-usuario/facturalo-pe/internal/application/voiding"
	"github.com/tu-usuario/facturalo-pe/internal/application/webhooks"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	DocumentUC *billing.DocumentUseCase
	VoidedUC   *voiding.UseCase
	WebhookUC  *webhooks.ManageUseCase
	JWTSecret  string
}

// Router registra las rutas de la API. Todo va protegido: los tokens los
// emite la plataforma y cada uno viene acotado a una empresa.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))

	// Comprobantes: intake, consulta, polling de estado y reenvío manual.
	documents := protected.Group("/documents")
	documentHandler := NewDocumentHandler(deps.DocumentUC)
	documents.Post("/", documentHandler.Create)
	documents.Get("/:id", documentHandler.GetByID)
	documents.Get("/:id/status", documentHandler.GetStatus)
	documents.Post("/:id/submit", documentHandler.Submit)

	// Comunicaciones de baja.
	voided := protected.Group("/voided")
	voidedHandler := NewVoidedHandler(deps.VoidedUC)
	voided.Post("/", voidedHandler.Create)
	voided.Get("/:id", voidedHandler.GetByID)

	// Administración de webhooks.
	whGroup := protected.Group("/webhooks")
	webhookHandler := NewWebhookHandler(deps.WebhookUC)
	whGroup.Post("/", webhookHandler.Create)
	whGroup.Get("/", webhookHandler.List)
	whGroup.Put("/:id", webhookHandler.Update)
	whGroup.Delete("/:id", webhookHandler.Delete)
	whGroup.Get("/:id/deliveries", webhookHandler.ListDeliveries)
}
