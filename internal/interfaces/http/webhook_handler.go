package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tu-usuario/facturalo-pe/internal/application/dto"
	"github.com/tu-usuario/facturalo-pe/internal/application/webhooks"
)

// WebhookHandler administra los suscriptores de webhooks (protegido).
type WebhookHandler struct {
	uc *webhooks.ManageUseCase
}

// NewWebhookHandler construye el handler.
func NewWebhookHandler(uc *webhooks.ManageUseCase) *WebhookHandler {
	return &WebhookHandler{uc: uc}
}

// Create registra un suscriptor.
// POST /api/webhooks
func (h *WebhookHandler) Create(c *fiber.Ctx) error {
	companyID, err := requireCompany(c)
	if err != nil {
		return respondError(c, err)
	}
	var in dto.WebhookRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	wh, err := h.uc.Create(c.Context(), companyID, in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(wh)
}

// Update modifica URL, eventos, secreto o política de reintentos.
// PUT /api/webhooks/:id
func (h *WebhookHandler) Update(c *fiber.Ctx) error {
	companyID, err := requireCompany(c)
	if err != nil {
		return respondError(c, err)
	}
	var in dto.WebhookRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	wh, err := h.uc.Update(c.Context(), companyID, c.Params("id"), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(wh)
}

// Delete elimina (soft) el suscriptor; sus entregas pendientes se descartan.
// DELETE /api/webhooks/:id
func (h *WebhookHandler) Delete(c *fiber.Ctx) error {
	companyID, err := requireCompany(c)
	if err != nil {
		return respondError(c, err)
	}
	if err := h.uc.Delete(c.Context(), companyID, c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// List lista los suscriptores de la empresa.
// GET /api/webhooks
func (h *WebhookHandler) List(c *fiber.Ctx) error {
	companyID, err := requireCompany(c)
	if err != nil {
		return respondError(c, err)
	}
	whs, err := h.uc.List(c.Context(), companyID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(whs)
}

// ListDeliveries lista las últimas entregas de un suscriptor.
// GET /api/webhooks/:id/deliveries
func (h *WebhookHandler) ListDeliveries(c *fiber.Ctx) error {
	companyID, err := requireCompany(c)
	if err != nil {
		return respondError(c, err)
	}
	limit := c.QueryInt("limit")
	deliveries, err := h.uc.ListDeliveries(c.Context(), companyID, c.Params("id"), limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(deliveries)
}
