package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tu-usuario/facturalo-pe/internal/application/dto"
	"github.com/tu-usuario/facturalo-pe/internal/application/voiding"
)

// VoidedHandler maneja las comunicaciones de baja (protegido).
type VoidedHandler struct {
	uc *voiding.UseCase
}

// NewVoidedHandler construye el handler.
func NewVoidedHandler(uc *voiding.UseCase) *VoidedHandler {
	return &VoidedHandler{uc: uc}
}

// Create valida el batch completo (todo o nada) y lo encola hacia SUNAT.
// POST /api/voided
func (h *VoidedHandler) Create(c *fiber.Ctx) error {
	companyID, err := requireCompany(c)
	if err != nil {
		return respondError(c, err)
	}
	var in dto.CreateVoidedRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	batch, err := h.uc.Create(c.Context(), companyID, in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(batch)
}

// GetByID devuelve el estado de una comunicación de baja.
// GET /api/voided/:id
func (h *VoidedHandler) GetByID(c *fiber.Ctx) error {
	companyID, err := requireCompany(c)
	if err != nil {
		return respondError(c, err)
	}
	batch, err := h.uc.Get(c.Context(), companyID, c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(batch)
}
