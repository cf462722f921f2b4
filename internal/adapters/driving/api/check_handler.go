package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

// CheckHandler serves liveness and readiness probes.
type CheckHandler struct {
	documents driving.DocumentService
}

// NewCheckHandler creates a CheckHandler.
func NewCheckHandler(documents driving.DocumentService) *CheckHandler {
	return &CheckHandler{documents: documents}
}

// HandleHealthy reports that the process is up.
func (h *CheckHandler) HandleHealthy(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"result": "ok"})
}

// HandleReady reports whether the collection answers.
func (h *CheckHandler) HandleReady(c *fiber.Ctx) error {
	total, err := h.documents.TotalChunks(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"result": "ok", "chunks": total})
}
