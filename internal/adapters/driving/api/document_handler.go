package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

// DocumentHandler lists, inspects and deletes indexed documents.
type DocumentHandler struct {
	documents driving.DocumentService
}

// NewDocumentHandler creates a DocumentHandler.
func NewDocumentHandler(documents driving.DocumentService) *DocumentHandler {
	return &DocumentHandler{documents: documents}
}

// HandleList returns every indexed document.
func (h *DocumentHandler) HandleList(c *fiber.Ctx) error {
	docs, err := h.documents.List(c.UserContext())
	if err != nil {
		return err
	}

	total := 0
	for i := range docs {
		total += docs[i].ChunkCount
	}
	if docs == nil {
		docs = []domain.DocumentInfo{}
	}

	return c.JSON(DocumentListResponse{
		Documents:   docs,
		Count:       len(docs),
		TotalChunks: total,
	})
}

// HandleGet returns one document generation.
func (h *DocumentHandler) HandleGet(c *fiber.Ctx) error {
	id := c.Params("id")

	info, err := h.documents.Get(c.UserContext(), id)
	if errors.Is(err, domain.ErrNotFound) {
		return ErrNotFound(id, "document")
	}
	if err != nil {
		return err
	}
	return c.JSON(info)
}

// HandleDelete removes every chunk of one document generation.
func (h *DocumentHandler) HandleDelete(c *fiber.Ctx) error {
	id := c.Params("id")

	deleted, err := h.documents.Delete(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(DeleteResponse{DocID: id, Deleted: deleted})
}
