package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

// QueryHandler answers questions.
type QueryHandler struct {
	query driving.QueryService
}

// NewQueryHandler creates a QueryHandler.
func NewQueryHandler(query driving.QueryService) *QueryHandler {
	return &QueryHandler{query: query}
}

// HandleAsk answers the question in the request body.
func (h *QueryHandler) HandleAsk(c *fiber.Ctx) error {
	var params AskRequest
	if c.BodyParser(&params) != nil {
		return ErrBadRequest()
	}

	if errors := params.Validate(); len(errors) > 0 {
		return NewValidationError(errors)
	}

	answer, err := h.query.QueryWithOptions(c.UserContext(), params.Question, driving.QueryOptions{
		Filter: domain.ChunkFilter{DocID: params.DocID},
		TopK:   params.TopK,
	})
	if err != nil {
		return err
	}

	resp := *answer
	if !params.ShowContext {
		resp.Context = ""
	}
	if resp.Sources == nil {
		resp.Sources = []domain.Source{}
	}
	return c.JSON(resp)
}
