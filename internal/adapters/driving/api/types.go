package api

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

var validate = validator.New()

// Validater is implemented by request bodies.
type Validater interface {
	Validate() map[string]string
}

// AskRequest is the body of POST /api/v1/ask.
type AskRequest struct {
	Question    string `json:"question" validate:"required"`
	TopK        int    `json:"top_k" validate:"omitempty,gte=1,lte=100"`
	DocID       string `json:"doc_id"`
	ShowContext bool   `json:"show_context"`
}

// Validate returns the failing fields, nil when the request is valid.
func (r *AskRequest) Validate() map[string]string {
	return validateStruct(r)
}

// UploadResponse is the body returned by POST /api/v1/documents.
type UploadResponse struct {
	DocID    string            `json:"doc_id"`
	Filename string            `json:"filename"`
	Chunks   int               `json:"chunks"`
	Replaced []string          `json:"replaced,omitempty"`
	Progress []domain.Progress `json:"progress"`
}

// DocumentListResponse is the body returned by GET /api/v1/documents.
type DocumentListResponse struct {
	Documents   []domain.DocumentInfo `json:"documents"`
	Count       int                   `json:"count"`
	TotalChunks int                   `json:"total_chunks"`
}

// DeleteResponse is the body returned by DELETE /api/v1/documents/:id.
type DeleteResponse struct {
	DocID   string `json:"doc_id"`
	Deleted int    `json:"deleted"`
}

func validateStruct(v any) map[string]string {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return map[string]string{"request": err.Error()}
	}
	fields := make(map[string]string, len(errs))
	for _, e := range errs {
		fields[e.Field()] = fmt.Sprintf("failed on '%s' tag", e.Tag())
	}
	return fields
}
