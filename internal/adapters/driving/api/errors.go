package api

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/logger"
)

// ErrorHandler renders every error returned by a handler as JSON.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var apiErr Error
	if errors.As(err, &apiErr) {
		return c.Status(apiErr.Code).JSON(apiErr)
	}
	var valErr ValidationError
	if errors.As(err, &valErr) {
		return c.Status(valErr.Status).JSON(valErr)
	}

	apiErr = NewError(statusFor(err), err.Error())
	if apiErr.Code >= fiber.StatusInternalServerError {
		logger.Error("Request %s %s failed with code %d: %s", c.Method(), c.Path(), apiErr.Code, apiErr.Message)
	} else {
		logger.Debug("Request %s %s failed with code %d: %s", c.Method(), c.Path(), apiErr.Code, apiErr.Message)
	}
	return c.Status(apiErr.Code).JSON(apiErr)
}

// statusFor maps fiber and domain errors to HTTP status codes.
func statusFor(err error) int {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, domain.ErrUnsupportedType):
		return fiber.StatusUnsupportedMediaType
	case errors.Is(err, domain.ErrInvalidInput):
		return fiber.StatusBadRequest
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrExtraction):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrRateLimited):
		return fiber.StatusTooManyRequests
	case errors.Is(err, domain.ErrStoreUnavailable), errors.Is(err, domain.ErrEmbeddingUnavailable):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// Error is the JSON error body.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"error"`
}

// Error implements the error interface.
func (e Error) Error() string {
	return e.Message
}

// ValidationError reports request fields that failed validation.
type ValidationError struct {
	Status int               `json:"status"`
	Errors map[string]string `json:"errors"`
}

func (e ValidationError) Error() string {
	return "validation failed"
}

// NewValidationError builds a 422 ValidationError.
func NewValidationError(errors map[string]string) ValidationError {
	return ValidationError{
		Status: fiber.StatusUnprocessableEntity,
		Errors: errors,
	}
}

// NewError builds an Error.
func NewError(code int, err string) Error {
	return Error{
		Code:    code,
		Message: err,
	}
}

// ErrBadRequest is returned when the request body cannot be parsed.
func ErrBadRequest() Error {
	return Error{
		Code:    fiber.StatusBadRequest,
		Message: "invalid JSON request",
	}
}

// ErrMissingFile is returned when an upload carries no file part.
func ErrMissingFile() Error {
	return Error{
		Code:    fiber.StatusBadRequest,
		Message: "multipart field 'file' is required",
	}
}

// ErrNotFound is returned when a resource does not exist.
func ErrNotFound[T any](arg T, resource string) Error {
	return Error{
		Code:    fiber.StatusNotFound,
		Message: fmt.Sprintf("%s with %v not found", resource, arg),
	}
}
