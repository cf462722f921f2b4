package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestErrors_Existence tests that all error variables exist and are not nil
func TestErrors_Existence(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrNotFound", ErrNotFound},
		{"ErrInvalidInput", ErrInvalidInput},
		{"ErrNotImplemented", ErrNotImplemented},
		{"ErrUnsupportedType", ErrUnsupportedType},
		{"ErrExtraction", ErrExtraction},
		{"ErrEmbeddingUnavailable", ErrEmbeddingUnavailable},
		{"ErrModelUnavailable", ErrModelUnavailable},
		{"ErrStoreUnavailable", ErrStoreUnavailable},
		{"ErrValidation", ErrValidation},
		{"ErrRateLimited", ErrRateLimited},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.err)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestErrModelUnavailable_IsEmbeddingUnavailable(t *testing.T) {
	assert.True(t, errors.Is(ErrModelUnavailable, ErrEmbeddingUnavailable))
	assert.False(t, errors.Is(ErrEmbeddingUnavailable, ErrModelUnavailable))
}

func TestErrors_WrappedChain(t *testing.T) {
	err := fmt.Errorf("open collection: %w", ErrStoreUnavailable)

	assert.True(t, errors.Is(err, ErrStoreUnavailable))
	assert.False(t, errors.Is(err, ErrValidation))
}

func TestErrors_Distinct(t *testing.T) {
	assert.False(t, errors.Is(ErrExtraction, ErrUnsupportedType))
	assert.False(t, errors.Is(ErrValidation, ErrInvalidInput))
	assert.False(t, errors.Is(ErrStoreUnavailable, ErrEmbeddingUnavailable))
}

func TestNewSynthesisError(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewSynthesisError("ollama", cause)

	assert.Equal(t, "Error communicating with the model (ollama): connection refused", err.Error())
	assert.True(t, errors.Is(err, cause))
}
