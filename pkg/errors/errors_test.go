package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromErrorCollapsesUnknownErrors(t *testing.T) {
	err := FromError(fmt.Errorf("pq: connection refused"))

	assert.Equal(t, ErrInternal.Code, err.Code)
	assert.Equal(t, http.StatusInternalServerError, err.Status)
	assert.Equal(t, "operation failed", err.Message)
}

func TestFromErrorKeepsTypedErrors(t *testing.T) {
	wrapped := fmt.Errorf("service: %w", Clone(ErrNotFound, "class not found"))

	err := FromError(wrapped)

	assert.Equal(t, ErrNotFound.Code, err.Code)
	assert.Equal(t, "class not found", err.Message)
}

func TestIsMatchesClonesByCode(t *testing.T) {
	clone := Clone(ErrValidation, "end date must be after start date")

	assert.True(t, errors.Is(clone, ErrValidation))
	assert.False(t, errors.Is(clone, ErrConflict))
	assert.True(t, errors.Is(Wrap(errors.New("boom"), ErrInternal.Code, ErrInternal.Status, "x"), ErrInternal))
}
