package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_HTTPStatus(t *testing.T) {
	cases := map[*AppError]int{
		NewNotFoundError("x"):      http.StatusNotFound,
		NewValidationError("x"):    http.StatusBadRequest,
		NewConflictError("x"):      http.StatusConflict,
		NewUnauthorizedError("x"):  http.StatusUnauthorized,
		NewExternalError("x", nil): http.StatusBadGateway,
		NewInternalError("x", nil): http.StatusInternalServerError,
	}
	for err, want := range cases {
		assert.Equal(t, want, err.HTTPStatus(), string(err.Type))
	}
}

func TestIsType_WrappedChain(t *testing.T) {
	base := NewExternalError("backend unavailable", fmt.Errorf("dial tcp: refused"))
	wrapped := fmt.Errorf("poll today board: %w", base)

	assert.True(t, IsType(wrapped, ErrorTypeExternal))
	assert.False(t, IsType(wrapped, ErrorTypeNotFound))
	assert.False(t, IsType(fmt.Errorf("plain"), ErrorTypeInternal))

	appErr, ok := As(wrapped)
	assert.True(t, ok)
	assert.Equal(t, "backend unavailable", appErr.Message)
	assert.Contains(t, wrapped.Error(), "dial tcp")
}
