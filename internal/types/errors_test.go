package types

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError(t *testing.T) {
	t.Run("formats code and message", func(t *testing.T) {
		err := NewAppError(ErrCodeFetchExhausted, "fetch exhausted after 5 attempts", nil)
		assert.Equal(t, "feed_fetch_exhausted: fetch exhausted after 5 attempts", err.Error())
	})

	t.Run("unwraps the cause", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := NewAppError(ErrCodeInternalDB, "insert failed", cause)
		assert.ErrorIs(t, err, cause)
	})

	t.Run("details survive wrapping", func(t *testing.T) {
		err := NewAppErrorWithDetails(ErrCodeFetchExhausted, "exhausted", nil, map[string]any{"attempts": 5})
		wrapped := fmt.Errorf("collecting sfmta: %w", err)

		var appErr *AppError
		assert.True(t, errors.As(wrapped, &appErr))
		assert.Equal(t, 5, appErr.Details["attempts"])
	})
}

func TestCodeOf(t *testing.T) {
	t.Run("extracts the code through a chain", func(t *testing.T) {
		err := fmt.Errorf("outer: %w", NewAppError(ErrCodeDecodeFailed, "bad payload", nil))
		assert.Equal(t, ErrCodeDecodeFailed, CodeOf(err))
	})

	t.Run("plain errors map to unexpected", func(t *testing.T) {
		assert.Equal(t, ErrCodeInternalUnexpected, CodeOf(errors.New("boom")))
	})

	t.Run("nil maps to unexpected", func(t *testing.T) {
		assert.Equal(t, ErrCodeInternalUnexpected, CodeOf(nil))
	})
}

func TestErrorCodeHTTPStatus(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{ErrCodeValidationRecord, http.StatusBadRequest},
		{ErrCodeFetchExhausted, http.StatusBadGateway},
		{ErrCodeDiscoveryFeedMissing, http.StatusBadGateway},
		{ErrCodeConfigMissingCredential, http.StatusInternalServerError},
		{ErrCodeInternalDB, http.StatusInternalServerError},
		{ErrorCode("something_else"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.code.HTTPStatus())
		})
	}
}
