package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasCode(t *testing.T) {
	t.Run("direct error", func(t *testing.T) {
		err := New(CodeNotFound, "scheme missing")
		assert.True(t, HasCode(err, CodeNotFound))
		assert.False(t, HasCode(err, CodeVersionConflict))
	})

	t.Run("wrapped error", func(t *testing.T) {
		inner := New(CodeVersionConflict, "stale base version")
		err := fmt.Errorf("upsert scheme: %w", inner)
		assert.True(t, HasCode(err, CodeVersionConflict))
	})

	t.Run("plain error has no code", func(t *testing.T) {
		assert.False(t, HasCode(errors.New("boom"), CodeInternal))
	})
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(CodeCatalogueUnavailable, "list active schemes", cause)

	require.ErrorIs(t, err, cause)
	assert.Equal(t, CodeCatalogueUnavailable, CodeOf(err))
	assert.Contains(t, err.Error(), "connection refused")
}

func TestToHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeNotFound:             http.StatusNotFound,
		CodeValidation:           http.StatusBadRequest,
		CodeBadRequest:           http.StatusBadRequest,
		CodeInvalidTransition:    http.StatusConflict,
		CodeVersionConflict:      http.StatusConflict,
		CodeRequiresConfirmation: http.StatusPreconditionRequired,
		CodeCatalogueUnavailable: http.StatusServiceUnavailable,
		CodeUnauthorized:         http.StatusUnauthorized,
		CodeInternal:             http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, ToHTTPStatus(code), "code %s", code)
	}
}
