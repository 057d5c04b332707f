package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	wrapped := Wrap(cause, ErrInternal.Code, ErrInternal.Status, "failed to load identity")

	require.ErrorIs(t, wrapped, cause)
	require.Equal(t, http.StatusInternalServerError, wrapped.Status)
	require.Contains(t, wrapped.Error(), "connection refused")
}

func TestCloneOverridesMessageOnly(t *testing.T) {
	clone := Clone(ErrConflict, "section is full")
	require.Equal(t, ErrConflict.Code, clone.Code)
	require.Equal(t, "section is full", clone.Message)
	// the shared predefined error is untouched
	require.Equal(t, "conflict", ErrConflict.Message)
}

func TestIsMatchesByCode(t *testing.T) {
	err := Clone(ErrDeadlinePassed, "")
	require.True(t, Is(err, ErrDeadlinePassed))
	require.False(t, Is(err, ErrConflict))

	wrapped := fmt.Errorf("drop rejected: %w", err)
	require.True(t, Is(wrapped, ErrDeadlinePassed))
	require.False(t, Is(nil, ErrDeadlinePassed))
}

func TestFromError(t *testing.T) {
	require.Nil(t, FromError(nil))

	plain := errors.New("boom")
	normalised := FromError(plain)
	require.Equal(t, ErrInternal.Code, normalised.Code)

	typed := Clone(ErrNotFound, "enrollment not found")
	require.Same(t, typed, FromError(typed))
}
