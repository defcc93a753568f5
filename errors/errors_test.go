package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCategoryOf(t *testing.T) {
	t.Run("Typed Error", func(t *testing.T) {
		assert.Equal(t, CategoryTimeout, CategoryOf(NewTimeoutError(stderrors.New("deadline"))))
	})

	t.Run("Wrapped Typed Error", func(t *testing.T) {
		wrapped := fmt.Errorf("refresh identity: %w", NewRejectedCredential(""))
		assert.Equal(t, CategoryRejectedCredential, CategoryOf(wrapped))
	})

	t.Run("Untyped Error Defaults To Remote", func(t *testing.T) {
		assert.Equal(t, CategoryRemote, CategoryOf(stderrors.New("disk full")))
	})
}

func TestUnwrap(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := NewNetworkError(cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "network request failed")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestPredicates(t *testing.T) {
	assert.True(t, IsRejectedCredential(NewRejectedCredential("Token expired")))
	assert.False(t, IsRejectedCredential(NewRemoteError(500, "")))

	assert.True(t, IsNetwork(NewNetworkError(stderrors.New("reset"))))
	assert.True(t, IsNetwork(NewTimeoutError(stderrors.New("deadline"))))
	assert.False(t, IsNetwork(NewPaymentFailure(CategoryDeclined, "declined")))
}
