package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInsufficientQuantityCarriesBothNumbers(t *testing.T) {
	err := InsufficientQuantity(80, 50)

	assert.Equal(t, KindInsufficientQuantity, err.Kind)
	assert.Equal(t, 80, err.Requested)
	assert.Equal(t, 50, err.Available)
	assert.Contains(t, err.Error(), "80")
	assert.Contains(t, err.Error(), "50")
}

func TestKindOfUnwrapsChains(t *testing.T) {
	wrapped := fmt.Errorf("create rejection: %w", Inactive("ledger entry %s is closed", "abc"))

	assert.Equal(t, KindInactive, KindOf(wrapped))
	assert.True(t, Is(wrapped, KindInactive))
	assert.False(t, Is(wrapped, KindNotFound))
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
}

func TestConcurrentModificationKeepsCause(t *testing.T) {
	cause := errors.New("duplicated key")
	err := ConcurrentModification(cause, "lost the race on %s", "entry")

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "lost the race on entry: duplicated key", err.Error())
}
