package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_IsMatchesKind(t *testing.T) {
	err := fmt.Errorf("refresh: %w", NewNetworkError("list items", errors.New("connection refused")))

	assert.True(t, errors.Is(err, ErrNetwork))
	assert.False(t, errors.Is(err, ErrServerRejected))
	assert.Equal(t, KindNetwork, KindOf(err))
	assert.Contains(t, err.Error(), "connection refused")
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "duplicate item name", UserMessage(NewServerRejected("duplicate item name")))
	assert.Equal(t, "inventory service unreachable", UserMessage(NewNetworkError("list items", errors.New("timeout"))))
	assert.Equal(t, "", UserMessage(ErrStaleResponse))
	assert.Equal(t, "unexpected error", UserMessage(errors.New("boom")))
	assert.Equal(t, "request rejected by inventory service", NewServerRejected("").Message)
}
