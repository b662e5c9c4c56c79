package ratelimit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestKeyedLimitsPerKey(t *testing.T) {
	defer goleak.VerifyNone(t)

	k := NewKeyed(1, 2)
	defer k.Close()
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, err := k.Allow(ctx, "+94715297881")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, _ := k.Allow(ctx, "+94715297881")
	assert.False(t, ok)

	ok, _ = k.Allow(ctx, "+447700900123")
	assert.True(t, ok)
}

func TestCloseIsIdempotent(t *testing.T) {
	defer goleak.VerifyNone(t)
	k := NewKeyed(60, 1)
	k.Close()
	k.Close()
}
