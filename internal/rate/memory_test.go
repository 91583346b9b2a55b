package rate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiter_Allow(t *testing.T) {
	l := NewMemoryLimiter(3, time.Minute)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		res, err := l.Allow(ctx, "ip:1.2.3.4")
		require.NoError(t, err)
		assert.True(t, res.Allowed, "hit %d dentro del límite", i)
		assert.Equal(t, int64(3-i), res.Remaining)
	}

	res, err := l.Allow(ctx, "ip:1.2.3.4")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, int64(0), res.Remaining)
	assert.Greater(t, res.RetryAfter, time.Duration(0))
}

func TestMemoryLimiter_KeysAreIndependent(t *testing.T) {
	l := NewMemoryLimiter(1, time.Minute)
	ctx := context.Background()

	res, err := l.Allow(ctx, "ip:1.1.1.1")
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	res, err = l.Allow(ctx, "ip:1.1.1.1")
	require.NoError(t, err)
	assert.False(t, res.Allowed)

	// otra IP arranca su propia cuenta
	res, err = l.Allow(ctx, "ip:2.2.2.2")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestMemoryLimiter_WindowReset(t *testing.T) {
	l := NewMemoryLimiter(1, 50*time.Millisecond)
	ctx := context.Background()

	res, err := l.Allow(ctx, "ip:3.3.3.3")
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	time.Sleep(60 * time.Millisecond)

	res, err = l.Allow(ctx, "ip:3.3.3.3")
	require.NoError(t, err)
	assert.True(t, res.Allowed, "ventana nueva, contador nuevo")
}
