package blacklist

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMemoryStore_GetSet(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ctx := context.Background()
	clock := newFakeClock()
	store := NewMemoryStore(WithClock(clock.Now))
	defer func() {
		_ = store.Close()
	}()

	require.NoError(t, store.Set(ctx, "k", "v", time.Minute))

	value, found, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "v", value)

	clock.Advance(time.Minute)

	_, found, err = store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, 0, store.Len(), "expired entry is dropped on read")
}

func TestMemoryStore_RejectsNonPositiveTTL(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	store := NewMemoryStore()
	defer func() {
		_ = store.Close()
	}()

	assert.ErrorIs(t, store.Set(context.Background(), "k", "v", 0), ErrInvalidTTL)
	assert.ErrorIs(t, store.Set(context.Background(), "k", "v", -time.Second), ErrInvalidTTL)
}

func TestMemoryStore_BackgroundSweep(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ctx := context.Background()
	clock := newFakeClock()
	store := NewMemoryStore(WithClock(clock.Now), WithSweepInterval(10*time.Millisecond))
	defer func() {
		_ = store.Close()
	}()

	require.NoError(t, store.Set(ctx, "expired", "v", time.Second))
	require.NoError(t, store.Set(ctx, "live", "v", time.Hour))
	clock.Advance(2 * time.Second)

	assert.Eventually(t, func() bool {
		return store.Len() == 1
	}, time.Second, 10*time.Millisecond)
}

func TestMemoryStore_CloseIsIdempotent(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	store := NewMemoryStore()
	require.NoError(t, store.Close())
	require.NoError(t, store.Close())
}
