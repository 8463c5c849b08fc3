package commands

import (
	"context"
	"log/slog"
	"os"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	oauthDomain "github.com/allisson/tokenkeeper/internal/oauth/domain"
	"github.com/allisson/tokenkeeper/internal/policy"
)

func TestWatchPolicyReload(t *testing.T) {
	var loads atomic.Int32
	source := policy.SourceFunc(func(context.Context) (oauthDomain.LoginPolicySettings, error) {
		loads.Add(1)
		return oauthDomain.DefaultLoginPolicySettings(), nil
	})
	cache := policy.NewCache(source, time.Hour, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	signals := make(chan os.Signal, 1)
	done := make(chan struct{})
	go func() {
		watchPolicyReload(ctx, signals, cache, slog.Default())
		close(done)
	}()

	cache.Get(ctx)
	cache.Get(ctx)
	require.Equal(t, int32(1), loads.Load(), "snapshot should be served from cache within the TTL")

	signals <- syscall.SIGHUP
	assert.Eventually(t, func() bool {
		cache.Get(ctx)
		return loads.Load() == 2
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop after context cancellation")
	}
}
