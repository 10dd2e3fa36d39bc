package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewShutdownManager_Defaults(t *testing.T) {
	sm := NewShutdownManager(nil, nil, 0)

	assert.NotNil(t, sm.logger)
	assert.Equal(t, 30*time.Second, sm.timeout)
}

func TestShutdownManager_Shutdown(t *testing.T) {
	t.Run("runs every function", func(t *testing.T) {
		sm := NewShutdownManager(NewNopLogger(), nil, time.Second)

		var calls int32
		for _, name := range []string{"otel", "redis", "database"} {
			sm.Register(name, func(context.Context) error {
				atomic.AddInt32(&calls, 1)
				return nil
			})
		}
		sm.Register("ignored", nil)

		require.NoError(t, sm.Shutdown(context.Background()))
		assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	})

	t.Run("joins errors", func(t *testing.T) {
		sm := NewShutdownManager(NewNopLogger(), nil, time.Second)
		errDB := errors.New("db close failed")
		sm.Register("database", func(context.Context) error { return errDB })
		sm.Register("redis", func(context.Context) error { return nil })

		err := sm.Shutdown(context.Background())

		require.Error(t, err)
		assert.ErrorIs(t, err, errDB)
		assert.Contains(t, err.Error(), "database")
	})

	t.Run("recovers panics", func(t *testing.T) {
		sm := NewShutdownManager(NewNopLogger(), nil, time.Second)
		sm.Register("cron", func(context.Context) error { panic("stuck") })

		err := sm.Shutdown(context.Background())

		require.Error(t, err)
		assert.Contains(t, err.Error(), "cron: panic during shutdown")
	})

	t.Run("times out", func(t *testing.T) {
		sm := NewShutdownManager(NewNopLogger(), nil, 20*time.Millisecond)
		release := make(chan struct{})
		defer close(release)
		sm.Register("slow", func(context.Context) error {
			<-release
			return nil
		})

		err := sm.Shutdown(context.Background())

		require.Error(t, err)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("stops server", func(t *testing.T) {
		ts := httptest.NewUnstartedServer(http.NotFoundHandler())
		ts.Start()
		defer ts.Close()

		sm := NewShutdownManager(NewNopLogger(), ts.Config, time.Second)
		require.NoError(t, sm.Shutdown(context.Background()))

		_, err := http.Get(ts.URL)
		assert.Error(t, err)
	})
}

func TestShutdownManager_WaitForShutdown(t *testing.T) {
	sm := NewShutdownManager(NewNopLogger(), nil, time.Second)

	var called int32
	sm.Register("flag", func(context.Context) error {
		atomic.StoreInt32(&called, 1)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, sm.WaitForShutdown(ctx))
	assert.Equal(t, int32(1), atomic.LoadInt32(&called))
}
