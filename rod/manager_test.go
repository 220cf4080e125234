package rod_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fwojciec/pagetext"
	"github.com/fwojciec/pagetext/rod"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeLauncher counts launches and closes of sessions without a real browser.
type fakeLauncher struct {
	launches atomic.Int32
	closes   atomic.Int32
	delay    time.Duration
	err      error
	pingErr  atomic.Pointer[error]
}

func (l *fakeLauncher) launch(ctx context.Context) (*rod.Session, error) {
	l.launches.Add(1)
	if l.delay > 0 {
		time.Sleep(l.delay)
	}
	if l.err != nil {
		return nil, l.err
	}
	ping := func(ctx context.Context) error {
		if p := l.pingErr.Load(); p != nil {
			return *p
		}
		return nil
	}
	return rod.NewSession(nil, ping, func() error {
		l.closes.Add(1)
		return nil
	}), nil
}

func TestBrowserManager_Acquire(t *testing.T) {
	t.Parallel()

	t.Run("concurrent callers share a single launch", func(t *testing.T) {
		t.Parallel()

		fl := &fakeLauncher{delay: 50 * time.Millisecond}
		bm := rod.NewBrowserManager(rod.WithLaunchFunc(fl.launch))
		defer bm.Close()

		var wg sync.WaitGroup
		sessions := make([]*rod.Session, 10)
		for i := range sessions {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				s, err := bm.Acquire(context.Background())
				assert.NoError(t, err)
				sessions[i] = s
			}(i)
		}
		wg.Wait()

		assert.Equal(t, int32(1), fl.launches.Load())
		for _, s := range sessions {
			assert.Same(t, sessions[0], s)
		}
	})

	t.Run("reuses a connected session", func(t *testing.T) {
		t.Parallel()

		fl := &fakeLauncher{}
		bm := rod.NewBrowserManager(rod.WithLaunchFunc(fl.launch))
		defer bm.Close()

		first, err := bm.Acquire(context.Background())
		require.NoError(t, err)
		second, err := bm.Acquire(context.Background())
		require.NoError(t, err)

		assert.Same(t, first, second)
		assert.Equal(t, int32(1), fl.launches.Load())
	})

	t.Run("launch failure reaches the caller and the next call retries", func(t *testing.T) {
		t.Parallel()

		fl := &fakeLauncher{err: errors.New("chrome not found")}
		bm := rod.NewBrowserManager(rod.WithLaunchFunc(fl.launch))
		defer bm.Close()

		_, err := bm.Acquire(context.Background())
		require.Error(t, err)
		assert.Equal(t, pagetext.ELAUNCH, pagetext.ErrorCode(err))

		_, err = bm.Acquire(context.Background())
		require.Error(t, err)
		assert.Equal(t, int32(2), fl.launches.Load())
	})

	t.Run("relaunches after the session is marked disconnected", func(t *testing.T) {
		t.Parallel()

		fl := &fakeLauncher{}
		bm := rod.NewBrowserManager(rod.WithLaunchFunc(fl.launch))
		defer bm.Close()

		first, err := bm.Acquire(context.Background())
		require.NoError(t, err)
		first.MarkDisconnected()

		second, err := bm.Acquire(context.Background())
		require.NoError(t, err)

		assert.NotSame(t, first, second)
		assert.Equal(t, int32(2), fl.launches.Load())
		assert.Equal(t, int32(1), fl.closes.Load())
	})

	t.Run("relaunches when the health probe fails", func(t *testing.T) {
		t.Parallel()

		fl := &fakeLauncher{}
		bm := rod.NewBrowserManager(rod.WithLaunchFunc(fl.launch))
		defer bm.Close()

		first, err := bm.Acquire(context.Background())
		require.NoError(t, err)

		probeErr := errors.New("websocket closed")
		fl.pingErr.Store(&probeErr)
		second, err := bm.Acquire(context.Background())
		require.NoError(t, err)

		assert.NotSame(t, first, second)
		assert.False(t, first.Connected())
		assert.Equal(t, int32(2), fl.launches.Load())
		assert.Equal(t, int32(1), fl.closes.Load())
	})

	t.Run("caller context ends while waiting for launch", func(t *testing.T) {
		t.Parallel()

		fl := &fakeLauncher{delay: 200 * time.Millisecond}
		bm := rod.NewBrowserManager(rod.WithLaunchFunc(fl.launch))
		defer bm.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		_, err := bm.Acquire(ctx)
		require.Error(t, err)
		assert.Equal(t, pagetext.ETIMEOUT, pagetext.ErrorCode(err))

		// The launch carried on and its session is reused.
		s, err := bm.Acquire(context.Background())
		require.NoError(t, err)
		assert.NotNil(t, s)
		assert.Equal(t, int32(1), fl.launches.Load())
	})

	t.Run("caller cancels while waiting for launch", func(t *testing.T) {
		t.Parallel()

		fl := &fakeLauncher{delay: 200 * time.Millisecond}
		bm := rod.NewBrowserManager(rod.WithLaunchFunc(fl.launch))
		defer bm.Close()

		ctx, cancel := context.WithCancel(context.Background())
		time.AfterFunc(10*time.Millisecond, cancel)

		_, err := bm.Acquire(ctx)
		require.Error(t, err)
		assert.Equal(t, pagetext.EUNKNOWN, pagetext.ErrorCode(err))
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestBrowserManager_Eviction(t *testing.T) {
	t.Parallel()

	t.Run("closes a session idle past the timeout", func(t *testing.T) {
		t.Parallel()

		fl := &fakeLauncher{}
		bm := rod.NewBrowserManager(
			rod.WithLaunchFunc(fl.launch),
			rod.WithIdleTimeout(30*time.Millisecond),
			rod.WithEvictionInterval(10*time.Millisecond),
		)
		defer bm.Close()

		_, err := bm.Acquire(context.Background())
		require.NoError(t, err)

		assert.Eventually(t, func() bool {
			return fl.closes.Load() == 1
		}, time.Second, 10*time.Millisecond)

		_, err = bm.Acquire(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int32(2), fl.launches.Load())
	})

	t.Run("keeps a session that is in use", func(t *testing.T) {
		t.Parallel()

		fl := &fakeLauncher{}
		bm := rod.NewBrowserManager(
			rod.WithLaunchFunc(fl.launch),
			rod.WithIdleTimeout(200*time.Millisecond),
			rod.WithEvictionInterval(10*time.Millisecond),
		)
		defer bm.Close()

		deadline := time.Now().Add(300 * time.Millisecond)
		for time.Now().Before(deadline) {
			_, err := bm.Acquire(context.Background())
			require.NoError(t, err)
			time.Sleep(20 * time.Millisecond)
		}

		assert.Equal(t, int32(0), fl.closes.Load())
		assert.Equal(t, int32(1), fl.launches.Load())
	})
}

func TestBrowserManager_Close(t *testing.T) {
	t.Parallel()

	t.Run("closes the session once", func(t *testing.T) {
		t.Parallel()

		fl := &fakeLauncher{}
		bm := rod.NewBrowserManager(rod.WithLaunchFunc(fl.launch))

		_, err := bm.Acquire(context.Background())
		require.NoError(t, err)

		require.NoError(t, bm.Close())
		require.NoError(t, bm.Close())
		assert.Equal(t, int32(1), fl.closes.Load())
	})

	t.Run("is safe without a session", func(t *testing.T) {
		t.Parallel()

		fl := &fakeLauncher{}
		bm := rod.NewBrowserManager(rod.WithLaunchFunc(fl.launch))

		require.NoError(t, bm.Close())
		assert.Equal(t, int32(0), fl.launches.Load())
	})

	t.Run("acquire after close fails", func(t *testing.T) {
		t.Parallel()

		fl := &fakeLauncher{}
		bm := rod.NewBrowserManager(rod.WithLaunchFunc(fl.launch))
		require.NoError(t, bm.Close())

		_, err := bm.Acquire(context.Background())
		require.Error(t, err)
		assert.Equal(t, pagetext.ELAUNCH, pagetext.ErrorCode(err))
		assert.Equal(t, int32(0), fl.launches.Load())
	})

	t.Run("swallows session close errors", func(t *testing.T) {
		t.Parallel()

		bm := rod.NewBrowserManager(rod.WithLaunchFunc(func(ctx context.Context) (*rod.Session, error) {
			return rod.NewSession(nil, nil, func() error { return errors.New("already gone") }), nil
		}))

		_, err := bm.Acquire(context.Background())
		require.NoError(t, err)
		assert.NoError(t, bm.Close())
	})
}
