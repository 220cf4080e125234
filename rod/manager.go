package rod

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fwojciec/pagetext"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultIdleTimeout is how long a session may go unused before eviction.
	DefaultIdleTimeout = 15 * time.Minute

	// DefaultEvictionInterval is how often the idle check runs.
	DefaultEvictionInterval = 5 * time.Minute

	// DefaultLaunchTimeout bounds a single browser launch.
	DefaultLaunchTimeout = 60 * time.Second

	// probeTimeout bounds the health check run on every Acquire.
	probeTimeout = 5 * time.Second
)

// Session is a connected browser shared by all callers of a BrowserManager.
// Callers borrow it for one page operation and never close it themselves.
type Session struct {
	browser      *rod.Browser
	pid          int
	ping         func(ctx context.Context) error
	close        func() error
	disconnected atomic.Bool
	lastUsed     atomic.Int64
	closeOnce    sync.Once
	closeErr     error
}

// NewSession wraps a browser with its health probe and shutdown function.
// Either function may be nil.
func NewSession(browser *rod.Browser, ping func(ctx context.Context) error, close func() error) *Session {
	s := &Session{browser: browser, ping: ping, close: close}
	s.touch()
	return s
}

// Browser returns the underlying browser.
func (s *Session) Browser() *rod.Browser {
	return s.browser
}

// PID returns the process ID of the launched browser, or zero when the
// session was not started by a local launcher.
func (s *Session) PID() int {
	return s.pid
}

// Connected reports whether the session has not been marked disconnected.
func (s *Session) Connected() bool {
	return !s.disconnected.Load()
}

// MarkDisconnected flags the session as unusable. The manager discards it on
// the next Acquire.
func (s *Session) MarkDisconnected() {
	s.disconnected.Store(true)
}

// Ping runs the health probe and marks the session disconnected if it fails.
func (s *Session) Ping(ctx context.Context) error {
	if !s.Connected() {
		return fmt.Errorf("browser disconnected")
	}
	if s.ping == nil {
		return nil
	}
	if err := s.ping(ctx); err != nil {
		s.MarkDisconnected()
		return err
	}
	return nil
}

// LastUsed returns when the session was last handed out.
func (s *Session) LastUsed() time.Time {
	return time.Unix(0, s.lastUsed.Load())
}

func (s *Session) touch() {
	s.lastUsed.Store(time.Now().UnixNano())
}

// Close shuts the browser down. Subsequent calls return the first result.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.MarkDisconnected()
		if s.close != nil {
			s.closeErr = s.close()
		}
	})
	return s.closeErr
}

// LaunchFunc starts a browser and returns a connected session.
// The context bounds the launch.
type LaunchFunc func(ctx context.Context) (*Session, error)

// BrowserManager owns at most one live browser session and hands it out to
// concurrent callers. Sessions are launched lazily, relaunched after a
// disconnect and closed after sitting idle.
//
// BrowserManager is safe for concurrent use.
type BrowserManager struct {
	launch           LaunchFunc
	idleTimeout      time.Duration
	evictionInterval time.Duration
	launchTimeout    time.Duration
	browserBin       string
	logger           *slog.Logger

	mu      sync.Mutex
	session *Session
	flight  singleflight.Group

	closed atomic.Bool
	stop   chan struct{}
	wg     sync.WaitGroup
}

// ManagerOption configures a BrowserManager.
type ManagerOption func(*BrowserManager)

// WithLaunchFunc replaces the Chrome launcher.
func WithLaunchFunc(fn LaunchFunc) ManagerOption {
	return func(bm *BrowserManager) {
		bm.launch = fn
	}
}

// WithIdleTimeout sets how long a session may sit unused before it is closed.
// Defaults to 15 minutes.
func WithIdleTimeout(d time.Duration) ManagerOption {
	return func(bm *BrowserManager) {
		bm.idleTimeout = d
	}
}

// WithEvictionInterval sets how often idle sessions are looked for.
// Defaults to 5 minutes.
func WithEvictionInterval(d time.Duration) ManagerOption {
	return func(bm *BrowserManager) {
		bm.evictionInterval = d
	}
}

// WithLaunchTimeout bounds each browser launch. Defaults to 60 seconds.
func WithLaunchTimeout(d time.Duration) ManagerOption {
	return func(bm *BrowserManager) {
		bm.launchTimeout = d
	}
}

// WithBrowserBin sets the Chrome executable. When empty, rod finds or
// downloads one.
func WithBrowserBin(path string) ManagerOption {
	return func(bm *BrowserManager) {
		bm.browserBin = path
	}
}

// WithLogger sets the logger for lifecycle events.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(bm *BrowserManager) {
		bm.logger = logger
	}
}

// NewBrowserManager creates a BrowserManager and starts its eviction loop.
// No browser is launched until the first Acquire.
// Close must be called when the BrowserManager is no longer needed.
func NewBrowserManager(opts ...ManagerOption) *BrowserManager {
	bm := &BrowserManager{
		idleTimeout:      DefaultIdleTimeout,
		evictionInterval: DefaultEvictionInterval,
		launchTimeout:    DefaultLaunchTimeout,
		logger:           slog.New(slog.DiscardHandler),
		stop:             make(chan struct{}),
	}
	for _, opt := range opts {
		opt(bm)
	}
	if bm.launch == nil {
		bm.launch = bm.launchBrowser
	}

	bm.wg.Add(1)
	go bm.evictLoop()

	return bm
}

// Acquire returns the shared session, launching one if needed. Callers that
// arrive while a launch is in flight wait for that launch. A caller whose
// context ends stops waiting; the launch itself continues.
func (bm *BrowserManager) Acquire(ctx context.Context) (*Session, error) {
	if bm.closed.Load() {
		return nil, pagetext.Errorf(pagetext.ELAUNCH, "browser manager is closed")
	}

	if s := bm.current(ctx); s != nil {
		return s, nil
	}

	ch := bm.flight.DoChan("launch", func() (any, error) {
		return bm.launchSession()
	})

	select {
	case <-ctx.Done():
		return nil, contextError(ctx.Err(), "waiting for browser launch")
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		s := res.Val.(*Session)
		s.touch()
		return s, nil
	}
}

// current returns the stored session if it passes the health probe.
// A session that fails the probe is discarded.
func (bm *BrowserManager) current(ctx context.Context) *Session {
	bm.mu.Lock()
	s := bm.session
	bm.mu.Unlock()
	if s == nil {
		return nil
	}

	pctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	if err := s.Ping(pctx); err != nil {
		bm.logger.Warn("browser disconnected", "err", err)
		bm.discard(s)
		return nil
	}

	s.touch()
	return s
}

// launchSession runs inside the single flight.
func (bm *BrowserManager) launchSession() (*Session, error) {
	// A caller may have stored a session between our check and the flight.
	bm.mu.Lock()
	if s := bm.session; s != nil && s.Connected() {
		bm.mu.Unlock()
		return s, nil
	}
	bm.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), bm.launchTimeout)
	defer cancel()

	bm.logger.Info("launching browser")
	begin := time.Now()
	s, err := bm.launch(ctx)
	if err != nil {
		bm.logger.Error("browser launch failed", "duration", time.Since(begin), "err", err)
		return nil, pagetext.WrapError(pagetext.ELAUNCH, err, "failed to launch browser")
	}

	bm.mu.Lock()
	if bm.closed.Load() {
		bm.mu.Unlock()
		_ = s.Close()
		return nil, pagetext.Errorf(pagetext.ELAUNCH, "browser manager is closed")
	}
	bm.session = s
	bm.mu.Unlock()

	bm.logger.Info("browser launched", "duration", time.Since(begin))
	return s, nil
}

// discard clears s if it is still the stored session and closes it.
func (bm *BrowserManager) discard(s *Session) {
	bm.mu.Lock()
	if bm.session == s {
		bm.session = nil
	}
	bm.mu.Unlock()

	if err := s.Close(); err != nil {
		bm.logger.Warn("closing browser", "err", err)
	}
}

func (bm *BrowserManager) evictLoop() {
	defer bm.wg.Done()

	ticker := time.NewTicker(bm.evictionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-bm.stop:
			return
		case <-ticker.C:
			bm.evictIdle()
		}
	}
}

// evictIdle closes the session if it has been unused for longer than the
// idle timeout.
func (bm *BrowserManager) evictIdle() {
	bm.mu.Lock()
	s := bm.session
	if s == nil || time.Since(s.LastUsed()) < bm.idleTimeout {
		bm.mu.Unlock()
		return
	}
	bm.session = nil
	bm.mu.Unlock()

	bm.logger.Info("closing idle browser", "idle", time.Since(s.LastUsed()).Round(time.Second))
	if err := s.Close(); err != nil {
		bm.logger.Warn("closing browser", "err", err)
	}
}

// Close stops the eviction loop and closes the session. Close errors are
// logged, not returned. Close is safe to call multiple times.
func (bm *BrowserManager) Close() error {
	if !bm.closed.CompareAndSwap(false, true) {
		return nil
	}

	close(bm.stop)
	bm.wg.Wait()

	bm.mu.Lock()
	s := bm.session
	bm.session = nil
	bm.mu.Unlock()

	if s != nil {
		if err := s.Close(); err != nil {
			bm.logger.Warn("closing browser", "err", err)
		} else {
			bm.logger.Info("browser closed")
		}
	}
	return nil
}

// launchBrowser starts headless Chrome with stability flags.
func (bm *BrowserManager) launchBrowser(ctx context.Context) (*Session, error) {
	l := launcher.New().
		Headless(true).
		Leakless(true).
		NoSandbox(true).
		Set("disable-setuid-sandbox").
		Set("disable-dev-shm-usage").
		Set("disable-accelerated-2d-canvas").
		Set("disable-gpu").
		Set("disable-background-timer-throttling").
		Set("disable-backgrounding-occluded-windows").
		Set("disable-renderer-backgrounding").
		Set("window-size", "1920,1080")
	if bm.browserBin != "" {
		l = l.Bin(bm.browserBin)
	}

	type launched struct {
		url string
		err error
	}
	ch := make(chan launched, 1)
	go func() {
		u, err := l.Launch()
		ch <- launched{url: u, err: err}
	}()

	var u string
	select {
	case <-ctx.Done():
		// Reap the process once the launch finishes.
		go func() {
			<-ch
			l.Kill()
		}()
		return nil, fmt.Errorf("launching browser: %w", ctx.Err())
	case res := <-ch:
		if res.err != nil {
			return nil, fmt.Errorf("launching browser: %w", res.err)
		}
		u = res.url
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connecting to browser: %w", err)
	}

	ping := func(ctx context.Context) error {
		_, err := proto.BrowserGetVersion{}.Call(browser.Context(ctx))
		return err
	}
	closeFn := func() error {
		err := browser.Close()
		l.Kill()
		return err
	}
	s := NewSession(browser, ping, closeFn)
	s.pid = l.PID()
	return s, nil
}
