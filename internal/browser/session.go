package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultSetupTimeout bounds launch, page creation and initial navigation.
const DefaultSetupTimeout = 30 * time.Second

// Options configures Session.Init
type Options struct {
	Address      string
	Headless     bool
	SetupTimeout time.Duration
}

// Session owns one browser and one page for the lifetime of a single action.
type Session struct {
	driver Driver
	logger *zap.Logger

	mu      sync.Mutex
	browser Browser
	page    Page
}

// NewSession creates an uninitialized session backed by driver.
func NewSession(driver Driver, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{driver: driver, logger: logger.Named("session")}
}

// Init launches the browser, opens a page and navigates it to opts.Address.
// All three are bounded by opts.SetupTimeout. On failure every acquired
// resource is released and the returned error matches ErrSessionInit.
func (s *Session) Init(ctx context.Context, opts Options) error {
	if opts.SetupTimeout <= 0 {
		opts.SetupTimeout = DefaultSetupTimeout
	}

	s.mu.Lock()
	if s.browser != nil {
		s.mu.Unlock()
		return fmt.Errorf("%w: session already initialized", ErrSessionInit)
	}
	s.mu.Unlock()

	setupCtx, cancel := context.WithTimeout(ctx, opts.SetupTimeout)
	defer cancel()

	s.logger.Debug("Launching browser", zap.Bool("headless", opts.Headless))
	b, err := await(setupCtx, func() (Browser, error) {
		return s.driver.Launch(setupCtx, LaunchOptions{Headless: opts.Headless})
	}, closeLate[Browser])
	if err != nil {
		return fmt.Errorf("%w: launch browser: %w", ErrSessionInit, err)
	}
	s.mu.Lock()
	s.browser = b
	s.mu.Unlock()

	page, err := await(setupCtx, func() (Page, error) {
		return b.NewPage(setupCtx)
	}, closeLate[Page])
	if err != nil {
		_ = s.Close()
		return fmt.Errorf("%w: open page: %w", ErrSessionInit, err)
	}
	s.mu.Lock()
	s.page = page
	s.mu.Unlock()

	_, err = await(setupCtx, func() (struct{}, error) {
		return struct{}{}, page.Goto(setupCtx, opts.Address)
	}, nil)
	if err != nil {
		_ = s.Close()
		return fmt.Errorf("%w: navigate to %s: %w", ErrSessionInit, opts.Address, err)
	}

	s.logger.Info("Session ready", zap.String("address", opts.Address))
	return nil
}

// Page returns the live page, or nil before Init succeeded and after Close.
func (s *Session) Page() Page {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page
}

// Close releases the page and the browser. It is idempotent and safe to call
// on a session whose Init failed or never ran.
func (s *Session) Close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	page, b := s.page, s.browser
	s.page, s.browser = nil, nil
	s.mu.Unlock()

	var errs []error
	if page != nil {
		if err := page.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close page: %w", err))
		}
	}
	if b != nil {
		if err := b.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close browser: %w", err))
		}
		s.logger.Debug("Browser closed")
	}
	if len(errs) > 0 {
		err := errors.Join(errs...)
		s.logger.Warn("Session teardown incomplete", zap.Error(err))
		return err
	}
	return nil
}

// await runs fn and returns its result, or ctx's error if ctx finishes first.
// A result that arrives after ctx finished is handed to discard.
func await[T any](ctx context.Context, fn func() (T, error), discard func(T)) (T, error) {
	type result struct {
		val T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := fn()
		ch <- result{v, err}
	}()

	select {
	case r := <-ch:
		return r.val, r.err
	case <-ctx.Done():
		go func() {
			r := <-ch
			if r.err == nil && discard != nil {
				discard(r.val)
			}
		}()
		var zero T
		return zero, ctx.Err()
	}
}

func closeLate[T interface{ Close() error }](v T) {
	if any(v) != nil {
		_ = v.Close()
	}
}
