package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/v0xg/gcursor/internal/config"
)

var (
	// ErrSessionInit is returned when the browser cannot be launched or the
	// initial navigation does not complete before the setup timeout.
	ErrSessionInit = errors.New("session init failed")

	// ErrElementNotFound is returned by Page operations whose target element
	// never became available within the operation's timeout.
	ErrElementNotFound = errors.New("element not found")
)

// LaunchOptions configures a browser launch
type LaunchOptions struct {
	Headless bool
}

// Driver launches browsers. Implementations: RodDriver, PlaywrightDriver.
type Driver interface {
	Launch(ctx context.Context, opts LaunchOptions) (Browser, error)
}

// Browser is a launched browser process.
type Browser interface {
	NewPage(ctx context.Context) (Page, error)
	Close() error
}

// Page is the live page the executor drives. Text lookups match the innermost
// element whose visible text equals the given label, ignoring case and collapsing
// whitespace; "Log in" does not match "Log in now". Buttons rendered as inputs
// match on their value.
type Page interface {
	// Goto navigates to url and waits for the load event.
	Goto(ctx context.Context, url string) error

	// WaitForText waits until an element with the given text is visible.
	WaitForText(ctx context.Context, text string, timeout time.Duration) error

	// QueryText returns the element with the given text without waiting.
	// A nil Element and nil error mean no element matched.
	QueryText(ctx context.Context, text string) (Element, error)

	// ClickText clicks the element with the given text.
	ClickText(ctx context.Context, text string, timeout time.Duration) error

	// FillPlaceholder replaces the value of the first element whose placeholder
	// attribute contains fragment.
	FillPlaceholder(ctx context.Context, fragment, value string, timeout time.Duration) error

	// WaitForTimeout pauses for d.
	WaitForTimeout(ctx context.Context, d time.Duration) error

	Close() error
}

// Element is a handle to a DOM element.
type Element interface {
	// Disabled reports whether the element carries the disabled attribute.
	Disabled(ctx context.Context) (bool, error)
}

// placeholderSelector builds a CSS selector matching placeholders containing fragment.
func placeholderSelector(fragment string) string {
	return `[placeholder*="` + escapeAttr(fragment) + `"]`
}

func escapeAttr(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '"' || r == '\\' {
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(out)
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// NewDriver creates the driver named by cfg.Driver: "rod" (default) or "playwright".
func NewDriver(cfg config.BrowserConfig, logger *zap.Logger) (Driver, error) {
	switch cfg.Driver {
	case "", config.DriverRod:
		d := NewRodDriver(logger)
		d.ProfileDir = cfg.ProfileDir
		return d, nil
	case config.DriverPlaywright:
		d := NewPlaywrightDriver(logger)
		d.Install = cfg.Install
		return d, nil
	default:
		return nil, fmt.Errorf("unknown browser driver: %s (supported: rod, playwright)", cfg.Driver)
	}
}
