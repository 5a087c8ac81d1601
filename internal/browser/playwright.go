package browser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"
)

// PlaywrightDriver launches Chromium through playwright-go. Text selectors use
// playwright's own `text=` engine.
type PlaywrightDriver struct {
	Install bool // download the driver and browsers before the first launch
	logger  *zap.Logger
}

// NewPlaywrightDriver creates a playwright-backed driver
func NewPlaywrightDriver(logger *zap.Logger) *PlaywrightDriver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PlaywrightDriver{logger: logger.Named("playwright")}
}

// Launch starts the playwright driver process and a Chromium instance.
func (d *PlaywrightDriver) Launch(ctx context.Context, opts LaunchOptions) (Browser, error) {
	runOpts := &playwright.RunOptions{
		Browsers: []string{"chromium"},
		Verbose:  false,
		Stdout:   io.Discard,
		Stderr:   io.Discard,
	}
	if d.Install {
		if err := playwright.Install(runOpts); err != nil {
			return nil, fmt.Errorf("install playwright: %w", err)
		}
	}

	pw, err := playwright.Run(runOpts)
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}

	headless := opts.Headless
	b, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: &headless,
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("launch chromium: %w", err)
	}
	d.logger.Debug("Chromium launched", zap.String("version", b.Version()))

	return &pwBrowser{pw: pw, browser: b}, nil
}

type pwBrowser struct {
	pw      *playwright.Playwright
	browser playwright.Browser
}

func (b *pwBrowser) NewPage(ctx context.Context) (Page, error) {
	page, err := b.browser.NewPage()
	if err != nil {
		return nil, err
	}
	return &pwPage{page: page}, nil
}

func (b *pwBrowser) Close() error {
	return errors.Join(b.browser.Close(), b.pw.Stop())
}

type pwPage struct {
	page playwright.Page
}

func (p *pwPage) Goto(ctx context.Context, url string) error {
	_, err := p.page.Goto(url, playwright.PageGotoOptions{
		Timeout: remainingMs(ctx, 0),
	})
	return err
}

func (p *pwPage) WaitForText(ctx context.Context, text string, timeout time.Duration) error {
	_, err := p.page.WaitForSelector(textSelector(text), playwright.PageWaitForSelectorOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: remainingMs(ctx, timeout),
	})
	if err != nil {
		return pwNotFound(ctx, textSelector(text), err)
	}
	return nil
}

func (p *pwPage) QueryText(ctx context.Context, text string) (Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	handle, err := p.page.QuerySelector(textSelector(text))
	if err != nil {
		return nil, err
	}
	if handle == nil {
		return nil, nil
	}
	return &pwElement{handle: handle}, nil
}

func (p *pwPage) ClickText(ctx context.Context, text string, timeout time.Duration) error {
	err := p.page.Click(textSelector(text), playwright.PageClickOptions{
		Timeout: remainingMs(ctx, timeout),
	})
	if err != nil {
		return pwNotFound(ctx, textSelector(text), err)
	}
	return nil
}

func (p *pwPage) FillPlaceholder(ctx context.Context, fragment, value string, timeout time.Duration) error {
	selector := placeholderSelector(fragment)
	err := p.page.Fill(selector, value, playwright.PageFillOptions{
		Timeout: remainingMs(ctx, timeout),
	})
	if err != nil {
		return pwNotFound(ctx, selector, err)
	}
	return nil
}

// WaitForTimeout uses sleep rather than page.WaitForTimeout, which cannot be cancelled.
func (p *pwPage) WaitForTimeout(ctx context.Context, d time.Duration) error {
	return sleep(ctx, d)
}

func (p *pwPage) Close() error {
	return p.page.Close()
}

type pwElement struct {
	handle playwright.ElementHandle
}

func (e *pwElement) Disabled(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	res, err := e.handle.Evaluate(`(el) => el.hasAttribute('disabled')`)
	if err != nil {
		return false, err
	}
	disabled, ok := res.(bool)
	if !ok {
		return false, fmt.Errorf("unexpected disabled check result %T", res)
	}
	return disabled, nil
}

// textSelector matches the whole normalized text, case-insensitively. Playwright's
// unquoted text= would also accept substrings and its quoted form is case-sensitive.
func textSelector(text string) string {
	words := strings.Fields(text)
	for i, w := range words {
		words[i] = strings.ReplaceAll(regexp.QuoteMeta(w), "/", `\/`)
	}
	return `text=/^\s*` + strings.Join(words, `\s+`) + `\s*$/i`
}

// remainingMs converts timeout to playwright milliseconds, shortened to ctx's deadline.
// A zero timeout with no deadline leaves playwright's default in place.
func remainingMs(ctx context.Context, timeout time.Duration) *float64 {
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); timeout == 0 || left < timeout {
			timeout = left
		}
		if timeout <= 0 {
			timeout = time.Millisecond
		}
	}
	if timeout == 0 {
		return nil
	}
	return playwright.Float(float64(timeout.Milliseconds()))
}

// pwNotFound maps a playwright timeout to ErrElementNotFound.
func pwNotFound(ctx context.Context, selector string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, playwright.ErrTimeout) {
		return fmt.Errorf("%w: %s: %v", ErrElementNotFound, selector, err)
	}
	return err
}
