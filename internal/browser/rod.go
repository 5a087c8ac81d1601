package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"
)

// findByTextJS returns the innermost element whose normalized visible text equals
// the label, preferring visible elements. Buttons rendered as inputs match on value.
const findByTextJS = `(text) => {
	const norm = (s) => (s || '').trim().replace(/\s+/g, ' ').toLowerCase();
	const want = norm(text);
	const label = (el) => norm(el.innerText || el.value || el.textContent);
	const matches = Array.from(document.querySelectorAll('body *:not(script):not(style)'))
		.filter((el) => label(el) === want);
	const innermost = matches.filter((el) => !matches.some((other) => other !== el && el.contains(other)));
	const visible = innermost.find((el) => el.offsetParent !== null || el.getClientRects().length > 0);
	return visible || innermost[0] || null;
}`

// RodDriver launches Chromium through go-rod.
type RodDriver struct {
	ProfileDir string // Chrome/Chromium profile directory for authenticated sessions
	logger     *zap.Logger
}

// NewRodDriver creates a rod-backed driver
func NewRodDriver(logger *zap.Logger) *RodDriver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RodDriver{logger: logger.Named("rod")}
}

// Launch starts a local Chromium and connects to it.
func (d *RodDriver) Launch(ctx context.Context, opts LaunchOptions) (Browser, error) {
	path, found := launcher.LookPath()
	if !found {
		d.logger.Info("No local Chromium found, rod will download one")
	}
	l := launcher.New().Bin(path).Headless(opts.Headless)
	if d.ProfileDir != "" {
		l = l.UserDataDir(d.ProfileDir)
	}

	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch chromium: %w", err)
	}

	b := rod.New().ControlURL(u)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connect to chromium: %w", err)
	}
	d.logger.Debug("Connected to Chromium", zap.String("control_url", u))

	return &rodBrowser{browser: b, launcher: l}, nil
}

type rodBrowser struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
}

func (b *rodBrowser) NewPage(ctx context.Context) (Page, error) {
	page, err := b.browser.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, err
	}
	// Detach from the setup context so the page outlives it.
	return &rodPage{page: page.Context(context.Background())}, nil
}

func (b *rodBrowser) Close() error {
	err := b.browser.Close()
	b.launcher.Kill()
	return err
}

type rodPage struct {
	page *rod.Page
}

func (p *rodPage) Goto(ctx context.Context, url string) error {
	page := p.page.Context(ctx)
	if err := page.Navigate(url); err != nil {
		return err
	}
	return page.WaitLoad()
}

func (p *rodPage) WaitForText(ctx context.Context, text string, timeout time.Duration) error {
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	page := p.page.Context(tctx)
	el, err := page.ElementByJS(rod.Eval(findByTextJS, text))
	if err != nil {
		return notFound(ctx, "text="+text, err)
	}
	if err := el.WaitVisible(); err != nil {
		return notFound(ctx, "visible text="+text, err)
	}
	return nil
}

func (p *rodPage) QueryText(ctx context.Context, text string) (Element, error) {
	page := p.page.Context(ctx).Sleeper(rod.NotFoundSleeper)
	el, err := page.ElementByJS(rod.Eval(findByTextJS, text))
	if err != nil {
		var nf *rod.ElementNotFoundError
		if errors.As(err, &nf) {
			return nil, nil
		}
		return nil, err
	}
	return &rodElement{el: el}, nil
}

func (p *rodPage) ClickText(ctx context.Context, text string, timeout time.Duration) error {
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	page := p.page.Context(tctx)
	el, err := page.ElementByJS(rod.Eval(findByTextJS, text))
	if err != nil {
		return notFound(ctx, "text="+text, err)
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

func (p *rodPage) FillPlaceholder(ctx context.Context, fragment, value string, timeout time.Duration) error {
	selector := placeholderSelector(fragment)
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	page := p.page.Context(tctx)
	el, err := page.Element(selector)
	if err != nil {
		return notFound(ctx, selector, err)
	}

	if value == "" {
		_, err = el.Eval(`() => {
			this.value = '';
			this.dispatchEvent(new Event('input', { bubbles: true }));
			this.dispatchEvent(new Event('change', { bubbles: true }));
		}`)
		return err
	}

	// Replace existing text
	if err := el.SelectAllText(); err != nil {
		return err
	}
	return el.Input(value)
}

func (p *rodPage) WaitForTimeout(ctx context.Context, d time.Duration) error {
	return sleep(ctx, d)
}

func (p *rodPage) Close() error {
	return p.page.Close()
}

type rodElement struct {
	el *rod.Element
}

func (e *rodElement) Disabled(ctx context.Context) (bool, error) {
	res, err := e.el.Context(ctx).Eval(`() => this.hasAttribute('disabled')`)
	if err != nil {
		return false, err
	}
	return res.Value.Bool(), nil
}

// notFound maps a lookup failure to ErrElementNotFound unless the caller's context ended.
func notFound(ctx context.Context, what string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return fmt.Errorf("%w: %s: %v", ErrElementNotFound, what, err)
}
