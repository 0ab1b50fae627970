package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
)

// PlaywrightLauncher launches sessions through a shared Playwright driver.
// The driver starts on first use.
type PlaywrightLauncher struct {
	mu      sync.Mutex
	pw      *playwright.Playwright
	install bool
}

// NewPlaywrightLauncher creates a launcher. With install set, missing
// browsers and the driver are downloaded on first launch.
func NewPlaywrightLauncher(install bool) *PlaywrightLauncher {
	return &PlaywrightLauncher{install: install}
}

func (l *PlaywrightLauncher) driver(engine Engine) (*playwright.Playwright, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.pw != nil {
		return l.pw, nil
	}
	if l.install {
		if err := playwright.Install(&playwright.RunOptions{Browsers: []string{string(engine)}}); err != nil {
			return nil, fmt.Errorf("install playwright: %w", err)
		}
	}
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}
	l.pw = pw
	return pw, nil
}

// Stop shuts the Playwright driver down.
func (l *PlaywrightLauncher) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.pw == nil {
		return nil
	}
	err := l.pw.Stop()
	l.pw = nil
	return err
}

// Launch opens browser → context → page, recording video and tracing as
// requested. Anything opened before a failure is closed again.
func (l *PlaywrightLauncher) Launch(ctx context.Context, opts LaunchOptions) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if opts.Engine == "" {
		opts.Engine = Chromium
	}
	if !opts.Engine.Valid() {
		return nil, fmt.Errorf("unsupported browser engine %q", opts.Engine)
	}

	pw, err := l.driver(opts.Engine)
	if err != nil {
		return nil, err
	}

	var bt playwright.BrowserType
	switch opts.Engine {
	case Firefox:
		bt = pw.Firefox
	case WebKit:
		bt = pw.WebKit
	default:
		bt = pw.Chromium
	}

	b, err := bt.Launch(playwright.BrowserTypeLaunchOptions{Headless: playwright.Bool(opts.Headless)})
	if err != nil {
		return nil, fmt.Errorf("launch %s: %w", opts.Engine, err)
	}

	ctxOpts := playwright.BrowserNewContextOptions{}
	if opts.VideoDir != "" {
		ctxOpts.RecordVideo = &playwright.RecordVideo{Dir: opts.VideoDir}
	}
	bctx, err := b.NewContext(ctxOpts)
	if err != nil {
		_ = b.Close()
		return nil, fmt.Errorf("new browser context: %w", err)
	}
	if opts.ActionTimeout > 0 {
		bctx.SetDefaultTimeout(millis(opts.ActionTimeout))
	}
	if opts.NavigationTimeout > 0 {
		bctx.SetDefaultNavigationTimeout(millis(opts.NavigationTimeout))
	}

	s := &playwrightSession{browser: b, context: bctx}
	if opts.Trace {
		if err := bctx.Tracing().Start(playwright.TracingStartOptions{
			Screenshots: playwright.Bool(true),
			Snapshots:   playwright.Bool(true),
		}); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("start tracing: %w", err)
		}
		s.tracing = true
	}

	p, err := bctx.NewPage()
	if err != nil {
		_ = s.StopTracing("")
		_ = s.Close()
		return nil, fmt.Errorf("new page: %w", err)
	}

	var expectTimeout []float64
	if opts.ExpectTimeout > 0 {
		expectTimeout = append(expectTimeout, millis(opts.ExpectTimeout))
	}
	s.page = &playwrightPage{
		page:      p,
		expect:    playwright.NewPlaywrightAssertions(expectTimeout...),
		recording: opts.VideoDir != "",
	}
	return s, nil
}

func millis(d time.Duration) float64 {
	return float64(d / time.Millisecond)
}

type playwrightSession struct {
	browser playwright.Browser
	context playwright.BrowserContext
	page    *playwrightPage
	tracing bool
}

func (s *playwrightSession) Page() Page { return s.page }

func (s *playwrightSession) StopTracing(path string) error {
	if !s.tracing {
		return nil
	}
	s.tracing = false
	if path == "" {
		return s.context.Tracing().Stop()
	}
	return s.context.Tracing().Stop(path)
}

func (s *playwrightSession) Close() error {
	return errors.Join(s.context.Close(), s.browser.Close())
}

type playwrightPage struct {
	page      playwright.Page
	expect    playwright.PlaywrightAssertions
	recording bool
}

func (p *playwrightPage) Goto(url string) error {
	_, err := p.page.Goto(url)
	return err
}

func (p *playwrightPage) Fill(selector, value string) error {
	return p.page.Locator(selector).Fill(value)
}

func (p *playwrightPage) Click(selector string) error {
	return p.page.Locator(selector).Click()
}

func (p *playwrightPage) ExpectText(selector, text string) error {
	return p.expect.Locator(p.page.Locator(selector)).ToHaveText(text)
}

func (p *playwrightPage) ExpectVisible(selector string) error {
	return p.expect.Locator(p.page.Locator(selector)).ToBeVisible()
}

func (p *playwrightPage) WaitForTimeout(ms int) error {
	p.page.WaitForTimeout(float64(ms))
	return nil
}

func (p *playwrightPage) WaitForSelector(selector string) error {
	return p.page.Locator(selector).WaitFor()
}

func (p *playwrightPage) Hover(selector string) error {
	return p.page.Locator(selector).Hover()
}

func (p *playwrightPage) Screenshot(path string) error {
	_, err := p.page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(true),
	})
	return err
}

func (p *playwrightPage) VideoPath() (string, error) {
	if !p.recording {
		return "", nil
	}
	return p.page.Video().Path()
}

func (p *playwrightPage) Close() error {
	return p.page.Close()
}
