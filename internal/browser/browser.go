// Package browser defines the browser capabilities the executor needs and
// adapts playwright-go to them.
package browser

import (
	"context"
	"time"
)

// Engine names a browser engine.
type Engine string

const (
	Chromium Engine = "chromium"
	Firefox  Engine = "firefox"
	WebKit   Engine = "webkit"
)

// Valid reports whether e is a supported engine.
func (e Engine) Valid() bool {
	switch e {
	case Chromium, Firefox, WebKit:
		return true
	}
	return false
}

// LaunchOptions configure one browser session.
type LaunchOptions struct {
	Engine   Engine
	Headless bool
	// VideoDir enables video recording into the directory when set.
	VideoDir string
	// Trace starts tracing when the session opens.
	Trace             bool
	ActionTimeout     time.Duration
	NavigationTimeout time.Duration
	ExpectTimeout     time.Duration
}

// Launcher opens browser sessions.
type Launcher interface {
	Launch(ctx context.Context, opts LaunchOptions) (Session, error)
}

// Session owns a browser, its context and a single page.
type Session interface {
	Page() Page
	// StopTracing stops a running trace and saves it to path. An empty path
	// discards the trace.
	StopTracing(path string) error
	// Close closes the browser context and then the browser.
	Close() error
}

// Page is the set of page operations steps are executed with.
type Page interface {
	Goto(url string) error
	Fill(selector, value string) error
	Click(selector string) error
	ExpectText(selector, text string) error
	ExpectVisible(selector string) error
	WaitForTimeout(ms int) error
	WaitForSelector(selector string) error
	Hover(selector string) error
	Screenshot(path string) error
	// VideoPath returns the recording's file path, or "" when video is off.
	VideoPath() (string, error)
	Close() error
}
