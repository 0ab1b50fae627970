// Package browsertest provides an in-memory browser for executor tests.
package browsertest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/fjglira/GoE2E-Runner/internal/browser"
)

// Call is one recorded page operation.
type Call struct {
	Method string
	Args   []string
}

func (c Call) String() string {
	return fmt.Sprintf("%s%q", c.Method, c.Args)
}

// Launcher is a fake browser.Launcher. Screenshots, videos and traces are
// written as small placeholder files so artifact handling can be asserted.
type Launcher struct {
	// LaunchErr makes every Launch fail.
	LaunchErr error
	// Fail decides the outcome of each page call; a nil Fail or a nil
	// return means success. Fail may panic to simulate a crashing step.
	Fail func(c Call) error
	// Hook runs before each page call, outside the launcher's lock.
	Hook func(c Call)

	mu        sync.Mutex
	calls     []Call
	launches  []browser.LaunchOptions
	active    int
	maxActive int
	closed    int
}

// NewLauncher returns a Launcher where every call succeeds.
func NewLauncher() *Launcher {
	return &Launcher{}
}

// Launch implements browser.Launcher.
func (l *Launcher) Launch(ctx context.Context, opts browser.LaunchOptions) (browser.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.LaunchErr != nil {
		return nil, l.LaunchErr
	}
	l.launches = append(l.launches, opts)
	l.active++
	if l.active > l.maxActive {
		l.maxActive = l.active
	}

	s := &Session{launcher: l, tracing: opts.Trace}
	s.page = &Page{session: s}
	if opts.VideoDir != "" {
		s.page.video = filepath.Join(opts.VideoDir, "page@"+strconv.Itoa(len(l.launches))+".webm")
	}
	return s, nil
}

// Calls returns every page call made so far, across sessions.
func (l *Launcher) Calls() []Call {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Call(nil), l.calls...)
}

// Methods returns the method names of Calls.
func (l *Launcher) Methods() []string {
	calls := l.Calls()
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.Method
	}
	return out
}

// Launches returns the options of every successful launch.
func (l *Launcher) Launches() []browser.LaunchOptions {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]browser.LaunchOptions(nil), l.launches...)
}

// MaxActive returns the highest number of sessions open at once.
func (l *Launcher) MaxActive() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.maxActive
}

// Active returns the number of sessions not yet closed.
func (l *Launcher) Active() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

// Closed returns the number of sessions closed so far.
func (l *Launcher) Closed() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

func (l *Launcher) record(c Call) error {
	if l.Hook != nil {
		l.Hook(c)
	}
	l.mu.Lock()
	l.calls = append(l.calls, c)
	fail := l.Fail
	l.mu.Unlock()
	if fail != nil {
		return fail(c)
	}
	return nil
}

// Session is a fake browser.Session.
type Session struct {
	launcher *Launcher
	page     *Page
	tracing  bool
	closed   bool
}

func (s *Session) Page() browser.Page { return s.page }

// StopTracing writes a placeholder trace to path.
func (s *Session) StopTracing(path string) error {
	if err := s.launcher.record(Call{Method: "stopTracing", Args: []string{path}}); err != nil {
		return err
	}
	if !s.tracing {
		return nil
	}
	s.tracing = false
	if path == "" {
		return nil
	}
	return writeFile(path, "trace")
}

// Close closes the session; the page's video is flushed to disk on close.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if !s.page.closed {
		_ = s.page.Close()
	}
	err := s.launcher.record(Call{Method: "close"})
	s.launcher.mu.Lock()
	s.launcher.active--
	s.launcher.closed++
	s.launcher.mu.Unlock()
	return err
}

// Page is a fake browser.Page.
type Page struct {
	session *Session
	video   string
	closed  bool
}

func (p *Page) call(method string, args ...string) error {
	return p.session.launcher.record(Call{Method: method, Args: args})
}

func (p *Page) Goto(url string) error               { return p.call("goto", url) }
func (p *Page) Fill(selector, value string) error   { return p.call("fill", selector, value) }
func (p *Page) Click(selector string) error         { return p.call("click", selector) }
func (p *Page) ExpectText(selector, t string) error { return p.call("expectText", selector, t) }
func (p *Page) ExpectVisible(selector string) error { return p.call("expectVisible", selector) }
func (p *Page) WaitForTimeout(ms int) error         { return p.call("waitForTimeout", strconv.Itoa(ms)) }
func (p *Page) WaitForSelector(selector string) error {
	return p.call("waitForSelector", selector)
}
func (p *Page) Hover(selector string) error { return p.call("hover", selector) }

// Screenshot writes a placeholder PNG to path.
func (p *Page) Screenshot(path string) error {
	if err := p.call("screenshot", path); err != nil {
		return err
	}
	return writeFile(path, "png")
}

func (p *Page) VideoPath() (string, error) {
	return p.video, nil
}

// Close closes the page and writes its video file.
func (p *Page) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	if err := p.call("closePage"); err != nil {
		return err
	}
	if p.video != "" {
		return writeFile(p.video, "webm")
	}
	return nil
}

func writeFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0o644)
}

// FailOn fails every call whose method matches and, when arg is set, whose
// first argument equals arg.
func FailOn(method, arg string, err error) func(Call) error {
	return func(c Call) error {
		if c.Method != method {
			return nil
		}
		if arg != "" && (len(c.Args) == 0 || c.Args[0] != arg) {
			return nil
		}
		return err
	}
}
