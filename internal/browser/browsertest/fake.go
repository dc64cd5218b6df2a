// Package browsertest provides in-memory fakes of browser.Page and
// browser.Launcher.
package browsertest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jiqing426/video-ai/internal/browser"
	"github.com/jiqing426/video-ai/internal/capability"
	"github.com/jiqing426/video-ai/internal/errs"
)

var ErrNotVisible = errors.New("element is not visible")

type Call struct {
	Op       string
	Selector string
	Value    string
}

// Page is a scriptable browser.Page. Selectors listed in Visible are found
// by WaitVisible; everything else times out immediately.
type Page struct {
	mu sync.Mutex

	Visible    map[string]bool
	ActionErrs map[string]error
	// GotoFunc decides the outcome of each navigation. nil means success.
	GotoFunc     func(url string, state browser.LoadState) error
	EvaluateFunc func(expression string, arg any) (any, error)
	// VideoFile is created on Close when set, the way a recorder finalizes
	// its file when the context goes away.
	VideoFile     string
	ScreenshotErr error
	// OnAction runs after every successful element action.
	OnAction func(call Call)

	url    string
	closed atomic.Bool
	calls  []Call
}

func NewPage(visible ...string) *Page {
	p := &Page{Visible: map[string]bool{}, ActionErrs: map[string]error{}}
	for _, s := range visible {
		p.Visible[s] = true
	}
	return p
}

func (p *Page) record(c Call) {
	p.mu.Lock()
	p.calls = append(p.calls, c)
	p.mu.Unlock()
}

func (p *Page) Calls() []Call {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Call(nil), p.calls...)
}

// CallsOf returns only the calls with the given op.
func (p *Page) CallsOf(op string) []Call {
	var out []Call
	for _, c := range p.Calls() {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

func (p *Page) SetClosed() { p.closed.Store(true) }

func (p *Page) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url
}

func (p *Page) IsClosed() bool { return p.closed.Load() }

func (p *Page) Goto(ctx context.Context, url string, state browser.LoadState, timeout time.Duration) error {
	p.record(Call{Op: "goto", Selector: url, Value: state.String()})
	if err := p.alive(ctx); err != nil {
		return err
	}
	if p.GotoFunc != nil {
		if err := p.GotoFunc(url, state); err != nil {
			return err
		}
	}
	p.mu.Lock()
	p.url = url
	p.mu.Unlock()
	return nil
}

func (p *Page) Evaluate(ctx context.Context, expression string, arg any) (any, error) {
	p.record(Call{Op: "evaluate", Value: expression})
	if err := p.alive(ctx); err != nil {
		return nil, err
	}
	if p.EvaluateFunc != nil {
		return p.EvaluateFunc(expression, arg)
	}
	return nil, nil
}

func (p *Page) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	p.record(Call{Op: "wait", Selector: selector})
	if err := p.alive(ctx); err != nil {
		return err
	}
	p.mu.Lock()
	ok := p.Visible[selector]
	p.mu.Unlock()
	if !ok {
		return fmt.Errorf("%s: %w", selector, ErrNotVisible)
	}
	return nil
}

func (p *Page) Click(ctx context.Context, selector string, timeout time.Duration) error {
	return p.act(ctx, Call{Op: "click", Selector: selector})
}

func (p *Page) Fill(ctx context.Context, selector, value string, timeout time.Duration) error {
	return p.act(ctx, Call{Op: "fill", Selector: selector, Value: value})
}

func (p *Page) Hover(ctx context.Context, selector string, timeout time.Duration) error {
	return p.act(ctx, Call{Op: "hover", Selector: selector})
}

func (p *Page) SelectOption(ctx context.Context, selector, value string, timeout time.Duration) error {
	return p.act(ctx, Call{Op: "select", Selector: selector, Value: value})
}

func (p *Page) ScrollIntoView(ctx context.Context, selector string, timeout time.Duration) error {
	return p.act(ctx, Call{Op: "scrollIntoView", Selector: selector})
}

func (p *Page) ScrollBy(ctx context.Context, dx, dy int) error {
	p.record(Call{Op: "scrollBy", Value: fmt.Sprintf("%d,%d", dx, dy)})
	return p.alive(ctx)
}

func (p *Page) Screenshot(ctx context.Context, path string, fullPage bool) error {
	p.record(Call{Op: "screenshot", Value: path})
	if err := p.alive(ctx); err != nil {
		return err
	}
	if p.ScreenshotErr != nil {
		return p.ScreenshotErr
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte("png"), 0o644)
}

func (p *Page) VideoPath() (string, error) { return p.VideoFile, nil }

func (p *Page) Close() error {
	p.record(Call{Op: "close"})
	p.closed.Store(true)
	if p.VideoFile != "" {
		if err := os.MkdirAll(filepath.Dir(p.VideoFile), 0o755); err != nil {
			return err
		}
		return os.WriteFile(p.VideoFile, []byte("webm"), 0o644)
	}
	return nil
}

func (p *Page) act(ctx context.Context, c Call) error {
	if err := p.alive(ctx); err != nil {
		return err
	}
	p.mu.Lock()
	err := p.ActionErrs[c.Selector]
	p.mu.Unlock()
	if err != nil {
		p.record(Call{Op: c.Op + "-error", Selector: c.Selector, Value: c.Value})
		return err
	}
	p.record(c)
	if p.OnAction != nil {
		p.OnAction(c)
	}
	return nil
}

func (p *Page) alive(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.closed.Load() {
		return errors.New("Target page, context or browser has been closed")
	}
	return nil
}

// Launcher hands out sessions around one fake page. When NewPage is set
// every Open gets a fresh page from it and Page tracks the latest one.
type Launcher struct {
	Page    *Page
	NewPage func() *Page
	OpenErr error
	Log     *zap.Logger

	mu           sync.Mutex
	pages        int
	opens        atomic.Int32
	resourceDown atomic.Int32
	last         atomic.Pointer[browser.Session]
}

func NewLauncher(page *Page) *Launcher {
	return &Launcher{Page: page}
}

func (l *Launcher) Open(ctx context.Context, cfg browser.SessionConfig) (*browser.Session, error) {
	if !cfg.Capabilities.CanRecord() {
		return nil, errs.New(errs.KindEnvironmentUnsupported, "browsertest.Open", "cannot record")
	}
	l.opens.Add(1)
	if l.OpenErr != nil {
		return nil, l.OpenErr
	}

	id := uuid.NewString()
	dir := filepath.Join(cfg.OutputDir, "session-"+id)
	down := func() error { l.resourceDown.Add(1); return nil }

	var page *Page
	l.mu.Lock()
	if l.NewPage != nil {
		page = l.NewPage()
		l.Page = page
		l.pages++
	} else {
		page = l.Page
	}
	l.mu.Unlock()

	sess := browser.NewSession(id, page, dir, cfg.Viewport, l.Log,
		browser.Closer{Name: "context", Close: down},
		browser.Closer{Name: "browser", Close: down},
		browser.Closer{Name: "driver", Close: down},
	)
	l.last.Store(sess)
	return sess, nil
}

func (l *Launcher) Opens() int { return int(l.opens.Load()) }

// PagesCreated counts pages built by NewPage.
func (l *Launcher) PagesCreated() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pages
}

// ResourcesClosed counts context, browser and driver closes across sessions.
func (l *Launcher) ResourcesClosed() int { return int(l.resourceDown.Load()) }

func (l *Launcher) LastSession() *browser.Session { return l.last.Load() }

// RecordingCaps are capabilities that allow recording on a local host.
func RecordingCaps() capability.Capabilities {
	return capability.Capabilities{HasAutomationDriver: true, HasBrowserEngine: true, Host: capability.HostLocal}
}
