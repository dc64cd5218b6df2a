package browser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"

	"github.com/jiqing426/video-ai/internal/capability"
	"github.com/jiqing426/video-ai/internal/errs"
)

// Launcher opens recording sessions.
type Launcher interface {
	Open(ctx context.Context, cfg SessionConfig) (*Session, error)
}

type SessionConfig struct {
	Capabilities capability.Capabilities
	Viewport     Viewport
	OutputDir    string
	RecordHar    bool
}

type LauncherConfig struct {
	Headless       bool
	SystemBrowser  string
	DefaultTimeout time.Duration
}

// launchArgs keep Chromium stable in constrained hosts.
var launchArgs = []string{
	"--no-sandbox",
	"--disable-setuid-sandbox",
	"--disable-dev-shm-usage",
	"--disable-accelerated-2d-canvas",
	"--no-first-run",
	"--no-zygote",
	"--disable-gpu",
	"--disable-background-timer-throttling",
	"--disable-backgrounding-occluded-windows",
	"--disable-renderer-backgrounding",
}

type PlaywrightLauncher struct {
	cfg LauncherConfig
	log *zap.Logger
}

func NewLauncher(cfg LauncherConfig, log *zap.Logger) *PlaywrightLauncher {
	if cfg.DefaultTimeout == 0 {
		cfg.DefaultTimeout = 10 * time.Second
	}
	if cfg.SystemBrowser == "" {
		cfg.SystemBrowser = "/usr/bin/chromium-browser"
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &PlaywrightLauncher{cfg: cfg, log: log}
}

type openResult struct {
	sess *Session
	err  error
}

// Open allocates driver, browser, context and page. Nothing is allocated
// when the capabilities cannot record. If ctx ends first the half-open
// session is torn down in the background.
func (l *PlaywrightLauncher) Open(ctx context.Context, cfg SessionConfig) (*Session, error) {
	const op = "browser.Open"

	if !cfg.Capabilities.CanRecord() {
		return nil, errs.New(errs.KindEnvironmentUnsupported, op, "нет драйвера автоматизации или браузера")
	}
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(errs.Classify(err), op, err)
	}

	resultCh := make(chan openResult, 1)
	go func() {
		sess, err := l.open(cfg)
		resultCh <- openResult{sess: sess, err: err}
	}()

	select {
	case r := <-resultCh:
		if r.err != nil {
			return nil, errs.Wrap(errs.KindInternal, op, r.err)
		}
		return r.sess, nil
	case <-ctx.Done():
		go func() {
			if r := <-resultCh; r.sess != nil {
				r.sess.Close()
			}
		}()
		l.log.Warn("Открытие сессии прервано", zap.Error(ctx.Err()))
		return nil, errs.Wrap(errs.Classify(ctx.Err()), op, ctx.Err())
	}
}

func (l *PlaywrightLauncher) open(cfg SessionConfig) (sess *Session, err error) {
	id := uuid.NewString()
	dir := filepath.Join(cfg.OutputDir, "session-"+id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("не удалось создать каталог сессии: %w", err)
	}

	// teardown order: context, browser, driver
	var closers []Closer
	defer func() {
		if err != nil {
			for _, c := range closers {
				if cerr := c.Close(); cerr != nil {
					l.log.Warn("Ошибка освобождения ресурса", zap.String("resource", c.Name), zap.Error(cerr))
				}
			}
		}
	}()

	pw, err := playwright.Run(&playwright.RunOptions{SkipInstallBrowsers: true})
	if err != nil {
		return nil, fmt.Errorf("не удалось запустить драйвер playwright: %w", err)
	}
	closers = append([]Closer{{Name: "driver", Close: pw.Stop}}, closers...)

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(l.cfg.Headless),
		Args:     launchArgs,
	}
	if cfg.Capabilities.Host == capability.HostContainer {
		launchOpts.ExecutablePath = playwright.String(l.cfg.SystemBrowser)
	}

	browser, err := pw.Chromium.Launch(launchOpts)
	if err != nil {
		return nil, fmt.Errorf("не удалось запустить браузер: %w", err)
	}
	closers = append([]Closer{{Name: "browser", Close: func() error { return browser.Close() }}}, closers...)

	ctxOpts := playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{Width: cfg.Viewport.Width, Height: cfg.Viewport.Height},
		RecordVideo: &playwright.RecordVideo{
			Dir:  dir,
			Size: &playwright.Size{Width: cfg.Viewport.Width, Height: cfg.Viewport.Height},
		},
	}
	if cfg.RecordHar {
		ctxOpts.RecordHarPath = playwright.String(filepath.Join(dir, "network.har"))
	}

	bctx, err := browser.NewContext(ctxOpts)
	if err != nil {
		return nil, fmt.Errorf("не удалось создать контекст браузера: %w", err)
	}
	closers = append([]Closer{{Name: "context", Close: func() error { return bctx.Close() }}}, closers...)

	page, err := bctx.NewPage()
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть страницу: %w", err)
	}
	page.SetDefaultTimeout(float64(l.cfg.DefaultTimeout.Milliseconds()))

	l.log.Info("Сессия открыта",
		zap.String("session_id", id),
		zap.String("dir", dir),
		zap.String("host", cfg.Capabilities.Host.String()),
		zap.Int("width", cfg.Viewport.Width),
		zap.Int("height", cfg.Viewport.Height))

	return NewSession(id, WrapPage(page), dir, cfg.Viewport, l.log, closers...), nil
}
