package capability

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"
)

// Environment is the host surface the probe reads.
type Environment interface {
	Getenv(key string) string
	FileExists(path string) bool
	LookPath(file string) (string, error)
}

// Driver checks the automation driver and a real browser launch.
type Driver interface {
	ProbeDriver(ctx context.Context) error
	ProbeEngine(ctx context.Context) error
}

type Config struct {
	Timeout             time.Duration
	ContainerMarkerFile string
	ContainerEnv        string
	CloudEnv            string
	CloudEnvAlt         string
	DevModeEnv          string
	SystemBrowsers      []string
	FFmpegPath          string
}

type Probe struct {
	cfg    Config
	env    Environment
	driver Driver
	log    *zap.Logger
}

type Option func(*Probe)

func WithEnvironment(env Environment) Option {
	return func(p *Probe) { p.env = env }
}

func WithDriver(d Driver) Option {
	return func(p *Probe) { p.driver = d }
}

func WithLogger(log *zap.Logger) Option {
	return func(p *Probe) { p.log = log }
}

func New(cfg Config, opts ...Option) *Probe {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if len(cfg.SystemBrowsers) == 0 {
		cfg.SystemBrowsers = []string{"chromium-browser", "chromium"}
	}

	p := &Probe{
		cfg:    cfg,
		env:    osEnvironment{},
		driver: &PlaywrightDriver{Timeout: cfg.Timeout},
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Detect never fails: every probe that errors, panics or times out is
// recorded as false.
func (p *Probe) Detect(ctx context.Context) Capabilities {
	caps := Capabilities{Host: ClassifyHost(p.signals())}

	caps.HasAutomationDriver = p.check(ctx, "driver", p.driver.ProbeDriver)

	switch {
	case caps.Host == HostContainer:
		caps.HasBrowserEngine = p.lookAny(p.cfg.SystemBrowsers...)
	case caps.HasAutomationDriver:
		caps.HasBrowserEngine = p.check(ctx, "engine", p.driver.ProbeEngine)
	}

	caps.HasMuxer = p.hasMuxer(caps.Host)

	p.log.Info("Проверка окружения завершена",
		zap.String("host", caps.Host.String()),
		zap.Bool("driver", caps.HasAutomationDriver),
		zap.Bool("engine", caps.HasBrowserEngine),
		zap.Bool("muxer", caps.HasMuxer),
		zap.Bool("can_record", caps.CanRecord()))

	return caps
}

func (p *Probe) signals() Signals {
	var s Signals
	safe(func() {
		containerEnv := strings.ToLower(p.env.Getenv(p.cfg.ContainerEnv))
		s.ContainerMarker = (p.cfg.ContainerMarkerFile != "" && p.env.FileExists(p.cfg.ContainerMarkerFile)) ||
			containerEnv == "true" || containerEnv == "1"

		_, altSet := lookupEnv(p.env, p.cfg.CloudEnvAlt)
		s.ManagedCloudMarker = p.env.Getenv(p.cfg.CloudEnv) == "1" || altSet

		mode := strings.ToLower(p.env.Getenv(p.cfg.DevModeEnv))
		s.DevMode = mode == "dev" || mode == "development"
	})
	return s
}

func (p *Probe) hasMuxer(host HostKind) bool {
	if host != HostContainer && p.cfg.FFmpegPath != "" {
		ok := false
		safe(func() { ok = p.env.FileExists(p.cfg.FFmpegPath) })
		if ok {
			return true
		}
	}
	return p.lookAny("ffmpeg")
}

func (p *Probe) lookAny(names ...string) bool {
	for _, name := range names {
		found := false
		safe(func() {
			_, err := p.env.LookPath(name)
			found = err == nil
		})
		if found {
			return true
		}
	}
	return false
}

// check runs fn under the probe's own timeout. The caller's deadline is not
// inherited; a slow fn keeps cleaning up in the background.
func (p *Probe) check(ctx context.Context, name string, fn func(context.Context) error) bool {
	probeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.cfg.Timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("паника при проверке %s: %v", name, r)
			}
		}()
		done <- fn(probeCtx)
	}()

	select {
	case err := <-done:
		if err != nil {
			p.log.Warn("Проверка не пройдена", zap.String("probe", name), zap.Error(err))
			return false
		}
		return true
	case <-probeCtx.Done():
		p.log.Warn("Проверка превысила таймаут", zap.String("probe", name), zap.Duration("timeout", p.cfg.Timeout))
		return false
	}
}

func safe(fn func()) {
	defer func() { _ = recover() }()
	fn()
}

func lookupEnv(env Environment, key string) (string, bool) {
	if key == "" {
		return "", false
	}
	if le, ok := env.(interface {
		LookupEnv(string) (string, bool)
	}); ok {
		return le.LookupEnv(key)
	}
	v := env.Getenv(key)
	return v, v != ""
}

type osEnvironment struct{}

func (osEnvironment) Getenv(key string) string { return os.Getenv(key) }

func (osEnvironment) LookupEnv(key string) (string, bool) { return os.LookupEnv(key) }

func (osEnvironment) FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (osEnvironment) LookPath(file string) (string, error) { return exec.LookPath(file) }

// PlaywrightDriver probes by actually starting the playwright driver and,
// for the engine, launching and closing headless Chromium.
type PlaywrightDriver struct {
	Timeout time.Duration
}

func (d *PlaywrightDriver) ProbeDriver(ctx context.Context) error {
	pw, err := playwright.Run(&playwright.RunOptions{SkipInstallBrowsers: true})
	if err != nil {
		return fmt.Errorf("драйвер playwright недоступен: %w", err)
	}
	return pw.Stop()
}

func (d *PlaywrightDriver) ProbeEngine(ctx context.Context) error {
	pw, err := playwright.Run(&playwright.RunOptions{SkipInstallBrowsers: true})
	if err != nil {
		return fmt.Errorf("драйвер playwright недоступен: %w", err)
	}
	defer pw.Stop()

	timeout := d.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
		Args:     []string{"--no-sandbox", "--disable-dev-shm-usage"},
		Timeout:  playwright.Float(float64(timeout.Milliseconds())),
	})
	if err != nil {
		return fmt.Errorf("не удалось запустить chromium: %w", err)
	}
	return browser.Close()
}
