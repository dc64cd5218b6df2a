package browser

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/jiqing426/video-ai/internal/errs"
)

type Viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Closer releases one browser resource during session teardown.
type Closer struct {
	Name  string
	Close func() error
}

// Session owns one browser context and one page. It is not safe to drive
// the page from several goroutines; Close may be called from any goroutine.
type Session struct {
	ID        string
	Viewport  Viewport
	OutputDir string
	StartedAt time.Time

	page      Page
	artifacts *ArtifactCollector
	closers   []Closer
	log       *zap.Logger

	navigated atomic.Bool
	closed    atomic.Bool
	closeOnce sync.Once
	videoPath string
}

// NewSession assembles a session around an open page. closers run in the
// given order after the page is closed.
func NewSession(id string, page Page, outputDir string, viewport Viewport, log *zap.Logger, closers ...Closer) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("session_id", id))

	return &Session{
		ID:        id,
		Viewport:  viewport,
		OutputDir: outputDir,
		StartedAt: time.Now(),
		page:      page,
		artifacts: NewArtifactCollector(outputDir, log),
		closers:   closers,
		log:       log,
	}
}

// Page returns the live page or StaleContext once the session or the page
// has been closed.
func (s *Session) Page() (Page, error) {
	if s.closed.Load() {
		return nil, errs.New(errs.KindStaleContext, "session.Page", "сессия закрыта")
	}
	if s.page == nil || s.page.IsClosed() {
		return nil, errs.New(errs.KindStaleContext, "session.Page", "страница закрыта")
	}
	return s.page, nil
}

func (s *Session) Artifacts() *ArtifactCollector { return s.artifacts }

func (s *Session) Logger() *zap.Logger { return s.log }

// Navigate loads url and marks the session as having reached a page.
func (s *Session) Navigate(ctx context.Context, url string, state LoadState, timeout time.Duration) error {
	page, err := s.Page()
	if err != nil {
		return err
	}

	start := time.Now()
	if err := page.Goto(ctx, url, state, timeout); err != nil {
		s.log.Warn("Навигация не удалась",
			zap.String("url", url),
			zap.String("wait_until", state.String()),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return err
	}

	s.navigated.Store(true)
	s.log.Info("Страница загружена",
		zap.String("url", url),
		zap.String("wait_until", state.String()),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

func (s *Session) Navigated() bool { return s.navigated.Load() }

// Close tears the session down once. It returns the recorded video path
// when the session reached a page and the file exists, otherwise "". Every
// call returns the same value and no teardown error escapes.
func (s *Session) Close() string {
	s.closeOnce.Do(func() {
		s.closed.Store(true)

		var raw string
		if s.page != nil {
			s.step("video", func() error {
				p, err := s.page.VideoPath()
				raw = p
				return err
			})
			s.step("page", s.page.Close)
		}
		for _, c := range s.closers {
			if c.Close != nil {
				s.step(c.Name, c.Close)
			}
		}

		if raw != "" && s.navigated.Load() && fileExists(raw) {
			s.videoPath = raw
		}

		s.log.Info("Сессия закрыта",
			zap.Bool("navigated", s.navigated.Load()),
			zap.String("video", s.videoPath),
			zap.Int("screenshots", len(s.artifacts.Screenshots())),
			zap.Duration("lifetime", time.Since(s.StartedAt)))
	})
	return s.videoPath
}

func (s *Session) step(name string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("Паника при закрытии ресурса", zap.String("resource", name), zap.Any("panic", r))
		}
	}()
	if err := fn(); err != nil {
		s.log.Warn("Ошибка при закрытии ресурса", zap.String("resource", name), zap.Error(err))
	}
}

// WithSession opens a session, runs fn and always closes the session, even
// when fn panics. A panic is reported as an Internal error.
func WithSession(ctx context.Context, launcher Launcher, cfg SessionConfig, fn func(context.Context, *Session) error) (artifact string, err error) {
	sess, err := launcher.Open(ctx, cfg)
	if err != nil {
		return "", err
	}

	defer func() {
		if r := recover(); r != nil {
			sess.log.Error("Паника во время записи", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
			err = errs.Wrap(errs.KindInternal, "browser.WithSession", fmt.Errorf("паника: %v", r))
		}
		artifact = sess.Close()
	}()

	err = fn(ctx, sess)
	return artifact, err
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
