package agent

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jiqing426/video-ai/internal/browser"
	"github.com/jiqing426/video-ai/internal/errs"
	"github.com/jiqing426/video-ai/internal/extractor"
	"github.com/jiqing426/video-ai/internal/llm"
	"github.com/jiqing426/video-ai/internal/sanitizer"
)

var ErrInvalidRequest = errors.New("некорректный запрос на запись")

// Validate checks the request and fills in the default mode.
func (r *Request) Validate() error {
	r.URL = strings.TrimSpace(r.URL)
	r.Task = strings.TrimSpace(r.Task)

	if r.URL == "" {
		return fmt.Errorf("%w: не указан url", ErrInvalidRequest)
	}
	u, err := url.ParseRequestURI(r.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: url должен быть абсолютным http(s) адресом", ErrInvalidRequest)
	}
	if r.Task == "" {
		return fmt.Errorf("%w: не указана задача", ErrInvalidRequest)
	}

	mode, err := llm.ParseMode(string(r.Mode))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	r.Mode = mode
	return nil
}

type EngineConfig struct {
	// Budget is the wall clock for one recording, teardown included.
	Budget          time.Duration
	NavigateTimeout time.Duration
	PostNavSettle   time.Duration
	Viewport        browser.Viewport
	OutputDir       string
	RecordHar       bool
	Executor        ExecutorConfig
}

type Option func(*Engine)

func WithMetrics(m Metrics) Option {
	return func(e *Engine) {
		if m != nil {
			e.metrics = m
		}
	}
}

func WithBreaker(cb *CircuitBreaker) Option {
	return func(e *Engine) {
		if cb != nil {
			e.breaker = cb
		}
	}
}

// Engine records browser sessions. It is safe for concurrent use; every
// call owns its own session.
type Engine struct {
	cfg      EngineConfig
	prober   Prober
	launcher browser.Launcher
	planner  llm.Planner
	sink     ArtifactSink
	breaker  *CircuitBreaker
	executor *Executor
	metrics  Metrics
	masker   *sanitizer.DataSanitizer
	log      *zap.Logger
}

// NewEngine wires the engine. planner and sink may be nil: without a
// planner every recording uses the built-in plan, without a sink results
// are only returned to the caller.
func NewEngine(cfg EngineConfig, prober Prober, launcher browser.Launcher, planner llm.Planner, sink ArtifactSink, log *zap.Logger, opts ...Option) *Engine {
	if cfg.Budget <= 0 {
		cfg.Budget = 2 * time.Minute
	}
	if cfg.NavigateTimeout <= 0 {
		cfg.NavigateTimeout = 30 * time.Second
	}
	if cfg.PostNavSettle < 0 {
		cfg.PostNavSettle = 0
	}
	if cfg.Viewport.Width <= 0 || cfg.Viewport.Height <= 0 {
		cfg.Viewport = browser.Viewport{Width: 1280, Height: 720}
	}
	if log == nil {
		log = zap.NewNop()
	}

	e := &Engine{
		cfg:      cfg,
		prober:   prober,
		launcher: launcher,
		planner:  planner,
		sink:     sink,
		breaker:  NewCircuitBreaker(3, time.Minute),
		metrics:  nopMetrics{},
		masker:   sanitizer.New(),
		log:      log,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.executor = NewExecutor(cfg.Executor, log, e.metrics)
	return e
}

// Run records the request, or simulates it when the host cannot record.
func (e *Engine) Run(ctx context.Context, req Request) (*Result, error) {
	res, err := e.recordOnce(ctx, req, true)
	if errs.KindOf(err) != errs.KindEnvironmentUnsupported {
		return res, err
	}

	e.log.Info("Браузер недоступен, переход в режим симуляции",
		zap.String("url", req.URL),
		zap.String("host", res.Capabilities.Host))

	return e.Simulate(ctx, req, res.Capabilities)
}

// Record performs one real recording. The returned result is non-nil for
// any valid request, also when the session failed; err then carries the
// session-level failure.
func (e *Engine) Record(ctx context.Context, req Request) (*Result, error) {
	return e.recordOnce(ctx, req, false)
}

// recordOnce leaves an unsupported host out of the recording metrics when
// the caller is about to simulate, so one request is counted once.
func (e *Engine) recordOnce(ctx context.Context, req Request, willSimulate bool) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	res := &Result{Type: ResultRecording, Request: req, StartedAt: start}

	caps := e.prober.Detect(ctx)
	e.metrics.ObserveCapabilities(caps)
	res.Capabilities = caps.Report()

	b := splitBudget(e.cfg.Budget)
	runCtx, cancel := context.WithTimeout(ctx, b.open+b.work)
	defer cancel()

	sessCfg := browser.SessionConfig{
		Capabilities: caps,
		Viewport:     e.cfg.Viewport,
		OutputDir:    e.cfg.OutputDir,
		RecordHar:    e.cfg.RecordHar,
	}
	launcher := budgetedLauncher{Launcher: e.launcher, timeout: b.open}

	artifact, err := browser.WithSession(runCtx, launcher, sessCfg, func(ctx context.Context, sess *browser.Session) error {
		res.SessionID = sess.ID
		defer func() { res.Screenshots = sess.Artifacts().Screenshots() }()
		return e.record(ctx, sess, res)
	})

	res.ArtifactPath = artifact
	res.Duration = time.Since(start)
	e.maskValues(res)
	if err != nil {
		res.ErrorKind = errs.KindOf(err)
		res.FailureReason = errs.Reason(err)
	}

	logFields := []zap.Field{
		zap.String("session_id", res.SessionID),
		zap.String("url", req.URL),
		zap.String("artifact", res.ArtifactPath),
		zap.Int("steps", len(res.Log)),
		zap.Int("succeeded", res.Log.Count(StatusSucceeded)),
		zap.Duration("duration", res.Duration),
	}
	if err != nil {
		e.log.Warn("Запись завершена с ошибкой", append(logFields, zap.String("error_kind", res.ErrorKind.String()), zap.Error(err))...)
	} else {
		e.log.Info("Запись завершена", logFields...)
	}

	if !willSimulate || res.ErrorKind != errs.KindEnvironmentUnsupported {
		e.metrics.ObserveRecording(ResultRecording, res.ErrorKind, res.Duration)
	}

	if res.SessionID != "" {
		deliverCtx, cancelDeliver := context.WithTimeout(context.WithoutCancel(ctx), b.teardown)
		defer cancelDeliver()
		e.deliver(deliverCtx, res)
	}
	return res, err
}

func (e *Engine) record(ctx context.Context, sess *browser.Session, res *Result) error {
	req := res.Request

	if err := e.navigate(ctx, sess, req.URL); err != nil {
		return err
	}
	if err := sleep(ctx, e.cfg.PostNavSettle); err != nil {
		return errs.Wrap(errs.Classify(err), "agent.settle", err)
	}

	page, err := sess.Page()
	if err != nil {
		return err
	}
	snap, err := extractor.Snapshot(ctx, page)
	if err != nil {
		if k := errs.KindOf(err); k == errs.KindStaleContext || k == errs.KindCancelled || k == errs.KindTimeout {
			return err
		}
		e.log.Warn("Не удалось проанализировать страницу, план строится без снимка",
			zap.String("session_id", sess.ID), zap.Error(err))
		snap = &extractor.PageSnapshot{URL: page.URL()}
	}
	res.Page = summarize(snap)

	plan := e.choosePlan(ctx, e.planRequest(sess.ID, req, snap))
	res.Plan = plan.Actions
	res.PlanSource = plan.Source
	if plan.Cause != nil {
		res.PlannerError = errs.KindOf(plan.Cause)
	}

	log, err := e.executor.Run(ctx, sess, plan.Actions)
	res.Log = log
	if err != nil {
		return errs.Wrap(errs.KindOf(err), "agent.execute", err)
	}
	return nil
}

// maskValues hides typed values of secret fields, emails included, once the
// plan has run. The plan slice may belong to the planner, so it is copied.
func (e *Engine) maskValues(res *Result) {
	if len(res.Plan) > 0 {
		plan := make([]llm.PlannedAction, len(res.Plan))
		for i, a := range res.Plan {
			a.Value = e.masker.SanitizeValue(a.Target, a.Value)
			plan[i] = a
		}
		res.Plan = plan
	}
	for i := range res.Log {
		res.Log[i].Value = e.masker.SanitizeValue(res.Log[i].Target, res.Log[i].Value)
	}
}

// navigate waits for network idle first. Pages that never go idle get
// exactly one more attempt that only waits for the DOM.
func (e *Engine) navigate(ctx context.Context, sess *browser.Session, target string) error {
	const op = "agent.navigate"

	err := sess.Navigate(ctx, target, browser.LoadNetworkIdle, e.cfg.NavigateTimeout)
	if err == nil {
		return nil
	}
	if stop := navigationStop(ctx, op, err); stop != nil {
		return stop
	}

	e.metrics.ObserveNavigationRetry()
	e.log.Info("Повторная навигация без ожидания сети",
		zap.String("session_id", sess.ID), zap.String("url", target), zap.Error(err))

	err = sess.Navigate(ctx, target, browser.LoadDOMContentLoaded, e.cfg.NavigateTimeout)
	if err == nil {
		return nil
	}
	if stop := navigationStop(ctx, op, err); stop != nil {
		return stop
	}
	return errs.Wrap(errs.KindNavigationFailed, op, err)
}

// navigationStop reports failures that a retry cannot fix.
func navigationStop(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return errs.Wrap(errs.Classify(ctxErr), op, ctxErr)
	}
	if errs.KindOf(err) == errs.KindStaleContext {
		return errs.Wrap(errs.KindStaleContext, op, err)
	}
	return nil
}

func (e *Engine) planRequest(sessionID string, req Request, snap *extractor.PageSnapshot) llm.PlanRequest {
	return llm.PlanRequest{
		SessionID:   sessionID,
		URL:         req.URL,
		Task:        req.Task,
		Mode:        req.Mode,
		Snapshot:    snap,
		Workflow:    req.Workflow,
		KeyElements: req.KeyElements,
		Repository:  req.Repository,
	}
}

// deliver hands the result to the sink. A sink failure never changes the
// outcome of the recording.
func (e *Engine) deliver(ctx context.Context, res *Result) {
	if e.sink == nil {
		return
	}
	if err := e.sink.Deliver(ctx, res); err != nil {
		e.log.Error("Не удалось сохранить результат записи",
			zap.String("session_id", res.SessionID), zap.Error(err))
	}
}

func summarize(snap *extractor.PageSnapshot) PageSummary {
	if snap == nil {
		return PageSummary{}
	}
	buttons, inputs, links, forms := snap.Counts()
	return PageSummary{Title: snap.Title, Buttons: buttons, Inputs: inputs, Links: links, Forms: forms}
}
