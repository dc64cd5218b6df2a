package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jiqing426/video-ai/internal/browser"
	"github.com/jiqing426/video-ai/internal/errs"
	"github.com/jiqing426/video-ai/internal/llm"
	"github.com/jiqing426/video-ai/internal/selector"
)

type ExecutorConfig struct {
	// VisibilityWait caps the wait for a single selector candidate.
	VisibilityWait time.Duration
	// StepTimeout applies to actions that carry no timeout of their own.
	StepTimeout   time.Duration
	ActionTimeout time.Duration
	// SettleScale multiplies the pause after every step. 0 disables pauses.
	SettleScale float64
	WaitDefault time.Duration
	ScrollStep  int
}

var settleIntervals = map[llm.ActionKind]time.Duration{
	llm.ActionClick:   1500 * time.Millisecond,
	llm.ActionFill:    1000 * time.Millisecond,
	llm.ActionSelect:  500 * time.Millisecond,
	llm.ActionWait:    0,
	llm.ActionScroll:  1000 * time.Millisecond,
	llm.ActionHover:   500 * time.Millisecond,
	llm.ActionCapture: 1000 * time.Millisecond,
}

// Executor runs a plan against one session, one step at a time.
type Executor struct {
	cfg     ExecutorConfig
	log     *zap.Logger
	metrics Metrics
}

func NewExecutor(cfg ExecutorConfig, log *zap.Logger, metrics Metrics) *Executor {
	if cfg.VisibilityWait <= 0 {
		cfg.VisibilityWait = 5 * time.Second
	}
	if cfg.StepTimeout <= 0 {
		cfg.StepTimeout = 10 * time.Second
	}
	if cfg.ActionTimeout <= 0 {
		cfg.ActionTimeout = 10 * time.Second
	}
	if cfg.SettleScale < 0 {
		cfg.SettleScale = 0
	}
	if cfg.WaitDefault <= 0 {
		cfg.WaitDefault = 2 * time.Second
	}
	if cfg.ScrollStep == 0 {
		cfg.ScrollStep = 500
	}
	if log == nil {
		log = zap.NewNop()
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &Executor{cfg: cfg, log: log, metrics: metrics}
}

// contextFields создаёт набор контекстных полей для логирования
func (e *Executor) contextFields(sessionID string, stepNo int, fields ...zap.Field) []zap.Field {
	result := make([]zap.Field, 0, len(fields)+2)
	if sessionID != "" {
		result = append(result, zap.String("session_id", sessionID))
	}
	if stepNo > 0 {
		result = append(result, zap.Int("step", stepNo))
	}
	return append(result, fields...)
}

// Run executes plan in order. A failed step never stops the run; the
// returned log always has one entry per action. Run only returns an error
// when the whole session is unusable: the page is gone (StaleContext) or
// ctx is done. A step that already started is allowed to finish.
func (e *Executor) Run(ctx context.Context, sess *browser.Session, plan []llm.PlannedAction) (ExecutionLog, error) {
	steps := make([]ExecutionStep, len(plan))
	for i, a := range plan {
		steps[i] = ExecutionStep{Action: a, Status: StatusPending}
	}
	entries := make(ExecutionLog, len(plan))

	var (
		stopErr  error
		stopKind errs.Kind
	)
	for i := range steps {
		stepNo := i + 1
		step := &steps[i]

		if stopErr == nil {
			if err := ctx.Err(); err != nil {
				stopErr, stopKind = err, errs.KindCancelled
				e.log.Info("Выполнение плана остановлено", e.contextFields(sess.ID, stepNo, zap.Error(err))...)
			} else if _, err := sess.Page(); err != nil {
				stopErr, stopKind = err, errs.KindStaleContext
				e.log.Warn("Страница недоступна, оставшиеся шаги пропущены", e.contextFields(sess.ID, stepNo, zap.Error(err))...)
			}
		}
		if stopErr != nil {
			step.Status = StatusFailed
			step.ErrorKind = stopKind
			entries[i] = entryFor(i, step, 0)
			e.metrics.ObserveStep(step.Action.Kind, step.Status, step.ErrorKind, 0)
			continue
		}

		step.Status = StatusRunning
		start := time.Now()
		err := e.runStep(ctx, sess, step)
		elapsed := time.Since(start)

		if err != nil {
			step.Status = StatusFailed
			step.ErrorKind = errs.KindOf(err)
			e.log.Warn("Шаг не выполнен", e.contextFields(sess.ID, stepNo,
				zap.String("kind", string(step.Action.Kind)),
				zap.String("description", step.Action.Description),
				zap.String("error_kind", step.ErrorKind.String()),
				zap.Duration("elapsed", elapsed),
				zap.Error(err))...)

			if step.ErrorKind == errs.KindStaleContext {
				stopErr, stopKind = err, errs.KindStaleContext
			}
		} else {
			step.Status = StatusSucceeded
			e.log.Info("Шаг выполнен", e.contextFields(sess.ID, stepNo,
				zap.String("kind", string(step.Action.Kind)),
				zap.String("description", step.Action.Description),
				zap.String("selector", step.ResolvedSelector),
				zap.Duration("elapsed", elapsed))...)
		}

		entries[i] = entryFor(i, step, elapsed)
		e.metrics.ObserveStep(step.Action.Kind, step.Status, step.ErrorKind, elapsed)

		if stopErr == nil {
			e.settle(ctx, step.Action.Kind)
		}
	}

	if stopErr != nil {
		if stopKind == errs.KindStaleContext {
			return entries, errs.Wrap(errs.KindStaleContext, "executor.Run", stopErr)
		}
		return entries, stopErr
	}
	if err := ctx.Err(); err != nil {
		return entries, err
	}
	return entries, nil
}

func entryFor(i int, step *ExecutionStep, d time.Duration) LogEntry {
	return LogEntry{
		Index:            i,
		Kind:             step.Action.Kind,
		Description:      step.Action.Description,
		Target:           step.Action.Target,
		Value:            step.Action.Value,
		Status:           step.Status,
		ErrorKind:        step.ErrorKind,
		ResolvedSelector: step.ResolvedSelector,
		Duration:         d,
	}
}

func (e *Executor) stepTimeout(a llm.PlannedAction) time.Duration {
	if a.TimeoutMs > 0 {
		return time.Duration(a.TimeoutMs) * time.Millisecond
	}
	return e.cfg.StepTimeout
}

func (e *Executor) runStep(ctx context.Context, sess *browser.Session, step *ExecutionStep) error {
	page, err := sess.Page()
	if err != nil {
		return err
	}
	a := step.Action

	switch a.Kind {
	case llm.ActionWait:
		d := e.cfg.WaitDefault
		if a.TimeoutMs > 0 {
			d = time.Duration(a.TimeoutMs) * time.Millisecond
		}
		return sleep(ctx, d)

	case llm.ActionCapture:
		callCtx, cancel := detached(ctx, e.cfg.ActionTimeout)
		defer cancel()
		_, err := sess.Artifacts().Capture(callCtx, page, a.Description)
		return classified("capture", err)

	case llm.ActionScroll:
		target := strings.TrimSpace(a.Target)
		if target == "" || target == "body" || target == "html" {
			callCtx, cancel := detached(ctx, e.cfg.ActionTimeout)
			defer cancel()
			return classified("scroll", page.ScrollBy(callCtx, 0, e.cfg.ScrollStep))
		}
		return e.onElement(ctx, page, step, func(ctx context.Context, sel string, timeout time.Duration) error {
			return page.ScrollIntoView(ctx, sel, timeout)
		})

	case llm.ActionClick:
		return e.onElement(ctx, page, step, page.Click)

	case llm.ActionHover:
		return e.onElement(ctx, page, step, page.Hover)

	case llm.ActionFill:
		if a.Value == "" {
			return errs.New(errs.KindInvalidAction, "fill", "нет значения для ввода")
		}
		return e.onElement(ctx, page, step, func(ctx context.Context, sel string, timeout time.Duration) error {
			return page.Fill(ctx, sel, a.Value, timeout)
		})

	case llm.ActionSelect:
		if a.Value == "" {
			return errs.New(errs.KindInvalidAction, "select", "нет значения для выбора")
		}
		return e.onElement(ctx, page, step, func(ctx context.Context, sel string, timeout time.Duration) error {
			return page.SelectOption(ctx, sel, a.Value, timeout)
		})

	default:
		return errs.New(errs.KindInvalidAction, string(a.Kind), "неизвестный тип действия")
	}
}

// onElement tries the target's candidates in ranked order and acts on the
// first visible one. The step timeout is shared among the candidates that
// are still left; an action error moves on to the next candidate.
func (e *Executor) onElement(ctx context.Context, page browser.Page, step *ExecutionStep, act func(context.Context, string, time.Duration) error) error {
	op := string(step.Action.Kind)
	cands := selector.FromHint(step.Action.Target)
	if len(cands) == 0 {
		return errs.New(errs.KindNoMatchingElement, op, "нет пригодных селекторов")
	}

	stepCtx, cancel := detached(ctx, e.stepTimeout(step.Action))
	defer cancel()
	deadline, _ := stepCtx.Deadline()

	var lastErr error
	for i, c := range cands {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}
		wait := min(e.cfg.VisibilityWait, remaining/time.Duration(len(cands)-i))

		if err := page.WaitVisible(stepCtx, c.Selector, wait); err != nil {
			if errs.Classify(err) == errs.KindStaleContext {
				return errs.Wrap(errs.KindStaleContext, op, err)
			}
			lastErr = err
			continue
		}

		if err := act(stepCtx, c.Selector, e.cfg.ActionTimeout); err != nil {
			if errs.Classify(err) == errs.KindStaleContext {
				return errs.Wrap(errs.KindStaleContext, op, err)
			}
			e.log.Debug("Действие над кандидатом не удалось",
				zap.String("selector", c.Selector), zap.String("tier", c.Tier.String()), zap.Error(err))
			lastErr = err
			continue
		}

		step.ResolvedSelector = c.Selector
		return nil
	}

	if lastErr == nil {
		lastErr = errors.New("время шага истекло")
	}
	return errs.Wrap(errs.KindNoMatchingElement, op, fmt.Errorf("ни один из %d селекторов не подошёл: %w", len(cands), lastErr))
}

// detached bounds a step by its own timeout only. Cancelling the run never
// cuts a started step short.
func detached(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), d)
}

func (e *Executor) settle(ctx context.Context, kind llm.ActionKind) {
	d := time.Duration(float64(settleIntervals[kind]) * e.cfg.SettleScale)
	if d > 0 {
		_ = sleep(ctx, d)
	}
}

func classified(op string, err error) error {
	if err == nil {
		return nil
	}
	return errs.Wrap(errs.Classify(err), op, err)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
