package agent

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/jiqing426/video-ai/internal/errs"
	"github.com/jiqing426/video-ai/internal/llm"
)

var errEmptyPlan = errors.New("планировщик вернул пустой план")

// Plan is either what the planner produced or the built-in fallback. Cause
// is set only for the fallback and explains why the planner was not used.
type Plan struct {
	Source  PlanSource
	Actions []llm.PlannedAction
	Cause   error
}

// choosePlan is the only place where the plan source is decided. It never
// fails: any planner problem turns into the fallback plan.
func (e *Engine) choosePlan(ctx context.Context, req llm.PlanRequest) Plan {
	var (
		actions []llm.PlannedAction
		cause   error
	)

	if e.planner == nil {
		cause = errors.New("планировщик не настроен")
	} else {
		cause = e.breaker.Call(ctx, func() error {
			var err error
			actions, err = e.planner.Plan(ctx, req)
			if err != nil {
				return err
			}
			if len(actions) == 0 {
				return errEmptyPlan
			}
			return nil
		})
	}

	if cause == nil {
		e.metrics.ObservePlanSource(SourcePlanned)
		return Plan{Source: SourcePlanned, Actions: actions}
	}

	e.log.Warn("Планировщик недоступен, используется встроенный план",
		zap.String("session_id", req.SessionID),
		zap.String("breaker", e.breaker.GetState().String()),
		zap.Error(cause))
	e.metrics.ObservePlanSource(SourceFallback)

	return Plan{
		Source:  SourceFallback,
		Actions: FallbackPlan(req.Task, req.Snapshot),
		Cause:   errs.Wrap(errs.KindPlannerUnavailable, "agent.choosePlan", cause),
	}
}
