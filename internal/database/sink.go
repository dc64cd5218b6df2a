package database

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jiqing426/video-ai/internal/agent"
	"github.com/jiqing426/video-ai/internal/sanitizer"
)

// RecordingSink сохраняет результаты записи. Текст шагов и задачи
// маскируется перед записью в БД.
type RecordingSink struct {
	repo      *RecordingRepository
	sanitizer *sanitizer.DataSanitizer
	log       *zap.Logger
}

var _ agent.ArtifactSink = (*RecordingSink)(nil)

func NewRecordingSink(repo *RecordingRepository, log *zap.Logger) *RecordingSink {
	if log == nil {
		log = zap.NewNop()
	}
	return &RecordingSink{repo: repo, sanitizer: sanitizer.New(), log: log}
}

func (s *RecordingSink) Deliver(ctx context.Context, res *agent.Result) error {
	rec := s.toRecording(res)
	if err := s.repo.CreateRecording(ctx, rec); err != nil {
		return fmt.Errorf("ошибка сохранения записи %s: %w", res.SessionID, err)
	}

	s.log.Info("Запись сохранена",
		zap.String("session_id", rec.ID),
		zap.String("status", rec.Status),
		zap.Int("steps", len(rec.Steps)))
	return nil
}

func (s *RecordingSink) toRecording(res *agent.Result) *Recording {
	status := "succeeded"
	if !res.Succeeded() {
		status = "failed"
	}

	rec := &Recording{
		ID:             res.SessionID,
		Type:           string(res.Type),
		URL:            s.sanitizer.Sanitize(res.Request.URL),
		Task:           s.sanitizer.Sanitize(res.Request.Task),
		Mode:           string(res.Request.Mode),
		Status:         status,
		ErrorKind:      res.ErrorKind.String(),
		FailureReason:  res.FailureReason,
		ArtifactPath:   res.ArtifactPath,
		Screenshots:    res.Screenshots,
		PlanSource:     string(res.PlanSource),
		PlannerError:   res.PlannerError.String(),
		Host:           res.Capabilities.Host,
		CanRecord:      res.Capabilities.CanRecord,
		PageTitle:      res.Page.Title,
		Buttons:        res.Page.Buttons,
		Inputs:         res.Page.Inputs,
		Links:          res.Page.Links,
		Forms:          res.Page.Forms,
		StepsTotal:     len(res.Log),
		StepsSucceeded: res.Log.Count(agent.StatusSucceeded),
		DurationMs:     res.Duration.Milliseconds(),
		StartedAt:      res.StartedAt,
	}

	rec.Steps = make([]RecordingStep, 0, len(res.Log))
	for _, e := range res.Log {
		var reasoning string
		if e.Index < len(res.Plan) {
			reasoning = res.Plan[e.Index].Rationale
		}
		rec.Steps = append(rec.Steps, RecordingStep{
			RecordingID:      res.SessionID,
			StepNo:           e.Index + 1,
			ActionType:       string(e.Kind),
			TargetSelector:   e.Target,
			ResolvedSelector: e.ResolvedSelector,
			Value:            s.sanitizer.SanitizeValue(e.Target, e.Value),
			Description:      s.sanitizer.Sanitize(e.Description),
			Reasoning:        s.sanitizer.Sanitize(reasoning),
			Status:           string(e.Status),
			ErrorKind:        e.ErrorKind.String(),
			DurationMs:       e.Duration.Milliseconds(),
		})
	}
	return rec
}
