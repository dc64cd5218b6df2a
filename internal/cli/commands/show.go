package commands

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/jiqing426/video-ai/internal/cli/ui"
	"github.com/jiqing426/video-ai/internal/database"
)

// ShowHandler обрабатывает команды просмотра деталей
type ShowHandler struct {
	repo HistoryReader
	log  *zap.Logger
}

func NewShowHandler(repo HistoryReader, log *zap.Logger) *ShowHandler {
	return &ShowHandler{repo: repo, log: log}
}

// Show выводит детали записи со всеми шагами
func (h *ShowHandler) Show(ctx context.Context, w io.Writer, id string) error {
	if h.repo == nil {
		return ErrHistoryDisabled
	}

	rec, err := h.repo.GetRecordingByID(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		fmt.Fprintln(w, ui.ColorRed+ui.IconCross+" Запись не найдена"+ui.ColorReset)
		return err
	}
	if err != nil {
		h.log.Error("Ошибка получения записи", zap.String("session_id", id), zap.Error(err))
		return fmt.Errorf("ошибка получения записи: %w", err)
	}

	_, _, statusText := ui.FormatStatus(rec.Status)

	fmt.Fprintf(w, "\n"+ui.ColorBold+"=== Запись %s ==="+ui.ColorReset+"\n", rec.ID)
	fmt.Fprintf(w, ui.ColorCyan+ui.IconDocument+" Задача:"+ui.ColorReset+" %s\n", rec.Task)
	fmt.Fprintf(w, ui.ColorCyan+ui.IconGlobe+" URL:"+ui.ColorReset+" %s\n", rec.URL)
	fmt.Fprintf(w, ui.ColorCyan+ui.IconChart+" Статус:"+ui.ColorReset+" %s (%s, план: %s)\n", statusText, rec.Type, rec.PlanSource)
	fmt.Fprintf(w, ui.ColorCyan+ui.IconTime+" Начата:"+ui.ColorReset+" %s, длительность %s\n",
		rec.StartedAt.Format(ui.TimeLayout), ui.FormatDuration(rec.DurationMs))
	if rec.FailureReason != "" {
		fmt.Fprintf(w, ui.ColorRed+ui.IconChat+" Причина:"+ui.ColorReset+" %s\n", rec.FailureReason)
	}
	if rec.ArtifactPath != "" {
		fmt.Fprintf(w, ui.ColorCyan+ui.IconVideo+" Видео:"+ui.ColorReset+" %s\n", rec.ArtifactPath)
	}

	if len(rec.Steps) == 0 {
		fmt.Fprintln(w, "\n"+ui.ColorGray+"Шаги не найдены"+ui.ColorReset)
		fmt.Fprintln(w)
		return nil
	}

	fmt.Fprintf(w, "\n"+ui.ColorYellow+ui.IconLoop+" Шаги выполнения (%d):"+ui.ColorReset+"\n", len(rec.Steps))
	for _, step := range rec.Steps {
		icon, color, _ := ui.FormatStatus(step.Status)
		fmt.Fprintf(w, "\n"+ui.ColorBold+"[Шаг %d]"+ui.ColorReset+" %s%s"+ui.ColorReset+" "+ui.ColorCyan+"%s"+ui.ColorReset+" %s\n",
			step.StepNo, color, icon, step.ActionType, step.Description)
		if step.TargetSelector != "" {
			fmt.Fprintf(w, "  "+ui.ColorGray+"Селектор:"+ui.ColorReset+" %s\n", step.TargetSelector)
		}
		if step.ResolvedSelector != "" && step.ResolvedSelector != step.TargetSelector {
			fmt.Fprintf(w, "  "+ui.ColorGray+"Сработал:"+ui.ColorReset+" %s\n", step.ResolvedSelector)
		}
		if step.Value != "" {
			fmt.Fprintf(w, "  "+ui.ColorGray+"Значение:"+ui.ColorReset+" %s\n", step.Value)
		}
		if step.Reasoning != "" {
			fmt.Fprintf(w, "  "+ui.ColorGray+"Обоснование:"+ui.ColorReset+" %s\n", step.Reasoning)
		}
		if step.ErrorKind != "" {
			fmt.Fprintf(w, "  "+ui.ColorRed+"Ошибка:"+ui.ColorReset+" %s\n", step.ErrorKind)
		}
	}
	fmt.Fprintln(w)
	return nil
}
