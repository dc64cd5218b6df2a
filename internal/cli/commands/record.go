// Package commands содержит обработчики команд CLI. Каждый обработчик пишет
// в переданный io.Writer.
package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/jiqing426/video-ai/internal/agent"
	"github.com/jiqing426/video-ai/internal/cli/ui"
)

type Recorder interface {
	Run(ctx context.Context, req agent.Request) (*agent.Result, error)
}

// ErrRecordingFailed возвращается, когда запись завершилась, но с ошибкой.
var ErrRecordingFailed = errors.New("запись завершилась с ошибкой")

// RecordHandler обрабатывает команду записи
type RecordHandler struct {
	recorder Recorder
	log      *zap.Logger
}

func NewRecordHandler(recorder Recorder, log *zap.Logger) *RecordHandler {
	return &RecordHandler{recorder: recorder, log: log}
}

// Record запускает запись и печатает итог. asJSON печатает результат целиком.
func (h *RecordHandler) Record(ctx context.Context, w io.Writer, req agent.Request, asJSON bool) error {
	if err := req.Validate(); err != nil {
		fmt.Fprintf(w, ui.ColorRed+ui.IconCross+" %v"+ui.ColorReset+"\n", err)
		return err
	}

	if !asJSON {
		fmt.Fprintf(w, ui.ColorCyan+ui.IconPlay+" Запись %s:"+ui.ColorReset+" %s\n", req.URL, req.Task)
	}

	res, err := h.recorder.Run(ctx, req)
	if res == nil {
		if err == nil {
			err = errors.New("пустой результат записи")
		}
		h.log.Error("Ошибка записи", zap.Error(err))
		fmt.Fprintf(w, ui.ColorRed+ui.IconCross+" Ошибка:"+ui.ColorReset+" %v\n", err)
		return err
	}

	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(res); encErr != nil {
			return encErr
		}
	} else {
		printResult(w, res)
	}

	if !res.Succeeded() {
		return ErrRecordingFailed
	}
	return nil
}

func printResult(w io.Writer, res *agent.Result) {
	fmt.Fprintln(w)
	if res.Type == agent.ResultSimulation {
		fmt.Fprintln(w, ui.ColorYellow+ui.IconBulb+" Браузер недоступен, показан план без выполнения"+ui.ColorReset)
	}
	fmt.Fprintf(w, ui.ColorBold+"=== Сессия %s ==="+ui.ColorReset+"\n", res.SessionID)
	fmt.Fprintf(w, ui.ColorCyan+ui.IconDocument+" Страница:"+ui.ColorReset+" %s (кнопок %d, полей %d, ссылок %d, форм %d)\n",
		res.Page.Title, res.Page.Buttons, res.Page.Inputs, res.Page.Links, res.Page.Forms)

	source := string(res.PlanSource)
	if res.PlannerError.String() != "" {
		source += " (" + res.PlannerError.String() + ")"
	}
	fmt.Fprintf(w, ui.ColorCyan+ui.IconList+" План:"+ui.ColorReset+" %s\n", source)

	for _, e := range res.Log {
		icon, color, text := ui.FormatStatus(string(e.Status))
		fmt.Fprintf(w, "  %s%s"+ui.ColorReset+" [%d] "+ui.ColorCyan+"%s"+ui.ColorReset+" %s", color, icon, e.Index+1, e.Kind, e.Description)
		if e.ResolvedSelector != "" {
			fmt.Fprintf(w, " → "+ui.ColorYellow+"%s"+ui.ColorReset, e.ResolvedSelector)
		}
		if e.ErrorKind.String() != "" {
			fmt.Fprintf(w, " "+ui.ColorRed+"%s: %s"+ui.ColorReset, text, e.ErrorKind)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, ui.ColorCyan+ui.IconChart+" Шагов:"+ui.ColorReset+" %d из %d успешно\n",
		res.Log.Count(agent.StatusSucceeded), len(res.Log))
	fmt.Fprintf(w, ui.ColorCyan+ui.IconTime+" Длительность:"+ui.ColorReset+" %s\n", ui.FormatDuration(res.Duration.Milliseconds()))
	if res.ArtifactPath != "" {
		fmt.Fprintf(w, ui.ColorCyan+ui.IconVideo+" Видео:"+ui.ColorReset+" %s\n", res.ArtifactPath)
	}
	for _, s := range res.Screenshots {
		fmt.Fprintf(w, "  "+ui.ColorGray+"скриншот:"+ui.ColorReset+" %s\n", s)
	}

	if res.Succeeded() {
		fmt.Fprintln(w, ui.ColorGreen+ui.IconCheckmark+" Запись завершена"+ui.ColorReset)
	} else {
		fmt.Fprintf(w, ui.ColorRed+ui.IconCross+" Ошибка:"+ui.ColorReset+" %s\n", res.FailureReason)
	}
	fmt.Fprintln(w)
}
