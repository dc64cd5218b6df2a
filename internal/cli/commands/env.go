package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/jiqing426/video-ai/internal/agent"
	"github.com/jiqing426/video-ai/internal/cli/ui"
)

// EnvHandler показывает, что умеет текущий хост
type EnvHandler struct {
	prober agent.Prober
}

func NewEnvHandler(prober agent.Prober) *EnvHandler {
	return &EnvHandler{prober: prober}
}

func (h *EnvHandler) Show(ctx context.Context, w io.Writer) {
	report := h.prober.Detect(ctx).Report()

	fmt.Fprintf(w, "\n"+ui.ColorBold+ui.IconGlobe+" Окружение: %s"+ui.ColorReset+"\n", report.Environment)
	fmt.Fprintf(w, "  %s драйвер автоматизации\n", ui.Mark(report.HasAutomationDriver))
	fmt.Fprintf(w, "  %s браузер\n", ui.Mark(report.HasBrowserEngine))
	fmt.Fprintf(w, "  %s ffmpeg\n", ui.Mark(report.HasMuxer))

	if report.CanRecord {
		fmt.Fprintln(w, ui.ColorGreen+ui.IconCheckmark+" Запись видео доступна"+ui.ColorReset)
	} else {
		fmt.Fprintln(w, ui.ColorYellow+ui.IconCross+" Запись видео недоступна, команда record покажет план без выполнения"+ui.ColorReset)
	}
	fmt.Fprintln(w)
}
