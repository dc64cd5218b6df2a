package commands

import (
	"context"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/jiqing426/video-ai/internal/cli/ui"
)

const previewLen = 300

// LogsHandler обрабатывает команды просмотра логов LLM
type LogsHandler struct {
	repo HistoryReader
	log  *zap.Logger
}

func NewLogsHandler(repo HistoryReader, log *zap.Logger) *LogsHandler {
	return &LogsHandler{repo: repo, log: log}
}

// Show выводит запросы к LLM, сделанные во время записи
func (h *LogsHandler) Show(ctx context.Context, w io.Writer, sessionID string) error {
	if h.repo == nil {
		return ErrHistoryDisabled
	}

	logs, err := h.repo.ListLLMLogs(ctx, sessionID)
	if err != nil {
		h.log.Error("Ошибка получения логов", zap.String("session_id", sessionID), zap.Error(err))
		return fmt.Errorf("ошибка получения логов: %w", err)
	}

	fmt.Fprintf(w, "\n"+ui.ColorBold+"=== "+ui.IconList+" Логи LLM сессии %s ==="+ui.ColorReset+"\n", sessionID)
	if len(logs) == 0 {
		fmt.Fprintln(w, ui.ColorGray+"Запросов к LLM не было"+ui.ColorReset)
		return nil
	}

	for _, l := range logs {
		fmt.Fprintf(w, ui.ColorGray+"[%s]"+ui.ColorReset+" "+ui.ColorCyan+"%s"+ui.ColorReset+" %s, токенов: %d\n",
			l.CreatedAt.Format("15:04:05"), l.Role, l.Model, l.TokensUsed)
		if l.Role == "error" {
			fmt.Fprintf(w, "  "+ui.ColorRed+"[ОШИБКА]"+ui.ColorReset+" %s\n", preview(l.ResponseText))
			continue
		}
		fmt.Fprintf(w, "  "+ui.ColorGray+"%s"+ui.ColorReset+"\n", preview(l.ResponseText))
	}
	fmt.Fprintln(w)
	return nil
}

func preview(s string) string {
	s = strings.TrimSpace(s)
	if r := []rune(s); len(r) > previewLen {
		return string(r[:previewLen]) + "…"
	}
	return s
}
