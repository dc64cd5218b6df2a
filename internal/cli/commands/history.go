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

// HistoryReader читает сохранённые записи. nil означает, что БД не настроена.
type HistoryReader interface {
	ListRecordings(ctx context.Context, limit, offset int) ([]database.Recording, error)
	GetRecordingByID(ctx context.Context, id string) (*database.Recording, error)
	ListLLMLogs(ctx context.Context, sessionID string) ([]database.LlmLog, error)
}

// ErrHistoryDisabled возвращается командами истории без БД.
var ErrHistoryDisabled = errors.New("история записей отключена: не настроена БД (DB_HOST, DB_NAME)")

// HistoryHandler выводит список записей
type HistoryHandler struct {
	repo HistoryReader
	log  *zap.Logger
}

func NewHistoryHandler(repo HistoryReader, log *zap.Logger) *HistoryHandler {
	return &HistoryHandler{repo: repo, log: log}
}

func (h *HistoryHandler) List(ctx context.Context, w io.Writer, limit, offset int) error {
	if h.repo == nil {
		return ErrHistoryDisabled
	}

	recs, err := h.repo.ListRecordings(ctx, limit, offset)
	if err != nil {
		h.log.Error("Ошибка чтения истории", zap.Error(err))
		return fmt.Errorf("ошибка чтения истории: %w", err)
	}

	if len(recs) == 0 {
		fmt.Fprintln(w, ui.ColorGray+"Записей пока нет"+ui.ColorReset)
		return nil
	}

	fmt.Fprintln(w, "\n"+ui.ColorBold+ui.IconList+" История записей:"+ui.ColorReset)
	fmt.Fprintln(w)
	for _, r := range recs {
		icon, color, text := ui.FormatStatus(r.Status)
		fmt.Fprintf(w, "  "+ui.ColorBold+"%s"+ui.ColorReset+" %s%s %s"+ui.ColorReset+" "+ui.ColorGray+"%s, %s"+ui.ColorReset+"\n",
			r.ID, color, icon, text, r.Type, r.CreatedAt.Format(ui.TimeLayout))
		fmt.Fprintf(w, "  "+ui.ColorGray+"└─"+ui.ColorReset+" %s: %s\n", r.URL, r.Task)
		fmt.Fprintln(w)
	}
	return nil
}
