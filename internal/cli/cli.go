// Package cli собирает команды video-ai на cobra.
package cli

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jiqing426/video-ai/internal/agent"
	"github.com/jiqing426/video-ai/internal/cli/commands"
	"github.com/jiqing426/video-ai/internal/cli/ui"
	"github.com/jiqing426/video-ai/internal/llm"
)

// Server is the HTTP API started by the serve command.
type Server interface {
	Run(ctx context.Context) error
}

// Deps are built once in main. History may be nil when no database is
// configured.
type Deps struct {
	Recorder commands.Recorder
	Prober   agent.Prober
	History  commands.HistoryReader
	Server   Server
	Log      *zap.Logger
}

func NewRootCommand(d Deps) *cobra.Command {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}

	root := &cobra.Command{
		Use:           "video-ai",
		Short:         "Запись браузерных сценариев по описанию задачи",
		Version:       ui.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	root.AddCommand(
		newRecordCmd(commands.NewRecordHandler(d.Recorder, d.Log)),
		newEnvCmd(commands.NewEnvHandler(d.Prober)),
		newServeCmd(d.Server, d.Log),
		newHistoryCmd(commands.NewHistoryHandler(d.History, d.Log)),
		newShowCmd(commands.NewShowHandler(d.History, d.Log)),
		newLogsCmd(commands.NewLogsHandler(d.History, d.Log)),
	)
	return root
}

// Execute runs the command line until ctx is cancelled.
func Execute(ctx context.Context, d Deps, args []string) error {
	root := NewRootCommand(d)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func newRecordCmd(h *commands.RecordHandler) *cobra.Command {
	var (
		req    agent.Request
		mode   string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Открыть страницу, выполнить задачу и записать видео",
		Long: `Открывает страницу в браузере, строит план действий по задаче
и выполняет его с записью видео. Если браузер на хосте недоступен,
выводит план без выполнения.`,
		Example: `  video-ai record --url https://example.com --task "Войти тестовым аккаунтом"`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req.Mode = llm.Mode(mode)
			if !asJSON {
				ui.PrintWelcome(cmd.OutOrStdout())
			}
			return h.Record(cmd.Context(), cmd.OutOrStdout(), req, asJSON)
		},
	}

	cmd.Flags().StringVar(&req.URL, "url", "", "адрес страницы (обязательно)")
	cmd.Flags().StringVar(&req.Task, "task", "", "что нужно сделать на странице (обязательно)")
	cmd.Flags().StringVar(&mode, "mode", string(llm.ModeURLOnly), "режим планирования: url-only, url-prompt, code-aware")
	cmd.Flags().StringVar(&req.Workflow, "workflow", "", "описание сценария для режима url-prompt")
	cmd.Flags().StringVar(&req.KeyElements, "key-elements", "", "ключевые элементы страницы")
	cmd.Flags().StringVar(&req.Repository, "repository", "", "репозиторий приложения для режима code-aware")
	cmd.Flags().BoolVar(&asJSON, "json", false, "вывести результат в JSON")
	_ = cmd.MarkFlagRequired("url")
	_ = cmd.MarkFlagRequired("task")
	return cmd
}

func newEnvCmd(h *commands.EnvHandler) *cobra.Command {
	return &cobra.Command{
		Use:   "env",
		Short: "Проверить, можно ли записывать видео на этом хосте",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			h.Show(cmd.Context(), cmd.OutOrStdout())
			return nil
		},
	}
}

func newServeCmd(srv Server, log *zap.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Запустить HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ui.PrintWelcome(cmd.OutOrStdout())
			ui.PrintHint(cmd.OutOrStdout(), "POST /api/recordings запускает запись, GET /metrics отдаёт метрики")
			log.Info("Запуск HTTP API")
			return srv.Run(cmd.Context())
		},
	}
}

func newHistoryCmd(h *commands.HistoryHandler) *cobra.Command {
	var limit, offset int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Список сохранённых записей",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return h.List(cmd.Context(), cmd.OutOrStdout(), limit, offset)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "сколько записей показать")
	cmd.Flags().IntVar(&offset, "offset", 0, "сколько записей пропустить")
	return cmd
}

func newShowCmd(h *commands.ShowHandler) *cobra.Command {
	return &cobra.Command{
		Use:   "show <session-id>",
		Short: "Детали записи со всеми шагами",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return h.Show(cmd.Context(), cmd.OutOrStdout(), args[0])
		},
	}
}

func newLogsCmd(h *commands.LogsHandler) *cobra.Command {
	return &cobra.Command{
		Use:   "logs <session-id>",
		Short: "Запросы к LLM, сделанные во время записи",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return h.Show(cmd.Context(), cmd.OutOrStdout(), args[0])
		},
	}
}
