package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/jiqing426/video-ai/internal/agent"
	"github.com/jiqing426/video-ai/internal/browser"
	"github.com/jiqing426/video-ai/internal/capability"
	"github.com/jiqing426/video-ai/internal/cli"
	"github.com/jiqing426/video-ai/internal/cli/commands"
	"github.com/jiqing426/video-ai/internal/config"
	"github.com/jiqing426/video-ai/internal/database"
	"github.com/jiqing426/video-ai/internal/llm"
	"github.com/jiqing426/video-ai/internal/logger"
	"github.com/jiqing426/video-ai/internal/metrics"
	"github.com/jiqing426/video-ai/internal/migrations"
	"github.com/jiqing426/video-ai/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.Logger.Env, cfg.Logger.Level,
		logger.WithFile(cfg.Logger.File, cfg.Logger.MaxSizeMB, cfg.Logger.MaxBackups, cfg.Logger.MaxAgeDays))
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		history commands.HistoryReader
		srvHist server.History
		sink    agent.ArtifactSink
		llmLog  llm.Logger
	)
	if cfg.Database.Enabled() {
		if err := migrations.Run(cfg, log); err != nil {
			log.Fatal("Ошибка миграций", zap.Error(err))
		}

		db, err := database.New(cfg, log)
		if err != nil {
			log.Fatal("Ошибка подключения к БД", zap.Error(err))
		}
		defer db.Close(log)

		if !cfg.Migrations.Enabled {
			if err := db.AutoMigrate(); err != nil {
				log.Fatal("Ошибка создания таблиц", zap.Error(err))
			}
		}

		repo := database.NewRecordingRepository(db.DB)
		history, srvHist, llmLog = repo, repo, repo
		sink = database.NewRecordingSink(repo, log.Logger)
	} else {
		log.Warn("БД не настроена, история записей не сохраняется")
	}

	var planner llm.Planner
	if cfg.OpenAI.KeyAI != "" {
		planner = llm.NewClient(llm.ClientConfig{
			APIKey:            cfg.OpenAI.KeyAI,
			BaseURL:           cfg.OpenAI.BaseURL,
			Model:             cfg.OpenAI.Model,
			MaxTokens:         cfg.OpenAI.MaxTokens,
			Temperature:       cfg.OpenAI.Temperature,
			RequestsPerMinute: cfg.OpenAI.RequestsPerMinute,
			TokensPerHour:     cfg.OpenAI.TokensPerHour,
		}, llmLog, log.Logger)
	} else {
		log.Warn("OPENAI_API_KEY не задан, используется встроенный план")
	}

	prober := capability.New(capability.Config{
		Timeout:             cfg.Probe.Timeout,
		ContainerMarkerFile: cfg.Probe.ContainerMarkerFile,
		ContainerEnv:        cfg.Probe.ContainerEnv,
		CloudEnv:            cfg.Probe.CloudEnv,
		CloudEnvAlt:         cfg.Probe.CloudEnvAlt,
		DevModeEnv:          cfg.Probe.DevModeEnv,
		SystemBrowsers:      []string{cfg.Browser.SystemBrowser, "chromium-browser", "chromium"},
		FFmpegPath:          cfg.Probe.FFmpegPath,
	}, capability.WithLogger(log.Logger))

	launcher := browser.NewLauncher(browser.LauncherConfig{
		Headless:       cfg.Browser.Headless,
		SystemBrowser:  cfg.Browser.SystemBrowser,
		DefaultTimeout: cfg.Browser.DefaultTimeout,
	}, log.Logger)

	collector := metrics.NewCollector("video_ai")

	engine := agent.NewEngine(agent.EngineConfig{
		Budget:          cfg.Recorder.Budget,
		NavigateTimeout: cfg.Recorder.NavigateTimeout,
		PostNavSettle:   cfg.Recorder.PostNavSettle,
		Viewport:        browser.Viewport{Width: cfg.Browser.ViewportWidth, Height: cfg.Browser.ViewportHeight},
		OutputDir:       cfg.Browser.OutputDir,
		RecordHar:       cfg.Browser.RecordHar,
		Executor: agent.ExecutorConfig{
			VisibilityWait: cfg.Recorder.VisibilityWait,
			StepTimeout:    cfg.Recorder.StepTimeout,
			ActionTimeout:  cfg.Recorder.ActionTimeout,
			SettleScale:    cfg.Recorder.SettleScale,
		},
	}, prober, launcher, planner, sink, log.Logger,
		agent.WithMetrics(collector),
		agent.WithBreaker(agent.NewCircuitBreaker(cfg.OpenAI.BreakerFailures, cfg.OpenAI.BreakerReset)))

	srv := server.New(cfg.App, log.Logger, engine, prober, srvHist, collector)

	err = cli.Execute(ctx, cli.Deps{
		Recorder: engine,
		Prober:   prober,
		History:  history,
		Server:   srv,
		Log:      log.Logger,
	}, os.Args[1:])
	if err != nil {
		if !errors.Is(err, commands.ErrRecordingFailed) {
			fmt.Fprintln(os.Stderr, err)
		}
		log.Sync()
		os.Exit(1)
	}
}
