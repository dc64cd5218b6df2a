// Package server отдаёт HTTP API записи: запуск записи, история, проверка
// окружения и метрики.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/jiqing426/video-ai/internal/agent"
	"github.com/jiqing426/video-ai/internal/config"
	"github.com/jiqing426/video-ai/internal/database"
	"github.com/jiqing426/video-ai/internal/metrics"
)

// Recorder runs one recording request.
type Recorder interface {
	Run(ctx context.Context, req agent.Request) (*agent.Result, error)
}

// History reads stored recordings. A nil History disables the history routes.
type History interface {
	ListRecordings(ctx context.Context, limit, offset int) ([]database.Recording, error)
	GetRecordingByID(ctx context.Context, id string) (*database.Recording, error)
}

type Server struct {
	cfg      config.App
	log      *zap.Logger
	recorder Recorder
	prober   agent.Prober
	history  History
	metrics  *metrics.Collector
	sessions *semaphore.Weighted
}

func New(cfg config.App, log *zap.Logger, recorder Recorder, prober agent.Prober, history History, m *metrics.Collector) *Server {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	if m == nil {
		m = metrics.NewCollector("video_ai")
	}
	return &Server{
		cfg:      cfg,
		log:      log,
		recorder: recorder,
		prober:   prober,
		history:  history,
		metrics:  m,
		sessions: semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/environment", s.environment)
		r.Post("/recordings", s.createRecording)
		r.Get("/recordings", s.listRecordings)
		r.Get("/recordings/{id}", s.getRecording)
	})
	return r
}

// Run слушает адрес из конфигурации до отмены ctx.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%s", s.cfg.Host, s.cfg.Port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Сервер запущен", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("ошибка остановки сервера: %w", err)
	}
	s.log.Info("Сервер остановлен")
	return nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)
		s.metrics.ObserveHTTP(r.Method, route, status, elapsed)

		s.log.Info("HTTP",
			zap.String("method", r.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("elapsed", elapsed),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

func (s *Server) environment(w http.ResponseWriter, r *http.Request) {
	if s.prober == nil {
		writeError(w, http.StatusServiceUnavailable, "проверка окружения не настроена")
		return
	}
	writeJSON(w, http.StatusOK, s.prober.Detect(r.Context()).Report())
}

// createRecording answers 200 with the result for every finished run,
// failed ones included. The outcome is in errorKind and failureReason.
func (s *Server) createRecording(w http.ResponseWriter, r *http.Request) {
	var req agent.Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "некорректный JSON: "+err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if !s.sessions.TryAcquire(1) {
		writeError(w, http.StatusTooManyRequests, "достигнут лимит одновременных записей")
		return
	}
	defer s.sessions.Release(1)

	res, err := s.recorder.Run(r.Context(), req)
	switch {
	case errors.Is(err, agent.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	case res == nil && err != nil:
		s.log.Error("Ошибка записи", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusOK, res)
	}
}

func (s *Server) listRecordings(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, "история записей отключена")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if offset < 0 {
		offset = 0
	}

	recs, err := s.history.ListRecordings(r.Context(), limit, offset)
	if err != nil {
		s.log.Error("Ошибка чтения истории", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "ошибка БД")
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) getRecording(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, "история записей отключена")
		return
	}

	rec, err := s.history.GetRecordingByID(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, database.ErrNotFound) {
		writeError(w, http.StatusNotFound, "запись не найдена")
		return
	}
	if err != nil {
		s.log.Error("Ошибка чтения записи", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "ошибка БД")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
