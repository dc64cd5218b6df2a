package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jiqing426/video-ai/internal/agent"
	"github.com/jiqing426/video-ai/internal/capability"
	"github.com/jiqing426/video-ai/internal/config"
	"github.com/jiqing426/video-ai/internal/database"
	"github.com/jiqing426/video-ai/internal/errs"
	"github.com/jiqing426/video-ai/internal/metrics"
)

type fakeRecorder struct {
	mu      sync.Mutex
	reqs    []agent.Request
	block   chan struct{}
	started chan struct{}
	err     error
}

func (f *fakeRecorder) Run(_ context.Context, req agent.Request) (*agent.Result, error) {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()

	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return nil, f.err
	}
	return &agent.Result{
		Type:      agent.ResultRecording,
		SessionID: "sess-1",
		Request:   req,
		ErrorKind: errs.KindNone,
	}, nil
}

type staticProber capability.Capabilities

func (p staticProber) Detect(context.Context) capability.Capabilities {
	return capability.Capabilities(p)
}

type memoryHistory struct {
	recs map[string]database.Recording
}

func (h *memoryHistory) ListRecordings(_ context.Context, limit, _ int) ([]database.Recording, error) {
	out := make([]database.Recording, 0, len(h.recs))
	for _, r := range h.recs {
		out = append(out, r)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (h *memoryHistory) GetRecordingByID(_ context.Context, id string) (*database.Recording, error) {
	r, ok := h.recs[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return &r, nil
}

func newTestServer(rec Recorder, history History, maxConcurrent int) *Server {
	prober := staticProber{HasAutomationDriver: true, HasBrowserEngine: true}
	return New(config.App{MaxConcurrent: maxConcurrent}, nil, rec, prober, history, metrics.NewCollector("test"))
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	h := newTestServer(&fakeRecorder{}, nil, 1).Router()

	rec := do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestEnvironment(t *testing.T) {
	h := newTestServer(&fakeRecorder{}, nil, 1).Router()

	rec := do(t, h, http.MethodGet, "/api/environment", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var report capability.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.True(t, report.CanRecord)
}

func TestCreateRecording(t *testing.T) {
	fr := &fakeRecorder{}
	h := newTestServer(fr, nil, 1).Router()

	rec := do(t, h, http.MethodPost, "/api/recordings", `{"url":" https://example.com ","task":"Login"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res agent.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "sess-1", res.SessionID)

	require.Len(t, fr.reqs, 1)
	assert.Equal(t, "https://example.com", fr.reqs[0].URL)
	assert.NotEmpty(t, fr.reqs[0].Mode)
}

func TestCreateRecordingRejectsBadInput(t *testing.T) {
	fr := &fakeRecorder{}
	h := newTestServer(fr, nil, 1).Router()

	cases := map[string]string{
		"bad json":     `{"url":`,
		"missing url":  `{"task":"Login"}`,
		"relative url": `{"url":"/login","task":"Login"}`,
		"missing task": `{"url":"https://example.com"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/api/recordings", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
	assert.Empty(t, fr.reqs)
}

func TestCreateRecordingInternalError(t *testing.T) {
	h := newTestServer(&fakeRecorder{err: errors.New("boom")}, nil, 1).Router()

	rec := do(t, h, http.MethodPost, "/api/recordings", `{"url":"https://example.com","task":"Login"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestCreateRecordingConcurrencyCap(t *testing.T) {
	fr := &fakeRecorder{block: make(chan struct{}), started: make(chan struct{}, 1)}
	h := newTestServer(fr, nil, 1).Router()
	body := `{"url":"https://example.com","task":"Login"}`

	done := make(chan int, 1)
	go func() {
		done <- do(t, h, http.MethodPost, "/api/recordings", body).Code
	}()

	select {
	case <-fr.started:
	case <-time.After(2 * time.Second):
		t.Fatal("первая запись не стартовала")
	}

	rec := do(t, h, http.MethodPost, "/api/recordings", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	close(fr.block)
	assert.Equal(t, http.StatusOK, <-done)
}

func TestRecordingHistory(t *testing.T) {
	history := &memoryHistory{recs: map[string]database.Recording{
		"a": {ID: "a", URL: "https://example.com", Status: "succeeded"},
	}}
	h := newTestServer(&fakeRecorder{}, history, 1).Router()

	rec := do(t, h, http.MethodGet, "/api/recordings?limit=10", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []database.Recording
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	rec = do(t, h, http.MethodGet, "/api/recordings/a", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/recordings/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHistoryDisabled(t *testing.T) {
	h := newTestServer(&fakeRecorder{}, nil, 1).Router()

	rec := do(t, h, http.MethodGet, "/api/recordings", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsRoute(t *testing.T) {
	h := newTestServer(&fakeRecorder{}, nil, 1).Router()
	do(t, h, http.MethodGet, "/health", "")

	rec := do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `test_http_requests_total{method="GET",route="/health",status="OK"} 1`)
}
