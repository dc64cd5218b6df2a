package agent_test

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jiqing426/video-ai/internal/agent"
	"github.com/jiqing426/video-ai/internal/browser"
	"github.com/jiqing426/video-ai/internal/browser/browsertest"
	"github.com/jiqing426/video-ai/internal/capability"
	"github.com/jiqing426/video-ai/internal/errs"
	"github.com/jiqing426/video-ai/internal/llm"
)

type staticProber struct {
	caps  capability.Capabilities
	calls atomic.Int32
}

func (p *staticProber) Detect(context.Context) capability.Capabilities {
	p.calls.Add(1)
	return p.caps
}

type fakePlanner struct {
	actions []llm.PlannedAction
	err     error
	calls   atomic.Int32
	last    atomic.Pointer[llm.PlanRequest]
}

func (p *fakePlanner) Plan(_ context.Context, req llm.PlanRequest) ([]llm.PlannedAction, error) {
	p.calls.Add(1)
	p.last.Store(&req)
	return p.actions, p.err
}

type memorySink struct {
	mu      sync.Mutex
	results []*agent.Result
}

func (s *memorySink) Deliver(_ context.Context, res *agent.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, res)
	return nil
}

func (s *memorySink) all() []*agent.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*agent.Result(nil), s.results...)
}

type countingMetrics struct {
	mu          sync.Mutex
	retries     int
	sources     []agent.PlanSource
	recordings  []agent.ResultType
	stepsByKind map[llm.ActionKind]int
}

func (m *countingMetrics) ObserveStep(kind llm.ActionKind, _ agent.StepStatus, _ errs.Kind, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stepsByKind == nil {
		m.stepsByKind = map[llm.ActionKind]int{}
	}
	m.stepsByKind[kind]++
}

func (m *countingMetrics) ObserveRecording(t agent.ResultType, _ errs.Kind, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recordings = append(m.recordings, t)
}

func (m *countingMetrics) ObserveNavigationRetry() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retries++
}

func (m *countingMetrics) ObservePlanSource(s agent.PlanSource) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sources = append(m.sources, s)
}

func (m *countingMetrics) ObserveCapabilities(capability.Capabilities) {}

func loginSnapshot() map[string]interface{} {
	return map[string]interface{}{
		"title": "Sign in",
		"url":   "https://example.com/login",
		"buttons": []interface{}{
			map[string]interface{}{"tag": "button", "text": "Sign in", "id": "login", "visible": true},
		},
		"inputs": []interface{}{
			map[string]interface{}{"tag": "input", "inputType": "email", "name": "email", "placeholder": "Email", "visible": true},
			map[string]interface{}{"tag": "input", "inputType": "password", "name": "password", "visible": true},
		},
		"links": []interface{}{},
		"forms": []interface{}{
			map[string]interface{}{"tag": "form", "action": "/session", "method": "post"},
		},
	}
}

type fixture struct {
	page     *browsertest.Page
	launcher *browsertest.Launcher
	prober   *staticProber
	planner  *fakePlanner
	sink     *memorySink
	metrics  *countingMetrics
}

func loginPage(t *testing.T) *browsertest.Page {
	page := browsertest.NewPage(`input[name="email"]`, `input[name="password"]`, "#login")
	page.EvaluateFunc = func(string, any) (any, error) { return loginSnapshot(), nil }
	page.VideoFile = filepath.Join(t.TempDir(), "video.webm")
	return page
}

func newFixture(t *testing.T) *fixture {
	page := loginPage(t)

	return &fixture{
		page:     page,
		launcher: browsertest.NewLauncher(page),
		prober:   &staticProber{caps: browsertest.RecordingCaps()},
		planner: &fakePlanner{actions: []llm.PlannedAction{
			{Kind: llm.ActionFill, Target: `input[name="email"]`, Value: "test@example.com", Description: "email"},
			{Kind: llm.ActionFill, Target: `input[name="password"]`, Value: "TestPassword123", Description: "password"},
			{Kind: llm.ActionClick, Target: `[data-testid="submit"], #login`, Description: "sign in"},
			{Kind: llm.ActionCapture, Description: "result"},
		}},
		sink:    &memorySink{},
		metrics: &countingMetrics{},
	}
}

func (f *fixture) engine(t *testing.T, opts ...agent.Option) *agent.Engine {
	cfg := agent.EngineConfig{
		Budget:          5 * time.Second,
		NavigateTimeout: time.Second,
		OutputDir:       t.TempDir(),
		Executor: agent.ExecutorConfig{
			VisibilityWait: 20 * time.Millisecond,
			StepTimeout:    100 * time.Millisecond,
			ActionTimeout:  50 * time.Millisecond,
		},
	}
	opts = append([]agent.Option{agent.WithMetrics(f.metrics)}, opts...)
	return agent.NewEngine(cfg, f.prober, f.launcher, f.planner, f.sink, nil, opts...)
}

func loginRequest() agent.Request {
	return agent.Request{URL: "https://example.com/login", Task: "Login with a test account"}
}

func TestRecordLoginFlow(t *testing.T) {
	f := newFixture(t)

	res, err := f.engine(t).Record(context.Background(), loginRequest())
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.True(t, res.Succeeded())
	assert.Equal(t, agent.ResultRecording, res.Type)
	assert.NotEmpty(t, res.SessionID)
	assert.Equal(t, f.page.VideoFile, res.ArtifactPath)
	assert.Equal(t, agent.SourcePlanned, res.PlanSource)
	assert.Equal(t, errs.KindNone, res.PlannerError)
	assert.Equal(t, llm.ModeURLOnly, res.Request.Mode)
	assert.Equal(t, agent.PageSummary{Title: "Sign in", Buttons: 1, Inputs: 2, Links: 0, Forms: 1}, res.Page)
	assert.Equal(t, 4, res.Log.Count(agent.StatusSucceeded))
	assert.Len(t, res.Screenshots, 1)
	assert.True(t, res.Capabilities.CanRecord)

	req := f.planner.last.Load()
	require.NotNil(t, req)
	assert.Equal(t, res.SessionID, req.SessionID)
	require.NotNil(t, req.Snapshot)
	assert.True(t, req.Snapshot.HasLoginForm)

	gotos := f.page.CallsOf("goto")
	require.Len(t, gotos, 1)
	assert.Equal(t, "networkidle", gotos[0].Value)

	assert.Equal(t, 1, f.launcher.Opens())
	assert.Equal(t, 3, f.launcher.ResourcesClosed())
	require.Len(t, f.sink.all(), 1)
	assert.Same(t, res, f.sink.all()[0])
	assert.Equal(t, []agent.ResultType{agent.ResultRecording}, f.metrics.recordings)
}

func TestRecordWithoutCapabilitiesNeverOpensBrowser(t *testing.T) {
	f := newFixture(t)
	f.prober.caps = capability.Capabilities{HasMuxer: true, Host: capability.HostManagedCloud}

	res, err := f.engine(t).Record(context.Background(), loginRequest())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.EnvironmentUnsupported))
	require.NotNil(t, res)
	assert.Equal(t, errs.KindEnvironmentUnsupported, res.ErrorKind)
	assert.Empty(t, res.ArtifactPath)
	assert.False(t, res.Capabilities.CanRecord)

	assert.Zero(t, f.launcher.Opens())
	assert.Empty(t, f.page.Calls())
	assert.Empty(t, f.sink.all())
	assert.Equal(t, []agent.ResultType{agent.ResultRecording}, f.metrics.recordings)
}

func TestRunFallsBackToSimulation(t *testing.T) {
	f := newFixture(t)
	f.prober.caps = capability.Capabilities{Host: capability.HostManagedCloud}

	res, err := f.engine(t).Run(context.Background(), loginRequest())
	require.NoError(t, err)

	assert.Equal(t, agent.ResultSimulation, res.Type)
	assert.Empty(t, res.ArtifactPath)
	assert.Equal(t, "managedCloud", res.Capabilities.Host)
	assert.Equal(t, len(f.planner.actions), len(res.Log))
	assert.Equal(t, len(res.Log), res.Log.Count(agent.StatusPending))
	assert.Equal(t, 2, res.Page.Inputs)

	req := f.planner.last.Load()
	require.NotNil(t, req)
	assert.Equal(t, "https://example.com/login - AI Test Analysis", req.Snapshot.Title)

	assert.Zero(t, f.launcher.Opens())
	assert.Empty(t, f.page.Calls())
	require.Len(t, f.sink.all(), 1)
	assert.Equal(t, agent.ResultSimulation, f.sink.all()[0].Type)
	assert.Equal(t, 1, int(f.prober.calls.Load()))
	assert.Equal(t, []agent.ResultType{agent.ResultSimulation}, f.metrics.recordings)
}

func TestRecordNavigationFailureLeavesNoArtifact(t *testing.T) {
	f := newFixture(t)
	f.page.GotoFunc = func(string, browser.LoadState) error {
		return errors.New("net::ERR_NAME_NOT_RESOLVED at https://example.com/login")
	}

	res, err := f.engine(t).Record(context.Background(), loginRequest())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.NavigationFailed))

	require.NotNil(t, res)
	assert.Equal(t, errs.KindNavigationFailed, res.ErrorKind)
	assert.Contains(t, res.FailureReason, "проверьте URL")
	assert.NotContains(t, res.FailureReason, "net::")
	assert.Empty(t, res.ArtifactPath)
	assert.Empty(t, res.Log)

	gotos := f.page.CallsOf("goto")
	require.Len(t, gotos, 2)
	assert.Equal(t, "networkidle", gotos[0].Value)
	assert.Equal(t, "domcontentloaded", gotos[1].Value)

	assert.Equal(t, 3, f.launcher.ResourcesClosed())
	assert.Equal(t, 1, f.metrics.retries)
	require.Len(t, f.sink.all(), 1)
	assert.Equal(t, errs.KindNavigationFailed, f.sink.all()[0].ErrorKind)
}

func TestRecordRetriesWithoutNetworkIdle(t *testing.T) {
	f := newFixture(t)
	f.page.GotoFunc = func(_ string, state browser.LoadState) error {
		if state == browser.LoadNetworkIdle {
			return errors.New("Timeout 1000ms exceeded waiting for networkidle")
		}
		return nil
	}

	res, err := f.engine(t).Record(context.Background(), loginRequest())
	require.NoError(t, err)
	assert.Equal(t, f.page.VideoFile, res.ArtifactPath)
	assert.Len(t, f.page.CallsOf("goto"), 2)
	assert.Equal(t, 1, f.metrics.retries)
}

func TestRecordUsesFallbackWhenPlannerFails(t *testing.T) {
	tests := []struct {
		name    string
		planner *fakePlanner
	}{
		{"error", &fakePlanner{err: errors.New("rate limited")}},
		{"empty plan", &fakePlanner{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.planner = tt.planner

			res, err := f.engine(t).Record(context.Background(), loginRequest())
			require.NoError(t, err)

			assert.True(t, res.Succeeded())
			assert.Equal(t, agent.SourceFallback, res.PlanSource)
			assert.Equal(t, errs.KindPlannerUnavailable, res.PlannerError)
			require.NotEmpty(t, res.Plan)
			assert.Equal(t, llm.ActionWait, res.Plan[0].Kind)
			assert.Len(t, res.Log, len(res.Plan))
			assert.Equal(t, []agent.PlanSource{agent.SourceFallback}, f.metrics.sources)
		})
	}
}

func TestRecordWithoutPlanner(t *testing.T) {
	f := newFixture(t)
	eng := agent.NewEngine(agent.EngineConfig{Budget: 5 * time.Second, OutputDir: t.TempDir()},
		f.prober, f.launcher, nil, nil, nil)

	res, err := eng.Record(context.Background(), loginRequest())
	require.NoError(t, err)
	assert.Equal(t, agent.SourceFallback, res.PlanSource)
}

func TestOpenBreakerSkipsPlanner(t *testing.T) {
	f := newFixture(t)
	f.launcher.NewPage = func() *browsertest.Page { return loginPage(t) }
	f.planner = &fakePlanner{err: errors.New("unavailable")}
	eng := f.engine(t, agent.WithBreaker(agent.NewCircuitBreaker(1, time.Minute)))

	for i := 0; i < 3; i++ {
		res, err := eng.Record(context.Background(), loginRequest())
		require.NoError(t, err, "recording %d", i)
		assert.Equal(t, agent.ResultRecording, res.Type)
		assert.Equal(t, agent.SourceFallback, res.PlanSource)
		assert.Equal(t, errs.KindPlannerUnavailable, res.PlannerError)
		assert.True(t, f.launcher.Page.IsClosed())
	}
	assert.Equal(t, int32(1), f.planner.calls.Load())
	assert.Equal(t, 3, f.launcher.PagesCreated())
	assert.Equal(t, []agent.PlanSource{agent.SourceFallback, agent.SourceFallback, agent.SourceFallback}, f.metrics.sources)
}

func TestResultHidesTypedSecrets(t *testing.T) {
	tests := []struct {
		name     string
		caps     capability.Capabilities
		wantType agent.ResultType
	}{
		{"recording", browsertest.RecordingCaps(), agent.ResultRecording},
		{"simulation", capability.Capabilities{Host: capability.HostManagedCloud}, agent.ResultSimulation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.prober.caps = tt.caps

			res, err := f.engine(t).Run(context.Background(), loginRequest())
			require.NoError(t, err)
			require.Equal(t, tt.wantType, res.Type)

			require.Len(t, res.Log, 4)
			assert.Equal(t, "[FILTERED_EMAIL]", res.Log[0].Value)
			assert.Equal(t, "[FILTERED]", res.Log[1].Value)
			assert.Equal(t, "[FILTERED_EMAIL]", res.Plan[0].Value)
			assert.Equal(t, "[FILTERED]", res.Plan[1].Value)

			body, err := json.Marshal(res)
			require.NoError(t, err)
			assert.NotContains(t, string(body), "TestPassword123")
			assert.NotContains(t, string(body), "test@example.com")

			// the planner's own plan is left intact
			assert.Equal(t, "TestPassword123", f.planner.actions[1].Value)
		})
	}
}

func TestRecordTypesRealValuesBeforeMasking(t *testing.T) {
	f := newFixture(t)

	res, err := f.engine(t).Record(context.Background(), loginRequest())
	require.NoError(t, err)
	assert.Equal(t, "[FILTERED]", res.Log[1].Value)

	fills := f.page.CallsOf("fill")
	require.Len(t, fills, 2)
	assert.Equal(t, "test@example.com", fills[0].Value)
	assert.Equal(t, "TestPassword123", fills[1].Value)
}

func TestRecordStopsOnStalePage(t *testing.T) {
	f := newFixture(t)
	f.page.OnAction = func(c browsertest.Call) {
		if c.Op == "fill" {
			f.page.SetClosed()
		}
	}

	res, err := f.engine(t).Record(context.Background(), loginRequest())
	require.Error(t, err)
	assert.Equal(t, errs.KindStaleContext, errs.KindOf(err))
	assert.Equal(t, errs.KindStaleContext, res.ErrorKind)
	require.Len(t, res.Log, 4)
	assert.Equal(t, agent.StatusSucceeded, res.Log[0].Status)
	assert.Equal(t, 3, res.Log.Count(agent.StatusFailed))
	assert.Equal(t, 3, f.launcher.ResourcesClosed())
}

func TestRecordRejectsInvalidRequest(t *testing.T) {
	f := newFixture(t)
	eng := f.engine(t)

	for _, req := range []agent.Request{
		{Task: "x"},
		{URL: "example.com", Task: "x"},
		{URL: "ftp://example.com", Task: "x"},
		{URL: "https://example.com"},
		{URL: "https://example.com", Task: "x", Mode: "telepathy"},
	} {
		res, err := eng.Run(context.Background(), req)
		assert.ErrorIs(t, err, agent.ErrInvalidRequest, "%+v", req)
		assert.Nil(t, res)
	}
	assert.Zero(t, f.prober.calls.Load())
}

func TestRequestValidateNormalizes(t *testing.T) {
	req := agent.Request{URL: "  https://example.com  ", Task: " search ", Mode: ""}
	require.NoError(t, req.Validate())
	assert.Equal(t, "https://example.com", req.URL)
	assert.Equal(t, "search", req.Task)
	assert.Equal(t, llm.ModeURLOnly, req.Mode)
}

func TestConcurrentRecordingsAreIndependent(t *testing.T) {
	const n = 4
	var wg sync.WaitGroup
	ids := make([]string, n)

	for i := 0; i < n; i++ {
		f := newFixture(t)
		eng := f.engine(t)
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := eng.Record(context.Background(), loginRequest())
			if assert.NoError(t, err) {
				ids[i] = res.SessionID
			}
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for _, id := range ids {
		assert.False(t, seen[id])
		assert.False(t, strings.TrimSpace(id) == "")
		seen[id] = true
	}
}
