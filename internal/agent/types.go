// Package agent записывает браузерные сессии: открывает страницу, анализирует
// её, получает план действий и выполняет его, собирая артефакты.
package agent

import (
	"context"
	"time"

	"github.com/jiqing426/video-ai/internal/capability"
	"github.com/jiqing426/video-ai/internal/errs"
	"github.com/jiqing426/video-ai/internal/llm"
)

type StepStatus string

const (
	StatusPending   StepStatus = "pending"
	StatusRunning   StepStatus = "running"
	StatusSucceeded StepStatus = "succeeded"
	StatusFailed    StepStatus = "failed"
)

// ExecutionStep is the runtime state of one planned action.
type ExecutionStep struct {
	Action           llm.PlannedAction
	Status           StepStatus
	ResolvedSelector string
	ErrorKind        errs.Kind
}

type LogEntry struct {
	Index            int            `json:"index"`
	Kind             llm.ActionKind `json:"kind"`
	Description      string         `json:"description"`
	Target           string         `json:"target,omitempty"`
	Value            string         `json:"value,omitempty"`
	Status           StepStatus     `json:"status"`
	ErrorKind        errs.Kind      `json:"errorKind,omitempty"`
	ResolvedSelector string         `json:"resolvedSelector,omitempty"`
	Duration         time.Duration  `json:"duration"`
}

// ExecutionLog has exactly one entry per planned action, in plan order.
type ExecutionLog []LogEntry

func (l ExecutionLog) Count(status StepStatus) int {
	n := 0
	for _, e := range l {
		if e.Status == status {
			n++
		}
	}
	return n
}

type PlanSource string

const (
	SourcePlanned  PlanSource = "planned"
	SourceFallback PlanSource = "fallback"
)

type ResultType string

const (
	ResultRecording  ResultType = "recording"
	ResultSimulation ResultType = "simulation"
)

type Request struct {
	URL         string   `json:"url"`
	Task        string   `json:"task"`
	Mode        llm.Mode `json:"mode"`
	Workflow    string   `json:"workflow,omitempty"`
	KeyElements string   `json:"keyElements,omitempty"`
	Repository  string   `json:"repository,omitempty"`
}

type PageSummary struct {
	Title   string `json:"title"`
	Buttons int    `json:"buttons"`
	Inputs  int    `json:"inputs"`
	Links   int    `json:"links"`
	Forms   int    `json:"forms"`
}

// Result is everything a recording leaves behind once its session is gone.
type Result struct {
	Type          ResultType          `json:"type"`
	SessionID     string              `json:"sessionId"`
	Request       Request             `json:"request"`
	Capabilities  capability.Report   `json:"capabilities"`
	ArtifactPath  string              `json:"artifactPath,omitempty"`
	Screenshots   []string            `json:"screenshots,omitempty"`
	Plan          []llm.PlannedAction `json:"plan"`
	PlanSource    PlanSource          `json:"planSource"`
	PlannerError  errs.Kind           `json:"plannerError,omitempty"`
	Log           ExecutionLog        `json:"log"`
	Page          PageSummary         `json:"page"`
	ErrorKind     errs.Kind           `json:"errorKind,omitempty"`
	FailureReason string              `json:"failureReason,omitempty"`
	StartedAt     time.Time           `json:"startedAt"`
	Duration      time.Duration       `json:"duration"`
}

func (r *Result) Succeeded() bool {
	return r.ErrorKind == errs.KindNone
}

// ArtifactSink receives finished recordings after the browser is closed.
type ArtifactSink interface {
	Deliver(ctx context.Context, res *Result) error
}

// Prober reports what the host can do.
type Prober interface {
	Detect(ctx context.Context) capability.Capabilities
}

// Metrics receives engine observations. Implementations must be safe for
// concurrent use.
type Metrics interface {
	ObserveStep(kind llm.ActionKind, status StepStatus, errKind errs.Kind, d time.Duration)
	ObserveRecording(resultType ResultType, errKind errs.Kind, d time.Duration)
	ObserveNavigationRetry()
	ObservePlanSource(source PlanSource)
	ObserveCapabilities(caps capability.Capabilities)
}

type nopMetrics struct{}

func (nopMetrics) ObserveStep(llm.ActionKind, StepStatus, errs.Kind, time.Duration) {}
func (nopMetrics) ObserveRecording(ResultType, errs.Kind, time.Duration) {}
func (nopMetrics) ObserveNavigationRetry() {}
func (nopMetrics) ObservePlanSource(PlanSource) {}
func (nopMetrics) ObserveCapabilities(capability.Capabilities) {}
