// Package llm планирует действия записи с помощью OpenAI. Включает rate
// limiting, разбор ответа модели и логирование запросов.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/jiqing426/video-ai/internal/extractor"
)

// ActionKind is the closed set of step kinds the executor understands.
type ActionKind string

const (
	ActionClick   ActionKind = "click"
	ActionFill    ActionKind = "fill"
	ActionSelect  ActionKind = "select"
	ActionWait    ActionKind = "wait"
	ActionScroll  ActionKind = "scroll"
	ActionHover   ActionKind = "hover"
	ActionCapture ActionKind = "capture"
)

var actionKinds = map[string]ActionKind{
	"click":      ActionClick,
	"fill":       ActionFill,
	"select":     ActionSelect,
	"wait":       ActionWait,
	"scroll":     ActionScroll,
	"hover":      ActionHover,
	"capture":    ActionCapture,
	"screenshot": ActionCapture,
}

// ParseActionKind accepts the planner's vocabulary, including "screenshot".
func ParseActionKind(s string) (ActionKind, bool) {
	k, ok := actionKinds[strings.ToLower(strings.TrimSpace(s))]
	return k, ok
}

// PlannedAction is one step of a plan. Target is a comma separated list of
// selector candidates.
type PlannedAction struct {
	Kind        ActionKind `json:"kind"`
	Target      string     `json:"target,omitempty"`
	Value       string     `json:"value,omitempty"`
	TimeoutMs   int        `json:"timeoutMs,omitempty"`
	Description string     `json:"description"`
	Rationale   string     `json:"rationale"`
}

type Mode string

const (
	ModeURLOnly   Mode = "url-only"
	ModeURLPrompt Mode = "url-prompt"
	ModeCodeAware Mode = "code-aware"
)

func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeURLOnly, nil
	case ModeURLOnly, ModeURLPrompt, ModeCodeAware:
		return m, nil
	default:
		return "", fmt.Errorf("неизвестный режим записи: %q", s)
	}
}

// PlanRequest is everything the planner may look at.
type PlanRequest struct {
	SessionID   string
	URL         string
	Task        string
	Mode        Mode
	Snapshot    *extractor.PageSnapshot
	Workflow    string
	KeyElements string
	Repository  string
}

// Planner определяет интерфейс планировщика действий.
type Planner interface {
	// Plan возвращает упорядоченный список действий для задачи. Пустой
	// список без ошибки допустим: вызывающая сторона использует встроенный план.
	Plan(ctx context.Context, req PlanRequest) ([]PlannedAction, error)
}

// Logger определяет интерфейс для логирования LLM запросов.
type Logger interface {
	// LogLLMRequest сохраняет уже очищенные от персональных данных промпт и ответ.
	LogLLMRequest(ctx context.Context, sessionID, role, promptText, responseText, model string, tokensUsed int) error
}
