package agent

import (
	"strings"

	"github.com/jiqing426/video-ai/internal/extractor"
	"github.com/jiqing426/video-ai/internal/llm"
	"github.com/jiqing426/video-ai/internal/selector"
)

const fallbackRationale = "встроенный план"

// relevantKeywords are checked in order against the task and then against
// button texts.
var relevantKeywords = []string{
	"submit", "send", "login", "register", "sign", "search",
	"buy", "purchase", "add", "create", "save", "continue",
}

// FallbackPlan builds a plan from the page alone: look at the page, fill the
// first input, press the most relevant button, scroll, look again.
func FallbackPlan(task string, snap *extractor.PageSnapshot) []llm.PlannedAction {
	plan := []llm.PlannedAction{
		{Kind: llm.ActionWait, TimeoutMs: 2000, Description: "Ожидание полной загрузки страницы", Rationale: fallbackRationale},
		{Kind: llm.ActionCapture, Description: "Снимок исходного состояния", Rationale: fallbackRationale},
	}

	if snap != nil {
		if len(snap.Inputs) > 0 {
			in := snap.Inputs[0]
			plan = append(plan, llm.PlannedAction{
				Kind:        llm.ActionFill,
				Target:      selector.Join(selector.Resolve(in)),
				Value:       RealisticValue(in.InputType, in.Placeholder),
				TimeoutMs:   5000,
				Description: "Заполнить " + firstNonEmpty(in.Placeholder, in.Name, "поле ввода"),
				Rationale:   fallbackRationale,
			})
		}

		if btn, ok := RelevantButton(snap.Buttons, task); ok {
			plan = append(plan, llm.PlannedAction{
				Kind:        llm.ActionClick,
				Target:      selector.Join(selector.Resolve(btn)),
				TimeoutMs:   5000,
				Description: "Нажать " + firstNonEmpty(btn.Text, "кнопку"),
				Rationale:   fallbackRationale,
			})
		}

		plan = append(plan, llm.PlannedAction{
			Kind:        llm.ActionScroll,
			Target:      "body",
			Description: "Прокрутить страницу",
			Rationale:   fallbackRationale,
		})
	}

	return append(plan, llm.PlannedAction{
		Kind:        llm.ActionCapture,
		Description: "Снимок итогового состояния",
		Rationale:   fallbackRationale,
	})
}

// RealisticValue подбирает правдоподобное значение для поля ввода.
func RealisticValue(inputType, placeholder string) string {
	switch strings.ToLower(inputType) {
	case "email":
		return "test@example.com"
	case "password":
		return "TestPassword123"
	case "text":
		if strings.Contains(strings.ToLower(placeholder), "name") {
			return "John Doe"
		}
		return "Test Input"
	case "search":
		return "search query"
	case "tel":
		return "+1234567890"
	case "url":
		return "https://example.com"
	case "number":
		return "123"
	default:
		return "Test Value"
	}
}

// RelevantButton picks the button matching a task keyword, else the first
// visible button, else the first one.
func RelevantButton(buttons []extractor.ElementDescriptor, task string) (extractor.ElementDescriptor, bool) {
	if len(buttons) == 0 {
		return extractor.ElementDescriptor{}, false
	}

	taskLower := strings.ToLower(task)
	for _, kw := range relevantKeywords {
		if !strings.Contains(taskLower, kw) {
			continue
		}
		for _, b := range buttons {
			if strings.Contains(strings.ToLower(b.Text), kw) {
				return b, true
			}
		}
	}

	for _, b := range buttons {
		if b.Visible {
			return b, true
		}
	}
	return buttons[0], true
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
