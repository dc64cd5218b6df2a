package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	defaultTimeoutMs = 5000
	defaultRationale = "AI generated action"
)

var (
	embeddedArrayPattern = regexp.MustCompile(`\[[\s\S]*\]`)
	codeFencePattern     = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*(.*?)\\s*```$")
)

var ErrNoActions = errors.New("не удалось извлечь JSON с действиями из ответа модели")

// ParseActions reads the planner reply. It accepts a bare JSON array, an
// object holding the array under "actions" or "steps", or an array embedded
// in prose. Entries without a known type or a description are dropped.
func ParseActions(text string) ([]PlannedAction, error) {
	items, err := extractItems(text)
	if err != nil {
		return nil, err
	}

	actions := make([]PlannedAction, 0, len(items))
	for _, item := range items {
		if a, ok := toAction(item); ok {
			actions = append(actions, a)
		}
	}
	return actions, nil
}

func extractItems(text string) ([]map[string]any, error) {
	text = strings.TrimSpace(text)
	if m := codeFencePattern.FindStringSubmatch(text); m != nil {
		text = m[1]
	}

	var items []map[string]any
	if err := json.Unmarshal([]byte(text), &items); err == nil {
		return items, nil
	}

	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &wrapper); err == nil {
		for _, key := range []string{"actions", "steps"} {
			raw, ok := wrapper[key]
			if !ok {
				continue
			}
			if err := json.Unmarshal(raw, &items); err != nil {
				return nil, fmt.Errorf("поле %q не является массивом действий: %w", key, err)
			}
			return items, nil
		}
	}

	if match := embeddedArrayPattern.FindString(text); match != "" {
		if err := json.Unmarshal([]byte(match), &items); err == nil {
			return items, nil
		}
	}

	return nil, ErrNoActions
}

func toAction(item map[string]any) (PlannedAction, bool) {
	kind, ok := ParseActionKind(stringField(item, "type"))
	if !ok {
		return PlannedAction{}, false
	}
	description := strings.TrimSpace(stringField(item, "description"))
	if description == "" {
		return PlannedAction{}, false
	}

	timeout := intField(item, "timeout")
	if timeout <= 0 {
		timeout = defaultTimeoutMs
	}
	rationale := strings.TrimSpace(stringField(item, "reasoning"))
	if rationale == "" {
		rationale = defaultRationale
	}

	return PlannedAction{
		Kind:        kind,
		Target:      strings.TrimSpace(stringField(item, "selector")),
		Value:       stringField(item, "value"),
		TimeoutMs:   timeout,
		Description: description,
		Rationale:   rationale,
	}, true
}

func stringField(item map[string]any, key string) string {
	switch v := item[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

func intField(item map[string]any, key string) int {
	switch v := item[key].(type) {
	case float64:
		return int(v)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}
