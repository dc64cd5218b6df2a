// Package sanitizer маскирует персональные данные перед сохранением журнала
// записи и логов запросов к LLM.
package sanitizer

import (
	"strings"
)

type DataSanitizer struct {
	rules []Rule
}

// New builds a sanitizer from DefaultRules followed by extra.
func New(extra ...Rule) *DataSanitizer {
	rules := make([]Rule, 0, len(DefaultRules)+len(extra))
	rules = append(rules, DefaultRules...)
	rules = append(rules, extra...)
	return &DataSanitizer{rules: rules}
}

func (s *DataSanitizer) Sanitize(text string) string {
	if text == "" {
		return text
	}

	result := text
	for _, r := range s.rules {
		result = r.Pattern.ReplaceAllString(result, r.Replace)
	}
	return result
}

var secretFieldKeywords = []string{
	"password", "пароль", "passwd", "token", "secret", "api-key", "api_key",
	"card", "cvv", "cvc", "otp",
}

// SanitizeValue masks a value typed into the field described by target.
// Values for secret looking fields are dropped entirely.
func (s *DataSanitizer) SanitizeValue(target, value string) string {
	if value == "" {
		return value
	}

	lower := strings.ToLower(target)
	for _, keyword := range secretFieldKeywords {
		if strings.Contains(lower, keyword) {
			return "[FILTERED]"
		}
	}

	return s.Sanitize(value)
}
