package sanitizer

import "regexp"

// Rule replaces every match of Pattern with Replace. Replace may refer to
// capture groups.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
	Replace string
}

func rule(name, pattern, replace string) Rule {
	return Rule{Name: name, Pattern: regexp.MustCompile(pattern), Replace: replace}
}

// DefaultRules run in order; secrets with a key prefix go before the bare
// number and address patterns.
var DefaultRules = []Rule{
	rule("password", `(?i)(password|пароль|passwd|pwd)\s*[:=]\s*["']?[^"'\s]{3,}["']?`, `${1}: [FILTERED]`),
	rule("password-input", `(?i)(<input[^>]*type=["']password["'][^>]*value=["'])[^"']+`, `${1}[FILTERED]`),

	rule("bearer", `(?i)(bearer\s+)[a-zA-Z0-9_.-]{20,}`, `${1}[FILTERED]`),
	rule("token", `(?i)(token|токен|api[_-]?token)\s*[:=]\s*["']?[a-zA-Z0-9_.-]{20,}["']?`, `${1}: [FILTERED]`),
	rule("api-key", `(?i)(api[_-]?key|api[_-]?secret|secret[_-]?key|access[_-]?key|access[_-]?token)\s*[:=]\s*["']?[a-zA-Z0-9_-]{20,}["']?`, `${1}: [FILTERED]`),
	rule("openai-key", `sk-[a-zA-Z0-9_-]{32,}`, `[FILTERED]`),
	rule("stripe-key", `pk_[a-zA-Z0-9]{32,}`, `[FILTERED]`),

	rule("cookie", `(?i)(set-cookie|cookie|куки)(\s*[:=]\s*["']?)[^"'\n]{10,}`, `${1}${2}[FILTERED]`),
	rule("session", `(?i)(session[_-]?id|session[_-]?token)(\s*[:=]\s*["']?)[a-zA-Z0-9_-]{10,}`, `${1}${2}[FILTERED]`),

	rule("card", `\b\d{4}[-\s]?\d{4}[-\s]?\d{4}[-\s]?\d{4}\b`, `[FILTERED]`),
	rule("cvv", `(?i)(cvv2?|cvc2?)\s*[:=]\s*["']?\d{3,4}["']?`, `${1}: [FILTERED]`),

	rule("email", `\b[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}\b`, `[FILTERED_EMAIL]`),

	rule("phone-ru", `(?:\+7|\b8)\s?\(?\d{3}\)?\s?\d{3}[-.\s]?\d{2}[-.\s]?\d{2}\b`, `[FILTERED_PHONE]`),
	rule("phone-intl", `\+\d[\d\s().-]{8,}\d`, `[FILTERED_PHONE]`),
}
