package selector

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	colonSpacePattern      = regexp.MustCompile(`^([a-zA-Z][a-zA-Z0-9_.#-]*):\s+(.+)$`)
	containsDoublePattern  = regexp.MustCompile(`:contains\("([^"]*)"\)`)
	containsSinglePattern  = regexp.MustCompile(`:contains\('([^']*)'\)`)
	containsNoQuotePattern = regexp.MustCompile(`:contains\(([^)"']+)\)`)

	testIDPattern    = regexp.MustCompile(`\[data-test(id)?\s*[=\]]`)
	positionPattern  = regexp.MustCompile(`>>\s*nth=|:nth-child\(|:nth-of-type\(|:nth-match\(|:first-child|:last-child|:first-of-type|:last-of-type`)
	semanticPattern  = regexp.MustCompile(`^([a-zA-Z][a-zA-Z0-9-]*)?(\[(type|name|placeholder|href|value|aria-label|role|title|alt|for|action)\s*[*^$~|]?=)|:text-is\(`)
	textPattern      = regexp.MustCompile(`^text\s*=|:has-text\(|:text\(|^"[^"]*"$|^'[^']*'$`)
	classIDPattern   = regexp.MustCompile(`^[a-zA-Z*]*[#.]|^\[id\s*=|^\[class`)
	bareTagPattern   = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9-]*$`)
	xpathPattern     = regexp.MustCompile(`^(xpath=|//|\(//)`)
)

// NormalizeSelector repairs selector syntax that planners commonly produce but
// Playwright rejects: jQuery :contains() and "tag: Text" shorthand both become
// :has-text(). It reports whether anything changed.
func NormalizeSelector(selector string) (string, bool) {
	if selector == "" {
		return selector, false
	}

	normalized := selector
	changed := false

	if m := colonSpacePattern.FindStringSubmatch(normalized); m != nil {
		tagPart := strings.TrimSpace(m[1])
		textPart := strings.TrimSpace(m[2])
		if textPart != "" {
			normalized = tagPart + `:has-text(` + quote(textPart) + `)`
			changed = true
		}
	}

	normalized = containsDoublePattern.ReplaceAllStringFunc(normalized, func(match string) string {
		changed = true
		return `:has-text(` + quote(containsDoublePattern.FindStringSubmatch(match)[1]) + `)`
	})
	normalized = containsSinglePattern.ReplaceAllStringFunc(normalized, func(match string) string {
		changed = true
		return `:has-text(` + quote(containsSinglePattern.FindStringSubmatch(match)[1]) + `)`
	})
	normalized = containsNoQuotePattern.ReplaceAllStringFunc(normalized, func(match string) string {
		changed = true
		return `:has-text(` + quote(strings.TrimSpace(containsNoQuotePattern.FindStringSubmatch(match)[1])) + `)`
	})

	return normalized, changed
}

// ValidateSelector rejects values that cannot be selectors at all, most often a
// URL the planner put where a click target belongs.
func ValidateSelector(selector string) error {
	trimmed := strings.TrimSpace(selector)
	if trimmed == "" {
		return fmt.Errorf("селектор не может быть пустым")
	}
	if strings.HasPrefix(trimmed, "http://") || strings.HasPrefix(trimmed, "https://") {
		return fmt.Errorf("селектор не может быть URL: %s", selector)
	}
	if strings.Contains(trimmed, "://") {
		return fmt.Errorf("селектор не может содержать протокол (://): %s", selector)
	}
	return nil
}

func classify(sel string) Tier {
	switch {
	case testIDPattern.MatchString(sel):
		return TierTestID
	case positionPattern.MatchString(sel):
		return TierPosition
	case semanticPattern.MatchString(sel):
		return TierSemantic
	case textPattern.MatchString(sel):
		return TierText
	case classIDPattern.MatchString(sel), xpathPattern.MatchString(sel):
		return TierClassID
	case bareTagPattern.MatchString(sel):
		return TierPosition
	default:
		return TierClassID
	}
}

// splitTopLevel splits on commas that are outside quotes, brackets and
// parentheses, so `a:has-text("x, y")` stays in one piece.
func splitTopLevel(hint string) []string {
	var (
		parts []string
		cur   strings.Builder
		depth int
		quote rune
		esc   bool
	)
	flush := func() {
		if p := strings.TrimSpace(cur.String()); p != "" {
			parts = append(parts, p)
		}
		cur.Reset()
	}

	for _, r := range hint {
		switch {
		case esc:
			esc = false
		case r == '\\':
			esc = true
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '"' || r == '\'':
			quote = r
		case r == '(' || r == '[':
			depth++
		case r == ')' || r == ']':
			if depth > 0 {
				depth--
			}
		case r == ',' && depth == 0:
			flush()
			continue
		}
		cur.WriteRune(r)
	}
	flush()
	return parts
}
