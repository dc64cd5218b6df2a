// Package selector turns element descriptions and planner hints into ranked
// locator candidates. Nothing here touches a live page.
package selector

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jiqing426/video-ai/internal/extractor"
)

type Tier int

const (
	TierTestID Tier = iota + 1
	TierSemantic
	TierText
	TierClassID
	TierPosition
)

func (t Tier) String() string {
	switch t {
	case TierTestID:
		return "test-id"
	case TierSemantic:
		return "semantic"
	case TierText:
		return "text"
	case TierClassID:
		return "class-id"
	case TierPosition:
		return "position"
	default:
		return "unknown"
	}
}

// Reliability is the empirical hit rate shown to users for each tier.
func (t Tier) Reliability() int {
	switch t {
	case TierTestID:
		return 95
	case TierSemantic:
		return 85
	case TierText:
		return 70
	case TierClassID:
		return 50
	case TierPosition:
		return 30
	default:
		return 0
	}
}

type Candidate struct {
	Selector string
	Tier     Tier
}

const maxExactText = 80

var groupSelectors = map[extractor.Role]string{
	extractor.RoleButton: `:is(button, input[type="button"], input[type="submit"])`,
	extractor.RoleInput:  `:is(input, textarea, select)`,
	extractor.RoleLink:   `a`,
	extractor.RoleForm:   `form`,
}

// Resolve returns candidates for d, most reliable first. A tier is emitted
// only when d carries the attribute it needs.
func Resolve(d extractor.ElementDescriptor) []Candidate {
	var out []Candidate
	add := func(tier Tier, sel string) {
		out = append(out, Candidate{Selector: sel, Tier: tier})
	}

	if d.TestID != "" {
		add(TierTestID, fmt.Sprintf(`[data-testid=%s]`, quote(d.TestID)))
		add(TierTestID, fmt.Sprintf(`[data-test=%s]`, quote(d.TestID)))
	}

	tag := tagFor(d)
	text := strings.TrimSpace(d.Text)

	switch d.Role {
	case extractor.RoleButton:
		if text != "" && len(text) <= maxExactText {
			if tag == "input" {
				add(TierSemantic, fmt.Sprintf(`input[type=%s][value=%s]`, quote(orDefault(d.InputType, "submit")), quote(text)))
			} else {
				add(TierSemantic, fmt.Sprintf(`%s:text-is(%s)`, tag, quote(text)))
			}
		}
		if d.InputType != "" && tag == "input" {
			add(TierSemantic, fmt.Sprintf(`input[type=%s]`, quote(d.InputType)))
		}
		if d.Name != "" {
			add(TierSemantic, fmt.Sprintf(`%s[name=%s]`, tag, quote(d.Name)))
		}
	case extractor.RoleInput:
		if d.Name != "" {
			add(TierSemantic, fmt.Sprintf(`%s[name=%s]`, tag, quote(d.Name)))
		}
		if d.Placeholder != "" {
			add(TierSemantic, fmt.Sprintf(`%s[placeholder=%s]`, tag, quote(d.Placeholder)))
		}
		if d.InputType != "" && tag == "input" {
			add(TierSemantic, fmt.Sprintf(`input[type=%s]`, quote(d.InputType)))
		}
	case extractor.RoleLink:
		if text != "" && len(text) <= maxExactText {
			add(TierSemantic, fmt.Sprintf(`a:text-is(%s)`, quote(text)))
		}
		if d.Href != "" {
			add(TierSemantic, fmt.Sprintf(`a[href=%s]`, quote(d.Href)))
		}
	case extractor.RoleForm:
		if d.Name != "" {
			add(TierSemantic, fmt.Sprintf(`form[name=%s]`, quote(d.Name)))
		}
		if d.Action != "" {
			add(TierSemantic, fmt.Sprintf(`form[action=%s]`, quote(d.Action)))
		}
	}

	if text != "" && d.Role != extractor.RoleInput && d.Role != extractor.RoleForm {
		short := truncate(text, maxExactText)
		if tag != "input" {
			add(TierText, fmt.Sprintf(`%s:has-text(%s)`, tag, quote(short)))
		}
		add(TierText, "text="+quote(short))
	}

	if d.ID != "" {
		if isIdent(d.ID) {
			add(TierClassID, "#"+d.ID)
		} else {
			add(TierClassID, fmt.Sprintf(`[id=%s]`, quote(d.ID)))
		}
	}
	if cls := firstClass(d.ClassName); cls != "" {
		add(TierClassID, tag+"."+cls)
	}

	if group, ok := groupSelectors[d.Role]; ok && d.Index >= 0 {
		add(TierPosition, fmt.Sprintf("%s >> nth=%d", group, d.Index))
	}

	return dedupe(out)
}

// Join renders candidates as one comma separated hint, the format the
// planner emits and FromHint parses.
func Join(cands []Candidate) string {
	parts := make([]string, len(cands))
	for i, c := range cands {
		parts[i] = c.Selector
	}
	return strings.Join(parts, ", ")
}

// FromHint splits a planner hint into candidates, repairs common syntax
// mistakes, drops unusable entries and ranks the rest by tier.
func FromHint(hint string) []Candidate {
	var out []Candidate
	for _, part := range splitTopLevel(hint) {
		if err := ValidateSelector(part); err != nil {
			continue
		}
		sel, _ := NormalizeSelector(part)
		out = append(out, Candidate{Selector: sel, Tier: classify(sel)})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Tier < out[j].Tier
	})
	return dedupe(out)
}

func tagFor(d extractor.ElementDescriptor) string {
	if d.Tag != "" && isIdent(d.Tag) {
		return strings.ToLower(d.Tag)
	}
	switch d.Role {
	case extractor.RoleButton:
		return "button"
	case extractor.RoleInput:
		return "input"
	case extractor.RoleLink:
		return "a"
	case extractor.RoleForm:
		return "form"
	default:
		return "*"
	}
}

func firstClass(className string) string {
	for _, c := range strings.Fields(className) {
		if isIdent(c) {
			return c
		}
	}
	return ""
}

// isIdent reports whether s can be used unescaped after # or . in CSS.
func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '-' || r == '_':
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		case r > 127:
		default:
			return false
		}
	}
	return !(len(s) > 1 && s[0] == '-' && s[1] >= '0' && s[1] <= '9')
}

func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func dedupe(in []Candidate) []Candidate {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, c := range in {
		if seen[c.Selector] {
			continue
		}
		seen[c.Selector] = true
		out = append(out, c)
	}
	return out
}
