package extractor

import (
	"context"
	"fmt"
	"strings"

	"github.com/jiqing426/video-ai/internal/errs"
)

const snapshotScript = `() => {
	const attr = (el, name) => el.getAttribute(name) || "";
	const cls = (el) => typeof el.className === "string" ? el.className : attr(el, "class");
	const testId = (el) => attr(el, "data-testid") || attr(el, "data-test");
	const visible = (el) => el.offsetParent !== null;
	const text = (el) => (el.textContent || "").trim().replace(/\s+/g, " ").slice(0, 200);

	return {
		title: document.title,
		url: window.location.href,
		buttons: Array.from(document.querySelectorAll("button, input[type='button'], input[type='submit']")).map((el) => ({
			tag: el.tagName.toLowerCase(),
			text: el.tagName === "INPUT" ? (el.value || "") : text(el),
			id: el.id,
			className: cls(el),
			testId: testId(el),
			inputType: el.tagName === "INPUT" ? (el.type || "") : "",
			name: attr(el, "name"),
			visible: visible(el),
		})),
		inputs: Array.from(document.querySelectorAll("input, textarea, select")).map((el) => ({
			tag: el.tagName.toLowerCase(),
			id: el.id,
			className: cls(el),
			testId: testId(el),
			inputType: el.type || "text",
			placeholder: attr(el, "placeholder"),
			name: attr(el, "name"),
			visible: visible(el),
		})),
		links: Array.from(document.querySelectorAll("a")).map((el) => ({
			tag: "a",
			text: text(el),
			href: attr(el, "href"),
			id: el.id,
			className: cls(el),
			testId: testId(el),
			visible: visible(el),
		})),
		forms: Array.from(document.querySelectorAll("form")).map((el) => ({
			tag: "form",
			id: el.id,
			className: cls(el),
			testId: testId(el),
			name: attr(el, "name"),
			action: attr(el, "action"),
			method: (attr(el, "method") || "get").toLowerCase(),
			visible: visible(el),
		})),
	};
}`

// Snapshot извлекает структурный снимок живой страницы за один вызов evaluate.
// Разреженные и некорректные страницы не считаются ошибкой. Закрытая страница
// или уничтоженный контекст дают errs.StaleContext.
func Snapshot(ctx context.Context, page Page) (*PageSnapshot, error) {
	if page == nil || page.IsClosed() {
		return nil, errs.New(errs.KindStaleContext, "snapshot", "страница закрыта")
	}
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(errs.Classify(err), "snapshot", err)
	}

	raw, err := page.Evaluate(ctx, snapshotScript, nil)
	if err != nil {
		if page.IsClosed() || errs.Classify(err) == errs.KindStaleContext {
			return nil, errs.Wrap(errs.KindStaleContext, "snapshot", err)
		}
		return nil, fmt.Errorf("ошибка извлечения элементов: %w", err)
	}

	data, _ := raw.(map[string]interface{})
	snap := &PageSnapshot{
		Title:   str(data, "title"),
		URL:     str(data, "url"),
		Buttons: parseGroup(data, "buttons", RoleButton),
		Inputs:  parseGroup(data, "inputs", RoleInput),
		Links:   parseGroup(data, "links", RoleLink),
		Forms:   parseGroup(data, "forms", RoleForm),
	}
	if snap.URL == "" {
		snap.URL = page.URL()
	}
	snap.HasLoginForm, snap.HasSearchBox = deriveFlags(snap.Inputs)

	return snap, nil
}

func deriveFlags(inputs []ElementDescriptor) (hasLogin, hasSearch bool) {
	for _, in := range inputs {
		t := strings.ToLower(in.InputType)
		if t == "password" {
			hasLogin = true
		}
		if t == "search" || strings.Contains(strings.ToLower(in.Placeholder), "search") {
			hasSearch = true
		}
	}
	return hasLogin, hasSearch
}

func parseGroup(data map[string]interface{}, key string, role Role) []ElementDescriptor {
	items, ok := data[key].([]interface{})
	if !ok {
		return []ElementDescriptor{}
	}

	out := make([]ElementDescriptor, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		out = append(out, parseElement(m, role, len(out)))
	}
	return out
}

func parseElement(m map[string]interface{}, role Role, index int) ElementDescriptor {
	el := ElementDescriptor{
		Role:        role,
		Tag:         str(m, "tag"),
		Text:        str(m, "text"),
		ID:          str(m, "id"),
		ClassName:   strings.TrimSpace(str(m, "className")),
		TestID:      str(m, "testId"),
		InputType:   str(m, "inputType"),
		Placeholder: str(m, "placeholder"),
		Name:        str(m, "name"),
		Href:        str(m, "href"),
		Action:      str(m, "action"),
		Method:      str(m, "method"),
		Index:       index,
	}
	if visible, ok := m["visible"].(bool); ok {
		el.Visible = visible
	}
	return el
}

func str(m map[string]interface{}, key string) string {
	if m == nil {
		return ""
	}
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}
