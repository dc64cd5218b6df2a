package extractor

import "context"

type Role string

const (
	RoleButton Role = "button"
	RoleInput  Role = "input"
	RoleLink   Role = "link"
	RoleForm   Role = "form"
)

// ElementDescriptor описывает интерактивный элемент одного снимка страницы.
// Отсутствующие атрибуты представлены пустыми строками.
type ElementDescriptor struct {
	Role        Role   `json:"role"`
	Tag         string `json:"tag,omitempty"`
	Text        string `json:"text,omitempty"`
	ID          string `json:"id,omitempty"`
	ClassName   string `json:"className,omitempty"`
	TestID      string `json:"testId,omitempty"`
	InputType   string `json:"inputType,omitempty"`
	Placeholder string `json:"placeholder,omitempty"`
	Name        string `json:"name,omitempty"`
	Href        string `json:"href,omitempty"`
	Action      string `json:"action,omitempty"`
	Method      string `json:"method,omitempty"`
	Visible     bool   `json:"visible"`
	// Index is the position inside its role group, in document order.
	Index int `json:"index"`
}

type PageSnapshot struct {
	Title        string              `json:"title"`
	URL          string              `json:"url"`
	Buttons      []ElementDescriptor `json:"buttons"`
	Inputs       []ElementDescriptor `json:"inputs"`
	Links        []ElementDescriptor `json:"links"`
	Forms        []ElementDescriptor `json:"forms"`
	HasLoginForm bool                `json:"hasLoginForm"`
	HasSearchBox bool                `json:"hasSearchBox"`
}

// Counts возвращает количество элементов по группам.
func (s *PageSnapshot) Counts() (buttons, inputs, links, forms int) {
	if s == nil {
		return 0, 0, 0, 0
	}
	return len(s.Buttons), len(s.Inputs), len(s.Links), len(s.Forms)
}

// Page is the part of a live page the analyzer needs.
type Page interface {
	URL() string
	IsClosed() bool
	Evaluate(ctx context.Context, expression string, arg any) (any, error)
}
