// Package errs содержит таксономию ошибок движка записи.
//
// Ошибки уровня шага (NoMatchingElement, InvalidAction) попадают в журнал
// выполнения. Ошибки уровня сессии (NavigationFailed, StaleContext) прерывают
// запуск, но не отменяют закрытие сессии.
package errs

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/playwright-community/playwright-go"
)

type Kind int

const (
	KindNone Kind = iota
	KindEnvironmentUnsupported
	KindStaleContext
	KindNoMatchingElement
	KindNavigationFailed
	KindPlannerUnavailable
	KindInvalidAction
	KindCancelled
	KindTimeout
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return ""
	case KindEnvironmentUnsupported:
		return "EnvironmentUnsupported"
	case KindStaleContext:
		return "StaleContext"
	case KindNoMatchingElement:
		return "NoMatchingElement"
	case KindNavigationFailed:
		return "NavigationFailed"
	case KindPlannerUnavailable:
		return "PlannerUnavailable"
	case KindInvalidAction:
		return "InvalidAction"
	case KindCancelled:
		return "Cancelled"
	case KindTimeout:
		return "Timeout"
	default:
		return "Internal"
	}
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	*k = ParseKind(string(text))
	return nil
}

// ParseKind is the inverse of String. Unknown names map to KindInternal.
func ParseKind(s string) Kind {
	if s == "" {
		return KindNone
	}
	for k := KindEnvironmentUnsupported; k <= KindInternal; k++ {
		if k.String() == s {
			return k
		}
	}
	return KindInternal
}

type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Op == "" {
		return fmt.Sprintf("%s: %s", e.Kind, msg)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is позволяет сравнивать с сентинелами вида errs.StaleContext.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

var (
	EnvironmentUnsupported = &Error{Kind: KindEnvironmentUnsupported}
	StaleContext           = &Error{Kind: KindStaleContext}
	NoMatchingElement      = &Error{Kind: KindNoMatchingElement}
	NavigationFailed       = &Error{Kind: KindNavigationFailed}
	PlannerUnavailable     = &Error{Kind: KindPlannerUnavailable}
	InvalidAction          = &Error{Kind: KindInvalidAction}
)

func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

func Wrap(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf возвращает вид ошибки. Нетипизированные ошибки классифицируются по тексту.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Classify(err)
}

// Classify распознаёт ошибки playwright и контекста.
func Classify(err error) Kind {
	if err == nil {
		return KindNone
	}
	if errors.Is(err, context.Canceled) {
		return KindCancelled
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, playwright.ErrTimeout) {
		return KindTimeout
	}
	if errors.Is(err, playwright.ErrTargetClosed) || IsStaleMessage(err.Error()) {
		return KindStaleContext
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "net::ERR_"), strings.Contains(msg, "Navigation failed"):
		return KindNavigationFailed
	case strings.Contains(msg, "Timeout"), strings.Contains(msg, "timeout"):
		return KindTimeout
	}
	return KindInternal
}

// IsStaleMessage распознаёт сообщения драйвера о закрытой странице или
// уничтоженном контексте выполнения.
func IsStaleMessage(msg string) bool {
	for _, marker := range []string{
		"Target closed",
		"Target page, context or browser has been closed",
		"has been closed",
		"Execution context was destroyed",
		"frame was detached",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
