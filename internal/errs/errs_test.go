package errs

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/assert"
)

func TestSentinelMatching(t *testing.T) {
	err := fmt.Errorf("снимок страницы: %w", Wrap(KindStaleContext, "snapshot", errors.New("boom")))

	assert.ErrorIs(t, err, StaleContext)
	assert.NotErrorIs(t, err, NavigationFailed)
	assert.Equal(t, KindStaleContext, KindOf(err))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, KindNone},
		{"cancelled", context.Canceled, KindCancelled},
		{"deadline", fmt.Errorf("goto: %w", context.DeadlineExceeded), KindTimeout},
		{"playwright timeout", fmt.Errorf("%w: 5000ms exceeded", playwright.ErrTimeout), KindTimeout},
		{"target closed", fmt.Errorf("%w: page", playwright.ErrTargetClosed), KindStaleContext},
		{"context destroyed", errors.New("Execution context was destroyed, most likely because of a navigation"), KindStaleContext},
		{"dns", errors.New("page.goto: net::ERR_NAME_NOT_RESOLVED at https://nope.invalid"), KindNavigationFailed},
		{"other", errors.New("something odd"), KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestReasonNeverLeaksRawError(t *testing.T) {
	raw := errors.New("page.goto: net::ERR_NAME_NOT_RESOLVED at https://secret.internal/path")
	reason := Reason(Wrap(KindNavigationFailed, "navigate", raw))

	assert.Equal(t, "не удалось открыть сайт, проверьте URL", reason)
	assert.NotContains(t, reason, "secret.internal")
	assert.Equal(t, "не удалось выполнить запись", Reason(errors.New("panic: nil map")))
	assert.Empty(t, Reason(nil))
}

func TestErrorString(t *testing.T) {
	assert.Equal(t, "click: NoMatchingElement: нет видимых элементов", New(KindNoMatchingElement, "click", "нет видимых элементов").Error())
	assert.Equal(t, "StaleContext: x", Wrap(KindStaleContext, "", errors.New("x")).Error())
}

func TestParseKindInvertsString(t *testing.T) {
	for k := KindNone; k <= KindInternal; k++ {
		assert.Equal(t, k, ParseKind(k.String()))
	}
	assert.Equal(t, KindInternal, ParseKind("Bogus"))
}
