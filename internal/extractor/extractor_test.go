package extractor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/jiqing426/video-ai/internal/errs"
)

type stubPage struct {
	result      any
	err         error
	closed      bool
	closeOnEval bool
}

func (p *stubPage) URL() string    { return "https://example.com/fallback" }
func (p *stubPage) IsClosed() bool { return p.closed }

func (p *stubPage) Evaluate(_ context.Context, _ string, _ any) (any, error) {
	if p.closeOnEval {
		p.closed = true
	}
	return p.result, p.err
}

func loginPage() map[string]interface{} {
	return map[string]interface{}{
		"title": "Sign in",
		"url":   "https://example.com/login",
		"buttons": []interface{}{
			map[string]interface{}{"tag": "button", "text": "Sign in", "id": "login", "className": "btn primary", "testId": "login-submit", "visible": true},
			map[string]interface{}{"tag": "button", "text": "Hidden", "visible": false},
		},
		"inputs": []interface{}{
			map[string]interface{}{"tag": "input", "inputType": "email", "placeholder": "Email", "name": "email", "visible": true},
			map[string]interface{}{"tag": "input", "inputType": "password", "name": "password", "visible": true},
		},
		"links": []interface{}{
			map[string]interface{}{"tag": "a", "text": "Forgot password?", "href": "/reset", "visible": true},
		},
		"forms": []interface{}{
			map[string]interface{}{"tag": "form", "id": "login-form", "action": "/session", "method": "post"},
		},
	}
}

func TestSnapshotGroupsElementsInOrder(t *testing.T) {
	snap, err := Snapshot(context.Background(), &stubPage{result: loginPage()})
	require.NoError(t, err)

	assert.Equal(t, "Sign in", snap.Title)
	assert.Equal(t, "https://example.com/login", snap.URL)
	require.Len(t, snap.Buttons, 2)
	assert.Equal(t, "login-submit", snap.Buttons[0].TestID)
	assert.Equal(t, RoleButton, snap.Buttons[0].Role)
	assert.Equal(t, 0, snap.Buttons[0].Index)
	assert.Equal(t, 1, snap.Buttons[1].Index)
	assert.False(t, snap.Buttons[1].Visible)

	require.Len(t, snap.Inputs, 2)
	assert.Equal(t, "email", snap.Inputs[0].InputType)
	assert.Equal(t, "/reset", snap.Links[0].Href)
	assert.Equal(t, "post", snap.Forms[0].Method)
	assert.False(t, snap.Forms[0].Visible)

	assert.True(t, snap.HasLoginForm)
	assert.False(t, snap.HasSearchBox)
}

func TestSnapshotSearchBoxByPlaceholder(t *testing.T) {
	page := &stubPage{result: map[string]interface{}{
		"inputs": []interface{}{
			map[string]interface{}{"inputType": "text", "placeholder": "Search products…"},
		},
	}}

	snap, err := Snapshot(context.Background(), page)
	require.NoError(t, err)
	assert.True(t, snap.HasSearchBox)
	assert.False(t, snap.HasLoginForm)
	assert.Equal(t, "https://example.com/fallback", snap.URL)
}

func TestSnapshotToleratesMalformedResult(t *testing.T) {
	page := &stubPage{result: map[string]interface{}{
		"buttons": []interface{}{"not-an-object", 42, map[string]interface{}{"text": 7, "visible": "yes"}},
		"inputs":  "oops",
	}}

	snap, err := Snapshot(context.Background(), page)
	require.NoError(t, err)
	require.Len(t, snap.Buttons, 1)
	assert.Empty(t, snap.Buttons[0].Text)
	assert.False(t, snap.Buttons[0].Visible)
	assert.NotNil(t, snap.Inputs)
	assert.Empty(t, snap.Inputs)
}

func TestSnapshotStaleContext(t *testing.T) {
	t.Run("closed before", func(t *testing.T) {
		_, err := Snapshot(context.Background(), &stubPage{closed: true})
		assert.ErrorIs(t, err, errs.StaleContext)
	})

	t.Run("closed during evaluate", func(t *testing.T) {
		_, err := Snapshot(context.Background(), &stubPage{closeOnEval: true, err: errors.New("page.evaluate: boom")})
		assert.ErrorIs(t, err, errs.StaleContext)
	})

	t.Run("context destroyed by navigation", func(t *testing.T) {
		_, err := Snapshot(context.Background(), &stubPage{err: errors.New("Execution context was destroyed, most likely because of a navigation")})
		assert.ErrorIs(t, err, errs.StaleContext)
	})

	t.Run("other evaluate errors are not stale", func(t *testing.T) {
		_, err := Snapshot(context.Background(), &stubPage{err: errors.New("SyntaxError")})
		require.Error(t, err)
		assert.NotErrorIs(t, err, errs.StaleContext)
	})
}

func TestSnapshotNeverFailsOnMissingAttributes(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		keys := []string{"tag", "text", "id", "className", "testId", "inputType", "placeholder", "name", "visible"}
		n := rapid.IntRange(0, 20).Draw(rt, "n")
		items := make([]interface{}, n)
		for i := range items {
			m := map[string]interface{}{}
			for _, k := range keys {
				if rapid.Bool().Draw(rt, k) {
					if k == "visible" {
						m[k] = rapid.Bool().Draw(rt, "v")
					} else {
						m[k] = rapid.String().Draw(rt, "s")
					}
				}
			}
			items[i] = m
		}

		snap, err := Snapshot(context.Background(), &stubPage{result: map[string]interface{}{"inputs": items}})
		require.NoError(rt, err)
		require.Len(rt, snap.Inputs, n)
		for i, in := range snap.Inputs {
			assert.Equal(rt, i, in.Index)
			assert.Equal(rt, RoleInput, in.Role)
		}
	})
}
