package agent_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jiqing426/video-ai/internal/agent"
	"github.com/jiqing426/video-ai/internal/extractor"
	"github.com/jiqing426/video-ai/internal/llm"
)

func kinds(plan []llm.PlannedAction) []llm.ActionKind {
	out := make([]llm.ActionKind, len(plan))
	for i, a := range plan {
		out[i] = a.Kind
	}
	return out
}

func TestFallbackPlanWithoutSnapshot(t *testing.T) {
	plan := agent.FallbackPlan("open the page", nil)
	assert.Equal(t, []llm.ActionKind{llm.ActionWait, llm.ActionCapture, llm.ActionCapture}, kinds(plan))
	assert.Equal(t, 2000, plan[0].TimeoutMs)
}

func TestFallbackPlanUsesPage(t *testing.T) {
	snap := &extractor.PageSnapshot{
		Inputs: []extractor.ElementDescriptor{
			{Role: extractor.RoleInput, Tag: "input", InputType: "email", Name: "email", Placeholder: "Email"},
		},
		Buttons: []extractor.ElementDescriptor{
			{Role: extractor.RoleButton, Tag: "button", Text: "Cancel", Visible: true},
			{Role: extractor.RoleButton, Tag: "button", Text: "Sign in", ID: "login", Visible: true, Index: 1},
		},
	}

	plan := agent.FallbackPlan("sign in with my account", snap)
	require.Equal(t, []llm.ActionKind{
		llm.ActionWait, llm.ActionCapture, llm.ActionFill, llm.ActionClick, llm.ActionScroll, llm.ActionCapture,
	}, kinds(plan))

	fill := plan[2]
	assert.Equal(t, "test@example.com", fill.Value)
	assert.Contains(t, fill.Target, `input[name="email"]`)

	click := plan[3]
	assert.Contains(t, click.Target, "#login")
	assert.Contains(t, click.Description, "Sign in")

	assert.Equal(t, "body", plan[4].Target)
	for _, a := range plan {
		assert.NotEmpty(t, a.Description)
		assert.NotEmpty(t, a.Rationale)
	}
}

func TestRealisticValue(t *testing.T) {
	tests := []struct {
		inputType   string
		placeholder string
		want        string
	}{
		{"email", "", "test@example.com"},
		{"password", "", "TestPassword123"},
		{"text", "Your name", "John Doe"},
		{"text", "City", "Test Input"},
		{"search", "", "search query"},
		{"tel", "", "+1234567890"},
		{"url", "", "https://example.com"},
		{"number", "", "123"},
		{"", "", "Test Value"},
		{"date", "", "Test Value"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, agent.RealisticValue(tt.inputType, tt.placeholder), "%s/%s", tt.inputType, tt.placeholder)
	}
}

func TestRelevantButton(t *testing.T) {
	hidden := extractor.ElementDescriptor{Text: "Menu"}
	visible := extractor.ElementDescriptor{Text: "Continue reading", Visible: true}
	search := extractor.ElementDescriptor{Text: "Search"}

	_, ok := agent.RelevantButton(nil, "search")
	assert.False(t, ok)

	b, ok := agent.RelevantButton([]extractor.ElementDescriptor{hidden, visible, search}, "Search for shoes")
	require.True(t, ok)
	assert.Equal(t, "Search", b.Text)

	b, _ = agent.RelevantButton([]extractor.ElementDescriptor{hidden, visible, search}, "look around")
	assert.Equal(t, "Continue reading", b.Text)

	b, _ = agent.RelevantButton([]extractor.ElementDescriptor{hidden}, "look around")
	assert.Equal(t, "Menu", b.Text)
}

func TestSyntheticSnapshot(t *testing.T) {
	snap := agent.SyntheticSnapshot("https://example.com", "Login and search the catalogue")

	assert.Equal(t, "https://example.com - AI Test Analysis", snap.Title)
	assert.True(t, snap.HasLoginForm)
	assert.True(t, snap.HasSearchBox)
	assert.Len(t, snap.Buttons, 4)
	assert.Len(t, snap.Inputs, 3)
	assert.Len(t, snap.Links, 3)
	require.Len(t, snap.Forms, 1)
	assert.Equal(t, "/submit", snap.Forms[0].Action)
	for i, b := range snap.Buttons {
		assert.Equal(t, i, b.Index)
	}

	plain := agent.SyntheticSnapshot("https://example.com", "look around")
	assert.Equal(t, []string{"Continue", "Next"}, []string{plain.Buttons[0].Text, plain.Buttons[1].Text})
	assert.Empty(t, plain.Inputs)
	assert.Empty(t, plain.Forms)
	assert.False(t, plain.HasLoginForm)
}
