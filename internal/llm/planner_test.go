package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedLog struct {
	sessionID, role, prompt, response string
	tokens                            int
}

type memoryLogger struct {
	mu   sync.Mutex
	logs []recordedLog
}

func (m *memoryLogger) LogLLMRequest(ctx context.Context, sessionID, role, promptText, responseText, model string, tokensUsed int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, recordedLog{sessionID, role, promptText, responseText, tokensUsed})
	return nil
}

func fakeOpenAI(t *testing.T, content string, status int) (*httptest.Server, *openai.ChatCompletionRequest) {
	t.Helper()
	var got openai.ChatCompletionRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			ID:     "chatcmpl-1",
			Object: "chat.completion",
			Choices: []openai.ChatCompletionChoice{{
				Message:      openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content},
				FinishReason: openai.FinishReasonStop,
			}},
			Usage: openai.Usage{PromptTokens: 100, CompletionTokens: 50, TotalTokens: 150},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &got
}

func TestClientPlan(t *testing.T) {
	srv, got := fakeOpenAI(t, `{"actions":[{"type":"fill","selector":"input[type=\"email\"]","value":"test@example.com","description":"Email"}]}`, http.StatusOK)
	logs := &memoryLogger{}
	client := NewClient(ClientConfig{APIKey: "sk-test", BaseURL: srv.URL + "/v1", Temperature: 0.3}, logs, nil)

	actions, err := client.Plan(context.Background(), PlanRequest{SessionID: "s1", URL: "https://example.com", Task: "sign up", Mode: ModeURLOnly})
	require.NoError(t, err)

	require.Len(t, actions, 1)
	assert.Equal(t, ActionFill, actions[0].Kind)
	assert.Equal(t, "test@example.com", actions[0].Value)

	assert.Equal(t, openai.GPT4o, got.Model)
	assert.InDelta(t, 0.3, got.Temperature, 0.0001)
	require.NotNil(t, got.ResponseFormat)
	assert.Equal(t, openai.ChatCompletionResponseFormatTypeJSONObject, got.ResponseFormat.Type)
	require.Len(t, got.Messages, 2)
	assert.Contains(t, got.Messages[1].Content, "Task: sign up")

	require.Len(t, logs.logs, 1)
	assert.Equal(t, "s1", logs.logs[0].sessionID)
	assert.Equal(t, "assistant", logs.logs[0].role)
	assert.Equal(t, 150, logs.logs[0].tokens)
	assert.NotContains(t, logs.logs[0].response, "test@example.com")
}

func TestClientPlanAPIError(t *testing.T) {
	srv, _ := fakeOpenAI(t, "", http.StatusInternalServerError)
	logs := &memoryLogger{}
	client := NewClient(ClientConfig{APIKey: "sk-test", BaseURL: srv.URL + "/v1"}, logs, nil)

	_, err := client.Plan(context.Background(), PlanRequest{URL: "https://example.com", Task: "t"})

	assert.Error(t, err)
	require.Len(t, logs.logs, 1)
	assert.Equal(t, "error", logs.logs[0].role)
}

func TestClientPlanRateLimited(t *testing.T) {
	srv, _ := fakeOpenAI(t, `{"actions":[]}`, http.StatusOK)
	client := NewClient(ClientConfig{APIKey: "sk-test", BaseURL: srv.URL + "/v1", RequestsPerMinute: 1}, nil, nil)

	_, err := client.Plan(context.Background(), PlanRequest{URL: "u", Task: "t"})
	require.NoError(t, err)

	_, err = client.Plan(context.Background(), PlanRequest{URL: "u", Task: "t"})
	assert.ErrorContains(t, err, "лимит запросов")
}
