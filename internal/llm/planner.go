package llm

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Plan asks the model for a plan. Parse failures and API errors are
// returned; an empty but valid reply yields an empty plan.
func (c *Client) Plan(ctx context.Context, req PlanRequest) ([]PlannedAction, error) {
	systemMsg := SystemPrompt(req.Snapshot)
	prompt := UserPrompt(req)

	resp, err := c.createChatCompletionWithRateLimit(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemMsg},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		c.logRequest(ctx, req.SessionID, "error", systemMsg, prompt, err.Error(), 0)
		return nil, fmt.Errorf("ошибка запроса к OpenAI: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("пустой ответ от OpenAI")
	}

	content := resp.Choices[0].Message.Content
	c.logRequest(ctx, req.SessionID, "assistant", systemMsg, prompt, content, resp.Usage.TotalTokens)

	actions, err := ParseActions(content)
	if err != nil {
		return nil, err
	}

	c.log.Info("План получен от модели",
		zap.String("session_id", req.SessionID),
		zap.String("mode", string(req.Mode)),
		zap.Int("actions", len(actions)),
		zap.Int("tokens", resp.Usage.TotalTokens))

	return actions, nil
}
