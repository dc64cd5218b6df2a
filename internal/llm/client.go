package llm

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/jiqing426/video-ai/internal/sanitizer"
)

type ClientConfig struct {
	APIKey            string
	BaseURL           string
	Model             string
	MaxTokens         int
	Temperature       float32
	RequestsPerMinute int
	TokensPerHour     int
}

type Client struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
	logger      Logger
	sanitizer   *sanitizer.DataSanitizer
	rateLimiter *RateLimiter
	log         *zap.Logger
}

// NewClient creates the OpenAI planner. logger may be nil when LLM requests
// are not persisted.
func NewClient(cfg ClientConfig, logger Logger, log *zap.Logger) *Client {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = openai.GPT4o
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 2000
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Client{
		client:      openai.NewClientWithConfig(oc),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		logger:      logger,
		sanitizer:   sanitizer.New(),
		rateLimiter: NewRateLimiter(cfg.RequestsPerMinute, cfg.TokensPerHour),
		log:         log,
	}
}

// createChatCompletionWithRateLimit выполняет запрос с проверкой rate limit
func (c *Client) createChatCompletionWithRateLimit(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	if err := c.rateLimiter.AllowRequest(ctx); err != nil {
		return openai.ChatCompletionResponse{}, err
	}

	// грубая оценка: ~4 символа на токен плюс ответ
	estimatedTokens := req.MaxTokens
	for _, msg := range req.Messages {
		estimatedTokens += len(msg.Content) / 4
	}

	if err := c.rateLimiter.AllowTokens(ctx, estimatedTokens); err != nil {
		return openai.ChatCompletionResponse{}, err
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return resp, err
	}

	if resp.Usage.TotalTokens > estimatedTokens {
		c.rateLimiter.ConsumeTokens(resp.Usage.TotalTokens - estimatedTokens)
	}

	return resp, nil
}

func (c *Client) logRequest(ctx context.Context, sessionID, role, systemMsg, prompt, response string, tokens int) {
	if c.logger == nil {
		return
	}

	fullPrompt := fmt.Sprintf("System: %s\n\nUser: %s", systemMsg, prompt)
	err := c.logger.LogLLMRequest(ctx, sessionID, role,
		c.sanitizer.Sanitize(fullPrompt),
		c.sanitizer.Sanitize(response),
		c.model, tokens)
	if err != nil {
		c.log.Warn("Не удалось сохранить лог запроса к LLM", zap.String("session_id", sessionID), zap.Error(err))
	}
}
