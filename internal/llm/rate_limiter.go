package llm

import (
	"context"
	"fmt"
	"math"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter ограничивает частоту запросов (RPM) и расход токенов (TPH).
// При превышении лимита ошибка возвращается сразу, без ожидания.
type RateLimiter struct {
	requestsPerMinute int
	tokensPerHour     int

	requests *rate.Limiter
	tokens   *rate.Limiter
}

func NewRateLimiter(requestsPerMinute, tokensPerHour int) *RateLimiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 60
	}
	if tokensPerHour <= 0 {
		tokensPerHour = 90000
	}

	return &RateLimiter{
		requestsPerMinute: requestsPerMinute,
		tokensPerHour:     tokensPerHour,
		requests:          rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60), requestsPerMinute),
		tokens:            rate.NewLimiter(rate.Limit(float64(tokensPerHour)/3600), tokensPerHour),
	}
}

func (rl *RateLimiter) AllowRequest(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !rl.requests.Allow() {
		return fmt.Errorf("превышен лимит запросов (%d RPM), повторите через %v",
			rl.requestsPerMinute, time.Minute/time.Duration(rl.requestsPerMinute))
	}
	return nil
}

func (rl *RateLimiter) AllowTokens(ctx context.Context, tokens int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if tokens <= 0 {
		return nil
	}
	if tokens > rl.tokensPerHour || !rl.tokens.AllowN(time.Now(), tokens) {
		return fmt.Errorf("превышен лимит токенов (%d TPH), требуется %d, доступно %d",
			rl.tokensPerHour, tokens, rl.availableTokens())
	}
	return nil
}

// ConsumeTokens списывает токены сверх оценки после ответа модели. Бюджет
// может уйти в долг, тогда следующие запросы отклоняются до пополнения.
func (rl *RateLimiter) ConsumeTokens(tokens int) {
	if tokens <= 0 {
		return
	}
	if tokens > rl.tokensPerHour {
		tokens = rl.tokensPerHour
	}
	rl.tokens.ReserveN(time.Now(), tokens)
}

// GetStats возвращает доступные запросы и токены.
func (rl *RateLimiter) GetStats() (requestsAvailable int, tokensAvailable int) {
	return int(math.Max(0, rl.requests.Tokens())), rl.availableTokens()
}

func (rl *RateLimiter) availableTokens() int {
	return int(math.Max(0, rl.tokens.Tokens()))
}
