package llm

import (
	"context"
	"fmt"
	"unicode/utf8"

	"golang.org/x/time/rate"

	"github.com/Epistemic-Technology/paper-assistant/internal/logger"
	"github.com/Epistemic-Technology/paper-assistant/internal/prompt"
)

const (
	defaultTokensPerSecond = 20000
	defaultBurstTokens     = 200000

	// Rough characters-per-token ratio for English prose.
	charsPerToken = 4
	// Allowance for the completion itself.
	estimatedResponseTokens = 2000
)

// Limiter throttles model calls on an estimated token budget shared by every
// caller holding the same Limiter. It only delays calls; it never retries.
type Limiter struct {
	limiter *rate.Limiter
	burst   int
}

// NewLimiter creates a token bucket. Non-positive values fall back to defaults.
func NewLimiter(tokensPerSecond float64, burstTokens int) *Limiter {
	if tokensPerSecond <= 0 {
		tokensPerSecond = defaultTokensPerSecond
	}
	if burstTokens <= 0 {
		burstTokens = defaultBurstTokens
	}
	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(tokensPerSecond), burstTokens),
		burst:   burstTokens,
	}
}

// Wait blocks until the estimated tokens are available or ctx is done.
// Requests larger than the burst size are clamped so they can still proceed.
func (l *Limiter) Wait(ctx context.Context, estimatedTokens int) error {
	if l == nil {
		return nil
	}
	n := min(max(estimatedTokens, 1), l.burst)
	if err := l.limiter.WaitN(ctx, n); err != nil {
		return fmt.Errorf("rate limiter wait failed: %w", err)
	}
	return nil
}

// ThrottledCall waits for limiter approval and then calls fn exactly once.
func ThrottledCall[T any](ctx context.Context, l *Limiter, estimatedTokens int, log logger.Logger, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if err := l.Wait(ctx, estimatedTokens); err != nil {
		log.Warn("Model call not started: %v", err)
		return zero, err
	}
	return fn(ctx)
}

// EstimateTokens approximates the token cost of sending messages and
// receiving a typical completion.
func EstimateTokens(messages []prompt.Message) int {
	chars := 0
	for _, m := range messages {
		chars += utf8.RuneCountInString(m.Content)
	}
	return chars/charsPerToken + estimatedResponseTokens
}
