package llm

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"multiagent-manager/backend/internal/tools"
)

// Limiter blocks until a request may be sent to the provider.
type Limiter interface {
	Wait(ctx context.Context) error
}

// NewLocalLimiter returns an in-process token bucket. burst <= 0 defaults to
// a tenth of the per-minute rate, at least 1.
func NewLocalLimiter(reqPerMinute float64, burst int) *rate.Limiter {
	return rate.NewLimiter(rate.Limit(reqPerMinute/60.0), defaultBurst(reqPerMinute, burst))
}

func defaultBurst(reqPerMinute float64, burst int) int {
	if burst > 0 {
		return burst
	}
	return max(int(reqPerMinute/10), 1)
}

// RateLimitedModel waits on a Limiter before each round trip.
type RateLimitedModel struct {
	model   ChatModel
	limiter Limiter
}

// WithRateLimit decorates model. A nil limiter returns model unchanged.
func WithRateLimit(model ChatModel, limiter Limiter) ChatModel {
	if limiter == nil {
		return model
	}
	return &RateLimitedModel{model: model, limiter: limiter}
}

func (m *RateLimitedModel) Name() string { return m.model.Name() }

func (m *RateLimitedModel) Complete(ctx context.Context, messages []Message, available []tools.Tool) (Reply, error) {
	if err := m.limiter.Wait(ctx); err != nil {
		return Reply{}, fmt.Errorf("rate limit wait for %s: %w", m.model.Name(), err)
	}
	return m.model.Complete(ctx, messages, available)
}
