package llm

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"multiagent-manager/backend/internal/config"
	"multiagent-manager/backend/internal/logging"
	"multiagent-manager/backend/internal/tools"
)

// NewChatModel builds the provider selected by llm.provider.
func NewChatModel(ctx context.Context, cfg *config.Config) (ChatModel, error) {
	opts := ModelOptions{
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
	}

	switch cfg.LLM.Provider {
	case config.LLMOpenAI:
		if cfg.LLM.APIKey == "" {
			return nil, fmt.Errorf("llm.api_key or OPENAI_API_KEY is required for provider openai")
		}
		return NewOpenAIModel(cfg.LLM.APIKey, opts), nil
	case config.LLMAnthropic:
		if cfg.LLM.APIKey == "" {
			return nil, fmt.Errorf("llm.api_key or ANTHROPIC_API_KEY is required for provider anthropic")
		}
		return NewAnthropicModel(cfg.LLM.APIKey, opts), nil
	case config.LLMGemini:
		if cfg.LLM.APIKey == "" {
			return nil, fmt.Errorf("llm.api_key or GEMINI_API_KEY is required for provider gemini")
		}
		return NewGeminiModel(ctx, cfg.LLM.APIKey, opts)
	case config.LLMEcho, "":
		return EchoModel{}, nil
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", cfg.LLM.Provider)
	}
}

// NewLimiter builds the limiter selected by ratelimit.backend, or nil when
// rate limiting is disabled. rdb is required for the redis backend.
func NewLimiter(cfg *config.Config, rdb *redis.Client) (Limiter, error) {
	rpm := cfg.RateLimit.RequestsPerMinute
	switch cfg.RateLimit.Backend {
	case "":
		return nil, nil
	case config.RateLimitLocal:
		if rpm <= 0 {
			return nil, nil
		}
		return NewLocalLimiter(rpm, cfg.RateLimit.Burst), nil
	case config.RateLimitRedis:
		if rpm <= 0 {
			return nil, nil
		}
		if rdb == nil {
			return nil, fmt.Errorf("redis client is required for the redis rate limit backend")
		}
		return NewRedisLimiter(rdb, cfg.LLM.Provider, rpm, cfg.RateLimit.Burst), nil
	default:
		return nil, fmt.Errorf("unsupported rate limit backend: %s", cfg.RateLimit.Backend)
	}
}

// NewInvoker wires model, rate limiter and tool loop from configuration.
func NewInvoker(ctx context.Context, cfg *config.Config, catalog *tools.Catalog, rdb *redis.Client, logger *logging.Logger) (*ToolLoop, error) {
	model, err := NewChatModel(ctx, cfg)
	if err != nil {
		return nil, err
	}
	limiter, err := NewLimiter(cfg, rdb)
	if err != nil {
		return nil, err
	}
	logger.Info("Agent invoker ready",
		"model", model.Name(),
		"rate_limit", cfg.RateLimit.Backend,
		"max_tool_calls", cfg.LLM.MaxToolCalls)
	return NewToolLoop(WithRateLimit(model, limiter), catalog, cfg.LLM.MaxToolCalls, logger), nil
}
