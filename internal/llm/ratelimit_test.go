package llm

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"multiagent-manager/backend/internal/config"
)

func TestLocalLimiter_Burst(t *testing.T) {
	limiter := NewLocalLimiter(60, 2)

	ctx := context.Background()
	require.NoError(t, limiter.Wait(ctx))
	require.NoError(t, limiter.Wait(ctx))

	// Bucket is empty; the next token is a second away.
	short, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	assert.Error(t, limiter.Wait(short))
}

func TestDefaultBurst(t *testing.T) {
	assert.Equal(t, 3, defaultBurst(60, 3))
	assert.Equal(t, 6, defaultBurst(60, 0))
	assert.Equal(t, 1, defaultBurst(5, 0))
}

type countingLimiter struct{ waits int }

func (c *countingLimiter) Wait(context.Context) error {
	c.waits++
	return nil
}

func TestWithRateLimit(t *testing.T) {
	assert.Equal(t, ChatModel(EchoModel{}), WithRateLimit(EchoModel{}, nil))

	limiter := &countingLimiter{}
	model := WithRateLimit(EchoModel{}, limiter)
	_, err := model.Complete(context.Background(), []Message{{Role: RoleUser, Content: "x"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, limiter.waits)
	assert.Equal(t, "echo", model.Name())
}

func TestNewLimiter(t *testing.T) {
	cfg := &config.Config{}
	cfg.RateLimit.RequestsPerMinute = 60

	l, err := NewLimiter(cfg, nil)
	require.NoError(t, err)
	assert.Nil(t, l)

	cfg.RateLimit.Backend = config.RateLimitLocal
	l, err = NewLimiter(cfg, nil)
	require.NoError(t, err)
	assert.NotNil(t, l)

	cfg.RateLimit.Backend = config.RateLimitRedis
	_, err = NewLimiter(cfg, nil)
	assert.Error(t, err)
}

func TestRedisLimiter(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	redisContainer, err := testcontainers.Run(ctx, "redis:7-alpine",
		testcontainers.WithExposedPorts("6379/tcp"),
		testcontainers.WithWaitStrategy(wait.ForListeningPort("6379/tcp")),
	)
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		if err := redisContainer.Terminate(ctx); err != nil {
			t.Fatalf("failed to terminate container: %s", err)
		}
	}()

	endpoint, err := redisContainer.Endpoint(ctx, "")
	require.NoError(t, err)

	rdb := redis.NewClient(&redis.Options{Addr: endpoint})
	defer rdb.Close()

	limiter := NewRedisLimiter(rdb, "test", 60, 2)
	require.NoError(t, limiter.Reset(ctx))

	ok, err := limiter.Allow(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = limiter.Allow(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = limiter.Allow(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	start := time.Now()
	require.NoError(t, limiter.Wait(ctx))
	assert.GreaterOrEqual(t, time.Since(start), 500*time.Millisecond)
}
