package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := LoadConfig("", "")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, StoreMemory, cfg.Store.Provider)
	assert.Equal(t, LLMEcho, cfg.LLM.Provider)
	assert.Equal(t, 5, cfg.LLM.MaxToolCalls)
	assert.Equal(t, int64(350), cfg.LLM.MaxTokens)
	assert.Zero(t, cfg.Executor.StepTimeout)
	assert.Zero(t, cfg.Server.WriteTimeout)
	assert.False(t, cfg.Executor.ExposePartialLog)
	assert.Empty(t, cfg.Source)
}

func TestLoadConfig_File(t *testing.T) {
	path := writeFile(t, "config.yaml", `
server:
  addr: ":9090"
store:
  provider: SQLite
sqlite:
  path: /tmp/agents.db
executor:
  step_timeout: 45s
  expose_partial_log: true
llm:
  provider: openai
  model: gpt-4o-mini
  api_key: sk-test
`)

	cfg, err := LoadConfig(path, "")
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, StoreSQLite, cfg.Store.Provider)
	assert.Equal(t, "/tmp/agents.db", cfg.SQLite.Path)
	assert.Equal(t, 45*time.Second, cfg.Executor.StepTimeout)
	assert.True(t, cfg.Executor.ExposePartialLog)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.Equal(t, path, cfg.Source)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("STORE_PROVIDER", "postgres")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("EXECUTOR_STEP_TIMEOUT", "2m")

	cfg, err := LoadConfig("", "")
	require.NoError(t, err)

	assert.Equal(t, StorePostgres, cfg.Store.Provider)
	assert.Equal(t, "db.internal", cfg.DB.Host)
	assert.Equal(t, 2*time.Minute, cfg.Executor.StepTimeout)
	assert.Contains(t, cfg.PostgresConnString(), "host=db.internal")
}

func TestLoadConfig_EnvFile(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("LLM_PROVIDER", "")
	os.Unsetenv("LLM_PROVIDER")
	t.Setenv("ANTHROPIC_API_KEY", "")
	os.Unsetenv("ANTHROPIC_API_KEY")

	envFile := writeFile(t, ".env", "LLM_PROVIDER=anthropic\nANTHROPIC_API_KEY=ak-test\n")

	cfg, err := LoadConfig("", envFile)
	require.NoError(t, err)

	assert.Equal(t, LLMAnthropic, cfg.LLM.Provider)
	assert.Equal(t, "ak-test", cfg.LLM.APIKey)
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"), "")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"store", func(c *Config) { c.Store.Provider = "mongo" }},
		{"llm", func(c *Config) { c.LLM.Provider = "llama" }},
		{"ratelimit", func(c *Config) { c.RateLimit.Backend = "memcached" }},
		{"step timeout", func(c *Config) { c.Executor.StepTimeout = -time.Second }},
		{"tool calls", func(c *Config) { c.LLM.MaxToolCalls = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			cfg.Store.Provider = StoreMemory
			cfg.LLM.Provider = LLMEcho
			require.NoError(t, cfg.Validate())

			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
