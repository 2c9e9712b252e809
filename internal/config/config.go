package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Store providers.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreMySQL    = "mysql"
	StoreSQLite   = "sqlite"
)

// LLM providers.
const (
	LLMOpenAI    = "openai"
	LLMAnthropic = "anthropic"
	LLMGemini    = "gemini"
	LLMEcho      = "echo"
)

// Rate limit backends. An empty backend disables rate limiting.
const (
	RateLimitLocal = "local"
	RateLimitRedis = "redis"
)

// Config holds the configuration for the application.
type Config struct {
	Server struct {
		Addr            string        `mapstructure:"addr"`
		ReadTimeout     time.Duration `mapstructure:"read_timeout"`
		WriteTimeout    time.Duration `mapstructure:"write_timeout"`
		IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
		ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	} `mapstructure:"server"`
	TLS struct {
		Enable    bool     `mapstructure:"enable"`
		CertFile  string   `mapstructure:"cert_file"`
		KeyFile   string   `mapstructure:"key_file"`
		Hostnames []string `mapstructure:"hostnames"`
	} `mapstructure:"tls"`
	Store struct {
		Provider string `mapstructure:"provider"`
	} `mapstructure:"store"`
	DB struct {
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		Name     string `mapstructure:"name"`
		SSLMode  string `mapstructure:"sslmode"`
	} `mapstructure:"db"`
	MySQL  MySQLConfig `mapstructure:"mysql"`
	SQLite struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"sqlite"`
	LLM struct {
		Provider     string  `mapstructure:"provider"`
		Model        string  `mapstructure:"model"`
		APIKey       string  `mapstructure:"api_key"`
		Temperature  float64 `mapstructure:"temperature"`
		MaxTokens    int64   `mapstructure:"max_tokens"`
		MaxToolCalls int     `mapstructure:"max_tool_calls"`
	} `mapstructure:"llm"`
	RateLimit struct {
		Backend           string  `mapstructure:"backend"`
		RequestsPerMinute float64 `mapstructure:"requests_per_minute"`
		Burst             int     `mapstructure:"burst"`
	} `mapstructure:"ratelimit"`
	Redis struct {
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	} `mapstructure:"redis"`
	Executor struct {
		// StepTimeout bounds each agent invocation inside a flow. Zero means no limit.
		StepTimeout      time.Duration `mapstructure:"step_timeout"`
		ExposePartialLog bool          `mapstructure:"expose_partial_log"`
	} `mapstructure:"executor"`
	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`
	Sentry struct {
		DSN         string `mapstructure:"dsn"`
		Environment string `mapstructure:"environment"`
	} `mapstructure:"sentry"`

	// Source is the config file that was read, empty when running on defaults.
	Source string `mapstructure:"-"`
}

// MySQLConfig configures the MySQL entity store.
type MySQLConfig struct {
	DSN                string `mapstructure:"dsn"`
	Host               string `mapstructure:"host"`
	Port               int    `mapstructure:"port"`
	Username           string `mapstructure:"username"`
	Password           string `mapstructure:"password"`
	Database           string `mapstructure:"database"`
	MaxConnections     int    `mapstructure:"max_connections"`
	MaxIdleConnections int    `mapstructure:"max_idle_connections"`
	ConnectionTimeout  int    `mapstructure:"connection_timeout"`
}

// LoadConfig loads the configuration from a file and the environment.
// configFile may be empty to search ./config.yaml and ./config/config.yaml;
// envFile, when set, is loaded into the process environment first.
func LoadConfig(configFile, envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	}

	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	config.Source = v.ConfigFileUsed()

	config.Store.Provider = normalizeName(config.Store.Provider)
	config.LLM.Provider = normalizeName(config.LLM.Provider)
	config.RateLimit.Backend = normalizeName(config.RateLimit.Backend)
	if config.LLM.APIKey == "" {
		config.LLM.APIKey = providerAPIKey(config.LLM.Provider)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	// Flow invocations hold the response open for every step, so writes are
	// unbounded unless configured.
	v.SetDefault("server.write_timeout", time.Duration(0))
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)

	v.SetDefault("tls.enable", false)
	v.SetDefault("tls.cert_file", "")
	v.SetDefault("tls.key_file", "")
	v.SetDefault("tls.hostnames", []string{"localhost"})

	v.SetDefault("store.provider", StoreMemory)

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.name", "agents")
	v.SetDefault("db.sslmode", "disable")

	v.SetDefault("mysql.dsn", "")
	v.SetDefault("mysql.host", "localhost")
	v.SetDefault("mysql.port", 3306)
	v.SetDefault("mysql.username", "root")
	v.SetDefault("mysql.password", "")
	v.SetDefault("mysql.database", "agents")
	v.SetDefault("mysql.max_connections", 10)
	v.SetDefault("mysql.max_idle_connections", 5)
	v.SetDefault("mysql.connection_timeout", 30)

	v.SetDefault("sqlite.path", "data/agents.db")

	v.SetDefault("llm.provider", LLMEcho)
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.max_tokens", 350)
	v.SetDefault("llm.max_tool_calls", 5)

	v.SetDefault("ratelimit.backend", "")
	v.SetDefault("ratelimit.requests_per_minute", 60)
	v.SetDefault("ratelimit.burst", 5)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("executor.step_timeout", time.Duration(0))
	v.SetDefault("executor.expose_partial_log", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.environment", "development")
}

// Validate rejects unknown providers and negative limits.
func (c *Config) Validate() error {
	switch c.Store.Provider {
	case StoreMemory, StorePostgres, StoreMySQL, StoreSQLite:
	default:
		return fmt.Errorf("unsupported store provider: %q", c.Store.Provider)
	}
	switch c.LLM.Provider {
	case LLMOpenAI, LLMAnthropic, LLMGemini, LLMEcho:
	default:
		return fmt.Errorf("unsupported llm provider: %q", c.LLM.Provider)
	}
	switch c.RateLimit.Backend {
	case "", RateLimitLocal, RateLimitRedis:
	default:
		return fmt.Errorf("unsupported rate limit backend: %q", c.RateLimit.Backend)
	}
	if c.Executor.StepTimeout < 0 {
		return fmt.Errorf("executor.step_timeout must not be negative")
	}
	if c.LLM.MaxToolCalls < 0 {
		return fmt.Errorf("llm.max_tool_calls must not be negative")
	}
	return nil
}

// PostgresConnString builds the pgx connection string for the db section.
func (c *Config) PostgresConnString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host, c.DB.Port, c.DB.User, c.DB.Password, c.DB.Name, c.DB.SSLMode,
	)
}

func normalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// providerAPIKey falls back to the vendor's conventional environment variable.
func providerAPIKey(provider string) string {
	switch provider {
	case LLMOpenAI:
		return os.Getenv("OPENAI_API_KEY")
	case LLMAnthropic:
		return os.Getenv("ANTHROPIC_API_KEY")
	case LLMGemini:
		return os.Getenv("GEMINI_API_KEY")
	}
	return ""
}
