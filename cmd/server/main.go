package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"multiagent-manager/backend/internal/api"
	"multiagent-manager/backend/internal/config"
	"multiagent-manager/backend/internal/llm"
	"multiagent-manager/backend/internal/logging"
	"multiagent-manager/backend/internal/mcp"
	"multiagent-manager/backend/internal/metrics"
	"multiagent-manager/backend/internal/repository"
	"multiagent-manager/backend/internal/services"
	"multiagent-manager/backend/internal/tls"
	"multiagent-manager/backend/internal/tools"
)

var version = "dev"

func main() {
	var configFile, envFile string

	rootCmd := &cobra.Command{
		Use:           "server",
		Short:         "Serve the multi-agent manager REST API and MCP tools",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), configFile, envFile)
		},
	}
	rootCmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to config.yaml")
	rootCmd.Flags().StringVar(&envFile, "env", "", "Path to .env file")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configFile, envFile string) error {
	cfg, err := config.LoadConfig(configFile, envFile)
	if err != nil {
		return fmt.Errorf("configuration loading failed: %w", err)
	}

	logger, err := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return err
	}
	defer logger.Sync()
	if err := logger.EnableSentry(cfg.Sentry.DSN, cfg.Sentry.Environment); err != nil {
		logger.Warn("Sentry disabled", "error", err)
	}

	logger.Info("Configuration loaded",
		"config_file", cfg.Source,
		"store", cfg.Store.Provider,
		"llm_provider", cfg.LLM.Provider,
		"step_timeout", cfg.Executor.StepTimeout,
		"expose_partial_log", cfg.Executor.ExposePartialLog,
	)
	logger.Info("Starting multi-agent manager", "version", version)

	store, err := repository.Open(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("store initialization failed: %w", err)
	}
	defer store.Close()
	logger.Info("Entity store ready", "provider", cfg.Store.Provider)

	var rdb *redis.Client
	if cfg.RateLimit.Backend == config.RateLimitRedis {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping failed: %w", err)
		}
	}

	catalog := tools.DefaultCatalog()
	invoker, err := llm.NewInvoker(ctx, cfg, catalog, rdb, logger)
	if err != nil {
		return fmt.Errorf("agent invoker initialization failed: %w", err)
	}

	m := metrics.New()
	agentService := services.NewAgentService(store, catalog, logger)
	flowService := services.NewFlowService(store, store, logger)
	executor := services.NewFlowExecutor(store, store, invoker, services.ExecutorOptions{
		StepTimeout:      cfg.Executor.StepTimeout,
		ExposePartialLog: cfg.Executor.ExposePartialLog,
	}, logger, m)
	agentInvoker := services.NewAgentInvoker(store, invoker, cfg.Executor.StepTimeout, logger, m)

	logger.Info("Service layer initialized")

	mcpServer := mcp.NewServer(agentService, flowService, executor, agentInvoker, version)
	mcpHandlers := http.NewServeMux()
	mcp.MountHTTPHandlers(mcpHandlers, mcpServer.GetMCPServer())

	e := api.NewRouter(api.RouterOptions{
		Server:  api.NewServer(agentService, flowService, executor, agentInvoker),
		Health:  api.NewHandler(store, version),
		Metrics: m.Handler(),
		MCP:     mcpHandlers,
		Logger:  logger,
	})

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      e,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	if cfg.TLS.Enable {
		generated, err := tls.EnsureCertificate(cfg.TLS.CertFile, cfg.TLS.KeyFile, cfg.TLS.Hostnames)
		if err != nil {
			return fmt.Errorf("tls setup failed: %w", err)
		}
		if generated {
			logger.Warn("Generated self-signed certificate", "cert_file", cfg.TLS.CertFile, "hostnames", cfg.TLS.Hostnames)
		}
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("Server starting", "address", cfg.Server.Addr, "tls", cfg.TLS.Enable)
		if cfg.TLS.Enable {
			serverErrors <- server.ListenAndServeTLS(cfg.TLS.CertFile, cfg.TLS.KeyFile)
		} else {
			serverErrors <- server.ListenAndServe()
		}
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		logger.Info("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
			if err := server.Close(); err != nil {
				logger.Error("Server close error", "error", err)
			}
		}
		logger.Info("Server stopped gracefully")
	}
	return nil
}
