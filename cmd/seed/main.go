package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"multiagent-manager/backend/internal/config"
	"multiagent-manager/backend/internal/logging"
	"multiagent-manager/backend/internal/repository"
	"multiagent-manager/backend/internal/services"
	"multiagent-manager/backend/internal/tools"
	"multiagent-manager/backend/pkg/models"
)

var seedAgents = []models.AgentInput{
	{
		Name:         "Summarizer",
		SystemPrompt: "You summarize the user's text in at most three sentences.",
	},
	{
		Name:         "French Translator",
		SystemPrompt: "You translate the user's text into French. Reply with the translation only.",
	},
	{
		Name:         "Assistant",
		SystemPrompt: "You are a helpful assistant. Use the available tools for dates, weather and arithmetic.",
		ToolsEnabled: []string{"get_current_datetime", "get_current_weather", "simple_calculator"},
	},
}

const seedFlowName = "Summarize-then-Translate"

func main() {
	var configFile, envFile string

	cmd := &cobra.Command{
		Use:          "seed",
		Short:        "Create sample agents and a two-step flow",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return seed(cmd.Context(), configFile, envFile)
		},
	}
	cmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to config.yaml")
	cmd.Flags().StringVar(&envFile, "env", "", "Path to .env file")

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func seed(ctx context.Context, configFile, envFile string) error {
	logger := logging.NewLogger()
	defer logger.Sync()

	cfg, err := config.LoadConfig(configFile, envFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Store.Provider == config.StoreMemory {
		return fmt.Errorf("store.provider is %q; seeding needs a persistent store", cfg.Store.Provider)
	}

	store, err := repository.Open(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer store.Close()

	agentService := services.NewAgentService(store, tools.DefaultCatalog(), logger)
	flowService := services.NewFlowService(store, store, logger)

	existingFlows, err := flowService.ListFlows(ctx, models.ListOptions{})
	if err != nil {
		return err
	}
	for _, f := range existingFlows {
		if f.Name == seedFlowName {
			logger.Info("Seed data already present", "flow_id", f.ID)
			return nil
		}
	}

	ids := make([]string, 0, len(seedAgents))
	for _, input := range seedAgents {
		agent, err := agentService.CreateAgent(ctx, input)
		if err != nil {
			return fmt.Errorf("failed to create agent %q: %w", input.Name, err)
		}
		ids = append(ids, agent.ID)
	}

	description := "Summarizes the input, then translates the summary into French."
	flow, err := flowService.CreateFlow(ctx, models.FlowInput{
		Name:        seedFlowName,
		Description: &description,
		AgentIDs:    ids[:2],
	})
	if err != nil {
		return fmt.Errorf("failed to create flow: %w", err)
	}

	logger.Info("Seeding complete", "agents", len(ids), "flow_id", flow.ID)
	return nil
}
