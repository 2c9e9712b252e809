package services

import (
	"context"

	"github.com/google/uuid"

	"multiagent-manager/backend/internal/logging"
	"multiagent-manager/backend/internal/repository"
	"multiagent-manager/backend/pkg/models"
)

// AgentService manages the agent lifecycle.
type AgentService struct {
	store   repository.AgentStore
	catalog ToolCatalog
	logger  *logging.Logger
}

// NewAgentService creates a new AgentService. A nil catalog disables the
// tools_enabled check.
func NewAgentService(store repository.AgentStore, catalog ToolCatalog, logger *logging.Logger) *AgentService {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &AgentService{store: store, catalog: catalog, logger: logger}
}

// CreateAgent validates the input and stores a new agent under a fresh id.
func (s *AgentService) CreateAgent(ctx context.Context, input models.AgentInput) (*models.Agent, error) {
	input, err := normalizeAgentInput(input, s.catalog)
	if err != nil {
		return nil, err
	}

	agent := &models.Agent{
		ID:           uuid.New().String(),
		Name:         input.Name,
		SystemPrompt: input.SystemPrompt,
		ToolsEnabled: input.ToolsEnabled,
	}
	if err := s.store.CreateAgent(ctx, agent); err != nil {
		return nil, storeErr(err, "create agent")
	}

	s.logger.Info("agent created", "agent_id", agent.ID, "name", agent.Name)
	return agent, nil
}

func (s *AgentService) GetAgent(ctx context.Context, id string) (*models.Agent, error) {
	agent, err := s.store.GetAgent(ctx, id)
	if err != nil {
		return nil, storeErr(err, "get agent")
	}
	return agent, nil
}

func (s *AgentService) ListAgents(ctx context.Context, opts models.ListOptions) ([]*models.Agent, error) {
	agents, err := s.store.ListAgents(ctx, opts.Normalize())
	if err != nil {
		return nil, storeErr(err, "list agents")
	}
	return agents, nil
}

// UpdateAgent replaces name, system prompt and tools of an existing agent.
func (s *AgentService) UpdateAgent(ctx context.Context, id string, input models.AgentInput) (*models.Agent, error) {
	input, err := normalizeAgentInput(input, s.catalog)
	if err != nil {
		return nil, err
	}

	agent := &models.Agent{
		ID:           id,
		Name:         input.Name,
		SystemPrompt: input.SystemPrompt,
		ToolsEnabled: input.ToolsEnabled,
	}
	if err := s.store.UpdateAgent(ctx, agent); err != nil {
		return nil, storeErr(err, "update agent")
	}

	s.logger.Info("agent updated", "agent_id", id)
	return agent, nil
}

// DeleteAgent removes an agent. Flows that reference it keep the dangling id
// and fail with NotFound on their next invocation.
func (s *AgentService) DeleteAgent(ctx context.Context, id string) error {
	if err := s.store.DeleteAgent(ctx, id); err != nil {
		return storeErr(err, "delete agent")
	}
	s.logger.Info("agent deleted", "agent_id", id)
	return nil
}

// ListTools returns the catalog of tools agents may enable.
func (s *AgentService) ListTools() []models.Tool {
	if s.catalog == nil {
		return []models.Tool{}
	}
	return s.catalog.List()
}
