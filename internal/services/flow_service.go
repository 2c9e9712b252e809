package services

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"multiagent-manager/backend/internal/logging"
	"multiagent-manager/backend/internal/repository"
	"multiagent-manager/backend/pkg/apperr"
	"multiagent-manager/backend/pkg/models"
)

// FlowService manages the flow lifecycle.
type FlowService struct {
	flows  repository.FlowStore
	agents repository.AgentStore
	logger *logging.Logger
}

// NewFlowService creates a new FlowService.
func NewFlowService(flows repository.FlowStore, agents repository.AgentStore, logger *logging.Logger) *FlowService {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &FlowService{flows: flows, agents: agents, logger: logger}
}

// CreateFlow validates the input, checks that every referenced agent exists
// and stores a new flow under a fresh id.
func (s *FlowService) CreateFlow(ctx context.Context, input models.FlowInput) (*models.Flow, error) {
	input, err := s.validate(ctx, input)
	if err != nil {
		return nil, err
	}

	flow := &models.Flow{
		ID:          uuid.New().String(),
		Name:        input.Name,
		Description: input.Description,
		AgentIDs:    input.AgentIDs,
	}
	if err := s.flows.CreateFlow(ctx, flow); err != nil {
		return nil, storeErr(err, "create flow")
	}

	s.logger.Info("flow created", "flow_id", flow.ID, "name", flow.Name, "agents", len(flow.AgentIDs))
	return flow, nil
}

func (s *FlowService) GetFlow(ctx context.Context, id string) (*models.Flow, error) {
	flow, err := s.flows.GetFlow(ctx, id)
	if err != nil {
		return nil, storeErr(err, "get flow")
	}
	return flow, nil
}

func (s *FlowService) ListFlows(ctx context.Context, opts models.ListOptions) ([]*models.Flow, error) {
	flows, err := s.flows.ListFlows(ctx, opts.Normalize())
	if err != nil {
		return nil, storeErr(err, "list flows")
	}
	return flows, nil
}

// UpdateFlow replaces name, description and agent ids of an existing flow.
func (s *FlowService) UpdateFlow(ctx context.Context, id string, input models.FlowInput) (*models.Flow, error) {
	input, err := s.validate(ctx, input)
	if err != nil {
		return nil, err
	}

	flow := &models.Flow{
		ID:          id,
		Name:        input.Name,
		Description: input.Description,
		AgentIDs:    input.AgentIDs,
	}
	if err := s.flows.UpdateFlow(ctx, flow); err != nil {
		return nil, storeErr(err, "update flow")
	}

	s.logger.Info("flow updated", "flow_id", id)
	return flow, nil
}

func (s *FlowService) DeleteFlow(ctx context.Context, id string) error {
	if err := s.flows.DeleteFlow(ctx, id); err != nil {
		return storeErr(err, "delete flow")
	}
	s.logger.Info("flow deleted", "flow_id", id)
	return nil
}

func (s *FlowService) validate(ctx context.Context, input models.FlowInput) (models.FlowInput, error) {
	input, err := normalizeFlowInput(input)
	if err != nil {
		return input, err
	}

	seen := make(map[string]struct{}, len(input.AgentIDs))
	for _, id := range input.AgentIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}

		if _, err := s.agents.GetAgent(ctx, id); err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				e := apperr.InvalidInput("agent %q referenced by the flow does not exist", id)
				e.EntityID = id
				return input, e
			}
			return input, storeErr(err, "resolve flow agents")
		}
	}
	return input, nil
}
