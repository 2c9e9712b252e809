package repository

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"multiagent-manager/backend/pkg/apperr"
	"multiagent-manager/backend/pkg/models"
)

// InMemoryStore is a process-local Store. Values are copied on the way in and
// out so callers never share slices with the store.
type InMemoryStore struct {
	mu         sync.RWMutex
	agents     map[string]*models.Agent
	agentOrder []string
	flows      map[string]*models.Flow
	flowOrder  []string
}

// NewInMemoryStore creates an empty InMemoryStore.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		agents: make(map[string]*models.Agent),
		flows:  make(map[string]*models.Flow),
	}
}

// CreateAgent inserts an agent.
func (s *InMemoryStore) CreateAgent(_ context.Context, agent *models.Agent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.agents[agent.ID]; ok {
		return fmt.Errorf("agent %s already exists", agent.ID)
	}
	s.agents[agent.ID] = cloneAgent(agent)
	s.agentOrder = append(s.agentOrder, agent.ID)
	return nil
}

// GetAgent retrieves an agent by its ID.
func (s *InMemoryStore) GetAgent(_ context.Context, id string) (*models.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	agent, ok := s.agents[id]
	if !ok {
		return nil, apperr.NotFound("agent", id)
	}
	return cloneAgent(agent), nil
}

// ListAgents returns a page of agents in creation order.
func (s *InMemoryStore) ListAgents(_ context.Context, opts models.ListOptions) ([]*models.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := page(s.agentOrder, opts)
	agents := make([]*models.Agent, 0, len(ids))
	for _, id := range ids {
		agents = append(agents, cloneAgent(s.agents[id]))
	}
	return agents, nil
}

// UpdateAgent replaces an existing agent.
func (s *InMemoryStore) UpdateAgent(_ context.Context, agent *models.Agent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.agents[agent.ID]; !ok {
		return apperr.NotFound("agent", agent.ID)
	}
	s.agents[agent.ID] = cloneAgent(agent)
	return nil
}

// DeleteAgent removes an agent.
func (s *InMemoryStore) DeleteAgent(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.agents[id]; !ok {
		return apperr.NotFound("agent", id)
	}
	delete(s.agents, id)
	s.agentOrder = slices.DeleteFunc(s.agentOrder, func(v string) bool { return v == id })
	return nil
}

// CreateFlow inserts a flow.
func (s *InMemoryStore) CreateFlow(_ context.Context, flow *models.Flow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.flows[flow.ID]; ok {
		return fmt.Errorf("flow %s already exists", flow.ID)
	}
	s.flows[flow.ID] = cloneFlow(flow)
	s.flowOrder = append(s.flowOrder, flow.ID)
	return nil
}

// GetFlow retrieves a flow by its ID.
func (s *InMemoryStore) GetFlow(_ context.Context, id string) (*models.Flow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	flow, ok := s.flows[id]
	if !ok {
		return nil, apperr.NotFound("flow", id)
	}
	return cloneFlow(flow), nil
}

// ListFlows returns a page of flows in creation order.
func (s *InMemoryStore) ListFlows(_ context.Context, opts models.ListOptions) ([]*models.Flow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := page(s.flowOrder, opts)
	flows := make([]*models.Flow, 0, len(ids))
	for _, id := range ids {
		flows = append(flows, cloneFlow(s.flows[id]))
	}
	return flows, nil
}

// UpdateFlow replaces an existing flow.
func (s *InMemoryStore) UpdateFlow(_ context.Context, flow *models.Flow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.flows[flow.ID]; !ok {
		return apperr.NotFound("flow", flow.ID)
	}
	s.flows[flow.ID] = cloneFlow(flow)
	return nil
}

// DeleteFlow removes a flow.
func (s *InMemoryStore) DeleteFlow(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.flows[id]; !ok {
		return apperr.NotFound("flow", id)
	}
	delete(s.flows, id)
	s.flowOrder = slices.DeleteFunc(s.flowOrder, func(v string) bool { return v == id })
	return nil
}

// Ping always succeeds.
func (s *InMemoryStore) Ping(context.Context) error { return nil }

// Close is a no-op.
func (s *InMemoryStore) Close() error { return nil }

func page(ids []string, opts models.ListOptions) []string {
	opts = opts.Normalize()
	if opts.Offset >= len(ids) {
		return nil
	}
	end := min(opts.Offset+opts.Limit, len(ids))
	return ids[opts.Offset:end]
}

func cloneAgent(a *models.Agent) *models.Agent {
	c := *a
	c.ToolsEnabled = slices.Clone(a.ToolsEnabled)
	if c.ToolsEnabled == nil {
		c.ToolsEnabled = []string{}
	}
	return &c
}

func cloneFlow(f *models.Flow) *models.Flow {
	c := *f
	c.AgentIDs = slices.Clone(f.AgentIDs)
	if f.Description != nil {
		d := *f.Description
		c.Description = &d
	}
	return &c
}
