package repository

import (
	"context"

	"multiagent-manager/backend/pkg/models"
)

// AgentStore persists agents. Missing ids yield an apperr NotFound error.
type AgentStore interface {
	// CreateAgent inserts an agent whose ID has already been assigned.
	CreateAgent(ctx context.Context, agent *models.Agent) error
	// GetAgent retrieves an agent by its ID.
	GetAgent(ctx context.Context, id string) (*models.Agent, error)
	// ListAgents returns agents in creation order.
	ListAgents(ctx context.Context, opts models.ListOptions) ([]*models.Agent, error)
	// UpdateAgent replaces every mutable field of an existing agent.
	UpdateAgent(ctx context.Context, agent *models.Agent) error
	// DeleteAgent removes an agent. Flows referencing it are left untouched.
	DeleteAgent(ctx context.Context, id string) error
}

// FlowStore persists flows.
type FlowStore interface {
	CreateFlow(ctx context.Context, flow *models.Flow) error
	GetFlow(ctx context.Context, id string) (*models.Flow, error)
	ListFlows(ctx context.Context, opts models.ListOptions) ([]*models.Flow, error)
	UpdateFlow(ctx context.Context, flow *models.Flow) error
	DeleteFlow(ctx context.Context, id string) error
}

// Store is the Entity Store consumed by the services.
type Store interface {
	AgentStore
	FlowStore
	// Ping reports whether the backing storage is reachable.
	Ping(ctx context.Context) error
	Close() error
}
