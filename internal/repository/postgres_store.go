package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"multiagent-manager/backend/pkg/apperr"
	"multiagent-manager/backend/pkg/models"
)

// PostgresStore is a PostgreSQL implementation of Store. Tool and agent id
// lists are kept in JSONB columns.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// OpenPostgres connects a pool and applies migrations.
func OpenPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB := stdlib.OpenDBFromPool(pool)
	defer sqlDB.Close()
	if err := Migrate(sqlDB, DialectPostgres); err != nil {
		pool.Close()
		return nil, err
	}
	return NewPostgresStore(pool), nil
}

// CreateAgent inserts an agent.
func (s *PostgresStore) CreateAgent(ctx context.Context, agent *models.Agent) error {
	tools, err := json.Marshal(nonNil(agent.ToolsEnabled))
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx,
		"INSERT INTO agents (id, name, system_prompt, tools_enabled) VALUES ($1, $2, $3, $4)",
		agent.ID, agent.Name, agent.SystemPrompt, tools)
	if err != nil {
		return fmt.Errorf("insert agent: %w", err)
	}
	return nil
}

// GetAgent retrieves an agent by its ID.
func (s *PostgresStore) GetAgent(ctx context.Context, id string) (*models.Agent, error) {
	row := s.db.QueryRow(ctx,
		"SELECT id, name, system_prompt, tools_enabled FROM agents WHERE id = $1", id)
	agent, err := scanAgent(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("agent", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get agent: %w", err)
	}
	return agent, nil
}

// ListAgents returns a page of agents in creation order.
func (s *PostgresStore) ListAgents(ctx context.Context, opts models.ListOptions) ([]*models.Agent, error) {
	opts = opts.Normalize()
	rows, err := s.db.Query(ctx,
		"SELECT id, name, system_prompt, tools_enabled FROM agents ORDER BY created_at, id OFFSET $1 LIMIT $2",
		opts.Offset, opts.Limit)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	defer rows.Close()

	agents := []*models.Agent{}
	for rows.Next() {
		agent, err := scanAgent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan agent: %w", err)
		}
		agents = append(agents, agent)
	}
	return agents, rows.Err()
}

// UpdateAgent replaces an existing agent.
func (s *PostgresStore) UpdateAgent(ctx context.Context, agent *models.Agent) error {
	tools, err := json.Marshal(nonNil(agent.ToolsEnabled))
	if err != nil {
		return err
	}
	tag, err := s.db.Exec(ctx,
		"UPDATE agents SET name = $1, system_prompt = $2, tools_enabled = $3, updated_at = now() WHERE id = $4",
		agent.Name, agent.SystemPrompt, tools, agent.ID)
	if err != nil {
		return fmt.Errorf("update agent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("agent", agent.ID)
	}
	return nil
}

// DeleteAgent removes an agent.
func (s *PostgresStore) DeleteAgent(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, "DELETE FROM agents WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete agent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("agent", id)
	}
	return nil
}

// CreateFlow inserts a flow.
func (s *PostgresStore) CreateFlow(ctx context.Context, flow *models.Flow) error {
	ids, err := json.Marshal(nonNil(flow.AgentIDs))
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx,
		"INSERT INTO flows (id, name, description, agent_ids) VALUES ($1, $2, $3, $4)",
		flow.ID, flow.Name, flow.Description, ids)
	if err != nil {
		return fmt.Errorf("insert flow: %w", err)
	}
	return nil
}

// GetFlow retrieves a flow by its ID.
func (s *PostgresStore) GetFlow(ctx context.Context, id string) (*models.Flow, error) {
	row := s.db.QueryRow(ctx,
		"SELECT id, name, description, agent_ids FROM flows WHERE id = $1", id)
	flow, err := scanFlow(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("flow", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get flow: %w", err)
	}
	return flow, nil
}

// ListFlows returns a page of flows in creation order.
func (s *PostgresStore) ListFlows(ctx context.Context, opts models.ListOptions) ([]*models.Flow, error) {
	opts = opts.Normalize()
	rows, err := s.db.Query(ctx,
		"SELECT id, name, description, agent_ids FROM flows ORDER BY created_at, id OFFSET $1 LIMIT $2",
		opts.Offset, opts.Limit)
	if err != nil {
		return nil, fmt.Errorf("list flows: %w", err)
	}
	defer rows.Close()

	flows := []*models.Flow{}
	for rows.Next() {
		flow, err := scanFlow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan flow: %w", err)
		}
		flows = append(flows, flow)
	}
	return flows, rows.Err()
}

// UpdateFlow replaces an existing flow.
func (s *PostgresStore) UpdateFlow(ctx context.Context, flow *models.Flow) error {
	ids, err := json.Marshal(nonNil(flow.AgentIDs))
	if err != nil {
		return err
	}
	tag, err := s.db.Exec(ctx,
		"UPDATE flows SET name = $1, description = $2, agent_ids = $3, updated_at = now() WHERE id = $4",
		flow.Name, flow.Description, ids, flow.ID)
	if err != nil {
		return fmt.Errorf("update flow: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("flow", flow.ID)
	}
	return nil
}

// DeleteFlow removes a flow.
func (s *PostgresStore) DeleteFlow(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, "DELETE FROM flows WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete flow: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("flow", id)
	}
	return nil
}

// Ping checks the pool.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.db.Close()
	return nil
}

func scanAgent(row pgx.Row) (*models.Agent, error) {
	var agent models.Agent
	var tools []byte
	if err := row.Scan(&agent.ID, &agent.Name, &agent.SystemPrompt, &tools); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(tools, &agent.ToolsEnabled); err != nil {
		return nil, fmt.Errorf("decode tools_enabled: %w", err)
	}
	agent.ToolsEnabled = nonNil(agent.ToolsEnabled)
	return &agent, nil
}

func scanFlow(row pgx.Row) (*models.Flow, error) {
	var flow models.Flow
	var ids []byte
	if err := row.Scan(&flow.ID, &flow.Name, &flow.Description, &ids); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(ids, &flow.AgentIDs); err != nil {
		return nil, fmt.Errorf("decode agent_ids: %w", err)
	}
	return &flow, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
