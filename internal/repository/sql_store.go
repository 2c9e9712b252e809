package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"multiagent-manager/backend/pkg/apperr"
	"multiagent-manager/backend/pkg/models"
)

// SQLStore implements Store over database/sql for MySQL and SQLite. Both
// dialects share the same queries; JSON lists are stored as TEXT.
type SQLStore struct {
	db *sqlx.DB
}

type agentRow struct {
	ID           string `db:"id"`
	Name         string `db:"name"`
	SystemPrompt string `db:"system_prompt"`
	ToolsEnabled string `db:"tools_enabled"`
}

type flowRow struct {
	ID          string         `db:"id"`
	Name        string         `db:"name"`
	Description sql.NullString `db:"description"`
	AgentIDs    string         `db:"agent_ids"`
}

// NewSQLStore wraps an open database. driverName is the database/sql driver
// the connection was opened with.
func NewSQLStore(db *sql.DB, driverName string) *SQLStore {
	return &SQLStore{db: sqlx.NewDb(db, driverName)}
}

// CreateAgent inserts an agent.
func (s *SQLStore) CreateAgent(ctx context.Context, agent *models.Agent) error {
	tools, err := json.Marshal(nonNil(agent.ToolsEnabled))
	if err != nil {
		return err
	}
	now := time.Now().UnixNano()
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO agents (id, name, system_prompt, tools_enabled, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
		agent.ID, agent.Name, agent.SystemPrompt, string(tools), now, now)
	if err != nil {
		return fmt.Errorf("insert agent: %w", err)
	}
	return nil
}

// GetAgent retrieves an agent by its ID.
func (s *SQLStore) GetAgent(ctx context.Context, id string) (*models.Agent, error) {
	var row agentRow
	err := s.db.GetContext(ctx, &row,
		"SELECT id, name, system_prompt, tools_enabled FROM agents WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("agent", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get agent: %w", err)
	}
	return row.toModel()
}

// ListAgents returns a page of agents in creation order.
func (s *SQLStore) ListAgents(ctx context.Context, opts models.ListOptions) ([]*models.Agent, error) {
	opts = opts.Normalize()
	var rows []agentRow
	err := s.db.SelectContext(ctx, &rows,
		"SELECT id, name, system_prompt, tools_enabled FROM agents ORDER BY created_at, id LIMIT ? OFFSET ?",
		opts.Limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}

	agents := make([]*models.Agent, 0, len(rows))
	for _, row := range rows {
		agent, err := row.toModel()
		if err != nil {
			return nil, err
		}
		agents = append(agents, agent)
	}
	return agents, nil
}

// UpdateAgent replaces an existing agent. Existence is checked inside the
// transaction because MySQL reports unchanged rows as unaffected.
func (s *SQLStore) UpdateAgent(ctx context.Context, agent *models.Agent) error {
	tools, err := json.Marshal(nonNil(agent.ToolsEnabled))
	if err != nil {
		return err
	}
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := exists(ctx, tx, "agents", agent.ID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperr.NotFound("agent", agent.ID)
			}
			return err
		}
		_, err := tx.ExecContext(ctx,
			"UPDATE agents SET name = ?, system_prompt = ?, tools_enabled = ?, updated_at = ? WHERE id = ?",
			agent.Name, agent.SystemPrompt, string(tools), time.Now().UnixNano(), agent.ID)
		if err != nil {
			return fmt.Errorf("update agent: %w", err)
		}
		return nil
	})
}

// DeleteAgent removes an agent.
func (s *SQLStore) DeleteAgent(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "agents", "agent", id)
}

// CreateFlow inserts a flow.
func (s *SQLStore) CreateFlow(ctx context.Context, flow *models.Flow) error {
	ids, err := json.Marshal(nonNil(flow.AgentIDs))
	if err != nil {
		return err
	}
	now := time.Now().UnixNano()
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO flows (id, name, description, agent_ids, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
		flow.ID, flow.Name, nullString(flow.Description), string(ids), now, now)
	if err != nil {
		return fmt.Errorf("insert flow: %w", err)
	}
	return nil
}

// GetFlow retrieves a flow by its ID.
func (s *SQLStore) GetFlow(ctx context.Context, id string) (*models.Flow, error) {
	var row flowRow
	err := s.db.GetContext(ctx, &row,
		"SELECT id, name, description, agent_ids FROM flows WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("flow", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get flow: %w", err)
	}
	return row.toModel()
}

// ListFlows returns a page of flows in creation order.
func (s *SQLStore) ListFlows(ctx context.Context, opts models.ListOptions) ([]*models.Flow, error) {
	opts = opts.Normalize()
	var rows []flowRow
	err := s.db.SelectContext(ctx, &rows,
		"SELECT id, name, description, agent_ids FROM flows ORDER BY created_at, id LIMIT ? OFFSET ?",
		opts.Limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("list flows: %w", err)
	}

	flows := make([]*models.Flow, 0, len(rows))
	for _, row := range rows {
		flow, err := row.toModel()
		if err != nil {
			return nil, err
		}
		flows = append(flows, flow)
	}
	return flows, nil
}

// UpdateFlow replaces an existing flow.
func (s *SQLStore) UpdateFlow(ctx context.Context, flow *models.Flow) error {
	ids, err := json.Marshal(nonNil(flow.AgentIDs))
	if err != nil {
		return err
	}
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := exists(ctx, tx, "flows", flow.ID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperr.NotFound("flow", flow.ID)
			}
			return err
		}
		_, err := tx.ExecContext(ctx,
			"UPDATE flows SET name = ?, description = ?, agent_ids = ?, updated_at = ? WHERE id = ?",
			flow.Name, nullString(flow.Description), string(ids), time.Now().UnixNano(), flow.ID)
		if err != nil {
			return fmt.Errorf("update flow: %w", err)
		}
		return nil
	})
}

// DeleteFlow removes a flow.
func (s *SQLStore) DeleteFlow(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "flows", "flow", id)
}

// Ping checks the connection.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) deleteByID(ctx context.Context, table, entity, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", entity, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s: %w", entity, err)
	}
	if n == 0 {
		return apperr.NotFound(entity, id)
	}
	return nil
}

func (s *SQLStore) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func exists(ctx context.Context, tx *sqlx.Tx, table, id string) error {
	var found string
	return tx.GetContext(ctx, &found, "SELECT id FROM "+table+" WHERE id = ?", id)
}

func (r agentRow) toModel() (*models.Agent, error) {
	agent := &models.Agent{ID: r.ID, Name: r.Name, SystemPrompt: r.SystemPrompt}
	if err := json.Unmarshal([]byte(r.ToolsEnabled), &agent.ToolsEnabled); err != nil {
		return nil, fmt.Errorf("decode tools_enabled for agent %s: %w", r.ID, err)
	}
	agent.ToolsEnabled = nonNil(agent.ToolsEnabled)
	return agent, nil
}

func (r flowRow) toModel() (*models.Flow, error) {
	flow := &models.Flow{ID: r.ID, Name: r.Name}
	if r.Description.Valid {
		d := r.Description.String
		flow.Description = &d
	}
	if err := json.Unmarshal([]byte(r.AgentIDs), &flow.AgentIDs); err != nil {
		return nil, fmt.Errorf("decode agent_ids for flow %s: %w", r.ID, err)
	}
	return flow, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
