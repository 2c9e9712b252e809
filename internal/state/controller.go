// Package state keeps client-side state for the multi-agent manager: cached
// agent, flow and tool lists plus one explicit Result per operation.
package state

import (
	"context"
	"slices"
	"sync"

	"multiagent-manager/backend/pkg/models"
)

// Status is where an operation is in its lifecycle.
type Status int

const (
	Idle Status = iota
	InProgress
	Succeeded
	Failed
)

func (s Status) String() string {
	switch s {
	case InProgress:
		return "in_progress"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "idle"
	}
}

// Result is the state of one operation. Value is set only when Succeeded,
// Err only when Failed.
type Result[T any] struct {
	Status Status
	Value  T
	Err    error
}

// Op names an operation tracked by the Controller.
type Op string

const (
	OpRefreshAgents Op = "refresh_agents"
	OpRefreshFlows  Op = "refresh_flows"
	OpLoadTools     Op = "load_tools"
	OpCreateAgent   Op = "create_agent"
	OpUpdateAgent   Op = "update_agent"
	OpDeleteAgent   Op = "delete_agent"
	OpCreateFlow    Op = "create_flow"
	OpUpdateFlow    Op = "update_flow"
	OpDeleteFlow    Op = "delete_flow"
	OpInvokeAgent   Op = "invoke_agent"
	OpInvokeFlow    Op = "invoke_flow"
)

// API is the server surface the Controller drives. *client.Client
// implements it.
type API interface {
	ListAgents(ctx context.Context, opts models.ListOptions) ([]models.Agent, error)
	CreateAgent(ctx context.Context, input models.AgentInput) (*models.Agent, error)
	UpdateAgent(ctx context.Context, id string, input models.AgentInput) (*models.Agent, error)
	DeleteAgent(ctx context.Context, id string) error
	ListFlows(ctx context.Context, opts models.ListOptions) ([]models.Flow, error)
	CreateFlow(ctx context.Context, input models.FlowInput) (*models.Flow, error)
	UpdateFlow(ctx context.Context, id string, input models.FlowInput) (*models.Flow, error)
	DeleteFlow(ctx context.Context, id string) error
	InvokeAgent(ctx context.Context, req models.AgentInvokeRequest) (*models.AgentInvokeResponse, error)
	InvokeFlow(ctx context.Context, id, initialUserPrompt string) (*models.FlowInvocationResult, error)
	ListTools(ctx context.Context) ([]models.Tool, error)
}

type entry struct {
	status Status
	value  any
	err    error
}

// Controller is safe for concurrent use. When the same operation is started
// again before an earlier call finishes, only the latest call's outcome is
// recorded.
type Controller struct {
	api      API
	observer func(Op, Status)

	mu      sync.RWMutex
	agents  []models.Agent
	flows   []models.Flow
	tools   []models.Tool
	results map[Op]entry
	seq     map[Op]uint64
}

// Option configures a Controller.
type Option func(*Controller)

// WithObserver registers fn to be called after every status change. fn runs
// synchronously and must not call back into the Controller's mutating
// methods.
func WithObserver(fn func(Op, Status)) Option {
	return func(c *Controller) { c.observer = fn }
}

func NewController(api API, opts ...Option) *Controller {
	c := &Controller{
		api:     api,
		results: make(map[Op]entry),
		seq:     make(map[Op]uint64),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the typed Result of op. A result whose value is not a T
// reports its status with a zero Value.
func Get[T any](c *Controller, op Op) Result[T] {
	c.mu.RLock()
	e := c.results[op]
	c.mu.RUnlock()

	r := Result[T]{Status: e.status, Err: e.err}
	if v, ok := e.value.(T); ok {
		r.Value = v
	}
	return r
}

// Status reports only the status of op.
func (c *Controller) Status(op Op) Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.results[op].status
}

// Reset returns op to Idle, dropping its value or error.
func (c *Controller) Reset(op Op) {
	c.mu.Lock()
	c.seq[op]++
	delete(c.results, op)
	c.mu.Unlock()
	c.notify(op, Idle)
}

func (c *Controller) Agents() []models.Agent {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.agents)
}

func (c *Controller) Flows() []models.Flow {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.flows)
}

func (c *Controller) Tools() []models.Tool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.tools)
}

// AgentName returns the cached name for id, or id itself when unknown.
func (c *Controller) AgentName(id string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, a := range c.agents {
		if a.ID == id {
			return a.Name
		}
	}
	return id
}

func (c *Controller) RefreshAgents(ctx context.Context) ([]models.Agent, error) {
	return run(ctx, c, OpRefreshAgents, func(ctx context.Context) ([]models.Agent, error) {
		return c.api.ListAgents(ctx, models.ListOptions{})
	}, func(v []models.Agent) { c.agents = slices.Clone(v) })
}

func (c *Controller) RefreshFlows(ctx context.Context) ([]models.Flow, error) {
	return run(ctx, c, OpRefreshFlows, func(ctx context.Context) ([]models.Flow, error) {
		return c.api.ListFlows(ctx, models.ListOptions{})
	}, func(v []models.Flow) { c.flows = slices.Clone(v) })
}

func (c *Controller) LoadTools(ctx context.Context) ([]models.Tool, error) {
	return run(ctx, c, OpLoadTools, func(ctx context.Context) ([]models.Tool, error) {
		return c.api.ListTools(ctx)
	}, func(v []models.Tool) { c.tools = slices.Clone(v) })
}

// CreateAgent creates an agent and refreshes the agent list. A failed
// refresh is recorded under OpRefreshAgents only.
func (c *Controller) CreateAgent(ctx context.Context, input models.AgentInput) (*models.Agent, error) {
	agent, err := run(ctx, c, OpCreateAgent, func(ctx context.Context) (*models.Agent, error) {
		return c.api.CreateAgent(ctx, input)
	})
	if err == nil {
		_, _ = c.RefreshAgents(ctx)
	}
	return agent, err
}

func (c *Controller) UpdateAgent(ctx context.Context, id string, input models.AgentInput) (*models.Agent, error) {
	agent, err := run(ctx, c, OpUpdateAgent, func(ctx context.Context) (*models.Agent, error) {
		return c.api.UpdateAgent(ctx, id, input)
	})
	if err == nil {
		_, _ = c.RefreshAgents(ctx)
	}
	return agent, err
}

func (c *Controller) DeleteAgent(ctx context.Context, id string) error {
	_, err := run(ctx, c, OpDeleteAgent, func(ctx context.Context) (string, error) {
		return id, c.api.DeleteAgent(ctx, id)
	})
	if err == nil {
		_, _ = c.RefreshAgents(ctx)
	}
	return err
}

func (c *Controller) CreateFlow(ctx context.Context, input models.FlowInput) (*models.Flow, error) {
	flow, err := run(ctx, c, OpCreateFlow, func(ctx context.Context) (*models.Flow, error) {
		return c.api.CreateFlow(ctx, input)
	})
	if err == nil {
		_, _ = c.RefreshFlows(ctx)
	}
	return flow, err
}

func (c *Controller) UpdateFlow(ctx context.Context, id string, input models.FlowInput) (*models.Flow, error) {
	flow, err := run(ctx, c, OpUpdateFlow, func(ctx context.Context) (*models.Flow, error) {
		return c.api.UpdateFlow(ctx, id, input)
	})
	if err == nil {
		_, _ = c.RefreshFlows(ctx)
	}
	return flow, err
}

func (c *Controller) DeleteFlow(ctx context.Context, id string) error {
	_, err := run(ctx, c, OpDeleteFlow, func(ctx context.Context) (string, error) {
		return id, c.api.DeleteFlow(ctx, id)
	})
	if err == nil {
		_, _ = c.RefreshFlows(ctx)
	}
	return err
}

func (c *Controller) InvokeAgent(ctx context.Context, req models.AgentInvokeRequest) (*models.AgentInvokeResponse, error) {
	return run(ctx, c, OpInvokeAgent, func(ctx context.Context) (*models.AgentInvokeResponse, error) {
		return c.api.InvokeAgent(ctx, req)
	})
}

func (c *Controller) InvokeFlow(ctx context.Context, id, initialUserPrompt string) (*models.FlowInvocationResult, error) {
	return run(ctx, c, OpInvokeFlow, func(ctx context.Context) (*models.FlowInvocationResult, error) {
		return c.api.InvokeFlow(ctx, id, initialUserPrompt)
	})
}

// run records the outcome of fn under op. Each apply func runs under c.mu
// after a successful call that is still the latest for op.
func run[T any](ctx context.Context, c *Controller, op Op, fn func(context.Context) (T, error), apply ...func(T)) (T, error) {
	c.mu.Lock()
	c.seq[op]++
	gen := c.seq[op]
	c.results[op] = entry{status: InProgress}
	c.mu.Unlock()
	c.notify(op, InProgress)

	v, err := fn(ctx)

	final := entry{status: Succeeded, value: v}
	if err != nil {
		final = entry{status: Failed, err: err}
	}

	c.mu.Lock()
	current := c.seq[op] == gen
	if current {
		c.results[op] = final
		if err == nil {
			for _, a := range apply {
				a(v)
			}
		}
	}
	c.mu.Unlock()
	if current {
		c.notify(op, final.status)
	}
	return v, err
}

func (c *Controller) notify(op Op, s Status) {
	if c.observer != nil {
		c.observer(op, s)
	}
}
