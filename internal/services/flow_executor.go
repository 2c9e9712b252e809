package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"multiagent-manager/backend/internal/llm"
	"multiagent-manager/backend/internal/logging"
	"multiagent-manager/backend/internal/metrics"
	"multiagent-manager/backend/internal/repository"
	"multiagent-manager/backend/pkg/apperr"
	"multiagent-manager/backend/pkg/models"
)

// ExecutorOptions tunes flow execution.
type ExecutorOptions struct {
	// StepTimeout bounds a single invoker call. Zero means no limit.
	StepTimeout time.Duration
	// ExposePartialLog attaches the steps completed before a failure to the
	// returned error.
	ExposePartialLog bool
}

// FlowExecutor runs a flow's agents as a strictly sequential pipeline, each
// step's output becoming the next step's input. It keeps no state between
// invocations and is safe for concurrent use.
type FlowExecutor struct {
	flows   repository.FlowStore
	agents  repository.AgentStore
	invoker ModelInvoker
	opts    ExecutorOptions
	logger  *logging.Logger
	metrics *metrics.Metrics
}

// NewFlowExecutor creates a new FlowExecutor. m may be nil.
func NewFlowExecutor(flows repository.FlowStore, agents repository.AgentStore, invoker ModelInvoker, opts ExecutorOptions, logger *logging.Logger, m *metrics.Metrics) *FlowExecutor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &FlowExecutor{
		flows:   flows,
		agents:  agents,
		invoker: invoker,
		opts:    opts,
		logger:  logger,
		metrics: m,
	}
}

// Invoke runs the flow identified by flowID on initialUserPrompt.
//
// Failures are all-or-nothing: when a step fails no result is returned and
// the error identifies the step. Nothing is retried.
func (e *FlowExecutor) Invoke(ctx context.Context, flowID, initialUserPrompt string) (*models.FlowInvocationResult, error) {
	ctx, span := tracer.Start(ctx, "flow.invoke", trace.WithAttributes(attribute.String("flow.id", flowID)))
	defer span.End()

	start := time.Now()
	result, err := e.invoke(ctx, flowID, initialUserPrompt)
	elapsed := time.Since(start)
	e.metrics.ObserveInvocation(kindFlow, outcome(err), elapsed)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if apperr.KindOf(err) == apperr.KindInvocationFailed || apperr.KindOf(err) == apperr.KindInternal {
			e.logger.Error("flow invocation failed", "flow_id", flowID, "error", err, "duration", elapsed)
		} else {
			e.logger.Warn("flow invocation rejected", "flow_id", flowID, "error", err)
		}
		return nil, err
	}

	e.logger.Info("flow invocation completed", "flow_id", flowID, "steps", len(result.Log), "duration", elapsed)
	return result, nil
}

func (e *FlowExecutor) invoke(ctx context.Context, flowID, prompt string) (*models.FlowInvocationResult, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, apperr.InvalidInput("initial_user_prompt must not be empty")
	}

	flow, err := e.flows.GetFlow(ctx, flowID)
	if err != nil {
		return nil, storeErr(err, "resolve flow")
	}
	if len(flow.AgentIDs) == 0 {
		invalid := apperr.InvalidInput("flow %q has no agents", flow.Name)
		invalid.EntityID = flow.ID
		return nil, invalid
	}

	agents, err := e.resolveAgents(ctx, flow.AgentIDs)
	if err != nil {
		return nil, err
	}
	e.metrics.ObserveFlowLength(len(agents))
	e.logger.Info("flow invocation started", "flow_id", flow.ID, "flow_name", flow.Name, "steps", len(agents))

	log := make([]models.ExecutionStep, 0, len(agents))
	current := prompt
	for i, agent := range agents {
		output, err := e.runStep(ctx, i, agent, current)
		if err != nil {
			stepErr := apperr.StepFailed(i, agent.ID, agent.Name, err)
			if e.opts.ExposePartialLog {
				stepErr.PartialLog = log
			}
			return nil, stepErr
		}

		log = append(log, models.ExecutionStep{
			AgentID:          agent.ID,
			AgentName:        agent.Name,
			SystemPromptUsed: agent.SystemPrompt,
			InputPrompt:      current,
			OutputResponse:   output,
		})
		current = output
	}

	return &models.FlowInvocationResult{
		FlowID:      flow.ID,
		FlowName:    flow.Name,
		FinalOutput: current,
		Log:         log,
	}, nil
}

// resolveAgents loads every agent in pipeline order before any step runs.
// Repeated ids share one snapshot.
func (e *FlowExecutor) resolveAgents(ctx context.Context, ids []string) ([]*models.Agent, error) {
	cache := make(map[string]*models.Agent, len(ids))
	agents := make([]*models.Agent, len(ids))
	for i, id := range ids {
		if agent, ok := cache[id]; ok {
			agents[i] = agent
			continue
		}
		agent, err := e.agents.GetAgent(ctx, id)
		if err != nil {
			return nil, storeErr(err, "resolve flow agents")
		}
		cache[id] = agent
		agents[i] = agent
	}
	return agents, nil
}

func (e *FlowExecutor) runStep(ctx context.Context, index int, agent *models.Agent, input string) (string, error) {
	ctx, span := tracer.Start(ctx, "flow.step", trace.WithAttributes(
		attribute.Int("step.position", index+1),
		attribute.String("agent.id", agent.ID),
		attribute.String("agent.name", agent.Name),
	))
	defer span.End()

	e.logger.Debug("flow step started", "position", index+1, "agent_id", agent.ID, "input_length", len(input))

	start := time.Now()
	output, err := callDetached(ctx, e.invoker, llm.Prompt{
		System: agent.SystemPrompt,
		User:   input,
		Tools:  agent.ToolsEnabled,
	}, e.opts.StepTimeout)
	if err == nil && strings.TrimSpace(output) == "" {
		err = errEmptyOutput
	}
	elapsed := time.Since(start)

	if err != nil {
		e.metrics.ObserveStep(metrics.OutcomeFailed, elapsed)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	e.metrics.ObserveStep(metrics.OutcomeSuccess, elapsed)
	e.logger.Debug("flow step completed", "position", index+1, "agent_id", agent.ID, "duration", elapsed)
	return output, nil
}

// callDetached runs the invoker outside ctx's cancellation so an abandoned
// call may finish on its own. When ctx ends first the call's result is
// dropped and ctx's error returned.
func callDetached(ctx context.Context, invoker ModelInvoker, prompt llm.Prompt, timeout time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	callCtx := context.WithoutCancel(ctx)
	cancel := context.CancelFunc(func() {})
	var expired <-chan time.Time
	if timeout > 0 {
		callCtx, cancel = context.WithTimeout(callCtx, timeout)
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	type result struct {
		output string
		err    error
	}
	done := make(chan result, 1)
	go func() {
		defer cancel()
		output, err := invoker.Invoke(callCtx, prompt)
		done <- result{output, err}
	}()

	select {
	case r := <-done:
		return r.output, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	case <-expired:
		return "", fmt.Errorf("step timed out after %s: %w", timeout, context.DeadlineExceeded)
	}
}
