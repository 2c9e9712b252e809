package services

import (
	"context"
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

// AgentInvoker runs one generation for either a stored agent or an ad-hoc
// system prompt.
type AgentInvoker struct {
	agents  repository.AgentStore
	invoker ModelInvoker
	timeout time.Duration
	logger  *logging.Logger
	metrics *metrics.Metrics
}

// NewAgentInvoker creates a new AgentInvoker. timeout bounds the call, zero
// means no limit.
func NewAgentInvoker(agents repository.AgentStore, invoker ModelInvoker, timeout time.Duration, logger *logging.Logger, m *metrics.Metrics) *AgentInvoker {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &AgentInvoker{agents: agents, invoker: invoker, timeout: timeout, logger: logger, metrics: m}
}

// Invoke validates req, resolves the system prompt and calls the model once.
func (s *AgentInvoker) Invoke(ctx context.Context, req models.AgentInvokeRequest) (*models.AgentInvokeResponse, error) {
	ctx, span := tracer.Start(ctx, "agent.invoke")
	defer span.End()

	start := time.Now()
	resp, err := s.invoke(ctx, req)
	s.metrics.ObserveInvocation(kindAgent, outcome(err), time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Warn("agent invocation failed", "error", err)
		return nil, err
	}
	return resp, nil
}

func (s *AgentInvoker) invoke(ctx context.Context, req models.AgentInvokeRequest) (*models.AgentInvokeResponse, error) {
	if strings.TrimSpace(req.UserPrompt) == "" {
		return nil, apperr.InvalidInput("user_prompt must not be empty")
	}

	prompt := llm.Prompt{User: req.UserPrompt}
	switch {
	case req.AgentID != nil && req.SystemPrompt != nil:
		return nil, apperr.InvalidInput("provide either agent_id or system_prompt, not both")
	case req.AgentID != nil:
		id := strings.TrimSpace(*req.AgentID)
		if id == "" {
			return nil, apperr.InvalidInput("agent_id must not be empty")
		}
		agent, err := s.agents.GetAgent(ctx, id)
		if err != nil {
			return nil, storeErr(err, "resolve agent")
		}
		prompt.System = agent.SystemPrompt
		prompt.Tools = agent.ToolsEnabled
		trace.SpanFromContext(ctx).SetAttributes(
			attribute.String("agent.id", agent.ID),
			attribute.String("agent.name", agent.Name),
		)
	case req.SystemPrompt != nil:
		prompt.System = *req.SystemPrompt
	default:
		return nil, apperr.InvalidInput("either agent_id or system_prompt is required")
	}

	output, err := callDetached(ctx, s.invoker, prompt, s.timeout)
	if err == nil && strings.TrimSpace(output) == "" {
		err = errEmptyOutput
	}
	if err != nil {
		return nil, apperr.InvocationFailed(err, "agent invocation failed")
	}

	return &models.AgentInvokeResponse{
		AgentResponse:    output,
		UsedSystemPrompt: prompt.System,
	}, nil
}
