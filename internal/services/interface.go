// Package services implements the agent and flow lifecycle, the flow
// executor and the single-agent invoker on top of a repository.Store and an
// llm.Invoker.
package services

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"

	"multiagent-manager/backend/internal/llm"
	"multiagent-manager/backend/internal/metrics"
	"multiagent-manager/backend/pkg/apperr"
	"multiagent-manager/backend/pkg/models"
)

// ModelInvoker is the generation capability shared by flow steps and the
// single-agent path.
type ModelInvoker interface {
	Invoke(ctx context.Context, prompt llm.Prompt) (string, error)
}

// ToolCatalog lists the tools agents may enable.
type ToolCatalog interface {
	List() []models.Tool
	// Unknown returns the names that are not in the catalog.
	Unknown(names []string) []string
}

// Validation limits, counted in runes.
const (
	MaxAgentNameLength   = 100
	MaxFlowNameLength    = 150
	MaxDescriptionLength = 255
)

// Invocation kinds used as the metrics "kind" label.
const (
	kindAgent = "agent"
	kindFlow  = "flow"
)

var tracer = otel.Tracer("multiagent-manager/backend/internal/services")

// storeErr passes apperr errors through and wraps anything else as Internal.
func storeErr(err error, op string) error {
	if _, ok := apperr.As(err); ok {
		return err
	}
	return apperr.Internal(err, "%s", op)
}

func outcome(err error) string {
	if err == nil {
		return metrics.OutcomeSuccess
	}
	switch apperr.KindOf(err) {
	case apperr.KindInvalidInput:
		return metrics.OutcomeInvalidInput
	case apperr.KindNotFound:
		return metrics.OutcomeNotFound
	case apperr.KindInvocationFailed:
		return metrics.OutcomeFailed
	default:
		return metrics.OutcomeError
	}
}

// errEmptyOutput marks a generation that returned no usable text.
var errEmptyOutput = errors.New("model returned an empty response")
