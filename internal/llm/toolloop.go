package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"multiagent-manager/backend/internal/logging"
	"multiagent-manager/backend/internal/tools"
)

// DefaultMaxToolCalls bounds the tool calls made during one invocation.
const DefaultMaxToolCalls = 5

// ErrToolCallLimit is returned when a model keeps requesting tools past the limit.
var ErrToolCallLimit = errors.New("tool call limit exceeded")

// ToolLoop drives a ChatModel until it answers without requesting tools.
// Tool failures are reported back to the model as JSON, never to the caller.
type ToolLoop struct {
	model    ChatModel
	catalog  *tools.Catalog
	maxCalls int
	logger   *logging.Logger
}

// NewToolLoop creates a ToolLoop. maxCalls <= 0 selects DefaultMaxToolCalls.
func NewToolLoop(model ChatModel, catalog *tools.Catalog, maxCalls int, logger *logging.Logger) *ToolLoop {
	if maxCalls <= 0 {
		maxCalls = DefaultMaxToolCalls
	}
	if catalog == nil {
		catalog = tools.NewCatalog()
	}
	return &ToolLoop{model: model, catalog: catalog, maxCalls: maxCalls, logger: logger}
}

// Invoke implements Invoker.
func (l *ToolLoop) Invoke(ctx context.Context, prompt Prompt) (string, error) {
	available := l.catalog.Select(prompt.Tools)

	var messages []Message
	if prompt.System != "" {
		messages = append(messages, Message{Role: RoleSystem, Content: prompt.System})
	}
	messages = append(messages, Message{Role: RoleUser, Content: prompt.User})

	calls := 0
	for {
		reply, err := l.model.Complete(ctx, messages, available)
		if err != nil {
			return "", fmt.Errorf("%s: %w", l.model.Name(), err)
		}
		if len(reply.ToolCalls) == 0 {
			return reply.Content, nil
		}

		calls += len(reply.ToolCalls)
		if calls > l.maxCalls {
			return "", fmt.Errorf("%w: %d calls requested, limit is %d", ErrToolCallLimit, calls, l.maxCalls)
		}

		messages = append(messages, Message{
			Role:      RoleAssistant,
			Content:   reply.Content,
			ToolCalls: reply.ToolCalls,
		})
		for _, call := range reply.ToolCalls {
			messages = append(messages, Message{
				Role:       RoleTool,
				Content:    l.runTool(ctx, available, call),
				ToolCallID: call.ID,
				ToolName:   call.Name,
			})
		}
	}
}

func (l *ToolLoop) runTool(ctx context.Context, available []tools.Tool, call ToolCall) string {
	var tool tools.Tool
	for _, t := range available {
		if t.Name() == call.Name {
			tool = t
			break
		}
	}
	if tool == nil {
		return toolError(fmt.Sprintf("tool %q is not enabled", call.Name))
	}

	log := l.logger.With("tool", call.Name)
	args := json.RawMessage(call.Arguments)
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}
	if !json.Valid(args) {
		log.Warn("Malformed tool arguments", "arguments", call.Arguments)
		return toolError("arguments are not valid JSON")
	}

	out, err := tool.Call(ctx, args)
	if err != nil {
		log.Warn("Tool call failed", "error", err)
		return toolError(err.Error())
	}
	log.Debug("Tool call succeeded")
	return out
}

func toolError(msg string) string {
	b, _ := json.Marshal(map[string]string{"error": msg})
	return string(b)
}
