// Package llm turns a system prompt, a user prompt and a set of enabled tool
// names into generated text using one of the supported model providers.
package llm

import (
	"context"

	"multiagent-manager/backend/internal/tools"
)

// Prompt is a single generation request.
type Prompt struct {
	System string
	User   string
	// Tools names the catalog tools the model may call. Unknown names are ignored.
	Tools []string
}

// Invoker generates a response for a prompt. Implementations must be safe for
// concurrent use.
type Invoker interface {
	Invoke(ctx context.Context, prompt Prompt) (string, error)
}

// Role identifies the author of a Message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is a model's request to run a tool. Arguments is raw JSON.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// Message is one entry of a provider-neutral conversation.
type Message struct {
	Role    Role
	Content string
	// ToolCalls is set on assistant messages that requested tools.
	ToolCalls []ToolCall
	// ToolCallID and ToolName are set on tool result messages.
	ToolCallID string
	ToolName   string
}

// Reply is a model turn: either final text or a set of tool calls.
type Reply struct {
	Content   string
	ToolCalls []ToolCall
}

// ChatModel is a single round trip to a model provider.
type ChatModel interface {
	Complete(ctx context.Context, messages []Message, available []tools.Tool) (Reply, error)
	// Name is the provider/model pair, used in logs and metrics.
	Name() string
}

// InvokerFunc adapts a function to Invoker.
type InvokerFunc func(ctx context.Context, prompt Prompt) (string, error)

func (f InvokerFunc) Invoke(ctx context.Context, prompt Prompt) (string, error) {
	return f(ctx, prompt)
}
