package llm

import (
	"context"
	"strings"

	"multiagent-manager/backend/internal/tools"
)

// EchoModel is an offline model that answers with the user prompt, tagged
// with the first line of the system prompt. Useful for development and demos.
type EchoModel struct{}

func (EchoModel) Name() string { return "echo" }

func (EchoModel) Complete(ctx context.Context, messages []Message, _ []tools.Tool) (Reply, error) {
	if err := ctx.Err(); err != nil {
		return Reply{}, err
	}

	var system, user string
	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			system = msg.Content
		case RoleUser:
			user = msg.Content
		}
	}

	tag, _, _ := strings.Cut(strings.TrimSpace(system), "\n")
	if r := []rune(tag); len(r) > 40 {
		tag = string(r[:40])
	}
	if tag == "" {
		return Reply{Content: user}, nil
	}
	return Reply{Content: "[" + tag + "] " + user}, nil
}
