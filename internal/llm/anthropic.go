package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/shared/constant"

	"multiagent-manager/backend/internal/tools"
)

// AnthropicModel wraps the Anthropic Messages API.
type AnthropicModel struct {
	client *anthropic.Client
	opts   ModelOptions
}

// NewAnthropicModel creates an Anthropic model. SDK retries are disabled.
func NewAnthropicModel(apiKey string, opts ModelOptions) *AnthropicModel {
	if opts.Model == "" {
		opts.Model = "claude-3-5-haiku-latest"
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 1024
	}
	clientOpts := []option.RequestOption{option.WithMaxRetries(0)}
	if apiKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(apiKey))
	}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(opts.BaseURL))
	}
	client := anthropic.NewClient(clientOpts...)
	return &AnthropicModel{client: &client, opts: opts}
}

func (m *AnthropicModel) Name() string { return "anthropic/" + m.opts.Model }

// Complete sends the conversation. The system message is lifted into the
// request's system field; consecutive tool results share one user turn.
func (m *AnthropicModel) Complete(ctx context.Context, messages []Message, available []tools.Tool) (Reply, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(m.opts.Model),
		MaxTokens: m.opts.MaxTokens,
		Messages:  buildAnthropicMessages(messages),
	}
	if m.opts.Temperature > 0 {
		params.Temperature = anthropic.Float(m.opts.Temperature)
	}
	for _, msg := range messages {
		if msg.Role == RoleSystem && msg.Content != "" {
			params.System = append(params.System, anthropic.TextBlockParam{Text: msg.Content})
		}
	}
	if len(available) > 0 {
		params.Tools = buildAnthropicTools(available)
	}

	resp, err := m.client.Messages.New(ctx, params)
	if err != nil {
		return Reply{}, fmt.Errorf("anthropic api error: %w", err)
	}

	var reply Reply
	var text strings.Builder
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			text.WriteString(block.AsText().Text)
		case "tool_use":
			tu := block.AsToolUse()
			args, err := json.Marshal(tu.Input)
			if err != nil {
				args = []byte("{}")
			}
			reply.ToolCalls = append(reply.ToolCalls, ToolCall{ID: tu.ID, Name: tu.Name, Arguments: string(args)})
		}
	}
	reply.Content = text.String()
	return reply, nil
}

func buildAnthropicMessages(messages []Message) []anthropic.MessageParam {
	var out []anthropic.MessageParam
	var results []anthropic.ContentBlockParamUnion

	flush := func() {
		if len(results) > 0 {
			out = append(out, anthropic.NewUserMessage(results...))
			results = nil
		}
	}

	for _, msg := range messages {
		switch msg.Role {
		case RoleTool:
			results = append(results, anthropic.NewToolResultBlock(msg.ToolCallID, msg.Content, isToolError(msg.Content)))
			continue
		case RoleUser:
			flush()
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		case RoleAssistant:
			flush()
			var blocks []anthropic.ContentBlockParamUnion
			if msg.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				var input any = json.RawMessage(tc.Arguments)
				if !json.Valid([]byte(tc.Arguments)) {
					input = map[string]any{}
				}
				blocks = append(blocks, anthropic.NewToolUseBlock(tc.ID, input, tc.Name))
			}
			if len(blocks) > 0 {
				out = append(out, anthropic.NewAssistantMessage(blocks...))
			}
		}
	}
	flush()
	return out
}

func buildAnthropicTools(available []tools.Tool) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, len(available))
	for i, t := range available {
		schema := anthropic.ToolInputSchemaParam{Type: constant.Object("object")}
		params := t.Parameters()
		if props, ok := params["properties"]; ok {
			schema.Properties = props
		}
		if required, ok := params["required"].([]string); ok {
			schema.Required = required
		}
		out[i] = anthropic.ToolUnionParamOfTool(schema, t.Name())
		out[i].OfTool.Description = anthropic.String(t.Description())
	}
	return out
}

// isToolError recognises the JSON error envelope produced by ToolLoop.
func isToolError(content string) bool {
	var probe struct {
		Error *string `json:"error"`
	}
	return json.Unmarshal([]byte(content), &probe) == nil && probe.Error != nil
}
