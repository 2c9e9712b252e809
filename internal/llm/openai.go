package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"multiagent-manager/backend/internal/tools"
)

// ModelOptions are the generation settings shared by every provider.
type ModelOptions struct {
	Model       string
	Temperature float64
	MaxTokens   int64
	// BaseURL overrides the provider endpoint; used for proxies and tests.
	BaseURL string
}

// OpenAIModel wraps the OpenAI Chat Completions API.
type OpenAIModel struct {
	client *openai.Client
	opts   ModelOptions
}

// NewOpenAIModel creates an OpenAI model. SDK retries are disabled.
func NewOpenAIModel(apiKey string, opts ModelOptions) *OpenAIModel {
	if opts.Model == "" {
		opts.Model = "gpt-4o-mini"
	}
	clientOpts := []option.RequestOption{option.WithMaxRetries(0)}
	if apiKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(apiKey))
	}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(opts.BaseURL))
	}
	client := openai.NewClient(clientOpts...)
	return &OpenAIModel{client: &client, opts: opts}
}

func (m *OpenAIModel) Name() string { return "openai/" + m.opts.Model }

// Complete sends the conversation and returns the first choice.
func (m *OpenAIModel) Complete(ctx context.Context, messages []Message, available []tools.Tool) (Reply, error) {
	params := openai.ChatCompletionNewParams{
		Messages: buildOpenAIMessages(messages),
		Model:    openai.ChatModel(m.opts.Model),
	}
	if m.opts.Temperature > 0 {
		params.Temperature = openai.Float(m.opts.Temperature)
	}
	if m.opts.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(m.opts.MaxTokens)
	}
	if len(available) > 0 {
		params.Tools = buildOpenAITools(available)
	}

	resp, err := m.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return Reply{}, fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Reply{}, errors.New("no choices returned")
	}

	msg := resp.Choices[0].Message
	reply := Reply{Content: msg.Content}
	for _, tc := range msg.ToolCalls {
		reply.ToolCalls = append(reply.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return reply, nil
}

func buildOpenAIMessages(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(msg.Content))
		case RoleUser:
			out = append(out, openai.UserMessage(msg.Content))
		case RoleTool:
			out = append(out, openai.ToolMessage(msg.Content, msg.ToolCallID))
		case RoleAssistant:
			if len(msg.ToolCalls) == 0 {
				out = append(out, openai.AssistantMessage(msg.Content))
				continue
			}
			calls := make([]openai.ChatCompletionMessageToolCallParam, 0, len(msg.ToolCalls))
			for _, tc := range msg.ToolCalls {
				calls = append(calls, openai.ChatCompletionMessageToolCallParam{
					ID:   tc.ID,
					Type: "function",
					Function: openai.ChatCompletionMessageToolCallFunctionParam{
						Name:      tc.Name,
						Arguments: tc.Arguments,
					},
				})
			}
			out = append(out, openai.ChatCompletionMessageParamUnion{
				OfAssistant: &openai.ChatCompletionAssistantMessageParam{ToolCalls: calls},
			})
		}
	}
	return out
}

func buildOpenAITools(available []tools.Tool) []openai.ChatCompletionToolParam {
	out := make([]openai.ChatCompletionToolParam, len(available))
	for i, t := range available {
		out[i] = openai.ChatCompletionToolParam{
			Type: "function",
			Function: openai.FunctionDefinitionParam{
				Name:        t.Name(),
				Description: openai.String(t.Description()),
				Parameters:  openai.FunctionParameters(t.Parameters()),
			},
		}
	}
	return out
}
