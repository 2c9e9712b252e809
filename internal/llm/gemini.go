package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"google.golang.org/genai"

	"multiagent-manager/backend/internal/tools"
)

// GeminiModel wraps the Gemini API through google.golang.org/genai.
type GeminiModel struct {
	client *genai.Client
	opts   ModelOptions
}

// NewGeminiModel creates a Gemini model backed by the Gemini Developer API.
func NewGeminiModel(ctx context.Context, apiKey string, opts ModelOptions) (*GeminiModel, error) {
	if opts.Model == "" {
		opts.Model = "gemini-2.0-flash"
	}
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if opts.BaseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiModel{client: client, opts: opts}, nil
}

func (m *GeminiModel) Name() string { return "gemini/" + m.opts.Model }

// Complete sends the conversation. Function calls without an id get a
// positional one so tool results can be matched.
func (m *GeminiModel) Complete(ctx context.Context, messages []Message, available []tools.Tool) (Reply, error) {
	config := &genai.GenerateContentConfig{}
	if m.opts.Temperature > 0 {
		config.Temperature = genai.Ptr(float32(m.opts.Temperature))
	}
	if m.opts.MaxTokens > 0 {
		config.MaxOutputTokens = int32(m.opts.MaxTokens)
	}
	for _, msg := range messages {
		if msg.Role == RoleSystem && msg.Content != "" {
			config.SystemInstruction = genai.NewContentFromText(msg.Content, genai.RoleUser)
		}
	}
	if len(available) > 0 {
		decls := make([]*genai.FunctionDeclaration, len(available))
		for i, t := range available {
			decls[i] = &genai.FunctionDeclaration{
				Name:                 t.Name(),
				Description:          t.Description(),
				ParametersJsonSchema: t.Parameters(),
			}
		}
		config.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}

	resp, err := m.client.Models.GenerateContent(ctx, m.opts.Model, buildGeminiContents(messages), config)
	if err != nil {
		return Reply{}, fmt.Errorf("gemini api error: %w", err)
	}

	reply := Reply{Content: resp.Text()}
	for i, fc := range resp.FunctionCalls() {
		args, err := json.Marshal(fc.Args)
		if err != nil {
			args = []byte("{}")
		}
		id := fc.ID
		if id == "" {
			id = fc.Name + "-" + strconv.Itoa(i)
		}
		reply.ToolCalls = append(reply.ToolCalls, ToolCall{ID: id, Name: fc.Name, Arguments: string(args)})
	}
	return reply, nil
}

func buildGeminiContents(messages []Message) []*genai.Content {
	var out []*genai.Content
	for _, msg := range messages {
		switch msg.Role {
		case RoleUser:
			out = append(out, genai.NewContentFromText(msg.Content, genai.RoleUser))
		case RoleAssistant:
			content := &genai.Content{Role: string(genai.RoleModel)}
			if msg.Content != "" {
				content.Parts = append(content.Parts, &genai.Part{Text: msg.Content})
			}
			for _, tc := range msg.ToolCalls {
				var args map[string]any
				_ = json.Unmarshal([]byte(tc.Arguments), &args)
				content.Parts = append(content.Parts, &genai.Part{
					FunctionCall: &genai.FunctionCall{ID: tc.ID, Name: tc.Name, Args: args},
				})
			}
			out = append(out, content)
		case RoleTool:
			var response map[string]any
			if err := json.Unmarshal([]byte(msg.Content), &response); err != nil || response == nil {
				response = map[string]any{"output": msg.Content}
			}
			out = append(out, &genai.Content{
				Role: string(genai.RoleUser),
				Parts: []*genai.Part{{
					FunctionResponse: &genai.FunctionResponse{ID: msg.ToolCallID, Name: msg.ToolName, Response: response},
				}},
			})
		}
	}
	return out
}
