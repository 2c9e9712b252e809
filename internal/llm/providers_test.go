package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"multiagent-manager/backend/internal/config"
	"multiagent-manager/backend/internal/tools"
)

// recordingServer answers every request with body and keeps the last request body.
func recordingServer(t *testing.T, status int, body string) (*httptest.Server, *map[string]any) {
	t.Helper()
	var last map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		last = nil
		_ = json.Unmarshal(raw, &last)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &last
}

func TestOpenAIModel_Complete(t *testing.T) {
	srv, last := recordingServer(t, http.StatusOK, `{
		"id": "chatcmpl-1", "object": "chat.completion", "created": 1, "model": "gpt-4o-mini",
		"choices": [{"index": 0, "finish_reason": "tool_calls", "message": {
			"role": "assistant", "content": null,
			"tool_calls": [{"id": "call_1", "type": "function",
				"function": {"name": "simple_calculator", "arguments": "{\"expression\":\"2+2\"}"}}]
		}}]
	}`)

	model := NewOpenAIModel("sk-test", ModelOptions{BaseURL: srv.URL + "/v1/", Temperature: 0.7, MaxTokens: 350})
	reply, err := model.Complete(context.Background(), []Message{
		{Role: RoleSystem, Content: "You add numbers."},
		{Role: RoleUser, Content: "2+2?"},
	}, []tools.Tool{tools.NewCalculator()})
	require.NoError(t, err)

	require.Len(t, reply.ToolCalls, 1)
	assert.Equal(t, ToolCall{ID: "call_1", Name: "simple_calculator", Arguments: `{"expression":"2+2"}`}, reply.ToolCalls[0])

	req := *last
	assert.Equal(t, "gpt-4o-mini", req["model"])
	messages := req["messages"].([]any)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])
	toolsSent := req["tools"].([]any)
	require.Len(t, toolsSent, 1)
	fn := toolsSent[0].(map[string]any)["function"].(map[string]any)
	assert.Equal(t, "simple_calculator", fn["name"])
}

func TestOpenAIModel_APIError(t *testing.T) {
	srv, _ := recordingServer(t, http.StatusInternalServerError, `{"error":{"message":"overloaded","type":"server_error"}}`)

	model := NewOpenAIModel("sk-test", ModelOptions{BaseURL: srv.URL + "/v1/"})
	_, err := model.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, nil)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "openai api error")
}

func TestAnthropicModel_Complete(t *testing.T) {
	srv, last := recordingServer(t, http.StatusOK, `{
		"id": "msg_1", "type": "message", "role": "assistant", "model": "claude-3-5-haiku-latest",
		"content": [{"type": "text", "text": "Bonjour"}],
		"stop_reason": "end_turn", "usage": {"input_tokens": 3, "output_tokens": 2}
	}`)

	model := NewAnthropicModel("ak-test", ModelOptions{BaseURL: srv.URL})
	reply, err := model.Complete(context.Background(), []Message{
		{Role: RoleSystem, Content: "Translate to French."},
		{Role: RoleUser, Content: "Hello"},
		{Role: RoleAssistant, ToolCalls: []ToolCall{{ID: "tu_1", Name: "simple_calculator", Arguments: `{"expression":"1"}`}}},
		{Role: RoleTool, ToolCallID: "tu_1", Content: `{"result":1}`},
	}, []tools.Tool{tools.NewCalculator()})
	require.NoError(t, err)
	assert.Equal(t, "Bonjour", reply.Content)
	assert.Empty(t, reply.ToolCalls)

	req := *last
	system := req["system"].([]any)
	assert.Equal(t, "Translate to French.", system[0].(map[string]any)["text"])
	messages := req["messages"].([]any)
	require.Len(t, messages, 3)
	assert.Equal(t, "user", messages[2].(map[string]any)["role"])
	assert.EqualValues(t, 1024, req["max_tokens"])
}

func TestAnthropicModel_ToolUse(t *testing.T) {
	srv, _ := recordingServer(t, http.StatusOK, `{
		"id": "msg_2", "type": "message", "role": "assistant", "model": "claude-3-5-haiku-latest",
		"content": [{"type": "tool_use", "id": "tu_9", "name": "get_current_datetime", "input": {"location": "Tokyo"}}],
		"stop_reason": "tool_use", "usage": {"input_tokens": 3, "output_tokens": 2}
	}`)

	model := NewAnthropicModel("ak-test", ModelOptions{BaseURL: srv.URL})
	reply, err := model.Complete(context.Background(), []Message{{Role: RoleUser, Content: "time?"}}, nil)
	require.NoError(t, err)
	require.Len(t, reply.ToolCalls, 1)
	assert.Equal(t, "tu_9", reply.ToolCalls[0].ID)
	assert.JSONEq(t, `{"location":"Tokyo"}`, reply.ToolCalls[0].Arguments)
}

func TestBuildAnthropicMessages_GroupsToolResults(t *testing.T) {
	msgs := buildAnthropicMessages([]Message{
		{Role: RoleSystem, Content: "ignored here"},
		{Role: RoleUser, Content: "q"},
		{Role: RoleAssistant, ToolCalls: []ToolCall{{ID: "a", Name: "x", Arguments: "{}"}, {ID: "b", Name: "y", Arguments: "not json"}}},
		{Role: RoleTool, ToolCallID: "a", Content: "1"},
		{Role: RoleTool, ToolCallID: "b", Content: `{"error":"bad"}`},
	})
	require.Len(t, msgs, 3)
	assert.Len(t, msgs[2].Content, 2)
}

func TestIsToolError(t *testing.T) {
	assert.True(t, isToolError(`{"error":"nope"}`))
	assert.False(t, isToolError(`{"result":2}`))
	assert.False(t, isToolError(`plain text`))
}

func TestNewChatModel(t *testing.T) {
	cfg := &config.Config{}

	cfg.LLM.Provider = config.LLMEcho
	model, err := NewChatModel(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "echo", model.Name())

	for _, provider := range []string{config.LLMOpenAI, config.LLMAnthropic, config.LLMGemini} {
		cfg.LLM.Provider = provider
		cfg.LLM.APIKey = ""
		_, err := NewChatModel(context.Background(), cfg)
		assert.Error(t, err, provider)
	}

	cfg.LLM.Provider = config.LLMOpenAI
	cfg.LLM.APIKey = "sk-test"
	cfg.LLM.Model = "gpt-4o"
	model, err = NewChatModel(context.Background(), cfg)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(model.Name(), "openai/gpt-4o"))
}
