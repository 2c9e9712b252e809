package llm

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"multiagent-manager/backend/internal/logging"
	"multiagent-manager/backend/internal/tools"
)

// scriptedModel returns canned replies in order and records what it was sent.
type scriptedModel struct {
	mu        sync.Mutex
	replies   []Reply
	err       error
	calls     [][]Message
	available [][]string
}

func (m *scriptedModel) Name() string { return "scripted" }

func (m *scriptedModel) Complete(_ context.Context, messages []Message, available []tools.Tool) (Reply, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, append([]Message(nil), messages...))
	var names []string
	for _, t := range available {
		names = append(names, t.Name())
	}
	m.available = append(m.available, names)
	if m.err != nil {
		return Reply{}, m.err
	}
	if len(m.replies) == 0 {
		return Reply{Content: "done"}, nil
	}
	r := m.replies[0]
	m.replies = m.replies[1:]
	return r, nil
}

func newLoop(model ChatModel, maxCalls int) *ToolLoop {
	return NewToolLoop(model, tools.DefaultCatalog(), maxCalls, logging.NewNop())
}

func TestToolLoop_PlainAnswer(t *testing.T) {
	model := &scriptedModel{replies: []Reply{{Content: "hello"}}}

	out, err := newLoop(model, 0).Invoke(context.Background(), Prompt{System: "be brief", User: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "hello", out)

	require.Len(t, model.calls, 1)
	assert.Equal(t, []Message{
		{Role: RoleSystem, Content: "be brief"},
		{Role: RoleUser, Content: "hi"},
	}, model.calls[0])
}

func TestToolLoop_EmptySystemPromptIsOmitted(t *testing.T) {
	model := &scriptedModel{}

	_, err := newLoop(model, 0).Invoke(context.Background(), Prompt{User: "hi"})
	require.NoError(t, err)
	assert.Equal(t, []Message{{Role: RoleUser, Content: "hi"}}, model.calls[0])
}

func TestToolLoop_RunsToolAndFeedsResultBack(t *testing.T) {
	model := &scriptedModel{replies: []Reply{
		{ToolCalls: []ToolCall{{ID: "c1", Name: "simple_calculator", Arguments: `{"expression":"6*7"}`}}},
		{Content: "The answer is 42."},
	}}

	out, err := newLoop(model, 0).Invoke(context.Background(), Prompt{
		User:  "what is 6*7?",
		Tools: []string{"simple_calculator", "not_a_tool"},
	})
	require.NoError(t, err)
	assert.Equal(t, "The answer is 42.", out)

	assert.Equal(t, []string{"simple_calculator"}, model.available[0])
	require.Len(t, model.calls, 2)
	second := model.calls[1]
	require.Len(t, second, 3)
	assert.Equal(t, RoleAssistant, second[1].Role)
	assert.Equal(t, RoleTool, second[2].Role)
	assert.Equal(t, "c1", second[2].ToolCallID)
	assert.Equal(t, "simple_calculator", second[2].ToolName)
	assert.JSONEq(t, `{"result":42,"expression":"6*7"}`, second[2].Content)
}

func TestToolLoop_ToolFailuresGoBackToModel(t *testing.T) {
	tests := []struct {
		name string
		call ToolCall
		want string
	}{
		{"malformed arguments", ToolCall{ID: "c1", Name: "simple_calculator", Arguments: `{"expression":`}, "not valid JSON"},
		{"tool error", ToolCall{ID: "c1", Name: "simple_calculator", Arguments: `{"expression":"1/0"}`}, "division by zero"},
		{"not enabled", ToolCall{ID: "c1", Name: "get_current_weather", Arguments: `{}`}, "not enabled"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := &scriptedModel{replies: []Reply{{ToolCalls: []ToolCall{tt.call}}, {Content: "sorry"}}}

			out, err := newLoop(model, 0).Invoke(context.Background(), Prompt{User: "x", Tools: []string{"simple_calculator"}})
			require.NoError(t, err)
			assert.Equal(t, "sorry", out)

			result := model.calls[1][2].Content
			assert.Contains(t, result, `"error"`)
			assert.Contains(t, result, tt.want)
		})
	}
}

func TestToolLoop_CallLimit(t *testing.T) {
	call := Reply{ToolCalls: []ToolCall{{ID: "c", Name: "simple_calculator", Arguments: `{"expression":"1+1"}`}}}
	model := &scriptedModel{replies: []Reply{call, call, call}}

	_, err := newLoop(model, 2).Invoke(context.Background(), Prompt{User: "loop", Tools: []string{"simple_calculator"}})
	assert.ErrorIs(t, err, ErrToolCallLimit)
	assert.Len(t, model.calls, 3)
}

func TestToolLoop_ModelError(t *testing.T) {
	boom := errors.New("upstream unavailable")
	model := &scriptedModel{err: boom}

	_, err := newLoop(model, 0).Invoke(context.Background(), Prompt{User: "hi"})
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "scripted")
}

func TestEchoModel(t *testing.T) {
	loop := newLoop(EchoModel{}, 0)

	out, err := loop.Invoke(context.Background(), Prompt{System: "Translator\nTranslate to French.", User: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "[Translator] hello", out)

	out, err = loop.Invoke(context.Background(), Prompt{User: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "hello", out)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = loop.Invoke(ctx, Prompt{User: "hello"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestInvokerFunc(t *testing.T) {
	var inv Invoker = InvokerFunc(func(_ context.Context, p Prompt) (string, error) {
		return p.System + "|" + p.User, nil
	})
	out, err := inv.Invoke(context.Background(), Prompt{System: "s", User: "u"})
	require.NoError(t, err)
	assert.Equal(t, "s|u", out)
}
