package apperr

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindSentinels(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
		kind Kind
	}{
		{"invalid input", InvalidInput("prompt is empty"), ErrInvalidInput, KindInvalidInput},
		{"not found", NotFound("agent", "a1"), ErrNotFound, KindNotFound},
		{"invocation", InvocationFailed(errors.New("boom"), "generate"), ErrInvocationFailed, KindInvocationFailed},
		{"step", StepFailed(1, "a2", "Translator", errors.New("boom")), ErrInvocationFailed, KindInvocationFailed},
		{"internal", Internal(errors.New("db down"), "list agents"), ErrInternal, KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("handler: %w", tt.err)
			assert.ErrorIs(t, wrapped, tt.want)
			assert.Equal(t, tt.kind, KindOf(wrapped))
		})
	}
}

func TestKindOf_ForeignError(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
}

func TestStepFailed(t *testing.T) {
	err := StepFailed(2, "a3", "Reviewer", context.Canceled)

	assert.True(t, err.IsStep())
	assert.Equal(t, 3, err.Position())
	assert.Equal(t, StageExecution, err.Stage)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, err.Error(), `step 3 (agent "Reviewer") failed`)
}

func TestNotFound_NamesEntity(t *testing.T) {
	err := NotFound("agent", "A2")

	assert.False(t, err.IsStep())
	assert.Equal(t, 0, err.Position())
	assert.Equal(t, "A2", err.EntityID)
	assert.Equal(t, StageResolution, err.Stage)
	assert.Contains(t, err.Error(), `agent "A2" not found`)
}
