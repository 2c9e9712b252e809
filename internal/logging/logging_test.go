package logging

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Levels(t *testing.T) {
	for _, level := range []string{"", "debug", "info", "warn", "error"} {
		l, err := New(Options{Level: level, Format: "json"})
		require.NoError(t, err, level)
		l.Info("hello", "level", level)
	}
}

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New(Options{Level: "verbose"})
	assert.Error(t, err)
}

func TestErrorFromArgs(t *testing.T) {
	cause := errors.New("connection refused")

	err := errorFromArgs("store unavailable", []any{"id", "a1", "error", cause})
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "store unavailable: connection refused", err.Error())

	err = errorFromArgs("no cause", []any{"id", "a1"})
	assert.Equal(t, "no cause", err.Error())
}

func TestEnableSentry_EmptyDSN(t *testing.T) {
	l := NewNop()
	require.NoError(t, l.EnableSentry("", "test"))
	assert.False(t, l.sentry)
	l.Error("not forwarded", "error", errors.New("x"))
}
