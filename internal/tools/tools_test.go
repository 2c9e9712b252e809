package tools

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()

	list := c.List()
	require.Len(t, list, 3)
	assert.Equal(t, "get_current_datetime", list[0].Name)
	assert.Equal(t, "get_current_weather", list[1].Name)
	assert.Equal(t, "simple_calculator", list[2].Name)
	for _, tool := range list {
		assert.NotEmpty(t, tool.Description)
		assert.Equal(t, "object", tool.Parameters["type"])
	}

	assert.True(t, c.Has("simple_calculator"))
	assert.False(t, c.Has("web_search"))
	assert.Equal(t, []string{"web_search"}, c.Unknown([]string{"simple_calculator", "web_search", "web_search"}))

	selected := c.Select([]string{"web_search", "simple_calculator", "simple_calculator"})
	require.Len(t, selected, 1)
	assert.Equal(t, "simple_calculator", selected[0].Name())
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		expr string
		want float64
	}{
		{"10 + 5 * (3 - 1)", 20},
		{"-4 / 2", -2},
		{"+3 - -2", 5},
		{"1.5 * 4", 6},
		{"((7))", 7},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := Evaluate(tt.expr)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestEvaluate_Rejects(t *testing.T) {
	for _, expr := range []string{
		"", "1 / 0", "2 ** 3", "10 % 3", "1 << 2", "x + 1", "len(\"abc\")", "\"a\"", "2 ^ 3", "1 +",
	} {
		t.Run(expr, func(t *testing.T) {
			_, err := Evaluate(expr)
			assert.Error(t, err)
		})
	}
}

func TestCalculator_Call(t *testing.T) {
	out, err := NewCalculator().Call(context.Background(), json.RawMessage(`{"expression":"2 * 21"}`))
	require.NoError(t, err)

	var got struct {
		Result     float64 `json:"result"`
		Expression string  `json:"expression"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 42.0, got.Result)
	assert.Equal(t, "2 * 21", got.Expression)

	_, err = NewCalculator().Call(context.Background(), json.RawMessage(`{"expression":`))
	assert.Error(t, err)
}

func TestDateTime_Call(t *testing.T) {
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	d := &DateTime{now: func() time.Time { return fixed }}

	tests := []struct {
		name     string
		args     string
		timezone string
		fallback bool
	}{
		{"no location", `{}`, "UTC", false},
		{"iana zone", `{"location":"Asia/Tokyo"}`, "Asia/Tokyo", false},
		{"city name", `{"location":"new york"}`, "America/New_York", false},
		{"unknown", `{"location":"Atlantis"}`, "UTC", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := d.Call(context.Background(), json.RawMessage(tt.args))
			require.NoError(t, err)

			var got map[string]string
			require.NoError(t, json.Unmarshal([]byte(out), &got))
			assert.Equal(t, tt.timezone, got["timezone"])
			_, hasNote := got["note"]
			assert.Equal(t, tt.fallback, hasNote)
		})
	}

	out, err := d.Call(context.Background(), json.RawMessage(`{"location":"Asia/Tokyo"}`))
	require.NoError(t, err)
	assert.Contains(t, out, "2024-05-01 21:00:00")
}

func TestWeather_Call(t *testing.T) {
	w := NewWeather()

	out, err := w.Call(context.Background(), json.RawMessage(`{"location":"Tokyo, Japan","unit":"fahrenheit"}`))
	require.NoError(t, err)

	var got map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "Tokyo, Japan", got["location"])
	assert.Equal(t, "fahrenheit", got["unit"])
	assert.Contains(t, conditions, got["condition"])

	_, err = w.Call(context.Background(), json.RawMessage(`{"unit":"celsius"}`))
	assert.Error(t, err)
}
