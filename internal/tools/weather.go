package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
)

var conditions = []string{"Sunny", "Partly cloudy", "Cloudy", "Rainy", "Thunderstorm", "Snowing"}

// Weather returns simulated weather. It is a stand-in until a real provider is wired.
type Weather struct {
	mu   sync.Mutex
	rand *rand.Rand
}

// NewWeather creates the get_current_weather tool.
func NewWeather() *Weather {
	return &Weather{rand: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))}
}

func (w *Weather) Name() string { return "get_current_weather" }

func (w *Weather) Description() string {
	return "Gets the current weather for a location given by the user."
}

func (w *Weather) Parameters() map[string]any {
	return objectSchema(map[string]any{
		"location": map[string]any{
			"type":        "string",
			"description": "City and state or country, e.g. 'San Francisco, CA' or 'Tokyo, Japan'.",
		},
		"unit": map[string]any{
			"type":        "string",
			"enum":        []string{"celsius", "fahrenheit"},
			"description": "Temperature unit. Defaults to celsius.",
		},
	}, "location")
}

func (w *Weather) Call(_ context.Context, raw json.RawMessage) (string, error) {
	var args struct {
		Location string `json:"location"`
		Unit     string `json:"unit"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}
	if strings.TrimSpace(args.Location) == "" {
		return "", errors.New("location is required")
	}

	unit, symbol := "celsius", "C"
	if strings.EqualFold(args.Unit, "fahrenheit") {
		unit, symbol = "fahrenheit", "F"
	}

	w.mu.Lock()
	temp := float64(w.rand.IntN(41) - 5)
	condition := conditions[w.rand.IntN(len(conditions))]
	w.mu.Unlock()
	if unit == "fahrenheit" {
		temp = temp*9/5 + 32
	}

	b, err := json.Marshal(map[string]any{
		"location":    args.Location,
		"temperature": fmt.Sprintf("%.0f", temp),
		"unit":        unit,
		"condition":   condition,
		"detail":      fmt.Sprintf("Simulated data. Temperature %.0f°%s, condition: %s.", temp, symbol, condition),
	})
	return string(b), err
}
