// Package tools holds the functions agents may be allowed to call while
// generating a response.
package tools

import (
	"context"
	"encoding/json"
	"slices"

	"multiagent-manager/backend/pkg/models"
)

// Tool is a callable capability with a JSON Schema for its arguments.
type Tool interface {
	Name() string
	Description() string
	// Parameters returns a JSON Schema object describing the arguments.
	Parameters() map[string]any
	// Call runs the tool with raw JSON arguments and returns its textual result.
	Call(ctx context.Context, args json.RawMessage) (string, error)
}

// Catalog is an immutable, ordered set of tools.
type Catalog struct {
	byName map[string]Tool
	order  []string
}

// NewCatalog builds a catalog. Later tools replace earlier ones with the same name.
func NewCatalog(tools ...Tool) *Catalog {
	c := &Catalog{byName: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		if _, ok := c.byName[t.Name()]; !ok {
			c.order = append(c.order, t.Name())
		}
		c.byName[t.Name()] = t
	}
	return c
}

// DefaultCatalog returns the built-in tools.
func DefaultCatalog() *Catalog {
	return NewCatalog(NewDateTime(), NewWeather(), NewCalculator())
}

// List describes every tool in registration order.
func (c *Catalog) List() []models.Tool {
	out := make([]models.Tool, 0, len(c.order))
	for _, name := range c.order {
		t := c.byName[name]
		out = append(out, models.Tool{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}
	return out
}

// Has reports whether name is registered.
func (c *Catalog) Has(name string) bool {
	_, ok := c.byName[name]
	return ok
}

// Unknown returns the names that are not registered, preserving order.
func (c *Catalog) Unknown(names []string) []string {
	var missing []string
	for _, n := range names {
		if !c.Has(n) && !slices.Contains(missing, n) {
			missing = append(missing, n)
		}
	}
	return missing
}

// Select resolves names to tools, silently skipping unknown and duplicate names.
func (c *Catalog) Select(names []string) []Tool {
	var out []Tool
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if seen[n] {
			continue
		}
		seen[n] = true
		if t, ok := c.byName[n]; ok {
			out = append(out, t)
		}
	}
	return out
}

func objectSchema(properties map[string]any, required ...string) map[string]any {
	if required == nil {
		required = []string{}
	}
	return map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}

func decodeArgs(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}
	return json.Unmarshal(raw, v)
}
