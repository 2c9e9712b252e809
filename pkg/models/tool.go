package models

// Tool describes a capability an agent can be allowed to call. Parameters
// is a JSON Schema object.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}
