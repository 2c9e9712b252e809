// Package models defines the domain and wire models for the multi-agent manager
package models

import (
	"time"
)

// HealthStatus represents service health
type HealthStatus struct {
	Status    string            `json:"status"`
	Service   string            `json:"service"`
	Version   string            `json:"version"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// ProblemDetails represents RFC 7807 Problem Details, extended with the
// error kind and, for failed flow steps, the step that failed.
type ProblemDetails struct {
	Type       string          `json:"type"`
	Title      string          `json:"title"`
	Status     int             `json:"status"`
	Detail     string          `json:"detail,omitempty"`
	Instance   string          `json:"instance,omitempty"`
	TraceID    string          `json:"trace_id,omitempty"`
	Kind       string          `json:"kind"`
	Message    string          `json:"message"`
	Stage      string          `json:"stage,omitempty"`
	EntityID   string          `json:"entity_id,omitempty"`
	StepIndex  int             `json:"step_index,omitempty"` // 1-based
	AgentID    string          `json:"agent_id,omitempty"`
	AgentName  string          `json:"agent_name,omitempty"`
	PartialLog []ExecutionStep `json:"partial_log,omitempty"`
}

// ListOptions paginates list queries.
type ListOptions struct {
	Offset int
	Limit  int
}

// DefaultListLimit is used when ListOptions.Limit is zero.
const DefaultListLimit = 100

// Normalize clamps negative values and applies the default limit.
func (o ListOptions) Normalize() ListOptions {
	if o.Offset < 0 {
		o.Offset = 0
	}
	if o.Limit <= 0 {
		o.Limit = DefaultListLimit
	}
	return o
}
