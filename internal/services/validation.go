package services

import (
	"strings"
	"unicode/utf8"

	"multiagent-manager/backend/pkg/apperr"
	"multiagent-manager/backend/pkg/models"
)

func normalizeAgentInput(in models.AgentInput, catalog ToolCatalog) (models.AgentInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return in, apperr.InvalidInput("agent name is required")
	}
	if utf8.RuneCountInString(in.Name) > MaxAgentNameLength {
		return in, apperr.InvalidInput("agent name must be at most %d characters", MaxAgentNameLength)
	}

	if in.ToolsEnabled == nil {
		in.ToolsEnabled = []string{}
	}
	if catalog != nil {
		if unknown := catalog.Unknown(in.ToolsEnabled); len(unknown) > 0 {
			return in, apperr.InvalidInput("unknown tools: %s", strings.Join(unknown, ", "))
		}
	}
	return in, nil
}

func normalizeFlowInput(in models.FlowInput) (models.FlowInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return in, apperr.InvalidInput("flow name is required")
	}
	if utf8.RuneCountInString(in.Name) > MaxFlowNameLength {
		return in, apperr.InvalidInput("flow name must be at most %d characters", MaxFlowNameLength)
	}

	if in.Description != nil {
		d := strings.TrimSpace(*in.Description)
		switch {
		case d == "":
			in.Description = nil
		case utf8.RuneCountInString(d) > MaxDescriptionLength:
			return in, apperr.InvalidInput("flow description must be at most %d characters", MaxDescriptionLength)
		default:
			in.Description = &d
		}
	}

	if len(in.AgentIDs) == 0 {
		return in, apperr.InvalidInput("a flow needs at least one agent")
	}
	ids := make([]string, len(in.AgentIDs))
	for i, id := range in.AgentIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			return in, apperr.InvalidInput("agent_ids[%d] is empty", i)
		}
		ids[i] = id
	}
	in.AgentIDs = ids
	return in, nil
}
