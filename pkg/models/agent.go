package models

// Agent is a named system prompt plus the set of tools it may call.
type Agent struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	SystemPrompt string   `json:"system_prompt"`
	ToolsEnabled []string `json:"tools_enabled"`
}

// AgentInput carries the mutable fields of an Agent for create and
// full-replace update.
type AgentInput struct {
	Name         string   `json:"name"`
	SystemPrompt string   `json:"system_prompt"`
	ToolsEnabled []string `json:"tools_enabled,omitempty"`
}

// AgentInvokeRequest asks for a single agent invocation. Exactly one of
// AgentID and SystemPrompt must be set.
type AgentInvokeRequest struct {
	AgentID      *string `json:"agent_id,omitempty"`
	SystemPrompt *string `json:"system_prompt,omitempty"`
	UserPrompt   string  `json:"user_prompt"`
}

// AgentInvokeResponse is the outcome of a single agent invocation.
type AgentInvokeResponse struct {
	AgentResponse    string `json:"agent_response"`
	UsedSystemPrompt string `json:"used_system_prompt"`
}
