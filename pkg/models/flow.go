package models

// Flow is an ordered list of agent references executed as a pipeline.
// The same agent may appear more than once.
type Flow struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description *string  `json:"description,omitempty"`
	AgentIDs    []string `json:"agent_ids"`
}

// FlowInput carries the mutable fields of a Flow for create and full-replace
// update.
type FlowInput struct {
	Name        string   `json:"name"`
	Description *string  `json:"description,omitempty"`
	AgentIDs    []string `json:"agent_ids"`
}

// FlowInvokeRequest starts a flow invocation.
type FlowInvokeRequest struct {
	InitialUserPrompt string `json:"initial_user_prompt"`
}

// ExecutionStep records one agent's execution inside a flow invocation.
// AgentName and SystemPromptUsed are snapshots taken when the step ran.
type ExecutionStep struct {
	AgentID          string `json:"agent_id"`
	AgentName        string `json:"agent_name"`
	SystemPromptUsed string `json:"system_prompt_used"`
	InputPrompt      string `json:"input_prompt"`
	OutputResponse   string `json:"output_response"`
}

// FlowInvocationResult is the outcome of a successful flow invocation. Log
// holds one entry per agent id of the flow, in pipeline order.
type FlowInvocationResult struct {
	FlowID      string          `json:"flow_id"`
	FlowName    string          `json:"flow_name"`
	FinalOutput string          `json:"final_output"`
	Log         []ExecutionStep `json:"log"`
}
