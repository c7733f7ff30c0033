package models

// AgentSettings tunes how the external agent runner drives a single step.
type AgentSettings struct {
	MaxTurns       int `json:"max_turns,omitempty"`
	RetryCount     int `json:"retry_count,omitempty"`
	TimeoutSeconds int `json:"timeout_seconds,omitempty"`
}

// AgentDefinition describes a registered agent worker. Definitions are loaded
// from the definitions directory and referenced by id from workflow patterns.
type AgentDefinition struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Role        string        `json:"role,omitempty"`
	Description string        `json:"description,omitempty"`
	Model       string        `json:"model,omitempty"`
	Settings    AgentSettings `json:"settings,omitempty"`
}
