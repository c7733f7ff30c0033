package models

import "time"

// MessageType classifies an inter-agent message.
type MessageType string

const (
	MessageTypeHandoff MessageType = "handoff" // One agent's output becomes the next agent's input
	MessageTypeStatus  MessageType = "status"  // Dispatch and progress notices
	MessageTypeResult  MessageType = "result"  // Step result summary
	MessageTypeError   MessageType = "error"   // Step failure detail
)

// AgentCommunication is one append-only entry in an execution's message log.
// Entries are never mutated or deleted individually; they cascade with
// execution deletion.
type AgentCommunication struct {
	ID          string         `json:"id"`
	ExecutionID string         `json:"execution_id"`
	FromAgentID string         `json:"from_agent_id"`
	ToAgentID   string         `json:"to_agent_id"`
	Message     string         `json:"message"`
	MessageType MessageType    `json:"message_type"`
	Context     map[string]any `json:"context,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
}
