// Package events defines event types for execution lifecycle notifications.
package events

import (
	"time"

	"github.com/atrox/maestro/pkg/models"
)

type EventType string

// Topic carries every orchestration event.
const Topic = "maestro.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	ExecutionStartedEvent   EventType = "execution.started"
	ExecutionCompletedEvent EventType = "execution.completed"
	ExecutionFailedEvent    EventType = "execution.failed"
	ExecutionAbortedEvent   EventType = "execution.aborted"

	StepDispatchedEvent EventType = "step.dispatched"
	StepFinishedEvent   EventType = "step.finished"
	StepFailedEvent     EventType = "step.failed"

	CommunicationLoggedEvent EventType = "communication.logged"
)

type BaseEvent struct {
	ID          string         `json:"id"`
	Type        EventType      `json:"type"`
	Timestamp   time.Time      `json:"timestamp"`
	PatternID   string         `json:"pattern_id"`
	ExecutionID string         `json:"execution_id"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

type ExecutionStarted struct {
	BaseEvent

	WorkflowType models.WorkflowType `json:"workflow_type"`
	TotalSteps   int                 `json:"total_steps"`
}

func (e ExecutionStarted) GetType() EventType {
	return ExecutionStartedEvent
}

type ExecutionCompleted struct {
	BaseEvent

	Duration time.Duration `json:"duration"`
}

func (e ExecutionCompleted) GetType() EventType {
	return ExecutionCompletedEvent
}

type ExecutionFailed struct {
	BaseEvent

	Error    string        `json:"error"`
	Duration time.Duration `json:"duration"`
}

func (e ExecutionFailed) GetType() EventType {
	return ExecutionFailedEvent
}

type ExecutionAborted struct {
	BaseEvent

	Duration time.Duration `json:"duration"`
}

func (e ExecutionAborted) GetType() EventType {
	return ExecutionAbortedEvent
}

type StepDispatched struct {
	BaseEvent

	AgentID string `json:"agent_id"`
	TaskID  string `json:"task_id"`
	Step    int    `json:"step"`
}

func (e StepDispatched) GetType() EventType {
	return StepDispatchedEvent
}

type StepFinished struct {
	BaseEvent

	AgentID  string        `json:"agent_id"`
	TaskID   string        `json:"task_id"`
	Step     int           `json:"step"`
	Duration time.Duration `json:"duration"`
}

func (e StepFinished) GetType() EventType {
	return StepFinishedEvent
}

type StepFailed struct {
	BaseEvent

	AgentID  string        `json:"agent_id"`
	TaskID   string        `json:"task_id"`
	Step     int           `json:"step"`
	Error    string        `json:"error"`
	Duration time.Duration `json:"duration"`
}

func (e StepFailed) GetType() EventType {
	return StepFailedEvent
}

type CommunicationLogged struct {
	BaseEvent

	FromAgentID string             `json:"from_agent_id"`
	ToAgentID   string             `json:"to_agent_id"`
	MessageType models.MessageType `json:"message_type"`
}

func (e CommunicationLogged) GetType() EventType {
	return CommunicationLoggedEvent
}
