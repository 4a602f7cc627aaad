// Package types provides core types used across the askflow framework.
// This package has ZERO dependencies on other askflow packages to avoid circular imports.
// All other packages should import types from here.
package types

import "time"

// ConversationState represents the lifecycle state of a conversation.
type ConversationState string

const (
	StateInitiated  ConversationState = "initiated"
	StateWaiting    ConversationState = "waiting"
	StateTimeout    ConversationState = "timeout"
	StateFollowUp   ConversationState = "follow_up"
	StateEscalating ConversationState = "escalating"
	StateEscalated  ConversationState = "escalated"
	StateAnswered   ConversationState = "answered"
	StateCancelled  ConversationState = "cancelled"
)

// IsTerminal reports whether the state admits no further transitions.
func (s ConversationState) IsTerminal() bool {
	return s == StateAnswered || s == StateCancelled
}

// IsTransient reports whether the state only appears in event records and is
// never the persisted state of a conversation.
func (s ConversationState) IsTransient() bool {
	return s == StateTimeout || s == StateEscalating
}

// Conversation is a single question-to-resolution thread between an asker and
// the chain of responders it escalates through.
type Conversation struct {
	ID               string            `json:"id"`
	Asker            string            `json:"asker"`
	AskerRole        string            `json:"asker_role"`
	CurrentResponder string            `json:"current_responder"`
	ResponderRole    string            `json:"responder_role"`
	State            ConversationState `json:"state"`

	// EscalationLevel is the depth into the responder chain; 0 is the first
	// responder. Monotonically non-decreasing.
	EscalationLevel int `json:"escalation_level"`

	// Generation counts armed deadlines. A timer callback carrying a stale
	// generation must be discarded.
	Generation uint64 `json:"generation"`

	QuestionCategory string `json:"question_category"`
	Question         string `json:"question"`

	// Scope is the asker's organization/squad context, captured at initiation
	// so escalations resolve against the same scoped rules.
	Scope ScopeContext `json:"scope,omitempty"`

	// TaskID optionally links the conversation to a higher-level work item.
	// Opaque to the orchestration core.
	TaskID string `json:"task_id,omitempty"`

	CreatedAt      time.Time  `json:"created_at"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`
	TimeoutAt      *time.Time `json:"timeout_at,omitempty"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`
}

// IsTerminal reports whether the conversation reached a terminal state.
func (c *Conversation) IsTerminal() bool {
	return c.State.IsTerminal()
}
