package types

import "time"

// EventType classifies entries in a conversation's audit trail.
type EventType string

const (
	EventAcknowledged EventType = "acknowledged"
	EventTimedOut     EventType = "timed_out"
	EventFollowedUp   EventType = "followed_up"
	EventEscalated    EventType = "escalated"
	EventAnswered     EventType = "answered"
	EventCancelled    EventType = "cancelled"
	EventDeclined     EventType = "declined"
)

// SystemActor is the TriggeredBy value for transitions driven by the
// orchestrator itself (timer fires, delivery failures) rather than an actor.
const SystemActor = "system"

// ConversationEvent is one append-only audit entry. Events for a conversation
// are totally ordered by Seq and never modified or deleted.
type ConversationEvent struct {
	ID             string            `json:"id"`
	ConversationID string            `json:"conversation_id"`
	Seq            uint64            `json:"seq"`
	Type           EventType         `json:"event_type"`
	FromState      ConversationState `json:"from_state"`
	ToState        ConversationState `json:"to_state"`
	TriggeredBy    string            `json:"triggered_by"`
	Payload        map[string]any    `json:"payload,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}
