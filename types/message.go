package types

import "time"

// MessageType classifies messages exchanged between actors.
type MessageType string

const (
	MessageQuestion         MessageType = "question"
	MessageAcknowledgment   MessageType = "acknowledgment"
	MessageFollowUp         MessageType = "follow_up"
	MessageEscalationNotice MessageType = "escalation_notice"
	MessageAnswer           MessageType = "answer"
	MessageDecline          MessageType = "decline"
)

// Message carries content between actors through the delivery gateway. The
// orchestration core produces and consumes messages but never inspects
// transport details (queue names, protocols).
type Message struct {
	ID              string      `json:"id"`
	ConversationID  string      `json:"conversation_id"`
	Type            MessageType `json:"type"`
	Sender          string      `json:"sender"`
	Recipient       string      `json:"recipient"`
	Content         string      `json:"content"`
	RequiresAck     bool        `json:"requires_acknowledgment"`
	ParentMessageID string      `json:"parent_message_id,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
}

// NewMessage creates a message of the given type.
func NewMessage(msgType MessageType, conversationID, sender, recipient, content string) *Message {
	return &Message{
		ConversationID: conversationID,
		Type:           msgType,
		Sender:         sender,
		Recipient:      recipient,
		Content:        content,
		CreatedAt:      time.Now(),
	}
}
