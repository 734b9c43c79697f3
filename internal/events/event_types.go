package events

import (
	"time"

	"github.com/spec-kit/ticket-chat/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventMessageCreated EventType = "message_created"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	TicketID  string    `json:"ticket_id"`
	ActorID   string    `json:"actor_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// MessageCreatedPayload payload.
type MessageCreatedPayload struct {
	MessageID   string           `json:"message_id"`
	Direction   domain.Direction `json:"direction"`
	BodyPreview string           `json:"body_preview"`
	CreatedAt   time.Time        `json:"created_at"`
}
