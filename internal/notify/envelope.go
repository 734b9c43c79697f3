package notify

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/ticket-chat/internal/domain"
)

// EventTypeMessageCreated names the payload carried in Envelope.Data.
const EventTypeMessageCreated = "chat.message_created.v1"

// Meta describes an envelope independent of its payload.
type Meta struct {
	ID       string    `json:"id"`
	Type     string    `json:"type"`
	Time     time.Time `json:"time"`
	Producer *string   `json:"producer,omitempty"`
}

// Envelope is the wire format shared by every transport.
type Envelope struct {
	Meta Meta               `json:"meta"`
	Data messageCreatedData `json:"data"`
}

type messageCreatedData struct {
	TicketID  string    `json:"ticket_id"`
	MessageID string    `json:"message_id"`
	Preview   string    `json:"preview"`
	CreatedAt time.Time `json:"created_at"`
}

// Encode wraps event in an envelope and marshals it.
func Encode(event domain.MessageCreated, producer string) ([]byte, error) {
	id := event.ID
	if id == "" {
		id = uuid.NewString()
	}
	env := Envelope{
		Meta: Meta{ID: id, Type: EventTypeMessageCreated, Time: time.Now().UTC()},
		Data: messageCreatedData{
			TicketID:  event.TicketID,
			MessageID: event.MessageID,
			Preview:   event.Preview,
			CreatedAt: event.CreatedAt,
		},
	}
	if producer != "" {
		env.Meta.Producer = &producer
	}
	return json.Marshal(env)
}

// Decode parses an envelope produced by Encode.
func Decode(body []byte) (domain.MessageCreated, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return domain.MessageCreated{}, err
	}
	if env.Meta.Type != EventTypeMessageCreated {
		return domain.MessageCreated{}, fmt.Errorf("unexpected event type %q", env.Meta.Type)
	}
	if env.Data.TicketID == "" {
		return domain.MessageCreated{}, fmt.Errorf("event %s has no ticket id", env.Meta.ID)
	}
	return domain.MessageCreated{
		ID:        env.Meta.ID,
		TicketID:  env.Data.TicketID,
		MessageID: env.Data.MessageID,
		Preview:   env.Data.Preview,
		CreatedAt: env.Data.CreatedAt,
	}, nil
}
