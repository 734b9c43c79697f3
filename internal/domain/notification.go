package domain

import "time"

// MessageCreated is pushed on the notification channel whenever a message is persisted.
type MessageCreated struct {
	ID        string
	TicketID  string
	MessageID string
	Preview   string
	CreatedAt time.Time
}

// Notification is a session-local alert for a ticket that is not currently open.
// Count is the number of events folded into it.
type Notification struct {
	TicketID  string
	Preview   string
	CreatedAt time.Time
	Count     int
}
