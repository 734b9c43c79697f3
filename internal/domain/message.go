package domain

import (
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
)

// Direction tells whether a message was sent by the agent or received from the customer.
type Direction string

const (
	DirectionIncoming Direction = "incoming"
	DirectionOutgoing Direction = "outgoing"
)

// PreviewWidth is the display width used for notification previews.
const PreviewWidth = 80

// Valid reports whether d is a known direction.
func (d Direction) Valid() bool {
	return d == DirectionIncoming || d == DirectionOutgoing
}

// Message is one entry in a ticket thread.
type Message struct {
	ID        string
	TicketID  string
	Body      string
	Direction Direction
	CreatedAt time.Time
}

// PreviewOf collapses whitespace in body and truncates it to PreviewWidth cells.
func PreviewOf(body string) string {
	flat := strings.Join(strings.Fields(body), " ")
	return runewidth.Truncate(flat, PreviewWidth, "…")
}
