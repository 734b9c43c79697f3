package chat

import (
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/spec-kit/ticket-chat/internal/domain"
)

// Policy decides how repeated events for an unopened ticket are surfaced.
type Policy string

const (
	// PolicyCoalesce keeps one pending notification per ticket and alerts once until it is opened.
	PolicyCoalesce Policy = "coalesce"
	// PolicyStack records and alerts every event.
	PolicyStack Policy = "stack"
)

// ParsePolicy accepts "coalesce" or "stack"; empty means coalesce.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyCoalesce:
		return PolicyCoalesce, nil
	case PolicyStack:
		return PolicyStack, nil
	default:
		return "", fmt.Errorf("unknown notification policy %q", s)
	}
}

// record adds ev to the queue and reports whether the user should be alerted.
// Caller holds c.mu.
func (c *Controller) record(ev domain.MessageCreated) bool {
	if c.policy == PolicyCoalesce {
		_, idx, ok := lo.FindIndexOf(c.notifications, func(n domain.Notification) bool {
			return n.TicketID == ev.TicketID
		})
		if ok {
			n := &c.notifications[idx]
			n.Count++
			n.Preview = ev.Preview
			n.CreatedAt = ev.CreatedAt
			return false
		}
	}
	c.notifications = append(c.notifications, domain.Notification{
		TicketID:  ev.TicketID,
		Preview:   ev.Preview,
		CreatedAt: ev.CreatedAt,
		Count:     1,
	})
	return true
}

// dropNotifications removes every pending notification for ticketID. Caller holds c.mu.
func (c *Controller) dropNotifications(ticketID string) bool {
	before := len(c.notifications)
	c.notifications = lo.Reject(c.notifications, func(n domain.Notification, _ int) bool {
		return n.TicketID == ticketID
	})
	return len(c.notifications) != before
}

// AcknowledgeNotification discards pending notifications for ticketID.
func (c *Controller) AcknowledgeNotification(ticketID string) {
	c.update(func(e *emitter) {
		if c.dropNotifications(ticketID) {
			e.changed()
		}
	})
}

// Notifications returns a copy of the pending notification queue.
func (c *Controller) Notifications() []domain.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.Notification(nil), c.notifications...)
}
