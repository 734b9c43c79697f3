// Package chat holds the session state machine behind the ticket chat view.
//
// A Controller mediates between a selection UI (company, then ticket, then
// composer) and two collaborators: a Directory for listings and persistence,
// and a notify.Channel for "message created" pushes. State lives behind one
// mutex; remote calls run outside it and their results are applied only if
// the selection they were issued for is still current.
package chat

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-chat/internal/domain"
	"github.com/spec-kit/ticket-chat/internal/notify"
)

// DefaultChannel is the push channel name used when none is configured.
const DefaultChannel = "chat.message_created"

// Option configures a Controller.
type Option func(*Controller)

// WithChannel sets the channel name and replay policy used by Initialize.
func WithChannel(name string, replay notify.ReplayPolicy) Option {
	return func(c *Controller) {
		c.channel = name
		c.replay = replay
	}
}

// WithPolicy sets the notification policy.
func WithPolicy(p Policy) Option {
	return func(c *Controller) { c.policy = p }
}

// WithClock overrides the timestamp source for locally appended messages.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// Controller is the chat session state machine. Use NewController.
type Controller struct {
	directory Directory
	notifier  notify.Channel
	logger    *zap.Logger
	channel   string
	replay    notify.ReplayPolicy
	policy    Policy
	now       func() time.Time

	mu            sync.Mutex
	companies     []domain.Company
	tickets       []domain.Ticket
	messages      []domain.Message
	notifications []domain.Notification
	selection     domain.Selection
	draft         string
	subscription  *notify.Subscription
	subscribing   bool
	closed        bool
	// ticketsSeq and messagesSeq tag in-flight fetches; a result is applied
	// only if its tag is still the latest issued.
	ticketsSeq  uint64
	messagesSeq uint64

	listenersMu  sync.Mutex
	listeners    map[int]Listener
	nextListener int
}

// NewController builds a controller. notifier may be nil, in which case the
// session runs without live notifications.
func NewController(directory Directory, notifier notify.Channel, logger *zap.Logger, opts ...Option) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Controller{
		directory: directory,
		notifier:  notifier,
		logger:    logger,
		channel:   DefaultChannel,
		replay:    notify.ReplayNew,
		policy:    PolicyCoalesce,
		now:       time.Now,
		listeners: make(map[int]Listener),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AddListener registers l and returns a function that removes it.
func (c *Controller) AddListener(l Listener) (remove func()) {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()
	id := c.nextListener
	c.nextListener++
	c.listeners[id] = l
	return func() {
		c.listenersMu.Lock()
		defer c.listenersMu.Unlock()
		delete(c.listeners, id)
	}
}

// update runs fn under the state lock and then dispatches what it emitted.
func (c *Controller) update(fn func(e *emitter)) {
	var e emitter
	c.mu.Lock()
	fn(&e)
	c.mu.Unlock()
	c.dispatch(e.events)
}

func (c *Controller) dispatch(events []Event) {
	if len(events) == 0 {
		return
	}
	c.listenersMu.Lock()
	ids := make([]int, 0, len(c.listeners))
	for id := range c.listeners {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	ls := make([]Listener, 0, len(ids))
	for _, id := range ids {
		ls = append(ls, c.listeners[id])
	}
	c.listenersMu.Unlock()

	for _, ev := range events {
		for _, l := range ls {
			l(ev)
		}
	}
}

// Initialize opens the notification subscription and loads the company list.
// A subscription failure only disables live notifications; a listing failure
// leaves the company list empty and is returned wrapped in ErrFetchFailed.
func (c *Controller) Initialize(ctx context.Context) error {
	c.subscribe(ctx)

	companies, err := c.directory.ListCompanies(ctx)
	c.update(func(e *emitter) {
		if err != nil {
			e.notice(errorNotice("Failed to fetch companies."))
			return
		}
		c.companies = companies
		e.changed()
	})
	if err != nil {
		c.logger.Error("failed to fetch companies", zap.Error(err))
		return fmt.Errorf("%w: list companies: %w", ErrFetchFailed, err)
	}
	c.logger.Debug("companies loaded", zap.Int("count", len(companies)))
	return nil
}

func (c *Controller) subscribe(ctx context.Context) {
	if c.notifier == nil {
		return
	}
	c.mu.Lock()
	c.closed = false
	if c.subscription != nil || c.subscribing {
		c.mu.Unlock()
		return
	}
	c.subscribing = true
	c.mu.Unlock()

	sub, err := c.notifier.Subscribe(ctx, c.channel, c.replay, c.HandleNotification)

	var orphan *notify.Subscription
	c.update(func(e *emitter) {
		c.subscribing = false
		switch {
		case err != nil:
			e.notice(Notice{Level: NoticeError, Title: "Error", Message: "Live notifications are unavailable."})
		case c.closed:
			orphan = sub
		default:
			c.subscription = sub
		}
	})
	if err != nil {
		c.logger.Warn("notification subscription failed; continuing without live updates",
			zap.String("channel", c.channel), zap.Error(err))
		return
	}
	if orphan != nil {
		c.release(ctx, orphan)
		return
	}
	c.logger.Info("subscribed to notifications", zap.String("channel", c.channel))
}

// SelectCompany opens companyID, clearing the ticket selection, the message
// list and the previous ticket list before loading the company's tickets.
// An empty id returns to the no-company state.
func (c *Controller) SelectCompany(ctx context.Context, companyID string) error {
	var seq uint64
	c.update(func(e *emitter) {
		c.selection = domain.Selection{CompanyID: companyID}
		c.tickets = nil
		c.messages = nil
		c.ticketsSeq++
		c.messagesSeq++
		seq = c.ticketsSeq
		e.changed()
	})
	if companyID == "" {
		return nil
	}

	tickets, err := c.directory.ListTickets(ctx, companyID)

	stale := false
	c.update(func(e *emitter) {
		if seq != c.ticketsSeq {
			stale = true
			return
		}
		if err != nil {
			e.notice(errorNotice("Failed to fetch tickets."))
			return
		}
		c.tickets = tickets
		e.changed()
	})
	if stale {
		c.logger.Debug("discarding stale ticket list", zap.String("company_id", companyID))
		return nil
	}
	if err != nil {
		c.logger.Error("failed to fetch tickets", zap.String("company_id", companyID), zap.Error(err))
		return fmt.Errorf("%w: list tickets for company %s: %w", ErrFetchFailed, companyID, err)
	}
	return nil
}

// SelectTicket opens ticketID. The message list is cleared immediately and,
// when a company is also selected, reloaded and the composer enabled.
func (c *Controller) SelectTicket(ctx context.Context, ticketID string) error {
	var (
		seq   uint64
		ready bool
	)
	c.update(func(e *emitter) {
		c.selection.TicketID = ticketID
		c.messages = nil
		c.messagesSeq++
		seq = c.messagesSeq
		ready = c.selection.Ready()
		if ready {
			c.dropNotifications(ticketID)
		}
		e.changed()
	})
	if !ready {
		return nil
	}
	return c.loadMessages(ctx, seq, ticketID)
}

// RefreshMessages reloads the open ticket's messages without clearing them first.
func (c *Controller) RefreshMessages(ctx context.Context) error {
	var (
		seq      uint64
		ticketID string
	)
	c.mu.Lock()
	if !c.selection.Ready() {
		c.mu.Unlock()
		return ErrNoTicketSelected
	}
	c.messagesSeq++
	seq = c.messagesSeq
	ticketID = c.selection.TicketID
	c.mu.Unlock()

	return c.loadMessages(ctx, seq, ticketID)
}

func (c *Controller) loadMessages(ctx context.Context, seq uint64, ticketID string) error {
	messages, err := c.directory.ListMessages(ctx, ticketID)
	if err == nil {
		slices.SortStableFunc(messages, func(a, b domain.Message) int {
			return a.CreatedAt.Compare(b.CreatedAt)
		})
	}

	stale := false
	c.update(func(e *emitter) {
		if seq != c.messagesSeq {
			stale = true
			return
		}
		if err != nil {
			e.notice(errorNotice("Failed to load messages."))
			return
		}
		c.messages = messages
		e.changed()
		e.scroll()
	})
	if stale {
		c.logger.Debug("discarding stale message list", zap.String("ticket_id", ticketID))
		return nil
	}
	if err != nil {
		c.logger.Error("failed to load messages", zap.String("ticket_id", ticketID), zap.Error(err))
		return fmt.Errorf("%w: list messages for ticket %s: %w", ErrFetchFailed, ticketID, err)
	}
	return nil
}

// UpdateDraft stores text verbatim as the composer draft.
func (c *Controller) UpdateDraft(text string) {
	c.update(func(e *emitter) {
		if c.draft == text {
			return
		}
		c.draft = text
		e.changed()
	})
}

// SendMessage persists the current draft on the open ticket. Blank drafts fail
// with ErrEmptyMessage and no open ticket fails with ErrNoTicketSelected; in
// both cases the directory is not called. On success the message is appended
// if its ticket is still open, and the draft is cleared if it was not edited
// while the request was in flight.
func (c *Controller) SendMessage(ctx context.Context) (domain.Message, error) {
	c.mu.Lock()
	body := c.draft
	ticketID := c.selection.TicketID
	ready := c.selection.Ready()
	c.mu.Unlock()

	if strings.TrimSpace(body) == "" {
		c.dispatch([]Event{{Kind: EventNotice, Notice: errorNotice("Message body cannot be empty.")}})
		return domain.Message{}, ErrEmptyMessage
	}
	if !ready {
		c.dispatch([]Event{{Kind: EventNotice, Notice: errorNotice("Select a ticket before sending.")}})
		return domain.Message{}, ErrNoTicketSelected
	}

	id, err := c.directory.SendMessage(ctx, ticketID, body, domain.DirectionOutgoing)
	if err != nil {
		c.logger.Error("failed to send message", zap.String("ticket_id", ticketID), zap.Error(err))
		c.dispatch([]Event{{Kind: EventNotice, Notice: errorNotice("Failed to send the message.")}})
		return domain.Message{}, fmt.Errorf("%w: ticket %s: %w", ErrSendFailed, ticketID, err)
	}

	msg := domain.Message{
		ID:        id,
		TicketID:  ticketID,
		Body:      body,
		Direction: domain.DirectionOutgoing,
		CreatedAt: c.now(),
	}
	c.update(func(e *emitter) {
		if c.draft == body {
			c.draft = ""
		}
		if c.selection.Ready() && c.selection.TicketID == ticketID && !containsMessage(c.messages, id) {
			c.messages = append(c.messages, msg)
			e.scroll()
		}
		e.changed()
		e.notice(Notice{Level: NoticeSuccess, Title: "Success", Message: "Message sent successfully!", TicketID: ticketID})
	})
	return msg, nil
}

func containsMessage(messages []domain.Message, id string) bool {
	return slices.ContainsFunc(messages, func(m domain.Message) bool { return m.ID == id })
}

// HandleNotification is the notify.Handler for the session. An event for the
// open ticket reloads its messages silently; any other event is queued and,
// subject to the policy, raises an alert. The selection is read at delivery time.
func (c *Controller) HandleNotification(ctx context.Context, ev domain.MessageCreated) {
	var (
		refresh bool
		seq     uint64
	)
	c.update(func(e *emitter) {
		if ev.TicketID != "" && c.selection.Ready() && ev.TicketID == c.selection.TicketID {
			refresh = true
			c.messagesSeq++
			seq = c.messagesSeq
			return
		}
		alert := c.record(ev)
		e.changed()
		if alert {
			e.notice(Notice{
				Level:    NoticeInfo,
				Title:    "New message",
				Message:  "You have a new message in chat: " + ev.Preview,
				TicketID: ev.TicketID,
			})
		}
	})
	if !refresh {
		c.logger.Debug("queued notification", zap.String("ticket_id", ev.TicketID))
		return
	}
	// failures are already logged and surfaced as notices
	_ = c.loadMessages(ctx, seq, ev.TicketID)
}

// Teardown releases the notification subscription. It is safe to call more
// than once and never returns transport errors.
func (c *Controller) Teardown(ctx context.Context) {
	c.mu.Lock()
	sub := c.subscription
	c.subscription = nil
	c.closed = true
	c.mu.Unlock()

	if sub == nil {
		return
	}
	c.release(ctx, sub)
}

func (c *Controller) release(ctx context.Context, sub *notify.Subscription) {
	if err := c.notifier.Unsubscribe(ctx, sub); err != nil {
		c.logger.Warn("error unsubscribing", zap.String("subscription_id", sub.ID), zap.Error(err))
		return
	}
	c.logger.Info("unsubscribed from notifications", zap.String("subscription_id", sub.ID))
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		Companies:       slices.Clone(c.companies),
		Tickets:         slices.Clone(c.tickets),
		Messages:        slices.Clone(c.messages),
		Notifications:   slices.Clone(c.notifications),
		Selection:       c.selection,
		Draft:           c.draft,
		ComposerEnabled: c.selection.Ready(),
		State:           stateOf(c.selection),
	}
}

// State returns the composer availability state.
func (c *Controller) State() SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return stateOf(c.selection)
}

// ComposerEnabled reports whether both a company and a ticket are selected.
func (c *Controller) ComposerEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selection.Ready()
}
