// Package console is the line-oriented front end for a chat session.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/spec-kit/ticket-chat/internal/chat"
	"github.com/spec-kit/ticket-chat/internal/domain"
)

const helpText = `commands:
  /companies             list companies
  /company <id|#>        open a company
  /tickets               list the open company's tickets
  /ticket <id|#>         open a ticket and show its messages
  /refresh               reload the open ticket's messages
  /notifications         list pending notifications
  /ack <ticket-id>       dismiss notifications for a ticket
  /draft <text>          set the draft without sending
  /send                  send the draft
  /status                show the current selection
  /quit                  leave
anything else is sent as a message on the open ticket`

// Console renders controller events to out and turns input lines into controller calls.
type Console struct {
	ctrl    *chat.Controller
	out     io.Writer
	palette palette
	now     func() time.Time

	mu        sync.Mutex
	shownFor  string
	lastShown string
}

// New builds a console over ctrl. colors toggles ANSI styling.
func New(ctrl *chat.Controller, out io.Writer, colors bool) *Console {
	return &Console{ctrl: ctrl, out: out, palette: palette{enabled: colors}, now: time.Now}
}

// Attach starts rendering controller events and returns the detach function.
func (c *Console) Attach() func() {
	return c.ctrl.AddListener(c.onEvent)
}

func (c *Console) onEvent(ev chat.Event) {
	switch ev.Kind {
	case chat.EventNotice:
		c.printf("%s\n", c.palette.notice(ev.Notice))
	case chat.EventScrollToNewest:
		c.showNewMessages()
	}
}

// showNewMessages prints the messages after the last one already shown for the open ticket.
func (c *Console) showNewMessages() {
	snap := c.ctrl.Snapshot()
	c.mu.Lock()
	defer c.mu.Unlock()

	msgs := snap.Messages
	if c.shownFor == snap.Selection.TicketID && c.lastShown != "" {
		if _, idx, ok := lo.FindIndexOf(msgs, func(m domain.Message) bool { return m.ID == c.lastShown }); ok {
			msgs = msgs[idx+1:]
		}
	}
	c.shownFor = snap.Selection.TicketID
	if len(snap.Messages) > 0 {
		c.lastShown = snap.Messages[len(snap.Messages)-1].ID
	}
	if len(msgs) == 0 {
		return
	}
	renderMessages(c.out, msgs, c.now())
}

func (c *Console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}

// Run reads commands from in until EOF, /quit or ctx is done.
func (c *Console) Run(ctx context.Context, in io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	c.prompt()
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			if c.Execute(ctx, line) {
				return nil
			}
			c.prompt()
		}
	}
}

func (c *Console) prompt() {
	snap := c.ctrl.Snapshot()
	label := "chat"
	if snap.Selection.CompanyID != "" {
		label = nameOf(snap.Companies, snap.Selection.CompanyID)
	}
	if snap.Selection.TicketID != "" {
		label += "/" + ticketNameOf(snap.Tickets, snap.Selection.TicketID)
	}
	c.printf("%s> ", c.palette.header(label))
}

// Execute runs one input line and reports whether the session should end.
func (c *Console) Execute(ctx context.Context, line string) (quit bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	if !strings.HasPrefix(line, "/") {
		c.ctrl.UpdateDraft(line)
		c.report(c.send(ctx))
		return false
	}

	cmd, arg, _ := strings.Cut(line[1:], " ")
	arg = strings.TrimSpace(arg)
	switch strings.ToLower(cmd) {
	case "quit", "exit", "q":
		return true
	case "help", "?":
		c.printf("%s\n", helpText)
	case "companies":
		snap := c.ctrl.Snapshot()
		c.locked(func(w io.Writer) { renderCompanies(w, snap.Companies) })
	case "company":
		if arg == "" {
			c.printf("usage: /company <id|#>\n")
			return false
		}
		id := resolve(arg, c.ctrl.Snapshot().Companies, func(co domain.Company) string { return co.ID })
		c.report(c.ctrl.SelectCompany(ctx, id))
		snap := c.ctrl.Snapshot()
		if snap.Selection.CompanyID == id {
			c.locked(func(w io.Writer) { renderTickets(w, snap.Tickets, c.now()) })
		}
	case "tickets":
		snap := c.ctrl.Snapshot()
		if snap.Selection.CompanyID == "" {
			c.printf("open a company first\n")
			return false
		}
		c.locked(func(w io.Writer) { renderTickets(w, snap.Tickets, c.now()) })
	case "ticket":
		if arg == "" {
			c.printf("usage: /ticket <id|#>\n")
			return false
		}
		id := resolve(arg, c.ctrl.Snapshot().Tickets, func(t domain.Ticket) string { return t.ID })
		c.resetShown()
		err := c.ctrl.SelectTicket(ctx, id)
		c.report(err)
		switch {
		case c.ctrl.State() != chat.StateTicketSelected:
			c.printf("open a company first\n")
		case err == nil && len(c.ctrl.Snapshot().Messages) == 0:
			c.printf("no messages yet\n")
		}
	case "refresh":
		err := c.ctrl.RefreshMessages(ctx)
		if errors.Is(err, chat.ErrNoTicketSelected) {
			c.printf("open a ticket first\n")
			return false
		}
		c.report(err)
	case "notifications":
		pending := c.ctrl.Notifications()
		c.locked(func(w io.Writer) { renderNotifications(w, pending, c.now()) })
	case "ack":
		if arg == "" {
			c.printf("usage: /ack <ticket-id>\n")
			return false
		}
		c.ctrl.AcknowledgeNotification(arg)
	case "draft":
		c.ctrl.UpdateDraft(arg)
	case "send":
		c.report(c.send(ctx))
	case "status":
		snap := c.ctrl.Snapshot()
		c.printf("state: %s  company: %s  ticket: %s  composer: %t  pending: %d\n",
			snap.State, orDash(snap.Selection.CompanyID), orDash(snap.Selection.TicketID),
			snap.ComposerEnabled, len(snap.Notifications))
	default:
		c.printf("unknown command %q, try /help\n", cmd)
	}
	return false
}

func (c *Console) send(ctx context.Context) error {
	_, err := c.ctrl.SendMessage(ctx)
	return err
}

// report prints errors the controller did not already surface as notices.
func (c *Console) report(err error) {
	switch {
	case err == nil,
		errors.Is(err, chat.ErrFetchFailed),
		errors.Is(err, chat.ErrSendFailed),
		errors.Is(err, chat.ErrEmptyMessage),
		errors.Is(err, chat.ErrNoTicketSelected):
		return
	default:
		c.printf("error: %v\n", err)
	}
}

func (c *Console) resetShown() {
	c.mu.Lock()
	c.shownFor, c.lastShown = "", ""
	c.mu.Unlock()
}

func (c *Console) locked(fn func(w io.Writer)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(c.out)
}

// resolve maps a 1-based list position to an id; anything else is taken as an id.
func resolve[T any](arg string, items []T, id func(T) string) string {
	if n, err := strconv.Atoi(arg); err == nil && n >= 1 && n <= len(items) {
		return id(items[n-1])
	}
	return arg
}

func nameOf(companies []domain.Company, id string) string {
	if co, ok := lo.Find(companies, func(co domain.Company) bool { return co.ID == id }); ok && co.Name != "" {
		return co.Name
	}
	return id
}

func ticketNameOf(tickets []domain.Ticket, id string) string {
	if t, ok := lo.Find(tickets, func(t domain.Ticket) bool { return t.ID == id }); ok && t.Name != "" {
		return t.Name
	}
	return id
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
