package chat

import "github.com/spec-kit/ticket-chat/internal/domain"

// EventKind identifies what a listener is being told.
type EventKind int

const (
	// EventStateChanged means some projection in Snapshot changed.
	EventStateChanged EventKind = iota + 1
	// EventScrollToNewest is emitted once per message load or successful send.
	EventScrollToNewest
	// EventNotice carries a non-blocking user notice.
	EventNotice
)

func (k EventKind) String() string {
	switch k {
	case EventStateChanged:
		return "state_changed"
	case EventScrollToNewest:
		return "scroll_to_newest"
	case EventNotice:
		return "notice"
	default:
		return "unknown"
	}
}

// NoticeLevel mirrors toast variants.
type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeSuccess NoticeLevel = "success"
	NoticeError   NoticeLevel = "error"
)

// Notice is a user-facing message the view shows without blocking.
type Notice struct {
	Level    NoticeLevel
	Title    string
	Message  string
	TicketID string
}

// Event is delivered to every Listener.
type Event struct {
	Kind   EventKind
	Notice Notice
}

// Listener observes a Controller. It may be called from any goroutine,
// never while the controller holds its lock.
type Listener func(Event)

// SessionState is the composer availability state machine.
type SessionState int

const (
	StateNoCompany SessionState = iota
	StateCompanySelected
	StateTicketSelected
)

func (s SessionState) String() string {
	switch s {
	case StateNoCompany:
		return "no_company"
	case StateCompanySelected:
		return "company_selected"
	case StateTicketSelected:
		return "ticket_selected"
	default:
		return "unknown"
	}
}

func stateOf(sel domain.Selection) SessionState {
	switch {
	case sel.CompanyID == "":
		return StateNoCompany
	case sel.TicketID == "":
		return StateCompanySelected
	default:
		return StateTicketSelected
	}
}

// Snapshot is a read-only copy of controller state.
type Snapshot struct {
	Companies       []domain.Company
	Tickets         []domain.Ticket
	Messages        []domain.Message
	Notifications   []domain.Notification
	Selection       domain.Selection
	Draft           string
	ComposerEnabled bool
	State           SessionState
}

type emitter struct {
	events []Event
}

func (e *emitter) changed() {
	e.events = append(e.events, Event{Kind: EventStateChanged})
}

func (e *emitter) scroll() {
	e.events = append(e.events, Event{Kind: EventScrollToNewest})
}

func (e *emitter) notice(n Notice) {
	e.events = append(e.events, Event{Kind: EventNotice, Notice: n})
}

func errorNotice(message string) Notice {
	return Notice{Level: NoticeError, Title: "Error", Message: message}
}
