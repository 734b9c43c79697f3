package chat

import (
	"context"
	"errors"

	"github.com/spec-kit/ticket-chat/internal/domain"
)

var (
	// ErrFetchFailed wraps listing and message retrieval failures.
	ErrFetchFailed = errors.New("fetch failed")
	// ErrSendFailed wraps message persistence failures.
	ErrSendFailed = errors.New("send failed")
	// ErrEmptyMessage is returned when the draft is blank; nothing is sent.
	ErrEmptyMessage = errors.New("message body cannot be empty")
	// ErrNoTicketSelected is returned when an operation needs an open ticket.
	ErrNoTicketSelected = errors.New("no ticket selected")
)

//go:generate go run go.uber.org/mock/mockgen -source=directory.go -destination=../mocks/mock_directory.go -package=mocks

// Directory lists companies, tickets and messages and persists new messages.
type Directory interface {
	ListCompanies(ctx context.Context) ([]domain.Company, error)
	ListTickets(ctx context.Context, companyID string) ([]domain.Ticket, error)
	ListMessages(ctx context.Context, ticketID string) ([]domain.Message, error)
	// SendMessage persists body on ticketID and returns the server-assigned message id.
	SendMessage(ctx context.Context, ticketID, body string, direction domain.Direction) (string, error)
}
