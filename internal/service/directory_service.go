package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-chat/internal/chat"
	"github.com/spec-kit/ticket-chat/internal/domain"
	"github.com/spec-kit/ticket-chat/internal/events"
	"github.com/spec-kit/ticket-chat/internal/repository"
	apperrors "github.com/spec-kit/ticket-chat/pkg/util/errorutil"
)

var _ chat.Directory = (*DirectoryService)(nil)

// DirectoryService serves company, ticket and message listings and persists messages.
type DirectoryService struct {
	companies  repository.CompanyRepository
	tickets    repository.TicketRepository
	messages   repository.MessageRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// DirectoryDependencies bundles repositories for the directory service.
type DirectoryDependencies struct {
	CompanyRepo repository.CompanyRepository
	TicketRepo  repository.TicketRepository
	MessageRepo repository.MessageRepository
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

// NewDirectoryService constructs the service.
func NewDirectoryService(deps DirectoryDependencies) *DirectoryService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DirectoryService{
		companies:  deps.CompanyRepo,
		tickets:    deps.TicketRepo,
		messages:   deps.MessageRepo,
		dispatcher: deps.Dispatcher,
		logger:     logger,
	}
}

// ListCompanies returns every company ordered by name.
func (s *DirectoryService) ListCompanies(ctx context.Context) ([]domain.Company, error) {
	companies, err := s.companies.List(ctx)
	if err != nil {
		return nil, err
	}
	if companies == nil {
		companies = []domain.Company{}
	}
	return companies, nil
}

// ListTickets returns the tickets of an existing company.
func (s *DirectoryService) ListTickets(ctx context.Context, companyID string) ([]domain.Ticket, error) {
	if strings.TrimSpace(companyID) == "" {
		return nil, apperrors.NewValidationError("company id required", nil)
	}
	if _, err := s.companies.GetByID(ctx, companyID); err != nil {
		return nil, notFoundOr(err, "company", companyID)
	}
	tickets, err := s.tickets.ListByCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if tickets == nil {
		tickets = []domain.Ticket{}
	}
	return tickets, nil
}

// ListMessages returns the thread of an existing ticket, oldest first.
func (s *DirectoryService) ListMessages(ctx context.Context, ticketID string) ([]domain.Message, error) {
	if strings.TrimSpace(ticketID) == "" {
		return nil, apperrors.NewValidationError("ticket id required", nil)
	}
	if _, err := s.tickets.GetByID(ctx, ticketID); err != nil {
		return nil, notFoundOr(err, "ticket", ticketID)
	}
	msgs, err := s.messages.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if msgs == nil {
		msgs = []domain.Message{}
	}
	return msgs, nil
}

// SendMessage persists body and returns the new message id.
func (s *DirectoryService) SendMessage(ctx context.Context, ticketID, body string, direction domain.Direction) (string, error) {
	msg, err := s.PostMessage(ctx, "", ticketID, body, direction)
	if err != nil {
		return "", err
	}
	return msg.ID, nil
}

// PostMessage validates and persists a message, then publishes EventMessageCreated.
func (s *DirectoryService) PostMessage(ctx context.Context, actorID, ticketID, body string, direction domain.Direction) (*domain.Message, error) {
	if strings.TrimSpace(body) == "" {
		return nil, apperrors.NewValidationError("body required", nil)
	}
	if direction == "" {
		direction = domain.DirectionOutgoing
	}
	if !direction.Valid() {
		return nil, apperrors.NewValidationError("invalid direction", map[string]any{"direction": direction})
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, notFoundOr(err, "ticket", ticketID)
	}

	msg := &domain.Message{
		TicketID:  ticket.ID,
		Body:      body,
		Direction: direction,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventMessageCreated,
		TicketID: ticket.ID,
		ActorID:  actorID,
		Payload: events.MessageCreatedPayload{
			MessageID:   msg.ID,
			Direction:   msg.Direction,
			BodyPreview: domain.PreviewOf(msg.Body),
			CreatedAt:   msg.CreatedAt,
		},
	})
	return msg, nil
}

func (s *DirectoryService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handlers failed",
			zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", event.TicketID),
			zap.Error(err))
	}
}

func notFoundOr(err error, resource, id string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound(resource, map[string]any{"id": id})
	}
	return err
}
