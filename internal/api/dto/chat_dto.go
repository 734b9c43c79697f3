package dto

import (
	"time"

	"github.com/spec-kit/ticket-chat/internal/domain"
)

// CompanyResponse is one entry of GET /companies.
type CompanyResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// TicketResponse is one entry of GET /companies/:id/tickets.
type TicketResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CompanyID string    `json:"company_id"`
	CreatedAt time.Time `json:"created_at"`
}

// MessageResponse is one entry of GET /tickets/:id/messages.
type MessageResponse struct {
	ID        string           `json:"id"`
	TicketID  string           `json:"ticket_id"`
	Body      string           `json:"body"`
	Direction domain.Direction `json:"direction"`
	CreatedAt time.Time        `json:"created_at"`
}

// CreateMessageRequest is the body of POST /tickets/:id/messages.
// Direction defaults to outgoing.
type CreateMessageRequest struct {
	Body      string           `json:"body" validate:"required"`
	Direction domain.Direction `json:"direction" validate:"omitempty,oneof=incoming outgoing"`
}

// CreateMessageResponse carries the id assigned to a new message.
type CreateMessageResponse struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// NewCompanyResponse maps a domain company.
func NewCompanyResponse(c domain.Company) CompanyResponse {
	return CompanyResponse{ID: c.ID, Name: c.Name}
}

// NewTicketResponse maps a domain ticket.
func NewTicketResponse(t domain.Ticket) TicketResponse {
	return TicketResponse{ID: t.ID, Name: t.Name, CompanyID: t.CompanyID, CreatedAt: t.CreatedAt}
}

// NewMessageResponse maps a domain message.
func NewMessageResponse(m domain.Message) MessageResponse {
	return MessageResponse{
		ID:        m.ID,
		TicketID:  m.TicketID,
		Body:      m.Body,
		Direction: m.Direction,
		CreatedAt: m.CreatedAt,
	}
}

// Company converts the response back into a domain value.
func (r CompanyResponse) Company() domain.Company {
	return domain.Company{ID: r.ID, Name: r.Name}
}

// Ticket converts the response back into a domain value.
func (r TicketResponse) Ticket() domain.Ticket {
	return domain.Ticket{ID: r.ID, Name: r.Name, CompanyID: r.CompanyID, CreatedAt: r.CreatedAt}
}

// Message converts the response back into a domain value.
func (r MessageResponse) Message() domain.Message {
	return domain.Message{
		ID:        r.ID,
		TicketID:  r.TicketID,
		Body:      r.Body,
		Direction: r.Direction,
		CreatedAt: r.CreatedAt,
	}
}
