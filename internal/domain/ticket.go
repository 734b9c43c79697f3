package domain

import "time"

// Ticket is a support conversation scoped to a company.
type Ticket struct {
	ID        string
	Name      string
	CompanyID string
	CreatedAt time.Time
}
