package domain

// Selection is the company/ticket pair whose conversation is open.
// TicketID is only meaningful relative to CompanyID.
type Selection struct {
	CompanyID string
	TicketID  string
}

// Ready reports whether both halves of the selection are set.
func (s Selection) Ready() bool {
	return s.CompanyID != "" && s.TicketID != ""
}
