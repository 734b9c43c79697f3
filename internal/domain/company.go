package domain

// Company owns the tickets an agent can chat on.
type Company struct {
	ID   string
	Name string
}
