package domain

import "time"

// Agent is a support operator who authenticates against the directory API.
type Agent struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}
