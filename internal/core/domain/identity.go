package domain

import "github.com/google/uuid"

// Identity is the caller as asserted by the session collaborator.
type Identity struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name,omitempty"`
	Email string    `json:"email,omitempty"`
}
