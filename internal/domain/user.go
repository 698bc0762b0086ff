package domain

import (
	"time"

	"github.com/google/uuid"
)

// Profile is the backend's public view of a user, used for display names.
type Profile struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username,omitempty"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewProfile(username string, email string) *Profile {
	now := time.Now().UTC()
	return &Profile{
		ID:        uuid.New(),
		Username:  username,
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
