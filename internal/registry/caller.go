package registry

import (
	"strings"
	"time"
)

// DefaultName is stored when a caller registers without a display name.
const DefaultName = "Unknown"

// Caller is a user allowed to use the chat relay.
type Caller struct {
	UID          string    `json:"uid" dynamodbav:"uid"`
	Email        string    `json:"email" dynamodbav:"email"`
	Name         string    `json:"name" dynamodbav:"name"`
	RegisteredAt time.Time `json:"registeredAt" dynamodbav:"registered_at"`
}

// RegisterRequest is the payload accepted by POST /api/register-user.
type RegisterRequest struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// Validate checks the required fields.
func (r *RegisterRequest) Validate() error {
	if strings.TrimSpace(r.UID) == "" || strings.TrimSpace(r.Email) == "" {
		return ErrMissingIdentity
	}
	return nil
}

func (r *RegisterRequest) toCaller(now time.Time) *Caller {
	name := strings.TrimSpace(r.Name)
	if name == "" {
		name = DefaultName
	}
	return &Caller{
		UID:          strings.TrimSpace(r.UID),
		Email:        strings.TrimSpace(r.Email),
		Name:         name,
		RegisteredAt: now.UTC(),
	}
}
