package models

import (
	"time"

	"github.com/google/uuid"
)

// LoginEvent is the audit record emitted after every login submission.
type LoginEvent struct {
	ID         uuid.UUID `json:"id"`
	Username   string    `json:"username"`
	Language   string    `json:"language"`
	Success    bool      `json:"success"`
	StatusCode int       `json:"statusCode,omitempty"` // Zero on success
	OccurredAt time.Time `json:"occurredAt"`
}
