package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type Appointment struct {
	ID               uuid.UUID  `json:"id" db:"id"`
	TenantID         uuid.UUID  `json:"tenant_id" db:"tenant_id"`
	UserID           *uuid.UUID `json:"user_id,omitempty" db:"user_id"`
	Title            string     `json:"title" db:"title"`
	StartTime        time.Time  `json:"start_time" db:"start_time"`
	EndTime          time.Time  `json:"end_time" db:"end_time"`
	Description      *string    `json:"description" db:"description"`
	CalendarProvider string     `json:"calendar_provider" db:"calendar_provider"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
}

type Conversation struct {
	ID             uuid.UUID       `json:"id" db:"id"`
	TenantID       uuid.UUID       `json:"tenant_id" db:"tenant_id"`
	UserID         uuid.UUID       `json:"user_id" db:"user_id"`
	Transcription  string          `json:"transcription" db:"transcription"`
	AgentResponse  string          `json:"agent_response" db:"agent_response"`
	CalendarAction json.RawMessage `json:"calendar_action,omitempty" db:"calendar_action"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
}
