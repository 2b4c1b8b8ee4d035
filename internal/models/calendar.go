package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	ProviderGoogle    = "google"
	ProviderMicrosoft = "microsoft"
	// ProviderLocal marks appointments that live only here; no connection uses it.
	ProviderLocal = "local"
)

// CalendarConnection stores the credentials of a connected calendar account.
// Tokens are kept encrypted and never serialized.
type CalendarConnection struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	TenantID     uuid.UUID  `json:"tenant_id" db:"tenant_id"`
	Provider     string     `json:"provider" db:"provider"`
	Email        string     `json:"email" db:"email"`
	AccessToken  string     `json:"-" db:"access_token"`
	RefreshToken string     `json:"-" db:"refresh_token"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty" db:"expires_at"`
	CreatedAt    time.Time  `json:"connected_at" db:"created_at"`
}
