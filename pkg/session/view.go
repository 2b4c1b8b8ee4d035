package session

import "github.com/google/uuid"

type TenantStatus string

const (
	StatusApproved  TenantStatus = "approved"
	StatusPending   TenantStatus = "pending"
	StatusRejected  TenantStatus = "rejected"
	StatusSuspended TenantStatus = "suspended"
)

func (s TenantStatus) Valid() bool {
	switch s {
	case StatusApproved, StatusPending, StatusRejected, StatusSuspended:
		return true
	}
	return false
}

// Profile is the cached identity of the signed-in user.
type Profile struct {
	ID           uuid.UUID
	TenantID     *uuid.UUID
	Username     string
	Email        string
	IsSuperAdmin bool
	TenantStatus TenantStatus
}

// View is a read-only snapshot of the session handed to everything except the Provider.
type View struct {
	Loading         bool
	IsAuthenticated bool
	IsSuperAdmin    bool
	TenantStatus    TenantStatus
}
