package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	TenantID     *uuid.UUID `json:"tenant_id,omitempty" db:"tenant_id"`
	Email        string     `json:"email" db:"email"`
	Username     string     `json:"username" db:"username"`
	PasswordHash string     `json:"-" db:"password_hash"`
	IsActive     bool       `json:"is_active" db:"is_active"`
	IsAdmin      bool       `json:"is_admin" db:"is_admin"`
	IsSuperAdmin bool       `json:"is_super_admin" db:"is_super_admin"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
}

// TenantIDString returns the tenant id or "" for platform users.
func (u *User) TenantIDString() string {
	if u.TenantID == nil {
		return ""
	}
	return u.TenantID.String()
}

// MaxUsersPerTenant bounds the number of logins a tenant may hold.
const MaxUsersPerTenant = 2
