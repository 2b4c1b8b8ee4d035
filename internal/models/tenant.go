package models

import (
	"time"

	"github.com/google/uuid"
)

// TenantStatus is the approval lifecycle state of a tenant.
type TenantStatus string

const (
	TenantPending   TenantStatus = "pending"
	TenantApproved  TenantStatus = "approved"
	TenantRejected  TenantStatus = "rejected"
	TenantSuspended TenantStatus = "suspended"
)

func (s TenantStatus) Valid() bool {
	switch s {
	case TenantPending, TenantApproved, TenantRejected, TenantSuspended:
		return true
	}
	return false
}

type Tenant struct {
	ID              uuid.UUID    `json:"id" db:"id"`
	CompanyName     string       `json:"company_name" db:"company_name"`
	ContactPerson   string       `json:"contact_person" db:"contact_person"`
	Email           string       `json:"email" db:"email"`
	Phone           string       `json:"phone" db:"phone"`
	Street          string       `json:"street" db:"street"`
	HouseNumber     string       `json:"house_number" db:"house_number"`
	PostalCode      string       `json:"postal_code" db:"postal_code"`
	City            string       `json:"city" db:"city"`
	Country         string       `json:"country" db:"country"`
	TaxNumber       string       `json:"tax_number,omitempty" db:"tax_number"`
	VatID           string       `json:"vat_id,omitempty" db:"vat_id"`
	Website         string       `json:"website,omitempty" db:"website"`
	Industry        string       `json:"industry,omitempty" db:"industry"`
	Status          TenantStatus `json:"status" db:"status"`
	PricingPlanID   *uuid.UUID   `json:"pricing_plan_id,omitempty" db:"pricing_plan_id"`
	StatusChangedAt *time.Time   `json:"status_changed_at,omitempty" db:"status_changed_at"`
	CreatedAt       time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at" db:"updated_at"`
}

// TenantUpdate carries a partial update of the tenant's own profile.
type TenantUpdate struct {
	CompanyName   *string `json:"company_name,omitempty"`
	ContactPerson *string `json:"contact_person,omitempty"`
	Phone         *string `json:"phone,omitempty"`
	Street        *string `json:"street,omitempty"`
	HouseNumber   *string `json:"house_number,omitempty"`
	PostalCode    *string `json:"postal_code,omitempty"`
	City          *string `json:"city,omitempty"`
	Country       *string `json:"country,omitempty"`
	TaxNumber     *string `json:"tax_number,omitempty"`
	VatID         *string `json:"vat_id,omitempty"`
	Website       *string `json:"website,omitempty"`
	Industry      *string `json:"industry,omitempty"`
}

// Apply copies the set fields onto t.
func (u TenantUpdate) Apply(t *Tenant) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&t.CompanyName, u.CompanyName)
	set(&t.ContactPerson, u.ContactPerson)
	set(&t.Phone, u.Phone)
	set(&t.Street, u.Street)
	set(&t.HouseNumber, u.HouseNumber)
	set(&t.PostalCode, u.PostalCode)
	set(&t.City, u.City)
	set(&t.Country, u.Country)
	set(&t.TaxNumber, u.TaxNumber)
	set(&t.VatID, u.VatID)
	set(&t.Website, u.Website)
	set(&t.Industry, u.Industry)
}

type TenantStats struct {
	Appointments  int `json:"appointments"`
	Conversations int `json:"conversations"`
	Users         int `json:"users"`
	Calendars     int `json:"calendars"`
}
