package client

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
)

var tenantStatuses = map[string]bool{"approved": true, "pending": true, "rejected": true, "suspended": true}

func validStatus(s string) bool { return tenantStatuses[s] }

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r LoginRequest) Validate() error {
	if strings.TrimSpace(r.Email) == "" || r.Password == "" {
		return errors.New("email and password are required")
	}
	return nil
}

type LoginResponse struct {
	AccessToken  string  `json:"access_token"`
	TokenType    string  `json:"token_type"`
	UserID       string  `json:"user_id"`
	TenantID     *string `json:"tenant_id"`
	Username     string  `json:"username"`
	Email        string  `json:"email"`
	IsSuperAdmin bool    `json:"is_super_admin"`
	TenantStatus string  `json:"tenant_status"`
}

func (r *LoginResponse) Validate() error {
	if r.AccessToken == "" {
		return errors.New("missing access_token")
	}
	if r.UserID == "" {
		return errors.New("missing user_id")
	}
	if !r.IsSuperAdmin && !validStatus(r.TenantStatus) {
		return fmt.Errorf("invalid tenant_status %q", r.TenantStatus)
	}
	return nil
}

type Profile struct {
	ID           string    `json:"id"`
	TenantID     *string   `json:"tenant_id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	IsActive     bool      `json:"is_active"`
	IsAdmin      bool      `json:"is_admin"`
	IsSuperAdmin bool      `json:"is_super_admin"`
	TenantStatus string    `json:"tenant_status"`
	CreatedAt    time.Time `json:"created_at"`
}

func (p *Profile) Validate() error {
	if p.ID == "" {
		return errors.New("missing id")
	}
	if !p.IsSuperAdmin && !validStatus(p.TenantStatus) {
		return fmt.Errorf("invalid tenant_status %q", p.TenantStatus)
	}
	return nil
}

type RegisterRequest struct {
	CompanyName   string `json:"company_name"`
	ContactPerson string `json:"contact_person"`
	Email         string `json:"email"`
	Password      string `json:"password"`
	Phone         string `json:"phone"`
	Street        string `json:"street"`
	HouseNumber   string `json:"house_number"`
	PostalCode    string `json:"postal_code"`
	City          string `json:"city"`
	Country       string `json:"country,omitempty"`
	TaxNumber     string `json:"tax_number,omitempty"`
	VatID         string `json:"vat_id,omitempty"`
	Website       string `json:"website,omitempty"`
	Industry      string `json:"industry,omitempty"`
}

// Validate mirrors the server's checks so obviously bad input never leaves the client.
func (r RegisterRequest) Validate() error {
	required := []struct{ name, value string }{
		{"company_name", r.CompanyName},
		{"contact_person", r.ContactPerson},
		{"email", r.Email},
		{"password", r.Password},
		{"phone", r.Phone},
		{"street", r.Street},
		{"house_number", r.HouseNumber},
		{"postal_code", r.PostalCode},
		{"city", r.City},
	}
	var missing []string
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required fields: %s", strings.Join(missing, ", "))
	}
	if _, err := mail.ParseAddress(r.Email); err != nil {
		return errors.New("invalid email address")
	}
	if len(r.Password) < 6 {
		return errors.New("password must be at least 6 characters")
	}
	return nil
}

type RegisterResponse struct {
	TenantID    string    `json:"tenant_id"`
	CompanyName string    `json:"company_name"`
	Email       string    `json:"email"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

func (r *RegisterResponse) Validate() error {
	if r.TenantID == "" {
		return errors.New("missing tenant_id")
	}
	if !validStatus(r.Status) {
		return fmt.Errorf("invalid status %q", r.Status)
	}
	return nil
}

type Tenant struct {
	ID            string    `json:"id"`
	CompanyName   string    `json:"company_name"`
	ContactPerson string    `json:"contact_person"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone"`
	City          string    `json:"city"`
	Country       string    `json:"country"`
	Status        string    `json:"status"`
	PricingPlanID *string   `json:"pricing_plan_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func (t *Tenant) Validate() error {
	if t.ID == "" {
		return errors.New("missing tenant id")
	}
	if !validStatus(t.Status) {
		return fmt.Errorf("invalid tenant status %q", t.Status)
	}
	return nil
}

type Tenants []Tenant

func (ts Tenants) Validate() error {
	for i := range ts {
		if err := ts[i].Validate(); err != nil {
			return fmt.Errorf("tenant %d: %w", i, err)
		}
	}
	return nil
}

type TenantStats struct {
	Appointments  int `json:"appointments"`
	Conversations int `json:"conversations"`
	Users         int `json:"users"`
	Calendars     int `json:"calendars"`
}

type User struct {
	ID        string    `json:"id"`
	TenantID  *string   `json:"tenant_id,omitempty"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	IsActive  bool      `json:"is_active"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
}

func (u *User) Validate() error {
	if u.ID == "" || u.Email == "" {
		return errors.New("user requires id and email")
	}
	return nil
}

type Users []User

func (us Users) Validate() error {
	for i := range us {
		if err := us[i].Validate(); err != nil {
			return fmt.Errorf("user %d: %w", i, err)
		}
	}
	return nil
}

type CreateUserRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

func (r CreateUserRequest) Validate() error {
	if r.Email == "" || r.Username == "" || r.Password == "" {
		return errors.New("email, username and password are required")
	}
	return nil
}

type Appointment struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	StartTime        time.Time `json:"start_time"`
	EndTime          time.Time `json:"end_time"`
	Description      *string   `json:"description"`
	CalendarProvider string    `json:"calendar_provider"`
	CreatedAt        time.Time `json:"created_at"`
}

func (a *Appointment) Validate() error {
	if a.ID == "" {
		return errors.New("missing appointment id")
	}
	if !a.EndTime.After(a.StartTime) {
		return errors.New("appointment ends before it starts")
	}
	return nil
}

type Appointments []Appointment

func (as Appointments) Validate() error {
	for i := range as {
		if err := as[i].Validate(); err != nil {
			return fmt.Errorf("appointment %d: %w", i, err)
		}
	}
	return nil
}

type CreateAppointmentRequest struct {
	Title            string    `json:"title"`
	StartTime        time.Time `json:"start_time"`
	EndTime          time.Time `json:"end_time"`
	Description      *string   `json:"description,omitempty"`
	CalendarProvider string    `json:"calendar_provider,omitempty"`
}

func (r CreateAppointmentRequest) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return errors.New("title is required")
	}
	if !r.EndTime.After(r.StartTime) {
		return errors.New("end_time must be after start_time")
	}
	return nil
}

type PlatformStats struct {
	TotalTenants    int     `json:"total_tenants"`
	PendingTenants  int     `json:"pending_tenants"`
	ApprovedTenants int     `json:"approved_tenants"`
	TotalUsers      int     `json:"total_users"`
	TotalCalls      int     `json:"total_calls"`
	TotalMinutes    float64 `json:"total_minutes"`
	TotalInvoices   int     `json:"total_invoices"`
	TotalRevenue    float64 `json:"total_revenue"`
}

func (s *PlatformStats) Validate() error {
	if s.TotalTenants < s.PendingTenants+s.ApprovedTenants {
		return errors.New("tenant counts inconsistent")
	}
	return nil
}

type Message struct {
	Message string `json:"message"`
}
