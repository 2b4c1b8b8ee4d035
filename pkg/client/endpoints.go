package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

func (c *Client) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var out LoginResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var out RegisterResponse
	if err := c.do(ctx, http.MethodPost, "/auth/register", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Me(ctx context.Context) (*Profile, error) {
	var out Profile
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", nil, nil, nil)
}

func (c *Client) Tenant(ctx context.Context) (*Tenant, error) {
	var out Tenant
	if err := c.do(ctx, http.MethodGet, "/tenant", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) TenantStats(ctx context.Context) (*TenantStats, error) {
	var out TenantStats
	if err := c.do(ctx, http.MethodGet, "/stats", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Users(ctx context.Context) (Users, error) {
	var out Users
	if err := c.do(ctx, http.MethodGet, "/users", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateUser(ctx context.Context, req CreateUserRequest) (*User, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var out User
	if err := c.do(ctx, http.MethodPost, "/users", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteUser(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/users/"+url.PathEscape(id), nil, nil, nil)
}

func (c *Client) Appointments(ctx context.Context) (Appointments, error) {
	var out Appointments
	if err := c.do(ctx, http.MethodGet, "/appointments", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateAppointment(ctx context.Context, req CreateAppointmentRequest) (*Appointment, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var out Appointment
	if err := c.do(ctx, http.MethodPost, "/appointments", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteAppointment(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/appointments/"+url.PathEscape(id), nil, nil, nil)
}

func (c *Client) AdminStats(ctx context.Context) (*PlatformStats, error) {
	var out PlatformStats
	if err := c.do(ctx, http.MethodGet, "/admin/stats", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AdminTenants lists tenants, optionally filtered by status.
func (c *Client) AdminTenants(ctx context.Context, status string) (Tenants, error) {
	var q url.Values
	if status != "" {
		q = url.Values{"status": {status}}
	}
	var out Tenants
	if err := c.do(ctx, http.MethodGet, "/admin/tenants", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// TransitionTenant applies "approve", "reject" or "suspend" to a tenant.
func (c *Client) TransitionTenant(ctx context.Context, id, action string) (*Tenant, error) {
	switch action {
	case "approve", "reject", "suspend":
	default:
		return nil, fmt.Errorf("unknown tenant action %q", action)
	}
	var out Tenant
	if err := c.do(ctx, http.MethodPost, "/admin/tenants/"+url.PathEscape(id)+"/"+action, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
