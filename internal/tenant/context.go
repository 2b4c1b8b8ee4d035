package tenant

import (
	"context"

	"github.com/google/uuid"

	"github.com/buchungsbutler/voiceagent/internal/models"
)

// principal is the authenticated caller. Tenant is nil for super-admins.
type principal struct {
	user   *models.User
	tenant *models.Tenant
}

type principalKey struct{}

func principalFrom(ctx context.Context) principal {
	p, _ := ctx.Value(principalKey{}).(principal)
	return p
}

// WithPrincipal stores the caller and its tenant in one step.
func WithPrincipal(ctx context.Context, u *models.User, t *models.Tenant) context.Context {
	return context.WithValue(ctx, principalKey{}, principal{user: u, tenant: t})
}

func WithTenant(ctx context.Context, t *models.Tenant) context.Context {
	p := principalFrom(ctx)
	p.tenant = t
	return context.WithValue(ctx, principalKey{}, p)
}

func WithUser(ctx context.Context, u *models.User) context.Context {
	p := principalFrom(ctx)
	p.user = u
	return context.WithValue(ctx, principalKey{}, p)
}

func FromContext(ctx context.Context) *models.Tenant {
	return principalFrom(ctx).tenant
}

func UserFromContext(ctx context.Context) *models.User {
	return principalFrom(ctx).user
}

// IDFromContext returns uuid.Nil when the caller has no tenant.
func IDFromContext(ctx context.Context) uuid.UUID {
	if t := FromContext(ctx); t != nil {
		return t.ID
	}
	return uuid.Nil
}

// StatusFromContext returns the caller's tenant status, or "" without a tenant.
func StatusFromContext(ctx context.Context) models.TenantStatus {
	if t := FromContext(ctx); t != nil {
		return t.Status
	}
	return ""
}
