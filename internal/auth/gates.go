package auth

import (
	"net/http"

	"github.com/buchungsbutler/voiceagent/internal/models"
	"github.com/buchungsbutler/voiceagent/internal/tenant"
)

// RequireSuperAdmin lets only platform operators through.
func RequireSuperAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := tenant.UserFromContext(r.Context())
		if user == nil {
			writeError(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		if !user.IsSuperAdmin {
			writeError(w, http.StatusForbidden, "Super admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireTenant rejects principals that do not belong to a tenant.
func RequireTenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if tenant.UserFromContext(r.Context()) == nil {
			writeError(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		if tenant.FromContext(r.Context()) == nil {
			writeError(w, http.StatusForbidden, "Tenant account required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireApproved admits only members of approved tenants. It implies RequireTenant.
func RequireApproved(next http.Handler) http.Handler {
	return RequireTenant(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if tenant.StatusFromContext(r.Context()) != models.TenantApproved {
			writeError(w, http.StatusForbidden, "Tenant not approved")
			return
		}
		next.ServeHTTP(w, r)
	}))
}
