package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/buchungsbutler/voiceagent/internal/models"
	"github.com/buchungsbutler/voiceagent/internal/tenant"
)

// Directory resolves the principal behind a token.
type Directory interface {
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetTenant(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
}

// Revocations tracks logged-out token ids.
type Revocations interface {
	RevokeToken(ctx context.Context, jti string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

type JWTMiddleware struct {
	tokens  *Tokens
	dir     Directory
	revoked Revocations
}

func NewJWTMiddleware(tokens *Tokens, dir Directory, revoked Revocations) *JWTMiddleware {
	return &JWTMiddleware{tokens: tokens, dir: dir, revoked: revoked}
}

func (m *JWTMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenStr := extractBearerToken(r)
		if tokenStr == "" {
			writeError(w, http.StatusUnauthorized, "Not authenticated")
			return
		}

		claims, err := m.tokens.Parse(tokenStr)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		ctx := r.Context()

		if m.revoked != nil {
			revoked, err := m.revoked.IsRevoked(ctx, claims.ID)
			if err != nil {
				slog.Error("check token revocation", "error", err)
				writeError(w, http.StatusInternalServerError, "Internal server error")
				return
			}
			if revoked {
				writeError(w, http.StatusUnauthorized, "Token revoked")
				return
			}
		}

		userID, err := uuid.Parse(claims.Subject)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		user, err := m.dir.GetUser(ctx, userID)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "User not found")
			return
		}
		if !user.IsActive {
			writeError(w, http.StatusUnauthorized, "Account disabled")
			return
		}

		var t *models.Tenant
		if user.TenantID != nil {
			if t, err = m.dir.GetTenant(ctx, *user.TenantID); err != nil {
				writeError(w, http.StatusUnauthorized, "Tenant not found")
				return
			}
		}
		ctx = tenant.WithPrincipal(ctx, user, t)
		ctx = context.WithValue(ctx, claimsKey, claims)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type ctxKey string

const claimsKey ctxKey = "claims"

func ClaimsFromContext(ctx context.Context) *Claims {
	c, _ := ctx.Value(claimsKey).(*Claims)
	return c
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"detail": msg})
}
