package auth

import (
	"context"
	"log/slog"
	"strings"

	"github.com/buchungsbutler/voiceagent/internal/models"
)

// SeedSuperAdmin creates the first platform operator from configuration when
// no super-admin exists yet. Missing credentials skip seeding.
func SeedSuperAdmin(ctx context.Context, store Store, email, password string) {
	if email == "" || password == "" {
		return
	}

	count, err := store.CountSuperAdmins(ctx)
	if err != nil {
		slog.Error("seed: failed to count super admins", "error", err)
		return
	}
	if count > 0 {
		return
	}

	hash, err := HashPassword(password)
	if err != nil {
		slog.Error("seed: failed to hash password", "error", err)
		return
	}

	u := &models.User{
		Email:        strings.ToLower(strings.TrimSpace(email)),
		Username:     "Super Admin",
		PasswordHash: hash,
	}
	if err := store.CreateSuperAdmin(ctx, u); err != nil {
		slog.Error("seed: failed to create super admin", "error", err)
		return
	}
	slog.Info("seed: created first super admin", "email", u.Email)
}
