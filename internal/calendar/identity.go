package calendar

import (
	"context"
	"fmt"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"

	"github.com/buchungsbutler/voiceagent/internal/models"
)

// IdentityVerifier checks an OpenID Connect id_token and returns the account email.
type IdentityVerifier interface {
	VerifyEmail(ctx context.Context, provider, rawIDToken string) (string, error)
}

const (
	googleIssuer  = "https://accounts.google.com"
	googleJWKSURL = "https://www.googleapis.com/oauth2/v3/certs"
)

type OIDCVerifier struct {
	verifiers map[string]*oidc.IDTokenVerifier
}

// NewOIDCVerifier builds verifiers for the providers that have a client id.
func NewOIDCVerifier(ctx context.Context, googleClientID, microsoftClientID, microsoftTenant string) *OIDCVerifier {
	v := &OIDCVerifier{verifiers: map[string]*oidc.IDTokenVerifier{}}
	if googleClientID != "" {
		keys := oidc.NewRemoteKeySet(ctx, googleJWKSURL)
		v.verifiers[models.ProviderGoogle] = oidc.NewVerifier(googleIssuer, keys, &oidc.Config{ClientID: googleClientID})
	}
	if microsoftClientID != "" {
		if microsoftTenant == "" {
			microsoftTenant = "common"
		}
		base := "https://login.microsoftonline.com/" + microsoftTenant
		keys := oidc.NewRemoteKeySet(ctx, base+"/discovery/v2.0/keys")
		// Multi-tenant apps receive tokens whose issuer names the user's own directory.
		v.verifiers[models.ProviderMicrosoft] = oidc.NewVerifier(base+"/v2.0", keys, &oidc.Config{
			ClientID:        microsoftClientID,
			SkipIssuerCheck: microsoftTenant == "common" || microsoftTenant == "organizations",
		})
	}
	return v
}

// WithVerifier registers a verifier for a provider.
func (v *OIDCVerifier) WithVerifier(provider string, verifier *oidc.IDTokenVerifier) *OIDCVerifier {
	v.verifiers[provider] = verifier
	return v
}

func (v *OIDCVerifier) VerifyEmail(ctx context.Context, provider, rawIDToken string) (string, error) {
	verifier, ok := v.verifiers[provider]
	if !ok {
		return "", fmt.Errorf("no id_token verifier for provider %q", provider)
	}

	token, err := verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return "", fmt.Errorf("verify id_token: %w", err)
	}

	var claims struct {
		Email             string `json:"email"`
		EmailVerified     *bool  `json:"email_verified"`
		PreferredUsername string `json:"preferred_username"`
	}
	if err := token.Claims(&claims); err != nil {
		return "", fmt.Errorf("decode id_token claims: %w", err)
	}
	if claims.EmailVerified != nil && !*claims.EmailVerified {
		return "", fmt.Errorf("email not verified")
	}

	email := claims.Email
	if email == "" {
		email = claims.PreferredUsername
	}
	if email == "" {
		return "", fmt.Errorf("id_token carries no email")
	}
	return strings.ToLower(email), nil
}
