package calendar

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/microsoft"

	"github.com/buchungsbutler/voiceagent/internal/config"
	"github.com/buchungsbutler/voiceagent/internal/models"
)

// TokenRefresher exchanges refresh tokens for new access tokens.
type TokenRefresher interface {
	Refresh(ctx context.Context, provider, refreshToken string) (*oauth2.Token, error)
}

type OAuthRefresher struct {
	configs map[string]*oauth2.Config
}

func NewOAuthRefresher(cfg config.OAuthConfig) *OAuthRefresher {
	r := &OAuthRefresher{configs: map[string]*oauth2.Config{}}
	if cfg.GoogleClientID != "" {
		r.configs[models.ProviderGoogle] = &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{"https://www.googleapis.com/auth/calendar"},
		}
	}
	if cfg.MicrosoftClientID != "" {
		r.configs[models.ProviderMicrosoft] = &oauth2.Config{
			ClientID:     cfg.MicrosoftClientID,
			ClientSecret: cfg.MicrosoftClientSecret,
			Endpoint:     microsoft.AzureADEndpoint(cfg.MicrosoftTenant),
			Scopes:       []string{"offline_access", "Calendars.ReadWrite"},
		}
	}
	return r
}

// WithConfig replaces the OAuth2 client configuration for a provider.
func (r *OAuthRefresher) WithConfig(provider string, cfg *oauth2.Config) *OAuthRefresher {
	r.configs[provider] = cfg
	return r
}

func (r *OAuthRefresher) Refresh(ctx context.Context, provider, refreshToken string) (*oauth2.Token, error) {
	cfg, ok := r.configs[provider]
	if !ok {
		return nil, fmt.Errorf("oauth not configured for provider %q", provider)
	}
	// A token without access token is never valid, so the source always refreshes.
	tok, err := cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, fmt.Errorf("refresh %s token: %w", provider, err)
	}
	if tok.RefreshToken == "" {
		tok.RefreshToken = refreshToken
	}
	return tok, nil
}
