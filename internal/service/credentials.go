package service

import (
	"strings"

	"threadpulse/internal/models"
)

// CredentialConfig is the explicit configuration of the credential resolver.
type CredentialConfig struct {
	Env string
	// DevFallbackToken is used for users without a stored token, in
	// development only.
	DevFallbackToken string
}

// CredentialResolver picks the access token used for a user's Threads calls.
type CredentialResolver struct {
	cfg CredentialConfig
}

// NewCredentialResolver returns a resolver for cfg.
func NewCredentialResolver(cfg CredentialConfig) *CredentialResolver {
	return &CredentialResolver{cfg: cfg}
}

// Development reports whether development-only fallbacks apply.
func (r *CredentialResolver) Development() bool {
	return r != nil && strings.EqualFold(strings.TrimSpace(r.cfg.Env), "development")
}

// Resolve returns the user's stored token, or the development fallback.
func (r *CredentialResolver) Resolve(user *models.User) (string, bool) {
	if user.HasThreadsToken() {
		return *user.ThreadsAccessToken, true
	}
	if r.Development() && r.cfg.DevFallbackToken != "" {
		return r.cfg.DevFallbackToken, true
	}
	return "", false
}
