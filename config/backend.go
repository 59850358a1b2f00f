package config

import (
	"strings"
	"time"
)

// Placeholder values shipped in the sample configuration. They are treated
// as "not configured" so a fresh checkout degrades instead of calling a
// bogus host.
const (
	placeholderBackendURL = "SUA_URL_AQUI"
	placeholderAnonKey    = "SUA_CHAVE_ANON_AQUI"
)

// BackendConfig contains the hosted backend (Supabase) configuration.
type BackendConfig struct {
	// URL is the project base URL (e.g. https://xyz.supabase.co).
	URL string `env:"SUPABASE_URL"`

	// AnonKey is the public anon key sent as the apikey header.
	AnonKey string `env:"SUPABASE_ANON_KEY"`

	// JWTSecret verifies HS256 access tokens locally. Optional.
	JWTSecret string `env:"SUPABASE_JWT_SECRET"`

	// JWKSEnabled verifies asymmetric access tokens against the project JWKS.
	JWKSEnabled bool `env:"SUPABASE_JWKS_ENABLED" envDefault:"false"`

	// Timeout bounds every backend round trip.
	Timeout time.Duration `env:"BACKEND_TIMEOUT" envDefault:"10s"`

	// LoginPath is the default redirect target for unauthenticated requests.
	LoginPath string `env:"AUTH_LOGIN_PATH" envDefault:"/login.html"`

	// SessionTTL caps how long a server-side session lives when the backend
	// does not report an expiry.
	SessionTTL time.Duration `env:"AUTH_SESSION_TTL" envDefault:"8h"`

	// SessionEncryptionKey seals stored sessions in Redis. A 64-char hex
	// string is used as the AES-256 key; other values are hashed. Empty
	// stores sessions as plain JSON.
	SessionEncryptionKey string `env:"SESSION_ENCRYPTION_KEY"`

	// OAuthRedirectURL is the callback used for social sign-in through the backend.
	OAuthRedirectURL string `env:"AUTH_OAUTH_REDIRECT_URL" envDefault:"http://localhost:8080/auth/oauth/callback"`
}

// Sanitize applies guardrails to backend configuration values.
func (b *BackendConfig) Sanitize() {
	b.URL = strings.TrimRight(strings.TrimSpace(b.URL), "/")
	b.AnonKey = strings.TrimSpace(b.AnonKey)
	if b.URL == placeholderBackendURL {
		b.URL = ""
	}
	if b.AnonKey == placeholderAnonKey {
		b.AnonKey = ""
	}
	if b.Timeout <= 0 {
		b.Timeout = 10 * time.Second
	}
	if b.SessionTTL <= 0 {
		b.SessionTTL = 8 * time.Hour
	}
	if b.LoginPath == "" || !strings.HasPrefix(b.LoginPath, "/") {
		b.LoginPath = "/login.html"
	}
}

// IsConfigured reports whether both the URL and the anon key are present.
func (b *BackendConfig) IsConfigured() bool {
	return b.URL != "" && b.AnonKey != ""
}
