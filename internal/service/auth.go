package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	domainauth "github.com/gelatohub/painel/internal/domain/auth"
	"github.com/gelatohub/painel/internal/ports"
)

// AuthServiceOptions groups dependencies for AuthService.
type AuthServiceOptions struct {
	Authenticator ports.PasswordAuthenticator
	// Provider is optional; without it social sign-in is unavailable.
	Provider   ports.AuthProvider
	Sessions   ports.SessionStore
	SessionTTL time.Duration
	Logger     *slog.Logger
}

// AuthService orchestrates sign-in flows against the backend and persists
// server-side sessions that carry the backend access token.
type AuthService struct {
	authenticator ports.PasswordAuthenticator
	provider      ports.AuthProvider
	sessions      ports.SessionStore
	ttl           time.Duration
	logger        *slog.Logger
	now           func() time.Time
}

var (
	errSessionExpired      = errors.New("session expired")
	errOAuthUnavailable    = errors.New("social sign-in is not configured")
	errCredentialsRequired = errors.New("email and password are required")
)

// NewAuthService constructs a new AuthService.
func NewAuthService(opts AuthServiceOptions) *AuthService {
	s := &AuthService{
		authenticator: opts.Authenticator,
		provider:      opts.Provider,
		sessions:      opts.Sessions,
		ttl:           opts.SessionTTL,
		logger:        opts.Logger,
		now:           time.Now,
	}
	if s.ttl <= 0 {
		s.ttl = 8 * time.Hour
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// SignIn authenticates with e-mail and password and persists a session.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (*domainauth.Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, errCredentialsRequired
	}

	grant, err := s.authenticator.SignInWithPassword(ctx, email, password)
	if err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}
	return s.persist(ctx, grant)
}

// SignUpResult contains the result of a sign-up.
type SignUpResult struct {
	// Session is nil when the account awaits e-mail confirmation.
	Session              *domainauth.Session
	ConfirmationRequired bool
}

// SignUp creates an account and, when the backend issues tokens right away,
// a session.
func (s *AuthService) SignUp(ctx context.Context, in ports.SignUpInput) (*SignUpResult, error) {
	in.Email = strings.TrimSpace(in.Email)
	if in.Email == "" || in.Password == "" {
		return nil, errCredentialsRequired
	}

	grant, err := s.authenticator.SignUp(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("sign up: %w", err)
	}
	if grant == nil || grant.AccessToken == "" {
		return &SignUpResult{ConfirmationRequired: true}, nil
	}

	sess, err := s.persist(ctx, *grant)
	if err != nil {
		return nil, err
	}
	return &SignUpResult{Session: sess}, nil
}

// BeginLoginResult contains the result of beginning a social sign-in.
type BeginLoginResult struct {
	AuthURL  string
	Verifier string
}

// BeginOAuth initiates a social sign-in and returns the provider URL and the
// PKCE verifier the caller must keep until the callback.
func (s *AuthService) BeginOAuth(ctx context.Context, provider, redirectURL string) (*BeginLoginResult, error) {
	if s.provider == nil {
		return nil, errOAuthUnavailable
	}
	if provider == "" {
		return nil, errors.New("provider is required")
	}
	if redirectURL == "" {
		return nil, errors.New("redirect URL is required")
	}

	authURL, verifier, err := s.provider.Begin(ctx, ports.BeginInput{Provider: provider, RedirectURL: redirectURL})
	if err != nil {
		return nil, fmt.Errorf("begin auth flow: %w", err)
	}
	return &BeginLoginResult{AuthURL: authURL, Verifier: verifier}, nil
}

// CompleteOAuth exchanges the authorization code and persists a session.
func (s *AuthService) CompleteOAuth(ctx context.Context, code, verifier string) (*domainauth.Session, error) {
	if s.provider == nil {
		return nil, errOAuthUnavailable
	}
	if code == "" {
		return nil, errors.New("authorization code is required")
	}
	if verifier == "" {
		return nil, errors.New("code verifier is required")
	}

	grant, err := s.provider.Exchange(ctx, ports.ExchangeInput{Code: code, CodeVerifier: verifier})
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}
	return s.persist(ctx, grant)
}

// GetSession retrieves a session by ID.
func (s *AuthService) GetSession(ctx context.Context, sessionID string) (*domainauth.Session, error) {
	if sessionID == "" {
		return nil, errors.New("session ID is required")
	}

	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	if session.Expired(s.now()) {
		if deleteErr := s.sessions.Delete(ctx, sessionID); deleteErr != nil {
			return nil, errors.Join(errSessionExpired, fmt.Errorf("delete session: %w", deleteErr))
		}
		return nil, errSessionExpired
	}

	return &session, nil
}

// Forget deletes a stored session without contacting the backend. Token
// revocation is the access gate's job; callers forget the session after it.
func (s *AuthService) Forget(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// OAuthEnabled reports whether social sign-in is available.
func (s *AuthService) OAuthEnabled() bool { return s.provider != nil }

func (s *AuthService) persist(ctx context.Context, grant ports.TokenGrant) (*domainauth.Session, error) {
	if grant.AccessToken == "" {
		return nil, errors.New("backend returned no access token")
	}

	now := s.now()
	expires := grant.ExpiresAt
	if maxExpiry := now.Add(s.ttl); expires.IsZero() || expires.After(maxExpiry) {
		expires = maxExpiry
	}

	session := domainauth.Session{
		ID:           generateSessionID(),
		UserID:       grant.Identity.UserID,
		Email:        grant.Identity.Email,
		AccessToken:  grant.AccessToken,
		RefreshToken: grant.RefreshToken,
		ExpiresAt:    expires,
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return &session, nil
}

// generateSessionID creates a random, URL-safe session ID.
func generateSessionID() string {
	return uuid.New().String()
}
