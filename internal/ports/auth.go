package ports

// Package ports defines interfaces (hexagonal ports) for auth-related behavior.
// Implementations live in internal/adapters; orchestration in internal/service.

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	domainauth "github.com/gelatohub/painel/internal/domain/auth"
)

// ErrNoRows is returned by SessionClient.QueryRow when no row matched the key
// or row-level security hid it.
var ErrNoRows = errors.New("no rows")

// SessionClient is a backend client bound to one caller's credentials.
// It is the only collaborator the role resolver and the access gate use.
type SessionClient interface {
	// GetSession returns the caller's active session, or nil when there is none.
	GetSession(ctx context.Context) (*domainauth.Session, error)

	// GetCurrentUser returns the caller's identity, or nil when there is none.
	GetCurrentUser(ctx context.Context) (*domainauth.Identity, error)

	// QueryRow returns the single row of table whose keyColumn equals keyValue.
	QueryRow(ctx context.Context, table, keyColumn string, keyValue any) (json.RawMessage, error)

	// InvokePrivileged calls a server-side function that runs with elevated
	// rights and bypasses row-level security.
	InvokePrivileged(ctx context.Context, name string) (json.RawMessage, error)

	// SignOut revokes the caller's session(s).
	SignOut(ctx context.Context, scope domainauth.SignOutScope) error
}

// Backend produces session clients bound to a caller.
type Backend interface {
	Bind(creds domainauth.Credentials) SessionClient
}

// Navigator performs the terminal action of a gate decision. Exactly one
// of its methods is called per denied or redirected evaluation.
type Navigator interface {
	Redirect(target string)
	Deny(view domainauth.DenialView)
}

// TokenGrant is the result of a successful sign-in.
type TokenGrant struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	Identity     domainauth.Identity
}

// SignUpInput carries the fields of a new account.
type SignUpInput struct {
	Email    string
	Password string
	Metadata map[string]any
}

// PasswordAuthenticator signs users in with e-mail and password.
type PasswordAuthenticator interface {
	SignInWithPassword(ctx context.Context, email, password string) (TokenGrant, error)

	// SignUp creates an account. The grant is nil when the backend requires
	// e-mail confirmation before issuing tokens.
	SignUp(ctx context.Context, in SignUpInput) (*TokenGrant, error)
}

// BeginInput carries inputs for initiating an OAuth flow.
type BeginInput struct {
	Provider    string
	RedirectURL string
}

// ExchangeInput groups parameters for the code exchange.
type ExchangeInput struct {
	Code         string
	CodeVerifier string
}

// AuthProvider initiates and completes a social sign-in brokered by the backend.
type AuthProvider interface {
	// Begin returns the provider authorization URL and the PKCE verifier to keep.
	Begin(ctx context.Context, in BeginInput) (authURL, verifier string, err error)

	// Exchange completes the flow and returns the issued tokens.
	Exchange(ctx context.Context, in ExchangeInput) (TokenGrant, error)
}

// TokenVerifier validates an access token locally and returns its identity.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (domainauth.Identity, time.Time, error)
}

// SessionStore persists and retrieves server-side sessions.
type SessionStore interface {
	Save(ctx context.Context, sess domainauth.Session) error
	Get(ctx context.Context, id string) (domainauth.Session, error)
	Delete(ctx context.Context, id string) error
}
