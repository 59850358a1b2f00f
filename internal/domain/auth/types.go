package auth

// Package auth contains domain-level types for authentication, role
// resolution and access decisions. It is pure and free of framework/adapter
// concerns.

import "time"

// Role represents a business role. It is an open string: the backend may
// store values the application does not know about, and those must never be
// widened into a known role.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleDono     Role = "dono"
	RoleAfiliado Role = "afiliado"
)

// IsAdminRole reports whether role is exactly the administrator role.
func IsAdminRole(role Role) bool {
	return role == RoleAdmin
}

// MapRole maps a stored role to the role used for allow-list checks.
// It is the identity today; aliasing must be added here and nowhere else.
func MapRole(role Role) Role {
	return role
}

// Label returns the human-readable label shown on the denial page.
func (r Role) Label() string {
	switch r {
	case RoleAdmin:
		return "Administrador"
	case RoleDono:
		return "Dono do Negócio"
	case RoleAfiliado:
		return "Afiliado"
	default:
		return string(r)
	}
}

// Identity is the authenticated principal as reported by the backend.
// Metadata is self-reported by the user at sign-up and must not be trusted
// on its own for authorization.
type Identity struct {
	UserID   string
	Email    string
	Metadata map[string]any
}

// DisplayName returns metadata "nome", then "full_name", else "".
func (i Identity) DisplayName() string {
	for _, key := range []string{"nome", "full_name"} {
		if v, ok := i.Metadata[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// MetadataRole returns the self-reported role from metadata, if any.
func (i Identity) MetadataRole() Role {
	if v, ok := i.Metadata["role"].(string); ok {
		return Role(v)
	}
	return ""
}

// Session is the server-side record we persist for an authenticated user.
// ID is an opaque session identifier handed to the browser as a cookie.
type Session struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Email        string    `json:"email"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Expired reports whether the session is no longer usable at now.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Credentials bind a backend client to one caller.
type Credentials struct {
	AccessToken string
}

// SignOutScope selects which sessions a sign-out revokes.
type SignOutScope string

const (
	// ScopeLocal revokes only the current session.
	ScopeLocal SignOutScope = "local"
	// ScopeGlobal revokes every session of the user.
	ScopeGlobal SignOutScope = "global"
)
