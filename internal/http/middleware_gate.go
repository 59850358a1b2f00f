package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	domainauth "github.com/gelatohub/painel/internal/domain/auth"
	"github.com/gelatohub/painel/internal/service"
)

// SessionLookup resolves the server-side session named by the session cookie.
type SessionLookup interface {
	GetSession(ctx context.Context, sessionID string) (*domainauth.Session, error)
}

// GateSessions looks up stored sessions and drops them once the backend
// has revoked them.
type GateSessions interface {
	SessionLookup
	Forget(ctx context.Context, sessionID string) error
}

// GateDeps groups the process-wide handles ProtectPage needs.
type GateDeps struct {
	Sessions     GateSessions
	Gatekeeper   *service.Gatekeeper
	CookieDomain string
	Logger       *slog.Logger
}

// ProtectPage admits the request only when the caller's profile passes
// allowed. On success the session and profile are stored in the request
// context. Otherwise the gate has already answered with a redirect or a
// denial; when the backend is not configured the answer is 503.
func ProtectPage(d GateDeps, allowed domainauth.AllowList) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if d.Gatekeeper == nil {
				WriteError(w, ErrorParams{Code: http.StatusServiceUnavailable, ErrCode: "backend_unavailable", Err: errBackendUnavailable})
				return
			}

			ctx := SetSessionInContext(r.Context(), sessionFromRequest(r, d.Sessions))
			nav := newResponseNavigator(w, r)
			gate := d.Gatekeeper.Gate(credentials(ctx), nav).OnSignOut(func(ctx context.Context) {
				d.dropSession(ctx, w, r)
			})

			profile := gate.ProtectPage(ctx, service.ProtectInput{
				AllowedRoles: allowed,
				RedirectTo:   loginRedirect(d.Gatekeeper.LoginPath(), r),
			})
			if profile == nil {
				if !nav.Written() {
					WriteError(w, ErrorParams{Code: http.StatusServiceUnavailable, ErrCode: "backend_unavailable", Err: errBackendUnavailable})
				}
				return
			}
			next.ServeHTTP(w, r.WithContext(SetProfileInContext(ctx, profile)))
		})
	}
}

// RequireAdmin is ProtectPage restricted to administrators.
func RequireAdmin(d GateDeps) func(http.Handler) http.Handler {
	return ProtectPage(d, domainauth.Roles(domainauth.RoleAdmin))
}

// dropSession removes the stored session behind the cookie and expires the
// cookie, so the login page no longer sees the caller as signed in.
func (d GateDeps) dropSession(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	c, err := r.Cookie(sessionCookieName)
	if err != nil || c.Value == "" {
		return
	}
	if d.Sessions != nil {
		if err := d.Sessions.Forget(ctx, c.Value); err != nil {
			logger := d.Logger
			if logger == nil {
				logger = slog.Default()
			}
			logger.WarnContext(ctx, "forget revoked session failed", "error", err)
		}
	}
	cookieWriter{Domain: d.CookieDomain}.clear(w, r, sessionCookieName)
}

// sessionFromRequest returns the stored session behind the session cookie, or nil.
func sessionFromRequest(r *http.Request, sessions SessionLookup) *domainauth.Session {
	if sessions == nil {
		return nil
	}
	c, err := r.Cookie(sessionCookieName)
	if err != nil || c.Value == "" {
		return nil
	}
	sess, err := sessions.GetSession(r.Context(), c.Value)
	if err != nil {
		return nil
	}
	return sess
}

// loginRedirect sends the caller to the login page, remembering where they were.
func loginRedirect(loginPath string, r *http.Request) string {
	q := url.Values{}
	q.Set("redirect_uri", safeRedirectPath(r.URL.RequestURI()))
	return loginPath + "?" + q.Encode()
}
