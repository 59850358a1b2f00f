package httpx

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	domainauth "github.com/gelatohub/painel/internal/domain/auth"
)

const (
	sessionCookieName  = "session_id"
	verifierCookieName = "oauth_verifier"
	redirectCookieName = "post_login_redirect"
	oauthCookieMaxAge  = 600
)

// cookieWriter sets cookies with attributes shared by every auth cookie.
type cookieWriter struct {
	Domain string
}

func isSecureRequest(r *http.Request) bool {
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

func (c cookieWriter) set(w http.ResponseWriter, r *http.Request, name, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   c.Domain,
		HttpOnly: true,
		Secure:   isSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	})
}

// clear expires a cookie, mirroring the attributes used to set it.
func (c cookieWriter) clear(w http.ResponseWriter, r *http.Request, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Domain:   c.Domain,
		HttpOnly: true,
		Secure:   isSecureRequest(r),
		MaxAge:   -1,
		Expires:  time.Unix(0, 0).UTC(),
		SameSite: http.SameSiteLaxMode,
	})
}

func (c cookieWriter) setSession(w http.ResponseWriter, r *http.Request, s domainauth.Session) {
	c.set(w, r, sessionCookieName, s.ID, int(time.Until(s.ExpiresAt).Seconds()))
}

// safeRedirectPath ensures the provided redirect is a same-origin relative path
// starting with "/" and not an absolute URL. Returns "/" when invalid.
func safeRedirectPath(candidate string) string {
	if candidate == "" {
		return "/"
	}
	u, err := url.Parse(candidate)
	if err != nil || u.IsAbs() || u.Host != "" || !strings.HasPrefix(u.Path, "/") || strings.HasPrefix(u.Path, "//") {
		return "/"
	}
	return candidate
}
