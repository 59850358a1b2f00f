package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	domainauth "github.com/gelatohub/painel/internal/domain/auth"
	"github.com/gelatohub/painel/internal/ports"
	"github.com/gelatohub/painel/internal/service"
)

// AuthServiceInterface defines the auth operations the handlers need.
type AuthServiceInterface interface {
	GateSessions
	SignIn(ctx context.Context, email, password string) (*domainauth.Session, error)
	SignUp(ctx context.Context, in ports.SignUpInput) (*service.SignUpResult, error)
	BeginOAuth(ctx context.Context, provider, redirectURL string) (*service.BeginLoginResult, error)
	CompleteOAuth(ctx context.Context, code, verifier string) (*domainauth.Session, error)
	OAuthEnabled() bool
}

// AuthHandlers provides HTTP handlers for authentication and role queries.
type AuthHandlers struct {
	Svc              AuthServiceInterface
	Gatekeeper       *service.Gatekeeper
	CookieDomain     string
	OAuthRedirectURL string
	Logger           *slog.Logger
}

func (h *AuthHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

func (h *AuthHandlers) cookies() cookieWriter { return cookieWriter{Domain: h.CookieDomain} }

func (h *AuthHandlers) loginPath() string {
	if h.Gatekeeper == nil {
		return service.DefaultLoginPath
	}
	return h.Gatekeeper.LoginPath()
}

type loginRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required"`
	RedirectURI string `json:"redirect_uri,omitempty"`
}

type signUpRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Nome     string `json:"nome,omitempty" validate:"omitempty,max=120"`
}

// Login signs in with e-mail and password.
// POST /auth/login.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !DecodeAndValidate(w, r, &req) {
		return
	}

	sess, err := h.Svc.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		h.logger().WarnContext(r.Context(), "sign in failed", "error", err)
		WriteError(w, ErrorParams{
			Code:    http.StatusUnauthorized,
			ErrCode: "invalid_credentials",
			Err:     errors.New("e-mail ou senha inválidos"),
		})
		return
	}

	h.cookies().setSession(w, r, *sess)
	WriteJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"user":          map[string]string{"id": sess.UserID, "email": sess.Email},
		"redirect_to":   safeRedirectPath(req.RedirectURI),
	})
}

// SignUp creates an account.
// POST /auth/signup.
func (h *AuthHandlers) SignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if !DecodeAndValidate(w, r, &req) {
		return
	}

	in := ports.SignUpInput{Email: req.Email, Password: req.Password}
	if req.Nome != "" {
		in.Metadata = map[string]any{"nome": req.Nome}
	}
	res, err := h.Svc.SignUp(r.Context(), in)
	if err != nil {
		WriteAppError(w, err, "signup_failed")
		return
	}
	if res.ConfirmationRequired {
		WriteJSON(w, http.StatusAccepted, map[string]any{"confirmation_required": true})
		return
	}

	h.cookies().setSession(w, r, *res.Session)
	WriteJSON(w, http.StatusCreated, map[string]any{
		"authenticated": true,
		"user":          map[string]string{"id": res.Session.UserID, "email": res.Session.Email},
	})
}

// Logout revokes every session of the user and sends them to the login page.
// POST /auth/logout.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var sess *domainauth.Session
	if c, err := r.Cookie(sessionCookieName); err == nil {
		sess = sessionFromRequest(r, h.Svc)
		if err := h.Svc.Forget(ctx, c.Value); err != nil {
			h.logger().WarnContext(ctx, "forget session failed", "error", err)
		}
	}
	h.cookies().clear(w, r, sessionCookieName)

	nav := &logoutNavigator{w: w, r: r}
	if h.Gatekeeper == nil || sess == nil {
		nav.Redirect(service.LogoutTarget(h.loginPath()))
		return
	}
	h.Gatekeeper.Gate(domainauth.Credentials{AccessToken: sess.AccessToken}, nav).Logout(SetSessionInContext(ctx, sess))
}

// logoutNavigator answers the post-logout redirect: browsers follow it,
// API clients receive it in JSON.
type logoutNavigator struct {
	w http.ResponseWriter
	r *http.Request
}

func (n *logoutNavigator) Redirect(target string) {
	if IsHTMX(n.r) {
		hxRedirect(n.w, target)
		return
	}
	if IsBrowserRequest(n.r) {
		http.Redirect(n.w, n.r, target, http.StatusSeeOther)
		return
	}
	WriteJSON(n.w, http.StatusOK, map[string]string{"status": "success", "redirect_to": target})
}

func (n *logoutNavigator) Deny(domainauth.DenialView) {}

// Status returns the current authentication status.
// GET /auth/status.
func (h *AuthHandlers) Status(w http.ResponseWriter, r *http.Request) {
	c, err := r.Cookie(sessionCookieName)
	if err != nil {
		WriteJSON(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}

	sess, err := h.Svc.GetSession(r.Context(), c.Value)
	if err != nil {
		h.cookies().clear(w, r, sessionCookieName)
		WriteJSON(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"user":          map[string]string{"id": sess.UserID, "email": sess.Email},
		"expires_at":    sess.ExpiresAt,
	})
}

// Me returns the profile admitted by ProtectPage.
// GET /auth/me.
func (h *AuthHandlers) Me(w http.ResponseWriter, r *http.Request) {
	p, ok := ProfileFromContext(r.Context())
	if !ok {
		WriteError(w, ErrorParams{Code: http.StatusUnauthorized, ErrCode: "authentication_required", Err: errors.New("authentication required")})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"profile":  p,
		"is_admin": domainauth.IsAdminRole(p.Role),
	})
}

// IsAdmin reports whether the caller is an administrator. Anonymous callers
// and an unconfigured backend yield false.
// GET /auth/is-admin.
func (h *AuthHandlers) IsAdmin(w http.ResponseWriter, r *http.Request) {
	ctx := SetSessionInContext(r.Context(), sessionFromRequest(r, h.Svc))
	ok := false
	if h.Gatekeeper != nil && GetSessionFromContext(ctx) != nil {
		ok = h.Gatekeeper.Gate(credentials(ctx), nil).IsAdmin(ctx)
	}
	WriteJSON(w, http.StatusOK, map[string]bool{"is_admin": ok})
}

// HasRole reports whether the caller has the role named by ?role=.
// GET /auth/has-role.
func (h *AuthHandlers) HasRole(w http.ResponseWriter, r *http.Request) {
	role := r.URL.Query().Get("role")
	if role == "" {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "missing_role", Err: errors.New("role parameter is required")})
		return
	}
	ctx := SetSessionInContext(r.Context(), sessionFromRequest(r, h.Svc))
	ok := false
	if h.Gatekeeper != nil && GetSessionFromContext(ctx) != nil {
		ok = h.Gatekeeper.Gate(credentials(ctx), nil).HasRole(ctx, domainauth.Role(role))
	}
	WriteJSON(w, http.StatusOK, map[string]any{"role": role, "has_role": ok})
}

// OAuthBegin redirects to the social provider through the backend.
// GET /auth/oauth/{provider}?redirect_uri=<optional_redirect>.
func (h *AuthHandlers) OAuthBegin(w http.ResponseWriter, r *http.Request) {
	if !h.Svc.OAuthEnabled() {
		WriteError(w, ErrorParams{Code: http.StatusServiceUnavailable, ErrCode: "oauth_unavailable", Err: errors.New("social sign-in is not configured")})
		return
	}
	res, err := h.Svc.BeginOAuth(r.Context(), r.PathValue("provider"), h.OAuthRedirectURL)
	if err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "login_failed", Err: err})
		return
	}

	cw := h.cookies()
	cw.set(w, r, verifierCookieName, res.Verifier, oauthCookieMaxAge)
	cw.set(w, r, redirectCookieName, safeRedirectPath(r.URL.Query().Get("redirect_uri")), oauthCookieMaxAge)
	http.Redirect(w, r, res.AuthURL, http.StatusFound)
}

// OAuthCallback completes the social sign-in.
// GET /auth/oauth/callback?code=<code>.
func (h *AuthHandlers) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "missing_code", Err: errors.New("authorization code is required")})
		return
	}
	vc, err := r.Cookie(verifierCookieName)
	if err != nil || vc.Value == "" {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "missing_verifier", Err: errors.New("sign-in flow expired, start again")})
		return
	}

	sess, err := h.Svc.CompleteOAuth(r.Context(), code, vc.Value)
	if err != nil {
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "login_completion_failed", Err: err})
		return
	}

	cw := h.cookies()
	cw.setSession(w, r, *sess)
	cw.clear(w, r, verifierCookieName)

	target := "/"
	if rc, err := r.Cookie(redirectCookieName); err == nil {
		target = safeRedirectPath(rc.Value)
		cw.clear(w, r, redirectCookieName)
	}
	http.Redirect(w, r, target, http.StatusFound)
}
