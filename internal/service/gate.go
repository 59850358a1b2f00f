package service

import (
	"context"
	"fmt"
	"log/slog"

	domainauth "github.com/gelatohub/painel/internal/domain/auth"
	"github.com/gelatohub/painel/internal/observability/metrics"
	"github.com/gelatohub/painel/internal/ports"
)

// DefaultLoginPath is the redirect target when none is configured.
const DefaultLoginPath = "/login.html"

// AccessGateOptions groups dependencies for AccessGate.
type AccessGateOptions struct {
	// Client is the caller-bound backend client. A nil Client means the
	// backend is not configured; the gate then lets nothing through.
	Client    ports.SessionClient
	Navigator ports.Navigator
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
	LoginPath string
}

// AccessGate decides whether the current user may proceed and, when not,
// drives the navigator to the terminal action. One gate serves one caller.
type AccessGate struct {
	client    ports.SessionClient
	nav       ports.Navigator
	onSignOut func(ctx context.Context)
	resolver  *RoleResolver
	logger    *slog.Logger
	metrics   *metrics.Metrics
	loginPath string
}

// NewAccessGate constructs an AccessGate.
func NewAccessGate(opts AccessGateOptions) *AccessGate {
	g := &AccessGate{
		client:    opts.Client,
		nav:       opts.Navigator,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
		loginPath: opts.LoginPath,
	}
	if g.logger == nil {
		g.logger = slog.Default()
	}
	if g.loginPath == "" {
		g.loginPath = DefaultLoginPath
	}
	g.resolver = NewRoleResolver(RoleResolverOptions{
		Client:  opts.Client,
		Logger:  g.logger,
		Metrics: opts.Metrics,
	})
	return g
}

// ProtectInput parameterizes one gate evaluation.
type ProtectInput struct {
	// AllowedRoles restricts access; domainauth.AnyRole (nil) admits any
	// user with a resolvable profile.
	AllowedRoles domainauth.AllowList
	// RedirectTo is where unauthenticated callers are sent. Defaults to the login path.
	RedirectTo string
}

// Decision is the result of a gate evaluation before navigation.
type Decision struct {
	Outcome    domainauth.Outcome
	Profile    *domainauth.Profile
	RedirectTo string
	Denial     *domainauth.DenialView
	// SignedOut is set when the caller's session was revoked because no
	// profile could be resolved for it.
	SignedOut bool
}

// OnSignOut registers fn to run after a forced sign-out and before the
// redirect, so the caller can drop its own copy of the session.
func (g *AccessGate) OnSignOut(fn func(ctx context.Context)) *AccessGate {
	g.onSignOut = fn
	return g
}

// Decide evaluates the gate without navigating. The only side effect is the
// best-effort sign-out of a session whose profile cannot be resolved.
func (g *AccessGate) Decide(ctx context.Context, in ProtectInput) Decision {
	target := in.RedirectTo
	if target == "" {
		target = g.loginPath
	}

	if g.client == nil {
		g.logger.WarnContext(ctx, "backend not configured, auth disabled")
		return Decision{Outcome: domainauth.OutcomeDisabled}
	}

	sess, err := g.session(ctx)
	if err != nil {
		g.logger.WarnContext(ctx, "session check failed", "error", err)
		return Decision{Outcome: domainauth.OutcomeRedirect, RedirectTo: target}
	}
	if sess == nil {
		return Decision{Outcome: domainauth.OutcomeRedirect, RedirectTo: target}
	}

	profile := g.resolver.ResolveProfile(ctx)
	if profile == nil {
		g.logger.WarnContext(ctx, "profile not resolvable, signing out", "user_id", sess.UserID)
		g.signOut(ctx, domainauth.ScopeLocal)
		if g.onSignOut != nil {
			g.onSignOut(ctx)
		}
		return Decision{Outcome: domainauth.OutcomeRedirect, RedirectTo: target, SignedOut: true}
	}

	if !in.AllowedRoles.Permits(profile.Role) {
		view := domainauth.NewDenialView(profile.Role, in.AllowedRoles)
		return Decision{Outcome: domainauth.OutcomeDeny, Denial: &view}
	}

	return Decision{Outcome: domainauth.OutcomeAllow, Profile: profile}
}

// ProtectPage returns the current user's profile when access is allowed.
// Otherwise it returns nil after redirecting (no session or no profile) or
// showing the denial view (role not allowed).
func (g *AccessGate) ProtectPage(ctx context.Context, in ProtectInput) *domainauth.Profile {
	d := g.Decide(ctx, in)
	g.metrics.GateDecision(string(d.Outcome))

	switch d.Outcome {
	case domainauth.OutcomeRedirect:
		g.navigate(func(n ports.Navigator) { n.Redirect(d.RedirectTo) })
	case domainauth.OutcomeDeny:
		g.logger.InfoContext(ctx, "access denied",
			"current_role", d.Denial.CurrentRole, "allowed_roles", d.Denial.AllowedRoles)
		g.navigate(func(n ports.Navigator) { n.Deny(*d.Denial) })
	case domainauth.OutcomeAllow:
		return d.Profile
	}
	return nil
}

// HasRole reports whether the current user has role. The privileged
// function is consulted first; the full profile is the fallback.
func (g *AccessGate) HasRole(ctx context.Context, role domainauth.Role) bool {
	if g.client == nil {
		return false
	}
	if r, ok := g.resolver.RoleViaPrivileged(ctx); ok {
		return r == role
	}
	p := g.resolver.ResolveProfile(ctx)
	return p != nil && p.Role == role
}

// IsAdmin reports whether the current user's resolved role is admin.
func (g *AccessGate) IsAdmin(ctx context.Context) bool {
	p := g.resolver.ResolveProfile(ctx)
	return p != nil && domainauth.IsAdminRole(p.Role)
}

// CurrentProfile resolves the profile without any access decision.
func (g *AccessGate) CurrentProfile(ctx context.Context) *domainauth.Profile {
	return g.resolver.ResolveProfile(ctx)
}

// Logout revokes all of the user's sessions, best-effort, and always
// navigates to the login page with the logout marker.
func (g *AccessGate) Logout(ctx context.Context) {
	if g.client != nil {
		g.signOut(ctx, domainauth.ScopeGlobal)
	}
	g.navigate(func(n ports.Navigator) { n.Redirect(LogoutTarget(g.loginPath)) })
}

// LogoutTarget returns the page shown after logout.
func LogoutTarget(loginPath string) string {
	return loginPath + "?logout=1"
}

func (g *AccessGate) session(ctx context.Context) (sess *domainauth.Session, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			sess, err = nil, fmt.Errorf("get session panicked: %v", rec)
		}
	}()
	return g.client.GetSession(ctx)
}

func (g *AccessGate) signOut(ctx context.Context, scope domainauth.SignOutScope) {
	defer func() {
		if rec := recover(); rec != nil {
			g.logger.WarnContext(ctx, "sign out panicked", "scope", scope, "panic", rec)
		}
	}()
	if err := g.client.SignOut(ctx, scope); err != nil {
		g.logger.WarnContext(ctx, "sign out failed", "scope", scope, "error", err)
	}
}

func (g *AccessGate) navigate(fn func(ports.Navigator)) {
	if g.nav != nil {
		fn(g.nav)
	}
}

// GatekeeperOptions groups dependencies for Gatekeeper.
type GatekeeperOptions struct {
	// Backend is nil when the backend is not configured.
	Backend   ports.Backend
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
	LoginPath string
}

// Gatekeeper builds caller-scoped access gates from process-wide handles.
type Gatekeeper struct {
	backend   ports.Backend
	logger    *slog.Logger
	metrics   *metrics.Metrics
	loginPath string
}

// NewGatekeeper constructs a Gatekeeper.
func NewGatekeeper(opts GatekeeperOptions) *Gatekeeper {
	lp := opts.LoginPath
	if lp == "" {
		lp = DefaultLoginPath
	}
	return &Gatekeeper{
		backend:   opts.Backend,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
		loginPath: lp,
	}
}

// LoginPath returns the configured login page.
func (k *Gatekeeper) LoginPath() string { return k.loginPath }

// Client binds a backend client to creds, or returns nil when the backend is
// not configured or the caller has no token.
func (k *Gatekeeper) Client(creds domainauth.Credentials) ports.SessionClient {
	if k.backend == nil || creds.AccessToken == "" {
		return nil
	}
	return k.backend.Bind(creds)
}

// Gate returns an AccessGate for one caller.
func (k *Gatekeeper) Gate(creds domainauth.Credentials, nav ports.Navigator) *AccessGate {
	var client ports.SessionClient
	if k.backend != nil {
		client = k.backend.Bind(creds)
	}
	return NewAccessGate(AccessGateOptions{
		Client:    client,
		Navigator: nav,
		Logger:    k.logger,
		Metrics:   k.metrics,
		LoginPath: k.loginPath,
	})
}
