package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	domainauth "github.com/gelatohub/painel/internal/domain/auth"
	"github.com/gelatohub/painel/internal/observability/metrics"
	"github.com/gelatohub/painel/internal/ports"
)

const (
	// ProfileTable holds one authorization row per user, keyed by id.
	ProfileTable = "perfis_usuarios"
	// RoleFunction is the privileged function returning the caller's role.
	RoleFunction = "get_user_role"
)

// Strategy names, used in logs and metrics.
const (
	StrategyDirect     = "direct"
	StrategyPrivileged = "privileged"
	StrategyMetadata   = "metadata"
)

// RoleResolverOptions groups dependencies for RoleResolver.
type RoleResolverOptions struct {
	Client  ports.SessionClient
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// roleStrategy is one step of the resolution chain. A nil profile with a nil
// error means "this step had nothing to say".
type roleStrategy struct {
	name    string
	resolve func(ctx context.Context, id domainauth.Identity) (*domainauth.Profile, error)
}

// RoleResolver determines the profile (and thus the role) of the current
// user by trying an ordered list of strategies. The first strategy that
// yields a profile wins; failures of one step never abort the chain.
type RoleResolver struct {
	client     ports.SessionClient
	logger     *slog.Logger
	metrics    *metrics.Metrics
	strategies []roleStrategy
}

// NewRoleResolver constructs a RoleResolver with the default chain:
// direct profile lookup, privileged function, then session metadata.
func NewRoleResolver(opts RoleResolverOptions) *RoleResolver {
	r := &RoleResolver{
		client:  opts.Client,
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	r.strategies = []roleStrategy{
		{name: StrategyDirect, resolve: r.fromProfileRow},
		{name: StrategyPrivileged, resolve: r.fromPrivilegedFunction},
		{name: StrategyMetadata, resolve: r.fromMetadata},
	}
	return r
}

// ResolveProfile returns the current user's profile, or nil when no
// strategy can produce one. It never returns an error.
func (r *RoleResolver) ResolveProfile(ctx context.Context) *domainauth.Profile {
	if r.client == nil {
		return nil
	}

	identity, err := r.currentUser(ctx)
	if err != nil {
		r.logger.WarnContext(ctx, "fetch current user failed", "error", err)
		return nil
	}
	if identity == nil {
		return nil
	}

	for _, st := range r.strategies {
		profile, stepErr := r.run(ctx, st, *identity)
		switch {
		case stepErr != nil:
			r.logger.WarnContext(ctx, "role strategy failed",
				"strategy", st.name, "user_id", identity.UserID, "error", stepErr)
			r.metrics.RoleStrategy(st.name, metrics.ResultError, stepErr)
		case profile == nil:
			r.metrics.RoleStrategy(st.name, metrics.ResultMiss, nil)
		default:
			r.metrics.RoleStrategy(st.name, metrics.ResultSuccess, nil)
			return profile
		}
	}
	return nil
}

// RoleViaPrivileged returns the role reported by the privileged function.
// ok is false when the call fails or yields no role.
func (r *RoleResolver) RoleViaPrivileged(ctx context.Context) (role domainauth.Role, ok bool) {
	if r.client == nil {
		return "", false
	}
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.WarnContext(ctx, "privileged role lookup panicked", "panic", rec)
			role, ok = "", false
		}
	}()

	role, err := r.privilegedRole(ctx)
	if err != nil {
		r.logger.WarnContext(ctx, "privileged role lookup failed", "error", err)
		return "", false
	}
	return role, role != ""
}

// run evaluates one strategy inside its own failure boundary.
func (r *RoleResolver) run(
	ctx context.Context,
	st roleStrategy,
	id domainauth.Identity,
) (profile *domainauth.Profile, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			profile, err = nil, fmt.Errorf("strategy %s panicked: %v", st.name, rec)
		}
	}()
	return st.resolve(ctx, id)
}

func (r *RoleResolver) currentUser(ctx context.Context) (id *domainauth.Identity, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			id, err = nil, fmt.Errorf("get current user panicked: %v", rec)
		}
	}()
	return r.client.GetCurrentUser(ctx)
}

func (r *RoleResolver) fromProfileRow(ctx context.Context, id domainauth.Identity) (*domainauth.Profile, error) {
	row, err := r.client.QueryRow(ctx, ProfileTable, "id", id.UserID)
	if err != nil {
		if errors.Is(err, ports.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query profile row: %w", err)
	}
	if len(row) == 0 || string(row) == "null" {
		return nil, nil
	}

	var p domainauth.Profile
	if err := json.Unmarshal(row, &p); err != nil {
		return nil, fmt.Errorf("decode profile row: %w", err)
	}
	p.AuthEmail = id.Email
	p.AuthID = id.UserID
	return &p, nil
}

func (r *RoleResolver) fromPrivilegedFunction(ctx context.Context, id domainauth.Identity) (*domainauth.Profile, error) {
	role, err := r.privilegedRole(ctx)
	if err != nil {
		return nil, err
	}
	if role == "" {
		return nil, nil
	}
	return synthesizeProfile(id, role), nil
}

func (r *RoleResolver) fromMetadata(ctx context.Context, id domainauth.Identity) (*domainauth.Profile, error) {
	role := id.MetadataRole()
	if role == "" {
		return nil, nil
	}
	r.logger.WarnContext(ctx, "using role from user metadata as fallback",
		"user_id", id.UserID, "role", role)
	return synthesizeProfile(id, role), nil
}

func (r *RoleResolver) privilegedRole(ctx context.Context) (domainauth.Role, error) {
	raw, err := r.client.InvokePrivileged(ctx, RoleFunction)
	if err != nil {
		return "", fmt.Errorf("invoke %s: %w", RoleFunction, err)
	}
	return decodeRole(raw)
}

// decodeRole accepts the shapes a role function may return: a bare string,
// null, or an object with a role field.
func decodeRole(raw json.RawMessage) (domainauth.Role, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return "", nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return domainauth.Role(s), nil
	}

	var obj struct {
		Role *string `json:"role"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return "", fmt.Errorf("decode role: %w", err)
	}
	if obj.Role == nil {
		return "", nil
	}
	return domainauth.Role(*obj.Role), nil
}

// synthesizeProfile builds a minimal profile when the row itself is not
// readable. Synthesized profiles are always active.
func synthesizeProfile(id domainauth.Identity, role domainauth.Role) *domainauth.Profile {
	return &domainauth.Profile{
		ID:        id.UserID,
		Nome:      id.DisplayName(),
		Email:     id.Email,
		Role:      role,
		Ativo:     true,
		AuthEmail: id.Email,
		AuthID:    id.UserID,
	}
}
