package httpx

import (
	"context"

	domainauth "github.com/gelatohub/painel/internal/domain/auth"
	"github.com/gelatohub/painel/internal/service"
)

type (
	sessionKey struct{}
	profileKey struct{}
)

// SetSessionInContext returns a child context that carries the given session.
// If session is nil, the original ctx is returned unchanged.
func SetSessionInContext(ctx context.Context, session *domainauth.Session) context.Context {
	if session == nil {
		return ctx
	}
	return context.WithValue(ctx, sessionKey{}, session)
}

// GetSessionFromContext returns the stored session, or nil.
func GetSessionFromContext(ctx context.Context) *domainauth.Session {
	s, _ := ctx.Value(sessionKey{}).(*domainauth.Session)
	return s
}

// SetProfileInContext stores the profile admitted by the access gate.
func SetProfileInContext(ctx context.Context, p *domainauth.Profile) context.Context {
	if p == nil {
		return ctx
	}
	return context.WithValue(ctx, profileKey{}, p)
}

// ProfileFromContext returns the profile admitted by ProtectPage.
func ProfileFromContext(ctx context.Context) (*domainauth.Profile, bool) {
	p, ok := ctx.Value(profileKey{}).(*domainauth.Profile)
	return p, ok && p != nil
}

// CallerFromContext derives the record-service caller from the session.
func CallerFromContext(ctx context.Context) service.Caller {
	s := GetSessionFromContext(ctx)
	if s == nil {
		return service.Caller{}
	}
	return service.Caller{AccessToken: s.AccessToken, UserID: s.UserID}
}

// credentials returns the backend credentials of the request's session.
func credentials(ctx context.Context) domainauth.Credentials {
	if s := GetSessionFromContext(ctx); s != nil {
		return domainauth.Credentials{AccessToken: s.AccessToken}
	}
	return domainauth.Credentials{}
}
