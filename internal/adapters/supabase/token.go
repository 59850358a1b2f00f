package supabase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"

	domainauth "github.com/gelatohub/painel/internal/domain/auth"
	"github.com/gelatohub/painel/internal/ports"
)

// ErrTokenExpired is returned by TokenVerifier.Verify for expired tokens.
var ErrTokenExpired = errors.New("access token expired")

// TokenVerifierOptions configures a TokenVerifier. Exactly one of Secret
// (HS256 projects) or JWKSURL (asymmetric signing keys) is used; JWKSURL wins.
type TokenVerifierOptions struct {
	Secret  string
	JWKSURL string
}

// TokenVerifier validates GoTrue access tokens without a network round trip
// (apart from periodic JWKS refreshes).
type TokenVerifier struct {
	secret []byte
	keys   *oidc.RemoteKeySet
}

var _ ports.TokenVerifier = (*TokenVerifier)(nil)

type accessClaims struct {
	jwt.RegisteredClaims
	Email        string         `json:"email"`
	Role         string         `json:"role"`
	UserMetadata map[string]any `json:"user_metadata"`
}

// NewTokenVerifier creates a TokenVerifier.
func NewTokenVerifier(ctx context.Context, opts TokenVerifierOptions) (*TokenVerifier, error) {
	switch {
	case opts.JWKSURL != "":
		return &TokenVerifier{keys: oidc.NewRemoteKeySet(ctx, opts.JWKSURL)}, nil
	case opts.Secret != "":
		return &TokenVerifier{secret: []byte(opts.Secret)}, nil
	default:
		return nil, errors.New("token verifier needs a secret or a JWKS URL")
	}
}

// JWKSURL returns the JWKS endpoint of a project.
func JWKSURL(baseURL string) string {
	return baseURL + "/auth/v1/.well-known/jwks.json"
}

// Verify checks the signature and expiry of token and returns its subject.
func (v *TokenVerifier) Verify(ctx context.Context, token string) (domainauth.Identity, time.Time, error) {
	var claims accessClaims
	if v.keys != nil {
		if _, err := v.keys.VerifySignature(ctx, token); err != nil {
			return domainauth.Identity{}, time.Time{}, fmt.Errorf("verify signature: %w", err)
		}
		if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
			return domainauth.Identity{}, time.Time{}, fmt.Errorf("parse claims: %w", err)
		}
		if err := jwt.NewValidator(jwt.WithExpirationRequired()).Validate(&claims); err != nil {
			return domainauth.Identity{}, time.Time{}, mapJWTError(err)
		}
	} else {
		_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
			return v.secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
		if err != nil {
			return domainauth.Identity{}, time.Time{}, mapJWTError(err)
		}
	}
	if claims.Subject == "" {
		return domainauth.Identity{}, time.Time{}, errors.New("token without subject")
	}
	var exp time.Time
	if claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Time
	}
	return domainauth.Identity{
		UserID:   claims.Subject,
		Email:    claims.Email,
		Metadata: claims.UserMetadata,
	}, exp, nil
}

func mapJWTError(err error) error {
	if errors.Is(err, jwt.ErrTokenExpired) {
		return fmt.Errorf("%w: %v", ErrTokenExpired, err)
	}
	return fmt.Errorf("invalid access token: %w", err)
}
