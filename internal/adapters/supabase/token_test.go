package supabase

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTokenVerifier_RequiresKeyMaterial(t *testing.T) {
	_, err := NewTokenVerifier(context.Background(), TokenVerifierOptions{})
	assert.Error(t, err)
}

func TestTokenVerifier_HS256(t *testing.T) {
	v, err := NewTokenVerifier(context.Background(), TokenVerifierOptions{Secret: "s3cret"})
	require.NoError(t, err)

	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	id, gotExp, err := v.Verify(context.Background(), signHS256(t, "s3cret", exp))
	require.NoError(t, err)
	assert.Equal(t, "u-1", id.UserID)
	assert.Equal(t, "dono", string(id.MetadataRole()))
	assert.True(t, exp.Equal(gotExp))
}

func TestTokenVerifier_Rejects(t *testing.T) {
	v, err := NewTokenVerifier(context.Background(), TokenVerifierOptions{Secret: "s3cret"})
	require.NoError(t, err)

	_, _, err = v.Verify(context.Background(), signHS256(t, "other", time.Now().Add(time.Hour)))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrTokenExpired)

	_, _, err = v.Verify(context.Background(), signHS256(t, "s3cret", time.Now().Add(-time.Hour)))
	assert.ErrorIs(t, err, ErrTokenExpired)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "u-1"}).SignedString([]byte("s3cret"))
	require.NoError(t, err)
	_, _, err = v.Verify(context.Background(), noExp)
	assert.Error(t, err)

	noSub := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))})
	s, err := noSub.SignedString([]byte("s3cret"))
	require.NoError(t, err)
	_, _, err = v.Verify(context.Background(), s)
	assert.Error(t, err)
}

func TestJWKSURL(t *testing.T) {
	assert.Equal(t, "https://x.supabase.co/auth/v1/.well-known/jwks.json", JWKSURL("https://x.supabase.co"))
}
