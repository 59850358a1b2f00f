package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/gelatohub/painel/internal/domain/auth"
	mocks "github.com/gelatohub/painel/internal/mocks/auth"
	"github.com/gelatohub/painel/internal/ports"
)

// mockSessionStore is a test helper for testing session store errors.
type mockSessionStore struct {
	saveFunc   func(context.Context, domainauth.Session) error
	getFunc    func(context.Context, string) (domainauth.Session, error)
	deleteFunc func(context.Context, string) error
}

func (m *mockSessionStore) Save(ctx context.Context, sess domainauth.Session) error {
	if m.saveFunc != nil {
		return m.saveFunc(ctx, sess)
	}
	return nil
}

func (m *mockSessionStore) Get(ctx context.Context, id string) (domainauth.Session, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, id)
	}
	return domainauth.Session{}, nil
}

func (m *mockSessionStore) Delete(ctx context.Context, id string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return nil
}

// mockAuthProvider is a func-field AuthProvider.
type mockAuthProvider struct {
	beginFunc    func(context.Context, ports.BeginInput) (string, string, error)
	exchangeFunc func(context.Context, ports.ExchangeInput) (ports.TokenGrant, error)
}

func (m *mockAuthProvider) Begin(ctx context.Context, in ports.BeginInput) (string, string, error) {
	return m.beginFunc(ctx, in)
}

func (m *mockAuthProvider) Exchange(ctx context.Context, in ports.ExchangeInput) (ports.TokenGrant, error) {
	return m.exchangeFunc(ctx, in)
}

func grantFor(userID string, expiresIn time.Duration) ports.TokenGrant {
	return ports.TokenGrant{
		AccessToken:  "access-" + userID,
		RefreshToken: "refresh-" + userID,
		ExpiresAt:    time.Now().Add(expiresIn),
		Identity:     domainauth.Identity{UserID: userID, Email: userID + "@example.com"},
	}
}

func TestAuthService_SignIn_PersistsSession(t *testing.T) {
	sessions := mocks.NewMemorySessionStore()
	svc := NewAuthService(AuthServiceOptions{
		Authenticator: &mocks.MockPasswordAuthenticator{
			SignInFunc: func(_ context.Context, email, password string) (ports.TokenGrant, error) {
				assert.Equal(t, "ana@example.com", email)
				assert.Equal(t, "s3cret", password)
				return grantFor("u-1", time.Hour), nil
			},
		},
		Sessions: sessions,
	})

	sess, err := svc.SignIn(context.Background(), " ana@example.com ", "s3cret")
	require.NoError(t, err)
	assert.NotEmpty(t, sess.ID)
	assert.Equal(t, "access-u-1", sess.AccessToken)
	assert.Equal(t, 1, sessions.Len())

	stored, err := svc.GetSession(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.UserID, stored.UserID)
}

func TestAuthService_SignIn_CapsExpiryToTTL(t *testing.T) {
	svc := NewAuthService(AuthServiceOptions{
		Authenticator: &mocks.MockPasswordAuthenticator{
			SignInFunc: func(context.Context, string, string) (ports.TokenGrant, error) {
				return grantFor("u-1", 48*time.Hour), nil
			},
		},
		Sessions:   mocks.NewMemorySessionStore(),
		SessionTTL: time.Hour,
	})

	sess, err := svc.SignIn(context.Background(), "a@b.c", "x")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), sess.ExpiresAt, 5*time.Second)
}

func TestAuthService_SignIn_Errors(t *testing.T) {
	svc := NewAuthService(AuthServiceOptions{
		Authenticator: &mocks.MockPasswordAuthenticator{
			SignInFunc: func(context.Context, string, string) (ports.TokenGrant, error) {
				return ports.TokenGrant{}, errors.New("invalid login credentials")
			},
		},
		Sessions: &mockSessionStore{},
	})

	_, err := svc.SignIn(context.Background(), "", "x")
	require.ErrorIs(t, err, errCredentialsRequired)

	_, err = svc.SignIn(context.Background(), "a@b.c", "x")
	require.ErrorContains(t, err, "invalid login credentials")
}

func TestAuthService_SignIn_SaveError(t *testing.T) {
	svc := NewAuthService(AuthServiceOptions{
		Authenticator: &mocks.MockPasswordAuthenticator{
			SignInFunc: func(context.Context, string, string) (ports.TokenGrant, error) {
				return grantFor("u-1", time.Hour), nil
			},
		},
		Sessions: &mockSessionStore{
			saveFunc: func(context.Context, domainauth.Session) error { return errors.New("redis down") },
		},
	})

	_, err := svc.SignIn(context.Background(), "a@b.c", "x")
	require.ErrorContains(t, err, "save session")
}

func TestAuthService_SignUp(t *testing.T) {
	sessions := mocks.NewMemorySessionStore()
	auth := &mocks.MockPasswordAuthenticator{}
	svc := NewAuthService(AuthServiceOptions{Authenticator: auth, Sessions: sessions})

	res, err := svc.SignUp(context.Background(), ports.SignUpInput{Email: "a@b.c", Password: "x"})
	require.NoError(t, err)
	assert.True(t, res.ConfirmationRequired)
	assert.Nil(t, res.Session)

	auth.SignUpFunc = func(_ context.Context, in ports.SignUpInput) (*ports.TokenGrant, error) {
		assert.Equal(t, "dono", in.Metadata["role"])
		g := grantFor("u-9", time.Hour)
		return &g, nil
	}
	res, err = svc.SignUp(context.Background(), ports.SignUpInput{
		Email: "a@b.c", Password: "x", Metadata: map[string]any{"role": "dono"},
	})
	require.NoError(t, err)
	require.NotNil(t, res.Session)
	assert.Equal(t, "u-9", res.Session.UserID)
}

func TestAuthService_OAuth(t *testing.T) {
	sessions := mocks.NewMemorySessionStore()
	svc := NewAuthService(AuthServiceOptions{
		Provider: &mockAuthProvider{
			beginFunc: func(_ context.Context, in ports.BeginInput) (string, string, error) {
				return "https://x.supabase.co/auth/v1/authorize?provider=" + in.Provider, "verifier-1", nil
			},
			exchangeFunc: func(_ context.Context, in ports.ExchangeInput) (ports.TokenGrant, error) {
				assert.Equal(t, "verifier-1", in.CodeVerifier)
				return grantFor("u-3", time.Hour), nil
			},
		},
		Sessions: sessions,
	})

	begin, err := svc.BeginOAuth(context.Background(), "google", "http://localhost/cb")
	require.NoError(t, err)
	assert.Contains(t, begin.AuthURL, "provider=google")

	sess, err := svc.CompleteOAuth(context.Background(), "code", begin.Verifier)
	require.NoError(t, err)
	assert.Equal(t, "u-3", sess.UserID)

	_, err = NewAuthService(AuthServiceOptions{Sessions: sessions}).BeginOAuth(context.Background(), "google", "x")
	require.ErrorIs(t, err, errOAuthUnavailable)
}

func TestAuthService_GetSession_Expired(t *testing.T) {
	deleted := ""
	svc := NewAuthService(AuthServiceOptions{
		Sessions: &mockSessionStore{
			getFunc: func(_ context.Context, id string) (domainauth.Session, error) {
				return domainauth.Session{ID: id, ExpiresAt: time.Now().Add(-time.Minute)}, nil
			},
			deleteFunc: func(_ context.Context, id string) error {
				deleted = id
				return nil
			},
		},
	})

	_, err := svc.GetSession(context.Background(), "old")
	require.ErrorIs(t, err, errSessionExpired)
	assert.Equal(t, "old", deleted)
}

func TestAuthService_ForgetOnlyDeletes(t *testing.T) {
	sessions := mocks.NewMemorySessionStore()
	require.NoError(t, sessions.Save(context.Background(), domainauth.Session{
		ID: "s2", UserID: "u-2", AccessToken: "tok", ExpiresAt: time.Now().Add(time.Hour),
	}))
	svc := NewAuthService(AuthServiceOptions{Sessions: sessions})

	require.NoError(t, svc.Forget(context.Background(), "s2"))
	assert.Zero(t, sessions.Len())
	require.NoError(t, svc.Forget(context.Background(), ""))
	assert.False(t, svc.OAuthEnabled())
}
