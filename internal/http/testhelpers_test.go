package httpx

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"time"

	domainauth "github.com/gelatohub/painel/internal/domain/auth"
	authmocks "github.com/gelatohub/painel/internal/mocks/auth"
	"github.com/gelatohub/painel/internal/ports"
	"github.com/gelatohub/painel/internal/service"
)

// fakeAuth is a func-field AuthServiceInterface backed by a session map.
type fakeAuth struct {
	sessions map[string]*domainauth.Session
	oauth    bool

	signInFunc   func(ctx context.Context, email, password string) (*domainauth.Session, error)
	signUpFunc   func(ctx context.Context, in ports.SignUpInput) (*service.SignUpResult, error)
	beginFunc    func(ctx context.Context, provider, redirectURL string) (*service.BeginLoginResult, error)
	completeFunc func(ctx context.Context, code, verifier string) (*domainauth.Session, error)

	forgotten []string
}

var _ AuthServiceInterface = (*fakeAuth)(nil)

func (f *fakeAuth) GetSession(_ context.Context, id string) (*domainauth.Session, error) {
	if s, ok := f.sessions[id]; ok {
		return s, nil
	}
	return nil, errors.New("session not found")
}

func (f *fakeAuth) SignIn(ctx context.Context, email, password string) (*domainauth.Session, error) {
	if f.signInFunc != nil {
		return f.signInFunc(ctx, email, password)
	}
	return nil, errors.New("invalid login credentials")
}

func (f *fakeAuth) SignUp(ctx context.Context, in ports.SignUpInput) (*service.SignUpResult, error) {
	if f.signUpFunc != nil {
		return f.signUpFunc(ctx, in)
	}
	return &service.SignUpResult{ConfirmationRequired: true}, nil
}

func (f *fakeAuth) BeginOAuth(ctx context.Context, provider, redirectURL string) (*service.BeginLoginResult, error) {
	if f.beginFunc != nil {
		return f.beginFunc(ctx, provider, redirectURL)
	}
	return nil, errors.New("not configured")
}

func (f *fakeAuth) CompleteOAuth(ctx context.Context, code, verifier string) (*domainauth.Session, error) {
	if f.completeFunc != nil {
		return f.completeFunc(ctx, code, verifier)
	}
	return nil, errors.New("not configured")
}

func (f *fakeAuth) Forget(_ context.Context, id string) error {
	f.forgotten = append(f.forgotten, id)
	delete(f.sessions, id)
	return nil
}

func (f *fakeAuth) OAuthEnabled() bool { return f.oauth }

const testSessionID = "sess-1"

func testSession() *domainauth.Session {
	return &domainauth.Session{
		ID:          testSessionID,
		UserID:      "u-1",
		Email:       "dono@example.com",
		AccessToken: "tok-1",
		ExpiresAt:   time.Now().Add(time.Hour),
	}
}

func testIdentity() *domainauth.Identity {
	return &domainauth.Identity{UserID: "u-1", Email: "dono@example.com"}
}

// signedInClient returns a session client whose user has the given profile role.
func signedInClient(role domainauth.Role) *authmocks.FakeSessionClient {
	return &authmocks.FakeSessionClient{
		Session:  testSession(),
		Identity: testIdentity(),
		Rows: map[string]string{
			"u-1": `{"id":"u-1","nome":"Maria","email":"dono@example.com","role":"` + string(role) + `","ativo":true}`,
		},
	}
}

// gateFixture wires a gatekeeper over a fake backend and a session map
// holding testSession.
type gateFixture struct {
	auth    *fakeAuth
	backend *authmocks.FakeBackend
	client  *authmocks.FakeSessionClient
	deps    GateDeps
}

func newGateFixture(client *authmocks.FakeSessionClient) *gateFixture {
	backend := &authmocks.FakeBackend{Client: client}
	auth := &fakeAuth{sessions: map[string]*domainauth.Session{testSessionID: testSession()}}
	gk := service.NewGatekeeper(service.GatekeeperOptions{Backend: backend, LoginPath: "/login.html"})
	return &gateFixture{
		auth:    auth,
		backend: backend,
		client:  client,
		deps:    GateDeps{Sessions: auth, Gatekeeper: gk},
	}
}

// apiRequest builds a JSON API request, with the session cookie when signedIn.
func apiRequest(method, target string, signedIn bool) *http.Request {
	r := httptest.NewRequest(method, target, nil)
	r.Header.Set("Accept", "application/json")
	if signedIn {
		r.AddCookie(&http.Cookie{Name: sessionCookieName, Value: testSessionID})
	}
	return r
}

// browserRequest builds a page navigation request.
func browserRequest(method, target string, signedIn bool) *http.Request {
	r := httptest.NewRequest(method, target, nil)
	r.Header.Set("Accept", "text/html,application/xhtml+xml")
	if signedIn {
		r.AddCookie(&http.Cookie{Name: sessionCookieName, Value: testSessionID})
	}
	return r
}
