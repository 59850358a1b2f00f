package auth

// Package auth contains simple hand-written test doubles for auth ports.
// These are lightweight and suitable for unit tests without codegen.

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	domainauth "github.com/gelatohub/painel/internal/domain/auth"
	"github.com/gelatohub/painel/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.SessionClient         = (*FakeSessionClient)(nil)
	_ ports.Backend               = (*FakeBackend)(nil)
	_ ports.SessionStore          = (*MemorySessionStore)(nil)
	_ ports.Navigator             = (*RecordingNavigator)(nil)
	_ ports.PasswordAuthenticator = (*MockPasswordAuthenticator)(nil)
)

// FakeSessionClient is a SessionClient driven by a fixed profile table.
// Func fields override the table-driven defaults.
type FakeSessionClient struct {
	Session  *domainauth.Session
	Identity *domainauth.Identity
	// Rows maps user id to a raw perfis_usuarios row.
	Rows map[string]string
	// PrivilegedRole is returned by get_user_role; empty means null.
	PrivilegedRole string

	GetSessionFunc       func(ctx context.Context) (*domainauth.Session, error)
	QueryRowFunc         func(ctx context.Context, table, keyColumn string, keyValue any) (json.RawMessage, error)
	InvokePrivilegedFunc func(ctx context.Context, name string) (json.RawMessage, error)
	SignOutFunc          func(ctx context.Context, scope domainauth.SignOutScope) error

	mu       sync.Mutex
	signOuts []domainauth.SignOutScope
}

func (f *FakeSessionClient) GetSession(ctx context.Context) (*domainauth.Session, error) {
	if f.GetSessionFunc != nil {
		return f.GetSessionFunc(ctx)
	}
	return f.Session, nil
}

func (f *FakeSessionClient) GetCurrentUser(_ context.Context) (*domainauth.Identity, error) {
	return f.Identity, nil
}

func (f *FakeSessionClient) QueryRow(ctx context.Context, table, keyColumn string, keyValue any) (json.RawMessage, error) {
	if f.QueryRowFunc != nil {
		return f.QueryRowFunc(ctx, table, keyColumn, keyValue)
	}
	id, _ := keyValue.(string)
	row, ok := f.Rows[id]
	if !ok {
		return nil, ports.ErrNoRows
	}
	return json.RawMessage(row), nil
}

func (f *FakeSessionClient) InvokePrivileged(ctx context.Context, name string) (json.RawMessage, error) {
	if f.InvokePrivilegedFunc != nil {
		return f.InvokePrivilegedFunc(ctx, name)
	}
	if f.PrivilegedRole == "" {
		return json.RawMessage("null"), nil
	}
	return json.Marshal(f.PrivilegedRole)
}

func (f *FakeSessionClient) SignOut(ctx context.Context, scope domainauth.SignOutScope) error {
	f.mu.Lock()
	f.signOuts = append(f.signOuts, scope)
	f.mu.Unlock()
	if f.SignOutFunc != nil {
		return f.SignOutFunc(ctx, scope)
	}
	return nil
}

// SignOuts returns the scopes SignOut was called with.
func (f *FakeSessionClient) SignOuts() []domainauth.SignOutScope {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domainauth.SignOutScope(nil), f.signOuts...)
}

// FakeBackend binds every caller to the same client, remembering the credentials.
type FakeBackend struct {
	Client ports.SessionClient

	mu    sync.Mutex
	Bound []domainauth.Credentials
}

func (b *FakeBackend) Bind(creds domainauth.Credentials) ports.SessionClient {
	b.mu.Lock()
	b.Bound = append(b.Bound, creds)
	b.mu.Unlock()
	return b.Client
}

// MemorySessionStore is an in-memory session store for unit tests.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]domainauth.Session
}

// NewMemorySessionStore creates a new in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]domainauth.Session),
	}
}

func (m *MemorySessionStore) Save(_ context.Context, sess domainauth.Session) error {
	if sess.ID == "" {
		return errors.New("session ID cannot be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sess.ID] = sess
	return nil
}

func (m *MemorySessionStore) Get(_ context.Context, id string) (domainauth.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if id == "" || !ok {
		return domainauth.Session{}, ErrNotFound
	}
	return sess, nil
}

func (m *MemorySessionStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// Len returns the number of stored sessions.
func (m *MemorySessionStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// ErrNotFound is returned by mocks when an entity is not present.
type notFoundError struct{}

func (notFoundError) Error() string { return "not found" }

var ErrNotFound error = notFoundError{}

// RecordingNavigator records the terminal actions requested by a gate.
type RecordingNavigator struct {
	Redirects []string
	Denials   []domainauth.DenialView
}

func (n *RecordingNavigator) Redirect(target string) {
	n.Redirects = append(n.Redirects, target)
}

func (n *RecordingNavigator) Deny(view domainauth.DenialView) {
	n.Denials = append(n.Denials, view)
}

// Calls returns the total number of navigation calls.
func (n *RecordingNavigator) Calls() int {
	return len(n.Redirects) + len(n.Denials)
}

// MockPasswordAuthenticator is a func-field PasswordAuthenticator.
type MockPasswordAuthenticator struct {
	SignInFunc func(ctx context.Context, email, password string) (ports.TokenGrant, error)
	SignUpFunc func(ctx context.Context, in ports.SignUpInput) (*ports.TokenGrant, error)
}

func (m *MockPasswordAuthenticator) SignInWithPassword(ctx context.Context, email, password string) (ports.TokenGrant, error) {
	if m.SignInFunc != nil {
		return m.SignInFunc(ctx, email, password)
	}
	return ports.TokenGrant{}, errors.New("sign in not configured")
}

func (m *MockPasswordAuthenticator) SignUp(ctx context.Context, in ports.SignUpInput) (*ports.TokenGrant, error) {
	if m.SignUpFunc != nil {
		return m.SignUpFunc(ctx, in)
	}
	return nil, nil
}
