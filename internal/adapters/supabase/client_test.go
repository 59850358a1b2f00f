package supabase

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/gelatohub/painel/internal/domain/auth"
	"github.com/gelatohub/painel/internal/domain/settings"
	apperrors "github.com/gelatohub/painel/internal/errors"
	"github.com/gelatohub/painel/internal/ports"
)

type recordedRequest struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   string
}

type fakeProject struct {
	t       *testing.T
	mu      sync.Mutex
	reqs    []recordedRequest
	handler func(w http.ResponseWriter, r *http.Request)
}

func (f *fakeProject) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.reqs = append(f.reqs, recordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.Query(),
		Header: r.Header.Clone(),
		Body:   string(body),
	})
	f.mu.Unlock()
	f.handler(w, r)
}

func (f *fakeProject) last() recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(f.t, f.reqs)
	return f.reqs[len(f.reqs)-1]
}

func newTestClient(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*Client, *fakeProject) {
	t.Helper()
	fp := &fakeProject{t: t, handler: handler}
	srv := httptest.NewServer(fp)
	t.Cleanup(srv.Close)
	c, err := New(Options{URL: srv.URL + "/", AnonKey: "anon-key", Timeout: 2 * time.Second})
	require.NoError(t, err)
	return c, fp
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func TestNew_RequiresURLAndKey(t *testing.T) {
	_, err := New(Options{URL: "https://x.supabase.co"})
	assert.Error(t, err)
}

func TestSignInWithPassword(t *testing.T) {
	c, fp := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, `{"access_token":"at","refresh_token":"rt","expires_at":1900000000,
			"user":{"id":"u-1","email":"ana@loja.com","user_metadata":{"nome":"Ana"}}}`)
	})

	g, err := c.SignInWithPassword(context.Background(), "ana@loja.com", "segredo")
	require.NoError(t, err)
	assert.Equal(t, "at", g.AccessToken)
	assert.Equal(t, time.Unix(1900000000, 0), g.ExpiresAt)
	assert.Equal(t, "Ana", g.Identity.DisplayName())

	req := fp.last()
	assert.Equal(t, "/auth/v1/token", req.Path)
	assert.Equal(t, "password", req.Query.Get("grant_type"))
	assert.Equal(t, "anon-key", req.Header.Get("apikey"))
	assert.JSONEq(t, `{"email":"ana@loja.com","password":"segredo"}`, req.Body)
}

func TestSignInWithPassword_InvalidCredentials(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 400, `{"code":400,"error_code":"invalid_credentials","msg":"Invalid login credentials"}`)
	})

	_, err := c.SignInWithPassword(context.Background(), "a@b.com", "x")
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	assert.Contains(t, err.Error(), "Invalid login credentials")
}

func TestSignUp_ConfirmationRequired(t *testing.T) {
	c, fp := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, `{"id":"u-2","email":"novo@loja.com"}`)
	})

	g, err := c.SignUp(context.Background(), ports.SignUpInput{
		Email: "novo@loja.com", Password: "segredo", Metadata: map[string]any{"nome": "Novo"},
	})
	require.NoError(t, err)
	assert.Nil(t, g)
	assert.JSONEq(t, `{"email":"novo@loja.com","password":"segredo","data":{"nome":"Novo"}}`, fp.last().Body)
}

func TestSession_QueryRow(t *testing.T) {
	c, fp := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("id") == "eq.u-1" {
			writeJSON(w, 200, `{"id":"u-1","role":"dono"}`)
			return
		}
		writeJSON(w, 406, `{"code":"PGRST116","message":"JSON object requested, multiple (or no) rows returned","details":"The result contains 0 rows","hint":null}`)
	})
	s := c.Bind(domainauth.Credentials{AccessToken: "user-token"})

	row, err := s.QueryRow(context.Background(), "perfis_usuarios", "id", "u-1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"u-1","role":"dono"}`, string(row))

	req := fp.last()
	assert.Equal(t, "/rest/v1/perfis_usuarios", req.Path)
	assert.Equal(t, "Bearer user-token", req.Header.Get("Authorization"))
	assert.Equal(t, "application/vnd.pgrst.object+json", req.Header.Get("Accept"))

	_, err = s.QueryRow(context.Background(), "perfis_usuarios", "id", "u-9")
	assert.ErrorIs(t, err, ports.ErrNoRows)
}

func TestSession_InvokePrivileged(t *testing.T) {
	c, fp := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, `"admin"`)
	})

	raw, err := c.Bind(domainauth.Credentials{AccessToken: "tok"}).InvokePrivileged(context.Background(), "get_user_role")
	require.NoError(t, err)
	assert.Equal(t, `"admin"`, string(raw))
	assert.Equal(t, http.MethodPost, fp.last().Method)
	assert.Equal(t, "/rest/v1/rpc/get_user_role", fp.last().Path)
}

func TestSession_GetCurrentUserRejectedToken(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 401, `{"code":401,"error_code":"bad_jwt","msg":"invalid JWT"}`)
	})

	id, err := c.Bind(domainauth.Credentials{AccessToken: "stale"}).GetCurrentUser(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, id)
}

func TestSession_GetSessionWithoutToken(t *testing.T) {
	c, fp := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 500, `{}`)
	})

	sess, err := c.Bind(domainauth.Credentials{}).GetSession(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, sess)
	assert.Empty(t, fp.reqs)
}

func TestSession_GetSessionUsesVerifier(t *testing.T) {
	secret := "super-secret"
	token := signHS256(t, secret, time.Now().Add(time.Hour))
	verifier, err := NewTokenVerifier(context.Background(), TokenVerifierOptions{Secret: secret})
	require.NoError(t, err)

	fp := &fakeProject{t: t, handler: func(w http.ResponseWriter, _ *http.Request) { writeJSON(w, 500, `{}`) }}
	srv := httptest.NewServer(fp)
	defer srv.Close()
	c, err := New(Options{URL: srv.URL, AnonKey: "anon", Verifier: verifier})
	require.NoError(t, err)

	sess, err := c.Bind(domainauth.Credentials{AccessToken: token}).GetSession(context.Background())
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, "u-1", sess.UserID)
	assert.Equal(t, "ana@loja.com", sess.Email)
	assert.Empty(t, fp.reqs)

	expired := signHS256(t, secret, time.Now().Add(-time.Minute))
	sess, err = c.Bind(domainauth.Credentials{AccessToken: expired}).GetSession(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, sess)
}

func TestSession_SignOutScope(t *testing.T) {
	c, fp := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	err := c.Bind(domainauth.Credentials{AccessToken: "tok"}).SignOut(context.Background(), domainauth.ScopeGlobal)
	require.NoError(t, err)
	assert.Equal(t, "/auth/v1/logout", fp.last().Path)
	assert.Equal(t, "global", fp.last().Query.Get("scope"))
}

func TestSession_SelectFilters(t *testing.T) {
	c, fp := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, `[]`)
	})

	_, err := c.Records("tok").Select(context.Background(), "pedidos", ports.SelectOptions{
		Filters: []ports.Filter{
			{Column: "data_pedido", Op: ports.OpGte, Value: "2026-02-01"},
			{Column: "data_pedido", Op: ports.OpLte, Value: "2026-02-28"},
			{Column: "status", Op: ports.OpIn, Value: "a,b"},
		},
		Order: "created_at.desc",
		Limit: 10,
	})
	require.NoError(t, err)

	q := fp.last().Query
	assert.Equal(t, []string{"gte.2026-02-01", "lte.2026-02-28"}, q["data_pedido"])
	assert.Equal(t, "in.(a,b)", q.Get("status"))
	assert.Equal(t, "created_at.desc", q.Get("order"))
	assert.Equal(t, "10", q.Get("limit"))
}

func TestSession_Count(t *testing.T) {
	c, fp := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Range", "0-2/3")
		w.WriteHeader(http.StatusOK)
	})

	n, err := c.Records("tok").Count(context.Background(), "receitas", ports.Eq("ativo", "true"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, http.MethodHead, fp.last().Method)
	assert.Equal(t, "count=exact", fp.last().Header.Get("Prefer"))
	assert.Equal(t, "eq.true", fp.last().Query.Get("ativo"))
}

func TestParseContentRange(t *testing.T) {
	n, err := parseContentRange("*/0")
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = parseContentRange("")
	assert.Error(t, err)
}

func TestSession_InsertUpdateDelete(t *testing.T) {
	c, fp := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, 201, `[{"id":"p1"}]`)
	})
	rc := c.Records("tok")

	_, err := rc.Insert(context.Background(), "produtos", map[string]any{"nome": "Açaí"})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"nome":"Açaí"}]`, fp.last().Body)
	assert.Equal(t, "return=representation", fp.last().Header.Get("Prefer"))

	_, err = rc.Update(context.Background(), "produtos", "p1", map[string]any{"preco": 12})
	require.NoError(t, err)
	assert.Equal(t, http.MethodPatch, fp.last().Method)
	assert.Equal(t, "eq.p1", fp.last().Query.Get("id"))

	require.NoError(t, rc.Delete(context.Background(), "produtos", "p1"))
	assert.Equal(t, "eq.p1", fp.last().Query.Get("id"))
}

func TestSession_RLSDenied(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 403, `{"code":"42501","message":"permission denied for table produtos"}`)
	})

	_, err := c.Records("tok").Select(context.Background(), "produtos", ports.SelectOptions{})
	assert.True(t, apperrors.IsPermissionDenied(err))
}

func TestOAuthProvider(t *testing.T) {
	c, fp := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, `{"access_token":"at","expires_in":3600,"user":{"id":"u-1","email":"a@b.com"}}`)
	})
	p := NewOAuthProvider(c)

	authURL, verifier, err := p.Begin(context.Background(), ports.BeginInput{Provider: "google", RedirectURL: "http://localhost/cb"})
	require.NoError(t, err)
	assert.NotEmpty(t, verifier)
	u, err := url.Parse(authURL)
	require.NoError(t, err)
	assert.Equal(t, "/auth/v1/authorize", u.Path)
	assert.Equal(t, "google", u.Query().Get("provider"))
	assert.Equal(t, "http://localhost/cb", u.Query().Get("redirect_to"))
	assert.NotEmpty(t, u.Query().Get("code_challenge"))

	_, _, err = p.Begin(context.Background(), ports.BeginInput{Provider: "../evil"})
	assert.Error(t, err)

	g, err := p.Exchange(context.Background(), ports.ExchangeInput{Code: "code-1", CodeVerifier: verifier})
	require.NoError(t, err)
	assert.Equal(t, "at", g.AccessToken)
	assert.WithinDuration(t, time.Now().Add(time.Hour), g.ExpiresAt, 5*time.Second)

	req := fp.last()
	assert.Equal(t, "pkce", req.Query.Get("grant_type"))
	var body map[string]string
	require.NoError(t, json.Unmarshal([]byte(req.Body), &body))
	assert.Equal(t, "code-1", body["auth_code"])
	assert.Equal(t, verifier, body["code_verifier"])
}

func TestConfigRepo_UpsertInsertsNewKey(t *testing.T) {
	c, fp := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			writeJSON(w, 406, `{"code":"PGRST116","message":"no rows"}`)
			return
		}
		writeJSON(w, 201, `[]`)
	})
	repo := NewConfigRepo(c, "")

	err := repo.Upsert(context.Background(), settings.NewEntry("custo_kwh", 0.95, "", ""))
	require.NoError(t, err)

	req := fp.last()
	assert.Equal(t, http.MethodPost, req.Method)
	var rows []map[string]any
	require.NoError(t, json.Unmarshal([]byte(req.Body), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "0.95", rows[0]["valor"])
	assert.Equal(t, "number", rows[0]["tipo"])
	assert.Equal(t, "geral", rows[0]["categoria"])
	assert.Equal(t, "Bearer anon-key", req.Header.Get("Authorization"))
}

func TestConfigRepo_UpsertUpdatesExistingValueOnly(t *testing.T) {
	c, fp := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			writeJSON(w, 200, `{"chave":"moeda","valor":"BRL","tipo":"string","descricao":"Moeda","categoria":"geral"}`)
			return
		}
		writeJSON(w, 200, `[]`)
	})
	repo := NewConfigRepo(c, "tok")

	require.NoError(t, repo.Upsert(context.Background(), settings.NewEntry("moeda", "USD", "", "outra")))

	req := fp.last()
	assert.Equal(t, http.MethodPatch, req.Method)
	assert.Equal(t, "eq.moeda", req.Query.Get("chave"))
	var patch map[string]any
	require.NoError(t, json.Unmarshal([]byte(req.Body), &patch))
	assert.Equal(t, "USD", patch["valor"])
	assert.Contains(t, patch, "updated_at")
	assert.NotContains(t, patch, "categoria")
}

func TestConfigRepo_GetMissing(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 406, `{"code":"PGRST116","message":"no rows"}`)
	})

	_, err := NewConfigRepo(c, "").Get(context.Background(), "nada")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestConfigRepo_GetManyQuotesKeys(t *testing.T) {
	c, fp := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, `[{"chave":"moeda","valor":"BRL"}]`)
	})

	entries, err := NewConfigRepo(c, "").GetMany(context.Background(), []string{"moeda", "timezone"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, `in.("moeda","timezone")`, fp.last().Query.Get("chave"))
}

func signHS256(t *testing.T, secret string, exp time.Time) string {
	t.Helper()
	claims := accessClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u-1", ExpiresAt: jwt.NewNumericDate(exp)},
		Email:            "ana@loja.com",
		UserMetadata:     map[string]any{"role": "dono"},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}
