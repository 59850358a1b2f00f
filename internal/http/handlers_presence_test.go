package httpx

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/gelatohub/painel/internal/domain/auth"
	"github.com/gelatohub/painel/internal/domain/presence"
)

type fakePresence struct {
	tracked   []presence.Entry
	untracked []string
	snapshot  presence.Snapshot
}

func (f *fakePresence) Track(_ context.Context, e presence.Entry) { f.tracked = append(f.tracked, e) }
func (f *fakePresence) Untrack(_ context.Context, id string)      { f.untracked = append(f.untracked, id) }
func (f *fakePresence) Online(context.Context) presence.Snapshot  { return f.snapshot }

func presenceRouter(role domainauth.Role, svc *fakePresence) http.Handler {
	fx := newGateFixture(signedInClient(role))
	return NewRouter(RouterServices{Auth: fx.auth, Gatekeeper: fx.deps.Gatekeeper, Presence: svc})
}

func TestPresenceHandlers_Heartbeat(t *testing.T) {
	svc := &fakePresence{}
	h := presenceRouter(domainauth.RoleDono, svc)

	r := jsonRequest(http.MethodPost, "/api/presence", `{"page":"produtos.html"}`)
	r.AddCookie(&http.Cookie{Name: sessionCookieName, Value: testSessionID})
	rec := do(h, r)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.Len(t, svc.tracked, 1)
	e := svc.tracked[0]
	assert.Equal(t, "u-1", e.UserID)
	assert.Equal(t, "dono@example.com", e.Email)
	assert.Equal(t, "produtos.html", e.Page)
	assert.WithinDuration(t, time.Now(), e.OnlineAt, time.Minute)
}

func TestPresenceHandlers_HeartbeatWithoutBody(t *testing.T) {
	svc := &fakePresence{}
	h := presenceRouter(domainauth.RoleAfiliado, svc)

	rec := do(h, apiRequest(http.MethodPost, "/api/presence", true))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.Len(t, svc.tracked, 1)
	assert.Empty(t, svc.tracked[0].Page)
}

func TestPresenceHandlers_Leave(t *testing.T) {
	svc := &fakePresence{}
	h := presenceRouter(domainauth.RoleDono, svc)

	rec := do(h, apiRequest(http.MethodDelete, "/api/presence", true))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"u-1"}, svc.untracked)
}

func TestPresenceHandlers_OnlineIsAdminOnly(t *testing.T) {
	svc := &fakePresence{snapshot: presence.Snapshot{
		Count: 1,
		Users: []presence.Entry{{UserID: "u-2", Email: "b@example.com", Page: "index.html"}},
	}}

	rec := do(presenceRouter(domainauth.RoleDono, svc), apiRequest(http.MethodGet, "/api/presence", true))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(presenceRouter(domainauth.RoleAdmin, svc), apiRequest(http.MethodGet, "/api/presence", true))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"u-2"`)
}
