package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	domainauth "github.com/gelatohub/painel/internal/domain/auth"
	"github.com/gelatohub/painel/internal/mocks"
	"github.com/gelatohub/painel/internal/ports"
)

var testIdentity = domainauth.Identity{
	UserID:   "u-1",
	Email:    "ana@example.com",
	Metadata: map[string]any{"nome": "Ana"},
}

func newMockResolver(t *testing.T) (*RoleResolver, *mocks.MockSessionClient) {
	t.Helper()
	ctrl := gomock.NewController(t)
	client := mocks.NewMockSessionClient(ctrl)
	return NewRoleResolver(RoleResolverOptions{Client: client}), client
}

func TestRoleResolver_DirectLookupWins(t *testing.T) {
	r, client := newMockResolver(t)
	id := testIdentity

	client.EXPECT().GetCurrentUser(gomock.Any()).Return(&id, nil)
	client.EXPECT().QueryRow(gomock.Any(), ProfileTable, "id", "u-1").
		Return(json.RawMessage(`{"id":"u-1","nome":"Ana","email":"ana@loja.com","role":"dono","ativo":true}`), nil)
	// No InvokePrivileged expectation: gomock fails the test if it is called.

	p := r.ResolveProfile(context.Background())
	require.NotNil(t, p)
	assert.Equal(t, domainauth.RoleDono, p.Role)
	assert.Equal(t, "ana@loja.com", p.Email)
	assert.Equal(t, "ana@example.com", p.AuthEmail)
	assert.Equal(t, "u-1", p.AuthID)
}

func TestRoleResolver_PrivilegedFallback(t *testing.T) {
	r, client := newMockResolver(t)
	id := testIdentity

	client.EXPECT().GetCurrentUser(gomock.Any()).Return(&id, nil)
	client.EXPECT().QueryRow(gomock.Any(), ProfileTable, "id", "u-1").Return(nil, ports.ErrNoRows)
	client.EXPECT().InvokePrivileged(gomock.Any(), RoleFunction).Return(json.RawMessage(`"afiliado"`), nil)

	p := r.ResolveProfile(context.Background())
	require.NotNil(t, p)
	assert.Equal(t, domainauth.Profile{
		ID:        "u-1",
		Nome:      "Ana",
		Email:     "ana@example.com",
		Role:      domainauth.RoleAfiliado,
		Ativo:     true,
		AuthEmail: "ana@example.com",
		AuthID:    "u-1",
	}, *p)
}

func TestRoleResolver_MetadataFallbackAfterErrors(t *testing.T) {
	r, client := newMockResolver(t)
	id := testIdentity
	id.Metadata = map[string]any{"role": "afiliado"}

	client.EXPECT().GetCurrentUser(gomock.Any()).Return(&id, nil)
	client.EXPECT().QueryRow(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, errors.New("permission denied for table perfis_usuarios"))
	client.EXPECT().InvokePrivileged(gomock.Any(), RoleFunction).Return(nil, errors.New("function does not exist"))

	p := r.ResolveProfile(context.Background())
	require.NotNil(t, p)
	assert.Equal(t, domainauth.RoleAfiliado, p.Role)
	assert.True(t, p.Ativo)
}

func TestRoleResolver_NothingResolves(t *testing.T) {
	r, client := newMockResolver(t)
	id := testIdentity

	client.EXPECT().GetCurrentUser(gomock.Any()).Return(&id, nil)
	client.EXPECT().QueryRow(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, ports.ErrNoRows)
	client.EXPECT().InvokePrivileged(gomock.Any(), RoleFunction).Return(json.RawMessage(`null`), nil)

	assert.Nil(t, r.ResolveProfile(context.Background()))
}

func TestRoleResolver_NoIdentity(t *testing.T) {
	r, client := newMockResolver(t)
	client.EXPECT().GetCurrentUser(gomock.Any()).Return(nil, nil)
	assert.Nil(t, r.ResolveProfile(context.Background()))

	r, client = newMockResolver(t)
	client.EXPECT().GetCurrentUser(gomock.Any()).Return(nil, errors.New("jwt expired"))
	assert.Nil(t, r.ResolveProfile(context.Background()))
}

func TestRoleResolver_StepPanicIsContained(t *testing.T) {
	r, client := newMockResolver(t)
	id := testIdentity

	client.EXPECT().GetCurrentUser(gomock.Any()).Return(&id, nil)
	client.EXPECT().QueryRow(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, string, string, any) (json.RawMessage, error) {
			panic("boom")
		})
	client.EXPECT().InvokePrivileged(gomock.Any(), RoleFunction).Return(json.RawMessage(`"admin"`), nil)

	p := r.ResolveProfile(context.Background())
	require.NotNil(t, p)
	assert.Equal(t, domainauth.RoleAdmin, p.Role)
}

func TestRoleResolver_NilClient(t *testing.T) {
	r := NewRoleResolver(RoleResolverOptions{})
	assert.Nil(t, r.ResolveProfile(context.Background()))
	_, ok := r.RoleViaPrivileged(context.Background())
	assert.False(t, ok)
}

func TestDecodeRole(t *testing.T) {
	tests := []struct {
		raw     string
		want    domainauth.Role
		wantErr bool
	}{
		{raw: `"admin"`, want: domainauth.RoleAdmin},
		{raw: `null`, want: ""},
		{raw: ``, want: ""},
		{raw: `{"role":"dono"}`, want: domainauth.RoleDono},
		{raw: `{"other":1}`, want: ""},
		{raw: `[1]`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := decodeRole(json.RawMessage(tt.raw))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
