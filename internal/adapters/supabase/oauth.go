package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"golang.org/x/oauth2"

	"github.com/gelatohub/painel/internal/ports"
)

var providerPattern = regexp.MustCompile(`^[a-z0-9_]+$`)

// OAuthProvider runs GoTrue's PKCE flow for social sign-in.
type OAuthProvider struct {
	c   *Client
	cfg oauth2.Config
}

var _ ports.AuthProvider = (*OAuthProvider)(nil)

// NewOAuthProvider creates an OAuthProvider for c's project.
func NewOAuthProvider(c *Client) *OAuthProvider {
	return &OAuthProvider{
		c: c,
		cfg: oauth2.Config{
			Endpoint: oauth2.Endpoint{
				AuthURL:   c.baseURL + "/auth/v1/authorize",
				TokenURL:  c.baseURL + "/auth/v1/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
	}
}

// Begin returns the authorize URL for provider and the verifier to keep
// until the callback.
func (p *OAuthProvider) Begin(_ context.Context, in ports.BeginInput) (string, string, error) {
	if !providerPattern.MatchString(in.Provider) {
		return "", "", fmt.Errorf("invalid oauth provider %q", in.Provider)
	}
	verifier := oauth2.GenerateVerifier()
	opts := []oauth2.AuthCodeOption{
		oauth2.S256ChallengeOption(verifier),
		oauth2.SetAuthURLParam("provider", in.Provider),
	}
	if in.RedirectURL != "" {
		opts = append(opts, oauth2.SetAuthURLParam("redirect_to", in.RedirectURL))
	}
	return p.cfg.AuthCodeURL("", opts...), verifier, nil
}

// Exchange trades the callback code and verifier for tokens.
func (p *OAuthProvider) Exchange(ctx context.Context, in ports.ExchangeInput) (ports.TokenGrant, error) {
	if in.Code == "" || in.CodeVerifier == "" {
		return ports.TokenGrant{}, errors.New("code and verifier are required")
	}
	req := p.c.request(ctx, "").
		SetQueryParam("grant_type", "pkce").
		SetBody(map[string]string{"auth_code": in.Code, "code_verifier": in.CodeVerifier})
	resp, err := p.c.send("auth.pkce", req, http.MethodPost, "/auth/v1/token")
	if err != nil {
		return ports.TokenGrant{}, err
	}
	var tok tokenResponse
	if err := json.Unmarshal(resp.Body(), &tok); err != nil {
		return ports.TokenGrant{}, fmt.Errorf("decode token response: %w", err)
	}
	if tok.AccessToken == "" {
		return ports.TokenGrant{}, errors.New("token response without access token")
	}
	return tok.grant(time.Now()), nil
}
