// Package supabase implements the backend ports against a Supabase project:
// GoTrue for authentication and PostgREST for rows and functions.
package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	domainauth "github.com/gelatohub/painel/internal/domain/auth"
	apperrors "github.com/gelatohub/painel/internal/errors"
	"github.com/gelatohub/painel/internal/observability/metrics"
	"github.com/gelatohub/painel/internal/ports"
)

// Options configures a Client.
type Options struct {
	URL     string
	AnonKey string
	Timeout time.Duration
	// Verifier validates access tokens locally. When nil, sessions are
	// resolved by asking GoTrue for the current user.
	Verifier  ports.TokenVerifier
	Transport http.RoundTripper
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
}

// Client is a Supabase project client. It is safe for concurrent use;
// per-caller operations go through a Session obtained from Bind or Records.
type Client struct {
	http     *resty.Client
	baseURL  string
	anonKey  string
	verifier ports.TokenVerifier
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

var (
	_ ports.Backend               = (*Client)(nil)
	_ ports.RecordBackend         = (*Client)(nil)
	_ ports.PasswordAuthenticator = (*Client)(nil)
)

// New creates a Client. URL and AnonKey are required.
func New(opts Options) (*Client, error) {
	base := strings.TrimRight(opts.URL, "/")
	if base == "" || opts.AnonKey == "" {
		return nil, errors.New("backend URL and anon key are required")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	hc := resty.New().
		SetBaseURL(base).
		SetTimeout(timeout).
		SetHeader("apikey", opts.AnonKey).
		SetHeader("X-Client-Info", "painel-go")
	if opts.Transport != nil {
		hc.SetTransport(opts.Transport)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		http:     hc,
		baseURL:  base,
		anonKey:  opts.AnonKey,
		verifier: opts.Verifier,
		logger:   logger.With("component", "supabase"),
		metrics:  opts.Metrics,
	}, nil
}

// BaseURL returns the project URL without a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

// Bind returns a session client acting with creds.
func (c *Client) Bind(creds domainauth.Credentials) ports.SessionClient {
	return c.For(creds.AccessToken)
}

// Records returns a record client acting with accessToken.
func (c *Client) Records(accessToken string) ports.RecordClient {
	return c.For(accessToken)
}

// For returns a Session acting with accessToken. An empty token acts as
// the anonymous role.
func (c *Client) For(accessToken string) *Session {
	return &Session{c: c, token: accessToken}
}

type userDTO struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata"`
}

func (u userDTO) identity() domainauth.Identity {
	return domainauth.Identity{UserID: u.ID, Email: u.Email, Metadata: u.UserMetadata}
}

type tokenResponse struct {
	AccessToken  string  `json:"access_token"`
	RefreshToken string  `json:"refresh_token"`
	ExpiresIn    int64   `json:"expires_in"`
	ExpiresAt    int64   `json:"expires_at"`
	User         userDTO `json:"user"`
}

func (t tokenResponse) grant(now time.Time) ports.TokenGrant {
	g := ports.TokenGrant{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		Identity:     t.User.identity(),
	}
	switch {
	case t.ExpiresAt > 0:
		g.ExpiresAt = time.Unix(t.ExpiresAt, 0)
	case t.ExpiresIn > 0:
		g.ExpiresAt = now.Add(time.Duration(t.ExpiresIn) * time.Second)
	}
	return g
}

// SignInWithPassword exchanges e-mail and password for tokens.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (ports.TokenGrant, error) {
	req := c.request(ctx, "").
		SetQueryParam("grant_type", "password").
		SetBody(map[string]string{"email": email, "password": password})
	resp, err := c.send("auth.password", req, http.MethodPost, "/auth/v1/token")
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

// SignUp creates an account. The grant is nil when e-mail confirmation is required.
func (c *Client) SignUp(ctx context.Context, in ports.SignUpInput) (*ports.TokenGrant, error) {
	body := map[string]any{"email": in.Email, "password": in.Password}
	if len(in.Metadata) > 0 {
		body["data"] = in.Metadata
	}
	resp, err := c.send("auth.signup", c.request(ctx, "").SetBody(body), http.MethodPost, "/auth/v1/signup")
	if err != nil {
		return nil, err
	}
	var tok tokenResponse
	if err := json.Unmarshal(resp.Body(), &tok); err != nil {
		return nil, fmt.Errorf("decode signup response: %w", err)
	}
	if tok.AccessToken == "" {
		return nil, nil
	}
	g := tok.grant(time.Now())
	return &g, nil
}

func (c *Client) request(ctx context.Context, token string) *resty.Request {
	if token == "" {
		token = c.anonKey
	}
	return c.http.R().SetContext(ctx).SetAuthToken(token)
}

// send executes req and converts error responses into AppErrors.
func (c *Client) send(op string, req *resty.Request, method, path string) (*resty.Response, error) {
	start := time.Now()
	resp, err := req.Execute(method, path)
	if err != nil {
		c.metrics.BackendRequest(op, 0, time.Since(start))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	c.metrics.BackendRequest(op, resp.StatusCode(), time.Since(start))
	if resp.IsError() {
		restErr := decodeRESTError(resp)
		c.logger.Debug("backend error response", "op", op, "status", restErr.Status, "code", restErr.Code)
		return resp, apperrors.MapRESTError(restErr)
	}
	return resp, nil
}

// decodeRESTError understands both PostgREST and GoTrue error bodies.
func decodeRESTError(resp *resty.Response) *apperrors.RESTError {
	out := &apperrors.RESTError{Status: resp.StatusCode()}
	var body struct {
		Code             json.RawMessage `json:"code"`
		ErrorCode        string          `json:"error_code"`
		Message          string          `json:"message"`
		Msg              string          `json:"msg"`
		Error            string          `json:"error"`
		ErrorDescription string          `json:"error_description"`
		Details          any             `json:"details"`
		Hint             string          `json:"hint"`
	}
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		out.Message = resp.Status()
		return out
	}
	var code string
	if json.Unmarshal(body.Code, &code) == nil && code != "" {
		out.Code = code
	} else {
		out.Code = body.ErrorCode
	}
	for _, m := range []string{body.Message, body.Msg, body.ErrorDescription, body.Error, resp.Status()} {
		if m != "" {
			out.Message = m
			break
		}
	}
	if s, ok := body.Details.(string); ok {
		out.Details = s
	}
	out.Hint = body.Hint
	return out
}

func isNoRows(err error) bool {
	var restErr *apperrors.RESTError
	return errors.As(err, &restErr) && restErr.Code == apperrors.RESTNoRows
}
