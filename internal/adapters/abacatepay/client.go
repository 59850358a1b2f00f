// Package abacatepay relays Pix requests to the AbacatePay API.
package abacatepay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/gelatohub/painel/internal/observability/metrics"
	"github.com/gelatohub/painel/internal/ports"
)

// DefaultBaseURL is the public v1 API.
const DefaultBaseURL = "https://api.abacatepay.com/v1"

// Options configures a Client.
type Options struct {
	APIKey    string
	BaseURL   string
	Timeout   time.Duration
	Transport http.RoundTripper
	Metrics   *metrics.Metrics
}

// Client forwards requests with the server-held API key and returns the
// provider's status and body untouched.
type Client struct {
	http    *resty.Client
	metrics *metrics.Metrics
}

var _ ports.PaymentGateway = (*Client)(nil)

// New creates a Client. APIKey is required.
func New(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("AbacatePay API key is required")
	}
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	hc := resty.New().
		SetBaseURL(base).
		SetTimeout(timeout).
		SetAuthToken(opts.APIKey).
		SetHeader("Content-Type", "application/json")
	if opts.Transport != nil {
		hc.SetTransport(opts.Transport)
	}
	return &Client{http: hc, metrics: opts.Metrics}, nil
}

// CreatePixQRCode posts payload to /pixQrCode/create.
func (c *Client) CreatePixQRCode(ctx context.Context, payload json.RawMessage) (ports.ProviderResponse, error) {
	return c.do(ctx, "pix_create", http.MethodPost, "/pixQrCode/create", nil, []byte(payload))
}

// CheckPixQRCode fetches /pixQrCode/check?id=.
func (c *Client) CheckPixQRCode(ctx context.Context, id string) (ports.ProviderResponse, error) {
	return c.do(ctx, "pix_check", http.MethodGet, "/pixQrCode/check", map[string]string{"id": id}, nil)
}

// CreateBilling posts payload to /billing/create.
func (c *Client) CreateBilling(ctx context.Context, payload any) (ports.ProviderResponse, error) {
	return c.do(ctx, "billing_create", http.MethodPost, "/billing/create", nil, payload)
}

// GetBilling fetches /billing/get?id=.
func (c *Client) GetBilling(ctx context.Context, id string) (ports.ProviderResponse, error) {
	return c.do(ctx, "billing_get", http.MethodGet, "/billing/get", map[string]string{"id": id}, nil)
}

func (c *Client) do(ctx context.Context, op, method, path string, query map[string]string, body any) (ports.ProviderResponse, error) {
	req := c.http.R().SetContext(ctx)
	if query != nil {
		req.SetQueryParams(query)
	}
	if body != nil {
		req.SetBody(body)
	}
	resp, err := req.Execute(method, path)
	if err != nil {
		c.metrics.PaymentRequest(op, 0)
		return ports.ProviderResponse{}, fmt.Errorf("abacatepay %s: %w", op, err)
	}
	c.metrics.PaymentRequest(op, resp.StatusCode())

	raw := resp.Body()
	if !json.Valid(raw) {
		return ports.ProviderResponse{}, fmt.Errorf("abacatepay %s: invalid JSON response (status %d)", op, resp.StatusCode())
	}
	return ports.ProviderResponse{Status: resp.StatusCode(), Body: json.RawMessage(raw)}, nil
}
