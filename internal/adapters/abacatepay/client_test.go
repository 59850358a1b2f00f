package abacatepay

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captured struct {
	method, path, query, auth, body string
}

func newTestClient(t *testing.T, status int, body string) (*Client, *captured) {
	t.Helper()
	got := &captured{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		*got = captured{
			method: r.Method,
			path:   r.URL.Path,
			query:  r.URL.RawQuery,
			auth:   r.Header.Get("Authorization"),
			body:   string(b),
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	c, err := New(Options{APIKey: "abc_dev_key", BaseURL: srv.URL + "/v1/"})
	require.NoError(t, err)
	return c, got
}

func TestNew_RequiresKey(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}

func TestCreatePixQRCode_RelaysVerbatim(t *testing.T) {
	c, got := newTestClient(t, 200, `{"data":{"id":"pix_1","brCode":"000201"},"error":null}`)

	resp, err := c.CreatePixQRCode(context.Background(), json.RawMessage(`{"amount":1000}`))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.Status)
	assert.JSONEq(t, `{"data":{"id":"pix_1","brCode":"000201"},"error":null}`, string(resp.Body))

	assert.Equal(t, http.MethodPost, got.method)
	assert.Equal(t, "/v1/pixQrCode/create", got.path)
	assert.Equal(t, "Bearer abc_dev_key", got.auth)
	assert.JSONEq(t, `{"amount":1000}`, got.body)
}

func TestCheckPixQRCode_RelaysErrorStatus(t *testing.T) {
	c, got := newTestClient(t, 404, `{"data":null,"error":"not found"}`)

	resp, err := c.CheckPixQRCode(context.Background(), "pix 1")
	require.NoError(t, err)
	assert.Equal(t, 404, resp.Status)
	assert.Equal(t, "/v1/pixQrCode/check", got.path)
	assert.Equal(t, "id=pix+1", got.query)
}

func TestBilling(t *testing.T) {
	c, got := newTestClient(t, 200, `{"data":{"status":"PENDING"}}`)

	_, err := c.CreateBilling(context.Background(), map[string]any{"frequency": "ONE_TIME"})
	require.NoError(t, err)
	assert.Equal(t, "/v1/billing/create", got.path)
	assert.JSONEq(t, `{"frequency":"ONE_TIME"}`, got.body)

	_, err = c.GetBilling(context.Background(), "bill_1")
	require.NoError(t, err)
	assert.Equal(t, "/v1/billing/get", got.path)
	assert.Equal(t, "id=bill_1", got.query)
}

func TestInvalidJSONIsTransportError(t *testing.T) {
	c, _ := newTestClient(t, 502, `<html>bad gateway</html>`)
	_, err := c.GetBilling(context.Background(), "bill_1")
	assert.Error(t, err)
}

func TestUnreachableProvider(t *testing.T) {
	c, err := New(Options{APIKey: "k", BaseURL: "http://127.0.0.1:1"})
	require.NoError(t, err)
	_, err = c.GetBilling(context.Background(), "bill_1")
	assert.Error(t, err)
}
