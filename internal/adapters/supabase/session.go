package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	domainauth "github.com/gelatohub/painel/internal/domain/auth"
	apperrors "github.com/gelatohub/painel/internal/errors"
	"github.com/gelatohub/painel/internal/ports"
)

// Session performs backend calls on behalf of one caller. Row-level
// security applies to every PostgREST call it makes.
type Session struct {
	c     *Client
	token string
}

var (
	_ ports.SessionClient = (*Session)(nil)
	_ ports.RecordClient  = (*Session)(nil)
)

// GetSession returns the caller's session, or nil when the token is absent
// or expired.
func (s *Session) GetSession(ctx context.Context) (*domainauth.Session, error) {
	if s.token == "" {
		return nil, nil
	}
	if s.c.verifier != nil {
		id, exp, err := s.c.verifier.Verify(ctx, s.token)
		if err != nil {
			if errors.Is(err, ErrTokenExpired) {
				return nil, nil
			}
			return nil, fmt.Errorf("verify access token: %w", err)
		}
		return &domainauth.Session{UserID: id.UserID, Email: id.Email, AccessToken: s.token, ExpiresAt: exp}, nil
	}
	id, err := s.GetCurrentUser(ctx)
	if err != nil || id == nil {
		return nil, err
	}
	return &domainauth.Session{UserID: id.UserID, Email: id.Email, AccessToken: s.token}, nil
}

// GetCurrentUser asks GoTrue for the caller. A rejected token yields nil.
func (s *Session) GetCurrentUser(ctx context.Context) (*domainauth.Identity, error) {
	if s.token == "" {
		return nil, nil
	}
	resp, err := s.c.send("auth.user", s.c.request(ctx, s.token), http.MethodGet, "/auth/v1/user")
	if err != nil {
		if apperrors.IsPermissionDenied(err) {
			return nil, nil
		}
		return nil, err
	}
	var u userDTO
	if err := json.Unmarshal(resp.Body(), &u); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	if u.ID == "" {
		return nil, nil
	}
	id := u.identity()
	return &id, nil
}

// QueryRow returns the single row of table where keyColumn equals keyValue.
func (s *Session) QueryRow(ctx context.Context, table, keyColumn string, keyValue any) (json.RawMessage, error) {
	req := s.c.request(ctx, s.token).
		SetHeader("Accept", "application/vnd.pgrst.object+json").
		SetQueryParam("select", "*").
		SetQueryParam(keyColumn, "eq."+fmt.Sprint(keyValue))
	resp, err := s.c.send("rest.query_row", req, http.MethodGet, restPath(table))
	if err != nil {
		if isNoRows(err) {
			return nil, ports.ErrNoRows
		}
		return nil, err
	}
	return json.RawMessage(resp.Body()), nil
}

// InvokePrivileged calls a database function through PostgREST RPC.
func (s *Session) InvokePrivileged(ctx context.Context, name string) (json.RawMessage, error) {
	req := s.c.request(ctx, s.token).SetBody(map[string]any{})
	resp, err := s.c.send("rest.rpc", req, http.MethodPost, "/rest/v1/rpc/"+url.PathEscape(name))
	if err != nil {
		return nil, err
	}
	return json.RawMessage(resp.Body()), nil
}

// SignOut revokes the caller's session(s). An already invalid token is not an error.
func (s *Session) SignOut(ctx context.Context, scope domainauth.SignOutScope) error {
	if s.token == "" {
		return nil
	}
	if scope == "" {
		scope = domainauth.ScopeLocal
	}
	req := s.c.request(ctx, s.token).SetQueryParam("scope", string(scope))
	_, err := s.c.send("auth.logout", req, http.MethodPost, "/auth/v1/logout")
	if err != nil && (apperrors.IsPermissionDenied(err) || apperrors.IsNotFound(err)) {
		return nil
	}
	return err
}

// Select returns the rows of table matching opts as a JSON array.
func (s *Session) Select(ctx context.Context, table string, opts ports.SelectOptions) (json.RawMessage, error) {
	q := filterValues(opts.Filters)
	q.Set("select", "*")
	if opts.Order != "" {
		q.Set("order", opts.Order)
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	resp, err := s.c.send("rest.select", s.c.request(ctx, s.token).SetQueryParamsFromValues(q), http.MethodGet, restPath(table))
	if err != nil {
		return nil, err
	}
	return json.RawMessage(resp.Body()), nil
}

// Insert creates one row and returns the inserted rows.
func (s *Session) Insert(ctx context.Context, table string, record map[string]any) (json.RawMessage, error) {
	return s.insert(ctx, table, []map[string]any{record})
}

func (s *Session) insert(ctx context.Context, table string, body any) (json.RawMessage, error) {
	req := s.c.request(ctx, s.token).
		SetHeader("Prefer", "return=representation").
		SetBody(body)
	resp, err := s.c.send("rest.insert", req, http.MethodPost, restPath(table))
	if err != nil {
		return nil, err
	}
	return json.RawMessage(resp.Body()), nil
}

// Update patches the row with id and returns the updated rows.
func (s *Session) Update(ctx context.Context, table, id string, patch map[string]any) (json.RawMessage, error) {
	return s.updateWhere(ctx, table, "id", id, patch)
}

func (s *Session) updateWhere(ctx context.Context, table, column, value string, patch any) (json.RawMessage, error) {
	req := s.c.request(ctx, s.token).
		SetHeader("Prefer", "return=representation").
		SetQueryParam(column, "eq."+value).
		SetBody(patch)
	resp, err := s.c.send("rest.update", req, http.MethodPatch, restPath(table))
	if err != nil {
		return nil, err
	}
	return json.RawMessage(resp.Body()), nil
}

// Delete removes the row with id.
func (s *Session) Delete(ctx context.Context, table, id string) error {
	return s.deleteWhere(ctx, table, "id", id)
}

func (s *Session) deleteWhere(ctx context.Context, table, column, value string) error {
	req := s.c.request(ctx, s.token).SetQueryParam(column, "eq."+value)
	_, err := s.c.send("rest.delete", req, http.MethodDelete, restPath(table))
	return err
}

// Count returns the exact number of rows of table matching filters.
func (s *Session) Count(ctx context.Context, table string, filters ...ports.Filter) (int, error) {
	q := filterValues(filters)
	q.Set("select", "id")
	req := s.c.request(ctx, s.token).
		SetHeader("Prefer", "count=exact").
		SetQueryParamsFromValues(q)
	resp, err := s.c.send("rest.count", req, http.MethodHead, restPath(table))
	if err != nil {
		return 0, err
	}
	return parseContentRange(resp.Header().Get("Content-Range"))
}

func restPath(table string) string {
	return "/rest/v1/" + url.PathEscape(table)
}

func filterValues(filters []ports.Filter) url.Values {
	q := url.Values{}
	for _, f := range filters {
		op := f.Op
		if op == "" {
			op = ports.OpEq
		}
		v := f.Value
		if op == ports.OpIn {
			v = "(" + v + ")"
		}
		q.Add(f.Column, string(op)+"."+v)
	}
	return q
}

// parseContentRange extracts the total from "0-9/42" or "*/0".
func parseContentRange(h string) (int, error) {
	i := strings.LastIndex(h, "/")
	if i < 0 {
		return 0, fmt.Errorf("missing count in content-range %q", h)
	}
	n, err := strconv.Atoi(h[i+1:])
	if err != nil {
		return 0, fmt.Errorf("parse content-range %q: %w", h, err)
	}
	return n, nil
}
