package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/gelatohub/painel/internal/data/pgxutil"
	domainauth "github.com/gelatohub/painel/internal/domain/auth"
	apperrors "github.com/gelatohub/painel/internal/errors"
	"github.com/gelatohub/painel/internal/ports"
)

var identRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// ErrInvalidIdentifier is returned for table, column or function names that
// cannot be safely interpolated into SQL.
var ErrInvalidIdentifier = errors.New("invalid SQL identifier")

// Impersonator opens Postgres sessions that act as a given user, so row-level
// security and auth.uid() behave as they would for that user's own requests.
type Impersonator struct {
	DB     *sql.DB
	logger *slog.Logger
}

// NewImpersonator creates an Impersonator over db.
func NewImpersonator(db *sql.DB, logger *slog.Logger) *Impersonator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Impersonator{DB: db, logger: logger.With("component", "impersonator")}
}

// For returns a session client bound to userID.
func (i *Impersonator) For(userID string) *ImpersonatedClient {
	return &ImpersonatedClient{db: i.DB, userID: userID, logger: i.logger.With("user_id", userID)}
}

// ImpersonatedClient is a ports.SessionClient that talks to Postgres
// directly on behalf of one user.
type ImpersonatedClient struct {
	db     *sql.DB
	userID string
	logger *slog.Logger
}

var _ ports.SessionClient = (*ImpersonatedClient)(nil)

// GetSession reports a session for the user when the account exists.
func (c *ImpersonatedClient) GetSession(ctx context.Context) (*domainauth.Session, error) {
	id, err := c.GetCurrentUser(ctx)
	if err != nil || id == nil {
		return nil, err
	}
	return &domainauth.Session{UserID: id.UserID, Email: id.Email}, nil
}

func (c *ImpersonatedClient) GetCurrentUser(ctx context.Context) (*domainauth.Identity, error) {
	var (
		id    domainauth.Identity
		email sql.NullString
		meta  []byte
	)
	err := c.db.QueryRowContext(ctx,
		"SELECT id::text, email, raw_user_meta_data FROM auth.users WHERE id = $1", c.userID,
	).Scan(&id.UserID, &email, &meta)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user: %w", apperrors.MapDBError(err))
	}
	id.Email = email.String
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &id.Metadata); err != nil {
			c.logger.WarnContext(ctx, "ignoring malformed user metadata", "error", err)
		}
	}
	return &id, nil
}

// QueryRow runs as the user, with row-level security applied.
func (c *ImpersonatedClient) QueryRow(ctx context.Context, table, keyColumn string, keyValue any) (json.RawMessage, error) {
	if !identRe.MatchString(table) || !identRe.MatchString(keyColumn) {
		return nil, ErrInvalidIdentifier
	}
	q := fmt.Sprintf("SELECT to_jsonb(t) FROM public.%s AS t WHERE t.%s = $1 LIMIT 1", table, keyColumn)

	var raw []byte
	err := c.asUser(ctx, func(tx *sql.Tx) error {
		return tx.QueryRowContext(ctx, q, keyValue).Scan(&raw)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ports.ErrNoRows
		}
		return nil, fmt.Errorf("query %s: %w", table, apperrors.MapDBError(err))
	}
	return json.RawMessage(raw), nil
}

// InvokePrivileged calls public.<name>() with the user's claims in scope.
func (c *ImpersonatedClient) InvokePrivileged(ctx context.Context, name string) (json.RawMessage, error) {
	if !identRe.MatchString(name) {
		return nil, ErrInvalidIdentifier
	}
	var raw []byte
	err := c.asUser(ctx, func(tx *sql.Tx) error {
		return tx.QueryRowContext(ctx, fmt.Sprintf("SELECT to_jsonb(public.%s())", name)).Scan(&raw)
	})
	if err != nil {
		return nil, fmt.Errorf("invoke %s: %w", name, apperrors.MapDBError(err))
	}
	if raw == nil {
		return json.RawMessage("null"), nil
	}
	return json.RawMessage(raw), nil
}

// SignOut deletes the user's refresh sessions. Local scope removes only the
// most recent one.
func (c *ImpersonatedClient) SignOut(ctx context.Context, scope domainauth.SignOutScope) error {
	q := "DELETE FROM auth.sessions WHERE user_id = $1"
	if scope == domainauth.ScopeLocal {
		q = `DELETE FROM auth.sessions WHERE id = (
			SELECT id FROM auth.sessions WHERE user_id = $1 ORDER BY created_at DESC LIMIT 1)`
	}
	res, err := c.db.ExecContext(ctx, q, c.userID)
	if err != nil {
		return fmt.Errorf("sign out: %w", apperrors.MapDBError(err))
	}
	if n, err := res.RowsAffected(); err == nil {
		c.logger.InfoContext(ctx, "sessions revoked", "scope", scope, "count", n)
	}
	return nil
}

func (c *ImpersonatedClient) asUser(ctx context.Context, fn func(*sql.Tx) error) error {
	claims, err := json.Marshal(map[string]string{"sub": c.userID, "role": "authenticated"})
	if err != nil {
		return fmt.Errorf("marshal claims: %w", err)
	}
	return pgxutil.WithSQLTx(ctx, c.db, pgxutil.SQLTxConfig{
		Opts: pgxutil.ReadOnly,
		Fn: func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, "SELECT set_config('request.jwt.claims', $1, true)", string(claims)); err != nil {
				return fmt.Errorf("set claims: %w", err)
			}
			if _, err := tx.ExecContext(ctx, "SET LOCAL ROLE authenticated"); err != nil {
				return fmt.Errorf("set role: %w", err)
			}
			return fn(tx)
		},
	})
}
