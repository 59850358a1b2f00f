package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gelatohub/painel/internal/domain/settings"
	apperrors "github.com/gelatohub/painel/internal/errors"
	"github.com/gelatohub/painel/internal/ports"
)

const configColumns = "chave, valor, tipo, COALESCE(descricao, ''), COALESCE(categoria, ''), updated_at"

// ConfigRepo stores configuracoes rows directly in Postgres.
type ConfigRepo struct {
	DB  *sql.DB
	now func() time.Time
}

var _ ports.ConfigRepository = (*ConfigRepo)(nil)

func NewConfigRepo(db *sql.DB) *ConfigRepo {
	return &ConfigRepo{DB: db, now: time.Now}
}

// NewConfigRepoWithClock stamps updated_at from now instead of the wall clock.
func NewConfigRepoWithClock(db *sql.DB, now func() time.Time) *ConfigRepo {
	return &ConfigRepo{DB: db, now: now}
}

func (r *ConfigRepo) Get(ctx context.Context, key string) (settings.Entry, error) {
	row := r.DB.QueryRowContext(ctx, "SELECT "+configColumns+" FROM configuracoes WHERE chave = $1", key)
	e, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return settings.Entry{}, apperrors.NotFoundf("configuração %s não encontrada", key)
		}
		return settings.Entry{}, fmt.Errorf("get config %s: %w", key, apperrors.MapDBError(err))
	}
	return e, nil
}

func (r *ConfigRepo) GetMany(ctx context.Context, keys []string) ([]settings.Entry, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(keys))
	args := make([]any, len(keys))
	for i, k := range keys {
		placeholders[i] = "$" + strconv.Itoa(i+1)
		args[i] = k
	}
	q := "SELECT " + configColumns + " FROM configuracoes WHERE chave IN (" + strings.Join(placeholders, ", ") + ")"
	return r.query(ctx, q, args...)
}

func (r *ConfigRepo) ByCategory(ctx context.Context, category string) ([]settings.Entry, error) {
	return r.query(ctx, "SELECT "+configColumns+" FROM configuracoes WHERE categoria = $1 ORDER BY chave", category)
}

func (r *ConfigRepo) List(ctx context.Context) ([]settings.Entry, error) {
	return r.query(ctx, "SELECT "+configColumns+" FROM configuracoes ORDER BY categoria, chave")
}

// Upsert inserts a new row or, for an existing key, replaces only its value
// and updated_at.
func (r *ConfigRepo) Upsert(ctx context.Context, e settings.Entry) error {
	now := r.now().UTC()
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO configuracoes (chave, valor, tipo, descricao, categoria, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (chave) DO UPDATE SET valor = EXCLUDED.valor, updated_at = EXCLUDED.updated_at`,
		e.Key, e.Value, string(e.Type), e.Description, e.Category, now)
	if err != nil {
		return fmt.Errorf("save config %s: %w", e.Key, apperrors.MapDBError(err))
	}
	return nil
}

func (r *ConfigRepo) Delete(ctx context.Context, key string) error {
	if _, err := r.DB.ExecContext(ctx, "DELETE FROM configuracoes WHERE chave = $1", key); err != nil {
		return fmt.Errorf("delete config %s: %w", key, apperrors.MapDBError(err))
	}
	return nil
}

func (r *ConfigRepo) query(ctx context.Context, q string, args ...any) ([]settings.Entry, error) {
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list config: %w", apperrors.MapDBError(err))
	}
	defer rows.Close()

	var out []settings.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan config: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate config: %w", apperrors.MapDBError(err))
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (settings.Entry, error) {
	var (
		e         settings.Entry
		typ       string
		updatedAt sql.NullTime
	)
	if err := s.Scan(&e.Key, &e.Value, &typ, &e.Description, &e.Category, &updatedAt); err != nil {
		return settings.Entry{}, err
	}
	e.Type = settings.Type(typ)
	if updatedAt.Valid {
		e.UpdatedAt = updatedAt.Time
	}
	return e, nil
}
