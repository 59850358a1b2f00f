package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gelatohub/painel/internal/domain/settings"
	apperrors "github.com/gelatohub/painel/internal/errors"
	"github.com/gelatohub/painel/internal/ports"
)

const configTable = "configuracoes"

// ConfigRepo stores configuration rows through PostgREST.
type ConfigRepo struct {
	s   *Session
	now func() time.Time
}

var _ ports.ConfigRepository = (*ConfigRepo)(nil)

// NewConfigRepo creates a ConfigRepo acting with accessToken (anonymous when empty).
func NewConfigRepo(c *Client, accessToken string) *ConfigRepo {
	return &ConfigRepo{s: c.For(accessToken), now: time.Now}
}

func (r *ConfigRepo) Get(ctx context.Context, key string) (settings.Entry, error) {
	raw, err := r.s.QueryRow(ctx, configTable, "chave", key)
	if err != nil {
		if errors.Is(err, ports.ErrNoRows) {
			return settings.Entry{}, apperrors.NotFoundf("configuração %s não encontrada", key)
		}
		return settings.Entry{}, fmt.Errorf("get config %s: %w", key, err)
	}
	var e settings.Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return settings.Entry{}, fmt.Errorf("decode config %s: %w", key, err)
	}
	return e, nil
}

func (r *ConfigRepo) GetMany(ctx context.Context, keys []string) ([]settings.Entry, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	quoted := make([]string, len(keys))
	for i, k := range keys {
		quoted[i] = `"` + strings.ReplaceAll(k, `"`, `\"`) + `"`
	}
	return r.list(ctx, ports.SelectOptions{
		Filters: []ports.Filter{{Column: "chave", Op: ports.OpIn, Value: strings.Join(quoted, ",")}},
	})
}

func (r *ConfigRepo) ByCategory(ctx context.Context, category string) ([]settings.Entry, error) {
	return r.list(ctx, ports.SelectOptions{Filters: []ports.Filter{ports.Eq("categoria", category)}})
}

func (r *ConfigRepo) List(ctx context.Context) ([]settings.Entry, error) {
	return r.list(ctx, ports.SelectOptions{Order: "categoria.asc,chave.asc"})
}

// Upsert updates the value of an existing key or inserts a new row.
func (r *ConfigRepo) Upsert(ctx context.Context, e settings.Entry) error {
	now := r.now().UTC()
	_, err := r.Get(ctx, e.Key)
	switch {
	case err == nil:
		_, err = r.s.updateWhere(ctx, configTable, "chave", e.Key, map[string]any{
			"valor":      e.Value,
			"updated_at": now,
		})
	case apperrors.IsNotFound(err):
		e.UpdatedAt = now
		_, err = r.s.insert(ctx, configTable, []settings.Entry{e})
	}
	if err != nil {
		return fmt.Errorf("save config %s: %w", e.Key, err)
	}
	return nil
}

func (r *ConfigRepo) Delete(ctx context.Context, key string) error {
	if err := r.s.deleteWhere(ctx, configTable, "chave", key); err != nil {
		return fmt.Errorf("delete config %s: %w", key, err)
	}
	return nil
}

func (r *ConfigRepo) list(ctx context.Context, opts ports.SelectOptions) ([]settings.Entry, error) {
	raw, err := r.s.Select(ctx, configTable, opts)
	if err != nil {
		return nil, fmt.Errorf("list config: %w", err)
	}
	var out []settings.Entry
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode config rows: %w", err)
	}
	return out, nil
}
