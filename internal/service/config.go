package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/gelatohub/painel/internal/domain/settings"
	apperrors "github.com/gelatohub/painel/internal/errors"
	"github.com/gelatohub/painel/internal/observability/metrics"
	"github.com/gelatohub/painel/internal/ports"
)

// ConfigServiceOptions groups dependencies for ConfigService.
type ConfigServiceOptions struct {
	// Repo is nil when no backend is configured; lookups then yield defaults.
	Repo      ports.ConfigRepository
	CacheSize int
	CacheTTL  time.Duration
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
}

// ConfigService reads and writes business configuration with an in-process
// cache. Read failures never propagate: callers get "missing" and defaults.
type ConfigService struct {
	repo    ports.ConfigRepository
	cache   *expirable.LRU[string, string]
	group   singleflight.Group
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewConfigService constructs a ConfigService.
func NewConfigService(opts ConfigServiceOptions) *ConfigService {
	size := opts.CacheSize
	if size <= 0 {
		size = 256
	}
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ConfigService{
		repo:    opts.Repo,
		cache:   expirable.NewLRU[string, string](size, nil, ttl),
		logger:  logger,
		metrics: opts.Metrics,
	}
}

// Get returns the value stored under key. ok is false when the key does not
// exist or the lookup failed.
func (s *ConfigService) Get(ctx context.Context, key string, useCache bool) (string, bool) {
	if useCache {
		if v, ok := s.cache.Get(key); ok {
			s.metrics.ConfigCache(true)
			return v, true
		}
		s.metrics.ConfigCache(false)
	}
	if s.repo == nil {
		s.logger.ErrorContext(ctx, "config repository not configured", "key", key)
		return "", false
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		e, err := s.repo.Get(ctx, key)
		if err != nil {
			return "", err
		}
		return e.Value, nil
	})
	if err != nil {
		if apperrors.IsNotFound(err) {
			s.logger.WarnContext(ctx, "config key not found", "key", key)
		} else {
			s.logger.ErrorContext(ctx, "config lookup failed", "key", key, "error", err)
		}
		return "", false
	}

	value, _ := v.(string)
	if value == "" {
		return "", false
	}
	if useCache {
		s.cache.Add(key, value)
	}
	return value, true
}

// Number returns the numeric value of key, or def when the key is missing,
// unparsable or zero.
func (s *ConfigService) Number(ctx context.Context, key string, def decimal.Decimal) decimal.Decimal {
	v, ok := s.Get(ctx, key, true)
	if !ok {
		return def
	}
	n, err := decimal.NewFromString(v)
	if err != nil || n.IsZero() {
		return def
	}
	return n
}

// Bool returns the boolean value of key, or def when the key is missing.
func (s *ConfigService) Bool(ctx context.Context, key string, def bool) bool {
	v, ok := s.Get(ctx, key, true)
	if !ok {
		return def
	}
	return settings.ParseBool(v)
}

// GetMany returns the values of the given keys that exist and refreshes the cache.
func (s *ConfigService) GetMany(ctx context.Context, keys []string) map[string]string {
	if s.repo == nil || len(keys) == 0 {
		return map[string]string{}
	}
	entries, err := s.repo.GetMany(ctx, keys)
	if err != nil {
		s.logger.ErrorContext(ctx, "config batch lookup failed", "keys", keys, "error", err)
		return map[string]string{}
	}
	return s.collect(entries)
}

// ByCategory returns every value in category and refreshes the cache.
func (s *ConfigService) ByCategory(ctx context.Context, category string) map[string]string {
	if s.repo == nil {
		return map[string]string{}
	}
	entries, err := s.repo.ByCategory(ctx, category)
	if err != nil {
		s.logger.ErrorContext(ctx, "config category lookup failed", "category", category, "error", err)
		return map[string]string{}
	}
	return s.collect(entries)
}

// List returns every stored entry.
func (s *ConfigService) List(ctx context.Context) ([]settings.Entry, error) {
	if s.repo == nil {
		return nil, apperrors.Unavailable("configuração indisponível")
	}
	entries, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list config: %w", err)
	}
	return entries, nil
}

// Set stores value under key. An existing key only has its value updated;
// a new key is created with the inferred type, description and category.
func (s *ConfigService) Set(ctx context.Context, key string, value any, description, category string) error {
	if key == "" {
		return apperrors.ValidationField("chave", "chave é obrigatória")
	}
	if s.repo == nil {
		return apperrors.Unavailable("configuração indisponível")
	}
	e := settings.NewEntry(key, value, description, category)
	if err := s.repo.Upsert(ctx, e); err != nil {
		return fmt.Errorf("save config %q: %w", key, err)
	}
	s.cache.Add(key, e.Value)
	return nil
}

// Delete removes key.
func (s *ConfigService) Delete(ctx context.Context, key string) error {
	if s.repo == nil {
		return apperrors.Unavailable("configuração indisponível")
	}
	if err := s.repo.Delete(ctx, key); err != nil {
		return fmt.Errorf("delete config %q: %w", key, err)
	}
	s.cache.Remove(key)
	return nil
}

// ClearCache drops every cached value.
func (s *ConfigService) ClearCache() {
	s.cache.Purge()
	s.logger.Info("config cache cleared")
}

// Preload warms the cache with the keys used by cost calculations.
func (s *ConfigService) Preload(ctx context.Context) {
	loaded := s.GetMany(ctx, settings.PreloadKeys())
	s.logger.InfoContext(ctx, "config preloaded", "count", len(loaded))
}

// Cost defaults used when the configuration is missing.
var (
	defaultPesoBotijao  = decimal.NewFromInt(13)
	defaultPrecoBotijao = decimal.NewFromInt(110)
	defaultMaoObraHora  = decimal.NewFromInt(25)
	defaultMargemLucro  = decimal.NewFromInt(30)
	minutesPerHour      = decimal.NewFromInt(60)
)

// GasCostPerKg returns the gas cylinder price divided by its weight.
func (s *ConfigService) GasCostPerKg(ctx context.Context) decimal.Decimal {
	peso := s.Number(ctx, settings.KeyPesoBotijaoGas, defaultPesoBotijao)
	preco := s.Number(ctx, settings.KeyPrecoBotijaoGas, defaultPrecoBotijao)
	if !peso.IsPositive() {
		return decimal.Zero
	}
	return preco.Div(peso)
}

// LabourCostPerMinute returns the hourly labour cost divided by 60.
func (s *ConfigService) LabourCostPerMinute(ctx context.Context) decimal.Decimal {
	return s.Number(ctx, settings.KeyCustoMaoObraHora, defaultMaoObraHora).Div(minutesPerHour)
}

// DefaultMargin returns the default profit margin in percent.
func (s *ConfigService) DefaultMargin(ctx context.Context) decimal.Decimal {
	return s.Number(ctx, settings.KeyMargemLucroPadrao, defaultMargemLucro)
}

// DerivedCosts groups the values derived from configuration.
type DerivedCosts struct {
	GasPerKg        decimal.Decimal `json:"custo_gas_por_kg"`
	LabourPerMinute decimal.Decimal `json:"custo_mao_obra_por_minuto"`
	KWh             decimal.Decimal `json:"custo_kwh"`
	DefaultMargin   decimal.Decimal `json:"margem_lucro_padrao"`
}

// Derived computes every derived cost.
func (s *ConfigService) Derived(ctx context.Context) DerivedCosts {
	return DerivedCosts{
		GasPerKg:        s.GasCostPerKg(ctx).Round(4),
		LabourPerMinute: s.LabourCostPerMinute(ctx).Round(4),
		KWh:             s.Number(ctx, settings.KeyCustoKWh, decimal.Zero),
		DefaultMargin:   s.DefaultMargin(ctx),
	}
}

func (s *ConfigService) collect(entries []settings.Entry) map[string]string {
	out := make(map[string]string, len(entries))
	for _, e := range entries {
		out[e.Key] = e.Value
		s.cache.Add(e.Key, e.Value)
	}
	return out
}
