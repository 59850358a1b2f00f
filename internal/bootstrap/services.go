package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/gelatohub/painel/config"
	"github.com/gelatohub/painel/internal/adapters/abacatepay"
	redisadapter "github.com/gelatohub/painel/internal/adapters/redis"
	"github.com/gelatohub/painel/internal/adapters/s3storage"
	"github.com/gelatohub/painel/internal/adapters/supabase"
	"github.com/gelatohub/painel/internal/data"
	"github.com/gelatohub/painel/internal/observability/metrics"
	"github.com/gelatohub/painel/internal/ports"
	"github.com/gelatohub/painel/internal/service"
)

// ServiceContainer holds the process-wide handles. Fields are nil when the
// collaborator behind them is not configured.
type ServiceContainer struct {
	Backend       *supabase.Client
	Auth          *service.AuthService
	Gatekeeper    *service.Gatekeeper
	Config        *service.ConfigService
	Records       *service.RecordService
	Presence      *service.PresenceService
	Files         *service.FileService
	Pix           *service.PixService
	Observability ObservabilityContainer
}

// ObservabilityContainer groups shared observability dependencies.
type ObservabilityContainer struct {
	Registry      *prometheus.Registry
	Metrics       *metrics.Metrics
	MetricsConfig config.ObservabilityMetricsConfig
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

func buildObservability(cfg config.ObservabilityMetricsConfig) ObservabilityContainer {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return ObservabilityContainer{
		Registry:      registry,
		Metrics:       metrics.New(registry),
		MetricsConfig: cfg,
	}
}

func tracedTransport() http.RoundTripper {
	return otelhttp.NewTransport(http.DefaultTransport)
}

// newBackend builds the Supabase client, or returns nil when the project URL
// or anon key is missing.
func newBackend(ctx context.Context, cfg config.BackendConfig, m *metrics.Metrics, logger *slog.Logger) (*supabase.Client, error) {
	if !cfg.IsConfigured() {
		logger.WarnContext(ctx, "Supabase not configured; access gate disabled")
		return nil, nil
	}

	var verifier ports.TokenVerifier
	switch {
	case cfg.JWKSEnabled:
		v, err := supabase.NewTokenVerifier(ctx, supabase.TokenVerifierOptions{JWKSURL: supabase.JWKSURL(cfg.URL)})
		if err != nil {
			return nil, fmt.Errorf("token verifier: %w", err)
		}
		verifier = v
	case cfg.JWTSecret != "":
		v, err := supabase.NewTokenVerifier(ctx, supabase.TokenVerifierOptions{Secret: cfg.JWTSecret})
		if err != nil {
			return nil, fmt.Errorf("token verifier: %w", err)
		}
		verifier = v
	}

	client, err := supabase.New(supabase.Options{
		URL:       cfg.URL,
		AnonKey:   cfg.AnonKey,
		Timeout:   cfg.Timeout,
		Verifier:  verifier,
		Transport: tracedTransport(),
		Logger:    logger,
		Metrics:   m,
	})
	if err != nil {
		return nil, fmt.Errorf("supabase client: %w", err)
	}
	return client, nil
}

//nolint:ireturn // nil interface when no repository can be built.
func newConfigRepo(db *sql.DB, backend *supabase.Client) ports.ConfigRepository {
	switch {
	case db != nil:
		return data.NewConfigRepo(db)
	case backend != nil:
		return supabase.NewConfigRepo(backend, "")
	default:
		return nil
	}
}

//nolint:ireturn // nil interface when storage is not configured.
func newObjectStorage(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (ports.ObjectStorage, error) {
	if !cfg.IsConfigured() {
		logger.InfoContext(ctx, "file storage not configured")
		return nil, nil
	}
	store, err := s3storage.New(ctx, s3storage.Options{
		Endpoint:        cfg.Endpoint,
		Region:          cfg.Region,
		AccessKeyID:     cfg.AccessKeyID,
		SecretAccessKey: cfg.SecretAccessKey,
	})
	if err != nil {
		return nil, fmt.Errorf("object storage: %w", err)
	}
	return store, nil
}

func newPixService(cfg config.PaymentConfig, m *metrics.Metrics, logger *slog.Logger) (*service.PixService, error) {
	var gateway ports.PaymentGateway
	if cfg.APIKey != "" {
		client, err := abacatepay.New(abacatepay.Options{
			APIKey:    cfg.APIKey,
			BaseURL:   cfg.APIURL,
			Transport: tracedTransport(),
			Metrics:   m,
		})
		if err != nil {
			return nil, fmt.Errorf("abacatepay client: %w", err)
		}
		gateway = client
	}
	return service.NewPixService(service.PixServiceOptions{
		Gateway:    gateway,
		StatusExpr: cfg.StatusExpr,
		Logger:     logger,
		Metrics:    m,
	})
}

// NewServices builds every process-wide handle once.
func NewServices(ctx context.Context, deps *ServiceDeps) (ServiceContainer, error) {
	if deps == nil || deps.Config == nil {
		return ServiceContainer{}, errors.New("service deps with config are required")
	}
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	obs := buildObservability(cfg.Observability.Metrics)
	m := obs.Metrics

	backend, err := newBackend(ctx, cfg.Backend, m, logger)
	if err != nil {
		return ServiceContainer{}, err
	}
	// ports handles stay nil interfaces when the backend is absent.
	var (
		sessionBackend ports.Backend
		recordBackend  ports.RecordBackend
	)
	if backend != nil {
		sessionBackend, recordBackend = backend, backend
	}

	storage, err := newObjectStorage(ctx, cfg.Storage, logger)
	if err != nil {
		return ServiceContainer{}, err
	}

	pix, err := newPixService(cfg.Payment, m, logger)
	if err != nil {
		return ServiceContainer{}, err
	}

	auth, err := BuildAuthService(AuthConfig{
		Backend:       backend,
		RedisClient:   deps.RedisClient,
		SessionTTL:    cfg.Backend.SessionTTL,
		EncryptionKey: cfg.Backend.SessionEncryptionKey,
		Logger:        logger,
	})
	if err != nil {
		return ServiceContainer{}, err
	}

	sc := ServiceContainer{
		Backend: backend,
		Auth:    auth,
		Gatekeeper: service.NewGatekeeper(service.GatekeeperOptions{
			Backend:   sessionBackend,
			Logger:    logger,
			Metrics:   m,
			LoginPath: cfg.Backend.LoginPath,
		}),
		Config: service.NewConfigService(service.ConfigServiceOptions{
			Repo:      newConfigRepo(deps.DB, backend),
			CacheSize: cfg.Cache.Size,
			CacheTTL:  cfg.Cache.TTL,
			Logger:    logger,
			Metrics:   m,
		}),
		Records: service.NewRecordService(service.RecordServiceOptions{
			Backend: recordBackend,
			Tables:  cfg.Records.Tables,
			Logger:  logger,
		}),
		Files: service.NewFileService(service.FileServiceOptions{
			Storage: storage,
			BaseURL: cfg.Backend.URL,
		}),
		Pix:           pix,
		Observability: obs,
	}

	if deps.RedisClient != nil {
		sc.Presence, err = service.NewPresenceService(service.PresenceServiceOptions{
			Store:         redisadapter.NewPresenceStore(deps.RedisClient),
			TTL:           cfg.Presence.TTL,
			SweepInterval: cfg.Presence.SweepInterval,
			Logger:        logger,
			Metrics:       m,
		})
		if err != nil {
			return ServiceContainer{}, fmt.Errorf("presence service: %w", err)
		}
	}

	return sc, nil
}
