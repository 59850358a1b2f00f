package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/gelatohub/painel/config"
	httpx "github.com/gelatohub/painel/internal/http"
	"github.com/gelatohub/painel/internal/observability/metrics"
)

// HTTPServerConfig contains configuration for HTTP server.
type HTTPServerConfig struct {
	Config      *config.AppConfig
	Services    ServiceContainer
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// NewHTTPServer builds the HTTP server without starting it.
func NewHTTPServer(cfg *HTTPServerConfig) *http.Server {
	if cfg == nil {
		return nil
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	appCfg := cfg.Config
	if appCfg == nil {
		appCfg = &config.AppConfig{}
	}

	handler := buildHTTPHandler(httpHandlerConfig{
		Logger:   logger,
		Services: routerServices(cfg, appCfg, logger),
		HTTP:     appCfg.HTTP,
		Metrics:  cfg.Services.Observability.Metrics,
	})

	addr := appCfg.HTTP.Addr
	// Guard against empty addr to avoid listening on Go default
	if addr == "" {
		addr = ":8080"
	}
	return &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}

// routerServices copies the container into the router's interfaces, leaving
// absent handles as nil interfaces.
func routerServices(cfg *HTTPServerConfig, appCfg *config.AppConfig, logger *slog.Logger) httpx.RouterServices {
	sc := cfg.Services
	rs := httpx.RouterServices{
		Gatekeeper:       sc.Gatekeeper,
		CookieDomain:     appCfg.HTTP.CookieDomain,
		OAuthRedirectURL: appCfg.Backend.OAuthRedirectURL,
		ReadinessChecks:  readinessChecks(cfg.DB, cfg.RedisClient),
		Logger:           logger,
	}
	if sc.Auth != nil {
		rs.Auth = sc.Auth
	}
	if sc.Config != nil {
		rs.Config = sc.Config
	}
	if sc.Records != nil {
		rs.Records = sc.Records
	}
	if sc.Backend != nil {
		rs.Backend = sc.Backend
	}
	if sc.Presence != nil {
		rs.Presence = sc.Presence
	}
	if sc.Files != nil {
		rs.Files = sc.Files
	}
	if sc.Pix != nil {
		rs.Pix = sc.Pix
	}
	if sc.Observability.MetricsConfig.Enabled {
		rs.MetricsRegistry = sc.Observability.Registry
		rs.MetricsPath = sc.Observability.MetricsConfig.Path
	}
	return rs
}

func readinessChecks(db *sql.DB, rdb redis.UniversalClient) map[string]httpx.ReadinessCheck {
	checks := map[string]httpx.ReadinessCheck{}
	if db != nil {
		checks["postgres"] = db.PingContext
	}
	if rdb != nil {
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}
	return checks
}

type httpHandlerConfig struct {
	Logger   *slog.Logger
	Services httpx.RouterServices
	HTTP     config.HTTPConfig
	Metrics  *metrics.Metrics
}

func buildHTTPHandler(cfg httpHandlerConfig) http.Handler {
	router := httpx.NewRouter(cfg.Services)

	// Apply compression middleware first (innermost) so logging captures compressed sizes
	// Order: otelhttp -> Recover -> Logging -> Compression -> Router
	h := router
	if cfg.HTTP.CompressionEnabled {
		cfg.Logger.Info("HTTP compression enabled", "level", cfg.HTTP.CompressionLevel)
		h = httpx.Compression(httpx.CompressionConfig{Level: cfg.HTTP.CompressionLevel})(h)
	}

	h = httpx.Logging(cfg.Logger, cfg.Metrics)(h)
	h = httpx.Recover(cfg.Logger)(h)

	return otelhttp.NewHandler(h, "painel")
}

// ServeHTTP listens on the server address and serves until Shutdown. It
// returns nil once the server has been shut down.
func ServeHTTP(server *http.Server, logger *slog.Logger) error {
	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		return err
	}
	logger.Info("starting HTTP server", "addr", ln.Addr().String())
	if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ShutdownConfig contains dependencies for HTTP server shutdown.
type ShutdownConfig struct {
	Context context.Context
	Server  *http.Server
	Logger  *slog.Logger
}

// ShutdownHTTPServer gracefully shuts down the HTTP server.
func ShutdownHTTPServer(cfg ShutdownConfig) error {
	if cfg.Server == nil {
		return nil
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("shutting down HTTP server")
	}

	// Shutdown HTTP server with timeout
	shutdownCtx, cancel := context.WithTimeout(cfg.Context, 10*time.Second)
	defer cancel()

	if err := cfg.Server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("HTTP server stopped")
	}

	return nil
}
