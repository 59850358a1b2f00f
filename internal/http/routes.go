package httpx

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	domainauth "github.com/gelatohub/painel/internal/domain/auth"
	"github.com/gelatohub/painel/internal/ports"
	"github.com/gelatohub/painel/internal/service"
)

// RouterServices holds all the services needed by the HTTP router. Nil
// services leave their routes unregistered.
type RouterServices struct {
	Auth       AuthServiceInterface
	Gatekeeper *service.Gatekeeper

	Config   ConfigService
	Records  RecordService
	Backend  ports.RecordBackend
	Presence PresenceService
	Files    FileService
	Pix      PixService

	CookieDomain     string
	OAuthRedirectURL string

	// MetricsRegistry, when set, is exposed on MetricsPath.
	MetricsRegistry *prometheus.Registry
	MetricsPath     string

	ReadinessChecks map[string]ReadinessCheck

	Logger *slog.Logger
}

// NewRouter creates and configures a new HTTP router with browser middleware.
func NewRouter(services RouterServices) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("GET /readyz", readyHandler(services.ReadinessChecks))
	if services.MetricsRegistry != nil {
		path := services.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		mux.Handle("GET "+path, promhttp.HandlerFor(services.MetricsRegistry, promhttp.HandlerOpts{}))
	}

	gd := GateDeps{
		Sessions:     services.Auth,
		Gatekeeper:   services.Gatekeeper,
		CookieDomain: services.CookieDomain,
		Logger:       services.Logger,
	}
	anyRole := ProtectPage(gd, domainauth.AnyRole)
	admin := RequireAdmin(gd)

	if services.Auth != nil {
		registerAuthRoutes(mux, &AuthHandlers{
			Svc:              services.Auth,
			Gatekeeper:       services.Gatekeeper,
			CookieDomain:     services.CookieDomain,
			OAuthRedirectURL: services.OAuthRedirectURL,
			Logger:           services.Logger,
		}, anyRole)
	}
	if services.Config != nil {
		registerConfigRoutes(mux, &ConfigHandlers{Svc: services.Config}, anyRole, admin)
	}
	if services.Records != nil {
		registerRecordRoutes(mux, &RecordHandlers{Svc: services.Records}, anyRole)
	}
	registerLimitsRoutes(mux, &LimitsHandlers{
		Gatekeeper: services.Gatekeeper,
		Records:    services.Backend,
		Logger:     services.Logger,
	}, anyRole)
	if services.Presence != nil {
		registerPresenceRoutes(mux, &PresenceHandlers{Svc: services.Presence}, anyRole, admin)
	}
	if services.Files != nil {
		registerFileRoutes(mux, &FileHandlers{Svc: services.Files}, anyRole)
	}
	registerPixRoutes(mux, &PixHandlers{Svc: services.Pix, Logger: services.Logger})

	return BrowserDetection()(mux)
}

type middleware = func(http.Handler) http.Handler

func registerAuthRoutes(mux *http.ServeMux, h *AuthHandlers, anyRole middleware) {
	mux.HandleFunc("POST /auth/login", h.Login)
	mux.HandleFunc("POST /auth/signup", h.SignUp)
	mux.HandleFunc("POST /auth/logout", h.Logout)
	mux.HandleFunc("GET /auth/status", h.Status)
	mux.Handle("GET /auth/me", anyRole(http.HandlerFunc(h.Me)))
	mux.HandleFunc("GET /auth/is-admin", h.IsAdmin)
	mux.HandleFunc("GET /auth/has-role", h.HasRole)
	mux.HandleFunc("GET /auth/oauth/callback", h.OAuthCallback)
	mux.HandleFunc("GET /auth/oauth/{provider}", h.OAuthBegin)
}

func registerConfigRoutes(mux *http.ServeMux, h *ConfigHandlers, anyRole, admin middleware) {
	mux.Handle("GET /api/config", anyRole(http.HandlerFunc(h.List)))
	mux.Handle("GET /api/config/derived", anyRole(http.HandlerFunc(h.Derived)))
	mux.Handle("GET /api/config/{key}", anyRole(http.HandlerFunc(h.Get)))
	mux.Handle("PUT /api/config/{key}", admin(http.HandlerFunc(h.Set)))
	mux.Handle("DELETE /api/config/{key}", admin(http.HandlerFunc(h.Delete)))
}

func registerRecordRoutes(mux *http.ServeMux, h *RecordHandlers, anyRole middleware) {
	mux.Handle("GET /api/records/{table}", anyRole(http.HandlerFunc(h.List)))
	mux.Handle("POST /api/records/{table}", anyRole(http.HandlerFunc(h.Create)))
	mux.Handle("GET /api/records/{table}/{id}", anyRole(http.HandlerFunc(h.Get)))
	mux.Handle("PATCH /api/records/{table}/{id}", anyRole(http.HandlerFunc(h.Update)))
	mux.Handle("DELETE /api/records/{table}/{id}", anyRole(http.HandlerFunc(h.Delete)))
}

func registerLimitsRoutes(mux *http.ServeMux, h *LimitsHandlers, anyRole middleware) {
	mux.Handle("GET /api/limits", anyRole(http.HandlerFunc(h.Summary)))
	mux.Handle("GET /api/limits/{resource}", anyRole(http.HandlerFunc(h.Check)))
}

func registerPresenceRoutes(mux *http.ServeMux, h *PresenceHandlers, anyRole, admin middleware) {
	mux.Handle("POST /api/presence", anyRole(http.HandlerFunc(h.Heartbeat)))
	mux.Handle("DELETE /api/presence", anyRole(http.HandlerFunc(h.Leave)))
	mux.Handle("GET /api/presence", admin(http.HandlerFunc(h.Online)))
}

func registerFileRoutes(mux *http.ServeMux, h *FileHandlers, anyRole middleware) {
	mux.Handle("PUT /api/files/{bucket}/{path...}", anyRole(http.HandlerFunc(h.Upload)))
	mux.Handle("DELETE /api/files/{bucket}/{path...}", anyRole(http.HandlerFunc(h.Delete)))
	mux.Handle("GET /api/files/{bucket}/{path...}", anyRole(http.HandlerFunc(h.URL)))
}

// registerPixRoutes mounts the payment proxies without a method in the
// pattern; CORS answers preflights and rejects other methods.
func registerPixRoutes(mux *http.ServeMux, h *PixHandlers) {
	mux.Handle("/api/pix-create", CORS(proxyCORS, http.MethodPost, h.Create))
	mux.Handle("/api/pix-status", CORS(proxyCORS, http.MethodGet, h.Status))
	mux.Handle("/functions/v1/create-pix-charge", CORS(functionCORS, http.MethodPost, h.CreateCharge))
	mux.Handle("/functions/v1/check-pix-status", CORS(functionCORS, http.MethodPost, h.CheckCharge))
}
