package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gelatohub/painel/internal/domain/billing"
	apperrors "github.com/gelatohub/painel/internal/errors"
	"github.com/gelatohub/painel/internal/ports"
	"github.com/gelatohub/painel/internal/service"
)

const (
	msgProxyNotConfigured    = "AbacatePay API key not configured"
	msgProxyUpstream         = "Erro ao comunicar com AbacatePay"
	msgFunctionNotConfigured = "ABACATEPAY_API_KEY não configurada"
)

// PixService is the payment relay used by the handlers.
type PixService interface {
	Configured() bool
	CreateQRCode(ctx context.Context, payload json.RawMessage) (ports.ProviderResponse, error)
	CheckQRCode(ctx context.Context, id string) (ports.ProviderResponse, error)
	CreateCharge(ctx context.Context, req billing.ChargeRequest) (ports.ProviderResponse, error)
	CheckCharge(ctx context.Context, billingID string) (ports.ProviderResponse, error)
}

// PixHandlers relays Pix requests to the payment provider.
type PixHandlers struct {
	Svc    PixService
	Logger *slog.Logger
}

func (h *PixHandlers) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

func (h *PixHandlers) configured() bool { return h.Svc != nil && h.Svc.Configured() }

// Create forwards a QR-code creation payload.
// POST /api/pix-create.
func (h *PixHandlers) Create(w http.ResponseWriter, r *http.Request) {
	if !h.configured() {
		WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": msgProxyNotConfigured})
		return
	}
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err != nil {
		WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	resp, err := h.Svc.CreateQRCode(r.Context(), payload)
	h.relay(w, r, resp, err)
}

// Status fetches the status of a QR code.
// GET /api/pix-status?id=.
func (h *PixHandlers) Status(w http.ResponseWriter, r *http.Request) {
	if !h.configured() {
		WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": msgProxyNotConfigured})
		return
	}
	resp, err := h.Svc.CheckQRCode(r.Context(), r.URL.Query().Get("id"))
	h.relay(w, r, resp, err)
}

func (h *PixHandlers) relay(w http.ResponseWriter, r *http.Request, resp ports.ProviderResponse, err error) {
	if err == nil {
		writeProviderResponse(w, resp)
		return
	}
	if apperrors.IsValidation(err) {
		WriteJSON(w, http.StatusBadRequest, map[string]string{"error": validationText(err)})
		return
	}
	h.logger().ErrorContext(r.Context(), "payment proxy failed", "path", r.URL.Path, "error", err)
	WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": msgProxyUpstream, "details": err.Error()})
}

type checkChargeRequest struct {
	BillingID string `json:"billingId"`
}

// CreateCharge builds a one-time Pix billing for the premium plan.
// POST /functions/v1/create-pix-charge.
func (h *PixHandlers) CreateCharge(w http.ResponseWriter, r *http.Request) {
	if !h.configured() {
		WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": msgFunctionNotConfigured})
		return
	}
	var req billing.ChargeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(&req); err != nil {
		WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	resp, err := h.Svc.CreateCharge(r.Context(), req)
	h.functionResult(w, r, resp, err)
}

// CheckCharge fetches a billing.
// POST /functions/v1/check-pix-status.
func (h *PixHandlers) CheckCharge(w http.ResponseWriter, r *http.Request) {
	if !h.configured() {
		WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": msgFunctionNotConfigured})
		return
	}
	var req checkChargeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(&req); err != nil {
		WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	resp, err := h.Svc.CheckCharge(r.Context(), req.BillingID)
	h.functionResult(w, r, resp, err)
}

func (h *PixHandlers) functionResult(w http.ResponseWriter, r *http.Request, resp ports.ProviderResponse, err error) {
	switch {
	case err == nil:
		writeProviderResponse(w, resp)
	case apperrors.IsValidation(err):
		WriteJSON(w, http.StatusBadRequest, map[string]string{"error": validationText(err)})
	default:
		h.logger().ErrorContext(r.Context(), "payment function failed", "path", r.URL.Path, "error", err)
		WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

// writeProviderResponse relays the provider's status and body unchanged.
func writeProviderResponse(w http.ResponseWriter, resp ports.ProviderResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.Status)
	_, _ = w.Write(resp.Body)
}

func validationText(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

// pix CORS profiles: the browser proxy only sends JSON, the edge functions
// also accept the backend client headers.
var (
	proxyCORS    = CORSConfig{AllowHeaders: "Content-Type"}
	functionCORS = CORSConfig{AllowHeaders: "authorization, x-client-info, apikey, content-type", PreflightBody: "ok"}
)

var _ PixService = (*service.PixService)(nil)
