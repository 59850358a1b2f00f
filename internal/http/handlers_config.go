package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gelatohub/painel/internal/domain/settings"
	"github.com/gelatohub/painel/internal/service"
)

// ConfigService is the configuration helper used by the handlers.
type ConfigService interface {
	Get(ctx context.Context, key string, useCache bool) (string, bool)
	ByCategory(ctx context.Context, category string) map[string]string
	List(ctx context.Context) ([]settings.Entry, error)
	Set(ctx context.Context, key string, value any, description, category string) error
	Delete(ctx context.Context, key string) error
	Derived(ctx context.Context) service.DerivedCosts
}

// ConfigHandlers exposes business configuration.
type ConfigHandlers struct {
	Svc ConfigService
}

type setConfigRequest struct {
	Value       json.RawMessage `json:"valor" validate:"required"`
	Description string          `json:"descricao,omitempty" validate:"max=255"`
	Category    string          `json:"categoria,omitempty" validate:"max=64"`
}

// Get returns one value.
// GET /api/config/{key}.
func (h *ConfigHandlers) Get(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	v, ok := h.Svc.Get(r.Context(), key, r.URL.Query().Get("fresh") == "")
	if !ok {
		WriteError(w, ErrorParams{Code: http.StatusNotFound, ErrCode: "config_not_found", Err: errors.New("configuração não encontrada")})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"chave": key, "valor": v})
}

// List returns all entries, or the values of one category when ?category= is set.
// GET /api/config.
func (h *ConfigHandlers) List(w http.ResponseWriter, r *http.Request) {
	if cat := r.URL.Query().Get("category"); cat != "" {
		WriteJSON(w, http.StatusOK, h.Svc.ByCategory(r.Context(), cat))
		return
	}
	entries, err := h.Svc.List(r.Context())
	if err != nil {
		WriteAppError(w, err, "list_failed")
		return
	}
	if entries == nil {
		entries = []settings.Entry{}
	}
	WriteJSON(w, http.StatusOK, map[string]any{"configuracoes": entries})
}

// Set creates or updates a value.
// PUT /api/config/{key}.
func (h *ConfigHandlers) Set(w http.ResponseWriter, r *http.Request) {
	var req setConfigRequest
	if !DecodeAndValidate(w, r, &req) {
		return
	}
	var value any
	if err := json.Unmarshal(req.Value, &value); err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_json", Err: err})
		return
	}
	switch value.(type) {
	case string, float64, bool:
	default:
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "validation_failed", Err: errors.New("valor must be a string, number or boolean")})
		return
	}

	key := r.PathValue("key")
	if err := h.Svc.Set(r.Context(), key, value, req.Description, req.Category); err != nil {
		WriteAppError(w, err, "update_failed")
		return
	}
	v, _ := h.Svc.Get(r.Context(), key, true)
	WriteJSON(w, http.StatusOK, map[string]string{"chave": key, "valor": v})
}

// Delete removes a value.
// DELETE /api/config/{key}.
func (h *ConfigHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Svc.Delete(r.Context(), r.PathValue("key")); err != nil {
		WriteAppError(w, err, "delete_failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Derived returns the cost figures computed from configuration.
// GET /api/config/derived.
func (h *ConfigHandlers) Derived(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.Svc.Derived(r.Context()))
}
