package httpx

import (
	"log/slog"
	"net/http"

	"github.com/gelatohub/painel/internal/domain/plan"
	"github.com/gelatohub/painel/internal/ports"
	"github.com/gelatohub/painel/internal/service"
)

// LimitsHandlers reports plan usage for the caller.
type LimitsHandlers struct {
	Gatekeeper *service.Gatekeeper
	Records    ports.RecordBackend
	Logger     *slog.Logger
}

// service builds a usage service bound to the request's caller.
func (h *LimitsHandlers) service(r *http.Request) *service.PlanLimitsService {
	creds := credentials(r.Context())
	opts := service.PlanLimitsOptions{Logger: h.Logger}
	if h.Gatekeeper != nil {
		opts.Session = h.Gatekeeper.Client(creds)
	}
	if h.Records != nil && creds.AccessToken != "" {
		opts.Records = h.Records.Records(creds.AccessToken)
	}
	return service.NewPlanLimitsService(opts)
}

// Summary returns the plan, the limits and the usage of every resource.
// GET /api/limits.
func (h *LimitsHandlers) Summary(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.service(r).Summary(r.Context()))
}

// Check returns the usage of one resource.
// GET /api/limits/{resource}.
func (h *LimitsHandlers) Check(w http.ResponseWriter, r *http.Request) {
	u, err := h.service(r).Check(r.Context(), plan.Resource(r.PathValue("resource")))
	if err != nil {
		WriteError(w, ErrorParams{Code: http.StatusNotFound, ErrCode: "unknown_resource", Err: err})
		return
	}
	WriteJSON(w, http.StatusOK, u)
}
