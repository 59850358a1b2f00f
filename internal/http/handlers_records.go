package httpx

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gelatohub/painel/internal/service"
)

// RecordService performs row CRUD on behalf of a caller.
type RecordService interface {
	Where(ctx context.Context, c service.Caller, table string, filters map[string]string) (json.RawMessage, error)
	Get(ctx context.Context, c service.Caller, table, id string) (json.RawMessage, error)
	Insert(ctx context.Context, c service.Caller, table string, record map[string]any) (json.RawMessage, error)
	Update(ctx context.Context, c service.Caller, table, id string, patch map[string]any) (json.RawMessage, error)
	Delete(ctx context.Context, c service.Caller, table, id string) error
}

var _ RecordService = (*service.RecordService)(nil)

// RecordHandlers exposes allow-listed tables under /api/records.
type RecordHandlers struct {
	Svc RecordService
}

// List returns the rows of a table. Every query parameter becomes an
// equality filter.
// GET /api/records/{table}.
func (h *RecordHandlers) List(w http.ResponseWriter, r *http.Request) {
	var filters map[string]string
	if q := r.URL.Query(); len(q) > 0 {
		filters = make(map[string]string, len(q))
		for k := range q {
			filters[k] = q.Get(k)
		}
	}
	rows, err := h.Svc.Where(r.Context(), CallerFromContext(r.Context()), r.PathValue("table"), filters)
	if err != nil {
		WriteAppError(w, err, "list_failed")
		return
	}
	writeRaw(w, http.StatusOK, rows)
}

// Get returns one row by id.
// GET /api/records/{table}/{id}.
func (h *RecordHandlers) Get(w http.ResponseWriter, r *http.Request) {
	row, err := h.Svc.Get(r.Context(), CallerFromContext(r.Context()), r.PathValue("table"), r.PathValue("id"))
	if err != nil {
		WriteAppError(w, err, "get_failed")
		return
	}
	writeRaw(w, http.StatusOK, row)
}

// Create inserts a row.
// POST /api/records/{table}.
func (h *RecordHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if !DecodeJSON(w, r, &body) {
		return
	}
	row, err := h.Svc.Insert(r.Context(), CallerFromContext(r.Context()), r.PathValue("table"), body)
	if err != nil {
		WriteAppError(w, err, "create_failed")
		return
	}
	writeRaw(w, http.StatusCreated, row)
}

// Update patches a row.
// PATCH /api/records/{table}/{id}.
func (h *RecordHandlers) Update(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if !DecodeJSON(w, r, &body) {
		return
	}
	row, err := h.Svc.Update(r.Context(), CallerFromContext(r.Context()), r.PathValue("table"), r.PathValue("id"), body)
	if err != nil {
		WriteAppError(w, err, "update_failed")
		return
	}
	writeRaw(w, http.StatusOK, row)
}

// Delete removes a row.
// DELETE /api/records/{table}/{id}.
func (h *RecordHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Svc.Delete(r.Context(), CallerFromContext(r.Context()), r.PathValue("table"), r.PathValue("id")); err != nil {
		WriteAppError(w, err, "delete_failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeRaw(w http.ResponseWriter, code int, body json.RawMessage) {
	if len(body) == 0 {
		body = json.RawMessage("null")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(body)
}
