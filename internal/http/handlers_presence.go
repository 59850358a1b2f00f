package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/gelatohub/painel/internal/domain/presence"
)

// PresenceService tracks who is online.
type PresenceService interface {
	Track(ctx context.Context, e presence.Entry)
	Untrack(ctx context.Context, userID string)
	Online(ctx context.Context) presence.Snapshot
}

// PresenceHandlers records heartbeats and lists online users.
type PresenceHandlers struct {
	Svc PresenceService
}

type heartbeatRequest struct {
	Page string `json:"page,omitempty" validate:"max=255"`
}

// Heartbeat marks the caller as online on a page. Tracking failures never
// fail the request.
// POST /api/presence.
func (h *PresenceHandlers) Heartbeat(w http.ResponseWriter, r *http.Request) {
	var req heartbeatRequest
	if r.ContentLength != 0 && !DecodeAndValidate(w, r, &req) {
		return
	}
	if p, ok := ProfileFromContext(r.Context()); ok {
		email := p.Email
		if email == "" {
			email = p.AuthEmail
		}
		h.Svc.Track(r.Context(), presence.Entry{
			UserID:   p.ID,
			Email:    email,
			OnlineAt: time.Now().UTC(),
			Page:     req.Page,
		})
	}
	w.WriteHeader(http.StatusNoContent)
}

// Leave removes the caller from the online set.
// DELETE /api/presence.
func (h *PresenceHandlers) Leave(w http.ResponseWriter, r *http.Request) {
	if p, ok := ProfileFromContext(r.Context()); ok {
		h.Svc.Untrack(r.Context(), p.ID)
	}
	w.WriteHeader(http.StatusNoContent)
}

// Online lists online users.
// GET /api/presence.
func (h *PresenceHandlers) Online(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.Svc.Online(r.Context()))
}
