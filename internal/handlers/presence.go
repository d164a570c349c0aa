package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"liveqa/internal/viewmodel"
	"liveqa/pkg/realtime"
	"liveqa/views/components"
)

// Counter reports the durable participant count of an event.
type Counter interface {
	CurrentCount(ctx context.Context, eventID string) (int, error)
}

// PresenceHandler serves health and participant count fragments.
type PresenceHandler struct {
	counter Counter
	reg     *realtime.Registry
}

// NewPresenceHandler creates a PresenceHandler reading durable counts from
// counter and live connections from reg.
func NewPresenceHandler(counter Counter, reg *realtime.Registry) *PresenceHandler {
	return &PresenceHandler{counter: counter, reg: reg}
}

// RegisterRoutes mounts /healthz and the participants fragment.
func (h *PresenceHandler) RegisterRoutes(r chi.Router) {
	r.Get("/healthz", h.health)
	r.Get("/events/{id}/participants", h.participantsFragment)
}

func (h *PresenceHandler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, viewmodel.HealthStatus{
		Status:      "ok",
		Connections: h.reg.Len(),
	})
}

func (h *PresenceHandler) participantsFragment(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "id")
	n, err := h.counter.CurrentCount(r.Context(), eventID)
	if err != nil {
		http.Error(w, "participants unavailable", http.StatusServiceUnavailable)
		return
	}
	render(w, r, components.PresenceFragment(viewmodel.PresenceFragment{
		EventID:      eventID,
		Participants: n,
		Connected:    h.reg.RoomSize(realtime.EventRoom(eventID)),
	}))
}
