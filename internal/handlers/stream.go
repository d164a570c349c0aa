package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"liveqa/internal/observability"
	"liveqa/internal/qa"
)

// stream is the SSE transport for clients that cannot open a socket. The
// viewer joins the event on connect; identity comes from the query string.
func (h *LiveHandler) stream(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "id")
	if strings.TrimSpace(eventID) == "" {
		http.NotFound(w, r)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	c := h.reg.Connect()
	defer h.reg.Disconnect(c)

	ctx := observability.WithConnID(r.Context(), c.ID)
	claimed := qa.Identity{
		UserID:    r.URL.Query().Get("userId"),
		SessionID: r.URL.Query().Get("sessionId"),
	}
	h.join(ctx, r, c, eventID, claimed)

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case f, ok := <-c.Outbox():
			if !ok {
				return
			}
			writeSSE(w, f.Kind, string(f.Data))
			flusher.Flush()
		case <-keepAlive.C:
			_, _ = w.Write([]byte(": keepalive\n\n"))
			flusher.Flush()
		}
	}
}
