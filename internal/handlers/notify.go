package handlers

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"liveqa/internal/notify"
)

const maxNotifyBody = 1 << 20

// Notifier is what the mutation endpoint hands committed writes to.
type Notifier interface {
	Notify(ctx context.Context, mut notify.Mutation)
}

// NotifyHandler is the call-in surface for the HTTP mutation layer: after a
// write commits, it posts the mutation here.
type NotifyHandler struct {
	notifier Notifier
	token    string
	log      *slog.Logger
}

// NewNotifyHandler creates a NotifyHandler that accepts requests bearing
// token and passes decoded mutations to n.
func NewNotifyHandler(n Notifier, token string, log *slog.Logger) *NotifyHandler {
	if log == nil {
		log = slog.Default()
	}
	return &NotifyHandler{notifier: n, token: token, log: log}
}

// RegisterRoutes mounts POST /notify. Without a token the endpoint is not
// mounted at all.
func (h *NotifyHandler) RegisterRoutes(r chi.Router) {
	if h.token == "" {
		h.log.Warn("notify: NOTIFY_TOKEN empty, POST /notify disabled")
		return
	}
	r.Post("/notify", h.notify)
}

func (h *NotifyHandler) notify(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		w.Header().Set("WWW-Authenticate", "Bearer")
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var mut notify.Mutation
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxNotifyBody))
	if err := dec.Decode(&mut); err != nil {
		http.Error(w, "invalid mutation", http.StatusBadRequest)
		return
	}
	if mut.Kind == "" {
		http.Error(w, "mutation kind required", http.StatusBadRequest)
		return
	}

	// The write already committed; the fan-out outlives the caller.
	h.notifier.Notify(context.WithoutCancel(r.Context()), mut)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (h *NotifyHandler) authorized(r *http.Request) bool {
	got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(strings.TrimSpace(got)), []byte(h.token)) == 1
}
