package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"liveqa/internal/qa"
	"liveqa/pkg/realtime"
)

// Authenticator resolves the authenticated user behind a request. When set on
// a LiveHandler, its answer replaces any userId a client claims on join.
type Authenticator func(r *http.Request) (userID string, ok bool)

// Joiner is notified after a connection joins an event room.
type Joiner interface {
	Joined(ctx context.Context, eventID string, id qa.Identity)
}

const (
	defaultPingInterval = 15 * time.Second
	keepAliveInterval   = 25 * time.Second
	writeWait           = 10 * time.Second
	maxMessageSize      = 4096
)

// LiveHandler serves the long-lived transports: a WebSocket at /ws and a
// per-event server-sent event stream.
type LiveHandler struct {
	reg          *realtime.Registry
	joiner       Joiner
	log          *slog.Logger
	pingInterval time.Duration
	authenticate Authenticator
	upgrader     websocket.Upgrader
}

// LiveOption configures a LiveHandler.
type LiveOption func(*LiveHandler)

// WithPingInterval sets how often idle sockets are pinged.
func WithPingInterval(d time.Duration) LiveOption {
	return func(h *LiveHandler) {
		if d > 0 {
			h.pingInterval = d
		}
	}
}

// WithAuthenticator sets the hook that decides a connection's user id.
func WithAuthenticator(a Authenticator) LiveOption {
	return func(h *LiveHandler) { h.authenticate = a }
}

// WithCheckOrigin overrides the upgrader's origin check. All origins are
// accepted by default.
func WithCheckOrigin(fn func(r *http.Request) bool) LiveOption {
	return func(h *LiveHandler) { h.upgrader.CheckOrigin = fn }
}

// NewLiveHandler creates a LiveHandler that registers connections in reg and
// reports joins to joiner.
func NewLiveHandler(reg *realtime.Registry, joiner Joiner, log *slog.Logger, opts ...LiveOption) *LiveHandler {
	if log == nil {
		log = slog.Default()
	}
	h := &LiveHandler{
		reg:          reg,
		joiner:       joiner,
		log:          log,
		pingInterval: defaultPingInterval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes mounts the transports. They stay open indefinitely, so mount
// them outside any request-timeout middleware.
func (h *LiveHandler) RegisterRoutes(r chi.Router) {
	r.Get("/ws", h.socket)
	r.Get("/events/{id}/stream", h.stream)
}

// join puts c in the event room and records presence. The claimed identity
// is corrected by the authenticator, when one is set.
func (h *LiveHandler) join(ctx context.Context, r *http.Request, c *realtime.Conn, eventID string, claimed qa.Identity) {
	if eventID == "" {
		return
	}
	id := claimed
	if h.authenticate != nil {
		if userID, ok := h.authenticate(r); ok {
			id.UserID = userID
		} else {
			id.UserID = ""
		}
	}
	h.reg.Join(c, eventID, id)
	if h.joiner != nil {
		h.joiner.Joined(ctx, eventID, id)
	}
}
