package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"liveqa/internal/observability"
	"liveqa/internal/wire"
)

func (h *LiveHandler) socket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already replied with an HTTP error.
		h.log.DebugContext(r.Context(), "socket: upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	c := h.reg.Connect()
	defer h.reg.Disconnect(c)

	ctx := observability.WithConnID(r.Context(), c.ID)
	log := observability.LoggerFromContext(ctx, h.log)
	log.DebugContext(ctx, "socket: connected")

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(2 * h.pingInterval))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(2 * h.pingInterval))
	})

	done := make(chan struct{})

	go func() {
		defer close(done)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				log.DebugContext(ctx, "socket: read ended", "error", err)
				return
			}
			e, err := wire.Decode(data)
			if err != nil {
				log.DebugContext(ctx, "socket: ignoring frame", "error", err)
				continue
			}
			switch e := e.(type) {
			case wire.Join:
				h.join(ctx, r, c, e.EventID, e.Identity())
			case wire.Leave:
				h.reg.Leave(c, e.EventID)
			default:
				log.DebugContext(ctx, "socket: ignoring server-side kind", "kind", string(e.Kind()))
			}
		}
	}()

	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case f, ok := <-c.Outbox():
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, f.Data); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, []byte{}); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
