package broadcast

import (
	"context"
	"log/slog"
	"sync/atomic"

	"liveqa/internal/wire"
)

// Emitter is what mutation-side code needs from the broadcast layer.
type Emitter interface {
	Emit(ctx context.Context, e wire.Event, to Recipients)
}

// Handle refers to a Dispatcher that may not be constructed yet. Until Set
// is called, Emit drops events and Get reports false.
type Handle struct {
	d   atomic.Pointer[Dispatcher]
	log *slog.Logger
}

// NewHandle returns a handle, already ready when d is non-nil.
func NewHandle(d *Dispatcher, log *slog.Logger) *Handle {
	if log == nil {
		log = slog.Default()
	}
	h := &Handle{log: log}
	if d != nil {
		h.d.Store(d)
	}
	return h
}

// Set makes d the dispatcher behind the handle.
func (h *Handle) Set(d *Dispatcher) {
	h.d.Store(d)
}

// Get returns the dispatcher and whether it is ready.
func (h *Handle) Get() (*Dispatcher, bool) {
	d := h.d.Load()
	return d, d != nil
}

// Emit forwards to the dispatcher, or logs and skips when not ready.
func (h *Handle) Emit(ctx context.Context, e wire.Event, to Recipients) {
	d, ok := h.Get()
	if !ok {
		if e != nil {
			h.log.WarnContext(ctx, "broadcast: dispatcher not ready, event skipped", "kind", string(e.Kind()))
		}
		return
	}
	d.Emit(ctx, e, to)
}
