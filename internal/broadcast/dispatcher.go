// Package broadcast pushes typed events to the connections of an event room
// and of personal user rooms.
//
// Delivery is fire-and-forget: at most once per currently connected
// recipient, no retry, nothing queued for offline clients. Emit never fails
// from the caller's point of view; the mutation that triggered it has
// already been committed.
package broadcast

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"liveqa/internal/wire"
	"liveqa/pkg/realtime"
)

const meterName = "liveqa/broadcast"

// Dispatcher encodes events and hands them to the registry for delivery.
type Dispatcher struct {
	reg    *realtime.Registry
	log    *slog.Logger
	encode func(wire.Event) ([]byte, error)

	emitted   metric.Int64Counter
	delivered metric.Int64Counter
	dropped   metric.Int64Counter
	failed    metric.Int64Counter
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger used for swallowed emission failures.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) { d.log = l }
}

// WithMeter records delivery counters on m instead of the global meter.
func WithMeter(m metric.Meter) Option {
	return func(d *Dispatcher) { d.initMetrics(m) }
}

// WithEncoder replaces wire.Encode; used by tests to force failures.
func WithEncoder(fn func(wire.Event) ([]byte, error)) Option {
	return func(d *Dispatcher) { d.encode = fn }
}

// New creates a dispatcher that delivers through reg.
func New(reg *realtime.Registry, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		reg:    reg,
		log:    slog.Default(),
		encode: wire.Encode,
	}
	d.initMetrics(otel.Meter(meterName))
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Dispatcher) initMetrics(m metric.Meter) {
	// Instrument creation only fails on invalid names; the returned
	// instruments are usable no-ops in that case.
	d.emitted, _ = m.Int64Counter("liveqa.broadcast.emitted",
		metric.WithDescription("Events handed to the dispatcher"))
	d.delivered, _ = m.Int64Counter("liveqa.broadcast.delivered",
		metric.WithDescription("Frames queued on a connection"))
	d.dropped, _ = m.Int64Counter("liveqa.broadcast.dropped",
		metric.WithDescription("Frames dropped for lagging or closing connections"))
	d.failed, _ = m.Int64Counter("liveqa.broadcast.failed",
		metric.WithDescription("Events that could not be encoded or delivered"))
}

// Emit sends e to the given recipients. It never returns an error and never
// panics; failures are logged and counted.
func (d *Dispatcher) Emit(ctx context.Context, e wire.Event, to Recipients) {
	if e == nil {
		return
	}
	kind := string(e.Kind())
	attrs := metric.WithAttributes(attribute.String("kind", kind))

	defer func() {
		if p := recover(); p != nil {
			d.failed.Add(ctx, 1, attrs)
			d.log.ErrorContext(ctx, "broadcast: emit panicked", "kind", kind, "panic", fmt.Sprint(p))
		}
	}()

	d.emitted.Add(ctx, 1, attrs)
	if to.Empty() {
		d.log.DebugContext(ctx, "broadcast: no recipients", "kind", kind)
		return
	}

	frame, err := d.encode(e)
	if err != nil {
		d.failed.Add(ctx, 1, attrs)
		d.log.ErrorContext(ctx, "broadcast: encode failed", "kind", kind, "error", err)
		return
	}

	delivered, dropped := d.reg.Deliver(realtime.Frame{Kind: kind, Data: frame}, to.rooms()...)
	d.delivered.Add(ctx, int64(delivered), attrs)
	if dropped > 0 {
		d.dropped.Add(ctx, int64(dropped), attrs)
		d.log.WarnContext(ctx, "broadcast: dropped frames", "kind", kind, "dropped", dropped)
	}
	d.log.DebugContext(ctx, "broadcast: emitted",
		"kind", kind,
		"event_id", to.EventID,
		"users", len(to.UserIDs),
		"delivered", delivered,
	)
}
