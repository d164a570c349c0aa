package broadcast

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"liveqa/internal/qa"
	"liveqa/internal/wire"
	"liveqa/pkg/realtime"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func frames(c *realtime.Conn) []realtime.Frame {
	var out []realtime.Frame
	for {
		select {
		case f, ok := <-c.Outbox():
			if !ok {
				return out
			}
			out = append(out, f)
		default:
			return out
		}
	}
}

func TestRecipients(t *testing.T) {
	if got := ToRoomAndUser("e1", ""); len(got.UserIDs) != 0 || got.EventID != "e1" {
		t.Errorf("ToRoomAndUser with empty user = %+v", got)
	}
	if got := ToUsers("a", "", "a", "b"); len(got.UserIDs) != 2 {
		t.Errorf("ToUsers = %+v, want two ids", got)
	}
	if !ToUsers("").Empty() {
		t.Error("ToUsers(\"\") should be empty")
	}
	r := ToRoomAndUser("e1", "u1").rooms()
	if len(r) != 2 || r[0] != "event:e1" || r[1] != "user:u1" {
		t.Errorf("rooms %v", r)
	}
}

func TestDispatcher_EmitToRoom(t *testing.T) {
	reg := realtime.NewRegistry(8)
	inRoom := reg.Connect()
	elsewhere := reg.Connect()
	reg.Join(inRoom, "A", qa.Identity{})
	reg.Join(elsewhere, "B", qa.Identity{})

	d := New(reg, WithLogger(quietLogger()))
	d.Emit(context.Background(), wire.QuestionDeleted{QuestionID: "q1"}, ToRoom("A"))

	got := frames(inRoom)
	if len(got) != 1 {
		t.Fatalf("room A got %d frames, want 1", len(got))
	}
	e, err := wire.Decode(got[0].Data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if del, ok := e.(wire.QuestionDeleted); !ok || del.QuestionID != "q1" {
		t.Errorf("got %#v", e)
	}
	if n := len(frames(elsewhere)); n != 0 {
		t.Errorf("room B got %d frames, want 0", n)
	}
}

func TestDispatcher_EmitToUserOutsideRoom(t *testing.T) {
	reg := realtime.NewRegistry(8)
	tab := reg.Connect()
	reg.Join(tab, "other-event", qa.Identity{UserID: "u1"})

	d := New(reg, WithLogger(quietLogger()))
	d.Emit(context.Background(), wire.QuestionNew{Question: qa.Question{ID: "q1"}}, ToRoomAndUser("e1", "u1"))

	if n := len(frames(tab)); n != 1 {
		t.Errorf("personal room got %d frames, want 1", n)
	}
}

func TestDispatcher_EncodeFailureIsSwallowed(t *testing.T) {
	reg := realtime.NewRegistry(8)
	c := reg.Connect()
	reg.Join(c, "e1", qa.Identity{})

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	d := New(reg,
		WithLogger(quietLogger()),
		WithMeter(mp.Meter("test")),
		WithEncoder(func(wire.Event) ([]byte, error) { return nil, errors.New("boom") }),
	)
	d.Emit(context.Background(), wire.Participants{Count: 1}, ToRoom("e1"))

	if n := len(frames(c)); n != 0 {
		t.Errorf("got %d frames after encode failure, want 0", n)
	}
	if got := counterValue(t, reader, "liveqa.broadcast.failed"); got != 1 {
		t.Errorf("failed counter %d, want 1", got)
	}
}

func TestDispatcher_PanicIsRecovered(t *testing.T) {
	reg := realtime.NewRegistry(8)
	d := New(reg,
		WithLogger(quietLogger()),
		WithEncoder(func(wire.Event) ([]byte, error) { panic("encoder bug") }),
	)
	d.Emit(context.Background(), wire.Participants{Count: 1}, ToRoom("e1"))
}

func TestDispatcher_CountsDeliveredAndDropped(t *testing.T) {
	reg := realtime.NewRegistry(1)
	c := reg.Connect()
	reg.Join(c, "e1", qa.Identity{})

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	d := New(reg, WithLogger(quietLogger()), WithMeter(mp.Meter("test")))

	d.Emit(context.Background(), wire.Participants{Count: 1}, ToRoom("e1"))
	d.Emit(context.Background(), wire.Participants{Count: 2}, ToRoom("e1"))

	if got := counterValue(t, reader, "liveqa.broadcast.emitted"); got != 2 {
		t.Errorf("emitted %d, want 2", got)
	}
	if got := counterValue(t, reader, "liveqa.broadcast.delivered"); got != 1 {
		t.Errorf("delivered %d, want 1", got)
	}
	if got := counterValue(t, reader, "liveqa.broadcast.dropped"); got != 1 {
		t.Errorf("dropped %d, want 1", got)
	}
}

func TestHandle_NotReady(t *testing.T) {
	h := NewHandle(nil, quietLogger())
	if _, ok := h.Get(); ok {
		t.Fatal("Get should report not ready")
	}
	h.Emit(context.Background(), wire.Participants{Count: 1}, ToRoom("e1"))

	reg := realtime.NewRegistry(8)
	c := reg.Connect()
	reg.Join(c, "e1", qa.Identity{})
	h.Set(New(reg, WithLogger(quietLogger())))
	if _, ok := h.Get(); !ok {
		t.Fatal("Get should report ready after Set")
	}
	h.Emit(context.Background(), wire.Participants{Count: 1}, ToRoom("e1"))
	if n := len(frames(c)); n != 1 {
		t.Errorf("got %d frames, want 1", n)
	}
}

func counterValue(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("%s has data type %T", name, m.Data)
			}
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	return total
}
