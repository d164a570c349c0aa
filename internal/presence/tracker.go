// Package presence records who joined an event and keeps every room member's
// participant count current.
//
// The count comes from durable participant records, not open connections,
// so a stale tab still counts. Tracking is best effort: a failing store
// never prevents a join.
package presence

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"liveqa/internal/broadcast"
	"liveqa/internal/qa"
	"liveqa/internal/wire"
)

// ErrNoIdentity is returned by stores for an identity with neither a user
// nor a session id.
var ErrNoIdentity = errors.New("presence: identity has no user or session id")

// DefaultTimeout bounds each store call made on a join.
const DefaultTimeout = 3 * time.Second

// Tracker upserts participant records and broadcasts the resulting count.
type Tracker struct {
	store   Store
	emit    broadcast.Emitter
	log     *slog.Logger
	timeout time.Duration
	now     func() time.Time
}

// NewTracker returns a tracker writing to store and announcing through emit.
// A zero timeout means DefaultTimeout.
func NewTracker(store Store, emit broadcast.Emitter, log *slog.Logger, timeout time.Duration) *Tracker {
	if log == nil {
		log = slog.Default()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Tracker{
		store:   store,
		emit:    emit,
		log:     log,
		timeout: timeout,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// RecordJoin upserts the participant record for id. Errors are logged and
// swallowed.
func (t *Tracker) RecordJoin(ctx context.Context, eventID string, id qa.Identity) {
	if id.Key() == "" {
		t.log.DebugContext(ctx, "presence: join without identity, not recorded", "event_id", eventID)
		return
	}
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	if err := t.store.Upsert(ctx, eventID, id, t.now()); err != nil {
		t.log.WarnContext(ctx, "presence: upsert failed", "event_id", eventID, "error", err)
	}
}

// CurrentCount returns the number of durable participant records for eventID.
func (t *Tracker) CurrentCount(ctx context.Context, eventID string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.store.Count(ctx, eventID)
}

// Joined records the join, then sends the refreshed count to the whole room.
// Nothing is sent when the count cannot be read.
func (t *Tracker) Joined(ctx context.Context, eventID string, id qa.Identity) {
	t.RecordJoin(ctx, eventID, id)
	n, err := t.CurrentCount(ctx, eventID)
	if err != nil {
		t.log.WarnContext(ctx, "presence: count failed", "event_id", eventID, "error", err)
		return
	}
	t.emit.Emit(ctx, wire.Participants{Count: n}, broadcast.ToRoom(eventID))
}
