// Package notify turns committed store mutations into broadcast events.
//
// The HTTP layer calls Mapper.Notify after a write succeeds. The mapper picks
// the event kind, payload and recipients; those choices encode who may see
// what. Notify never fails: a mutation it cannot classify or resolve is
// logged and skipped.
package notify

import (
	"context"
	"errors"
	"log/slog"

	"liveqa/internal/broadcast"
	"liveqa/internal/qa"
	"liveqa/internal/wire"
)

// errNoLookup is reported when an id-only mutation needs the committed
// state and no Lookup is configured.
var errNoLookup = errors.New("no lookup for committed state")

// Mapper maps mutations to events.
type Mapper struct {
	emit       broadcast.Emitter
	lookup     Lookup
	cache      *Cache
	log        *slog.Logger
	restricted bool
}

// Option configures a Mapper.
type Option func(*Mapper)

// WithLookup sets the source used to hydrate id-only mutations. l must
// return the state after the write has been committed.
func WithLookup(l Lookup) Option {
	return func(m *Mapper) { m.lookup = l }
}

// WithCache records every relayed payload in c. The cache holds the last
// relayed copy, which is the state before the next write, so it supplies
// previous statuses and settings but never the payload of an update.
func WithCache(c *Cache) Option {
	return func(m *Mapper) { m.cache = c }
}

// WithLogger sets the logger for skipped mutations.
func WithLogger(l *slog.Logger) Option {
	return func(m *Mapper) { m.log = l }
}

// WithRestrictedContent sends newly created content that is not public yet
// (pending questions, inactive polls) only to its author and the event
// owner instead of the whole room.
func WithRestrictedContent(on bool) Option {
	return func(m *Mapper) { m.restricted = on }
}

// New creates a mapper emitting through emit.
func New(emit broadcast.Emitter, opts ...Option) *Mapper {
	m := &Mapper{emit: emit, log: slog.Default()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Notify emits the events for a committed mutation.
func (m *Mapper) Notify(ctx context.Context, mut Mutation) {
	switch mut.Kind {
	case QuestionCreated:
		m.questionCreated(ctx, mut)
	case QuestionUpdated, QuestionArchived:
		m.questionUpdated(ctx, mut)
	case QuestionDeleted:
		m.questionDeleted(ctx, mut)
	case QuestionUpvoted:
		m.questionUpvoted(ctx, mut)
	case PollCreated:
		m.pollCreated(ctx, mut)
	case PollUpdated:
		m.pollUpdated(ctx, mut)
	case PollDeleted:
		m.pollDeleted(ctx, mut)
	case PollVoted:
		m.pollVoted(ctx, mut)
	case EventUpdated:
		m.eventUpdated(ctx, mut)
	default:
		m.skip(ctx, mut, "unknown mutation kind")
	}
}

func (m *Mapper) questionCreated(ctx context.Context, mut Mutation) {
	q, ok := m.resolveQuestion(ctx, mut)
	if !ok {
		return
	}
	eventID := firstNonEmpty(mut.EventID, q.EventID)
	if eventID == "" {
		m.skip(ctx, mut, "no event id")
		return
	}
	m.rememberQuestion(q)

	e := wire.QuestionNew{Question: q}
	switch {
	case q.Status == qa.StatusApproved:
		m.emit.Emit(ctx, e, broadcast.ToRoom(eventID))
	case m.restricted:
		// Session-only authors have no personal room and rely on their
		// optimistic local copy.
		m.emit.Emit(ctx, e, broadcast.ToUsers(q.AuthorID, m.eventOwner(ctx, eventID)))
	default:
		// The room carries it to moderators; the personal room reaches the
		// author's other tabs.
		m.emit.Emit(ctx, e, broadcast.ToRoomAndUser(eventID, q.AuthorID))
	}
}

func (m *Mapper) questionUpdated(ctx context.Context, mut Mutation) {
	q, ok := m.resolveQuestion(ctx, mut)
	if !ok {
		return
	}
	eventID := firstNonEmpty(mut.EventID, q.EventID)
	if eventID == "" {
		m.skip(ctx, mut, "no event id")
		return
	}
	if mut.Kind == QuestionArchived {
		q.Status = qa.StatusArchived
	}

	prev := mut.PreviousStatus
	if prev == "" && m.cache != nil {
		if cached, err := m.cache.Question(ctx, q.ID); err == nil {
			prev = cached.Status
		}
	}
	m.rememberQuestion(q)

	to := broadcast.ToRoomAndUser(eventID, q.AuthorID)
	if mut.Kind == QuestionUpdated && q.Status == qa.StatusApproved && prev != "" && prev != qa.StatusApproved {
		// Newly approved: clients that only render on "new" still pick it up.
		m.emit.Emit(ctx, wire.QuestionNew{Question: q}, to)
		return
	}
	m.emit.Emit(ctx, wire.QuestionUpdated{Question: q}, to)
}

func (m *Mapper) questionDeleted(ctx context.Context, mut Mutation) {
	id := mut.questionID()
	eventID := mut.eventID()
	if id == "" || eventID == "" {
		m.skip(ctx, mut, "missing question or event id")
		return
	}
	if m.cache != nil {
		m.cache.forget(id, "")
	}
	m.emit.Emit(ctx, wire.QuestionDeleted{QuestionID: id}, broadcast.ToRoom(eventID))
}

func (m *Mapper) questionUpvoted(ctx context.Context, mut Mutation) {
	id := mut.questionID()
	eventID := mut.eventID()
	if id == "" || eventID == "" {
		m.skip(ctx, mut, "missing question or event id")
		return
	}
	count := nonNegative(mut.Count)
	if m.cache != nil {
		if q, err := m.cache.Question(ctx, id); err == nil {
			q.UpvotesCount = count
			m.cache.putQuestion(q)
		}
	}
	m.emit.Emit(ctx, wire.QuestionUpvoted{QuestionID: id, UpvotesCount: count}, broadcast.ToRoom(eventID))
}

func (m *Mapper) pollCreated(ctx context.Context, mut Mutation) {
	p, ok := m.resolvePoll(ctx, mut)
	if !ok {
		return
	}
	eventID := firstNonEmpty(mut.EventID, p.EventID)
	if eventID == "" {
		m.skip(ctx, mut, "no event id")
		return
	}
	m.rememberPoll(p)

	e := wire.PollNew{Poll: p}
	if m.restricted && !p.IsActive {
		creator := ""
		if p.CreatedBy != nil {
			creator = p.CreatedBy.ID
		}
		m.emit.Emit(ctx, e, broadcast.ToUsers(creator, m.eventOwner(ctx, eventID)))
		return
	}
	// Sent whether active or not; clients decide visibility.
	m.emit.Emit(ctx, e, broadcast.ToRoom(eventID))
}

func (m *Mapper) pollUpdated(ctx context.Context, mut Mutation) {
	p, ok := m.resolvePoll(ctx, mut)
	if !ok {
		return
	}
	eventID := firstNonEmpty(mut.EventID, p.EventID)
	if eventID == "" {
		m.skip(ctx, mut, "no event id")
		return
	}
	m.rememberPoll(p)
	m.emit.Emit(ctx, wire.PollUpdated{Poll: p}, broadcast.ToRoom(eventID))
}

func (m *Mapper) pollDeleted(ctx context.Context, mut Mutation) {
	id := mut.pollID()
	eventID := mut.eventID()
	if id == "" || eventID == "" {
		m.skip(ctx, mut, "missing poll or event id")
		return
	}
	if m.cache != nil {
		m.cache.forget("", id)
	}
	m.emit.Emit(ctx, wire.PollDeleted{PollID: id}, broadcast.ToRoom(eventID))
}

func (m *Mapper) pollVoted(ctx context.Context, mut Mutation) {
	id := mut.pollID()
	eventID := mut.eventID()
	if id == "" || eventID == "" || mut.OptionID == "" {
		m.skip(ctx, mut, "missing poll, option or event id")
		return
	}
	count := nonNegative(mut.Count)
	if m.cache != nil {
		if p, err := m.cache.Poll(ctx, id); err == nil {
			for i := range p.Options {
				if p.Options[i].ID == mut.OptionID {
					p.Options[i].VotesCount = count
				}
			}
			m.cache.putPoll(p)
		}
	}
	m.emit.Emit(ctx, wire.PollVoted{PollID: id, OptionID: mut.OptionID, VotesCount: count}, broadcast.ToRoom(eventID))
}

func (m *Mapper) eventUpdated(ctx context.Context, mut Mutation) {
	eventID := mut.eventID()
	var ev qa.Event
	switch {
	case mut.Event != nil:
		ev = *mut.Event
	case eventID != "":
		found, err := m.committedEvent(ctx, eventID)
		if err != nil {
			m.skip(ctx, mut, "event lookup failed: "+err.Error())
			return
		}
		ev = found
	default:
		m.skip(ctx, mut, "no event")
		return
	}
	if ev.ID == "" {
		ev.ID = eventID
	}
	eventID = ev.ID

	prev := mut.PreviousEvent
	if prev == nil && m.cache != nil {
		if cached, err := m.cache.Event(ctx, eventID); err == nil {
			prev = &cached
		}
	}
	if m.cache != nil {
		m.cache.putEvent(ev)
	}

	m.emit.Emit(ctx, wire.EventUpdated{Event: ev}, broadcast.ToRoom(eventID))

	if moderationDisabled(prev, ev, mut) {
		m.autoApprove(ctx, eventID, mut)
	}
}

// moderationDisabled reports whether the update switched moderation off.
// With no previous state, a non-empty auto-approved list is the evidence.
func moderationDisabled(prev *qa.Event, ev qa.Event, mut Mutation) bool {
	if ev.ModerationEnabled {
		return false
	}
	if prev != nil {
		return prev.ModerationEnabled
	}
	return len(mut.AutoApproved) > 0 || len(mut.AutoApprovedIDs) > 0
}

// autoApprove re-announces every question a moderation switch-off approved,
// one question:new each, in order. Clients do not re-fetch on their own.
func (m *Mapper) autoApprove(ctx context.Context, eventID string, mut Mutation) {
	seen := make(map[string]struct{}, len(mut.AutoApproved)+len(mut.AutoApprovedIDs))
	questions := make([]qa.Question, 0, len(mut.AutoApproved)+len(mut.AutoApprovedIDs))
	for _, q := range mut.AutoApproved {
		if q.ID == "" {
			continue
		}
		if _, dup := seen[q.ID]; dup {
			continue
		}
		seen[q.ID] = struct{}{}
		questions = append(questions, q)
	}
	for _, id := range mut.AutoApprovedIDs {
		if _, dup := seen[id]; dup || id == "" {
			continue
		}
		seen[id] = struct{}{}
		// Only the status changed, and it is forced below, so a cached copy
		// is as good as the committed one here.
		q, err := m.knownQuestion(ctx, id)
		if err != nil {
			m.log.WarnContext(ctx, "notify: auto-approved question not found", "question_id", id, "error", err)
			continue
		}
		questions = append(questions, q)
	}

	for _, q := range questions {
		q.Status = qa.StatusApproved
		if q.EventID == "" {
			q.EventID = eventID
		}
		m.rememberQuestion(q)
		m.emit.Emit(ctx, wire.QuestionNew{Question: q}, broadcast.ToRoom(eventID))
	}
	m.log.InfoContext(ctx, "notify: moderation disabled, questions re-announced",
		"event_id", eventID, "count", len(questions))
}

func (m *Mapper) resolveQuestion(ctx context.Context, mut Mutation) (qa.Question, bool) {
	if mut.Question != nil && mut.Question.ID != "" {
		return mut.Question.Clone(), true
	}
	if mut.QuestionID == "" {
		m.skip(ctx, mut, "no question")
		return qa.Question{}, false
	}
	q, err := m.committedQuestion(ctx, mut.QuestionID)
	if err != nil {
		m.skip(ctx, mut, "question lookup failed: "+err.Error())
		return qa.Question{}, false
	}
	return q, true
}

func (m *Mapper) resolvePoll(ctx context.Context, mut Mutation) (qa.Poll, bool) {
	if mut.Poll != nil && mut.Poll.ID != "" {
		return mut.Poll.Clone(), true
	}
	if mut.PollID == "" {
		m.skip(ctx, mut, "no poll")
		return qa.Poll{}, false
	}
	p, err := m.committedPoll(ctx, mut.PollID)
	if err != nil {
		m.skip(ctx, mut, "poll lookup failed: "+err.Error())
		return qa.Poll{}, false
	}
	return p, true
}

// The committed* helpers read post-write state and never fall back to the
// cache.

func (m *Mapper) committedQuestion(ctx context.Context, id string) (qa.Question, error) {
	if m.lookup == nil {
		return qa.Question{}, errNoLookup
	}
	return m.lookup.Question(ctx, id)
}

func (m *Mapper) committedPoll(ctx context.Context, id string) (qa.Poll, error) {
	if m.lookup == nil {
		return qa.Poll{}, errNoLookup
	}
	return m.lookup.Poll(ctx, id)
}

func (m *Mapper) committedEvent(ctx context.Context, id string) (qa.Event, error) {
	if m.lookup == nil {
		return qa.Event{}, errNoLookup
	}
	return m.lookup.Event(ctx, id)
}

// knownQuestion tries the Lookup, then the cache.
func (m *Mapper) knownQuestion(ctx context.Context, id string) (qa.Question, error) {
	q, err := m.committedQuestion(ctx, id)
	if err != nil && m.cache != nil {
		if cached, cerr := m.cache.Question(ctx, id); cerr == nil {
			return cached, nil
		}
	}
	return q, err
}

func (m *Mapper) knownEvent(ctx context.Context, id string) (qa.Event, error) {
	ev, err := m.committedEvent(ctx, id)
	if err != nil && m.cache != nil {
		if cached, cerr := m.cache.Event(ctx, id); cerr == nil {
			return cached, nil
		}
	}
	return ev, err
}

func (m *Mapper) eventOwner(ctx context.Context, eventID string) string {
	ev, err := m.knownEvent(ctx, eventID)
	if err != nil {
		m.log.DebugContext(ctx, "notify: event owner unknown", "event_id", eventID, "error", err)
		return ""
	}
	return ev.OwnerID
}

func (m *Mapper) rememberQuestion(q qa.Question) {
	if m.cache != nil {
		m.cache.putQuestion(q)
	}
}

func (m *Mapper) rememberPoll(p qa.Poll) {
	if m.cache != nil {
		m.cache.putPoll(p)
	}
}

func (m *Mapper) skip(ctx context.Context, mut Mutation, reason string) {
	m.log.WarnContext(ctx, "notify: mutation skipped",
		"kind", string(mut.Kind),
		"event_id", mut.EventID,
		"reason", reason,
	)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func nonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
