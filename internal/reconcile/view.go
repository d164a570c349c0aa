// Package reconcile keeps one viewer's copy of an event's questions and polls
// consistent with the broadcasts it receives.
//
// A View starts from an authoritative baseline (Load) and then folds in
// events (Apply) and the viewer's own optimistic actions. Items are matched
// by id only, so an optimistic insert and its broadcast echo collapse into
// one entry whichever arrives first. Anything the view cannot classify as
// visible to the viewer is dropped.
package reconcile

import (
	"context"
	"sync"

	"liveqa/internal/qa"
	"liveqa/internal/wire"
)

// View is one viewer's reconciled state. It is safe for concurrent use.
type View struct {
	mu     sync.RWMutex
	viewer qa.Identity

	questions []qa.Question // newest first
	polls     []qa.Poll     // newest first

	myVotes map[string]string // poll id -> option id
	upvoted map[string]bool   // question id -> viewer has upvoted

	participants int
	event        qa.Event
	hasEvent     bool
}

// NewView returns an empty view for viewer.
func NewView(viewer qa.Identity) *View {
	return &View{
		viewer:  viewer,
		myVotes: make(map[string]string),
		upvoted: make(map[string]bool),
	}
}

// Viewer returns the identity the view filters for.
func (v *View) Viewer() qa.Identity {
	return v.viewer
}

// Load replaces the view's questions and polls with a fresh baseline, in the
// order given (newest first). Items the viewer may not see are dropped.
// Votes held for polls that are no longer present are cleared.
func (v *View) Load(questions []qa.Question, polls []qa.Poll) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.questions = v.questions[:0:0]
	v.upvoted = make(map[string]bool)
	seen := make(map[string]struct{}, len(questions))
	for _, q := range questions {
		if _, dup := seen[q.ID]; dup || !q.VisibleTo(v.viewer) {
			continue
		}
		seen[q.ID] = struct{}{}
		v.questions = append(v.questions, q.Clone())
		if q.UpvotedBy(v.viewer) {
			v.upvoted[q.ID] = true
		}
	}

	v.polls = v.polls[:0:0]
	seen = make(map[string]struct{}, len(polls))
	for _, p := range polls {
		if _, dup := seen[p.ID]; dup || !p.VisibleTo(v.viewer) {
			continue
		}
		seen[p.ID] = struct{}{}
		v.polls = append(v.polls, p.Clone())
	}
	for id := range v.myVotes {
		if _, ok := seen[id]; !ok {
			delete(v.myVotes, id)
		}
	}
}

// SetEvent records the event the view belongs to.
func (v *View) SetEvent(e qa.Event) {
	v.mu.Lock()
	v.event, v.hasEvent = e, true
	v.mu.Unlock()
}

// Apply folds one event into the view and reports whether anything changed.
// Kinds the view does not track are ignored.
func (v *View) Apply(e wire.Event) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	switch e := e.(type) {
	case wire.QuestionNew:
		return v.mergeQuestion(e.Question)
	case wire.QuestionUpdated:
		return v.mergeQuestion(e.Question)
	case wire.QuestionDeleted:
		return v.removeQuestion(e.QuestionID)
	case wire.QuestionUpvoted:
		return v.setUpvotes(e.QuestionID, e.UpvotesCount)
	case wire.PollNew:
		return v.mergePoll(e.Poll)
	case wire.PollUpdated:
		return v.mergePoll(e.Poll)
	case wire.PollDeleted:
		return v.removePoll(e.PollID)
	case wire.PollVoted:
		return v.setVotes(e.PollID, e.OptionID, e.VotesCount)
	case wire.Participants:
		n := clamp(e.Count)
		if n == v.participants {
			return false
		}
		v.participants = n
		return true
	case wire.EventUpdated:
		if e.Event.ID == "" {
			return false
		}
		v.event, v.hasEvent = e.Event, true
		return true
	default:
		return false
	}
}

// Run applies events from ch until ch is closed or ctx is done, calling
// onChange (when non-nil) after each event that changed the view. It blocks;
// callers usually start it in its own goroutine.
func (v *View) Run(ctx context.Context, ch <-chan wire.Event, onChange func(wire.Event)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e, ok := <-ch:
			if !ok {
				return nil
			}
			if v.Apply(e) && onChange != nil {
				onChange(e)
			}
		}
	}
}

// Questions returns a copy of the visible questions, newest first.
func (v *View) Questions() []qa.Question {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make([]qa.Question, len(v.questions))
	for i, q := range v.questions {
		out[i] = q.Clone()
	}
	return out
}

// Question returns the visible question with id.
func (v *View) Question(id string) (qa.Question, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if i := v.questionIndex(id); i >= 0 {
		return v.questions[i].Clone(), true
	}
	return qa.Question{}, false
}

// Polls returns a copy of the visible polls, newest first.
func (v *View) Polls() []qa.Poll {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make([]qa.Poll, len(v.polls))
	for i, p := range v.polls {
		out[i] = p.Clone()
	}
	return out
}

// Poll returns the visible poll with id.
func (v *View) Poll(id string) (qa.Poll, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if i := v.pollIndex(id); i >= 0 {
		return v.polls[i].Clone(), true
	}
	return qa.Poll{}, false
}

// MyVote returns the option the viewer picked in a poll.
func (v *View) MyVote(pollID string) (string, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	opt, ok := v.myVotes[pollID]
	return opt, ok
}

// Upvoted reports whether the viewer has upvoted a question.
func (v *View) Upvoted(questionID string) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.upvoted[questionID]
}

// Participants returns the last participant count received.
func (v *View) Participants() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.participants
}

// Event returns the event, once known.
func (v *View) Event() (qa.Event, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.event, v.hasEvent
}

func clamp(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
