package notify

import "liveqa/internal/qa"

// MutationKind names a committed write reported by the HTTP layer.
type MutationKind string

const (
	QuestionCreated  MutationKind = "question.created"
	QuestionUpdated  MutationKind = "question.updated"
	QuestionArchived MutationKind = "question.archived"
	QuestionDeleted  MutationKind = "question.deleted"
	// QuestionUpvoted covers both upvote and unvote; Count is the new total.
	QuestionUpvoted MutationKind = "question.upvoted"
	PollCreated     MutationKind = "poll.created"
	PollUpdated     MutationKind = "poll.updated"
	PollDeleted     MutationKind = "poll.deleted"
	// PollVoted covers both a cast and a removed vote; Count is the option's new total.
	PollVoted    MutationKind = "poll.voted"
	EventUpdated MutationKind = "event.updated"
)

// Mutation describes a write that has already been committed to the store.
// Only the fields relevant to Kind need to be set. Id-only creations and
// updates are hydrated through the mapper's Lookup and skipped without one.
type Mutation struct {
	Kind    MutationKind `json:"kind"`
	EventID string       `json:"eventId"`

	Question   *qa.Question `json:"question,omitempty"`
	QuestionID string       `json:"questionId,omitempty"`
	// PreviousStatus is the question's status before an update, when known.
	PreviousStatus qa.Status `json:"previousStatus,omitempty"`

	Poll     *qa.Poll `json:"poll,omitempty"`
	PollID   string   `json:"pollId,omitempty"`
	OptionID string   `json:"optionId,omitempty"`

	Count int `json:"count,omitempty"`

	Event         *qa.Event `json:"event,omitempty"`
	PreviousEvent *qa.Event `json:"previousEvent,omitempty"`
	// AutoApproved and AutoApprovedIDs list the questions a settings change
	// moved from pending to approved.
	AutoApproved    []qa.Question `json:"autoApproved,omitempty"`
	AutoApprovedIDs []string      `json:"autoApprovedIds,omitempty"`
}

func (m Mutation) questionID() string {
	if m.Question != nil && m.Question.ID != "" {
		return m.Question.ID
	}
	return m.QuestionID
}

func (m Mutation) pollID() string {
	if m.Poll != nil && m.Poll.ID != "" {
		return m.Poll.ID
	}
	return m.PollID
}

func (m Mutation) eventID() string {
	if m.EventID != "" {
		return m.EventID
	}
	switch {
	case m.Question != nil && m.Question.EventID != "":
		return m.Question.EventID
	case m.Poll != nil && m.Poll.EventID != "":
		return m.Poll.EventID
	case m.Event != nil:
		return m.Event.ID
	}
	return ""
}
