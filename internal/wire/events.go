// Package wire defines the messages exchanged over a client connection.
//
// Every frame is a JSON envelope {"event": kind, "data": payload}. Each kind
// has its own payload struct; Decode returns them as the Event union so
// consumers can switch over the concrete types.
package wire

import (
	"encoding/json"
	"errors"
	"fmt"

	"liveqa/internal/qa"
)

// Kind names an event on the wire.
type Kind string

// Client to server.
const (
	KindJoin  Kind = "event:join"
	KindLeave Kind = "event:leave"
)

// Server to client.
const (
	KindQuestionNew     Kind = "question:new"
	KindQuestionUpdated Kind = "question:updated"
	KindQuestionDeleted Kind = "question:deleted"
	KindQuestionUpvoted Kind = "question:upvoted"
	KindPollNew         Kind = "poll:new"
	KindPollUpdated     Kind = "poll:updated"
	KindPollDeleted     Kind = "poll:deleted"
	KindPollVoted       Kind = "poll:voted"
	KindParticipants    Kind = "event:participants"
	KindEventUpdated    Kind = "event:updated"
)

// ErrUnknownKind is returned by Decode for an envelope whose kind is not
// part of the protocol.
var ErrUnknownKind = errors.New("wire: unknown event kind")

// Event is implemented by every payload type in this package.
type Event interface {
	Kind() Kind
	isEvent()
}

// Join is sent by a client to enter an event room.
type Join struct {
	EventID   string `json:"eventId"`
	SessionID string `json:"sessionId,omitempty"`
	UserID    string `json:"userId,omitempty"`
}

// Leave is sent by a client to exit an event room.
type Leave struct {
	EventID string `json:"eventId"`
}

// QuestionNew announces a question that viewers may not hold yet.
type QuestionNew struct {
	Question qa.Question `json:"question"`
}

// QuestionUpdated carries the full current state of a question.
type QuestionUpdated struct {
	Question qa.Question `json:"question"`
}

// QuestionDeleted removes a question for every viewer.
type QuestionDeleted struct {
	QuestionID string `json:"questionId"`
}

// QuestionUpvoted carries a question's new upvote total.
type QuestionUpvoted struct {
	QuestionID   string `json:"questionId"`
	UpvotesCount int    `json:"upvotesCount"`
}

// PollNew announces a poll, active or not.
type PollNew struct {
	Poll qa.Poll `json:"poll"`
}

// PollUpdated carries the full current state of a poll.
type PollUpdated struct {
	Poll qa.Poll `json:"poll"`
}

// PollDeleted removes a poll and any vote a viewer holds on it.
type PollDeleted struct {
	PollID string `json:"pollId"`
}

// PollVoted carries one option's new vote total.
type PollVoted struct {
	PollID     string `json:"pollId"`
	OptionID   string `json:"optionId"`
	VotesCount int    `json:"votesCount"`
}

// Participants carries an event's participant count.
type Participants struct {
	Count int `json:"count"`
}

// EventUpdated carries an event's new settings.
type EventUpdated struct {
	Event qa.Event `json:"event"`
}

// Kind implements Event for each payload type.
func (Join) Kind() Kind            { return KindJoin }
func (Leave) Kind() Kind           { return KindLeave }
func (QuestionNew) Kind() Kind     { return KindQuestionNew }
func (QuestionUpdated) Kind() Kind { return KindQuestionUpdated }
func (QuestionDeleted) Kind() Kind { return KindQuestionDeleted }
func (QuestionUpvoted) Kind() Kind { return KindQuestionUpvoted }
func (PollNew) Kind() Kind         { return KindPollNew }
func (PollUpdated) Kind() Kind     { return KindPollUpdated }
func (PollDeleted) Kind() Kind     { return KindPollDeleted }
func (PollVoted) Kind() Kind       { return KindPollVoted }
func (Participants) Kind() Kind    { return KindParticipants }
func (EventUpdated) Kind() Kind    { return KindEventUpdated }

func (Join) isEvent()            {}
func (Leave) isEvent()           {}
func (QuestionNew) isEvent()     {}
func (QuestionUpdated) isEvent() {}
func (QuestionDeleted) isEvent() {}
func (QuestionUpvoted) isEvent() {}
func (PollNew) isEvent()         {}
func (PollUpdated) isEvent()     {}
func (PollDeleted) isEvent()     {}
func (PollVoted) isEvent()       {}
func (Participants) isEvent()    {}
func (EventUpdated) isEvent()    {}

// Identity returns the identity claimed by the join message.
func (j Join) Identity() qa.Identity {
	return qa.Identity{UserID: j.UserID, SessionID: j.SessionID}
}

type envelope struct {
	Event Kind            `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Encode frames e as a JSON envelope.
func Encode(e Event) ([]byte, error) {
	if e == nil {
		return nil, errors.New("wire: nil event")
	}
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("wire: encode %s: %w", e.Kind(), err)
	}
	return json.Marshal(envelope{Event: e.Kind(), Data: data})
}

// Decode parses a JSON envelope into its concrete payload type.
func Decode(frame []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, fmt.Errorf("wire: decode envelope: %w", err)
	}
	var (
		e   Event
		err error
	)
	switch env.Event {
	case KindJoin:
		e, err = decodeInto[Join](env.Data)
	case KindLeave:
		e, err = decodeInto[Leave](env.Data)
	case KindQuestionNew:
		e, err = decodeInto[QuestionNew](env.Data)
	case KindQuestionUpdated:
		e, err = decodeInto[QuestionUpdated](env.Data)
	case KindQuestionDeleted:
		e, err = decodeInto[QuestionDeleted](env.Data)
	case KindQuestionUpvoted:
		e, err = decodeInto[QuestionUpvoted](env.Data)
	case KindPollNew:
		e, err = decodeInto[PollNew](env.Data)
	case KindPollUpdated:
		e, err = decodeInto[PollUpdated](env.Data)
	case KindPollDeleted:
		e, err = decodeInto[PollDeleted](env.Data)
	case KindPollVoted:
		e, err = decodeInto[PollVoted](env.Data)
	case KindParticipants:
		e, err = decodeInto[Participants](env.Data)
	case KindEventUpdated:
		e, err = decodeInto[EventUpdated](env.Data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, env.Event)
	}
	if err != nil {
		return nil, fmt.Errorf("wire: decode %s: %w", env.Event, err)
	}
	return e, nil
}

func decodeInto[T Event](data json.RawMessage) (Event, error) {
	var v T
	if len(data) == 0 || string(data) == "null" {
		return nil, errors.New("missing data")
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}
