// Package qa holds the question, poll and event shapes relayed to clients,
// plus the visibility rules every recipient applies to them.
package qa

import "time"

// Status is the moderation state of a question.
type Status string

const (
	StatusApproved Status = "approved"
	StatusPending  Status = "pending"
	StatusRejected Status = "rejected"
	StatusArchived Status = "archived"
)

// Identity is who a connection or participant is. A connection carries at
// most one identity source; UserID wins when both are present.
type Identity struct {
	UserID    string `json:"userId,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
}

// Key returns the durable participant key, or "" when the identity is empty.
func (id Identity) Key() string {
	switch {
	case id.UserID != "":
		return "user:" + id.UserID
	case id.SessionID != "":
		return "session:" + id.SessionID
	default:
		return ""
	}
}

// IsZero reports whether neither identity source is set.
func (id Identity) IsZero() bool {
	return id.UserID == "" && id.SessionID == ""
}

// Author is the public subset of a question author's profile.
type Author struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// Upvote records one identity's upvote on a question.
type Upvote struct {
	UserID    string `json:"userId,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
}

// Question mirrors the store's representation of a question.
type Question struct {
	ID           string    `json:"id"`
	EventID      string    `json:"eventId"`
	Content      string    `json:"content"`
	Status       Status    `json:"status"`
	AuthorID     string    `json:"authorId,omitempty"`
	SessionID    string    `json:"sessionId,omitempty"`
	Author       *Author   `json:"author,omitempty"`
	IsAnonymous  bool      `json:"isAnonymous"`
	UpvotesCount int       `json:"upvotesCount"`
	Upvotes      []Upvote  `json:"upvotes,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// OwnedBy reports whether viewer authored q, by user id or anonymous session.
func (q Question) OwnedBy(viewer Identity) bool {
	if viewer.UserID != "" && q.AuthorID == viewer.UserID {
		return true
	}
	if viewer.SessionID != "" && q.SessionID == viewer.SessionID {
		return true
	}
	return false
}

// VisibleTo reports whether viewer may see q: approved questions are public,
// anything else only to its author. An unknown status is never public.
func (q Question) VisibleTo(viewer Identity) bool {
	if q.ID == "" {
		return false
	}
	return q.Status == StatusApproved || q.OwnedBy(viewer)
}

// UpvotedBy reports whether viewer appears in the question's upvote list.
func (q Question) UpvotedBy(viewer Identity) bool {
	for _, u := range q.Upvotes {
		if viewer.UserID != "" && u.UserID == viewer.UserID {
			return true
		}
		if viewer.SessionID != "" && u.SessionID == viewer.SessionID {
			return true
		}
	}
	return false
}

// Clone returns a copy of q that shares no slices or pointers with it.
func (q Question) Clone() Question {
	if q.Author != nil {
		a := *q.Author
		q.Author = &a
	}
	if q.Upvotes != nil {
		q.Upvotes = append([]Upvote(nil), q.Upvotes...)
	}
	return q
}

// Creator is the public subset of a poll creator's profile.
type Creator struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// Option is one answer of a poll with its running tally.
type Option struct {
	ID         string `json:"id"`
	Text       string `json:"text"`
	VotesCount int    `json:"votesCount"`
}

// Poll mirrors the store's representation of a poll.
type Poll struct {
	ID        string    `json:"id"`
	EventID   string    `json:"eventId"`
	Question  string    `json:"question"`
	IsActive  bool      `json:"isActive"`
	CreatedBy *Creator  `json:"createdBy,omitempty"`
	Options   []Option  `json:"options"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CreatedByUser reports whether viewer created p.
func (p Poll) CreatedByUser(viewer Identity) bool {
	return viewer.UserID != "" && p.CreatedBy != nil && p.CreatedBy.ID == viewer.UserID
}

// VisibleTo reports whether viewer may see p: active polls are public,
// inactive ones only to their creator.
func (p Poll) VisibleTo(viewer Identity) bool {
	if p.ID == "" {
		return false
	}
	return p.IsActive || p.CreatedByUser(viewer)
}

// Clone returns a copy of p that shares no slices or pointers with it.
func (p Poll) Clone() Poll {
	if p.CreatedBy != nil {
		c := *p.CreatedBy
		p.CreatedBy = &c
	}
	if p.Options != nil {
		p.Options = append([]Option(nil), p.Options...)
	}
	return p
}

// Event is a live Q&A session; its id names the broadcast room.
type Event struct {
	ID                string    `json:"id"`
	Title             string    `json:"title"`
	Code              string    `json:"code,omitempty"`
	OwnerID           string    `json:"ownerId,omitempty"`
	ModerationEnabled bool      `json:"moderationEnabled"`
	IsActive          bool      `json:"isActive"`
	UpdatedAt         time.Time `json:"updatedAt"`
}
