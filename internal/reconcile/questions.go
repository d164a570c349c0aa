package reconcile

import "liveqa/internal/qa"

// mergeQuestion handles question:new and question:updated alike. A question
// already present is replaced in place while the viewer may still see it,
// and removed once it may not. An absent question is inserted at the front
// only when visible.
func (v *View) mergeQuestion(q qa.Question) bool {
	i := v.questionIndex(q.ID)
	visible := q.VisibleTo(v.viewer)
	switch {
	case i >= 0 && visible:
		v.questions[i] = q.Clone()
	case i >= 0:
		v.questions = append(v.questions[:i], v.questions[i+1:]...)
		delete(v.upvoted, q.ID)
		return true
	case visible:
		v.questions = append([]qa.Question{q.Clone()}, v.questions...)
	default:
		return false
	}
	if q.Upvotes != nil {
		v.upvoted[q.ID] = q.UpvotedBy(v.viewer)
	}
	return true
}

func (v *View) removeQuestion(id string) bool {
	i := v.questionIndex(id)
	if i < 0 {
		return false
	}
	v.questions = append(v.questions[:i], v.questions[i+1:]...)
	delete(v.upvoted, id)
	return true
}

// setUpvotes touches only the count of a question already in the view.
func (v *View) setUpvotes(id string, n int) bool {
	i := v.questionIndex(id)
	if i < 0 {
		return false
	}
	n = clamp(n)
	if v.questions[i].UpvotesCount == n {
		return false
	}
	v.questions[i].UpvotesCount = n
	return true
}

func (v *View) questionIndex(id string) int {
	if id == "" {
		return -1
	}
	for i := range v.questions {
		if v.questions[i].ID == id {
			return i
		}
	}
	return -1
}

// AddLocalQuestion inserts a question the viewer just submitted, before its
// broadcast arrives. A question with no author is stamped with the viewer's
// identity. Reports false for a question without an id.
func (v *View) AddLocalQuestion(q qa.Question) bool {
	if q.ID == "" {
		return false
	}
	if q.AuthorID == "" && q.SessionID == "" {
		q.AuthorID, q.SessionID = v.viewer.UserID, v.viewer.SessionID
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.mergeQuestion(q)
}

// ToggleUpvote flips the viewer's upvote on a question and adjusts its count
// optimistically. It returns the new upvote state, and false for ok when the
// question is not in the view.
func (v *View) ToggleUpvote(questionID string) (upvoted, ok bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	i := v.questionIndex(questionID)
	if i < 0 {
		return false, false
	}
	q := &v.questions[i]
	if v.upvoted[questionID] {
		delete(v.upvoted, questionID)
		q.UpvotesCount = clamp(q.UpvotesCount - 1)
		return false, true
	}
	v.upvoted[questionID] = true
	q.UpvotesCount++
	return true, true
}
