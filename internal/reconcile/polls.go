package reconcile

import "liveqa/internal/qa"

// mergePoll handles poll:new and poll:updated. Polls follow the question
// rules with isActive in place of approval: an inactive poll stays only in
// its creator's view.
func (v *View) mergePoll(p qa.Poll) bool {
	i := v.pollIndex(p.ID)
	visible := p.VisibleTo(v.viewer)
	switch {
	case i >= 0 && visible:
		v.polls[i] = p.Clone()
	case i >= 0:
		v.polls = append(v.polls[:i], v.polls[i+1:]...)
	case visible:
		v.polls = append([]qa.Poll{p.Clone()}, v.polls...)
	default:
		return false
	}
	return true
}

func (v *View) removePoll(id string) bool {
	_, voted := v.myVotes[id]
	delete(v.myVotes, id)
	i := v.pollIndex(id)
	if i < 0 {
		return voted
	}
	v.polls = append(v.polls[:i], v.polls[i+1:]...)
	return true
}

// setVotes touches only one option's tally of a poll already in the view.
func (v *View) setVotes(pollID, optionID string, n int) bool {
	i := v.pollIndex(pollID)
	if i < 0 {
		return false
	}
	opt := optionIndex(v.polls[i], optionID)
	if opt < 0 {
		return false
	}
	n = clamp(n)
	if v.polls[i].Options[opt].VotesCount == n {
		return false
	}
	v.polls[i].Options[opt].VotesCount = n
	return true
}

func (v *View) pollIndex(id string) int {
	if id == "" {
		return -1
	}
	for i := range v.polls {
		if v.polls[i].ID == id {
			return i
		}
	}
	return -1
}

func optionIndex(p qa.Poll, optionID string) int {
	for i := range p.Options {
		if p.Options[i].ID == optionID {
			return i
		}
	}
	return -1
}

// AddLocalPoll inserts a poll the viewer just created, before its broadcast
// arrives. A poll with no creator is stamped with the viewer's user id.
func (v *View) AddLocalPoll(p qa.Poll) bool {
	if p.ID == "" {
		return false
	}
	if p.CreatedBy == nil && v.viewer.UserID != "" {
		p.CreatedBy = &qa.Creator{ID: v.viewer.UserID}
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.mergePoll(p)
}

// CastVote records the viewer's choice and moves one vote optimistically
// from the previous choice, if any. Broadcast tallies overwrite these
// counts when they arrive.
func (v *View) CastVote(pollID, optionID string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	i := v.pollIndex(pollID)
	if i < 0 {
		return false
	}
	next := optionIndex(v.polls[i], optionID)
	if next < 0 {
		return false
	}
	if prev, ok := v.myVotes[pollID]; ok {
		if prev == optionID {
			return false
		}
		if j := optionIndex(v.polls[i], prev); j >= 0 {
			v.polls[i].Options[j].VotesCount = clamp(v.polls[i].Options[j].VotesCount - 1)
		}
	}
	v.polls[i].Options[next].VotesCount++
	v.myVotes[pollID] = optionID
	return true
}

// ClearVote withdraws the viewer's vote in a poll.
func (v *View) ClearVote(pollID string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	prev, ok := v.myVotes[pollID]
	if !ok {
		return false
	}
	delete(v.myVotes, pollID)
	if i := v.pollIndex(pollID); i >= 0 {
		if j := optionIndex(v.polls[i], prev); j >= 0 {
			v.polls[i].Options[j].VotesCount = clamp(v.polls[i].Options[j].VotesCount - 1)
		}
	}
	return true
}
