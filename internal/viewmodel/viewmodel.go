package viewmodel

import "strconv"

// PresenceFragment holds data for the participants badge.
type PresenceFragment struct {
	EventID string
	// Participants is the durable count: everyone who ever joined.
	Participants int
	// Connected is the number of live connections in the event room.
	Connected int
}

// Label is the badge text, e.g. "3 participants".
func (p PresenceFragment) Label() string {
	if p.Participants == 1 {
		return "1 participant"
	}
	return strconv.Itoa(p.Participants) + " participants"
}

// HealthStatus holds data for the health endpoint.
type HealthStatus struct {
	Status      string `json:"status"`
	Connections int    `json:"connections"`
}
