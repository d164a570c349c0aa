package broadcast

import "liveqa/pkg/realtime"

// Recipients selects who receives an emitted event: an event room, a set of
// personal rooms, or both.
type Recipients struct {
	EventID string
	UserIDs []string
}

// ToRoom addresses everyone in the event's room.
func ToRoom(eventID string) Recipients {
	return Recipients{EventID: eventID}
}

// ToRoomAndUser addresses the event's room plus the user's personal room.
// An empty userID is the same as ToRoom.
func ToRoomAndUser(eventID, userID string) Recipients {
	if userID == "" {
		return ToRoom(eventID)
	}
	return Recipients{EventID: eventID, UserIDs: []string{userID}}
}

// ToUser addresses only the user's personal room.
func ToUser(userID string) Recipients {
	return ToUsers(userID)
}

// ToUsers addresses the personal rooms of every non-empty id, once each.
func ToUsers(userIDs ...string) Recipients {
	var ids []string
	seen := make(map[string]struct{}, len(userIDs))
	for _, id := range userIDs {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return Recipients{UserIDs: ids}
}

// Empty reports whether r addresses nobody.
func (r Recipients) Empty() bool {
	return r.EventID == "" && len(r.UserIDs) == 0
}

func (r Recipients) rooms() []string {
	rooms := make([]string, 0, 1+len(r.UserIDs))
	if r.EventID != "" {
		rooms = append(rooms, realtime.EventRoom(r.EventID))
	}
	for _, id := range r.UserIDs {
		rooms = append(rooms, realtime.UserRoom(id))
	}
	return rooms
}
