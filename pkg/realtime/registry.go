// Package realtime tracks live connections and the rooms they belong to,
// and fans encoded frames out to room members.
package realtime

import (
	"sort"
	"sync"

	"github.com/google/uuid"

	"liveqa/internal/qa"
)

// EventRoom names the room shared by everyone watching an event.
func EventRoom(eventID string) string {
	return "event:" + eventID
}

// UserRoom names the personal room of an authenticated user.
func UserRoom(userID string) string {
	return "user:" + userID
}

// Registry owns every connection and its room memberships. A connection is
// in at most one event room plus, when authenticated, its personal room.
// Rooms are created on first join and dropped when empty.
type Registry struct {
	mu         sync.RWMutex
	outboxSize int
	conns      map[string]*Conn
	rooms      map[string]map[*Conn]struct{}
}

// NewRegistry creates an empty registry whose connections buffer up to
// outboxSize frames.
func NewRegistry(outboxSize int) *Registry {
	return &Registry{
		outboxSize: outboxSize,
		conns:      make(map[string]*Conn),
		rooms:      make(map[string]map[*Conn]struct{}),
	}
}

// Connect registers a new connection with no room membership.
func (r *Registry) Connect() *Conn {
	c := newConn(uuid.NewString(), r.outboxSize)
	r.mu.Lock()
	r.conns[c.ID] = c
	r.mu.Unlock()
	return c
}

// Join adds c to the event's room and, if id carries a user, to that user's
// personal room. Repeated joins are no-ops; joining another event moves c,
// and joining under another identity moves or drops its personal room.
func (r *Registry) Join(c *Conn, eventID string, id qa.Identity) {
	if c == nil || eventID == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.closed {
		return
	}
	c.setIdentity(id)

	room := EventRoom(eventID)
	if c.eventRoom != room {
		if c.eventRoom != "" {
			r.removeLocked(c, c.eventRoom)
		}
		r.addLocked(c, room)
		c.eventRoom = room
	}

	// The personal room follows the latest identity; a join without a user
	// drops the previous one.
	personal := ""
	if id.UserID != "" {
		personal = UserRoom(id.UserID)
	}
	if c.userRoom != personal {
		if c.userRoom != "" {
			r.removeLocked(c, c.userRoom)
		}
		if personal != "" {
			r.addLocked(c, personal)
		}
		c.userRoom = personal
	}
}

// Leave removes c from the event's room. The personal room is kept until
// Disconnect.
func (r *Registry) Leave(c *Conn, eventID string) {
	if c == nil {
		return
	}
	room := EventRoom(eventID)
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.eventRoom != room {
		return
	}
	r.removeLocked(c, room)
	c.eventRoom = ""
}

// Disconnect removes c from every room and closes its outbox.
func (r *Registry) Disconnect(c *Conn) {
	if c == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conns[c.ID]; !ok {
		return
	}
	if c.eventRoom != "" {
		r.removeLocked(c, c.eventRoom)
		c.eventRoom = ""
	}
	if c.userRoom != "" {
		r.removeLocked(c, c.userRoom)
		c.userRoom = ""
	}
	delete(r.conns, c.ID)
	c.close()
}

// Deliver offers f to every member of the given rooms, once per connection
// even if it sits in several of them. It never blocks; frames for lagging
// connections are dropped.
func (r *Registry) Deliver(f Frame, rooms ...string) (delivered, dropped int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[*Conn]struct{})
	for _, room := range rooms {
		for c := range r.rooms[room] {
			if _, dup := seen[c]; dup {
				continue
			}
			seen[c] = struct{}{}
			if c.offer(f) {
				delivered++
			} else {
				dropped++
			}
		}
	}
	return delivered, dropped
}

// RoomSize returns the number of connections currently in room.
func (r *Registry) RoomSize(room string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[room])
}

// Rooms returns the rooms c belongs to, sorted.
func (r *Registry) Rooms(c *Conn) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	if c.eventRoom != "" {
		out = append(out, c.eventRoom)
	}
	if c.userRoom != "" {
		out = append(out, c.userRoom)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of registered connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

func (r *Registry) addLocked(c *Conn, room string) {
	members, ok := r.rooms[room]
	if !ok {
		members = make(map[*Conn]struct{})
		r.rooms[room] = members
	}
	members[c] = struct{}{}
}

func (r *Registry) removeLocked(c *Conn, room string) {
	members, ok := r.rooms[room]
	if !ok {
		return
	}
	delete(members, c)
	if len(members) == 0 {
		delete(r.rooms, room)
	}
}
