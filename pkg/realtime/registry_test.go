package realtime

import (
	"reflect"
	"testing"

	"liveqa/internal/qa"
)

func drain(c *Conn) []string {
	var kinds []string
	for {
		select {
		case f, ok := <-c.Outbox():
			if !ok {
				return kinds
			}
			kinds = append(kinds, f.Kind)
		default:
			return kinds
		}
	}
}

func TestRegistry_ConnectAssignsID(t *testing.T) {
	r := NewRegistry(4)
	a := r.Connect()
	b := r.Connect()
	if a.ID == "" || a.ID == b.ID {
		t.Errorf("connection ids %q and %q", a.ID, b.ID)
	}
	if r.Len() != 2 {
		t.Errorf("Len %d, want 2", r.Len())
	}
}

func TestRegistry_JoinIsIdempotent(t *testing.T) {
	r := NewRegistry(4)
	c := r.Connect()
	r.Join(c, "e1", qa.Identity{SessionID: "s1"})
	r.Join(c, "e1", qa.Identity{SessionID: "s1"})
	if got := r.RoomSize(EventRoom("e1")); got != 1 {
		t.Errorf("RoomSize %d, want 1", got)
	}
	delivered, _ := r.Deliver(Frame{Kind: "x"}, EventRoom("e1"))
	if delivered != 1 {
		t.Errorf("delivered %d, want 1", delivered)
	}
}

func TestRegistry_JoinAddsPersonalRoom(t *testing.T) {
	r := NewRegistry(4)
	c := r.Connect()
	r.Join(c, "e1", qa.Identity{UserID: "u1"})
	want := []string{"event:e1", "user:u1"}
	if got := r.Rooms(c); !reflect.DeepEqual(got, want) {
		t.Errorf("Rooms %v, want %v", got, want)
	}
	if c.Identity().UserID != "u1" {
		t.Errorf("identity %+v", c.Identity())
	}
}

func TestRegistry_JoinAnotherEventMoves(t *testing.T) {
	r := NewRegistry(4)
	c := r.Connect()
	r.Join(c, "e1", qa.Identity{})
	r.Join(c, "e2", qa.Identity{})
	if r.RoomSize(EventRoom("e1")) != 0 {
		t.Error("connection should have left e1")
	}
	if r.RoomSize(EventRoom("e2")) != 1 {
		t.Error("connection should be in e2")
	}
}

func TestRegistry_RejoinFollowsIdentity(t *testing.T) {
	r := NewRegistry(4)
	c := r.Connect()
	r.Join(c, "e1", qa.Identity{UserID: "u1"})
	r.Join(c, "e1", qa.Identity{UserID: "u2"})
	if got, want := r.Rooms(c), []string{"event:e1", "user:u2"}; !reflect.DeepEqual(got, want) {
		t.Errorf("after user change: Rooms %v, want %v", got, want)
	}

	r.Join(c, "e1", qa.Identity{SessionID: "s1"})
	if got, want := r.Rooms(c), []string{"event:e1"}; !reflect.DeepEqual(got, want) {
		t.Errorf("after anonymous rejoin: Rooms %v, want %v", got, want)
	}
	if r.RoomSize(UserRoom("u2")) != 0 {
		t.Error("stale personal room still holds the connection")
	}
	if delivered, _ := r.Deliver(Frame{Kind: "x"}, UserRoom("u2")); delivered != 0 {
		t.Errorf("delivered %d to the old user, want 0", delivered)
	}
}

func TestRegistry_LeaveKeepsPersonalRoom(t *testing.T) {
	r := NewRegistry(4)
	c := r.Connect()
	r.Join(c, "e1", qa.Identity{UserID: "u1"})
	r.Leave(c, "e1")
	if got := r.Rooms(c); !reflect.DeepEqual(got, []string{"user:u1"}) {
		t.Errorf("Rooms %v, want [user:u1]", got)
	}
	r.Leave(c, "e1")
	r.Leave(c, "never-joined")
}

func TestRegistry_DisconnectRemovesEverything(t *testing.T) {
	r := NewRegistry(4)
	c := r.Connect()
	r.Join(c, "e1", qa.Identity{UserID: "u1"})
	r.Disconnect(c)
	r.Disconnect(c)
	if r.RoomSize(EventRoom("e1")) != 0 || r.RoomSize(UserRoom("u1")) != 0 {
		t.Error("rooms should be empty after disconnect")
	}
	if r.Len() != 0 {
		t.Errorf("Len %d, want 0", r.Len())
	}
	if _, open := <-c.Outbox(); open {
		t.Error("outbox should be closed")
	}
	r.Join(c, "e1", qa.Identity{})
	if r.RoomSize(EventRoom("e1")) != 0 {
		t.Error("join after disconnect should be ignored")
	}
}

func TestRegistry_DeliverRoomIsolation(t *testing.T) {
	r := NewRegistry(4)
	a := r.Connect()
	b := r.Connect()
	r.Join(a, "A", qa.Identity{})
	r.Join(b, "B", qa.Identity{})

	r.Deliver(Frame{Kind: "question:new"}, EventRoom("A"))

	if got := drain(a); !reflect.DeepEqual(got, []string{"question:new"}) {
		t.Errorf("room A member got %v", got)
	}
	if got := drain(b); len(got) != 0 {
		t.Errorf("room B member got %v, want nothing", got)
	}
}

func TestRegistry_DeliverDedupesAcrossRooms(t *testing.T) {
	r := NewRegistry(4)
	author := r.Connect()
	other := r.Connect()
	r.Join(author, "e1", qa.Identity{UserID: "u1"})
	r.Join(other, "e1", qa.Identity{})

	delivered, dropped := r.Deliver(Frame{Kind: "question:new"}, EventRoom("e1"), UserRoom("u1"))
	if delivered != 2 || dropped != 0 {
		t.Errorf("delivered %d dropped %d, want 2 and 0", delivered, dropped)
	}
	if got := drain(author); len(got) != 1 {
		t.Errorf("author got %d frames, want 1", len(got))
	}
}

func TestRegistry_DeliverToPersonalRoomOnly(t *testing.T) {
	r := NewRegistry(4)
	tab1 := r.Connect()
	tab2 := r.Connect()
	r.Join(tab1, "e1", qa.Identity{UserID: "u1"})
	r.Join(tab2, "e2", qa.Identity{UserID: "u1"})

	delivered, _ := r.Deliver(Frame{Kind: "question:new"}, UserRoom("u1"))
	if delivered != 2 {
		t.Errorf("delivered %d, want 2", delivered)
	}
}

func TestRegistry_DeliverCountsDrops(t *testing.T) {
	r := NewRegistry(1)
	c := r.Connect()
	r.Join(c, "e1", qa.Identity{})
	r.Deliver(Frame{Kind: "a"}, EventRoom("e1"))
	delivered, dropped := r.Deliver(Frame{Kind: "b"}, EventRoom("e1"))
	if delivered != 0 || dropped != 1 {
		t.Errorf("delivered %d dropped %d, want 0 and 1", delivered, dropped)
	}
}

func TestRegistry_DeliverUnknownRoom(t *testing.T) {
	r := NewRegistry(1)
	if d, x := r.Deliver(Frame{Kind: "a"}, "event:none"); d != 0 || x != 0 {
		t.Errorf("delivered %d dropped %d, want 0 and 0", d, x)
	}
}
