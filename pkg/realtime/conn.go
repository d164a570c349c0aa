package realtime

import (
	"sync"

	"liveqa/internal/qa"
)

// DefaultOutboxSize is the number of frames a connection may lag behind
// before new frames are dropped for it.
const DefaultOutboxSize = 32

// Frame is one encoded event queued for a connection.
type Frame struct {
	Kind string
	Data []byte
}

// Conn is one live transport session. Its outbox is filled by the registry
// and drained by the transport's single writer.
type Conn struct {
	ID string

	out chan Frame

	mu       sync.Mutex
	identity qa.Identity

	// Guarded by the owning Registry's mutex.
	closed    bool
	eventRoom string
	userRoom  string
}

func newConn(id string, size int) *Conn {
	if size <= 0 {
		size = DefaultOutboxSize
	}
	return &Conn{ID: id, out: make(chan Frame, size)}
}

// Outbox returns the channel of frames to write. It is closed on Disconnect.
func (c *Conn) Outbox() <-chan Frame {
	return c.out
}

// Identity returns the identity the connection last joined with.
func (c *Conn) Identity() qa.Identity {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.identity
}

func (c *Conn) setIdentity(id qa.Identity) {
	c.mu.Lock()
	c.identity = id
	c.mu.Unlock()
}

// offer queues f without blocking. Caller holds the registry lock.
func (c *Conn) offer(f Frame) bool {
	if c.closed {
		return false
	}
	select {
	case c.out <- f:
		return true
	default:
		// Lagging subscriber: drop, the client resyncs on reload.
		return false
	}
}

// close closes the outbox once. Caller holds the registry lock.
func (c *Conn) close() {
	if c.closed {
		return
	}
	c.closed = true
	close(c.out)
}
