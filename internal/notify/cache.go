package notify

import (
	"context"
	"errors"
	"sync"

	"liveqa/internal/qa"
)

// ErrNotFound is returned by a Lookup that has no record for an id.
var ErrNotFound = errors.New("notify: not found")

// Lookup resolves ids to the store's current representation before a
// broadcast.
type Lookup interface {
	Question(ctx context.Context, id string) (qa.Question, error)
	Poll(ctx context.Context, id string) (qa.Poll, error)
	Event(ctx context.Context, id string) (qa.Event, error)
}

// DefaultCacheSize bounds each of the cache's three maps.
const DefaultCacheSize = 4096

// Cache is a Lookup fed by the payloads the mapper has already relayed, so
// it holds each record as it was before the next write.
// Each kind keeps at most size entries, evicting the oldest insert first.
type Cache struct {
	mu        sync.Mutex
	size      int
	questions fifo[qa.Question]
	polls     fifo[qa.Poll]
	events    fifo[qa.Event]
}

// NewCache creates a cache holding up to size records per kind.
func NewCache(size int) *Cache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	return &Cache{
		size:      size,
		questions: newFIFO[qa.Question](),
		polls:     newFIFO[qa.Poll](),
		events:    newFIFO[qa.Event](),
	}
}

func (c *Cache) putQuestion(q qa.Question) {
	if q.ID == "" {
		return
	}
	c.mu.Lock()
	c.questions.put(q.ID, q.Clone(), c.size)
	c.mu.Unlock()
}

func (c *Cache) putPoll(p qa.Poll) {
	if p.ID == "" {
		return
	}
	c.mu.Lock()
	c.polls.put(p.ID, p.Clone(), c.size)
	c.mu.Unlock()
}

func (c *Cache) putEvent(e qa.Event) {
	if e.ID == "" {
		return
	}
	c.mu.Lock()
	c.events.put(e.ID, e, c.size)
	c.mu.Unlock()
}

func (c *Cache) forget(questionID, pollID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if questionID != "" {
		c.questions.remove(questionID)
	}
	if pollID != "" {
		c.polls.remove(pollID)
	}
}

// Question implements Lookup.
func (c *Cache) Question(_ context.Context, id string) (qa.Question, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	q, ok := c.questions.get(id)
	if !ok {
		return qa.Question{}, ErrNotFound
	}
	return q.Clone(), nil
}

// Poll implements Lookup.
func (c *Cache) Poll(_ context.Context, id string) (qa.Poll, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.polls.get(id)
	if !ok {
		return qa.Poll{}, ErrNotFound
	}
	return p.Clone(), nil
}

// Event implements Lookup.
func (c *Cache) Event(_ context.Context, id string) (qa.Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.events.get(id)
	if !ok {
		return qa.Event{}, ErrNotFound
	}
	return e, nil
}

type fifo[T any] struct {
	items map[string]T
	order []string
}

func newFIFO[T any]() fifo[T] {
	return fifo[T]{items: make(map[string]T)}
}

func (f *fifo[T]) put(id string, v T, limit int) {
	if _, ok := f.items[id]; !ok {
		f.order = append(f.order, id)
	}
	f.items[id] = v
	for len(f.items) > limit && len(f.order) > 0 {
		oldest := f.order[0]
		f.order = f.order[1:]
		delete(f.items, oldest)
	}
}

func (f *fifo[T]) get(id string) (T, bool) {
	v, ok := f.items[id]
	return v, ok
}

func (f *fifo[T]) remove(id string) {
	if _, ok := f.items[id]; !ok {
		return
	}
	delete(f.items, id)
	for i, o := range f.order {
		if o == id {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
}
