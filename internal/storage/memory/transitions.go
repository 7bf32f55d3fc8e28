package memory

import (
	"context"
	"sync"

	"github.com/polkiloo/orderboard/internal/domain/model"
)

// DefaultCapacity bounds the in-memory journal.
const DefaultCapacity = 500

// Transitions keeps the latest transition records in a ring.
type Transitions struct {
	mu       sync.Mutex
	records  []model.TransitionRecord
	next     int
	full     bool
	capacity int
}

// NewTransitions creates a journal retaining at most capacity records.
func NewTransitions(capacity int) *Transitions {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Transitions{records: make([]model.TransitionRecord, capacity), capacity: capacity}
}

func (t *Transitions) Record(_ context.Context, rec model.TransitionRecord) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.records[t.next] = rec
	t.next = (t.next + 1) % t.capacity
	if t.next == 0 {
		t.full = true
	}
	return nil
}

func (t *Transitions) Recent(_ context.Context, limit int) ([]model.TransitionRecord, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	size := t.next
	if t.full {
		size = t.capacity
	}
	if limit <= 0 || limit > size {
		limit = size
	}
	out := make([]model.TransitionRecord, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (t.next - i + t.capacity) % t.capacity
		out = append(out, t.records[idx])
	}
	return out, nil
}

// Ping always succeeds; the ring lives in process memory.
func (t *Transitions) Ping(context.Context) error { return nil }
