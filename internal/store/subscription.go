package store

import "sync"

// Subscription delivers a signal after every change of the collection.
// Signals are coalesced: a reader that falls behind sees one pending signal.
type Subscription struct {
	Changes <-chan struct{}
	cancel  func()
}

// Close unsubscribes and closes Changes.
func (s Subscription) Close() {
	if s.cancel != nil {
		s.cancel()
	}
}

type subscriber struct {
	once sync.Once
	ch   chan struct{}
}

// Subscribe registers a reader.
func (s *OrderStore) Subscribe() Subscription {
	sub := &subscriber{ch: make(chan struct{}, 1)}
	s.mu.Lock()
	s.subs[sub] = struct{}{}
	s.mu.Unlock()
	return Subscription{
		Changes: sub.ch,
		cancel: func() {
			s.mu.Lock()
			delete(s.subs, sub)
			s.mu.Unlock()
			sub.once.Do(func() { close(sub.ch) })
		},
	}
}

func (s *OrderStore) notify() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for sub := range s.subs {
		select {
		case sub.ch <- struct{}{}:
		default:
		}
	}
}
