package transport

import (
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const defaultSubscriberCapacity = 256

// HubOption customizes Hub construction.
type HubOption func(*Hub)

// WithSubscriberCapacity overrides the buffered channel size per subscriber.
func WithSubscriberCapacity(capacity int) HubOption {
	return func(h *Hub) {
		if capacity > 0 {
			h.capacity = capacity
		}
	}
}

// WithClock allows tests to control receive timestamps.
func WithClock(clock func() time.Time) HubOption {
	return func(h *Hub) {
		if clock != nil {
			h.clock = clock
		}
	}
}

// Hub fans raw messages out to subscribers keyed by event name. Concrete
// adapters feed it; consumers only see typed messages on channels.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[*subscriber]struct{}
	capacity    int
	connected   atomic.Bool
	clock       func() time.Time
	logger      *slog.Logger
}

// Subscription represents an active subscription to one event name.
type Subscription struct {
	Messages <-chan Message
	cancel   func()
}

// Close terminates the subscription and closes Messages.
func (s Subscription) Close() {
	if s.cancel != nil {
		s.cancel()
	}
}

// NewHub constructs an empty hub.
func NewHub(logger *slog.Logger, opts ...HubOption) *Hub {
	h := &Hub{
		subscribers: map[string]map[*subscriber]struct{}{},
		capacity:    defaultSubscriberCapacity,
		clock:       time.Now,
		logger:      logger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Subscribe registers for messages with the given event name.
func (h *Hub) Subscribe(event string) Subscription {
	key := normalizeEvent(event)
	sub := newSubscriber(h.capacity)
	h.mu.Lock()
	if h.subscribers[key] == nil {
		h.subscribers[key] = map[*subscriber]struct{}{}
	}
	h.subscribers[key][sub] = struct{}{}
	h.mu.Unlock()
	return Subscription{
		Messages: sub.ch,
		cancel:   func() { h.unsubscribe(key, sub) },
	}
}

// Publish delivers payload to every subscriber of event. Messages without
// subscribers are dropped.
func (h *Hub) Publish(event string, payload []byte) {
	key := normalizeEvent(event)
	msg := Message{Event: key, Payload: payload, ReceivedAt: h.clock()}
	h.mu.RLock()
	subs := make([]*subscriber, 0, len(h.subscribers[key]))
	for sub := range h.subscribers[key] {
		subs = append(subs, sub)
	}
	h.mu.RUnlock()
	for _, sub := range subs {
		if dropped := sub.deliver(msg); dropped && h.logger != nil {
			h.logger.Warn("push subscriber overflow, dropped oldest message", slog.String("event", key))
		}
	}
}

// SetConnected records the connection state and emits connect/disconnect on change.
func (h *Hub) SetConnected(connected bool) {
	if h.connected.Swap(connected) == connected {
		return
	}
	if connected {
		h.Publish(EventConnect, nil)
		return
	}
	h.Publish(EventDisconnect, nil)
}

// Connected reports the last known connection state.
func (h *Hub) Connected() bool {
	return h.connected.Load()
}

func (h *Hub) closeSubscribers() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for key, subs := range h.subscribers {
		for sub := range subs {
			sub.close()
		}
		delete(h.subscribers, key)
	}
}

func (h *Hub) unsubscribe(key string, sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs := h.subscribers[key]; subs != nil {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(h.subscribers, key)
		}
	}
	sub.close()
}

func normalizeEvent(event string) string {
	return strings.ToLower(strings.TrimSpace(event))
}

type subscriber struct {
	mu     sync.Mutex
	ch     chan Message
	closed bool
}

func newSubscriber(capacity int) *subscriber {
	return &subscriber{ch: make(chan Message, capacity)}
}

// deliver never blocks; when the buffer is full the oldest message is dropped.
func (s *subscriber) deliver(msg Message) (dropped bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	for {
		select {
		case s.ch <- msg:
			return dropped
		default:
		}
		select {
		case <-s.ch:
			dropped = true
		default:
		}
	}
}

func (s *subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}
