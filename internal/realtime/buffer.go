package realtime

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/polkiloo/orderboard/internal/clock"
	"github.com/polkiloo/orderboard/internal/domain/model"
)

const (
	DefaultDebounceWindow   = 400 * time.Millisecond
	DefaultInteractionGrace = 500 * time.Millisecond
	DefaultRefetchThreshold = 10

	minReschedule = 10 * time.Millisecond
)

// Reconciliation strategies reported in logs.
const (
	StrategyRefetch = "refetch"
	StrategyPatch   = "patch"
)

// Store is the part of the order store a flush reconciles against.
type Store interface {
	FetchOrders(ctx context.Context) error
	ApplyStatus(id int64, status model.OrderStatus, at time.Time) bool
}

// Options tunes the buffer. Non-positive values fall back to defaults.
type Options struct {
	DebounceWindow   time.Duration
	InteractionGrace time.Duration
	RefetchThreshold int
}

func (o Options) normalized() Options {
	if o.DebounceWindow <= 0 {
		o.DebounceWindow = DefaultDebounceWindow
	}
	if o.InteractionGrace <= 0 {
		o.InteractionGrace = DefaultInteractionGrace
	}
	if o.RefetchThreshold <= 0 {
		o.RefetchThreshold = DefaultRefetchThreshold
	}
	return o
}

type pendingStatus struct {
	status model.OrderStatus
	at     time.Time
}

// Buffer collects push events and reconciles them with the store in one
// debounced flush. Flushes are held back while the board is being
// manipulated.
type Buffer struct {
	store  Store
	clock  clock.Clock
	logger *slog.Logger
	opts   Options

	// flushMu keeps at most one flush running.
	flushMu sync.Mutex

	mu          sync.Mutex
	queue       []model.PendingEvent
	pending     map[int64]pendingStatus
	timer       clock.Timer
	generation  uint64
	interacting bool
	holdUntil   time.Time
	metrics     model.SyncMetrics
}

// NewBuffer constructs an idle buffer.
func NewBuffer(store Store, clk clock.Clock, opts Options, logger *slog.Logger) *Buffer {
	return &Buffer{
		store:   store,
		clock:   clk,
		logger:  logger,
		opts:    opts.normalized(),
		pending: map[int64]pendingStatus{},
	}
}

// Enqueue records ev and restarts the debounce window.
func (b *Buffer) Enqueue(ev model.PendingEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ev.ArrivedAt.IsZero() {
		ev.ArrivedAt = b.clock.Now()
	}
	b.metrics.EventsReceived++
	b.queue = append(b.queue, ev)
	if ev.Actionable() {
		b.pending[ev.OrderID] = pendingStatus{status: ev.Status, at: ev.OccurredAt}
	}
	b.scheduleLocked(b.opts.DebounceWindow)
}

// MarkInteractionStart holds flushes while a gesture is in progress.
func (b *Buffer) MarkInteractionStart() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.interacting = true
	b.extendHoldLocked()
}

// MarkInteractionEnd releases the gesture hold after the grace period and
// schedules a flush attempt.
func (b *Buffer) MarkInteractionEnd() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.interacting = false
	b.extendHoldLocked()
	b.scheduleLocked(b.opts.DebounceWindow)
}

// Flush reconciles the buffered events with the store. It is a no-op when
// nothing is buffered and is deferred while the interaction hold is active.
func (b *Buffer) Flush(ctx context.Context) error {
	return b.flush(ctx, nil)
}

// flush runs a flush. A non-nil scheduled is the timer generation that
// triggered it; the flush is skipped when the window was restarted since.
func (b *Buffer) flush(ctx context.Context, scheduled *uint64) error {
	b.flushMu.Lock()
	defer b.flushMu.Unlock()

	b.mu.Lock()
	if scheduled != nil {
		if *scheduled != b.generation {
			b.mu.Unlock()
			return nil
		}
		b.timer = nil
	}
	now := b.clock.Now()
	if b.interacting || now.Before(b.holdUntil) {
		wait := b.holdUntil.Sub(now)
		if wait < minReschedule {
			wait = minReschedule
		}
		b.scheduleLocked(wait)
		b.mu.Unlock()
		b.logger.Debug("flush deferred by interaction", slog.Duration("wait", wait))
		return nil
	}
	if len(b.queue) == 0 && len(b.pending) == 0 {
		b.mu.Unlock()
		return nil
	}

	drained := b.queue
	b.queue = nil
	var (
		queued  time.Duration
		refetch bool
	)
	for _, ev := range drained {
		queued += now.Sub(ev.ArrivedAt)
		if ev.Kind == model.EventKindNew {
			refetch = true
		}
	}
	if len(b.pending) > b.opts.RefetchThreshold {
		refetch = true
	}
	patches := b.pending
	b.pending = map[int64]pendingStatus{}

	b.metrics.EventsFlushed++
	if len(drained) > 0 {
		b.metrics.AvgQueueTimeMs = float64(queued) / float64(len(drained)) / float64(time.Millisecond)
	}
	b.mu.Unlock()

	if refetch {
		b.logger.Info("flush",
			slog.String("strategy", StrategyRefetch),
			slog.Int("events", len(drained)),
			slog.Int("pending", len(patches)),
		)
		return b.store.FetchOrders(ctx)
	}

	applied := 0
	for id, p := range patches {
		if b.store.ApplyStatus(id, p.status, p.at) {
			applied++
		} else {
			b.logger.Debug("patch for unknown order skipped", slog.Int64("order_id", id))
		}
	}
	b.logger.Info("flush",
		slog.String("strategy", StrategyPatch),
		slog.Int("events", len(drained)),
		slog.Int("applied", applied),
	)
	return nil
}

// Reset drops everything buffered and cancels the scheduled flush.
func (b *Buffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.stopLocked()
	b.queue = nil
	b.pending = map[int64]pendingStatus{}
}

// Metrics returns a snapshot of the counters and the buffer state.
func (b *Buffer) Metrics() model.SyncMetrics {
	b.mu.Lock()
	defer b.mu.Unlock()

	m := b.metrics
	m.CoalescedEvents = max(0, m.EventsReceived-m.EventsFlushed)
	m.QueuedEvents = len(b.queue)
	m.Interacting = b.interacting
	return m
}

func (b *Buffer) extendHoldLocked() {
	until := b.clock.Now().Add(b.opts.InteractionGrace)
	if until.After(b.holdUntil) {
		b.holdUntil = until
	}
}

func (b *Buffer) scheduleLocked(d time.Duration) {
	b.stopLocked()
	generation := b.generation
	b.timer = b.clock.AfterFunc(d, func() { b.fire(generation) })
}

func (b *Buffer) stopLocked() {
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.generation++
}

func (b *Buffer) fire(generation uint64) {
	if err := b.flush(context.Background(), &generation); err != nil {
		b.logger.Error("flush failed", slog.String("error", err.Error()))
	}
}
