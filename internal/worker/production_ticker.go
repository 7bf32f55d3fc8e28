package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/polkiloo/orderboard/internal/clock"
	"github.com/polkiloo/orderboard/internal/store"
)

// TimerRefresher recomputes per-card production timers.
type TimerRefresher interface {
	RefreshTimers(now time.Time)
}

// ChangeSource notifies about changes of the order collection.
type ChangeSource interface {
	Subscribe() store.Subscription
}

// TickerOption customises a ProductionTicker.
type TickerOption func(*ProductionTicker)

// WithChanges refreshes timers as soon as source reports a change, so a
// card entering preparation gets its timer without waiting for the tick.
func WithChanges(source ChangeSource) TickerOption {
	return func(p *ProductionTicker) {
		p.changes = source
	}
}

// ProductionTicker refreshes production timers on a fixed tick.
type ProductionTicker struct {
	board    TimerRefresher
	clock    clock.Clock
	interval time.Duration
	changes  ChangeSource
	logger   *slog.Logger

	wg     sync.WaitGroup
	cancel context.CancelFunc
	mu     sync.Mutex
}

// NewProductionTicker constructs the ticker. Non-positive intervals default to one second.
func NewProductionTicker(board TimerRefresher, clk clock.Clock, interval time.Duration, logger *slog.Logger, opts ...TickerOption) *ProductionTicker {
	if interval <= 0 {
		interval = time.Second
	}
	p := &ProductionTicker{board: board, clock: clk, interval: interval, logger: logger}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start refreshes once and keeps refreshing in the background.
func (p *ProductionTicker) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	var sub store.Subscription
	if p.changes != nil {
		sub = p.changes.Subscribe()
	}
	p.board.RefreshTimers(p.clock.Now())

	p.wg.Add(1)
	go p.loop(runCtx, sub)
}

// Stop waits for the loop to finish.
func (p *ProductionTicker) Stop() {
	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *ProductionTicker) loop(ctx context.Context, sub store.Subscription) {
	defer p.wg.Done()
	defer sub.Close()
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	changes := sub.Changes
	for {
		select {
		case <-ctx.Done():
			p.logger.Debug("production ticker stopped")
			return
		case <-ticker.C:
			p.board.RefreshTimers(p.clock.Now())
		case _, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			p.board.RefreshTimers(p.clock.Now())
		}
	}
}
