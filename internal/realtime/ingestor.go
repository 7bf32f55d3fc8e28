package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/polkiloo/orderboard/internal/adapter/transport"
	"github.com/polkiloo/orderboard/internal/clock"
	"github.com/polkiloo/orderboard/internal/domain/model"
	"github.com/polkiloo/orderboard/internal/domain/workflow"
)

// Enqueuer receives decoded push events.
type Enqueuer interface {
	Enqueue(ev model.PendingEvent)
	Reset()
}

// Source is the subscription side of a push transport.
type Source interface {
	Subscribe(event string) transport.Subscription
}

type eventPayload struct {
	OrderID int64             `json:"order_id"`
	Status  model.OrderStatus `json:"status"`
	At      *time.Time        `json:"at"`
}

// Ingestor turns push messages into pending events. It never calls the network.
type Ingestor struct {
	source Source
	buffer Enqueuer
	clock  clock.Clock
	logger *slog.Logger

	connected atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewIngestor constructs an ingestor feeding buffer.
func NewIngestor(source Source, buffer Enqueuer, clk clock.Clock, logger *slog.Logger) *Ingestor {
	return &Ingestor{source: source, buffer: buffer, clock: clk, logger: logger}
}

// Start subscribes to the push events and consumes them in the background.
// Subscriptions are in place when Start returns, so the transport may connect
// right after without losing its connect notification.
func (i *Ingestor) Start(ctx context.Context) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.cancel != nil {
		return
	}

	subs := []transport.Subscription{
		i.source.Subscribe(transport.EventOrderNew),
		i.source.Subscribe(transport.EventOrderUpdate),
		i.source.Subscribe(transport.EventConnect),
		i.source.Subscribe(transport.EventDisconnect),
	}

	runCtx, cancel := context.WithCancel(ctx)
	i.cancel = cancel
	i.wg.Add(1)
	go i.run(runCtx, subs)
}

// Stop cancels consumption and waits for the loop to exit.
func (i *Ingestor) Stop() {
	i.mu.Lock()
	if i.cancel != nil {
		i.cancel()
		i.cancel = nil
	}
	i.mu.Unlock()

	i.wg.Wait()
}

// Connected reports the last known push channel state.
func (i *Ingestor) Connected() bool {
	return i.connected.Load()
}

func (i *Ingestor) run(ctx context.Context, subs []transport.Subscription) {
	defer i.wg.Done()
	defer func() {
		for _, sub := range subs {
			sub.Close()
		}
	}()

	newCh, updateCh, connectCh, disconnectCh := subs[0].Messages, subs[1].Messages, subs[2].Messages, subs[3].Messages
	for {
		var (
			msg transport.Message
			ok  bool
		)
		select {
		case <-ctx.Done():
			return
		case msg, ok = <-newCh:
		case msg, ok = <-updateCh:
		case msg, ok = <-connectCh:
		case msg, ok = <-disconnectCh:
		}
		if !ok {
			i.logger.Info("push subscriptions closed")
			i.handleDisconnect()
			return
		}
		i.Handle(msg)
	}
}

// Handle processes a single push message.
func (i *Ingestor) Handle(msg transport.Message) {
	switch msg.Event {
	case transport.EventOrderNew:
		i.buffer.Enqueue(model.PendingEvent{Kind: model.EventKindNew, ArrivedAt: i.arrival(msg)})
	case transport.EventOrderUpdate:
		i.buffer.Enqueue(i.decodeUpdate(msg))
	case transport.EventConnect:
		if !i.connected.Swap(true) {
			i.logger.Info("push channel connected")
		}
	case transport.EventDisconnect:
		i.handleDisconnect()
	default:
		i.logger.Debug("ignoring push event", slog.String("event", msg.Event))
	}
}

func (i *Ingestor) handleDisconnect() {
	if i.connected.Swap(false) {
		i.logger.Warn("push channel disconnected")
	}
	i.buffer.Reset()
}

func (i *Ingestor) decodeUpdate(msg transport.Message) model.PendingEvent {
	ev := model.PendingEvent{Kind: model.EventKindUpdate, ArrivedAt: i.arrival(msg)}

	var payload eventPayload
	if len(msg.Payload) > 0 {
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			i.logger.Warn("malformed update payload", slog.String("error", err.Error()))
			return ev
		}
	}
	if payload.Status != "" && !workflow.Valid(payload.Status) {
		i.logger.Warn("update with unknown status",
			slog.Int64("order_id", payload.OrderID),
			slog.String("status", string(payload.Status)),
		)
		payload.Status = ""
	}

	ev.OrderID = payload.OrderID
	ev.Status = payload.Status
	if payload.At != nil {
		ev.OccurredAt = *payload.At
	}
	return ev
}

func (i *Ingestor) arrival(msg transport.Message) time.Time {
	if !msg.ReceivedAt.IsZero() {
		return msg.ReceivedAt
	}
	return i.clock.Now()
}
