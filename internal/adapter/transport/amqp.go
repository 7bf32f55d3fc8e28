package transport

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	domainErrors "github.com/polkiloo/orderboard/internal/domain/errors"
)

const (
	amqpBackoffBase = 500 * time.Millisecond
	amqpBackoffMax  = 30 * time.Second
)

// AMQPAdapter consumes push events from a RabbitMQ fanout exchange through
// an exclusive auto-delete queue. The event name travels in the message type
// property. Lost connections are re-established with capped exponential backoff.
type AMQPAdapter struct {
	*Hub

	url      string
	exchange string
	logger   *slog.Logger

	mu     sync.Mutex
	conn   amqpConn
	cancel context.CancelFunc
	closed bool
	wg     sync.WaitGroup
}

// amqpConn is the part of *amqp.Connection the adapter owns after dialing.
type amqpConn interface {
	Close() error
	IsClosed() bool
}

type amqpSession struct {
	conn       *amqp.Connection
	deliveries <-chan amqp.Delivery
	closed     chan *amqp.Error
}

// NewAMQPAdapter prepares an adapter for the given broker URL and exchange.
func NewAMQPAdapter(url, exchange string, logger *slog.Logger) *AMQPAdapter {
	return &AMQPAdapter{
		Hub:      NewHub(logger),
		url:      url,
		exchange: exchange,
		logger:   logger,
	}
}

// Connect opens the first session synchronously and keeps it alive in the background.
func (a *AMQPAdapter) Connect(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return domainErrors.ErrTransportClosed
	}
	if a.cancel != nil {
		return fmt.Errorf("amqp transport already connected")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	session, err := a.open()
	if err != nil {
		return err
	}
	a.conn = session.conn

	runCtx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.wg.Add(1)
	go a.run(runCtx, session)
	return nil
}

// Close stops reconnecting, closes the broker connection and every subscription.
func (a *AMQPAdapter) Close() error {
	a.mu.Lock()
	a.closed = true
	cancel, conn := a.cancel, a.conn
	a.cancel, a.conn = nil, nil
	a.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	var err error
	if conn != nil && !conn.IsClosed() {
		err = conn.Close()
	}
	a.wg.Wait()
	a.SetConnected(false)
	a.closeSubscribers()
	return err
}

func (a *AMQPAdapter) run(ctx context.Context, session *amqpSession) {
	defer a.wg.Done()
	for {
		a.SetConnected(true)
		a.logger.Info("push transport connected", slog.String("transport", "amqp"), slog.String("exchange", a.exchange))
		a.consume(ctx, session)
		a.SetConnected(false)
		if ctx.Err() != nil {
			return
		}
		a.logger.Warn("push transport lost, reconnecting", slog.String("transport", "amqp"))

		next, ok := a.reconnect(ctx)
		if !ok {
			return
		}
		if !a.adopt(next.conn) {
			return
		}
		session = next
	}
}

// adopt stores a freshly dialed connection, closing it instead when Close
// already ran.
func (a *AMQPAdapter) adopt(conn amqpConn) bool {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		_ = conn.Close()
		return false
	}
	a.conn = conn
	a.mu.Unlock()
	return true
}

func (a *AMQPAdapter) consume(ctx context.Context, session *amqpSession) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-session.closed:
			return
		case d, ok := <-session.deliveries:
			if !ok {
				return
			}
			a.handleDelivery(d)
		}
	}
}

func (a *AMQPAdapter) reconnect(ctx context.Context) (*amqpSession, bool) {
	for attempt := 1; ; attempt++ {
		select {
		case <-ctx.Done():
			return nil, false
		case <-time.After(backoff(attempt)):
		}
		session, err := a.open()
		if err == nil {
			return session, true
		}
		a.logger.Warn("push transport reconnect failed",
			slog.String("transport", "amqp"),
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()),
		)
	}
}

func (a *AMQPAdapter) open() (*amqpSession, error) {
	conn, err := amqp.Dial(a.url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(a.exchange, "fanout", true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", a.exchange, err)
	}
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, "", a.exchange, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("bind queue: %w", err)
	}
	deliveries, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("consume: %w", err)
	}
	closed := conn.NotifyClose(make(chan *amqp.Error, 1))
	return &amqpSession{conn: conn, deliveries: deliveries, closed: closed}, nil
}

func (a *AMQPAdapter) handleDelivery(d amqp.Delivery) {
	event := d.Type
	if event == "" {
		event = d.RoutingKey
	}
	if event == "" {
		a.logger.Warn("discarding push message without event name", slog.String("transport", "amqp"))
		return
	}
	a.Publish(event, d.Body)
}

func backoff(attempt int) time.Duration {
	d := amqpBackoffBase
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= amqpBackoffMax {
			return amqpBackoffMax
		}
	}
	return d
}
