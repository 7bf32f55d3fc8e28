package transport

import (
	"context"
	"time"
)

// Push event names.
const (
	EventOrderNew    = "order:new"
	EventOrderUpdate = "order:update"
	EventConnect     = "connect"
	EventDisconnect  = "disconnect"
)

// Message is a raw notification received from the push channel.
type Message struct {
	Event      string
	Payload    []byte
	ReceivedAt time.Time
}

// Adapter owns the connection to the push channel. It never interprets order data.
type Adapter interface {
	Connect(ctx context.Context) error
	Subscribe(event string) Subscription
	Connected() bool
	Close() error
}
