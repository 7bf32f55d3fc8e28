package transport

import (
	"fmt"
	"log/slog"
	"net/url"

	"go.uber.org/fx"

	"github.com/polkiloo/orderboard/internal/config"
)

// Module provides the push transport selected by the PUSH_URL scheme.
var Module = fx.Provide(newAdapter)

type adapterParams struct {
	fx.In

	Config *config.Config
	Logger *slog.Logger
}

func newAdapter(p adapterParams) (Adapter, error) {
	return New(p.Config.PushURL, p.Config.PushTopic, p.Logger)
}

// New builds a Redis or AMQP adapter depending on the URL scheme.
func New(rawURL, topic string, logger *slog.Logger) (Adapter, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse push url: %w", err)
	}
	switch u.Scheme {
	case "redis", "rediss":
		return NewRedisAdapter(rawURL, topic, logger)
	case "amqp", "amqps":
		return NewAMQPAdapter(rawURL, topic, logger), nil
	default:
		return nil, fmt.Errorf("unsupported push url scheme %q", u.Scheme)
	}
}
