package store

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/orderboard/internal/adapter/orderapi"
	"github.com/polkiloo/orderboard/internal/clock"
)

// Module provides the order store.
var Module = fx.Provide(newStore)

type storeParams struct {
	fx.In

	API    orderapi.Client
	Clock  clock.Clock
	Logger *slog.Logger
}

func newStore(p storeParams) *OrderStore {
	return New(p.API, p.Clock, p.Logger)
}
