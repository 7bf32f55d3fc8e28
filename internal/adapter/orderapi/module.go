package orderapi

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/orderboard/internal/config"
)

// Module exposes the orders API client to fx graph.
var Module = fx.Provide(newClient)

type clientParams struct {
	fx.In

	Config *config.Config
	Logger *slog.Logger
}

func newClient(p clientParams) (Client, error) {
	return NewHTTPClient(p.Config.OrdersAPIAddress, p.Config.RequestTimeout, p.Logger)
}
