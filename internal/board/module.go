package board

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/orderboard/internal/clock"
	"github.com/polkiloo/orderboard/internal/config"
	"github.com/polkiloo/orderboard/internal/domain/repository"
	"github.com/polkiloo/orderboard/internal/realtime"
	"github.com/polkiloo/orderboard/internal/store"
)

// Module provides the board controller.
var Module = fx.Provide(newController)

type controllerParams struct {
	fx.In

	Config  *config.Config
	Store   *store.OrderStore
	Journal repository.TransitionRepository
	Buffer  *realtime.Buffer
	Clock   clock.Clock
	Logger  *slog.Logger
}

func newController(p controllerParams) *Controller {
	return New(p.Store, p.Journal, p.Buffer, p.Clock, p.Config.ProductionEstimate, p.Logger)
}
