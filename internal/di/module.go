package di

import (
	"go.uber.org/fx"

	"github.com/polkiloo/orderboard/internal/adapter/orderapi"
	"github.com/polkiloo/orderboard/internal/adapter/transport"
	"github.com/polkiloo/orderboard/internal/app"
	"github.com/polkiloo/orderboard/internal/board"
	"github.com/polkiloo/orderboard/internal/clock"
	"github.com/polkiloo/orderboard/internal/config"
	"github.com/polkiloo/orderboard/internal/logger"
	"github.com/polkiloo/orderboard/internal/realtime"
	"github.com/polkiloo/orderboard/internal/server/http/handlers"
	"github.com/polkiloo/orderboard/internal/server/http/router"
	"github.com/polkiloo/orderboard/internal/storage/postgres"
	"github.com/polkiloo/orderboard/internal/store"
)

func Module(opts ...fx.Option) fx.Option {
	modules := []fx.Option{
		config.Module,
		logger.Module,
		clock.Module,
		orderapi.Module,
		transport.Module,
		store.Module,
		realtime.Module,
		postgres.Module,
		board.Module,
		fx.Provide(func(f *app.BoardFacade) handlers.BoardFacade { return f }),
		router.Module,
		app.Module,
	}
	modules = append(modules, opts...)
	return fx.Options(modules...)
}
