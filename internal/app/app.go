package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/polkiloo/orderboard/internal/adapter/transport"
	"github.com/polkiloo/orderboard/internal/board"
	"github.com/polkiloo/orderboard/internal/clock"
	"github.com/polkiloo/orderboard/internal/config"
	"github.com/polkiloo/orderboard/internal/realtime"
	"github.com/polkiloo/orderboard/internal/store"
	"github.com/polkiloo/orderboard/internal/worker"
)

// Module wires application services, runtime components, and lifecycle hooks.
var Module = fx.Options(
	fx.Provide(
		NewBoardFacade,
		newHTTPServer,
		newProductionTicker,
	),
	fx.Invoke(registerLifecycle),
)

type serverParams struct {
	fx.In

	Config *config.Config
	Router *gin.Engine
}

func newHTTPServer(p serverParams) *http.Server {
	return &http.Server{
		Addr:    p.Config.RunAddress,
		Handler: p.Router,
	}
}

type tickerParams struct {
	fx.In

	Board  *board.Controller
	Store  *store.OrderStore
	Clock  clock.Clock
	Config *config.Config
	Logger *slog.Logger
}

func newProductionTicker(p tickerParams) *worker.ProductionTicker {
	return worker.NewProductionTicker(p.Board, p.Clock, p.Config.TimerTick, p.Logger, worker.WithChanges(p.Store))
}

type lifecycleParams struct {
	fx.In

	Lifecycle  fx.Lifecycle
	Shutdowner fx.Shutdowner
	Logger     *slog.Logger
	Server     *http.Server
	Transport  transport.Adapter
	Ingestor   *realtime.Ingestor
	Buffer     *realtime.Buffer
	Store      *store.OrderStore
	Ticker     *worker.ProductionTicker
	Config     *config.Config
}

func registerLifecycle(p lifecycleParams) {
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			p.Logger.Info("starting orderboard", slog.String("addr", p.Server.Addr))

			p.Ingestor.Start(context.Background())
			if err := p.Transport.Connect(ctx); err != nil {
				p.Ingestor.Stop()
				return err
			}
			if err := p.Store.FetchOrders(ctx); err != nil {
				p.Logger.Warn("initial fetch failed, board starts empty", slog.String("error", err.Error()))
			}
			p.Ticker.Start(context.Background())

			go func() {
				if err := p.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					p.Logger.Error("http server terminated", slog.String("error", err.Error()))
					_ = p.Shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			p.Ticker.Stop()
			if err := p.Transport.Close(); err != nil {
				p.Logger.Warn("closing push transport", slog.String("error", err.Error()))
			}
			p.Ingestor.Stop()
			p.Buffer.Reset()

			shutdownCtx := ctx
			cancel := func() {}
			if _, ok := ctx.Deadline(); !ok {
				shutdownCtx, cancel = context.WithTimeout(ctx, p.Config.ShutdownTimeout)
			}
			defer cancel()

			if err := p.Server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			p.Logger.Info("orderboard stopped")
			return nil
		},
	})
}
