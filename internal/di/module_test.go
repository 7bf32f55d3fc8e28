package di

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"go.uber.org/fx"

	"github.com/polkiloo/orderboard/internal/adapter/orderapi"
	"github.com/polkiloo/orderboard/internal/adapter/transport"
	"github.com/polkiloo/orderboard/internal/app"
	"github.com/polkiloo/orderboard/internal/config"
	"github.com/polkiloo/orderboard/internal/domain/repository"
	"github.com/polkiloo/orderboard/internal/storage/memory"
	"github.com/polkiloo/orderboard/internal/test"
)

type adapterStub struct {
	*transport.Hub
}

func (adapterStub) Connect(context.Context) error { return nil }

func (adapterStub) Close() error { return nil }

func TestModuleComposesGraphWithReplacements(t *testing.T) {
	cfg := &config.Config{
		RunAddress:         ":0",
		OrdersAPIAddress:   "http://localhost",
		PushURL:            "redis://localhost:6379/0",
		PushTopic:          "orders",
		DebounceWindow:     400 * time.Millisecond,
		InteractionGrace:   500 * time.Millisecond,
		RefetchThreshold:   10,
		ProductionEstimate: 20 * time.Minute,
		TimerTick:          time.Second,
		ShutdownTimeout:    time.Millisecond,
	}
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	adapter := adapterStub{Hub: transport.NewHub(logger)}

	var facade *app.BoardFacade
	fxApp := fx.New(
		fx.NopLogger,
		fx.Provide(func() context.Context { return context.Background() }),
		Module(
			fx.Replace(cfg),
			fx.Replace(logger),
			fx.Replace(orderapi.Client(test.NewOrderAPIStub())),
			fx.Replace(transport.Adapter(adapter)),
			fx.Replace(repository.TransitionRepository(memory.NewTransitions(8))),
		),
		fx.Populate(&facade),
	)

	if err := fxApp.Err(); err != nil {
		t.Fatalf("fx app returned error: %v", err)
	}
	t.Cleanup(func() { _ = fxApp.Stop(context.Background()) })
	if facade == nil {
		t.Fatal("expected board facade instance")
	}
	if facade.Connected() {
		t.Fatal("facade should start disconnected")
	}
}
