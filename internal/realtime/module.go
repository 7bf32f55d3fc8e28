package realtime

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/orderboard/internal/adapter/transport"
	"github.com/polkiloo/orderboard/internal/clock"
	"github.com/polkiloo/orderboard/internal/config"
	"github.com/polkiloo/orderboard/internal/store"
)

// Module provides the coalescing buffer and the push event ingestor.
var Module = fx.Options(
	fx.Provide(newBuffer),
	fx.Provide(newIngestor),
)

type bufferParams struct {
	fx.In

	Config *config.Config
	Store  *store.OrderStore
	Clock  clock.Clock
	Logger *slog.Logger
}

func newBuffer(p bufferParams) *Buffer {
	return NewBuffer(p.Store, p.Clock, Options{
		DebounceWindow:   p.Config.DebounceWindow,
		InteractionGrace: p.Config.InteractionGrace,
		RefetchThreshold: p.Config.RefetchThreshold,
	}, p.Logger)
}

type ingestorParams struct {
	fx.In

	Adapter transport.Adapter
	Buffer  *Buffer
	Clock   clock.Clock
	Logger  *slog.Logger
}

func newIngestor(p ingestorParams) *Ingestor {
	return NewIngestor(p.Adapter, p.Buffer, p.Clock, p.Logger)
}
