package postgres

import (
	"context"
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/orderboard/internal/config"
	"github.com/polkiloo/orderboard/internal/domain/repository"
	"github.com/polkiloo/orderboard/internal/storage/memory"
)

// Module wires the transition journal. Without DATABASE_URI the journal is kept in memory.
var Module = fx.Provide(newTransitions)

type storageParams struct {
	fx.In

	Ctx       context.Context
	Config    *config.Config
	Logger    *slog.Logger
	Lifecycle fx.Lifecycle `optional:"true"`
}

func newStorage(p storageParams) (*Storage, error) {
	return New(p.Ctx, p.Config.DatabaseURI, p.Logger)
}

func newTransitions(p storageParams) (repository.TransitionRepository, error) {
	if p.Config.DatabaseURI == "" {
		p.Logger.Info("database not configured, transition journal kept in memory")
		return memory.NewTransitions(memory.DefaultCapacity), nil
	}
	storage, err := newStorage(p)
	if err != nil {
		return nil, err
	}
	if p.Lifecycle != nil {
		registerLifecycle(p.Lifecycle, storage)
	}
	return storage.Transitions(), nil
}

func registerLifecycle(lc fx.Lifecycle, storage *Storage) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			storage.Close()
			return nil
		},
	})
}
