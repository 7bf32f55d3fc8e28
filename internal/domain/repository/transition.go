package repository

import (
	"context"

	"github.com/polkiloo/orderboard/internal/domain/model"
)

// TransitionRepository persists board transition attempts.
type TransitionRepository interface {
	Record(ctx context.Context, rec model.TransitionRecord) error
	// Recent returns the newest records first.
	Recent(ctx context.Context, limit int) ([]model.TransitionRecord, error)
	// Ping reports whether the backing store is reachable.
	Ping(ctx context.Context) error
}
