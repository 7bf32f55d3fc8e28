package handlers

import (
	"context"

	"github.com/polkiloo/orderboard/internal/board"
	"github.com/polkiloo/orderboard/internal/domain/model"
	"github.com/polkiloo/orderboard/internal/domain/workflow"
)

// BoardReader serves the board state.
type BoardReader interface {
	Board() board.View
	Refresh(ctx context.Context) error
	SetFilter(filter model.OrderFilter)
}

// GestureFacade handles pointer gestures.
type GestureFacade interface {
	InteractionStart()
	InteractionEnd()
	DragStart(id int64) error
	DragCancel()
	Drop(ctx context.Context, id int64, column workflow.Stage) error
}

// ActionFacade handles the card action buttons.
type ActionFacade interface {
	Accept(ctx context.Context, id int64, extra *model.StatusExtra) error
	StartProduction(ctx context.Context, id int64) error
	Send(ctx context.Context, id int64) error
	Complete(ctx context.Context, id int64) error
	Advance(ctx context.Context, id int64) error
	Cancel(ctx context.Context, id int64, reason string) error
	UpdateOrder(ctx context.Context, id int64, fields model.OrderUpdate) error
	CreateOrder(ctx context.Context, draft model.OrderDraft) (*model.CreatedOrder, error)
}

// SyncFacade exposes synchronization diagnostics.
type SyncFacade interface {
	Metrics() model.SyncMetrics
	Journal(ctx context.Context, limit int) ([]model.TransitionRecord, error)
	JournalHealth(ctx context.Context) error
	Connected() bool
}

// BoardFacade aggregates the full set of operations used across handlers.
type BoardFacade interface {
	BoardReader
	GestureFacade
	ActionFacade
	SyncFacade
}
