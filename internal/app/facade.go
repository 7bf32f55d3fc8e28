package app

import (
	"context"

	"github.com/polkiloo/orderboard/internal/board"
	"github.com/polkiloo/orderboard/internal/domain/model"
	"github.com/polkiloo/orderboard/internal/domain/repository"
	"github.com/polkiloo/orderboard/internal/domain/workflow"
	"github.com/polkiloo/orderboard/internal/realtime"
	"github.com/polkiloo/orderboard/internal/store"
)

// ConnectionState reports push channel connectivity.
type ConnectionState interface {
	Connected() bool
}

// BoardFacade exposes the board operations served over HTTP.
type BoardFacade struct {
	store      *store.OrderStore
	buffer     *realtime.Buffer
	board      *board.Controller
	journal    repository.TransitionRepository
	connection ConnectionState
}

func NewBoardFacade(store *store.OrderStore, buffer *realtime.Buffer, board *board.Controller, journal repository.TransitionRepository, connection *realtime.Ingestor) *BoardFacade {
	return &BoardFacade{store: store, buffer: buffer, board: board, journal: journal, connection: connection}
}

func (f *BoardFacade) Board() board.View {
	view := board.View{
		Columns:   f.board.Columns(),
		Timers:    f.board.Timers(),
		Dragging:  f.board.Dragging(),
		Connected: f.connection.Connected(),
		Loading:   f.store.Loading(),
	}
	if err := f.store.Err(); err != nil {
		view.Error = err.Error()
	}
	return view
}

func (f *BoardFacade) Refresh(ctx context.Context) error {
	return f.store.FetchOrders(ctx)
}

func (f *BoardFacade) SetFilter(filter model.OrderFilter) {
	f.store.SetFilter(filter)
}

func (f *BoardFacade) InteractionStart() {
	f.buffer.MarkInteractionStart()
}

func (f *BoardFacade) InteractionEnd() {
	f.buffer.MarkInteractionEnd()
}

func (f *BoardFacade) DragStart(id int64) error {
	return f.board.DragStart(id)
}

func (f *BoardFacade) DragCancel() {
	f.board.DragCancel()
}

func (f *BoardFacade) Drop(ctx context.Context, id int64, column workflow.Stage) error {
	return f.board.Drop(ctx, id, column)
}

func (f *BoardFacade) Accept(ctx context.Context, id int64, extra *model.StatusExtra) error {
	return f.board.Accept(ctx, id, extra)
}

func (f *BoardFacade) StartProduction(ctx context.Context, id int64) error {
	return f.board.StartProduction(ctx, id)
}

func (f *BoardFacade) Send(ctx context.Context, id int64) error {
	return f.board.Send(ctx, id)
}

func (f *BoardFacade) Complete(ctx context.Context, id int64) error {
	return f.board.Complete(ctx, id)
}

func (f *BoardFacade) Advance(ctx context.Context, id int64) error {
	return f.board.Advance(ctx, id)
}

func (f *BoardFacade) Cancel(ctx context.Context, id int64, reason string) error {
	return f.board.Cancel(ctx, id, reason)
}

func (f *BoardFacade) UpdateOrder(ctx context.Context, id int64, fields model.OrderUpdate) error {
	return f.store.UpdateOrder(ctx, id, fields)
}

func (f *BoardFacade) CreateOrder(ctx context.Context, draft model.OrderDraft) (*model.CreatedOrder, error) {
	return f.store.CreateOrder(ctx, draft)
}

func (f *BoardFacade) Metrics() model.SyncMetrics {
	return f.buffer.Metrics()
}

func (f *BoardFacade) Journal(ctx context.Context, limit int) ([]model.TransitionRecord, error) {
	return f.journal.Recent(ctx, limit)
}

func (f *BoardFacade) JournalHealth(ctx context.Context) error {
	return f.journal.Ping(ctx)
}

func (f *BoardFacade) Connected() bool {
	return f.connection.Connected()
}
