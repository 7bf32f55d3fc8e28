// Package facade provides board facade stubs shared by HTTP tests.
package facade

import (
	"context"
	"sync"

	"github.com/polkiloo/orderboard/internal/board"
	"github.com/polkiloo/orderboard/internal/domain/model"
	"github.com/polkiloo/orderboard/internal/domain/workflow"
)

// FacadeCall stores a single facade invocation.
type FacadeCall struct {
	Method string
	ID     int64
	Arg    any
}

// BoardFacadeStub provides controllable behaviour for board endpoints.
// Every method records its call; a non-nil Err is returned by fallible methods.
type BoardFacadeStub struct {
	mu    sync.Mutex
	Calls []FacadeCall

	View      board.View
	Err       error
	RefreshFn func(context.Context) error
	JournalFn func(context.Context, int) ([]model.TransitionRecord, error)
	Stats     model.SyncMetrics
	Online    bool
	// JournalErr is returned by JournalHealth.
	JournalErr error
	Filter    model.OrderFilter
}

func (s *BoardFacadeStub) record(method string, id int64, arg any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls = append(s.Calls, FacadeCall{Method: method, ID: id, Arg: arg})
}

// LastCall returns the most recent call.
func (s *BoardFacadeStub) LastCall() (FacadeCall, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Calls) == 0 {
		return FacadeCall{}, false
	}
	return s.Calls[len(s.Calls)-1], true
}

func (s *BoardFacadeStub) Board() board.View {
	s.record("Board", 0, nil)
	return s.View
}

func (s *BoardFacadeStub) Refresh(ctx context.Context) error {
	s.record("Refresh", 0, nil)
	if s.RefreshFn != nil {
		return s.RefreshFn(ctx)
	}
	return s.Err
}

func (s *BoardFacadeStub) SetFilter(filter model.OrderFilter) {
	s.record("SetFilter", 0, filter)
	s.mu.Lock()
	s.Filter = filter
	s.mu.Unlock()
}

func (s *BoardFacadeStub) InteractionStart() { s.record("InteractionStart", 0, nil) }

func (s *BoardFacadeStub) InteractionEnd() { s.record("InteractionEnd", 0, nil) }

func (s *BoardFacadeStub) DragStart(id int64) error {
	s.record("DragStart", id, nil)
	return s.Err
}

func (s *BoardFacadeStub) DragCancel() { s.record("DragCancel", 0, nil) }

func (s *BoardFacadeStub) Drop(_ context.Context, id int64, column workflow.Stage) error {
	s.record("Drop", id, column)
	return s.Err
}

func (s *BoardFacadeStub) Accept(_ context.Context, id int64, extra *model.StatusExtra) error {
	s.record("Accept", id, extra)
	return s.Err
}

func (s *BoardFacadeStub) StartProduction(_ context.Context, id int64) error {
	s.record("StartProduction", id, nil)
	return s.Err
}

func (s *BoardFacadeStub) Send(_ context.Context, id int64) error {
	s.record("Send", id, nil)
	return s.Err
}

func (s *BoardFacadeStub) Complete(_ context.Context, id int64) error {
	s.record("Complete", id, nil)
	return s.Err
}

func (s *BoardFacadeStub) Advance(_ context.Context, id int64) error {
	s.record("Advance", id, nil)
	return s.Err
}

func (s *BoardFacadeStub) Cancel(_ context.Context, id int64, reason string) error {
	s.record("Cancel", id, reason)
	return s.Err
}

func (s *BoardFacadeStub) UpdateOrder(_ context.Context, id int64, fields model.OrderUpdate) error {
	s.record("UpdateOrder", id, fields)
	return s.Err
}

func (s *BoardFacadeStub) CreateOrder(_ context.Context, draft model.OrderDraft) (*model.CreatedOrder, error) {
	s.record("CreateOrder", 0, draft)
	if s.Err != nil {
		return nil, s.Err
	}
	return &model.CreatedOrder{ID: 100, OrderNumber: "PED-0100"}, nil
}

func (s *BoardFacadeStub) Metrics() model.SyncMetrics {
	s.record("Metrics", 0, nil)
	return s.Stats
}

func (s *BoardFacadeStub) Journal(ctx context.Context, limit int) ([]model.TransitionRecord, error) {
	s.record("Journal", 0, limit)
	if s.JournalFn != nil {
		return s.JournalFn(ctx, limit)
	}
	return []model.TransitionRecord{}, s.Err
}

func (s *BoardFacadeStub) JournalHealth(context.Context) error {
	return s.JournalErr
}

func (s *BoardFacadeStub) Connected() bool {
	return s.Online
}
