package test

import (
	"context"
	"fmt"
	"sort"
	"sync"

	domainErrors "github.com/polkiloo/orderboard/internal/domain/errors"
	"github.com/polkiloo/orderboard/internal/domain/model"
)

// StatusCall stores information about UpdateStatus invocations.
type StatusCall struct {
	OrderID int64
	Status  model.OrderStatus
	Extra   *model.StatusExtra
}

// UpdateCall stores information about partial Update invocations.
type UpdateCall struct {
	OrderID int64
	Fields  model.OrderUpdate
}

// OrderAPIStub simulates the orders REST API with in-memory server state.
type OrderAPIStub struct {
	mu sync.Mutex

	Server map[int64]model.Order
	NextID int64

	ListErr   error
	StatusErr error
	UpdateErr error
	DeleteErr error
	CreateErr error
	ListFn    func(context.Context, model.OrderFilter) ([]model.Order, error)

	ListCalls   int
	StatusCalls []StatusCall
	UpdateCalls []UpdateCall
	DeleteCalls []int64
}

// NewOrderAPIStub seeds the simulated server with orders.
func NewOrderAPIStub(orders ...model.Order) *OrderAPIStub {
	s := &OrderAPIStub{Server: map[int64]model.Order{}, NextID: 1}
	for _, o := range orders {
		s.Server[o.ID] = o
		if o.ID >= s.NextID {
			s.NextID = o.ID + 1
		}
	}
	return s
}

// Lock exposes internal mutex for external synchronization.
func (s *OrderAPIStub) Lock() { s.mu.Lock() }

// Unlock releases previously acquired lock.
func (s *OrderAPIStub) Unlock() { s.mu.Unlock() }

// List returns server orders sorted by id.
func (s *OrderAPIStub) List(ctx context.Context, filter model.OrderFilter) ([]model.Order, error) {
	s.mu.Lock()
	s.ListCalls++
	fn, err := s.ListFn, s.ListErr
	s.mu.Unlock()
	if fn != nil {
		return fn(ctx, filter)
	}
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Order, 0, len(s.Server))
	for _, o := range s.Server {
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		out = append(out, o.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// UpdateStatus records the call and applies it to the server state.
func (s *OrderAPIStub) UpdateStatus(ctx context.Context, id int64, status model.OrderStatus, extra *model.StatusExtra) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.StatusCalls = append(s.StatusCalls, StatusCall{OrderID: id, Status: status, Extra: extra})
	if s.StatusErr != nil {
		return s.StatusErr
	}
	o, ok := s.Server[id]
	if !ok {
		return domainErrors.ErrNotFound
	}
	o.Status = status
	if extra != nil && extra.CancellationReason != "" {
		o.CancellationReason = extra.CancellationReason
	}
	s.Server[id] = o
	return nil
}

// Update records the call and applies the partial update to the server state.
func (s *OrderAPIStub) Update(ctx context.Context, id int64, fields model.OrderUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.UpdateCalls = append(s.UpdateCalls, UpdateCall{OrderID: id, Fields: fields})
	if s.UpdateErr != nil {
		return s.UpdateErr
	}
	o, ok := s.Server[id]
	if !ok {
		return domainErrors.ErrNotFound
	}
	fields.Apply(&o)
	s.Server[id] = o
	return nil
}

// Delete records the call and removes the order from the server state.
func (s *OrderAPIStub) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.DeleteCalls = append(s.DeleteCalls, id)
	if s.DeleteErr != nil {
		return s.DeleteErr
	}
	if _, ok := s.Server[id]; !ok {
		return domainErrors.ErrNotFound
	}
	delete(s.Server, id)
	return nil
}

// Create stores a new order built from draft.
func (s *OrderAPIStub) Create(ctx context.Context, draft model.OrderDraft) (*model.CreatedOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.CreateErr != nil {
		return nil, s.CreateErr
	}
	id := s.NextID
	s.NextID++
	number := fmt.Sprintf("PED-%04d", id)
	s.Server[id] = model.Order{ID: id, OrderNumber: number, Status: model.OrderStatusNew, CustomerName: draft.CustomerName, Items: draft.Items}
	return &model.CreatedOrder{ID: id, OrderNumber: number}, nil
}

// SetServerStatus changes server state as if another client had updated it.
func (s *OrderAPIStub) SetServerStatus(id int64, status model.OrderStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o := s.Server[id]
	o.ID = id
	o.Status = status
	s.Server[id] = o
}

// ListCount returns how many List calls were made.
func (s *OrderAPIStub) ListCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ListCalls
}

// StatusUpdates returns a copy of the recorded status calls.
func (s *OrderAPIStub) StatusUpdates() []StatusCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]StatusCall(nil), s.StatusCalls...)
}

// Deletes returns a copy of the recorded delete calls.
func (s *OrderAPIStub) Deletes() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.DeleteCalls...)
}
