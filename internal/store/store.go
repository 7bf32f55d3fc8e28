package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/polkiloo/orderboard/internal/clock"
	domainErrors "github.com/polkiloo/orderboard/internal/domain/errors"
	"github.com/polkiloo/orderboard/internal/domain/model"
	"github.com/polkiloo/orderboard/internal/domain/workflow"
)

// API is the subset of the orders REST API the store relies on.
type API interface {
	List(ctx context.Context, filter model.OrderFilter) ([]model.Order, error)
	UpdateStatus(ctx context.Context, id int64, status model.OrderStatus, extra *model.StatusExtra) error
	Update(ctx context.Context, id int64, fields model.OrderUpdate) error
	Delete(ctx context.Context, id int64) error
	Create(ctx context.Context, draft model.OrderDraft) (*model.CreatedOrder, error)
}

// OrderStore is the single owner of the in-memory order collection. Readers
// get copies and change notifications; every mutation goes through its methods.
type OrderStore struct {
	api    API
	clock  clock.Clock
	logger *slog.Logger

	mu       sync.RWMutex
	orders   []model.Order
	filter   model.OrderFilter
	fetchErr error
	loading  int
	subs     map[*subscriber]struct{}
}

// New constructs an empty store.
func New(api API, clk clock.Clock, logger *slog.Logger) *OrderStore {
	return &OrderStore{
		api:    api,
		clock:  clk,
		logger: logger,
		subs:   map[*subscriber]struct{}{},
	}
}

// SetFilter changes the listing filter used by FetchOrders.
func (s *OrderStore) SetFilter(filter model.OrderFilter) {
	s.mu.Lock()
	s.filter = filter
	s.mu.Unlock()
}

// Filter returns the listing filter in use.
func (s *OrderStore) Filter() model.OrderFilter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter
}

// FetchOrders replaces the collection with the authoritative server list.
// On failure the collection is emptied and the error flag is raised.
// Concurrent fetches are not cancelled; the last one to resolve wins.
func (s *OrderStore) FetchOrders(ctx context.Context) error {
	s.mu.Lock()
	s.loading++
	filter := s.filter
	s.mu.Unlock()

	orders, err := s.api.List(ctx, filter)

	s.mu.Lock()
	s.loading--
	if err != nil {
		s.orders = nil
		s.fetchErr = fmt.Errorf("%w: %v", domainErrors.ErrFetchFailed, err)
		fetchErr := s.fetchErr
		s.mu.Unlock()
		s.logger.Error("fetch orders failed", slog.String("error", err.Error()))
		s.notify()
		return fetchErr
	}
	s.orders = orders
	s.fetchErr = nil
	count := len(orders)
	s.mu.Unlock()

	s.logger.Debug("orders fetched", slog.Int("count", count))
	s.notify()
	return nil
}

// UpdateOrderStatus sends a status change to the server. The local
// collection is not touched; it converges through the push channel or a patch.
func (s *OrderStore) UpdateOrderStatus(ctx context.Context, id int64, status model.OrderStatus, extra *model.StatusExtra) error {
	if current, ok := s.Order(id); ok {
		return s.AdvanceOrderStatus(ctx, id, current.Status, status, extra)
	}
	if !workflow.Valid(status) {
		return fmt.Errorf("%w: unknown status %q", domainErrors.ErrIllegalTransition, status)
	}
	return s.sendStatus(ctx, id, status, extra)
}

// AdvanceOrderStatus sends a status change validated against from, the status
// the caller shows for the order. The local copy may still lag behind from
// while earlier changes wait for their push confirmation; only a terminal
// local status is rejected then.
func (s *OrderStore) AdvanceOrderStatus(ctx context.Context, id int64, from, to model.OrderStatus, extra *model.StatusExtra) error {
	if !workflow.CanAdvanceStage(from, to) {
		return fmt.Errorf("%w: %s -> %s", domainErrors.ErrIllegalTransition, from, to)
	}
	if current, ok := s.Order(id); ok && workflow.IsTerminal(current.Status) {
		return fmt.Errorf("%w: %s is terminal", domainErrors.ErrIllegalTransition, current.Status)
	}
	return s.sendStatus(ctx, id, to, extra)
}

func (s *OrderStore) sendStatus(ctx context.Context, id int64, status model.OrderStatus, extra *model.StatusExtra) error {
	if err := s.api.UpdateStatus(ctx, id, status, extra); err != nil {
		s.logger.Warn("update order status failed",
			slog.Int64("order_id", id),
			slog.String("status", string(status)),
			slog.String("error", err.Error()),
		)
		return err
	}
	s.logger.Info("order status sent", slog.Int64("order_id", id), slog.String("status", string(status)))
	return nil
}

// CancelOrder cancels with a reason (soft cancel, order kept as cancelado) or,
// without a reason, deletes the order from the server and the local collection.
func (s *OrderStore) CancelOrder(ctx context.Context, id int64, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason != "" {
		return s.UpdateOrderStatus(ctx, id, model.OrderStatusCancelled, &model.StatusExtra{CancellationReason: reason})
	}

	if current, ok := s.Order(id); ok && workflow.IsTerminal(current.Status) {
		return fmt.Errorf("%w: %s is terminal", domainErrors.ErrIllegalTransition, current.Status)
	}
	if err := s.api.Delete(ctx, id); err != nil {
		s.logger.Warn("delete order failed", slog.Int64("order_id", id), slog.String("error", err.Error()))
		return err
	}
	s.RemoveOrder(id)
	s.logger.Info("order deleted", slog.Int64("order_id", id))
	return nil
}

// UpdateOrder sends a partial update of non-status fields and applies it locally on success.
func (s *OrderStore) UpdateOrder(ctx context.Context, id int64, fields model.OrderUpdate) error {
	if fields.Empty() {
		return fmt.Errorf("%w: no fields to update", domainErrors.ErrInvalidPayload)
	}
	if err := s.api.Update(ctx, id, fields); err != nil {
		return err
	}
	s.UpdateOrderInStore(id, fields.Apply)
	return nil
}

// CreateOrder registers an order taken at the counter and shows it right away.
// The push channel's new event later replaces it with the server copy.
func (s *OrderStore) CreateOrder(ctx context.Context, draft model.OrderDraft) (*model.CreatedOrder, error) {
	if err := draft.Validate(); err != nil {
		return nil, err
	}
	created, err := s.api.Create(ctx, draft)
	if err != nil {
		s.logger.Warn("create order failed", slog.String("error", err.Error()))
		return nil, err
	}
	s.AddOrder(draft.Order(created.ID, created.OrderNumber, s.clock.Now()))
	s.logger.Info("order created", slog.Int64("order_id", created.ID))
	return created, nil
}

// AddOrder inserts order, replacing an existing entry with the same id.
func (s *OrderStore) AddOrder(order model.Order) {
	s.mu.Lock()
	replaced := false
	for i := range s.orders {
		if s.orders[i].ID == order.ID {
			s.orders[i] = order.Clone()
			replaced = true
			break
		}
	}
	if !replaced {
		s.orders = append(s.orders, order.Clone())
	}
	s.mu.Unlock()
	s.notify()
}

// UpdateOrderInStore mutates a single order in place. It reports whether the order exists.
func (s *OrderStore) UpdateOrderInStore(id int64, mutate func(*model.Order)) bool {
	s.mu.Lock()
	found := false
	for i := range s.orders {
		if s.orders[i].ID == id {
			mutate(&s.orders[i])
			found = true
			break
		}
	}
	s.mu.Unlock()
	if found {
		s.notify()
	}
	return found
}

// ApplyStatus patches the status of a known order and stamps its lifecycle timestamp.
func (s *OrderStore) ApplyStatus(id int64, status model.OrderStatus, at time.Time) bool {
	if at.IsZero() {
		at = s.clock.Now()
	}
	return s.UpdateOrderInStore(id, func(o *model.Order) {
		o.Status = status
		o.Stamp(status, at)
	})
}

// RemoveOrder drops an order from the collection. It reports whether the order existed.
func (s *OrderStore) RemoveOrder(id int64) bool {
	s.mu.Lock()
	found := false
	for i := range s.orders {
		if s.orders[i].ID == id {
			s.orders = append(s.orders[:i], s.orders[i+1:]...)
			found = true
			break
		}
	}
	s.mu.Unlock()
	if found {
		s.notify()
	}
	return found
}

// Orders returns a copy of the collection.
func (s *OrderStore) Orders() []model.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Order, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, o.Clone())
	}
	return out
}

// Order returns a copy of a single order.
func (s *OrderStore) Order(id int64) (model.Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, o := range s.orders {
		if o.ID == id {
			return o.Clone(), true
		}
	}
	return model.Order{}, false
}

// Err returns the error of the last fetch, nil after a successful one.
func (s *OrderStore) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fetchErr
}

// Loading reports whether a fetch is in flight.
func (s *OrderStore) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading > 0
}
