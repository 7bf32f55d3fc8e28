package store

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/polkiloo/orderboard/internal/clock"
	domainErrors "github.com/polkiloo/orderboard/internal/domain/errors"
	"github.com/polkiloo/orderboard/internal/domain/model"
	"github.com/polkiloo/orderboard/internal/test"
)

var epoch = time.Date(2025, 3, 14, 18, 0, 0, 0, time.UTC)

func newTestStore(api API) (*OrderStore, *clock.Manual) {
	clk := clock.NewManual(epoch)
	return New(api, clk, slog.New(slog.NewTextHandler(io.Discard, nil))), clk
}

func seeded(t *testing.T, orders ...model.Order) (*OrderStore, *test.OrderAPIStub) {
	t.Helper()
	api := test.NewOrderAPIStub(orders...)
	s, _ := newTestStore(api)
	if err := s.FetchOrders(context.Background()); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	return s, api
}

func TestFetchOrdersReplacesCollection(t *testing.T) {
	s, api := seeded(t,
		test.RandomOrder(1, model.OrderStatusNew, epoch),
		test.RandomOrder(2, model.OrderStatusAccepted, epoch),
	)
	if got := len(s.Orders()); got != 2 {
		t.Fatalf("expected 2 orders, got %d", got)
	}

	api.Lock()
	delete(api.Server, 1)
	api.Unlock()

	if err := s.FetchOrders(context.Background()); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if _, ok := s.Order(1); ok {
		t.Fatalf("order 1 should be gone after refetch")
	}
	if s.Err() != nil || s.Loading() {
		t.Fatalf("unexpected state err=%v loading=%v", s.Err(), s.Loading())
	}
}

func TestFetchOrdersFailureClearsCollection(t *testing.T) {
	s, api := seeded(t, test.RandomOrder(1, model.OrderStatusNew, epoch))
	api.ListErr = errors.New("boom")

	err := s.FetchOrders(context.Background())
	if !errors.Is(err, domainErrors.ErrFetchFailed) {
		t.Fatalf("expected fetch failed, got %v", err)
	}
	if len(s.Orders()) != 0 {
		t.Fatalf("collection should be empty after failed fetch")
	}
	if !errors.Is(s.Err(), domainErrors.ErrFetchFailed) {
		t.Fatalf("error flag not set: %v", s.Err())
	}

	api.ListErr = nil
	if err := s.FetchOrders(context.Background()); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if s.Err() != nil {
		t.Fatalf("error flag should clear after success")
	}
}

func TestFetchOrdersPassesFilter(t *testing.T) {
	api := test.NewOrderAPIStub()
	var got model.OrderFilter
	api.ListFn = func(_ context.Context, f model.OrderFilter) ([]model.Order, error) {
		got = f
		return nil, nil
	}
	s, _ := newTestStore(api)
	s.SetFilter(model.OrderFilter{Status: model.OrderStatusDelivery})

	if err := s.FetchOrders(context.Background()); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if got.Status != model.OrderStatusDelivery || s.Filter().Status != model.OrderStatusDelivery {
		t.Fatalf("filter not forwarded: %+v", got)
	}
}

func TestUpdateOrderStatusDoesNotMutateLocalState(t *testing.T) {
	s, api := seeded(t, test.RandomOrder(3, model.OrderStatusNew, epoch))

	if err := s.UpdateOrderStatus(context.Background(), 3, model.OrderStatusAccepted, nil); err != nil {
		t.Fatalf("update: %v", err)
	}
	calls := api.StatusUpdates()
	if len(calls) != 1 || calls[0].Status != model.OrderStatusAccepted {
		t.Fatalf("unexpected calls %+v", calls)
	}
	if o, _ := s.Order(3); o.Status != model.OrderStatusNew {
		t.Fatalf("local status changed to %s", o.Status)
	}
}

func TestUpdateOrderStatusRejectsIllegalTransition(t *testing.T) {
	cases := []struct {
		name string
		from model.OrderStatus
		to   model.OrderStatus
	}{
		{name: "skip ahead", from: model.OrderStatusNew, to: model.OrderStatusDelivery},
		{name: "out of completed", from: model.OrderStatusCompleted, to: model.OrderStatusCancelled},
		{name: "out of cancelled", from: model.OrderStatusCancelled, to: model.OrderStatusAccepted},
		{name: "unknown status", from: model.OrderStatusNew, to: model.OrderStatus("pronto")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, api := seeded(t, test.RandomOrder(9, tc.from, epoch))
			err := s.UpdateOrderStatus(context.Background(), 9, tc.to, nil)
			if !errors.Is(err, domainErrors.ErrIllegalTransition) {
				t.Fatalf("expected illegal transition, got %v", err)
			}
			if len(api.StatusUpdates()) != 0 {
				t.Fatalf("illegal transition must not reach the server")
			}
		})
	}
}

func TestUpdateOrderStatusPropagatesRemoteError(t *testing.T) {
	s, api := seeded(t, test.RandomOrder(4, model.OrderStatusAccepted, epoch))
	api.StatusErr = domainErrors.ErrRemoteRejected

	err := s.UpdateOrderStatus(context.Background(), 4, model.OrderStatusProduction, nil)
	if !errors.Is(err, domainErrors.ErrRemoteRejected) {
		t.Fatalf("expected remote rejection, got %v", err)
	}
}

func TestAdvanceOrderStatusValidatesAgainstShownStatus(t *testing.T) {
	cases := []struct {
		name  string
		local model.OrderStatus
		from  model.OrderStatus
		to    model.OrderStatus
		allow bool
	}{
		{name: "local copy lags behind", local: model.OrderStatusNew, from: model.OrderStatusAccepted, to: model.OrderStatusDelivery, allow: true},
		{name: "cancel ahead of push", local: model.OrderStatusNew, from: model.OrderStatusDelivery, to: model.OrderStatusCancelled, allow: true},
		{name: "skip ahead of shown", local: model.OrderStatusNew, from: model.OrderStatusAccepted, to: model.OrderStatusCompleted},
		{name: "local terminal", local: model.OrderStatusCancelled, from: model.OrderStatusAccepted, to: model.OrderStatusDelivery},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, api := seeded(t, test.RandomOrder(5, tc.local, epoch))
			err := s.AdvanceOrderStatus(context.Background(), 5, tc.from, tc.to, nil)
			if tc.allow {
				if err != nil {
					t.Fatalf("advance: %v", err)
				}
				if calls := api.StatusUpdates(); len(calls) != 1 || calls[0].Status != tc.to {
					t.Fatalf("unexpected calls %+v", calls)
				}
				return
			}
			if !errors.Is(err, domainErrors.ErrIllegalTransition) {
				t.Fatalf("expected illegal transition, got %v", err)
			}
			if len(api.StatusUpdates()) != 0 {
				t.Fatalf("rejected change must not reach the server")
			}
		})
	}
}

func TestCancelOrderWithoutReasonDeletes(t *testing.T) {
	s, api := seeded(t,
		test.RandomOrder(7, model.OrderStatusNew, epoch),
		test.RandomOrder(8, model.OrderStatusNew, epoch),
	)

	if err := s.CancelOrder(context.Background(), 7, "  "); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got := api.Deletes(); len(got) != 1 || got[0] != 7 {
		t.Fatalf("expected DELETE of 7, got %v", got)
	}
	if _, ok := s.Order(7); ok {
		t.Fatalf("order 7 should be removed locally")
	}
	if err := s.FetchOrders(context.Background()); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if _, ok := s.Order(7); ok {
		t.Fatalf("order 7 should be absent after refetch")
	}
}

func TestCancelOrderWithReasonKeepsOrder(t *testing.T) {
	s, api := seeded(t, test.RandomOrder(7, model.OrderStatusProduction, epoch))

	if err := s.CancelOrder(context.Background(), 7, "cliente desistiu"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	calls := api.StatusUpdates()
	if len(calls) != 1 || calls[0].Status != model.OrderStatusCancelled || calls[0].Extra.CancellationReason != "cliente desistiu" {
		t.Fatalf("unexpected status calls %+v", calls)
	}
	if len(api.Deletes()) != 0 {
		t.Fatalf("reasoned cancel must not delete")
	}
	if err := s.FetchOrders(context.Background()); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	o, ok := s.Order(7)
	if !ok || o.Status != model.OrderStatusCancelled {
		t.Fatalf("expected order 7 cancelado, got %+v present=%v", o.Status, ok)
	}
}

func TestCancelOrderRejectsTerminal(t *testing.T) {
	s, api := seeded(t, test.RandomOrder(5, model.OrderStatusCompleted, epoch))

	if err := s.CancelOrder(context.Background(), 5, ""); !errors.Is(err, domainErrors.ErrIllegalTransition) {
		t.Fatalf("expected illegal transition, got %v", err)
	}
	if len(api.Deletes()) != 0 {
		t.Fatalf("terminal order must not be deleted")
	}
}

func TestUpdateOrderAppliesFields(t *testing.T) {
	s, api := seeded(t, test.RandomOrder(2, model.OrderStatusNew, epoch))
	notes := "sem cebola"

	if err := s.UpdateOrder(context.Background(), 2, model.OrderUpdate{Notes: &notes}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if o, _ := s.Order(2); o.Notes != notes {
		t.Fatalf("notes not applied locally: %q", o.Notes)
	}
	if len(api.UpdateCalls) != 1 {
		t.Fatalf("expected one remote update, got %d", len(api.UpdateCalls))
	}

	if err := s.UpdateOrder(context.Background(), 2, model.OrderUpdate{}); !errors.Is(err, domainErrors.ErrInvalidPayload) {
		t.Fatalf("expected invalid payload, got %v", err)
	}
}

func TestApplyStatusStampsOnce(t *testing.T) {
	s, _ := seeded(t, test.RandomOrder(1, model.OrderStatusNew, epoch))
	first := epoch.Add(time.Minute)

	if !s.ApplyStatus(1, model.OrderStatusAccepted, first) {
		t.Fatalf("known order should be patched")
	}
	s.ApplyStatus(1, model.OrderStatusAccepted, first.Add(time.Hour))

	o, _ := s.Order(1)
	if o.Status != model.OrderStatusAccepted || o.AcceptedAt == nil || !o.AcceptedAt.Equal(first) {
		t.Fatalf("unexpected order %+v", o)
	}
	if s.ApplyStatus(99, model.OrderStatusAccepted, first) {
		t.Fatalf("unknown order must not be patched")
	}
}

func TestApplyStatusDefaultsToClockTime(t *testing.T) {
	api := test.NewOrderAPIStub(test.RandomOrder(1, model.OrderStatusAccepted, epoch))
	s, clk := newTestStore(api)
	if err := s.FetchOrders(context.Background()); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	clk.Advance(3 * time.Second)

	s.ApplyStatus(1, model.OrderStatusProduction, time.Time{})
	o, _ := s.Order(1)
	if o.ProductionStartedAt == nil || !o.ProductionStartedAt.Equal(epoch.Add(3*time.Second)) {
		t.Fatalf("unexpected production timestamp %v", o.ProductionStartedAt)
	}
}

func TestCreateOrderAddsLocally(t *testing.T) {
	api := test.NewOrderAPIStub(test.RandomOrder(1, model.OrderStatusNew, epoch))
	s, clk := newTestStore(api)
	clk.Advance(time.Minute)

	draft := model.OrderDraft{
		CustomerName: "Balcao",
		Items:        []model.OrderItem{{ProductName: "Margherita", Quantity: 1, UnitSubtotal: decimal.RequireFromString("39.90")}},
	}
	created, err := s.CreateOrder(context.Background(), draft)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID != 2 || created.OrderNumber != "PED-0002" {
		t.Fatalf("unexpected created order %+v", created)
	}
	o, ok := s.Order(2)
	if !ok || o.Status != model.OrderStatusNew || !o.CreatedAt.Equal(epoch.Add(time.Minute)) {
		t.Fatalf("created order not added locally: %+v", o)
	}
	if !o.TotalAmount.Equal(decimal.RequireFromString("39.90")) {
		t.Fatalf("unexpected total %s", o.TotalAmount)
	}
}

func TestCreateOrderFailures(t *testing.T) {
	api := test.NewOrderAPIStub()
	s, _ := newTestStore(api)

	if _, err := s.CreateOrder(context.Background(), model.OrderDraft{}); !errors.Is(err, domainErrors.ErrInvalidPayload) {
		t.Fatalf("expected invalid payload, got %v", err)
	}

	api.CreateErr = domainErrors.ErrRemoteRejected
	draft := model.OrderDraft{CustomerName: "Ana", Items: []model.OrderItem{{ProductName: "x", Quantity: 1}}}
	if _, err := s.CreateOrder(context.Background(), draft); !errors.Is(err, domainErrors.ErrRemoteRejected) {
		t.Fatalf("expected remote rejection, got %v", err)
	}
	if len(s.Orders()) != 0 {
		t.Fatal("failed creation must not touch local state")
	}
}

func TestLocalMutators(t *testing.T) {
	s, _ := newTestStore(test.NewOrderAPIStub())
	s.AddOrder(test.RandomOrder(1, model.OrderStatusNew, epoch))
	s.AddOrder(test.RandomOrder(2, model.OrderStatusNew, epoch))

	replacement := test.RandomOrder(1, model.OrderStatusAccepted, epoch)
	s.AddOrder(replacement)
	if got := len(s.Orders()); got != 2 {
		t.Fatalf("AddOrder must replace by id, got %d orders", got)
	}
	if o, _ := s.Order(1); o.Status != model.OrderStatusAccepted {
		t.Fatalf("replacement not stored")
	}

	if !s.RemoveOrder(2) || s.RemoveOrder(2) {
		t.Fatalf("RemoveOrder should report existence")
	}

	snapshot := s.Orders()
	snapshot[0].Status = model.OrderStatusCancelled
	if o, _ := s.Order(1); o.Status == model.OrderStatusCancelled {
		t.Fatalf("snapshot must not alias store state")
	}
}

func TestSubscribeReceivesCoalescedSignals(t *testing.T) {
	s, _ := newTestStore(test.NewOrderAPIStub())
	sub := s.Subscribe()

	s.AddOrder(test.RandomOrder(1, model.OrderStatusNew, epoch))
	s.AddOrder(test.RandomOrder(2, model.OrderStatusNew, epoch))

	select {
	case <-sub.Changes:
	default:
		t.Fatalf("expected change signal")
	}
	select {
	case <-sub.Changes:
		t.Fatalf("signals should be coalesced")
	default:
	}

	sub.Close()
	sub.Close()
	if _, ok := <-sub.Changes; ok {
		t.Fatalf("channel should be closed")
	}
	s.AddOrder(test.RandomOrder(3, model.OrderStatusNew, epoch))
}
