package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/polkiloo/orderboard/internal/adapter/orderapi"
	"github.com/polkiloo/orderboard/internal/board"
	domainErrors "github.com/polkiloo/orderboard/internal/domain/errors"
	"github.com/polkiloo/orderboard/internal/domain/model"
	"github.com/polkiloo/orderboard/internal/domain/workflow"
	"github.com/polkiloo/orderboard/internal/test/facade"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func performRequest(t *testing.T, method, pattern, target string, handler gin.HandlerFunc, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	router := gin.New()
	router.Handle(method, pattern, handler)

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestOrderID(t *testing.T) {
	tests := []struct {
		param string
		want  int64
		ok    bool
	}{
		{param: "42", want: 42, ok: true},
		{param: "0"},
		{param: "-3"},
		{param: "abc"},
	}
	for _, tt := range tests {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Params = gin.Params{{Key: "id", Value: tt.param}}
		got, ok := OrderID(c)
		if got != tt.want || ok != tt.ok {
			t.Fatalf("OrderID(%q) = %d, %v", tt.param, got, ok)
		}
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{err: fmt.Errorf("wrap: %w", domainErrors.ErrIllegalTransition), want: http.StatusConflict},
		{err: domainErrors.ErrNotFound, want: http.StatusNotFound},
		{err: domainErrors.ErrInvalidPayload, want: http.StatusBadRequest},
		{err: domainErrors.ErrRemoteRejected, want: http.StatusBadGateway},
		{err: domainErrors.ErrFetchFailed, want: http.StatusBadGateway},
		{err: &orderapi.APIError{StatusCode: http.StatusNotFound}, want: http.StatusNotFound},
		{err: &orderapi.APIError{StatusCode: http.StatusUnprocessableEntity}, want: http.StatusBadGateway},
		{err: errors.New("boom"), want: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := StatusFor(tt.err); got != tt.want {
			t.Fatalf("StatusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestBoardHandlerBoard(t *testing.T) {
	stub := &facade.BoardFacadeStub{View: board.View{
		Columns:   []board.Column{{Stage: workflow.StageNew, Title: "Novos", Cards: []board.Card{{Order: model.Order{ID: 1, Status: model.OrderStatusNew}}}}},
		Connected: true,
	}}
	resp := performRequest(t, http.MethodGet, "/board", "/board", NewBoardHandler(stub).Board, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var view board.View
	if err := json.Unmarshal(resp.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !view.Connected || len(view.Columns) != 1 || view.Columns[0].Cards[0].Order.ID != 1 {
		t.Fatalf("unexpected view %+v", view)
	}
}

func TestBoardHandlerRefresh(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		stub := &facade.BoardFacadeStub{}
		resp := performRequest(t, http.MethodPost, "/refresh", "/refresh", NewBoardHandler(stub).Refresh, nil)
		if resp.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.Code)
		}
	})

	t.Run("with filter", func(t *testing.T) {
		stub := &facade.BoardFacadeStub{}
		resp := performRequest(t, http.MethodPost, "/refresh", "/refresh?status=entrega&date=2025-03-14", NewBoardHandler(stub).Refresh, nil)
		if resp.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.Code)
		}
		if stub.Filter.Status != model.OrderStatusDelivery || stub.Filter.Date.Day() != 14 {
			t.Fatalf("filter not applied: %+v", stub.Filter)
		}
	})

	t.Run("bad filter", func(t *testing.T) {
		for _, target := range []string{"/refresh?status=pronto", "/refresh?date=14/03/2025"} {
			stub := &facade.BoardFacadeStub{}
			resp := performRequest(t, http.MethodPost, "/refresh", target, NewBoardHandler(stub).Refresh, nil)
			if resp.Code != http.StatusBadRequest {
				t.Fatalf("%s: expected 400, got %d", target, resp.Code)
			}
		}
	})

	t.Run("fetch failure", func(t *testing.T) {
		stub := &facade.BoardFacadeStub{Err: fmt.Errorf("%w: timeout", domainErrors.ErrFetchFailed)}
		resp := performRequest(t, http.MethodPost, "/refresh", "/refresh", NewBoardHandler(stub).Refresh, nil)
		if resp.Code != http.StatusBadGateway {
			t.Fatalf("expected 502, got %d", resp.Code)
		}
	})
}

func TestBoardHandlerInteraction(t *testing.T) {
	stub := &facade.BoardFacadeStub{}
	h := NewBoardHandler(stub)

	for _, tc := range []struct {
		handler gin.HandlerFunc
		method  string
	}{
		{handler: h.InteractionStart, method: "InteractionStart"},
		{handler: h.InteractionEnd, method: "InteractionEnd"},
		{handler: h.DragCancel, method: "DragCancel"},
	} {
		resp := performRequest(t, http.MethodPost, "/x", "/x", tc.handler, nil)
		if resp.Code != http.StatusNoContent {
			t.Fatalf("%s: expected 204, got %d", tc.method, resp.Code)
		}
		if call, _ := stub.LastCall(); call.Method != tc.method {
			t.Fatalf("expected %s call, got %+v", tc.method, call)
		}
	}
}

func TestBoardHandlerDragStart(t *testing.T) {
	stub := &facade.BoardFacadeStub{}
	resp := performRequest(t, http.MethodPost, "/orders/:id/drag", "/orders/5/drag", NewBoardHandler(stub).DragStart, nil)
	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}
	if call, _ := stub.LastCall(); call.Method != "DragStart" || call.ID != 5 {
		t.Fatalf("unexpected call %+v", call)
	}

	stub.Err = domainErrors.ErrNotFound
	resp = performRequest(t, http.MethodPost, "/orders/:id/drag", "/orders/5/drag", NewBoardHandler(stub).DragStart, nil)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestBoardHandlerDrop(t *testing.T) {
	tests := []struct {
		name   string
		target string
		body   []byte
		err    error
		status int
	}{
		{name: "accepted", target: "/orders/3/drop", body: []byte(`{"column":"preparo"}`), status: http.StatusAccepted},
		{name: "bad id", target: "/orders/x/drop", body: []byte(`{"column":"preparo"}`), status: http.StatusBadRequest},
		{name: "bad json", target: "/orders/3/drop", body: []byte(`{`), status: http.StatusBadRequest},
		{name: "unknown column", target: "/orders/3/drop", body: []byte(`{"column":"forno"}`), status: http.StatusBadRequest},
		{name: "illegal", target: "/orders/3/drop", body: []byte(`{"column":"finalizado"}`), err: domainErrors.ErrIllegalTransition, status: http.StatusConflict},
		{name: "remote rejected", target: "/orders/3/drop", body: []byte(`{"column":"entrega"}`), err: domainErrors.ErrRemoteRejected, status: http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &facade.BoardFacadeStub{Err: tt.err}
			resp := performRequest(t, http.MethodPost, "/orders/:id/drop", tt.target, NewBoardHandler(stub).Drop, tt.body)
			if resp.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, resp.Code)
			}
		})
	}

	stub := &facade.BoardFacadeStub{}
	performRequest(t, http.MethodPost, "/orders/:id/drop", "/orders/3/drop", NewBoardHandler(stub).Drop, []byte(`{"column":"preparo"}`))
	if call, _ := stub.LastCall(); call.ID != 3 || call.Arg != workflow.StagePreparation {
		t.Fatalf("unexpected call %+v", call)
	}
}

func TestBoardHandlerAccept(t *testing.T) {
	stub := &facade.BoardFacadeStub{}
	h := NewBoardHandler(stub)

	resp := performRequest(t, http.MethodPost, "/orders/:id/accept", "/orders/2/accept", h.Accept, nil)
	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected 202 without body, got %d", resp.Code)
	}
	if call, _ := stub.LastCall(); call.Arg.(*model.StatusExtra) != nil {
		t.Fatalf("expected nil extra, got %+v", call.Arg)
	}

	resp = performRequest(t, http.MethodPost, "/orders/:id/accept", "/orders/2/accept", h.Accept, []byte(`{"estimated_delivery_time":40}`))
	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.Code)
	}
	call, _ := stub.LastCall()
	extra := call.Arg.(*model.StatusExtra)
	if extra == nil || *extra.EstimatedDeliveryTime != 40 {
		t.Fatalf("unexpected extra %+v", extra)
	}

	resp = performRequest(t, http.MethodPost, "/orders/:id/accept", "/orders/2/accept", h.Accept, []byte(`nope`))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestBoardHandlerActions(t *testing.T) {
	stub := &facade.BoardFacadeStub{}
	h := NewBoardHandler(stub)
	actions := map[string]gin.HandlerFunc{
		"StartProduction": h.StartProduction,
		"Send":            h.Send,
		"Complete":        h.Complete,
		"Advance":         h.Advance,
	}
	for method, handler := range actions {
		resp := performRequest(t, http.MethodPost, "/orders/:id/act", "/orders/9/act", handler, nil)
		if resp.Code != http.StatusAccepted {
			t.Fatalf("%s: expected 202, got %d", method, resp.Code)
		}
		if call, _ := stub.LastCall(); call.Method != method || call.ID != 9 {
			t.Fatalf("%s: unexpected call %+v", method, call)
		}
	}

	stub.Err = fmt.Errorf("%w: entrega -> novo", domainErrors.ErrIllegalTransition)
	resp := performRequest(t, http.MethodPost, "/orders/:id/act", "/orders/9/act", h.Send, nil)
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.Code)
	}
	resp = performRequest(t, http.MethodPost, "/orders/:id/act", "/orders/0/act", h.Send, nil)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestBoardHandlerCancel(t *testing.T) {
	stub := &facade.BoardFacadeStub{}
	h := NewBoardHandler(stub)

	resp := performRequest(t, http.MethodPost, "/orders/:id/cancel", "/orders/7/cancel", h.Cancel, []byte(`{"reason":"cliente desistiu"}`))
	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.Code)
	}
	if call, _ := stub.LastCall(); call.Arg != "cliente desistiu" {
		t.Fatalf("unexpected call %+v", call)
	}

	resp = performRequest(t, http.MethodPost, "/orders/:id/cancel", "/orders/7/cancel", h.Cancel, nil)
	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected 202 without body, got %d", resp.Code)
	}
	if call, _ := stub.LastCall(); call.Arg != "" {
		t.Fatalf("expected empty reason, got %+v", call)
	}
}

func TestBoardHandlerUpdate(t *testing.T) {
	stub := &facade.BoardFacadeStub{}
	h := NewBoardHandler(stub)

	resp := performRequest(t, http.MethodPatch, "/orders/:id", "/orders/4", h.Update, []byte(`{"notes":"sem cebola"}`))
	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}
	call, _ := stub.LastCall()
	if fields := call.Arg.(model.OrderUpdate); fields.Notes == nil || *fields.Notes != "sem cebola" {
		t.Fatalf("unexpected fields %+v", call.Arg)
	}

	stub.Err = fmt.Errorf("%w: no fields to update", domainErrors.ErrInvalidPayload)
	resp = performRequest(t, http.MethodPatch, "/orders/:id", "/orders/4", h.Update, []byte(`{}`))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestBoardHandlerCreate(t *testing.T) {
	stub := &facade.BoardFacadeStub{}
	h := NewBoardHandler(stub)
	body := []byte(`{"customer_name":"Ana","items":[{"product_name":"Calabresa","quantity":2,"unit_subtotal":"42.90"}]}`)

	resp := performRequest(t, http.MethodPost, "/orders", "/orders", h.Create, body)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.Code)
	}
	var created model.CreatedOrder
	if err := json.Unmarshal(resp.Body.Bytes(), &created); err != nil || created.ID != 100 {
		t.Fatalf("unexpected body %s err=%v", resp.Body.String(), err)
	}
	call, _ := stub.LastCall()
	draft := call.Arg.(model.OrderDraft)
	if draft.CustomerName != "Ana" || draft.Items[0].Quantity != 2 || draft.Items[0].UnitSubtotal.String() != "42.9" {
		t.Fatalf("unexpected draft %+v", draft)
	}

	resp = performRequest(t, http.MethodPost, "/orders", "/orders", h.Create, []byte(`[`))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}

	stub.Err = fmt.Errorf("%w: order has no items", domainErrors.ErrInvalidPayload)
	resp = performRequest(t, http.MethodPost, "/orders", "/orders", h.Create, []byte(`{"customer_name":"Ana"}`))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestSyncHandler(t *testing.T) {
	stub := &facade.BoardFacadeStub{
		Stats:  model.SyncMetrics{EventsReceived: 5, EventsFlushed: 2, CoalescedEvents: 3},
		Online: true,
	}
	h := NewSyncHandler(stub)

	resp := performRequest(t, http.MethodGet, "/metrics", "/metrics", h.Metrics, nil)
	var metrics model.SyncMetrics
	if err := json.Unmarshal(resp.Body.Bytes(), &metrics); err != nil || metrics.CoalescedEvents != 3 {
		t.Fatalf("unexpected metrics %s err=%v", resp.Body.String(), err)
	}

	resp = performRequest(t, http.MethodGet, "/health", "/health", h.Health, nil)
	if resp.Code != http.StatusOK || !bytes.Contains(resp.Body.Bytes(), []byte(`"push_connected":true`)) ||
		!bytes.Contains(resp.Body.Bytes(), []byte(`"journal":"ok"`)) {
		t.Fatalf("unexpected health %d %s", resp.Code, resp.Body.String())
	}

	stub.JournalErr = errors.New("ping")
	resp = performRequest(t, http.MethodGet, "/health", "/health", h.Health, nil)
	if resp.Code != http.StatusOK || !bytes.Contains(resp.Body.Bytes(), []byte(`"status":"degraded","push_connected":true,"journal":"unavailable"`)) {
		t.Fatalf("unexpected degraded health %d %s", resp.Code, resp.Body.String())
	}
	stub.JournalErr = nil

	resp = performRequest(t, http.MethodGet, "/journal", "/journal?limit=9999", h.Journal, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if call, _ := stub.LastCall(); call.Arg != maxJournalLimit {
		t.Fatalf("limit should be capped, got %+v", call.Arg)
	}

	resp = performRequest(t, http.MethodGet, "/journal", "/journal?limit=-1", h.Journal, nil)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}

	stub.Err = errors.New("db down")
	resp = performRequest(t, http.MethodGet, "/journal", "/journal", h.Journal, nil)
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.Code)
	}
}
