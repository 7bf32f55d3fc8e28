package board

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/polkiloo/orderboard/internal/clock"
	domainErrors "github.com/polkiloo/orderboard/internal/domain/errors"
	"github.com/polkiloo/orderboard/internal/domain/model"
	"github.com/polkiloo/orderboard/internal/domain/workflow"
)

// Store is the part of the order store the board drives.
type Store interface {
	Orders() []model.Order
	Order(id int64) (model.Order, bool)
	AdvanceOrderStatus(ctx context.Context, id int64, from, to model.OrderStatus, extra *model.StatusExtra) error
	CancelOrder(ctx context.Context, id int64, reason string) error
}

// Journal persists transition attempts.
type Journal interface {
	Record(ctx context.Context, rec model.TransitionRecord) error
}

// Interaction receives pointer gesture boundaries.
type Interaction interface {
	MarkInteractionStart()
	MarkInteractionEnd()
}

// Move is a tentative status change shown on the board before the server confirms it.
type Move struct {
	Token     string
	OrderID   int64
	From      model.OrderStatus
	To        model.OrderStatus
	StartedAt time.Time

	confirmed bool
	// prev is the confirmed move this one was chained onto, restored on Revert.
	prev *Move
}

// awaits reports whether status is one the chain of moves started from, that
// is, the canonical status has not caught up with the chain yet.
func (m *Move) awaits(status model.OrderStatus) bool {
	for cur := m; cur != nil; cur = cur.prev {
		if cur.From == status {
			return true
		}
	}
	return false
}

// Controller validates board gestures and action buttons and applies them
// optimistically on top of the store snapshot.
type Controller struct {
	store       Store
	journal     Journal
	interaction Interaction
	clock       clock.Clock
	estimate    time.Duration
	logger      *slog.Logger

	mu       sync.Mutex
	moves    map[int64]Move
	dragging int64
	timers   map[int64]ProductionTimer
}

// New constructs a controller. estimate is the production time used when an
// order carries no estimated delivery time.
func New(store Store, journal Journal, interaction Interaction, clk clock.Clock, estimate time.Duration, logger *slog.Logger) *Controller {
	return &Controller{
		store:       store,
		journal:     journal,
		interaction: interaction,
		clock:       clk,
		estimate:    estimate,
		logger:      logger,
		moves:       map[int64]Move{},
		timers:      map[int64]ProductionTimer{},
	}
}

// DragStart marks a card as grabbed and holds realtime flushes.
func (c *Controller) DragStart(id int64) error {
	order, ok := c.store.Order(id)
	if !ok {
		return domainErrors.ErrNotFound
	}
	if workflow.IsTerminal(order.Status) {
		return fmt.Errorf("%w: %s is terminal", domainErrors.ErrIllegalTransition, order.Status)
	}
	c.mu.Lock()
	c.dragging = id
	c.mu.Unlock()
	c.interaction.MarkInteractionStart()
	return nil
}

// DragCancel releases a grabbed card without moving it.
func (c *Controller) DragCancel() {
	c.mu.Lock()
	c.dragging = 0
	c.mu.Unlock()
	c.interaction.MarkInteractionEnd()
}

// Drop moves a card into column. Dropping into the card's own column is a no-op.
func (c *Controller) Drop(ctx context.Context, id int64, column workflow.Stage) error {
	defer c.DragCancel()

	current, err := c.effectiveStatus(id)
	if err != nil {
		return err
	}
	if workflow.StageOf(current) == column {
		return nil
	}
	to, ok := workflow.ResolveDrop(current, column)
	if !ok {
		err := fmt.Errorf("%w: cannot drop %s into %s", domainErrors.ErrIllegalTransition, current, column)
		c.record(ctx, model.TransitionRecord{ID: uuid.NewString(), OrderID: id, From: current, Outcome: model.TransitionRejected, Reason: "drop " + string(column), Error: err.Error()})
		return err
	}
	return c.transition(ctx, id, to, nil, "drop")
}

// Accept moves a new order into preparation.
func (c *Controller) Accept(ctx context.Context, id int64, extra *model.StatusExtra) error {
	return c.transition(ctx, id, model.OrderStatusAccepted, extra, "accept")
}

// StartProduction marks an accepted order as being produced.
func (c *Controller) StartProduction(ctx context.Context, id int64) error {
	return c.transition(ctx, id, model.OrderStatusProduction, nil, "produce")
}

// Send dispatches an order for delivery.
func (c *Controller) Send(ctx context.Context, id int64) error {
	return c.transition(ctx, id, model.OrderStatusDelivery, nil, "send")
}

// Complete finishes a delivered order.
func (c *Controller) Complete(ctx context.Context, id int64) error {
	return c.transition(ctx, id, model.OrderStatusCompleted, nil, "complete")
}

// Advance applies the next forward status.
func (c *Controller) Advance(ctx context.Context, id int64) error {
	current, err := c.effectiveStatus(id)
	if err != nil {
		return err
	}
	next, ok := workflow.NextStatus(current)
	if !ok {
		err := fmt.Errorf("%w: %s is terminal", domainErrors.ErrIllegalTransition, current)
		c.record(ctx, model.TransitionRecord{ID: uuid.NewString(), OrderID: id, From: current, Outcome: model.TransitionRejected, Reason: "advance", Error: err.Error()})
		return err
	}
	return c.transition(ctx, id, next, nil, "advance")
}

// Cancel cancels an order. With a reason the order is kept as cancelado,
// without one it is deleted.
func (c *Controller) Cancel(ctx context.Context, id int64, reason string) error {
	reason = strings.TrimSpace(reason)
	move, err := c.Tentative(id, model.OrderStatusCancelled)
	if err != nil {
		c.rejected(ctx, id, model.OrderStatusCancelled, "cancel", err)
		return err
	}
	note := "cancel"
	if reason == "" {
		note = "delete"
	}
	if err := c.store.CancelOrder(ctx, id, reason); err != nil {
		c.Revert(move)
		c.record(ctx, model.TransitionRecord{ID: move.Token, OrderID: id, From: move.From, To: move.To, Outcome: model.TransitionRolledBack, Reason: joinReason(note, reason), Error: err.Error()})
		return err
	}
	c.Confirm(move)
	c.record(ctx, model.TransitionRecord{ID: move.Token, OrderID: id, From: move.From, To: move.To, Outcome: model.TransitionApplied, Reason: joinReason(note, reason)})
	return nil
}

// Tentative validates a status change and shows it on the board until it is
// confirmed or reverted.
func (c *Controller) Tentative(id int64, to model.OrderStatus) (Move, error) {
	order, ok := c.store.Order(id)
	if !ok {
		return Move{}, domainErrors.ErrNotFound
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if m, ok := c.moves[id]; ok && !m.confirmed {
		return Move{}, fmt.Errorf("%w: order %d has a move in flight", domainErrors.ErrIllegalTransition, id)
	}
	from := c.displayStatusLocked(order)
	if !workflow.CanAdvanceStage(from, to) {
		return Move{}, fmt.Errorf("%w: %s -> %s", domainErrors.ErrIllegalTransition, from, to)
	}
	m := Move{Token: uuid.NewString(), OrderID: id, From: from, To: to, StartedAt: c.clock.Now()}
	if settled, ok := c.moves[id]; ok {
		m.prev = &settled
	}
	c.moves[id] = m
	return m, nil
}

// Confirm keeps the move visible until the canonical status catches up.
func (c *Controller) Confirm(m Move) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	cur, ok := c.moves[m.OrderID]
	if !ok || cur.Token != m.Token {
		return false
	}
	cur.confirmed = true
	c.moves[m.OrderID] = cur
	return true
}

// Revert takes the move off the board and restores what was shown before it.
func (c *Controller) Revert(m Move) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	cur, ok := c.moves[m.OrderID]
	if !ok || cur.Token != m.Token {
		return false
	}
	if cur.prev != nil {
		c.moves[m.OrderID] = *cur.prev
		return true
	}
	delete(c.moves, m.OrderID)
	return true
}

func (c *Controller) transition(ctx context.Context, id int64, to model.OrderStatus, extra *model.StatusExtra, note string) error {
	move, err := c.Tentative(id, to)
	if err != nil {
		c.rejected(ctx, id, to, note, err)
		return err
	}

	if err := c.store.AdvanceOrderStatus(ctx, id, move.From, to, extra); err != nil {
		c.Revert(move)
		c.logger.Warn("board transition rolled back",
			slog.Int64("order_id", id),
			slog.String("status", string(to)),
			slog.String("error", err.Error()),
		)
		c.record(ctx, model.TransitionRecord{ID: move.Token, OrderID: id, From: move.From, To: to, Outcome: model.TransitionRolledBack, Reason: note, Error: err.Error()})
		return err
	}

	c.Confirm(move)
	c.logger.Info("board transition applied", slog.Int64("order_id", id), slog.String("status", string(to)))
	c.record(ctx, model.TransitionRecord{ID: move.Token, OrderID: id, From: move.From, To: to, Outcome: model.TransitionApplied, Reason: note})
	return nil
}

func (c *Controller) rejected(ctx context.Context, id int64, to model.OrderStatus, note string, err error) {
	var from model.OrderStatus
	if order, ok := c.store.Order(id); ok {
		from = order.Status
	}
	c.record(ctx, model.TransitionRecord{ID: uuid.NewString(), OrderID: id, From: from, To: to, Outcome: model.TransitionRejected, Reason: note, Error: err.Error()})
}

func (c *Controller) record(ctx context.Context, rec model.TransitionRecord) {
	if c.journal == nil {
		return
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = c.clock.Now()
	}
	if err := c.journal.Record(ctx, rec); err != nil {
		c.logger.Error("journal record failed", slog.Int64("order_id", rec.OrderID), slog.String("error", err.Error()))
	}
}

func (c *Controller) effectiveStatus(id int64) (model.OrderStatus, error) {
	order, ok := c.store.Order(id)
	if !ok {
		return "", domainErrors.ErrNotFound
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.displayStatusLocked(order), nil
}

// displayStatusLocked applies the pending move of order, dropping confirmed
// moves once the canonical status has left the move's origin.
func (c *Controller) displayStatusLocked(order model.Order) model.OrderStatus {
	m, ok := c.moves[order.ID]
	if !ok {
		return order.Status
	}
	if m.confirmed && !m.awaits(order.Status) {
		delete(c.moves, order.ID)
		return order.Status
	}
	return m.To
}

func joinReason(note, reason string) string {
	if reason == "" {
		return note
	}
	return note + ": " + reason
}
