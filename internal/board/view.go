package board

import (
	"sort"
	"time"

	"github.com/polkiloo/orderboard/internal/domain/model"
	"github.com/polkiloo/orderboard/internal/domain/workflow"
)

var stageTitles = map[workflow.Stage]string{
	workflow.StageNew:         "Novos",
	workflow.StagePreparation: "Em preparo",
	workflow.StageDelivery:    "Em entrega",
	workflow.StageCompleted:   "Finalizados",
}

// ProductionTimer tracks how long an order has been in preparation.
type ProductionTimer struct {
	OrderID  int64         `json:"order_id"`
	Elapsed  time.Duration `json:"-"`
	Estimate time.Duration `json:"-"`
	Overdue  bool          `json:"overdue"`

	ElapsedSeconds  int64 `json:"elapsed_seconds"`
	EstimateSeconds int64 `json:"estimate_seconds"`
}

// Card is an order as rendered on the board.
type Card struct {
	Order    model.Order      `json:"order"`
	Label    string           `json:"label"`
	Pending  bool             `json:"pending"`
	Dragging bool             `json:"dragging"`
	Timer    *ProductionTimer `json:"timer,omitempty"`
}

// Column groups the cards of one stage.
type Column struct {
	Stage workflow.Stage `json:"stage"`
	Title string         `json:"title"`
	Cards []Card         `json:"cards"`
}

// Columns returns the board, left to right, with tentative moves applied.
// Cancelled orders are not shown.
func (c *Controller) Columns() []Column {
	orders := c.store.Orders()

	c.mu.Lock()
	present := make(map[int64]struct{}, len(orders))
	cards := make(map[workflow.Stage][]Card)
	for _, o := range orders {
		present[o.ID] = struct{}{}
		o.Status = c.displayStatusLocked(o)
		m, moving := c.moves[o.ID]
		card := Card{
			Order:    o,
			Label:    workflow.Label(o.Status),
			Pending:  moving && !m.confirmed,
			Dragging: c.dragging == o.ID,
		}
		if t, ok := c.timers[o.ID]; ok {
			card.Timer = &t
		}
		stage := workflow.StageOf(o.Status)
		cards[stage] = append(cards[stage], card)
	}
	for id, m := range c.moves {
		if _, ok := present[id]; !ok && m.confirmed {
			delete(c.moves, id)
		}
	}
	c.mu.Unlock()

	stages := workflow.BoardStages()
	columns := make([]Column, 0, len(stages))
	for _, stage := range stages {
		list := cards[stage]
		sort.SliceStable(list, func(i, j int) bool {
			a, b := list[i].Order, list[j].Order
			if a.CreatedAt.Equal(b.CreatedAt) {
				return a.ID < b.ID
			}
			return a.CreatedAt.Before(b.CreatedAt)
		})
		if list == nil {
			list = []Card{}
		}
		columns = append(columns, Column{Stage: stage, Title: stageTitles[stage], Cards: list})
	}
	return columns
}

// Dragging returns the id of the grabbed card, zero when none.
func (c *Controller) Dragging() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dragging
}

// RefreshTimers recomputes production timers for orders in preparation.
func (c *Controller) RefreshTimers(now time.Time) {
	orders := c.store.Orders()

	c.mu.Lock()
	defer c.mu.Unlock()
	timers := make(map[int64]ProductionTimer)
	for _, o := range orders {
		status := c.displayStatusLocked(o)
		if workflow.StageOf(status) != workflow.StagePreparation || o.AcceptedAt == nil {
			continue
		}
		estimate := c.estimate
		if o.EstimatedDeliveryTime != nil && *o.EstimatedDeliveryTime > 0 {
			estimate = time.Duration(*o.EstimatedDeliveryTime) * time.Minute
		}
		elapsed := now.Sub(*o.AcceptedAt)
		if elapsed < 0 {
			elapsed = 0
		}
		timers[o.ID] = ProductionTimer{
			OrderID:         o.ID,
			Elapsed:         elapsed,
			Estimate:        estimate,
			Overdue:         estimate > 0 && elapsed > estimate,
			ElapsedSeconds:  int64(elapsed / time.Second),
			EstimateSeconds: int64(estimate / time.Second),
		}
	}
	c.timers = timers
}

// Timers returns the production timers computed by the last refresh.
func (c *Controller) Timers() []ProductionTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ProductionTimer, 0, len(c.timers))
	for _, t := range c.timers {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderID < out[j].OrderID })
	return out
}

// View is the full board state served to the rendering layer.
type View struct {
	Columns   []Column          `json:"columns"`
	Timers    []ProductionTimer `json:"timers"`
	Dragging  int64             `json:"dragging,omitempty"`
	Connected bool              `json:"connected"`
	Loading   bool              `json:"loading"`
	Error     string            `json:"error,omitempty"`
}
