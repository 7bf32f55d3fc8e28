package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/polkiloo/orderboard/internal/domain/model"
	"github.com/polkiloo/orderboard/internal/domain/workflow"
	"github.com/polkiloo/orderboard/internal/server/http/dto"
)

// BoardHandler serves the board, the gestures and the card actions.
type BoardHandler struct {
	facade BoardFacade
}

// NewBoardHandler constructs BoardHandler.
func NewBoardHandler(facade BoardFacade) *BoardHandler {
	return &BoardHandler{facade: facade}
}

// Board handles GET /api/board.
func (h *BoardHandler) Board(c *gin.Context) {
	c.JSON(http.StatusOK, h.facade.Board())
}

// Refresh handles POST /api/board/refresh. Optional status and date query
// parameters change the listing filter before fetching.
func (h *BoardHandler) Refresh(c *gin.Context) {
	if c.Query("status") != "" || c.Query("date") != "" {
		filter := model.OrderFilter{Status: model.OrderStatus(c.Query("status"))}
		if filter.Status != "" && !workflow.Valid(filter.Status) {
			badRequest(c, "unknown status filter")
			return
		}
		if raw := c.Query("date"); raw != "" {
			date, err := time.Parse(time.DateOnly, raw)
			if err != nil {
				badRequest(c, "date must be YYYY-MM-DD")
				return
			}
			filter.Date = date
		}
		h.facade.SetFilter(filter)
	}
	if err := h.facade.Refresh(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.facade.Board())
}

// InteractionStart handles POST /api/board/interaction/start.
func (h *BoardHandler) InteractionStart(c *gin.Context) {
	h.facade.InteractionStart()
	c.Status(http.StatusNoContent)
}

// InteractionEnd handles POST /api/board/interaction/end.
func (h *BoardHandler) InteractionEnd(c *gin.Context) {
	h.facade.InteractionEnd()
	c.Status(http.StatusNoContent)
}

// DragStart handles POST /api/board/orders/:id/drag.
func (h *BoardHandler) DragStart(c *gin.Context) {
	id, ok := OrderID(c)
	if !ok {
		badRequest(c, "invalid order id")
		return
	}
	if err := h.facade.DragStart(id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DragCancel handles POST /api/board/drag/cancel.
func (h *BoardHandler) DragCancel(c *gin.Context) {
	h.facade.DragCancel()
	c.Status(http.StatusNoContent)
}

// Drop handles POST /api/board/orders/:id/drop.
func (h *BoardHandler) Drop(c *gin.Context) {
	id, ok := OrderID(c)
	if !ok {
		badRequest(c, "invalid order id")
		return
	}
	var req dto.DropRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid body")
		return
	}
	column, ok := workflow.ParseStage(req.Column)
	if !ok {
		badRequest(c, "unknown column")
		return
	}
	if err := h.facade.Drop(c.Request.Context(), id, column); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

// Accept handles POST /api/board/orders/:id/accept. The body is optional.
func (h *BoardHandler) Accept(c *gin.Context) {
	id, ok := OrderID(c)
	if !ok {
		badRequest(c, "invalid order id")
		return
	}
	var req dto.AcceptRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, "invalid body")
		return
	}
	if err := h.facade.Accept(c.Request.Context(), id, req.Extra()); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

// StartProduction handles POST /api/board/orders/:id/produce.
func (h *BoardHandler) StartProduction(c *gin.Context) {
	h.action(c, h.facade.StartProduction)
}

// Send handles POST /api/board/orders/:id/send.
func (h *BoardHandler) Send(c *gin.Context) {
	h.action(c, h.facade.Send)
}

// Complete handles POST /api/board/orders/:id/complete.
func (h *BoardHandler) Complete(c *gin.Context) {
	h.action(c, h.facade.Complete)
}

// Advance handles POST /api/board/orders/:id/advance.
func (h *BoardHandler) Advance(c *gin.Context) {
	h.action(c, h.facade.Advance)
}

// Cancel handles POST /api/board/orders/:id/cancel.
func (h *BoardHandler) Cancel(c *gin.Context) {
	id, ok := OrderID(c)
	if !ok {
		badRequest(c, "invalid order id")
		return
	}
	var req dto.CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, "invalid body")
		return
	}
	if err := h.facade.Cancel(c.Request.Context(), id, req.Reason); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

// Update handles PATCH /api/board/orders/:id.
func (h *BoardHandler) Update(c *gin.Context) {
	id, ok := OrderID(c)
	if !ok {
		badRequest(c, "invalid order id")
		return
	}
	var fields model.OrderUpdate
	if err := c.ShouldBindJSON(&fields); err != nil {
		badRequest(c, "invalid body")
		return
	}
	if err := h.facade.UpdateOrder(c.Request.Context(), id, fields); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Create handles POST /api/board/orders for orders taken at the counter.
func (h *BoardHandler) Create(c *gin.Context) {
	var draft model.OrderDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		badRequest(c, "invalid body")
		return
	}
	created, err := h.facade.CreateOrder(c.Request.Context(), draft)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *BoardHandler) action(c *gin.Context, fn func(ctx context.Context, id int64) error) {
	id, ok := OrderID(c)
	if !ok {
		badRequest(c, "invalid order id")
		return
	}
	if err := fn(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}
