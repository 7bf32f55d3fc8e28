package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/polkiloo/orderboard/internal/server/http/dto"
)

const maxJournalLimit = 500

// SyncHandler exposes synchronization diagnostics.
type SyncHandler struct {
	facade SyncFacade
}

// NewSyncHandler constructs SyncHandler.
func NewSyncHandler(facade SyncFacade) *SyncHandler {
	return &SyncHandler{facade: facade}
}

// Metrics handles GET /api/sync/metrics.
func (h *SyncHandler) Metrics(c *gin.Context) {
	c.JSON(http.StatusOK, h.facade.Metrics())
}

// Journal handles GET /api/board/journal.
func (h *SyncHandler) Journal(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			badRequest(c, "limit must be a non-negative integer")
			return
		}
		limit = min(n, maxJournalLimit)
	}
	records, err := h.facade.Journal(c.Request.Context(), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

// Health handles GET /health.
func (h *SyncHandler) Health(c *gin.Context) {
	resp := dto.HealthResponse{Status: "ok", PushConnected: h.facade.Connected(), Journal: "ok"}
	if err := h.facade.JournalHealth(c.Request.Context()); err != nil {
		resp.Status = "degraded"
		resp.Journal = "unavailable"
	}
	c.JSON(http.StatusOK, resp)
}
