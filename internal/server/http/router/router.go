package router

import (
	"log/slog"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/polkiloo/orderboard/internal/server/http/handlers"
	"github.com/polkiloo/orderboard/internal/server/http/middleware"
)

// Setup configures gin router with handlers and middleware.
func Setup(facade handlers.BoardFacade, logger *slog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestLogger(logger))
	engine.Use(middleware.DecompressRequest())
	engine.Use(gzip.Gzip(gzip.DefaultCompression))

	boardHandler := handlers.NewBoardHandler(facade)
	syncHandler := handlers.NewSyncHandler(facade)

	engine.GET("/health", syncHandler.Health)

	api := engine.Group("/api")
	api.GET("/sync/metrics", syncHandler.Metrics)

	board := api.Group("/board")
	board.GET("", boardHandler.Board)
	board.POST("/refresh", boardHandler.Refresh)
	board.GET("/journal", syncHandler.Journal)
	board.POST("/interaction/start", boardHandler.InteractionStart)
	board.POST("/interaction/end", boardHandler.InteractionEnd)
	board.POST("/drag/cancel", boardHandler.DragCancel)

	board.POST("/orders", boardHandler.Create)

	orders := board.Group("/orders/:id")
	orders.PATCH("", boardHandler.Update)
	orders.POST("/drag", boardHandler.DragStart)
	orders.POST("/drop", boardHandler.Drop)
	orders.POST("/accept", boardHandler.Accept)
	orders.POST("/produce", boardHandler.StartProduction)
	orders.POST("/send", boardHandler.Send)
	orders.POST("/complete", boardHandler.Complete)
	orders.POST("/advance", boardHandler.Advance)
	orders.POST("/cancel", boardHandler.Cancel)

	return engine
}
