package router

import (
	"log/slog"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/polkiloo/ordersync/internal/server/http/handlers"
	"github.com/polkiloo/ordersync/internal/server/http/middleware"
	"github.com/polkiloo/ordersync/internal/server/ws"
)

// Setup configures gin router with handlers and middleware.
func Setup(facade handlers.SyncFacade, hub *ws.Hub, registry *prometheus.Registry, logger *slog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestLogger(logger))
	engine.Use(middleware.DecompressRequest())

	// The socket and scrape endpoints must not be gzip-wrapped.
	engine.GET("/ws", hub.Handler())
	engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	engine.GET("/healthz", handlers.Health(facade))

	sessionHandler := handlers.NewSessionHandler(facade)
	orderHandler := handlers.NewOrderHandler(facade)
	viewHandler := handlers.NewViewHandler(facade)

	api := engine.Group("/api")
	api.Use(gzip.Gzip(gzip.DefaultCompression))
	api.POST("/session", sessionHandler.Login)

	authed := api.Group("")
	authed.Use(middleware.ActorRequired(facade))
	authed.GET("/orders", orderHandler.List)
	authed.POST("/orders", orderHandler.Place)
	authed.GET("/orders/:id/status", orderHandler.Status)
	authed.POST("/orders/:id/status", orderHandler.ChangeStatus)
	authed.POST("/orders/:id/cancel", orderHandler.Cancel)
	authed.GET("/views", viewHandler.List)
	authed.GET("/views/:view/orders", viewHandler.Orders)
	authed.POST("/views/:view/resync", viewHandler.Resync)
	authed.GET("/notifications", viewHandler.Notifications)

	return engine
}
