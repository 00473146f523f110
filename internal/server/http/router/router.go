package router

import (
	"log/slog"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/campuseats/canteen/internal/server/http/handlers"
	"github.com/campuseats/canteen/internal/server/http/middleware"
)

// Setup configures gin router with handlers and middleware.
func Setup(facade handlers.CanteenFacade, logger *slog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestLogger(logger))
	engine.Use(middleware.DecompressRequest())
	engine.Use(gzip.Gzip(gzip.DefaultCompression))

	paymentHandler := handlers.NewPaymentHandler(facade)
	orderHandler := handlers.NewOrderHandler(facade)
	notificationHandler := handlers.NewNotificationHandler(facade)

	api := engine.Group("/api")

	// The processor push endpoint authenticates by signature, not bearer token.
	api.PUT("/payments/:id/status", paymentHandler.Webhook)

	authed := api.Group("")
	authed.Use(middleware.AuthRequired(facade))
	authed.POST("/payments", paymentHandler.Checkout)
	authed.POST("/payments/confirm", paymentHandler.Confirm)
	authed.GET("/payments/:id", paymentHandler.Get)
	authed.POST("/order", orderHandler.Place)
	authed.GET("/order", orderHandler.Feed)
	authed.GET("/order/:id", orderHandler.Get)
	authed.PUT("/order/:id", orderHandler.UpdateStatus)
	authed.GET("/notifications", notificationHandler.List)
	authed.PUT("/notifications/:id/read", notificationHandler.MarkRead)
	authed.DELETE("/notifications/:id", notificationHandler.Delete)

	return engine
}
