// Package router contains routing and server setup for the HTTP delivery.
package router

import (
	"contactmap/internal/delivery/http/middleware"
	"contactmap/internal/delivery/http/router/handler"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

type RouterParams struct {
	fx.In

	AuthHandler    *handler.AuthHandler
	ContactHandler *handler.ContactHandler
	MapHandler     *handler.MapHandler
	AuthMiddleware *middleware.AuthMiddleware
}

// router holds all the handlers that need to be registered.
type router struct {
	authHandler    *handler.AuthHandler
	contactHandler *handler.ContactHandler
	mapHandler     *handler.MapHandler
	authMiddleware *middleware.AuthMiddleware
}

// NewRouter is the constructor for the Router.
// Fx will inject the required handlers here.
func NewRouter(params RouterParams) *router {
	return &router{
		authHandler:    params.AuthHandler,
		contactHandler: params.ContactHandler,
		mapHandler:     params.MapHandler,
		authMiddleware: params.AuthMiddleware,
	}
}

// RegisterRoutes sets up all the API routes for the application.
func (r *router) RegisterRoutes(e *echo.Echo) {
	// Health check endpoint
	e.GET("/health", handler.HealthCheck)

	// Auth routes
	authGroup := e.Group("/auth")
	{
		authGroup.POST("/token", r.authHandler.IssueToken)
	}

	// Sync routes that require device authentication
	syncGroup := e.Group("/sync")
	syncGroup.Use(r.authMiddleware.Authenticate)
	{
		syncGroup.POST("/contacts", r.contactHandler.SyncContacts)
	}

	// Contact read routes
	contactGroup := e.Group("/contacts")
	contactGroup.Use(r.authMiddleware.Authenticate)
	{
		contactGroup.GET("", r.contactHandler.ListContacts)
		contactGroup.GET("/:id", r.contactHandler.GetContact)
	}

	// Map routes
	mapGroup := e.Group("/map")
	mapGroup.Use(r.authMiddleware.Authenticate)
	{
		mapGroup.GET("/pins", r.mapHandler.Pins)
		mapGroup.GET("/pins/:id/:index/qr", r.mapHandler.LocationQR)
	}
}
