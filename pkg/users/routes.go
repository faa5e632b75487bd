package users

import (
	"github.com/labstack/echo/v4"
	"github.com/openshelf/openshelf/pkg/auth"
	"github.com/uptrace/bun"
)

// RegisterRoutes registers all user routes.
func RegisterRoutes(g *echo.Group, db *bun.DB, authMiddleware *auth.Middleware) *Service {
	userService := NewService(db)

	h := &handler{
		userService: userService,
	}

	users := g.Group("/users")
	users.Use(authMiddleware.Authenticate)

	// Self-service routes come first so "me" isn't swallowed by /:id.
	users.GET("/me", h.me)
	users.PUT("/me", h.updateMe)

	users.GET("/:id", h.retrieve)

	// Everything else is superuser-only.
	users.GET("", h.list, authMiddleware.RequireSuperuser)
	users.POST("", h.create, authMiddleware.RequireSuperuser)
	users.PUT("/:id", h.update, authMiddleware.RequireSuperuser)
	users.DELETE("/:id", h.delete, authMiddleware.RequireSuperuser)

	return userService
}
