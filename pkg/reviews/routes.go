package reviews

import (
	"github.com/labstack/echo/v4"
	"github.com/openshelf/openshelf/pkg/auth"
	"github.com/uptrace/bun"
)

// RegisterRoutes registers all review routes. Reads are public; writes
// require authentication and follow the ownership rules.
func RegisterRoutes(g *echo.Group, db *bun.DB, authMiddleware *auth.Middleware) *Service {
	reviewService := NewService(db)

	h := &handler{
		reviewService: reviewService,
	}

	reviews := g.Group("/reviews")

	reviews.GET("", h.list)
	reviews.GET("/:id", h.retrieve)

	reviews.POST("", h.create, authMiddleware.Authenticate)
	reviews.PUT("/:id", h.update, authMiddleware.Authenticate)
	reviews.DELETE("/:id", h.delete, authMiddleware.Authenticate)

	return reviewService
}
