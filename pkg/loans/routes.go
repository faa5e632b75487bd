package loans

import (
	"github.com/labstack/echo/v4"
	"github.com/openshelf/openshelf/pkg/auth"
	"github.com/uptrace/bun"
)

// RegisterRoutes registers all loan routes. Every route requires
// authentication; deletion is superuser-only.
func RegisterRoutes(g *echo.Group, db *bun.DB, authMiddleware *auth.Middleware) *Service {
	loanService := NewService(db)

	h := &handler{
		loanService: loanService,
	}

	loans := g.Group("/loans")
	loans.Use(authMiddleware.Authenticate)

	loans.GET("", h.list)
	loans.POST("", h.create)
	loans.GET("/:id", h.retrieve)
	loans.PUT("/:id", h.update)
	loans.POST("/:id/return", h.returnLoan)
	loans.DELETE("/:id", h.delete, authMiddleware.RequireSuperuser)

	return loanService
}
