package books

import (
	"github.com/labstack/echo/v4"
	"github.com/openshelf/openshelf/pkg/auth"
	"github.com/uptrace/bun"
)

// RegisterRoutes registers all book routes. Reads are public; catalog writes
// are superuser-only.
func RegisterRoutes(g *echo.Group, db *bun.DB, authMiddleware *auth.Middleware) *Service {
	bookService := NewService(db)

	h := &handler{
		bookService: bookService,
	}

	books := g.Group("/books")

	books.GET("", h.list)
	books.GET("/:id", h.retrieve)

	books.POST("", h.create, authMiddleware.Authenticate, authMiddleware.RequireSuperuser)
	books.PUT("/:id", h.update, authMiddleware.Authenticate, authMiddleware.RequireSuperuser)
	books.DELETE("/:id", h.delete, authMiddleware.Authenticate, authMiddleware.RequireSuperuser)

	return bookService
}
