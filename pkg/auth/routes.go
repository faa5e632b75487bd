package auth

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"
)

// RegisterRoutes registers all auth routes on the given group and returns the
// auth service so the rest of the server can share it.
func RegisterRoutes(g *echo.Group, db *bun.DB, jwtSecret string, tokenExpiry time.Duration) *Service {
	authService := NewService(db, jwtSecret, tokenExpiry)
	authMiddleware := NewMiddleware(authService)

	h := &handler{
		authService: authService,
	}

	auth := g.Group("/auth")
	auth.POST("/login", h.login)
	auth.GET("/me", h.me, authMiddleware.Authenticate)

	return authService
}
