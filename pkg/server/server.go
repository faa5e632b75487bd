package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/openshelf/openshelf/pkg/auth"
	"github.com/openshelf/openshelf/pkg/binder"
	"github.com/openshelf/openshelf/pkg/books"
	"github.com/openshelf/openshelf/pkg/config"
	"github.com/openshelf/openshelf/pkg/errcodes"
	"github.com/openshelf/openshelf/pkg/loans"
	"github.com/openshelf/openshelf/pkg/reviews"
	"github.com/openshelf/openshelf/pkg/users"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/echo/v4/health"
	"github.com/robinjoseph08/golib/echo/v4/middleware/logger"
	"github.com/robinjoseph08/golib/echo/v4/middleware/recovery"
	"github.com/uptrace/bun"
)

func New(cfg *config.Config, db *bun.DB) (*http.Server, error) {
	e := echo.New()

	b, err := binder.New()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	e.Binder = b

	e.Use(logger.Middleware())
	e.Use(recovery.Middleware())
	e.Use(middleware.CORS())

	health.RegisterRoutes(e)

	// All API routes live under the versioned prefix.
	v1 := e.Group("/api/v1")

	authService := auth.RegisterRoutes(v1, db, cfg.JWTSecret, cfg.TokenExpiry)
	authMiddleware := auth.NewMiddleware(authService)

	users.RegisterRoutes(v1, db, authMiddleware)
	books.RegisterRoutes(v1, db, authMiddleware)
	loans.RegisterRoutes(v1, db, authMiddleware)
	reviews.RegisterRoutes(v1, db, authMiddleware)

	echo.NotFoundHandler = notFoundHandler
	e.HTTPErrorHandler = errcodes.NewHandler().Handle

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.ServerPort),
		Handler:           e,
		ReadHeaderTimeout: 3 * time.Second,
	}

	return srv, nil
}

func notFoundHandler(c echo.Context) error {
	c.SetPath("/:path")
	return errcodes.NotFound("Page")
}
