package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/openshelf/openshelf/pkg/errcodes"
	"github.com/pkg/errors"
)

type handler struct {
	authService *Service
}

// login handles the OAuth2-style form login and issues a bearer token. The
// form "username" field carries the account email.
func (h *handler) login(c echo.Context) error {
	ctx := c.Request().Context()

	params := LoginPayload{}
	if err := c.Bind(&params); err != nil {
		return err
	}

	user, err := h.authService.Authenticate(ctx, params.Username, params.Password)
	if err != nil {
		return err
	}

	token, err := h.authService.GenerateToken(user)
	if err != nil {
		return errors.WithStack(err)
	}

	return c.JSON(http.StatusOK, TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
	})
}

// me returns the current authenticated user.
func (h *handler) me(c echo.Context) error {
	user, ok := UserFromContext(c)
	if !ok {
		return errcodes.Unauthorized("Not authenticated")
	}

	return c.JSON(http.StatusOK, user)
}
