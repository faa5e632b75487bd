package users

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/openshelf/openshelf/pkg/auth"
	"github.com/openshelf/openshelf/pkg/errcodes"
	"github.com/openshelf/openshelf/pkg/models"
)

type handler struct {
	userService *Service
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()

	params := CreateUserPayload{}
	if err := c.Bind(&params); err != nil {
		return err
	}

	opts := CreateUserOptions{
		Email:       params.Email,
		Username:    params.Username,
		Password:    params.Password,
		FullName:    params.FullName,
		IsActive:    true,
		IsSuperuser: params.IsSuperuser,
	}
	if params.IsActive != nil {
		opts.IsActive = *params.IsActive
	}

	user, err := h.userService.Create(ctx, opts)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, user)
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	params := ListUsersQuery{}
	if err := c.Bind(&params); err != nil {
		return err
	}

	users, total, err := h.userService.List(ctx, ListOptions(params))
	if err != nil {
		return err
	}

	resp := struct {
		Users []*models.User `json:"users"`
		Total int            `json:"total"`
	}{users, total}

	return c.JSON(http.StatusOK, resp)
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("User")
	}

	actor, ok := auth.UserFromContext(c)
	if !ok {
		return errcodes.Unauthorized("Not authenticated")
	}
	if !actor.CanActOn(id) {
		return errcodes.Forbidden("Not enough permissions")
	}

	user, err := h.userService.Retrieve(ctx, id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, user)
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("User")
	}

	params := UpdateUserPayload{}
	if err := c.Bind(&params); err != nil {
		return err
	}

	user, err := h.userService.Retrieve(ctx, id)
	if err != nil {
		return err
	}

	opts, err := applyUserPatch(user, &params)
	if err != nil {
		return err
	}

	if err := h.userService.Update(ctx, user, opts); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, user)
}

func (h *handler) me(c echo.Context) error {
	actor, ok := auth.UserFromContext(c)
	if !ok {
		return errcodes.Unauthorized("Not authenticated")
	}

	return c.JSON(http.StatusOK, actor)
}

func (h *handler) updateMe(c echo.Context) error {
	ctx := c.Request().Context()

	actor, ok := auth.UserFromContext(c)
	if !ok {
		return errcodes.Unauthorized("Not authenticated")
	}

	params := UpdateMePayload{}
	if err := c.Bind(&params); err != nil {
		return err
	}

	opts, err := applyUserPatch(actor, &UpdateUserPayload{
		Email:    params.Email,
		Username: params.Username,
		Password: params.Password,
		FullName: params.FullName,
	})
	if err != nil {
		return err
	}

	if err := h.userService.Update(ctx, actor, opts); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, actor)
}

func (h *handler) delete(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("User")
	}

	user, err := h.userService.Delete(ctx, id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, user)
}

// applyUserPatch mutates the user in place from the payload and returns the
// set of changed columns.
func applyUserPatch(user *models.User, params *UpdateUserPayload) (UpdateOptions, error) {
	opts := UpdateOptions{Columns: []string{}}

	if params.Email != nil && *params.Email != user.Email {
		user.Email = *params.Email
		opts.Columns = append(opts.Columns, "email")
	}
	if params.Username != nil && *params.Username != user.Username {
		user.Username = *params.Username
		opts.Columns = append(opts.Columns, "username")
	}
	if params.Password != nil {
		hashedPassword, err := auth.HashPassword(*params.Password)
		if err != nil {
			return opts, err
		}
		user.HashedPassword = hashedPassword
		opts.Columns = append(opts.Columns, "hashed_password")
	}
	if params.FullName != nil {
		user.FullName = params.FullName
		opts.Columns = append(opts.Columns, "full_name")
	}
	if params.IsActive != nil && *params.IsActive != user.IsActive {
		user.IsActive = *params.IsActive
		opts.Columns = append(opts.Columns, "is_active")
	}
	if params.IsSuperuser != nil && *params.IsSuperuser != user.IsSuperuser {
		user.IsSuperuser = *params.IsSuperuser
		opts.Columns = append(opts.Columns, "is_superuser")
	}

	return opts, nil
}
