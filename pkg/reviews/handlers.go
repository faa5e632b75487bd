package reviews

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/openshelf/openshelf/pkg/auth"
	"github.com/openshelf/openshelf/pkg/errcodes"
	"github.com/openshelf/openshelf/pkg/models"
)

type handler struct {
	reviewService *Service
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()

	actor, ok := auth.UserFromContext(c)
	if !ok {
		return errcodes.Unauthorized("Not authenticated")
	}

	params := CreateReviewPayload{}
	if err := c.Bind(&params); err != nil {
		return err
	}

	review, err := h.reviewService.CreateOrUpdate(ctx, CreateOrUpdateOptions{
		BookID:  params.BookID,
		Rating:  params.Rating,
		Comment: params.Comment,
	}, actor.ID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, review)
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	params := ListReviewsQuery{}
	if err := c.Bind(&params); err != nil {
		return err
	}

	reviews, total, err := h.reviewService.List(ctx, ListOptions{
		BookID: params.BookID,
		UserID: params.UserID,
		Limit:  params.Limit,
		Offset: params.Offset,
	})
	if err != nil {
		return err
	}

	resp := struct {
		Reviews []*models.Review `json:"reviews"`
		Total   int              `json:"total"`
	}{reviews, total}

	return c.JSON(http.StatusOK, resp)
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Review")
	}

	review, err := h.reviewService.Retrieve(ctx, id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, review)
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()

	actor, ok := auth.UserFromContext(c)
	if !ok {
		return errcodes.Unauthorized("Not authenticated")
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Review")
	}

	params := UpdateReviewPayload{}
	if err := c.Bind(&params); err != nil {
		return err
	}

	review, err := h.reviewService.Update(ctx, id, UpdateOptions{
		Rating:  params.Rating,
		Comment: params.Comment,
	}, actor)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, review)
}

func (h *handler) delete(c echo.Context) error {
	ctx := c.Request().Context()

	actor, ok := auth.UserFromContext(c)
	if !ok {
		return errcodes.Unauthorized("Not authenticated")
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Review")
	}

	review, err := h.reviewService.Delete(ctx, id, actor)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, review)
}
