package loans

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/openshelf/openshelf/pkg/auth"
	"github.com/openshelf/openshelf/pkg/errcodes"
	"github.com/openshelf/openshelf/pkg/models"
)

type handler struct {
	loanService *Service
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()

	actor, ok := auth.UserFromContext(c)
	if !ok {
		return errcodes.Unauthorized("Not authenticated")
	}

	params := CreateLoanPayload{}
	if err := c.Bind(&params); err != nil {
		return err
	}

	loan, err := h.loanService.Create(ctx, CreateLoanOptions{
		BookID:  params.BookID,
		UserID:  params.UserID,
		DueDate: params.DueDate,
		Notes:   params.Notes,
	}, actor)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, loan)
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	actor, ok := auth.UserFromContext(c)
	if !ok {
		return errcodes.Unauthorized("Not authenticated")
	}

	params := ListLoansQuery{}
	if err := c.Bind(&params); err != nil {
		return err
	}

	loans, total, err := h.loanService.List(ctx, ListOptions{
		Status: params.Status,
		Limit:  params.Limit,
		Offset: params.Offset,
	}, actor)
	if err != nil {
		return err
	}

	resp := struct {
		Loans []*models.Loan `json:"loans"`
		Total int            `json:"total"`
	}{loans, total}

	return c.JSON(http.StatusOK, resp)
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()

	actor, ok := auth.UserFromContext(c)
	if !ok {
		return errcodes.Unauthorized("Not authenticated")
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Loan")
	}

	loan, err := h.loanService.Retrieve(ctx, id)
	if err != nil {
		return err
	}

	if !actor.CanActOn(loan.UserID) {
		return errcodes.Forbidden("Not enough permissions")
	}

	return c.JSON(http.StatusOK, loan)
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()

	actor, ok := auth.UserFromContext(c)
	if !ok {
		return errcodes.Unauthorized("Not authenticated")
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Loan")
	}

	params := UpdateLoanPayload{}
	if err := c.Bind(&params); err != nil {
		return err
	}

	loan, err := h.loanService.Update(ctx, id, UpdateLoanOptions{
		DueDate:    params.DueDate,
		ReturnDate: params.ReturnDate,
		Status:     params.Status,
		Notes:      params.Notes,
	}, actor)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, loan)
}

func (h *handler) returnLoan(c echo.Context) error {
	ctx := c.Request().Context()

	actor, ok := auth.UserFromContext(c)
	if !ok {
		return errcodes.Unauthorized("Not authenticated")
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Loan")
	}

	loan, err := h.loanService.Return(ctx, id, actor)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, loan)
}

func (h *handler) delete(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Loan")
	}

	loan, err := h.loanService.Delete(ctx, id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, loan)
}
