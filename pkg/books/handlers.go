package books

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/openshelf/openshelf/pkg/errcodes"
	"github.com/openshelf/openshelf/pkg/models"
)

type handler struct {
	bookService *Service
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()

	params := CreateBookPayload{}
	if err := c.Bind(&params); err != nil {
		return err
	}

	book := &models.Book{
		Title:           params.Title,
		Author:          params.Author,
		ISBN:            params.ISBN,
		PublicationYear: params.PublicationYear,
		Publisher:       params.Publisher,
		Genre:           params.Genre,
		Description:     params.Description,
		CoverImageURL:   params.CoverImageURL,
		Status:          models.BookStatusAvailable,
	}

	if err := h.bookService.Create(ctx, book); err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, book)
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Book")
	}

	book, err := h.bookService.Retrieve(ctx, id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, book)
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	params := ListBooksQuery{}
	if err := c.Bind(&params); err != nil {
		return err
	}

	books, total, err := h.bookService.List(ctx, ListOptions(params))
	if err != nil {
		return err
	}

	resp := struct {
		Books []*models.Book `json:"books"`
		Total int            `json:"total"`
	}{books, total}

	return c.JSON(http.StatusOK, resp)
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Book")
	}

	params := UpdateBookPayload{}
	if err := c.Bind(&params); err != nil {
		return err
	}

	book, err := h.bookService.Retrieve(ctx, id)
	if err != nil {
		return err
	}

	opts := UpdateOptions{Columns: []string{}}

	if params.Title != nil && *params.Title != book.Title {
		book.Title = *params.Title
		opts.Columns = append(opts.Columns, "title")
	}
	if params.Author != nil && *params.Author != book.Author {
		book.Author = *params.Author
		opts.Columns = append(opts.Columns, "author")
	}
	if params.ISBN != nil && *params.ISBN != book.ISBN {
		book.ISBN = *params.ISBN
		opts.Columns = append(opts.Columns, "isbn")
	}
	if params.PublicationYear != nil {
		book.PublicationYear = params.PublicationYear
		opts.Columns = append(opts.Columns, "publication_year")
	}
	if params.Publisher != nil {
		book.Publisher = params.Publisher
		opts.Columns = append(opts.Columns, "publisher")
	}
	if params.Genre != nil {
		book.Genre = params.Genre
		opts.Columns = append(opts.Columns, "genre")
	}
	if params.Description != nil {
		book.Description = params.Description
		opts.Columns = append(opts.Columns, "description")
	}
	if params.CoverImageURL != nil {
		book.CoverImageURL = params.CoverImageURL
		opts.Columns = append(opts.Columns, "cover_image_url")
	}
	if params.Status != nil && *params.Status != book.Status {
		book.Status = *params.Status
		opts.Columns = append(opts.Columns, "status")
	}
	if params.Rating != nil {
		book.Rating = *params.Rating
		opts.Columns = append(opts.Columns, "rating")
	}

	if err := h.bookService.Update(ctx, book, opts); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, book)
}

func (h *handler) delete(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Book")
	}

	book, err := h.bookService.Delete(ctx, id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, book)
}
