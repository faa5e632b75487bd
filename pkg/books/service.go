package books

import (
	"context"
	"database/sql"
	"time"

	"github.com/openshelf/openshelf/pkg/errcodes"
	"github.com/openshelf/openshelf/pkg/models"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

// Service handles book operations.
type Service struct {
	db *bun.DB
}

// NewService creates a new books service.
func NewService(db *bun.DB) *Service {
	return &Service{db: db}
}

// Create inserts a new book. ISBNs are unique across the catalog; the check
// and the insert share a transaction so a racing duplicate fails the check
// rather than tripping the unique index.
func (s *Service) Create(ctx context.Context, book *models.Book) error {
	if book.CreatedAt.IsZero() {
		book.CreatedAt = time.Now()
	}
	if book.Status == "" {
		book.Status = models.BookStatusAvailable
	}

	return s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		exists, err := tx.NewSelect().
			Model((*models.Book)(nil)).
			Where("isbn = ?", book.ISBN).
			Exists(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		if exists {
			return errcodes.BadRequest("A book with this ISBN already exists in the system")
		}

		_, err = tx.NewInsert().Model(book).Exec(ctx)
		return errors.WithStack(err)
	})
}

// Retrieve gets a book by ID.
func (s *Service) Retrieve(ctx context.Context, id int) (*models.Book, error) {
	book := &models.Book{}
	err := s.db.NewSelect().
		Model(book).
		Where("b.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Book")
		}
		return nil, errors.WithStack(err)
	}
	return book, nil
}

// ListOptions contains options for listing books. The string filters are
// case-insensitive substring matches.
type ListOptions struct {
	Title  *string
	Author *string
	Genre  *string
	Limit  int
	Offset int
}

// List returns a paginated list of books matching the filters.
func (s *Service) List(ctx context.Context, opts ListOptions) ([]*models.Book, int, error) {
	books := []*models.Book{}

	query := s.db.NewSelect().
		Model(&books).
		Order("b.id ASC")

	if opts.Title != nil && *opts.Title != "" {
		query = query.Where("b.title LIKE ?", "%"+*opts.Title+"%")
	}
	if opts.Author != nil && *opts.Author != "" {
		query = query.Where("b.author LIKE ?", "%"+*opts.Author+"%")
	}
	if opts.Genre != nil && *opts.Genre != "" {
		query = query.Where("b.genre LIKE ?", "%"+*opts.Genre+"%")
	}
	if opts.Limit > 0 {
		query = query.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		query = query.Offset(opts.Offset)
	}

	total, err := query.ScanAndCount(ctx)
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}

	return books, total, nil
}

// UpdateOptions contains options for updating a book.
type UpdateOptions struct {
	Columns []string
}

// Update persists the given columns of an already-mutated book, re-checking
// ISBN uniqueness when it changes.
func (s *Service) Update(ctx context.Context, book *models.Book, opts UpdateOptions) error {
	if len(opts.Columns) == 0 {
		return nil
	}

	for _, column := range opts.Columns {
		if column != "isbn" {
			continue
		}
		exists, err := s.db.NewSelect().
			Model((*models.Book)(nil)).
			Where("isbn = ?", book.ISBN).
			Where("id != ?", book.ID).
			Exists(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		if exists {
			return errcodes.BadRequest("A book with this ISBN already exists in the system")
		}
	}

	now := time.Now()
	book.UpdatedAt = &now
	opts.Columns = append(opts.Columns, "updated_at")

	_, err := s.db.NewUpdate().
		Model(book).
		Column(opts.Columns...).
		WherePK().
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

// Delete removes a book. Loans and reviews referencing it are removed by the
// cascading foreign keys.
func (s *Service) Delete(ctx context.Context, id int) (*models.Book, error) {
	book, err := s.Retrieve(ctx, id)
	if err != nil {
		return nil, err
	}

	_, err = s.db.NewDelete().
		Model((*models.Book)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return book, nil
}
