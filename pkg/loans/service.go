package loans

import (
	"context"
	"database/sql"
	"time"

	"github.com/openshelf/openshelf/pkg/errcodes"
	"github.com/openshelf/openshelf/pkg/models"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

// Service drives the loan lifecycle. Every transition that touches both a
// loan and its book's status runs in a single transaction so the
// "borrowed iff an open loan exists" invariant holds under concurrent
// requests.
type Service struct {
	db *bun.DB
}

// NewService creates a new loans service.
func NewService(db *bun.DB) *Service {
	return &Service{db: db}
}

// CreateLoanOptions contains options for creating a loan.
type CreateLoanOptions struct {
	BookID  int
	UserID  int
	DueDate time.Time
	Notes   *string
}

// Create lends a book out. The book must exist and be available; the check
// and the paired book-status flip happen inside one transaction so two
// concurrent creates can't both see an available book. Non-superuser actors
// always become the loan owner themselves, whatever owner they requested.
//
// New loans start in the active state: the book is handed over at creation
// time, so there is no separate pending approval step.
func (s *Service) Create(ctx context.Context, opts CreateLoanOptions, actor *models.User) (*models.Loan, error) {
	userID := opts.UserID
	if !actor.IsSuperuser || userID == 0 {
		userID = actor.ID
	}

	now := time.Now()
	loan := &models.Loan{
		CreatedAt: now,
		UserID:    userID,
		BookID:    opts.BookID,
		LoanDate:  now,
		DueDate:   opts.DueDate,
		Status:    models.LoanStatusActive,
		Notes:     opts.Notes,
	}

	err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		book := &models.Book{}
		err := tx.NewSelect().
			Model(book).
			Where("b.id = ?", opts.BookID).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return errcodes.NotFound("Book")
			}
			return errors.WithStack(err)
		}

		if book.Status != models.BookStatusAvailable {
			return errcodes.BadRequest("Book is not available for loan")
		}

		_, err = tx.NewInsert().Model(loan).Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		_, err = tx.NewUpdate().
			Model((*models.Book)(nil)).
			Set("status = ?", models.BookStatusBorrowed).
			Set("updated_at = CURRENT_TIMESTAMP").
			Where("id = ?", opts.BookID).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return loan, nil
}

// Retrieve gets a loan by ID with its book and user attached.
func (s *Service) Retrieve(ctx context.Context, id int) (*models.Loan, error) {
	loan := &models.Loan{}
	err := s.db.NewSelect().
		Model(loan).
		Relation("Book").
		Relation("User").
		Where("l.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Loan")
		}
		return nil, errors.WithStack(err)
	}
	return loan, nil
}

// ListOptions contains options for listing loans.
type ListOptions struct {
	Status *string
	Limit  int
	Offset int
}

// List returns loans visible to the actor. Non-superusers only ever see
// their own. The overdue sweep runs first so results reflect current due
// dates.
func (s *Service) List(ctx context.Context, opts ListOptions, actor *models.User) ([]*models.Loan, int, error) {
	if err := s.SweepOverdue(ctx); err != nil {
		return nil, 0, err
	}

	loans := []*models.Loan{}

	query := s.db.NewSelect().
		Model(&loans).
		Relation("Book").
		Relation("User").
		Order("l.id ASC")

	if !actor.IsSuperuser {
		query = query.Where("l.user_id = ?", actor.ID)
	}
	if opts.Status != nil && *opts.Status != "" {
		query = query.Where("l.status = ?", *opts.Status)
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

	return loans, total, nil
}

// UpdateLoanOptions is the patch applied by Update. Nil fields are left
// untouched.
type UpdateLoanOptions struct {
	DueDate    *time.Time
	ReturnDate *time.Time
	Status     *string
	Notes      *string
}

// Update patches a loan. Non-superuser owners may only extend the due date
// of a pending or active loan, and only forward in time. Superusers may
// patch any field.
func (s *Service) Update(ctx context.Context, id int, opts UpdateLoanOptions, actor *models.User) (*models.Loan, error) {
	loan, err := s.Retrieve(ctx, id)
	if err != nil {
		return nil, err
	}

	if !actor.CanActOn(loan.UserID) {
		return nil, errcodes.Forbidden("Not enough permissions")
	}

	if !actor.IsSuperuser {
		if opts.Status != nil || opts.ReturnDate != nil || opts.Notes != nil {
			return nil, errcodes.Forbidden("You can only extend the due date")
		}
		if loan.Status != models.LoanStatusActive && loan.Status != models.LoanStatusPending {
			return nil, errcodes.BadRequest("Cannot extend due date for non-active loan")
		}
		if opts.DueDate != nil && !opts.DueDate.After(loan.DueDate) {
			return nil, errcodes.BadRequest("New due date must be after current due date")
		}
	}

	columns := []string{}
	if opts.DueDate != nil {
		loan.DueDate = *opts.DueDate
		columns = append(columns, "due_date")
	}
	if opts.ReturnDate != nil {
		loan.ReturnDate = opts.ReturnDate
		columns = append(columns, "return_date")
	}
	if opts.Status != nil {
		loan.Status = *opts.Status
		columns = append(columns, "status")
	}
	if opts.Notes != nil {
		loan.Notes = opts.Notes
		columns = append(columns, "notes")
	}

	if len(columns) == 0 {
		return loan, nil
	}

	now := time.Now()
	loan.UpdatedAt = &now
	columns = append(columns, "updated_at")

	_, err = s.db.NewUpdate().
		Model(loan).
		Column(columns...).
		WherePK().
		Exec(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return loan, nil
}

// Return closes out an open loan: sets the return date, marks the loan
// returned, and puts the book back in circulation, all atomically.
func (s *Service) Return(ctx context.Context, id int, actor *models.User) (*models.Loan, error) {
	loan, err := s.Retrieve(ctx, id)
	if err != nil {
		return nil, err
	}

	if !actor.CanActOn(loan.UserID) {
		return nil, errcodes.Forbidden("Not enough permissions")
	}

	if !loan.IsOpen() {
		return nil, errcodes.BadRequest("Loan is not active or overdue")
	}

	now := time.Now()
	loan.ReturnDate = &now
	loan.Status = models.LoanStatusReturned
	loan.UpdatedAt = &now

	err = s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewUpdate().
			Model(loan).
			Column("return_date", "status", "updated_at").
			WherePK().
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		_, err = tx.NewUpdate().
			Model((*models.Book)(nil)).
			Set("status = ?", models.BookStatusAvailable).
			Set("updated_at = CURRENT_TIMESTAMP").
			Where("id = ?", loan.BookID).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return loan, nil
}

// Delete removes a loan. If the loan was holding the book out of
// circulation, the book is made available again in the same transaction.
func (s *Service) Delete(ctx context.Context, id int) (*models.Loan, error) {
	loan, err := s.Retrieve(ctx, id)
	if err != nil {
		return nil, err
	}

	err = s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if loan.IsOpen() {
			_, err := tx.NewUpdate().
				Model((*models.Book)(nil)).
				Set("status = ?", models.BookStatusAvailable).
				Set("updated_at = CURRENT_TIMESTAMP").
				Where("id = ?", loan.BookID).
				Where("status = ?", models.BookStatusBorrowed).
				Exec(ctx)
			if err != nil {
				return errors.WithStack(err)
			}
		}

		_, err := tx.NewDelete().
			Model((*models.Loan)(nil)).
			Where("id = ?", id).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return loan, nil
}

// SweepOverdue promotes every active loan whose due date has passed to
// overdue. It is idempotent and a pure function of the current time: loans
// already overdue or in a terminal state are untouched.
func (s *Service) SweepOverdue(ctx context.Context) error {
	_, err := s.db.NewUpdate().
		Model((*models.Loan)(nil)).
		Set("status = ?", models.LoanStatusOverdue).
		Set("updated_at = CURRENT_TIMESTAMP").
		Where("status = ?", models.LoanStatusActive).
		Where("due_date < ?", time.Now()).
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	return nil
}
