package reviews

import (
	"context"
	"database/sql"
	"time"

	"github.com/openshelf/openshelf/pkg/errcodes"
	"github.com/openshelf/openshelf/pkg/models"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

// Service handles reviews and keeps each book's rating equal to the mean of
// its reviews. The recompute is a full scan-and-average rather than an
// incremental running mean, and it runs in the same transaction as the
// review write so concurrent edits serialize instead of losing updates.
type Service struct {
	db *bun.DB
}

// NewService creates a new reviews service.
func NewService(db *bun.DB) *Service {
	return &Service{db: db}
}

// CreateOrUpdateOptions contains options for writing a review.
type CreateOrUpdateOptions struct {
	BookID  int
	Rating  float64
	Comment *string
}

// CreateOrUpdate writes the user's review of a book. A user has at most one
// review per book: a second write updates the existing row in place,
// preserving its id and creation time.
func (s *Service) CreateOrUpdate(ctx context.Context, opts CreateOrUpdateOptions, userID int) (*models.Review, error) {
	var review *models.Review

	err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		exists, err := tx.NewSelect().
			Model((*models.Book)(nil)).
			Where("id = ?", opts.BookID).
			Exists(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		if !exists {
			return errcodes.NotFound("Book")
		}

		existing := &models.Review{}
		err = tx.NewSelect().
			Model(existing).
			Where("r.user_id = ?", userID).
			Where("r.book_id = ?", opts.BookID).
			Scan(ctx)
		switch {
		case err == nil:
			now := time.Now()
			existing.Rating = opts.Rating
			existing.Comment = opts.Comment
			existing.UpdatedAt = &now
			_, err = tx.NewUpdate().
				Model(existing).
				Column("rating", "comment", "updated_at").
				WherePK().
				Exec(ctx)
			if err != nil {
				return errors.WithStack(err)
			}
			review = existing
		case errors.Is(err, sql.ErrNoRows):
			review = &models.Review{
				CreatedAt: time.Now(),
				UserID:    userID,
				BookID:    opts.BookID,
				Rating:    opts.Rating,
				Comment:   opts.Comment,
			}
			_, err = tx.NewInsert().Model(review).Exec(ctx)
			if err != nil {
				return errors.WithStack(err)
			}
		default:
			return errors.WithStack(err)
		}

		return recomputeBookRating(ctx, tx, opts.BookID)
	})
	if err != nil {
		return nil, err
	}

	return review, nil
}

// Retrieve gets a review by ID.
func (s *Service) Retrieve(ctx context.Context, id int) (*models.Review, error) {
	review := &models.Review{}
	err := s.db.NewSelect().
		Model(review).
		Relation("Book").
		Relation("User").
		Where("r.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Review")
		}
		return nil, errors.WithStack(err)
	}
	return review, nil
}

// ListOptions contains options for listing reviews.
type ListOptions struct {
	BookID *int
	UserID *int
	Limit  int
	Offset int
}

// List returns a paginated list of reviews, optionally filtered by book or
// user.
func (s *Service) List(ctx context.Context, opts ListOptions) ([]*models.Review, int, error) {
	reviews := []*models.Review{}

	query := s.db.NewSelect().
		Model(&reviews).
		Order("r.id ASC")

	if opts.BookID != nil {
		query = query.Where("r.book_id = ?", *opts.BookID)
	}
	if opts.UserID != nil {
		query = query.Where("r.user_id = ?", *opts.UserID)
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

	return reviews, total, nil
}

// UpdateOptions is the patch applied by Update. Nil fields are left
// untouched.
type UpdateOptions struct {
	Rating  *float64
	Comment *string
}

// Update patches a review owned by the actor (or any review for a
// superuser) and recomputes the book's rating in the same transaction.
func (s *Service) Update(ctx context.Context, id int, opts UpdateOptions, actor *models.User) (*models.Review, error) {
	review, err := s.Retrieve(ctx, id)
	if err != nil {
		return nil, err
	}

	if !actor.CanActOn(review.UserID) {
		return nil, errcodes.Forbidden("Not enough permissions")
	}

	columns := []string{}
	if opts.Rating != nil {
		review.Rating = *opts.Rating
		columns = append(columns, "rating")
	}
	if opts.Comment != nil {
		review.Comment = opts.Comment
		columns = append(columns, "comment")
	}

	if len(columns) == 0 {
		return review, nil
	}

	now := time.Now()
	review.UpdatedAt = &now
	columns = append(columns, "updated_at")

	err = s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewUpdate().
			Model(review).
			Column(columns...).
			WherePK().
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		return recomputeBookRating(ctx, tx, review.BookID)
	})
	if err != nil {
		return nil, err
	}

	return review, nil
}

// Delete removes a review owned by the actor (or any review for a
// superuser) and recomputes the book's rating; with no reviews left the
// rating drops back to zero.
func (s *Service) Delete(ctx context.Context, id int, actor *models.User) (*models.Review, error) {
	review, err := s.Retrieve(ctx, id)
	if err != nil {
		return nil, err
	}

	if !actor.CanActOn(review.UserID) {
		return nil, errcodes.Forbidden("Not enough permissions")
	}

	err = s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewDelete().
			Model((*models.Review)(nil)).
			Where("id = ?", id).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		return recomputeBookRating(ctx, tx, review.BookID)
	})
	if err != nil {
		return nil, err
	}

	return review, nil
}

// recomputeBookRating sets the book's rating to the mean of its current
// reviews, or 0.0 when none remain.
func recomputeBookRating(ctx context.Context, tx bun.Tx, bookID int) error {
	var avg float64
	err := tx.NewSelect().
		Model((*models.Review)(nil)).
		ColumnExpr("COALESCE(AVG(rating), 0.0)").
		Where("book_id = ?", bookID).
		Scan(ctx, &avg)
	if err != nil {
		return errors.WithStack(err)
	}

	_, err = tx.NewUpdate().
		Model((*models.Book)(nil)).
		Set("rating = ?", avg).
		Set("updated_at = CURRENT_TIMESTAMP").
		Where("id = ?", bookID).
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}
