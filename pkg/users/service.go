package users

import (
	"context"
	"database/sql"
	"time"

	"github.com/openshelf/openshelf/pkg/auth"
	"github.com/openshelf/openshelf/pkg/errcodes"
	"github.com/openshelf/openshelf/pkg/models"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

// Service handles user operations.
type Service struct {
	db *bun.DB
}

// NewService creates a new users service.
func NewService(db *bun.DB) *Service {
	return &Service{db: db}
}

// CreateUserOptions contains options for creating a user.
type CreateUserOptions struct {
	Email       string
	Username    string
	Password    string
	FullName    *string
	IsActive    bool
	IsSuperuser bool
}

// Create creates a new user. The uniqueness checks and the insert share a
// transaction so a racing duplicate fails the check rather than tripping the
// unique index.
func (s *Service) Create(ctx context.Context, opts CreateUserOptions) (*models.User, error) {
	hashedPassword, err := auth.HashPassword(opts.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		CreatedAt:      time.Now(),
		Email:          opts.Email,
		Username:       opts.Username,
		HashedPassword: hashedPassword,
		FullName:       opts.FullName,
		IsActive:       opts.IsActive,
		IsSuperuser:    opts.IsSuperuser,
	}

	err = s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		exists, err := tx.NewSelect().
			Model((*models.User)(nil)).
			Where("email = ? COLLATE NOCASE", opts.Email).
			Exists(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		if exists {
			return errcodes.BadRequest("A user with this email already exists in the system")
		}

		exists, err = tx.NewSelect().
			Model((*models.User)(nil)).
			Where("username = ? COLLATE NOCASE", opts.Username).
			Exists(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		if exists {
			return errcodes.BadRequest("A user with this username already exists in the system")
		}

		_, err = tx.NewInsert().Model(user).Exec(ctx)
		return errors.WithStack(err)
	})
	if err != nil {
		return nil, err
	}

	return user, nil
}

// Retrieve gets a user by ID.
func (s *Service) Retrieve(ctx context.Context, id int) (*models.User, error) {
	user := &models.User{}
	err := s.db.NewSelect().
		Model(user).
		Where("u.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("User")
		}
		return nil, errors.WithStack(err)
	}
	return user, nil
}

// ListOptions contains options for listing users.
type ListOptions struct {
	Limit  int
	Offset int
}

// List returns a paginated list of users.
func (s *Service) List(ctx context.Context, opts ListOptions) ([]*models.User, int, error) {
	users := []*models.User{}

	query := s.db.NewSelect().
		Model(&users).
		Order("u.id ASC")

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

	return users, total, nil
}

// UpdateOptions contains options for updating a user.
type UpdateOptions struct {
	Columns []string
}

// Update persists the given columns of an already-mutated user. Email and
// username uniqueness are re-checked when those columns change.
func (s *Service) Update(ctx context.Context, user *models.User, opts UpdateOptions) error {
	if len(opts.Columns) == 0 {
		return nil
	}

	for _, column := range opts.Columns {
		switch column {
		case "email":
			exists, err := s.db.NewSelect().
				Model((*models.User)(nil)).
				Where("email = ? COLLATE NOCASE", user.Email).
				Where("id != ?", user.ID).
				Exists(ctx)
			if err != nil {
				return errors.WithStack(err)
			}
			if exists {
				return errcodes.BadRequest("A user with this email already exists in the system")
			}
		case "username":
			exists, err := s.db.NewSelect().
				Model((*models.User)(nil)).
				Where("username = ? COLLATE NOCASE", user.Username).
				Where("id != ?", user.ID).
				Exists(ctx)
			if err != nil {
				return errors.WithStack(err)
			}
			if exists {
				return errcodes.BadRequest("A user with this username already exists in the system")
			}
		}
	}

	now := time.Now()
	user.UpdatedAt = &now
	opts.Columns = append(opts.Columns, "updated_at")

	_, err := s.db.NewUpdate().
		Model(user).
		Column(opts.Columns...).
		WherePK().
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

// Delete removes a user. Their loans and reviews go with them via the
// cascading foreign keys.
func (s *Service) Delete(ctx context.Context, id int) (*models.User, error) {
	user, err := s.Retrieve(ctx, id)
	if err != nil {
		return nil, err
	}

	_, err = s.db.NewDelete().
		Model((*models.User)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return user, nil
}
