package loans

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/openshelf/openshelf/pkg/errcodes"
	"github.com/openshelf/openshelf/pkg/migrations"
	"github.com/openshelf/openshelf/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())

	_, err = db.Exec("PRAGMA foreign_keys=ON")
	require.NoError(t, err)

	_, err = migrations.BringUpToDate(context.Background(), db)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func createTestUser(ctx context.Context, t *testing.T, db *bun.DB, username string, superuser bool) *models.User {
	t.Helper()

	user := &models.User{
		CreatedAt:      time.Now(),
		Email:          username + "@example.com",
		Username:       username,
		HashedPassword: "not-a-real-hash",
		IsActive:       true,
		IsSuperuser:    superuser,
	}
	_, err := db.NewInsert().Model(user).Exec(ctx)
	require.NoError(t, err)

	return user
}

func createTestBook(ctx context.Context, t *testing.T, db *bun.DB, isbn string) *models.Book {
	t.Helper()

	book := &models.Book{
		CreatedAt: time.Now(),
		Title:     "The Left Hand of Darkness",
		Author:    "Ursula K. Le Guin",
		ISBN:      isbn,
		Status:    models.BookStatusAvailable,
	}
	_, err := db.NewInsert().Model(book).Exec(ctx)
	require.NoError(t, err)

	return book
}

func getBook(ctx context.Context, t *testing.T, db *bun.DB, id int) *models.Book {
	t.Helper()

	book := &models.Book{}
	err := db.NewSelect().Model(book).Where("id = ?", id).Scan(ctx)
	require.NoError(t, err)

	return book
}

func getLoan(ctx context.Context, t *testing.T, db *bun.DB, id int) *models.Loan {
	t.Helper()

	loan := &models.Loan{}
	err := db.NewSelect().Model(loan).Where("id = ?", id).Scan(ctx)
	require.NoError(t, err)

	return loan
}

func errCode(t *testing.T, err error) *errcodes.Error {
	t.Helper()

	var codeErr *errcodes.Error
	require.ErrorAs(t, err, &codeErr)
	return codeErr
}

func TestServiceCreate_LendsAvailableBook(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	user := createTestUser(ctx, t, db, "borrower", false)
	book := createTestBook(ctx, t, db, "9780441478125")

	loan, err := svc.Create(ctx, CreateLoanOptions{
		BookID:  book.ID,
		DueDate: time.Now().Add(7 * 24 * time.Hour),
	}, user)
	require.NoError(t, err)

	assert.Equal(t, models.LoanStatusActive, loan.Status)
	assert.Equal(t, user.ID, loan.UserID)
	assert.Nil(t, loan.ReturnDate)

	assert.Equal(t, models.BookStatusBorrowed, getBook(ctx, t, db, book.ID).Status)
}

func TestServiceCreate_BookNotFound(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	user := createTestUser(ctx, t, db, "borrower", false)

	_, err := svc.Create(ctx, CreateLoanOptions{
		BookID:  9999,
		DueDate: time.Now().Add(24 * time.Hour),
	}, user)
	require.Error(t, err)
	assert.Equal(t, "not_found", errCode(t, err).Code)
}

func TestServiceCreate_BookNotAvailable(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	user := createTestUser(ctx, t, db, "borrower", false)
	other := createTestUser(ctx, t, db, "other", false)
	book := createTestBook(ctx, t, db, "9780441478125")

	_, err := svc.Create(ctx, CreateLoanOptions{
		BookID:  book.ID,
		DueDate: time.Now().Add(24 * time.Hour),
	}, user)
	require.NoError(t, err)

	// A second loan against the same book must fail without mutating
	// anything.
	_, err = svc.Create(ctx, CreateLoanOptions{
		BookID:  book.ID,
		DueDate: time.Now().Add(24 * time.Hour),
	}, other)
	require.Error(t, err)
	assert.Equal(t, "bad_request", errCode(t, err).Code)

	count, err := db.NewSelect().Model((*models.Loan)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestServiceCreate_NonSuperuserCannotImpersonate(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	user := createTestUser(ctx, t, db, "borrower", false)
	victim := createTestUser(ctx, t, db, "victim", false)
	book := createTestBook(ctx, t, db, "9780441478125")

	loan, err := svc.Create(ctx, CreateLoanOptions{
		BookID:  book.ID,
		UserID:  victim.ID,
		DueDate: time.Now().Add(24 * time.Hour),
	}, user)
	require.NoError(t, err)

	assert.Equal(t, user.ID, loan.UserID)
}

func TestServiceCreate_SuperuserCanLendToOthers(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	admin := createTestUser(ctx, t, db, "admin", true)
	borrower := createTestUser(ctx, t, db, "borrower", false)
	book := createTestBook(ctx, t, db, "9780441478125")
	book2 := createTestBook(ctx, t, db, "9780547928227")

	loan, err := svc.Create(ctx, CreateLoanOptions{
		BookID:  book.ID,
		UserID:  borrower.ID,
		DueDate: time.Now().Add(24 * time.Hour),
	}, admin)
	require.NoError(t, err)
	assert.Equal(t, borrower.ID, loan.UserID)

	// Without a requested owner the superuser borrows for themselves.
	loan2, err := svc.Create(ctx, CreateLoanOptions{
		BookID:  book2.ID,
		DueDate: time.Now().Add(24 * time.Hour),
	}, admin)
	require.NoError(t, err)
	assert.Equal(t, admin.ID, loan2.UserID)
}

func TestServiceReturn_ClosesLoanAndFreesBook(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	user := createTestUser(ctx, t, db, "borrower", false)
	book := createTestBook(ctx, t, db, "9780441478125")

	loan, err := svc.Create(ctx, CreateLoanOptions{
		BookID:  book.ID,
		DueDate: time.Now().Add(7 * 24 * time.Hour),
	}, user)
	require.NoError(t, err)
	assert.Equal(t, models.BookStatusBorrowed, getBook(ctx, t, db, book.ID).Status)

	returned, err := svc.Return(ctx, loan.ID, user)
	require.NoError(t, err)

	assert.Equal(t, models.LoanStatusReturned, returned.Status)
	require.NotNil(t, returned.ReturnDate)
	assert.Equal(t, models.BookStatusAvailable, getBook(ctx, t, db, book.ID).Status)
}

func TestServiceReturn_NotOwner(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	user := createTestUser(ctx, t, db, "borrower", false)
	other := createTestUser(ctx, t, db, "other", false)
	book := createTestBook(ctx, t, db, "9780441478125")

	loan, err := svc.Create(ctx, CreateLoanOptions{
		BookID:  book.ID,
		DueDate: time.Now().Add(24 * time.Hour),
	}, user)
	require.NoError(t, err)

	_, err = svc.Return(ctx, loan.ID, other)
	require.Error(t, err)
	assert.Equal(t, "forbidden", errCode(t, err).Code)

	// The loan is untouched.
	assert.Equal(t, models.LoanStatusActive, getLoan(ctx, t, db, loan.ID).Status)
}

func TestServiceReturn_AlreadyReturned(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	user := createTestUser(ctx, t, db, "borrower", false)
	book := createTestBook(ctx, t, db, "9780441478125")

	loan, err := svc.Create(ctx, CreateLoanOptions{
		BookID:  book.ID,
		DueDate: time.Now().Add(24 * time.Hour),
	}, user)
	require.NoError(t, err)

	_, err = svc.Return(ctx, loan.ID, user)
	require.NoError(t, err)

	_, err = svc.Return(ctx, loan.ID, user)
	require.Error(t, err)
	assert.Equal(t, "bad_request", errCode(t, err).Code)
}

func TestServiceReturn_FromOverdue(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	user := createTestUser(ctx, t, db, "borrower", false)
	book := createTestBook(ctx, t, db, "9780441478125")

	loan, err := svc.Create(ctx, CreateLoanOptions{
		BookID:  book.ID,
		DueDate: time.Now().Add(-24 * time.Hour),
	}, user)
	require.NoError(t, err)

	require.NoError(t, svc.SweepOverdue(ctx))
	assert.Equal(t, models.LoanStatusOverdue, getLoan(ctx, t, db, loan.ID).Status)

	// Returning an overdue loan is still allowed.
	returned, err := svc.Return(ctx, loan.ID, user)
	require.NoError(t, err)
	assert.Equal(t, models.LoanStatusReturned, returned.Status)
	assert.Equal(t, models.BookStatusAvailable, getBook(ctx, t, db, book.ID).Status)
}

func TestServiceUpdate_ExtendsDueDate(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	user := createTestUser(ctx, t, db, "borrower", false)
	book := createTestBook(ctx, t, db, "9780441478125")

	dueDate := time.Now().Add(7 * 24 * time.Hour)
	loan, err := svc.Create(ctx, CreateLoanOptions{
		BookID:  book.ID,
		DueDate: dueDate,
	}, user)
	require.NoError(t, err)

	newDueDate := dueDate.Add(7 * 24 * time.Hour)
	updated, err := svc.Update(ctx, loan.ID, UpdateLoanOptions{
		DueDate: &newDueDate,
	}, user)
	require.NoError(t, err)

	assert.WithinDuration(t, newDueDate, updated.DueDate, time.Second)
}

func TestServiceUpdate_NonSuperuserRestrictedToDueDate(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	user := createTestUser(ctx, t, db, "borrower", false)
	book := createTestBook(ctx, t, db, "9780441478125")

	loan, err := svc.Create(ctx, CreateLoanOptions{
		BookID:  book.ID,
		DueDate: time.Now().Add(24 * time.Hour),
	}, user)
	require.NoError(t, err)

	status := models.LoanStatusReturned
	_, err = svc.Update(ctx, loan.ID, UpdateLoanOptions{
		Status: &status,
	}, user)
	require.Error(t, err)
	assert.Equal(t, "forbidden", errCode(t, err).Code)

	notes := "changed"
	_, err = svc.Update(ctx, loan.ID, UpdateLoanOptions{
		Notes: &notes,
	}, user)
	require.Error(t, err)
	assert.Equal(t, "forbidden", errCode(t, err).Code)

	// No field was mutated.
	stored := getLoan(ctx, t, db, loan.ID)
	assert.Equal(t, models.LoanStatusActive, stored.Status)
	assert.Nil(t, stored.Notes)
}

func TestServiceUpdate_DueDateMustMoveForward(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	user := createTestUser(ctx, t, db, "borrower", false)
	book := createTestBook(ctx, t, db, "9780441478125")

	dueDate := time.Now().Add(7 * 24 * time.Hour)
	loan, err := svc.Create(ctx, CreateLoanOptions{
		BookID:  book.ID,
		DueDate: dueDate,
	}, user)
	require.NoError(t, err)

	earlier := dueDate.Add(-24 * time.Hour)
	_, err = svc.Update(ctx, loan.ID, UpdateLoanOptions{
		DueDate: &earlier,
	}, user)
	require.Error(t, err)
	assert.Equal(t, "bad_request", errCode(t, err).Code)

	same := loan.DueDate
	_, err = svc.Update(ctx, loan.ID, UpdateLoanOptions{
		DueDate: &same,
	}, user)
	require.Error(t, err)
	assert.Equal(t, "bad_request", errCode(t, err).Code)
}

func TestServiceUpdate_CannotExtendClosedLoan(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	user := createTestUser(ctx, t, db, "borrower", false)
	book := createTestBook(ctx, t, db, "9780441478125")

	loan, err := svc.Create(ctx, CreateLoanOptions{
		BookID:  book.ID,
		DueDate: time.Now().Add(24 * time.Hour),
	}, user)
	require.NoError(t, err)

	_, err = svc.Return(ctx, loan.ID, user)
	require.NoError(t, err)

	later := time.Now().Add(14 * 24 * time.Hour)
	_, err = svc.Update(ctx, loan.ID, UpdateLoanOptions{
		DueDate: &later,
	}, user)
	require.Error(t, err)
	assert.Equal(t, "bad_request", errCode(t, err).Code)
}

func TestServiceUpdate_SuperuserUnrestricted(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	admin := createTestUser(ctx, t, db, "admin", true)
	user := createTestUser(ctx, t, db, "borrower", false)
	book := createTestBook(ctx, t, db, "9780441478125")

	loan, err := svc.Create(ctx, CreateLoanOptions{
		BookID:  book.ID,
		UserID:  user.ID,
		DueDate: time.Now().Add(24 * time.Hour),
	}, admin)
	require.NoError(t, err)

	status := models.LoanStatusLost
	notes := "reported lost by patron"
	updated, err := svc.Update(ctx, loan.ID, UpdateLoanOptions{
		Status: &status,
		Notes:  &notes,
	}, admin)
	require.NoError(t, err)

	assert.Equal(t, models.LoanStatusLost, updated.Status)
	require.NotNil(t, updated.Notes)
	assert.Equal(t, notes, *updated.Notes)
}

func TestServiceSweepOverdue_Idempotent(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	user := createTestUser(ctx, t, db, "borrower", false)
	overdueBook := createTestBook(ctx, t, db, "9780441478125")
	currentBook := createTestBook(ctx, t, db, "9780547928227")

	lateLoan, err := svc.Create(ctx, CreateLoanOptions{
		BookID:  overdueBook.ID,
		DueDate: time.Now().Add(-24 * time.Hour),
	}, user)
	require.NoError(t, err)

	onTimeLoan, err := svc.Create(ctx, CreateLoanOptions{
		BookID:  currentBook.ID,
		DueDate: time.Now().Add(24 * time.Hour),
	}, user)
	require.NoError(t, err)

	require.NoError(t, svc.SweepOverdue(ctx))
	require.NoError(t, svc.SweepOverdue(ctx))

	assert.Equal(t, models.LoanStatusOverdue, getLoan(ctx, t, db, lateLoan.ID).Status)
	assert.Equal(t, models.LoanStatusActive, getLoan(ctx, t, db, onTimeLoan.ID).Status)
}

func TestServiceDelete_FreesBorrowedBook(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	user := createTestUser(ctx, t, db, "borrower", false)
	book := createTestBook(ctx, t, db, "9780441478125")

	loan, err := svc.Create(ctx, CreateLoanOptions{
		BookID:  book.ID,
		DueDate: time.Now().Add(24 * time.Hour),
	}, user)
	require.NoError(t, err)

	_, err = svc.Delete(ctx, loan.ID)
	require.NoError(t, err)

	assert.Equal(t, models.BookStatusAvailable, getBook(ctx, t, db, book.ID).Status)

	count, err := db.NewSelect().Model((*models.Loan)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestServiceDelete_ClosedLoanLeavesBookAlone(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	user := createTestUser(ctx, t, db, "borrower", false)
	first := createTestBook(ctx, t, db, "9780441478125")
	second := createTestBook(ctx, t, db, "9780547928227")

	returnedLoan, err := svc.Create(ctx, CreateLoanOptions{
		BookID:  first.ID,
		DueDate: time.Now().Add(24 * time.Hour),
	}, user)
	require.NoError(t, err)
	_, err = svc.Return(ctx, returnedLoan.ID, user)
	require.NoError(t, err)

	// Lend the second book so we can verify its status survives the other
	// loan's deletion.
	_, err = svc.Create(ctx, CreateLoanOptions{
		BookID:  second.ID,
		DueDate: time.Now().Add(24 * time.Hour),
	}, user)
	require.NoError(t, err)

	_, err = svc.Delete(ctx, returnedLoan.ID)
	require.NoError(t, err)

	assert.Equal(t, models.BookStatusAvailable, getBook(ctx, t, db, first.ID).Status)
	assert.Equal(t, models.BookStatusBorrowed, getBook(ctx, t, db, second.ID).Status)
}

func TestServiceList_NonSuperuserSeesOnlyOwnLoans(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	user := createTestUser(ctx, t, db, "borrower", false)
	other := createTestUser(ctx, t, db, "other", false)
	admin := createTestUser(ctx, t, db, "admin", true)
	first := createTestBook(ctx, t, db, "9780441478125")
	second := createTestBook(ctx, t, db, "9780547928227")

	_, err := svc.Create(ctx, CreateLoanOptions{
		BookID:  first.ID,
		DueDate: time.Now().Add(24 * time.Hour),
	}, user)
	require.NoError(t, err)

	_, err = svc.Create(ctx, CreateLoanOptions{
		BookID:  second.ID,
		DueDate: time.Now().Add(24 * time.Hour),
	}, other)
	require.NoError(t, err)

	mine, total, err := svc.List(ctx, ListOptions{}, user)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, mine, 1)
	assert.Equal(t, user.ID, mine[0].UserID)

	all, total, err := svc.List(ctx, ListOptions{}, admin)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, all, 2)
}

func TestServiceList_SweepsBeforeListing(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	user := createTestUser(ctx, t, db, "borrower", false)
	book := createTestBook(ctx, t, db, "9780441478125")

	loan, err := svc.Create(ctx, CreateLoanOptions{
		BookID:  book.ID,
		DueDate: time.Now().Add(-time.Hour),
	}, user)
	require.NoError(t, err)

	status := models.LoanStatusOverdue
	listed, total, err := svc.List(ctx, ListOptions{Status: &status}, user)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, listed, 1)
	assert.Equal(t, loan.ID, listed[0].ID)
	assert.Equal(t, models.LoanStatusOverdue, listed[0].Status)
}

func TestServiceRetrieve_ClosedDatabase(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db)

	require.NoError(t, db.Close())

	// A persistence failure must surface as-is, not as a not-found.
	_, err := svc.Retrieve(context.Background(), 1)
	require.Error(t, err)

	var codeErr *errcodes.Error
	assert.False(t, errors.As(err, &codeErr))
}
