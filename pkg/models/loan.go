package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Loan status values. Active and overdue are the "open" states: the book is
// out and the loan can still be returned. Returned and lost are terminal.
const (
	LoanStatusPending  = "pending"
	LoanStatusActive   = "active"
	LoanStatusReturned = "returned"
	LoanStatusOverdue  = "overdue"
	LoanStatusLost     = "lost"
)

type Loan struct {
	bun.BaseModel `bun:"table:loans,alias:l"`

	ID         int        `bun:",pk,nullzero" json:"id"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty"`
	UserID     int        `bun:",nullzero" json:"user_id"`
	BookID     int        `bun:",nullzero" json:"book_id"`
	LoanDate   time.Time  `json:"loan_date"`
	DueDate    time.Time  `json:"due_date"`
	ReturnDate *time.Time `json:"return_date,omitempty"`
	Status     string     `bun:",nullzero" json:"status"`
	Notes      *string    `json:"notes,omitempty"`

	// Relations
	User *User `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
	Book *Book `bun:"rel:belongs-to,join:book_id=id" json:"book,omitempty"`
}

// IsOpen reports whether the loan currently keeps its book out of
// circulation.
func (l *Loan) IsOpen() bool {
	return l.Status == LoanStatusActive || l.Status == LoanStatusOverdue
}

// IsValidLoanStatus reports whether s is one of the known loan states.
func IsValidLoanStatus(s string) bool {
	switch s {
	case LoanStatusPending, LoanStatusActive, LoanStatusReturned, LoanStatusOverdue, LoanStatusLost:
		return true
	}
	return false
}
