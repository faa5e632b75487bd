package loans

import "time"

// CreateLoanPayload represents the request body for creating a loan. UserID
// is only honored for superusers; everyone else borrows for themselves.
type CreateLoanPayload struct {
	BookID  int       `json:"book_id" validate:"required"`
	UserID  int       `json:"user_id"`
	DueDate time.Time `json:"due_date" validate:"required"`
	Notes   *string   `json:"notes" validate:"omitempty,max=255"`
}

// UpdateLoanPayload represents the request body for updating a loan.
type UpdateLoanPayload struct {
	DueDate    *time.Time `json:"due_date"`
	ReturnDate *time.Time `json:"return_date"`
	Status     *string    `json:"status" validate:"omitempty,oneof=pending active returned overdue lost"`
	Notes      *string    `json:"notes" validate:"omitempty,max=255"`
}

// ListLoansQuery represents the query parameters for listing loans.
type ListLoansQuery struct {
	Status *string `query:"status" validate:"omitempty,oneof=pending active returned overdue lost"`
	Limit  int     `query:"limit" default:"100"`
	Offset int     `query:"offset" default:"0"`
}
