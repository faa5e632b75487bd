package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Review is a user's rating of a book. There is at most one review per
// (user, book) pair, enforced by create-or-update semantics in the reviews
// service.
type Review struct {
	bun.BaseModel `bun:"table:reviews,alias:r"`

	ID        int        `bun:",pk,nullzero" json:"id"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
	UserID    int        `bun:",nullzero" json:"user_id"`
	BookID    int        `bun:",nullzero" json:"book_id"`
	Rating    float64    `json:"rating"`
	Comment   *string    `json:"comment,omitempty"`

	// Relations
	User *User `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
	Book *Book `bun:"rel:belongs-to,join:book_id=id" json:"book,omitempty"`
}
