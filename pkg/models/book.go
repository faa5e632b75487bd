package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Book status values.
const (
	BookStatusAvailable   = "available"
	BookStatusBorrowed    = "borrowed"
	BookStatusMaintenance = "maintenance"
	BookStatusLost        = "lost"
)

type Book struct {
	bun.BaseModel `bun:"table:books,alias:b"`

	ID              int        `bun:",pk,nullzero" json:"id"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       *time.Time `json:"updated_at,omitempty"`
	Title           string     `bun:",nullzero" json:"title"`
	Author          string     `bun:",nullzero" json:"author"`
	ISBN            string     `bun:"isbn,nullzero" json:"isbn"`
	PublicationYear *int       `json:"publication_year,omitempty"`
	Publisher       *string    `json:"publisher,omitempty"`
	Genre           *string    `json:"genre,omitempty"`
	Description     *string    `json:"description,omitempty"`
	CoverImageURL   *string    `json:"cover_image_url,omitempty"`
	Status          string     `bun:",nullzero" json:"status"`
	Rating          float64    `json:"rating"`

	// Relations
	Loans   []*Loan   `bun:"rel:has-many,join:id=book_id" json:"loans,omitempty"`
	Reviews []*Review `bun:"rel:has-many,join:id=book_id" json:"reviews,omitempty"`
}
