package models

import (
	"time"

	"github.com/uptrace/bun"
)

type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID             int        `bun:",pk,nullzero" json:"id"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      *time.Time `json:"updated_at,omitempty"`
	Email          string     `bun:",nullzero" json:"email"`
	Username       string     `bun:",nullzero" json:"username"`
	HashedPassword string     `json:"-"` // Never expose password hash
	FullName       *string    `json:"full_name,omitempty"`
	IsActive       bool       `json:"is_active"`
	IsSuperuser    bool       `json:"is_superuser"`

	// Relations
	Loans   []*Loan   `bun:"rel:has-many,join:id=user_id" json:"loans,omitempty"`
	Reviews []*Review `bun:"rel:has-many,join:id=user_id" json:"reviews,omitempty"`
}

// CanActOn reports whether the user may act on a resource owned by ownerID.
// Superusers may act on anything; everyone else only on their own records.
func (u *User) CanActOn(ownerID int) bool {
	return u.IsSuperuser || u.ID == ownerID
}
