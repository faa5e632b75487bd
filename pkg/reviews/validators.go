package reviews

// CreateReviewPayload represents the request body for creating or updating
// the caller's review of a book.
type CreateReviewPayload struct {
	BookID  int     `json:"book_id" validate:"required"`
	Rating  float64 `json:"rating" validate:"gte=0,lte=5"`
	Comment *string `json:"comment" validate:"omitempty,max=1000"`
}

// UpdateReviewPayload represents the request body for updating a review.
type UpdateReviewPayload struct {
	Rating  *float64 `json:"rating" validate:"omitempty,gte=0,lte=5"`
	Comment *string  `json:"comment" validate:"omitempty,max=1000"`
}

// ListReviewsQuery represents the query parameters for listing reviews.
type ListReviewsQuery struct {
	BookID *int `query:"book_id"`
	UserID *int `query:"user_id"`
	Limit  int  `query:"limit" default:"100"`
	Offset int  `query:"offset" default:"0"`
}
