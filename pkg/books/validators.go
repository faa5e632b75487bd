package books

// CreateBookPayload represents the request body for creating a book.
type CreateBookPayload struct {
	Title           string  `json:"title" validate:"required,max=255"`
	Author          string  `json:"author" validate:"required,max=255"`
	ISBN            string  `json:"isbn" validate:"required,max=20"`
	PublicationYear *int    `json:"publication_year"`
	Publisher       *string `json:"publisher" validate:"omitempty,max=255"`
	Genre           *string `json:"genre" validate:"omitempty,max=100"`
	Description     *string `json:"description"`
	CoverImageURL   *string `json:"cover_image_url" validate:"omitempty,max=255"`
}

// UpdateBookPayload represents the request body for updating a book.
type UpdateBookPayload struct {
	Title           *string  `json:"title" validate:"omitempty,max=255"`
	Author          *string  `json:"author" validate:"omitempty,max=255"`
	ISBN            *string  `json:"isbn" validate:"omitempty,max=20"`
	PublicationYear *int     `json:"publication_year"`
	Publisher       *string  `json:"publisher" validate:"omitempty,max=255"`
	Genre           *string  `json:"genre" validate:"omitempty,max=100"`
	Description     *string  `json:"description"`
	CoverImageURL   *string  `json:"cover_image_url" validate:"omitempty,max=255"`
	Status          *string  `json:"status" validate:"omitempty,oneof=available borrowed maintenance lost"`
	Rating          *float64 `json:"rating" validate:"omitempty,gte=0,lte=5"`
}

// ListBooksQuery represents the query parameters for listing books.
type ListBooksQuery struct {
	Title  *string `query:"title"`
	Author *string `query:"author"`
	Genre  *string `query:"genre"`
	Limit  int     `query:"limit" default:"100"`
	Offset int     `query:"offset" default:"0"`
}
