package users

// CreateUserPayload represents the request body for creating a user.
type CreateUserPayload struct {
	Email       string  `json:"email" validate:"required,email"`
	Username    string  `json:"username" validate:"required,min=3,max=50"`
	Password    string  `json:"password" validate:"required,min=8"`
	FullName    *string `json:"full_name"`
	IsActive    *bool   `json:"is_active"`
	IsSuperuser bool    `json:"is_superuser"`
}

// UpdateUserPayload represents the request body for updating a user.
type UpdateUserPayload struct {
	Email       *string `json:"email" validate:"omitempty,email"`
	Username    *string `json:"username" validate:"omitempty,min=3,max=50"`
	Password    *string `json:"password" validate:"omitempty,min=8"`
	FullName    *string `json:"full_name"`
	IsActive    *bool   `json:"is_active"`
	IsSuperuser *bool   `json:"is_superuser"`
}

// UpdateMePayload represents the self-service update body. Privilege and
// activation flags are deliberately absent.
type UpdateMePayload struct {
	Email    *string `json:"email" validate:"omitempty,email"`
	Username *string `json:"username" validate:"omitempty,min=3,max=50"`
	Password *string `json:"password" validate:"omitempty,min=8"`
	FullName *string `json:"full_name"`
}

// ListUsersQuery represents the query parameters for listing users.
type ListUsersQuery struct {
	Limit  int `query:"limit" default:"100"`
	Offset int `query:"offset" default:"0"`
}
