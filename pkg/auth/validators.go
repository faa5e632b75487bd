package auth

// LoginPayload represents the form-encoded login request. The username field
// carries the account email, matching the OAuth2 password flow shape.
type LoginPayload struct {
	Username string `form:"username" json:"username" validate:"required"`
	Password string `form:"password" json:"password" validate:"required"`
}

// TokenResponse is the successful login response.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}
