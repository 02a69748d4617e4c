// Package dto contains Data Transfer Objects for API request and response structures
package dto

// AuthSignupRequest represents an account creation request
type AuthSignupRequest struct {
	Email           string  `json:"email" validate:"required,email,max=255"`
	Password        string  `json:"password" validate:"required,min=8,password_strength"`
	ConfirmPassword string  `json:"confirm_password" validate:"required,eqfield=Password"`
	DisplayName     *string `json:"display_name,omitempty" validate:"omitempty,max=120"`
}

// AuthSignupResponse represents the response after successful account creation
type AuthSignupResponse struct {
	Message string            `json:"message"`
	Visitor AuthVisitorDTO    `json:"visitor"`
	Session VisitorSessionDTO `json:"session"`
}

// AuthLoginRequest represents a sign-in request
type AuthLoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required"`
}

// AuthLoginResponse represents the response after successful sign-in
type AuthLoginResponse struct {
	Message string            `json:"message"`
	Visitor AuthVisitorDTO    `json:"visitor"`
	Session VisitorSessionDTO `json:"session"`
}

// LogoutResponse represents the response after sign-out
type LogoutResponse struct {
	Message string `json:"message"`
}

// MeResponse reports the caller's identity state
type MeResponse struct {
	Identified bool            `json:"identified"`
	Visitor    *AuthVisitorDTO `json:"visitor,omitempty"`
}

// AuthVisitorDTO represents visitor data for API responses
type AuthVisitorDTO struct {
	ID          uint    `json:"id"`
	UUID        string  `json:"uuid"`
	Email       string  `json:"email"`
	DisplayName *string `json:"display_name,omitempty"`
	IsActive    *bool   `json:"is_active"`
	CreatedAt   string  `json:"created_at"`
}

// VisitorSessionDTO represents session tokens for API responses
type VisitorSessionDTO struct {
	SessionToken string  `json:"session_token"`
	RefreshToken *string `json:"refresh_token,omitempty"`
	ExpiresIn    int     `json:"expires_in"`
	TokenType    string  `json:"token_type"`
	CreatedAt    string  `json:"created_at"`
}
