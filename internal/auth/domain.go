package auth

import "time"

// User represents an authenticated user account.
type User struct {
	ID           int64
	TenantID     int64
	Email        string
	Name         string
	PasswordHash string
	Role         string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// LoginResult is returned to the client after a successful login.
type LoginResult struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
	CSRFToken string    `json:"csrf_token"`
	User      UserView  `json:"user"`
}

// UserView is the public projection of a user.
type UserView struct {
	ID          int64    `json:"id"`
	TenantID    int64    `json:"tenant_id"`
	Email       string   `json:"email"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
}
