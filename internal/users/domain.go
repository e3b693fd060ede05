package users

import "time"

// User is the admin projection of a portal account. The password hash never
// leaves the auth package.
type User struct {
	ID        int64     `json:"id"`
	TenantID  int64     `json:"tenant_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateInput carries a new account.
type CreateInput struct {
	Email    string
	Name     string
	Role     string
	Password string
}
