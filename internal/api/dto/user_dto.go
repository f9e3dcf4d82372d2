package dto

import (
	"time"

	"github.com/deskline/ticket-tracker/internal/domain"
)

// CredentialsRequest payload for sign-up and sign-in.
type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// UserResponse is a directory entry without credentials.
type UserResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// UserRoleResponse is a directory entry joined with its role.
type UserRoleResponse struct {
	ID      string         `json:"id"`
	Email   string         `json:"email"`
	Role    domain.RoleTag `json:"role"`
	IsAdmin bool           `json:"is_admin"`
}

// SetRoleRequest payload for PUT /api/users/:id/role. When is_admin is
// omitted it follows the role: only the admin role implies the flag.
type SetRoleRequest struct {
	Role    domain.RoleTag `json:"role"`
	IsAdmin *bool          `json:"is_admin"`
}
