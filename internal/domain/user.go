package domain

import "time"

// User is a directory entry owned by the auth provider.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// UserWithRole joins a directory entry with its effective role.
type UserWithRole struct {
	ID      string
	Email   string
	Role    RoleTag
	IsAdmin bool
}
