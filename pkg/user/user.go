package user

import (
	"errors"

	"purrform/pkg/role"
)

var (
	ErrNotFound           = errors.New("user not found")
	ErrExists             = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnknownRole        = errors.New("unknown role")
)

// User is a dashboard account. Password holds the bcrypt hash.
type User struct {
	ID       string    `json:"id"`
	Username string    `json:"username"`
	Password string    `json:"-"`
	Role     role.Role `json:"role"`
}

type Repository interface {
	Create(user *User) error
	FindByUsername(username string) (*User, error)
}
