package user

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"purrform/pkg/role"
)

var (
	compareHash = bcrypt.CompareHashAndPassword

	missingOnce sync.Once
	missingHash []byte
)

// missingUserHash is compared against when the username does not exist, so
// an unknown name costs the same bcrypt work as a wrong password.
func missingUserHash() []byte {
	missingOnce.Do(func() {
		missingHash, _ = bcrypt.GenerateFromPassword([]byte("purrform-no-such-account"), bcrypt.DefaultCost)
	})
	return missingHash
}

type ServiceInterface interface {
	Login(username, password string) (*User, error)
}

type Service struct {
	Repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{Repo: repo}
}

// Login checks the password and the stored role. Accounts with a role the
// dashboard does not know cannot sign in.
func (s *Service) Login(username, password string) (*User, error) {
	u, err := s.Repo.FindByUsername(username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			_ = compareHash(missingUserHash(), []byte(password))
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if err := compareHash([]byte(u.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	if !u.Role.Valid() {
		return nil, ErrUnknownRole
	}

	return u, nil
}

// CreateAccount stores a new account with a hashed password.
func (s *Service) CreateAccount(username, password string, rl role.Role) (*User, error) {
	if !rl.Valid() {
		return nil, ErrUnknownRole
	}

	exist, err := s.Repo.FindByUsername(username)
	if exist != nil && err == nil {
		return nil, ErrExists
	}
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("find user: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password error: %w", err)
	}

	u := &User{
		ID:       uuid.NewString(),
		Username: username,
		Password: string(hashed),
		Role:     rl,
	}
	if err := s.Repo.Create(u); err != nil {
		return nil, err
	}
	return u, nil
}
