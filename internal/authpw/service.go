// Package authpw provides email/password authentication against the user
// records in the store.
package authpw

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"lexdesk/api/internal/store"
)

var (
	// ErrInvalidCredentials covers unknown email, wrong password, and
	// inactive accounts so responses never reveal which one it was.
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
)

const minPasswordLength = 8

// UserStore is the slice of the record store the password service needs.
type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (store.User, error)
	GetUser(ctx context.Context, id string) (store.User, error)
	UpdateUser(ctx context.Context, id string, patch store.UserPatch) (store.User, error)
}

type Service struct {
	store UserStore
}

func NewService(store UserStore) *Service {
	return &Service{store: store}
}

// HashPassword validates and hashes a plaintext password for storage.
func HashPassword(password string) (string, error) {
	if len(password) < minPasswordLength {
		return "", ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Authenticate checks email/password and returns the matching active user.
func (s *Service) Authenticate(ctx context.Context, email, password string) (store.User, error) {
	if email == "" || password == "" {
		return store.User{}, ErrInvalidCredentials
	}
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.User{}, ErrInvalidCredentials
		}
		return store.User{}, fmt.Errorf("lookup user: %w", err)
	}
	if user.Status != store.UserActive {
		return store.User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return store.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// SetPassword hashes and stores a new password without checking the old one.
// Used by admins and by the bootstrap seed.
func (s *Service) SetPassword(ctx context.Context, userID, password string) error {
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	if _, err := s.store.UpdateUser(ctx, userID, store.UserPatch{PasswordHash: &hash}); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// ChangePassword verifies the current password before setting a new one.
func (s *Service) ChangePassword(ctx context.Context, userID, current, next string) error {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("lookup user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)); err != nil {
		return ErrInvalidCredentials
	}
	return s.SetPassword(ctx, userID, next)
}
