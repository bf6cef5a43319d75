package authpw

import (
	"context"
	"errors"
	"testing"

	"lexdesk/api/internal/store"
)

func newTestUser(t *testing.T, s store.Store, email, password, status string) store.User {
	t.Helper()
	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	user, err := s.CreateUser(context.Background(), store.User{
		Name:         "Test User",
		Email:        email,
		Role:         store.RoleLawyer,
		Status:       status,
		PasswordHash: hash,
	})
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	return user
}

func TestAuthenticate(t *testing.T) {
	s := store.NewMemoryStore()
	svc := NewService(s)
	ctx := context.Background()

	user := newTestUser(t, s, "ana@firm.example", "correct horse", store.UserActive)

	got, err := svc.Authenticate(ctx, "ana@firm.example", "correct horse")
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if got.ID != user.ID {
		t.Fatalf("expected user %s, got %s", user.ID, got.ID)
	}

	if _, err := svc.Authenticate(ctx, "ana@firm.example", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password: expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Authenticate(ctx, "nobody@firm.example", "correct horse"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email: expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Authenticate(ctx, "", ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("empty input: expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthenticateRejectsInactiveUser(t *testing.T) {
	s := store.NewMemoryStore()
	svc := NewService(s)

	newTestUser(t, s, "gone@firm.example", "correct horse", store.UserInactive)

	_, err := svc.Authenticate(context.Background(), "gone@firm.example", "correct horse")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for inactive user, got %v", err)
	}
}

func TestHashPasswordRejectsShort(t *testing.T) {
	if _, err := HashPassword("short"); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	s := store.NewMemoryStore()
	svc := NewService(s)
	ctx := context.Background()

	user := newTestUser(t, s, "ana@firm.example", "old password", store.UserActive)

	if err := svc.ChangePassword(ctx, user.ID, "wrong", "new password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for wrong current password, got %v", err)
	}
	if err := svc.ChangePassword(ctx, user.ID, "old password", "new password"); err != nil {
		t.Fatalf("ChangePassword failed: %v", err)
	}

	if _, err := svc.Authenticate(ctx, "ana@firm.example", "old password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("old password should no longer work, got %v", err)
	}
	if _, err := svc.Authenticate(ctx, "ana@firm.example", "new password"); err != nil {
		t.Fatalf("new password should work, got %v", err)
	}
}
