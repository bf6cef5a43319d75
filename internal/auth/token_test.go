package auth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestIssueAndParseToken(t *testing.T) {
	secret := []byte("secret")
	issued, err := IssueToken(secret, "user-1", "ana@firm.example", "Lawyer", time.Hour)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	claims, err := ParseToken(secret, issued)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if claims.Subject != "user-1" || claims.Email != "ana@firm.example" || claims.Role != "Lawyer" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestParseTokenRejectsExpired(t *testing.T) {
	secret := []byte("secret")
	issued, err := IssueToken(secret, "user-1", "ana@firm.example", "Lawyer", -time.Minute)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	_, err = ParseToken(secret, issued)
	if !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected ErrExpiredToken, got %v", err)
	}
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	issued, err := IssueToken([]byte("secret-a"), "user-1", "ana@firm.example", "Lawyer", time.Hour)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	if _, err := ParseToken([]byte("secret-b"), issued); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestParseTokenRejectsTampered(t *testing.T) {
	secret := []byte("secret")
	issued, err := IssueToken(secret, "user-1", "ana@firm.example", "Staff", time.Hour)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	parts := strings.Split(issued, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape: %q", issued)
	}
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]
	if _, err := ParseToken(secret, tampered); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	if _, err := ParseToken([]byte("secret"), "not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestNewRefreshTokenAndHash(t *testing.T) {
	a, err := NewRefreshToken()
	if err != nil {
		t.Fatalf("NewRefreshToken() error = %v", err)
	}
	b, err := NewRefreshToken()
	if err != nil {
		t.Fatalf("NewRefreshToken() error = %v", err)
	}
	if a == b {
		t.Fatal("expected distinct refresh tokens")
	}
	if len(a) != 64 {
		t.Fatalf("unexpected token length: %d", len(a))
	}
	if HashToken(a) == HashToken(b) {
		t.Fatal("expected distinct hashes")
	}
	if HashToken(a) != HashToken(a) {
		t.Fatal("expected stable hash")
	}
}
