package auth

import (
	"errors"
	"testing"
)

func TestHashPasswordAndCheckPasswordBcrypt(t *testing.T) {
	hash, err := HashPassword("s3cret")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if hash == "" {
		t.Fatalf("expected non-empty hash")
	}
	if !CheckPassword("s3cret", hash) {
		t.Fatalf("expected bcrypt password check to pass")
	}
	if CheckPassword("wrong", hash) {
		t.Fatalf("expected bcrypt password check to fail")
	}
}

func TestValidatePassword(t *testing.T) {
	if err := ValidatePassword("secret"); err != nil {
		t.Fatalf("expected 6-char password to pass, got: %v", err)
	}
	if err := ValidatePassword("short"); !errors.Is(err, ErrPasswordTooShort) {
		t.Fatalf("expected short password to fail, got: %v", err)
	}
}

func TestValidateUsername(t *testing.T) {
	if err := ValidateUsername("bob"); err != nil {
		t.Fatalf("expected 3-char username to pass, got: %v", err)
	}
	if err := ValidateUsername("  b  "); !errors.Is(err, ErrUsernameTooShort) {
		t.Fatalf("expected short username to fail, got: %v", err)
	}
}
