package profiles

import (
	"context"
	"errors"
	"testing"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "correct horse battery" {
		t.Fatal("hash must not be the plaintext")
	}
	if !CheckPassword(hash, "correct horse battery") {
		t.Fatal("valid password rejected")
	}
	if CheckPassword(hash, "wrong password") {
		t.Fatal("invalid password accepted")
	}
}

func TestHashPasswordRejectsShort(t *testing.T) {
	if _, err := HashPassword("short"); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("err = %v, want ErrInvalidArgument", err)
	}
}

func TestVerifyCredentials(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	hash, err := HashPassword("hunter2hunter2")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	created, err := store.Create(ctx, Profile{Email: "Owner@Example.com", PasswordHash: hash})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Email matching is case-insensitive.
	p, err := store.VerifyCredentials(ctx, "owner@example.COM", "hunter2hunter2")
	if err != nil {
		t.Fatalf("VerifyCredentials: %v", err)
	}
	if p.ID != created.ID {
		t.Fatalf("resolved wrong profile: %q", p.ID)
	}

	if _, err := store.VerifyCredentials(ctx, "owner@example.com", "nope nope nope"); !errors.Is(err, ErrBadCredentials) {
		t.Fatalf("wrong password: err = %v, want ErrBadCredentials", err)
	}
	if _, err := store.VerifyCredentials(ctx, "stranger@example.com", "hunter2hunter2"); !errors.Is(err, ErrBadCredentials) {
		t.Fatalf("unknown email: err = %v, want ErrBadCredentials", err)
	}
}

func TestCreateRejectsDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	hash, _ := HashPassword("hunter2hunter2")
	if _, err := store.Create(ctx, Profile{Email: "owner@example.com", PasswordHash: hash}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := store.Create(ctx, Profile{Email: "OWNER@example.com", PasswordHash: hash}); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("err = %v, want ErrEmailTaken", err)
	}
}
