package store

import (
	"testing"

	"github.com/dukerupert/habitual/internal/database"
)

func setupUserTestDB(t *testing.T) *UserStore {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewUserStore(db)
}

func TestUserCreate(t *testing.T) {
	us := setupUserTestDB(t)

	u, err := us.Create("alice@example.com", "Alice", "hunter22")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if u.Email != "alice@example.com" {
		t.Errorf("email = %q, want %q", u.Email, "alice@example.com")
	}
	if u.Name != "Alice" {
		t.Errorf("name = %q, want %q", u.Name, "Alice")
	}
	if u.ID == 0 {
		t.Error("expected non-zero ID")
	}
	if u.PasswordHash == "" || u.PasswordHash == "hunter22" {
		t.Errorf("password should be stored hashed, got %q", u.PasswordHash)
	}
	if u.SuccessThreshold != nil {
		t.Errorf("success_threshold = %v, want nil", *u.SuccessThreshold)
	}
}

func TestUserCreateDuplicateEmail(t *testing.T) {
	us := setupUserTestDB(t)

	if _, err := us.Create("alice@example.com", "Alice", "pw"); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := us.Create("alice@example.com", "Alice2", "pw"); err == nil {
		t.Fatal("expected error for duplicate email, got nil")
	}
}

func TestUserGetByIDNotFound(t *testing.T) {
	us := setupUserTestDB(t)

	u, err := us.GetByID(999)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if u != nil {
		t.Error("expected nil for nonexistent user")
	}
}

func TestUserAuthenticate(t *testing.T) {
	us := setupUserTestDB(t)

	created, _ := us.Create("alice@example.com", "Alice", "correct horse")

	u, err := us.Authenticate("alice@example.com", "correct horse")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if u == nil || u.ID != created.ID {
		t.Fatalf("authenticate returned %v, want user %d", u, created.ID)
	}

	u, err = us.Authenticate("alice@example.com", "wrong")
	if err != nil {
		t.Fatalf("authenticate wrong password: %v", err)
	}
	if u != nil {
		t.Error("expected nil for wrong password")
	}

	u, err = us.Authenticate("bob@example.com", "correct horse")
	if err != nil {
		t.Fatalf("authenticate unknown email: %v", err)
	}
	if u != nil {
		t.Error("expected nil for unknown email")
	}
}

func TestUserSuccessThreshold(t *testing.T) {
	us := setupUserTestDB(t)

	u, _ := us.Create("alice@example.com", "Alice", "pw")

	if _, ok, err := us.SuccessThreshold(u.ID); err != nil || ok {
		t.Fatalf("SuccessThreshold = (_, %v, %v), want no override", ok, err)
	}

	three := 3
	updated, err := us.SetSuccessThreshold(u.ID, &three)
	if err != nil {
		t.Fatalf("set threshold: %v", err)
	}
	if updated.SuccessThreshold == nil || *updated.SuccessThreshold != 3 {
		t.Errorf("success_threshold = %v, want 3", updated.SuccessThreshold)
	}

	v, ok, err := us.SuccessThreshold(u.ID)
	if err != nil || !ok || v != 3 {
		t.Errorf("SuccessThreshold = (%d, %v, %v), want (3, true, nil)", v, ok, err)
	}

	if _, err := us.SetSuccessThreshold(u.ID, nil); err != nil {
		t.Fatalf("clear threshold: %v", err)
	}
	if _, ok, _ := us.SuccessThreshold(u.ID); ok {
		t.Error("expected override to be cleared")
	}
}
