package store

import (
	"testing"

	"github.com/dukerupert/habitual/internal/database"
)

func setupSessionTestDB(t *testing.T) (*SessionStore, *UserStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewSessionStore(db), NewUserStore(db)
}

func TestSessionCreate(t *testing.T) {
	ss, us := setupSessionTestDB(t)

	u, _ := us.Create("alice@example.com", "Alice", "pw")
	sess, err := ss.Create(u.ID)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if len(sess.Token) != 64 { // 32 bytes hex-encoded
		t.Errorf("token length = %d, want 64", len(sess.Token))
	}
	if sess.UserID != u.ID {
		t.Errorf("user_id = %d, want %d", sess.UserID, u.ID)
	}
}

func TestSessionGetByToken(t *testing.T) {
	ss, us := setupSessionTestDB(t)

	u, _ := us.Create("alice@example.com", "Alice", "pw")
	created, _ := ss.Create(u.ID)

	sess, err := ss.GetByToken(created.Token)
	if err != nil {
		t.Fatalf("get by token: %v", err)
	}
	if sess == nil {
		t.Fatal("expected session, got nil")
	}
	if sess.ID != created.ID {
		t.Errorf("id = %d, want %d", sess.ID, created.ID)
	}
}

func TestSessionGetByTokenNotFound(t *testing.T) {
	ss, _ := setupSessionTestDB(t)

	sess, err := ss.GetByToken("nonexistent")
	if err != nil {
		t.Fatalf("get by token: %v", err)
	}
	if sess != nil {
		t.Error("expected nil for unknown token")
	}
}

func TestSessionDelete(t *testing.T) {
	ss, us := setupSessionTestDB(t)

	u, _ := us.Create("alice@example.com", "Alice", "pw")
	created, _ := ss.Create(u.ID)

	if err := ss.Delete(created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	sess, _ := ss.GetByToken(created.Token)
	if sess != nil {
		t.Error("expected nil after delete")
	}
}

func TestSessionDeleteExpired(t *testing.T) {
	ss, us := setupSessionTestDB(t)

	u, _ := us.Create("alice@example.com", "Alice", "pw")
	live, _ := ss.Create(u.ID)
	stale, _ := ss.Create(u.ID)

	if _, err := ss.db.Exec(`UPDATE sessions SET expires_at = '2000-01-01 00:00:00' WHERE id = ?`, stale.ID); err != nil {
		t.Fatalf("expire session: %v", err)
	}

	n, err := ss.DeleteExpired()
	if err != nil {
		t.Fatalf("delete expired: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted = %d, want 1", n)
	}
	if sess, _ := ss.GetByToken(live.Token); sess == nil {
		t.Error("live session should survive cleanup")
	}
}

func TestSessionDeleteByUserID(t *testing.T) {
	ss, us := setupSessionTestDB(t)

	u, _ := us.Create("alice@example.com", "Alice", "pw")
	s1, _ := ss.Create(u.ID)
	s2, _ := ss.Create(u.ID)

	if err := ss.DeleteByUserID(u.ID); err != nil {
		t.Fatalf("delete by user: %v", err)
	}
	for _, s := range []string{s1.Token, s2.Token} {
		if sess, _ := ss.GetByToken(s); sess != nil {
			t.Errorf("session %s should be gone", s[:8])
		}
	}
}
