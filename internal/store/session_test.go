package store

import (
	"database/sql"
	"testing"
	"time"

	"github.com/luminapp/lumina/internal/database"
)

func setupSessionTestDB(t *testing.T) (*SessionStore, *UserStore, *sql.DB) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewSessionStore(db), NewUserStore(db), db
}

func TestSessionCreateAndGet(t *testing.T) {
	ss, us, _ := setupSessionTestDB(t)

	u, err := us.Create("alice@example.com", "Alice")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	sess, err := ss.Create(u.ID)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if len(sess.Token) != 64 {
		t.Errorf("token length = %d, want 64", len(sess.Token))
	}

	got, err := ss.GetByToken(sess.Token)
	if err != nil {
		t.Fatalf("get by token: %v", err)
	}
	if got == nil || got.UserID != u.ID {
		t.Fatalf("got = %+v, want user_id %d", got, u.ID)
	}
}

func TestSessionGetByTokenMissing(t *testing.T) {
	ss, _, _ := setupSessionTestDB(t)

	got, err := ss.GetByToken("does-not-exist")
	if err != nil {
		t.Fatalf("get by token: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for unknown token, got %+v", got)
	}
}

func TestSessionExpired(t *testing.T) {
	ss, us, db := setupSessionTestDB(t)

	u, err := us.Create("bob@example.com", "Bob")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	sess, err := ss.Create(u.ID)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	// Force the session into the past.
	expired := time.Now().UTC().Add(-time.Hour)
	if _, err := db.Exec(`UPDATE sessions SET expires_at = ? WHERE id = ?`, expired, sess.ID); err != nil {
		t.Fatalf("expire session: %v", err)
	}

	got, err := ss.GetByToken(sess.Token)
	if err != nil {
		t.Fatalf("get by token: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for expired session, got %+v", got)
	}

	deleted, err := ss.DeleteExpired()
	if err != nil {
		t.Fatalf("delete expired: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}
}

func TestSessionDeleteForUser(t *testing.T) {
	ss, us, _ := setupSessionTestDB(t)

	u, err := us.Create("carol@example.com", "Carol")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	first, err := ss.Create(u.ID)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	second, err := ss.Create(u.ID)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	if err := ss.DeleteForUser(u.ID); err != nil {
		t.Fatalf("delete for user: %v", err)
	}
	for _, token := range []string{first.Token, second.Token} {
		got, err := ss.GetByToken(token)
		if err != nil {
			t.Fatalf("get by token: %v", err)
		}
		if got != nil {
			t.Errorf("session still present after DeleteForUser: %+v", got)
		}
	}
}
