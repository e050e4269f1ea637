package store

import (
	"testing"

	"github.com/luminapp/lumina/internal/database"
)

func setupPushTestDB(t *testing.T) (*PushStore, *UserStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewPushStore(db), NewUserStore(db)
}

func TestPushSubscribeAndList(t *testing.T) {
	ps, us := setupPushTestDB(t)

	u, err := us.Create("alice@example.com", "Alice")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	sub, err := ps.Subscribe(u.ID, "https://push.example.com/ep1", "p256dh-key", "auth-key")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if sub.Endpoint != "https://push.example.com/ep1" {
		t.Errorf("endpoint = %q, want %q", sub.Endpoint, "https://push.example.com/ep1")
	}

	subs, err := ps.ListForUser(u.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(subs) != 1 {
		t.Fatalf("expected 1 subscription, got %d", len(subs))
	}
}

func TestPushSubscribeUpsertsByEndpoint(t *testing.T) {
	ps, us := setupPushTestDB(t)

	u, err := us.Create("bob@example.com", "Bob")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	if _, err := ps.Subscribe(u.ID, "https://push.example.com/ep1", "old-p256dh", "old-auth"); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	refreshed, err := ps.Subscribe(u.ID, "https://push.example.com/ep1", "new-p256dh", "new-auth")
	if err != nil {
		t.Fatalf("resubscribe: %v", err)
	}
	if refreshed.P256dhKey != "new-p256dh" {
		t.Errorf("p256dh = %q, want %q", refreshed.P256dhKey, "new-p256dh")
	}

	subs, err := ps.ListForUser(u.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(subs) != 1 {
		t.Fatalf("expected 1 subscription after upsert, got %d", len(subs))
	}
}

func TestPushDeleteByEndpoint(t *testing.T) {
	ps, us := setupPushTestDB(t)

	u, err := us.Create("carol@example.com", "Carol")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := ps.Subscribe(u.ID, "https://push.example.com/expired", "k", "a"); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if err := ps.DeleteByEndpoint("https://push.example.com/expired"); err != nil {
		t.Fatalf("delete by endpoint: %v", err)
	}
	subs, err := ps.ListForUser(u.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(subs) != 0 {
		t.Fatalf("expected 0 subscriptions, got %d", len(subs))
	}
}
