package store

import (
	"testing"
	"time"

	"github.com/luminapp/lumina/internal/database"
)

func setupSubscriptionTestDB(t *testing.T) (*SubscriptionStore, *UserStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewSubscriptionStore(db), NewUserStore(db)
}

func TestSubscriptionCreateAndGet(t *testing.T) {
	ss, us := setupSubscriptionTestDB(t)

	u, err := us.Create("alice@example.com", "Alice")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	sub, err := ss.Create(u.ID, "premium")
	if err != nil {
		t.Fatalf("create subscription: %v", err)
	}
	if sub.Plan != "premium" {
		t.Errorf("plan = %q, want %q", sub.Plan, "premium")
	}
	if sub.StripeSubscriptionID != nil {
		t.Errorf("stripe id = %v, want nil", *sub.StripeSubscriptionID)
	}

	got, err := ss.GetByUserID(u.ID)
	if err != nil {
		t.Fatalf("get by user: %v", err)
	}
	if got == nil || got.ID != sub.ID {
		t.Fatalf("got = %+v, want id %d", got, sub.ID)
	}
}

func TestSubscriptionGetByStripeID(t *testing.T) {
	ss, us := setupSubscriptionTestDB(t)

	u, err := us.Create("bob@example.com", "Bob")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	sub, err := ss.Create(u.ID, "premium")
	if err != nil {
		t.Fatalf("create subscription: %v", err)
	}
	if err := ss.UpdateStripeID(sub.ID, "sub_abc123"); err != nil {
		t.Fatalf("update stripe id: %v", err)
	}

	got, err := ss.GetByStripeID("sub_abc123")
	if err != nil {
		t.Fatalf("get by stripe id: %v", err)
	}
	if got == nil || got.ID != sub.ID {
		t.Fatalf("got = %+v, want id %d", got, sub.ID)
	}

	missing, err := ss.GetByStripeID("sub_unknown")
	if err != nil {
		t.Fatalf("get unknown: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for unknown stripe id, got %+v", missing)
	}
}

func TestSubscriptionLifecycle(t *testing.T) {
	ss, us := setupSubscriptionTestDB(t)

	u, err := us.Create("carol@example.com", "Carol")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	sub, err := ss.Create(u.ID, "premium")
	if err != nil {
		t.Fatalf("create subscription: %v", err)
	}

	if err := ss.UpdateStatus(sub.ID, "active"); err != nil {
		t.Fatalf("activate: %v", err)
	}
	periodEnd := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	if err := ss.UpdatePeriodEnd(sub.ID, periodEnd); err != nil {
		t.Fatalf("update period end: %v", err)
	}
	if err := ss.SetCancelAtPeriodEnd(sub.ID, true); err != nil {
		t.Fatalf("set cancel at period end: %v", err)
	}

	got, err := ss.GetByID(sub.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != "active" {
		t.Errorf("status = %q, want %q", got.Status, "active")
	}
	if got.CurrentPeriodEnd == nil || !got.CurrentPeriodEnd.Equal(periodEnd) {
		t.Errorf("period end = %v, want %v", got.CurrentPeriodEnd, periodEnd)
	}
	if !got.CancelAtPeriodEnd {
		t.Error("cancel_at_period_end = false, want true")
	}

	if err := ss.UpdateStatus(sub.ID, "canceled"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	got, err = ss.GetByID(sub.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != "canceled" {
		t.Errorf("status = %q, want %q", got.Status, "canceled")
	}
}
