package store

import (
	"testing"

	"github.com/luminapp/lumina/internal/database"
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

func TestUserCreateAndGet(t *testing.T) {
	us := setupUserTestDB(t)

	u, err := us.Create("alice@example.com", "Alice")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if u.Email != "alice@example.com" {
		t.Errorf("email = %q, want %q", u.Email, "alice@example.com")
	}
	if u.Name != "Alice" {
		t.Errorf("name = %q, want %q", u.Name, "Alice")
	}
	if u.CoupleID != nil {
		t.Errorf("couple_id = %v, want nil", *u.CoupleID)
	}

	got, err := us.GetByID(u.ID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if got == nil || got.Email != u.Email {
		t.Fatalf("got = %+v, want email %q", got, u.Email)
	}
}

func TestUserGetByEmail(t *testing.T) {
	us := setupUserTestDB(t)

	if _, err := us.Create("bob@example.com", "Bob"); err != nil {
		t.Fatalf("create user: %v", err)
	}

	got, err := us.GetByEmail("bob@example.com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if got == nil || got.Name != "Bob" {
		t.Fatalf("got = %+v, want name %q", got, "Bob")
	}

	missing, err := us.GetByEmail("nobody@example.com")
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for unknown email, got %+v", missing)
	}
}

func TestUserEmailUniqueCaseInsensitive(t *testing.T) {
	us := setupUserTestDB(t)

	if _, err := us.Create("carol@example.com", "Carol"); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := us.Create("CAROL@example.com", "Other Carol"); err == nil {
		t.Fatal("expected unique constraint error for duplicate email")
	}
}

func TestUserUpdateProfile(t *testing.T) {
	us := setupUserTestDB(t)

	u, err := us.Create("dan@example.com", "Dan")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	updated, err := us.UpdateProfile(u.ID, "Daniel", "https://example.com/dan.png")
	if err != nil {
		t.Fatalf("update profile: %v", err)
	}
	if updated.Name != "Daniel" {
		t.Errorf("name = %q, want %q", updated.Name, "Daniel")
	}
	if updated.PhotoURL != "https://example.com/dan.png" {
		t.Errorf("photo_url = %q, want %q", updated.PhotoURL, "https://example.com/dan.png")
	}
}

func TestUserUpdateStripeCustomerID(t *testing.T) {
	us := setupUserTestDB(t)

	u, err := us.Create("erin@example.com", "Erin")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	if err := us.UpdateStripeCustomerID(u.ID, "cus_123"); err != nil {
		t.Fatalf("update stripe customer id: %v", err)
	}
	got, err := us.GetByID(u.ID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if got.StripeCustomerID == nil || *got.StripeCustomerID != "cus_123" {
		t.Errorf("stripe_customer_id = %v, want cus_123", got.StripeCustomerID)
	}
}
