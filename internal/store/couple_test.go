package store

import (
	"database/sql"
	"testing"

	"github.com/luminapp/lumina/internal/database"
)

func setupCoupleTestDB(t *testing.T) (*CoupleStore, *UserStore, *sql.DB) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewCoupleStore(db), NewUserStore(db), db
}

func TestCoupleGetForUser(t *testing.T) {
	cs, us, db := setupCoupleTestDB(t)

	a, err := us.Create("a@example.com", "A")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	b, err := us.Create("b@example.com", "B")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	coupleID := linkTestCouple(t, db, a.ID, b.ID)

	for _, userID := range []int64{a.ID, b.ID} {
		c, err := cs.GetForUser(userID)
		if err != nil {
			t.Fatalf("get for user %d: %v", userID, err)
		}
		if c == nil || c.ID != coupleID {
			t.Fatalf("got = %+v, want couple %d", c, coupleID)
		}
		if c.MemberA != a.ID || c.MemberB != b.ID {
			t.Errorf("members = (%d, %d), want (%d, %d)", c.MemberA, c.MemberB, a.ID, b.ID)
		}
	}
}

func TestCoupleGetForUnlinkedUser(t *testing.T) {
	cs, us, _ := setupCoupleTestDB(t)

	u, err := us.Create("solo@example.com", "Solo")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	c, err := cs.GetForUser(u.ID)
	if err != nil {
		t.Fatalf("get for user: %v", err)
	}
	if c != nil {
		t.Errorf("expected nil for unlinked user, got %+v", c)
	}
}

func TestCoupleGetByIDMissing(t *testing.T) {
	cs, _, _ := setupCoupleTestDB(t)

	c, err := cs.GetByID(999)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if c != nil {
		t.Errorf("expected nil for unknown couple, got %+v", c)
	}
}
