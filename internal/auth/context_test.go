package auth

import (
	"context"
	"testing"
)

func TestWithAuthAndFromContext(t *testing.T) {
	ac := AuthContext{
		UserID:    1,
		CoupleID:  2,
		SessionID: 3,
	}

	ctx := WithAuth(context.Background(), ac)
	got, ok := FromContext(ctx)
	if !ok {
		t.Fatal("expected AuthContext in context")
	}
	if got.UserID != 1 {
		t.Errorf("UserID = %d, want 1", got.UserID)
	}
	if got.CoupleID != 2 {
		t.Errorf("CoupleID = %d, want 2", got.CoupleID)
	}
	if got.SessionID != 3 {
		t.Errorf("SessionID = %d, want 3", got.SessionID)
	}
}

func TestFromContextMissing(t *testing.T) {
	_, ok := FromContext(context.Background())
	if ok {
		t.Error("expected false for missing AuthContext")
	}
}

func TestUserID(t *testing.T) {
	ctx := WithAuth(context.Background(), AuthContext{UserID: 7})
	if UserID(ctx) != 7 {
		t.Errorf("UserID = %d, want 7", UserID(ctx))
	}
}

func TestUserIDMissing(t *testing.T) {
	if UserID(context.Background()) != 0 {
		t.Error("expected 0 for missing context")
	}
}

func TestCoupleID(t *testing.T) {
	ctx := WithAuth(context.Background(), AuthContext{CoupleID: 42})
	if CoupleID(ctx) != 42 {
		t.Errorf("CoupleID = %d, want 42", CoupleID(ctx))
	}
}

func TestLinked(t *testing.T) {
	ctx := WithAuth(context.Background(), AuthContext{CoupleID: 5})
	if !Linked(ctx) {
		t.Error("expected Linked = true with couple id")
	}

	ctx = WithAuth(context.Background(), AuthContext{})
	if Linked(ctx) {
		t.Error("expected Linked = false without couple id")
	}
	if Linked(context.Background()) {
		t.Error("expected Linked = false for missing context")
	}
}
