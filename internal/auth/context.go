package auth

import "context"

type contextKey struct{}

type AuthContext struct {
	UserID    int64
	CoupleID  int64 // 0 when not linked
	SessionID int64
}

func WithAuth(ctx context.Context, ac AuthContext) context.Context {
	return context.WithValue(ctx, contextKey{}, ac)
}

func FromContext(ctx context.Context) (AuthContext, bool) {
	ac, ok := ctx.Value(contextKey{}).(AuthContext)
	return ac, ok
}

func UserID(ctx context.Context) int64 {
	ac, ok := FromContext(ctx)
	if !ok {
		return 0
	}
	return ac.UserID
}

func CoupleID(ctx context.Context) int64 {
	ac, ok := FromContext(ctx)
	if !ok {
		return 0
	}
	return ac.CoupleID
}

// Linked reports whether the authenticated user belongs to a couple.
func Linked(ctx context.Context) bool {
	return CoupleID(ctx) != 0
}
