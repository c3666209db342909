package middleware

import (
	"context"

	"github.com/prepjourney/prepjourney-backend/pkg/enums"
)

type contextKey string

const (
	ctxUserID    contextKey = "user_id"
	ctxAdminID   contextKey = "admin_id"
	ctxAdminRole contextKey = "admin_role"
)

// UserIDFromContext returns the visitor identifier seeded by VisitorContext
// or WithUserID, or "" when the request carries none.
func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxUserID).(string); ok {
		return v
	}
	return ""
}

func AdminIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxAdminID).(string); ok {
		return v
	}
	return ""
}

func AdminRoleFromContext(ctx context.Context) enums.AdminRole {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxAdminRole).(enums.AdminRole); ok {
		return v
	}
	return ""
}

// WithUserID injects the visitor identifier into the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxUserID, userID)
}

// WithAdmin injects the authenticated dashboard identity into the context.
func WithAdmin(ctx context.Context, adminID string, role enums.AdminRole) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxAdminID, adminID)
	return context.WithValue(ctx, ctxAdminRole, role)
}
