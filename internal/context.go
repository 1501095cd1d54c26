package internal

import (
	"context"
	"time"
)

type ctxKey string

const (
	ContextUserKey       ctxKey = "sessionUser"
	ContextResourceIDKey ctxKey = "resourceID"
)

// SessionUser is the authenticated caller as resolved by the auth middleware.
type SessionUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func UserFromContext(ctx context.Context) (*SessionUser, bool) {
	if ctx == nil {
		return nil, false
	}
	u, ok := ctx.Value(ContextUserKey).(*SessionUser)
	return u, ok && u != nil
}

func ContextWithUser(ctx context.Context, user *SessionUser) context.Context {
	return context.WithValue(ctx, ContextUserKey, user)
}

func UserIDFromContext(ctx context.Context) string {
	if u, ok := UserFromContext(ctx); ok {
		return u.ID
	}
	return ""
}

// ResourceIDFromContext returns the id resolved by a resource-scoped permission check.
func ResourceIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(ContextResourceIDKey).(string); ok {
		return id
	}
	return ""
}

func ContextWithResourceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ContextResourceIDKey, id)
}

// WithTimeout returns a context with timeout, defaulting to 5 seconds if duration is zero or negative.
func WithTimeout(ctx context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	if duration <= 0 {
		duration = 5 * time.Second
	}
	return context.WithTimeout(ctx, duration)
}
