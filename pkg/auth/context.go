package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// contextKey is an unexported type to prevent key collisions in context.
type contextKey string

const (
	userIDKey      contextKey = "user_id"
	permissionsKey contextKey = "permissions"
)

// ErrUserNotFound is returned when no user identity exists in the request context.
// Handlers should return 401 when this error occurs.
var ErrUserNotFound = errors.New("user identity not found in context")

// UserIDFromCtx extracts the authenticated user ID from the request context.
// Returns uuid.Nil and ErrUserNotFound if no identity is set (unauthenticated request).
func UserIDFromCtx(ctx context.Context) (uuid.UUID, error) {
	userID, ok := ctx.Value(userIDKey).(uuid.UUID)
	if !ok || userID == uuid.Nil {
		return uuid.Nil, ErrUserNotFound
	}
	return userID, nil
}

// PermissionsFromCtx returns the permission set resolved for the authenticated
// user. Missing permissions yield an empty slice, not an error — authorization
// decisions belong to the caller.
func PermissionsFromCtx(ctx context.Context) []string {
	perms, ok := ctx.Value(permissionsKey).([]string)
	if !ok {
		return nil
	}
	return perms
}

// HasPermission reports whether the context's permission set contains perm.
func HasPermission(ctx context.Context, perm string) bool {
	for _, p := range PermissionsFromCtx(ctx) {
		if p == perm {
			return true
		}
	}
	return false
}

// WithIdentity returns a new context carrying the verified user ID and
// permission set. Used by authentication middleware after validating the session.
func WithIdentity(ctx context.Context, userID uuid.UUID, permissions []string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	return context.WithValue(ctx, permissionsKey, permissions)
}
