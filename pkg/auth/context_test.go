package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestWithIdentity_UserIDFromCtx(t *testing.T) {
	userID := uuid.New()
	ctx := WithIdentity(context.Background(), userID, nil)

	got, err := UserIDFromCtx(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != userID {
		t.Fatalf("expected %v, got %v", userID, got)
	}
}

func TestUserIDFromCtx_EmptyContext(t *testing.T) {
	_, err := UserIDFromCtx(context.Background())
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUserIDFromCtx_NilUUID(t *testing.T) {
	ctx := WithIdentity(context.Background(), uuid.Nil, nil)
	_, err := UserIDFromCtx(ctx)
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound for uuid.Nil, got %v", err)
	}
}

func TestPermissionsFromCtx(t *testing.T) {
	ctx := WithIdentity(context.Background(), uuid.New(), []string{"approvals:decide", "dlq:resolve"})

	perms := PermissionsFromCtx(ctx)
	if len(perms) != 2 {
		t.Fatalf("expected 2 permissions, got %d", len(perms))
	}
	if !HasPermission(ctx, "dlq:resolve") {
		t.Fatal("expected dlq:resolve permission")
	}
	if HasPermission(ctx, "reports:export") {
		t.Fatal("unexpected reports:export permission")
	}
}

func TestPermissionsFromCtx_EmptyContext(t *testing.T) {
	if perms := PermissionsFromCtx(context.Background()); perms != nil {
		t.Fatalf("expected nil permissions, got %v", perms)
	}
	if HasPermission(context.Background(), "anything") {
		t.Fatal("expected no permissions on empty context")
	}
}
