package bootstrap

import (
	"context"
	"testing"

	"github.com/dalemusser/secretsanta/internal/app/store/memstore"
	"github.com/dalemusser/secretsanta/internal/app/system/auth"
	"github.com/dalemusser/secretsanta/internal/domain/models"
	"go.uber.org/zap"
)

func testLogger() *zap.Logger {
	return zap.NewNop()
}

func TestEnsureAdmin_CreatesNew(t *testing.T) {
	st := memstore.New()
	ctx := context.Background()

	if err := ensureAdmin(ctx, st, "admin@test.com", "s3cret-pass", testLogger()); err != nil {
		t.Fatalf("ensureAdmin failed: %v", err)
	}

	user, err := st.GetUserByEmail(ctx, "admin@test.com")
	if err != nil {
		t.Fatalf("failed to find created user: %v", err)
	}
	if user.Role != models.RoleAdmin {
		t.Errorf("expected role 'admin', got %q", user.Role)
	}
	if !auth.CheckPassword(user.PasswordHash, "s3cret-pass") {
		t.Error("password hash does not match")
	}
}

func TestEnsureAdmin_LeavesExisting(t *testing.T) {
	st := memstore.New()
	ctx := context.Background()

	existing, err := st.CreateUser(ctx, models.User{Name: "Existing User", Email: "existing@test.com", Role: models.RoleUser})
	if err != nil {
		t.Fatalf("failed to create existing user: %v", err)
	}

	if err := ensureAdmin(ctx, st, "existing@test.com", "whatever-pass", testLogger()); err != nil {
		t.Fatalf("ensureAdmin failed: %v", err)
	}

	users, _ := st.ListUsers(ctx)
	if len(users) != 1 || users[0].ID != existing.ID || users[0].Role != models.RoleUser {
		t.Errorf("users = %+v", users)
	}
}

func TestEnsureAdmin_NoPasswordSkips(t *testing.T) {
	st := memstore.New()
	ctx := context.Background()

	if err := ensureAdmin(ctx, st, "admin@test.com", "", testLogger()); err != nil {
		t.Fatalf("ensureAdmin failed: %v", err)
	}
	if users, _ := st.ListUsers(ctx); len(users) != 0 {
		t.Errorf("expected no users, got %d", len(users))
	}
}
