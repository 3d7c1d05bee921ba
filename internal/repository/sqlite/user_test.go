package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/bugtracker/internal/apperror"
	"github.com/sakif/bugtracker/internal/model"
)

// newTestDB returns a *DB backed by an in-memory SQLite database.
// Each call gets a fresh database; it disappears when the test ends.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to open in-memory database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// createTestUser is a test helper that creates a user and fails the test if it errors.
func createTestUser(t *testing.T, db *DB, username string) *model.User {
	t.Helper()
	user := &model.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "$2a$04$not-a-real-hash-but-fine-for-storage",
	}
	if err := db.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// =========================================================================
// CREATE TESTS
// =========================================================================

func TestCreateUser(t *testing.T) {
	db := newTestDB(t)

	user := &model.User{
		Username:     "testuser",
		Email:        "test@example.com",
		PasswordHash: "$2a$04$hash",
	}

	err := db.CreateUser(context.Background(), user)
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	// Verify the user was modified in-place (pointer receiver)
	if user.ID == "" {
		t.Error("CreateUser() did not set user.ID")
	}
	if user.CreatedAt.IsZero() {
		t.Error("CreateUser() did not set user.CreatedAt")
	}
	if user.UpdatedAt.IsZero() {
		t.Error("CreateUser() did not set user.UpdatedAt")
	}

	t.Logf("Created user with ID: %s", user.ID)
}

func TestCreateUser_DuplicateUsername(t *testing.T) {
	db := newTestDB(t)

	createTestUser(t, db, "firstuser")

	duplicate := &model.User{
		Username:     "firstuser", // same username
		Email:        "different@example.com",
		PasswordHash: "$2a$04$hash",
	}
	err := db.CreateUser(context.Background(), duplicate)
	if err == nil {
		t.Fatal("CreateUser() should have failed for a duplicate username")
	}

	// The duplicate must surface as a field-level validation error on
	// "username" — the same shape as any other invalid input.
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("error should be an *apperror.AppError, got %T", err)
	}
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("error should match apperror.ErrValidation, got: %v", err)
	}
	if appErr.Field != "username" {
		t.Errorf("Field = %q, want %q", appErr.Field, "username")
	}
	if appErr.Message != "A user with that username already exists." {
		t.Errorf("Message = %q", appErr.Message)
	}
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	db := newTestDB(t)

	createTestUser(t, db, "firstuser")

	duplicate := &model.User{
		Username:     "seconduser",
		Email:        "firstuser@example.com", // same email
		PasswordHash: "$2a$04$hash",
	}
	err := db.CreateUser(context.Background(), duplicate)
	if err == nil {
		t.Fatal("CreateUser() should have failed for a duplicate email")
	}

	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("error should be an *apperror.AppError, got %T", err)
	}
	if appErr.Field != "email" {
		t.Errorf("Field = %q, want %q", appErr.Field, "email")
	}
	if appErr.Message != "A user with that email already exists." {
		t.Errorf("Message = %q", appErr.Message)
	}
}

// =========================================================================
// GET TESTS
// =========================================================================

func TestGetUserByID(t *testing.T) {
	db := newTestDB(t)
	created := createTestUser(t, db, "lookupuser")

	got, err := db.GetUserByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetUserByID() error = %v", err)
	}

	if got.Username != "lookupuser" {
		t.Errorf("Username = %q, want %q", got.Username, "lookupuser")
	}
	if got.Email != "lookupuser@example.com" {
		t.Errorf("Email = %q, want %q", got.Email, "lookupuser@example.com")
	}
	if got.PasswordHash != created.PasswordHash {
		t.Error("PasswordHash was not round-tripped")
	}
}

func TestGetUserByID_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetUserByID(context.Background(), "no-such-id")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("error should match apperror.ErrNotFound, got: %v", err)
	}
}

func TestGetUserByUsername(t *testing.T) {
	db := newTestDB(t)
	created := createTestUser(t, db, "loginuser")

	got, err := db.GetUserByUsername(context.Background(), "loginuser")
	if err != nil {
		t.Fatalf("GetUserByUsername() error = %v", err)
	}
	if got.ID != created.ID {
		t.Errorf("ID = %q, want %q", got.ID, created.ID)
	}
}

func TestGetUserByUsername_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetUserByUsername(context.Background(), "ghost")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("error should match apperror.ErrNotFound, got: %v", err)
	}
}

// =========================================================================
// DELETE TESTS
// =========================================================================

func TestDeleteUser(t *testing.T) {
	db := newTestDB(t)
	created := createTestUser(t, db, "doomed")

	if err := db.DeleteUser(context.Background(), created.ID); err != nil {
		t.Fatalf("DeleteUser() error = %v", err)
	}

	_, err := db.GetUserByID(context.Background(), created.ID)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("deleted user should be not found, got: %v", err)
	}
}

func TestDeleteUser_NotFound(t *testing.T) {
	db := newTestDB(t)

	err := db.DeleteUser(context.Background(), "no-such-id")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("error should match apperror.ErrNotFound, got: %v", err)
	}
}
