package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/bugtracker/internal/apperror"
	"github.com/sakif/bugtracker/internal/model"
	"github.com/sakif/bugtracker/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

// CreateUser inserts a new user account.
//
// DUPLICATE DETECTION:
// username and email both carry UNIQUE constraints, but we pre-check with a
// SELECT so a duplicate can be reported as a field-level validation error on
// the right field — registration conflicts surface to the client exactly
// like any other invalid input, not as a separate conflict shape. The
// UNIQUE constraints remain as the backstop for the (rare) race where two
// registrations interleave.
//
// User IDs are xid strings: 20 chars, URL-safe, sortable by creation time.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	var existing string
	err := db.conn.QueryRowContext(ctx,
		`SELECT username FROM users WHERE username = ?`, user.Username,
	).Scan(&existing)
	if err == nil {
		return apperror.ValidationFailed("username", "A user with that username already exists.")
	}
	if err != sql.ErrNoRows {
		return fmt.Errorf("sqlite: checking username %s: %w", user.Username, err)
	}

	err = db.conn.QueryRowContext(ctx,
		`SELECT email FROM users WHERE email = ?`, user.Email,
	).Scan(&existing)
	if err == nil {
		return apperror.ValidationFailed("email", "A user with that email already exists.")
	}
	if err != sql.ErrNoRows {
		return fmt.Errorf("sqlite: checking email %s: %w", user.Email, err)
	}

	user.ID = xid.New().String()
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO users (id, username, email, password_hash, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating user %s: %w", user.Username, err)
	}

	return nil
}

// GetUserByID retrieves a user by internal ID.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return db.getUser(ctx, `WHERE id = ?`, id)
}

// GetUserByUsername retrieves a user by username. Used by the credential
// exchange — login looks the account up by name, then verifies the
// password hash.
func (db *DB) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return db.getUser(ctx, `WHERE username = ?`, username)
}

func (db *DB) getUser(ctx context.Context, where string, arg any) (*model.User, error) {
	var user model.User

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, username, email, password_hash, created_at, updated_at
		 FROM users `+where,
		arg,
	).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", fmt.Sprint(arg))
		}
		return nil, fmt.Errorf("sqlite: getting user: %w", err)
	}

	return &user, nil
}

// DeleteUser removes a user account. The ON DELETE CASCADE on
// bug_reports.created_by removes every bug report the user owned in the
// same statement — no orphaned report can survive this.
func (db *DB) DeleteUser(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM users WHERE id = ?`, id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting user %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("user", id)
	}

	return nil
}
