// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered user account.
//
// Users authenticate with a username and password. The password itself is
// never stored — only the bcrypt hash. PasswordHash carries `json:"-"` so
// it can NEVER leak into an API response, no matter which handler
// serializes the struct. The repository scan code reads it explicitly.
//
// The internal ID is an xid string, generated at creation and immutable.
// Deleting a user cascades to every bug report it owns (enforced by a
// foreign key in the sqlite schema) — no orphaned bug report may exist.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
