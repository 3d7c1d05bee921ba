package repository

import (
	"context"
	"time"

	"github.com/sakif/bugtracker/internal/model"
)

// Ordering field names accepted by ListOptions.OrderBy. Anything else falls
// back to the default (created_at descending, newest first).
const (
	OrderCreatedAt = "created_at"
	OrderUpdatedAt = "updated_at"
	OrderSeverity  = "severity"
	OrderStatus    = "status"
	OrderTitle     = "title"
)

// ListOptions narrows and orders a bug report listing. All filters are
// optional and combine with AND semantics; Search alone matches title OR
// description (case-insensitive substring). The zero value lists everything
// the owner has, newest first.
type ListOptions struct {
	Severity      model.Severity // exact match when non-empty
	Status        model.Status   // exact match when non-empty
	Tag           string         // membership test, compared lower-cased
	CreatedAfter  *time.Time     // created_at >= T1
	CreatedBefore *time.Time     // created_at <= T2
	Search        string         // substring on title OR description

	OrderBy    string // one of the Order* constants; "" means created_at
	Descending bool

	Limit  int
	Offset int
}

// BugRepository persists bug reports.
//
// Every read and write is scoped to an owner: the ownerID parameter (or
// bug.CreatedByID on writes) is part of the lookup key, never an
// afterthought. A record owned by someone else is reported as not found —
// the repository cannot even express "exists but forbidden".
type BugRepository interface {
	Create(ctx context.Context, bug *model.BugReport) error
	GetByID(ctx context.Context, ownerID, id string) (*model.BugReport, error)
	// List returns one page of the owner's reports matching opts, plus the
	// total count of matches across all pages.
	List(ctx context.Context, ownerID string, opts ListOptions) ([]model.BugReport, int, error)
	Update(ctx context.Context, bug *model.BugReport) error
	Delete(ctx context.Context, ownerID, id string) error
}

// UserRepository persists user accounts.
type UserRepository interface {
	// CreateUser inserts a new user. Duplicate username or email is reported
	// as a field-level validation error on the offending field.
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	// DeleteUser removes the user and, via the schema's cascade, every bug
	// report the user owns.
	DeleteUser(ctx context.Context, id string) error
}
