package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sakif/bugtracker/internal/apperror"
	"github.com/sakif/bugtracker/internal/model"
	"github.com/sakif/bugtracker/internal/repository"
)

// COMPILE-TIME INTERFACE CHECK:
// `var _ X = (*Y)(nil)` assigns a nil *Y to a variable of interface type X.
// If *Y doesn't implement X, the compiler errors immediately instead of at
// some distant call site. A Go best practice for any interface implementation.
var _ repository.BugRepository = (*DB)(nil)

// bugColumns is the SELECT list shared by GetByID and List. The owner row is
// joined in so reads return the nested user summary in one query.
const bugColumns = `
	b.id, b.title, b.description, b.steps_to_reproduce, b.expected_result,
	b.actual_result, b.environment, b.severity, b.status, b.tags,
	b.created_by, b.created_at, b.updated_at,
	u.id, u.username, u.email, u.created_at, u.updated_at`

// Create inserts a new bug report owned by bug.CreatedByID.
//
// The ID is a UUID generated here — bug report IDs are UUID strings on the
// wire. Timestamps are set once; CreatedAt never changes again.
//
// POINTER RECEIVER (*model.BugReport):
// We take a pointer so the caller's struct gets the generated ID and
// timestamps back after the insert.
func (db *DB) Create(ctx context.Context, bug *model.BugReport) error {
	bug.ID = uuid.NewString()

	now := time.Now().UTC()
	bug.CreatedAt = now
	bug.UpdatedAt = now

	tags, err := marshalTags(bug.Tags)
	if err != nil {
		return err
	}

	// Parameterized query — the ? placeholders are filled in order by the
	// driver, which handles escaping. Never build SQL with string concatenation.
	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO bug_reports (
			id, title, description, steps_to_reproduce, expected_result,
			actual_result, environment, severity, status, tags,
			created_by, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		bug.ID,
		bug.Title,
		bug.Description,
		bug.StepsToReproduce,
		bug.ExpectedResult,
		bug.ActualResult,
		bug.Environment,
		string(bug.Severity),
		string(bug.Status),
		tags,
		bug.CreatedByID,
		bug.CreatedAt,
		bug.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating bug report: %w", err)
	}

	return nil
}

// GetByID retrieves a single bug report owned by ownerID.
//
// OWNERSHIP SCOPING:
// The WHERE clause matches on id AND created_by together. A report that
// exists but belongs to another user produces sql.ErrNoRows exactly like a
// report that doesn't exist at all, so the caller sees NotFound in both
// cases and can't probe for other users' records.
func (db *DB) GetByID(ctx context.Context, ownerID, id string) (*model.BugReport, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+bugColumns+`
		 FROM bug_reports b
		 JOIN users u ON u.id = b.created_by
		 WHERE b.id = ? AND b.created_by = ?`,
		id, ownerID,
	)

	bug, err := scanBug(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("bug report", id)
		}
		return nil, fmt.Errorf("sqlite: getting bug report %s: %w", id, err)
	}

	return bug, nil
}

// List retrieves one page of the owner's bug reports matching opts, plus the
// total number of matches.
//
// The WHERE clause is built dynamically but every user-supplied value goes
// through a ? placeholder, and the ORDER BY column comes from a fixed
// whitelist — nothing from the request is ever spliced into the SQL text.
func (db *DB) List(ctx context.Context, ownerID string, opts repository.ListOptions) ([]model.BugReport, int, error) {
	where, args := buildBugFilter(ownerID, opts)

	// Total count across all pages, same filter.
	var total int
	countArgs := make([]any, len(args))
	copy(countArgs, args)
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bug_reports b WHERE `+where,
		countArgs...,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: counting bug reports: %w", err)
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	query := `SELECT ` + bugColumns + `
		 FROM bug_reports b
		 JOIN users u ON u.id = b.created_by
		 WHERE ` + where + `
		 ORDER BY ` + orderClause(opts) + `
		 LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: listing bug reports: %w", err)
	}
	defer rows.Close()

	bugs := make([]model.BugReport, 0, limit)
	for rows.Next() {
		bug, err := scanBug(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("sqlite: scanning bug report row: %w", err)
		}
		bugs = append(bugs, *bug)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("sqlite: iterating bug reports: %w", err)
	}

	return bugs, total, nil
}

// Update persists a modified bug report.
//
// The WHERE clause matches id AND created_by, so an update against someone
// else's record affects zero rows and reports NotFound — same as Delete.
// id, created_by, and created_at are never part of the SET list.
func (db *DB) Update(ctx context.Context, bug *model.BugReport) error {
	bug.UpdatedAt = time.Now().UTC()

	tags, err := marshalTags(bug.Tags)
	if err != nil {
		return err
	}

	result, err := db.conn.ExecContext(ctx,
		`UPDATE bug_reports
		 SET title = ?, description = ?, steps_to_reproduce = ?,
		     expected_result = ?, actual_result = ?, environment = ?,
		     severity = ?, status = ?, tags = ?, updated_at = ?
		 WHERE id = ? AND created_by = ?`,
		bug.Title,
		bug.Description,
		bug.StepsToReproduce,
		bug.ExpectedResult,
		bug.ActualResult,
		bug.Environment,
		string(bug.Severity),
		string(bug.Status),
		tags,
		bug.UpdatedAt,
		bug.ID,
		bug.CreatedByID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating bug report %s: %w", bug.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("bug report", bug.ID)
	}

	return nil
}

// Delete removes the owner's bug report. Zero rows affected means the record
// is missing or owned by someone else — NotFound either way.
func (db *DB) Delete(ctx context.Context, ownerID, id string) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM bug_reports WHERE id = ? AND created_by = ?`,
		id, ownerID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting bug report %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("bug report", id)
	}

	return nil
}

// buildBugFilter translates ListOptions into a WHERE clause and its
// arguments. Ownership scoping comes first and is unconditional; every
// further criterion narrows with AND.
func buildBugFilter(ownerID string, opts repository.ListOptions) (string, []any) {
	where := []string{"b.created_by = ?"}
	args := []any{ownerID}

	if opts.Severity != "" {
		where = append(where, "b.severity = ?")
		args = append(args, string(opts.Severity))
	}
	if opts.Status != "" {
		where = append(where, "b.status = ?")
		args = append(args, string(opts.Status))
	}
	if opts.Tag != "" {
		// Stored tags are already lower-cased, so lower-casing the needle
		// makes the membership test case-insensitive. json_each unpacks the
		// JSON array column into rows for an exact-match EXISTS probe.
		where = append(where, `EXISTS (
			SELECT 1 FROM json_each(b.tags) WHERE json_each.value = ?)`)
		args = append(args, strings.ToLower(strings.TrimSpace(opts.Tag)))
	}
	if opts.CreatedAfter != nil {
		where = append(where, "b.created_at >= ?")
		args = append(args, opts.CreatedAfter.UTC())
	}
	if opts.CreatedBefore != nil {
		where = append(where, "b.created_at <= ?")
		args = append(args, opts.CreatedBefore.UTC())
	}
	if opts.Search != "" {
		// instr() instead of LIKE: the search term is treated literally, so
		// % and _ in user input need no escaping. ulower() is the custom
		// Unicode-aware fold registered in sqlite.go — built-in lower() only
		// folds ASCII, which would make search case-sensitive for titles
		// like 'Überraschung'.
		where = append(where, "(instr(ulower(b.title), ?) > 0 OR instr(ulower(b.description), ?) > 0)")
		needle := strings.ToLower(opts.Search)
		args = append(args, needle, needle)
	}

	return strings.Join(where, " AND "), args
}

// orderClause maps ListOptions ordering onto a whitelisted ORDER BY.
// Unknown fields fall back to the default: created_at descending.
func orderClause(opts repository.ListOptions) string {
	column := ""
	switch opts.OrderBy {
	case repository.OrderCreatedAt:
		column = "b.created_at"
	case repository.OrderUpdatedAt:
		column = "b.updated_at"
	case repository.OrderSeverity:
		column = "b.severity"
	case repository.OrderStatus:
		column = "b.status"
	case repository.OrderTitle:
		column = "b.title"
	}

	if column == "" {
		return "b.created_at DESC"
	}
	if opts.Descending {
		return column + " DESC"
	}
	return column + " ASC"
}

// rowScanner covers both *sql.Row and *sql.Rows so GetByID and List share
// one scan function.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanBug(row rowScanner) (*model.BugReport, error) {
	var (
		bug     model.BugReport
		owner   model.User
		rawTags string
	)

	err := row.Scan(
		&bug.ID,
		&bug.Title,
		&bug.Description,
		&bug.StepsToReproduce,
		&bug.ExpectedResult,
		&bug.ActualResult,
		&bug.Environment,
		&bug.Severity,
		&bug.Status,
		&rawTags,
		&bug.CreatedByID,
		&bug.CreatedAt,
		&bug.UpdatedAt,
		&owner.ID,
		&owner.Username,
		&owner.Email,
		&owner.CreatedAt,
		&owner.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	bug.Tags = []string{}
	if rawTags != "" {
		if err := json.Unmarshal([]byte(rawTags), &bug.Tags); err != nil {
			return nil, fmt.Errorf("decoding tags for bug report %s: %w", bug.ID, err)
		}
	}
	bug.CreatedBy = &owner

	return &bug, nil
}

func marshalTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	raw, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("sqlite: encoding tags: %w", err)
	}
	return string(raw), nil
}
