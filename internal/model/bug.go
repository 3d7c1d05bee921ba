// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data — similar to classes in other languages,
// but without inheritance. Go favours composition over inheritance.
package model

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sakif/bugtracker/internal/apperror"
)

// Severity classifies a bug report's impact.
//
// TYPED STRING ENUMS IN GO:
// Go has no enum keyword. The idiom is a named string type plus a group of
// typed constants. The type makes function signatures self-documenting
// (you can't accidentally pass a status where a severity belongs), while
// the underlying string is exactly what goes over the wire and into the DB.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Status tracks a bug report's workflow state.
//
// There is deliberately NO transition graph — any status may move to any
// other status at any time. Enforcement of a workflow is out of scope.
type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusResolved   Status = "resolved"
	StatusClosed     Status = "closed"
)

// Severities lists the valid severity codes in display order.
var Severities = []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}

// Statuses lists the valid status codes in display order.
var Statuses = []Status{StatusOpen, StatusInProgress, StatusResolved, StatusClosed}

// Valid reports whether s is one of the four known severity codes.
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// Display returns the human-readable label for the severity code,
// e.g. "critical" → "Critical".
func (s Severity) Display() string {
	switch s {
	case SeverityLow:
		return "Low"
	case SeverityMedium:
		return "Medium"
	case SeverityHigh:
		return "High"
	case SeverityCritical:
		return "Critical"
	}
	return string(s)
}

// Valid reports whether s is one of the four known status codes.
func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusResolved, StatusClosed:
		return true
	}
	return false
}

// Display returns the human-readable label for the status code,
// e.g. "in_progress" → "In Progress".
func (s Status) Display() string {
	switch s {
	case StatusOpen:
		return "Open"
	case StatusInProgress:
		return "In Progress"
	case StatusResolved:
		return "Resolved"
	case StatusClosed:
		return "Closed"
	}
	return string(s)
}

// Validation constants for bug report fields.
const (
	MinTitleLength       = 5
	MaxTitleLength       = 255
	MinDescriptionLength = 10
	MaxTagLength         = 50
)

// BugReport represents a single bug report owned by exactly one user.
//
// ID is a UUID generated at creation and immutable afterwards, as are
// CreatedByID and CreatedAt. UpdatedAt is refreshed on every mutation.
//
// The struct carries db-facing fields only; the wire representation
// (display labels, nested owner summary) is built in the handler layer —
// input and output are two explicit shapes, not one struct doing both jobs.
type BugReport struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	StepsToReproduce string    `json:"steps_to_reproduce"`
	ExpectedResult   string    `json:"expected_result"`
	ActualResult     string    `json:"actual_result"`
	Environment      string    `json:"environment"`
	Severity         Severity  `json:"severity"`
	Status           Status    `json:"status"`
	Tags             []string  `json:"tags"`
	CreatedByID      string    `json:"created_by_id"`
	CreatedBy        *User     `json:"created_by,omitempty"` // populated on reads via JOIN
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// ValidateTitle checks the 5–255 character constraint.
// Lengths are counted in characters (runes), not bytes — "héllo" is 5.
// Returns nil if the title is valid.
func ValidateTitle(title string) *apperror.AppError {
	n := utf8.RuneCountInString(title)
	if n < MinTitleLength {
		return apperror.ValidationFailed("title",
			fmt.Sprintf("Title must be at least %d characters long.", MinTitleLength))
	}
	if n > MaxTitleLength {
		return apperror.ValidationFailed("title",
			fmt.Sprintf("Title must not exceed %d characters.", MaxTitleLength))
	}
	return nil
}

// ValidateDescription checks the minimum-length constraint.
// There is no enforced maximum.
func ValidateDescription(description string) *apperror.AppError {
	if utf8.RuneCountInString(description) < MinDescriptionLength {
		return apperror.ValidationFailed("description",
			fmt.Sprintf("Description must be at least %d characters long.", MinDescriptionLength))
	}
	return nil
}

// ValidateSeverity checks membership in the fixed four-value enumeration.
func ValidateSeverity(s Severity) *apperror.AppError {
	if !s.Valid() {
		return apperror.ValidationFailed("severity",
			fmt.Sprintf("Invalid severity. Choose from: %s", joinSeverities()))
	}
	return nil
}

// ValidateStatus checks membership in the fixed four-value enumeration.
func ValidateStatus(s Status) *apperror.AppError {
	if !s.Valid() {
		return apperror.ValidationFailed("status",
			fmt.Sprintf("Invalid status. Choose from: %s", joinStatuses()))
	}
	return nil
}

// CleanTags normalizes a tag list: each tag is trimmed and lower-cased,
// empty tags are silently dropped after cleaning, and the input order of
// surviving tags is preserved. A tag longer than MaxTagLength characters
// after trimming is an error; the message quotes only the first 20
// characters so a pathological tag can't flood the response.
//
// Cleaning is idempotent — running it over already-clean tags returns the
// same tags.
func CleanTags(tags []string) ([]string, *apperror.AppError) {
	if len(tags) == 0 {
		return []string{}, nil
	}

	cleaned := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if utf8.RuneCountInString(tag) > MaxTagLength {
			return nil, apperror.ValidationFailed("tags",
				fmt.Sprintf("Tag '%s...' exceeds %d characters.", firstRunes(tag, 20), MaxTagLength))
		}
		if tag == "" {
			continue
		}
		cleaned = append(cleaned, tag)
	}
	return cleaned, nil
}

// firstRunes returns the first n runes of s (all of s if it's shorter).
func firstRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func joinSeverities() string {
	codes := make([]string, len(Severities))
	for i, s := range Severities {
		codes[i] = string(s)
	}
	return strings.Join(codes, ", ")
}

func joinStatuses() string {
	codes := make([]string, len(Statuses))
	for i, s := range Statuses {
		codes[i] = string(s)
	}
	return strings.Join(codes, ", ")
}
