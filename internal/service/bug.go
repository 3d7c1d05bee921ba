// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces ownership, orchestrates
//	Repository (Data layer)  → reads/writes to the database
//
// The service layer has ZERO knowledge of HTTP. It takes plain values plus
// a context, returns domain values and domain errors, and could be driven
// just as well from a CLI tool or a background job as from a handler.
//
// DEPENDENCY INJECTION:
// BugService takes a repository.BugRepository (interface), NOT a concrete
// *sqlite.DB. Tests pass an in-memory mock; production passes SQLite; the
// service can't tell the difference.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/bugtracker/internal/apperror"
	"github.com/sakif/bugtracker/internal/model"
	"github.com/sakif/bugtracker/internal/repository"
)

// BugService handles business logic for bug reports: field validation,
// defaulting, and ownership pass-through.
//
// Every method takes the owner ID as an explicit argument — the current
// identity is never ambient state. The repository scopes each query with
// it, so a caller can only ever see or touch their own reports.
type BugService struct {
	bugs   repository.BugRepository
	logger *slog.Logger
}

// NewBugService creates a BugService.
func NewBugService(bugs repository.BugRepository, logger *slog.Logger) *BugService {
	return &BugService{
		bugs:   bugs,
		logger: logger,
	}
}

// BugInput is the explicit input shape for create and update operations.
//
// Pointer fields distinguish "not provided" (nil) from "provided as empty".
// That distinction is what makes PATCH work: a nil field is left alone, a
// non-nil one is applied. Tags uses nil-slice-means-absent for the same
// reason. The output shape lives in the handler layer — input and output
// are deliberately two different types.
type BugInput struct {
	Title            *string
	Description      *string
	StepsToReproduce *string
	ExpectedResult   *string
	ActualResult     *string
	Environment      *string
	Severity         *string
	Status           *string
	Tags             []string
}

// Create validates the input and persists a new bug report owned by ownerID.
//
// Validation never fails fast: every invalid field is checked and reported,
// one error per field. Invalid input is data, not a fault — nothing here
// panics or logs an error for a short title.
//
// The owner is always ownerID (taken from the authenticated identity);
// nothing the client sends can change that. Severity defaults to medium and
// status to open when not provided.
func (s *BugService) Create(ctx context.Context, ownerID string, in BugInput) (*model.BugReport, error) {
	bug := &model.BugReport{
		Severity:    model.SeverityMedium,
		Status:      model.StatusOpen,
		Tags:        []string{},
		CreatedByID: ownerID,
	}

	fieldErrs := &apperror.FieldErrors{}

	if in.Title == nil {
		fieldErrs.AddField("title", "This field is required.")
	} else {
		bug.Title = *in.Title
		fieldErrs.Add(model.ValidateTitle(bug.Title))
	}

	if in.Description == nil {
		fieldErrs.AddField("description", "This field is required.")
	} else {
		bug.Description = *in.Description
		fieldErrs.Add(model.ValidateDescription(bug.Description))
	}

	applyOptional(bug, in, fieldErrs)

	if err := fieldErrs.ErrOrNil(); err != nil {
		return nil, err
	}

	if err := s.bugs.Create(ctx, bug); err != nil {
		s.logger.Error("failed to create bug report",
			slog.String("ownerID", ownerID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating bug report: %w", err)
	}

	s.logger.Info("bug report created",
		slog.String("id", bug.ID),
		slog.String("ownerID", ownerID),
		slog.String("severity", string(bug.Severity)),
	)

	// Re-read so the response carries the joined owner summary.
	return s.bugs.GetByID(ctx, ownerID, bug.ID)
}

// GetByID retrieves one of the owner's bug reports.
// A report owned by someone else is NotFound, indistinguishable from a
// report that doesn't exist.
func (s *BugService) GetByID(ctx context.Context, ownerID, id string) (*model.BugReport, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "bug report ID is required")
	}

	return s.bugs.GetByID(ctx, ownerID, id)
}

// List retrieves one page of the owner's bug reports with the given filters,
// plus the total match count.
func (s *BugService) List(ctx context.Context, ownerID string, opts repository.ListOptions) ([]model.BugReport, int, error) {
	bugs, total, err := s.bugs.List(ctx, ownerID, opts)
	if err != nil {
		s.logger.Error("failed to list bug reports",
			slog.String("ownerID", ownerID),
			slog.String("error", err.Error()),
		)
		return nil, 0, fmt.Errorf("listing bug reports: %w", err)
	}
	return bugs, total, nil
}

// Update modifies one of the owner's bug reports.
//
// STRATEGY: fetch then update. The fetch is ownership-scoped, so a
// not-owned ID fails with NotFound before any field is touched.
//
// partial=true (PATCH): only fields present in the input change.
// partial=false (PUT): a full replace — title and description are required,
// and omitted optional fields reset to their defaults.
//
// Either way id, created_by, and created_at are immutable; updated_at is
// refreshed by the repository on write.
func (s *BugService) Update(ctx context.Context, ownerID, id string, in BugInput, partial bool) (*model.BugReport, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "bug report ID is required")
	}

	bug, err := s.bugs.GetByID(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	fieldErrs := &apperror.FieldErrors{}

	if !partial {
		// Full update: required fields must be present, everything else
		// falls back to its default before provided values are applied.
		if in.Title == nil {
			fieldErrs.AddField("title", "This field is required.")
		}
		if in.Description == nil {
			fieldErrs.AddField("description", "This field is required.")
		}
		bug.StepsToReproduce = ""
		bug.ExpectedResult = ""
		bug.ActualResult = ""
		bug.Environment = ""
		bug.Severity = model.SeverityMedium
		bug.Status = model.StatusOpen
		bug.Tags = []string{}
	}

	if in.Title != nil {
		bug.Title = *in.Title
		fieldErrs.Add(model.ValidateTitle(bug.Title))
	}
	if in.Description != nil {
		bug.Description = *in.Description
		fieldErrs.Add(model.ValidateDescription(bug.Description))
	}

	applyOptional(bug, in, fieldErrs)

	if err := fieldErrs.ErrOrNil(); err != nil {
		return nil, err
	}

	if err := s.bugs.Update(ctx, bug); err != nil {
		s.logger.Error("failed to update bug report",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	s.logger.Info("bug report updated",
		slog.String("id", bug.ID),
		slog.String("ownerID", ownerID),
	)

	return s.bugs.GetByID(ctx, ownerID, id)
}

// Delete removes one of the owner's bug reports.
func (s *BugService) Delete(ctx context.Context, ownerID, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return apperror.ValidationFailed("id", "bug report ID is required")
	}

	if err := s.bugs.Delete(ctx, ownerID, id); err != nil {
		return err
	}

	s.logger.Info("bug report deleted",
		slog.String("id", id),
		slog.String("ownerID", ownerID),
	)
	return nil
}

// applyOptional applies the optional fields shared by create and update,
// validating each provided value. The validators are independent — every
// failing field contributes its own entry.
func applyOptional(bug *model.BugReport, in BugInput, fieldErrs *apperror.FieldErrors) {
	if in.StepsToReproduce != nil {
		bug.StepsToReproduce = *in.StepsToReproduce
	}
	if in.ExpectedResult != nil {
		bug.ExpectedResult = *in.ExpectedResult
	}
	if in.ActualResult != nil {
		bug.ActualResult = *in.ActualResult
	}
	if in.Environment != nil {
		bug.Environment = *in.Environment
	}

	// A provided value is validated as-is: "" is not one of the four codes,
	// so {"severity": ""} is an InvalidChoice error, not a fallback to the
	// default. Only an absent (nil) field keeps the default/existing value.
	if in.Severity != nil {
		sev := model.Severity(*in.Severity)
		if err := model.ValidateSeverity(sev); err != nil {
			fieldErrs.Add(err)
		} else {
			bug.Severity = sev
		}
	}
	if in.Status != nil {
		st := model.Status(*in.Status)
		if err := model.ValidateStatus(st); err != nil {
			fieldErrs.Add(err)
		} else {
			bug.Status = st
		}
	}

	if in.Tags != nil {
		cleaned, err := model.CleanTags(in.Tags)
		if err != nil {
			fieldErrs.Add(err)
		} else {
			bug.Tags = cleaned
		}
	}
}
