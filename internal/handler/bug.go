package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sakif/bugtracker/internal/apperror"
	"github.com/sakif/bugtracker/internal/auth"
	"github.com/sakif/bugtracker/internal/model"
	"github.com/sakif/bugtracker/internal/repository"
	"github.com/sakif/bugtracker/internal/service"
)

// BugHandler manages CRUD operations for bug reports.
//
// Every route it serves sits behind auth.RequireAuth, so the owner ID is
// always present in the request context. The handler reads it once per
// request and passes it down explicitly — the service and repository never
// reach into ambient state for the current identity.
type BugHandler struct {
	bugs   *service.BugService
	logger *slog.Logger
}

// NewBugHandler creates a BugHandler.
func NewBugHandler(bugs *service.BugService, logger *slog.Logger) *BugHandler {
	return &BugHandler{
		bugs:   bugs,
		logger: logger,
	}
}

// bugRequest is the input shape for create and update.
//
// Pointer fields let PATCH distinguish "field absent" from "field set to
// empty". Owner, id, and timestamps are deliberately NOT here: anything the
// client sends for them has no field to land in and is ignored by the
// decoder. Input and output are two explicit types — no shared struct
// branching on the action.
type bugRequest struct {
	Title            *string  `json:"title"`
	Description      *string  `json:"description"`
	StepsToReproduce *string  `json:"steps_to_reproduce"`
	ExpectedResult   *string  `json:"expected_result"`
	ActualResult     *string  `json:"actual_result"`
	Environment      *string  `json:"environment"`
	Severity         *string  `json:"severity"`
	Status           *string  `json:"status"`
	Tags             []string `json:"tags"`
}

func (r bugRequest) toInput() service.BugInput {
	return service.BugInput{
		Title:            r.Title,
		Description:      r.Description,
		StepsToReproduce: r.StepsToReproduce,
		ExpectedResult:   r.ExpectedResult,
		ActualResult:     r.ActualResult,
		Environment:      r.Environment,
		Severity:         r.Severity,
		Status:           r.Status,
		Tags:             r.Tags,
	}
}

// bugResponse is the output shape: enum codes plus their human-readable
// display labels, tags as a string array, RFC 3339 timestamps, and the
// owner as a nested summary.
type bugResponse struct {
	ID               string       `json:"id"`
	Title            string       `json:"title"`
	Description      string       `json:"description"`
	StepsToReproduce string       `json:"steps_to_reproduce"`
	ExpectedResult   string       `json:"expected_result"`
	ActualResult     string       `json:"actual_result"`
	Severity         string       `json:"severity"`
	SeverityDisplay  string       `json:"severity_display"`
	Status           string       `json:"status"`
	StatusDisplay    string       `json:"status_display"`
	Environment      string       `json:"environment"`
	Tags             []string     `json:"tags"`
	CreatedBy        userResponse `json:"created_by"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

func toBugResponse(b *model.BugReport) bugResponse {
	resp := bugResponse{
		ID:               b.ID,
		Title:            b.Title,
		Description:      b.Description,
		StepsToReproduce: b.StepsToReproduce,
		ExpectedResult:   b.ExpectedResult,
		ActualResult:     b.ActualResult,
		Severity:         string(b.Severity),
		SeverityDisplay:  b.Severity.Display(),
		Status:           string(b.Status),
		StatusDisplay:    b.Status.Display(),
		Environment:      b.Environment,
		Tags:             b.Tags,
		CreatedAt:        b.CreatedAt,
		UpdatedAt:        b.UpdatedAt,
	}
	if resp.Tags == nil {
		resp.Tags = []string{}
	}
	if b.CreatedBy != nil {
		resp.CreatedBy = toUserResponse(b.CreatedBy)
	}
	return resp
}

// listResponse wraps a page of results with the total match count so
// clients can page with limit/offset.
type listResponse struct {
	Count   int           `json:"count"`
	Results []bugResponse `json:"results"`
}

// HandleList returns the caller's bug reports, filtered and ordered.
//
// HTTP: GET /bugs
// QUERY: severity, status, tags (single tag), created_after, created_before
// (RFC 3339), search, ordering ("-created_at" style), limit, offset.
//
// Filters combine with AND; search matches title OR description. Invalid
// ordering fields fall back to the default (newest first) rather than
// erroring, and unknown severity/status values simply match nothing.
func (h *BugHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}

	opts, err := parseListOptions(r)
	if err != nil {
		writeError(w, err)
		return
	}

	bugs, total, err := h.bugs.List(r.Context(), ownerID, opts)
	if err != nil {
		writeError(w, err)
		return
	}

	results := make([]bugResponse, 0, len(bugs))
	for i := range bugs {
		results = append(results, toBugResponse(&bugs[i]))
	}

	writeJSON(w, http.StatusOK, listResponse{
		Count:   total,
		Results: results,
	})
}

// HandleCreate creates a bug report owned by the caller.
//
// HTTP: POST /bugs
//
// 201 with the full record, or 400 with one error per invalid field. The
// owner is set server-side from the token; a client-supplied owner is
// ignored (the request type has no field for it).
func (h *BugHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}

	var req bugRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	bug, err := h.bugs.Create(r.Context(), ownerID, req.toInput())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toBugResponse(bug))
}

// HandleGetByID returns one of the caller's bug reports.
//
// HTTP: GET /bugs/{id}
//
// 200, or 404 — including when the record exists but belongs to another
// user.
func (h *BugHandler) HandleGetByID(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}

	bug, err := h.bugs.GetByID(r.Context(), ownerID, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toBugResponse(bug))
}

// HandleUpdate fully replaces one of the caller's bug reports.
//
// HTTP: PUT /bugs/{id}
//
// title and description are required; optional fields omitted from the body
// reset to their defaults.
func (h *BugHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, false)
}

// HandlePatch partially updates one of the caller's bug reports — only the
// fields present in the body change.
//
// HTTP: PATCH /bugs/{id}
func (h *BugHandler) HandlePatch(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, true)
}

func (h *BugHandler) update(w http.ResponseWriter, r *http.Request, partial bool) {
	ownerID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}

	var req bugRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	bug, err := h.bugs.Update(r.Context(), ownerID, r.PathValue("id"), req.toInput(), partial)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toBugResponse(bug))
}

// HandleDelete removes one of the caller's bug reports.
//
// HTTP: DELETE /bugs/{id}
//
// 204 on success, 404 if the record is missing or owned by someone else.
func (h *BugHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}

	if err := h.bugs.Delete(r.Context(), ownerID, r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// parseListOptions reads the list query parameters.
//
// created_after/created_before must be RFC 3339 instants; a malformed value
// is a field-level validation error. The ordering parameter follows the
// "-field" convention: a leading minus means descending.
func parseListOptions(r *http.Request) (repository.ListOptions, error) {
	q := r.URL.Query()

	opts := repository.ListOptions{
		Severity: model.Severity(q.Get("severity")),
		Status:   model.Status(q.Get("status")),
		Tag:      q.Get("tags"),
		Search:   q.Get("search"),
	}

	if v := q.Get("created_after"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return opts, apperror.ValidationFailed("created_after", "Enter a valid RFC 3339 date/time.")
		}
		opts.CreatedAfter = &t
	}
	if v := q.Get("created_before"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return opts, apperror.ValidationFailed("created_before", "Enter a valid RFC 3339 date/time.")
		}
		opts.CreatedBefore = &t
	}

	if ordering := q.Get("ordering"); ordering != "" {
		field, desc := strings.CutPrefix(ordering, "-")
		opts.OrderBy = field
		opts.Descending = desc
	}

	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			opts.Limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			opts.Offset = n
		}
	}

	return opts, nil
}

func writeUnauthorized(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnauthorized, ErrorResponse{
		Error:   "unauthorized",
		Message: "valid authentication required",
	})
}
