package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sakif/bugtracker/internal/auth"
	"github.com/sakif/bugtracker/internal/handler"
	"github.com/sakif/bugtracker/internal/repository/sqlite"
	"github.com/sakif/bugtracker/internal/service"
)

// testEnv wires the full stack against an in-memory SQLite database:
// handlers → services → repository, exactly as server.go does it.
type testEnv struct {
	auth   *handler.AuthHandler
	bugs   *handler.BugHandler
	tokens *auth.TokenService
	db     *sqlite.DB
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to open in-memory database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	tokens, err := auth.NewTokenService("handler-test-secret-key")
	if err != nil {
		t.Fatalf("NewTokenService() error = %v", err)
	}
	passwords := auth.NewPasswordServiceForTest(4)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	authService := service.NewAuthService(db, tokens, passwords, logger)
	bugService := service.NewBugService(db, logger)

	return &testEnv{
		auth:   handler.NewAuthHandler(authService, logger),
		bugs:   handler.NewBugHandler(bugService, logger),
		tokens: tokens,
		db:     db,
	}
}

// postJSON builds a POST request with a JSON body.
func postJSON(t *testing.T, path, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// decodeBody decodes a recorded JSON response into a generic map.
func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	return body
}

// registerAlice registers a known account through the handler and returns
// the response body.
func registerAlice(t *testing.T, env *testEnv) map[string]any {
	t.Helper()
	rr := httptest.NewRecorder()
	env.auth.HandleRegister(rr, postJSON(t, "/auth/register", `{
		"username": "alice",
		"email": "alice@example.com",
		"password": "correct-horse-battery",
		"password_confirm": "correct-horse-battery"
	}`))
	if rr.Code != http.StatusCreated {
		t.Fatalf("registration failed: %d %s", rr.Code, rr.Body.String())
	}
	return decodeBody(t, rr)
}

// =========================================================================
// REGISTER
// =========================================================================

func TestHandleRegister(t *testing.T) {
	env := newTestEnv(t)

	body := registerAlice(t, env)

	assert.Equal(t, "User registered successfully.", body["message"])

	user, ok := body["user"].(map[string]any)
	if !ok {
		t.Fatalf("response has no user object: %v", body)
	}
	assert.Equal(t, "alice", user["username"])
	assert.Equal(t, "alice@example.com", user["email"])
	assert.NotEmpty(t, user["id"])
	// The hash must never leak into any response.
	assert.NotContains(t, user, "password_hash")
	assert.NotContains(t, user, "password")
}

func TestHandleRegister_ValidationErrors(t *testing.T) {
	env := newTestEnv(t)

	rr := httptest.NewRecorder()
	env.auth.HandleRegister(rr, postJSON(t, "/auth/register", `{
		"username": "bob",
		"email": "not-an-email",
		"password": "short1",
		"password_confirm": "different"
	}`))

	assert.Equal(t, http.StatusBadRequest, rr.Code)

	body := decodeBody(t, rr)
	assert.Equal(t, "validation_error", body["error"])

	fields, ok := body["fields"].(map[string]any)
	if !ok {
		t.Fatalf("response has no fields map: %v", body)
	}
	// One error per invalid field, all reported together.
	assert.Equal(t, "Enter a valid email address.", fields["email"])
	assert.Contains(t, fields["password"], "too short")
	assert.Equal(t, "Passwords don't match.", fields["password_confirm"])
}

func TestHandleRegister_DuplicateUsername(t *testing.T) {
	env := newTestEnv(t)
	registerAlice(t, env)

	rr := httptest.NewRecorder()
	env.auth.HandleRegister(rr, postJSON(t, "/auth/register", `{
		"username": "alice",
		"email": "second@example.com",
		"password": "correct-horse-battery",
		"password_confirm": "correct-horse-battery"
	}`))

	// Duplicates come back in the same 400 field-error shape as any other
	// invalid input, not as a separate conflict status.
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	body := decodeBody(t, rr)
	fields := body["fields"].(map[string]any)
	assert.Equal(t, "A user with that username already exists.", fields["username"])
}

func TestHandleRegister_InvalidJSON(t *testing.T) {
	env := newTestEnv(t)

	rr := httptest.NewRecorder()
	env.auth.HandleRegister(rr, postJSON(t, "/auth/register", `{"username":`))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

// =========================================================================
// TOKEN (LOGIN)
// =========================================================================

func TestHandleToken(t *testing.T) {
	env := newTestEnv(t)
	registerAlice(t, env)

	rr := httptest.NewRecorder()
	env.auth.HandleToken(rr, postJSON(t, "/auth/token", `{
		"username": "alice",
		"password": "correct-horse-battery"
	}`))

	assert.Equal(t, http.StatusOK, rr.Code)

	body := decodeBody(t, rr)
	access, _ := body["access"].(string)
	refresh, _ := body["refresh"].(string)
	assert.NotEmpty(t, access)
	assert.NotEmpty(t, refresh)

	// The access token must authenticate against the same token service.
	_, err := env.tokens.ValidateAccess(access)
	assert.NoError(t, err)
}

func TestHandleToken_BadCredentials(t *testing.T) {
	env := newTestEnv(t)
	registerAlice(t, env)

	cases := []struct {
		name string
		body string
	}{
		{"wrong password", `{"username": "alice", "password": "wrong-password-here"}`},
		{"unknown user", `{"username": "nobody", "password": "whatever-password"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			env.auth.HandleToken(rr, postJSON(t, "/auth/token", tc.body))

			assert.Equal(t, http.StatusUnauthorized, rr.Code)

			body := decodeBody(t, rr)
			assert.Equal(t, "No active account found with the given credentials", body["message"])
		})
	}
}

// =========================================================================
// TOKEN REFRESH
// =========================================================================

func TestHandleRefresh(t *testing.T) {
	env := newTestEnv(t)
	registerAlice(t, env)

	rr := httptest.NewRecorder()
	env.auth.HandleToken(rr, postJSON(t, "/auth/token", `{
		"username": "alice",
		"password": "correct-horse-battery"
	}`))
	refresh := decodeBody(t, rr)["refresh"].(string)

	rr = httptest.NewRecorder()
	env.auth.HandleRefresh(rr, postJSON(t, "/auth/token/refresh",
		`{"refresh": "`+refresh+`"}`))

	assert.Equal(t, http.StatusOK, rr.Code)

	body := decodeBody(t, rr)
	access, _ := body["access"].(string)
	assert.NotEmpty(t, access)
	_, err := env.tokens.ValidateAccess(access)
	assert.NoError(t, err)
}

func TestHandleRefresh_InvalidToken(t *testing.T) {
	env := newTestEnv(t)

	rr := httptest.NewRecorder()
	env.auth.HandleRefresh(rr, postJSON(t, "/auth/token/refresh",
		`{"refresh": "not-a-real-token"}`))

	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	body := decodeBody(t, rr)
	assert.Equal(t, "Token is invalid or expired", body["message"])
}

// =========================================================================
// ME
// =========================================================================

func TestHandleMe(t *testing.T) {
	env := newTestEnv(t)
	userID := registerOwner(t, env)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	env.auth.HandleMe(rr, asUser(req, userID))

	assert.Equal(t, http.StatusOK, rr.Code)

	body := decodeBody(t, rr)
	assert.Equal(t, userID, body["id"])
	assert.Equal(t, "alice", body["username"])
	assert.Equal(t, "alice@example.com", body["email"])
	assert.NotContains(t, body, "password_hash")
}

func TestHandleMe_NoIdentity(t *testing.T) {
	env := newTestEnv(t)

	rr := httptest.NewRecorder()
	env.auth.HandleMe(rr, httptest.NewRequest(http.MethodGet, "/auth/me", nil))

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestHandleMe_DeletedAccount(t *testing.T) {
	env := newTestEnv(t)
	userID := registerOwner(t, env)

	if err := env.db.DeleteUser(context.Background(), userID); err != nil {
		t.Fatalf("DeleteUser() error = %v", err)
	}

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	env.auth.HandleMe(rr, asUser(req, userID))

	// A token can outlive its account; the summary endpoint reports 404.
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
