package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/bugtracker/internal/auth"
	"github.com/sakif/bugtracker/internal/model"
	"github.com/sakif/bugtracker/internal/service"
)

// AuthHandler exposes registration and the token endpoints.
//
// HANDLER RESPONSIBILITIES:
//   - HandleRegister → create an account, return the user summary
//   - HandleToken    → exchange username+password for access+refresh tokens
//   - HandleRefresh  → exchange a refresh token for a new access token
//   - HandleMe       → return the authenticated account's summary
//
// The handler only parses JSON and maps errors to status codes. Field
// validation, password policy, hashing, and token issuance all live in
// AuthService.
type AuthHandler struct {
	auth   *service.AuthService
	logger *slog.Logger
}

// NewAuthHandler creates an AuthHandler. All dependencies are injected here;
// the handler has no knowledge of how they're constructed.
func NewAuthHandler(auth *service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		auth:   auth,
		logger: logger,
	}
}

// registerRequest is the input shape for registration. Plain strings, not
// pointers — every field is required, so "absent" and "empty" mean the same
// thing here.
type registerRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
}

// userResponse is the public summary of an account. The password hash is
// excluded from the model's JSON already; this type additionally drops the
// timestamps from auth responses.
type userResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

func toUserResponse(u *model.User) userResponse {
	return userResponse{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
	}
}

// HandleRegister creates a new user account.
//
// HTTP: POST /auth/register
// BODY: {"username", "email", "password", "password_confirm"}
//
// 201 with {"message", "user"} on success; 400 with per-field errors on
// invalid input, including mismatched password confirmation and duplicate
// username/email.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.auth.Register(r.Context(), service.RegisterInput{
		Username:        req.Username,
		Email:           req.Email,
		Password:        req.Password,
		PasswordConfirm: req.PasswordConfirm,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "User registered successfully.",
		"user":    toUserResponse(user),
	})
}

// tokenRequest is the credential-exchange input.
type tokenRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// HandleToken exchanges credentials for an access+refresh token pair.
//
// HTTP: POST /auth/token
// BODY: {"username", "password"}
//
// 200 with {"access", "refresh"}, or 401 on bad credentials. Unknown
// username and wrong password are indistinguishable.
func (h *AuthHandler) HandleToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	pair, err := h.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"access":  pair.Access,
		"refresh": pair.Refresh,
	})
}

// refreshRequest carries the long-lived refresh token.
type refreshRequest struct {
	Refresh string `json:"refresh"`
}

// HandleRefresh exchanges a refresh token for a new access token.
//
// HTTP: POST /auth/token/refresh
// BODY: {"refresh"}
//
// 200 with {"access"}, or 401 if the token is invalid, expired, the wrong
// type (an access token), or belongs to a deleted account.
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	access, err := h.auth.Refresh(r.Context(), req.Refresh)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"access": access,
	})
}

// HandleMe returns the summary of the account the access token belongs to.
// Clients use it to show who is logged in without decoding the JWT.
//
// HTTP: GET /auth/me (behind RequireAuth)
//
// 200 with the user summary, or 404 if the account was deleted after the
// token was issued.
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}

	user, err := h.auth.GetUserByID(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}
