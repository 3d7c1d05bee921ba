// Package service — authentication business logic.
//
// AuthService is the business logic layer for identity. It sits between
// the HTTP handlers and the repository/auth utilities:
//
//	AuthHandler (HTTP) → AuthService (business rules) → UserRepository (DB)
//	                   ↘ TokenService (JWT), PasswordService (bcrypt)
//
// KEY RESPONSIBILITIES:
//   - Registration: field validation, password confirmation and strength,
//     duplicate detection, hashing — the plaintext password never reaches
//     the repository
//   - Credential exchange: verify username+password, issue access+refresh
//   - Token refresh: verify a refresh token, issue a new access token
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"

	"github.com/sakif/bugtracker/internal/apperror"
	"github.com/sakif/bugtracker/internal/auth"
	"github.com/sakif/bugtracker/internal/model"
	"github.com/sakif/bugtracker/internal/repository"
)

// MaxUsernameLength caps usernames at registration.
const MaxUsernameLength = 150

// badCredentials is the single message for every login failure. Unknown
// username and wrong password produce byte-identical responses so an
// attacker can't enumerate accounts.
const badCredentials = "No active account found with the given credentials"

// AuthService handles registration and the token lifecycle.
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

// NewAuthService creates an AuthService with all required dependencies.
// Call this in server.go when wiring the dependency graph.
func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// RegisterInput is the explicit input shape for registration.
type RegisterInput struct {
	Username        string
	Email           string
	Password        string
	PasswordConfirm string
}

// TokenPair bundles the two tokens issued by a successful credential
// exchange.
type TokenPair struct {
	Access  string
	Refresh string
}

// Register validates the input and creates exactly one user account.
//
// All field checks run independently and every failing field is reported:
// a request with a bad email AND mismatched passwords gets both errors in
// one response. The password is hashed before it goes anywhere near the
// repository; the plaintext is never stored or logged.
//
// A duplicate username or email comes back from the repository as a
// field-level validation error, same shape as the local checks.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	fieldErrs := &apperror.FieldErrors{}

	if in.Username == "" {
		fieldErrs.AddField("username", "This field is required.")
	} else if len(in.Username) > MaxUsernameLength {
		fieldErrs.AddField("username",
			fmt.Sprintf("Ensure this field has no more than %d characters.", MaxUsernameLength))
	}

	if in.Email == "" {
		fieldErrs.AddField("email", "This field is required.")
	} else if _, err := mail.ParseAddress(in.Email); err != nil {
		fieldErrs.AddField("email", "Enter a valid email address.")
	}

	if in.Password == "" {
		fieldErrs.AddField("password", "This field is required.")
	} else {
		fieldErrs.Add(s.passwords.ValidateStrength(in.Password, in.Username, in.Email))
	}

	if in.PasswordConfirm == "" {
		fieldErrs.AddField("password_confirm", "This field is required.")
	} else if in.Password != "" && in.Password != in.PasswordConfirm {
		// The mismatch is reported on password_confirm only.
		fieldErrs.AddField("password_confirm", "Passwords don't match.")
	}

	if err := fieldErrs.ErrOrNil(); err != nil {
		return nil, err
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: hashing password: %w", err)
	}

	user := &model.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		// Duplicate username/email is a validation error — pass it through
		// untouched so the handler reports it on the offending field.
		if errors.Is(err, apperror.ErrValidation) {
			return nil, err
		}
		return nil, fmt.Errorf("service/auth: creating user %s: %w", in.Username, err)
	}

	s.logger.Info("user registered",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
	)

	return user, nil
}

// Login exchanges a username and password for an access+refresh token pair.
//
// Every failure path returns the same Unauthorized error: the caller learns
// nothing about whether the username exists.
func (s *AuthService) Login(ctx context.Context, username, password string) (*TokenPair, error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized(badCredentials)
		}
		return nil, fmt.Errorf("service/auth: looking up user %s: %w", username, err)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		return nil, apperror.Unauthorized(badCredentials)
	}

	access, err := s.tokens.GenerateAccess(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating access token for user %s: %w", user.ID, err)
	}
	refresh, err := s.tokens.GenerateRefresh(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating refresh token for user %s: %w", user.ID, err)
	}

	s.logger.Info("user logged in",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
	)

	return &TokenPair{Access: access, Refresh: refresh}, nil
}

// Refresh exchanges a valid refresh token for a new access token.
//
// The user is looked up again so refresh tokens of deleted accounts stop
// working immediately, not at token expiry.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	userID, err := s.tokens.ValidateRefresh(refreshToken)
	if err != nil {
		return "", apperror.Unauthorized("Token is invalid or expired")
	}

	if _, err := s.users.GetUserByID(ctx, userID); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return "", apperror.Unauthorized("Token is invalid or expired")
		}
		return "", fmt.Errorf("service/auth: looking up user %s: %w", userID, err)
	}

	access, err := s.tokens.GenerateAccess(userID)
	if err != nil {
		return "", fmt.Errorf("service/auth: generating access token for user %s: %w", userID, err)
	}

	return access, nil
}

// GetUserByID returns the user for the given internal ID.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, fmt.Errorf("service/auth: user ID must not be empty")
	}

	return s.users.GetUserByID(ctx, id)
}
