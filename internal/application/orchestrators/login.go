package orchestrators

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"

	"golang.org/x/crypto/bcrypt"
)

// AdminCredentials is the single back-office account. PasswordHash (bcrypt) wins over Password.
type AdminCredentials struct {
	Username     string
	Password     string
	PasswordHash string
}

// LoginInput carries input for the login orchestrator.
type LoginInput struct {
	Username string
	Password string
}

// LoginResult carries the result of a successful login.
type LoginResult struct {
	Username string
}

// LoginDeps holds dependencies for Login.
type LoginDeps struct {
	Credentials AdminCredentials
}

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrLoginDisabled      = errors.New("admin login is not configured")
)

// ExecuteLogin checks admin credentials before a session is issued.
// PRE: Username and Password provided
// POST: Returns the username on success, ErrInvalidCredentials otherwise
// INVARIANT: An account with neither Password nor PasswordHash rejects every login
func ExecuteLogin(_ context.Context, input LoginInput, deps LoginDeps) (LoginResult, error) {
	creds := deps.Credentials
	if creds.Password == "" && creds.PasswordHash == "" {
		slog.Warn("auth_event", "event", "login_blocked", "reason", "not_configured")
		return LoginResult{}, ErrLoginDisabled
	}
	if input.Username == "" || input.Password == "" {
		return LoginResult{}, ErrInvalidCredentials
	}

	userOK := subtle.ConstantTimeCompare([]byte(input.Username), []byte(creds.Username)) == 1
	var passOK bool
	if creds.PasswordHash != "" {
		passOK = bcrypt.CompareHashAndPassword([]byte(creds.PasswordHash), []byte(input.Password)) == nil
	} else {
		passOK = subtle.ConstantTimeCompare([]byte(input.Password), []byte(creds.Password)) == 1
	}
	if !userOK || !passOK {
		slog.Info("auth_event", "event", "login_failed", "username", input.Username)
		return LoginResult{}, ErrInvalidCredentials
	}

	slog.Info("auth_event", "event", "login_success", "username", creds.Username)
	return LoginResult{Username: creds.Username}, nil
}
