// Package identity signs users in and out against a hosted identity
// provider and reports auth-state changes.
package identity

import (
	"context"
	"errors"
	"fmt"
)

// User is a signed-in identity.
type User struct {
	UID         string
	Email       string
	DisplayName string
}

// Provider is the identity backend used by bootstrap and the account flows.
type Provider interface {
	SignIn(ctx context.Context, email, password string) (*User, error)
	Register(ctx context.Context, email, password, displayName string) (*User, error)
	SignOut(ctx context.Context) error
	// SubscribeAuthState calls fn with the current user (nil when signed
	// out) and again after every sign-in or sign-out.
	SubscribeAuthState(fn func(*User)) (unsubscribe func())
}

var (
	ErrEmailInUse         = errors.New("email already in use")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrWeakPassword       = errors.New("weak password")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserDisabled       = errors.New("user disabled")
	ErrTooManyAttempts    = errors.New("too many attempts")
)

// ProviderError is an error response from the identity endpoint.
type ProviderError struct {
	Code   string
	Status int
	err    error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("identity provider: %s (status %d)", e.Code, e.Status)
}

func (e *ProviderError) Unwrap() error {
	return e.err
}

// codeErrors maps provider error codes to sentinels.
var codeErrors = map[string]error{
	"EMAIL_EXISTS":                ErrEmailInUse,
	"INVALID_EMAIL":               ErrInvalidEmail,
	"MISSING_EMAIL":               ErrInvalidEmail,
	"WEAK_PASSWORD":               ErrWeakPassword,
	"INVALID_PASSWORD":            ErrInvalidCredentials,
	"EMAIL_NOT_FOUND":             ErrInvalidCredentials,
	"INVALID_LOGIN_CREDENTIALS":   ErrInvalidCredentials,
	"MISSING_PASSWORD":            ErrInvalidCredentials,
	"USER_DISABLED":               ErrUserDisabled,
	"TOO_MANY_ATTEMPTS_TRY_LATER": ErrTooManyAttempts,
}

func newProviderError(code string, status int) *ProviderError {
	return &ProviderError{Code: code, Status: status, err: codeErrors[code]}
}
