// Package account implements the login, registration and logout flows.
package account

import (
	"context"
	"fmt"
	"strings"

	"github.com/matheus3301/chatroom/internal/chat"
	"github.com/matheus3301/chatroom/internal/identity"
	"github.com/matheus3301/chatroom/internal/nav"
	"go.uber.org/zap"
)

// MinPasswordLength is the shortest password Register accepts.
const MinPasswordLength = 6

// Cache persists what a later launch needs to sign in silently.
type Cache interface {
	SaveCredentials(chat.Credentials) error
	SaveSession(chat.SessionSnapshot) error
	ClearAll() error
}

// RegisterForm is the registration screen input.
type RegisterForm struct {
	DisplayName string
	Email       string
	Password    string
	Confirm     string
}

// Service runs the account flows against an identity provider.
type Service struct {
	provider identity.Provider
	cache    Cache
	logger   *zap.Logger
}

// NewService creates the account service.
func NewService(provider identity.Provider, cache Cache, logger *zap.Logger) *Service {
	return &Service{provider: provider, cache: cache, logger: logger}
}

// Validate checks the form in screen order and returns the first problem.
func (f RegisterForm) Validate() error {
	switch {
	case strings.TrimSpace(f.DisplayName) == "":
		return &FormError{Field: "displayName", Code: CodeNameRequired}
	case strings.TrimSpace(f.Email) == "":
		return &FormError{Field: "email", Code: CodeEmailRequired}
	case strings.TrimSpace(f.Password) == "":
		return &FormError{Field: "password", Code: CodePasswordRequired}
	case len(f.Password) < MinPasswordLength:
		return &FormError{Field: "password", Code: CodePasswordTooShort}
	case f.Password != f.Confirm:
		return &FormError{Field: "confirm", Code: CodePasswordMismatch}
	}
	return nil
}

// Register creates the account, stores credentials and the session
// snapshot, and returns a replacing Chat destination.
func (s *Service) Register(ctx context.Context, form RegisterForm) (nav.Destination, error) {
	if err := form.Validate(); err != nil {
		return nav.Destination{}, err
	}
	name := strings.TrimSpace(form.DisplayName)
	email := strings.TrimSpace(form.Email)

	user, err := s.provider.Register(ctx, email, form.Password, name)
	if err != nil {
		s.logger.Warn("registration failed", zap.String("email", email), zap.Error(err))
		return nav.Destination{}, fmt.Errorf("register: %w", err)
	}

	if err := s.remember(email, form.Password, chat.SessionSnapshot{
		UID:         user.UID,
		Email:       user.Email,
		DisplayName: name,
	}); err != nil {
		return nav.Destination{}, err
	}

	s.logger.Info("registered", zap.String("uid", user.UID), zap.String("email", user.Email))
	return nav.ToChat(chat.Participant{Name: name, Email: user.Email}), nil
}

// Login signs in with email and password.
func (s *Service) Login(ctx context.Context, email, password string) (nav.Destination, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nav.Destination{}, &FormError{Field: "email", Code: CodeEmailRequired}
	}
	if strings.TrimSpace(password) == "" {
		return nav.Destination{}, &FormError{Field: "password", Code: CodePasswordRequired}
	}

	user, err := s.provider.SignIn(ctx, email, password)
	if err != nil {
		s.logger.Warn("login failed", zap.String("email", email), zap.Error(err))
		return nav.Destination{}, fmt.Errorf("login: %w", err)
	}

	name := chat.DisplayName(user.DisplayName, user.Email)
	if err := s.remember(email, password, chat.SessionSnapshot{
		UID:         user.UID,
		Email:       user.Email,
		DisplayName: name,
	}); err != nil {
		return nav.Destination{}, err
	}

	s.logger.Info("logged in", zap.String("uid", user.UID), zap.String("email", user.Email))
	return nav.ToChat(chat.Participant{Name: name, Email: user.Email}), nil
}

// Logout signs out and wipes every cached key. On failure the caller
// stays where it is.
func (s *Service) Logout(ctx context.Context) (nav.Destination, error) {
	if err := s.provider.SignOut(ctx); err != nil {
		return nav.Destination{}, fmt.Errorf("sign out: %w", err)
	}
	if err := s.cache.ClearAll(); err != nil {
		return nav.Destination{}, fmt.Errorf("clear cache: %w", err)
	}
	s.logger.Info("logged out")
	return nav.ToLogin(), nil
}

func (s *Service) remember(email, password string, snap chat.SessionSnapshot) error {
	if err := s.cache.SaveCredentials(chat.Credentials{Email: email, Password: password}); err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}
	if err := s.cache.SaveSession(snap); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}
