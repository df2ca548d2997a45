package api

import (
	"context"
	"errors"

	"github.com/matheus3301/chatroom/internal/account"
	"github.com/matheus3301/chatroom/internal/identity"
	"github.com/matheus3301/chatroom/internal/send"
	"github.com/matheus3301/chatroom/internal/session"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	grpcstatus "google.golang.org/grpc/status"
)

// langKey is the metadata key clients use to pick the message language.
const langKey = "chatroom-lang"

func langFrom(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if v := md.Get(langKey); len(v) > 0 && v[0] != "" {
			return v[0]
		}
	}
	return account.DefaultLang
}

// toStatus maps a session error to a gRPC status whose message is the
// localized text for the user.
func toStatus(ctx context.Context, op account.Op, err error) error {
	return grpcstatus.Error(codeFor(err), account.UserMessage(op, err, langFrom(ctx)))
}

func codeFor(err error) codes.Code {
	var fe *account.FormError
	switch {
	case errors.As(err, &fe):
		return codes.InvalidArgument
	case errors.Is(err, send.ErrOffline),
		errors.Is(err, send.ErrNoSession),
		errors.Is(err, session.ErrSignedIn),
		errors.Is(err, session.ErrSignedOut):
		return codes.FailedPrecondition
	case errors.Is(err, send.ErrBusy):
		return codes.Aborted
	case errors.Is(err, send.ErrEmptyText),
		errors.Is(err, identity.ErrEmailInUse),
		errors.Is(err, identity.ErrInvalidEmail),
		errors.Is(err, identity.ErrWeakPassword):
		return codes.InvalidArgument
	case errors.Is(err, identity.ErrInvalidCredentials),
		errors.Is(err, identity.ErrUserDisabled):
		return codes.Unauthenticated
	case errors.Is(err, identity.ErrTooManyAttempts):
		return codes.ResourceExhausted
	case errors.Is(err, session.ErrNotStarted):
		return codes.Unavailable
	}
	return codes.Internal
}

// ErrorMessage returns the user-facing text carried by an RPC error.
func ErrorMessage(err error) string {
	if st, ok := grpcstatus.FromError(err); ok {
		return st.Message()
	}
	return err.Error()
}
