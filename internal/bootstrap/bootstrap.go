// Package bootstrap decides the first screen at launch.
package bootstrap

import (
	"context"
	"fmt"
	gosync "sync"

	"github.com/matheus3301/chatroom/internal/bus"
	"github.com/matheus3301/chatroom/internal/chat"
	"github.com/matheus3301/chatroom/internal/identity"
	"github.com/matheus3301/chatroom/internal/nav"
	"go.uber.org/zap"
)

// Cache is the slice of the local store bootstrap reads.
type Cache interface {
	LoadCredentials() *chat.Credentials
	LoadSession() *chat.SessionSnapshot
	ClearCredentials() error
}

// Bootstrapper runs the launch decision once per process.
type Bootstrapper struct {
	cache    Cache
	provider identity.Provider
	bus      *bus.Bus
	logger   *zap.Logger

	once   gosync.Once
	result nav.Destination
}

// New creates a bootstrapper.
func New(cache Cache, provider identity.Provider, b *bus.Bus, logger *zap.Logger) *Bootstrapper {
	return &Bootstrapper{cache: cache, provider: provider, bus: b, logger: logger}
}

// Run picks Login or Chat. Later calls return the first outcome.
//
// With stored credentials and a session snapshot it signs in silently and
// opens Chat with the snapshot's identity; if that fails the credentials
// are erased and Login is shown. Otherwise it waits for the provider's
// first auth-state signal, or for ctx to end.
func (b *Bootstrapper) Run(ctx context.Context) nav.Destination {
	b.once.Do(func() {
		b.result = b.decide(ctx)
		b.logger.Info("bootstrap complete", zap.String("destination", b.result.String()))
		b.bus.Publish(bus.NewEvent(bus.KindDestination, b.result))
	})
	return b.result
}

func (b *Bootstrapper) decide(ctx context.Context) (dest nav.Destination) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("bootstrap failed", zap.Error(fmt.Errorf("panic: %v", r)))
			dest = nav.ToLogin()
		}
	}()

	creds := b.cache.LoadCredentials()
	snap := b.cache.LoadSession()
	if creds != nil && snap != nil {
		return b.silentSignIn(ctx, creds, snap)
	}
	return b.awaitAuthState(ctx)
}

func (b *Bootstrapper) silentSignIn(ctx context.Context, creds *chat.Credentials, snap *chat.SessionSnapshot) nav.Destination {
	if _, err := b.provider.SignIn(ctx, creds.Email, creds.Password); err != nil {
		if ctx.Err() != nil {
			// Shutting down, not a rejection: keep the credentials.
			b.logger.Warn("silent sign-in interrupted", zap.Error(err))
			return nav.ToLogin()
		}
		b.logger.Warn("stored credentials rejected", zap.String("email", creds.Email), zap.Error(err))
		if cerr := b.cache.ClearCredentials(); cerr != nil {
			b.logger.Error("failed to clear credentials", zap.Error(cerr))
		}
		return nav.ToLogin()
	}
	return nav.ToChat(chat.Participant{Name: snap.DisplayName, Email: snap.Email})
}

func (b *Bootstrapper) awaitAuthState(ctx context.Context) nav.Destination {
	first := make(chan *identity.User, 1)
	unsubscribe := b.provider.SubscribeAuthState(func(u *identity.User) {
		select {
		case first <- u:
		default:
		}
	})
	defer unsubscribe()

	select {
	case u := <-first:
		if u == nil {
			return nav.ToLogin()
		}
		return nav.ToChat(chat.Participant{
			Name:  chat.DisplayName(u.DisplayName, u.Email),
			Email: u.Email,
		})
	case <-ctx.Done():
		b.logger.Warn("gave up waiting for auth state", zap.Error(ctx.Err()))
		return nav.ToLogin()
	}
}
