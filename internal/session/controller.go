// Package session ties bootstrap, the account flows, the reconciler and
// the sender to the current navigation destination.
package session

import (
	"context"
	"errors"
	gosync "sync"

	"github.com/matheus3301/chatroom/internal/account"
	"github.com/matheus3301/chatroom/internal/bus"
	"github.com/matheus3301/chatroom/internal/chat"
	"github.com/matheus3301/chatroom/internal/nav"
	"github.com/matheus3301/chatroom/internal/send"
	"github.com/matheus3301/chatroom/internal/status"
	"go.uber.org/zap"
)

var (
	ErrNotStarted = errors.New("session is still booting")
	ErrSignedIn   = errors.New("already signed in")
	ErrSignedOut  = errors.New("not signed in")
)

type Bootstrapper interface {
	Run(ctx context.Context) nav.Destination
}

type Accounts interface {
	Login(ctx context.Context, email, password string) (nav.Destination, error)
	Register(ctx context.Context, form account.RegisterForm) (nav.Destination, error)
	Logout(ctx context.Context) (nav.Destination, error)
}

type Reconciler interface {
	Activate(ctx context.Context, online bool)
	Deactivate()
	SetOnline(online bool)
	Messages() []chat.Message
}

type Sender interface {
	SetParticipant(p *chat.Participant)
	SendText(ctx context.Context, text string) (*send.Result, error)
	SendImage(ctx context.Context, path string) (*send.Result, error)
	Busy() (sending, uploading bool)
}

type Connectivity interface {
	Online() bool
	Watch(fn func(online bool)) (unwatch func())
}

// Status is a point-in-time view of the session.
type Status struct {
	State       status.State
	Online      bool
	Destination nav.Destination
	Sending     bool
	Uploading   bool
}

// Controller owns the current destination.
type Controller struct {
	boot       Bootstrapper
	accounts   Accounts
	reconciler Reconciler
	sender     Sender
	net        Connectivity
	machine    *status.Machine
	bus        *bus.Bus
	logger     *zap.Logger

	mu      gosync.Mutex
	ctx     context.Context
	started bool
	dest    nav.Destination
	unwatch func()
}

// NewController wires the session parts together.
func NewController(boot Bootstrapper, accounts Accounts, r Reconciler, s Sender, net Connectivity, machine *status.Machine, b *bus.Bus, logger *zap.Logger) *Controller {
	return &Controller{
		boot:       boot,
		accounts:   accounts,
		reconciler: r,
		sender:     s,
		net:        net,
		machine:    machine,
		bus:        b,
		logger:     logger,
		ctx:        context.Background(),
	}
}

// Start follows connectivity and runs bootstrap. ctx bounds the chat
// subscriptions for the lifetime of the daemon.
func (c *Controller) Start(ctx context.Context) nav.Destination {
	c.mu.Lock()
	c.ctx = ctx
	if c.unwatch == nil {
		c.unwatch = c.net.Watch(c.connectivityChanged)
	}
	c.mu.Unlock()

	dest := c.boot.Run(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.started = true
	c.applyLocked(dest)
	return dest
}

// Stop ends the chat subscription and stops following connectivity.
func (c *Controller) Stop() {
	c.mu.Lock()
	unwatch := c.unwatch
	c.unwatch = nil
	c.mu.Unlock()
	if unwatch != nil {
		unwatch()
	}
	c.reconciler.Deactivate()
}

// Login signs in from the Login screen.
func (c *Controller) Login(ctx context.Context, email, password string) (nav.Destination, error) {
	if err := c.requireSignedOut(); err != nil {
		return nav.Destination{}, err
	}
	dest, err := c.accounts.Login(ctx, email, password)
	if err != nil {
		return nav.Destination{}, err
	}
	c.navigate(dest)
	return dest, nil
}

// Register creates an account from the Register screen.
func (c *Controller) Register(ctx context.Context, form account.RegisterForm) (nav.Destination, error) {
	if err := c.requireSignedOut(); err != nil {
		return nav.Destination{}, err
	}
	dest, err := c.accounts.Register(ctx, form)
	if err != nil {
		return nav.Destination{}, err
	}
	c.navigate(dest)
	return dest, nil
}

// Logout leaves the chat and returns to Login.
func (c *Controller) Logout(ctx context.Context) (nav.Destination, error) {
	c.mu.Lock()
	inChat := c.dest.Route == nav.Chat
	c.mu.Unlock()
	if !inChat {
		return nav.Destination{}, ErrSignedOut
	}
	dest, err := c.accounts.Logout(ctx)
	if err != nil {
		return nav.Destination{}, err
	}
	c.navigate(dest)
	return dest, nil
}

func (c *Controller) SendText(ctx context.Context, text string) (*send.Result, error) {
	return c.sender.SendText(ctx, text)
}

func (c *Controller) SendImage(ctx context.Context, path string) (*send.Result, error) {
	return c.sender.SendImage(ctx, path)
}

// Messages returns the displayed list, empty outside the chat.
func (c *Controller) Messages() []chat.Message {
	return c.reconciler.Messages()
}

// Destination returns the current screen. The zero value means bootstrap
// has not finished.
func (c *Controller) Destination() nav.Destination {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dest
}

// Participant returns the signed-in chat identity.
func (c *Controller) Participant() (chat.Participant, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dest.Route != nav.Chat {
		return chat.Participant{}, false
	}
	return c.dest.Participant(), true
}

func (c *Controller) Status() Status {
	sending, uploading := c.sender.Busy()
	return Status{
		State:       c.machine.Current(),
		Online:      c.net.Online(),
		Destination: c.Destination(),
		Sending:     sending,
		Uploading:   uploading,
	}
}

// connectivityChanged serializes with applyLocked so an activation never
// reads a connectivity value older than the last transition applied.
func (c *Controller) connectivityChanged(online bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reconciler.SetOnline(online)
}

func (c *Controller) requireSignedOut() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started {
		return ErrNotStarted
	}
	if c.dest.Route == nav.Chat {
		return ErrSignedIn
	}
	return nil
}

func (c *Controller) navigate(dest nav.Destination) {
	c.mu.Lock()
	c.applyLocked(dest)
	c.mu.Unlock()
	c.bus.Publish(bus.NewEvent(bus.KindDestination, dest))
}

func (c *Controller) applyLocked(dest nav.Destination) {
	c.dest = dest
	c.logger.Info("destination", zap.String("to", dest.String()))

	if dest.Route == nav.Chat {
		p := dest.Participant()
		c.sender.SetParticipant(&p)
		c.reconciler.Activate(c.ctx, c.net.Online())
		return
	}
	c.sender.SetParticipant(nil)
	c.reconciler.Deactivate()
	if err := c.machine.Transition(status.LoginRequired); err != nil {
		c.logger.Debug("status transition skipped", zap.Error(err))
	}
}
