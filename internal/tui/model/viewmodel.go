// Package model holds the TUI's copy of the daemon state.
package model

import (
	"context"
	"sync"

	"github.com/matheus3301/chatroom/internal/api"
	"github.com/matheus3301/chatroom/internal/chat"
	"github.com/matheus3301/chatroom/internal/tui/ui"
)

// Event kinds the view model reacts to beyond the hello event.
const (
	kindSnapshot     = "chat.snapshot"
	kindChannelError = "chat.channel_error"
	kindSendFailed   = "message.send_failed"
	kindSendRejected = "message.send_rejected"
)

// Daemon is the part of the control API the TUI uses.
type Daemon interface {
	Status(ctx context.Context) (*api.StatusReply, error)
	Login(ctx context.Context, email, password string) (*api.Destination, error)
	Register(ctx context.Context, req api.RegisterRequest) (*api.Destination, error)
	Logout(ctx context.Context) (*api.Destination, error)
	SendText(ctx context.Context, text string) (*api.SendReply, error)
	SendImage(ctx context.Context, path string) (*api.SendReply, error)
}

// ViewModel caches daemon state fed by the event stream and signals UI
// refreshes.
type ViewModel struct {
	mu sync.RWMutex

	daemon      Daemon
	status      *api.StatusReply
	destination api.Destination
	online      bool
	state       string
	messages    []chat.Message
	lastImage   string
	busy        bool
	Flash       *ui.FlashModel

	refreshCh chan struct{}
}

// NewViewModel creates a view model backed by the daemon client.
func NewViewModel(d Daemon) *ViewModel {
	return &ViewModel{
		daemon:    d,
		Flash:     ui.NewFlashModel(),
		refreshCh: make(chan struct{}, 1),
	}
}

// RefreshCh returns the channel that signals UI refresh.
func (vm *ViewModel) RefreshCh() <-chan struct{} {
	return vm.refreshCh
}

func (vm *ViewModel) signalRefresh() {
	select {
	case vm.refreshCh <- struct{}{}:
	default:
	}
}

// LoadStatus fetches the daemon status.
func (vm *ViewModel) LoadStatus(ctx context.Context) error {
	st, err := vm.daemon.Status(ctx)
	if err != nil {
		return err
	}
	vm.mu.Lock()
	vm.status = st
	vm.state = st.State
	vm.online = st.Online
	if st.Destination.Route != "" {
		vm.destination = st.Destination
	}
	vm.mu.Unlock()
	vm.signalRefresh()
	return nil
}

// Apply folds one stream event into the cached state. It reports whether
// the destination changed.
func (vm *ViewModel) Apply(evt *api.Event) (routed bool) {
	vm.mu.Lock()
	switch evt.Kind {
	case api.KindHello, kindSnapshot:
		vm.messages = evt.Messages
		vm.lastImage = latestImage(evt.Messages, vm.lastImage)
	case kindChannelError:
		vm.Flash.Warn("Koneksi ke server terputus")
	case kindSendFailed, kindSendRejected:
		// The RPC caller already shows the localized text.
	}
	if evt.State != "" {
		vm.state = evt.State
	}
	if evt.Online != nil {
		vm.online = *evt.Online
	}
	if evt.Destination != nil && evt.Destination.Route != "" && *evt.Destination != vm.destination {
		vm.destination = *evt.Destination
		routed = true
		if evt.Destination.Route != "CHAT" {
			vm.messages = nil
			vm.lastImage = ""
		}
	}
	vm.mu.Unlock()
	vm.signalRefresh()
	return routed
}

// Login signs in and records the resulting destination.
func (vm *ViewModel) Login(ctx context.Context, email, password string) error {
	return vm.navigate(func() (*api.Destination, error) { return vm.daemon.Login(ctx, email, password) })
}

// Register creates the account and records the resulting destination.
func (vm *ViewModel) Register(ctx context.Context, req api.RegisterRequest) error {
	return vm.navigate(func() (*api.Destination, error) { return vm.daemon.Register(ctx, req) })
}

// Logout signs out and records the resulting destination.
func (vm *ViewModel) Logout(ctx context.Context) error {
	return vm.navigate(func() (*api.Destination, error) { return vm.daemon.Logout(ctx) })
}

func (vm *ViewModel) navigate(call func() (*api.Destination, error)) error {
	if !vm.begin() {
		return nil
	}
	defer vm.end()
	dest, err := call()
	if err != nil {
		vm.Flash.Err(api.ErrorMessage(err))
		return err
	}
	vm.Apply(&api.Event{Kind: "local.navigate", Destination: dest})
	return nil
}

// SendText sends a text message. The list itself only changes when the
// daemon reports a new snapshot.
func (vm *ViewModel) SendText(ctx context.Context, text string) error {
	if _, err := vm.daemon.SendText(ctx, text); err != nil {
		vm.Flash.Err(api.ErrorMessage(err))
		return err
	}
	return nil
}

// SendImage uploads and sends the image at path.
func (vm *ViewModel) SendImage(ctx context.Context, path string) error {
	vm.Flash.Info("Mengupload gambar...")
	resp, err := vm.daemon.SendImage(ctx, path)
	if err != nil {
		vm.Flash.Err(api.ErrorMessage(err))
		return err
	}
	vm.mu.Lock()
	vm.lastImage = resp.ImageURL
	vm.mu.Unlock()
	vm.Flash.Info("Gambar terkirim")
	vm.signalRefresh()
	return nil
}

// begin guards against double submission of the account forms.
func (vm *ViewModel) begin() bool {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if vm.busy {
		return false
	}
	vm.busy = true
	return true
}

func (vm *ViewModel) end() {
	vm.mu.Lock()
	vm.busy = false
	vm.mu.Unlock()
}

// Busy reports whether an account request is in flight.
func (vm *ViewModel) Busy() bool {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.busy
}

// Destination returns the current screen.
func (vm *ViewModel) Destination() api.Destination {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.destination
}

// Online reports the daemon's connectivity.
func (vm *ViewModel) Online() bool {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.online
}

// State returns the daemon's session state.
func (vm *ViewModel) State() string {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.state
}

// Messages returns the displayed list.
func (vm *ViewModel) Messages() []chat.Message {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.messages
}

// LastImageURL returns the newest image URL seen, or "".
func (vm *ViewModel) LastImageURL() string {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.lastImage
}

func latestImage(msgs []chat.Message, fallback string) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].IsImage && msgs[i].ImageURL != "" {
			return msgs[i].ImageURL
		}
	}
	return fallback
}
