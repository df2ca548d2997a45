package sync

import (
	"context"
	gosync "sync"

	"github.com/matheus3301/chatroom/internal/bus"
	"github.com/matheus3301/chatroom/internal/chat"
	"github.com/matheus3301/chatroom/internal/documents"
	"github.com/matheus3301/chatroom/internal/status"
	"go.uber.org/zap"
)

// Cache is the part of the local store the reconciler mirrors into.
type Cache interface {
	SaveMessages(msgs []chat.Message) error
	LoadMessages() []chat.Message
}

// Snapshot sources reported in chat.snapshot events.
const (
	SourceRemote = "remote"
	SourceCache  = "cache"
)

// SnapshotEvent is the payload for chat.snapshot events.
type SnapshotEvent struct {
	Source string
	Count  int
}

// Reconciler owns the displayed message list. While online it follows the
// remote channel, replacing the list wholesale on every snapshot and
// mirroring it to the cache. While offline it keeps whatever it has, and
// only falls back to the cache at cold start.
type Reconciler struct {
	channel documents.Channel
	cache   Cache
	machine *status.Machine
	bus     *bus.Bus
	logger  *zap.Logger

	mu             gosync.Mutex
	ctx            context.Context
	active         bool
	online         bool
	messages       []chat.Message
	observedRemote bool
	// failed is set when the current subscription reported an error and
	// cleared by the next one.
	failed bool
	// gen identifies the current subscription; deliveries tagged with an
	// older generation are dropped.
	gen         uint64
	unsubscribe func()
}

// NewReconciler creates an inactive reconciler.
func NewReconciler(ch documents.Channel, cache Cache, machine *status.Machine, b *bus.Bus, logger *zap.Logger) *Reconciler {
	return &Reconciler{
		channel: ch,
		cache:   cache,
		machine: machine,
		bus:     b,
		logger:  logger,
		ctx:     context.Background(),
	}
}

// Activate starts a chat session with the given initial connectivity.
// Calling it on an active reconciler only updates connectivity.
func (r *Reconciler) Activate(ctx context.Context, online bool) {
	r.mu.Lock()
	if r.active {
		r.mu.Unlock()
		r.SetOnline(online)
		return
	}
	r.active = true
	r.ctx = ctx
	r.online = online
	r.logger.Info("chat session activated", zap.Bool("online", online))
	if !online {
		r.enterOfflineLocked()
		r.mu.Unlock()
		return
	}
	g := r.beginConnectingLocked()
	r.mu.Unlock()
	r.subscribe(g)
}

// Deactivate ends the chat session: unsubscribes and forgets the list.
func (r *Reconciler) Deactivate() {
	r.mu.Lock()
	if !r.active {
		r.mu.Unlock()
		return
	}
	r.active = false
	r.gen++
	unsub := r.unsubscribe
	r.unsubscribe = nil
	r.messages = nil
	r.observedRemote = false
	r.failed = false
	r.transitionLocked(status.LoginRequired)
	r.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	r.logger.Info("chat session deactivated")
}

// SetOnline applies a connectivity transition.
func (r *Reconciler) SetOnline(online bool) {
	r.mu.Lock()
	if online == r.online || !r.active {
		r.online = online
		r.mu.Unlock()
		return
	}
	r.online = online

	if online {
		g := r.beginConnectingLocked()
		r.mu.Unlock()
		r.subscribe(g)
		return
	}

	r.gen++
	unsub := r.unsubscribe
	r.unsubscribe = nil
	r.enterOfflineLocked()
	r.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

// Messages returns a copy of the displayed list.
func (r *Reconciler) Messages() []chat.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]chat.Message, len(r.messages))
	copy(out, r.messages)
	return out
}

// Online reports whether messages can reach the remote store: the network
// is up and the current subscription has not failed. A subscription still
// waiting for its first snapshot counts as online.
func (r *Reconciler) Online() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.online && !r.failed
}

// ObservedRemote reports whether a remote snapshot has been applied in
// this chat session.
func (r *Reconciler) ObservedRemote() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.observedRemote
}

// beginConnectingLocked starts a new subscription generation. The list is
// left untouched until the first snapshot arrives.
func (r *Reconciler) beginConnectingLocked() uint64 {
	r.gen++
	r.failed = false
	r.transitionLocked(status.Connecting)
	return r.gen
}

func (r *Reconciler) enterOfflineLocked() {
	r.transitionLocked(status.OfflineCached)
	if len(r.messages) > 0 || r.observedRemote {
		return
	}
	cached := r.cache.LoadMessages()
	if len(cached) == 0 {
		return
	}
	r.messages = cached
	r.logger.Info("loaded cached messages", zap.Int("count", len(cached)))
	r.bus.Publish(bus.NewEvent(bus.KindChatSnapshot, SnapshotEvent{Source: SourceCache, Count: len(cached)}))
}

// subscribe runs outside the lock: a channel may deliver synchronously.
func (r *Reconciler) subscribe(g uint64) {
	r.mu.Lock()
	ctx := r.ctx
	r.mu.Unlock()

	unsub := r.channel.Subscribe(ctx,
		func(msgs []chat.Message) { r.applySnapshot(g, msgs) },
		func(err error) { r.channelFailed(g, err) },
	)

	r.mu.Lock()
	if r.gen == g {
		r.unsubscribe = unsub
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()
	unsub()
}

func (r *Reconciler) applySnapshot(g uint64, msgs []chat.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if g != r.gen || !r.active {
		return
	}
	list := make([]chat.Message, len(msgs))
	copy(list, msgs)
	r.messages = list
	r.observedRemote = true
	r.transitionLocked(status.OnlineSynced)

	if err := r.cache.SaveMessages(list); err != nil {
		r.logger.Warn("failed to mirror messages", zap.Error(err))
	}
	r.bus.Publish(bus.NewEvent(bus.KindChatSnapshot, SnapshotEvent{Source: SourceRemote, Count: len(list)}))
}

func (r *Reconciler) channelFailed(g uint64, err error) {
	r.mu.Lock()
	if g != r.gen || !r.active {
		r.mu.Unlock()
		return
	}
	r.gen++
	r.failed = true
	unsub := r.unsubscribe
	r.unsubscribe = nil
	r.logger.Error("message channel failed", zap.Error(err))
	r.bus.Publish(bus.NewEvent(bus.KindChatChannelError, err.Error()))
	r.enterOfflineLocked()
	r.mu.Unlock()

	if unsub != nil {
		unsub()
	}
}

func (r *Reconciler) transitionLocked(to status.State) {
	if err := r.machine.Transition(to); err != nil {
		r.logger.Debug("status transition skipped", zap.Error(err))
	}
}
