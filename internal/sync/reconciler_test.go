package sync

import (
	"context"
	"errors"
	"reflect"
	gosync "sync"
	"testing"
	"time"

	"github.com/matheus3301/chatroom/internal/bus"
	"github.com/matheus3301/chatroom/internal/chat"
	"github.com/matheus3301/chatroom/internal/documents"
	"github.com/matheus3301/chatroom/internal/status"
	"go.uber.org/zap"
)

type fakeSub struct {
	onSnapshot func([]chat.Message)
	onError    func(error)
	closed     bool
}

// fakeChannel hands control of deliveries to the test.
type fakeChannel struct {
	mu   gosync.Mutex
	subs []*fakeSub
}

func (f *fakeChannel) Append(context.Context, documents.Fields) (string, error) {
	return "", errors.New("not used")
}

func (f *fakeChannel) Subscribe(_ context.Context, onSnapshot func([]chat.Message), onError func(error)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := &fakeSub{onSnapshot: onSnapshot, onError: onError}
	f.subs = append(f.subs, s)
	return func() {
		f.mu.Lock()
		s.closed = true
		f.mu.Unlock()
	}
}

func (f *fakeChannel) last(t *testing.T) *fakeSub {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.subs) == 0 {
		t.Fatal("no subscription")
	}
	return f.subs[len(f.subs)-1]
}

func (f *fakeChannel) open() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, s := range f.subs {
		if !s.closed {
			n++
		}
	}
	return n
}

type memCache struct {
	mu    gosync.Mutex
	saved []chat.Message
	saves int
	err   error
}

func (c *memCache) SaveMessages(msgs []chat.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.saved = append([]chat.Message(nil), msgs...)
	c.saves++
	return nil
}

func (c *memCache) LoadMessages() []chat.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]chat.Message(nil), c.saved...)
}

func msgs(ids ...string) []chat.Message {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]chat.Message, len(ids))
	for i, id := range ids {
		ts := base.Add(time.Duration(i) * time.Second)
		out[i] = chat.Message{ID: id, Text: "m" + id, User: "Ana", UserEmail: "ana@x.io", CreatedAt: &ts}
	}
	return out
}

func newTestReconciler(ch documents.Channel, cache Cache) (*Reconciler, *status.Machine) {
	m := status.NewMachine(nil)
	return NewReconciler(ch, cache, m, bus.New(), zap.NewNop()), m
}

func TestOnlineSnapshotReplacesAndMirrors(t *testing.T) {
	ch := &fakeChannel{}
	cache := &memCache{}
	r, m := newTestReconciler(ch, cache)

	r.Activate(context.Background(), true)
	if m.Current() != status.Connecting {
		t.Errorf("state = %s, want CONNECTING", m.Current())
	}

	sub := ch.last(t)
	sub.onSnapshot(msgs("1", "2"))
	sub.onSnapshot(msgs("1", "2", "3"))

	want := msgs("1", "2", "3")
	if got := r.Messages(); !reflect.DeepEqual(got, want) {
		t.Errorf("Messages() = %v, want %v", got, want)
	}
	if !reflect.DeepEqual(cache.LoadMessages(), want) {
		t.Errorf("mirrored = %v, want %v", cache.saved, want)
	}
	if m.Current() != status.OnlineSynced {
		t.Errorf("state = %s, want ONLINE_SYNCED", m.Current())
	}
}

func TestSnapshotIsNotMergedOrReordered(t *testing.T) {
	ch := &fakeChannel{}
	r, _ := newTestReconciler(ch, &memCache{})
	r.Activate(context.Background(), true)

	sub := ch.last(t)
	sub.onSnapshot(msgs("1", "2", "3"))
	// A later snapshot with fewer entries wins as-is.
	shrunk := msgs("9")
	sub.onSnapshot(shrunk)
	if got := r.Messages(); !reflect.DeepEqual(got, shrunk) {
		t.Errorf("Messages() = %v, want %v", got, shrunk)
	}
}

func TestGoingOfflinePreservesList(t *testing.T) {
	ch := &fakeChannel{}
	cache := &memCache{}
	r, m := newTestReconciler(ch, cache)
	r.Activate(context.Background(), true)
	ch.last(t).onSnapshot(msgs("1", "2"))
	before := r.Messages()

	cache.saved = msgs("stale")
	r.SetOnline(false)

	if got := r.Messages(); !reflect.DeepEqual(got, before) {
		t.Errorf("Messages() after offline = %v, want %v", got, before)
	}
	if ch.open() != 0 {
		t.Errorf("open subscriptions = %d, want 0", ch.open())
	}
	if m.Current() != status.OfflineCached {
		t.Errorf("state = %s, want OFFLINE_CACHED", m.Current())
	}
}

func TestColdStartOfflineLoadsCache(t *testing.T) {
	cache := &memCache{saved: msgs("a", "b")}
	r, m := newTestReconciler(&fakeChannel{}, cache)

	r.Activate(context.Background(), false)

	if got := r.Messages(); !reflect.DeepEqual(got, msgs("a", "b")) {
		t.Errorf("Messages() = %v, want cached snapshot", got)
	}
	if m.Current() != status.OfflineCached {
		t.Errorf("state = %s, want OFFLINE_CACHED", m.Current())
	}
}

func TestColdStartOfflineEmptyCache(t *testing.T) {
	r, _ := newTestReconciler(&fakeChannel{}, &memCache{})
	r.Activate(context.Background(), false)
	if got := r.Messages(); len(got) != 0 {
		t.Errorf("Messages() = %v, want empty", got)
	}
}

// An empty remote snapshot counts as observed: going offline afterwards
// must not resurrect the cache.
func TestOfflineAfterEmptyRemoteSnapshotSkipsCache(t *testing.T) {
	ch := &fakeChannel{}
	cache := &memCache{}
	r, _ := newTestReconciler(ch, cache)
	r.Activate(context.Background(), true)
	ch.last(t).onSnapshot(nil)

	cache.mu.Lock()
	cache.saved = msgs("old")
	cache.mu.Unlock()
	r.SetOnline(false)

	if got := r.Messages(); len(got) != 0 {
		t.Errorf("Messages() = %v, want empty", got)
	}
}

func TestReconnectWithSilentChannelKeepsCachedList(t *testing.T) {
	ch := &fakeChannel{}
	cache := &memCache{saved: msgs("a")}
	r, m := newTestReconciler(ch, cache)

	r.Activate(context.Background(), false)
	r.SetOnline(true)

	if ch.open() != 1 {
		t.Fatalf("open subscriptions = %d, want 1", ch.open())
	}
	if m.Current() != status.Connecting {
		t.Errorf("state = %s, want CONNECTING", m.Current())
	}
	time.Sleep(20 * time.Millisecond)
	if got := r.Messages(); !reflect.DeepEqual(got, msgs("a")) {
		t.Errorf("Messages() = %v, want cached list until first snapshot", got)
	}
}

func TestStaleSubscriptionDeliveriesDropped(t *testing.T) {
	ch := &fakeChannel{}
	r, _ := newTestReconciler(ch, &memCache{})
	r.Activate(context.Background(), true)
	old := ch.last(t)

	r.SetOnline(false)
	r.SetOnline(true)
	current := ch.last(t)
	if current == old {
		t.Fatal("expected a fresh subscription")
	}

	old.onSnapshot(msgs("stale"))
	if got := r.Messages(); len(got) != 0 {
		t.Errorf("stale delivery applied: %v", got)
	}
	current.onSnapshot(msgs("1"))
	if got := r.Messages(); !reflect.DeepEqual(got, msgs("1")) {
		t.Errorf("Messages() = %v", got)
	}
}

func TestChannelErrorEntersOfflineWithoutRetry(t *testing.T) {
	ch := &fakeChannel{}
	b := bus.New()
	events, unsub := b.Subscribe("chat.", 10)
	defer unsub()

	m := status.NewMachine(nil)
	r := NewReconciler(ch, &memCache{}, m, b, zap.NewNop())
	r.Activate(context.Background(), true)
	sub := ch.last(t)
	sub.onSnapshot(msgs("1"))
	<-events

	sub.onError(errors.New("permission denied"))

	if m.Current() != status.OfflineCached {
		t.Errorf("state = %s, want OFFLINE_CACHED", m.Current())
	}
	if ch.open() != 0 {
		t.Errorf("open subscriptions = %d, want 0 (no retry)", ch.open())
	}
	if got := r.Messages(); !reflect.DeepEqual(got, msgs("1")) {
		t.Errorf("Messages() after error = %v", got)
	}
	select {
	case evt := <-events:
		if evt.Kind != bus.KindChatChannelError {
			t.Errorf("event = %q, want %q", evt.Kind, bus.KindChatChannelError)
		}
	case <-time.After(time.Second):
		t.Fatal("no channel error event")
	}

	// Still "online" per monitor: nothing happens until offline -> online.
	r.SetOnline(true)
	if len(ch.subs) != 1 {
		t.Errorf("subscriptions = %d, want 1", len(ch.subs))
	}
	r.SetOnline(false)
	r.SetOnline(true)
	if len(ch.subs) != 2 {
		t.Errorf("subscriptions after reconnect = %d, want 2", len(ch.subs))
	}
}

func TestChannelErrorBeforeFirstSnapshotLoadsCache(t *testing.T) {
	ch := &fakeChannel{}
	cache := &memCache{saved: msgs("a", "b")}
	r, m := newTestReconciler(ch, cache)

	r.Activate(context.Background(), true)
	if got := r.Messages(); len(got) != 0 {
		t.Fatalf("Messages() while connecting = %v, want empty", got)
	}
	ch.last(t).onError(errors.New("unavailable"))

	if m.Current() != status.OfflineCached {
		t.Errorf("state = %s, want OFFLINE_CACHED", m.Current())
	}
	if got := r.Messages(); !reflect.DeepEqual(got, msgs("a", "b")) {
		t.Errorf("Messages() = %v, want cached snapshot", got)
	}
}

func TestChannelErrorAfterRemoteSnapshotSkipsCache(t *testing.T) {
	ch := &fakeChannel{}
	cache := &memCache{}
	r, _ := newTestReconciler(ch, cache)
	r.Activate(context.Background(), true)
	sub := ch.last(t)
	sub.onSnapshot(nil)

	cache.mu.Lock()
	cache.saved = msgs("old")
	cache.mu.Unlock()
	sub.onError(errors.New("unavailable"))

	if got := r.Messages(); len(got) != 0 {
		t.Errorf("Messages() = %v, want empty", got)
	}
}

func TestOnlineReportsFailedSubscription(t *testing.T) {
	ch := &fakeChannel{}
	r, _ := newTestReconciler(ch, &memCache{})

	r.Activate(context.Background(), true)
	if !r.Online() {
		t.Fatal("Online() = false while connecting")
	}
	ch.last(t).onError(errors.New("permission denied"))
	if r.Online() {
		t.Error("Online() = true after the subscription failed")
	}

	r.SetOnline(false)
	r.SetOnline(true)
	if !r.Online() {
		t.Error("Online() = false after reconnect")
	}
	ch.last(t).onSnapshot(msgs("1"))
	if !r.Online() {
		t.Error("Online() = false after snapshot")
	}
}

func TestMirrorFailureStillUpdatesList(t *testing.T) {
	ch := &fakeChannel{}
	r, _ := newTestReconciler(ch, &memCache{err: errors.New("disk full")})
	r.Activate(context.Background(), true)
	ch.last(t).onSnapshot(msgs("1"))
	if got := r.Messages(); len(got) != 1 {
		t.Errorf("Messages() = %v, want 1 entry", got)
	}
}

func TestDeactivateClearsList(t *testing.T) {
	ch := &fakeChannel{}
	r, m := newTestReconciler(ch, &memCache{})
	r.Activate(context.Background(), true)
	sub := ch.last(t)
	sub.onSnapshot(msgs("1"))

	r.Deactivate()
	if got := r.Messages(); len(got) != 0 {
		t.Errorf("Messages() after Deactivate = %v", got)
	}
	if r.ObservedRemote() {
		t.Error("ObservedRemote() after Deactivate = true")
	}
	if m.Current() != status.LoginRequired {
		t.Errorf("state = %s, want LOGIN_REQUIRED", m.Current())
	}
	sub.onSnapshot(msgs("late"))
	if got := r.Messages(); len(got) != 0 {
		t.Errorf("delivery after Deactivate applied: %v", got)
	}
}

func TestMessagesReturnsCopy(t *testing.T) {
	ch := &fakeChannel{}
	r, _ := newTestReconciler(ch, &memCache{})
	r.Activate(context.Background(), true)
	ch.last(t).onSnapshot(msgs("1"))

	got := r.Messages()
	got[0].Text = "mutated"
	if r.Messages()[0].Text == "mutated" {
		t.Error("Messages() exposed internal slice")
	}
}

func TestWithMemoryChannel(t *testing.T) {
	mem := documents.NewMemory()
	cache := &memCache{}
	r, m := newTestReconciler(mem, cache)
	ctx := context.Background()

	if _, err := mem.Append(ctx, documents.Fields{Text: "hello", User: "Ana", UserEmail: "ana@x.io"}); err != nil {
		t.Fatal(err)
	}
	r.Activate(ctx, true)

	deadline := time.Now().Add(2 * time.Second)
	for m.Current() != status.OnlineSynced || len(r.Messages()) != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("not synced: state %s, %d messages", m.Current(), len(r.Messages()))
		}
		time.Sleep(10 * time.Millisecond)
	}
	if got := cache.LoadMessages(); len(got) != 1 || got[0].Text != "hello" {
		t.Errorf("mirrored = %v", got)
	}
}
