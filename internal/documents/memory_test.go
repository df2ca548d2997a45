package documents

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/matheus3301/chatroom/internal/chat"
)

func collect(t *testing.T, ch <-chan []chat.Message, want int) []chat.Message {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case msgs := <-ch:
			if len(msgs) == want {
				return msgs
			}
		case <-deadline:
			t.Fatalf("timeout waiting for snapshot of %d messages", want)
		}
	}
}

func TestMemorySubscribeDeliversInitialAndOrdered(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	if _, err := m.Append(ctx, Fields{Text: "one", User: "Ana", UserEmail: "ana@x"}); err != nil {
		t.Fatal(err)
	}

	snaps := make(chan []chat.Message, 16)
	unsub := m.Subscribe(ctx, func(msgs []chat.Message) { snaps <- msgs }, nil)
	defer unsub()

	first := collect(t, snaps, 1)
	if first[0].Text != "one" || first[0].CreatedAt == nil {
		t.Errorf("initial snapshot = %+v", first)
	}

	_, _ = m.Append(ctx, Fields{Text: "two", User: "Budi", UserEmail: "budi@x"})
	_, _ = m.Append(ctx, Fields{User: "Budi", UserEmail: "budi@x", ImageURL: "https://img/1.jpg", IsImage: true})

	got := collect(t, snaps, 3)
	for i := 1; i < len(got); i++ {
		if !got[i-1].CreatedAt.Before(*got[i].CreatedAt) {
			t.Errorf("snapshot not ascending at %d: %v >= %v", i, got[i-1].CreatedAt, got[i].CreatedAt)
		}
	}
	if got[2].Text != "" || !got[2].IsImage {
		t.Errorf("image message = %+v", got[2])
	}
}

func TestMemoryStrictlyIncreasingTimestamps(t *testing.T) {
	m := NewMemory()
	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return fixed }

	for range 3 {
		if _, err := m.Append(context.Background(), Fields{Text: "x"}); err != nil {
			t.Fatal(err)
		}
	}
	snap := m.Snapshot()
	for i := 1; i < len(snap); i++ {
		if !snap[i].CreatedAt.After(*snap[i-1].CreatedAt) {
			t.Fatalf("timestamps not strictly increasing: %v", snap)
		}
	}
}

func TestMemoryNoDeliveryAfterUnsubscribe(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	snaps := make(chan []chat.Message, 16)
	unsub := m.Subscribe(ctx, func(msgs []chat.Message) { snaps <- msgs }, nil)
	collect(t, snaps, 0)
	unsub()

	_, _ = m.Append(ctx, Fields{Text: "late"})
	select {
	case msgs := <-snaps:
		t.Errorf("snapshot after unsubscribe: %v", msgs)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestMemoryFailEndsSubscription(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	snaps := make(chan []chat.Message, 16)
	errs := make(chan error, 4)
	m.Subscribe(ctx, func(msgs []chat.Message) { snaps <- msgs }, func(err error) { errs <- err })
	collect(t, snaps, 0)

	boom := errors.New("permission denied")
	m.Fail(boom)

	select {
	case err := <-errs:
		if !errors.Is(err, boom) {
			t.Errorf("onError(%v), want %v", err, boom)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for error")
	}

	_, _ = m.Append(ctx, Fields{Text: "after error"})
	select {
	case msgs := <-snaps:
		t.Errorf("snapshot after error: %v", msgs)
	case <-time.After(100 * time.Millisecond):
	}

	deadline := time.Now().Add(2 * time.Second)
	for m.Subscribers() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("Subscribers() = %d after failure, want 0", m.Subscribers())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestSortByCreatedAtPendingLast(t *testing.T) {
	t1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Second)
	msgs := []chat.Message{
		{ID: "p"},
		{ID: "b", CreatedAt: &t2},
		{ID: "a", CreatedAt: &t1},
	}
	sortByCreatedAt(msgs)
	if msgs[0].ID != "a" || msgs[1].ID != "b" || msgs[2].ID != "p" {
		t.Errorf("order = %s %s %s, want a b p", msgs[0].ID, msgs[1].ID, msgs[2].ID)
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	if _, _, err := Open(context.Background(), configFor("carrier-pigeon"), nil); err == nil {
		t.Error("Open() with unknown backend should fail")
	}
	ch, closeFn, err := Open(context.Background(), configFor("memory"), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = closeFn(context.Background()) }()
	if _, ok := ch.(*Memory); !ok {
		t.Errorf("Open(memory) = %T", ch)
	}
}
