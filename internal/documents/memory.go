package documents

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/matheus3301/chatroom/internal/chat"
)

// Memory is an in-process Channel. Deliveries are asynchronous and
// coalesced: a slow subscriber sees the latest snapshot, not every one.
type Memory struct {
	mu     sync.Mutex
	docs   []chat.Message
	subs   map[int]*memorySub
	nextID int
	last   time.Time
	now    func() time.Time
}

type memorySub struct {
	*subscription
	notify chan struct{}
	failed chan error
}

// NewMemory creates an empty in-memory channel.
func NewMemory() *Memory {
	return &Memory{
		subs: make(map[int]*memorySub),
		now:  time.Now,
	}
}

// Append stores a document stamped with a strictly increasing server time.
func (m *Memory) Append(ctx context.Context, f Fields) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	ts := m.now().UTC()
	if !ts.After(m.last) {
		ts = m.last.Add(time.Microsecond)
	}
	m.last = ts
	id := uuid.NewString()
	m.docs = append(m.docs, chat.Message{
		ID:        id,
		Text:      f.Text,
		User:      f.User,
		UserEmail: f.UserEmail,
		CreatedAt: &ts,
		ImageURL:  f.ImageURL,
		IsImage:   f.IsImage,
	})
	m.notifyLocked()
	m.mu.Unlock()
	return id, nil
}

// Subscribe delivers the current snapshot and then one per change.
func (m *Memory) Subscribe(ctx context.Context, onSnapshot func([]chat.Message), onError func(error)) func() {
	sub, ctx := newSubscription(ctx, onSnapshot, onError)
	ms := &memorySub{
		subscription: sub,
		notify:       make(chan struct{}, 1),
		failed:       make(chan error, 1),
	}

	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.subs[id] = ms
	m.mu.Unlock()
	select {
	case ms.notify <- struct{}{}:
	default:
	}

	go func() {
		defer func() {
			m.mu.Lock()
			delete(m.subs, id)
			m.mu.Unlock()
		}()
		for {
			select {
			case <-ms.notify:
				ms.snapshot(m.Snapshot())
			case err := <-ms.failed:
				ms.fail(err)
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	return ms.unsubscribe
}

// Snapshot returns the ordered collection.
func (m *Memory) Snapshot() []chat.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]chat.Message, len(m.docs))
	copy(out, m.docs)
	sortByCreatedAt(out)
	return out
}

// Fail ends every live subscription with err.
func (m *Memory) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.subs {
		select {
		case s.failed <- err:
		default:
		}
	}
}

// Subscribers returns the number of live subscriptions.
func (m *Memory) Subscribers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}

func (m *Memory) notifyLocked() {
	for _, s := range m.subs {
		select {
		case s.notify <- struct{}{}:
		default:
		}
	}
}
