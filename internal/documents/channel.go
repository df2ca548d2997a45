// Package documents implements the remote ordered message feed: append a
// message with a server-assigned timestamp, and subscribe to full ordered
// snapshots of the collection.
package documents

import (
	"context"
	"sort"
	"sync"

	"github.com/matheus3301/chatroom/internal/chat"
)

// Fields is the client-supplied part of a new message document.
// The server assigns the id and createdAt.
type Fields struct {
	Text      string
	User      string
	UserEmail string
	ImageURL  string
	IsImage   bool
}

// Channel is a remote message collection.
//
// Subscribe delivers the complete ordered list on every change, ascending
// by createdAt. Callbacks for one subscription run sequentially. After an
// error is reported the subscription is over; there is no retry.
// unsubscribe stops new deliveries and never blocks.
type Channel interface {
	Append(ctx context.Context, f Fields) (id string, err error)
	Subscribe(ctx context.Context, onSnapshot func([]chat.Message), onError func(error)) (unsubscribe func())
}

type subscription struct {
	mu         sync.Mutex
	closed     bool
	cancel     context.CancelFunc
	onSnapshot func([]chat.Message)
	onError    func(error)
}

func newSubscription(ctx context.Context, onSnapshot func([]chat.Message), onError func(error)) (*subscription, context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	return &subscription{
		cancel:     cancel,
		onSnapshot: onSnapshot,
		onError:    onError,
	}, ctx
}

func (s *subscription) active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed
}

func (s *subscription) snapshot(msgs []chat.Message) {
	if !s.active() {
		return
	}
	s.onSnapshot(msgs)
}

// fail ends the subscription and reports err once.
func (s *subscription) fail(err error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()
	s.cancel()
	if s.onError != nil {
		s.onError(err)
	}
}

func (s *subscription) unsubscribe() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cancel()
}

// sortByCreatedAt orders ascending by createdAt, pending documents last,
// ties broken by id.
func sortByCreatedAt(msgs []chat.Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		a, b := msgs[i].CreatedAt, msgs[j].CreatedAt
		switch {
		case a == nil && b == nil:
			return msgs[i].ID < msgs[j].ID
		case a == nil:
			return false
		case b == nil:
			return true
		case a.Equal(*b):
			return msgs[i].ID < msgs[j].ID
		}
		return a.Before(*b)
	})
}
