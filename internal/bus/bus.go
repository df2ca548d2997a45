// Package bus carries daemon events between components in-process.
package bus

import (
	"slices"
	"strings"
	"sync"
	"sync/atomic"
)

// Bus is an in-process publish/subscribe event bus. Publishing never
// blocks: a subscriber with a full buffer misses the event, and the miss is
// counted.
type Bus struct {
	mu      sync.RWMutex
	subs    map[int]*subscription
	next    int
	dropped atomic.Uint64
}

type subscription struct {
	match func(kind string) bool
	ch    chan Event
}

// New creates a new event bus.
func New() *Bus {
	return &Bus{
		subs: make(map[int]*subscription),
	}
}

// Publish delivers evt to every matching subscriber. Safe to call on a nil
// Bus.
func (b *Bus) Publish(evt Event) {
	if b == nil {
		return
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		if !sub.match(evt.Kind) {
			continue
		}
		select {
		case sub.ch <- evt:
		default:
			b.dropped.Add(1)
		}
	}
}

// Subscribe receives events whose kind starts with prefix; "" matches
// everything.
func (b *Bus) Subscribe(prefix string, bufSize int) (<-chan Event, func()) {
	return b.add(func(kind string) bool { return strings.HasPrefix(kind, prefix) }, bufSize)
}

// SubscribeKinds receives only the listed kinds.
func (b *Bus) SubscribeKinds(bufSize int, kinds ...string) (<-chan Event, func()) {
	kinds = slices.Clone(kinds)
	return b.add(func(kind string) bool { return slices.Contains(kinds, kind) }, bufSize)
}

// Dropped returns how many deliveries were skipped because a subscriber
// was full.
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}

func (b *Bus) add(match func(string) bool, bufSize int) (<-chan Event, func()) {
	ch := make(chan Event, bufSize)
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = &subscription{match: match, ch: ch}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}
