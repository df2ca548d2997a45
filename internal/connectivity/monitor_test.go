package connectivity

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/matheus3301/chatroom/internal/bus"
	"go.uber.org/zap"
)

type fakeProber struct {
	mu  sync.Mutex
	err error
}

func (f *fakeProber) set(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func (f *fakeProber) Probe(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func newTestMonitor(p Prober, b *bus.Bus) *Monitor {
	return NewMonitor(p, time.Hour, time.Second, b, zap.NewNop())
}

func TestCheckTransitions(t *testing.T) {
	p := &fakeProber{}
	b := bus.New()
	ch, unsub := b.Subscribe("connectivity.", 10)
	defer unsub()

	m := newTestMonitor(p, b)
	var got []bool
	m.Watch(func(online bool) { got = append(got, online) })

	ctx := context.Background()
	m.Check(ctx) // offline -> online
	m.Check(ctx) // no change
	p.set(errors.New("unreachable"))
	m.Check(ctx) // online -> offline

	if len(got) != 2 || !got[0] || got[1] {
		t.Fatalf("watcher calls = %v, want [true false]", got)
	}
	if m.Online() {
		t.Error("Online() = true after failed probe")
	}

	evt := <-ch
	change, ok := evt.Payload.(Change)
	if !ok || !change.Online {
		t.Errorf("first event = %+v, want Change{Online: true}", evt.Payload)
	}
}

func TestInitiallyOffline(t *testing.T) {
	m := newTestMonitor(&fakeProber{}, nil)
	if m.Online() {
		t.Error("Online() before first probe = true")
	}
}

func TestOverride(t *testing.T) {
	p := &fakeProber{}
	m := newTestMonitor(p, nil)
	m.Check(context.Background())

	var calls []bool
	unwatch := m.Watch(func(online bool) { calls = append(calls, online) })

	m.Override(ForceOffline)
	if m.Online() {
		t.Error("ForceOffline: Online() = true")
	}
	// Probes succeed but the override wins.
	m.Check(context.Background())
	if m.Online() {
		t.Error("probe overrode ForceOffline")
	}

	m.Override(Auto)
	if !m.Online() {
		t.Error("Auto after successful probe: Online() = false")
	}

	unwatch()
	m.Override(ForceOffline)
	if len(calls) != 2 {
		t.Errorf("watcher calls = %v, want 2 before unwatch", calls)
	}
}

func TestStartProbesSynchronously(t *testing.T) {
	m := newTestMonitor(&fakeProber{}, nil)
	m.Start(context.Background())
	defer m.Stop()

	if !m.Online() {
		t.Error("Online() after Start with reachable prober = false")
	}
}

func TestParseMode(t *testing.T) {
	for _, s := range []string{"auto", "online", "offline"} {
		if _, err := ParseMode(s); err != nil {
			t.Errorf("ParseMode(%q) error = %v", s, err)
		}
	}
	if _, err := ParseMode("sometimes"); err == nil {
		t.Error("ParseMode(sometimes) should fail")
	}
}

func TestDialProber(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = ln.Close() }()
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			_ = c.Close()
		}
	}()

	closed, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	deadAddr := closed.Addr().String()
	_ = closed.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	p := &DialProber{Targets: []string{deadAddr, ln.Addr().String()}}
	if err := p.Probe(ctx); err != nil {
		t.Errorf("Probe() with one live target error = %v", err)
	}

	p = &DialProber{Targets: []string{deadAddr}}
	if err := p.Probe(ctx); err == nil {
		t.Error("Probe() with only dead target should fail")
	}

	p = &DialProber{}
	if err := p.Probe(ctx); err == nil {
		t.Error("Probe() with no targets should fail")
	}
}
