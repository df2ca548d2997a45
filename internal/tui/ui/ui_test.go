package ui

import (
	"slices"
	"testing"
	"time"

	"github.com/rivo/tview"
)

func TestFlashExpires(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	f := NewFlashModel()
	f.now = func() time.Time { return now }

	if f.Current() != nil {
		t.Fatal("new model has a message")
	}
	f.Err("Email atau password salah")
	if m := f.Current(); m == nil || m.Level != FlashErr {
		t.Fatalf("Current() = %+v", m)
	}
	now = now.Add(11 * time.Second)
	if m := f.Current(); m != nil {
		t.Fatalf("message outlived its expiry: %+v", m)
	}
}

func TestPagesNavigate(t *testing.T) {
	p := NewPages()
	for _, name := range []string{"login", "register", "chat", "help"} {
		p.AddPage(name, tview.NewBox(), true, false)
	}

	p.Reset("login")
	p.Navigate("register", false)
	if got := p.Stack(); !slices.Equal(got, []string{"login", "register"}) {
		t.Fatalf("stack = %v", got)
	}

	// Post-login moves replace history: back cannot return to the forms.
	p.Navigate("chat", true)
	p.Navigate("help", false)
	if p.Pop() != "help" || p.Current() != "chat" {
		t.Fatalf("after pop current = %q", p.Current())
	}
	if p.Pop() != "" || p.Current() != "chat" {
		t.Fatal("popped the last page")
	}
}
