package nav

import (
	"testing"

	"github.com/matheus3301/chatroom/internal/chat"
)

func TestToChat(t *testing.T) {
	d := ToChat(chat.Participant{Name: "Ana", Email: "ana@x.io"})
	if d.Route != Chat || !d.Replace {
		t.Fatalf("ToChat = %+v", d)
	}
	if p := d.Participant(); p.Name != "Ana" || p.Email != "ana@x.io" {
		t.Fatalf("Participant = %+v", p)
	}
	if got := d.String(); got != "CHAT(Ana <ana@x.io>)" {
		t.Fatalf("String = %q", got)
	}
}

func TestToLogin(t *testing.T) {
	d := ToLogin()
	if d.Route != Login || !d.Replace || d.UserEmail != "" {
		t.Fatalf("ToLogin = %+v", d)
	}
	if d.String() != "LOGIN" {
		t.Fatalf("String = %q", d.String())
	}
}
