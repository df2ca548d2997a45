package views

import (
	"strings"
	"testing"
	"time"

	"github.com/matheus3301/chatroom/internal/chat"
	"github.com/matheus3301/chatroom/internal/tui/ui"
)

func TestFormatMessages(t *testing.T) {
	theme := ui.DefaultTheme()
	at := time.Date(2024, 5, 1, 9, 30, 0, 0, time.Local)
	msgs := []chat.Message{
		{ID: "1", Text: "halo [red]", User: "Bo", UserEmail: "bo@x.io", CreatedAt: &at},
		{ID: "2", Text: "hai", User: "Ana", UserEmail: "ana@x.io"},
		{ID: "3", User: "Ana", UserEmail: "ana@x.io", ImageURL: "https://img/1.jpg", IsImage: true, CreatedAt: &at},
	}

	out := FormatMessages(msgs, "ana@x.io", theme)

	if !strings.Contains(out, "Bo") || !strings.Contains(out, "09:30") {
		t.Errorf("peer message missing name or time:\n%s", out)
	}
	if strings.Count(out, "Kamu") != 2 {
		t.Errorf("own messages not labelled:\n%s", out)
	}
	if !strings.Contains(out, "mengirim...") {
		t.Errorf("pending message has no marker:\n%s", out)
	}
	if !strings.Contains(out, "https://img/1.jpg") {
		t.Errorf("image URL missing:\n%s", out)
	}
	if strings.Contains(out, "halo [red]") {
		t.Errorf("color tag in text not escaped:\n%s", out)
	}
	if strings.Index(out, "halo") > strings.Index(out, "hai") {
		t.Errorf("messages reordered:\n%s", out)
	}
}

func TestFormatMessagesEmpty(t *testing.T) {
	out := FormatMessages(nil, "ana@x.io", ui.DefaultTheme())
	if !strings.Contains(out, "Belum ada pesan") {
		t.Fatalf("empty list text = %q", out)
	}
}

func TestDisplayTextDropsModifiers(t *testing.T) {
	if got := displayText("👍\U0001F3FB"); got != "👍" {
		t.Fatalf("displayText = %q", got)
	}
}
