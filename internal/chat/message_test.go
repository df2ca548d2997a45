package chat

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		msg     Message
		wantErr bool
	}{
		{"text only", Message{Text: "hi"}, false},
		{"image", Message{IsImage: true, ImageURL: "https://x/y.jpg"}, false},
		{"image and text", Message{Text: "caption", IsImage: true, ImageURL: "u"}, false},
		{"empty", Message{}, true},
		{"image flag without url", Message{IsImage: true}, true},
		{"url without flag", Message{ImageURL: "u"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrEmptyMessage) {
				t.Errorf("Validate() error = %v, want ErrEmptyMessage", err)
			}
		})
	}
}

func TestIsMine(t *testing.T) {
	m := Message{UserEmail: "a@b.c"}
	if !m.IsMine("a@b.c") {
		t.Error("IsMine(a@b.c) = false")
	}
	if m.IsMine("x@b.c") {
		t.Error("IsMine(x@b.c) = true")
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		name, email, want string
	}{
		{"Ana", "ana@x.io", "Ana"},
		{"", "budi@x.io", "budi"},
		{"", "", "User"},
		{"", "@x.io", "User"},
	}
	for _, tt := range tests {
		if got := DisplayName(tt.name, tt.email); got != tt.want {
			t.Errorf("DisplayName(%q, %q) = %q, want %q", tt.name, tt.email, got, tt.want)
		}
	}
}

func TestMessageJSONFieldNames(t *testing.T) {
	ts := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	data, err := json.Marshal(Message{ID: "1", Text: "hi", User: "Ana", UserEmail: "a@x", CreatedAt: &ts})
	if err != nil {
		t.Fatal(err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"id", "text", "user", "userEmail", "createdAt", "isImage"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("missing key %q in %s", key, data)
		}
	}
	if _, ok := raw["imageUrl"]; ok {
		t.Errorf("imageUrl should be omitted for text messages: %s", data)
	}

	var pending Message
	if err := json.Unmarshal([]byte(`{"id":"2","text":"x","createdAt":null}`), &pending); err != nil {
		t.Fatal(err)
	}
	if !pending.Pending() {
		t.Error("null createdAt should decode as pending")
	}
	if !reflect.DeepEqual(pending, Message{ID: "2", Text: "x"}) {
		t.Errorf("decoded = %+v", pending)
	}
}
