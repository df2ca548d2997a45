package api

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/matheus3301/chatroom/internal/chat"
	"github.com/matheus3301/chatroom/internal/nav"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// Destination mirrors nav.Destination on the wire.
type Destination struct {
	Route     string `json:"route"`
	UserName  string `json:"userName,omitempty"`
	UserEmail string `json:"userEmail,omitempty"`
	Replace   bool   `json:"replace"`
}

func destinationFrom(d nav.Destination) Destination {
	return Destination{Route: string(d.Route), UserName: d.UserName, UserEmail: d.UserEmail, Replace: d.Replace}
}

type StatusReply struct {
	Profile      string      `json:"profile"`
	State        string      `json:"state"`
	Online       bool        `json:"online"`
	Mode         string      `json:"mode"`
	Destination  Destination `json:"destination"`
	Sending      bool        `json:"sending"`
	Uploading    bool        `json:"uploading"`
	MessageCount int         `json:"messageCount"`
	UptimeMs     int64       `json:"uptimeMs"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	Confirm     string `json:"confirm"`
}

type MessagesReply struct {
	Messages []chat.Message `json:"messages"`
}

type SendReply struct {
	ID       string `json:"id"`
	ImageURL string `json:"imageUrl,omitempty"`
}

type Orphan struct {
	URL       string    `json:"url"`
	FileName  string    `json:"fileName"`
	UserEmail string    `json:"userEmail"`
	Error     string    `json:"error"`
	CreatedAt time.Time `json:"createdAt"`
}

type OrphansReply struct {
	Uploads []Orphan `json:"uploads"`
}

// Event is one entry of the WatchEvents stream. Only the fields relevant
// to Kind are set.
type Event struct {
	Kind        string         `json:"kind"`
	OccurredAt  time.Time      `json:"occurredAt"`
	State       string         `json:"state,omitempty"`
	Online      *bool          `json:"online,omitempty"`
	Destination *Destination   `json:"destination,omitempty"`
	Messages    []chat.Message `json:"messages,omitempty"`
	Error       string         `json:"error,omitempty"`
}

// KindHello opens every event stream with the current state.
const KindHello = "stream.hello"

// encode converts a JSON-tagged value into a Struct.
func encode(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %T: %w", v, err)
	}
	s := &structpb.Struct{}
	if err := protojson.Unmarshal(b, s); err != nil {
		return nil, fmt.Errorf("encode %T: %w", v, err)
	}
	return s, nil
}

// decode converts a Struct into a JSON-tagged value.
func decode(s *structpb.Struct, v any) error {
	if s == nil {
		s = &structpb.Struct{}
	}
	b, err := protojson.Marshal(s)
	if err != nil {
		return fmt.Errorf("decode %T: %w", v, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode %T: %w", v, err)
	}
	return nil
}
