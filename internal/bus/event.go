package bus

import "time"

// Event kinds published inside the daemon.
const (
	KindConnectivityChanged = "connectivity.changed"
	KindChatSnapshot        = "chat.snapshot"
	KindChatChannelError    = "chat.channel_error"
	KindMessageSent         = "message.sent"
	KindMessageSendFailed   = "message.send_failed"
	KindMessageSendRejected = "message.send_rejected"
	KindStatusChanged       = "session.status_changed"
	KindDestination         = "session.destination"
)

// Event represents a domain event published on the bus.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}

// NewEvent stamps an event with the current time.
func NewEvent(kind string, payload any) Event {
	return Event{Kind: kind, Timestamp: time.Now(), Payload: payload}
}
