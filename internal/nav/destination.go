// Package nav names the screens the session can land on.
package nav

import "github.com/matheus3301/chatroom/internal/chat"

// Route is one of the three screens.
type Route string

const (
	Login    Route = "LOGIN"
	Register Route = "REGISTER"
	Chat     Route = "CHAT"
)

// Destination is a navigation request. Replace drops the previous screen
// from history so "back" cannot return to it.
type Destination struct {
	Route     Route
	UserName  string
	UserEmail string
	Replace   bool
}

// ToLogin returns a replacing Login destination.
func ToLogin() Destination {
	return Destination{Route: Login, Replace: true}
}

// ToChat returns a replacing Chat destination for the participant.
func ToChat(p chat.Participant) Destination {
	return Destination{Route: Chat, UserName: p.Name, UserEmail: p.Email, Replace: true}
}

// Participant extracts the chat params. Only meaningful for Chat.
func (d Destination) Participant() chat.Participant {
	return chat.Participant{Name: d.UserName, Email: d.UserEmail}
}

func (d Destination) String() string {
	if d.Route == Chat {
		return string(d.Route) + "(" + d.UserName + " <" + d.UserEmail + ">)"
	}
	return string(d.Route)
}
