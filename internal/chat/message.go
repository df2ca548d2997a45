// Package chat holds the domain types shared by the sync, send and
// bootstrap paths.
package chat

import (
	"errors"
	"strings"
	"time"
)

// ErrEmptyMessage is returned by Validate for a message with neither text nor image.
var ErrEmptyMessage = errors.New("message has no text and no image")

// Message is one chat entry as stored remotely and mirrored to the cache.
// JSON names match the remote document fields.
type Message struct {
	ID        string     `json:"id"`
	Text      string     `json:"text"`
	User      string     `json:"user"`
	UserEmail string     `json:"userEmail"`
	CreatedAt *time.Time `json:"createdAt"`
	ImageURL  string     `json:"imageUrl,omitempty"`
	IsImage   bool       `json:"isImage"`
}

// Validate checks that the message carries text or a complete image attachment.
func (m Message) Validate() error {
	if m.Text != "" {
		return nil
	}
	if m.IsImage && m.ImageURL != "" {
		return nil
	}
	return ErrEmptyMessage
}

// IsMine reports whether the message was sent by the given identity.
func (m Message) IsMine(email string) bool {
	return m.UserEmail == email
}

// Pending reports whether the server has not yet assigned a creation time.
func (m Message) Pending() bool {
	return m.CreatedAt == nil
}

// SessionSnapshot is the last-known signed-in identity.
type SessionSnapshot struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
}

// Credentials are kept so the next launch can sign in silently.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Participant identifies the local user inside the chat room.
type Participant struct {
	Name  string
	Email string
}

// DisplayName picks the name shown for a user: the profile name, then the
// local part of the email, then "User".
func DisplayName(name, email string) string {
	if name != "" {
		return name
	}
	if local, _, _ := strings.Cut(email, "@"); local != "" {
		return local
	}
	return "User"
}
