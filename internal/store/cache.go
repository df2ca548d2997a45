package store

import (
	"encoding/json"
	"fmt"

	"github.com/matheus3301/chatroom/internal/chat"
	"go.uber.org/zap"
)

// Cache is the typed view over the key-value table. Reads never fail:
// a missing, unreadable or undecodable entry is logged and reported as absent.
type Cache struct {
	db     *DB
	logger *zap.Logger
}

// NewCache creates a cache over db.
func NewCache(db *DB, logger *zap.Logger) *Cache {
	return &Cache{db: db, logger: logger}
}

// SaveMessages mirrors a full message list.
func (c *Cache) SaveMessages(msgs []chat.Message) error {
	if msgs == nil {
		msgs = []chat.Message{}
	}
	return c.put(KeyMessages, msgs)
}

// LoadMessages returns the last mirrored list, or nil.
func (c *Cache) LoadMessages() []chat.Message {
	var msgs []chat.Message
	if !c.get(KeyMessages, &msgs) {
		return nil
	}
	return msgs
}

// SaveSession stores the signed-in identity snapshot.
func (c *Cache) SaveSession(s chat.SessionSnapshot) error {
	return c.put(KeyUserData, s)
}

// LoadSession returns the stored snapshot, or nil.
func (c *Cache) LoadSession() *chat.SessionSnapshot {
	var s chat.SessionSnapshot
	if !c.get(KeyUserData, &s) {
		return nil
	}
	return &s
}

// ClearSession removes the identity snapshot.
func (c *Cache) ClearSession() error {
	return c.db.RemoveItem(KeyUserData)
}

// SaveCredentials stores the sign-in credentials.
func (c *Cache) SaveCredentials(cred chat.Credentials) error {
	return c.put(KeyAuthToken, cred)
}

// LoadCredentials returns the stored credentials, or nil.
func (c *Cache) LoadCredentials() *chat.Credentials {
	var cred chat.Credentials
	if !c.get(KeyAuthToken, &cred) {
		return nil
	}
	return &cred
}

// ClearCredentials removes the stored credentials.
func (c *Cache) ClearCredentials() error {
	return c.db.RemoveItem(KeyAuthToken)
}

// ClearAll removes credentials, snapshot and mirrored messages.
func (c *Cache) ClearAll() error {
	return c.db.MultiRemove(AllKeys...)
}

func (c *Cache) put(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return c.db.SetItem(key, string(data))
}

func (c *Cache) get(key string, v any) bool {
	raw, ok, err := c.db.GetItem(key)
	if err != nil {
		c.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		c.logger.Warn("cache entry unreadable", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}
