package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Fixed keys of the local key-value cache.
const (
	KeyUserData  = "@ChatApp:userData"
	KeyMessages  = "@ChatApp:messages"
	KeyAuthToken = "@ChatApp:authToken"
)

// AllKeys is the set ClearAll removes.
var AllKeys = []string{KeyUserData, KeyMessages, KeyAuthToken}

// GetItem returns the JSON text stored under key. ok is false when the key is absent.
func (db *DB) GetItem(key string) (value string, ok bool, err error) {
	err = db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s: %w", key, err)
	}
	return value, true, nil
}

// SetItem stores value under key, replacing any previous value.
func (db *DB) SetItem(key, value string) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, now)
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// RemoveItem deletes key. Removing an absent key is not an error.
func (db *DB) RemoveItem(key string) error {
	if _, err := db.Exec(`DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}

// MultiRemove deletes all keys in one transaction.
func (db *DB) MultiRemove(keys ...string) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, k := range keys {
		if _, err := tx.Exec(`DELETE FROM kv WHERE key = ?`, k); err != nil {
			return fmt.Errorf("remove %s: %w", k, err)
		}
	}
	return tx.Commit()
}
