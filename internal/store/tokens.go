package store

import (
	"database/sql"
	"errors"
	"time"
)

// IdentityToken is the identity provider's persisted sign-in state.
type IdentityToken struct {
	UID          string
	Email        string
	DisplayName  string
	IDToken      string
	RefreshToken string
	ExpiresAt    int64 // unix seconds
}

// SaveIdentityToken replaces the persisted token.
func (db *DB) SaveIdentityToken(t *IdentityToken) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO identity_tokens (id, uid, email, display_name, id_token, refresh_token, expires_at, updated_at)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			uid = excluded.uid,
			email = excluded.email,
			display_name = excluded.display_name,
			id_token = excluded.id_token,
			refresh_token = excluded.refresh_token,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at`,
		t.UID, t.Email, t.DisplayName, t.IDToken, t.RefreshToken, t.ExpiresAt, now)
	return err
}

// IdentityToken returns the persisted token, or nil if none.
func (db *DB) IdentityToken() (*IdentityToken, error) {
	var t IdentityToken
	err := db.QueryRow(`
		SELECT uid, email, display_name, id_token, refresh_token, expires_at
		FROM identity_tokens WHERE id = 1`).
		Scan(&t.UID, &t.Email, &t.DisplayName, &t.IDToken, &t.RefreshToken, &t.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ClearIdentityToken forgets the persisted token.
func (db *DB) ClearIdentityToken() error {
	_, err := db.Exec(`DELETE FROM identity_tokens`)
	return err
}
