package store

import "time"

// OrphanedUpload is an image that reached the object store but whose
// message document was never written.
type OrphanedUpload struct {
	ID           int64
	URL          string
	FileName     string
	UserEmail    string
	ErrorMessage string
	CreatedAt    int64
}

// RecordOrphanedUpload journals an uploaded image left without a message.
func (db *DB) RecordOrphanedUpload(url, fileName, userEmail, errMsg string) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO orphaned_uploads (url, file_name, user_email, error_message, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		url, fileName, userEmail, errMsg, now)
	return err
}

// OrphanedUploads lists journaled uploads, newest first.
func (db *DB) OrphanedUploads(limit int) ([]OrphanedUpload, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.Query(`
		SELECT id, url, file_name, user_email, error_message, created_at
		FROM orphaned_uploads ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []OrphanedUpload
	for rows.Next() {
		var o OrphanedUpload
		if err := rows.Scan(&o.ID, &o.URL, &o.FileName, &o.UserEmail, &o.ErrorMessage, &o.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
