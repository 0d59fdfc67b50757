package db

import (
	"database/sql"
	"time"

	apperrors "github.com/ctukiosk/backend/internal/errors"
)

// GetSetting returns the value for a settings key. A missing key is not
// an error; it returns the empty string.
func (r *Repository) GetSetting(key string) (string, error) {
	if err := r.ready(); err != nil {
		return "", err
	}

	var value string
	err := r.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", apperrors.Wrap(apperrors.ErrStorageUnavailable, "failed to read setting", err)
	}
	return value, nil
}

// SetSetting upserts a settings key/value entry.
func (r *Repository) SetSetting(key, value string) error {
	if err := r.ready(); err != nil {
		return err
	}
	if key == "" {
		return apperrors.New(apperrors.ErrInvalid, "setting key is required")
	}

	_, err := r.db.Exec(`
	INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, time.Now().Unix())
	if err != nil {
		return apperrors.Wrap(apperrors.ErrStorageUnavailable, "failed to write setting", err)
	}
	return nil
}
