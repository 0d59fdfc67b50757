package db

import (
	"time"

	apperrors "github.com/ctukiosk/backend/internal/errors"
	"github.com/ctukiosk/backend/internal/models"
)

// SeedFacilities inserts the default facility catalog on first run.
// Idempotent: if any facilities already exist the call is a no-op.
func (r *Repository) SeedFacilities() error {
	if err := r.ready(); err != nil {
		return err
	}

	var count int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM facilities`).Scan(&count); err != nil {
		return apperrors.Wrap(apperrors.ErrStorageUnavailable, "failed to count facilities", err)
	}
	if count > 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return apperrors.Wrap(apperrors.ErrStorageUnavailable, "failed to begin transaction", err)
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	for _, f := range models.DefaultFacilities() {
		_, err := tx.Exec(`
		INSERT INTO facilities (name, base_price, description, is_active, created_at)
		VALUES (?, ?, ?, ?, ?)
		`, f.Name, f.BasePrice, f.Description, f.IsActive, now)
		if err != nil {
			return apperrors.Wrap(apperrors.ErrStorageUnavailable, "failed to seed facilities", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.Wrap(apperrors.ErrStorageUnavailable, "failed to commit facility seed", err)
	}
	return nil
}

// ListFacilities returns the facility catalog ordered by name. When
// activeOnly is set, inactive facilities are filtered out.
func (r *Repository) ListFacilities(activeOnly bool) ([]*models.Facility, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}

	query := `SELECT id, name, base_price, description, is_active, created_at FROM facilities`
	if activeOnly {
		query += ` WHERE is_active = 1`
	}
	query += ` ORDER BY name`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorageUnavailable, "failed to query facilities", err)
	}
	defer rows.Close()

	var facilities []*models.Facility
	for rows.Next() {
		var f models.Facility
		if err := rows.Scan(&f.ID, &f.Name, &f.BasePrice, &f.Description, &f.IsActive, &f.CreatedAt); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrStorageUnavailable, "failed to scan facility", err)
		}
		facilities = append(facilities, &f)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorageUnavailable, "failed to iterate facilities", err)
	}
	return facilities, nil
}

// GetFacilityByName returns one facility by its unique name.
func (r *Repository) GetFacilityByName(name string) (*models.Facility, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}

	var f models.Facility
	err := r.db.QueryRow(
		`SELECT id, name, base_price, description, is_active, created_at FROM facilities WHERE name = ?`,
		name,
	).Scan(&f.ID, &f.Name, &f.BasePrice, &f.Description, &f.IsActive, &f.CreatedAt)
	if err != nil {
		return nil, apperrors.Newf(apperrors.ErrNotFound, "facility %s not found", name)
	}
	return &f, nil
}
