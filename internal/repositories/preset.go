package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/amdu/internal/models"
	"github.com/desertthunder/amdu/internal/shared"
)

// PresetRepository stores keep sets so they survive between runs.
type PresetRepository struct {
	db *sql.DB
}

// NewPresetRepository creates a new PresetRepository with the given database connection
func NewPresetRepository(db *sql.DB) *PresetRepository {
	return &PresetRepository{db: db}
}

// Save inserts set, or replaces the entries of the saved set with the same name.
func (r *PresetRepository) Save(set models.KeepSet) error {
	if set.Name == "" {
		return fmt.Errorf("%w: keep set name is required", shared.ErrInvalidInput)
	}

	now := time.Now().UTC()
	return withTx(context.Background(), r.db, func(tx *sql.Tx) error {
		var id string
		err := tx.QueryRow(`SELECT id FROM keep_sets WHERE name = ?`, set.Name).Scan(&id)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			id = shared.GenerateID()
			_, err = tx.Exec(
				`INSERT INTO keep_sets (id, name, source, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
				id, set.Name, set.Source, now, now,
			)
			if err != nil {
				return fmt.Errorf("failed to insert keep set: %w", err)
			}
		case err != nil:
			return fmt.Errorf("failed to look up keep set: %w", err)
		default:
			if _, err := tx.Exec(`UPDATE keep_sets SET source = ?, updated_at = ? WHERE id = ?`, set.Source, now, id); err != nil {
				return fmt.Errorf("failed to update keep set: %w", err)
			}
			if _, err := tx.Exec(`DELETE FROM keep_set_entries WHERE keep_set_id = ?`, id); err != nil {
				return fmt.Errorf("failed to clear keep set entries: %w", err)
			}
		}

		stmt, err := tx.Prepare(`INSERT INTO keep_set_entries (keep_set_id, position, item_id, name, url) VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare entry insert: %w", err)
		}
		defer stmt.Close()

		for i, e := range set.Entries {
			if _, err := stmt.Exec(id, i, int64(e.ID), e.Name, e.URL); err != nil {
				return fmt.Errorf("failed to insert keep set entry: %w", err)
			}
		}
		return nil
	})
}

// Get retrieves the keep set called name.
func (r *PresetRepository) Get(name string) (models.KeepSet, error) {
	var (
		id  string
		set = models.KeepSet{Name: name}
	)
	err := r.db.QueryRow(`SELECT id, source FROM keep_sets WHERE name = ?`, name).Scan(&id, &set.Source)
	if errors.Is(err, sql.ErrNoRows) {
		return models.KeepSet{}, fmt.Errorf("%w: %s", shared.ErrPresetNotFound, name)
	}
	if err != nil {
		return models.KeepSet{}, fmt.Errorf("failed to get keep set: %w", err)
	}

	entries, err := r.entries(id)
	if err != nil {
		return models.KeepSet{}, err
	}
	set.Entries = entries
	return set, nil
}

// List retrieves every saved keep set ordered by name.
func (r *PresetRepository) List() ([]models.KeepSet, error) {
	rows, err := r.db.Query(`SELECT id, name, source FROM keep_sets ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query keep sets: %w", err)
	}

	var (
		ids  []string
		sets []models.KeepSet
	)
	for rows.Next() {
		var id string
		var set models.KeepSet
		if err := rows.Scan(&id, &set.Name, &set.Source); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan keep set: %w", err)
		}
		ids = append(ids, id)
		sets = append(sets, set)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	rows.Close()

	for i, id := range ids {
		entries, err := r.entries(id)
		if err != nil {
			return nil, err
		}
		sets[i].Entries = entries
	}
	return sets, nil
}

// Delete removes the keep set called name.
func (r *PresetRepository) Delete(name string) error {
	return withTx(context.Background(), r.db, func(tx *sql.Tx) error {
		var id string
		err := tx.QueryRow(`SELECT id FROM keep_sets WHERE name = ?`, name).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", shared.ErrPresetNotFound, name)
		}
		if err != nil {
			return fmt.Errorf("failed to look up keep set: %w", err)
		}

		if _, err := tx.Exec(`DELETE FROM keep_set_entries WHERE keep_set_id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete keep set entries: %w", err)
		}
		if _, err := tx.Exec(`DELETE FROM keep_sets WHERE id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete keep set: %w", err)
		}
		return nil
	})
}

// Clear removes every saved keep set and returns how many there were.
func (r *PresetRepository) Clear() (int, error) {
	var n int64
	err := withTx(context.Background(), r.db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM keep_set_entries`); err != nil {
			return fmt.Errorf("failed to delete keep set entries: %w", err)
		}
		result, err := tx.Exec(`DELETE FROM keep_sets`)
		if err != nil {
			return fmt.Errorf("failed to delete keep sets: %w", err)
		}
		n, err = result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get affected rows: %w", err)
		}
		return nil
	})
	return int(n), err
}

func (r *PresetRepository) entries(keepSetID string) ([]models.KeepEntry, error) {
	rows, err := r.db.Query(
		`SELECT item_id, name, url FROM keep_set_entries WHERE keep_set_id = ? ORDER BY position ASC`,
		keepSetID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query keep set entries: %w", err)
	}
	defer rows.Close()

	entries := []models.KeepEntry{}
	for rows.Next() {
		var id int64
		var e models.KeepEntry
		if err := rows.Scan(&id, &e.Name, &e.URL); err != nil {
			return nil, fmt.Errorf("failed to scan keep set entry: %w", err)
		}
		e.ID = models.ItemID(id)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return entries, nil
}
