package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/desertthunder/amdu/internal/models"
	"github.com/desertthunder/amdu/internal/shared"
)

// BatchRepository stores the history of unsubscribe batches.
type BatchRepository struct {
	db *sql.DB
}

// NewBatchRepository creates a new BatchRepository with the given database connection
func NewBatchRepository(db *sql.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

// RecordBatch persists run and its failures.
func (r *BatchRepository) RecordBatch(ctx context.Context, run models.BatchRun) error {
	if run.ID == "" {
		return fmt.Errorf("%w: batch id is required", shared.ErrInvalidInput)
	}

	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO batch_runs (id, app_id, attempted, succeeded, failed, started_at, finished_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, run.ID, run.AppID, run.Attempted, run.Succeeded, len(run.Failures), run.StartedAt, run.FinishedAt)
		if err != nil {
			return fmt.Errorf("failed to insert batch run: %w", err)
		}

		for _, f := range run.Failures {
			_, err := tx.ExecContext(ctx,
				`INSERT OR REPLACE INTO batch_failures (batch_id, item_id, error) VALUES (?, ?, ?)`,
				run.ID, int64(f.ID), f.Error,
			)
			if err != nil {
				return fmt.Errorf("failed to insert batch failure: %w", err)
			}
		}
		return nil
	})
}

// List returns the most recent batches first. A limit of zero or less returns every batch.
func (r *BatchRepository) List(ctx context.Context, limit int) ([]models.BatchRun, error) {
	query := `
		SELECT id, app_id, attempted, succeeded, started_at, finished_at
		FROM batch_runs
		ORDER BY started_at DESC, id ASC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query batch runs: %w", err)
	}

	var runs []models.BatchRun
	for rows.Next() {
		var run models.BatchRun
		if err := rows.Scan(&run.ID, &run.AppID, &run.Attempted, &run.Succeeded, &run.StartedAt, &run.FinishedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan batch run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	rows.Close()

	for i := range runs {
		failures, err := r.failures(ctx, runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].Failures = failures
	}
	return runs, nil
}

// Get retrieves one batch by id.
func (r *BatchRepository) Get(ctx context.Context, id string) (models.BatchRun, error) {
	var run models.BatchRun
	err := r.db.QueryRowContext(ctx, `
		SELECT id, app_id, attempted, succeeded, started_at, finished_at
		FROM batch_runs WHERE id = ?
	`, id).Scan(&run.ID, &run.AppID, &run.Attempted, &run.Succeeded, &run.StartedAt, &run.FinishedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.BatchRun{}, fmt.Errorf("%w: batch %s not found", shared.ErrInvalidArgument, id)
	}
	if err != nil {
		return models.BatchRun{}, fmt.Errorf("failed to get batch run: %w", err)
	}

	run.Failures, err = r.failures(ctx, id)
	if err != nil {
		return models.BatchRun{}, err
	}
	return run, nil
}

func (r *BatchRepository) failures(ctx context.Context, batchID string) ([]models.BatchFailure, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT item_id, error FROM batch_failures WHERE batch_id = ? ORDER BY rowid ASC`,
		batchID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query batch failures: %w", err)
	}
	defer rows.Close()

	var failures []models.BatchFailure
	for rows.Next() {
		var id int64
		var f models.BatchFailure
		if err := rows.Scan(&id, &f.Error); err != nil {
			return nil, fmt.Errorf("failed to scan batch failure: %w", err)
		}
		f.ID = models.ItemID(id)
		failures = append(failures, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return failures, nil
}
