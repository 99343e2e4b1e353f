package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"guild-tracker/internal/domain"
)

type SyncRunRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewSyncRunRepository(db *sql.DB, logger zerolog.Logger) *SyncRunRepository {
	return &SyncRunRepository{db: db, logger: logger}
}

func (r *SyncRunRepository) Create(ctx context.Context, run *domain.SyncRun) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sync_runs (id, started_at, total, synced, failed, status, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt, run.Total, run.Synced, run.Failed, run.Status, run.Error)
	if err != nil {
		return fmt.Errorf("failed to create sync run: %w", err)
	}

	r.logger.Debug().Str("sync_run_id", run.ID).Msg("sync run created")
	return nil
}

func (r *SyncRunRepository) Finish(ctx context.Context, run *domain.SyncRun) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sync_runs
		SET finished_at = ?, total = ?, synced = ?, failed = ?, status = ?, error = ?
		WHERE id = ?`,
		run.FinishedAt, run.Total, run.Synced, run.Failed, run.Status, run.Error, run.ID)
	if err != nil {
		return fmt.Errorf("failed to finish sync run: %w", err)
	}

	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		return fmt.Errorf("sync run %s not found", run.ID)
	}
	return nil
}

// Latest returns the most recently started sync run.
func (r *SyncRunRepository) Latest(ctx context.Context) (*domain.SyncRun, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, started_at, finished_at, total, synced, failed, status, error
		FROM sync_runs
		ORDER BY started_at DESC
		LIMIT 1`)

	var run domain.SyncRun
	var finishedAt sql.NullTime
	err := row.Scan(&run.ID, &run.StartedAt, &finishedAt, &run.Total, &run.Synced,
		&run.Failed, &run.Status, &run.Error)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if finishedAt.Valid {
		run.FinishedAt = finishedAt.Time
	}
	return &run, nil
}

// History returns recent sync runs, newest first.
func (r *SyncRunRepository) History(ctx context.Context, limit int) ([]domain.SyncRun, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, started_at, finished_at, total, synced, failed, status, error
		FROM sync_runs
		ORDER BY started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sync runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.SyncRun
	for rows.Next() {
		var run domain.SyncRun
		var finishedAt sql.NullTime
		if err := rows.Scan(&run.ID, &run.StartedAt, &finishedAt, &run.Total,
			&run.Synced, &run.Failed, &run.Status, &run.Error); err != nil {
			return nil, err
		}
		if finishedAt.Valid {
			run.FinishedAt = finishedAt.Time
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
