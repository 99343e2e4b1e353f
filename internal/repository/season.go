package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"guild-tracker/internal/domain"
)

type SeasonRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewSeasonRepository(db *sql.DB, logger zerolog.Logger) *SeasonRepository {
	return &SeasonRepository{db: db, logger: logger}
}

func (r *SeasonRepository) Get(ctx context.Context, season int) (*domain.GuildSeasonStats, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT document FROM season_stats WHERE season = ?`, season)

	var doc string
	if err := row.Scan(&doc); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var stats domain.GuildSeasonStats
	if err := json.Unmarshal([]byte(doc), &stats); err != nil {
		return nil, fmt.Errorf("failed to decode season stats document: %w", err)
	}
	return &stats, nil
}

// Upsert writes the season record keyed by season number. Concurrent writers
// for the same season race last-write-wins; recomputation is deterministic so
// either result is valid.
func (r *SeasonRepository) Upsert(ctx context.Context, stats *domain.GuildSeasonStats) error {
	doc, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to encode season stats document: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO season_stats (season, document, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(season) DO UPDATE SET
			document = excluded.document,
			updated_at = excluded.updated_at`,
		stats.Season, string(doc), time.Now().UTC())
	if err != nil {
		r.logger.Error().Err(err).Int("season", stats.Season).Msg("failed to upsert season stats")
		return fmt.Errorf("failed to upsert season stats: %w", err)
	}

	r.logger.Debug().Int("season", stats.Season).Msg("season stats upserted")
	return nil
}

// Seasons returns the season numbers with a persisted record, newest first.
func (r *SeasonRepository) Seasons(ctx context.Context) ([]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT season FROM season_stats ORDER BY season DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list seasons: %w", err)
	}
	defer rows.Close()

	var seasons []int
	for rows.Next() {
		var season int
		if err := rows.Scan(&season); err != nil {
			return nil, err
		}
		seasons = append(seasons, season)
	}
	return seasons, rows.Err()
}
