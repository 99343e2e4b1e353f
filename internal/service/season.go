package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"guild-tracker/internal/constants"
	"guild-tracker/internal/domain"
	"guild-tracker/internal/metrics"
	"guild-tracker/internal/repository"
	"guild-tracker/internal/stats"

	"github.com/rs/zerolog"
)

type SeasonService struct {
	characters *repository.CharacterRepository
	seasons    *repository.SeasonRepository
	logger     zerolog.Logger
}

func NewSeasonService(characters *repository.CharacterRepository, seasons *repository.SeasonRepository, logger zerolog.Logger) *SeasonService {
	return &SeasonService{characters: characters, seasons: seasons, logger: logger}
}

// GetSeasonStats returns the persisted guild statistics for a season.
// Returns repository.ErrNotFound when the season has never been aggregated.
func (s *SeasonService) GetSeasonStats(ctx context.Context, season int) (*domain.GuildSeasonStats, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	return s.seasons.Get(ctx, season)
}

// RefreshSeasonStats recomputes guild statistics for a season from every
// stored character document and persists the result.
func (s *SeasonService) RefreshSeasonStats(ctx context.Context, season int) (*domain.GuildSeasonStats, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	characters, err := s.characters.All(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to load characters for aggregation")
		return nil, fmt.Errorf("failed to load characters: %w", err)
	}

	start := time.Now()
	guildStats := stats.AggregateGuildSeason(characters, season)
	metrics.AggregationDuration.Observe(time.Since(start).Seconds())
	metrics.AggregationRunsTotal.WithLabelValues(strconv.Itoa(season)).Inc()

	if err := s.seasons.Upsert(ctx, &guildStats); err != nil {
		s.logger.Error().Err(err).Int("season", season).Msg("failed to persist season stats")
		return nil, err
	}

	s.logger.Info().
		Int("season", season).
		Int("characters", guildStats.TotalCharacters).
		Int("runs", guildStats.TotalRuns).
		Dur("duration", time.Since(start)).
		Msg("season stats refreshed")
	return &guildStats, nil
}

// GetAchievements derives the achievement highlights for a season. A season
// that was never aggregated is computed and persisted first.
func (s *SeasonService) GetAchievements(ctx context.Context, season int) (*domain.Achievements, error) {
	guildStats, err := s.GetSeasonStats(ctx, season)
	if errors.Is(err, repository.ErrNotFound) {
		guildStats, err = s.RefreshSeasonStats(ctx, season)
	}
	if err != nil {
		return nil, err
	}

	achievements := stats.TopAchievements(*guildStats)
	return &achievements, nil
}

// Seasons lists every aggregated season, newest first.
func (s *SeasonService) Seasons(ctx context.Context) ([]int, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	return s.seasons.Seasons(ctx)
}
