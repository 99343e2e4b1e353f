package service

import (
	"context"
	"errors"
	"fmt"

	"guild-tracker/internal/api"
	"guild-tracker/internal/config"
	"guild-tracker/internal/constants"
	"guild-tracker/internal/domain"
	"guild-tracker/internal/repository"
	"guild-tracker/internal/stats"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog"
)

type CharacterService struct {
	fetcher *CharacterFetcher
	repo    *repository.CharacterRepository
	cache   *expirable.LRU[string, *domain.Character]
	cfg     *config.Config
	logger  zerolog.Logger
}

func NewCharacterService(fetcher *CharacterFetcher, repo *repository.CharacterRepository, cfg *config.Config, logger zerolog.Logger) *CharacterService {
	return &CharacterService{
		fetcher: fetcher,
		repo:    repo,
		cache:   expirable.NewLRU[string, *domain.Character](constants.ProfileCacheSize, nil, constants.ProfileCacheTTL),
		cfg:     cfg,
		logger:  logger,
	}
}

// GetCharacter returns the character document, refreshing it from the
// profile API when the stored copy is older than the refresh TTL or when the
// caller forces a refresh.
func (s *CharacterService) GetCharacter(ctx context.Context, realm, name string, refresh bool) (*domain.Character, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	key := domain.CharacterKey(name, realm)

	if !refresh {
		if ch, ok := s.cache.Get(key); ok {
			s.logger.Debug().Str("key", key).Msg("returning cached character")
			return ch, nil
		}
	}

	stored, err := s.repo.Get(ctx, name, realm)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	shouldRefresh := refresh
	if stored == nil {
		shouldRefresh = true
		s.logger.Debug().Str("key", key).Msg("character not found in database, fetching from API")
	} else if !shouldRefresh {
		shouldRefresh, err = s.repo.ShouldRefresh(ctx, name, realm, constants.CharacterRefreshTTL)
		if err != nil {
			return nil, err
		}
	}

	s.logger.Debug().
		Str("key", key).
		Bool("shouldRefresh", shouldRefresh).
		Bool("exists", stored != nil).
		Msg("refresh decision")

	if !shouldRefresh {
		s.cache.Add(key, stored)
		return stored, nil
	}

	ch, err := s.fetcher.Fetch(ctx, realm, name)
	if err != nil {
		// A stale document beats an error when the API has dropped the
		// character (transfers) or is briefly unavailable.
		if stored != nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("refresh failed, serving stored character")
			return stored, nil
		}
		if errors.Is(err, api.ErrNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch character: %w", err)
	}

	if stored != nil {
		ch.GuildRank = stored.GuildRank
		ch.CreatedAt = stored.CreatedAt
	}

	if err := s.repo.Upsert(ctx, ch); err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("failed to upsert character")
		return nil, err
	}

	s.cache.Add(key, ch)
	s.logger.Info().Str("key", key).Msg("character fetched successfully")
	return ch, nil
}

// GetCharacterStats returns the character together with its aggregated
// season statistics.
func (s *CharacterService) GetCharacterStats(ctx context.Context, realm, name string, refresh bool) (*domain.Character, *domain.CharacterSeasonStats, error) {
	ch, err := s.GetCharacter(ctx, realm, name, refresh)
	if err != nil {
		return nil, nil, err
	}

	cs := stats.AggregateCharacterSeason(*ch)
	return ch, &cs, nil
}

// ListMembers returns the filtered roster straight from the database.
func (s *CharacterService) ListMembers(ctx context.Context, filter repository.MemberFilter) ([]domain.Character, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	members, err := s.repo.List(ctx, filter)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list members")
		return nil, err
	}

	s.logger.Debug().Int("count", len(members)).Msg("listed members")
	return members, nil
}
