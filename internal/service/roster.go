package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"guild-tracker/internal/api"
	"guild-tracker/internal/config"
	"guild-tracker/internal/constants"
	"guild-tracker/internal/domain"
	"guild-tracker/internal/metrics"
	"guild-tracker/internal/repository"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// ErrSyncRunning is returned when a roster sync is requested while another
// one is still in flight.
var ErrSyncRunning = errors.New("sync already running")

type RosterService struct {
	fetcher  *CharacterFetcher
	blizzard *api.BlizzardClient
	repo     *repository.CharacterRepository
	syncRuns *repository.SyncRunRepository
	cfg      *config.Config
	logger   zerolog.Logger
	running  atomic.Bool
}

func NewRosterService(fetcher *CharacterFetcher, blizzard *api.BlizzardClient, repo *repository.CharacterRepository, syncRuns *repository.SyncRunRepository, cfg *config.Config, logger zerolog.Logger) *RosterService {
	return &RosterService{
		fetcher:  fetcher,
		blizzard: blizzard,
		repo:     repo,
		syncRuns: syncRuns,
		cfg:      cfg,
		logger:   logger,
	}
}

func (s *RosterService) IsRunning() bool {
	return s.running.Load()
}

// Status returns the most recent sync run, whether finished or in flight.
func (s *RosterService) Status(ctx context.Context) (*domain.SyncRun, error) {
	return s.syncRuns.Latest(ctx)
}

// History returns recent sync runs, newest first.
func (s *RosterService) History(ctx context.Context, limit int) ([]domain.SyncRun, error) {
	return s.syncRuns.History(ctx, limit)
}

// SyncRoster fetches the guild roster and refreshes every member's document.
// Only one sync runs per instance at a time. A member that fails to fetch is
// logged and skipped; the sync itself only fails when the roster endpoint or
// the database does.
func (s *RosterService) SyncRoster(ctx context.Context) (*domain.SyncRun, error) {
	run, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	return s.execute(ctx, run)
}

// StartSync claims the sync slot and records the run row before returning, so
// the accepted run already exists for status lookups. The fetch continues in
// the background under its own timeout; onCompleted fires only after a
// successful run.
func (s *RosterService) StartSync(ctx context.Context, onCompleted func(context.Context)) (*domain.SyncRun, error) {
	run, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	accepted := *run

	go func() {
		bgCtx, cancel := context.WithTimeout(context.Background(), constants.SyncTimeout)
		defer cancel()
		if _, err := s.execute(bgCtx, run); err != nil {
			return
		}
		if onCompleted != nil {
			onCompleted(bgCtx)
		}
	}()
	return &accepted, nil
}

// begin claims the single sync slot and creates the run row. The slot is
// released on error; otherwise execute owns it.
func (s *RosterService) begin(ctx context.Context) (*domain.SyncRun, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrSyncRunning
	}

	id, err := gonanoid.New()
	if err != nil {
		s.running.Store(false)
		return nil, fmt.Errorf("failed to generate sync run id: %w", err)
	}

	run := &domain.SyncRun{
		ID:        id,
		StartedAt: time.Now().UTC(),
		Status:    "running",
	}
	if err := s.syncRuns.Create(ctx, run); err != nil {
		s.running.Store(false)
		return nil, err
	}

	s.logger.Info().Str("sync_run", run.ID).Str("guild", s.cfg.GuildName).Str("realm", s.cfg.GuildRealm).Msg("starting roster sync")
	return run, nil
}

func (s *RosterService) execute(ctx context.Context, run *domain.SyncRun) (*domain.SyncRun, error) {
	defer s.running.Store(false)

	if err := s.sync(ctx, run); err != nil {
		s.logger.Error().Err(err).Str("sync_run", run.ID).Msg("roster sync failed")
		metrics.RosterSyncRunsTotal.WithLabelValues("failed").Inc()

		run.Status = "failed"
		run.Error = err.Error()
		run.FinishedAt = time.Now().UTC()
		if finishErr := s.syncRuns.Finish(ctx, run); finishErr != nil {
			s.logger.Error().Err(finishErr).Str("sync_run", run.ID).Msg("failed to record sync failure")
		}
		return nil, err
	}

	metrics.RosterSyncRunsTotal.WithLabelValues("completed").Inc()
	metrics.CharactersSyncedTotal.Add(float64(run.Synced))
	metrics.CharacterSyncErrors.Add(float64(run.Failed))

	run.Status = "completed"
	run.FinishedAt = time.Now().UTC()
	if err := s.syncRuns.Finish(ctx, run); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("sync_run", run.ID).
		Int("total", run.Total).
		Int("synced", run.Synced).
		Int("failed", run.Failed).
		Dur("duration", run.FinishedAt.Sub(run.StartedAt)).
		Msg("roster sync completed")
	return run, nil
}

func (s *RosterService) sync(ctx context.Context, run *domain.SyncRun) error {
	rosterCtx, cancel := context.WithTimeout(ctx, constants.ExternalAPITimeout)
	defer cancel()

	roster, err := s.blizzard.GetGuildRoster(rosterCtx, s.cfg.GuildRealm, s.cfg.GuildName)
	if err != nil {
		return fmt.Errorf("failed to fetch guild roster: %w", err)
	}

	members := make([]api.GuildRosterMember, 0, len(roster.Members))
	for _, m := range roster.Members {
		if m.Rank > constants.MaxGuildRank {
			continue
		}
		members = append(members, m)
	}
	run.Total = len(members)

	s.logger.Debug().Int("roster_size", len(roster.Members)).Int("members", len(members)).Msg("roster fetched")

	var mu sync.Mutex
	var characters []domain.Character
	var failed int64

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(constants.RosterFetchConcurrency)
	for _, member := range members {
		g.Go(func() error {
			name := member.Character.Name
			realm := member.Character.Realm.Slug

			ch, err := s.fetcher.Fetch(gCtx, realm, name)
			if err != nil {
				if errors.Is(err, api.ErrNotFound) {
					s.logger.Debug().Str("name", name).Str("realm", realm).Msg("character not found, likely transferred or deleted")
				} else {
					s.logger.Warn().Err(err).Str("name", name).Str("realm", realm).Msg("failed to fetch character, skipping")
				}
				atomic.AddInt64(&failed, 1)
				return nil
			}
			ch.GuildRank = member.Rank

			mu.Lock()
			characters = append(characters, *ch)
			mu.Unlock()
			return nil
		})
	}
	// Fetch errors are absorbed per member, Wait only surfaces cancellation.
	if err := g.Wait(); err != nil {
		return err
	}

	run.Failed = int(failed)
	run.Synced = len(characters)

	if err := s.repo.UpsertBatch(ctx, characters); err != nil {
		return fmt.Errorf("failed to upsert roster: %w", err)
	}

	// Members that left the guild are pruned only on a fully clean run, so a
	// flaky sync cannot drop rows for characters that merely failed to fetch.
	if run.Failed == 0 {
		keys := make([]string, 0, len(characters))
		for _, ch := range characters {
			keys = append(keys, ch.Key())
		}
		pruned, err := s.repo.DeleteMissing(ctx, keys)
		if err != nil {
			return fmt.Errorf("failed to prune departed members: %w", err)
		}
		if pruned > 0 {
			s.logger.Info().Int64("pruned", pruned).Msg("removed departed members")
		}
	}

	return nil
}
