package service

import (
	"context"
	"errors"
	"time"

	"guild-tracker/internal/config"
	"guild-tracker/internal/constants"

	"github.com/rs/zerolog"
)

// Refresher keeps the roster and the season statistics warm on a fixed
// interval. One full cycle is a roster sync followed by a season
// aggregation; a tick that lands while a sync is still running is skipped.
type Refresher struct {
	roster  *RosterService
	seasons *SeasonService
	cfg     *config.Config
	logger  zerolog.Logger
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewRefresher(roster *RosterService, seasons *SeasonService, cfg *config.Config, logger zerolog.Logger) *Refresher {
	return &Refresher{
		roster:  roster,
		seasons: seasons,
		cfg:     cfg,
		logger:  logger,
		done:    make(chan struct{}),
	}
}

func (r *Refresher) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	go r.run(ctx)
}

// Stop cancels the in-flight cycle and waits for the loop to exit.
func (r *Refresher) Stop() {
	r.cancel()
	<-r.done
}

func (r *Refresher) run(ctx context.Context) {
	defer close(r.done)

	r.logger.Info().Dur("interval", r.cfg.SyncInterval).Msg("refresher started")

	// First cycle right after boot so a fresh deploy serves data without
	// waiting out a full interval.
	r.cycle(ctx)

	ticker := time.NewTicker(r.cfg.SyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Msg("refresher stopped")
			return
		case <-ticker.C:
			if r.roster.IsRunning() {
				r.logger.Debug().Msg("sync still running, skipping tick")
				continue
			}
			r.cycle(ctx)
		}
	}
}

func (r *Refresher) cycle(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, constants.SyncTimeout)
	defer cancel()

	if _, err := r.roster.SyncRoster(ctx); err != nil {
		if errors.Is(err, ErrSyncRunning) {
			r.logger.Debug().Msg("sync already running, skipping cycle")
			return
		}
		r.logger.Error().Err(err).Msg("scheduled roster sync failed")
		return
	}

	if _, err := r.seasons.RefreshSeasonStats(ctx, r.cfg.SeasonID); err != nil {
		r.logger.Error().Err(err).Msg("scheduled season aggregation failed")
	}
}
