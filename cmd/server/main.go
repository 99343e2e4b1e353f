package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"guild-tracker/internal/config"
	"guild-tracker/internal/constants"
	fxmodules "guild-tracker/internal/fx"
	"guild-tracker/internal/logger"
	"guild-tracker/internal/server"
	"guild-tracker/internal/service"

	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

func main() {
	fx.New(
		fxmodules.Module,
		fx.Invoke(runServer),
		fx.Invoke(runRefresher),
	).Run()
}

func runServer(
	lc fx.Lifecycle,
	apiServer *server.Server,
	cfg *config.Config,
	db *sql.DB,
	log zerolog.Logger,
) {
	zerolog.SetGlobalLevel(logger.Parse(cfg.LogLevel))

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.ServerPort),
		Handler: c.Handler(apiServer.Handler()),
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info().Str("addr", srv.Addr).Msg("server starting")
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal().Err(err).Msg("server failed")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
			defer cancel()

			if err := db.Close(); err != nil {
				log.Warn().Err(err).Msg("error closing database connection")
			}

			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("server shutdown failed")
				return err
			}
			log.Info().Msg("server stopped gracefully")
			return nil
		},
	})
}

func runRefresher(lc fx.Lifecycle, refresher *service.Refresher) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			refresher.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			refresher.Stop()
			return nil
		},
	})
}
