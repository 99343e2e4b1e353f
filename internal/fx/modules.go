package fx

import (
	"guild-tracker/internal/api"
	"guild-tracker/internal/config"
	"guild-tracker/internal/database"
	"guild-tracker/internal/logger"
	"guild-tracker/internal/repository"
	"guild-tracker/internal/server"
	"guild-tracker/internal/service"

	"go.uber.org/fx"
)

var Module = fx.Options(
	fx.Provide(logger.New),
	fx.Provide(config.Load),
	fx.Provide(database.New),
	// repos
	fx.Provide(repository.NewCharacterRepository),
	fx.Provide(repository.NewSeasonRepository),
	fx.Provide(repository.NewSyncRunRepository),
	// api client
	fx.Provide(api.NewBlizzardClient),
	// svc
	fx.Provide(service.NewCharacterFetcher),
	fx.Provide(service.NewCharacterService),
	fx.Provide(service.NewRosterService),
	fx.Provide(service.NewSeasonService),
	fx.Provide(service.NewRefresher),
	// server
	fx.Provide(server.NewServer),
)
