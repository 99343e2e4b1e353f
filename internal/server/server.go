package server

import (
	"database/sql"
	"net/http"

	"guild-tracker/internal/config"
	"guild-tracker/internal/metrics"
	"guild-tracker/internal/middleware"
	"guild-tracker/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Server carries the HTTP surface of the tracker. Routes are JSON under
// /api/v1 plus the usual operational endpoints.
type Server struct {
	characters *service.CharacterService
	roster     *service.RosterService
	seasons    *service.SeasonService
	cfg        *config.Config
	db         *sql.DB
	logger     zerolog.Logger
	validate   *validator.Validate
	router     chi.Router
}

func NewServer(characters *service.CharacterService, roster *service.RosterService, seasons *service.SeasonService, cfg *config.Config, db *sql.DB, logger zerolog.Logger) *Server {
	s := &Server{
		characters: characters,
		roster:     roster,
		seasons:    seasons,
		cfg:        cfg,
		db:         db,
		logger:     logger,
		validate:   validator.New(),
	}
	s.router = s.routes()
	return s
}

// Handler returns the assembled route tree for mounting into an http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID(s.logger))
	r.Use(metrics.Middleware)

	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)
	r.Handle("/metrics", promhttp.Handler())

	// Admin guard covers everything that mutates state or hits the
	// upstream API on demand.
	admin := middleware.APIKey(s.cfg.AdminAPIKey, s.logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/members", func(r chi.Router) {
			r.Get("/", s.handleListMembers)
			r.Get("/{realm}/{name}", s.handleGetMember)
		})

		r.Route("/seasons", func(r chi.Router) {
			r.Get("/", s.handleListSeasons)
			r.Get("/{season}/stats", s.handleGetSeasonStats)
			r.Get("/{season}/achievements", s.handleGetAchievements)
			r.With(admin).Post("/{season}/stats/refresh", s.handleRefreshSeasonStats)
		})

		r.Route("/sync", func(r chi.Router) {
			r.With(admin).Post("/", s.handleSync)
			r.Get("/status", s.handleSyncStatus)
			r.Get("/history", s.handleSyncHistory)
		})
	})

	return r
}
