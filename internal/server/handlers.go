package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"guild-tracker/internal/domain"
	"guild-tracker/internal/repository"
	"guild-tracker/internal/service"

	"github.com/go-chi/chi/v5"
)

type memberListParams struct {
	Class        string  `validate:"omitempty,max=32"`
	Spec         string  `validate:"omitempty,max=32"`
	Role         string  `validate:"omitempty,oneof=TANK HEALER DAMAGE"`
	MinLevel     int     `validate:"omitempty,gte=1,lte=100"`
	MinItemLevel float64 `validate:"omitempty,gte=0,lte=1000"`
	MinRating    float64 `validate:"omitempty,gte=0,lte=5000"`
	Search       string  `validate:"omitempty,max=48"`
	SortBy       string  `validate:"omitempty,oneof=rating name itemLevel level"`
	Limit        int     `validate:"omitempty,gte=1,lte=200"`
	Offset       int     `validate:"omitempty,gte=0"`
}

type memberListResponse struct {
	Members []domain.Character `json:"members"`
	Count   int                `json:"count"`
}

type memberDetailResponse struct {
	Character   *domain.Character            `json:"character"`
	SeasonStats *domain.CharacterSeasonStats `json:"seasonStats"`
}

type seasonListResponse struct {
	Seasons []int `json:"seasons"`
}

type syncHistoryResponse struct {
	Runs []domain.SyncRun `json:"runs"`
}

type syncAcceptedResponse struct {
	Message string `json:"message"`
	RunID   string `json:"runId"`
}

func (s *Server) handleListMembers(w http.ResponseWriter, r *http.Request) {
	params, err := parseMemberListParams(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.validate.Struct(params); err != nil {
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err))
		return
	}

	members, err := s.characters.ListMembers(r.Context(), repository.MemberFilter{
		Class:        params.Class,
		Spec:         params.Spec,
		Role:         params.Role,
		MinLevel:     params.MinLevel,
		MinItemLevel: params.MinItemLevel,
		MinRating:    params.MinRating,
		Search:       params.Search,
		SortBy:       params.SortBy,
		Limit:        params.Limit,
		Offset:       params.Offset,
	})
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to list members")
		return
	}
	if members == nil {
		members = []domain.Character{}
	}

	s.respondJSON(w, http.StatusOK, memberListResponse{Members: members, Count: len(members)})
}

func parseMemberListParams(r *http.Request) (memberListParams, error) {
	q := r.URL.Query()
	params := memberListParams{
		Class:  q.Get("class"),
		Spec:   q.Get("spec"),
		Role:   strings.ToUpper(q.Get("role")),
		Search: q.Get("search"),
		SortBy: q.Get("sort"),
	}

	var err error
	if params.MinLevel, err = intParam(q.Get("minLevel")); err != nil {
		return params, errors.New("invalid minLevel parameter")
	}
	if params.MinItemLevel, err = floatParam(q.Get("minItemLevel")); err != nil {
		return params, errors.New("invalid minItemLevel parameter")
	}
	if params.MinRating, err = floatParam(q.Get("minRating")); err != nil {
		return params, errors.New("invalid minRating parameter")
	}
	if params.Limit, err = intParam(q.Get("limit")); err != nil {
		return params, errors.New("invalid limit parameter")
	}
	if params.Offset, err = intParam(q.Get("offset")); err != nil {
		return params, errors.New("invalid offset parameter")
	}
	return params, nil
}

func intParam(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

func floatParam(raw string) (float64, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseFloat(raw, 64)
}

func (s *Server) handleGetMember(w http.ResponseWriter, r *http.Request) {
	realm := chi.URLParam(r, "realm")
	name := chi.URLParam(r, "name")
	refresh := r.URL.Query().Get("refresh") == "true"

	ch, seasonStats, err := s.characters.GetCharacterStats(r.Context(), realm, name, refresh)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "character not found")
			return
		}
		s.logger.Error().Err(err).Str("realm", realm).Str("name", name).Msg("failed to get member")
		s.respondError(w, http.StatusInternalServerError, "failed to get member")
		return
	}

	s.respondJSON(w, http.StatusOK, memberDetailResponse{Character: ch, SeasonStats: seasonStats})
}

func (s *Server) handleListSeasons(w http.ResponseWriter, r *http.Request) {
	seasons, err := s.seasons.Seasons(r.Context())
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to list seasons")
		return
	}
	if seasons == nil {
		seasons = []int{}
	}

	s.respondJSON(w, http.StatusOK, seasonListResponse{Seasons: seasons})
}

func (s *Server) handleGetSeasonStats(w http.ResponseWriter, r *http.Request) {
	season, err := seasonParam(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid season")
		return
	}

	guildStats, err := s.seasons.GetSeasonStats(r.Context(), season)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "no stats computed for season")
			return
		}
		s.respondError(w, http.StatusInternalServerError, "failed to get season stats")
		return
	}

	s.respondJSON(w, http.StatusOK, guildStats)
}

func (s *Server) handleGetAchievements(w http.ResponseWriter, r *http.Request) {
	season, err := seasonParam(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid season")
		return
	}

	achievements, err := s.seasons.GetAchievements(r.Context(), season)
	if err != nil {
		s.logger.Error().Err(err).Int("season", season).Msg("failed to get achievements")
		s.respondError(w, http.StatusInternalServerError, "failed to get achievements")
		return
	}

	s.respondJSON(w, http.StatusOK, achievements)
}

func (s *Server) handleRefreshSeasonStats(w http.ResponseWriter, r *http.Request) {
	season, err := seasonParam(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid season")
		return
	}

	guildStats, err := s.seasons.RefreshSeasonStats(r.Context(), season)
	if err != nil {
		s.logger.Error().Err(err).Int("season", season).Msg("failed to refresh season stats")
		s.respondError(w, http.StatusInternalServerError, "failed to refresh season stats")
		return
	}

	s.respondJSON(w, http.StatusOK, guildStats)
}

func seasonParam(r *http.Request) (int, error) {
	return strconv.Atoi(chi.URLParam(r, "season"))
}

// handleSync claims the sync slot and records the run row before answering,
// so the 202 always names a run that exists. The fetch itself can take
// minutes for a large roster and continues in the background.
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	run, err := s.roster.StartSync(r.Context(), func(ctx context.Context) {
		if _, err := s.seasons.RefreshSeasonStats(ctx, s.cfg.SeasonID); err != nil {
			s.logger.Error().Err(err).Msg("season refresh after manual sync failed")
		}
	})
	if err != nil {
		if errors.Is(err, service.ErrSyncRunning) {
			s.respondError(w, http.StatusConflict, "sync already running")
			return
		}
		s.logger.Error().Err(err).Msg("failed to start sync")
		s.respondError(w, http.StatusInternalServerError, "failed to start sync")
		return
	}

	s.respondJSON(w, http.StatusAccepted, syncAcceptedResponse{Message: "sync started", RunID: run.ID})
}

func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	run, err := s.roster.Status(r.Context())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "no sync has run yet")
			return
		}
		s.respondError(w, http.StatusInternalServerError, "failed to get sync status")
		return
	}

	s.respondJSON(w, http.StatusOK, run)
}

func (s *Server) handleSyncHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r.URL.Query().Get("limit"))
	if err != nil || limit < 0 {
		s.respondError(w, http.StatusBadRequest, "invalid limit parameter")
		return
	}

	runs, err := s.roster.History(r.Context(), limit)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to get sync history")
		return
	}
	if runs == nil {
		runs = []domain.SyncRun{}
	}

	s.respondJSON(w, http.StatusOK, syncHistoryResponse{Runs: runs})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if err := s.db.PingContext(r.Context()); err != nil {
		s.respondError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
