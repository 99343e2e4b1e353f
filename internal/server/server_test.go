package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"guild-tracker/internal/api"
	"guild-tracker/internal/config"
	"guild-tracker/internal/database"
	"guild-tracker/internal/domain"
	"guild-tracker/internal/repository"
	"guild-tracker/internal/service"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const testAPIKey = "test-admin-key"

type serverHarness struct {
	mux     *http.ServeMux
	server  *Server
	chars   *repository.CharacterRepository
	seasons *repository.SeasonRepository
	roster  *service.RosterService
}

// newServerHarness builds the full HTTP stack over a stub Blizzard API and a
// throwaway database. Routes not mounted on the stub mux return 404 like the
// live API does for missing resources.
func newServerHarness(t *testing.T) *serverHarness {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"access_token":"test-token","token_type":"bearer","expires_in":3600}`))
	})
	stub := httptest.NewServer(mux)
	t.Cleanup(stub.Close)

	cfg := &config.Config{
		BlizzardClientID:     "client-id",
		BlizzardClientSecret: "client-secret",
		Region:               "eu",
		Locale:               "en_GB",
		APIBaseURL:           stub.URL,
		TokenURL:             stub.URL + "/oauth/token",
		GuildRealm:           "area-52",
		GuildName:            "storm-forged",
		SeasonID:             14,
		AdminAPIKey:          testAPIKey,
		DBPath:               filepath.Join(t.TempDir(), "test.db"),
		SyncInterval:         time.Hour,
	}

	db, err := database.New(cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	chars := repository.NewCharacterRepository(db, zerolog.Nop())
	seasons := repository.NewSeasonRepository(db, zerolog.Nop())
	syncRuns := repository.NewSyncRunRepository(db, zerolog.Nop())

	blizzard := api.NewBlizzardClient(cfg)
	fetcher := service.NewCharacterFetcher(blizzard, cfg, zerolog.Nop())
	rosterSvc := service.NewRosterService(fetcher, blizzard, chars, syncRuns, cfg, zerolog.Nop())
	characterSvc := service.NewCharacterService(fetcher, chars, cfg, zerolog.Nop())
	seasonSvc := service.NewSeasonService(chars, seasons, zerolog.Nop())

	return &serverHarness{
		mux:     mux,
		server:  NewServer(characterSvc, rosterSvc, seasonSvc, cfg, db, zerolog.Nop()),
		chars:   chars,
		seasons: seasons,
		roster:  rosterSvc,
	}
}

func (h *serverHarness) request(t *testing.T, method, target, apiKey string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, nil)
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	rec := httptest.NewRecorder()
	h.server.Handler().ServeHTTP(rec, req)
	return rec
}

func (h *serverHarness) seedCharacter(t *testing.T, name, class, role string, rating float64, itemLevel float64) {
	t.Helper()

	ch := &domain.Character{
		Name:              name,
		Realm:             "area-52",
		Class:             class,
		ActiveSpec:        "Protection",
		Role:              role,
		Level:             80,
		EquippedItemLevel: itemLevel,
		MythicPlusScore:   rating,
		LastFetchAt:       time.Now().UTC(),
	}
	if rating > 0 {
		ch.CurrentSeason = &domain.SeasonSnapshot{
			Season: 14,
			BestRuns: []domain.MythicPlusRun{
				{
					KeystoneLevel:         10,
					IsCompletedWithinTime: true,
					MythicRating:          &domain.RunRating{Rating: rating / 8},
					DurationSeconds:       1800,
					Dungeon:               &domain.DungeonRef{ID: 1271, Name: "Ara-Kara, City of Echoes"},
				},
			},
		}
	}
	require.NoError(t, h.chars.Upsert(context.Background(), ch))
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}
