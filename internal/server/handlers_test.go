package server

import (
	"net/http"
	"testing"
	"time"

	"guild-tracker/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthEndpoints(t *testing.T) {
	h := newServerHarness(t)

	rec := h.request(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = h.request(t, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestListMembers(t *testing.T) {
	h := newServerHarness(t)
	h.seedCharacter(t, "Ayla", "Shaman", "HEALER", 2600, 626)
	h.seedCharacter(t, "Brin", "Warrior", "TANK", 2400, 620)
	h.seedCharacter(t, "Cael", "Mage", "DAMAGE", 0, 580)

	t.Run("default sort is rating descending", func(t *testing.T) {
		rec := h.request(t, http.MethodGet, "/api/v1/members", "")
		require.Equal(t, http.StatusOK, rec.Code)

		resp := decodeBody[memberListResponse](t, rec)
		assert.Equal(t, 3, resp.Count)
		require.Len(t, resp.Members, 3)
		assert.Equal(t, "Ayla", resp.Members[0].Name)
		assert.Equal(t, "Brin", resp.Members[1].Name)
		assert.Equal(t, "Cael", resp.Members[2].Name)
	})

	t.Run("role filter", func(t *testing.T) {
		rec := h.request(t, http.MethodGet, "/api/v1/members?role=tank", "")
		require.Equal(t, http.StatusOK, rec.Code)

		resp := decodeBody[memberListResponse](t, rec)
		require.Equal(t, 1, resp.Count)
		assert.Equal(t, "Brin", resp.Members[0].Name)
	})

	t.Run("min item level filter", func(t *testing.T) {
		rec := h.request(t, http.MethodGet, "/api/v1/members?minItemLevel=600", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 2, decodeBody[memberListResponse](t, rec).Count)
	})

	t.Run("min rating filter", func(t *testing.T) {
		rec := h.request(t, http.MethodGet, "/api/v1/members?minRating=2500", "")
		require.Equal(t, http.StatusOK, rec.Code)

		resp := decodeBody[memberListResponse](t, rec)
		require.Equal(t, 1, resp.Count)
		assert.Equal(t, "Ayla", resp.Members[0].Name)
	})

	t.Run("name sort", func(t *testing.T) {
		rec := h.request(t, http.MethodGet, "/api/v1/members?sort=name&limit=2", "")
		require.Equal(t, http.StatusOK, rec.Code)

		resp := decodeBody[memberListResponse](t, rec)
		require.Equal(t, 2, resp.Count)
		assert.Equal(t, "Ayla", resp.Members[0].Name)
		assert.Equal(t, "Brin", resp.Members[1].Name)
	})

	t.Run("empty result is a JSON array", func(t *testing.T) {
		rec := h.request(t, http.MethodGet, "/api/v1/members?class=Priest", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"members":[]`)
	})
}

func TestListMembersValidation(t *testing.T) {
	h := newServerHarness(t)

	for name, target := range map[string]string{
		"malformed number": "/api/v1/members?minRating=abc",
		"unknown role":     "/api/v1/members?role=WIZARD",
		"unknown sort":     "/api/v1/members?sort=bogus",
		"negative limit":   "/api/v1/members?limit=-5",
		"negative offset":  "/api/v1/members?offset=-1",
	} {
		t.Run(name, func(t *testing.T) {
			rec := h.request(t, http.MethodGet, target, "")
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), "error")
		})
	}
}

func TestGetMember(t *testing.T) {
	h := newServerHarness(t)
	h.seedCharacter(t, "Ayla", "Shaman", "HEALER", 2600, 626)

	rec := h.request(t, http.MethodGet, "/api/v1/members/area-52/Ayla", "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody[memberDetailResponse](t, rec)
	require.NotNil(t, resp.Character)
	assert.Equal(t, "Ayla", resp.Character.Name)
	require.NotNil(t, resp.SeasonStats)
	assert.Equal(t, 1, resp.SeasonStats.TotalRuns)
	assert.Equal(t, 10, resp.SeasonStats.HighestTimedKey)

	// Any spelling in the path resolves to the same character.
	rec = h.request(t, http.MethodGet, "/api/v1/members/AREA-52/aYLA", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Ayla", decodeBody[memberDetailResponse](t, rec).Character.Name)
}

func TestGetMemberNotFound(t *testing.T) {
	h := newServerHarness(t)

	rec := h.request(t, http.MethodGet, "/api/v1/members/area-52/Nobody", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"character not found"}`, rec.Body.String())
}

func TestSeasonStats(t *testing.T) {
	h := newServerHarness(t)

	t.Run("not computed yet", func(t *testing.T) {
		rec := h.request(t, http.MethodGet, "/api/v1/seasons/14/stats", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("invalid season", func(t *testing.T) {
		rec := h.request(t, http.MethodGet, "/api/v1/seasons/abc/stats", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("refresh then read", func(t *testing.T) {
		h.seedCharacter(t, "Ayla", "Shaman", "HEALER", 2600, 626)

		rec := h.request(t, http.MethodPost, "/api/v1/seasons/14/stats/refresh", testAPIKey)
		require.Equal(t, http.StatusOK, rec.Code)

		refreshed := decodeBody[domain.GuildSeasonStats](t, rec)
		assert.Equal(t, 14, refreshed.Season)
		assert.Equal(t, 1, refreshed.TotalCharacters)
		assert.Equal(t, 1, refreshed.TotalRuns)

		rec = h.request(t, http.MethodGet, "/api/v1/seasons/14/stats", "")
		require.Equal(t, http.StatusOK, rec.Code)
		stored := decodeBody[domain.GuildSeasonStats](t, rec)
		assert.Equal(t, refreshed.TotalRuns, stored.TotalRuns)

		rec = h.request(t, http.MethodGet, "/api/v1/seasons", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"seasons":[14]}`, rec.Body.String())
	})
}

func TestSeasonStatsRefreshRequiresKey(t *testing.T) {
	h := newServerHarness(t)

	rec := h.request(t, http.MethodPost, "/api/v1/seasons/14/stats/refresh", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.request(t, http.MethodPost, "/api/v1/seasons/14/stats/refresh", "wrong-key")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"unauthorized"}`, rec.Body.String())
}

func TestAchievementsComputedOnDemand(t *testing.T) {
	h := newServerHarness(t)
	h.seedCharacter(t, "Ayla", "Shaman", "HEALER", 2600, 626)

	// No refresh has happened; the endpoint aggregates on first read.
	rec := h.request(t, http.MethodGet, "/api/v1/seasons/14/achievements", "")
	require.Equal(t, http.StatusOK, rec.Code)

	ach := decodeBody[domain.Achievements](t, rec)
	assert.Equal(t, 10, ach.HighestTimedKey)
	require.NotNil(t, ach.TopRatedPlayer)
	assert.Equal(t, "Ayla", ach.TopRatedPlayer.Name)
	require.NotNil(t, ach.MostPlayedDungeon)
	assert.Equal(t, "Ara-Kara, City of Echoes", ach.MostPlayedDungeon.Name)
}

func TestSyncEndpoint(t *testing.T) {
	h := newServerHarness(t)

	t.Run("status before any run", func(t *testing.T) {
		rec := h.request(t, http.MethodGet, "/api/v1/sync/status", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("requires key", func(t *testing.T) {
		rec := h.request(t, http.MethodPost, "/api/v1/sync", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("accepted then conflict then completed", func(t *testing.T) {
		release := make(chan struct{})
		h.mux.HandleFunc("/data/wow/guild/area-52/storm-forged/roster", func(w http.ResponseWriter, r *http.Request) {
			<-release
			_, _ = w.Write([]byte(`{"guild":{"name":"Storm Forged"},"members":[]}`))
		})

		rec := h.request(t, http.MethodPost, "/api/v1/sync", testAPIKey)
		require.Equal(t, http.StatusAccepted, rec.Code)
		accepted := decodeBody[syncAcceptedResponse](t, rec)
		require.NotEmpty(t, accepted.RunID)

		// The slot is claimed and the run row written before the 202 is
		// sent, so the accepted ID is visible while the fetch is still
		// blocked on the roster endpoint.
		assert.True(t, h.roster.IsRunning())
		rec = h.request(t, http.MethodGet, "/api/v1/sync/status", "")
		require.Equal(t, http.StatusOK, rec.Code)
		inflight := decodeBody[domain.SyncRun](t, rec)
		assert.Equal(t, accepted.RunID, inflight.ID)
		assert.Equal(t, "running", inflight.Status)

		rec = h.request(t, http.MethodPost, "/api/v1/sync", testAPIKey)
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.JSONEq(t, `{"error":"sync already running"}`, rec.Body.String())

		close(release)

		require.Eventually(t, func() bool {
			rec := h.request(t, http.MethodGet, "/api/v1/sync/status", "")
			if rec.Code != http.StatusOK {
				return false
			}
			return decodeBody[domain.SyncRun](t, rec).Status == "completed"
		}, 5*time.Second, 20*time.Millisecond)

		rec = h.request(t, http.MethodGet, "/api/v1/sync/status", "")
		require.Equal(t, http.StatusOK, rec.Code)
		run := decodeBody[domain.SyncRun](t, rec)
		assert.Equal(t, accepted.RunID, run.ID)
		assert.Equal(t, 0, run.Total)
		assert.Equal(t, "completed", run.Status)
	})

	t.Run("history lists the run", func(t *testing.T) {
		rec := h.request(t, http.MethodGet, "/api/v1/sync/history", "")
		require.Equal(t, http.StatusOK, rec.Code)

		resp := decodeBody[syncHistoryResponse](t, rec)
		require.Len(t, resp.Runs, 1)
		assert.Equal(t, "completed", resp.Runs[0].Status)
	})

	t.Run("history rejects a bad limit", func(t *testing.T) {
		rec := h.request(t, http.MethodGet, "/api/v1/sync/history?limit=abc", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestMetricsEndpointExposed(t *testing.T) {
	h := newServerHarness(t)

	// Touch an instrumented route first so at least one series exists.
	_ = h.request(t, http.MethodGet, "/healthz", "")

	rec := h.request(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}
