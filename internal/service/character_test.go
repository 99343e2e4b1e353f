package service

import (
	"context"
	"testing"
	"time"

	"guild-tracker/internal/domain"
	"guild-tracker/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetCharacterFreshDocumentSkipsUpstream(t *testing.T) {
	h := newSyncHarness(t)
	// If the service went upstream it would come back as a Shaman.
	h.mountSummary("Ayla", "Shaman", "Restoration")

	require.NoError(t, h.chars.Upsert(context.Background(), seededCharacter("Ayla")))

	ch, err := h.characters.GetCharacter(context.Background(), "area-52", "Ayla", false)
	require.NoError(t, err)
	assert.Equal(t, "Warrior", ch.Class, "a fresh document must be served as stored")
}

func TestGetCharacterStaleDocumentRefreshes(t *testing.T) {
	h := newSyncHarness(t)
	h.mountSummary("Ayla", "Shaman", "Restoration")

	stale := seededCharacter("Ayla")
	stale.GuildRank = 2
	stale.LastFetchAt = time.Now().Add(-2 * time.Hour)
	require.NoError(t, h.chars.Upsert(context.Background(), stale))

	ch, err := h.characters.GetCharacter(context.Background(), "area-52", "Ayla", false)
	require.NoError(t, err)
	assert.Equal(t, "Shaman", ch.Class)
	assert.Equal(t, "HEALER", ch.Role)
	assert.Equal(t, 2, ch.GuildRank, "rank comes from the roster, a refresh must not drop it")
}

func TestGetCharacterForcedRefresh(t *testing.T) {
	h := newSyncHarness(t)
	h.mountSummary("Ayla", "Shaman", "Restoration")

	require.NoError(t, h.chars.Upsert(context.Background(), seededCharacter("Ayla")))

	ch, err := h.characters.GetCharacter(context.Background(), "area-52", "Ayla", true)
	require.NoError(t, err)
	assert.Equal(t, "Shaman", ch.Class)
}

func TestGetCharacterServesCachedCopy(t *testing.T) {
	h := newSyncHarness(t)

	require.NoError(t, h.chars.Upsert(context.Background(), seededCharacter("Ayla")))

	first, err := h.characters.GetCharacter(context.Background(), "area-52", "Ayla", false)
	require.NoError(t, err)
	require.Equal(t, "Warrior", first.Class)

	// Change the stored row behind the cache's back. The next read inside
	// the cache TTL must still see the first copy.
	mutated := seededCharacter("Ayla")
	mutated.Class = "Paladin"
	require.NoError(t, h.chars.Upsert(context.Background(), mutated))

	second, err := h.characters.GetCharacter(context.Background(), "area-52", "Ayla", false)
	require.NoError(t, err)
	assert.Equal(t, "Warrior", second.Class)
}

func TestGetCharacterStaleServedWhenUpstreamFails(t *testing.T) {
	h := newSyncHarness(t)
	// No summary route mounted, a refresh attempt reports 404.

	stale := seededCharacter("Ayla")
	stale.LastFetchAt = time.Now().Add(-2 * time.Hour)
	require.NoError(t, h.chars.Upsert(context.Background(), stale))

	ch, err := h.characters.GetCharacter(context.Background(), "area-52", "Ayla", false)
	require.NoError(t, err)
	assert.Equal(t, "Warrior", ch.Class, "a stale document beats an upstream error")
}

func TestGetCharacterUnknownIsNotFound(t *testing.T) {
	h := newSyncHarness(t)

	_, err := h.characters.GetCharacter(context.Background(), "area-52", "Nobody", false)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestGetCharacterStats(t *testing.T) {
	h := newSyncHarness(t)

	ch := seededCharacter("Ayla")
	ch.MythicPlusScore = 2400
	ch.CurrentSeason = &domain.SeasonSnapshot{
		Season: 14,
		BestRuns: []domain.MythicPlusRun{
			{
				KeystoneLevel:         12,
				IsCompletedWithinTime: true,
				MythicRating:          &domain.RunRating{Rating: 310},
				DurationSeconds:       1822,
				Dungeon:               &domain.DungeonRef{ID: 1271, Name: "Ara-Kara, City of Echoes"},
			},
			{
				KeystoneLevel:   10,
				MythicRating:    &domain.RunRating{Rating: 250},
				DurationSeconds: 2100,
				Dungeon:         &domain.DungeonRef{ID: 1270, Name: "The Dawnbreaker"},
			},
		},
	}
	require.NoError(t, h.chars.Upsert(context.Background(), ch))

	got, seasonStats, err := h.characters.GetCharacterStats(context.Background(), "area-52", "Ayla", false)
	require.NoError(t, err)
	assert.Equal(t, "Ayla", got.Name)

	require.NotNil(t, seasonStats)
	assert.Equal(t, 2, seasonStats.TotalRuns)
	assert.Equal(t, 1, seasonStats.CompletedRuns)
	assert.Equal(t, 12, seasonStats.HighestTimedKey)
	assert.Equal(t, 12, seasonStats.HighestKeyOverall)
	assert.Equal(t, 280.0, seasonStats.AverageRating)
	assert.Equal(t, 50.0, seasonStats.CompletionRate)
	assert.Len(t, seasonStats.DungeonStats, 2)
}
