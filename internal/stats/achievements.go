package stats

import (
	"sort"

	"guild-tracker/internal/domain"
)

// TopAchievements derives the season highlights from an already aggregated
// guild rollup. Scans only replace the current holder on a strictly greater
// value, so the first player or dungeon encountered wins ties.
func TopAchievements(gs domain.GuildSeasonStats) domain.Achievements {
	ach := domain.Achievements{
		HighestKeyOverall: gs.HighestKeyOverall,
		HighestTimedKey:   gs.HighestTimedKey,
	}

	if len(gs.TopPlayers) > 0 {
		top := gs.TopPlayers[0]
		ach.TopRatedPlayer = &top
	}

	for i := range gs.TopPlayers {
		p := gs.TopPlayers[i]
		if ach.MostActivePlayer == nil || p.TotalRuns > ach.MostActivePlayer.TotalRuns {
			ach.MostActivePlayer = &p
		}
	}
	for i := range gs.TopPlayers {
		p := gs.TopPlayers[i]
		if ach.BestCompletionRate == nil || p.CompletionRate > ach.BestCompletionRate.CompletionRate {
			ach.BestCompletionRate = &p
		}
	}

	names := make([]string, 0, len(gs.DungeonLeaderboard))
	for name := range gs.DungeonLeaderboard {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		ds := gs.DungeonLeaderboard[name]
		if ach.MostPlayedDungeon == nil || ds.TotalRuns > ach.MostPlayedDungeon.TotalRuns {
			ach.MostPlayedDungeon = &domain.DungeonAchievement{
				Name:              name,
				GuildDungeonStats: ds,
			}
		}
	}

	return ach
}
