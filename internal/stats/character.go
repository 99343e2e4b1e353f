package stats

import (
	"sort"

	"guild-tracker/internal/constants"
	"guild-tracker/internal/domain"
)

type dungeonAccum struct {
	totalRuns  int
	timedRuns  int
	highestKey int
	ratingSum  float64
}

type groupAccum struct {
	totalRuns int
	timedRuns int
	ratingSum float64
}

type teammateAccum struct {
	name   string
	server string
	spec   string
	count  int
}

// AggregateCharacterSeason folds a character's current-season best runs into
// one seasonal stats object. A character without season data, or with an
// empty run list, yields the zero-valued stats object; malformed or missing
// season data is never an error.
func AggregateCharacterSeason(ch domain.Character) domain.CharacterSeasonStats {
	cs := emptyCharacterSeasonStats()
	if ch.CurrentSeason == nil || len(ch.CurrentSeason.BestRuns) == 0 {
		return cs
	}

	dungeons := make(map[string]*dungeonAccum)
	affixes := make(map[string]*groupAccum)
	roles := make(map[string]*groupAccum)
	teammates := make(map[string]*teammateAccum)

	var ratingSum float64
	for _, raw := range ch.CurrentSeason.BestRuns {
		run := normalizeRun(raw)

		cs.TotalRuns++
		if run.level > cs.HighestKeyOverall {
			cs.HighestKeyOverall = run.level
		}
		if run.timed {
			cs.CompletedRuns++
			if run.level > cs.HighestTimedKey {
				cs.HighestTimedKey = run.level
			}
		}
		ratingSum += run.rating
		cs.TotalPlaytimeSeconds += run.durationSeconds

		d := upsert(dungeons, run.dungeon)
		d.totalRuns++
		if run.timed {
			d.timedRuns++
		}
		d.ratingSum += run.rating
		if run.level > d.highestKey {
			d.highestKey = run.level
		}

		for _, name := range run.affixes {
			a := upsert(affixes, name)
			a.totalRuns++
			if run.timed {
				a.timedRuns++
			}
			a.ratingSum += run.rating
		}

		for _, m := range run.members {
			r := upsert(roles, m.spec)
			r.totalRuns++
			if run.timed {
				r.timedRuns++
			}
			r.ratingSum += run.rating

			key := domain.CharacterKey(m.name, m.server)
			t, ok := teammates[key]
			if !ok {
				t = &teammateAccum{name: m.name, server: m.server, spec: m.spec}
				teammates[key] = t
			}
			t.count++
		}
	}

	cs.AverageRating = safeDiv(ratingSum, cs.TotalRuns)
	cs.CompletionRate = percent(cs.CompletedRuns, cs.TotalRuns)

	for name, d := range dungeons {
		cs.DungeonStats[name] = domain.DungeonSeasonStats{
			TotalRuns:     d.totalRuns,
			TimedRuns:     d.timedRuns,
			HighestKey:    d.highestKey,
			AverageRating: safeDiv(d.ratingSum, d.totalRuns),
		}
	}
	for name, a := range affixes {
		cs.AffixStats[name] = domain.GroupSeasonStats{
			TotalRuns:     a.totalRuns,
			TimedRuns:     a.timedRuns,
			AverageRating: safeDiv(a.ratingSum, a.totalRuns),
		}
	}
	for name, r := range roles {
		cs.RoleStats[name] = domain.GroupSeasonStats{
			TotalRuns:     r.totalRuns,
			TimedRuns:     r.timedRuns,
			AverageRating: safeDiv(r.ratingSum, r.totalRuns),
		}
	}
	cs.TopPlayedMembers = topTeammates(teammates, constants.TopTeammatesLimit)

	return cs
}

func emptyCharacterSeasonStats() domain.CharacterSeasonStats {
	return domain.CharacterSeasonStats{
		DungeonStats:     map[string]domain.DungeonSeasonStats{},
		AffixStats:       map[string]domain.GroupSeasonStats{},
		RoleStats:        map[string]domain.GroupSeasonStats{},
		TopPlayedMembers: []domain.TeammateStats{},
	}
}

// topTeammates orders the play-count map by count descending and truncates to
// limit. Equal counts fall back to the character key so repeated aggregation
// of the same input yields the same list.
func topTeammates(teammates map[string]*teammateAccum, limit int) []domain.TeammateStats {
	out := make([]domain.TeammateStats, 0, len(teammates))
	for _, t := range teammates {
		out = append(out, domain.TeammateStats{
			Name:   t.name,
			Server: t.server,
			Spec:   t.spec,
			Count:  t.count,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return domain.CharacterKey(out[i].Name, out[i].Server) < domain.CharacterKey(out[j].Name, out[j].Server)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
