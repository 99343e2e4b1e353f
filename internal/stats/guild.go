package stats

import (
	"sort"
	"time"

	"guild-tracker/internal/constants"
	"guild-tracker/internal/domain"
)

type guildDungeonAccum struct {
	totalRuns  int
	timedRuns  int
	highestKey int
	ratingSum  float64
	players    map[string]struct{}
}

type guildGroupAccum struct {
	totalRuns int
	timedRuns int
	ratingSum float64
}

type networkAccum struct {
	name       string
	server     string
	spec       string
	totalRuns  int
	playedWith map[string]struct{}
}

// AggregateGuildSeason folds every character's seasonal stats into the
// guild-wide rollup for the given season. Characters without runs count
// toward TotalCharacters but contribute nothing else; a fully empty roster
// still yields a valid zero-valued object.
func AggregateGuildSeason(characters []domain.Character, season int) domain.GuildSeasonStats {
	gs := domain.GuildSeasonStats{
		Season:             season,
		LastUpdated:        time.Now().UTC(),
		TotalCharacters:    len(characters),
		TopPlayers:         []domain.PlayerSummary{},
		DungeonLeaderboard: map[string]domain.GuildDungeonStats{},
		AffixStats:         map[string]domain.GuildGroupStats{},
		RoleStats:          map[string]domain.GuildGroupStats{},
		MemberNetworks:     map[string]domain.MemberNetworkEntry{},
	}

	dungeons := make(map[string]*guildDungeonAccum)
	affixes := make(map[string]*guildGroupAccum)
	roles := make(map[string]*guildGroupAccum)
	networks := make(map[string]*networkAccum)

	var summaries []domain.PlayerSummary
	var ratingTotal float64
	for i := range characters {
		ch := characters[i]
		cs := AggregateCharacterSeason(ch)
		if cs.TotalRuns == 0 {
			continue
		}

		gs.CharactersWithRuns++
		gs.TotalRuns += cs.TotalRuns
		gs.TotalTimedRuns += cs.CompletedRuns
		if cs.HighestKeyOverall > gs.HighestKeyOverall {
			gs.HighestKeyOverall = cs.HighestKeyOverall
		}
		if cs.HighestTimedKey > gs.HighestTimedKey {
			gs.HighestTimedKey = cs.HighestTimedKey
		}
		ratingTotal += ch.Rating()

		for name, ds := range cs.DungeonStats {
			d, ok := dungeons[name]
			if !ok {
				d = &guildDungeonAccum{players: map[string]struct{}{}}
				dungeons[name] = d
			}
			d.totalRuns += ds.TotalRuns
			d.timedRuns += ds.TimedRuns
			// Character stats expose averages, so the run-weighted sum is
			// reconstituted before it is folded in.
			d.ratingSum += ds.AverageRating * float64(ds.TotalRuns)
			if ds.HighestKey > d.highestKey {
				d.highestKey = ds.HighestKey
			}
			d.players[ch.Key()] = struct{}{}
		}

		for name, as := range cs.AffixStats {
			a := upsert(affixes, name)
			a.totalRuns += as.TotalRuns
			a.timedRuns += as.TimedRuns
			a.ratingSum += as.AverageRating * float64(as.TotalRuns)
		}
		for name, rs := range cs.RoleStats {
			r := upsert(roles, name)
			r.totalRuns += rs.TotalRuns
			r.timedRuns += rs.TimedRuns
			r.ratingSum += rs.AverageRating * float64(rs.TotalRuns)
		}

		// The co-play edge is recorded on the teammate's entry only, not on
		// this character's own entry. See the network fold test before
		// making this symmetric.
		for _, tm := range cs.TopPlayedMembers {
			key := domain.CharacterKey(tm.Name, tm.Server)
			n, ok := networks[key]
			if !ok {
				n = &networkAccum{
					name:       tm.Name,
					server:     tm.Server,
					spec:       tm.Spec,
					playedWith: map[string]struct{}{},
				}
				networks[key] = n
			}
			n.totalRuns += tm.Count
			n.playedWith[ch.Key()] = struct{}{}
		}

		summaries = append(summaries, domain.PlayerSummary{
			Name:              ch.Name,
			Server:            ch.Realm,
			Class:             ch.Class,
			Spec:              ch.ActiveSpec,
			Rating:            ch.Rating(),
			HighestTimedKey:   cs.HighestTimedKey,
			HighestKeyOverall: cs.HighestKeyOverall,
			TotalRuns:         cs.TotalRuns,
			CompletionRate:    cs.CompletionRate,
			AverageRating:     cs.AverageRating,
		})
	}

	gs.AverageRating = safeDiv(ratingTotal, gs.CharactersWithRuns)
	gs.TopPlayers = topPlayers(summaries, constants.TopPlayersLimit)

	for name, d := range dungeons {
		gs.DungeonLeaderboard[name] = domain.GuildDungeonStats{
			TotalRuns:      d.totalRuns,
			TimedRuns:      d.timedRuns,
			HighestKey:     d.highestKey,
			AverageRating:  safeDiv(d.ratingSum, d.totalRuns),
			CompletionRate: percent(d.timedRuns, d.totalRuns),
			PlayerCount:    len(d.players),
		}
	}
	for name, a := range affixes {
		gs.AffixStats[name] = domain.GuildGroupStats{
			TotalRuns:      a.totalRuns,
			TimedRuns:      a.timedRuns,
			AverageRating:  safeDiv(a.ratingSum, a.totalRuns),
			CompletionRate: percent(a.timedRuns, a.totalRuns),
		}
	}
	for name, r := range roles {
		gs.RoleStats[name] = domain.GuildGroupStats{
			TotalRuns:      r.totalRuns,
			TimedRuns:      r.timedRuns,
			AverageRating:  safeDiv(r.ratingSum, r.totalRuns),
			CompletionRate: percent(r.timedRuns, r.totalRuns),
		}
	}
	for key, n := range networks {
		played := make([]string, 0, len(n.playedWith))
		for k := range n.playedWith {
			played = append(played, k)
		}
		sort.Strings(played)
		gs.MemberNetworks[key] = domain.MemberNetworkEntry{
			Name:            n.name,
			Server:          n.server,
			Spec:            n.spec,
			TotalRuns:       n.totalRuns,
			PlayedWithCount: len(n.playedWith),
			PlayedWith:      played,
		}
	}

	return gs
}

// topPlayers orders summaries by current rating descending, capped at limit.
// Equal ratings fall back to the character key for a stable order.
func topPlayers(summaries []domain.PlayerSummary, limit int) []domain.PlayerSummary {
	out := make([]domain.PlayerSummary, len(summaries))
	copy(out, summaries)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Rating != out[j].Rating {
			return out[i].Rating > out[j].Rating
		}
		return domain.CharacterKey(out[i].Name, out[i].Server) < domain.CharacterKey(out[j].Name, out[j].Server)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
