package stats

import (
	"guild-tracker/internal/domain"
)

// defaultDungeonName stands in for runs whose dungeon reference is missing
// from the profile payload. All best-run defaulting lives in normalizeRun so
// the policy stays auditable in one place.
const defaultDungeonName = "Unknown"

// normalizedRun is one best-run with every optional field resolved.
type normalizedRun struct {
	level           int
	timed           bool
	rating          float64
	durationSeconds float64
	dungeon         string
	affixes         []string
	members         []runMember
}

type runMember struct {
	name   string
	server string
	spec   string
}

func normalizeRun(r domain.MythicPlusRun) normalizedRun {
	n := normalizedRun{
		level:           r.KeystoneLevel,
		timed:           r.IsCompletedWithinTime,
		durationSeconds: r.DurationSeconds,
		dungeon:         defaultDungeonName,
	}
	if r.Dungeon != nil && r.Dungeon.Name != "" {
		n.dungeon = r.Dungeon.Name
	}
	if r.MythicRating != nil {
		n.rating = r.MythicRating.Rating
	}
	for _, a := range r.KeystoneAffixes {
		n.affixes = append(n.affixes, a.Name)
	}
	for _, m := range r.Members {
		n.members = append(n.members, runMember{name: m.Name, server: m.Realm, spec: m.Spec})
	}
	return n
}

// upsert returns the accumulator for key, inserting a zero-valued one on
// first access.
func upsert[T any](m map[string]*T, key string) *T {
	v, ok := m[key]
	if !ok {
		v = new(T)
		m[key] = v
	}
	return v
}

// safeDiv returns sum/count, or 0 for an empty group. Ratios in the stats
// objects are never NaN.
func safeDiv(sum float64, count int) float64 {
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

// percent returns 100*part/total with the same zero guard.
func percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return 100 * float64(part) / float64(total)
}
