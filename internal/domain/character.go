package domain

import (
	"strings"
	"time"
)

type Character struct {
	Name              string              `json:"name"`
	Realm             string              `json:"realm"`
	Class             string              `json:"class"`
	ActiveSpec        string              `json:"activeSpec"`
	Role              string              `json:"role"` // TANK, HEALER, DAMAGE
	Level             int                 `json:"level"`
	Faction           string              `json:"faction"`
	GuildRank         int                 `json:"guildRank"`
	EquippedItemLevel float64             `json:"equippedItemLevel"`
	Equipment         []EquippedItem      `json:"equipment,omitempty"`
	RaidProgress      []RaidProgressEntry `json:"raidProgress,omitempty"`
	PvPBrackets       []PvPBracket        `json:"pvpBrackets,omitempty"`

	// MythicPlusScore is the processed seasonal score. Documents written by
	// older fetches only carry CurrentMythicRating from the raw profile
	// payload; Rating prefers the processed value.
	MythicPlusScore     float64  `json:"mythicPlusScore"`
	CurrentMythicRating *float64 `json:"currentMythicRating,omitempty"`

	CurrentSeason *SeasonSnapshot `json:"currentSeason,omitempty"`

	LastFetchAt time.Time `json:"lastFetchAt"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Key returns the canonical "name-server" identifier used across
// leaderboards and the member network.
func (c *Character) Key() string {
	return CharacterKey(c.Name, c.Realm)
}

func (c *Character) Rating() float64 {
	if c.MythicPlusScore > 0 {
		return c.MythicPlusScore
	}
	if c.CurrentMythicRating != nil {
		return *c.CurrentMythicRating
	}
	return 0
}

// CharacterKey lowercases both parts. Profile payloads echo display-case
// names while rosters and run members carry lowercase slugs; every spelling
// of the same character must resolve to one key.
func CharacterKey(name, server string) string {
	return strings.ToLower(name) + "-" + strings.ToLower(server)
}

type SeasonSnapshot struct {
	Season   int             `json:"season"`
	BestRuns []MythicPlusRun `json:"bestRuns,omitempty"`
}

type MythicPlusRun struct {
	KeystoneLevel         int         `json:"keystoneLevel"`
	IsCompletedWithinTime bool        `json:"isCompletedWithinTime"`
	MythicRating          *RunRating  `json:"mythicRating,omitempty"`
	DurationSeconds       float64     `json:"durationSeconds"`
	Dungeon               *DungeonRef `json:"dungeon,omitempty"`
	KeystoneAffixes       []RunAffix  `json:"keystoneAffixes,omitempty"`
	Members               []RunMember `json:"members,omitempty"`
	CompletedAt           time.Time   `json:"completedAt"`
}

type RunRating struct {
	Rating float64 `json:"rating"`
}

type DungeonRef struct {
	ID   int    `json:"id,omitempty"`
	Name string `json:"name"`
}

type RunAffix struct {
	ID   int    `json:"id,omitempty"`
	Name string `json:"name"`
}

type RunMember struct {
	Name  string `json:"characterName"`
	Realm string `json:"realmSlug"`
	Spec  string `json:"specializationName"`
}

func (m *RunMember) Key() string {
	return CharacterKey(m.Name, m.Realm)
}

type EquippedItem struct {
	Slot      string `json:"slot"`
	Name      string `json:"name"`
	ItemLevel int    `json:"itemLevel"`
	Quality   string `json:"quality"`
}

type RaidProgressEntry struct {
	Instance    string `json:"instance"`
	TotalBosses int    `json:"totalBosses"`
	NormalKills int    `json:"normalKills"`
	HeroicKills int    `json:"heroicKills"`
	MythicKills int    `json:"mythicKills"`
}

type PvPBracket struct {
	Bracket      string `json:"bracket"` // "2v2", "3v3", "rbg"
	Rating       int    `json:"rating"`
	SeasonPlayed int    `json:"seasonPlayed"`
	SeasonWon    int    `json:"seasonWon"`
}

type SyncRun struct {
	ID         string    `json:"id"` // nanoid
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	Total      int       `json:"total"`
	Synced     int       `json:"synced"`
	Failed     int       `json:"failed"`
	Status     string    `json:"status"` // "running", "completed", "failed"
	Error      string    `json:"error,omitempty"`
}
