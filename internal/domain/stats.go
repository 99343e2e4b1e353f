package domain

import (
	"time"
)

// CharacterSeasonStats is the per-character seasonal rollup. It is recomputed
// from the character document on every call and never persisted on its own.
type CharacterSeasonStats struct {
	HighestTimedKey      int     `json:"highestTimedKey"`
	HighestKeyOverall    int     `json:"highestKeyOverall"`
	TotalRuns            int     `json:"totalRuns"`
	CompletedRuns        int     `json:"completedRuns"`
	AverageRating        float64 `json:"averageRating"`
	CompletionRate       float64 `json:"completionRate"`
	TotalPlaytimeSeconds float64 `json:"totalPlaytimeSeconds"`

	DungeonStats     map[string]DungeonSeasonStats `json:"dungeonStats"`
	AffixStats       map[string]GroupSeasonStats   `json:"affixStats"`
	RoleStats        map[string]GroupSeasonStats   `json:"roleStats"`
	TopPlayedMembers []TeammateStats               `json:"topPlayedMembers"`
}

type DungeonSeasonStats struct {
	TotalRuns     int     `json:"totalRuns"`
	TimedRuns     int     `json:"timedRuns"`
	HighestKey    int     `json:"highestKey"`
	AverageRating float64 `json:"averageRating"`
}

// GroupSeasonStats is the shared shape of the per-affix and per-role
// breakdowns on a character.
type GroupSeasonStats struct {
	TotalRuns     int     `json:"totalRuns"`
	TimedRuns     int     `json:"timedRuns"`
	AverageRating float64 `json:"averageRating"`
}

type TeammateStats struct {
	Name   string `json:"name"`
	Server string `json:"server"`
	Spec   string `json:"spec"`
	Count  int    `json:"count"`
}

// GuildSeasonStats is the guild-wide rollup for one season, persisted as the
// canonical season record and served to the frontend field-for-field.
type GuildSeasonStats struct {
	Season             int       `json:"season"`
	LastUpdated        time.Time `json:"lastUpdated"`
	TotalCharacters    int       `json:"totalCharacters"`
	CharactersWithRuns int       `json:"charactersWithRuns"`
	TotalRuns          int       `json:"totalRuns"`
	TotalTimedRuns     int       `json:"totalTimedRuns"`
	HighestKeyOverall  int       `json:"highestKeyOverall"`
	HighestTimedKey    int       `json:"highestTimedKey"`
	AverageRating      float64   `json:"averageRating"`

	TopPlayers         []PlayerSummary               `json:"topPlayers"`
	DungeonLeaderboard map[string]GuildDungeonStats  `json:"dungeonLeaderboard"`
	AffixStats         map[string]GuildGroupStats    `json:"affixStats"`
	RoleStats          map[string]GuildGroupStats    `json:"roleStats"`
	MemberNetworks     map[string]MemberNetworkEntry `json:"memberNetworks"`
}

type GuildDungeonStats struct {
	TotalRuns      int     `json:"totalRuns"`
	TimedRuns      int     `json:"timedRuns"`
	HighestKey     int     `json:"highestKey"`
	AverageRating  float64 `json:"averageRating"`
	CompletionRate float64 `json:"completionRate"`
	PlayerCount    int     `json:"playerCount"`
}

type GuildGroupStats struct {
	TotalRuns      int     `json:"totalRuns"`
	TimedRuns      int     `json:"timedRuns"`
	AverageRating  float64 `json:"averageRating"`
	CompletionRate float64 `json:"completionRate"`
}

type PlayerSummary struct {
	Name              string  `json:"name"`
	Server            string  `json:"server"`
	Class             string  `json:"class"`
	Spec              string  `json:"spec"`
	Rating            float64 `json:"rating"`
	HighestTimedKey   int     `json:"highestTimedKey"`
	HighestKeyOverall int     `json:"highestKeyOverall"`
	TotalRuns         int     `json:"totalRuns"`
	CompletionRate    float64 `json:"completionRate"`
	AverageRating     float64 `json:"averageRating"`
}

// MemberNetworkEntry is one node of the co-play graph. PlayedWith holds
// character keys ("name-server") of guild members who listed this member
// among their most-played teammates.
type MemberNetworkEntry struct {
	Name            string   `json:"name"`
	Server          string   `json:"server"`
	Spec            string   `json:"spec"`
	TotalRuns       int      `json:"totalRuns"`
	PlayedWithCount int      `json:"playedWithCount"`
	PlayedWith      []string `json:"playedWith"`
}

// Achievements is the superlative summary derived from a guild rollup.
type Achievements struct {
	HighestKeyOverall  int                 `json:"highestKeyOverall"`
	HighestTimedKey    int                 `json:"highestTimedKey"`
	TopRatedPlayer     *PlayerSummary      `json:"topRatedPlayer"`
	MostActivePlayer   *PlayerSummary      `json:"mostActivePlayer"`
	MostPlayedDungeon  *DungeonAchievement `json:"mostPlayedDungeon"`
	BestCompletionRate *PlayerSummary      `json:"bestCompletionRate"`
}

type DungeonAchievement struct {
	Name string `json:"name"`
	GuildDungeonStats
}
