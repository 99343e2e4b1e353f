package constants

import "time"

const (
	ProfileCacheTTL     = 10 * time.Minute
	ProfileCacheSize    = 512
	CharacterRefreshTTL = 30 * time.Minute
)

const (
	ExternalAPITimeout = 10 * time.Second
	DatabaseTimeout    = 5 * time.Second
	RequestTimeout     = 30 * time.Second
	SyncTimeout        = 10 * time.Minute
	TokenRefreshMargin = 1 * time.Minute
)

const (
	DBMaxOpenConns    = 100
	DBMaxIdleConns    = 10
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
	DBBatchSize       = 100
)

const (
	ShutdownTimeout = 5 * time.Second
)

// Leaderboard caps. The frontend renders at most ten entries per list.
const (
	TopPlayersLimit   = 10
	TopTeammatesLimit = 10
)

const (
	RosterFetchConcurrency = 8
	MaxGuildRank           = 9 // roster sync skips members below this rank
)

const (
	// DefaultSeasonID is The War Within season 2, overridable per deploy.
	DefaultSeasonID     = 14
	DefaultSyncInterval = 1 * time.Hour
)

// Blizzard allows 100 requests/second per client; stay well under it.
const (
	APIRequestsPerSecond = 50
	APIRequestBurst      = 10
)

const (
	MembersDefaultLimit = 50
	MembersMaxLimit     = 200
)
