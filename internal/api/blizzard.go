package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/valyala/fasthttp"
	"golang.org/x/time/rate"

	"guild-tracker/internal/config"
	"guild-tracker/internal/constants"
	"guild-tracker/internal/metrics"
)

// ErrNotFound marks a 404 from the Blizzard API. Characters that transferred
// or were deleted still appear in rosters, so callers skip these rather than
// failing a sync.
var ErrNotFound = errors.New("blizzard API resource not found")

type BlizzardClient struct {
	clientID     string
	clientSecret string
	region       string
	locale       string
	apiBase      string
	tokenURL     string
	client       *fasthttp.Client
	limiter      *rate.Limiter

	tokenMu  sync.RWMutex
	token    string
	tokenExp time.Time
}

func NewBlizzardClient(cfg *config.Config) *BlizzardClient {
	// The CN region lives on different hosts, so both endpoints can be
	// overridden; everywhere else the region-derived defaults apply.
	apiBase := cfg.APIBaseURL
	if apiBase == "" {
		apiBase = fmt.Sprintf("https://%s.api.blizzard.com", cfg.Region)
	}
	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = "https://oauth.battle.net/token"
	}

	return &BlizzardClient{
		clientID:     cfg.BlizzardClientID,
		clientSecret: cfg.BlizzardClientSecret,
		region:       cfg.Region,
		locale:       cfg.Locale,
		apiBase:      apiBase,
		tokenURL:     tokenURL,
		client: &fasthttp.Client{
			MaxConnsPerHost:     100,
			ReadTimeout:         10 * time.Second,
			WriteTimeout:        10 * time.Second,
			MaxIdleConnDuration: 1 * time.Minute,
		},
		limiter: rate.NewLimiter(rate.Limit(constants.APIRequestsPerSecond), constants.APIRequestBurst),
	}
}

func (c *BlizzardClient) GetGuildRoster(ctx context.Context, realm, guild string) (*GuildRosterResponse, error) {
	path := fmt.Sprintf("/data/wow/guild/%s/%s/roster", slug(realm), slug(guild))
	return doRequest[GuildRosterResponse](ctx, c, "guild_roster", c.profileURL(path))
}

func (c *BlizzardClient) GetCharacterSummary(ctx context.Context, realm, name string) (*CharacterSummaryResponse, error) {
	path := fmt.Sprintf("/profile/wow/character/%s/%s", slug(realm), slug(name))
	return doRequest[CharacterSummaryResponse](ctx, c, "character_summary", c.profileURL(path))
}

func (c *BlizzardClient) GetCharacterEquipment(ctx context.Context, realm, name string) (*CharacterEquipmentResponse, error) {
	path := fmt.Sprintf("/profile/wow/character/%s/%s/equipment", slug(realm), slug(name))
	return doRequest[CharacterEquipmentResponse](ctx, c, "character_equipment", c.profileURL(path))
}

func (c *BlizzardClient) GetMythicKeystoneProfile(ctx context.Context, realm, name string) (*MythicKeystoneProfileResponse, error) {
	path := fmt.Sprintf("/profile/wow/character/%s/%s/mythic-keystone-profile", slug(realm), slug(name))
	return doRequest[MythicKeystoneProfileResponse](ctx, c, "keystone_profile", c.profileURL(path))
}

func (c *BlizzardClient) GetMythicKeystoneSeason(ctx context.Context, realm, name string, seasonID int) (*MythicKeystoneSeasonResponse, error) {
	path := fmt.Sprintf("/profile/wow/character/%s/%s/mythic-keystone-profile/season/%d", slug(realm), slug(name), seasonID)
	return doRequest[MythicKeystoneSeasonResponse](ctx, c, "keystone_season", c.profileURL(path))
}

func (c *BlizzardClient) GetCharacterRaids(ctx context.Context, realm, name string) (*CharacterRaidsResponse, error) {
	path := fmt.Sprintf("/profile/wow/character/%s/%s/encounters/raids", slug(realm), slug(name))
	return doRequest[CharacterRaidsResponse](ctx, c, "character_raids", c.profileURL(path))
}

func (c *BlizzardClient) GetPvPBracket(ctx context.Context, realm, name, bracket string) (*PvPBracketResponse, error) {
	path := fmt.Sprintf("/profile/wow/character/%s/%s/pvp-bracket/%s", slug(realm), slug(name), bracket)
	return doRequest[PvPBracketResponse](ctx, c, "pvp_bracket", c.profileURL(path))
}

func (c *BlizzardClient) profileURL(path string) string {
	return fmt.Sprintf("%s%s?namespace=profile-%s&locale=%s",
		c.apiBase, path, c.region, c.locale)
}

// slug lowercases a realm, guild, or character name, hyphenates spaces, and
// drops apostrophes, matching the slugs the API expects ("Area 52" becomes
// "area-52", "Kil'jaeden" becomes "kiljaeden").
func slug(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "'", "")
	s = strings.ReplaceAll(s, " ", "-")
	return url.PathEscape(s)
}

func doRequest[T any](ctx context.Context, c *BlizzardClient, endpoint, requestURL string) (*T, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	token, err := c.getToken(ctx)
	if err != nil {
		return nil, err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(requestURL)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Authorization", "Bearer "+token)

	start := time.Now()
	if deadline, ok := ctx.Deadline(); ok {
		err = c.client.DoDeadline(req, resp, deadline)
	} else {
		err = c.client.Do(req, resp)
	}
	metrics.UpstreamRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues(endpoint, "error").Inc()
		return nil, err
	}

	status := resp.StatusCode()
	metrics.UpstreamRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()

	switch {
	case status == fasthttp.StatusNotFound:
		return nil, ErrNotFound
	case status == fasthttp.StatusUnauthorized:
		// Token may have been revoked before its stated expiry.
		c.invalidateToken()
		return nil, fmt.Errorf("blizzard API unauthorized: %d", status)
	case status != fasthttp.StatusOK:
		return nil, fmt.Errorf("blizzard API error: %d", status)
	}

	var result T
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

func (c *BlizzardClient) getToken(ctx context.Context) (string, error) {
	c.tokenMu.RLock()
	if c.token != "" && time.Now().Before(c.tokenExp) {
		token := c.token
		c.tokenMu.RUnlock()
		return token, nil
	}
	c.tokenMu.RUnlock()

	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()
	if c.token != "" && time.Now().Before(c.tokenExp) {
		return c.token, nil
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.tokenURL)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/x-www-form-urlencoded")
	basic := base64.StdEncoding.EncodeToString([]byte(c.clientID + ":" + c.clientSecret))
	req.Header.Set("Authorization", "Basic "+basic)
	req.SetBodyString("grant_type=client_credentials")

	var err error
	if deadline, ok := ctx.Deadline(); ok {
		err = c.client.DoDeadline(req, resp, deadline)
	} else {
		err = c.client.Do(req, resp)
	}
	if err != nil {
		return "", fmt.Errorf("failed to fetch oauth token: %w", err)
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return "", fmt.Errorf("oauth token request failed: %d", resp.StatusCode())
	}

	var tr tokenResponse
	if err := json.Unmarshal(resp.Body(), &tr); err != nil {
		return "", fmt.Errorf("failed to decode oauth token response: %w", err)
	}
	if tr.AccessToken == "" {
		return "", fmt.Errorf("oauth token response missing access_token")
	}

	c.token = tr.AccessToken
	c.tokenExp = time.Now().Add(time.Duration(tr.ExpiresIn)*time.Second - constants.TokenRefreshMargin)
	return c.token, nil
}

func (c *BlizzardClient) invalidateToken() {
	c.tokenMu.Lock()
	c.token = ""
	c.tokenMu.Unlock()
}

type GuildRosterResponse struct {
	Guild struct {
		Name  string `json:"name"`
		ID    int    `json:"id"`
		Realm struct {
			Slug string `json:"slug"`
			Name string `json:"name"`
		} `json:"realm"`
		Faction struct {
			Type string `json:"type"`
			Name string `json:"name"`
		} `json:"faction"`
	} `json:"guild"`
	Members []GuildRosterMember `json:"members"`
}

type GuildRosterMember struct {
	Character struct {
		Name  string `json:"name"`
		ID    int    `json:"id"`
		Level int    `json:"level"`
		Realm struct {
			Slug string `json:"slug"`
			ID   int    `json:"id"`
		} `json:"realm"`
		PlayableClass struct {
			ID int `json:"id"`
		} `json:"playable_class"`
		PlayableRace struct {
			ID int `json:"id"`
		} `json:"playable_race"`
	} `json:"character"`
	Rank int `json:"rank"`
}

type CharacterSummaryResponse struct {
	Name    string `json:"name"`
	ID      int    `json:"id"`
	Level   int    `json:"level"`
	Faction struct {
		Type string `json:"type"`
		Name string `json:"name"`
	} `json:"faction"`
	CharacterClass struct {
		Name string `json:"name"`
		ID   int    `json:"id"`
	} `json:"character_class"`
	ActiveSpec struct {
		Name string `json:"name"`
		ID   int    `json:"id"`
	} `json:"active_spec"`
	Realm struct {
		Name string `json:"name"`
		Slug string `json:"slug"`
	} `json:"realm"`
	Guild struct {
		Name string `json:"name"`
		ID   int    `json:"id"`
	} `json:"guild"`
	EquippedItemLevel  float64 `json:"equipped_item_level"`
	AverageItemLevel   float64 `json:"average_item_level"`
	LastLoginTimestamp int64   `json:"last_login_timestamp"`
}

type CharacterEquipmentResponse struct {
	EquippedItems []EquippedItemData `json:"equipped_items"`
}

type EquippedItemData struct {
	Item struct {
		ID int `json:"id"`
	} `json:"item"`
	Slot struct {
		Type string `json:"type"`
		Name string `json:"name"`
	} `json:"slot"`
	Name  string `json:"name"`
	Level struct {
		Value int `json:"value"`
	} `json:"level"`
	Quality struct {
		Type string `json:"type"`
		Name string `json:"name"`
	} `json:"quality"`
}

type MythicKeystoneProfileResponse struct {
	CurrentPeriod struct {
		Period struct {
			ID int `json:"id"`
		} `json:"period"`
	} `json:"current_period"`
	Seasons []struct {
		ID int `json:"id"`
	} `json:"seasons"`
	CurrentMythicRating *MythicRatingData `json:"current_mythic_rating"`
}

type MythicKeystoneSeasonResponse struct {
	Season struct {
		ID int `json:"id"`
	} `json:"season"`
	BestRuns     []KeystoneRunData `json:"best_runs"`
	MythicRating *MythicRatingData `json:"mythic_rating"`
}

type MythicRatingData struct {
	Rating float64 `json:"rating"`
}

type KeystoneRunData struct {
	CompletedTimestamp    int64 `json:"completed_timestamp"`
	Duration              int64 `json:"duration"` // milliseconds
	KeystoneLevel         int   `json:"keystone_level"`
	IsCompletedWithinTime bool  `json:"is_completed_within_time"`
	KeystoneAffixes       []struct {
		Name string `json:"name"`
		ID   int    `json:"id"`
	} `json:"keystone_affixes"`
	Members []KeystoneRunMember `json:"members"`
	Dungeon struct {
		Name string `json:"name"`
		ID   int    `json:"id"`
	} `json:"dungeon"`
	MythicRating *MythicRatingData `json:"mythic_rating"`
}

type KeystoneRunMember struct {
	Character struct {
		Name  string `json:"name"`
		ID    int    `json:"id"`
		Realm struct {
			Slug string `json:"slug"`
			ID   int    `json:"id"`
		} `json:"realm"`
	} `json:"character"`
	Specialization struct {
		Name string `json:"name"`
		ID   int    `json:"id"`
	} `json:"specialization"`
	Race struct {
		Name string `json:"name"`
		ID   int    `json:"id"`
	} `json:"race"`
	EquippedItemLevel int `json:"equipped_item_level"`
}

type CharacterRaidsResponse struct {
	Expansions []struct {
		Expansion struct {
			Name string `json:"name"`
			ID   int    `json:"id"`
		} `json:"expansion"`
		Instances []RaidInstanceData `json:"instances"`
	} `json:"expansions"`
}

type RaidInstanceData struct {
	Instance struct {
		Name string `json:"name"`
		ID   int    `json:"id"`
	} `json:"instance"`
	Modes []struct {
		Difficulty struct {
			Type string `json:"type"`
			Name string `json:"name"`
		} `json:"difficulty"`
		Status struct {
			Type string `json:"type"`
			Name string `json:"name"`
		} `json:"status"`
		Progress struct {
			CompletedCount int `json:"completed_count"`
			TotalCount     int `json:"total_count"`
		} `json:"progress"`
	} `json:"modes"`
}

type PvPBracketResponse struct {
	Bracket struct {
		Type string `json:"type"`
		ID   int    `json:"id"`
	} `json:"bracket"`
	Rating                int `json:"rating"`
	SeasonMatchStatistics struct {
		Played int `json:"played"`
		Won    int `json:"won"`
		Lost   int `json:"lost"`
	} `json:"season_match_statistics"`
}
