package service

import (
	"context"
	"errors"
	"time"

	"guild-tracker/internal/api"
	"guild-tracker/internal/config"
	"guild-tracker/internal/constants"
	"guild-tracker/internal/domain"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// pvpBrackets are the rated brackets tracked per character.
var pvpBrackets = []string{"2v2", "3v3", "rbg"}

var tankSpecs = map[string]struct{}{
	"Blood":      {},
	"Brewmaster": {},
	"Guardian":   {},
	"Protection": {},
	"Vengeance":  {},
}

var healerSpecs = map[string]struct{}{
	"Discipline":   {},
	"Holy":         {},
	"Mistweaver":   {},
	"Preservation": {},
	"Restoration":  {},
}

func roleForSpec(spec string) string {
	if _, ok := tankSpecs[spec]; ok {
		return "TANK"
	}
	if _, ok := healerSpecs[spec]; ok {
		return "HEALER"
	}
	return "DAMAGE"
}

// CharacterFetcher assembles a full character document from the profile API.
// The summary is mandatory; every other payload degrades to empty when the
// API has nothing for that character (fresh alts have no keystone season,
// most characters have no rated PvP brackets).
type CharacterFetcher struct {
	blizzard *api.BlizzardClient
	cfg      *config.Config
	logger   zerolog.Logger
}

func NewCharacterFetcher(blizzard *api.BlizzardClient, cfg *config.Config, logger zerolog.Logger) *CharacterFetcher {
	return &CharacterFetcher{blizzard: blizzard, cfg: cfg, logger: logger}
}

func (f *CharacterFetcher) Fetch(ctx context.Context, realm, name string) (*domain.Character, error) {
	apiCtx, cancel := context.WithTimeout(ctx, constants.ExternalAPITimeout)
	defer cancel()

	summary, err := f.blizzard.GetCharacterSummary(apiCtx, realm, name)
	if err != nil {
		return nil, err
	}

	g, gCtx := errgroup.WithContext(apiCtx)
	var equipment *api.CharacterEquipmentResponse
	var profile *api.MythicKeystoneProfileResponse
	var season *api.MythicKeystoneSeasonResponse
	var raids *api.CharacterRaidsResponse
	brackets := make([]*api.PvPBracketResponse, len(pvpBrackets))

	g.Go(func() error {
		var err error
		equipment, err = f.blizzard.GetCharacterEquipment(gCtx, realm, name)
		f.logOptional(err, realm, name, "equipment")
		return nil
	})

	g.Go(func() error {
		var err error
		profile, err = f.blizzard.GetMythicKeystoneProfile(gCtx, realm, name)
		f.logOptional(err, realm, name, "keystone profile")
		return nil
	})

	g.Go(func() error {
		var err error
		season, err = f.blizzard.GetMythicKeystoneSeason(gCtx, realm, name, f.cfg.SeasonID)
		f.logOptional(err, realm, name, "keystone season")
		return nil
	})

	g.Go(func() error {
		var err error
		raids, err = f.blizzard.GetCharacterRaids(gCtx, realm, name)
		f.logOptional(err, realm, name, "raids")
		return nil
	})

	for i, bracket := range pvpBrackets {
		g.Go(func() error {
			var err error
			brackets[i], err = f.blizzard.GetPvPBracket(gCtx, realm, name, bracket)
			f.logOptional(err, realm, name, "pvp "+bracket)
			return nil
		})
	}

	// The closures never return an error, Wait is only a join point.
	_ = g.Wait()

	ch := &domain.Character{
		Name:              summary.Name,
		Realm:             summary.Realm.Slug,
		Class:             summary.CharacterClass.Name,
		ActiveSpec:        summary.ActiveSpec.Name,
		Role:              roleForSpec(summary.ActiveSpec.Name),
		Level:             summary.Level,
		Faction:           summary.Faction.Name,
		EquippedItemLevel: summary.EquippedItemLevel,
		LastFetchAt:       time.Now().UTC(),
	}

	if equipment != nil {
		ch.Equipment = mapEquipment(equipment.EquippedItems)
	}
	if profile != nil && profile.CurrentMythicRating != nil {
		rating := profile.CurrentMythicRating.Rating
		ch.CurrentMythicRating = &rating
	}
	if season != nil {
		if season.MythicRating != nil {
			ch.MythicPlusScore = season.MythicRating.Rating
		}
		ch.CurrentSeason = &domain.SeasonSnapshot{
			Season:   f.cfg.SeasonID,
			BestRuns: mapRuns(season.BestRuns),
		}
	}
	if raids != nil {
		ch.RaidProgress = mapRaidProgress(raids)
	}
	ch.PvPBrackets = mapPvPBrackets(brackets)

	return ch, nil
}

func (f *CharacterFetcher) logOptional(err error, realm, name, payload string) {
	if err == nil {
		return
	}
	if errors.Is(err, api.ErrNotFound) {
		f.logger.Debug().Str("realm", realm).Str("name", name).Str("payload", payload).Msg("no data for payload")
		return
	}
	f.logger.Warn().Err(err).Str("realm", realm).Str("name", name).Str("payload", payload).Msg("failed to fetch payload")
}

func mapEquipment(items []api.EquippedItemData) []domain.EquippedItem {
	equipment := make([]domain.EquippedItem, 0, len(items))
	for _, item := range items {
		equipment = append(equipment, domain.EquippedItem{
			Slot:      item.Slot.Name,
			Name:      item.Name,
			ItemLevel: item.Level.Value,
			Quality:   item.Quality.Name,
		})
	}
	return equipment
}

// mapRuns converts API run payloads into documents. The API reports duration
// in milliseconds; documents carry seconds.
func mapRuns(runs []api.KeystoneRunData) []domain.MythicPlusRun {
	mapped := make([]domain.MythicPlusRun, 0, len(runs))
	for _, r := range runs {
		run := domain.MythicPlusRun{
			KeystoneLevel:         r.KeystoneLevel,
			IsCompletedWithinTime: r.IsCompletedWithinTime,
			DurationSeconds:       float64(r.Duration) / 1000.0,
			CompletedAt:           time.UnixMilli(r.CompletedTimestamp).UTC(),
		}
		if r.MythicRating != nil {
			run.MythicRating = &domain.RunRating{Rating: r.MythicRating.Rating}
		}
		if r.Dungeon.Name != "" {
			run.Dungeon = &domain.DungeonRef{ID: r.Dungeon.ID, Name: r.Dungeon.Name}
		}
		for _, affix := range r.KeystoneAffixes {
			run.KeystoneAffixes = append(run.KeystoneAffixes, domain.RunAffix{ID: affix.ID, Name: affix.Name})
		}
		for _, m := range r.Members {
			run.Members = append(run.Members, domain.RunMember{
				Name:  m.Character.Name,
				Realm: m.Character.Realm.Slug,
				Spec:  m.Specialization.Name,
			})
		}
		mapped = append(mapped, run)
	}
	return mapped
}

// mapRaidProgress keeps only the newest expansion, which is the last entry in
// the API payload.
func mapRaidProgress(raids *api.CharacterRaidsResponse) []domain.RaidProgressEntry {
	if len(raids.Expansions) == 0 {
		return nil
	}
	current := raids.Expansions[len(raids.Expansions)-1]

	entries := make([]domain.RaidProgressEntry, 0, len(current.Instances))
	for _, instance := range current.Instances {
		entry := domain.RaidProgressEntry{Instance: instance.Instance.Name}
		for _, mode := range instance.Modes {
			if mode.Progress.TotalCount > entry.TotalBosses {
				entry.TotalBosses = mode.Progress.TotalCount
			}
			switch mode.Difficulty.Type {
			case "NORMAL":
				entry.NormalKills = mode.Progress.CompletedCount
			case "HEROIC":
				entry.HeroicKills = mode.Progress.CompletedCount
			case "MYTHIC":
				entry.MythicKills = mode.Progress.CompletedCount
			}
		}
		entries = append(entries, entry)
	}
	return entries
}

func mapPvPBrackets(responses []*api.PvPBracketResponse) []domain.PvPBracket {
	var mapped []domain.PvPBracket
	for i, resp := range responses {
		if resp == nil {
			continue
		}
		mapped = append(mapped, domain.PvPBracket{
			Bracket:      pvpBrackets[i],
			Rating:       resp.Rating,
			SeasonPlayed: resp.SeasonMatchStatistics.Played,
			SeasonWon:    resp.SeasonMatchStatistics.Won,
		})
	}
	return mapped
}
