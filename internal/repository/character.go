package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"guild-tracker/internal/constants"
	"guild-tracker/internal/domain"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

type CharacterRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewCharacterRepository(db *sql.DB, logger zerolog.Logger) *CharacterRepository {
	return &CharacterRepository{db: db, logger: logger}
}

// MemberFilter narrows and orders the roster listing. Zero values mean no
// constraint.
type MemberFilter struct {
	Class        string
	Spec         string
	Role         string
	MinLevel     int
	MinItemLevel float64
	MinRating    float64
	Search       string
	SortBy       string
	Limit        int
	Offset       int
}

func (r *CharacterRepository) Get(ctx context.Context, name, realm string) (*domain.Character, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT document, last_fetch_at, created_at, updated_at FROM characters WHERE key = ?`,
		domain.CharacterKey(name, realm))

	var doc string
	var lastFetchAt, createdAt, updatedAt time.Time
	if err := row.Scan(&doc, &lastFetchAt, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	ch, err := decodeCharacter(doc)
	if err != nil {
		return nil, err
	}
	ch.LastFetchAt = lastFetchAt
	ch.CreatedAt = createdAt
	ch.UpdatedAt = updatedAt
	return ch, nil
}

func (r *CharacterRepository) List(ctx context.Context, filter MemberFilter) ([]domain.Character, error) {
	query := `SELECT key, document, last_fetch_at, created_at, updated_at FROM characters`
	var conds []string
	var args []any

	if filter.Class != "" {
		conds = append(conds, "class = ? COLLATE NOCASE")
		args = append(args, filter.Class)
	}
	if filter.Spec != "" {
		conds = append(conds, "spec = ? COLLATE NOCASE")
		args = append(args, filter.Spec)
	}
	if filter.Role != "" {
		conds = append(conds, "role = ? COLLATE NOCASE")
		args = append(args, filter.Role)
	}
	if filter.MinLevel > 0 {
		conds = append(conds, "level >= ?")
		args = append(args, filter.MinLevel)
	}
	if filter.MinItemLevel > 0 {
		conds = append(conds, "item_level >= ?")
		args = append(args, filter.MinItemLevel)
	}
	if filter.MinRating > 0 {
		conds = append(conds, "rating >= ?")
		args = append(args, filter.MinRating)
	}
	if filter.Search != "" {
		conds = append(conds, "name LIKE ?")
		args = append(args, "%"+filter.Search+"%")
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	query += " ORDER BY " + orderClause(filter.SortBy)

	limit := filter.Limit
	if limit <= 0 {
		limit = constants.MembersDefaultLimit
	}
	if limit > constants.MembersMaxLimit {
		limit = constants.MembersMaxLimit
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query += " LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list characters: %w", err)
	}
	defer rows.Close()

	return r.collectCharacters(rows)
}

// All returns every stored character without paging, for aggregation runs.
func (r *CharacterRepository) All(ctx context.Context) ([]domain.Character, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT key, document, last_fetch_at, created_at, updated_at FROM characters ORDER BY name COLLATE NOCASE ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to load characters: %w", err)
	}
	defer rows.Close()

	return r.collectCharacters(rows)
}

func (r *CharacterRepository) collectCharacters(rows *sql.Rows) ([]domain.Character, error) {
	var characters []domain.Character
	for rows.Next() {
		var key, doc string
		var lastFetchAt, createdAt, updatedAt time.Time
		if err := rows.Scan(&key, &doc, &lastFetchAt, &createdAt, &updatedAt); err != nil {
			return nil, err
		}

		ch, err := decodeCharacter(doc)
		if err != nil {
			// A corrupt document drops the row from the listing instead of
			// failing the whole query.
			r.logger.Warn().Err(err).Str("key", key).Msg("skipping corrupt character document")
			continue
		}
		ch.LastFetchAt = lastFetchAt
		ch.CreatedAt = createdAt
		ch.UpdatedAt = updatedAt
		characters = append(characters, *ch)
	}
	return characters, rows.Err()
}

func (r *CharacterRepository) Upsert(ctx context.Context, ch *domain.Character) error {
	return r.upsertOne(ctx, r.db.ExecContext, ch)
}

func (r *CharacterRepository) UpsertBatch(ctx context.Context, characters []domain.Character) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for i := 0; i < len(characters); i += constants.DBBatchSize {
		end := i + constants.DBBatchSize
		if end > len(characters) {
			end = len(characters)
		}
		for j := range characters[i:end] {
			ch := characters[i+j]
			if err := r.upsertOne(ctx, tx.ExecContext, &ch); err != nil {
				return fmt.Errorf("failed to upsert character %s: %w", ch.Key(), err)
			}
		}
	}

	return tx.Commit()
}

type execFunc func(ctx context.Context, query string, args ...any) (sql.Result, error)

func (r *CharacterRepository) upsertOne(ctx context.Context, exec execFunc, ch *domain.Character) error {
	doc, err := json.Marshal(ch)
	if err != nil {
		return fmt.Errorf("failed to encode character document: %w", err)
	}

	now := time.Now().UTC()
	lastFetchAt := ch.LastFetchAt
	if lastFetchAt.IsZero() {
		lastFetchAt = now
	}

	_, err = exec(ctx, `
		INSERT INTO characters (key, name, realm, class, spec, role, level, item_level, rating, guild_rank, document, last_fetch_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			name = excluded.name,
			realm = excluded.realm,
			class = excluded.class,
			spec = excluded.spec,
			role = excluded.role,
			level = excluded.level,
			item_level = excluded.item_level,
			rating = excluded.rating,
			guild_rank = excluded.guild_rank,
			document = excluded.document,
			last_fetch_at = excluded.last_fetch_at,
			updated_at = excluded.updated_at`,
		ch.Key(), ch.Name, ch.Realm, ch.Class, ch.ActiveSpec, ch.Role, ch.Level,
		ch.EquippedItemLevel, ch.Rating(), ch.GuildRank, string(doc), lastFetchAt, now, now)
	return err
}

func (r *CharacterRepository) ShouldRefresh(ctx context.Context, name, realm string, ttl time.Duration) (bool, error) {
	key := domain.CharacterKey(name, realm)
	row := r.db.QueryRowContext(ctx, `SELECT last_fetch_at FROM characters WHERE key = ?`, key)

	var lastFetchAt time.Time
	if err := row.Scan(&lastFetchAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.logger.Debug().Str("key", key).Msg("character not found, should refresh")
			return true, nil
		}
		r.logger.Error().Err(err).Str("key", key).Msg("failed to get character")
		return false, err
	}

	timeSince := time.Since(lastFetchAt)
	shouldRefresh := timeSince > ttl
	r.logger.Debug().
		Str("key", key).
		Time("last_fetch_at", lastFetchAt).
		Dur("time_since", timeSince).
		Dur("ttl", ttl).
		Bool("should_refresh", shouldRefresh).
		Msg("checking if character should refresh")

	return shouldRefresh, nil
}

// DeleteMissing removes characters whose key is not in keep, pruning members
// who left the guild. An empty keep list is a no-op so a failed roster fetch
// can never empty the table.
func (r *CharacterRepository) DeleteMissing(ctx context.Context, keep []string) (int64, error) {
	if len(keep) == 0 {
		return 0, nil
	}

	placeholders := strings.Repeat("?,", len(keep))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(keep))
	for i, k := range keep {
		args[i] = k
	}

	res, err := r.db.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM characters WHERE key NOT IN (%s)`, placeholders), args...)
	if err != nil {
		return 0, fmt.Errorf("failed to prune characters: %w", err)
	}
	return res.RowsAffected()
}

func (r *CharacterRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM characters`).Scan(&count)
	return count, err
}

func decodeCharacter(doc string) (*domain.Character, error) {
	var ch domain.Character
	if err := json.Unmarshal([]byte(doc), &ch); err != nil {
		return nil, fmt.Errorf("failed to decode character document: %w", err)
	}
	return &ch, nil
}

func orderClause(sortBy string) string {
	switch sortBy {
	case "name":
		return "name COLLATE NOCASE ASC"
	case "itemLevel":
		return "item_level DESC"
	case "level":
		return "level DESC"
	default:
		return "rating DESC"
	}
}
