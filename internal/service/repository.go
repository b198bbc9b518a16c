package service

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/suanmei/xhs-roast-go/internal/constants"
	"github.com/suanmei/xhs-roast-go/internal/domain"
	"github.com/suanmei/xhs-roast-go/internal/prompt"
	"github.com/suanmei/xhs-roast-go/internal/service/cache"
	"github.com/suanmei/xhs-roast-go/internal/service/database"
	"github.com/suanmei/xhs-roast-go/pkg/errors"
	"go.uber.org/zap"
)

// roastStore is the SQL surface of the repository: row insertion, the
// indexed share lookup and the batched feed scan. The feed pagination and
// filtering logic above it only sees record slices, so it can be exercised
// against an in-memory store.
type roastStore interface {
	insert(ctx context.Context, record *domain.RoastRecord) (int64, error)
	byShareID(ctx context.Context, shareID string) (*domain.RoastRecord, error)
	batchBefore(ctx context.Context, before int64, count int) ([]*domain.RoastRecord, error)
	byBlogger(ctx context.Context, bloggerID string, count int) ([]*domain.RoastRecord, error)
	ping(ctx context.Context) error
}

// RoastRepository stores and queries persisted roast records. Share lookups
// go through the unique share_id index; the feed over-fetches and filters in
// memory because fallback detection matches on text.
type RoastRepository struct {
	store  roastStore
	cache  *cache.CacheService
	logger *zap.Logger
}

func NewRoastRepository(pg *database.PostgresService, cacheSvc *cache.CacheService, logger *zap.Logger) *RoastRepository {
	return &RoastRepository{
		store:  &sqlRoastStore{db: pg.GetDB()},
		cache:  cacheSvc,
		logger: logger,
	}
}

const feedCacheKey = "feed:recent"

// Save derives the blogger identity key, assigns a fresh share token and
// inserts the record. Records are immutable after this point.
func (r *RoastRepository) Save(ctx context.Context, blogger domain.BloggerInfo, roast, url string) (*domain.RoastRecord, error) {
	shareID, err := gonanoid.New(constants.ShareConfig.TokenLength)
	if err != nil {
		return nil, errors.NewStorageError("failed to generate share id", "save", err)
	}

	record := &domain.RoastRecord{
		CreatedAt: time.Now().UnixMilli(),
		Blogger:   blogger,
		Roast:     roast,
		URL:       url,
		ShareID:   shareID,
		BloggerID: domain.DeriveBloggerID(url, blogger.Nickname),
	}

	record.ID, err = r.store.insert(ctx, record)
	if err != nil {
		return nil, errors.NewStorageError("failed to insert roast record", "save", err)
	}

	// The cached first feed page is stale now.
	_ = r.cache.Del(ctx, feedCacheKey)

	r.logger.Info("Roast record saved",
		zap.Int64("id", record.ID),
		zap.String("share_id", shareID),
		zap.String("blogger_id", record.BloggerID))

	return record, nil
}

// GetByShareID is an indexed point lookup by the public share token.
// Returns nil without error when no record matches.
func (r *RoastRepository) GetByShareID(ctx context.Context, shareID string) (*domain.RoastRecord, error) {
	cacheKey := "share:" + shareID
	var cached domain.RoastRecord
	if found, _ := r.cache.Get(ctx, cacheKey, &cached); found {
		return &cached, nil
	}

	record, err := r.store.byShareID(ctx, shareID)
	if err != nil {
		return nil, errors.NewStorageError("failed to load roast by share id", "get_by_share_id", err)
	}
	if record == nil {
		return nil, nil
	}

	_ = r.cache.Set(ctx, cacheKey, record, constants.CacheTTL.ShareLookup)

	return record, nil
}

// RecentFeed returns one page of the recent-activity feed: reverse
// chronological, fallback texts filtered out, one record per blogger
// identity. cursor is the created_at of the previous page's last served
// record, or empty for the first page. The cursor must never skip past a
// displayable record, so a filled page resumes at its own last record, not
// at the end of the over-fetched batch.
func (r *RoastRepository) RecentFeed(ctx context.Context, limit int, cursor string) (*domain.RoastFeedPage, error) {
	if limit <= 0 {
		limit = constants.FeedConfig.DefaultPageSize
	}
	if limit > constants.FeedConfig.MaxPageSize {
		limit = constants.FeedConfig.MaxPageSize
	}

	firstPage := cursor == "" && limit == constants.FeedConfig.DefaultPageSize
	if firstPage {
		var cached domain.RoastFeedPage
		if found, _ := r.cache.Get(ctx, feedCacheKey, &cached); found {
			return &cached, nil
		}
	}

	before := int64(0)
	if cursor != "" {
		parsed, err := strconv.ParseInt(cursor, 10, 64)
		if err != nil {
			return nil, errors.NewValidationError("invalid feed cursor", "cursor", cursor)
		}
		before = parsed
	}

	var (
		collected []*domain.RoastRecord
		exhausted bool
	)

	// Filtering drops rows after the fact, so each round over-fetches; the
	// loop is bounded instead of recursing until the collection runs out.
	for round := 0; round < constants.FeedConfig.MaxBackfillLoops; round++ {
		count := limit * constants.FeedConfig.OverFetchFactor
		batch, err := r.fetchBatch(ctx, before, count)
		if err != nil {
			return nil, err
		}
		if len(batch) == 0 {
			exhausted = true
			break
		}

		before = batch[len(batch)-1].CreatedAt
		collected = append(collected, FilterDisplayable(batch)...)

		if len(batch) < count {
			exhausted = true
			break
		}
		if len(DedupeByBlogger(collected)) >= limit {
			break
		}
	}

	page := &domain.RoastFeedPage{Roasts: DedupeByBlogger(collected)}
	if len(page.Roasts) > limit {
		page.Roasts = page.Roasts[:limit]
	}

	switch {
	case len(page.Roasts) == limit:
		page.Cursor = strconv.FormatInt(page.Roasts[limit-1].CreatedAt, 10)
	case exhausted:
		page.Cursor = ""
	default:
		page.Cursor = strconv.FormatInt(before, 10)
	}

	if firstPage {
		_ = r.cache.Set(ctx, feedCacheKey, page, constants.CacheTTL.RecentFeed)
	}

	return page, nil
}

// BloggerHistory returns recent displayable roasts for one derived blogger
// identity, newest first.
func (r *RoastRepository) BloggerHistory(ctx context.Context, bloggerID string, limit int) ([]*domain.RoastRecord, error) {
	if limit <= 0 {
		limit = constants.FeedConfig.DefaultPageSize
	}

	records, err := r.store.byBlogger(ctx, bloggerID, limit*constants.FeedConfig.OverFetchFactor)
	if err != nil {
		return nil, errors.NewStorageError("failed to query blogger history", "blogger_history", err)
	}

	displayable := FilterDisplayable(records)
	if len(displayable) > limit {
		displayable = displayable[:limit]
	}
	return displayable, nil
}

func (r *RoastRepository) fetchBatch(ctx context.Context, before int64, count int) ([]*domain.RoastRecord, error) {
	records, err := r.store.batchBefore(ctx, before, count)
	if err != nil {
		return nil, errors.NewStorageError("failed to query feed batch", "recent_feed", err)
	}
	return records, nil
}

// FilterDisplayable drops records whose roast is a canned fallback text or
// too short to be a real result.
func FilterDisplayable(records []*domain.RoastRecord) []*domain.RoastRecord {
	result := make([]*domain.RoastRecord, 0, len(records))
	for _, record := range records {
		if IsFallbackRoast(record.Roast) {
			continue
		}
		result = append(result, record)
	}
	return result
}

// IsFallbackRoast recognizes canned placeholder texts and junk results.
func IsFallbackRoast(text string) bool {
	trimmed := strings.TrimSpace(text)
	if len([]rune(trimmed)) < constants.FeedConfig.MinRoastLength {
		return true
	}
	if strings.HasPrefix(trimmed, prompt.FallbackMarker) {
		return true
	}
	for _, canned := range prompt.FallbackTexts() {
		if trimmed == strings.TrimSpace(canned) {
			return true
		}
	}
	return false
}

// DedupeByBlogger keeps only the most recent record per blogger identity.
// Input must already be sorted newest first.
func DedupeByBlogger(records []*domain.RoastRecord) []*domain.RoastRecord {
	seen := make(map[string]bool, len(records))
	result := make([]*domain.RoastRecord, 0, len(records))
	for _, record := range records {
		if seen[record.BloggerID] {
			continue
		}
		seen[record.BloggerID] = true
		result = append(result, record)
	}
	return result
}

// Ping verifies database connectivity for diagnostics.
func (r *RoastRepository) Ping(ctx context.Context) error {
	if err := r.store.ping(ctx); err != nil {
		return fmt.Errorf("postgres ping failed: %w", err)
	}
	return nil
}

const roastColumns = "id, created_at, nickname, avatar, roast, url, share_id, blogger_id"

type sqlRoastStore struct {
	db *sql.DB
}

func (s *sqlRoastStore) insert(ctx context.Context, record *domain.RoastRecord) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO roasts (created_at, nickname, avatar, roast, url, share_id, blogger_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		record.CreatedAt, record.Blogger.Nickname, record.Blogger.Avatar,
		record.Roast, record.URL, record.ShareID, record.BloggerID,
	).Scan(&id)
	return id, err
}

func (s *sqlRoastStore) byShareID(ctx context.Context, shareID string) (*domain.RoastRecord, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+roastColumns+" FROM roasts WHERE share_id = $1", shareID)

	record, err := scanRoast(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (s *sqlRoastStore) batchBefore(ctx context.Context, before int64, count int) ([]*domain.RoastRecord, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if before > 0 {
		rows, err = s.db.QueryContext(ctx,
			"SELECT "+roastColumns+` FROM roasts
			 WHERE created_at < $1 ORDER BY created_at DESC LIMIT $2`, before, count)
	} else {
		rows, err = s.db.QueryContext(ctx,
			"SELECT "+roastColumns+" FROM roasts ORDER BY created_at DESC LIMIT $1", count)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectRoasts(rows)
}

func (s *sqlRoastStore) byBlogger(ctx context.Context, bloggerID string, count int) ([]*domain.RoastRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+roastColumns+` FROM roasts
		 WHERE blogger_id = $1 ORDER BY created_at DESC LIMIT $2`, bloggerID, count)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectRoasts(rows)
}

func (s *sqlRoastStore) ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRoast(row rowScanner) (*domain.RoastRecord, error) {
	record := &domain.RoastRecord{}
	err := row.Scan(
		&record.ID,
		&record.CreatedAt,
		&record.Blogger.Nickname,
		&record.Blogger.Avatar,
		&record.Roast,
		&record.URL,
		&record.ShareID,
		&record.BloggerID,
	)
	if err != nil {
		return nil, err
	}
	return record, nil
}

func collectRoasts(rows *sql.Rows) ([]*domain.RoastRecord, error) {
	var records []*domain.RoastRecord
	for rows.Next() {
		record, err := scanRoast(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}
