package service

import (
	"context"
	"time"

	"github.com/suanmei/xhs-roast-go/internal/constants"
	"github.com/suanmei/xhs-roast-go/internal/domain"
	"github.com/suanmei/xhs-roast-go/internal/prompt"
	"github.com/suanmei/xhs-roast-go/pkg/errors"
	"go.uber.org/zap"
)

// SnapshotFetcher obtains the rendered text snapshot of a profile page.
type SnapshotFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// RoastGenerator produces a roast from sanitized content.
type RoastGenerator interface {
	Generate(ctx context.Context, content string) (string, error)
}

// RoastStore persists successful results.
type RoastStore interface {
	Save(ctx context.Context, blogger domain.BloggerInfo, roast, url string) (*domain.RoastRecord, error)
}

// Broadcaster pushes a saved record to live feed subscribers.
type Broadcaster interface {
	Broadcast(record *domain.RoastRecord)
}

// AnalyzeResult carries everything the API layer needs to respond. When the
// generation retry loop was exhausted, Fallback is true, Roast holds the
// canned text and Err the last generation error, so the response can show
// something while still flagging the failure.
type AnalyzeResult struct {
	Roast    string
	Blogger  domain.BloggerInfo
	ShareID  string
	Fallback bool
	Err      error
}

// AnalyzeService sequences the pipeline: gate, fetch, extract, sanitize,
// generate (with a fixed retry loop), persist.
type AnalyzeService struct {
	fetcher     SnapshotFetcher
	generator   RoastGenerator
	store       RoastStore
	broadcaster Broadcaster
	logger      *zap.Logger

	maxAttempts int
	retryDelay  time.Duration
	sleep       func(ctx context.Context, d time.Duration)
}

func NewAnalyzeService(fetcher SnapshotFetcher, generator RoastGenerator, store RoastStore, broadcaster Broadcaster, logger *zap.Logger) *AnalyzeService {
	return &AnalyzeService{
		fetcher:     fetcher,
		generator:   generator,
		store:       store,
		broadcaster: broadcaster,
		logger:      logger,
		maxAttempts: constants.RetryConfig.MaxAttempts,
		retryDelay:  constants.RetryConfig.Delay,
		sleep:       sleepWithContext,
	}
}

// SetRetryPolicy overrides the generation retry loop parameters.
func (s *AnalyzeService) SetRetryPolicy(maxAttempts int, delay time.Duration) {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	s.maxAttempts = maxAttempts
	s.retryDelay = delay
}

// Analyze runs the full pipeline for a submitted profile URL.
func (s *AnalyzeService) Analyze(ctx context.Context, url string) (*AnalyzeResult, error) {
	if !domain.IsProfileURL(url) {
		return nil, errors.NewValidationError("请输入有效的小红书博主链接", "url", url)
	}

	start := time.Now()

	body, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		s.logger.Error("Snapshot fetch failed", zap.String("url", url), zap.Error(err))
		return nil, err
	}

	blogger := ExtractBloggerInfo(body, s.logger)
	cleaned := SanitizeContent(body)

	s.logger.Debug("Pipeline stages complete",
		zap.String("nickname", blogger.Nickname),
		zap.Int("raw_len", len(body)),
		zap.Int("cleaned_len", len(cleaned)),
		zap.Duration("elapsed", time.Since(start)))

	roast, genErr := s.generateWithRetry(ctx, cleaned)
	if genErr != nil {
		return &AnalyzeResult{
			Roast:    prompt.FallbackRoast,
			Blogger:  blogger,
			Fallback: true,
			Err:      genErr,
		}, nil
	}

	result := &AnalyzeResult{
		Roast:   roast,
		Blogger: blogger,
	}

	if s.store != nil {
		result.ShareID = s.persist(ctx, blogger, roast, url)
	}

	s.logger.Info("Analyze complete",
		zap.String("url", url),
		zap.String("share_id", result.ShareID),
		zap.Duration("total", time.Since(start)))

	return result, nil
}

// GenerateOnly runs the second stage of the split two-phase variant: the
// client already holds the raw snapshot from a fetch-only call.
func (s *AnalyzeService) GenerateOnly(ctx context.Context, body string) (string, error) {
	return s.generateWithRetry(ctx, SanitizeContent(body))
}

// FetchOnly runs the first stage of the split variant.
func (s *AnalyzeService) FetchOnly(ctx context.Context, url string) (string, domain.BloggerInfo, error) {
	if !domain.IsProfileURL(url) {
		return "", domain.BloggerInfo{}, errors.NewValidationError("请输入有效的小红书博主链接", "url", url)
	}

	body, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		return "", domain.BloggerInfo{}, err
	}

	return body, ExtractBloggerInfo(body, s.logger), nil
}

func (s *AnalyzeService) generateWithRetry(ctx context.Context, cleaned string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		roast, err := s.generator.Generate(ctx, cleaned)
		if err == nil {
			return roast, nil
		}

		lastErr = err
		s.logger.Warn("Roast generation failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", s.maxAttempts),
			zap.Error(err))

		if attempt < s.maxAttempts {
			s.sleep(ctx, s.retryDelay)
		}
	}

	return "", lastErr
}

// persist saves the record and notifies live feed subscribers. Failure to
// save is logged and swallowed: the user already has their roast.
func (s *AnalyzeService) persist(ctx context.Context, blogger domain.BloggerInfo, roast, url string) string {
	record, err := s.store.Save(ctx, blogger, roast, url)
	if err != nil {
		s.logger.Error("Failed to save roast record", zap.Error(err))
		return ""
	}

	if s.broadcaster != nil {
		s.broadcaster.Broadcast(record)
	}

	return record.ShareID
}

func sleepWithContext(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
