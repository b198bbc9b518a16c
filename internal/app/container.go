package app

import (
	"context"
	"fmt"

	"github.com/suanmei/xhs-roast-go/internal/config"
	"github.com/suanmei/xhs-roast-go/internal/httpserver"
	"github.com/suanmei/xhs-roast-go/internal/render"
	"github.com/suanmei/xhs-roast-go/internal/service"
	"github.com/suanmei/xhs-roast-go/internal/service/ai"
	"github.com/suanmei/xhs-roast-go/internal/service/cache"
	"github.com/suanmei/xhs-roast-go/internal/service/database"
	"go.uber.org/zap"
)

// Container bundles the assembled services and the HTTP server.
type Container struct {
	Config *config.Config
	Logger *zap.Logger
	Server *httpserver.Server

	closers []func()
}

// Close releases backing services in reverse construction order.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}

// Build assembles all infrastructure services. Heavy-weight initialization
// (DB, cache, AI clients) happens here; on failure, everything already
// constructed is closed again.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (container *Container, err error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}

	var closers []func()
	defer func() {
		if err != nil {
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
		}
	}()

	cacheSvc, err := cache.NewCacheService(cache.CacheConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, logger)
	if err != nil {
		// The pipeline works without Redis, just slower on repeats.
		logger.Warn("Redis unavailable, caching disabled", zap.Error(err))
		cacheSvc = nil
	} else {
		closers = append(closers, func() { _ = cacheSvc.Close() })
	}

	postgresSvc, err := database.NewPostgresService(database.PostgresConfig{
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		Database: cfg.Postgres.Database,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres service: %w", err)
	}
	closers = append(closers, func() { _ = postgresSvc.Close() })

	providers := []ai.ChatProvider{
		ai.NewDeepSeekProvider(cfg.DeepSeek.APIKey, cfg.DeepSeek.BaseURL, cfg.DeepSeek.Model, logger),
	}

	if cfg.OpenAI.EnableFallback {
		if openaiProvider := ai.NewOpenAIProvider(cfg.OpenAI.APIKey, cfg.OpenAI.Model, logger); openaiProvider != nil {
			providers = append(providers, openaiProvider)
		}
	}
	if cfg.Gemini.EnableFallback {
		geminiProvider, gerr := ai.NewGeminiProvider(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model, logger)
		if gerr != nil {
			logger.Warn("Gemini fallback unavailable", zap.Error(gerr))
		} else if geminiProvider != nil {
			providers = append(providers, geminiProvider)
		}
	}

	logger.Info("Chat providers assembled", zap.Int("count", len(providers)))

	fetcher := service.NewReaderClient(cfg.Reader.BaseURL, cacheSvc, logger)
	roaster := service.NewRoastService(providers, logger)
	repo := service.NewRoastRepository(postgresSvc, cacheSvc, logger)
	hub := httpserver.NewLiveHub(logger)
	analyzer := service.NewAnalyzeService(fetcher, roaster, repo, hub, logger)
	renderer := render.NewRenderer()

	server := httpserver.NewServer(cfg, analyzer, repo, renderer, hub, providers, cacheSvc, logger)

	return &Container{
		Config:  cfg,
		Logger:  logger,
		Server:  server,
		closers: closers,
	}, nil
}
