package service

import (
	"context"

	"github.com/suanmei/xhs-roast-go/internal/constants"
	"github.com/suanmei/xhs-roast-go/internal/prompt"
	"github.com/suanmei/xhs-roast-go/internal/service/ai"
	"github.com/suanmei/xhs-roast-go/internal/util"
	"github.com/suanmei/xhs-roast-go/pkg/errors"
	"go.uber.org/zap"
)

// RoastService turns sanitized profile content into a roast by walking the
// provider chain in order. It returns a typed error on failure; substituting
// canned text is the caller's decision, so the failure stays inspectable.
type RoastService struct {
	providers []ai.ChatProvider
	logger    *zap.Logger
}

func NewRoastService(providers []ai.ChatProvider, logger *zap.Logger) *RoastService {
	return &RoastService{
		providers: providers,
		logger:    logger,
	}
}

func (s *RoastService) Generate(ctx context.Context, content string) (string, error) {
	if len(s.providers) == 0 {
		return "", errors.NewGenerationError("no chat providers configured", "none", nil)
	}

	truncated := util.TruncateRunes(content, constants.GenerationLimits.MaxContentRunes)
	roastPrompt := prompt.BuildRoastPrompt(truncated)

	var lastErr error
	for _, provider := range s.providers {
		result, err := provider.Generate(ctx, roastPrompt)
		if err != nil {
			s.logger.Warn("Provider generation failed",
				zap.String("provider", provider.Name()),
				zap.Error(err))
			lastErr = err
			continue
		}

		s.logger.Info("Roast generated",
			zap.String("provider", provider.Name()),
			zap.String("model", result.Model),
			zap.Int("length", len(result.Text)))
		return result.Text, nil
	}

	return "", lastErr
}

// Providers exposes the chain for diagnostics.
func (s *RoastService) Providers() []ai.ChatProvider {
	return s.providers
}
