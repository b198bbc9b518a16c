package ai

import (
	"context"
	"strings"
	"time"

	"github.com/suanmei/xhs-roast-go/internal/constants"
	"github.com/suanmei/xhs-roast-go/internal/prompt"
	"github.com/suanmei/xhs-roast-go/pkg/errors"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

// GeminiProvider is the second optional fallback in the chain.
type GeminiProvider struct {
	client *genai.Client
	model  string
	logger *zap.Logger
}

// NewGeminiProvider returns nil when no API key is configured.
func NewGeminiProvider(ctx context.Context, apiKey, model string, logger *zap.Logger) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}

	return &GeminiProvider{
		client: client,
		model:  model,
		logger: logger,
	}, nil
}

func (g *GeminiProvider) Name() string {
	return "Gemini"
}

func (g *GeminiProvider) Generate(ctx context.Context, text string) (ProviderResult, error) {
	if g.client == nil {
		return ProviderResult{}, errors.NewGenerationError("gemini client not initialized", g.Name(), nil)
	}

	g.logger.Info("Fallback: generating with Gemini", zap.String("model", g.model))

	temp := float32(constants.GenerationLimits.Temperature)
	config := &genai.GenerateContentConfig{
		Temperature:     &temp,
		MaxOutputTokens: int32(constants.GenerationLimits.MaxTokens),
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, []*genai.Content{
		{Parts: []*genai.Part{{Text: text}}},
	}, config)
	if err != nil {
		g.logger.Error("Gemini generation failed", zap.Error(err))
		return ProviderResult{}, errors.NewGenerationError("Gemini generation failed", g.Name(), err)
	}

	text = extractGeminiText(resp)
	if text == "" {
		return ProviderResult{}, errors.NewGenerationError("empty response from Gemini", g.Name(), nil)
	}

	return ProviderResult{Text: text, Model: g.model}, nil
}

func (g *GeminiProvider) Ping(ctx context.Context) bool {
	if g.client == nil {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	temp := float32(0)
	config := &genai.GenerateContentConfig{
		Temperature:     &temp,
		MaxOutputTokens: 10,
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, []*genai.Content{
		{Parts: []*genai.Part{{Text: prompt.TestPrompt}}},
	}, config)
	if err != nil {
		g.logger.Debug("Gemini ping failed", zap.Error(err))
		return false
	}

	return extractGeminiText(resp) != ""
}

func extractGeminiText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return ""
	}

	var texts []string
	for _, part := range candidate.Content.Parts {
		if part.Text != "" {
			texts = append(texts, part.Text)
		}
	}

	return strings.Join(texts, "")
}
