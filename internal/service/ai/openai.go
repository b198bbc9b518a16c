package ai

import (
	"context"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/suanmei/xhs-roast-go/internal/constants"
	"github.com/suanmei/xhs-roast-go/internal/prompt"
	"github.com/suanmei/xhs-roast-go/pkg/errors"
	"go.uber.org/zap"
)

// OpenAIProvider is an optional fallback used when DeepSeek is down.
type OpenAIProvider struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// NewOpenAIProvider returns nil when no API key is configured.
func NewOpenAIProvider(apiKey, model string, logger *zap.Logger) *OpenAIProvider {
	if apiKey == "" {
		return nil
	}
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIProvider{
		client: &client,
		model:  model,
		logger: logger,
	}
}

func (o *OpenAIProvider) Name() string {
	return "OpenAI"
}

func (o *OpenAIProvider) Generate(ctx context.Context, text string) (ProviderResult, error) {
	if o.client == nil {
		return ProviderResult{}, errors.NewGenerationError("OpenAI client not initialized", o.Name(), nil)
	}

	o.logger.Info("Fallback: generating with OpenAI", zap.String("model", o.model))

	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(text),
		},
		Temperature:         openai.Float(constants.GenerationLimits.Temperature),
		MaxCompletionTokens: openai.Int(int64(constants.GenerationLimits.MaxTokens)),
	})
	if err != nil {
		o.logger.Error("OpenAI generation failed", zap.Error(err))
		return ProviderResult{}, errors.NewGenerationError("OpenAI generation failed", o.Name(), err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return ProviderResult{}, errors.NewGenerationError("no choices in OpenAI response", o.Name(), nil)
	}

	return ProviderResult{Text: resp.Choices[0].Message.Content, Model: o.model}, nil
}

func (o *OpenAIProvider) Ping(ctx context.Context) bool {
	if o.client == nil {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt.TestPrompt),
		},
		MaxCompletionTokens: openai.Int(10),
	})
	if err != nil {
		o.logger.Debug("OpenAI ping failed", zap.Error(err))
		return false
	}

	return len(resp.Choices) > 0
}
