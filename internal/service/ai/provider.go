// Package ai holds the chat-completion providers used for roast generation.
// DeepSeek is the primary; OpenAI and Gemini are optional fallbacks tried in
// order when the primary fails.
package ai

import "context"

type ChatProvider interface {
	Name() string
	Generate(ctx context.Context, prompt string) (ProviderResult, error)
	Ping(ctx context.Context) bool
}

type ProviderResult struct {
	Text  string
	Model string
}
