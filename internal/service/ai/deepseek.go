package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/suanmei/xhs-roast-go/internal/constants"
	"github.com/suanmei/xhs-roast-go/internal/prompt"
	"github.com/suanmei/xhs-roast-go/pkg/errors"
	"go.uber.org/zap"
)

// DeepSeekProvider talks to the DeepSeek chat-completions endpoint over raw
// HTTP. The endpoint is OpenAI-shaped but returns plain text or truncated
// JSON under load, so the response body is always read as text first and
// decoded defensively rather than through an SDK response path.
type DeepSeekProvider struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *zap.Logger
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func NewDeepSeekProvider(apiKey, baseURL, model string, logger *zap.Logger) *DeepSeekProvider {
	return &DeepSeekProvider{
		apiKey:  apiKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		model:   model,
		httpClient: &http.Client{
			Timeout: constants.FetchConfig.Timeout,
		},
		logger: logger,
	}
}

func (d *DeepSeekProvider) Name() string {
	return "DeepSeek"
}

func (d *DeepSeekProvider) Generate(ctx context.Context, text string) (ProviderResult, error) {
	if d.apiKey == "" {
		return ProviderResult{}, errors.NewGenerationError("缺少DeepSeek API密钥", d.Name(), nil)
	}

	body, err := d.post(ctx, chatRequest{
		Model:       d.model,
		Messages:    []chatMessage{{Role: "user", Content: text}},
		Temperature: constants.GenerationLimits.Temperature,
		MaxTokens:   constants.GenerationLimits.MaxTokens,
	})
	if err != nil {
		return ProviderResult{}, err
	}

	text, err = decodeCompletionBody(body)
	if err != nil {
		d.logger.Error("DeepSeek response decode failed",
			zap.Error(err),
			zap.String("body_preview", preview(body, 200)))
		return ProviderResult{}, errors.NewGenerationError("无法解析API响应", d.Name(), err)
	}

	return ProviderResult{Text: text, Model: d.model}, nil
}

func (d *DeepSeekProvider) Ping(ctx context.Context) bool {
	if d.apiKey == "" {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	body, err := d.post(ctx, chatRequest{
		Model:     d.model,
		Messages:  []chatMessage{{Role: "user", Content: prompt.TestPrompt}},
		MaxTokens: 20,
	})
	if err != nil {
		d.logger.Debug("DeepSeek ping failed", zap.Error(err))
		return false
	}

	_, err = decodeCompletionBody(body)
	return err == nil
}

func (d *DeepSeekProvider) post(ctx context.Context, reqBody chatRequest) (string, error) {
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", errors.NewGenerationError("marshal request failed", d.Name(), err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		d.baseURL+"/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return "", errors.NewGenerationError("build request failed", d.Name(), err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+d.apiKey)

	start := time.Now()
	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", errors.NewGenerationError("API请求失败", d.Name(), err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.NewGenerationError("read response failed", d.Name(), err)
	}

	d.logger.Debug("DeepSeek API responded",
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("body_bytes", len(raw)))

	body := string(raw)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", errors.NewGenerationError(
			fmt.Sprintf("API返回错误状态 %d: %s", resp.StatusCode, preview(body, 200)),
			d.Name(), nil)
	}

	return body, nil
}

// decodeCompletionBody recovers the completion text from whatever the vendor
// sent back: well-formed JSON, plain text that is already roast-shaped, or a
// JSON object embedded in surrounding noise.
func decodeCompletionBody(body string) (string, error) {
	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		return "", fmt.Errorf("empty response body")
	}

	var decoded chatResponse
	if err := json.Unmarshal([]byte(trimmed), &decoded); err == nil {
		return validateShape(decoded)
	}

	if strings.Contains(trimmed, "error") || strings.Contains(trimmed, "An error occurred") {
		return "", fmt.Errorf("API returned error text: %s", preview(trimmed, 200))
	}

	// Plain text that already carries the roast markup is accepted as-is.
	if strings.Contains(trimmed, "【") || strings.Contains(trimmed, "**") {
		return trimmed, nil
	}

	if embedded := extractJSONObject(trimmed); embedded != "" {
		if err := json.Unmarshal([]byte(embedded), &decoded); err == nil {
			return validateShape(decoded)
		}
	}

	return "", fmt.Errorf("unparsable response body")
}

func validateShape(decoded chatResponse) (string, error) {
	if len(decoded.Choices) == 0 {
		return "", fmt.Errorf("response missing choices")
	}
	content := decoded.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("response has empty message content")
	}
	return content, nil
}

// extractJSONObject scans for the first balanced top-level JSON object,
// tracking string literals so braces inside values do not break the depth
// count. Returns "" when no balanced object exists.
func extractJSONObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start == -1 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return s[start : i+1]
				}
			}
		}
	}
	return ""
}

func preview(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
