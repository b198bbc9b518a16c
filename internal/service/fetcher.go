package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/suanmei/xhs-roast-go/internal/constants"
	"github.com/suanmei/xhs-roast-go/internal/service/cache"
	"github.com/suanmei/xhs-roast-go/pkg/errors"
	"go.uber.org/zap"
)

var schemePattern = regexp.MustCompile(`^https?://`)

// ReaderClient fetches a rendered text snapshot of a profile page through a
// "read as text" proxy (r.jina.ai by default). The proxy executes the page's
// scripts server-side and returns plain text, which is the only way to see
// the profile content without a headless browser.
type ReaderClient struct {
	baseURL    string
	httpClient *http.Client
	cache      *cache.CacheService
	logger     *zap.Logger
}

func NewReaderClient(baseURL string, cacheSvc *cache.CacheService, logger *zap.Logger) *ReaderClient {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &ReaderClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: constants.FetchConfig.Timeout,
		},
		cache:  cacheSvc,
		logger: logger,
	}
}

// Fetch returns the proxy's rendered snapshot of url verbatim. No retry at
// this layer.
func (r *ReaderClient) Fetch(ctx context.Context, url string) (string, error) {
	cleanURL := schemePattern.ReplaceAllString(url, "")
	proxyURL := r.baseURL + cleanURL

	cacheKey := "snapshot:" + cleanURL
	var cached string
	if found, _ := r.cache.Get(ctx, cacheKey, &cached); found && cached != "" {
		r.logger.Debug("Snapshot cache hit", zap.String("url", cleanURL))
		return cached, nil
	}

	r.logger.Info("Fetching profile snapshot", zap.String("proxy_url", proxyURL))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, proxyURL, nil)
	if err != nil {
		return "", errors.NewFetchError("无法获取小红书内容，请检查链接是否有效", url, 0, err)
	}
	req.Header.Set("User-Agent", constants.FetchConfig.UserAgent)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", errors.NewFetchError("无法获取小红书内容，请检查链接是否有效", url, 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", errors.NewFetchError(
			fmt.Sprintf("无法获取小红书内容，请检查链接是否有效 (status %d)", resp.StatusCode),
			url, resp.StatusCode, nil)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.NewFetchError("无法获取小红书内容，请检查链接是否有效", url, resp.StatusCode, err)
	}

	text := string(body)
	r.logger.Info("Snapshot fetched", zap.String("url", cleanURL), zap.Int("bytes", len(body)))

	_ = r.cache.Set(ctx, cacheKey, text, constants.CacheTTL.PageSnapshot)

	return text, nil
}
