package httpserver

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/suanmei/xhs-roast-go/internal/config"
	"github.com/suanmei/xhs-roast-go/internal/prompt"
	"github.com/suanmei/xhs-roast-go/internal/render"
	"github.com/suanmei/xhs-roast-go/internal/service"
	"go.uber.org/zap"
)

type stubFetcher struct {
	body  string
	err   error
	calls int
}

func (f *stubFetcher) Fetch(ctx context.Context, url string) (string, error) {
	f.calls++
	return f.body, f.err
}

type stubGenerator struct {
	roast string
	err   error
}

func (g *stubGenerator) Generate(ctx context.Context, content string) (string, error) {
	return g.roast, g.err
}

func newTestServer(fetcher *stubFetcher, generator *stubGenerator) *Server {
	cfg := &config.Config{}
	cfg.Server.Port = 0
	cfg.DeepSeek.Model = "deepseek-reasoner"

	analyzer := service.NewAnalyzeService(fetcher, generator, nil, nil, zap.NewNop())
	return NewServer(cfg, analyzer, nil, render.NewRenderer(), NewLiveHub(zap.NewNop()), nil, nil, zap.NewNop())
}

func postJSON(t *testing.T, handler http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) apiResponse {
	t.Helper()
	var resp apiResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
	return resp
}

func TestAnalyzeEndpointSuccess(t *testing.T) {
	s := newTestServer(
		&stubFetcher{body: "<title>花叔</title>内容"},
		&stubGenerator{roast: "【吐槽】**精彩**的主页"},
	)

	rec := postJSON(t, s.Handler(), "/api/analyze",
		`{"url":"https://www.xiaohongshu.com/user/profile/abc"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %q", rec.Code, rec.Body.String())
	}
	resp := decodeResponse(t, rec)
	if !resp.Success {
		t.Errorf("success = false: %q", rec.Body.String())
	}
	if resp.Roast != "【吐槽】**精彩**的主页" {
		t.Errorf("roast = %q", resp.Roast)
	}
	if resp.Blogger == nil || resp.Blogger.Nickname != "花叔" {
		t.Errorf("blogger = %+v", resp.Blogger)
	}
}

func TestAnalyzeEndpointRejectsForeignDomain(t *testing.T) {
	fetcher := &stubFetcher{body: "irrelevant"}
	s := newTestServer(fetcher, &stubGenerator{roast: "x"})

	rec := postJSON(t, s.Handler(), "/api/analyze", `{"url":"https://example.com/user/profile/abc"}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if resp := decodeResponse(t, rec); resp.Success {
		t.Error("success = true on validation failure")
	}
	if fetcher.calls != 0 {
		t.Errorf("fetcher called %d times before validation", fetcher.calls)
	}
}

func TestAnalyzeEndpointMalformedBody(t *testing.T) {
	s := newTestServer(&stubFetcher{}, &stubGenerator{roast: "x"})

	rec := postJSON(t, s.Handler(), "/api/analyze", `{not json`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestAnalyzeEndpointGenerationFallback(t *testing.T) {
	s := newTestServer(
		&stubFetcher{body: "内容"},
		&stubGenerator{err: stderrors.New("provider down")},
	)
	s.analyzer.SetRetryPolicy(1, 0)

	rec := postJSON(t, s.Handler(), "/api/analyze",
		`{"url":"https://www.xiaohongshu.com/user/profile/abc"}`)

	// HTTP 200 with success=false: the body still carries usable canned text.
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	resp := decodeResponse(t, rec)
	if resp.Success {
		t.Error("success = true on generation failure")
	}
	if resp.Roast != prompt.FallbackRoast {
		t.Errorf("roast = %q, want canned fallback", resp.Roast)
	}
	if resp.ErrorDetail == "" {
		t.Error("errorDetail empty")
	}
}

func TestAnalyzeEndpointUnexpectedError(t *testing.T) {
	// An untyped failure maps to 500, but still with canned roast text.
	s := newTestServer(&stubFetcher{err: stderrors.New("boom")}, &stubGenerator{roast: "x"})

	rec := postJSON(t, s.Handler(), "/api/analyze",
		`{"url":"https://www.xiaohongshu.com/user/profile/abc"}`)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	resp := decodeResponse(t, rec)
	if resp.Success {
		t.Error("success = true")
	}
	if !strings.HasPrefix(resp.Roast, prompt.FallbackMarker) {
		t.Errorf("roast = %q, want canned system-error text", resp.Roast)
	}
	if !strings.Contains(resp.ErrorDetail, "boom") {
		t.Errorf("errorDetail = %q", resp.ErrorDetail)
	}
}

func TestFetchEndpoint(t *testing.T) {
	s := newTestServer(&stubFetcher{body: "<title>美食家老王</title>正文"}, &stubGenerator{roast: "x"})

	rec := postJSON(t, s.Handler(), "/api/fetch",
		`{"url":"https://www.xiaohongshu.com/user/profile/abc"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	resp := decodeResponse(t, rec)
	if !resp.Success || resp.HTML == "" {
		t.Errorf("resp = %+v", resp)
	}
	if resp.Blogger == nil || resp.Blogger.Nickname != "美食家老王" {
		t.Errorf("blogger = %+v", resp.Blogger)
	}
}

func TestGenerateEndpointFallbackText(t *testing.T) {
	s := newTestServer(&stubFetcher{}, &stubGenerator{err: stderrors.New("down")})
	s.analyzer.SetRetryPolicy(1, 0)

	rec := postJSON(t, s.Handler(), "/api/generate",
		`{"html":"正文","blogger":{"nickname":"花叔","avatar":"/a.png"}}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	resp := decodeResponse(t, rec)
	if resp.Success {
		t.Error("success = true on generation failure")
	}
	if resp.Roast != prompt.FallbackGenerateStage {
		t.Errorf("roast = %q, want stage-2 fallback", resp.Roast)
	}
	if resp.Blogger == nil || resp.Blogger.Nickname != "花叔" {
		t.Errorf("blogger not echoed: %+v", resp.Blogger)
	}
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(&stubFetcher{}, &stubGenerator{roast: "x"})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(&stubFetcher{}, &stubGenerator{roast: "x"})

	req := httptest.NewRequest(http.MethodOptions, "/api/analyze", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if origin := rec.Header().Get("Access-Control-Allow-Origin"); origin != "*" {
		t.Errorf("allow-origin = %q", origin)
	}
}

func TestFeedEndpointRejectsBadLimit(t *testing.T) {
	s := newTestServer(&stubFetcher{}, &stubGenerator{roast: "x"})

	for _, limit := range []string{"abc", "0", "-3"} {
		req := httptest.NewRequest(http.MethodGet, "/api/roasts?limit="+limit, nil)
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("limit %q: status = %d, want 400", limit, rec.Code)
		}
	}
}

func TestKeyPrefix(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"", "undefined"},
		{"sk", "sk..."},
		{"sk-1234567890", "sk-12..."},
	}

	for _, tt := range tests {
		if got := keyPrefix(tt.key); got != tt.want {
			t.Errorf("keyPrefix(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

