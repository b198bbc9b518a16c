// Package httpserver exposes the roast pipeline over HTTP. Status codes are
// real (400 validation, 502 upstream fetch, 404 lookup miss); the success
// flag in the body stays authoritative for generation failures, where the
// response still carries a usable canned roast.
package httpserver

import (
	"bufio"
	"context"
	"encoding/json"
	goerrors "errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/sourcegraph/conc/pool"
	"github.com/suanmei/xhs-roast-go/internal/config"
	"github.com/suanmei/xhs-roast-go/internal/domain"
	"github.com/suanmei/xhs-roast-go/internal/prompt"
	"github.com/suanmei/xhs-roast-go/internal/render"
	"github.com/suanmei/xhs-roast-go/internal/service"
	"github.com/suanmei/xhs-roast-go/internal/service/ai"
	"github.com/suanmei/xhs-roast-go/internal/service/cache"
	apperrors "github.com/suanmei/xhs-roast-go/pkg/errors"
	"go.uber.org/zap"
)

type Server struct {
	cfg        *config.Config
	analyzer   *service.AnalyzeService
	repo       *service.RoastRepository
	renderer   *render.Renderer
	hub        *LiveHub
	providers  []ai.ChatProvider
	cache      *cache.CacheService
	logger     *zap.Logger
	httpServer *http.Server
}

func NewServer(
	cfg *config.Config,
	analyzer *service.AnalyzeService,
	repo *service.RoastRepository,
	renderer *render.Renderer,
	hub *LiveHub,
	providers []ai.ChatProvider,
	cacheSvc *cache.CacheService,
	logger *zap.Logger,
) *Server {
	s := &Server{
		cfg:       cfg,
		analyzer:  analyzer,
		repo:      repo,
		renderer:  renderer,
		hub:       hub,
		providers: providers,
		cache:     cacheSvc,
		logger:    logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/analyze", s.handleAnalyze)
	mux.HandleFunc("POST /api/fetch", s.handleFetch)
	mux.HandleFunc("POST /api/generate", s.handleGenerate)
	mux.HandleFunc("GET /api/roasts", s.handleFeed)
	mux.HandleFunc("GET /api/roasts/{shareId}", s.handleShareLookup)
	mux.HandleFunc("GET /api/bloggers/{bloggerId}/roasts", s.handleBloggerHistory)
	mux.HandleFunc("GET /api/test", s.handleDiagnostics)
	mux.HandleFunc("GET /api/feed/live", s.handleLiveFeed)
	mux.HandleFunc("GET /share/{shareId}", s.handleSharePage)
	mux.HandleFunc("GET /health", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:     s.withLogging(withCORS(mux)),
		ReadTimeout: 15 * time.Second,
		// Generation can spend most of a minute upstream.
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler exposes the configured handler chain, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins listening. Blocks until shutdown or listen error.
func (s *Server) Start() error {
	s.logger.Info("HTTP server starting", zap.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()
	return s.httpServer.Shutdown(ctx)
}

type analyzeRequest struct {
	URL string `json:"url"`
}

type generateRequest struct {
	HTML    string              `json:"html"`
	Blogger *domain.BloggerInfo `json:"blogger"`
}

type apiResponse struct {
	Success     bool                `json:"success"`
	Roast       string              `json:"roast,omitempty"`
	HTML        string              `json:"html,omitempty"`
	Blogger     *domain.BloggerInfo `json:"blogger,omitempty"`
	ShareID     string              `json:"shareId,omitempty"`
	Error       string              `json:"error,omitempty"`
	ErrorDetail string              `json:"errorDetail,omitempty"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, apiResponse{Success: false, Error: "请求格式不正确"})
		return
	}

	result, err := s.analyzer.Analyze(r.Context(), req.URL)
	if err != nil {
		s.writePipelineError(w, err)
		return
	}

	if result.Fallback {
		writeJSON(w, http.StatusOK, apiResponse{
			Success:     false,
			Error:       "多次尝试生成吐槽均失败",
			ErrorDetail: errDetail(result.Err),
			Blogger:     &result.Blogger,
			Roast:       result.Roast,
		})
		return
	}

	writeJSON(w, http.StatusOK, apiResponse{
		Success: true,
		Blogger: &result.Blogger,
		Roast:   result.Roast,
		ShareID: result.ShareID,
	})
}

func (s *Server) handleFetch(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, apiResponse{Success: false, Error: "请求格式不正确"})
		return
	}

	body, blogger, err := s.analyzer.FetchOnly(r.Context(), req.URL)
	if err != nil {
		s.writePipelineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, apiResponse{
		Success: true,
		HTML:    body,
		Blogger: &blogger,
	})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, apiResponse{Success: false, Error: "请求格式不正确"})
		return
	}

	roast, err := s.analyzer.GenerateOnly(r.Context(), req.HTML)
	if err != nil {
		// Stage-2 clients still get usable text plus the blogger info they
		// sent along.
		writeJSON(w, http.StatusOK, apiResponse{
			Success:     false,
			Error:       "生成吐槽失败",
			ErrorDetail: errDetail(err),
			Roast:       prompt.FallbackGenerateStage,
			Blogger:     req.Blogger,
		})
		return
	}

	writeJSON(w, http.StatusOK, apiResponse{
		Success: true,
		Roast:   roast,
		Blogger: req.Blogger,
	})
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	page, err := s.repo.RecentFeed(r.Context(), limit, r.URL.Query().Get("cursor"))
	if err != nil {
		var validation *apperrors.ValidationError
		if goerrors.As(err, &validation) {
			writeError(w, http.StatusBadRequest, validation.Message)
			return
		}
		s.logger.Error("Feed query failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load feed")
		return
	}

	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleShareLookup(w http.ResponseWriter, r *http.Request) {
	record, err := s.repo.GetByShareID(r.Context(), r.PathValue("shareId"))
	if err != nil {
		s.logger.Error("Share lookup failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load roast")
		return
	}
	if record == nil {
		writeError(w, http.StatusNotFound, "roast not found")
		return
	}

	writeJSON(w, http.StatusOK, record)
}

func (s *Server) handleBloggerHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	records, err := s.repo.BloggerHistory(r.Context(), r.PathValue("bloggerId"), limit)
	if err != nil {
		s.logger.Error("Blogger history query failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load history")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"roasts": records})
}

func (s *Server) handleSharePage(w http.ResponseWriter, r *http.Request) {
	record, err := s.repo.GetByShareID(r.Context(), r.PathValue("shareId"))
	if err != nil {
		s.logger.Error("Share lookup failed", zap.Error(err))
		http.Error(w, "failed to load roast", http.StatusInternalServerError)
		return
	}
	if record == nil {
		http.Error(w, "roast not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, s.renderer.SharePage(record.Blogger.Nickname, s.renderer.RoastHTML(record.Roast)))
}

func (s *Server) handleLiveFeed(w http.ResponseWriter, r *http.Request) {
	s.hub.ServeWS(w, r)
}

// handleDiagnostics reports credential presence and pings every provider and
// backing service concurrently.
func (s *Server) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	type probe struct {
		Name string `json:"name"`
		OK   bool   `json:"ok"`
	}

	probes := make([]probe, len(s.providers)+2)
	p := pool.New().WithMaxGoroutines(4)

	for i, provider := range s.providers {
		i, provider := i, provider
		p.Go(func() {
			probes[i] = probe{Name: provider.Name(), OK: provider.Ping(ctx)}
		})
	}
	p.Go(func() {
		probes[len(s.providers)] = probe{Name: "redis", OK: s.cache.Ping(ctx)}
	})
	p.Go(func() {
		probes[len(s.providers)+1] = probe{Name: "postgres", OK: s.repo.Ping(ctx) == nil}
	})
	p.Wait()

	writeJSON(w, http.StatusOK, map[string]any{
		"env": map[string]any{
			"hasApiKey":    s.cfg.DeepSeek.APIKey != "",
			"apiKeyPrefix": keyPrefix(s.cfg.DeepSeek.APIKey),
			"model":        s.cfg.DeepSeek.Model,
		},
		"probes":    probes,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) writePipelineError(w http.ResponseWriter, err error) {
	var validation *apperrors.ValidationError
	if goerrors.As(err, &validation) {
		writeJSON(w, http.StatusBadRequest, apiResponse{Success: false, Error: validation.Message})
		return
	}

	var fetch *apperrors.FetchError
	if goerrors.As(err, &fetch) {
		writeJSON(w, http.StatusBadGateway, apiResponse{
			Success:     false,
			Error:       fetch.Message,
			ErrorDetail: errDetail(fetch.Cause),
		})
		return
	}

	// Catch-all: the body still carries canned roast text so the client has
	// something to render.
	s.logger.Error("Unexpected pipeline error", zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, apiResponse{
		Success:     false,
		Error:       "处理请求过程中发生未知错误",
		ErrorDetail: errDetail(err),
		Roast:       prompt.FallbackSystemError(errDetail(err)),
	})
}

func errDetail(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func keyPrefix(key string) string {
	if key == "" {
		return "undefined"
	}
	if len(key) <= 5 {
		return key + "..."
	}
	return key[:5] + "..."
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		s.logger.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", wrapped.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Hijack lets the WebSocket upgrade pass through the logging wrapper.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return hj.Hijack()
}
