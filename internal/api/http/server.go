package apihttp

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"findingmovie/searchservice/internal/domain"
	"findingmovie/searchservice/internal/search"
)

type SearchService interface {
	Search(ctx context.Context, request domain.SearchRequest) (domain.SearchResponse, error)
	Analyze(ctx context.Context, prompt string) (domain.ExtractedQuery, error)
	SuggestCast(name string) []string
	MoviesByCast(ctx context.Context, name string) (domain.CastMoviesResponse, error)
}

type Server struct {
	search    SearchService
	logger    *slog.Logger
	rateLimit float64
	burst     int
}

const (
	maxBodyBytes     = 64 << 10
	defaultRateLimit = 20
	defaultBurst     = 40
)

type ServerOption func(*Server)

func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithRateLimit sets the global request budget. Non-positive values keep the defaults.
func WithRateLimit(rps float64, burst int) ServerOption {
	return func(s *Server) {
		if rps > 0 {
			s.rateLimit = rps
		}
		if burst > 0 {
			s.burst = burst
		}
	}
}

func NewServer(searchService SearchService, options ...ServerOption) *Server {
	server := &Server{
		search:    searchService,
		logger:    slog.Default(),
		rateLimit: defaultRateLimit,
		burst:     defaultBurst,
	}
	for _, option := range options {
		if option != nil {
			option(server)
		}
	}
	if server.logger == nil {
		server.logger = slog.Default()
	}
	return server
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/search/analyze", s.handleAnalyze)
	mux.HandleFunc("/search/cast", s.handleCast)
	mux.HandleFunc("/search/by-cast", s.handleMoviesByCast)
	mux.HandleFunc("/search", s.handleSearch)
	traced := otelhttp.NewHandler(mux, "movie-search",
		otelhttp.WithFilter(func(r *http.Request) bool {
			p := r.URL.Path
			return p != "/metrics" && p != "/health"
		}),
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + normalizeRoute(r.URL.Path)
		}),
	)
	return recoveryMiddleware(s.logger, requestIDMiddleware(rateLimitMiddleware(s.rateLimit, s.burst, accessMiddleware(s.logger, traced))))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/search" {
		http.NotFound(w, r)
		return
	}
	if !allowSearchMethod(w, r) {
		return
	}
	if s.search == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "search service is not configured")
		return
	}

	request, err := decodeSearchRequest(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	response, err := s.search.Search(r.Context(), request)
	if err != nil {
		s.logger.Warn("search request failed",
			slog.String("prompt", truncate(request.Prompt, 80)),
			slog.String("requestId", RequestID(r.Context())),
			slog.String("error", err.Error()),
		)
		switch {
		case errors.Is(err, search.ErrInvalidPrompt):
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "internal_error", "search failed")
		}
		return
	}
	if len(response.Movies) == 0 {
		s.logger.Info("search returned no movies",
			slog.String("prompt", truncate(request.Prompt, 80)),
			slog.String("strategy", response.Strategy),
		)
	}

	writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if !allowSearchMethod(w, r) {
		return
	}
	if s.search == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "search service is not configured")
		return
	}

	request, err := decodeSearchRequest(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	query, err := s.search.Analyze(r.Context(), request.Prompt)
	if err != nil {
		if errors.Is(err, search.ErrInvalidPrompt) {
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "analyze failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"prompt": strings.TrimSpace(request.Prompt),
		"query":  query,
	})
}

func (s *Server) handleCast(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.search == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "search service is not configured")
		return
	}
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "name is required")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"name":   name,
		"actors": s.search.SuggestCast(name),
	})
}

func (s *Server) handleMoviesByCast(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.search == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "search service is not configured")
		return
	}
	castName := r.URL.Query().Get("castName")
	response, err := s.search.MoviesByCast(r.Context(), castName)
	if err != nil {
		switch {
		case errors.Is(err, search.ErrInvalidCastName):
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		case errors.Is(err, search.ErrCastNotFound):
			writeError(w, http.StatusNotFound, "not_found", "cast member not found")
		default:
			s.logger.Warn("cast movies request failed",
				slog.String("requestId", RequestID(r.Context())),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "internal_error", "failed to fetch movies")
		}
		return
	}
	writeJSON(w, http.StatusOK, response)
}

func allowSearchMethod(w http.ResponseWriter, r *http.Request) bool {
	if r.Method == http.MethodGet || r.Method == http.MethodPost {
		return true
	}
	w.Header().Set("Allow", "GET, POST")
	w.WriteHeader(http.StatusMethodNotAllowed)
	return false
}

// decodeSearchRequest reads a JSON body on POST and the prompt and
// preferredGenres query parameters on GET.
func decodeSearchRequest(w http.ResponseWriter, r *http.Request) (domain.SearchRequest, error) {
	if r.Method == http.MethodGet {
		query := r.URL.Query()
		return domain.SearchRequest{
			Prompt:          query.Get("prompt"),
			PreferredGenres: parseCSV(query.Get("preferredGenres")),
		}, nil
	}

	var request domain.SearchRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := decoder.Decode(&request); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return request, errors.New("request body too large")
		case errors.Is(err, io.EOF):
			return request, errors.New("request body is required")
		default:
			return request, errors.New("invalid JSON body")
		}
	}
	return request, nil
}

func parseCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
