// Package search wires prompt extraction, retrieval, ranking and enrichment
// into the single prompt-to-movies operation the API exposes.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"findingmovie/searchservice/internal/domain"
	"findingmovie/searchservice/internal/metrics"
	"findingmovie/searchservice/internal/retrieval"
)

var (
	ErrInvalidPrompt   = errors.New("invalid prompt")
	ErrInvalidCastName = errors.New("invalid cast name")
	ErrCastNotFound    = errors.New("cast member not found")
)

const (
	// scoringLimit caps the ranked list; enrichLimit caps the detail lookups.
	scoringLimit = 12
	enrichLimit  = 8

	defaultTimeout       = 25 * time.Second
	defaultSweepInterval = 10 * time.Minute
	castSuggestionLimit  = 3
	maxCastNameRunes     = 100
	castMoviesLimit      = 20
)

var tracer = otel.Tracer("findingmovie/searchservice/search")

type Extractor interface {
	Extract(prompt string) domain.ExtractedQuery
}

type Retriever interface {
	Retrieve(ctx context.Context, query domain.ExtractedQuery) retrieval.Result
}

type Ranker interface {
	Rank(candidates []domain.CandidateMovie, query domain.ExtractedQuery, history *domain.UserHistory, limit int) []domain.ScoredMovie
}

type Enricher interface {
	Enrich(ctx context.Context, movies []domain.ScoredMovie) []domain.MovieResult
}

type CastDirectory interface {
	SuggestActors(name string, limit int) []string
}

// PersonCatalog resolves a person and lists the movies they appear in.
type PersonCatalog interface {
	SearchPerson(ctx context.Context, name string) *domain.Person
	Discover(ctx context.Context, filter domain.DiscoverFilter) []domain.CandidateMovie
}

// Sweeper is a cache that needs periodic eviction.
type Sweeper interface {
	Run(ctx context.Context, interval time.Duration, logger *slog.Logger)
}

type Service struct {
	extractor     Extractor
	retriever     Retriever
	ranker        Ranker
	enricher      Enricher
	cast          CastDirectory
	people        PersonCatalog
	logger        *slog.Logger
	timeout       time.Duration
	sweeper       Sweeper
	sweepInterval time.Duration
	backgroundRun atomic.Bool
}

type ServiceOption func(*Service)

func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTimeout bounds a whole search. Zero or negative disables the bound.
func WithTimeout(timeout time.Duration) ServiceOption {
	return func(s *Service) {
		s.timeout = timeout
	}
}

// WithPersonCatalog enables MoviesByCast.
func WithPersonCatalog(catalog PersonCatalog) ServiceOption {
	return func(s *Service) {
		s.people = catalog
	}
}

func WithCacheSweeper(sweeper Sweeper, interval time.Duration) ServiceOption {
	return func(s *Service) {
		s.sweeper = sweeper
		if interval > 0 {
			s.sweepInterval = interval
		}
	}
}

func NewService(extractor Extractor, retriever Retriever, ranker Ranker, enricher Enricher, cast CastDirectory, opts ...ServiceOption) *Service {
	svc := &Service{
		extractor:     extractor,
		retriever:     retriever,
		ranker:        ranker,
		enricher:      enricher,
		cast:          cast,
		logger:        slog.Default(),
		timeout:       defaultTimeout,
		sweepInterval: defaultSweepInterval,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// StartBackground launches the cache sweeper once; it stops with ctx.
func (s *Service) StartBackground(ctx context.Context) {
	if s.sweeper == nil {
		return
	}
	if s.backgroundRun.CompareAndSwap(false, true) {
		go s.sweeper.Run(ctx, s.sweepInterval, s.logger)
	}
}

// Search runs the full pipeline. The only error is ErrInvalidPrompt; upstream
// trouble shows up as fewer or unenriched movies.
func (s *Service) Search(ctx context.Context, request domain.SearchRequest) (domain.SearchResponse, error) {
	startedAt := time.Now()
	request.Prompt = strings.TrimSpace(request.Prompt)
	if err := validateRequest(request); err != nil {
		return domain.SearchResponse{}, err
	}

	ctx, span := tracer.Start(ctx, "search.Search")
	defer span.End()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	query := s.extract(ctx, request.Prompt)

	retrieveCtx, retrieveSpan := tracer.Start(ctx, "search.retrieve")
	candidates := s.retriever.Retrieve(retrieveCtx, query)
	retrieveSpan.SetAttributes(
		attribute.String("search.strategy", candidates.Strategy),
		attribute.Int("search.candidates", len(candidates.Movies)),
	)
	retrieveSpan.End()

	_, rankSpan := tracer.Start(ctx, "search.rank")
	ranked := s.ranker.Rank(candidates.Movies, query, historyFrom(request), scoringLimit)
	if len(ranked) > enrichLimit {
		ranked = ranked[:enrichLimit]
	}
	rankSpan.End()

	enrichCtx, enrichSpan := tracer.Start(ctx, "search.enrich")
	movies := s.enricher.Enrich(enrichCtx, ranked)
	enrichSpan.End()
	if movies == nil {
		movies = []domain.MovieResult{}
	}

	elapsed := time.Since(startedAt)
	metrics.SearchDuration.Observe(elapsed.Seconds())
	span.SetAttributes(
		attribute.String("search.strategy", candidates.Strategy),
		attribute.Int("search.results", len(movies)),
	)
	if err := ctx.Err(); err != nil {
		s.logger.Warn("search finished after deadline",
			slog.String("prompt", truncate(request.Prompt, 80)),
			slog.String("error", err.Error()),
		)
	}
	s.logger.Info("search completed",
		slog.String("prompt", truncate(request.Prompt, 80)),
		slog.String("strategy", candidates.Strategy),
		slog.Int("candidates", len(candidates.Movies)),
		slog.Int("results", len(movies)),
		slog.Duration("elapsed", elapsed),
	)

	return domain.SearchResponse{
		Prompt:    request.Prompt,
		Query:     query,
		Strategy:  candidates.Strategy,
		Movies:    movies,
		ElapsedMS: elapsed.Milliseconds(),
	}, nil
}

// Analyze only extracts the structured query from a prompt.
func (s *Service) Analyze(ctx context.Context, prompt string) (domain.ExtractedQuery, error) {
	request := domain.SearchRequest{Prompt: strings.TrimSpace(prompt)}
	if err := validateRequest(request); err != nil {
		return domain.ExtractedQuery{}, err
	}
	return s.extract(ctx, request.Prompt), nil
}

// SuggestCast lists known actor names containing name.
func (s *Service) SuggestCast(name string) []string {
	if s.cast == nil {
		return []string{}
	}
	return s.cast.SuggestActors(name, castSuggestionLimit)
}

// MoviesByCast resolves name to the best matching person and lists their
// most popular movies. ErrCastNotFound covers both an unknown name and an
// unreachable catalog.
func (s *Service) MoviesByCast(ctx context.Context, name string) (domain.CastMoviesResponse, error) {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return domain.CastMoviesResponse{}, fmt.Errorf("%w: castName is required", ErrInvalidCastName)
	case utf8.RuneCountInString(name) > maxCastNameRunes:
		return domain.CastMoviesResponse{}, fmt.Errorf("%w: castName must be at most %d characters", ErrInvalidCastName, maxCastNameRunes)
	}

	ctx, span := tracer.Start(ctx, "search.MoviesByCast")
	defer span.End()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	if s.people == nil {
		return domain.CastMoviesResponse{}, fmt.Errorf("%w: %s", ErrCastNotFound, name)
	}
	person := s.people.SearchPerson(ctx, name)
	if person == nil {
		return domain.CastMoviesResponse{}, fmt.Errorf("%w: %s", ErrCastNotFound, name)
	}

	movies := s.people.Discover(ctx, domain.DiscoverFilter{CastIDs: []int{person.ID}})
	if len(movies) > castMoviesLimit {
		movies = movies[:castMoviesLimit]
	}
	if movies == nil {
		movies = []domain.CandidateMovie{}
	}
	span.SetAttributes(
		attribute.Int("cast.person_id", person.ID),
		attribute.Int("cast.movies", len(movies)),
	)
	s.logger.Info("cast movies listed",
		slog.String("castName", truncate(name, 80)),
		slog.Int("personId", person.ID),
		slog.Int("movies", len(movies)),
	)
	return domain.CastMoviesResponse{CastName: name, Person: *person, Movies: movies}, nil
}

func (s *Service) extract(ctx context.Context, prompt string) domain.ExtractedQuery {
	_, span := tracer.Start(ctx, "search.extract")
	defer span.End()
	query := s.extractor.Extract(prompt)
	span.SetAttributes(
		attribute.Bool("query.has_title", query.MovieName != ""),
		attribute.Int("query.actors", len(query.ActorNames)),
		attribute.Int("query.genres", len(query.Genres)),
		attribute.Int("query.tags", len(query.Tags)),
	)
	return query
}

func historyFrom(request domain.SearchRequest) *domain.UserHistory {
	if len(request.PreferredGenres) == 0 {
		return nil
	}
	genres := make([]string, 0, len(request.PreferredGenres))
	for _, genre := range request.PreferredGenres {
		if genre = strings.ToLower(strings.TrimSpace(genre)); genre != "" {
			genres = append(genres, genre)
		}
	}
	if len(genres) == 0 {
		return nil
	}
	return &domain.UserHistory{PreferredGenres: genres}
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func validateRequest(request domain.SearchRequest) error {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	err := validate.Struct(request)
	if err == nil {
		return nil
	}
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) || len(fieldErrors) == 0 {
		return fmt.Errorf("%w: %s", ErrInvalidPrompt, err.Error())
	}
	fe := fieldErrors[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%w: %s is required", ErrInvalidPrompt, field)
	case "max":
		return fmt.Errorf("%w: %s must be at most %s", ErrInvalidPrompt, field, fe.Param())
	default:
		return fmt.Errorf("%w: %s failed %s", ErrInvalidPrompt, field, fe.Tag())
	}
}

func truncate(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit]) + "..."
}
