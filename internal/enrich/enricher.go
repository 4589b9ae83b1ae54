// Package enrich attaches trailer, genre and cast details to ranked movies.
package enrich

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/semaphore"

	"findingmovie/searchservice/internal/domain"
	"findingmovie/searchservice/internal/metrics"
)

const (
	defaultConcurrency = 4
	defaultCastLimit   = 12
)

// DetailsSource returns nil when details are unavailable for any reason.
type DetailsSource interface {
	MovieDetails(ctx context.Context, id int) *domain.MovieDetails
}

type Enricher struct {
	source      DetailsSource
	logger      *slog.Logger
	concurrency int64
	castLimit   int
}

type Option func(*Enricher)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Enricher) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func WithConcurrency(n int) Option {
	return func(e *Enricher) {
		if n > 0 {
			e.concurrency = int64(n)
		}
	}
}

func New(source DetailsSource, options ...Option) *Enricher {
	e := &Enricher{
		source:      source,
		logger:      slog.Default(),
		concurrency: defaultConcurrency,
		castLimit:   defaultCastLimit,
	}
	for _, option := range options {
		if option != nil {
			option(e)
		}
	}
	return e
}

// Enrich fetches details for every movie with bounded concurrency and
// returns results in input order. A movie whose details cannot be fetched
// keeps its ranked fields and gets empty enrichment.
func (e *Enricher) Enrich(ctx context.Context, movies []domain.ScoredMovie) []domain.MovieResult {
	results := make([]domain.MovieResult, len(movies))
	sem := semaphore.NewWeighted(e.concurrency)
	var wg sync.WaitGroup

	for i, movie := range movies {
		results[i] = bare(movie)
		if err := sem.Acquire(ctx, 1); err != nil {
			e.recordFailure(movie.ID, err.Error())
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)
			details := e.source.MovieDetails(ctx, movie.ID)
			if details == nil {
				e.recordFailure(movie.ID, "details unavailable")
				return
			}
			results[i] = e.apply(movie, details)
		}()
	}
	wg.Wait()
	return results
}

func (e *Enricher) apply(movie domain.ScoredMovie, details *domain.MovieDetails) domain.MovieResult {
	result := bare(movie)
	result.Enriched = true
	if trailer := details.TrailerURL(); trailer != "" {
		result.TrailerURL = &trailer
	}
	for _, genre := range details.Genres {
		if genre = strings.TrimSpace(genre); genre != "" {
			result.GenreNames = append(result.GenreNames, genre)
		}
	}
	for _, member := range details.Cast {
		if len(result.Credits) == e.castLimit {
			break
		}
		result.Credits = append(result.Credits, domain.CastMember{
			ID:          member.ID,
			Name:        member.Name,
			Character:   member.Character,
			ProfilePath: member.ProfilePath,
			Order:       member.Order,
		})
	}
	return result
}

func (e *Enricher) recordFailure(id int, reason string) {
	metrics.EnrichmentFailuresTotal.Inc()
	e.logger.Warn("movie enrichment failed",
		slog.Int("movieId", id),
		slog.String("error", reason),
	)
}

func bare(movie domain.ScoredMovie) domain.MovieResult {
	return domain.MovieResult{
		ScoredMovie: movie,
		GenreNames:  []string{},
		Credits:     []domain.CastMember{},
	}
}
