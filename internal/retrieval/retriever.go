// Package retrieval turns an extracted query into a deduplicated candidate
// list by trying a fixed sequence of lookup strategies against the metadata
// provider and keeping the first one that finds anything.
package retrieval

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"findingmovie/searchservice/internal/domain"
	"findingmovie/searchservice/internal/intent"
	"findingmovie/searchservice/internal/metrics"
)

const (
	StrategyExactName = "exact_name"
	StrategyActor     = "actor"
	StrategyGenre     = "genre"
	StrategyCombined  = "combined"
	StrategyGeneral   = "general"
	StrategyNone      = "none"
)

const (
	defaultNameLimit     = 5
	defaultLimit         = 8
	defaultPerActorLimit = 8
	defaultConcurrency   = 4
)

// MetadataSource is the subset of the provider the strategies need.
// Implementations degrade to empty lists and nil lookups on failure.
type MetadataSource interface {
	SearchMovies(ctx context.Context, title string) []domain.CandidateMovie
	Discover(ctx context.Context, filter domain.DiscoverFilter) []domain.CandidateMovie
	SearchPerson(ctx context.Context, name string) *domain.Person
	SearchKeyword(ctx context.Context, name string) *domain.Keyword
}

type Result struct {
	Strategy string                  `json:"strategy"`
	Movies   []domain.CandidateMovie `json:"movies"`
}

type Retriever struct {
	source        MetadataSource
	logger        *slog.Logger
	nameLimit     int
	limit         int
	perActorLimit int
	concurrency   int
}

type Option func(*Retriever)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Retriever) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithLimits overrides the default result sizes. Non-positive values keep the default.
func WithLimits(name, general, perActor int) Option {
	return func(r *Retriever) {
		if name > 0 {
			r.nameLimit = name
		}
		if general > 0 {
			r.limit = general
		}
		if perActor > 0 {
			r.perActorLimit = perActor
		}
	}
}

// WithConcurrency bounds the fan-out of lookups inside one strategy.
func WithConcurrency(n int) Option {
	return func(r *Retriever) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

func New(source MetadataSource, options ...Option) *Retriever {
	r := &Retriever{
		source:        source,
		logger:        slog.Default(),
		nameLimit:     defaultNameLimit,
		limit:         defaultLimit,
		perActorLimit: defaultPerActorLimit,
		concurrency:   defaultConcurrency,
	}
	for _, option := range options {
		if option != nil {
			option(r)
		}
	}
	return r
}

// Retrieve runs the strategies in priority order. It never fails: when every
// strategy comes back empty the result has Strategy "none" and no movies.
func (r *Retriever) Retrieve(ctx context.Context, query domain.ExtractedQuery) Result {
	strategies := []struct {
		name string
		run  func(context.Context, domain.ExtractedQuery) []domain.CandidateMovie
	}{
		{StrategyExactName, r.byName},
		{StrategyActor, r.byActors},
		{StrategyGenre, r.byGenres},
		{StrategyCombined, r.combined},
		{StrategyGeneral, r.general},
	}
	for _, strategy := range strategies {
		if ctx.Err() != nil {
			break
		}
		movies := strategy.run(ctx, query)
		if len(movies) == 0 {
			continue
		}
		metrics.StrategySelectedTotal.WithLabelValues(strategy.name).Inc()
		r.logger.Debug("retrieval strategy selected",
			slog.String("strategy", strategy.name),
			slog.Int("movies", len(movies)),
		)
		return Result{Strategy: strategy.name, Movies: movies}
	}
	metrics.StrategySelectedTotal.WithLabelValues(StrategyNone).Inc()
	return Result{Strategy: StrategyNone, Movies: []domain.CandidateMovie{}}
}

func (r *Retriever) limitFor(query domain.ExtractedQuery, fallback int) int {
	if query.ResultCount > 0 {
		return query.ResultCount
	}
	return fallback
}

func (r *Retriever) byName(ctx context.Context, query domain.ExtractedQuery) []domain.CandidateMovie {
	name := strings.TrimSpace(query.MovieName)
	if name == "" {
		return nil
	}
	movies := NewMovieSet(r.source.SearchMovies(ctx, name)...).Movies()
	sortByPopularity(movies)
	return truncate(movies, r.limitFor(query, r.nameLimit))
}

type actorHits struct {
	person domain.Person
	movies []domain.CandidateMovie
}

func (r *Retriever) byActors(ctx context.Context, query domain.ExtractedQuery) []domain.CandidateMovie {
	if len(query.ActorNames) == 0 {
		return nil
	}

	hits := make([]*actorHits, len(query.ActorNames))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, name := range query.ActorNames {
		g.Go(func() error {
			person := r.source.SearchPerson(gctx, name)
			if person == nil {
				r.logger.Debug("actor not found", slog.String("actor", name))
				return nil
			}
			movies := r.source.Discover(gctx, domain.DiscoverFilter{CastIDs: []int{person.ID}})
			movies = truncate(movies, r.perActorLimit)
			hits[i] = &actorHits{person: *person, movies: annotateCast(movies, *person)}
			return nil
		})
	}
	_ = g.Wait()

	found := make([]actorHits, 0, len(hits))
	for _, hit := range hits {
		if hit != nil {
			found = append(found, *hit)
		}
	}
	if len(found) == 0 {
		return nil
	}

	var movies []domain.CandidateMovie
	if query.Operator == domain.OperatorAnd && len(found) > 1 {
		movies = r.allActors(ctx, found)
	}
	if len(movies) == 0 {
		union := NewMovieSet()
		for _, hit := range found {
			union.Add(hit.movies...)
		}
		movies = union.Movies()
	}

	movies = filterByGenres(movies, query.Genres)
	sortByPopularity(movies)
	return truncate(movies, r.limitFor(query, r.limit))
}

// allActors prefers movies crediting every actor: first a joint cast
// listing, then the overlap of the per-actor listings.
func (r *Retriever) allActors(ctx context.Context, found []actorHits) []domain.CandidateMovie {
	people := make([]domain.Person, 0, len(found))
	ids := make([]int, 0, len(found))
	for _, hit := range found {
		people = append(people, hit.person)
		ids = append(ids, hit.person.ID)
	}
	joint := r.source.Discover(ctx, domain.DiscoverFilter{CastIDs: ids})
	if len(joint) > 0 {
		return NewMovieSet(annotateCast(joint, people...)...).Movies()
	}

	sets := make([]*MovieSet, len(found))
	for i, hit := range found {
		sets[i] = NewMovieSet(hit.movies...)
	}
	merged := NewMovieSet()
	for _, hit := range found {
		merged.Add(hit.movies...)
	}
	var overlap []domain.CandidateMovie
	for _, movie := range merged.Movies() {
		inAll := true
		for _, set := range sets {
			if !set.Contains(movie.ID) {
				inAll = false
				break
			}
		}
		if inAll {
			overlap = append(overlap, movie)
		}
	}
	return overlap
}

func (r *Retriever) byGenres(ctx context.Context, query domain.ExtractedQuery) []domain.CandidateMovie {
	if len(query.Genres) == 0 {
		return nil
	}
	filter := domain.DiscoverFilter{Genres: query.Genres}
	span, hasYear := query.YearRange()
	if hasYear {
		filter.YearFrom, filter.YearTo = span.From, span.To
	}

	movies := NewMovieSet(r.source.Discover(ctx, filter)...).Movies()
	movies = filterByGenres(movies, query.Genres)
	if hasYear {
		movies = filterByYear(movies, span)
	}
	sortByPopularity(movies)
	return truncate(movies, r.limitFor(query, r.limit))
}

// combined merges year, tag and mood lookups, in that order.
func (r *Retriever) combined(ctx context.Context, query domain.ExtractedQuery) []domain.CandidateMovie {
	span, hasYear := query.YearRange()
	profile, hasMood := intent.MoodProfileFor(query.Mood)
	if !hasYear && len(query.Tags) == 0 && !hasMood {
		return nil
	}

	var yearMovies, moodMovies []domain.CandidateMovie
	tagMovies := make([][]domain.CandidateMovie, len(query.Tags))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	if hasYear {
		g.Go(func() error {
			yearMovies = filterByYear(r.source.Discover(gctx, domain.DiscoverFilter{YearFrom: span.From, YearTo: span.To}), span)
			return nil
		})
	}
	for i, tag := range query.Tags {
		g.Go(func() error {
			tagMovies[i] = r.byKeyword(gctx, tag, tag)
			return nil
		})
	}
	if hasMood {
		g.Go(func() error {
			moodMovies = r.byMood(gctx, profile)
			return nil
		})
	}
	_ = g.Wait()

	set := NewMovieSet(yearMovies...)
	for _, movies := range tagMovies {
		set.Add(movies...)
	}
	set.Add(moodMovies...)

	movies := set.Movies()
	sortByPopularity(movies)
	return truncate(movies, r.limitFor(query, r.limit))
}

// byKeyword resolves term to a provider keyword and lists movies carrying it,
// annotating each with label.
func (r *Retriever) byKeyword(ctx context.Context, term, label string) []domain.CandidateMovie {
	keyword := r.source.SearchKeyword(ctx, term)
	if keyword == nil {
		return nil
	}
	movies := r.source.Discover(ctx, domain.DiscoverFilter{KeywordIDs: []int{keyword.ID}})
	return annotateKeyword(movies, label)
}

func (r *Retriever) byMood(ctx context.Context, profile intent.MoodProfile) []domain.CandidateMovie {
	set := NewMovieSet()
	if len(profile.Genres) > 0 {
		set.Add(r.source.Discover(ctx, domain.DiscoverFilter{Genres: profile.Genres})...)
	}
	for _, keyword := range profile.Keywords {
		set.Add(r.byKeyword(ctx, keyword, keyword)...)
	}
	return set.Movies()
}

func (r *Retriever) general(ctx context.Context, query domain.ExtractedQuery) []domain.CandidateMovie {
	movies := NewMovieSet(r.source.Discover(ctx, domain.DiscoverFilter{})...).Movies()
	sortByPopularity(movies)
	return truncate(movies, r.limitFor(query, r.limit))
}
