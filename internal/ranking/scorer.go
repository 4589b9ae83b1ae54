// Package ranking scores candidates against an extracted query with a fixed
// weighted factor model and orders them by total score.
package ranking

import (
	"math"
	"sort"
	"strings"
	"time"

	"findingmovie/searchservice/internal/domain"
	"findingmovie/searchservice/internal/semantic"
	"findingmovie/searchservice/internal/textmatch"
)

// Factor weights. They sum past 1 and are not renormalized when factors are
// inactive; the total is clamped instead.
const (
	WeightTitle      = 0.35
	WeightActor      = 0.25
	WeightGenre      = 0.20
	WeightTag        = 0.15
	WeightSemantic   = 0.15
	WeightContextual = 0.10
	WeightYear       = 0.05
)

// actorTolerance is the normalized edit distance under which a credited name
// still counts as the requested actor.
const actorTolerance = 0.34

type Scorer struct {
	matcher *semantic.Matcher
	now     func() time.Time
}

type Option func(*Scorer)

// WithClock fixes the reference time for the recency boost.
func WithClock(now func() time.Time) Option {
	return func(s *Scorer) {
		if now != nil {
			s.now = now
		}
	}
}

// NewScorer builds a scorer. A nil matcher disables the semantic factor.
func NewScorer(matcher *semantic.Matcher, options ...Option) *Scorer {
	s := &Scorer{matcher: matcher, now: time.Now}
	for _, option := range options {
		if option != nil {
			option(s)
		}
	}
	return s
}

// Rank scores every candidate, sorts by total score (ties keep input order)
// and keeps the first limit. A non-positive limit keeps everything.
func (s *Scorer) Rank(candidates []domain.CandidateMovie, query domain.ExtractedQuery, history *domain.UserHistory, limit int) []domain.ScoredMovie {
	queryRep := s.QueryRepresentation(query)
	scored := make([]domain.ScoredMovie, 0, len(candidates))
	for _, candidate := range candidates {
		scored = append(scored, s.Score(candidate, query, queryRep, history))
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].TotalScore > scored[j].TotalScore
	})
	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}

// QueryRepresentation embeds the query when it carries a movie name or tags.
func (s *Scorer) QueryRepresentation(query domain.ExtractedQuery) semantic.Representation {
	if s.matcher == nil || !query.HasSemanticText() {
		return semantic.Representation{}
	}
	return s.matcher.Embed(semantic.QueryText(query))
}

// Score evaluates the factors the query activates. contextual is always
// active; the others only when the matching query field is present.
func (s *Scorer) Score(movie domain.CandidateMovie, query domain.ExtractedQuery, queryRep semantic.Representation, history *domain.UserHistory) domain.ScoredMovie {
	factors := make(map[string]float64, 7)
	total := 0.0
	add := func(name string, weight, value float64) {
		factors[name] = value
		total += weight * value
	}

	if name := strings.TrimSpace(query.MovieName); name != "" {
		add(domain.FactorTitle, WeightTitle, TitleMatch(movie.Title, name))
	}
	if len(query.ActorNames) > 0 {
		add(domain.FactorActor, WeightActor, ActorMatch(movie.Cast, query.ActorNames))
	}
	if len(query.Genres) > 0 {
		add(domain.FactorGenre, WeightGenre, GenreMatch(movie.Genres, query.Genres))
	}
	if len(query.Tags) > 0 {
		add(domain.FactorTag, WeightTag, TagMatch(movie, query.Tags))
	}
	if s.matcher != nil && query.HasSemanticText() {
		add(domain.FactorSemantic, WeightSemantic, semantic.Similarity(queryRep, s.matcher.Embed(semantic.MovieText(movie))))
	}
	add(domain.FactorContextual, WeightContextual, s.Contextual(movie, history))
	if span, ok := query.YearRange(); ok {
		add(domain.FactorYear, WeightYear, YearMatch(movie.ReleaseYear(), span))
	}

	return domain.ScoredMovie{
		CandidateMovie: movie,
		Factors:        factors,
		TotalScore:     clamp01(total),
	}
}

// TitleMatch is 1 for an exact match, 0.8 when either contains the other,
// otherwise the share of title words found in the requested name.
func TitleMatch(title, requested string) float64 {
	title, requested = textmatch.Fold(title), textmatch.Fold(requested)
	if title == "" || requested == "" {
		return 0
	}
	if title == requested {
		return 1
	}
	if strings.Contains(title, requested) || strings.Contains(requested, title) {
		return 0.8
	}
	titleWords := strings.Fields(title)
	requestedWords := strings.Fields(requested)
	wanted := make(map[string]struct{}, len(requestedWords))
	for _, word := range requestedWords {
		wanted[word] = struct{}{}
	}
	common := 0
	for _, word := range titleWords {
		if _, ok := wanted[word]; ok {
			common++
		}
	}
	if common == 0 {
		return 0
	}
	return float64(common) / float64(max(len(titleWords), len(requestedWords)))
}

// ActorMatch averages, over the requested actors, max(0.5, 1 - position/10)
// for the first credit matching each actor, or 0 when uncredited.
func ActorMatch(cast []domain.CastMember, actors []string) float64 {
	if len(actors) == 0 {
		return 0
	}
	credited := make([]string, len(cast))
	for i, member := range cast {
		credited[i] = textmatch.Fold(member.Name)
	}
	sum := 0.0
	for _, actor := range actors {
		wanted := textmatch.Fold(actor)
		if wanted == "" {
			continue
		}
		for position, name := range credited {
			if sameActor(name, wanted) {
				sum += math.Max(0.5, 1-float64(position)/10)
				break
			}
		}
	}
	return sum / float64(len(actors))
}

func sameActor(credited, wanted string) bool {
	if credited == "" {
		return false
	}
	if credited == wanted || strings.Contains(credited, wanted) || strings.Contains(wanted, credited) {
		return true
	}
	return textmatch.NormalizedDistance(credited, wanted) <= actorTolerance
}

// GenreMatch is the share of requested genres the movie carries.
func GenreMatch(movieGenres, requested []string) float64 {
	if len(requested) == 0 {
		return 0
	}
	have := make(map[string]struct{}, len(movieGenres))
	for _, genre := range movieGenres {
		have[strings.ToLower(strings.TrimSpace(genre))] = struct{}{}
	}
	matched := 0
	for _, genre := range requested {
		if _, ok := have[strings.ToLower(strings.TrimSpace(genre))]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(requested))
}

// TagMatch is the share of requested tags that occur anywhere in the movie's
// keywords, overview or genre names.
func TagMatch(movie domain.CandidateMovie, tags []string) float64 {
	if len(tags) == 0 {
		return 0
	}
	parts := make([]string, 0, 1+len(movie.Keywords)+len(movie.Genres))
	parts = append(parts, movie.Keywords...)
	parts = append(parts, movie.Overview)
	parts = append(parts, movie.Genres...)
	text := strings.ToLower(strings.Join(parts, " "))

	matched := 0
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag != "" && strings.Contains(text, tag) {
			matched++
		}
	}
	return float64(matched) / float64(len(tags))
}

// Contextual blends popularity, rating, age and the caller's preferred
// genres into a value capped at 1.
func (s *Scorer) Contextual(movie domain.CandidateMovie, history *domain.UserHistory) float64 {
	score := 0.0
	if movie.Popularity > 0 {
		score += math.Min(movie.Popularity/100, 1) * 0.3
	}
	if movie.VoteAverage > 0 {
		score += math.Min(movie.VoteAverage/10, 1) * 0.3
	}
	if year := movie.ReleaseYear(); year > 0 {
		age := s.now().Year() - year
		if age < 0 {
			age = 0
		}
		if age <= 5 {
			score += (1 - float64(age)/5) * 0.2
		}
		if age >= 20 {
			score += 0.1
		}
	}
	if history != nil && len(history.PreferredGenres) > 0 {
		if overlap := GenreMatch(movie.Genres, history.PreferredGenres); overlap > 0 {
			score += overlap * 0.2
		}
	}
	return math.Min(score, 1)
}

// YearMatch grades how close year is to span: 1.0 inside, then 0.8, 0.6 and
// 0.4 within 2, 5 and 10 years, else 0.2. Undated movies score 0.
func YearMatch(year int, span domain.YearRange) float64 {
	if year <= 0 {
		return 0
	}
	switch d := span.Distance(year); {
	case d == 0:
		return 1
	case d <= 2:
		return 0.8
	case d <= 5:
		return 0.6
	case d <= 10:
		return 0.4
	default:
		return 0.2
	}
}

func clamp01(v float64) float64 {
	switch {
	case v < 0 || math.IsNaN(v):
		return 0
	case v > 1:
		return 1
	}
	return v
}
