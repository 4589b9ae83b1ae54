package retrieval

import (
	"sort"
	"strings"

	"findingmovie/searchservice/internal/domain"
)

// MovieSet is an ordered set of candidates keyed by id. Adding a movie that
// is already present keeps its position and merges the cast and keyword
// annotations into the stored copy.
type MovieSet struct {
	order []int
	byID  map[int]*domain.CandidateMovie
}

func NewMovieSet(movies ...domain.CandidateMovie) *MovieSet {
	s := &MovieSet{byID: make(map[int]*domain.CandidateMovie, len(movies))}
	s.Add(movies...)
	return s
}

func (s *MovieSet) Add(movies ...domain.CandidateMovie) {
	for _, movie := range movies {
		if existing, ok := s.byID[movie.ID]; ok {
			existing.Cast = mergeCast(existing.Cast, movie.Cast)
			existing.Keywords = mergeKeywords(existing.Keywords, movie.Keywords)
			continue
		}
		stored := movie
		stored.Cast = append([]domain.CastMember(nil), movie.Cast...)
		stored.Keywords = append([]string(nil), movie.Keywords...)
		s.byID[movie.ID] = &stored
		s.order = append(s.order, movie.ID)
	}
}

func (s *MovieSet) Len() int {
	return len(s.order)
}

func (s *MovieSet) Contains(id int) bool {
	_, ok := s.byID[id]
	return ok
}

// Movies returns the members in insertion order.
func (s *MovieSet) Movies() []domain.CandidateMovie {
	out := make([]domain.CandidateMovie, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.byID[id])
	}
	return out
}

func mergeCast(into, from []domain.CastMember) []domain.CastMember {
	for _, member := range from {
		if !hasCastMember(into, member.ID) {
			into = append(into, member)
		}
	}
	return into
}

func hasCastMember(cast []domain.CastMember, id int) bool {
	for _, member := range cast {
		if member.ID == id {
			return true
		}
	}
	return false
}

func mergeKeywords(into, from []string) []string {
	for _, keyword := range from {
		found := false
		for _, existing := range into {
			if strings.EqualFold(existing, keyword) {
				found = true
				break
			}
		}
		if !found {
			into = append(into, keyword)
		}
	}
	return into
}

// sortByPopularity orders by popularity, highest first, keeping the existing
// order between equals.
func sortByPopularity(movies []domain.CandidateMovie) {
	sort.SliceStable(movies, func(i, j int) bool {
		return movies[i].Popularity > movies[j].Popularity
	})
}

func truncate(movies []domain.CandidateMovie, limit int) []domain.CandidateMovie {
	if limit > 0 && len(movies) > limit {
		return movies[:limit]
	}
	return movies
}

func annotateCast(movies []domain.CandidateMovie, people ...domain.Person) []domain.CandidateMovie {
	out := make([]domain.CandidateMovie, len(movies))
	for i, movie := range movies {
		cast := append([]domain.CastMember(nil), movie.Cast...)
		for _, person := range people {
			if !hasCastMember(cast, person.ID) {
				cast = append(cast, domain.CastMember{
					ID:          person.ID,
					Name:        person.Name,
					ProfilePath: person.ProfilePath,
					Order:       len(cast),
				})
			}
		}
		movie.Cast = cast
		out[i] = movie
	}
	return out
}

func annotateKeyword(movies []domain.CandidateMovie, keyword string) []domain.CandidateMovie {
	out := make([]domain.CandidateMovie, len(movies))
	for i, movie := range movies {
		movie.Keywords = mergeKeywords(append([]string(nil), movie.Keywords...), []string{keyword})
		out[i] = movie
	}
	return out
}

func filterByGenres(movies []domain.CandidateMovie, genres []string) []domain.CandidateMovie {
	if len(genres) == 0 {
		return movies
	}
	out := make([]domain.CandidateMovie, 0, len(movies))
	for _, movie := range movies {
		if sharesGenre(movie.Genres, genres) {
			out = append(out, movie)
		}
	}
	return out
}

func sharesGenre(movieGenres, wanted []string) bool {
	for _, g := range movieGenres {
		for _, w := range wanted {
			if strings.EqualFold(strings.TrimSpace(g), strings.TrimSpace(w)) {
				return true
			}
		}
	}
	return false
}

func filterByYear(movies []domain.CandidateMovie, span domain.YearRange) []domain.CandidateMovie {
	out := make([]domain.CandidateMovie, 0, len(movies))
	for _, movie := range movies {
		if span.Contains(movie.ReleaseYear()) {
			out = append(out, movie)
		}
	}
	return out
}
