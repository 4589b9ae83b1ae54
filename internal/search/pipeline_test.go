package search

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"findingmovie/searchservice/internal/cache"
	"findingmovie/searchservice/internal/domain"
	"findingmovie/searchservice/internal/enrich"
	"findingmovie/searchservice/internal/intent"
	"findingmovie/searchservice/internal/providers/tmdb"
	"findingmovie/searchservice/internal/ranking"
	"findingmovie/searchservice/internal/retrieval"
	"findingmovie/searchservice/internal/retry"
	"findingmovie/searchservice/internal/roster"
	"findingmovie/searchservice/internal/semantic"
)

const willSmithID = 2888

type catalogMovie struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	Overview    string  `json:"overview"`
	GenreIDs    []int   `json:"genre_ids"`
	Popularity  float64 `json:"popularity"`
	VoteAverage float64 `json:"vote_average"`
	ReleaseDate string  `json:"release_date"`
	cast        []string
}

// Genre ids follow TMDB: 28 action, 35 comedy, 18 drama, 14 fantasy,
// 12 adventure, 878 science fiction, 80 crime, 10749 romance.
var catalog = []catalogMovie{
	{ID: 597, Title: "Titanic", Overview: "A young aristocrat falls in love aboard the ill-fated ship.", GenreIDs: []int{18, 10749}, Popularity: 120, VoteAverage: 7.9, ReleaseDate: "1997-11-18", cast: []string{"Leonardo DiCaprio", "Kate Winslet"}},
	{ID: 44918, Title: "Titanic II", Overview: "A new ship sets sail on the centenary of the sinking.", GenreIDs: []int{28}, Popularity: 8, VoteAverage: 3.1, ReleaseDate: "2010-08-07", cast: []string{"Shane Van Dyke"}},
	{ID: 9737, Title: "Bad Boys", Overview: "Two Miami detectives protect a witness.", GenreIDs: []int{28, 35, 80}, Popularity: 60, VoteAverage: 6.8, ReleaseDate: "1995-04-07", cast: []string{"Martin Lawrence", "Will Smith"}},
	{ID: 607, Title: "Men in Black", Overview: "Agents police alien life on Earth.", GenreIDs: []int{28, 12, 35, 878}, Popularity: 75, VoteAverage: 7.2, ReleaseDate: "1997-07-02", cast: []string{"Tommy Lee Jones", "Will Smith"}},
	{ID: 8960, Title: "Hancock", Overview: "A hard-living superhero is asked to change his image.", GenreIDs: []int{14, 28}, Popularity: 55, VoteAverage: 6.3, ReleaseDate: "2008-07-01", cast: []string{"Will Smith", "Charlize Theron"}},
	{ID: 11321, Title: "Seven Pounds", Overview: "A man sets out to change the lives of seven strangers.", GenreIDs: []int{18}, Popularity: 30, VoteAverage: 7.5, ReleaseDate: "2008-12-18", cast: []string{"Will Smith", "Rosario Dawson"}},
	{ID: 949, Title: "Heat", Overview: "A detective hunts a crew of thieves.", GenreIDs: []int{28, 80, 18}, Popularity: 50, VoteAverage: 7.9, ReleaseDate: "1995-12-15", cast: []string{"Al Pacino", "Robert De Niro"}},
	{ID: 1637, Title: "Speed", Overview: "A bus must stay above fifty miles per hour.", GenreIDs: []int{28, 12, 80}, Popularity: 40, VoteAverage: 7.1, ReleaseDate: "1994-06-09", cast: []string{"Keanu Reeves", "Sandra Bullock"}},
	{ID: 603, Title: "The Matrix", Overview: "A hacker learns the truth about reality.", GenreIDs: []int{28, 878}, Popularity: 90, VoteAverage: 8.2, ReleaseDate: "1999-03-31", cast: []string{"Keanu Reeves", "Laurence Fishburne"}},
	{ID: 76341, Title: "Mad Max: Fury Road", Overview: "A chase across the desert wasteland.", GenreIDs: []int{28, 12, 878}, Popularity: 95, VoteAverage: 7.6, ReleaseDate: "2015-05-13", cast: []string{"Tom Hardy", "Charlize Theron"}},
}

var genreNamesForTest = map[int]string{28: "Action", 35: "Comedy", 18: "Drama", 14: "Fantasy", 12: "Adventure", 878: "Science Fiction", 80: "Crime", 10749: "Romance"}

func catalogByID(id int) (catalogMovie, bool) {
	for _, movie := range catalog {
		if movie.ID == id {
			return movie, true
		}
	}
	return catalogMovie{}, false
}

func catalogWhere(keep func(catalogMovie) bool) []catalogMovie {
	out := []catalogMovie{}
	for _, movie := range catalog {
		if keep(movie) {
			out = append(out, movie)
		}
	}
	return out
}

func hasGenre(movie catalogMovie, id int) bool {
	for _, genre := range movie.GenreIDs {
		if genre == id {
			return true
		}
	}
	return false
}

func credits(movie catalogMovie, name string) bool {
	for _, member := range movie.cast {
		if member == name {
			return true
		}
	}
	return false
}

func writeResults(w http.ResponseWriter, results any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"results": results})
}

// fakeTMDB serves the slice of the TMDB API the pipeline uses. Discover
// ignores date filters on purpose so the year post-filter is exercised.
func fakeTMDB(t *testing.T) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		switch {
		case r.URL.Path == "/search/movie":
			needle := strings.ToLower(query.Get("query"))
			writeResults(w, catalogWhere(func(m catalogMovie) bool {
				return strings.Contains(strings.ToLower(m.Title), needle)
			}))
		case r.URL.Path == "/search/person":
			if strings.EqualFold(query.Get("query"), "will smith") {
				writeResults(w, []map[string]any{{"id": willSmithID, "name": "Will Smith", "popularity": 40}})
				return
			}
			writeResults(w, []any{})
		case r.URL.Path == "/search/keyword":
			writeResults(w, []any{})
		case r.URL.Path == "/discover/movie":
			switch {
			case query.Get("with_cast") == strconv.Itoa(willSmithID):
				writeResults(w, catalogWhere(func(m catalogMovie) bool { return credits(m, "Will Smith") }))
			case query.Get("with_genres") == "28":
				writeResults(w, catalogWhere(func(m catalogMovie) bool { return hasGenre(m, 28) }))
			case query.Get("with_cast") == "" && query.Get("with_genres") == "" && query.Get("with_keywords") == "":
				writeResults(w, catalog[:4])
			default:
				writeResults(w, []any{})
			}
		case strings.HasPrefix(r.URL.Path, "/movie/"):
			id, err := strconv.Atoi(strings.TrimPrefix(r.URL.Path, "/movie/"))
			movie, ok := catalogByID(id)
			if err != nil || !ok {
				http.NotFound(w, r)
				return
			}
			genres := make([]map[string]any, 0, len(movie.GenreIDs))
			for _, gid := range movie.GenreIDs {
				genres = append(genres, map[string]any{"id": gid, "name": genreNamesForTest[gid]})
			}
			cast := make([]map[string]any, 0, len(movie.cast))
			for i, name := range movie.cast {
				cast = append(cast, map[string]any{"id": 100 + i, "name": name, "order": i})
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{
				"id":      movie.ID,
				"genres":  genres,
				"credits": map[string]any{"cast": cast},
				"videos": map[string]any{"results": []map[string]any{
					{"key": "trailer-" + strconv.Itoa(movie.ID), "site": "YouTube", "type": "Trailer"},
				}},
			})
		default:
			t.Errorf("unexpected TMDB path %s", r.URL.Path)
			http.NotFound(w, r)
		}
	})
}

func newPipeline(t *testing.T, handler http.Handler) *Service {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	logger := quietLogger()
	client := tmdb.NewClient(tmdb.Config{
		APIKey:    "test-key",
		BaseURL:   srv.URL,
		Client:    srv.Client(),
		Cache:     cache.NewMemoryStore(),
		RateLimit: -1,
		Retry: retry.Policy{
			MaxAttempts: 3,
			Backoff:     retry.Linear(time.Millisecond),
			Retryable:   retry.IsConnectionReset,
		},
		Logger: logger,
	})
	matcher, err := semantic.NewMatcher()
	if err != nil {
		t.Fatalf("NewMatcher: %v", err)
	}
	names := roster.Default()
	return NewService(
		intent.NewExtractor(names),
		retrieval.New(client, retrieval.WithLogger(logger)),
		ranking.NewScorer(matcher),
		enrich.New(client, enrich.WithLogger(logger)),
		names,
		WithLogger(logger),
		WithPersonCatalog(client),
		WithTimeout(5*time.Second),
	)
}

func search(t *testing.T, svc *Service, prompt string) domain.SearchResponse {
	t.Helper()
	response, err := svc.Search(context.Background(), domain.SearchRequest{Prompt: prompt})
	if err != nil {
		t.Fatalf("Search(%q): %v", prompt, err)
	}
	return response
}

func TestPipelineExactTitle(t *testing.T) {
	response := search(t, newPipeline(t, fakeTMDB(t)), "Find the titanic movie")

	if response.Strategy != retrieval.StrategyExactName {
		t.Fatalf("expected exact_name, got %s", response.Strategy)
	}
	if len(response.Movies) != 2 {
		t.Fatalf("expected both titanic movies, got %d", len(response.Movies))
	}
	top := response.Movies[0]
	if top.Title != "Titanic" || top.Factors[domain.FactorTitle] != 1 {
		t.Fatalf("expected Titanic first with full title match, got %s %v", top.Title, top.Factors)
	}
	if !top.Enriched || top.TrailerURL == nil || *top.TrailerURL != "https://www.youtube.com/watch?v=trailer-597" {
		t.Fatalf("expected enriched top result, got %+v", top)
	}
	if response.Movies[0].TotalScore < response.Movies[1].TotalScore {
		t.Fatal("movies must be ordered by total score")
	}
}

func TestPipelineActorWithGenre(t *testing.T) {
	response := search(t, newPipeline(t, fakeTMDB(t)), "funny movies with will smith")

	if response.Strategy != retrieval.StrategyActor {
		t.Fatalf("expected actor strategy, got %s", response.Strategy)
	}
	if len(response.Movies) != 2 {
		t.Fatalf("expected the two Will Smith comedies, got %d", len(response.Movies))
	}
	for _, movie := range response.Movies {
		if !containsFold(movie.Genres, "comedy") {
			t.Fatalf("%s is not a comedy: %v", movie.Title, movie.Genres)
		}
		if !castIncludes(movie.Cast, "Will Smith") || !castIncludes(movie.Credits, "Will Smith") {
			t.Fatalf("%s does not credit Will Smith", movie.Title)
		}
		if movie.Factors[domain.FactorActor] <= 0 {
			t.Fatalf("expected a positive actor factor for %s", movie.Title)
		}
	}
}

func TestPipelineGenreDecade(t *testing.T) {
	response := search(t, newPipeline(t, fakeTMDB(t)), "action movies from the 90s")

	if response.Strategy != retrieval.StrategyGenre {
		t.Fatalf("expected genre strategy, got %s", response.Strategy)
	}
	if len(response.Movies) == 0 {
		t.Fatal("expected 90s action movies")
	}
	for _, movie := range response.Movies {
		if year := movie.ReleaseYear(); year < 1990 || year > 1999 {
			t.Fatalf("%s (%d) is outside the 1990s", movie.Title, year)
		}
		if !containsFold(movie.Genres, "action") {
			t.Fatalf("%s is not an action movie", movie.Title)
		}
	}
}

func TestPipelineGeneralFallback(t *testing.T) {
	response := search(t, newPipeline(t, fakeTMDB(t)), "xyzzy plugh")

	if response.Strategy != retrieval.StrategyGeneral {
		t.Fatalf("expected general strategy, got %s", response.Strategy)
	}
	if len(response.Movies) == 0 {
		t.Fatal("expected popular movies")
	}
}

func TestPipelineUpstreamDownDegradesToEmpty(t *testing.T) {
	down := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"status_message":"boom"}`, http.StatusInternalServerError)
	})
	response := search(t, newPipeline(t, down), "funny movies with will smith")

	if response.Movies == nil || len(response.Movies) != 0 {
		t.Fatalf("expected empty non-nil movies, got %#v", response.Movies)
	}
	if response.Strategy != retrieval.StrategyNone {
		t.Fatalf("expected none strategy, got %s", response.Strategy)
	}
}

func TestPipelineSuggestCast(t *testing.T) {
	got := newPipeline(t, fakeTMDB(t)).SuggestCast("will sm")
	if len(got) == 0 || got[0] != "Will Smith" {
		t.Fatalf("expected Will Smith suggestion, got %v", got)
	}
}

func TestPipelineMoviesByCast(t *testing.T) {
	svc := newPipeline(t, fakeTMDB(t))

	response, err := svc.MoviesByCast(context.Background(), " Will Smith ")
	if err != nil {
		t.Fatalf("MoviesByCast: %v", err)
	}
	if response.Person.ID != willSmithID || response.CastName != "Will Smith" {
		t.Fatalf("unexpected person %+v", response)
	}
	if len(response.Movies) == 0 {
		t.Fatal("expected movies for Will Smith")
	}
	for _, movie := range response.Movies {
		entry, ok := catalogByID(movie.ID)
		if !ok || !credits(entry, "Will Smith") {
			t.Fatalf("movie %q does not credit Will Smith", movie.Title)
		}
	}

	if _, err := svc.MoviesByCast(context.Background(), "nobody at all"); !errors.Is(err, ErrCastNotFound) {
		t.Fatalf("expected ErrCastNotFound, got %v", err)
	}
}

func containsFold(values []string, want string) bool {
	for _, value := range values {
		if strings.EqualFold(value, want) {
			return true
		}
	}
	return false
}

func castIncludes(cast []domain.CastMember, name string) bool {
	for _, member := range cast {
		if member.Name == name {
			return true
		}
	}
	return false
}
