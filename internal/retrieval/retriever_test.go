package retrieval

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"sync"
	"testing"

	"findingmovie/searchservice/internal/domain"
)

type fakeSource struct {
	mu       sync.Mutex
	titles   map[string][]domain.CandidateMovie
	people   map[string]*domain.Person
	keywords map[string]*domain.Keyword
	discover func(domain.DiscoverFilter) []domain.CandidateMovie
	filters  []domain.DiscoverFilter
}

func (f *fakeSource) SearchMovies(_ context.Context, title string) []domain.CandidateMovie {
	return slices.Clone(f.titles[title])
}

func (f *fakeSource) Discover(_ context.Context, filter domain.DiscoverFilter) []domain.CandidateMovie {
	f.mu.Lock()
	f.filters = append(f.filters, filter)
	f.mu.Unlock()
	if f.discover == nil {
		return nil
	}
	return f.discover(filter)
}

func (f *fakeSource) SearchPerson(_ context.Context, name string) *domain.Person {
	return f.people[name]
}

func (f *fakeSource) SearchKeyword(_ context.Context, name string) *domain.Keyword {
	return f.keywords[name]
}

func newTestRetriever(source MetadataSource) *Retriever {
	return New(source, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

func movie(id int, title string, popularity float64, date string, genres ...string) domain.CandidateMovie {
	return domain.CandidateMovie{ID: id, Title: title, Popularity: popularity, ReleaseDate: date, Genres: genres}
}

func ids(movies []domain.CandidateMovie) []int {
	out := make([]int, len(movies))
	for i, m := range movies {
		out[i] = m.ID
	}
	return out
}

func assertUnique(t *testing.T, movies []domain.CandidateMovie) {
	t.Helper()
	seen := map[int]bool{}
	for _, m := range movies {
		if seen[m.ID] {
			t.Fatalf("duplicate id %d in %v", m.ID, ids(movies))
		}
		seen[m.ID] = true
	}
}

func TestExactNameStrategyWins(t *testing.T) {
	source := &fakeSource{
		titles: map[string][]domain.CandidateMovie{
			"titanic": {
				movie(2, "Titanic II", 3, "2010-08-07"),
				movie(597, "Titanic", 120, "1997-11-18", "drama", "romance"),
				movie(2, "Titanic II", 3, "2010-08-07"),
			},
		},
		people: map[string]*domain.Person{"kate winslet": {ID: 204, Name: "Kate Winslet"}},
		discover: func(domain.DiscoverFilter) []domain.CandidateMovie {
			return []domain.CandidateMovie{movie(1, "Other", 500, "2020-01-01")}
		},
	}
	result := newTestRetriever(source).Retrieve(context.Background(), domain.ExtractedQuery{
		MovieName:  "titanic",
		ActorNames: []string{"kate winslet"},
	})
	if result.Strategy != StrategyExactName {
		t.Fatalf("expected exact_name, got %s", result.Strategy)
	}
	if got := ids(result.Movies); !slices.Equal(got, []int{597, 2}) {
		t.Fatalf("expected [597 2], got %v", got)
	}
	if len(source.filters) != 0 {
		t.Fatalf("expected no lower-priority calls, got %v", source.filters)
	}
}

func TestExactNameLimit(t *testing.T) {
	var many []domain.CandidateMovie
	for i := 1; i <= 10; i++ {
		many = append(many, movie(i, "Star Wars", float64(i), "1977-05-25"))
	}
	source := &fakeSource{titles: map[string][]domain.CandidateMovie{"star wars": many}}
	r := newTestRetriever(source)

	result := r.Retrieve(context.Background(), domain.ExtractedQuery{MovieName: "star wars"})
	if len(result.Movies) != defaultNameLimit {
		t.Fatalf("expected %d movies, got %d", defaultNameLimit, len(result.Movies))
	}
	if result.Movies[0].ID != 10 {
		t.Fatalf("expected most popular first, got %d", result.Movies[0].ID)
	}

	result = r.Retrieve(context.Background(), domain.ExtractedQuery{MovieName: "star wars", ResultCount: 3})
	if len(result.Movies) != 3 {
		t.Fatalf("expected explicit count 3, got %d", len(result.Movies))
	}
}

func TestActorStrategyFiltersByGenreAndAnnotatesCast(t *testing.T) {
	source := &fakeSource{
		people: map[string]*domain.Person{"will smith": {ID: 2888, Name: "Will Smith"}},
		discover: func(filter domain.DiscoverFilter) []domain.CandidateMovie {
			if slices.Equal(filter.CastIDs, []int{2888}) {
				return []domain.CandidateMovie{
					movie(8960, "Hancock", 40, "2008-07-01", "action", "comedy"),
					movie(607, "Men in Black", 60, "1997-07-01", "action", "comedy", "science fiction"),
					movie(9502, "I Am Legend", 70, "2007-12-14", "drama", "science fiction"),
				}
			}
			return []domain.CandidateMovie{movie(1, "Unrelated", 999, "2020-01-01", "comedy")}
		},
	}
	result := newTestRetriever(source).Retrieve(context.Background(), domain.ExtractedQuery{
		ActorNames: []string{"will smith"},
		Genres:     []string{"comedy"},
	})
	if result.Strategy != StrategyActor {
		t.Fatalf("expected actor strategy, got %s", result.Strategy)
	}
	if got := ids(result.Movies); !slices.Equal(got, []int{607, 8960}) {
		t.Fatalf("expected [607 8960], got %v", got)
	}
	for _, m := range result.Movies {
		if !hasCastMember(m.Cast, 2888) {
			t.Fatalf("movie %d missing credited actor: %+v", m.ID, m.Cast)
		}
	}
}

func TestActorStrategyCapsPerActor(t *testing.T) {
	source := &fakeSource{
		people: map[string]*domain.Person{
			"tom hanks": {ID: 31, Name: "Tom Hanks"},
			"meg ryan":  {ID: 5344, Name: "Meg Ryan"},
		},
		discover: func(filter domain.DiscoverFilter) []domain.CandidateMovie {
			base := filter.CastIDs[0] * 100
			var out []domain.CandidateMovie
			for i := 0; i < 12; i++ {
				out = append(out, movie(base+i, "m", float64(100-i), "2000-01-01"))
			}
			return out
		},
	}
	r := New(source, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))), WithLimits(0, 50, 0))
	result := r.Retrieve(context.Background(), domain.ExtractedQuery{ActorNames: []string{"tom hanks", "meg ryan"}})
	if len(result.Movies) != 2*defaultPerActorLimit {
		t.Fatalf("expected %d movies, got %d", 2*defaultPerActorLimit, len(result.Movies))
	}
	assertUnique(t, result.Movies)
}

func TestActorAndPrefersJointListing(t *testing.T) {
	source := &fakeSource{
		people: map[string]*domain.Person{
			"tom hanks": {ID: 31, Name: "Tom Hanks"},
			"meg ryan":  {ID: 5344, Name: "Meg Ryan"},
		},
		discover: func(filter domain.DiscoverFilter) []domain.CandidateMovie {
			switch {
			case len(filter.CastIDs) == 2:
				return []domain.CandidateMovie{movie(9489, "You've Got Mail", 30, "1998-12-18", "comedy", "romance")}
			case filter.CastIDs[0] == 31:
				return []domain.CandidateMovie{movie(13, "Forrest Gump", 90, "1994-07-06", "drama")}
			default:
				return []domain.CandidateMovie{movie(639, "When Harry Met Sally...", 25, "1989-07-12", "comedy")}
			}
		},
	}
	result := newTestRetriever(source).Retrieve(context.Background(), domain.ExtractedQuery{
		ActorNames: []string{"tom hanks", "meg ryan"},
		Operator:   domain.OperatorAnd,
	})
	if got := ids(result.Movies); !slices.Equal(got, []int{9489}) {
		t.Fatalf("expected joint listing only, got %v", got)
	}
	cast := result.Movies[0].Cast
	if !hasCastMember(cast, 31) || !hasCastMember(cast, 5344) {
		t.Fatalf("expected both actors credited, got %+v", cast)
	}
}

func TestActorAndFallsBackToOverlapThenUnion(t *testing.T) {
	shared := movie(9489, "You've Got Mail", 30, "1998-12-18")
	tests := []struct {
		name     string
		hanks    []domain.CandidateMovie
		ryan     []domain.CandidateMovie
		expected []int
	}{
		{
			name:     "overlap",
			hanks:    []domain.CandidateMovie{movie(13, "Forrest Gump", 90, "1994-07-06"), shared},
			ryan:     []domain.CandidateMovie{shared, movie(639, "When Harry Met Sally...", 25, "1989-07-12")},
			expected: []int{9489},
		},
		{
			name:     "union",
			hanks:    []domain.CandidateMovie{movie(13, "Forrest Gump", 90, "1994-07-06")},
			ryan:     []domain.CandidateMovie{movie(639, "When Harry Met Sally...", 25, "1989-07-12")},
			expected: []int{13, 639},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			source := &fakeSource{
				people: map[string]*domain.Person{
					"tom hanks": {ID: 31, Name: "Tom Hanks"},
					"meg ryan":  {ID: 5344, Name: "Meg Ryan"},
				},
				discover: func(filter domain.DiscoverFilter) []domain.CandidateMovie {
					switch {
					case len(filter.CastIDs) == 2:
						return nil
					case filter.CastIDs[0] == 31:
						return slices.Clone(tc.hanks)
					default:
						return slices.Clone(tc.ryan)
					}
				},
			}
			result := newTestRetriever(source).Retrieve(context.Background(), domain.ExtractedQuery{
				ActorNames: []string{"tom hanks", "meg ryan"},
				Operator:   domain.OperatorAnd,
			})
			if got := ids(result.Movies); !slices.Equal(got, tc.expected) {
				t.Fatalf("expected %v, got %v", tc.expected, got)
			}
		})
	}
}

func TestUnknownActorFallsThroughToGenre(t *testing.T) {
	source := &fakeSource{
		discover: func(filter domain.DiscoverFilter) []domain.CandidateMovie {
			if len(filter.Genres) > 0 {
				return []domain.CandidateMovie{movie(1, "Action One", 10, "2001-01-01", "action")}
			}
			return nil
		},
	}
	result := newTestRetriever(source).Retrieve(context.Background(), domain.ExtractedQuery{
		ActorNames: []string{"nobody at all"},
		Genres:     []string{"action"},
	})
	if result.Strategy != StrategyGenre {
		t.Fatalf("expected genre strategy, got %s", result.Strategy)
	}
}

func TestGenreStrategyYearFilterOnlyRemoves(t *testing.T) {
	upstream := []domain.CandidateMovie{
		movie(1, "Speed", 50, "1994-06-10", "action", "thriller"),
		movie(2, "Die Hard", 60, "1988-07-15", "action"),
		movie(3, "The Rock", 40, "1996-06-07", "action", "adventure"),
		movie(4, "Face/Off", 45, "1997-06-27", "action", "crime"),
		movie(5, "Off Genre", 99, "1995-01-01", "drama"),
		movie(6, "No Date", 80, "", "action"),
	}
	source := &fakeSource{
		discover: func(domain.DiscoverFilter) []domain.CandidateMovie { return slices.Clone(upstream) },
	}
	result := newTestRetriever(source).Retrieve(context.Background(), domain.ExtractedQuery{
		Genres: []string{"action"},
		Year:   "1990s",
	})
	if result.Strategy != StrategyGenre {
		t.Fatalf("expected genre strategy, got %s", result.Strategy)
	}
	if got := ids(result.Movies); !slices.Equal(got, []int{1, 4, 3}) {
		t.Fatalf("expected [1 4 3], got %v", got)
	}
	upstreamIDs := ids(upstream)
	for _, m := range result.Movies {
		if !slices.Contains(upstreamIDs, m.ID) {
			t.Fatalf("year filter added movie %d", m.ID)
		}
		if y := m.ReleaseYear(); y < 1990 || y > 1999 {
			t.Fatalf("movie %d released %d outside the 1990s", m.ID, y)
		}
		if !slices.Contains(m.Genres, "action") {
			t.Fatalf("movie %d lacks requested genre: %v", m.ID, m.Genres)
		}
	}
	filter := source.filters[0]
	if filter.YearFrom != 1990 || filter.YearTo != 1999 {
		t.Fatalf("expected decade bounds on the upstream filter, got %+v", filter)
	}
}

func TestCombinedStrategyMergesYearTagsAndMood(t *testing.T) {
	source := &fakeSource{
		keywords: map[string]*domain.Keyword{
			"heist": {ID: 10051, Name: "heist"},
			"funny": {ID: 9716, Name: "funny"},
		},
		discover: func(filter domain.DiscoverFilter) []domain.CandidateMovie {
			switch {
			case filter.YearFrom == 2001:
				return []domain.CandidateMovie{movie(161, "Ocean's Eleven", 50, "2001-12-07", "crime"), movie(7, "Off Year", 10, "2003-01-01")}
			case slices.Equal(filter.KeywordIDs, []int{10051}):
				return []domain.CandidateMovie{movie(161, "Ocean's Eleven", 50, "2001-12-07", "crime"), movie(107, "Snatch", 30, "2000-09-01", "crime", "comedy")}
			case slices.Equal(filter.KeywordIDs, []int{9716}):
				return []domain.CandidateMovie{movie(107, "Snatch", 30, "2000-09-01", "crime", "comedy")}
			case slices.Equal(filter.Genres, []string{"comedy"}):
				return []domain.CandidateMovie{movie(8363, "Superbad", 20, "2007-08-17", "comedy")}
			}
			return nil
		},
	}
	result := newTestRetriever(source).Retrieve(context.Background(), domain.ExtractedQuery{
		Tags: []string{"heist"},
		Year: "2001",
		Mood: "funny",
	})
	if result.Strategy != StrategyCombined {
		t.Fatalf("expected combined strategy, got %s", result.Strategy)
	}
	if got := ids(result.Movies); !slices.Equal(got, []int{161, 107, 8363}) {
		t.Fatalf("expected [161 107 8363], got %v", got)
	}
	for _, m := range result.Movies {
		if m.ID == 161 && !slices.Contains(m.Keywords, "heist") {
			t.Fatalf("expected heist annotation on %d, got %v", m.ID, m.Keywords)
		}
		if m.ID == 107 && (!slices.Contains(m.Keywords, "heist") || !slices.Contains(m.Keywords, "funny")) {
			t.Fatalf("expected merged annotations on %d, got %v", m.ID, m.Keywords)
		}
	}
}

func TestGeneralFallback(t *testing.T) {
	source := &fakeSource{
		discover: func(filter domain.DiscoverFilter) []domain.CandidateMovie {
			if !filter.IsEmpty() {
				t.Errorf("expected unconstrained filter, got %+v", filter)
			}
			return []domain.CandidateMovie{movie(1, "A", 5, ""), movie(2, "B", 50, ""), movie(1, "A", 5, "")}
		},
	}
	result := newTestRetriever(source).Retrieve(context.Background(), domain.ExtractedQuery{})
	if result.Strategy != StrategyGeneral {
		t.Fatalf("expected general strategy, got %s", result.Strategy)
	}
	if got := ids(result.Movies); !slices.Equal(got, []int{2, 1}) {
		t.Fatalf("expected [2 1], got %v", got)
	}
}

func TestNoCandidatesIsEmptyNotError(t *testing.T) {
	result := newTestRetriever(&fakeSource{}).Retrieve(context.Background(), domain.ExtractedQuery{
		MovieName:  "titanic",
		ActorNames: []string{"will smith"},
		Genres:     []string{"comedy"},
		Tags:       []string{"heist"},
		Year:       "1997",
		Mood:       "funny",
	})
	if result.Strategy != StrategyNone {
		t.Fatalf("expected none, got %s", result.Strategy)
	}
	if result.Movies == nil || len(result.Movies) != 0 {
		t.Fatalf("expected empty non-nil list, got %v", result.Movies)
	}
}

func TestMovieSetMergesAnnotations(t *testing.T) {
	set := NewMovieSet()
	a := movie(1, "A", 1, "")
	a.Cast = []domain.CastMember{{ID: 31, Name: "Tom Hanks"}}
	a.Keywords = []string{"heist"}
	b := movie(1, "A", 1, "")
	b.Cast = []domain.CastMember{{ID: 31, Name: "Tom Hanks"}, {ID: 5344, Name: "Meg Ryan"}}
	b.Keywords = []string{"Heist", "space"}
	set.Add(a, movie(2, "B", 1, ""), b)

	movies := set.Movies()
	if got := ids(movies); !slices.Equal(got, []int{1, 2}) {
		t.Fatalf("expected insertion order [1 2], got %v", got)
	}
	if len(movies[0].Cast) != 2 || len(movies[0].Keywords) != 2 {
		t.Fatalf("expected merged annotations, got cast=%v keywords=%v", movies[0].Cast, movies[0].Keywords)
	}
	if len(a.Cast) != 1 {
		t.Fatal("merge mutated the caller's slice")
	}
}
