package semantic

import (
	"math"
	"testing"

	"findingmovie/searchservice/internal/domain"
)

func newTestMatcher(t *testing.T) *Matcher {
	t.Helper()
	m, err := NewMatcher()
	if err != nil {
		t.Fatalf("NewMatcher: %v", err)
	}
	return m
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestEmbedDropsStopWordsAndLowercases(t *testing.T) {
	m := newTestMatcher(t)
	rep := m.Embed("The Matrix and THE matrix")
	if len(rep.Terms) != 1 {
		t.Fatalf("expected a single term, got %v", rep.Terms)
	}
	if _, ok := rep.Terms["matrix"]; !ok {
		t.Fatalf("expected term 'matrix', got %v", rep.Terms)
	}
}

func TestEmbedWeightsByTermShare(t *testing.T) {
	m := newTestMatcher(t)
	rep := m.Embed("space space alien")
	idf := 1 + math.Log(0.5)
	if !approx(rep.Terms["space"], 2.0/3.0*idf) {
		t.Fatalf("space weight %v, want %v", rep.Terms["space"], 2.0/3.0*idf)
	}
	if !approx(rep.Terms["alien"], 1.0/3.0*idf) {
		t.Fatalf("alien weight %v, want %v", rep.Terms["alien"], 1.0/3.0*idf)
	}
}

func TestSimilarity(t *testing.T) {
	m := newTestMatcher(t)
	tests := []struct {
		name string
		a, b string
		want func(float64) bool
	}{
		{name: "identical", a: "heist crime thriller", b: "Heist crime thriller", want: func(s float64) bool { return approx(s, 1) }},
		{name: "disjoint", a: "zombie apocalypse", b: "romantic comedy", want: func(s float64) bool { return s == 0 }},
		{name: "partial", a: "space aliens invasion", b: "aliens from space attack earth", want: func(s float64) bool { return s > 0 && s < 1 }},
		{name: "empty side", a: "", b: "titanic", want: func(s float64) bool { return s == 0 }},
		{name: "stop words only", a: "the and of", b: "the and of", want: func(s float64) bool { return s == 0 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a, b := m.Embed(tc.a), m.Embed(tc.b)
			got := Similarity(a, b)
			if !tc.want(got) {
				t.Fatalf("Similarity(%q, %q)=%v", tc.a, tc.b, got)
			}
			if back := Similarity(b, a); !approx(back, got) {
				t.Fatalf("similarity not symmetric: %v vs %v", got, back)
			}
		})
	}
}

func TestMovieAndQueryText(t *testing.T) {
	movie := domain.CandidateMovie{
		Title:    "Alien",
		Overview: " A crew meets a creature. ",
		Genres:   []string{"horror", "science fiction"},
		Keywords: []string{"", "space"},
	}
	if got := MovieText(movie); got != "Alien A crew meets a creature. horror science fiction space" {
		t.Fatalf("MovieText=%q", got)
	}
	query := domain.ExtractedQuery{MovieName: "alien", Tags: []string{"space"}, Genres: []string{"horror"}}
	if got := QueryText(query); got != "alien space horror" {
		t.Fatalf("QueryText=%q", got)
	}
}

func TestMatchingMovieScoresHigher(t *testing.T) {
	m := newTestMatcher(t)
	query := m.Embed(QueryText(domain.ExtractedQuery{Tags: []string{"heist"}, Genres: []string{"crime"}}))
	heist := m.Embed(MovieText(domain.CandidateMovie{Title: "Inside Job", Overview: "A bank heist goes wrong.", Genres: []string{"crime"}}))
	romance := m.Embed(MovieText(domain.CandidateMovie{Title: "Sunset", Overview: "Two strangers fall in love.", Genres: []string{"romance"}}))
	if Similarity(query, heist) <= Similarity(query, romance) {
		t.Fatal("expected the heist movie to be more similar")
	}
}
