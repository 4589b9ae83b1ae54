// Package semantic embeds short texts as TF-IDF term vectors and compares
// them with cosine similarity.
package semantic

import (
	"fmt"
	"math"
	"strings"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/registry"

	"findingmovie/searchservice/internal/domain"
)

// Each text is embedded on its own, so the corpus size is always 1 and every
// term has document frequency 1.
const (
	corpusSize        = 1
	documentFrequency = 1
)

// Representation is a weighted bag of terms.
type Representation struct {
	Terms map[string]float64 `json:"terms"`
	Text  string             `json:"text"`
}

// Empty reports whether the representation has no terms to compare.
func (r Representation) Empty() bool {
	return len(r.Terms) == 0
}

// Matcher tokenizes with bleve's standard analyzer: unicode word boundaries,
// lowercase, English stop words removed.
type Matcher struct {
	analyzer analysis.Analyzer
}

func NewMatcher() (*Matcher, error) {
	analyzer, err := registry.NewCache().AnalyzerNamed(standard.Name)
	if err != nil {
		return nil, fmt.Errorf("load %s analyzer: %w", standard.Name, err)
	}
	return &Matcher{analyzer: analyzer}, nil
}

func (m *Matcher) tokens(text string) []string {
	stream := m.analyzer.Analyze([]byte(text))
	out := make([]string, 0, len(stream))
	for _, token := range stream {
		if len(token.Term) == 0 {
			continue
		}
		out = append(out, string(token.Term))
	}
	return out
}

// Embed weights each term by tf × idf, where tf is the term's share of all
// tokens and idf = 1 + ln(N / (1 + df)).
func (m *Matcher) Embed(text string) Representation {
	rep := Representation{Terms: map[string]float64{}, Text: text}
	tokens := m.tokens(text)
	if len(tokens) == 0 {
		return rep
	}
	counts := make(map[string]int, len(tokens))
	for _, token := range tokens {
		counts[token]++
	}
	idf := 1 + math.Log(float64(corpusSize)/float64(1+documentFrequency))
	total := float64(len(tokens))
	for term, count := range counts {
		rep.Terms[term] = float64(count) / total * idf
	}
	return rep
}

// Similarity is the cosine of the angle between a and b over the union of
// their terms. It is 0 when either side has zero magnitude.
func Similarity(a, b Representation) float64 {
	var dot, normA, normB float64
	for term, wa := range a.Terms {
		normA += wa * wa
		if wb, ok := b.Terms[term]; ok {
			dot += wa * wb
		}
	}
	for _, wb := range b.Terms {
		normB += wb * wb
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	switch {
	case sim < 0:
		return 0
	case sim > 1:
		return 1
	}
	return sim
}

// MovieText is the text a candidate is embedded from.
func MovieText(movie domain.CandidateMovie) string {
	parts := make([]string, 0, 2+len(movie.Genres)+len(movie.Keywords))
	parts = append(parts, movie.Title, movie.Overview)
	parts = append(parts, movie.Genres...)
	parts = append(parts, movie.Keywords...)
	return joinNonEmpty(parts)
}

// QueryText is the text a query is embedded from.
func QueryText(query domain.ExtractedQuery) string {
	return query.SemanticText()
}

func joinNonEmpty(parts []string) string {
	kept := parts[:0:0]
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			kept = append(kept, part)
		}
	}
	return strings.Join(kept, " ")
}
