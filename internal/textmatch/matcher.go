package textmatch

import "unicode/utf8"

// Match is the outcome of a fuzzy lookup. Distance is normalized: 0 is exact.
type Match struct {
	Candidate string
	Index     int
	Distance  float64
}

// NameMatcher finds the closest roster entry to a phrase.
type NameMatcher interface {
	Match(query string, candidates []string, threshold float64) (Match, bool)
}

// LevenshteinMatcher compares folded strings by normalized edit distance.
// Ties go to the longer candidate, then to the earlier one.
type LevenshteinMatcher struct{}

func NewLevenshteinMatcher() LevenshteinMatcher {
	return LevenshteinMatcher{}
}

func (LevenshteinMatcher) Match(query string, candidates []string, threshold float64) (Match, bool) {
	folded := Fold(query)
	if folded == "" || len(candidates) == 0 {
		return Match{}, false
	}

	best := Match{Index: -1, Distance: 2}
	bestLen := 0
	for i, candidate := range candidates {
		target := Fold(candidate)
		if target == "" {
			continue
		}
		distance := NormalizedDistance(folded, target)
		length := utf8.RuneCountInString(target)
		if distance < best.Distance || (distance == best.Distance && length > bestLen) {
			best = Match{Candidate: candidate, Index: i, Distance: distance}
			bestLen = length
		}
	}
	if best.Index < 0 || best.Distance > threshold {
		return Match{}, false
	}
	return best, true
}
