// Package intent turns a free-text prompt into an ExtractedQuery.
package intent

import (
	"regexp"
	"strconv"
	"strings"

	"findingmovie/searchservice/internal/domain"
	"findingmovie/searchservice/internal/textmatch"
)

const (
	defaultTitleThreshold           = 0.4
	defaultSingleWordTitleThreshold = 0.2
	defaultActorThreshold           = 0.34
	maxActorWindow                  = 3
	// Single-word titles this short only match exactly ("poker" is not "joker").
	shortTitleRunes                 = 5
	maxResultCount                  = 20
)

// Patterns run on folded text, so apostrophes are already gone ("'90s" is "90s").
var (
	yearPattern   = regexp.MustCompile(`\b(19\d{2}|20\d{2})\b`)
	decadePattern = regexp.MustCompile(`\b(?:(19|20)(\d)|(\d))0s\b`)
	countPattern  = regexp.MustCompile(`\b(?:(?:find|show|give|get|list|recommend|suggest)(?: me)?|top) (\d{1,2})\b`)
	digitsPattern = regexp.MustCompile(`^\d+s?$`)
)

var decadeWords = map[string]string{
	"twenties":  "1920s",
	"thirties":  "1930s",
	"forties":   "1940s",
	"fifties":   "1950s",
	"sixties":   "1960s",
	"seventies": "1970s",
	"eighties":  "1980s",
	"nineties":  "1990s",
}

// Roster is the read-only name listing the extractor matches against.
type Roster interface {
	Actors() []string
	Titles() []string
}

type Extractor struct {
	matcher          textmatch.NameMatcher
	actors           []string
	titlesByWords    map[int][]string
	titleThreshold   float64
	singleWordThresh float64
	actorThreshold   float64
}

type Option func(*Extractor)

func WithMatcher(matcher textmatch.NameMatcher) Option {
	return func(e *Extractor) {
		if matcher != nil {
			e.matcher = matcher
		}
	}
}

func WithThresholds(title, singleWordTitle, actor float64) Option {
	return func(e *Extractor) {
		if title > 0 {
			e.titleThreshold = title
		}
		if singleWordTitle > 0 {
			e.singleWordThresh = singleWordTitle
		}
		if actor > 0 {
			e.actorThreshold = actor
		}
	}
}

func NewExtractor(roster Roster, options ...Option) *Extractor {
	e := &Extractor{
		matcher:          textmatch.NewLevenshteinMatcher(),
		titlesByWords:    make(map[int][]string),
		titleThreshold:   defaultTitleThreshold,
		singleWordThresh: defaultSingleWordTitleThreshold,
		actorThreshold:   defaultActorThreshold,
	}
	if roster != nil {
		e.actors = roster.Actors()
		for _, title := range roster.Titles() {
			words := len(textmatch.Tokens(title))
			if words == 0 {
				continue
			}
			e.titlesByWords[words] = append(e.titlesByWords[words], title)
		}
	}
	for _, option := range options {
		if option != nil {
			option(e)
		}
	}
	return e
}

// Extract never fails: anything it cannot recognize is left empty.
func (e *Extractor) Extract(prompt string) domain.ExtractedQuery {
	folded := textmatch.Fold(prompt)
	tokens := strings.Fields(folded)

	return domain.ExtractedQuery{
		MovieName:   e.detectTitle(tokens),
		ActorNames:  e.detectActors(tokens),
		Genres:      scanLexicon(tokens, genreIndex, genreMaxWords),
		Tags:        scanLexicon(tokens, tagIndex, tagMaxWords),
		Year:        detectYear(folded, tokens),
		Mood:        detectMood(tokens),
		Operator:    detectOperator(tokens),
		ResultCount: detectResultCount(folded),
	}
}

func (e *Extractor) detectTitle(tokens []string) string {
	var (
		best      textmatch.Match
		bestRunes int
		found     bool
	)
	for words, titles := range e.titlesByWords {
		threshold := e.titleThreshold
		if words == 1 {
			threshold = e.singleWordThresh
		}
		for i := 0; i+words <= len(tokens); i++ {
			window := tokens[i : i+words]
			limit := threshold
			if !hasContentToken(window) {
				limit = 0
			}
			match, ok := e.matcher.Match(strings.Join(window, " "), titles, limit)
			if !ok {
				continue
			}
			runes := len([]rune(match.Candidate))
			if words == 1 && match.Distance > 0 && runes <= shortTitleRunes {
				continue
			}
			if !found || match.Distance < best.Distance ||
				(match.Distance == best.Distance && runes > bestRunes) ||
				(match.Distance == best.Distance && runes == bestRunes && match.Candidate < best.Candidate) {
				best = match
				bestRunes = runes
				found = true
			}
		}
	}
	if !found {
		return ""
	}
	return textmatch.Fold(best.Candidate)
}

// detectActors treats every run of two or more content words as a proper-noun
// phrase and matches two and three word windows of it against the roster.
func (e *Extractor) detectActors(tokens []string) []string {
	names := []string{}
	if len(e.actors) == 0 {
		return names
	}
	seen := make(map[string]struct{})
	for _, run := range contentRuns(tokens) {
		if len(run) < 2 {
			continue
		}
		for i := 0; i < len(run)-1; {
			var (
				best     textmatch.Match
				bestSize int
			)
			for size := 2; size <= maxActorWindow && i+size <= len(run); size++ {
				match, ok := e.matcher.Match(strings.Join(run[i:i+size], " "), e.actors, e.actorThreshold)
				if ok && (bestSize == 0 || match.Distance < best.Distance) {
					best = match
					bestSize = size
				}
			}
			if bestSize == 0 {
				i++
				continue
			}
			name := textmatch.Fold(best.Candidate)
			if _, ok := seen[name]; !ok {
				seen[name] = struct{}{}
				names = append(names, name)
			}
			i += bestSize
		}
	}
	return names
}

func contentRuns(tokens []string) [][]string {
	var (
		runs    [][]string
		current []string
	)
	for _, token := range tokens {
		if isContentToken(token) {
			current = append(current, token)
			continue
		}
		if len(current) > 0 {
			runs = append(runs, current)
			current = nil
		}
	}
	if len(current) > 0 {
		runs = append(runs, current)
	}
	return runs
}

func hasContentToken(tokens []string) bool {
	for _, token := range tokens {
		if isContentToken(token) {
			return true
		}
	}
	return false
}

func isContentToken(token string) bool {
	if _, ok := fillerWords[token]; ok {
		return false
	}
	if _, ok := lexiconWords[token]; ok {
		return false
	}
	return !digitsPattern.MatchString(token)
}

func detectYear(folded string, tokens []string) string {
	if match := yearPattern.FindStringSubmatch(folded); len(match) > 1 {
		return match[1]
	}
	if match := decadePattern.FindStringSubmatch(folded); len(match) > 0 {
		if match[1] != "" {
			return match[1] + match[2] + "0s"
		}
		digit, _ := strconv.Atoi(match[3])
		if digit <= 2 {
			return strconv.Itoa(2000+digit*10) + "s"
		}
		return strconv.Itoa(1900+digit*10) + "s"
	}
	for _, token := range tokens {
		if decade, ok := decadeWords[token]; ok {
			return decade
		}
	}
	return ""
}

func detectMood(tokens []string) string {
	for _, token := range tokens {
		if mood, ok := moodLexicon[token]; ok {
			return mood
		}
	}
	return ""
}

func detectOperator(tokens []string) domain.LogicalOperator {
	hasOr := false
	for _, token := range tokens {
		switch token {
		case "and":
			return domain.OperatorAnd
		case "or":
			hasOr = true
		}
	}
	if hasOr {
		return domain.OperatorOr
	}
	return domain.OperatorNone
}

func detectResultCount(folded string) int {
	match := countPattern.FindStringSubmatch(folded)
	if len(match) < 2 {
		return 0
	}
	count, err := strconv.Atoi(match[1])
	if err != nil || count <= 0 {
		return 0
	}
	return min(count, maxResultCount)
}
