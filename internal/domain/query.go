package domain

import (
	"strconv"
	"strings"
)

type LogicalOperator string

const (
	OperatorNone LogicalOperator = ""
	OperatorAnd  LogicalOperator = "and"
	OperatorOr   LogicalOperator = "or"
)

// ExtractedQuery is the structured reading of a free-text prompt.
// Empty strings stand for absent values; list fields are never nil once
// produced by the extractor.
type ExtractedQuery struct {
	MovieName   string          `json:"movieName,omitempty"`
	ActorNames  []string        `json:"actorNames"`
	Genres      []string        `json:"genres"`
	Tags        []string        `json:"tags"`
	Year        string          `json:"year,omitempty"`
	Mood        string          `json:"mood,omitempty"`
	Operator    LogicalOperator `json:"logicalOperator,omitempty"`
	ResultCount int             `json:"resultCount,omitempty"`
}

// SemanticText joins the parts of the query that describe content rather than people.
func (q ExtractedQuery) SemanticText() string {
	parts := make([]string, 0, 1+len(q.Tags)+len(q.Genres))
	if name := strings.TrimSpace(q.MovieName); name != "" {
		parts = append(parts, name)
	}
	parts = append(parts, q.Tags...)
	parts = append(parts, q.Genres...)
	return strings.TrimSpace(strings.Join(parts, " "))
}

// HasSemanticText reports whether the query names a movie or a theme. Genres
// alone are scored by overlap and do not make a query worth embedding.
func (q ExtractedQuery) HasSemanticText() bool {
	return strings.TrimSpace(q.MovieName) != "" || len(q.Tags) > 0
}

func (q ExtractedQuery) YearRange() (YearRange, bool) {
	return ParseYearRange(q.Year)
}

// YearRange is an inclusive span of release years. An exact year has From == To.
type YearRange struct {
	From int
	To   int
}

// ParseYearRange accepts "1994" or a normalized decade token such as "1990s".
func ParseYearRange(token string) (YearRange, bool) {
	token = strings.TrimSpace(token)
	if token == "" {
		return YearRange{}, false
	}
	if strings.HasSuffix(token, "s") {
		start, err := strconv.Atoi(strings.TrimSuffix(token, "s"))
		if err != nil || start < 1000 || start%10 != 0 {
			return YearRange{}, false
		}
		return YearRange{From: start, To: start + 9}, true
	}
	year, err := strconv.Atoi(token)
	if err != nil || year < 1000 {
		return YearRange{}, false
	}
	return YearRange{From: year, To: year}, true
}

func (r YearRange) Contains(year int) bool {
	return year >= r.From && year <= r.To
}

// Distance is the number of years from year to the nearest bound, 0 inside the range.
func (r YearRange) Distance(year int) int {
	switch {
	case year < r.From:
		return r.From - year
	case year > r.To:
		return year - r.To
	default:
		return 0
	}
}
