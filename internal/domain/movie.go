package domain

import (
	"strconv"
	"strings"
)

const youtubeWatchURL = "https://www.youtube.com/watch?v="

type CastMember struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Character   string `json:"character,omitempty"`
	ProfilePath string `json:"profilePath,omitempty"`
	Order       int    `json:"order"`
}

type CandidateMovie struct {
	ID          int          `json:"id"`
	Title       string       `json:"title"`
	Overview    string       `json:"overview,omitempty"`
	Genres      []string     `json:"genres,omitempty"`
	Cast        []CastMember `json:"cast,omitempty"`
	Keywords    []string     `json:"keywords,omitempty"`
	Popularity  float64      `json:"popularity"`
	VoteAverage float64      `json:"voteAverage"`
	VoteCount   int          `json:"voteCount"`
	ReleaseDate string       `json:"releaseDate,omitempty"`
	PosterPath  string       `json:"posterPath,omitempty"`
}

// ReleaseYear returns the year prefix of ReleaseDate, or 0 when it is absent.
func (m CandidateMovie) ReleaseYear() int {
	return parseYearPrefix(m.ReleaseDate)
}

type Person struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	ProfilePath string  `json:"profilePath,omitempty"`
	Popularity  float64 `json:"popularity"`
}

type Keyword struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type Video struct {
	Key  string `json:"key"`
	Site string `json:"site"`
	Type string `json:"type"`
}

type MovieDetails struct {
	ID       int          `json:"id"`
	Genres   []string     `json:"genres,omitempty"`
	Cast     []CastMember `json:"cast,omitempty"`
	Keywords []string     `json:"keywords,omitempty"`
	Videos   []Video      `json:"videos,omitempty"`
}

// TrailerURL picks the first YouTube trailer in upstream order.
func (d MovieDetails) TrailerURL() string {
	for _, video := range d.Videos {
		if video.Type == "Trailer" && video.Site == "YouTube" && strings.TrimSpace(video.Key) != "" {
			return youtubeWatchURL + strings.TrimSpace(video.Key)
		}
	}
	return ""
}

// DiscoverFilter is the constraint set for a popularity-ordered listing.
// The zero value asks for the unconstrained list.
type DiscoverFilter struct {
	Genres     []string `json:"genres,omitempty"`
	YearFrom   int      `json:"yearFrom,omitempty"`
	YearTo     int      `json:"yearTo,omitempty"`
	KeywordIDs []int    `json:"keywordIds,omitempty"`
	CastIDs    []int    `json:"castIds,omitempty"`
}

func (f DiscoverFilter) IsEmpty() bool {
	return len(f.Genres) == 0 && f.YearFrom == 0 && f.YearTo == 0 && len(f.KeywordIDs) == 0 && len(f.CastIDs) == 0
}

func parseYearPrefix(date string) int {
	date = strings.TrimSpace(date)
	if len(date) < 4 {
		return 0
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0
	}
	return year
}
