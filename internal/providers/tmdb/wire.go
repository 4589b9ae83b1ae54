package tmdb

import (
	"strings"

	"github.com/goccy/go-json"

	"findingmovie/searchservice/internal/domain"
)

type movieResult struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	Overview    string  `json:"overview"`
	GenreIDs    []int   `json:"genre_ids"`
	Popularity  float64 `json:"popularity"`
	VoteAverage float64 `json:"vote_average"`
	VoteCount   int     `json:"vote_count"`
	ReleaseDate string  `json:"release_date"`
	PosterPath  string  `json:"poster_path"`
}

type movieListResponse struct {
	Results []movieResult `json:"results"`
}

type personResult struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	ProfilePath string  `json:"profile_path"`
	Popularity  float64 `json:"popularity"`
}

type personListResponse struct {
	Results []personResult `json:"results"`
}

type namedID struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type keywordListResponse struct {
	Results []namedID `json:"results"`
}

type castResult struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Character   string `json:"character"`
	ProfilePath string `json:"profile_path"`
	Order       int    `json:"order"`
}

type videoResult struct {
	Key  string `json:"key"`
	Site string `json:"site"`
	Type string `json:"type"`
}

type detailsResponse struct {
	ID      int       `json:"id"`
	Genres  []namedID `json:"genres"`
	Credits struct {
		Cast []castResult `json:"cast"`
	} `json:"credits"`
	Keywords struct {
		Keywords []namedID `json:"keywords"`
	} `json:"keywords"`
	Videos struct {
		Results []videoResult `json:"results"`
	} `json:"videos"`
}

func parseMovies(body []byte) ([]domain.CandidateMovie, error) {
	var response movieListResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, err
	}
	movies := make([]domain.CandidateMovie, 0, len(response.Results))
	for _, r := range response.Results {
		if r.ID <= 0 {
			continue
		}
		movies = append(movies, domain.CandidateMovie{
			ID:          r.ID,
			Title:       strings.TrimSpace(r.Title),
			Overview:    strings.TrimSpace(r.Overview),
			Genres:      genreNames(r.GenreIDs),
			Popularity:  r.Popularity,
			VoteAverage: r.VoteAverage,
			VoteCount:   r.VoteCount,
			ReleaseDate: r.ReleaseDate,
			PosterPath:  r.PosterPath,
		})
	}
	return movies, nil
}

func parsePerson(body []byte) (*domain.Person, error) {
	var response personListResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, err
	}
	if len(response.Results) == 0 || response.Results[0].ID <= 0 {
		return nil, nil
	}
	first := response.Results[0]
	return &domain.Person{
		ID:          first.ID,
		Name:        first.Name,
		ProfilePath: first.ProfilePath,
		Popularity:  first.Popularity,
	}, nil
}

func parseKeyword(body []byte) (*domain.Keyword, error) {
	var response keywordListResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, err
	}
	if len(response.Results) == 0 || response.Results[0].ID <= 0 {
		return nil, nil
	}
	first := response.Results[0]
	return &domain.Keyword{ID: first.ID, Name: first.Name}, nil
}

func parseDetails(body []byte) (*domain.MovieDetails, error) {
	var response detailsResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, err
	}
	details := &domain.MovieDetails{
		ID:       response.ID,
		Genres:   make([]string, 0, len(response.Genres)),
		Cast:     make([]domain.CastMember, 0, len(response.Credits.Cast)),
		Keywords: make([]string, 0, len(response.Keywords.Keywords)),
		Videos:   make([]domain.Video, 0, len(response.Videos.Results)),
	}
	for _, g := range response.Genres {
		if name := NormalizeGenreName(g.Name); name != "" {
			details.Genres = append(details.Genres, name)
		}
	}
	for _, member := range response.Credits.Cast {
		details.Cast = append(details.Cast, domain.CastMember{
			ID:          member.ID,
			Name:        member.Name,
			Character:   member.Character,
			ProfilePath: member.ProfilePath,
			Order:       member.Order,
		})
	}
	for _, k := range response.Keywords.Keywords {
		if name := strings.TrimSpace(k.Name); name != "" {
			details.Keywords = append(details.Keywords, name)
		}
	}
	for _, v := range response.Videos.Results {
		details.Videos = append(details.Videos, domain.Video{Key: v.Key, Site: v.Site, Type: v.Type})
	}
	return details, nil
}
