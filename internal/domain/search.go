package domain

const (
	FactorTitle      = "titleMatch"
	FactorActor      = "actorMatch"
	FactorGenre      = "genreMatch"
	FactorTag        = "tagMatch"
	FactorSemantic   = "semanticSimilarity"
	FactorContextual = "contextual"
	FactorYear       = "yearMatch"
)

type ScoredMovie struct {
	CandidateMovie
	Factors    map[string]float64 `json:"factors"`
	TotalScore float64            `json:"totalScore"`
}

type MovieResult struct {
	ScoredMovie
	TrailerURL *string      `json:"trailerUrl"`
	GenreNames []string     `json:"genreNames"`
	Credits    []CastMember `json:"credits"`
	Enriched   bool         `json:"enriched"`
}

// UserHistory carries request-scoped preferences. Nothing is persisted.
type UserHistory struct {
	PreferredGenres []string `json:"preferredGenres,omitempty"`
}

type SearchRequest struct {
	Prompt          string   `json:"prompt" validate:"required,max=500"`
	PreferredGenres []string `json:"preferredGenres,omitempty" validate:"max=20,dive,max=40"`
}

// CastMoviesResponse lists the movies of the person a cast name resolved to.
type CastMoviesResponse struct {
	CastName string           `json:"castName"`
	Person   Person           `json:"person"`
	Movies   []CandidateMovie `json:"movies"`
}

type SearchResponse struct {
	Prompt    string         `json:"prompt"`
	Query     ExtractedQuery `json:"query"`
	Strategy  string         `json:"strategy"`
	Movies    []MovieResult  `json:"movies"`
	ElapsedMS int64          `json:"elapsedMs"`
}
