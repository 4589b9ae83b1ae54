package tmdb

import (
	"sort"
	"strings"
)

// Movie genre ids as published by /genre/movie/list. Names are the lowercase
// canonical form used across the search pipeline.
var genreNamesByID = map[int]string{
	28:    "action",
	12:    "adventure",
	16:    "animation",
	35:    "comedy",
	80:    "crime",
	99:    "documentary",
	18:    "drama",
	10751: "family",
	14:    "fantasy",
	36:    "history",
	27:    "horror",
	10402: "music",
	9648:  "mystery",
	10749: "romance",
	878:   "science fiction",
	53:    "thriller",
	10752: "war",
	37:    "western",
	10770: "tv movie",
}

var genreIDsByName = func() map[string]int {
	out := make(map[string]int, len(genreNamesByID))
	for id, name := range genreNamesByID {
		out[name] = id
	}
	return out
}()

// GenreID resolves a canonical genre name to its TMDB id.
func GenreID(name string) (int, bool) {
	id, ok := genreIDsByName[strings.ToLower(strings.TrimSpace(name))]
	return id, ok
}

// GenreName returns the canonical name for a TMDB genre id, or "" if unknown.
func GenreName(id int) string {
	return genreNamesByID[id]
}

// NormalizeGenreName lowercases and trims an upstream genre label.
func NormalizeGenreName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func genreNames(ids []int) []string {
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if name := GenreName(id); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// genreIDs maps names to ids, skipping unknown names, sorted ascending.
func genreIDs(names []string) []int {
	seen := make(map[int]struct{}, len(names))
	ids := make([]int, 0, len(names))
	for _, name := range names {
		id, ok := GenreID(name)
		if !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
