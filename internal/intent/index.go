package intent

import "strings"

var (
	genreIndex, genreMaxWords = buildGenreIndex()
	tagIndex, tagMaxWords     = buildTagIndex()
	lexiconWords              = buildLexiconWords()
)

func buildGenreIndex() (map[string][]string, int) {
	index := make(map[string][]string, len(genreLexicon))
	maxWords := 1
	for surface, genre := range genreLexicon {
		index[surface] = []string{genre}
		maxWords = max(maxWords, len(strings.Fields(surface)))
	}
	return index, maxWords
}

func buildTagIndex() (map[string][]string, int) {
	index := make(map[string][]string)
	maxWords := 1
	add := func(surface, tag string) {
		for _, existing := range index[surface] {
			if existing == tag {
				return
			}
		}
		index[surface] = append(index[surface], tag)
		maxWords = max(maxWords, len(strings.Fields(surface)))
	}
	for _, entry := range tagLexicon {
		add(entry.Tag, entry.Tag)
		for _, keyword := range entry.Keywords {
			add(keyword, entry.Tag)
		}
	}
	return index, maxWords
}

// buildLexiconWords collects every single-word surface form. Such words
// describe content, so they never start a title or name match on their own.
func buildLexiconWords() map[string]struct{} {
	words := make(map[string]struct{})
	for surface := range genreLexicon {
		if !strings.Contains(surface, " ") {
			words[surface] = struct{}{}
		}
	}
	for surface := range moodLexicon {
		words[surface] = struct{}{}
	}
	for _, entry := range tagLexicon {
		for _, surface := range append([]string{entry.Tag}, entry.Keywords...) {
			if !strings.Contains(surface, " ") {
				words[surface] = struct{}{}
			}
		}
	}
	return words
}

// scanLexicon walks tokens left to right, preferring the longest phrase at
// each position, and returns canonical hits in first-mention order without
// duplicates. Tokens consumed by a phrase are not rescanned.
func scanLexicon(tokens []string, index map[string][]string, maxWords int) []string {
	hits := []string{}
	seen := make(map[string]struct{})
	for i := 0; i < len(tokens); {
		consumed := 1
		for n := min(maxWords, len(tokens)-i); n >= 1; n-- {
			canonical, ok := index[strings.Join(tokens[i:i+n], " ")]
			if !ok {
				continue
			}
			for _, value := range canonical {
				if _, dup := seen[value]; dup {
					continue
				}
				seen[value] = struct{}{}
				hits = append(hits, value)
			}
			consumed = n
			break
		}
		i += consumed
	}
	return hits
}
