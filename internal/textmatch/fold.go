// Package textmatch holds the string normalization and fuzzy name matching
// shared by prompt extraction, roster lookups and scoring.
package textmatch

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	tokenPattern      = regexp.MustCompile(`[\p{L}\p{N}]+`)
	apostropheRemover = strings.NewReplacer("'", "", "’", "", "`", "")
)

// Fold lowercases s, strips diacritics and apostrophes, and reduces every
// other run of punctuation or whitespace to a single space.
func Fold(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	// transform.Chain keeps state, so build one per call.
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(stripMarks, s)
	if err != nil {
		folded = s
	}
	folded = apostropheRemover.Replace(strings.ToLower(folded))
	return strings.Join(tokenPattern.FindAllString(folded, -1), " ")
}

// Tokens returns the folded words of s.
func Tokens(s string) []string {
	folded := Fold(s)
	if folded == "" {
		return nil
	}
	return strings.Split(folded, " ")
}

// Contains reports whether needle occurs in haystack after folding, on word boundaries.
func Contains(haystack, needle string) bool {
	h := Fold(haystack)
	n := Fold(needle)
	if h == "" || n == "" {
		return false
	}
	return strings.Contains(" "+h+" ", " "+n+" ")
}
