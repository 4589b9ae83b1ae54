package intent

// Surface forms are stored folded (lowercase, no diacritics, punctuation as
// single spaces) so they compare directly against folded prompt tokens.

// genreLexicon maps surface forms onto canonical TMDB genre names.
var genreLexicon = map[string]string{
	"action":          "action",
	"adventure":       "adventure",
	"adventures":      "adventure",
	"animation":       "animation",
	"animated":        "animation",
	"cartoon":         "animation",
	"cartoons":        "animation",
	"anime":           "animation",
	"comedy":          "comedy",
	"comedies":        "comedy",
	"comedic":         "comedy",
	"funny":           "comedy",
	"hilarious":       "comedy",
	"crime":           "crime",
	"gangster":        "crime",
	"documentary":     "documentary",
	"documentaries":   "documentary",
	"drama":           "drama",
	"dramas":          "drama",
	"dramatic":        "drama",
	"family":          "family",
	"fantasy":         "fantasy",
	"history":         "history",
	"historical":      "history",
	"horror":          "horror",
	"scary":           "horror",
	"terrifying":      "horror",
	"music":           "music",
	"musical":         "music",
	"musicals":        "music",
	"mystery":         "mystery",
	"mysteries":       "mystery",
	"romance":         "romance",
	"romantic":        "romance",
	"romcom":          "romance",
	"science fiction": "science fiction",
	"sci fi":          "science fiction",
	"scifi":           "science fiction",
	"thriller":        "thriller",
	"thrillers":       "thriller",
	"suspenseful":     "thriller",
	"war":             "war",
	"western":         "western",
	"westerns":        "western",
	"tv movie":        "tv movie",
}

// moodLexicon maps surface forms onto a canonical mood.
var moodLexicon = map[string]string{
	"funny":        "funny",
	"hilarious":    "funny",
	"comedic":      "funny",
	"lighthearted": "funny",
	"scary":        "scary",
	"terrifying":   "scary",
	"creepy":       "scary",
	"spooky":       "scary",
	"romantic":     "romantic",
	"sad":          "sad",
	"emotional":    "sad",
	"tearjerker":   "sad",
	"depressing":   "sad",
	"exciting":     "exciting",
	"thrilling":    "thrilling",
	"suspenseful":  "thrilling",
	"intense":      "thrilling",
}

// tagLexicon maps each canonical theme onto the surface keywords that evoke it.
// The canonical name is always a surface form of itself.
var tagLexicon = []struct {
	Tag      string
	Keywords []string
}{
	{Tag: "aliens", Keywords: []string{"alien", "extraterrestrial", "ufo", "space invasion"}},
	{Tag: "space", Keywords: []string{"outer space", "spacecraft", "astronaut", "spaceship", "galaxy"}},
	{Tag: "time travel", Keywords: []string{"time machine", "timeline", "temporal", "time traveling"}},
	{Tag: "dystopia", Keywords: []string{"post apocalyptic", "future society", "dystopian", "totalitarian"}},
	{Tag: "robots", Keywords: []string{"robot", "android", "artificial intelligence", "cyborg", "robotic"}},
	{Tag: "magic", Keywords: []string{"wizard", "wizards", "witch", "witches", "sorcery", "magical", "spell"}},
	{Tag: "superheroes", Keywords: []string{"superhero", "super hero", "superpowers", "marvel", "comic book"}},
	{Tag: "dragons", Keywords: []string{"dragon", "mythical creature", "fantasy creature"}},
	{Tag: "medieval", Keywords: []string{"knights", "knight", "castle", "kingdom", "sword", "middle ages"}},
	{Tag: "zombies", Keywords: []string{"zombie", "undead", "walking dead", "apocalypse", "outbreak"}},
	{Tag: "ghosts", Keywords: []string{"ghost", "haunting", "paranormal", "haunted house", "haunted", "supernatural"}},
	{Tag: "serial killer", Keywords: []string{"murderer", "psychopath", "slasher", "serial killers"}},
	{Tag: "vampires", Keywords: []string{"vampire", "dracula", "blood sucker", "undead"}},
	{Tag: "heist", Keywords: []string{"heists", "robbery", "stealing", "theft", "bank robbery"}},
	{Tag: "revenge", Keywords: []string{"vengeance", "retribution", "payback", "vendetta"}},
	{Tag: "survival", Keywords: []string{"wilderness", "stranded", "disaster", "lone survivor"}},
	{Tag: "coming of age", Keywords: []string{"growing up", "teenage", "teen", "youth", "adolescence"}},
	{Tag: "true story", Keywords: []string{"based on true events", "based on a true story", "real life", "biography", "biopic"}},
	{Tag: "spies", Keywords: []string{"spy", "espionage", "secret agent", "intelligence agency", "covert"}},
	{Tag: "pirates", Keywords: []string{"pirate", "swashbuckler", "treasure", "caribbean"}},
	{Tag: "detectives", Keywords: []string{"detective", "investigation", "mystery solving", "sleuth"}},
	{Tag: "animals", Keywords: []string{"animal", "animal protagonist", "wildlife", "pets", "dog", "dogs", "cat", "cats"}},
}

// MoodProfile is the fixed retrieval hint a mood expands into.
type MoodProfile struct {
	Genres   []string
	Keywords []string
}

var moodProfiles = map[string]MoodProfile{
	"funny":     {Genres: []string{"comedy"}, Keywords: []string{"funny", "humor"}},
	"scary":     {Genres: []string{"horror"}, Keywords: []string{"scary", "terror"}},
	"romantic":  {Genres: []string{"romance"}, Keywords: []string{"romantic", "love"}},
	"sad":       {Genres: []string{"drama"}, Keywords: []string{"sad", "emotional"}},
	"exciting":  {Genres: []string{"action", "thriller"}, Keywords: []string{"exciting", "adventure"}},
	"thrilling": {Genres: []string{"thriller", "action"}, Keywords: []string{"thrilling", "suspense"}},
}

// MoodProfileFor returns the genres and keywords a mood stands for.
func MoodProfileFor(mood string) (MoodProfile, bool) {
	profile, ok := moodProfiles[mood]
	return profile, ok
}

// fillerWords never form part of a title or name candidate on their own.
var fillerWords = setOf(
	"a", "an", "the", "and", "or", "of", "in", "on", "at", "to", "for", "from", "by", "with", "without",
	"about", "into", "set", "during", "like", "similar", "than", "that", "which", "who", "where", "what",
	"is", "are", "was", "were", "be", "it", "its", "i", "me", "my", "we", "us", "you", "your", "am",
	"find", "show", "give", "get", "list", "recommend", "suggest", "search", "looking", "look", "want",
	"need", "please", "some", "any", "all", "good", "great", "best", "top", "new", "old", "classic",
	"classics", "popular", "movie", "movies", "film", "films", "flick", "flicks", "cinema", "watch",
	"something", "kind", "type", "starring", "featuring", "star", "stars", "actor", "actress", "played",
	"year", "years", "decade", "era", "released", "made", "early", "late", "mid", "s",
	"eighties", "nineties", "seventies", "sixties", "fifties", "forties", "thirties", "twenties",
)

func setOf(values ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(values))
	for _, value := range values {
		out[value] = struct{}{}
	}
	return out
}
