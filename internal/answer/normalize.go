package answer

import (
	"regexp"
	"sort"
	"strings"

	"github.com/bbalet/stopwords"
	"github.com/kljensen/snowball"
)

var (
	htmlEmphasisRe = regexp.MustCompile(`(?i)</?(?:i|em|b|u)\s*>`)
	nonAlphaNumRe  = regexp.MustCompile(`[^a-z0-9 ]+`)
)

// Normalize reduces a raw answer to comparable form: punctuation noise and
// HTML emphasis stripped, "&" collapsed to "and", tokens stemmed with
// stopword removal. When stopword removal leaves nothing (the whole answer
// was stopwords, like "The Who"), stemming retries on the raw tokens; when
// even that is empty the raw text is used as-is.
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = htmlEmphasisRe.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, `\`, "")
	s = strings.ReplaceAll(s, "&", " and ")

	cleaned := stopwords.CleanString(s, "en", false)
	tokens := stemTokens(strings.Fields(cleaned))
	if len(tokens) == 0 {
		raw := strings.Fields(nonAlphaNumRe.ReplaceAllString(s, " "))
		tokens = stemTokens(raw)
		if len(tokens) == 0 {
			tokens = raw
		}
	}
	if len(tokens) == 0 {
		return strings.Join(strings.Fields(s), " ")
	}
	return strings.Join(tokens, " ")
}

func stemTokens(words []string) []string {
	var out []string
	for _, w := range words {
		stemmed, err := snowball.Stem(w, "english", true)
		if err != nil || stemmed == "" {
			stemmed = w
		}
		out = append(out, stemmed)
	}
	return out
}

func stripSpaces(s string) string {
	return strings.Join(strings.Fields(s), "")
}

// cleanNameWord lowercases a name token and drops everything but letters,
// so "F." becomes "f" and "O'Neill" becomes "oneill".
func cleanNameWord(w string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(w) {
		if r >= 'a' && r <= 'z' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func sortStrings(s []string) {
	sort.Strings(s)
}
