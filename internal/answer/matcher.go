// Package answer decides whether a submitted response matches a canonical
// clue answer. Matching is a pure classification: no state, no I/O, and
// unparseable input is simply not a match.
package answer

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/divan/num2words"
)

// nearExactThreshold is the minimum share of the canonical answer that must
// survive edit distance for a near-exact match.
const nearExactThreshold = 0.8

var (
	parenGroupRe = regexp.MustCompile(`\(([^)]*)\)`)
	conjSplitRe  = regexp.MustCompile(`\s+(?:and|&)\s+|\s*&\s*`)
	orSplitRe    = regexp.MustCompile(`\s+or\s+`)
	digitRunRe   = regexp.MustCompile(`\d+`)
)

// IsCorrect reports whether submitted is an acceptable rendering of the
// canonical answer. The fallback chain runs in order and stops at the first
// strategy that matches.
func IsCorrect(canonical, submitted string) bool {
	if strings.TrimSpace(canonical) == "" || strings.TrimSpace(submitted) == "" {
		return false
	}

	normCanonical := Normalize(canonical)
	normSubmitted := Normalize(submitted)

	if nearExact(normCanonical, normSubmitted) {
		return true
	}
	if matchParentheticalStrip(canonical, normSubmitted) {
		return true
	}
	if matchParentheticalSuffix(canonical, normSubmitted) {
		return true
	}
	if matchConjunctionSplit(canonical, submitted) {
		return true
	}
	if matchEitherOfOr(canonical, normSubmitted) {
		return true
	}
	if matchSlashAlternatives(canonical, normSubmitted) {
		return true
	}
	if matchNumeralWords(canonical, submitted) {
		return true
	}
	if matchContainment(normCanonical, normSubmitted) {
		return true
	}
	if matchLastNameOnly(canonical, submitted, normSubmitted) {
		return true
	}
	return matchInterchangeableTerms(canonical, submitted)
}

// nearExact compares two normalized strings with whitespace removed and
// accepts when at least nearExactThreshold of the canonical answer survives
// the edit distance. Exact equality is distance zero.
func nearExact(normCanonical, normSubmitted string) bool {
	a := stripSpaces(normCanonical)
	b := stripSpaces(normSubmitted)
	if a == "" || b == "" {
		return false
	}
	dist := levenshtein.ComputeDistance(a, b)
	n := len([]rune(a))
	return float64(n-dist)/float64(n) >= nearExactThreshold
}

// matchParentheticalStrip drops every "(...)" group from the canonical answer
// and retries the near-exact comparison, so "(William) Shakespeare" accepts
// "shakespeare".
func matchParentheticalStrip(canonical, normSubmitted string) bool {
	if !strings.Contains(canonical, "(") {
		return false
	}
	stripped := parenGroupRe.ReplaceAllString(canonical, " ")
	return nearExact(Normalize(stripped), normSubmitted)
}

// matchParentheticalSuffix treats a trailing "(...)" group as a more general
// accepted answer, so "Volkswagen Beetle (car)" accepts "car".
func matchParentheticalSuffix(canonical, normSubmitted string) bool {
	trimmed := strings.TrimSpace(canonical)
	if !strings.HasSuffix(trimmed, ")") {
		return false
	}
	groups := parenGroupRe.FindAllStringSubmatch(trimmed, -1)
	if len(groups) == 0 {
		return false
	}
	last := groups[len(groups)-1][1]
	return nearExact(Normalize(last), normSubmitted)
}

// matchConjunctionSplit handles order-independent multi-part answers: when
// canonical and submission share a conjunction, each sorted part must pair up
// near-exactly ("war and peace" vs "peace and war").
func matchConjunctionSplit(canonical, submitted string) bool {
	for _, re := range []*regexp.Regexp{conjSplitRe, orSplitRe} {
		cl := strings.ToLower(canonical)
		sl := strings.ToLower(submitted)
		cParts := splitNonEmpty(re, cl)
		sParts := splitNonEmpty(re, sl)
		if len(cParts) < 2 || len(cParts) != len(sParts) {
			continue
		}
		cNorm := normalizeSorted(cParts)
		sNorm := normalizeSorted(sParts)
		ok := true
		for i := range cNorm {
			if !nearExact(cNorm[i], sNorm[i]) {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}

// matchEitherOfOr accepts either side of an "x or y" canonical answer.
func matchEitherOfOr(canonical, normSubmitted string) bool {
	parts := splitNonEmpty(orSplitRe, strings.ToLower(canonical))
	if len(parts) < 2 {
		return false
	}
	for _, part := range parts {
		if nearExact(Normalize(part), normSubmitted) {
			return true
		}
	}
	return false
}

// matchSlashAlternatives accepts any alternative of a slash-separated
// canonical answer ("Snake/Serpent" accepts "serpent").
func matchSlashAlternatives(canonical, normSubmitted string) bool {
	if !strings.Contains(canonical, "/") {
		return false
	}
	for _, part := range strings.Split(canonical, "/") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		if nearExact(Normalize(part), normSubmitted) {
			return true
		}
	}
	return false
}

// matchNumeralWords spells out digit runs on both sides and compares the
// whitespace-free forms, so "6" accepts "six" and vice versa.
func matchNumeralWords(canonical, submitted string) bool {
	a := stripSpaces(spellOutDigits(strings.ToLower(canonical)))
	b := stripSpaces(spellOutDigits(strings.ToLower(submitted)))
	if a == "" || b == "" {
		return false
	}
	return a == b
}

// spellOutDigits replaces every digit run with its spelled-out words.
func spellOutDigits(s string) string {
	return digitRunRe.ReplaceAllStringFunc(s, func(run string) string {
		n, err := strconv.Atoi(run)
		if err != nil {
			return run
		}
		return num2words.Convert(n)
	})
}

// matchContainment accepts a submission that contains the whole canonical
// answer ("pope benedict" contains "benedict").
func matchContainment(normCanonical, normSubmitted string) bool {
	if normCanonical == "" {
		return false
	}
	return strings.Contains(normSubmitted, normCanonical)
}

// matchLastNameOnly accepts a bare surname for a multi-word personal name:
// every leading word must be a recognized first name or an initial, the
// surname must not be on the ambiguous list, and "George ... Bush" never
// matches on surname alone.
func matchLastNameOnly(canonical, submitted, normSubmitted string) bool {
	subWords := strings.Fields(strings.TrimSpace(submitted))
	if len(subWords) != 1 {
		return false
	}
	words := strings.Fields(strings.TrimSpace(canonical))
	if len(words) < 2 {
		return false
	}

	last := cleanNameWord(words[len(words)-1])
	if last == "" || ambiguousSurnames[last] {
		return false
	}
	// Father or son: a bare "bush" cannot disambiguate.
	if len(words) > 2 && cleanNameWord(words[0]) == "george" && last == "bush" {
		return false
	}
	for _, w := range words[:len(words)-1] {
		cw := cleanNameWord(w)
		if cw == "" {
			return false
		}
		if len(cw) == 1 {
			continue // initial
		}
		if !firstNames[cw] {
			return false
		}
	}
	return nearExact(Normalize(last), normSubmitted)
}

// matchInterchangeableTerms accepts when both answers resolve to the same
// curated equivalence set of aliases, nicknames and initialisms.
func matchInterchangeableTerms(canonical, submitted string) bool {
	a, okA := termSets[termKey(canonical)]
	b, okB := termSets[termKey(submitted)]
	return okA && okB && a == b
}

func splitNonEmpty(re *regexp.Regexp, s string) []string {
	var out []string
	for _, part := range re.Split(s, -1) {
		if strings.TrimSpace(part) != "" {
			out = append(out, part)
		}
	}
	return out
}

func normalizeSorted(parts []string) []string {
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = Normalize(p)
	}
	sortStrings(out)
	return out
}
