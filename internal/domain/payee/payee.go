// Package payee normalizes free-text payee names and scores how similar two
// of them are.
//
// Bank statements and ledger entries rarely agree on payee spelling
// ("AMZN Mktp US*1A2B3" vs "Amazon Marketplace"), so matching combines an
// edit-distance score with a token-overlap score and takes the better one.
package payee

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// Normalize lowercases s and strips every rune that is not a letter or
// digit. Idempotent: normalizing twice yields the same result as once.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ExactNormalizedMatch reports whether a and b normalize to the same
// non-empty string.
func ExactNormalizedMatch(a, b string) bool {
	na := Normalize(a)
	return na != "" && na == Normalize(b)
}

// FuzzySimilarity converts the Levenshtein distance between the normalized
// strings into a 0-100 similarity score: 100 * (1 - distance/maxLen),
// clamped to [0,100]. Identical normalized strings score 100; if either
// side normalizes to empty the score is 0.
func FuzzySimilarity(a, b string) int {
	na, nb := Normalize(a), Normalize(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 100
	}

	dist := levenshtein.ComputeDistance(na, nb)
	maxLen := utf8.RuneCountInString(na)
	if l := utf8.RuneCountInString(nb); l > maxLen {
		maxLen = l
	}

	score := 100 - (dist*100+maxLen/2)/maxLen
	return clamp(score)
}

// TokenSimilarity splits each lowercased string into maximal letter-runs and
// digit-runs and computes Jaccard similarity over the token sets as a 0-100
// score. Catches word-order differences the edit distance punishes, e.g.
// "Coffee Shop Downtown" vs "Downtown Coffee Shop".
func TokenSimilarity(a, b string) int {
	ta := tokenize(a)
	tb := tokenize(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	intersection := 0
	for tok := range ta {
		if tb[tok] {
			intersection++
		}
	}
	union := len(ta) + len(tb) - intersection
	if union == 0 {
		return 0
	}

	return clamp((intersection*100 + union/2) / union)
}

// Similarity is the single entry point used by the matcher: 100 on an exact
// normalized match, otherwise the better of the fuzzy and token scores.
func Similarity(a, b string) int {
	if ExactNormalizedMatch(a, b) {
		return 100
	}
	fuzzy := FuzzySimilarity(a, b)
	token := TokenSimilarity(a, b)
	if token > fuzzy {
		return token
	}
	return fuzzy
}

// tokenize lowercases s and splits it into maximal runs of letters or of
// digits, returned as a set. Whitespace and punctuation separate tokens,
// as does a letter/digit boundary.
func tokenize(s string) map[string]bool {
	tokens := make(map[string]bool)
	var run []rune
	var runIsDigit bool

	flush := func() {
		if len(run) > 0 {
			tokens[string(run)] = true
			run = run[:0]
		}
	}

	for _, r := range strings.ToLower(s) {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			flush()
			continue
		}
		isDigit := unicode.IsDigit(r)
		if len(run) > 0 && isDigit != runIsDigit {
			flush()
		}
		run = append(run, r)
		runIsDigit = isDigit
	}
	flush()

	return tokens
}

func clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
