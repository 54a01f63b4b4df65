package payee

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"lowercases", "STARBUCKS", "starbucks"},
		{"strips punctuation", "AMZN Mktp US*1A2B3", "amznmktpus1a2b3"},
		{"strips whitespace", "Coffee  Shop", "coffeeshop"},
		{"keeps digits", "Store #42", "store42"},
		{"empty input", "", ""},
		{"only punctuation", "***---", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Normalize(tt.input))
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	once := Normalize("AMZN Mktp US*1A2B3")
	assert.Equal(t, once, Normalize(once))
}

func TestExactNormalizedMatch(t *testing.T) {
	assert.True(t, ExactNormalizedMatch("Starbucks #123", "STARBUCKS 123"))
	assert.False(t, ExactNormalizedMatch("Starbucks", "Dunkin"))

	// Two empty normalizations never match
	assert.False(t, ExactNormalizedMatch("***", "---"))
}

func TestFuzzySimilarity(t *testing.T) {
	// Identical after normalization
	assert.Equal(t, 100, FuzzySimilarity("Starbucks", "STARBUCKS*"))

	// One edit away should score high
	score := FuzzySimilarity("starbucks", "starbuckz")
	assert.GreaterOrEqual(t, score, 85)

	// Unrelated names score low
	assert.Less(t, FuzzySimilarity("starbucks", "exxonmobil"), 40)

	// Empty side scores zero
	assert.Equal(t, 0, FuzzySimilarity("", "starbucks"))
	assert.Equal(t, 0, FuzzySimilarity("starbucks", "***"))
}

func TestFuzzySimilarity_Symmetric(t *testing.T) {
	a, b := "Whole Foods Market", "WholeFds Mkt"
	assert.Equal(t, FuzzySimilarity(a, b), FuzzySimilarity(b, a))
}

func TestTokenSimilarity_WordOrder(t *testing.T) {
	// Same words in a different order are a perfect token match
	assert.Equal(t, 100, TokenSimilarity("Coffee Shop Downtown", "Downtown Coffee Shop"))
}

func TestTokenSimilarity_PartialOverlap(t *testing.T) {
	// 2 shared tokens, 5 in the union: 40%
	assert.Equal(t, 40, TokenSimilarity("Coffee Shop Downtown", "Coffee Shop Uptown Cafe"))
}

func TestTokenSimilarity_SplitsLetterDigitRuns(t *testing.T) {
	// "store42" tokenizes to {store, 42}
	assert.Equal(t, 100, TokenSimilarity("Store 42", "store42"))
}

func TestTokenSimilarity_Empty(t *testing.T) {
	assert.Equal(t, 0, TokenSimilarity("", "coffee"))
	assert.Equal(t, 0, TokenSimilarity("***", "coffee"))
}

func TestSimilarity_TakesBetterScore(t *testing.T) {
	a, b := "Coffee Shop Downtown", "Downtown Coffee Shop"

	// Token score is 100 here while edit distance suffers from reordering
	assert.Equal(t, 100, Similarity(a, b))
	assert.GreaterOrEqual(t, Similarity(a, b), FuzzySimilarity(a, b))
}

func TestSimilarity_ExactShortCircuit(t *testing.T) {
	assert.Equal(t, 100, Similarity("STARBUCKS #42", "starbucks 42"))
}
