package matcher

// Config holds matching tolerances and classification thresholds.
// Passed by value; zero tolerances mean exact matching.
type Config struct {
	// DateToleranceDays is the maximum calendar-day distance between an
	// external and internal transaction for the dates to count as matching.
	DateToleranceDays int

	// AmountToleranceCents is the maximum difference, in cents, between the
	// external amount and the internal amount for the amounts to match.
	AmountToleranceCents int

	// AutoMatchThreshold is the minimum score for a high-confidence match.
	AutoMatchThreshold int

	// SuggestionThreshold is the minimum score for a medium-confidence
	// suggestion.
	SuggestionThreshold int
}

// DefaultConfig returns the standard reconciliation tolerances: exact
// amounts, dates within three days, auto-match at 90, suggestions at 60.
func DefaultConfig() Config {
	return Config{
		DateToleranceDays:    3,
		AmountToleranceCents: 0,
		AutoMatchThreshold:   90,
		SuggestionThreshold:  60,
	}
}
