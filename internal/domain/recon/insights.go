package recon

import (
	"fmt"
	"sort"

	"github.com/mkallert/bankrec-backend/internal/domain/matcher"
	"github.com/mkallert/bankrec-backend/internal/domain/money"
)

// nearMatchMargin is how close (in score points) a suggested match must be
// to the next tier's threshold to count as a near miss.
const nearMatchMargin = 10

// anomalyVolumeFactor flags a discrepancy as anomalous when it exceeds this
// multiple of the mean external transaction size.
const anomalyVolumeFactor = 2

// deriveInsights inspects the partitioned analysis for patterns worth
// surfacing: repeated unmatched amounts, suggestions that barely missed a
// tier, and discrepancies out of proportion to the statement's activity.
func deriveInsights(analysis *Analysis, cfg matcher.Config) []Insight {
	var insights []Insight
	insights = append(insights, repeatAmountInsights(analysis)...)
	insights = append(insights, nearMatchInsights(analysis, cfg)...)
	insights = append(insights, anomalyInsights(analysis)...)
	return insights
}

// repeatAmountInsights fires when two or more unmatched external
// transactions share an amount. The id incorporates the amount so
// re-analysis of identical input regenerates the same id.
func repeatAmountInsights(analysis *Analysis) []Insight {
	byAmount := make(map[string]int)
	for _, m := range analysis.UnmatchedExternal {
		byAmount[m.External.Amount.Abs().StringFixed(2)]++
	}

	amounts := make([]string, 0, len(byAmount))
	for amt, n := range byAmount {
		if n >= 2 {
			amounts = append(amounts, amt)
		}
	}
	sort.Strings(amounts)

	var insights []Insight
	for _, amt := range amounts {
		n := byAmount[amt]
		insights = append(insights, Insight{
			ID:       fmt.Sprintf("repeat-amount-%s", amt),
			Kind:     InsightRepeatAmount,
			Severity: SeverityWarning,
			Title:    fmt.Sprintf("%d unmatched transactions of %s", n, amt),
			Description: fmt.Sprintf(
				"%d unmatched statement transactions share the amount %s; they may be a recurring charge missing from the ledger or duplicates in the export.",
				n, amt),
			Evidence: map[string]string{
				"amount": amt,
				"count":  fmt.Sprintf("%d", n),
			},
		})
	}
	return insights
}

// nearMatchInsights flags suggested matches rejected from the next tier by
// a small margin.
func nearMatchInsights(analysis *Analysis, cfg matcher.Config) []Insight {
	var insights []Insight
	for _, m := range analysis.SuggestedMatches {
		var threshold int
		switch m.Tier {
		case matcher.TierMedium:
			threshold = cfg.AutoMatchThreshold
		case matcher.TierLow:
			threshold = cfg.SuggestionThreshold
		default:
			continue
		}
		missedBy := threshold - m.Score
		if missedBy <= 0 || missedBy > nearMatchMargin {
			continue
		}

		insights = append(insights, Insight{
			ID:       fmt.Sprintf("near-match-%s", m.External.ID),
			Kind:     InsightNearMatch,
			Severity: SeverityInfo,
			Title:    fmt.Sprintf("Near miss for %s", m.External.Payee),
			Description: fmt.Sprintf(
				"Statement transaction %s scored %d, only %d point(s) short of the next confidence tier; the top candidate is probably the right match.",
				m.External.ID, m.Score, missedBy),
			Evidence: map[string]string{
				"external_id": m.External.ID,
				"score":       fmt.Sprintf("%d", m.Score),
				"missed_by":   fmt.Sprintf("%d", missedBy),
			},
		})
	}
	return insights
}

// anomalyInsights flags discrepancies that are large relative to the
// statement's transaction volume, and non-positive statement balances with
// residual unmatched activity. Integer milliunit arithmetic throughout, so
// degenerate inputs cannot produce NaN.
func anomalyInsights(analysis *Analysis) []Insight {
	var insights []Insight

	disc := analysis.Balance.DiscrepancyMilli
	absDisc := disc
	if absDisc < 0 {
		absDisc = -absDisc
	}

	if n := analysis.Summary.TotalExternal; n > 0 && absDisc > 0 {
		var volume int64
		for _, m := range analysis.AutoMatches {
			volume += absMilli(m)
		}
		for _, m := range analysis.SuggestedMatches {
			volume += absMilli(m)
		}
		for _, m := range analysis.UnmatchedExternal {
			volume += absMilli(m)
		}
		mean := volume / int64(n)
		if mean > 0 && absDisc > mean*anomalyVolumeFactor {
			insights = append(insights, Insight{
				ID:       "anomaly-discrepancy",
				Kind:     InsightAnomaly,
				Severity: SeverityCritical,
				Title:    "Discrepancy out of proportion to activity",
				Description: fmt.Sprintf(
					"The balance discrepancy of %s is more than %dx the average statement transaction; a missing transfer or an incorrect target balance is likely.",
					analysis.Balance.DiscrepancyDisplay, anomalyVolumeFactor),
				Evidence: map[string]string{
					"discrepancy": analysis.Balance.DiscrepancyDisplay,
					"mean_amount": money.Display(mean, analysis.Currency),
				},
			})
		}
	}

	unresolved := analysis.Summary.UnmatchedExternal + analysis.Summary.UnmatchedInternal
	if analysis.Balance.TargetMilli <= 0 && unresolved > 0 {
		insights = append(insights, Insight{
			ID:       "anomaly-nonpositive-target",
			Kind:     InsightAnomaly,
			Severity: SeverityWarning,
			Title:    "Non-positive statement balance with unmatched activity",
			Description: fmt.Sprintf(
				"The statement balance is %s while %d transaction(s) remain unmatched; verify the target balance and the statement window.",
				analysis.Balance.TargetDisplay, unresolved),
			Evidence: map[string]string{
				"target":    analysis.Balance.TargetDisplay,
				"unmatched": fmt.Sprintf("%d", unresolved),
			},
		})
	}

	return insights
}

// absMilli converts a match's external amount to absolute milliunits,
// ignoring sub-milliunit precision. Volume estimation only.
func absMilli(m matcher.Match) int64 {
	milli, err := money.FromDecimal(m.External.Amount.Abs())
	if err != nil {
		return 0
	}
	return milli
}
