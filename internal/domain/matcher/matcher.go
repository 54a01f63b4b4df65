// Package matcher scores and classifies candidate pairings between external
// statement transactions and internal ledger transactions.
//
// The scoring scheme is weighted and gated:
//   - Amount match is required (40 points); a candidate whose amount is
//     outside tolerance is dropped entirely, whatever its date or payee.
//   - Date within tolerance adds 40 points. No partial credit.
//   - Payee similarity adds up to 20 points in tiers.
//
// Example usage:
//
//	cfg := matcher.DefaultConfig()
//	matches := matcher.MatchAll(externals, internals, cfg)
package matcher

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mkallert/bankrec-backend/internal/domain/money"
	"github.com/mkallert/bankrec-backend/internal/domain/payee"
	"github.com/mkallert/bankrec-backend/internal/domain/txn"
)

// Tier classifies how reliable a match is.
type Tier string

const (
	TierHigh   Tier = "high"
	TierMedium Tier = "medium"
	TierLow    Tier = "low"
	TierNone   Tier = "none"
)

// minCandidateScore is the floor below which a scored pairing is not worth
// surfacing even as a low-confidence candidate.
const minCandidateScore = 30

// maxCandidates is how many ranked candidates a medium/low match carries.
const maxCandidates = 3

var centFactor = decimal.NewFromInt(100)

// Candidate pairs an internal transaction with its score against one
// external transaction. Ephemeral, produced per matching pass.
type Candidate struct {
	Txn         txn.Internal `json:"transaction"`
	Score       int          `json:"score"`
	Reason      string       `json:"reason"`
	Explanation string       `json:"explanation"`
}

// Match is the classification result for one external transaction.
type Match struct {
	External   txn.External  `json:"external"`
	Tier       Tier          `json:"tier"`
	Score      int           `json:"score"`
	Best       *txn.Internal `json:"best,omitempty"`
	Candidates []Candidate   `json:"candidates,omitempty"`
	ActionHint string        `json:"action_hint,omitempty"`
}

// AmountsMatch reports whether an external decimal amount and an internal
// milliunit amount agree within the given tolerance in cents. The absolute
// difference is rounded to whole cents before comparing, so a difference
// exactly at the tolerance boundary passes and one cent beyond it fails.
func AmountsMatch(extAmount decimal.Decimal, intMilli int64, toleranceCents int) bool {
	diff := extAmount.Sub(money.ToDecimal(intMilli)).Abs()
	cents := diff.Mul(centFactor).Round(0).IntPart()
	return cents <= int64(toleranceCents)
}

// DatesMatch reports whether two dates are within toleranceDays calendar
// days of each other.
func DatesMatch(a, b time.Time, toleranceDays int) bool {
	return daysApart(a, b) <= toleranceDays
}

// daysApart returns the absolute calendar-day distance between two dates,
// ignoring the time-of-day component.
func daysApart(a, b time.Time) int {
	da := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	db := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	d := da.Sub(db)
	if d < 0 {
		d = -d
	}
	return int(d.Hours() / 24)
}

// ScoreCandidate scores an internal transaction against an external one and
// returns the score with human-readable reasons. A failed amount gate
// yields score 0 with no reasons; otherwise the score is in [40,100].
func ScoreCandidate(ext txn.External, it txn.Internal, cfg Config) (int, []string) {
	if !AmountsMatch(ext.Amount, it.AmountMilli, cfg.AmountToleranceCents) {
		return 0, nil
	}

	score := 40
	reasons := []string{"amount matches within tolerance"}

	if DatesMatch(ext.Date, it.Date, cfg.DateToleranceDays) {
		score += 40
		reasons = append(reasons, fmt.Sprintf("date within %d day(s)", cfg.DateToleranceDays))
	}

	name := ""
	if it.PayeeName != nil {
		name = *it.PayeeName
	}
	if payee.ExactNormalizedMatch(ext.Payee, name) {
		score += 20
		reasons = append(reasons, "payee matches exactly")
	} else {
		sim := payee.Similarity(ext.Payee, name)
		switch {
		case sim >= 95:
			score += 15
			reasons = append(reasons, fmt.Sprintf("payee very similar (%d%%)", sim))
		case sim >= 80:
			score += 10
			reasons = append(reasons, fmt.Sprintf("payee similar (%d%%)", sim))
		case sim >= 60:
			score += 6
			reasons = append(reasons, fmt.Sprintf("payee somewhat similar (%d%%)", sim))
		}
	}

	return score, reasons
}

// Priority ranks internal transactions as match targets. Uncleared entries
// are actively awaiting external confirmation and are preferred.
func Priority(it txn.Internal) int {
	switch it.Cleared {
	case txn.ClearedStatusUncleared:
		return 10
	case txn.ClearedStatusCleared:
		return 5
	case txn.ClearedStatusReconciled:
		return 1
	default:
		return 0
	}
}

// FindCandidates scores the internal pool against one external transaction,
// excluding already-consumed ids and opposite-sign transactions, and
// returns candidates scoring at least 30 ranked by score, then priority,
// then date proximity. The ordering is the tie-break contract: it must stay
// deterministic so repeated runs over identical input agree.
func FindCandidates(ext txn.External, pool []txn.Internal, used map[string]bool, cfg Config) []Candidate {
	extSign := ext.Amount.Sign()

	var candidates []Candidate
	for _, it := range pool {
		if used[it.ID] {
			continue
		}
		if oppositeSigns(extSign, it.AmountMilli) {
			continue
		}

		score, reasons := ScoreCandidate(ext, it, cfg)
		if score < minCandidateScore {
			continue
		}

		candidates = append(candidates, Candidate{
			Txn:         it,
			Score:       score,
			Reason:      reasonCode(reasons),
			Explanation: strings.Join(reasons, "; "),
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		pi, pj := Priority(candidates[i].Txn), Priority(candidates[j].Txn)
		if pi != pj {
			return pi > pj
		}
		return daysApart(ext.Date, candidates[i].Txn.Date) < daysApart(ext.Date, candidates[j].Txn.Date)
	})

	return candidates
}

// Classify finds and ranks candidates for one external transaction and
// assigns a confidence tier. High-tier matches attach a single chosen
// internal transaction; the caller is responsible for adding its id to the
// used set so it is not offered again. Medium and low tiers intentionally
// do not consume their candidates: the same internal transaction may be
// suggested for several external transactions, deferring the ambiguity to
// human review.
func Classify(ext txn.External, pool []txn.Internal, used map[string]bool, cfg Config) Match {
	candidates := FindCandidates(ext, pool, used, cfg)
	if len(candidates) == 0 {
		return Match{
			External:   ext,
			Tier:       TierNone,
			ActionHint: "create in ledger",
		}
	}

	best := candidates[0]
	top := candidates
	if len(top) > maxCandidates {
		top = top[:maxCandidates]
	}

	switch {
	case best.Score >= cfg.AutoMatchThreshold:
		chosen := best.Txn
		return Match{
			External: ext,
			Tier:     TierHigh,
			Score:    best.Score,
			Best:     &chosen,
		}
	case best.Score >= cfg.SuggestionThreshold:
		chosen := best.Txn
		return Match{
			External:   ext,
			Tier:       TierMedium,
			Score:      best.Score,
			Best:       &chosen,
			Candidates: top,
			ActionHint: "review and choose",
		}
	default:
		return Match{
			External:   ext,
			Tier:       TierLow,
			Score:      best.Score,
			Candidates: top,
			ActionHint: "review or add new",
		}
	}
}

// MatchAll classifies every external transaction in input order. The used
// set is owned by this function and grows only after high-tier matches, so
// an internal transaction is never chosen as the best match for more than
// one external transaction in a run. Classify only reads the set.
func MatchAll(externals []txn.External, internals []txn.Internal, cfg Config) []Match {
	used := make(map[string]bool)
	matches := make([]Match, 0, len(externals))

	for _, ext := range externals {
		m := Classify(ext, internals, used, cfg)
		if m.Tier == TierHigh && m.Best != nil {
			used[m.Best.ID] = true
		}
		matches = append(matches, m)
	}

	return matches
}

// oppositeSigns reports whether a decimal sign and a milliunit amount point
// in opposite directions. Zero never opposes anything.
func oppositeSigns(extSign int, intMilli int64) bool {
	return (extSign > 0 && intMilli < 0) || (extSign < 0 && intMilli > 0)
}

// reasonCode compacts reasons into a short machine string, e.g.
// "amount+date+payee".
func reasonCode(reasons []string) string {
	var parts []string
	for _, r := range reasons {
		switch {
		case strings.HasPrefix(r, "amount"):
			parts = append(parts, "amount")
		case strings.HasPrefix(r, "date"):
			parts = append(parts, "date")
		case strings.HasPrefix(r, "payee"):
			parts = append(parts, "payee")
		}
	}
	return strings.Join(parts, "+")
}
