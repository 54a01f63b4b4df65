// Package recommend converts a reconciliation analysis into a prioritized
// list of typed, executable recommendations.
package recommend

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mkallert/bankrec-backend/internal/domain/matcher"
	"github.com/mkallert/bankrec-backend/internal/domain/money"
	"github.com/mkallert/bankrec-backend/internal/domain/recon"
	"github.com/mkallert/bankrec-backend/internal/domain/txn"
)

// Fixed confidences. Insight-derived reviews and creations carry a
// per-kind constant rather than a score-derived value; only duplicate
// reviews inherit the match score.
const (
	confidenceCreateMissing = 0.70
	confidenceCreateImplied = 0.85
	confidenceUpdateCleared = 0.60
	confidenceReviewRepeat  = 0.50
	confidenceReviewNear    = 0.65
	confidenceReviewAnomaly = 0.40
	confidenceReviewDefault = 0.50
)

// Engine builds recommendations from an analysis.
type Engine struct {
	now func() time.Time
}

// NewEngine creates a recommendation engine.
func NewEngine() *Engine {
	return &Engine{now: func() time.Time { return time.Now().UTC() }}
}

// Build derives recommendations from the analysis: manual reviews for
// insights, creations for unmatched statement rows, duplicate reviews for
// suggested matches, and cleared-status updates for stale uncleared ledger
// entries. The result is sorted by priority then confidence; ties keep
// insertion order.
func (e *Engine) Build(analysis *recon.Analysis) []Recommendation {
	var recs []Recommendation
	recs = append(recs, e.fromInsights(analysis)...)
	recs = append(recs, e.fromUnmatchedExternal(analysis)...)
	recs = append(recs, e.fromSuggested(analysis)...)
	recs = append(recs, e.fromUnmatchedInternal(analysis)...)

	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].Priority != recs[j].Priority {
			return recs[i].Priority.rank() > recs[j].Priority.rank()
		}
		return recs[i].Confidence > recs[j].Confidence
	})

	return recs
}

func (e *Engine) fromInsights(analysis *recon.Analysis) []Recommendation {
	var recs []Recommendation
	for _, ins := range analysis.Insights {
		recs = append(recs, Recommendation{
			ID:              uuid.NewString(),
			Kind:            ActionManualReview,
			Priority:        priorityForSeverity(ins.Severity),
			Confidence:      confidenceForInsight(ins.Kind),
			Message:         fmt.Sprintf("Review: %s", ins.Title),
			Reason:          ins.Description,
			AccountID:       analysis.AccountID,
			SourceInsightID: ins.ID,
			CreatedAt:       e.now(),
			Action:          ManualReview{InsightID: ins.ID},
		})
	}
	return recs
}

// fromUnmatchedExternal emits one creation per statement row the ledger has
// no trace of. The new transaction is created cleared and approved: the
// bank has already settled it.
func (e *Engine) fromUnmatchedExternal(analysis *recon.Analysis) []Recommendation {
	var recs []Recommendation
	for _, m := range analysis.UnmatchedExternal {
		milli, err := money.FromDecimal(m.External.Amount)
		if err != nil {
			continue
		}
		recs = append(recs, Recommendation{
			ID:             uuid.NewString(),
			Kind:           ActionCreateTransaction,
			Priority:       PriorityMedium,
			Confidence:     confidenceCreateMissing,
			Message:        fmt.Sprintf("Create ledger transaction for %s (%s)", m.External.Payee, money.Display(milli, analysis.Currency)),
			Reason:         "statement transaction has no ledger counterpart",
			EstImpactMilli: milli,
			AccountID:      analysis.AccountID,
			CreatedAt:      e.now(),
			Action: CreateTransaction{
				Date:        m.External.Date,
				AmountMilli: milli,
				Payee:       m.External.Payee,
				Memo:        m.External.Memo,
				Cleared:     txn.ClearedStatusCleared,
				Approved:    true,
			},
		})
	}
	return recs
}

// fromSuggested emits a duplicate review when a suggested match carries
// candidates, and falls back to a creation when it somehow carries none:
// an exact-amount discrepancy match is itself evidence of a missing entry.
func (e *Engine) fromSuggested(analysis *recon.Analysis) []Recommendation {
	var recs []Recommendation
	for _, m := range analysis.SuggestedMatches {
		ids := candidateIDs(m.Best, m.Candidates)
		if len(ids) > 0 {
			recs = append(recs, Recommendation{
				ID:             uuid.NewString(),
				Kind:           ActionReviewDuplicate,
				Priority:       PriorityHigh,
				Confidence:     float64(m.Score) / 100,
				Message:        fmt.Sprintf("Review %d possible ledger match(es) for %s", len(ids), m.External.Payee),
				Reason:         "creating this transaction without review could duplicate an existing entry",
				EstImpactMilli: milliOrZero(m.External.Amount),
				AccountID:      analysis.AccountID,
				CreatedAt:      e.now(),
				Action:         ReviewDuplicate{CandidateIDs: ids},
			})
			continue
		}

		milli := milliOrZero(m.External.Amount)
		recs = append(recs, Recommendation{
			ID:             uuid.NewString(),
			Kind:           ActionCreateTransaction,
			Priority:       PriorityMedium,
			Confidence:     confidenceCreateImplied,
			Message:        fmt.Sprintf("Create ledger transaction for %s", m.External.Payee),
			Reason:         "the amount lines up with the balance discrepancy and no candidate remains",
			EstImpactMilli: milli,
			AccountID:      analysis.AccountID,
			CreatedAt:      e.now(),
			Action: CreateTransaction{
				Date:        m.External.Date,
				AmountMilli: milli,
				Payee:       m.External.Payee,
				Memo:        m.External.Memo,
				Cleared:     txn.ClearedStatusCleared,
				Approved:    true,
			},
		})
	}
	return recs
}

// fromUnmatchedInternal nudges stale uncleared ledger entries toward
// cleared state so the next statement can pick them up.
func (e *Engine) fromUnmatchedInternal(analysis *recon.Analysis) []Recommendation {
	var recs []Recommendation
	for _, it := range analysis.UnmatchedInternal {
		if it.Cleared != txn.ClearedStatusUncleared {
			continue
		}
		name := ""
		if it.PayeeName != nil {
			name = *it.PayeeName
		}
		recs = append(recs, Recommendation{
			ID:             uuid.NewString(),
			Kind:           ActionUpdateCleared,
			Priority:       PriorityLow,
			Confidence:     confidenceUpdateCleared,
			Message:        fmt.Sprintf("Mark %s (%s) cleared if it has settled", name, money.Display(it.AmountMilli, analysis.Currency)),
			Reason:         "uncleared ledger transaction did not appear on the statement",
			EstImpactMilli: it.AmountMilli,
			AccountID:      analysis.AccountID,
			CreatedAt:      e.now(),
			Action: UpdateCleared{
				TransactionID: it.ID,
				Cleared:       txn.ClearedStatusCleared,
			},
		})
	}
	return recs
}

func priorityForSeverity(s recon.Severity) Priority {
	switch s {
	case recon.SeverityCritical:
		return PriorityHigh
	case recon.SeverityWarning:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

func confidenceForInsight(k recon.InsightKind) float64 {
	switch k {
	case recon.InsightRepeatAmount:
		return confidenceReviewRepeat
	case recon.InsightNearMatch:
		return confidenceReviewNear
	case recon.InsightAnomaly:
		return confidenceReviewAnomaly
	default:
		return confidenceReviewDefault
	}
}

// candidateIDs collects the chosen transaction first, then the remaining
// ranked candidates, without duplicates.
func candidateIDs(best *txn.Internal, candidates []matcher.Candidate) []string {
	var ids []string
	seen := make(map[string]bool)
	if best != nil {
		ids = append(ids, best.ID)
		seen[best.ID] = true
	}
	for _, c := range candidates {
		if !seen[c.Txn.ID] {
			ids = append(ids, c.Txn.ID)
			seen[c.Txn.ID] = true
		}
	}
	return ids
}

// milliOrZero converts a decimal amount to milliunits for impact
// estimation, collapsing unrepresentable values to zero.
func milliOrZero(d decimal.Decimal) int64 {
	milli, err := money.FromDecimal(d)
	if err != nil {
		return 0
	}
	return milli
}
