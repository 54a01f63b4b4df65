package recommend

import (
	"time"

	"github.com/mkallert/bankrec-backend/internal/domain/txn"
)

// ActionKind discriminates the closed set of executable action types.
type ActionKind string

const (
	ActionCreateTransaction ActionKind = "create_transaction"
	ActionUpdateCleared     ActionKind = "update_cleared"
	ActionReviewDuplicate   ActionKind = "review_duplicate"
	ActionManualReview      ActionKind = "manual_review"
)

// Action is the kind-specific payload of a recommendation. The variants
// below are the only implementations; the unexported method keeps the set
// closed so a type switch over them is exhaustive.
type Action interface {
	Kind() ActionKind
	isAction()
}

// CreateTransaction carries everything needed to construct the missing
// ledger transaction for an unmatched statement row.
type CreateTransaction struct {
	Date        time.Time         `json:"date"`
	AmountMilli int64             `json:"amount_milli"`
	Payee       string            `json:"payee"`
	Memo        string            `json:"memo,omitempty"`
	Cleared     txn.ClearedStatus `json:"cleared"`
	Approved    bool              `json:"approved"`
}

func (CreateTransaction) Kind() ActionKind { return ActionCreateTransaction }
func (CreateTransaction) isAction()        {}

// UpdateCleared moves an existing ledger transaction to a new cleared state.
type UpdateCleared struct {
	TransactionID string            `json:"transaction_id"`
	Cleared       txn.ClearedStatus `json:"cleared"`
}

func (UpdateCleared) Kind() ActionKind { return ActionUpdateCleared }
func (UpdateCleared) isAction()        {}

// ReviewDuplicate points a human at candidate ledger transactions that may
// already cover a statement row.
type ReviewDuplicate struct {
	CandidateIDs []string `json:"candidate_ids"`
}

func (ReviewDuplicate) Kind() ActionKind { return ActionReviewDuplicate }
func (ReviewDuplicate) isAction()        {}

// ManualReview asks a human to look at a detected pattern that has no
// mechanical fix.
type ManualReview struct {
	InsightID string `json:"insight_id"`
}

func (ManualReview) Kind() ActionKind { return ActionManualReview }
func (ManualReview) isAction()        {}

// Priority orders recommendations for presentation and execution.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// rank maps priorities to sortable weights.
func (p Priority) rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// Recommendation is a typed, executable suggestion derived from matches and
// insights.
type Recommendation struct {
	ID              string     `json:"id"`
	Kind            ActionKind `json:"kind"`
	Priority        Priority   `json:"priority"`
	Confidence      float64    `json:"confidence"`
	Message         string     `json:"message"`
	Reason          string     `json:"reason"`
	EstImpactMilli  int64      `json:"est_impact_milli"`
	AccountID       string     `json:"account_id"`
	SourceInsightID string     `json:"source_insight_id,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	Action          Action     `json:"params"`
}
