package matcher

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkallert/bankrec-backend/internal/domain/txn"
)

var baseDate = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

func makeExternal(id, amount, payeeName string, date time.Time) txn.External {
	return txn.External{
		ID:     id,
		Date:   date,
		Amount: decimal.RequireFromString(amount),
		Payee:  payeeName,
	}
}

func makeInternal(id string, amountMilli int64, payeeName string, date time.Time, cleared txn.ClearedStatus) txn.Internal {
	return txn.Internal{
		ID:          id,
		AccountID:   "acct-1",
		Date:        date,
		AmountMilli: amountMilli,
		PayeeName:   &payeeName,
		Cleared:     cleared,
	}
}

func TestAmountsMatch(t *testing.T) {
	tests := []struct {
		name      string
		ext       string
		milli     int64
		tolerance int
		expected  bool
	}{
		{"exact", "-22.22", -22220, 0, true},
		{"one cent off, zero tolerance", "-22.23", -22220, 0, false},
		{"one cent off, one cent tolerance", "-22.23", -22220, 1, true},
		{"two cents off, one cent tolerance", "-22.24", -22220, 1, false},
		{"boundary is inclusive", "-22.27", -22220, 5, true},
		{"zero amounts", "0", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AmountsMatch(decimal.RequireFromString(tt.ext), tt.milli, tt.tolerance)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestDatesMatch(t *testing.T) {
	assert.True(t, DatesMatch(baseDate, baseDate, 0))
	assert.True(t, DatesMatch(baseDate, baseDate.AddDate(0, 0, 3), 3))
	assert.False(t, DatesMatch(baseDate, baseDate.AddDate(0, 0, 4), 3))

	// Time of day is ignored: 23:00 vs next morning is one day apart
	late := time.Date(2026, 3, 10, 23, 0, 0, 0, time.UTC)
	morning := time.Date(2026, 3, 11, 1, 0, 0, 0, time.UTC)
	assert.False(t, DatesMatch(late, morning, 0))
	assert.True(t, DatesMatch(late, morning, 1))
}

func TestScoreCandidate_AmountGate(t *testing.T) {
	// Arrange: perfect date and payee, wrong amount
	ext := makeExternal("e1", "-50.00", "Starbucks", baseDate)
	it := makeInternal("t1", -49000, "Starbucks", baseDate, txn.ClearedStatusUncleared)

	// Act
	score, reasons := ScoreCandidate(ext, it, DefaultConfig())

	// Assert: the gate zeroes everything
	assert.Equal(t, 0, score)
	assert.Empty(t, reasons)
}

func TestScoreCandidate_FullScore(t *testing.T) {
	ext := makeExternal("e1", "-50.00", "Starbucks #42", baseDate)
	it := makeInternal("t1", -50000, "STARBUCKS 42", baseDate.AddDate(0, 0, 1), txn.ClearedStatusUncleared)

	score, reasons := ScoreCandidate(ext, it, DefaultConfig())

	assert.Equal(t, 100, score)
	assert.Len(t, reasons, 3)
}

func TestScoreCandidate_AmountAndDateOnly(t *testing.T) {
	ext := makeExternal("e1", "-50.00", "Starbucks", baseDate)
	it := makeInternal("t1", -50000, "Exxon", baseDate, txn.ClearedStatusUncleared)

	score, _ := ScoreCandidate(ext, it, DefaultConfig())

	assert.Equal(t, 80, score)
}

func TestScoreCandidate_AmountOnly(t *testing.T) {
	ext := makeExternal("e1", "-50.00", "Starbucks", baseDate)
	it := makeInternal("t1", -50000, "Exxon", baseDate.AddDate(0, 0, 10), txn.ClearedStatusUncleared)

	score, _ := ScoreCandidate(ext, it, DefaultConfig())

	assert.Equal(t, 40, score)
}

func TestFindCandidates_ExcludesUsedAndOppositeSign(t *testing.T) {
	ext := makeExternal("e1", "-50.00", "Starbucks", baseDate)
	pool := []txn.Internal{
		makeInternal("used", -50000, "Starbucks", baseDate, txn.ClearedStatusUncleared),
		makeInternal("refund", 50000, "Starbucks", baseDate, txn.ClearedStatusUncleared),
		makeInternal("ok", -50000, "Starbucks", baseDate, txn.ClearedStatusUncleared),
	}
	used := map[string]bool{"used": true}

	candidates := FindCandidates(ext, pool, used, DefaultConfig())

	require.Len(t, candidates, 1)
	assert.Equal(t, "ok", candidates[0].Txn.ID)
}

func TestFindCandidates_Ordering(t *testing.T) {
	// Arrange: three equal-amount candidates that differ in date proximity
	// and cleared status
	ext := makeExternal("e1", "-50.00", "Starbucks", baseDate)
	pool := []txn.Internal{
		makeInternal("cleared-same-day", -50000, "Starbucks", baseDate, txn.ClearedStatusCleared),
		makeInternal("uncleared-next-day", -50000, "Starbucks", baseDate.AddDate(0, 0, 1), txn.ClearedStatusUncleared),
		makeInternal("uncleared-same-day", -50000, "Starbucks", baseDate, txn.ClearedStatusUncleared),
	}

	// Act
	candidates := FindCandidates(ext, pool, nil, DefaultConfig())

	// Assert: equal scores break ties on priority, then date proximity
	require.Len(t, candidates, 3)
	assert.Equal(t, "uncleared-same-day", candidates[0].Txn.ID)
	assert.Equal(t, "uncleared-next-day", candidates[1].Txn.ID)
	assert.Equal(t, "cleared-same-day", candidates[2].Txn.ID)
}

func TestClassify_Tiers(t *testing.T) {
	cfg := DefaultConfig()

	t.Run("high tier attaches best only", func(t *testing.T) {
		ext := makeExternal("e1", "-50.00", "Starbucks", baseDate)
		pool := []txn.Internal{
			makeInternal("t1", -50000, "Starbucks", baseDate, txn.ClearedStatusUncleared),
		}

		m := Classify(ext, pool, map[string]bool{}, cfg)

		assert.Equal(t, TierHigh, m.Tier)
		require.NotNil(t, m.Best)
		assert.Equal(t, "t1", m.Best.ID)
		assert.Empty(t, m.Candidates)
	})

	t.Run("medium tier carries candidates", func(t *testing.T) {
		// Amount and date match, payee does not: 80 points
		ext := makeExternal("e1", "-50.00", "Starbucks", baseDate)
		pool := []txn.Internal{
			makeInternal("t1", -50000, "Exxon", baseDate, txn.ClearedStatusUncleared),
		}

		m := Classify(ext, pool, map[string]bool{}, cfg)

		assert.Equal(t, TierMedium, m.Tier)
		assert.Equal(t, 80, m.Score)
		require.NotNil(t, m.Best)
		assert.Len(t, m.Candidates, 1)
		assert.Equal(t, "review and choose", m.ActionHint)
	})

	t.Run("low tier has no best", func(t *testing.T) {
		// Amount only: 40 points
		ext := makeExternal("e1", "-50.00", "Starbucks", baseDate)
		pool := []txn.Internal{
			makeInternal("t1", -50000, "Exxon", baseDate.AddDate(0, 0, 20), txn.ClearedStatusUncleared),
		}

		m := Classify(ext, pool, map[string]bool{}, cfg)

		assert.Equal(t, TierLow, m.Tier)
		assert.Nil(t, m.Best)
		assert.Len(t, m.Candidates, 1)
	})

	t.Run("no candidates means none tier", func(t *testing.T) {
		ext := makeExternal("e1", "-50.00", "Starbucks", baseDate)

		m := Classify(ext, nil, map[string]bool{}, cfg)

		assert.Equal(t, TierNone, m.Tier)
		assert.Equal(t, "create in ledger", m.ActionHint)
	})
}

func TestClassify_CapsCandidates(t *testing.T) {
	ext := makeExternal("e1", "-50.00", "Starbucks", baseDate)
	var pool []txn.Internal
	for i := 0; i < 5; i++ {
		pool = append(pool, makeInternal(
			string(rune('a'+i)), -50000, "Exxon", baseDate, txn.ClearedStatusUncleared))
	}

	m := Classify(ext, pool, map[string]bool{}, DefaultConfig())

	assert.Equal(t, TierMedium, m.Tier)
	assert.Len(t, m.Candidates, 3)
}

func TestMatchAll_HighTierConsumesBest(t *testing.T) {
	// Arrange: two identical statement rows, one perfect ledger entry
	ext1 := makeExternal("e1", "-50.00", "Starbucks", baseDate)
	ext2 := makeExternal("e2", "-50.00", "Starbucks", baseDate)
	pool := []txn.Internal{
		makeInternal("t1", -50000, "Starbucks", baseDate, txn.ClearedStatusUncleared),
	}

	// Act
	matches := MatchAll([]txn.External{ext1, ext2}, pool, DefaultConfig())

	// Assert: the first row wins the entry, the second cannot re-use it
	require.Len(t, matches, 2)
	assert.Equal(t, TierHigh, matches[0].Tier)
	assert.Equal(t, "t1", matches[0].Best.ID)
	assert.Equal(t, TierNone, matches[1].Tier)
}

func TestMatchAll_MediumDoesNotConsume(t *testing.T) {
	// Two rows both suggesting the same 80-point candidate
	ext1 := makeExternal("e1", "-50.00", "Starbucks", baseDate)
	ext2 := makeExternal("e2", "-50.00", "Dunkin", baseDate)
	pool := []txn.Internal{
		makeInternal("t1", -50000, "Quick Mart", baseDate, txn.ClearedStatusUncleared),
	}

	matches := MatchAll([]txn.External{ext1, ext2}, pool, DefaultConfig())

	require.Len(t, matches, 2)
	assert.Equal(t, TierMedium, matches[0].Tier)
	assert.Equal(t, TierMedium, matches[1].Tier)
	assert.Equal(t, "t1", matches[0].Best.ID)
	assert.Equal(t, "t1", matches[1].Best.ID)
}

func TestMatchAll_Deterministic(t *testing.T) {
	externals := []txn.External{
		makeExternal("e1", "-50.00", "Starbucks", baseDate),
		makeExternal("e2", "-12.34", "Exxon", baseDate.AddDate(0, 0, 1)),
	}
	pool := []txn.Internal{
		makeInternal("t1", -50000, "Starbucks", baseDate, txn.ClearedStatusUncleared),
		makeInternal("t2", -12340, "Exxon Mobil", baseDate.AddDate(0, 0, 1), txn.ClearedStatusCleared),
	}

	first := MatchAll(externals, pool, DefaultConfig())
	second := MatchAll(externals, pool, DefaultConfig())

	assert.Equal(t, first, second)
}
