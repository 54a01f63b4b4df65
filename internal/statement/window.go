package statement

import (
	"time"

	"github.com/mkallert/bankrec-backend/internal/domain/txn"
)

// WindowExternals keeps the statement rows dated within [start, end].
// Both boundaries are inclusive and compared at calendar-day resolution,
// so a transaction dated exactly on a boundary is kept.
func WindowExternals(txns []txn.External, start, end time.Time) []txn.External {
	var out []txn.External
	for _, t := range txns {
		if inWindow(t.Date, start, end) {
			out = append(out, t)
		}
	}
	return out
}

// WindowInternals keeps the ledger transactions dated within [start, end],
// with the same inclusive calendar-day boundaries as WindowExternals.
func WindowInternals(txns []txn.Internal, start, end time.Time) []txn.Internal {
	var out []txn.Internal
	for _, t := range txns {
		if inWindow(t.Date, start, end) {
			out = append(out, t)
		}
	}
	return out
}

func inWindow(date, start, end time.Time) bool {
	d := truncateDay(date)
	return !d.Before(truncateDay(start)) && !d.After(truncateDay(end))
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
