package statement

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkallert/bankrec-backend/internal/domain/txn"
)

func day(d int) time.Time {
	return time.Date(2026, 3, d, 0, 0, 0, 0, time.UTC)
}

func TestWindowExternals_InclusiveBoundaries(t *testing.T) {
	txns := []txn.External{
		{ID: "before", Date: day(4)},
		{ID: "start", Date: day(5)},
		{ID: "inside", Date: day(10)},
		{ID: "end", Date: day(15)},
		{ID: "after", Date: day(16)},
	}

	got := WindowExternals(txns, day(5), day(15))

	require.Len(t, got, 3)
	assert.Equal(t, "start", got[0].ID)
	assert.Equal(t, "inside", got[1].ID)
	assert.Equal(t, "end", got[2].ID)
}

func TestWindowInternals_InclusiveBoundaries(t *testing.T) {
	txns := []txn.Internal{
		{ID: "before", Date: day(4)},
		{ID: "start", Date: day(5)},
		{ID: "end", Date: day(15)},
		{ID: "after", Date: day(16)},
	}

	got := WindowInternals(txns, day(5), day(15))

	require.Len(t, got, 2)
	assert.Equal(t, "start", got[0].ID)
	assert.Equal(t, "end", got[1].ID)
}

func TestWindow_IgnoresTimeOfDay(t *testing.T) {
	// A transaction late on the boundary day is still inside the window
	late := time.Date(2026, 3, 15, 23, 59, 0, 0, time.UTC)
	txns := []txn.External{{ID: "late", Date: late}}

	got := WindowExternals(txns, day(5), day(15))

	require.Len(t, got, 1)
	assert.Equal(t, "late", got[0].ID)
}

func TestWindow_EmptyInput(t *testing.T) {
	assert.Empty(t, WindowExternals(nil, day(5), day(15)))
	assert.Empty(t, WindowInternals(nil, day(5), day(15)))
}
