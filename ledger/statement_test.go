package ledger_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/cari-ledger/ledger"
)

// =============================================================================
// ORDERING TESTS
// =============================================================================

func TestBuildStatement_NewestFirst(t *testing.T) {
	// GIVEN: Entries spread over four days
	// WHEN: The statement is built
	// THEN: Lines appear newest first

	st, err := ledger.BuildStatement("party-1", mixedLedger(), ledger.StatementFilter{})
	require.NoError(t, err)
	require.Len(t, st.Lines, 4)

	for i := 0; i < len(st.Lines)-1; i++ {
		assert.False(t, st.Lines[i].Entry.Date.Before(st.Lines[i+1].Entry.Date),
			"line %d older than line %d", i, i+1)
	}
	assert.Equal(t, day(4), st.Lines[0].Entry.Date)
}

func TestBuildStatement_SameDate_TieBreaksOnSeq(t *testing.T) {
	// GIVEN: Two entries sharing one date, created in a known order
	// WHEN: The statement is built
	// THEN: The later-created entry renders above the earlier one

	entries := []ledger.Entry{
		entry(ledger.EntryPayment, "in", "400", day(1), 2),
		entry(ledger.EntryInvoice, "sales", "1000", day(1), 1),
	}
	st, err := ledger.BuildStatement("party-1", entries, ledger.StatementFilter{})
	require.NoError(t, err)
	require.Len(t, st.Lines, 2)

	assert.Equal(t, int64(2), st.Lines[0].Entry.Seq)
	assert.Equal(t, int64(1), st.Lines[1].Entry.Seq)

	// Running subtotal follows creation order: sale first, then collection.
	assert.True(t, st.Lines[1].Running.Equal(decimal.RequireFromString("1000")))
	assert.True(t, st.Lines[0].Running.Equal(decimal.RequireFromString("600")))
}

func TestBuildStatement_RunningSubtotal(t *testing.T) {
	// GIVEN: The mixed four-entry log
	// WHEN: The statement is built
	// THEN: Each line's running value is the fold up to that line, and the
	//       newest line carries the statement total

	st, err := ledger.BuildStatement("party-1", mixedLedger(), ledger.StatementFilter{})
	require.NoError(t, err)
	require.Len(t, st.Lines, 4)

	// Oldest to newest: 1000, 600, 0, 100.
	want := []string{"100", "0", "600", "1000"}
	for i, w := range want {
		assert.True(t, st.Lines[i].Running.Equal(decimal.RequireFromString(w)),
			"line %d running = %s, want %s", i, st.Lines[i].Running, w)
	}
	assert.True(t, st.Total.Equal(st.Lines[0].Running))
}

// =============================================================================
// FILTER TESTS
// =============================================================================

func TestBuildStatement_TypeFilter_InvoicesOnly(t *testing.T) {
	// GIVEN: The mixed log
	// WHEN: Filtered to invoices
	// THEN: Only invoice lines remain and the total is their fold: 1000 - 600

	st, err := ledger.BuildStatement("party-1", mixedLedger(), ledger.StatementFilter{
		Type: ledger.FilterInvoice,
	})
	require.NoError(t, err)
	require.Len(t, st.Lines, 2)
	for _, l := range st.Lines {
		assert.Equal(t, ledger.EntryInvoice, l.Entry.Kind)
	}
	assert.True(t, st.Total.Equal(decimal.RequireFromString("400")),
		"total = %s, want 400", st.Total)
}

func TestBuildStatement_TypeFilter_PaymentsOnly(t *testing.T) {
	st, err := ledger.BuildStatement("party-1", mixedLedger(), ledger.StatementFilter{
		Type: ledger.FilterPayment,
	})
	require.NoError(t, err)
	require.Len(t, st.Lines, 2)
	assert.True(t, st.Total.Equal(decimal.RequireFromString("-300")),
		"total = %s, want -300", st.Total)
}

func TestBuildStatement_DateRange_InclusiveBounds(t *testing.T) {
	// GIVEN: Entries on days 1..4
	// WHEN: Filtered to [day 2, day 3]
	// THEN: Exactly the collection and the purchase remain

	from, to := day(2), day(3)
	st, err := ledger.BuildStatement("party-1", mixedLedger(), ledger.StatementFilter{
		From: &from,
		To:   &to,
	})
	require.NoError(t, err)
	require.Len(t, st.Lines, 2)
	assert.True(t, st.Total.Equal(decimal.RequireFromString("-1000")),
		"total = %s, want -1000", st.Total)
}

func TestBuildStatement_RangeEndingToday_KeepsTimestampedEntry(t *testing.T) {
	// GIVEN: An entry stamped mid-afternoon on the range's last day
	// WHEN: Filtered to a window ending on that day
	// THEN: The entry stays in; range bounds compare calendar days

	afternoon := day(3).Add(15*time.Hour + 42*time.Minute)
	entries := []ledger.Entry{
		entry(ledger.EntryInvoice, "sales", "100", afternoon, 1),
	}

	from, to := day(1), day(3)
	st, err := ledger.BuildStatement("party-1", entries, ledger.StatementFilter{
		From: &from,
		To:   &to,
	})
	require.NoError(t, err)
	require.Len(t, st.Lines, 1)
	assert.True(t, st.Total.Equal(decimal.RequireFromString("100")))
}

func TestBuildStatement_WindowTotal_MatchesReduceOverWindow(t *testing.T) {
	// The statement total and the reducer must never disagree on the same
	// window.
	from := day(2)
	st, err := ledger.BuildStatement("party-1", mixedLedger(), ledger.StatementFilter{From: &from})
	require.NoError(t, err)

	var window []ledger.Entry
	for _, e := range mixedLedger() {
		if !e.Date.Before(from) {
			window = append(window, e)
		}
	}
	folded, err := ledger.Reduce(window)
	require.NoError(t, err)
	assert.True(t, st.Total.Equal(folded))
}

// =============================================================================
// SELECTION TESTS
// =============================================================================

func TestStatement_Select_DoesNotAffectTotal(t *testing.T) {
	// GIVEN: A built statement
	// WHEN: A subset of lines is selected for export
	// THEN: Rendering changes, totals do not

	st, err := ledger.BuildStatement("party-1", mixedLedger(), ledger.StatementFilter{})
	require.NoError(t, err)
	before := st.Total

	st.Select(map[string]bool{st.Lines[0].Entry.ID: true})

	assert.True(t, st.Total.Equal(before))
	selected := st.SelectedLines()
	require.Len(t, selected, 1)
	assert.Equal(t, st.Lines[0].Entry.ID, selected[0].Entry.ID)
}

func TestBuildStatement_LinesCarryLabels(t *testing.T) {
	st, err := ledger.BuildStatement("party-1", mixedLedger(), ledger.StatementFilter{})
	require.NoError(t, err)

	labels := make(map[string]bool)
	for _, l := range st.Lines {
		labels[l.Label] = true
	}
	assert.True(t, labels["Sales Invoice"])
	assert.True(t, labels["Purchase Invoice"])
	assert.True(t, labels["Collection"])
	assert.True(t, labels["Payment"])
}
