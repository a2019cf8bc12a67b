/*
statement.go - Merged, ordered account statement ("ekstre")

PURPOSE:
  Builds the human-auditable statement for a party: invoices and payments
  merged into one list, newest first, each line annotated with its signed
  effect, a label, and the running subtotal.

ORDERING:
  Lines are sorted chronologically for the running subtotal, then presented
  newest-first. Ties on the same date break on the store-assigned creation
  sequence, so the order is stable across recomputation.

FILTERS:
  - Type: all | invoice | payment
  - Date range: inclusive on both bounds, compared at day granularity
  The running total always equals Reduce over the filtered window.

SELECTION:
  A caller may mark a subset of lines selected for partial export. Selection
  affects rendering only; totals are computed over the full filtered window.
*/
package ledger

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// FILTER
// =============================================================================

type TypeFilter string

const (
	FilterAll     TypeFilter = "all"
	FilterInvoice TypeFilter = "invoice"
	FilterPayment TypeFilter = "payment"
)

// StatementFilter narrows the statement window. Zero value means everything.
type StatementFilter struct {
	Type TypeFilter
	From *time.Time // inclusive
	To   *time.Time // inclusive
}

func (f StatementFilter) matches(e Entry) bool {
	switch f.Type {
	case FilterInvoice:
		if e.Kind != EntryInvoice {
			return false
		}
	case FilterPayment:
		if e.Kind != EntryPayment {
			return false
		}
	}
	if f.From != nil && dateOnly(e.Date).Before(dateOnly(*f.From)) {
		return false
	}
	if f.To != nil && dateOnly(e.Date).After(dateOnly(*f.To)) {
		return false
	}
	return true
}

// =============================================================================
// STATEMENT
// =============================================================================

// StatementLine is one rendered row of the statement.
type StatementLine struct {
	Entry    Entry
	Label    string
	Effect   decimal.Decimal // signed contribution of this line
	Running  decimal.Decimal // subtotal up to and including this line
	Selected bool
}

type Statement struct {
	PartyID PartyID
	Lines   []StatementLine // newest first

	// Total is the fold over the filtered window, independent of selection.
	Total decimal.Decimal
}

// BuildStatement merges and orders the entries for display.
// Entries failing classification abort the build; a statement never hides a
// malformed record inside an unexplained subtotal.
func BuildStatement(partyID PartyID, entries []Entry, filter StatementFilter) (Statement, error) {
	var window []Entry
	for _, e := range entries {
		if filter.matches(e) {
			window = append(window, e)
		}
	}

	// Chronological order for the running subtotal: date, then creation seq.
	sort.SliceStable(window, func(i, j int) bool {
		if !window[i].Date.Equal(window[j].Date) {
			return window[i].Date.Before(window[j].Date)
		}
		return window[i].Seq < window[j].Seq
	})

	lines := make([]StatementLine, 0, len(window))
	running := decimal.Zero
	for _, e := range window {
		effect, err := Classify(e)
		if err != nil {
			return Statement{}, err
		}
		running = running.Add(effect)
		lines = append(lines, StatementLine{
			Entry:   e,
			Label:   Label(e.Kind, e.Direction),
			Effect:  effect,
			Running: running,
		})
	}

	// Present newest first.
	for i, j := 0, len(lines)-1; i < j; i, j = i+1, j-1 {
		lines[i], lines[j] = lines[j], lines[i]
	}

	return Statement{
		PartyID: partyID,
		Lines:   lines,
		Total:   running,
	}, nil
}

// Select marks the lines whose entry IDs appear in ids. Used for partial
// export; the statement total is untouched.
func (s *Statement) Select(ids map[string]bool) {
	for i := range s.Lines {
		s.Lines[i].Selected = ids[s.Lines[i].Entry.ID]
	}
}

// SelectedLines returns only the marked lines, preserving order.
func (s *Statement) SelectedLines() []StatementLine {
	var out []StatementLine
	for _, l := range s.Lines {
		if l.Selected {
			out = append(out, l)
		}
	}
	return out
}
