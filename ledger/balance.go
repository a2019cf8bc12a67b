/*
balance.go - The balance fold

PURPOSE:
  Derives a party's balance from its complete entry log. This is the single
  contract every writer and reader goes through:

    balance(party) = Σ Classify(e) for all e in entries(party)

  The fold is a pure function of the entry set: no hidden dependence on
  insertion order, no state kept between calls. Computing it twice over the
  same set yields the same decimal, and disjoint sets add.

AS-OF BALANCES:
  ReduceAsOf excludes entries dated strictly after the cut-off. Business
  dates are day-granular: a record stamped mid-afternoon still belongs to
  that day's window, so the comparison drops the time of day. Callers that
  want "balance today" pass no cut-off and get the fold over everything.

NUMERIC SEMANTICS:
  decimal.Decimal end to end. Conversion to float happens only at the
  presentation boundary (API DTOs render strings).

SEE ALSO:
  - classify.go: The sign table applied to each entry
  - statement.go: The same fold, restricted to a display window
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// Reduce folds the complete entry set into a balance.
// Any entry the classifier rejects aborts the fold; a bad record is never
// silently dropped from the sum.
func Reduce(entries []Entry) (decimal.Decimal, error) {
	balance := decimal.Zero
	for _, e := range entries {
		effect, err := Classify(e)
		if err != nil {
			return decimal.Zero, err
		}
		balance = balance.Add(effect)
	}
	return balance, nil
}

// dateOnly drops the time-of-day component so cut-off and range checks
// compare calendar days, not instants.
func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ReduceAsOf folds only entries dated on or before asOf, compared at day
// granularity.
func ReduceAsOf(entries []Entry, asOf time.Time) (decimal.Decimal, error) {
	balance := decimal.Zero
	for _, e := range entries {
		if dateOnly(e.Date).After(dateOnly(asOf)) {
			continue
		}
		effect, err := Classify(e)
		if err != nil {
			return decimal.Zero, err
		}
		balance = balance.Add(effect)
	}
	return balance, nil
}
