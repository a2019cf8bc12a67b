/*
classify.go - The fixed sign table

PURPOSE:
  Assigns the signed balance effect to each raw record. The convention is
  "amount the party owes us":

    Invoice  sales     +amount   (their debt to us grows)
    Invoice  purchase  -amount   (our debt to them grows)
    Payment  in        -amount   (collection reduces their debt)
    Payment  out       +amount   (disbursement reduces our debt / grows credit)

  This table is hard-coded in exactly one place. Every writer and every
  reader of balances goes through Classify; no caller flips signs itself.

ERROR CONDITIONS:
  - Unknown direction: rejected, never silently treated as zero
  - Negative amount: rejected before any write

SEE ALSO:
  - balance.go: Folds classified effects into a balance
  - statement.go: Annotates statement lines with the effect
*/
package ledger

import "github.com/shopspring/decimal"

// Classify returns the signed contribution of an entry to the party balance.
func Classify(e Entry) (decimal.Decimal, error) {
	if e.Amount.IsNegative() {
		return decimal.Zero, &ValidationError{
			Field:  "amount",
			Reason: "amount must be non-negative",
			Value:  e.Amount.String(),
		}
	}

	switch e.Kind {
	case EntryInvoice:
		switch InvoiceDirection(e.Direction) {
		case InvoiceSales:
			return e.Amount, nil
		case InvoicePurchase:
			return e.Amount.Neg(), nil
		}
	case EntryPayment:
		switch PaymentDirection(e.Direction) {
		case PaymentIn:
			return e.Amount.Neg(), nil
		case PaymentOut:
			return e.Amount, nil
		}
	}

	return decimal.Zero, &ValidationError{
		Field:  "direction",
		Reason: "unknown record kind or direction",
		Value:  string(e.Kind) + "/" + e.Direction,
	}
}

// ClassifyInvoice validates an invoice and returns its signed effect.
// Status is not consulted here; contribution gating is the caller's job
// (see Invoice.Contributes).
func ClassifyInvoice(inv Invoice) (decimal.Decimal, error) {
	return Classify(Entry{
		Kind:      EntryInvoice,
		Direction: string(inv.Direction),
		Amount:    inv.Amount,
	})
}

// ClassifyPayment validates a payment and returns its signed effect.
func ClassifyPayment(p Payment) (decimal.Decimal, error) {
	return Classify(Entry{
		Kind:      EntryPayment,
		Direction: string(p.Direction),
		Amount:    p.Amount,
	})
}

// Label returns the human label for a statement line.
func Label(kind EntryKind, direction string) string {
	switch kind {
	case EntryInvoice:
		if InvoiceDirection(direction) == InvoicePurchase {
			return "Purchase Invoice"
		}
		return "Sales Invoice"
	case EntryPayment:
		if PaymentDirection(direction) == PaymentOut {
			return "Payment"
		}
		return "Collection"
	}
	return "Unknown"
}
