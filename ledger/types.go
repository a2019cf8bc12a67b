/*
Package ledger provides the core current-account ("cari") engine.

PURPOSE:
  This package contains the types and algorithms that every screen of the
  invoicing application must share: one sign table, one balance fold, one
  statement builder. The sign arithmetic lives here and ONLY here; callers
  never reimplement it.

KEY CONCEPTS IN THIS FILE (types.go):
  - Party: A customer or vendor with a derived running balance
  - Invoice/Payment: The two raw record kinds that feed the ledger
  - Entry: A classified ledger line (record + signed effect inputs)
  - Order: A customer order that may be posted into an Invoice

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal so repeated sums never drift
  2. Derivation: Balance is always a fold over the entry log; the cached
     balance column is maintained only inside store transactions
  3. Type Safety: Strong typing for IDs prevents mixing party/company IDs
  4. Tenancy: Every record carries a CompanyID and every query is scoped

SEE ALSO:
  - classify.go: The fixed sign table
  - balance.go:  The balance fold
  - statement.go: Merged, ordered statement with running subtotal
  - store.go:    Persistence interfaces
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type CompanyID string
type PartyID string
type InvoiceID string
type PaymentID string
type OrderID string
type ProductID string

// =============================================================================
// PARTY - Customer or vendor current-account entity
// =============================================================================

type PartyKind string

const (
	PartyCustomer PartyKind = "customer"
	PartyVendor   PartyKind = "vendor"
)

// Party is a current-account entity. Balance is a cache of the fold over the
// party's entry log; it is written only by Store.RecomputeBalance inside the
// same store transaction as the write that changed the log.
type Party struct {
	ID        PartyID
	CompanyID CompanyID
	Kind      PartyKind
	Name      string
	Email     string
	Phone     string
	Balance   decimal.Decimal
	CreatedAt time.Time
}

// =============================================================================
// INVOICE
// =============================================================================

type InvoiceDirection string

const (
	InvoiceSales    InvoiceDirection = "sales"    // we sold to the party
	InvoicePurchase InvoiceDirection = "purchase" // we bought from the party
)

type InvoiceStatus string

const (
	InvoiceDraft     InvoiceStatus = "draft"
	InvoicePending   InvoiceStatus = "pending"
	InvoicePosted    InvoiceStatus = "posted"
	InvoicePaid      InvoiceStatus = "paid"
	InvoiceCancelled InvoiceStatus = "cancelled"
)

// Invoice belongs to exactly one Party and one Company. Amount, direction and
// issue date are immutable once the invoice reaches posted; after that only
// status transitions are allowed.
type Invoice struct {
	ID        InvoiceID
	CompanyID CompanyID
	PartyID   PartyID

	// OrderID links an invoice produced by order approval back to its order.
	// The store enforces uniqueness: one order can never post two invoices.
	OrderID OrderID

	Direction InvoiceDirection
	Amount    decimal.Decimal
	IssueDate time.Time
	Status    InvoiceStatus

	// Seq is the store-assigned creation sequence, the stable tie-break for
	// statement ordering when two records share a date.
	Seq       int64
	CreatedAt time.Time
}

// Contributes reports whether the invoice feeds the balance fold.
// Draft, pending and cancelled invoices are invisible to the ledger.
func (i Invoice) Contributes() bool {
	return i.Status == InvoicePosted || i.Status == InvoicePaid
}

// invoiceTransitions is the allowed status graph. Cancelling a posted invoice
// acts as a reversal: the row stops contributing and the cached balance is
// recomputed in the same store transaction.
var invoiceTransitions = map[InvoiceStatus][]InvoiceStatus{
	InvoiceDraft:     {InvoicePending, InvoiceCancelled},
	InvoicePending:   {InvoicePosted, InvoiceCancelled},
	InvoicePosted:    {InvoicePaid, InvoiceCancelled},
	InvoicePaid:      {},
	InvoiceCancelled: {},
}

// ValidInvoiceStatus reports whether s names one of the five invoice
// statuses. Writers reject anything else before it reaches the store;
// a row outside the domain would have no transition out and would be
// invisible to the ledger.
func ValidInvoiceStatus(s InvoiceStatus) bool {
	switch s {
	case InvoiceDraft, InvoicePending, InvoicePosted, InvoicePaid, InvoiceCancelled:
		return true
	}
	return false
}

// CanTransition reports whether an invoice status change is allowed.
func CanTransition(from, to InvoiceStatus) bool {
	for _, next := range invoiceTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// =============================================================================
// PAYMENT
// =============================================================================

type PaymentDirection string

const (
	PaymentIn  PaymentDirection = "in"  // collection: money received from the party
	PaymentOut PaymentDirection = "out" // disbursement: money paid to the party
)

type Payment struct {
	ID        PaymentID
	CompanyID CompanyID
	PartyID   PartyID
	Direction PaymentDirection
	Amount    decimal.Decimal
	Date      time.Time
	Seq       int64
	CreatedAt time.Time
}

// =============================================================================
// ORDER - Customer order, posted into an Invoice on approval
// =============================================================================

type OrderStatus string

const (
	OrderPending          OrderStatus = "pending"
	OrderSellerPriced     OrderStatus = "seller_priced"
	OrderAwaitingApproval OrderStatus = "awaiting_customer_approval"
	OrderApproved         OrderStatus = "approved"
	OrderRejected         OrderStatus = "rejected"
)

// Terminal reports whether no further transition is allowed out of s.
func (s OrderStatus) Terminal() bool {
	return s == OrderApproved || s == OrderRejected
}

// OrderLine is a single priced line. UnitPrice is set by the seller while the
// order is still open; Quantity comes from the customer.
type OrderLine struct {
	ProductID   ProductID
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
}

// Subtotal returns quantity × unit price for the line.
func (l OrderLine) Subtotal() decimal.Decimal {
	return l.Quantity.Mul(l.UnitPrice)
}

type Order struct {
	ID        OrderID
	CompanyID CompanyID
	PartyID   PartyID
	Status    OrderStatus
	Lines     []OrderLine

	// Total is derived from Lines, never hand-edited. SumLines is the only
	// writer.
	Total decimal.Decimal

	RejectionReason string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// SumLines derives the order total from its lines.
func SumLines(lines []OrderLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// =============================================================================
// SUPPORTING RECORDS
// =============================================================================

type Company struct {
	ID        CompanyID
	Name      string
	CreatedAt time.Time
}

type Product struct {
	ID        ProductID
	CompanyID CompanyID
	Name      string
	UnitPrice decimal.Decimal
	CreatedAt time.Time
}

// =============================================================================
// ENTRY - A classified ledger line
// =============================================================================

// EntryKind distinguishes the two record kinds feeding the ledger.
type EntryKind string

const (
	EntryInvoice EntryKind = "invoice"
	EntryPayment EntryKind = "payment"
)

// Entry is the uniform shape the reducer and statement builder consume.
// Amount is the non-negative magnitude; the signed effect comes from
// Classify and is never stored.
type Entry struct {
	ID        string
	CompanyID CompanyID
	PartyID   PartyID
	Kind      EntryKind
	Direction string
	Amount    decimal.Decimal
	Date      time.Time
	Seq       int64
}
