/*
store.go - Persistence interfaces

PURPOSE:
  Defines the contract between the domain services and the database. Two
  implementations exist: an in-memory store (ledger/store) for tests and
  development, and a SQLite store (store/sqlite) for production.

THE BALANCE CACHE CONTRACT:
  Parties carry a cached balance column. The cache is written ONLY by
  RecomputeBalance, which re-derives the value from the invoice/payment rows
  visible to the current store transaction. There is no read-add-write path:
  two concurrent writers cannot both apply a delta to a stale value, because
  neither ever applies a delta at all.

CONDITIONAL UPDATES:
  SetOrderStatus and SetInvoiceStatus are compare-and-swap on the current
  status. Two tabs racing to flip the same record: one wins, the other gets
  ErrConcurrentModification (or ErrOrderFinalized if it re-reads first).

ATOMIC UNITS:
  TxStore.WithTx runs a function against a transactional view. Order
  approval (invoice insert + status flip + cache recompute) happens inside
  one WithTx: if any step fails, none is visible.
*/
package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Store handles persistence for all ledger collections.
// Every method is tenant-scoped by CompanyID.
type Store interface {
	// Companies
	CreateCompany(ctx context.Context, c Company) error
	GetCompany(ctx context.Context, id CompanyID) (*Company, error)
	ListCompanies(ctx context.Context) ([]Company, error)

	// Products
	CreateProduct(ctx context.Context, p Product) error
	GetProduct(ctx context.Context, companyID CompanyID, id ProductID) (*Product, error)
	ListProducts(ctx context.Context, companyID CompanyID) ([]Product, error)

	// Parties
	CreateParty(ctx context.Context, p Party) error
	GetParty(ctx context.Context, companyID CompanyID, id PartyID) (*Party, error)
	ListParties(ctx context.Context, companyID CompanyID) ([]Party, error)
	UpdatePartyContact(ctx context.Context, companyID CompanyID, id PartyID, name, email, phone string) error

	// DeleteParty removes a party with no ledger history.
	// Returns ErrPartyHasHistory if any invoice or payment references it.
	DeleteParty(ctx context.Context, companyID CompanyID, id PartyID) error
	PartyHasHistory(ctx context.Context, companyID CompanyID, id PartyID) (bool, error)

	// Invoices
	// InsertInvoice returns ErrDuplicatePosting when the invoice carries an
	// OrderID that already posted one.
	InsertInvoice(ctx context.Context, inv Invoice) (Invoice, error)
	GetInvoice(ctx context.Context, companyID CompanyID, id InvoiceID) (*Invoice, error)
	InvoicesByParty(ctx context.Context, companyID CompanyID, partyID PartyID) ([]Invoice, error)

	// SetInvoiceStatus flips status only if the current status equals from,
	// mirroring SetOrderStatus. Returns ErrConcurrentModification when a
	// racing writer got there first.
	SetInvoiceStatus(ctx context.Context, companyID CompanyID, id InvoiceID, from, to InvoiceStatus) error
	DeleteInvoice(ctx context.Context, companyID CompanyID, id InvoiceID) error

	// Payments
	InsertPayment(ctx context.Context, p Payment) (Payment, error)
	GetPayment(ctx context.Context, companyID CompanyID, id PaymentID) (*Payment, error)
	PaymentsByParty(ctx context.Context, companyID CompanyID, partyID PartyID) ([]Payment, error)
	DeletePayment(ctx context.Context, companyID CompanyID, id PaymentID) error

	// Orders
	CreateOrder(ctx context.Context, o Order) error
	GetOrder(ctx context.Context, companyID CompanyID, id OrderID) (*Order, error)
	ListOrders(ctx context.Context, companyID CompanyID) ([]Order, error)

	// SaveOrderLines replaces the lines and derived total of an open order.
	SaveOrderLines(ctx context.Context, companyID CompanyID, id OrderID, lines []OrderLine, total decimal.Decimal) error

	// SetOrderStatus flips status only if the current status equals from.
	// Returns ErrConcurrentModification when the condition fails.
	SetOrderStatus(ctx context.Context, companyID CompanyID, id OrderID, from, to OrderStatus, reason string) error

	// Ledger reads
	// EntriesByParty returns the classified entry log for a party:
	// contributing invoices (posted/paid) and all payments, in creation order.
	EntriesByParty(ctx context.Context, companyID CompanyID, partyID PartyID) ([]Entry, error)

	// RecomputeBalance re-derives the party balance from the rows visible to
	// this store (or store transaction), persists it to the cache column and
	// returns it. The only writer of Party.Balance.
	RecomputeBalance(ctx context.Context, companyID CompanyID, partyID PartyID) (decimal.Decimal, error)
}

// TxStore wraps Store with transaction support for the atomic units
// (order approval, record deletion with cache recompute).
type TxStore interface {
	Store

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back; otherwise it is committed.
	WithTx(ctx context.Context, fn func(Store) error) error
}

// Clock abstracts time for deterministic tests.
type Clock func() time.Time

// SystemClock is the production clock.
func SystemClock() time.Time { return time.Now().UTC() }
