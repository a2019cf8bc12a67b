package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/cari-ledger/ledger"
	"github.com/warp/cari-ledger/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func seedParty(t *testing.T, store *sqlite.Store) (ledger.CompanyID, ledger.PartyID) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()

	companyID := ledger.CompanyID("co-1")
	require.NoError(t, store.CreateCompany(ctx, ledger.Company{
		ID: companyID, Name: "Acme Trading", CreatedAt: now,
	}))

	partyID := ledger.PartyID("party-1")
	require.NoError(t, store.CreateParty(ctx, ledger.Party{
		ID: partyID, CompanyID: companyID, Kind: ledger.PartyCustomer,
		Name: "Globex", Balance: decimal.Zero, CreatedAt: now,
	}))
	return companyID, partyID
}

func dated(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func amt(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// =============================================================================
// ROUND TRIPS
// =============================================================================

func TestStore_PartyRoundTrip(t *testing.T) {
	store := newTestStore(t)
	companyID, partyID := seedParty(t, store)
	ctx := context.Background()

	got, err := store.GetParty(ctx, companyID, partyID)
	require.NoError(t, err)
	assert.Equal(t, "Globex", got.Name)
	assert.True(t, got.Balance.IsZero())

	require.NoError(t, store.UpdatePartyContact(ctx, companyID, partyID, "Globex Corp", "ap@globex.test", "555"))
	got, err = store.GetParty(ctx, companyID, partyID)
	require.NoError(t, err)
	assert.Equal(t, "Globex Corp", got.Name)
	assert.Equal(t, "ap@globex.test", got.Email)
}

func TestStore_GetParty_WrongCompany_NotFound(t *testing.T) {
	// Tenancy: a record is invisible outside its company.
	store := newTestStore(t)
	_, partyID := seedParty(t, store)

	_, err := store.GetParty(context.Background(), "co-other", partyID)
	require.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestStore_InvoiceRoundTrip(t *testing.T) {
	store := newTestStore(t)
	companyID, partyID := seedParty(t, store)
	ctx := context.Background()

	inv, err := store.InsertInvoice(ctx, ledger.Invoice{
		ID: "inv-1", CompanyID: companyID, PartyID: partyID,
		Direction: ledger.InvoiceSales, Amount: amt("1000.00"),
		IssueDate: dated(2025, time.March, 1), Status: ledger.InvoicePosted,
		CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	assert.Positive(t, inv.Seq, "insert must assign a creation sequence")

	got, err := store.GetInvoice(ctx, companyID, "inv-1")
	require.NoError(t, err)
	assert.True(t, got.Amount.Equal(amt("1000.00")))
	assert.Equal(t, ledger.InvoicePosted, got.Status)
	assert.Equal(t, inv.Seq, got.Seq)
}

// =============================================================================
// DOUBLE-POSTING GUARD
// =============================================================================

func TestStore_OneInvoicePerOrder(t *testing.T) {
	// GIVEN: An invoice already posted for order ord-1
	// WHEN: A second invoice for the same order is inserted
	// THEN: ErrDuplicatePosting from the unique index

	store := newTestStore(t)
	companyID, partyID := seedParty(t, store)
	ctx := context.Background()

	base := ledger.Invoice{
		CompanyID: companyID, PartyID: partyID, OrderID: "ord-1",
		Direction: ledger.InvoiceSales, Amount: amt("100"),
		IssueDate: dated(2025, time.March, 1), Status: ledger.InvoicePosted,
		CreatedAt: time.Now().UTC(),
	}

	first := base
	first.ID = "inv-1"
	_, err := store.InsertInvoice(ctx, first)
	require.NoError(t, err)

	second := base
	second.ID = "inv-2"
	_, err = store.InsertInvoice(ctx, second)
	require.ErrorIs(t, err, ledger.ErrDuplicatePosting)
}

func TestStore_ManualInvoices_NotLimited(t *testing.T) {
	// Invoices without an order are unconstrained.
	store := newTestStore(t)
	companyID, partyID := seedParty(t, store)
	ctx := context.Background()

	for _, id := range []ledger.InvoiceID{"inv-1", "inv-2", "inv-3"} {
		_, err := store.InsertInvoice(ctx, ledger.Invoice{
			ID: id, CompanyID: companyID, PartyID: partyID,
			Direction: ledger.InvoiceSales, Amount: amt("10"),
			IssueDate: dated(2025, time.March, 1), Status: ledger.InvoicePosted,
			CreatedAt: time.Now().UTC(),
		})
		require.NoError(t, err)
	}
}

// =============================================================================
// ORDER STATUS CAS
// =============================================================================

func TestStore_SetOrderStatus_ConditionalUpdate(t *testing.T) {
	// GIVEN: A pending order
	// WHEN: Two status flips race (simulated by a stale precondition)
	// THEN: Only the flip whose precondition holds succeeds

	store := newTestStore(t)
	companyID, partyID := seedParty(t, store)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, store.CreateOrder(ctx, ledger.Order{
		ID: "ord-1", CompanyID: companyID, PartyID: partyID,
		Status: ledger.OrderPending,
		Lines:  []ledger.OrderLine{{Description: "widgets", Quantity: amt("1"), UnitPrice: amt("10")}},
		Total:  amt("10"), CreatedAt: now, UpdatedAt: now,
	}))

	err := store.SetOrderStatus(ctx, companyID, "ord-1", ledger.OrderPending, ledger.OrderSellerPriced, "")
	require.NoError(t, err)

	// Stale precondition: the order is no longer pending.
	err = store.SetOrderStatus(ctx, companyID, "ord-1", ledger.OrderPending, ledger.OrderRejected, "")
	require.ErrorIs(t, err, ledger.ErrConcurrentModification)

	got, err := store.GetOrder(ctx, companyID, "ord-1")
	require.NoError(t, err)
	assert.Equal(t, ledger.OrderSellerPriced, got.Status)
}

func TestStore_SetInvoiceStatus_ConditionalUpdate(t *testing.T) {
	// GIVEN: A posted invoice both clients read
	// WHEN: One flips it to paid and the other writes from its stale read
	// THEN: The stale write loses the compare-and-swap; paid survives

	store := newTestStore(t)
	companyID, partyID := seedParty(t, store)
	ctx := context.Background()

	_, err := store.InsertInvoice(ctx, ledger.Invoice{
		ID: "inv-1", CompanyID: companyID, PartyID: partyID,
		Direction: ledger.InvoiceSales, Amount: amt("100"),
		IssueDate: dated(2025, time.March, 1), Status: ledger.InvoicePosted,
		CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)

	err = store.SetInvoiceStatus(ctx, companyID, "inv-1", ledger.InvoicePosted, ledger.InvoicePaid)
	require.NoError(t, err)

	// Stale precondition: the invoice is no longer posted.
	err = store.SetInvoiceStatus(ctx, companyID, "inv-1", ledger.InvoicePosted, ledger.InvoiceCancelled)
	require.ErrorIs(t, err, ledger.ErrConcurrentModification)

	got, err := store.GetInvoice(ctx, companyID, "inv-1")
	require.NoError(t, err)
	assert.Equal(t, ledger.InvoicePaid, got.Status)

	err = store.SetInvoiceStatus(ctx, companyID, "inv-missing", ledger.InvoicePosted, ledger.InvoicePaid)
	require.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestStore_SetOrderStatus_MissingOrder_NotFound(t *testing.T) {
	store := newTestStore(t)
	companyID, _ := seedParty(t, store)

	err := store.SetOrderStatus(context.Background(), companyID, "no-such-order",
		ledger.OrderPending, ledger.OrderSellerPriced, "")
	require.ErrorIs(t, err, ledger.ErrNotFound)
}

// =============================================================================
// LEDGER READS
// =============================================================================

func TestStore_EntriesByParty_ContributingOnly(t *testing.T) {
	// GIVEN: A posted invoice, a draft invoice and a payment
	// WHEN: The entry log is read
	// THEN: The draft is absent; the rest arrive in chronological order

	store := newTestStore(t)
	companyID, partyID := seedParty(t, store)
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := store.InsertInvoice(ctx, ledger.Invoice{
		ID: "inv-posted", CompanyID: companyID, PartyID: partyID,
		Direction: ledger.InvoiceSales, Amount: amt("1000"),
		IssueDate: dated(2025, time.March, 1), Status: ledger.InvoicePosted, CreatedAt: now,
	})
	require.NoError(t, err)
	_, err = store.InsertInvoice(ctx, ledger.Invoice{
		ID: "inv-draft", CompanyID: companyID, PartyID: partyID,
		Direction: ledger.InvoiceSales, Amount: amt("999"),
		IssueDate: dated(2025, time.March, 2), Status: ledger.InvoiceDraft, CreatedAt: now,
	})
	require.NoError(t, err)
	_, err = store.InsertPayment(ctx, ledger.Payment{
		ID: "pay-1", CompanyID: companyID, PartyID: partyID,
		Direction: ledger.PaymentIn, Amount: amt("400"),
		Date: dated(2025, time.March, 3), CreatedAt: now,
	})
	require.NoError(t, err)

	entries, err := store.EntriesByParty(ctx, companyID, partyID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "inv-posted", entries[0].ID)
	assert.Equal(t, "pay-1", entries[1].ID)
}

func TestStore_SharedSequence_AcrossRecordKinds(t *testing.T) {
	// Invoices and payments draw from one sequence so same-date statement
	// ordering is stable across the two tables.
	store := newTestStore(t)
	companyID, partyID := seedParty(t, store)
	ctx := context.Background()
	now := time.Now().UTC()

	inv, err := store.InsertInvoice(ctx, ledger.Invoice{
		ID: "inv-1", CompanyID: companyID, PartyID: partyID,
		Direction: ledger.InvoiceSales, Amount: amt("10"),
		IssueDate: dated(2025, time.March, 1), Status: ledger.InvoicePosted, CreatedAt: now,
	})
	require.NoError(t, err)
	pay, err := store.InsertPayment(ctx, ledger.Payment{
		ID: "pay-1", CompanyID: companyID, PartyID: partyID,
		Direction: ledger.PaymentIn, Amount: amt("10"),
		Date: dated(2025, time.March, 1), CreatedAt: now,
	})
	require.NoError(t, err)

	assert.Greater(t, pay.Seq, inv.Seq)
}

func TestStore_RecomputeBalance_WritesCache(t *testing.T) {
	store := newTestStore(t)
	companyID, partyID := seedParty(t, store)
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := store.InsertInvoice(ctx, ledger.Invoice{
		ID: "inv-1", CompanyID: companyID, PartyID: partyID,
		Direction: ledger.InvoiceSales, Amount: amt("1000"),
		IssueDate: dated(2025, time.March, 1), Status: ledger.InvoicePosted, CreatedAt: now,
	})
	require.NoError(t, err)
	_, err = store.InsertPayment(ctx, ledger.Payment{
		ID: "pay-1", CompanyID: companyID, PartyID: partyID,
		Direction: ledger.PaymentIn, Amount: amt("400"),
		Date: dated(2025, time.March, 2), CreatedAt: now,
	})
	require.NoError(t, err)

	balance, err := store.RecomputeBalance(ctx, companyID, partyID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(amt("600")))

	party, err := store.GetParty(ctx, companyID, partyID)
	require.NoError(t, err)
	assert.True(t, party.Balance.Equal(amt("600")))
}

// =============================================================================
// PARTY DELETE GUARD
// =============================================================================

func TestStore_DeleteParty_WithHistory_Rejected(t *testing.T) {
	store := newTestStore(t)
	companyID, partyID := seedParty(t, store)
	ctx := context.Background()

	_, err := store.InsertPayment(ctx, ledger.Payment{
		ID: "pay-1", CompanyID: companyID, PartyID: partyID,
		Direction: ledger.PaymentIn, Amount: amt("1"),
		Date: dated(2025, time.March, 1), CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)

	err = store.DeleteParty(ctx, companyID, partyID)
	require.ErrorIs(t, err, ledger.ErrPartyHasHistory)
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func TestStore_WithTx_RollsBackOnError(t *testing.T) {
	// GIVEN: A transaction that inserts an invoice and then fails
	// WHEN: WithTx returns the error
	// THEN: The insert is not visible

	store := newTestStore(t)
	companyID, partyID := seedParty(t, store)
	ctx := context.Background()

	boom := errors.New("boom")
	err := store.WithTx(ctx, func(tx ledger.Store) error {
		_, err := tx.InsertInvoice(ctx, ledger.Invoice{
			ID: "inv-1", CompanyID: companyID, PartyID: partyID,
			Direction: ledger.InvoiceSales, Amount: amt("100"),
			IssueDate: dated(2025, time.March, 1), Status: ledger.InvoicePosted,
			CreatedAt: time.Now().UTC(),
		})
		if err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = store.GetInvoice(ctx, companyID, "inv-1")
	require.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestStore_WithTx_CommitsOnSuccess(t *testing.T) {
	store := newTestStore(t)
	companyID, partyID := seedParty(t, store)
	ctx := context.Background()

	err := store.WithTx(ctx, func(tx ledger.Store) error {
		if _, err := tx.InsertInvoice(ctx, ledger.Invoice{
			ID: "inv-1", CompanyID: companyID, PartyID: partyID,
			Direction: ledger.InvoiceSales, Amount: amt("100"),
			IssueDate: dated(2025, time.March, 1), Status: ledger.InvoicePosted,
			CreatedAt: time.Now().UTC(),
		}); err != nil {
			return err
		}
		_, err := tx.RecomputeBalance(ctx, companyID, partyID)
		return err
	})
	require.NoError(t, err)

	party, err := store.GetParty(ctx, companyID, partyID)
	require.NoError(t, err)
	assert.True(t, party.Balance.Equal(amt("100")))
}
