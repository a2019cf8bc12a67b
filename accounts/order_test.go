package accounts_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/cari-ledger/ledger"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// newAwaitingOrder walks a fresh order to awaiting_customer_approval:
// two units at 50 each, total 100.
func newAwaitingOrder(t *testing.T, env *testEnv) *ledger.Order {
	t.Helper()
	ctx := context.Background()

	order, err := env.orders.Create(ctx, env.company, env.party, []ledger.OrderLine{
		{Description: "widgets", Quantity: amt("2")},
	})
	require.NoError(t, err)
	require.Equal(t, ledger.OrderPending, order.Status)

	order, err = env.orders.Price(ctx, env.company, order.ID, []ledger.OrderLine{
		{Description: "widgets", Quantity: amt("2"), UnitPrice: amt("50")},
	})
	require.NoError(t, err)
	require.Equal(t, ledger.OrderSellerPriced, order.Status)
	require.True(t, order.Total.Equal(amt("100")))

	order, err = env.orders.Submit(ctx, env.company, order.ID)
	require.NoError(t, err)
	require.Equal(t, ledger.OrderAwaitingApproval, order.Status)
	return order
}

// =============================================================================
// WORKFLOW TESTS
// =============================================================================

func TestOrder_ApprovalPostsExactlyOneInvoice(t *testing.T) {
	// GIVEN: An order awaiting customer approval, total 100
	// WHEN: The customer approves
	// THEN: One posted sales invoice for 100 exists and the balance moved once

	env := newTestEnv(t)
	ctx := context.Background()
	order := newAwaitingOrder(t, env)

	inv, err := env.orders.Approve(ctx, env.company, order.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.InvoicePosted, inv.Status)
	assert.Equal(t, ledger.InvoiceSales, inv.Direction)
	assert.Equal(t, order.ID, inv.OrderID)
	assert.True(t, inv.Amount.Equal(amt("100")))

	invoices, err := env.store.InvoicesByParty(ctx, env.company, env.party)
	require.NoError(t, err)
	assert.Len(t, invoices, 1)
	assert.True(t, env.mustBalance(t).Equal(amt("100")))

	after, err := env.store.GetOrder(ctx, env.company, order.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.OrderApproved, after.Status)
}

func TestOrder_SecondApproval_ConflictNotSecondInvoice(t *testing.T) {
	// GIVEN: An already-approved order
	// WHEN: Approve is called again
	// THEN: ErrOrderFinalized; still exactly one invoice, balance unchanged

	env := newTestEnv(t)
	ctx := context.Background()
	order := newAwaitingOrder(t, env)

	_, err := env.orders.Approve(ctx, env.company, order.ID)
	require.NoError(t, err)

	_, err = env.orders.Approve(ctx, env.company, order.ID)
	require.ErrorIs(t, err, ledger.ErrOrderFinalized)

	invoices, err := env.store.InvoicesByParty(ctx, env.company, env.party)
	require.NoError(t, err)
	assert.Len(t, invoices, 1, "retry must never post a second invoice")
	assert.True(t, env.mustBalance(t).Equal(amt("100")))
}

func TestOrder_Reject_EmitsNothing(t *testing.T) {
	// GIVEN: An order awaiting approval
	// WHEN: The customer rejects it
	// THEN: Terminal rejected state, a stored reason, and an untouched ledger

	env := newTestEnv(t)
	ctx := context.Background()
	order := newAwaitingOrder(t, env)

	rejected, err := env.orders.Reject(ctx, env.company, order.ID, "price too high")
	require.NoError(t, err)
	assert.Equal(t, ledger.OrderRejected, rejected.Status)
	assert.Equal(t, "price too high", rejected.RejectionReason)

	invoices, err := env.store.InvoicesByParty(ctx, env.company, env.party)
	require.NoError(t, err)
	assert.Empty(t, invoices)
	assert.True(t, env.mustBalance(t).IsZero())

	// Rejection is final.
	_, err = env.orders.Approve(ctx, env.company, order.ID)
	require.ErrorIs(t, err, ledger.ErrOrderFinalized)
}

func TestOrder_ApproveBeforeSubmit_Rejected(t *testing.T) {
	// Approval is only meaningful once the customer has been asked.
	env := newTestEnv(t)
	ctx := context.Background()

	order, err := env.orders.Create(ctx, env.company, env.party, []ledger.OrderLine{
		{Description: "widgets", Quantity: amt("1"), UnitPrice: amt("10")},
	})
	require.NoError(t, err)

	_, err = env.orders.Approve(ctx, env.company, order.ID)
	require.Error(t, err)
	assert.True(t, ledger.IsConflict(err))
}

func TestOrder_SubmitUnpriced_Rejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	order, err := env.orders.Create(ctx, env.company, env.party, []ledger.OrderLine{
		{Description: "widgets", Quantity: amt("1")},
	})
	require.NoError(t, err)

	_, err = env.orders.Submit(ctx, env.company, order.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ledger.ErrInvalidTransition))
}

func TestOrder_Reprice_AllowedWhileOpen(t *testing.T) {
	// The seller may reprice until the order is sent for approval.
	env := newTestEnv(t)
	ctx := context.Background()

	order, err := env.orders.Create(ctx, env.company, env.party, []ledger.OrderLine{
		{Description: "widgets", Quantity: amt("2")},
	})
	require.NoError(t, err)

	_, err = env.orders.Price(ctx, env.company, order.ID, []ledger.OrderLine{
		{Description: "widgets", Quantity: amt("2"), UnitPrice: amt("50")},
	})
	require.NoError(t, err)

	repriced, err := env.orders.Price(ctx, env.company, order.ID, []ledger.OrderLine{
		{Description: "widgets", Quantity: amt("2"), UnitPrice: amt("45")},
	})
	require.NoError(t, err)
	assert.Equal(t, ledger.OrderSellerPriced, repriced.Status)
	assert.True(t, repriced.Total.Equal(amt("90")))
}

func TestOrder_Cancel_OpenOrderOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	order, err := env.orders.Create(ctx, env.company, env.party, []ledger.OrderLine{
		{Description: "widgets", Quantity: amt("1"), UnitPrice: amt("10")},
	})
	require.NoError(t, err)

	cancelled, err := env.orders.Cancel(ctx, env.company, order.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.OrderRejected, cancelled.Status)
	assert.Equal(t, "cancelled by seller", cancelled.RejectionReason)

	// Awaiting orders are the customer's to decide.
	awaiting := newAwaitingOrder(t, env)
	_, err = env.orders.Cancel(ctx, env.company, awaiting.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ledger.ErrInvalidTransition))
}

func TestOrder_Create_RequiresPositiveQuantity(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.orders.Create(context.Background(), env.company, env.party, []ledger.OrderLine{
		{Description: "widgets", Quantity: amt("0")},
	})
	require.Error(t, err)
	assert.True(t, ledger.IsValidation(err))
}

// =============================================================================
// ATOMICITY TESTS
// =============================================================================

func TestOrder_Approve_FailedInsert_LeavesNoTrace(t *testing.T) {
	// GIVEN: An awaiting order whose invoice insert will fail
	// WHEN: Approve runs
	// THEN: The order is still awaiting, no invoice exists, balance untouched.
	//       Status flip, insert and recompute are one transaction.

	env := newTestEnv(t)
	ctx := context.Background()
	order := newAwaitingOrder(t, env)

	boom := errors.New("disk full")
	env.store.FailNextInsertInvoice = boom

	_, err := env.orders.Approve(ctx, env.company, order.ID)
	require.ErrorIs(t, err, boom)

	after, err := env.store.GetOrder(ctx, env.company, order.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.OrderAwaitingApproval, after.Status,
		"failed approval must roll the status flip back")

	invoices, err := env.store.InvoicesByParty(ctx, env.company, env.party)
	require.NoError(t, err)
	assert.Empty(t, invoices)
	assert.True(t, env.mustBalance(t).IsZero())

	// The order is still approvable once the fault clears.
	inv, err := env.orders.Approve(ctx, env.company, order.ID)
	require.NoError(t, err)
	assert.True(t, inv.Amount.Equal(amt("100")))
}
