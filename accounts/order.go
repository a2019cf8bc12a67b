/*
order.go - Order → Invoice reconciliation workflow

PURPOSE:
  Governs how a customer order becomes a posted ledger entry:

    pending ──seller prices──▶ seller_priced ──seller submits──▶ awaiting_customer_approval
                                                                       │
                                        ┌──────────────────────────────┤
                                        ▼                              ▼
                                    approved                        rejected
                          [emits: 1 sales invoice,              [emits: nothing]
                           1 balance mutation]

    pending | seller_priced ──seller cancels──▶ rejected

  approved and rejected are terminal. A transition attempt out of a terminal
  state is a Conflict, so approving twice returns ErrOrderFinalized rather
  than posting a second invoice.

ATOMICITY:
  Approve runs three steps inside one store transaction: conditional status
  flip, invoice insert, balance recompute. If any step fails, none is
  visible. The conditional flip is the serialization point: of two racing
  approvals one wins the compare-and-swap, the other fails. The unique
  order→invoice constraint in the store is the second, independent guard
  against double posting.
*/
package accounts

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/warp/cari-ledger/ledger"
)

// =============================================================================
// ORDER SERVICE
// =============================================================================

// OrderService runs the order approval workflow.
type OrderService struct {
	Store ledger.TxStore
	Now   ledger.Clock
}

func NewOrderService(store ledger.TxStore) *OrderService {
	return &OrderService{Store: store, Now: ledger.SystemClock}
}

// Create registers a customer-submitted order in pending state.
// Lines carry product and quantity; unit prices are zero until the seller
// prices them.
func (s *OrderService) Create(ctx context.Context, companyID ledger.CompanyID, partyID ledger.PartyID, lines []ledger.OrderLine) (*ledger.Order, error) {
	if len(lines) == 0 {
		return nil, &ledger.ValidationError{Field: "lines", Reason: "order needs at least one line"}
	}
	for _, l := range lines {
		if !l.Quantity.IsPositive() {
			return nil, &ledger.ValidationError{Field: "quantity", Reason: "quantity must be positive", Value: l.Quantity.String()}
		}
		if l.UnitPrice.IsNegative() {
			return nil, &ledger.ValidationError{Field: "unit_price", Reason: "unit price must be non-negative", Value: l.UnitPrice.String()}
		}
	}
	if _, err := s.Store.GetParty(ctx, companyID, partyID); err != nil {
		return nil, fmt.Errorf("resolving party: %w", err)
	}

	now := s.Now()
	order := ledger.Order{
		ID:        ledger.OrderID(uuid.NewString()),
		CompanyID: companyID,
		PartyID:   partyID,
		Status:    ledger.OrderPending,
		Lines:     lines,
		Total:     ledger.SumLines(lines),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Store.CreateOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("creating order: %w", err)
	}
	return &order, nil
}

// Price sets unit prices on an open order and moves it to seller_priced.
// Repricing a seller_priced order is allowed; anything later is not.
func (s *OrderService) Price(ctx context.Context, companyID ledger.CompanyID, id ledger.OrderID, lines []ledger.OrderLine) (*ledger.Order, error) {
	order, err := s.Store.GetOrder(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if order.Status.Terminal() {
		return nil, ledger.ErrOrderFinalized
	}
	if order.Status != ledger.OrderPending && order.Status != ledger.OrderSellerPriced {
		return nil, &ledger.TransitionError{From: string(order.Status), To: string(ledger.OrderSellerPriced)}
	}
	for _, l := range lines {
		if !l.Quantity.IsPositive() {
			return nil, &ledger.ValidationError{Field: "quantity", Reason: "quantity must be positive", Value: l.Quantity.String()}
		}
		if l.UnitPrice.IsNegative() {
			return nil, &ledger.ValidationError{Field: "unit_price", Reason: "unit price must be non-negative", Value: l.UnitPrice.String()}
		}
	}

	total := ledger.SumLines(lines)
	err = s.Store.WithTx(ctx, func(tx ledger.Store) error {
		if err := tx.SaveOrderLines(ctx, companyID, id, lines, total); err != nil {
			return err
		}
		if order.Status == ledger.OrderPending {
			return tx.SetOrderStatus(ctx, companyID, id, ledger.OrderPending, ledger.OrderSellerPriced, "")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Store.GetOrder(ctx, companyID, id)
}

// Submit sends a priced order to the customer for approval.
func (s *OrderService) Submit(ctx context.Context, companyID ledger.CompanyID, id ledger.OrderID) (*ledger.Order, error) {
	order, err := s.Store.GetOrder(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if order.Status.Terminal() {
		return nil, ledger.ErrOrderFinalized
	}
	if order.Status != ledger.OrderSellerPriced {
		return nil, &ledger.TransitionError{From: string(order.Status), To: string(ledger.OrderAwaitingApproval)}
	}
	if err := s.Store.SetOrderStatus(ctx, companyID, id, ledger.OrderSellerPriced, ledger.OrderAwaitingApproval, ""); err != nil {
		return nil, err
	}
	return s.Store.GetOrder(ctx, companyID, id)
}

// Approve converts an awaiting order into exactly one posted sales invoice
// and one balance mutation, atomically. A second call is a Conflict no-op.
func (s *OrderService) Approve(ctx context.Context, companyID ledger.CompanyID, id ledger.OrderID) (*ledger.Invoice, error) {
	order, err := s.Store.GetOrder(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if order.Status.Terminal() {
		return nil, ledger.ErrOrderFinalized
	}
	if order.Status != ledger.OrderAwaitingApproval {
		return nil, &ledger.TransitionError{From: string(order.Status), To: string(ledger.OrderApproved)}
	}

	now := s.Now()
	invoice := ledger.Invoice{
		ID:        ledger.InvoiceID(uuid.NewString()),
		CompanyID: companyID,
		PartyID:   order.PartyID,
		OrderID:   order.ID,
		Direction: ledger.InvoiceSales,
		Amount:    order.Total,
		IssueDate: now,
		Status:    ledger.InvoicePosted,
		CreatedAt: now,
	}
	if _, err := ledger.ClassifyInvoice(invoice); err != nil {
		return nil, err
	}

	var stored ledger.Invoice
	err = s.Store.WithTx(ctx, func(tx ledger.Store) error {
		// Serialization point: the losing racer fails here and nothing below
		// becomes visible.
		if err := tx.SetOrderStatus(ctx, companyID, id, ledger.OrderAwaitingApproval, ledger.OrderApproved, ""); err != nil {
			return err
		}
		var err error
		stored, err = tx.InsertInvoice(ctx, invoice)
		if err != nil {
			return err
		}
		_, err = tx.RecomputeBalance(ctx, companyID, order.PartyID)
		return err
	})
	if err != nil {
		// A lost race means the order reached a terminal state elsewhere.
		if errors.Is(err, ledger.ErrConcurrentModification) || errors.Is(err, ledger.ErrDuplicatePosting) {
			return nil, ledger.ErrOrderFinalized
		}
		return nil, err
	}
	return &stored, nil
}

// Reject declines an awaiting order. Emits nothing to the ledger.
func (s *OrderService) Reject(ctx context.Context, companyID ledger.CompanyID, id ledger.OrderID, reason string) (*ledger.Order, error) {
	order, err := s.Store.GetOrder(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if order.Status.Terminal() {
		return nil, ledger.ErrOrderFinalized
	}
	if order.Status != ledger.OrderAwaitingApproval {
		return nil, &ledger.TransitionError{From: string(order.Status), To: string(ledger.OrderRejected)}
	}
	if err := s.Store.SetOrderStatus(ctx, companyID, id, ledger.OrderAwaitingApproval, ledger.OrderRejected, reason); err != nil {
		return nil, err
	}
	return s.Store.GetOrder(ctx, companyID, id)
}

// Cancel withdraws an order the seller has not yet submitted.
func (s *OrderService) Cancel(ctx context.Context, companyID ledger.CompanyID, id ledger.OrderID) (*ledger.Order, error) {
	order, err := s.Store.GetOrder(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if order.Status.Terminal() {
		return nil, ledger.ErrOrderFinalized
	}
	if order.Status != ledger.OrderPending && order.Status != ledger.OrderSellerPriced {
		return nil, &ledger.TransitionError{From: string(order.Status), To: string(ledger.OrderRejected)}
	}
	if err := s.Store.SetOrderStatus(ctx, companyID, id, order.Status, ledger.OrderRejected, "cancelled by seller"); err != nil {
		return nil, err
	}
	return s.Store.GetOrder(ctx, companyID, id)
}
