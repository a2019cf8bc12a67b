/*
posting.go - Invoice and payment lifecycle

PURPOSE:
  Records, transitions and deletes the raw records that feed the ledger.
  Every write follows the same shape:

    1. Classify (validates amount and direction before any write)
    2. WithTx: write the row, then RecomputeBalance in the same transaction

  The cache column therefore always equals the fold over the rows the
  transaction left behind. Deleting a record is the exact inverse: remove the
  row, recompute. Inserting then deleting returns the balance to its prior
  value to the cent.
*/
package accounts

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/warp/cari-ledger/ledger"
)

// =============================================================================
// POSTING SERVICE
// =============================================================================

// PostingService records invoices and payments against a party.
type PostingService struct {
	Store ledger.TxStore
	Now   ledger.Clock
}

func NewPostingService(store ledger.TxStore) *PostingService {
	return &PostingService{Store: store, Now: ledger.SystemClock}
}

// RecordInvoice validates and inserts a manually entered invoice.
// Status defaults to posted; a draft can be requested explicitly.
func (s *PostingService) RecordInvoice(ctx context.Context, inv ledger.Invoice) (*ledger.Invoice, error) {
	if _, err := ledger.ClassifyInvoice(inv); err != nil {
		return nil, err
	}
	if _, err := s.Store.GetParty(ctx, inv.CompanyID, inv.PartyID); err != nil {
		return nil, fmt.Errorf("resolving party: %w", err)
	}
	if inv.Status == "" {
		inv.Status = ledger.InvoicePosted
	} else if !ledger.ValidInvoiceStatus(inv.Status) {
		return nil, &ledger.ValidationError{Field: "status", Reason: "unknown invoice status", Value: string(inv.Status)}
	}
	if inv.ID == "" {
		inv.ID = ledger.InvoiceID(uuid.NewString())
	}
	inv.CreatedAt = s.Now()
	if inv.IssueDate.IsZero() {
		// Business dates are day-granular; keep the defaulted date on the
		// same footing as one entered by the caller.
		inv.IssueDate = inv.CreatedAt.Truncate(24 * time.Hour)
	}

	var stored ledger.Invoice
	err := s.Store.WithTx(ctx, func(tx ledger.Store) error {
		var err error
		stored, err = tx.InsertInvoice(ctx, inv)
		if err != nil {
			return err
		}
		_, err = tx.RecomputeBalance(ctx, inv.CompanyID, inv.PartyID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

// RecordPayment validates and inserts a collection or disbursement.
func (s *PostingService) RecordPayment(ctx context.Context, p ledger.Payment) (*ledger.Payment, error) {
	if _, err := ledger.ClassifyPayment(p); err != nil {
		return nil, err
	}
	if _, err := s.Store.GetParty(ctx, p.CompanyID, p.PartyID); err != nil {
		return nil, fmt.Errorf("resolving party: %w", err)
	}
	if p.ID == "" {
		p.ID = ledger.PaymentID(uuid.NewString())
	}
	p.CreatedAt = s.Now()
	if p.Date.IsZero() {
		p.Date = p.CreatedAt.Truncate(24 * time.Hour)
	}

	var stored ledger.Payment
	err := s.Store.WithTx(ctx, func(tx ledger.Store) error {
		var err error
		stored, err = tx.InsertPayment(ctx, p)
		if err != nil {
			return err
		}
		_, err = tx.RecomputeBalance(ctx, p.CompanyID, p.PartyID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

// SetInvoiceStatus applies an allowed status transition. Posting or
// cancelling changes the invoice's contribution, so the cache is recomputed
// in the same transaction. The store write is conditional on the status the
// transition was checked against; a racer that moved the invoice in between
// gets ErrConcurrentModification instead of clobbering the newer status.
func (s *PostingService) SetInvoiceStatus(ctx context.Context, companyID ledger.CompanyID, id ledger.InvoiceID, to ledger.InvoiceStatus) error {
	inv, err := s.Store.GetInvoice(ctx, companyID, id)
	if err != nil {
		return err
	}
	if !ledger.CanTransition(inv.Status, to) {
		return &ledger.TransitionError{From: string(inv.Status), To: string(to)}
	}

	return s.Store.WithTx(ctx, func(tx ledger.Store) error {
		if err := tx.SetInvoiceStatus(ctx, companyID, id, inv.Status, to); err != nil {
			return err
		}
		_, err := tx.RecomputeBalance(ctx, companyID, inv.PartyID)
		return err
	})
}

// DeleteInvoice removes the row and recomputes the cache atomically.
// The reversal is derived from the row set, never from a stale in-memory
// balance.
func (s *PostingService) DeleteInvoice(ctx context.Context, companyID ledger.CompanyID, id ledger.InvoiceID) error {
	inv, err := s.Store.GetInvoice(ctx, companyID, id)
	if err != nil {
		return err
	}
	return s.Store.WithTx(ctx, func(tx ledger.Store) error {
		if err := tx.DeleteInvoice(ctx, companyID, id); err != nil {
			return err
		}
		_, err := tx.RecomputeBalance(ctx, companyID, inv.PartyID)
		return err
	})
}

// DeletePayment removes the row and recomputes the cache atomically.
func (s *PostingService) DeletePayment(ctx context.Context, companyID ledger.CompanyID, id ledger.PaymentID) error {
	p, err := s.Store.GetPayment(ctx, companyID, id)
	if err != nil {
		return err
	}
	return s.Store.WithTx(ctx, func(tx ledger.Store) error {
		if err := tx.DeletePayment(ctx, companyID, id); err != nil {
			return err
		}
		_, err := tx.RecomputeBalance(ctx, companyID, p.PartyID)
		return err
	})
}
