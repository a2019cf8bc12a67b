/*
Package accounts provides the domain services over the ledger engine:
party registration, invoice/payment posting, the order approval workflow
and statement generation.

All balance arithmetic is delegated to the ledger package; no service in
this package flips a sign itself.
*/
package accounts

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/cari-ledger/ledger"
)

// =============================================================================
// PARTY SERVICE
// =============================================================================

// PartyService manages current-account parties.
type PartyService struct {
	Store ledger.TxStore
	Now   ledger.Clock
}

func NewPartyService(store ledger.TxStore) *PartyService {
	return &PartyService{Store: store, Now: ledger.SystemClock}
}

// Register creates a new party with a zero balance.
func (s *PartyService) Register(ctx context.Context, companyID ledger.CompanyID, kind ledger.PartyKind, name, email, phone string) (*ledger.Party, error) {
	if name == "" {
		return nil, &ledger.ValidationError{Field: "name", Reason: "name is required"}
	}
	if kind != ledger.PartyCustomer && kind != ledger.PartyVendor {
		return nil, &ledger.ValidationError{Field: "kind", Reason: "kind must be customer or vendor", Value: string(kind)}
	}
	if _, err := s.Store.GetCompany(ctx, companyID); err != nil {
		return nil, fmt.Errorf("resolving company: %w", err)
	}

	party := ledger.Party{
		ID:        ledger.PartyID(uuid.NewString()),
		CompanyID: companyID,
		Kind:      kind,
		Name:      name,
		Email:     email,
		Phone:     phone,
		Balance:   decimal.Zero,
		CreatedAt: s.Now(),
	}
	if err := s.Store.CreateParty(ctx, party); err != nil {
		return nil, fmt.Errorf("creating party: %w", err)
	}
	return &party, nil
}

// UpdateContact edits name and contact info. Balance and kind are untouched.
func (s *PartyService) UpdateContact(ctx context.Context, companyID ledger.CompanyID, id ledger.PartyID, name, email, phone string) error {
	if name == "" {
		return &ledger.ValidationError{Field: "name", Reason: "name is required"}
	}
	return s.Store.UpdatePartyContact(ctx, companyID, id, name, email, phone)
}

// Delete removes a party without ledger history.
// A party with any invoice or payment is never deleted.
func (s *PartyService) Delete(ctx context.Context, companyID ledger.CompanyID, id ledger.PartyID) error {
	return s.Store.DeleteParty(ctx, companyID, id)
}

// Balance reduces the party's full entry log. The cached column is never
// consulted on read; the log is authoritative.
func (s *PartyService) Balance(ctx context.Context, companyID ledger.CompanyID, id ledger.PartyID) (decimal.Decimal, error) {
	return s.balance(ctx, companyID, id, nil)
}

// BalanceAsOf reduces only entries dated on or before asOf.
func (s *PartyService) BalanceAsOf(ctx context.Context, companyID ledger.CompanyID, id ledger.PartyID, asOf time.Time) (decimal.Decimal, error) {
	return s.balance(ctx, companyID, id, &asOf)
}

func (s *PartyService) balance(ctx context.Context, companyID ledger.CompanyID, id ledger.PartyID, asOf *time.Time) (decimal.Decimal, error) {
	if _, err := s.Store.GetParty(ctx, companyID, id); err != nil {
		return decimal.Zero, err
	}
	entries, err := s.Store.EntriesByParty(ctx, companyID, id)
	if err != nil {
		return decimal.Zero, fmt.Errorf("loading entries: %w", err)
	}
	if asOf != nil {
		return ledger.ReduceAsOf(entries, *asOf)
	}
	return ledger.Reduce(entries)
}
