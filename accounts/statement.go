package accounts

import (
	"context"
	"fmt"

	"github.com/warp/cari-ledger/ledger"
)

// StatementService produces the merged account statement for a party.
// The heavy lifting lives in ledger.BuildStatement; this service only loads
// the entry log.
type StatementService struct {
	Store ledger.TxStore
}

func NewStatementService(store ledger.TxStore) *StatementService {
	return &StatementService{Store: store}
}

// Build returns the filtered statement for a party.
func (s *StatementService) Build(ctx context.Context, companyID ledger.CompanyID, partyID ledger.PartyID, filter ledger.StatementFilter) (ledger.Statement, error) {
	if _, err := s.Store.GetParty(ctx, companyID, partyID); err != nil {
		return ledger.Statement{}, err
	}
	entries, err := s.Store.EntriesByParty(ctx, companyID, partyID)
	if err != nil {
		return ledger.Statement{}, fmt.Errorf("loading entries: %w", err)
	}
	return ledger.BuildStatement(partyID, entries, filter)
}
