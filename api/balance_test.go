package api_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/cari-ledger/api"
	"github.com/warp/cari-ledger/ledger"
	memstore "github.com/warp/cari-ledger/ledger/store"
)

// =============================================================================
// BALANCE AUDITOR
// =============================================================================

func TestBalanceAuditor_CleanStore_NoRepairs(t *testing.T) {
	env := newAPIEnv(t)
	auditor := api.NewBalanceAuditor(env.store, zerolog.Nop())

	repaired := auditor.Sweep(context.Background())
	assert.Zero(t, repaired)
}

func TestBalanceAuditor_RepairsDriftedCache(t *testing.T) {
	// GIVEN: A party whose cached balance disagrees with its (empty) log
	// WHEN: The audit sweep runs
	// THEN: The cache is rewritten from the log; a second sweep is clean

	ctx := context.Background()
	store := memstore.NewMemory()
	require.NoError(t, store.CreateCompany(ctx, ledger.Company{
		ID: "co-1", Name: "Acme Trading", CreatedAt: time.Now().UTC(),
	}))
	require.NoError(t, store.CreateParty(ctx, ledger.Party{
		ID: "party-1", CompanyID: "co-1", Kind: ledger.PartyCustomer,
		Name: "Globex", Balance: decimal.RequireFromString("999"),
		CreatedAt: time.Now().UTC(),
	}))

	auditor := api.NewBalanceAuditor(store, zerolog.Nop())
	repaired := auditor.Sweep(ctx)
	assert.Equal(t, 1, repaired)

	party, err := store.GetParty(ctx, "co-1", "party-1")
	require.NoError(t, err)
	assert.True(t, party.Balance.IsZero())

	assert.Zero(t, auditor.Sweep(ctx))
}

func TestBalanceAuditor_AgreesAfterPostings(t *testing.T) {
	// Writes maintain the cache in-transaction, so a sweep right after
	// posting must find nothing to repair.
	env := newAPIEnv(t)
	ctx := context.Background()

	handler := api.NewHandler(env.store)
	_, err := handler.Posting.RecordInvoice(ctx, ledger.Invoice{
		CompanyID: ledger.CompanyID(env.company),
		PartyID:   ledger.PartyID(env.party),
		Direction: ledger.InvoiceSales,
		Amount:    decimal.RequireFromString("250.50"),
	})
	require.NoError(t, err)

	auditor := api.NewBalanceAuditor(env.store, zerolog.Nop())
	assert.Zero(t, auditor.Sweep(ctx))
}

func TestBalanceAuditor_StartStop(t *testing.T) {
	env := newAPIEnv(t)
	auditor := api.NewBalanceAuditor(env.store, zerolog.Nop())
	auditor.CheckInterval = time.Hour

	auditor.Start()
	auditor.Stop()
}
