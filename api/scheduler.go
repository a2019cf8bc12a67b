/*
scheduler.go - Automated balance audit scheduler

PURPOSE:
  Periodically sweeps every party and compares the cached balance column
  against the fold over the entry log. The cache is maintained inside the
  same transaction as every ledger write, so the two should never disagree;
  if they ever do (manual SQL edits, a restored backup, a bug), the sweep
  logs the drift and repairs the cache from the log.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - The entry log is authoritative; repair always rewrites the cache,
    never the records
  - Logs one line per drifted party for audit

CONFIGURATION:
  - CheckInterval: How often to sweep (default: 1 hour)
  - Enabled: Whether the auditor is active (default: true)

USAGE:
  auditor := NewBalanceAuditor(store, logger)
  auditor.Start()
  // ... later
  auditor.Stop()

SEE ALSO:
  - ledger/balance.go: The fold the audit re-derives
  - store: RecomputeBalance, the only writer of the cache column
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/warp/cari-ledger/ledger"
)

// BalanceAuditor periodically verifies cached balances against the entry log.
type BalanceAuditor struct {
	Store         ledger.TxStore
	Log           zerolog.Logger
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewBalanceAuditor creates an auditor with the default interval.
func NewBalanceAuditor(store ledger.TxStore, log zerolog.Logger) *BalanceAuditor {
	return &BalanceAuditor{
		Store:         store,
		Log:           log,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		stop:          make(chan struct{}),
	}
}

// Start begins the background sweep.
func (a *BalanceAuditor) Start() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.Enabled {
		a.Log.Info().Msg("balance auditor disabled, not starting")
		return
	}

	a.ticker = time.NewTicker(a.CheckInterval)
	a.wg.Add(1)
	go a.run()

	a.Log.Info().Dur("interval", a.CheckInterval).Msg("balance auditor started")
}

// Stop halts the sweep and waits for an in-flight pass to finish.
func (a *BalanceAuditor) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.ticker != nil {
		a.ticker.Stop()
		close(a.stop)
		a.wg.Wait()
		a.Log.Info().Msg("balance auditor stopped")
	}
}

func (a *BalanceAuditor) run() {
	defer a.wg.Done()

	// Run immediately on start
	a.Sweep(context.Background())

	for {
		select {
		case <-a.ticker.C:
			a.Sweep(context.Background())
		case <-a.stop:
			return
		}
	}
}

// Sweep audits every party in every company once. Returns the number of
// drifted caches repaired.
func (a *BalanceAuditor) Sweep(ctx context.Context) int {
	companies, err := a.Store.ListCompanies(ctx)
	if err != nil {
		a.Log.Error().Err(err).Msg("audit sweep: listing companies")
		return 0
	}

	repaired := 0
	for _, company := range companies {
		parties, err := a.Store.ListParties(ctx, company.ID)
		if err != nil {
			a.Log.Error().Err(err).Str("company", string(company.ID)).
				Msg("audit sweep: listing parties")
			continue
		}
		for _, party := range parties {
			if a.auditParty(ctx, company.ID, party) {
				repaired++
			}
		}
	}

	if repaired > 0 {
		a.Log.Warn().Int("repaired", repaired).Msg("audit sweep repaired drifted balances")
	}
	return repaired
}

func (a *BalanceAuditor) auditParty(ctx context.Context, companyID ledger.CompanyID, party ledger.Party) bool {
	entries, err := a.Store.EntriesByParty(ctx, companyID, party.ID)
	if err != nil {
		a.Log.Error().Err(err).Str("party", string(party.ID)).Msg("audit: loading entries")
		return false
	}
	derived, err := ledger.Reduce(entries)
	if err != nil {
		a.Log.Error().Err(err).Str("party", string(party.ID)).Msg("audit: reducing entries")
		return false
	}
	if party.Balance.Equal(derived) {
		return false
	}

	a.Log.Warn().
		Str("party", string(party.ID)).
		Str("cached", party.Balance.String()).
		Str("derived", derived.String()).
		Msg("balance cache drift detected, repairing from entry log")

	if _, err := a.Store.RecomputeBalance(ctx, companyID, party.ID); err != nil {
		a.Log.Error().Err(err).Str("party", string(party.ID)).Msg("audit: repairing balance")
		return false
	}
	return true
}
