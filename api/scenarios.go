/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the store with realistic
	data for demos and manual testing. Each scenario seeds a fresh company
	so repeated loads never collide with existing data.

AVAILABLE SCENARIOS:

	fresh-tenant:     A company with two parties and no ledger activity
	trading-history:  A customer with invoices and payments over two months
	order-in-flight:  An order waiting for customer approval

USAGE VIA API:

	GET  /api/scenarios
	POST /api/scenarios/load
	{"scenario_id": "trading-history"}

ADDING NEW SCENARIOS:
 1. Add to the 'scenarios' slice with ID, name, description
 2. Create a loader function: loadXxxScenario(ctx, h, companyID)
 3. Add a case to LoadScenario

SEE ALSO:
  - handlers.go: The services the loaders drive
*/
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/cari-ledger/ledger"
)

// =============================================================================
// SCENARIO CATALOG
// =============================================================================

type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

type LoadScenarioResponse struct {
	ScenarioID string `json:"scenario_id"`
	CompanyID  string `json:"company_id"`
}

var scenarios = []ScenarioDTO{
	{
		ID:          "fresh-tenant",
		Name:        "Fresh Tenant",
		Description: "A company with a customer and a vendor, no ledger activity yet",
	},
	{
		ID:          "trading-history",
		Name:        "Trading History",
		Description: "A customer with two months of invoices and collections",
	},
	{
		ID:          "order-in-flight",
		Name:        "Order In Flight",
		Description: "A priced order awaiting customer approval",
	},
}

// ListScenarios returns the demo catalog.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// LoadScenario seeds a fresh company with the chosen scenario's data.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()
	company := ledger.Company{
		ID:        ledger.CompanyID(newID()),
		Name:      "Demo: " + req.ScenarioID,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.Store.CreateCompany(ctx, company); err != nil {
		writeDomainError(w, "Failed to create demo company", err)
		return
	}

	var err error
	switch req.ScenarioID {
	case "fresh-tenant":
		err = loadFreshTenantScenario(ctx, h, company.ID)
	case "trading-history":
		err = loadTradingHistoryScenario(ctx, h, company.ID)
	case "order-in-flight":
		err = loadOrderInFlightScenario(ctx, h, company.ID)
	default:
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}
	if err != nil {
		writeDomainError(w, "Failed to load scenario", err)
		return
	}

	writeJSON(w, http.StatusOK, LoadScenarioResponse{
		ScenarioID: req.ScenarioID,
		CompanyID:  string(company.ID),
	})
}

// =============================================================================
// LOADERS
// =============================================================================

func loadFreshTenantScenario(ctx context.Context, h *Handler, companyID ledger.CompanyID) error {
	if _, err := h.Parties.Register(ctx, companyID, ledger.PartyCustomer,
		"Globex Corporation", "ap@globex.example", "+1-555-0100"); err != nil {
		return err
	}
	_, err := h.Parties.Register(ctx, companyID, ledger.PartyVendor,
		"Initech Supplies", "billing@initech.example", "+1-555-0101")
	return err
}

func loadTradingHistoryScenario(ctx context.Context, h *Handler, companyID ledger.CompanyID) error {
	customer, err := h.Parties.Register(ctx, companyID, ledger.PartyCustomer,
		"Globex Corporation", "ap@globex.example", "")
	if err != nil {
		return err
	}

	jan := func(day int) time.Time {
		return time.Date(2025, time.January, day, 0, 0, 0, 0, time.UTC)
	}

	// January: sell 1200, collect 500. February: sell 800, collect 900.
	seeds := []struct {
		invoice bool
		amount  string
		date    time.Time
	}{
		{true, "1200.00", jan(5)},
		{false, "500.00", jan(20)},
		{true, "800.00", jan(5).AddDate(0, 1, 0)},
		{false, "900.00", jan(20).AddDate(0, 1, 0)},
	}
	for _, s := range seeds {
		if s.invoice {
			_, err = h.Posting.RecordInvoice(ctx, ledger.Invoice{
				CompanyID: companyID,
				PartyID:   customer.ID,
				Direction: ledger.InvoiceSales,
				Amount:    decimal.RequireFromString(s.amount),
				IssueDate: s.date,
			})
		} else {
			_, err = h.Posting.RecordPayment(ctx, ledger.Payment{
				CompanyID: companyID,
				PartyID:   customer.ID,
				Direction: ledger.PaymentIn,
				Amount:    decimal.RequireFromString(s.amount),
				Date:      s.date,
			})
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func loadOrderInFlightScenario(ctx context.Context, h *Handler, companyID ledger.CompanyID) error {
	customer, err := h.Parties.Register(ctx, companyID, ledger.PartyCustomer,
		"Globex Corporation", "ap@globex.example", "")
	if err != nil {
		return err
	}

	order, err := h.Orders.Create(ctx, companyID, customer.ID, []ledger.OrderLine{
		{Description: "Steel brackets", Quantity: decimal.RequireFromString("40")},
		{Description: "Mounting kits", Quantity: decimal.RequireFromString("10")},
	})
	if err != nil {
		return err
	}
	if _, err := h.Orders.Price(ctx, companyID, order.ID, []ledger.OrderLine{
		{Description: "Steel brackets", Quantity: decimal.RequireFromString("40"), UnitPrice: decimal.RequireFromString("12.50")},
		{Description: "Mounting kits", Quantity: decimal.RequireFromString("10"), UnitPrice: decimal.RequireFromString("30.00")},
	}); err != nil {
		return err
	}
	_, err = h.Orders.Submit(ctx, companyID, order.ID)
	return err
}
