package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
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
// TEST SETUP
// =============================================================================

type apiEnv struct {
	server  *httptest.Server
	store   *memstore.Memory
	company string
	party   string
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	ctx := context.Background()
	store := memstore.NewMemory()

	require.NoError(t, store.CreateCompany(ctx, ledger.Company{
		ID: "co-1", Name: "Acme Trading", CreatedAt: time.Now().UTC(),
	}))
	require.NoError(t, store.CreateParty(ctx, ledger.Party{
		ID: "party-1", CompanyID: "co-1", Kind: ledger.PartyCustomer,
		Name: "Globex", Balance: decimal.Zero, CreatedAt: time.Now().UTC(),
	}))

	router := api.NewRouter(api.NewHandler(store), api.RouterOptions{
		AllowedOrigins: []string{"*"},
		Logger:         zerolog.Nop(),
	})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &apiEnv{server: server, store: store, company: "co-1", party: "party-1"}
}

// do issues a request with the tenant query parameter attached and decodes
// the JSON response into out (when out is non-nil).
func (e *apiEnv) do(t *testing.T, method, path string, body any, out any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	req, err := http.NewRequest(method, e.server.URL+path+sep+"company_id="+e.company, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

// =============================================================================
// POSTING ENDPOINTS
// =============================================================================

func TestAPI_RecordInvoice_ThenBalance(t *testing.T) {
	// GIVEN: A fresh customer
	// WHEN: A 1000.00 sales invoice is posted over HTTP
	// THEN: 201, and the balance endpoint reports 1000

	env := newAPIEnv(t)

	var inv api.InvoiceDTO
	resp := env.do(t, http.MethodPost, "/api/invoices", api.CreateInvoiceRequest{
		PartyID:   env.party,
		Direction: "sales",
		Amount:    "1000.00",
		IssueDate: "2025-03-01",
	}, &inv)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "posted", inv.Status)
	assert.Equal(t, "1000", inv.Amount)

	var balance api.BalanceDTO
	resp = env.do(t, http.MethodGet, "/api/parties/"+env.party+"/balance", nil, &balance)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "1000", balance.Balance)
}

func TestAPI_RecordInvoice_BadDirection_400(t *testing.T) {
	env := newAPIEnv(t)

	resp := env.do(t, http.MethodPost, "/api/invoices", api.CreateInvoiceRequest{
		PartyID:   env.party,
		Direction: "refund",
		Amount:    "10",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_MissingCompanyID_400(t *testing.T) {
	env := newAPIEnv(t)

	resp, err := http.Get(env.server.URL + "/api/parties")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_UnknownParty_404(t *testing.T) {
	env := newAPIEnv(t)

	resp := env.do(t, http.MethodGet, "/api/parties/no-such-party/balance", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// =============================================================================
// PARTY ENDPOINTS
// =============================================================================

func TestAPI_DeleteParty_WithHistory_409(t *testing.T) {
	// GIVEN: A party with a posted invoice
	// WHEN: DELETE /api/parties/{id}
	// THEN: 409, the history stays auditable

	env := newAPIEnv(t)

	resp := env.do(t, http.MethodPost, "/api/invoices", api.CreateInvoiceRequest{
		PartyID:   env.party,
		Direction: "sales",
		Amount:    "10",
	}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = env.do(t, http.MethodDelete, "/api/parties/"+env.party, nil, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestAPI_DeleteParty_Clean_204(t *testing.T) {
	env := newAPIEnv(t)

	resp := env.do(t, http.MethodDelete, "/api/parties/"+env.party, nil, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

// =============================================================================
// ORDER WORKFLOW ENDPOINTS
// =============================================================================

func TestAPI_OrderWorkflow_ApproveOnce(t *testing.T) {
	// GIVEN: The full order flow run over HTTP
	// WHEN: The order is approved twice
	// THEN: First approval returns the invoice, second returns 409

	env := newAPIEnv(t)

	var order api.OrderDTO
	resp := env.do(t, http.MethodPost, "/api/orders", api.CreateOrderRequest{
		PartyID: env.party,
		Lines:   []api.OrderLineDTO{{Description: "widgets", Quantity: "2"}},
	}, &order)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, "pending", order.Status)

	resp = env.do(t, http.MethodPost, "/api/orders/"+order.ID+"/price", api.PriceOrderRequest{
		Lines: []api.OrderLineDTO{{Description: "widgets", Quantity: "2", UnitPrice: "50"}},
	}, &order)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "seller_priced", order.Status)
	require.Equal(t, "100", order.Total)

	resp = env.do(t, http.MethodPost, "/api/orders/"+order.ID+"/submit", nil, &order)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "awaiting_customer_approval", order.Status)

	var inv api.InvoiceDTO
	resp = env.do(t, http.MethodPost, "/api/orders/"+order.ID+"/approve", nil, &inv)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "100", inv.Amount)
	assert.Equal(t, order.ID, inv.OrderID)

	resp = env.do(t, http.MethodPost, "/api/orders/"+order.ID+"/approve", nil, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	var balance api.BalanceDTO
	resp = env.do(t, http.MethodGet, "/api/parties/"+env.party+"/balance", nil, &balance)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "100", balance.Balance)
}

func TestAPI_OrderReject(t *testing.T) {
	env := newAPIEnv(t)

	var order api.OrderDTO
	resp := env.do(t, http.MethodPost, "/api/orders", api.CreateOrderRequest{
		PartyID: env.party,
		Lines:   []api.OrderLineDTO{{Description: "widgets", Quantity: "1", UnitPrice: "10"}},
	}, &order)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// Creation never skips the pricing step, even with prices attached.
	resp = env.do(t, http.MethodPost, "/api/orders/"+order.ID+"/submit", nil, nil)
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/orders/"+order.ID+"/price", api.PriceOrderRequest{
		Lines: []api.OrderLineDTO{{Description: "widgets", Quantity: "1", UnitPrice: "10"}},
	}, &order)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = env.do(t, http.MethodPost, "/api/orders/"+order.ID+"/submit", nil, &order)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/orders/"+order.ID+"/reject", api.RejectOrderRequest{
		Reason: "price too high",
	}, &order)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "rejected", order.Status)
	assert.Equal(t, "price too high", order.RejectionReason)

	var balance api.BalanceDTO
	resp = env.do(t, http.MethodGet, "/api/parties/"+env.party+"/balance", nil, &balance)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "0", balance.Balance)
}

// =============================================================================
// STATEMENT ENDPOINT
// =============================================================================

func TestAPI_Statement_FilterAndTotal(t *testing.T) {
	// GIVEN: A sale and a collection
	// WHEN: The statement is fetched with and without a type filter
	// THEN: Totals follow the filtered window

	env := newAPIEnv(t)

	resp := env.do(t, http.MethodPost, "/api/invoices", api.CreateInvoiceRequest{
		PartyID: env.party, Direction: "sales", Amount: "1000", IssueDate: "2025-03-01",
	}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp = env.do(t, http.MethodPost, "/api/payments", api.CreatePaymentRequest{
		PartyID: env.party, Direction: "in", Amount: "400", Date: "2025-03-02",
	}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var st api.StatementDTO
	resp = env.do(t, http.MethodGet, "/api/parties/"+env.party+"/statement", nil, &st)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, st.Lines, 2)
	assert.Equal(t, "600", st.Total)
	assert.Equal(t, "Collection", st.Lines[0].Label)

	resp = env.do(t, http.MethodGet, "/api/parties/"+env.party+"/statement?type=invoice", nil, &st)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, st.Lines, 1)
	assert.Equal(t, "1000", st.Total)
}
