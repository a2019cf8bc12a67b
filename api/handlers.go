/*
handlers.go - HTTP API handlers for the current-account engine

PURPOSE:
  Exposes parties, invoices, payments, orders and statements via REST.
  Handles HTTP request/response, JSON serialization, and delegates every
  piece of domain logic to the accounts services. No sign arithmetic and
  no balance math happens in this package.

ENDPOINTS:
  Companies / Products:
    GET    /api/companies              List companies
    POST   /api/companies              Create company
    GET    /api/products               List products (company scoped)
    POST   /api/products               Create product

  Parties:
    GET    /api/parties                List parties
    POST   /api/parties                Register party
    GET    /api/parties/{id}           Get party
    PUT    /api/parties/{id}           Update contact info
    DELETE /api/parties/{id}           Delete (only without history)
    GET    /api/parties/{id}/balance   Derived balance (?as_of=YYYY-MM-DD)
    GET    /api/parties/{id}/statement Statement (?type=&from=&to=)

  Invoices / Payments:
    POST   /api/invoices               Record invoice
    GET    /api/invoices/{id}          Get invoice
    DELETE /api/invoices/{id}          Delete (reversal)
    POST   /api/invoices/{id}/status   Status transition
    POST   /api/payments               Record payment
    GET    /api/payments/{id}          Get payment
    DELETE /api/payments/{id}          Delete (reversal)

  Orders:
    GET    /api/orders                 List orders
    POST   /api/orders                 Create order
    GET    /api/orders/{id}            Get order
    POST   /api/orders/{id}/price      Seller prices lines
    POST   /api/orders/{id}/submit     Send for customer approval
    POST   /api/orders/{id}/approve    Approve: posts exactly one invoice
    POST   /api/orders/{id}/reject     Reject with reason
    POST   /api/orders/{id}/cancel     Seller cancels an open order

TENANCY:
  Every scoped endpoint requires a company_id query parameter. A request
  without one is rejected with 400 before any store access.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Record not found
  - 409: Conflict (finalized order, duplicate posting, party with history)
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/cari-ledger/accounts"
	"github.com/warp/cari-ledger/ledger"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store      ledger.TxStore
	Parties    *accounts.PartyService
	Posting    *accounts.PostingService
	Orders     *accounts.OrderService
	Statements *accounts.StatementService
}

// NewHandler wires the services over a single store.
func NewHandler(store ledger.TxStore) *Handler {
	return &Handler{
		Store:      store,
		Parties:    accounts.NewPartyService(store),
		Posting:    accounts.NewPostingService(store),
		Orders:     accounts.NewOrderService(store),
		Statements: accounts.NewStatementService(store),
	}
}

// =============================================================================
// COMPANY HANDLERS
// =============================================================================

// ListCompanies returns all companies.
func (h *Handler) ListCompanies(w http.ResponseWriter, r *http.Request) {
	companies, err := h.Store.ListCompanies(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list companies", err)
		return
	}
	dtos := make([]CompanyDTO, len(companies))
	for i, c := range companies {
		dtos[i] = toCompanyDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateCompany creates a new tenant.
func (h *Handler) CreateCompany(w http.ResponseWriter, r *http.Request) {
	var req CreateCompanyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required", nil)
		return
	}
	company := ledger.Company{
		ID:        ledger.CompanyID(newID()),
		Name:      req.Name,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.Store.CreateCompany(r.Context(), company); err != nil {
		writeDomainError(w, "Failed to create company", err)
		return
	}
	writeJSON(w, http.StatusCreated, toCompanyDTO(company))
}

// =============================================================================
// PRODUCT HANDLERS
// =============================================================================

// ListProducts returns the company's product catalog.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	companyID, ok := requireCompany(w, r)
	if !ok {
		return
	}
	products, err := h.Store.ListProducts(r.Context(), companyID)
	if err != nil {
		writeDomainError(w, "Failed to list products", err)
		return
	}
	dtos := make([]ProductDTO, len(products))
	for i, p := range products {
		dtos[i] = toProductDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateProduct adds a product to the catalog.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	companyID, ok := requireCompany(w, r)
	if !ok {
		return
	}
	var req CreateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required", nil)
		return
	}
	price, err := decimal.NewFromString(req.UnitPrice)
	if err != nil || price.IsNegative() {
		writeError(w, http.StatusBadRequest, "unit_price must be a non-negative decimal", err)
		return
	}
	product := ledger.Product{
		ID:        ledger.ProductID(newID()),
		CompanyID: companyID,
		Name:      req.Name,
		UnitPrice: price,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.Store.CreateProduct(r.Context(), product); err != nil {
		writeDomainError(w, "Failed to create product", err)
		return
	}
	writeJSON(w, http.StatusCreated, toProductDTO(product))
}

// =============================================================================
// PARTY HANDLERS
// =============================================================================

// ListParties returns the company's customers and vendors.
func (h *Handler) ListParties(w http.ResponseWriter, r *http.Request) {
	companyID, ok := requireCompany(w, r)
	if !ok {
		return
	}
	parties, err := h.Store.ListParties(r.Context(), companyID)
	if err != nil {
		writeDomainError(w, "Failed to list parties", err)
		return
	}
	dtos := make([]PartyDTO, len(parties))
	for i, p := range parties {
		dtos[i] = toPartyDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateParty registers a new customer or vendor.
func (h *Handler) CreateParty(w http.ResponseWriter, r *http.Request) {
	companyID, ok := requireCompany(w, r)
	if !ok {
		return
	}
	var req CreatePartyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	party, err := h.Parties.Register(r.Context(), companyID, ledger.PartyKind(req.Kind), req.Name, req.Email, req.Phone)
	if err != nil {
		writeDomainError(w, "Failed to create party", err)
		return
	}
	writeJSON(w, http.StatusCreated, toPartyDTO(*party))
}

// GetParty returns one party.
func (h *Handler) GetParty(w http.ResponseWriter, r *http.Request) {
	companyID, ok := requireCompany(w, r)
	if !ok {
		return
	}
	id := ledger.PartyID(chi.URLParam(r, "id"))
	party, err := h.Store.GetParty(r.Context(), companyID, id)
	if err != nil {
		writeDomainError(w, "Failed to get party", err)
		return
	}
	writeJSON(w, http.StatusOK, toPartyDTO(*party))
}

// UpdateParty edits name and contact info.
func (h *Handler) UpdateParty(w http.ResponseWriter, r *http.Request) {
	companyID, ok := requireCompany(w, r)
	if !ok {
		return
	}
	id := ledger.PartyID(chi.URLParam(r, "id"))
	var req UpdatePartyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.Parties.UpdateContact(r.Context(), companyID, id, req.Name, req.Email, req.Phone); err != nil {
		writeDomainError(w, "Failed to update party", err)
		return
	}
	party, err := h.Store.GetParty(r.Context(), companyID, id)
	if err != nil {
		writeDomainError(w, "Failed to get party", err)
		return
	}
	writeJSON(w, http.StatusOK, toPartyDTO(*party))
}

// DeleteParty removes a party with no ledger history.
func (h *Handler) DeleteParty(w http.ResponseWriter, r *http.Request) {
	companyID, ok := requireCompany(w, r)
	if !ok {
		return
	}
	id := ledger.PartyID(chi.URLParam(r, "id"))
	if err := h.Parties.Delete(r.Context(), companyID, id); err != nil {
		writeDomainError(w, "Failed to delete party", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetBalance returns the derived balance, optionally as of a date.
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	companyID, ok := requireCompany(w, r)
	if !ok {
		return
	}
	id := ledger.PartyID(chi.URLParam(r, "id"))

	var (
		balance decimal.Decimal
		err     error
		asOfStr = r.URL.Query().Get("as_of")
	)
	if asOfStr != "" {
		asOf, perr := time.Parse("2006-01-02", asOfStr)
		if perr != nil {
			writeError(w, http.StatusBadRequest, "as_of must be YYYY-MM-DD", perr)
			return
		}
		balance, err = h.Parties.BalanceAsOf(r.Context(), companyID, id, asOf)
	} else {
		balance, err = h.Parties.Balance(r.Context(), companyID, id)
	}
	if err != nil {
		writeDomainError(w, "Failed to compute balance", err)
		return
	}
	writeJSON(w, http.StatusOK, BalanceDTO{
		PartyID: string(id),
		Balance: balance.String(),
		AsOf:    asOfStr,
	})
}

// GetStatement returns the merged, newest-first statement for a party.
func (h *Handler) GetStatement(w http.ResponseWriter, r *http.Request) {
	companyID, ok := requireCompany(w, r)
	if !ok {
		return
	}
	id := ledger.PartyID(chi.URLParam(r, "id"))

	filter := ledger.StatementFilter{Type: ledger.FilterAll}
	switch t := r.URL.Query().Get("type"); t {
	case "", "all":
	case "invoice":
		filter.Type = ledger.FilterInvoice
	case "payment":
		filter.Type = ledger.FilterPayment
	default:
		writeError(w, http.StatusBadRequest, "type must be all, invoice or payment", nil)
		return
	}
	if from := r.URL.Query().Get("from"); from != "" {
		t, err := time.Parse("2006-01-02", from)
		if err != nil {
			writeError(w, http.StatusBadRequest, "from must be YYYY-MM-DD", err)
			return
		}
		filter.From = &t
	}
	if to := r.URL.Query().Get("to"); to != "" {
		t, err := time.Parse("2006-01-02", to)
		if err != nil {
			writeError(w, http.StatusBadRequest, "to must be YYYY-MM-DD", err)
			return
		}
		filter.To = &t
	}

	statement, err := h.Statements.Build(r.Context(), companyID, id, filter)
	if err != nil {
		writeDomainError(w, "Failed to build statement", err)
		return
	}
	writeJSON(w, http.StatusOK, toStatementDTO(statement))
}

// =============================================================================
// INVOICE HANDLERS
// =============================================================================

// CreateInvoice records a manually entered invoice.
func (h *Handler) CreateInvoice(w http.ResponseWriter, r *http.Request) {
	companyID, ok := requireCompany(w, r)
	if !ok {
		return
	}
	var req CreateInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "amount must be a decimal string", err)
		return
	}
	inv := ledger.Invoice{
		CompanyID: companyID,
		PartyID:   ledger.PartyID(req.PartyID),
		Direction: ledger.InvoiceDirection(req.Direction),
		Amount:    amount,
		Status:    ledger.InvoiceStatus(req.Status),
	}
	if req.IssueDate != "" {
		issue, perr := time.Parse("2006-01-02", req.IssueDate)
		if perr != nil {
			writeError(w, http.StatusBadRequest, "issue_date must be YYYY-MM-DD", perr)
			return
		}
		inv.IssueDate = issue
	}
	stored, err := h.Posting.RecordInvoice(r.Context(), inv)
	if err != nil {
		writeDomainError(w, "Failed to record invoice", err)
		return
	}
	writeJSON(w, http.StatusCreated, toInvoiceDTO(*stored))
}

// GetInvoice returns one invoice.
func (h *Handler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	companyID, ok := requireCompany(w, r)
	if !ok {
		return
	}
	id := ledger.InvoiceID(chi.URLParam(r, "id"))
	inv, err := h.Store.GetInvoice(r.Context(), companyID, id)
	if err != nil {
		writeDomainError(w, "Failed to get invoice", err)
		return
	}
	writeJSON(w, http.StatusOK, toInvoiceDTO(*inv))
}

// SetInvoiceStatus applies a status transition.
func (h *Handler) SetInvoiceStatus(w http.ResponseWriter, r *http.Request) {
	companyID, ok := requireCompany(w, r)
	if !ok {
		return
	}
	id := ledger.InvoiceID(chi.URLParam(r, "id"))
	var req SetInvoiceStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.Posting.SetInvoiceStatus(r.Context(), companyID, id, ledger.InvoiceStatus(req.Status)); err != nil {
		writeDomainError(w, "Failed to set invoice status", err)
		return
	}
	inv, err := h.Store.GetInvoice(r.Context(), companyID, id)
	if err != nil {
		writeDomainError(w, "Failed to get invoice", err)
		return
	}
	writeJSON(w, http.StatusOK, toInvoiceDTO(*inv))
}

// DeleteInvoice removes an invoice; the party balance reverts to the cent.
func (h *Handler) DeleteInvoice(w http.ResponseWriter, r *http.Request) {
	companyID, ok := requireCompany(w, r)
	if !ok {
		return
	}
	id := ledger.InvoiceID(chi.URLParam(r, "id"))
	if err := h.Posting.DeleteInvoice(r.Context(), companyID, id); err != nil {
		writeDomainError(w, "Failed to delete invoice", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// PAYMENT HANDLERS
// =============================================================================

// CreatePayment records a collection or disbursement.
func (h *Handler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	companyID, ok := requireCompany(w, r)
	if !ok {
		return
	}
	var req CreatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "amount must be a decimal string", err)
		return
	}
	p := ledger.Payment{
		CompanyID: companyID,
		PartyID:   ledger.PartyID(req.PartyID),
		Direction: ledger.PaymentDirection(req.Direction),
		Amount:    amount,
	}
	if req.Date != "" {
		d, perr := time.Parse("2006-01-02", req.Date)
		if perr != nil {
			writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD", perr)
			return
		}
		p.Date = d
	}
	stored, err := h.Posting.RecordPayment(r.Context(), p)
	if err != nil {
		writeDomainError(w, "Failed to record payment", err)
		return
	}
	writeJSON(w, http.StatusCreated, toPaymentDTO(*stored))
}

// GetPayment returns one payment.
func (h *Handler) GetPayment(w http.ResponseWriter, r *http.Request) {
	companyID, ok := requireCompany(w, r)
	if !ok {
		return
	}
	id := ledger.PaymentID(chi.URLParam(r, "id"))
	p, err := h.Store.GetPayment(r.Context(), companyID, id)
	if err != nil {
		writeDomainError(w, "Failed to get payment", err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentDTO(*p))
}

// DeletePayment removes a payment; the party balance reverts to the cent.
func (h *Handler) DeletePayment(w http.ResponseWriter, r *http.Request) {
	companyID, ok := requireCompany(w, r)
	if !ok {
		return
	}
	id := ledger.PaymentID(chi.URLParam(r, "id"))
	if err := h.Posting.DeletePayment(r.Context(), companyID, id); err != nil {
		writeDomainError(w, "Failed to delete payment", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// ORDER HANDLERS
// =============================================================================

// ListOrders returns the company's orders.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	companyID, ok := requireCompany(w, r)
	if !ok {
		return
	}
	orders, err := h.Store.ListOrders(r.Context(), companyID)
	if err != nil {
		writeDomainError(w, "Failed to list orders", err)
		return
	}
	dtos := make([]OrderDTO, len(orders))
	for i, o := range orders {
		dtos[i] = toOrderDTO(o)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateOrder opens a new customer order in pending status.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	companyID, ok := requireCompany(w, r)
	if !ok {
		return
	}
	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	lines, err := parseOrderLines(req.Lines)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid order lines", err)
		return
	}
	order, err := h.Orders.Create(r.Context(), companyID, ledger.PartyID(req.PartyID), lines)
	if err != nil {
		writeDomainError(w, "Failed to create order", err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderDTO(*order))
}

// GetOrder returns one order with its lines.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	companyID, ok := requireCompany(w, r)
	if !ok {
		return
	}
	id := ledger.OrderID(chi.URLParam(r, "id"))
	order, err := h.Store.GetOrder(r.Context(), companyID, id)
	if err != nil {
		writeDomainError(w, "Failed to get order", err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTO(*order))
}

// PriceOrder lets the seller set unit prices on an open order.
func (h *Handler) PriceOrder(w http.ResponseWriter, r *http.Request) {
	companyID, ok := requireCompany(w, r)
	if !ok {
		return
	}
	id := ledger.OrderID(chi.URLParam(r, "id"))
	var req PriceOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	lines, err := parseOrderLines(req.Lines)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid order lines", err)
		return
	}
	order, err := h.Orders.Price(r.Context(), companyID, id, lines)
	if err != nil {
		writeDomainError(w, "Failed to price order", err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTO(*order))
}

// SubmitOrder sends a priced order to the customer for approval.
func (h *Handler) SubmitOrder(w http.ResponseWriter, r *http.Request) {
	companyID, ok := requireCompany(w, r)
	if !ok {
		return
	}
	id := ledger.OrderID(chi.URLParam(r, "id"))
	order, err := h.Orders.Submit(r.Context(), companyID, id)
	if err != nil {
		writeDomainError(w, "Failed to submit order", err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTO(*order))
}

// ApproveOrder finalizes the order and posts exactly one sales invoice.
// A second approval returns 409, never a second invoice.
func (h *Handler) ApproveOrder(w http.ResponseWriter, r *http.Request) {
	companyID, ok := requireCompany(w, r)
	if !ok {
		return
	}
	id := ledger.OrderID(chi.URLParam(r, "id"))
	inv, err := h.Orders.Approve(r.Context(), companyID, id)
	if err != nil {
		writeDomainError(w, "Failed to approve order", err)
		return
	}
	writeJSON(w, http.StatusOK, toInvoiceDTO(*inv))
}

// RejectOrder finalizes the order with a reason; nothing is posted.
func (h *Handler) RejectOrder(w http.ResponseWriter, r *http.Request) {
	companyID, ok := requireCompany(w, r)
	if !ok {
		return
	}
	id := ledger.OrderID(chi.URLParam(r, "id"))
	var req RejectOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	order, err := h.Orders.Reject(r.Context(), companyID, id, req.Reason)
	if err != nil {
		writeDomainError(w, "Failed to reject order", err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTO(*order))
}

// CancelOrder lets the seller withdraw an order not yet sent for approval.
func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	companyID, ok := requireCompany(w, r)
	if !ok {
		return
	}
	id := ledger.OrderID(chi.URLParam(r, "id"))
	order, err := h.Orders.Cancel(r.Context(), companyID, id)
	if err != nil {
		writeDomainError(w, "Failed to cancel order", err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTO(*order))
}

// =============================================================================
// HELPERS
// =============================================================================

func newID() string { return uuid.NewString() }

// requireCompany extracts the mandatory company_id query parameter.
func requireCompany(w http.ResponseWriter, r *http.Request) (ledger.CompanyID, bool) {
	id := r.URL.Query().Get("company_id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "company_id query parameter is required", nil)
		return "", false
	}
	return ledger.CompanyID(id), true
}

func parseOrderLines(in []OrderLineDTO) ([]ledger.OrderLine, error) {
	lines := make([]ledger.OrderLine, len(in))
	for i, l := range in {
		qty, err := decimal.NewFromString(l.Quantity)
		if err != nil {
			return nil, &ledger.ValidationError{Field: "quantity", Reason: "must be a decimal string", Value: l.Quantity}
		}
		price := decimal.Zero
		if l.UnitPrice != "" {
			price, err = decimal.NewFromString(l.UnitPrice)
			if err != nil {
				return nil, &ledger.ValidationError{Field: "unit_price", Reason: "must be a decimal string", Value: l.UnitPrice}
			}
		}
		lines[i] = ledger.OrderLine{
			ProductID:   ledger.ProductID(l.ProductID),
			Description: l.Description,
			Quantity:    qty,
			UnitPrice:   price,
		}
	}
	return lines, nil
}

// writeDomainError maps a domain error onto the HTTP failure taxonomy.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case ledger.IsValidation(err):
		writeError(w, http.StatusBadRequest, message, err)
	case ledger.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case ledger.IsConflict(err):
		writeError(w, http.StatusConflict, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
