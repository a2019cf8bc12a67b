// Package store provides an in-memory ledger.Store implementation
// for tests and development.
package store

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/warp/cari-ledger/ledger"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

// Memory is a map-backed TxStore. WithTx is simulated with a deep snapshot
// restored on error, matching the commit/rollback semantics of the SQL store.
type Memory struct {
	mu sync.RWMutex

	companies map[ledger.CompanyID]ledger.Company
	products  map[ledger.ProductID]ledger.Product
	parties   map[ledger.PartyID]ledger.Party
	invoices  map[ledger.InvoiceID]ledger.Invoice
	payments  map[ledger.PaymentID]ledger.Payment
	orders    map[ledger.OrderID]ledger.Order

	// postedOrders mirrors the SQL unique index on invoices(order_id).
	postedOrders map[ledger.OrderID]ledger.InvoiceID

	seq int64

	// FailNextInsertInvoice forces the next invoice insert to fail.
	// Test hook for atomicity scenarios; never set in production code.
	FailNextInsertInvoice error
}

func NewMemory() *Memory {
	return &Memory{
		companies:    make(map[ledger.CompanyID]ledger.Company),
		products:     make(map[ledger.ProductID]ledger.Product),
		parties:      make(map[ledger.PartyID]ledger.Party),
		invoices:     make(map[ledger.InvoiceID]ledger.Invoice),
		payments:     make(map[ledger.PaymentID]ledger.Payment),
		orders:       make(map[ledger.OrderID]ledger.Order),
		postedOrders: make(map[ledger.OrderID]ledger.InvoiceID),
	}
}

func (m *Memory) nextSeq() int64 {
	m.seq++
	return m.seq
}

// =============================================================================
// COMPANIES
// =============================================================================

func (m *Memory) CreateCompany(_ context.Context, c ledger.Company) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.companies[c.ID] = c
	return nil
}

func (m *Memory) GetCompany(_ context.Context, id ledger.CompanyID) (*ledger.Company, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.companies[id]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	return &c, nil
}

func (m *Memory) ListCompanies(_ context.Context) ([]ledger.Company, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ledger.Company, 0, len(m.companies))
	for _, c := range m.companies {
		out = append(out, c)
	}
	return out, nil
}

// =============================================================================
// PRODUCTS
// =============================================================================

func (m *Memory) CreateProduct(_ context.Context, p ledger.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[p.ID] = p
	return nil
}

func (m *Memory) GetProduct(_ context.Context, companyID ledger.CompanyID, id ledger.ProductID) (*ledger.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.products[id]
	if !ok || p.CompanyID != companyID {
		return nil, ledger.ErrNotFound
	}
	return &p, nil
}

func (m *Memory) ListProducts(_ context.Context, companyID ledger.CompanyID) ([]ledger.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ledger.Product
	for _, p := range m.products {
		if p.CompanyID == companyID {
			out = append(out, p)
		}
	}
	return out, nil
}

// =============================================================================
// PARTIES
// =============================================================================

func (m *Memory) CreateParty(_ context.Context, p ledger.Party) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.parties[p.ID] = p
	return nil
}

func (m *Memory) GetParty(_ context.Context, companyID ledger.CompanyID, id ledger.PartyID) (*ledger.Party, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.parties[id]
	if !ok || p.CompanyID != companyID {
		return nil, ledger.ErrNotFound
	}
	return &p, nil
}

func (m *Memory) ListParties(_ context.Context, companyID ledger.CompanyID) ([]ledger.Party, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ledger.Party
	for _, p := range m.parties {
		if p.CompanyID == companyID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *Memory) UpdatePartyContact(_ context.Context, companyID ledger.CompanyID, id ledger.PartyID, name, email, phone string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.parties[id]
	if !ok || p.CompanyID != companyID {
		return ledger.ErrNotFound
	}
	p.Name, p.Email, p.Phone = name, email, phone
	m.parties[id] = p
	return nil
}

func (m *Memory) DeleteParty(_ context.Context, companyID ledger.CompanyID, id ledger.PartyID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.parties[id]
	if !ok || p.CompanyID != companyID {
		return ledger.ErrNotFound
	}
	if m.hasHistoryLocked(companyID, id) {
		return ledger.ErrPartyHasHistory
	}
	delete(m.parties, id)
	return nil
}

func (m *Memory) PartyHasHistory(_ context.Context, companyID ledger.CompanyID, id ledger.PartyID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.hasHistoryLocked(companyID, id), nil
}

func (m *Memory) hasHistoryLocked(companyID ledger.CompanyID, id ledger.PartyID) bool {
	for _, inv := range m.invoices {
		if inv.CompanyID == companyID && inv.PartyID == id {
			return true
		}
	}
	for _, pay := range m.payments {
		if pay.CompanyID == companyID && pay.PartyID == id {
			return true
		}
	}
	return false
}

// =============================================================================
// INVOICES
// =============================================================================

func (m *Memory) InsertInvoice(_ context.Context, inv ledger.Invoice) (ledger.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertInvoiceLocked(inv)
}

func (m *Memory) insertInvoiceLocked(inv ledger.Invoice) (ledger.Invoice, error) {
	if m.FailNextInsertInvoice != nil {
		err := m.FailNextInsertInvoice
		m.FailNextInsertInvoice = nil
		return ledger.Invoice{}, err
	}
	if inv.OrderID != "" {
		if _, posted := m.postedOrders[inv.OrderID]; posted {
			return ledger.Invoice{}, ledger.ErrDuplicatePosting
		}
	}
	inv.Seq = m.nextSeq()
	m.invoices[inv.ID] = inv
	if inv.OrderID != "" {
		m.postedOrders[inv.OrderID] = inv.ID
	}
	return inv, nil
}

func (m *Memory) GetInvoice(_ context.Context, companyID ledger.CompanyID, id ledger.InvoiceID) (*ledger.Invoice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	inv, ok := m.invoices[id]
	if !ok || inv.CompanyID != companyID {
		return nil, ledger.ErrNotFound
	}
	return &inv, nil
}

func (m *Memory) InvoicesByParty(_ context.Context, companyID ledger.CompanyID, partyID ledger.PartyID) ([]ledger.Invoice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ledger.Invoice
	for _, inv := range m.invoices {
		if inv.CompanyID == companyID && inv.PartyID == partyID {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (m *Memory) SetInvoiceStatus(_ context.Context, companyID ledger.CompanyID, id ledger.InvoiceID, from, to ledger.InvoiceStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invoices[id]
	if !ok || inv.CompanyID != companyID {
		return ledger.ErrNotFound
	}
	// Compare-and-swap: the losing racer sees the condition fail.
	if inv.Status != from {
		return ledger.ErrConcurrentModification
	}
	inv.Status = to
	m.invoices[id] = inv
	return nil
}

func (m *Memory) DeleteInvoice(_ context.Context, companyID ledger.CompanyID, id ledger.InvoiceID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invoices[id]
	if !ok || inv.CompanyID != companyID {
		return ledger.ErrNotFound
	}
	delete(m.invoices, id)
	if inv.OrderID != "" {
		delete(m.postedOrders, inv.OrderID)
	}
	return nil
}

// =============================================================================
// PAYMENTS
// =============================================================================

func (m *Memory) InsertPayment(_ context.Context, p ledger.Payment) (ledger.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.Seq = m.nextSeq()
	m.payments[p.ID] = p
	return p, nil
}

func (m *Memory) GetPayment(_ context.Context, companyID ledger.CompanyID, id ledger.PaymentID) (*ledger.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.payments[id]
	if !ok || p.CompanyID != companyID {
		return nil, ledger.ErrNotFound
	}
	return &p, nil
}

func (m *Memory) PaymentsByParty(_ context.Context, companyID ledger.CompanyID, partyID ledger.PartyID) ([]ledger.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ledger.Payment
	for _, p := range m.payments {
		if p.CompanyID == companyID && p.PartyID == partyID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *Memory) DeletePayment(_ context.Context, companyID ledger.CompanyID, id ledger.PaymentID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[id]
	if !ok || p.CompanyID != companyID {
		return ledger.ErrNotFound
	}
	delete(m.payments, id)
	return nil
}

// =============================================================================
// ORDERS
// =============================================================================

func (m *Memory) CreateOrder(_ context.Context, o ledger.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[o.ID] = o
	return nil
}

func (m *Memory) GetOrder(_ context.Context, companyID ledger.CompanyID, id ledger.OrderID) (*ledger.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.orders[id]
	if !ok || o.CompanyID != companyID {
		return nil, ledger.ErrNotFound
	}
	o.Lines = append([]ledger.OrderLine(nil), o.Lines...)
	return &o, nil
}

func (m *Memory) ListOrders(_ context.Context, companyID ledger.CompanyID) ([]ledger.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ledger.Order
	for _, o := range m.orders {
		if o.CompanyID == companyID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *Memory) SaveOrderLines(_ context.Context, companyID ledger.CompanyID, id ledger.OrderID, lines []ledger.OrderLine, total decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok || o.CompanyID != companyID {
		return ledger.ErrNotFound
	}
	o.Lines = append([]ledger.OrderLine(nil), lines...)
	o.Total = total
	m.orders[id] = o
	return nil
}

func (m *Memory) SetOrderStatus(_ context.Context, companyID ledger.CompanyID, id ledger.OrderID, from, to ledger.OrderStatus, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok || o.CompanyID != companyID {
		return ledger.ErrNotFound
	}
	// Compare-and-swap: the losing racer sees the condition fail.
	if o.Status != from {
		return ledger.ErrConcurrentModification
	}
	o.Status = to
	o.RejectionReason = reason
	m.orders[id] = o
	return nil
}

// =============================================================================
// LEDGER READS
// =============================================================================

func (m *Memory) EntriesByParty(_ context.Context, companyID ledger.CompanyID, partyID ledger.PartyID) ([]ledger.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.entriesLocked(companyID, partyID), nil
}

func (m *Memory) entriesLocked(companyID ledger.CompanyID, partyID ledger.PartyID) []ledger.Entry {
	var out []ledger.Entry
	for _, inv := range m.invoices {
		if inv.CompanyID != companyID || inv.PartyID != partyID || !inv.Contributes() {
			continue
		}
		out = append(out, ledger.Entry{
			ID:        string(inv.ID),
			CompanyID: inv.CompanyID,
			PartyID:   inv.PartyID,
			Kind:      ledger.EntryInvoice,
			Direction: string(inv.Direction),
			Amount:    inv.Amount,
			Date:      inv.IssueDate,
			Seq:       inv.Seq,
		})
	}
	for _, p := range m.payments {
		if p.CompanyID != companyID || p.PartyID != partyID {
			continue
		}
		out = append(out, ledger.Entry{
			ID:        string(p.ID),
			CompanyID: p.CompanyID,
			PartyID:   p.PartyID,
			Kind:      ledger.EntryPayment,
			Direction: string(p.Direction),
			Amount:    p.Amount,
			Date:      p.Date,
			Seq:       p.Seq,
		})
	}
	return out
}

func (m *Memory) RecomputeBalance(_ context.Context, companyID ledger.CompanyID, partyID ledger.PartyID) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.parties[partyID]
	if !ok || p.CompanyID != companyID {
		return decimal.Zero, ledger.ErrNotFound
	}

	balance, err := ledger.Reduce(m.entriesLocked(companyID, partyID))
	if err != nil {
		return decimal.Zero, err
	}

	p.Balance = balance
	m.parties[partyID] = p
	return balance, nil
}

// =============================================================================
// TRANSACTIONS - snapshot + rollback
// =============================================================================

// WithTx executes fn against the store, restoring a snapshot on error.
func (m *Memory) WithTx(_ context.Context, fn func(ledger.Store) error) error {
	m.mu.Lock()
	snap := m.snapshotLocked()
	m.mu.Unlock()

	if err := fn(&txView{parent: m}); err != nil {
		m.mu.Lock()
		m.restoreLocked(snap)
		m.mu.Unlock()
		return err
	}
	return nil
}

type memorySnapshot struct {
	companies    map[ledger.CompanyID]ledger.Company
	products     map[ledger.ProductID]ledger.Product
	parties      map[ledger.PartyID]ledger.Party
	invoices     map[ledger.InvoiceID]ledger.Invoice
	payments     map[ledger.PaymentID]ledger.Payment
	orders       map[ledger.OrderID]ledger.Order
	postedOrders map[ledger.OrderID]ledger.InvoiceID
	seq          int64
}

func (m *Memory) snapshotLocked() memorySnapshot {
	s := memorySnapshot{
		companies:    make(map[ledger.CompanyID]ledger.Company, len(m.companies)),
		products:     make(map[ledger.ProductID]ledger.Product, len(m.products)),
		parties:      make(map[ledger.PartyID]ledger.Party, len(m.parties)),
		invoices:     make(map[ledger.InvoiceID]ledger.Invoice, len(m.invoices)),
		payments:     make(map[ledger.PaymentID]ledger.Payment, len(m.payments)),
		orders:       make(map[ledger.OrderID]ledger.Order, len(m.orders)),
		postedOrders: make(map[ledger.OrderID]ledger.InvoiceID, len(m.postedOrders)),
		seq:          m.seq,
	}
	for k, v := range m.companies {
		s.companies[k] = v
	}
	for k, v := range m.products {
		s.products[k] = v
	}
	for k, v := range m.parties {
		s.parties[k] = v
	}
	for k, v := range m.invoices {
		s.invoices[k] = v
	}
	for k, v := range m.payments {
		s.payments[k] = v
	}
	for k, v := range m.orders {
		o := v
		o.Lines = append([]ledger.OrderLine(nil), v.Lines...)
		s.orders[k] = o
	}
	for k, v := range m.postedOrders {
		s.postedOrders[k] = v
	}
	return s
}

func (m *Memory) restoreLocked(s memorySnapshot) {
	m.companies = s.companies
	m.products = s.products
	m.parties = s.parties
	m.invoices = s.invoices
	m.payments = s.payments
	m.orders = s.orders
	m.postedOrders = s.postedOrders
	m.seq = s.seq
}

// txView delegates to the parent store; rollback is handled by WithTx.
type txView struct {
	parent *Memory
}

func (t *txView) CreateCompany(ctx context.Context, c ledger.Company) error {
	return t.parent.CreateCompany(ctx, c)
}
func (t *txView) GetCompany(ctx context.Context, id ledger.CompanyID) (*ledger.Company, error) {
	return t.parent.GetCompany(ctx, id)
}
func (t *txView) ListCompanies(ctx context.Context) ([]ledger.Company, error) {
	return t.parent.ListCompanies(ctx)
}
func (t *txView) CreateProduct(ctx context.Context, p ledger.Product) error {
	return t.parent.CreateProduct(ctx, p)
}
func (t *txView) GetProduct(ctx context.Context, companyID ledger.CompanyID, id ledger.ProductID) (*ledger.Product, error) {
	return t.parent.GetProduct(ctx, companyID, id)
}
func (t *txView) ListProducts(ctx context.Context, companyID ledger.CompanyID) ([]ledger.Product, error) {
	return t.parent.ListProducts(ctx, companyID)
}
func (t *txView) CreateParty(ctx context.Context, p ledger.Party) error {
	return t.parent.CreateParty(ctx, p)
}
func (t *txView) GetParty(ctx context.Context, companyID ledger.CompanyID, id ledger.PartyID) (*ledger.Party, error) {
	return t.parent.GetParty(ctx, companyID, id)
}
func (t *txView) ListParties(ctx context.Context, companyID ledger.CompanyID) ([]ledger.Party, error) {
	return t.parent.ListParties(ctx, companyID)
}
func (t *txView) UpdatePartyContact(ctx context.Context, companyID ledger.CompanyID, id ledger.PartyID, name, email, phone string) error {
	return t.parent.UpdatePartyContact(ctx, companyID, id, name, email, phone)
}
func (t *txView) DeleteParty(ctx context.Context, companyID ledger.CompanyID, id ledger.PartyID) error {
	return t.parent.DeleteParty(ctx, companyID, id)
}
func (t *txView) PartyHasHistory(ctx context.Context, companyID ledger.CompanyID, id ledger.PartyID) (bool, error) {
	return t.parent.PartyHasHistory(ctx, companyID, id)
}
func (t *txView) InsertInvoice(ctx context.Context, inv ledger.Invoice) (ledger.Invoice, error) {
	return t.parent.InsertInvoice(ctx, inv)
}
func (t *txView) GetInvoice(ctx context.Context, companyID ledger.CompanyID, id ledger.InvoiceID) (*ledger.Invoice, error) {
	return t.parent.GetInvoice(ctx, companyID, id)
}
func (t *txView) InvoicesByParty(ctx context.Context, companyID ledger.CompanyID, partyID ledger.PartyID) ([]ledger.Invoice, error) {
	return t.parent.InvoicesByParty(ctx, companyID, partyID)
}
func (t *txView) SetInvoiceStatus(ctx context.Context, companyID ledger.CompanyID, id ledger.InvoiceID, from, to ledger.InvoiceStatus) error {
	return t.parent.SetInvoiceStatus(ctx, companyID, id, from, to)
}
func (t *txView) DeleteInvoice(ctx context.Context, companyID ledger.CompanyID, id ledger.InvoiceID) error {
	return t.parent.DeleteInvoice(ctx, companyID, id)
}
func (t *txView) InsertPayment(ctx context.Context, p ledger.Payment) (ledger.Payment, error) {
	return t.parent.InsertPayment(ctx, p)
}
func (t *txView) GetPayment(ctx context.Context, companyID ledger.CompanyID, id ledger.PaymentID) (*ledger.Payment, error) {
	return t.parent.GetPayment(ctx, companyID, id)
}
func (t *txView) PaymentsByParty(ctx context.Context, companyID ledger.CompanyID, partyID ledger.PartyID) ([]ledger.Payment, error) {
	return t.parent.PaymentsByParty(ctx, companyID, partyID)
}
func (t *txView) DeletePayment(ctx context.Context, companyID ledger.CompanyID, id ledger.PaymentID) error {
	return t.parent.DeletePayment(ctx, companyID, id)
}
func (t *txView) CreateOrder(ctx context.Context, o ledger.Order) error {
	return t.parent.CreateOrder(ctx, o)
}
func (t *txView) GetOrder(ctx context.Context, companyID ledger.CompanyID, id ledger.OrderID) (*ledger.Order, error) {
	return t.parent.GetOrder(ctx, companyID, id)
}
func (t *txView) ListOrders(ctx context.Context, companyID ledger.CompanyID) ([]ledger.Order, error) {
	return t.parent.ListOrders(ctx, companyID)
}
func (t *txView) SaveOrderLines(ctx context.Context, companyID ledger.CompanyID, id ledger.OrderID, lines []ledger.OrderLine, total decimal.Decimal) error {
	return t.parent.SaveOrderLines(ctx, companyID, id, lines, total)
}
func (t *txView) SetOrderStatus(ctx context.Context, companyID ledger.CompanyID, id ledger.OrderID, from, to ledger.OrderStatus, reason string) error {
	return t.parent.SetOrderStatus(ctx, companyID, id, from, to, reason)
}
func (t *txView) EntriesByParty(ctx context.Context, companyID ledger.CompanyID, partyID ledger.PartyID) ([]ledger.Entry, error) {
	return t.parent.EntriesByParty(ctx, companyID, partyID)
}
func (t *txView) RecomputeBalance(ctx context.Context, companyID ledger.CompanyID, partyID ledger.PartyID) (decimal.Decimal, error) {
	return t.parent.RecomputeBalance(ctx, companyID, partyID)
}
