/*
Package sqlite provides the SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements ledger.Store and ledger.TxStore using database/sql with
  mattn/go-sqlite3. The same patterns apply to PostgreSQL - only minor SQL
  dialect differences.

KEY TABLES:
  companies     Tenant anchors
  parties       Current-account entities with the cached balance column
  invoices      Raw invoice rows (direction, amount, status)
  payments      Raw payment rows (direction, amount)
  orders        Approval workflow state
  order_lines   Priced line items
  products      Catalog for order lines
  record_seq    Shared creation-sequence counter for invoices and payments

INVARIANT ENFORCEMENT AT THE SCHEMA LEVEL:
  - idx_invoices_order UNIQUE on invoices(order_id): one order can never
    post two invoices, no matter what the application layer does
  - SetOrderStatus and SetInvoiceStatus are compare-and-swap on the current
    status: the losing side of a race sees zero rows affected
  - parties.balance is written only by RecomputeBalance, re-derived from
    the rows visible to the surrounding transaction

WAL MODE:
  Opened with WAL for better concurrency: readers don't block, single
  writer, better crash recovery.

USAGE:
  store, err := sqlite.New("./data/cari.db")   // ":memory:" for tests
  defer store.Close()
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/cari-ledger/ledger"
)

// Store implements ledger.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New opens (or creates) the database and migrates the schema.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS companies (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS products (
		id TEXT PRIMARY KEY,
		company_id TEXT NOT NULL,
		name TEXT NOT NULL,
		unit_price TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_products_company
		ON products(company_id);

	CREATE TABLE IF NOT EXISTS parties (
		id TEXT PRIMARY KEY,
		company_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		name TEXT NOT NULL,
		email TEXT,
		phone TEXT,
		balance TEXT NOT NULL DEFAULT '0',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_parties_company
		ON parties(company_id);

	CREATE TABLE IF NOT EXISTS invoices (
		id TEXT PRIMARY KEY,
		company_id TEXT NOT NULL,
		party_id TEXT NOT NULL,
		order_id TEXT,
		direction TEXT NOT NULL,
		amount TEXT NOT NULL,
		issue_date TEXT NOT NULL,
		status TEXT NOT NULL,
		created_seq INTEGER NOT NULL,
		created_at TEXT NOT NULL
	);

	-- CRITICAL: one order posts at most one invoice, ever.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_invoices_order
		ON invoices(order_id) WHERE order_id IS NOT NULL;

	CREATE INDEX IF NOT EXISTS idx_invoices_party
		ON invoices(company_id, party_id, issue_date);

	CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		company_id TEXT NOT NULL,
		party_id TEXT NOT NULL,
		direction TEXT NOT NULL,
		amount TEXT NOT NULL,
		pay_date TEXT NOT NULL,
		created_seq INTEGER NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_payments_party
		ON payments(company_id, party_id, pay_date);

	CREATE TABLE IF NOT EXISTS orders (
		id TEXT PRIMARY KEY,
		company_id TEXT NOT NULL,
		party_id TEXT NOT NULL,
		status TEXT NOT NULL,
		total TEXT NOT NULL DEFAULT '0',
		rejection_reason TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_orders_company
		ON orders(company_id, status);

	CREATE TABLE IF NOT EXISTS order_lines (
		order_id TEXT NOT NULL,
		line_no INTEGER NOT NULL,
		product_id TEXT,
		description TEXT,
		quantity TEXT NOT NULL,
		unit_price TEXT NOT NULL,
		PRIMARY KEY (order_id, line_no)
	);

	-- Shared creation-sequence counter: the statement tie-break must be
	-- stable across invoices AND payments, so both draw from one sequence.
	CREATE TABLE IF NOT EXISTS record_seq (
		n INTEGER PRIMARY KEY AUTOINCREMENT
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nextSeq(ctx context.Context, db dbtx) (int64, error) {
	res, err := db.ExecContext(ctx, "INSERT INTO record_seq DEFAULT VALUES")
	if err != nil {
		return 0, fmt.Errorf("failed to allocate sequence: %w", err)
	}
	return res.LastInsertId()
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

// =============================================================================
// COMPANIES
// =============================================================================

func (s *Store) CreateCompany(ctx context.Context, c ledger.Company) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return createCompany(ctx, s.db, c)
}

func createCompany(ctx context.Context, db dbtx, c ledger.Company) error {
	_, err := db.ExecContext(ctx,
		"INSERT INTO companies (id, name, created_at) VALUES (?, ?, ?)",
		c.ID, c.Name, c.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to insert company: %w", err)
	}
	return nil
}

func (s *Store) GetCompany(ctx context.Context, id ledger.CompanyID) (*ledger.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getCompany(ctx, s.db, id)
}

func getCompany(ctx context.Context, db dbtx, id ledger.CompanyID) (*ledger.Company, error) {
	var c ledger.Company
	var createdAt string
	err := db.QueryRowContext(ctx,
		"SELECT id, name, created_at FROM companies WHERE id = ?", id,
	).Scan(&c.ID, &c.Name, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ledger.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get company: %w", err)
	}
	c.CreatedAt = parseTime(createdAt)
	return &c, nil
}

func (s *Store) ListCompanies(ctx context.Context) ([]ledger.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, created_at FROM companies ORDER BY created_at")
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}
	defer rows.Close()

	var out []ledger.Company
	for rows.Next() {
		var c ledger.Company
		var createdAt string
		if err := rows.Scan(&c.ID, &c.Name, &createdAt); err != nil {
			return nil, err
		}
		c.CreatedAt = parseTime(createdAt)
		out = append(out, c)
	}
	return out, rows.Err()
}

// =============================================================================
// PRODUCTS
// =============================================================================

func (s *Store) CreateProduct(ctx context.Context, p ledger.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return createProduct(ctx, s.db, p)
}

func createProduct(ctx context.Context, db dbtx, p ledger.Product) error {
	_, err := db.ExecContext(ctx,
		"INSERT INTO products (id, company_id, name, unit_price, created_at) VALUES (?, ?, ?, ?, ?)",
		p.ID, p.CompanyID, p.Name, p.UnitPrice.String(), p.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to insert product: %w", err)
	}
	return nil
}

func (s *Store) GetProduct(ctx context.Context, companyID ledger.CompanyID, id ledger.ProductID) (*ledger.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getProduct(ctx, s.db, companyID, id)
}

func getProduct(ctx context.Context, db dbtx, companyID ledger.CompanyID, id ledger.ProductID) (*ledger.Product, error) {
	var p ledger.Product
	var unitPrice, createdAt string
	err := db.QueryRowContext(ctx,
		"SELECT id, company_id, name, unit_price, created_at FROM products WHERE id = ? AND company_id = ?",
		id, companyID,
	).Scan(&p.ID, &p.CompanyID, &p.Name, &unitPrice, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ledger.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	p.UnitPrice = parseDecimal(unitPrice)
	p.CreatedAt = parseTime(createdAt)
	return &p, nil
}

func (s *Store) ListProducts(ctx context.Context, companyID ledger.CompanyID) ([]ledger.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, company_id, name, unit_price, created_at FROM products WHERE company_id = ? ORDER BY name",
		companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	var out []ledger.Product
	for rows.Next() {
		var p ledger.Product
		var unitPrice, createdAt string
		if err := rows.Scan(&p.ID, &p.CompanyID, &p.Name, &unitPrice, &createdAt); err != nil {
			return nil, err
		}
		p.UnitPrice = parseDecimal(unitPrice)
		p.CreatedAt = parseTime(createdAt)
		out = append(out, p)
	}
	return out, rows.Err()
}

// =============================================================================
// PARTIES
// =============================================================================

func (s *Store) CreateParty(ctx context.Context, p ledger.Party) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return createParty(ctx, s.db, p)
}

func createParty(ctx context.Context, db dbtx, p ledger.Party) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO parties (id, company_id, kind, name, email, phone, balance, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.CompanyID, p.Kind, p.Name, p.Email, p.Phone,
		p.Balance.String(), p.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to insert party: %w", err)
	}
	return nil
}

func (s *Store) GetParty(ctx context.Context, companyID ledger.CompanyID, id ledger.PartyID) (*ledger.Party, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getParty(ctx, s.db, companyID, id)
}

func getParty(ctx context.Context, db dbtx, companyID ledger.CompanyID, id ledger.PartyID) (*ledger.Party, error) {
	var p ledger.Party
	var email, phone sql.NullString
	var balance, createdAt string
	err := db.QueryRowContext(ctx,
		`SELECT id, company_id, kind, name, email, phone, balance, created_at
		 FROM parties WHERE id = ? AND company_id = ?`,
		id, companyID,
	).Scan(&p.ID, &p.CompanyID, &p.Kind, &p.Name, &email, &phone, &balance, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ledger.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get party: %w", err)
	}
	p.Email = email.String
	p.Phone = phone.String
	p.Balance = parseDecimal(balance)
	p.CreatedAt = parseTime(createdAt)
	return &p, nil
}

func (s *Store) ListParties(ctx context.Context, companyID ledger.CompanyID) ([]ledger.Party, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, company_id, kind, name, email, phone, balance, created_at
		 FROM parties WHERE company_id = ? ORDER BY name`,
		companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list parties: %w", err)
	}
	defer rows.Close()

	var out []ledger.Party
	for rows.Next() {
		var p ledger.Party
		var email, phone sql.NullString
		var balance, createdAt string
		if err := rows.Scan(&p.ID, &p.CompanyID, &p.Kind, &p.Name, &email, &phone, &balance, &createdAt); err != nil {
			return nil, err
		}
		p.Email = email.String
		p.Phone = phone.String
		p.Balance = parseDecimal(balance)
		p.CreatedAt = parseTime(createdAt)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) UpdatePartyContact(ctx context.Context, companyID ledger.CompanyID, id ledger.PartyID, name, email, phone string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updatePartyContact(ctx, s.db, companyID, id, name, email, phone)
}

func updatePartyContact(ctx context.Context, db dbtx, companyID ledger.CompanyID, id ledger.PartyID, name, email, phone string) error {
	res, err := db.ExecContext(ctx,
		"UPDATE parties SET name = ?, email = ?, phone = ? WHERE id = ? AND company_id = ?",
		name, email, phone, id, companyID)
	if err != nil {
		return fmt.Errorf("failed to update party: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ledger.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteParty(ctx context.Context, companyID ledger.CompanyID, id ledger.PartyID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteParty(ctx, s.db, companyID, id)
}

func deleteParty(ctx context.Context, db dbtx, companyID ledger.CompanyID, id ledger.PartyID) error {
	has, err := partyHasHistory(ctx, db, companyID, id)
	if err != nil {
		return err
	}
	if has {
		return ledger.ErrPartyHasHistory
	}

	res, err := db.ExecContext(ctx,
		"DELETE FROM parties WHERE id = ? AND company_id = ?", id, companyID)
	if err != nil {
		return fmt.Errorf("failed to delete party: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ledger.ErrNotFound
	}
	return nil
}

func (s *Store) PartyHasHistory(ctx context.Context, companyID ledger.CompanyID, id ledger.PartyID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return partyHasHistory(ctx, s.db, companyID, id)
}

func partyHasHistory(ctx context.Context, db dbtx, companyID ledger.CompanyID, id ledger.PartyID) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(*) FROM invoices WHERE company_id = ? AND party_id = ?)
		      + (SELECT COUNT(*) FROM payments WHERE company_id = ? AND party_id = ?)`,
		companyID, id, companyID, id,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check party history: %w", err)
	}
	return count > 0, nil
}

// =============================================================================
// INVOICES
// =============================================================================

func (s *Store) InsertInvoice(ctx context.Context, inv ledger.Invoice) (ledger.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertInvoice(ctx, s.db, inv)
}

func insertInvoice(ctx context.Context, db dbtx, inv ledger.Invoice) (ledger.Invoice, error) {
	seq, err := nextSeq(ctx, db)
	if err != nil {
		return ledger.Invoice{}, err
	}
	inv.Seq = seq

	_, err = db.ExecContext(ctx,
		`INSERT INTO invoices
		 (id, company_id, party_id, order_id, direction, amount, issue_date, status, created_seq, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.CompanyID, inv.PartyID, nullString(string(inv.OrderID)),
		inv.Direction, inv.Amount.String(),
		inv.IssueDate.UTC().Format(time.RFC3339), inv.Status,
		inv.Seq, inv.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		if isUniqueConstraintError(err) && strings.Contains(err.Error(), "invoices.order_id") {
			return ledger.Invoice{}, ledger.ErrDuplicatePosting
		}
		return ledger.Invoice{}, fmt.Errorf("failed to insert invoice: %w", err)
	}
	return inv, nil
}

func (s *Store) GetInvoice(ctx context.Context, companyID ledger.CompanyID, id ledger.InvoiceID) (*ledger.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getInvoice(ctx, s.db, companyID, id)
}

func getInvoice(ctx context.Context, db dbtx, companyID ledger.CompanyID, id ledger.InvoiceID) (*ledger.Invoice, error) {
	row := db.QueryRowContext(ctx,
		`SELECT id, company_id, party_id, order_id, direction, amount, issue_date, status, created_seq, created_at
		 FROM invoices WHERE id = ? AND company_id = ?`,
		id, companyID)
	inv, err := scanInvoiceRow(row.Scan)
	if err == sql.ErrNoRows {
		return nil, ledger.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}
	return &inv, nil
}

func scanInvoiceRow(scan func(dest ...any) error) (ledger.Invoice, error) {
	var inv ledger.Invoice
	var orderID sql.NullString
	var amount, issueDate, createdAt string
	err := scan(&inv.ID, &inv.CompanyID, &inv.PartyID, &orderID,
		&inv.Direction, &amount, &issueDate, &inv.Status, &inv.Seq, &createdAt)
	if err != nil {
		return inv, err
	}
	inv.OrderID = ledger.OrderID(orderID.String)
	inv.Amount = parseDecimal(amount)
	inv.IssueDate = parseTime(issueDate)
	inv.CreatedAt = parseTime(createdAt)
	return inv, nil
}

func (s *Store) InvoicesByParty(ctx context.Context, companyID ledger.CompanyID, partyID ledger.PartyID) ([]ledger.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return invoicesByParty(ctx, s.db, companyID, partyID)
}

func invoicesByParty(ctx context.Context, db dbtx, companyID ledger.CompanyID, partyID ledger.PartyID) ([]ledger.Invoice, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, company_id, party_id, order_id, direction, amount, issue_date, status, created_seq, created_at
		 FROM invoices WHERE company_id = ? AND party_id = ?
		 ORDER BY issue_date, created_seq`,
		companyID, partyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query invoices: %w", err)
	}
	defer rows.Close()

	var out []ledger.Invoice
	for rows.Next() {
		inv, err := scanInvoiceRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

func (s *Store) SetInvoiceStatus(ctx context.Context, companyID ledger.CompanyID, id ledger.InvoiceID, from, to ledger.InvoiceStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return setInvoiceStatus(ctx, s.db, companyID, id, from, to)
}

// setInvoiceStatus is compare-and-swap, like setOrderStatus: the update
// applies only while the current status still equals from. RowsAffected
// distinguishes a lost race from a missing invoice.
func setInvoiceStatus(ctx context.Context, db dbtx, companyID ledger.CompanyID, id ledger.InvoiceID, from, to ledger.InvoiceStatus) error {
	res, err := db.ExecContext(ctx,
		"UPDATE invoices SET status = ? WHERE id = ? AND company_id = ? AND status = ?",
		to, id, companyID, from)
	if err != nil {
		return fmt.Errorf("failed to update invoice status: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		var exists int
		if err := db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM invoices WHERE id = ? AND company_id = ?",
			id, companyID).Scan(&exists); err != nil {
			return err
		}
		if exists == 0 {
			return ledger.ErrNotFound
		}
		return ledger.ErrConcurrentModification
	}
	return nil
}

func (s *Store) DeleteInvoice(ctx context.Context, companyID ledger.CompanyID, id ledger.InvoiceID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteInvoice(ctx, s.db, companyID, id)
}

func deleteInvoice(ctx context.Context, db dbtx, companyID ledger.CompanyID, id ledger.InvoiceID) error {
	res, err := db.ExecContext(ctx,
		"DELETE FROM invoices WHERE id = ? AND company_id = ?", id, companyID)
	if err != nil {
		return fmt.Errorf("failed to delete invoice: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ledger.ErrNotFound
	}
	return nil
}

// =============================================================================
// PAYMENTS
// =============================================================================

func (s *Store) InsertPayment(ctx context.Context, p ledger.Payment) (ledger.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertPayment(ctx, s.db, p)
}

func insertPayment(ctx context.Context, db dbtx, p ledger.Payment) (ledger.Payment, error) {
	seq, err := nextSeq(ctx, db)
	if err != nil {
		return ledger.Payment{}, err
	}
	p.Seq = seq

	_, err = db.ExecContext(ctx,
		`INSERT INTO payments (id, company_id, party_id, direction, amount, pay_date, created_seq, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.CompanyID, p.PartyID, p.Direction, p.Amount.String(),
		p.Date.UTC().Format(time.RFC3339), p.Seq, p.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return ledger.Payment{}, fmt.Errorf("failed to insert payment: %w", err)
	}
	return p, nil
}

func (s *Store) GetPayment(ctx context.Context, companyID ledger.CompanyID, id ledger.PaymentID) (*ledger.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getPayment(ctx, s.db, companyID, id)
}

func getPayment(ctx context.Context, db dbtx, companyID ledger.CompanyID, id ledger.PaymentID) (*ledger.Payment, error) {
	var p ledger.Payment
	var amount, payDate, createdAt string
	err := db.QueryRowContext(ctx,
		`SELECT id, company_id, party_id, direction, amount, pay_date, created_seq, created_at
		 FROM payments WHERE id = ? AND company_id = ?`,
		id, companyID,
	).Scan(&p.ID, &p.CompanyID, &p.PartyID, &p.Direction, &amount, &payDate, &p.Seq, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ledger.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	p.Amount = parseDecimal(amount)
	p.Date = parseTime(payDate)
	p.CreatedAt = parseTime(createdAt)
	return &p, nil
}

func (s *Store) PaymentsByParty(ctx context.Context, companyID ledger.CompanyID, partyID ledger.PartyID) ([]ledger.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return paymentsByParty(ctx, s.db, companyID, partyID)
}

func paymentsByParty(ctx context.Context, db dbtx, companyID ledger.CompanyID, partyID ledger.PartyID) ([]ledger.Payment, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, company_id, party_id, direction, amount, pay_date, created_seq, created_at
		 FROM payments WHERE company_id = ? AND party_id = ?
		 ORDER BY pay_date, created_seq`,
		companyID, partyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	var out []ledger.Payment
	for rows.Next() {
		var p ledger.Payment
		var amount, payDate, createdAt string
		if err := rows.Scan(&p.ID, &p.CompanyID, &p.PartyID, &p.Direction, &amount, &payDate, &p.Seq, &createdAt); err != nil {
			return nil, err
		}
		p.Amount = parseDecimal(amount)
		p.Date = parseTime(payDate)
		p.CreatedAt = parseTime(createdAt)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) DeletePayment(ctx context.Context, companyID ledger.CompanyID, id ledger.PaymentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deletePayment(ctx, s.db, companyID, id)
}

func deletePayment(ctx context.Context, db dbtx, companyID ledger.CompanyID, id ledger.PaymentID) error {
	res, err := db.ExecContext(ctx,
		"DELETE FROM payments WHERE id = ? AND company_id = ?", id, companyID)
	if err != nil {
		return fmt.Errorf("failed to delete payment: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ledger.ErrNotFound
	}
	return nil
}

// =============================================================================
// ORDERS
// =============================================================================

func (s *Store) CreateOrder(ctx context.Context, o ledger.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := createOrder(ctx, tx, o); err != nil {
		return err
	}
	return tx.Commit()
}

func createOrder(ctx context.Context, db dbtx, o ledger.Order) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO orders (id, company_id, party_id, status, total, rejection_reason, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.CompanyID, o.PartyID, o.Status, o.Total.String(),
		nullString(o.RejectionReason),
		o.CreatedAt.UTC().Format(time.RFC3339), o.UpdatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}
	return replaceOrderLines(ctx, db, o.ID, o.Lines)
}

func replaceOrderLines(ctx context.Context, db dbtx, orderID ledger.OrderID, lines []ledger.OrderLine) error {
	if _, err := db.ExecContext(ctx, "DELETE FROM order_lines WHERE order_id = ?", orderID); err != nil {
		return fmt.Errorf("failed to clear order lines: %w", err)
	}
	for i, l := range lines {
		_, err := db.ExecContext(ctx,
			`INSERT INTO order_lines (order_id, line_no, product_id, description, quantity, unit_price)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			orderID, i+1, nullString(string(l.ProductID)), l.Description,
			l.Quantity.String(), l.UnitPrice.String())
		if err != nil {
			return fmt.Errorf("failed to insert order line: %w", err)
		}
	}
	return nil
}

func (s *Store) GetOrder(ctx context.Context, companyID ledger.CompanyID, id ledger.OrderID) (*ledger.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getOrder(ctx, s.db, companyID, id)
}

func getOrder(ctx context.Context, db dbtx, companyID ledger.CompanyID, id ledger.OrderID) (*ledger.Order, error) {
	var o ledger.Order
	var total, createdAt, updatedAt string
	var reason sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT id, company_id, party_id, status, total, rejection_reason, created_at, updated_at
		 FROM orders WHERE id = ? AND company_id = ?`,
		id, companyID,
	).Scan(&o.ID, &o.CompanyID, &o.PartyID, &o.Status, &total, &reason, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, ledger.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	o.Total = parseDecimal(total)
	o.RejectionReason = reason.String
	o.CreatedAt = parseTime(createdAt)
	o.UpdatedAt = parseTime(updatedAt)

	lines, err := loadOrderLines(ctx, db, id)
	if err != nil {
		return nil, err
	}
	o.Lines = lines
	return &o, nil
}

func loadOrderLines(ctx context.Context, db dbtx, orderID ledger.OrderID) ([]ledger.OrderLine, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT product_id, description, quantity, unit_price
		 FROM order_lines WHERE order_id = ? ORDER BY line_no`,
		orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query order lines: %w", err)
	}
	defer rows.Close()

	var lines []ledger.OrderLine
	for rows.Next() {
		var l ledger.OrderLine
		var productID, description sql.NullString
		var quantity, unitPrice string
		if err := rows.Scan(&productID, &description, &quantity, &unitPrice); err != nil {
			return nil, err
		}
		l.ProductID = ledger.ProductID(productID.String)
		l.Description = description.String
		l.Quantity = parseDecimal(quantity)
		l.UnitPrice = parseDecimal(unitPrice)
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (s *Store) ListOrders(ctx context.Context, companyID ledger.CompanyID) ([]ledger.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM orders WHERE company_id = ? ORDER BY created_at DESC`, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var ids []ledger.OrderID
	for rows.Next() {
		var id ledger.OrderID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var out []ledger.Order
	for _, id := range ids {
		o, err := getOrder(ctx, s.db, companyID, id)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, nil
}

func (s *Store) SaveOrderLines(ctx context.Context, companyID ledger.CompanyID, id ledger.OrderID, lines []ledger.OrderLine, total decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveOrderLines(ctx, s.db, companyID, id, lines, total)
}

func saveOrderLines(ctx context.Context, db dbtx, companyID ledger.CompanyID, id ledger.OrderID, lines []ledger.OrderLine, total decimal.Decimal) error {
	res, err := db.ExecContext(ctx,
		"UPDATE orders SET total = ?, updated_at = ? WHERE id = ? AND company_id = ?",
		total.String(), time.Now().UTC().Format(time.RFC3339), id, companyID)
	if err != nil {
		return fmt.Errorf("failed to update order total: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ledger.ErrNotFound
	}
	return replaceOrderLines(ctx, db, id, lines)
}

func (s *Store) SetOrderStatus(ctx context.Context, companyID ledger.CompanyID, id ledger.OrderID, from, to ledger.OrderStatus, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return setOrderStatus(ctx, s.db, companyID, id, from, to, reason)
}

// setOrderStatus is compare-and-swap: the update applies only while the
// current status still equals from. RowsAffected distinguishes a lost race
// from a missing order.
func setOrderStatus(ctx context.Context, db dbtx, companyID ledger.CompanyID, id ledger.OrderID, from, to ledger.OrderStatus, reason string) error {
	res, err := db.ExecContext(ctx,
		`UPDATE orders SET status = ?, rejection_reason = ?, updated_at = ?
		 WHERE id = ? AND company_id = ? AND status = ?`,
		to, nullString(reason), time.Now().UTC().Format(time.RFC3339),
		id, companyID, from)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		var exists int
		if err := db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM orders WHERE id = ? AND company_id = ?",
			id, companyID).Scan(&exists); err != nil {
			return err
		}
		if exists == 0 {
			return ledger.ErrNotFound
		}
		return ledger.ErrConcurrentModification
	}
	return nil
}

// =============================================================================
// LEDGER READS
// =============================================================================

func (s *Store) EntriesByParty(ctx context.Context, companyID ledger.CompanyID, partyID ledger.PartyID) ([]ledger.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return entriesByParty(ctx, s.db, companyID, partyID)
}

// entriesByParty merges contributing invoices and all payments into one
// uniform entry log, ordered by date then creation sequence.
func entriesByParty(ctx context.Context, db dbtx, companyID ledger.CompanyID, partyID ledger.PartyID) ([]ledger.Entry, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, 'invoice' AS kind, direction, amount, issue_date AS entry_date, created_seq
		   FROM invoices
		  WHERE company_id = ? AND party_id = ? AND status IN ('posted', 'paid')
		 UNION ALL
		 SELECT id, 'payment' AS kind, direction, amount, pay_date AS entry_date, created_seq
		   FROM payments
		  WHERE company_id = ? AND party_id = ?
		 ORDER BY entry_date, created_seq`,
		companyID, partyID, companyID, partyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	var out []ledger.Entry
	for rows.Next() {
		var e ledger.Entry
		var kind, amount, entryDate string
		if err := rows.Scan(&e.ID, &kind, &e.Direction, &amount, &entryDate, &e.Seq); err != nil {
			return nil, err
		}
		e.CompanyID = companyID
		e.PartyID = partyID
		e.Kind = ledger.EntryKind(kind)
		e.Amount = parseDecimal(amount)
		e.Date = parseTime(entryDate)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) RecomputeBalance(ctx context.Context, companyID ledger.CompanyID, partyID ledger.PartyID) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return recomputeBalance(ctx, s.db, companyID, partyID)
}

// recomputeBalance re-derives the cached balance from the rows visible to
// db. There is deliberately no "read cache, add delta, write cache" path
// anywhere in this package.
func recomputeBalance(ctx context.Context, db dbtx, companyID ledger.CompanyID, partyID ledger.PartyID) (decimal.Decimal, error) {
	entries, err := entriesByParty(ctx, db, companyID, partyID)
	if err != nil {
		return decimal.Zero, err
	}
	balance, err := ledger.Reduce(entries)
	if err != nil {
		return decimal.Zero, err
	}

	res, err := db.ExecContext(ctx,
		"UPDATE parties SET balance = ? WHERE id = ? AND company_id = ?",
		balance.String(), partyID, companyID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to persist balance: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return decimal.Zero, ledger.ErrNotFound
	}
	return balance, nil
}

// =============================================================================
// TRANSACTIONAL STORE (ledger.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store ledger.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// txStore exposes the Store interface over an open *sql.Tx. Methods reuse
// the package-level query helpers so the SQL lives in one place.
type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) CreateCompany(ctx context.Context, c ledger.Company) error {
	return createCompany(ctx, ts.tx, c)
}

func (ts *txStore) GetCompany(ctx context.Context, id ledger.CompanyID) (*ledger.Company, error) {
	return getCompany(ctx, ts.tx, id)
}

func (ts *txStore) ListCompanies(ctx context.Context) ([]ledger.Company, error) {
	rows, err := ts.tx.QueryContext(ctx,
		"SELECT id, name, created_at FROM companies ORDER BY created_at")
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}
	defer rows.Close()

	var out []ledger.Company
	for rows.Next() {
		var c ledger.Company
		var createdAt string
		if err := rows.Scan(&c.ID, &c.Name, &createdAt); err != nil {
			return nil, err
		}
		c.CreatedAt = parseTime(createdAt)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (ts *txStore) CreateProduct(ctx context.Context, p ledger.Product) error {
	return createProduct(ctx, ts.tx, p)
}

func (ts *txStore) GetProduct(ctx context.Context, companyID ledger.CompanyID, id ledger.ProductID) (*ledger.Product, error) {
	return getProduct(ctx, ts.tx, companyID, id)
}

func (ts *txStore) ListProducts(ctx context.Context, companyID ledger.CompanyID) ([]ledger.Product, error) {
	return nil, fmt.Errorf("ListProducts is not supported inside a transaction")
}

func (ts *txStore) CreateParty(ctx context.Context, p ledger.Party) error {
	return createParty(ctx, ts.tx, p)
}

func (ts *txStore) GetParty(ctx context.Context, companyID ledger.CompanyID, id ledger.PartyID) (*ledger.Party, error) {
	return getParty(ctx, ts.tx, companyID, id)
}

func (ts *txStore) ListParties(ctx context.Context, companyID ledger.CompanyID) ([]ledger.Party, error) {
	return nil, fmt.Errorf("ListParties is not supported inside a transaction")
}

func (ts *txStore) UpdatePartyContact(ctx context.Context, companyID ledger.CompanyID, id ledger.PartyID, name, email, phone string) error {
	return updatePartyContact(ctx, ts.tx, companyID, id, name, email, phone)
}

func (ts *txStore) DeleteParty(ctx context.Context, companyID ledger.CompanyID, id ledger.PartyID) error {
	return deleteParty(ctx, ts.tx, companyID, id)
}

func (ts *txStore) PartyHasHistory(ctx context.Context, companyID ledger.CompanyID, id ledger.PartyID) (bool, error) {
	return partyHasHistory(ctx, ts.tx, companyID, id)
}

func (ts *txStore) InsertInvoice(ctx context.Context, inv ledger.Invoice) (ledger.Invoice, error) {
	return insertInvoice(ctx, ts.tx, inv)
}

func (ts *txStore) GetInvoice(ctx context.Context, companyID ledger.CompanyID, id ledger.InvoiceID) (*ledger.Invoice, error) {
	return getInvoice(ctx, ts.tx, companyID, id)
}

func (ts *txStore) InvoicesByParty(ctx context.Context, companyID ledger.CompanyID, partyID ledger.PartyID) ([]ledger.Invoice, error) {
	return invoicesByParty(ctx, ts.tx, companyID, partyID)
}

func (ts *txStore) SetInvoiceStatus(ctx context.Context, companyID ledger.CompanyID, id ledger.InvoiceID, from, to ledger.InvoiceStatus) error {
	return setInvoiceStatus(ctx, ts.tx, companyID, id, from, to)
}

func (ts *txStore) DeleteInvoice(ctx context.Context, companyID ledger.CompanyID, id ledger.InvoiceID) error {
	return deleteInvoice(ctx, ts.tx, companyID, id)
}

func (ts *txStore) InsertPayment(ctx context.Context, p ledger.Payment) (ledger.Payment, error) {
	return insertPayment(ctx, ts.tx, p)
}

func (ts *txStore) GetPayment(ctx context.Context, companyID ledger.CompanyID, id ledger.PaymentID) (*ledger.Payment, error) {
	return getPayment(ctx, ts.tx, companyID, id)
}

func (ts *txStore) PaymentsByParty(ctx context.Context, companyID ledger.CompanyID, partyID ledger.PartyID) ([]ledger.Payment, error) {
	return paymentsByParty(ctx, ts.tx, companyID, partyID)
}

func (ts *txStore) DeletePayment(ctx context.Context, companyID ledger.CompanyID, id ledger.PaymentID) error {
	return deletePayment(ctx, ts.tx, companyID, id)
}

func (ts *txStore) CreateOrder(ctx context.Context, o ledger.Order) error {
	return createOrder(ctx, ts.tx, o)
}

func (ts *txStore) GetOrder(ctx context.Context, companyID ledger.CompanyID, id ledger.OrderID) (*ledger.Order, error) {
	return getOrder(ctx, ts.tx, companyID, id)
}

func (ts *txStore) ListOrders(ctx context.Context, companyID ledger.CompanyID) ([]ledger.Order, error) {
	return nil, fmt.Errorf("ListOrders is not supported inside a transaction")
}

func (ts *txStore) SaveOrderLines(ctx context.Context, companyID ledger.CompanyID, id ledger.OrderID, lines []ledger.OrderLine, total decimal.Decimal) error {
	return saveOrderLines(ctx, ts.tx, companyID, id, lines, total)
}

func (ts *txStore) SetOrderStatus(ctx context.Context, companyID ledger.CompanyID, id ledger.OrderID, from, to ledger.OrderStatus, reason string) error {
	return setOrderStatus(ctx, ts.tx, companyID, id, from, to, reason)
}

func (ts *txStore) EntriesByParty(ctx context.Context, companyID ledger.CompanyID, partyID ledger.PartyID) ([]ledger.Entry, error) {
	return entriesByParty(ctx, ts.tx, companyID, partyID)
}

func (ts *txStore) RecomputeBalance(ctx context.Context, companyID ledger.CompanyID, partyID ledger.PartyID) (decimal.Decimal, error) {
	return recomputeBalance(ctx, ts.tx, companyID, partyID)
}
