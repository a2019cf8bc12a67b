/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

AMOUNTS:
  Monetary values cross the wire as decimal strings ("1250.50"), never as
  floats. Parsing happens at this boundary; everything behind it is
  decimal.Decimal.
*/
package api

import (
	"time"

	"github.com/warp/cari-ledger/ledger"
)

// =============================================================================
// COMPANY / PRODUCT
// =============================================================================

type CompanyDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at,omitempty"`
}

type CreateCompanyRequest struct {
	Name string `json:"name"`
}

type ProductDTO struct {
	ID        string `json:"id"`
	CompanyID string `json:"company_id"`
	Name      string `json:"name"`
	UnitPrice string `json:"unit_price"`
	CreatedAt string `json:"created_at,omitempty"`
}

type CreateProductRequest struct {
	Name      string `json:"name"`
	UnitPrice string `json:"unit_price"`
}

// =============================================================================
// PARTY
// =============================================================================

type PartyDTO struct {
	ID        string `json:"id"`
	CompanyID string `json:"company_id"`
	Kind      string `json:"kind"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Balance   string `json:"balance"`
	CreatedAt string `json:"created_at,omitempty"`
}

type CreatePartyRequest struct {
	Kind  string `json:"kind"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type UpdatePartyRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type BalanceDTO struct {
	PartyID string `json:"party_id"`
	Balance string `json:"balance"`
	AsOf    string `json:"as_of,omitempty"`
}

// =============================================================================
// INVOICE / PAYMENT
// =============================================================================

type InvoiceDTO struct {
	ID        string `json:"id"`
	CompanyID string `json:"company_id"`
	PartyID   string `json:"party_id"`
	OrderID   string `json:"order_id,omitempty"`
	Direction string `json:"direction"`
	Amount    string `json:"amount"`
	IssueDate string `json:"issue_date"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at,omitempty"`
}

type CreateInvoiceRequest struct {
	PartyID   string `json:"party_id"`
	Direction string `json:"direction"`
	Amount    string `json:"amount"`
	IssueDate string `json:"issue_date"`
	Status    string `json:"status,omitempty"`
}

type SetInvoiceStatusRequest struct {
	Status string `json:"status"`
}

type PaymentDTO struct {
	ID        string `json:"id"`
	CompanyID string `json:"company_id"`
	PartyID   string `json:"party_id"`
	Direction string `json:"direction"`
	Amount    string `json:"amount"`
	Date      string `json:"date"`
	CreatedAt string `json:"created_at,omitempty"`
}

type CreatePaymentRequest struct {
	PartyID   string `json:"party_id"`
	Direction string `json:"direction"`
	Amount    string `json:"amount"`
	Date      string `json:"date"`
}

// =============================================================================
// ORDER
// =============================================================================

type OrderLineDTO struct {
	ProductID   string `json:"product_id,omitempty"`
	Description string `json:"description,omitempty"`
	Quantity    string `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
}

type OrderDTO struct {
	ID              string         `json:"id"`
	CompanyID       string         `json:"company_id"`
	PartyID         string         `json:"party_id"`
	Status          string         `json:"status"`
	Lines           []OrderLineDTO `json:"lines"`
	Total           string         `json:"total"`
	RejectionReason string         `json:"rejection_reason,omitempty"`
	CreatedAt       string         `json:"created_at,omitempty"`
	UpdatedAt       string         `json:"updated_at,omitempty"`
}

type CreateOrderRequest struct {
	PartyID string         `json:"party_id"`
	Lines   []OrderLineDTO `json:"lines"`
}

type PriceOrderRequest struct {
	Lines []OrderLineDTO `json:"lines"`
}

type RejectOrderRequest struct {
	Reason string `json:"reason"`
}

// =============================================================================
// STATEMENT
// =============================================================================

type StatementLineDTO struct {
	EntryID string `json:"entry_id"`
	Kind    string `json:"kind"`
	Label   string `json:"label"`
	Date    string `json:"date"`
	Amount  string `json:"amount"`
	Effect  string `json:"effect"`
	Running string `json:"running"`
}

type StatementDTO struct {
	PartyID string             `json:"party_id"`
	Lines   []StatementLineDTO `json:"lines"`
	Total   string             `json:"total"`
}

// =============================================================================
// ERRORS
// =============================================================================

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toCompanyDTO(c ledger.Company) CompanyDTO {
	return CompanyDTO{
		ID:        string(c.ID),
		Name:      c.Name,
		CreatedAt: c.CreatedAt.Format(time.RFC3339),
	}
}

func toPartyDTO(p ledger.Party) PartyDTO {
	return PartyDTO{
		ID:        string(p.ID),
		CompanyID: string(p.CompanyID),
		Kind:      string(p.Kind),
		Name:      p.Name,
		Email:     p.Email,
		Phone:     p.Phone,
		Balance:   p.Balance.String(),
		CreatedAt: p.CreatedAt.Format(time.RFC3339),
	}
}

func toInvoiceDTO(inv ledger.Invoice) InvoiceDTO {
	return InvoiceDTO{
		ID:        string(inv.ID),
		CompanyID: string(inv.CompanyID),
		PartyID:   string(inv.PartyID),
		OrderID:   string(inv.OrderID),
		Direction: string(inv.Direction),
		Amount:    inv.Amount.String(),
		IssueDate: inv.IssueDate.Format("2006-01-02"),
		Status:    string(inv.Status),
		CreatedAt: inv.CreatedAt.Format(time.RFC3339),
	}
}

func toPaymentDTO(p ledger.Payment) PaymentDTO {
	return PaymentDTO{
		ID:        string(p.ID),
		CompanyID: string(p.CompanyID),
		PartyID:   string(p.PartyID),
		Direction: string(p.Direction),
		Amount:    p.Amount.String(),
		Date:      p.Date.Format("2006-01-02"),
		CreatedAt: p.CreatedAt.Format(time.RFC3339),
	}
}

func toProductDTO(p ledger.Product) ProductDTO {
	return ProductDTO{
		ID:        string(p.ID),
		CompanyID: string(p.CompanyID),
		Name:      p.Name,
		UnitPrice: p.UnitPrice.String(),
		CreatedAt: p.CreatedAt.Format(time.RFC3339),
	}
}

func toOrderDTO(o ledger.Order) OrderDTO {
	lines := make([]OrderLineDTO, len(o.Lines))
	for i, l := range o.Lines {
		lines[i] = OrderLineDTO{
			ProductID:   string(l.ProductID),
			Description: l.Description,
			Quantity:    l.Quantity.String(),
			UnitPrice:   l.UnitPrice.String(),
		}
	}
	return OrderDTO{
		ID:              string(o.ID),
		CompanyID:       string(o.CompanyID),
		PartyID:         string(o.PartyID),
		Status:          string(o.Status),
		Lines:           lines,
		Total:           o.Total.String(),
		RejectionReason: o.RejectionReason,
		CreatedAt:       o.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       o.UpdatedAt.Format(time.RFC3339),
	}
}

func toStatementDTO(st ledger.Statement) StatementDTO {
	lines := make([]StatementLineDTO, len(st.Lines))
	for i, l := range st.Lines {
		lines[i] = StatementLineDTO{
			EntryID: l.Entry.ID,
			Kind:    string(l.Entry.Kind),
			Label:   l.Label,
			Date:    l.Entry.Date.Format("2006-01-02"),
			Amount:  l.Entry.Amount.String(),
			Effect:  l.Effect.String(),
			Running: l.Running.String(),
		}
	}
	return StatementDTO{
		PartyID: string(st.PartyID),
		Lines:   lines,
		Total:   st.Total.String(),
	}
}
