package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ManualDocumentRequest body para la creación manual de documentos fiscales
// (POST /api/documents). Payload estilo SRI con líneas explícitas; se valida
// con las mismas reglas que la generación automática desde órdenes.
type ManualDocumentRequest struct {
	Kind       string                `json:"kind"` // INVOICE | CREDIT_NOTE
	CustomerID string                `json:"customer_id"`
	Currency   string                `json:"currency,omitempty"`
	Lines      []DocumentLineRequest `json:"lines"`

	// Solo para notas de crédito.
	ModifiedDocumentType   string `json:"modified_document_type,omitempty"`
	ModifiedDocumentNumber string `json:"modified_document_number,omitempty"`
	ModifiedDocumentDate   string `json:"modified_document_date,omitempty"` // YYYY-MM-DD
	Reason                 string `json:"reason,omitempty"`
}

// DocumentLineRequest línea del documento manual.
type DocumentLineRequest struct {
	Code        string          `json:"code"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Discount    decimal.Decimal `json:"discount"`
	TaxRate     decimal.Decimal `json:"tax_rate"`
}

// UpdateCustomerRequest edición de datos del cliente pre-autorización.
type UpdateCustomerRequest struct {
	IdentificationType string `json:"identification_type,omitempty"`
	Identification     string `json:"identification,omitempty"`
	Name               string `json:"name,omitempty"`
	Email              string `json:"email,omitempty"`
	Address            string `json:"address,omitempty"`
	Phone              string `json:"phone,omitempty"`
}

// ListDocumentsRequest filtros para GET /api/documents.
type ListDocumentsRequest struct {
	Status     string `query:"status"`
	Kind       string `query:"kind"`
	CustomerID string `query:"customer_id"`
	From       string `query:"from"` // YYYY-MM-DD
	To         string `query:"to"`
	PageRequest
}

// DocumentResponse documento fiscal en respuestas.
type DocumentResponse struct {
	ID                  string                 `json:"id"`
	DocumentNumber      string                 `json:"document_number"`
	Kind                string                 `json:"kind"`
	Status              string                 `json:"status"`
	CustomerName        string                 `json:"customer_name"`
	CustomerEmail       string                 `json:"customer_email,omitempty"`
	CustomerID          string                 `json:"customer_identification"`
	Subtotal            decimal.Decimal        `json:"subtotal"`
	TaxAmount           decimal.Decimal        `json:"tax_amount"`
	TotalAmount         decimal.Decimal        `json:"total_amount"`
	Currency            string                 `json:"currency"`
	AccessKey           string                 `json:"access_key,omitempty"`
	AuthorizationNumber string                 `json:"authorization_number,omitempty"`
	AuthorityError      string                 `json:"authority_error,omitempty"`
	RetryCount          int                    `json:"retry_count"`
	PDFPath             string                 `json:"pdf_path,omitempty"`
	EmailSentAt         *time.Time             `json:"email_sent_at,omitempty"`
	SourceOrderID       string                 `json:"source_order_id,omitempty"`
	CreatedVia          string                 `json:"created_via"`
	CreatedAt           time.Time              `json:"created_at"`
	Lines               []DocumentLineResponse `json:"lines,omitempty"`
}

// DocumentLineResponse línea de detalle en la respuesta.
type DocumentLineResponse struct {
	Code        string          `json:"code"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Discount    decimal.Decimal `json:"discount"`
	TaxRate     decimal.Decimal `json:"tax_rate"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	TaxAmount   decimal.Decimal `json:"tax_amount"`
}

// LedgerTransactionResponse asiento contable de una orden.
type LedgerTransactionResponse struct {
	ID              string                `json:"id"`
	ReferenceNumber string                `json:"reference_number"`
	OrderID         string                `json:"order_id"`
	Description     string                `json:"description"`
	Date            time.Time             `json:"date"`
	Entries         []LedgerEntryResponse `json:"entries"`
}

// LedgerEntryResponse línea del asiento.
type LedgerEntryResponse struct {
	Account string          `json:"account"`
	Debit   decimal.Decimal `json:"debit"`
	Credit  decimal.Decimal `json:"credit"`
	Note    string          `json:"note,omitempty"`
}
