package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// DocumentKind clasifica el documento fiscal.
type DocumentKind string

const (
	KindInvoice    DocumentKind = "INVOICE"
	KindCreditNote DocumentKind = "CREDIT_NOTE"
)

// DocumentStatus es el estado del ciclo de vida del documento frente al SRI.
type DocumentStatus string

// Estados del documento fiscal.
//
// DRAFT es el estado inicial. SENT indica envío en curso (reclamado por un worker).
// PENDING/PROCESSING/RECEIVED son estados transitorios del lado del SRI, ninguno
// terminal: se resuelven consultando autorización por clave de acceso.
// AUTHORIZED y DEFINITIVELY_FAILED son terminales; REJECTED, NOT_AUTHORIZED y
// RETURNED también (rechazo de contenido: requiere un documento nuevo corregido,
// no un reintento del mismo).
const (
	StatusDraft              DocumentStatus = "DRAFT"
	StatusSent               DocumentStatus = "SENT"
	StatusPending            DocumentStatus = "PENDING"
	StatusProcessing         DocumentStatus = "PROCESSING"
	StatusReceived           DocumentStatus = "RECEIVED"
	StatusAuthorized         DocumentStatus = "AUTHORIZED"
	StatusRejected           DocumentStatus = "REJECTED"
	StatusNotAuthorized      DocumentStatus = "NOT_AUTHORIZED"
	StatusReturned           DocumentStatus = "RETURNED"
	StatusAuthorityError     DocumentStatus = "AUTHORITY_ERROR"
	StatusFailed             DocumentStatus = "FAILED"
	StatusDefinitivelyFailed DocumentStatus = "DEFINITIVELY_FAILED"
)

// CreatedVia origen de creación del documento.
const (
	CreatedViaAutomatic = "automatic"
	CreatedViaManual    = "manual"
)

// ModifiedDocumentRef referencia al documento modificado por una nota de crédito.
type ModifiedDocumentRef struct {
	Type   DocumentKind
	Number string
	Date   time.Time
}

// FiscalDocument es el agregado central del pipeline: factura o nota de crédito
// que debe ser autorizada por el SRI. Los datos del cliente se copian al crearlo
// y son inmutables una vez autorizado.
type FiscalDocument struct {
	ID             string
	DocumentNumber string // consecutivo secuencial, 9 dígitos con ceros a la izquierda
	Kind           DocumentKind

	// Solo para notas de crédito.
	ModifiedDocument *ModifiedDocumentRef
	Reason           string // motivo de la nota de crédito (5–500 caracteres)

	// Datos del cliente, copiados en la creación.
	CustomerIdentificationType string // 04=RUC, 05=Cédula, 06=Pasaporte
	CustomerIdentification     string
	CustomerName               string
	CustomerEmail              string
	CustomerAddress            string
	CustomerPhone              string

	Subtotal    decimal.Decimal
	TaxAmount   decimal.Decimal
	TotalAmount decimal.Decimal
	Currency    string

	Status DocumentStatus

	// Vínculo con el SRI.
	AccessKey            string // clave de acceso, asignada cuando el envío llega al SRI
	AuthorizationNumber  string // asignado solo en AUTHORIZED
	AuthorityErrorDetail string

	// Contabilidad de reintentos.
	RetryCount  int
	LastRetryAt *time.Time

	// Artefactos e idempotencia.
	PDFPath     string     // se asigna exactamente una vez
	EmailSentAt *time.Time // cerca de idempotencia para la notificación

	// Procedencia.
	SourceOrderID string // único por documento cuando está presente
	CreatedVia    string

	Lines []DocumentLine

	CreatedAt time.Time
	UpdatedAt time.Time
}

// DocumentLine es una línea de detalle del documento fiscal.
type DocumentLine struct {
	ID          string
	DocumentID  string
	Code        string
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	Discount    decimal.Decimal
	TaxRate     decimal.Decimal
	Subtotal    decimal.Decimal
	TaxAmount   decimal.Decimal
}

// IsTerminal indica si el estado no admite más transiciones automáticas.
func (s DocumentStatus) IsTerminal() bool {
	switch s {
	case StatusAuthorized, StatusRejected, StatusNotAuthorized, StatusReturned, StatusDefinitivelyFailed:
		return true
	}
	return false
}

// IsAuthorityPending indica los estados transitorios reportados por el SRI,
// resolubles vía consulta de autorización.
func (s DocumentStatus) IsAuthorityPending() bool {
	return s == StatusPending || s == StatusProcessing || s == StatusReceived
}

// CanSubmit indica si Submit es legal para este documento: DRAFT, o FAILED con
// reintentos disponibles. En cualquier otro estado Submit es un no-op.
func (d *FiscalDocument) CanSubmit(maxRetries int) bool {
	if d.Status == StatusDraft {
		return true
	}
	return d.Status == StatusFailed && d.RetryCount < maxRetries
}

// CanRetry es verdadero solo si el documento está en FAILED con reintentos disponibles.
func (d *FiscalDocument) CanRetry(maxRetries int) bool {
	return d.Status == StatusFailed && d.RetryCount < maxRetries
}

// reconciliationEpsilon tolerancia de redondeo a dos decimales (half-up).
var reconciliationEpsilon = decimal.NewFromFloat(0.01)

// Reconcile verifica la consistencia aritmética del documento:
// subtotal == Σ(subtotal de línea) y total == subtotal + impuestos,
// dentro de la tolerancia de redondeo.
func (d *FiscalDocument) Reconcile() bool {
	lineSum := decimal.Zero
	for _, l := range d.Lines {
		lineSum = lineSum.Add(l.Subtotal)
	}
	if lineSum.Round(2).Sub(d.Subtotal.Round(2)).Abs().GreaterThan(reconciliationEpsilon) {
		return false
	}
	expected := d.Subtotal.Add(d.TaxAmount)
	return expected.Round(2).Sub(d.TotalAmount.Round(2)).Abs().LessThanOrEqual(reconciliationEpsilon)
}

// ValidateLines verifica cantidades y precios positivos y descuentos no negativos.
func (d *FiscalDocument) ValidateLines() bool {
	if len(d.Lines) == 0 {
		return false
	}
	for _, l := range d.Lines {
		if !l.Quantity.IsPositive() || !l.UnitPrice.IsPositive() || l.Discount.IsNegative() {
			return false
		}
	}
	return true
}
