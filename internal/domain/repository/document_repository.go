package repository

import (
	"context"
	"time"

	"github.com/kevinvillajim/bcommerceBackEnd-sub004/internal/domain/entity"
)

// DocumentFilter criterios de listado para el API administrativo.
type DocumentFilter struct {
	Status     entity.DocumentStatus
	Kind       entity.DocumentKind
	CustomerID string // identificación del cliente (no el ID interno)
	From       *time.Time
	To         *time.Time
	Limit      int
	Offset     int
}

// DocumentRepository define el puerto de persistencia del documento fiscal.
//
// Las operaciones de transición usan compare-and-set sobre el estado: el
// UPDATE condicionado por el estado actual es el único mecanismo de
// serialización por documento (no hay lock manager externo). Un CAS que no
// afecta filas significa que otro worker ganó la carrera.
type DocumentRepository interface {
	Create(ctx context.Context, doc *entity.FiscalDocument) error
	GetByID(ctx context.Context, id string) (*entity.FiscalDocument, error)
	GetByOrderID(ctx context.Context, orderID string) (*entity.FiscalDocument, error)
	GetByNumber(ctx context.Context, kind entity.DocumentKind, number string) (*entity.FiscalDocument, error)
	List(ctx context.Context, f DocumentFilter) ([]*entity.FiscalDocument, error)

	// ListRetryable devuelve los IDs de documentos en FAILED con retry_count < maxRetries.
	ListRetryable(ctx context.Context, maxRetries int) ([]string, error)
	// ListUndelivered devuelve documentos AUTHORIZED sin email enviado (visibilidad de operadores).
	ListUndelivered(ctx context.Context) ([]*entity.FiscalDocument, error)

	// UpdateCustomer actualiza los datos del cliente; solo legal antes de la autorización.
	UpdateCustomer(ctx context.Context, doc *entity.FiscalDocument) error

	// ClaimSubmission ejecuta el CAS DRAFT|FAILED → SENT que reserva el envío:
	// solo un worker a la vez puede moverlo. FAILED requiere retry_count < maxRetries.
	// Devuelve false si otro worker ya lo movió (o el estado no lo permite).
	ClaimSubmission(ctx context.Context, id string, maxRetries int) (bool, error)

	// ApplyAuthorityResult aplica el estado reportado por el SRI desde SENT o un
	// estado transitorio (PENDING/PROCESSING/RECEIVED). Guarda clave de acceso,
	// número de autorización y detalle de error si están presentes.
	ApplyAuthorityResult(ctx context.Context, id string, status entity.DocumentStatus, accessKey, authNumber, errDetail string) (bool, error)

	// RecordSubmissionFailure registra una falla transitoria desde SENT:
	// incrementa retry_count, fija last_retry_at y transiciona a FAILED o, si se
	// agotaron los reintentos, a DEFINITIVELY_FAILED. Devuelve el contador y el
	// estado resultantes; ok=false si el documento ya no estaba en SENT.
	RecordSubmissionFailure(ctx context.Context, id string, at time.Time, maxRetries int) (retryCount int, status entity.DocumentStatus, ok bool, err error)

	// SetPDFPath fija pdf_path solo si aún es NULL (exactamente una vez) y
	// devuelve la ruta ganadora, sea la propia o la de un worker concurrente.
	SetPDFPath(ctx context.Context, id, path string) (string, error)

	// MarkEmailed fija email_sent_at solo si aún es NULL. Devuelve false si ya
	// estaba puesto (notificación previa ganó).
	MarkEmailed(ctx context.Context, id string, at time.Time) (bool, error)

	// NextDocumentNumber consume el consecutivo del tipo de documento con un
	// incremento atómico (UPDATE ... RETURNING), seguro bajo creación concurrente.
	NextDocumentNumber(ctx context.Context, kind entity.DocumentKind) (string, error)
}
