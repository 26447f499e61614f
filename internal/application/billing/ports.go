package billing

import (
	"context"
	"time"

	"github.com/kevinvillajim/bcommerceBackEnd-sub004/internal/domain/entity"
	"github.com/kevinvillajim/bcommerceBackEnd-sub004/internal/domain/event"
	"github.com/kevinvillajim/bcommerceBackEnd-sub004/internal/domain/repository"
)

// AuthorityReceipt es la respuesta del SRI a un envío o a una consulta de estado.
// Un rechazo de contenido (REJECTED/NOT_AUTHORIZED/RETURNED) viaja en Status,
// no como error de Go: los errores de Go son siempre fallas de transporte y se
// tratan como transitorias (reintenables).
type AuthorityReceipt struct {
	Status              entity.DocumentStatus
	AccessKey           string
	AuthorizationNumber string
	Message             string // detalle de rechazo o advertencias del SRI
}

// TaxAuthorityClient es el puerto de salida hacia el SRI. Las llamadas son de
// red y deben respetar el timeout del contexto; un timeout cuenta como falla
// transitoria, nunca como rechazo.
type TaxAuthorityClient interface {
	Submit(ctx context.Context, doc *entity.FiscalDocument) (*AuthorityReceipt, error)
	CheckStatus(ctx context.Context, accessKey string) (*AuthorityReceipt, error)
}

// DocumentTxRunner ejecuta una función con un DocumentRepository atado a una
// transacción (consecutivo + cabecera + líneas atómicos).
type DocumentTxRunner interface {
	RunDocument(ctx context.Context, fn func(repo repository.DocumentRepository) error) error
}

// RetryScheduler reencola un documento para reintento después de un retraso.
// La entrega es at-least-once: el Submit idempotente del coordinador absorbe duplicados.
type RetryScheduler interface {
	ScheduleRetry(documentID string, delay time.Duration)
}

// Publisher publica eventos de dominio en el bus (at-least-once, sin orden global).
type Publisher interface {
	Publish(ctx context.Context, evt event.Event)
}

// PDFRenderer genera la representación gráfica (RIDE) del documento autorizado.
type PDFRenderer interface {
	RenderDocument(ctx context.Context, doc *entity.FiscalDocument) ([]byte, error)
}

// ArtifactStore almacena los artefactos PDF generados.
type ArtifactStore interface {
	Put(ctx context.Context, path string, data []byte) error
	Get(ctx context.Context, path string) ([]byte, error)
	Exists(ctx context.Context, path string) bool
	Remove(ctx context.Context, path string) error
}

// Mailer envía el correo al cliente con el documento autorizado adjunto.
type Mailer interface {
	SendDocument(ctx context.Context, to, subject, body string, pdfName string, pdf []byte) error
}
