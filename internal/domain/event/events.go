// Package event define los eventos de dominio que conectan el checkout con el
// pipeline fiscal. La entrega es at-least-once y sin orden garantizado entre
// documentos distintos: cada consumidor defiende su idempotencia con cercas
// persistidas (estado del documento, pdf_path, email_sent_at, referencia única
// del asiento contable).
package event

// Tópicos del bus de eventos.
const (
	TopicOrderCompleted     = "order.completed"
	TopicDocumentGenerated  = "document.generated"
	TopicDocumentAuthorized = "document.authorized"
)

// Event es el contrato mínimo de un evento publicable.
type Event interface {
	Topic() string
}

// OrderCompleted la orden fue completada por checkout: dispara la generación
// del documento fiscal y el asiento contable (independientes entre sí).
type OrderCompleted struct {
	OrderID string
}

func (OrderCompleted) Topic() string { return TopicOrderCompleted }

// DocumentGenerated el documento fiscal fue creado en DRAFT (o reencolado por
// el planificador de reintentos): dispara Submit en el coordinador.
type DocumentGenerated struct {
	DocumentID string
}

func (DocumentGenerated) Topic() string { return TopicDocumentGenerated }

// DocumentAuthorized el SRI autorizó el documento: dispara la generación del
// PDF y la notificación al cliente.
type DocumentAuthorized struct {
	DocumentID string
}

func (DocumentAuthorized) Topic() string { return TopicDocumentAuthorized }
