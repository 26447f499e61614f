package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kevinvillajim/bcommerceBackEnd-sub004/internal/application/dto"
	"github.com/kevinvillajim/bcommerceBackEnd-sub004/internal/domain"
	"github.com/kevinvillajim/bcommerceBackEnd-sub004/internal/domain/entity"
	"github.com/kevinvillajim/bcommerceBackEnd-sub004/internal/domain/event"
	"github.com/kevinvillajim/bcommerceBackEnd-sub004/internal/domain/repository"
	"github.com/kevinvillajim/bcommerceBackEnd-sub004/pkg/logger"
)

// Longitud del motivo de una nota de crédito.
const (
	creditNoteReasonMin = 5
	creditNoteReasonMax = 500
)

// DocumentFactory construye documentos fiscales en DRAFT a partir de órdenes
// completadas o de payloads manuales del API administrativo. No recalcula
// reglas de negocio del checkout: copia montos ya resueltos y los valida
// (reconciliación dentro de la tolerancia de redondeo).
type DocumentFactory struct {
	docRepo      repository.DocumentRepository
	orderRepo    repository.OrderRepository
	customerRepo repository.CustomerRepository
	txRunner     DocumentTxRunner
	publisher    Publisher
	log          *logger.Logger
}

// NewDocumentFactory construye la fábrica con sus dependencias.
func NewDocumentFactory(
	docRepo repository.DocumentRepository,
	orderRepo repository.OrderRepository,
	customerRepo repository.CustomerRepository,
	txRunner DocumentTxRunner,
	publisher Publisher,
	log *logger.Logger,
) *DocumentFactory {
	return &DocumentFactory{
		docRepo:      docRepo,
		orderRepo:    orderRepo,
		customerRepo: customerRepo,
		txRunner:     txRunner,
		publisher:    publisher,
		log:          log,
	}
}

// BuildFromOrder crea la factura de una orden completada.
//
// Idempotente frente a entregas duplicadas de OrderCompleted: si la orden ya
// tiene documento, devuelve el existente sin crear otro. La constraint única
// sobre source_order_id cierra la carrera entre dos workers concurrentes.
func (f *DocumentFactory) BuildFromOrder(ctx context.Context, orderID string) (*entity.FiscalDocument, error) {
	order, err := f.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("factory: obtener orden: %w", err)
	}
	if order == nil {
		return nil, domain.ErrNotFound
	}
	if order.Status != entity.OrderStatusCompleted {
		return nil, fmt.Errorf("%w: la orden %s no está completada", domain.ErrInvalidInput, order.Number)
	}

	// Cerca de idempotencia: un documento por orden.
	if existing, err := f.docRepo.GetByOrderID(ctx, orderID); err != nil {
		return nil, fmt.Errorf("factory: verificar duplicado: %w", err)
	} else if existing != nil {
		f.log.Debug().Str("order_id", orderID).Str("document_id", existing.ID).
			Msg("la orden ya tiene documento fiscal, no se genera otro")
		return existing, nil
	}

	customer, err := f.customerRepo.GetByID(ctx, order.CustomerID)
	if err != nil || customer == nil {
		return nil, fmt.Errorf("factory: cliente %s: %w", order.CustomerID, domain.ErrNotFound)
	}

	now := time.Now()
	doc := &entity.FiscalDocument{
		ID:   uuid.New().String(),
		Kind: entity.KindInvoice,

		CustomerIdentificationType: customer.IdentificationType,
		CustomerIdentification:     customer.Identification,
		CustomerName:               customer.Name,
		CustomerEmail:              customer.Email,
		CustomerAddress:            customer.Address,
		CustomerPhone:              customer.Phone,

		Subtotal:    order.Subtotal.Add(order.ShippingCost),
		TaxAmount:   order.TaxAmount,
		TotalAmount: order.Total,
		Currency:    order.Currency,

		Status:        entity.StatusDraft,
		SourceOrderID: order.ID,
		CreatedVia:    entity.CreatedViaAutomatic,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	for _, item := range order.Items {
		doc.Lines = append(doc.Lines, entity.DocumentLine{
			ID:          uuid.New().String(),
			DocumentID:  doc.ID,
			Code:        item.ProductCode,
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Discount:    item.Discount,
			TaxRate:     item.TaxRate,
			Subtotal:    item.Subtotal,
			TaxAmount:   item.TaxAmount,
		})
	}
	// El costo de envío factura como línea propia para que Σ(líneas) == subtotal.
	if order.ShippingCost.IsPositive() {
		doc.Lines = append(doc.Lines, entity.DocumentLine{
			ID:          uuid.New().String(),
			DocumentID:  doc.ID,
			Code:        "SHIPPING",
			Description: "Costo de envío",
			Quantity:    decimal.NewFromInt(1),
			UnitPrice:   order.ShippingCost,
			Discount:    decimal.Zero,
			TaxRate:     decimal.Zero,
			Subtotal:    order.ShippingCost,
			TaxAmount:   decimal.Zero,
		})
	}

	return f.persistDraft(ctx, doc)
}

// BuildManual crea un documento desde un payload administrativo con líneas
// explícitas (created_via=manual). Valida exactamente igual que la vía automática.
func (f *DocumentFactory) BuildManual(ctx context.Context, in dto.ManualDocumentRequest) (*entity.FiscalDocument, error) {
	kind := entity.DocumentKind(in.Kind)
	if kind != entity.KindInvoice && kind != entity.KindCreditNote {
		return nil, fmt.Errorf("%w: kind debe ser INVOICE o CREDIT_NOTE", domain.ErrInvalidInput)
	}
	if in.CustomerID == "" || len(in.Lines) == 0 {
		return nil, domain.ErrInvalidInput
	}

	customer, err := f.customerRepo.GetByID(ctx, in.CustomerID)
	if err != nil || customer == nil {
		return nil, domain.ErrNotFound
	}

	currency := in.Currency
	if currency == "" {
		currency = "USD"
	}

	now := time.Now()
	doc := &entity.FiscalDocument{
		ID:   uuid.New().String(),
		Kind: kind,

		CustomerIdentificationType: customer.IdentificationType,
		CustomerIdentification:     customer.Identification,
		CustomerName:               customer.Name,
		CustomerEmail:              customer.Email,
		CustomerAddress:            customer.Address,
		CustomerPhone:              customer.Phone,

		Currency:   currency,
		Status:     entity.StatusDraft,
		CreatedVia: entity.CreatedViaManual,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	// Líneas: subtotal e impuesto se derivan aquí de los valores explícitos del
	// payload (qty·precio−descuento), no de reglas de checkout.
	subtotal, taxTotal := decimal.Zero, decimal.Zero
	for _, l := range in.Lines {
		lineSubtotal := l.Quantity.Mul(l.UnitPrice).Sub(l.Discount).Round(2)
		lineTax := lineSubtotal.Mul(l.TaxRate).Round(2)
		doc.Lines = append(doc.Lines, entity.DocumentLine{
			ID:          uuid.New().String(),
			DocumentID:  doc.ID,
			Code:        l.Code,
			Description: l.Description,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			Discount:    l.Discount,
			TaxRate:     l.TaxRate,
			Subtotal:    lineSubtotal,
			TaxAmount:   lineTax,
		})
		subtotal = subtotal.Add(lineSubtotal)
		taxTotal = taxTotal.Add(lineTax)
	}
	doc.Subtotal = subtotal
	doc.TaxAmount = taxTotal
	doc.TotalAmount = subtotal.Add(taxTotal)

	if kind == entity.KindCreditNote {
		if err := f.attachCreditNoteRef(ctx, doc, in); err != nil {
			return nil, err
		}
	}

	return f.persistDraft(ctx, doc)
}

// attachCreditNoteRef valida y adjunta la referencia al documento modificado.
func (f *DocumentFactory) attachCreditNoteRef(ctx context.Context, doc *entity.FiscalDocument, in dto.ManualDocumentRequest) error {
	if len(in.Reason) < creditNoteReasonMin || len(in.Reason) > creditNoteReasonMax {
		return fmt.Errorf("%w: el motivo de la nota de crédito requiere entre %d y %d caracteres",
			domain.ErrInvalidInput, creditNoteReasonMin, creditNoteReasonMax)
	}
	if in.ModifiedDocumentNumber == "" {
		return fmt.Errorf("%w: la nota de crédito requiere el documento modificado", domain.ErrInvalidInput)
	}

	modKind := entity.DocumentKind(in.ModifiedDocumentType)
	if modKind == "" {
		modKind = entity.KindInvoice
	}
	// Una nota de crédito no puede modificar otra nota de crédito ni a sí misma.
	if modKind != entity.KindInvoice {
		return fmt.Errorf("%w: una nota de crédito solo puede modificar una factura", domain.ErrInvalidInput)
	}

	modified, err := f.docRepo.GetByNumber(ctx, modKind, in.ModifiedDocumentNumber)
	if err != nil {
		return fmt.Errorf("factory: buscar documento modificado: %w", err)
	}
	if modified == nil {
		return fmt.Errorf("%w: documento modificado %s no existe", domain.ErrInvalidInput, in.ModifiedDocumentNumber)
	}
	if modified.Status != entity.StatusAuthorized {
		return fmt.Errorf("%w: solo se puede acreditar un documento autorizado", domain.ErrInvalidInput)
	}

	date := modified.CreatedAt
	if in.ModifiedDocumentDate != "" {
		if parsed, perr := time.Parse("2006-01-02", in.ModifiedDocumentDate); perr == nil {
			date = parsed
		}
	}
	doc.ModifiedDocument = &entity.ModifiedDocumentRef{
		Type:   modKind,
		Number: modified.DocumentNumber,
		Date:   date,
	}
	doc.Reason = in.Reason
	return nil
}

// persistDraft valida, asigna consecutivo y persiste el documento en DRAFT.
// Publica DocumentGenerated para que el coordinador haga el primer Submit.
func (f *DocumentFactory) persistDraft(ctx context.Context, doc *entity.FiscalDocument) (*entity.FiscalDocument, error) {
	if !doc.ValidateLines() {
		return nil, fmt.Errorf("%w: líneas con cantidad o precio no positivos", domain.ErrInvalidInput)
	}
	if !doc.Reconcile() {
		return nil, fmt.Errorf("%w: los totales no reconcilian con las líneas", domain.ErrInvalidInput)
	}

	// Consecutivo + cabecera + líneas en una sola transacción: un fallo de
	// inserción no deja número consumido ni documento a medias.
	err := f.txRunner.RunDocument(ctx, func(txRepo repository.DocumentRepository) error {
		number, err := txRepo.NextDocumentNumber(ctx, doc.Kind)
		if err != nil {
			return fmt.Errorf("factory: consecutivo: %w", err)
		}
		doc.DocumentNumber = number
		return txRepo.Create(ctx, doc)
	})
	if err != nil {
		// Carrera sobre source_order_id: otro worker creó el documento primero.
		if doc.SourceOrderID != "" {
			if existing, gerr := f.docRepo.GetByOrderID(ctx, doc.SourceOrderID); gerr == nil && existing != nil {
				return existing, nil
			}
		}
		return nil, fmt.Errorf("factory: persistir documento: %w", err)
	}

	f.log.Info().
		Str("document_id", doc.ID).
		Str("document_number", doc.DocumentNumber).
		Str("kind", string(doc.Kind)).
		Str("order_id", doc.SourceOrderID).
		Msg("documento fiscal creado en DRAFT")

	f.publisher.Publish(ctx, event.DocumentGenerated{DocumentID: doc.ID})
	return doc, nil
}
