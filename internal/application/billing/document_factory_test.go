package billing_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kevinvillajim/bcommerceBackEnd-sub004/internal/application/billing"
	"github.com/kevinvillajim/bcommerceBackEnd-sub004/internal/application/dto"
	"github.com/kevinvillajim/bcommerceBackEnd-sub004/internal/domain"
	"github.com/kevinvillajim/bcommerceBackEnd-sub004/internal/domain/entity"
	"github.com/kevinvillajim/bcommerceBackEnd-sub004/internal/domain/event"
	"github.com/kevinvillajim/bcommerceBackEnd-sub004/pkg/logger"
)

// ── Helpers ──────────────────────────────────────────────────────────────────

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func testCustomer() *entity.Customer {
	return &entity.Customer{
		ID:                 "cust-1",
		IdentificationType: entity.IdentificationCedula,
		Identification:     "1712345678",
		Name:               "María Pérez",
		Email:              "maria@example.com",
		Address:            "Av. Amazonas N34-120, Quito",
		Phone:              "0991234567",
	}
}

// completedOrder orden completada con montos ya reconciliados:
// 2×50.00 + envío 5.00 = base 105.00, IVA 15% = 15.75, total 120.75.
func completedOrder() *entity.Order {
	return &entity.Order{
		ID:           "order-1",
		Number:       "ORD-2026-001001",
		CustomerID:   "cust-1",
		Status:       entity.OrderStatusCompleted,
		Subtotal:     dec("100.00"),
		TaxAmount:    dec("15.75"),
		ShippingCost: dec("5.00"),
		Total:        dec("120.75"),
		Currency:     "USD",
		Items: []entity.OrderItem{{
			ID:          "item-1",
			OrderID:     "order-1",
			ProductCode: "PRD-001",
			Description: "Teclado mecánico",
			Quantity:    dec("2"),
			UnitPrice:   dec("50.00"),
			Discount:    decimal.Zero,
			TaxRate:     dec("0.15"),
			Subtotal:    dec("100.00"),
			TaxAmount:   dec("15.00"),
		}},
		CreatedAt: time.Now(),
	}
}

type factoryFixture struct {
	factory *billing.DocumentFactory
	docRepo *fakeDocumentRepo
	pub     *fakePublisher
}

func buildFactory(orders map[string]*entity.Order) factoryFixture {
	docRepo := newFakeDocumentRepo()
	pub := &fakePublisher{}
	f := billing.NewDocumentFactory(
		docRepo,
		&fakeOrderRepo{orders: orders},
		&fakeCustomerRepo{customers: map[string]*entity.Customer{"cust-1": testCustomer()}},
		&fakeDocTxRunner{repo: docRepo},
		pub,
		logger.Nop(),
	)
	return factoryFixture{factory: f, docRepo: docRepo, pub: pub}
}

// ── BuildFromOrder ───────────────────────────────────────────────────────────

func TestBuildFromOrder_CreaFacturaEnDraft(t *testing.T) {
	fx := buildFactory(map[string]*entity.Order{"order-1": completedOrder()})

	doc, err := fx.factory.BuildFromOrder(context.Background(), "order-1")

	require.NoError(t, err)
	assert.Equal(t, entity.KindInvoice, doc.Kind)
	assert.Equal(t, entity.StatusDraft, doc.Status)
	assert.Equal(t, "000000001", doc.DocumentNumber, "primer consecutivo de factura")
	assert.Equal(t, entity.CreatedViaAutomatic, doc.CreatedVia)
	assert.Equal(t, "order-1", doc.SourceOrderID)

	// Snapshot del cliente copiado al documento.
	assert.Equal(t, "María Pérez", doc.CustomerName)
	assert.Equal(t, "1712345678", doc.CustomerIdentification)
	assert.Equal(t, entity.IdentificationCedula, doc.CustomerIdentificationType)

	// Montos copiados de la orden, con el envío dentro de la base.
	assert.True(t, doc.Subtotal.Equal(dec("105.00")), "subtotal = base + envío, got %s", doc.Subtotal)
	assert.True(t, doc.TaxAmount.Equal(dec("15.75")))
	assert.True(t, doc.TotalAmount.Equal(dec("120.75")))

	// El envío factura como línea propia para que Σ(líneas) == subtotal.
	require.Len(t, doc.Lines, 2)
	shipping := doc.Lines[1]
	assert.Equal(t, "SHIPPING", shipping.Code)
	assert.True(t, shipping.Subtotal.Equal(dec("5.00")))
	assert.True(t, doc.Reconcile())

	generated := fx.pub.byTopic(event.TopicDocumentGenerated)
	require.Len(t, generated, 1, "la creación publica DocumentGenerated")
	assert.Equal(t, doc.ID, generated[0].(event.DocumentGenerated).DocumentID)
}

func TestBuildFromOrder_IdempotentePorOrden(t *testing.T) {
	fx := buildFactory(map[string]*entity.Order{"order-1": completedOrder()})

	first, err := fx.factory.BuildFromOrder(context.Background(), "order-1")
	require.NoError(t, err)

	// Entrega duplicada de OrderCompleted: mismo documento, sin crear otro.
	second, err := fx.factory.BuildFromOrder(context.Background(), "order-1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, fx.pub.byTopic(event.TopicDocumentGenerated), 1,
		"la entrega duplicada no vuelve a publicar DocumentGenerated")
}

func TestBuildFromOrder_CarreraConcurrenteUnSoloDocumento(t *testing.T) {
	fx := buildFactory(map[string]*entity.Order{"order-1": completedOrder()})

	const workers = 6
	results := make([]*entity.FiscalDocument, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = fx.factory.BuildFromOrder(context.Background(), "order-1")
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
	}

	// Todos los workers terminan con el mismo documento: la constraint única
	// sobre source_order_id cierra la carrera.
	for i := 1; i < workers; i++ {
		assert.Equal(t, results[0].ID, results[i].ID)
	}
	assert.Equal(t, 1, fx.docRepo.count())
}

func TestBuildFromOrder_OrdenNoCompletada(t *testing.T) {
	order := completedOrder()
	order.Status = entity.OrderStatusPending
	fx := buildFactory(map[string]*entity.Order{"order-1": order})

	_, err := fx.factory.BuildFromOrder(context.Background(), "order-1")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestBuildFromOrder_OrdenInexistente(t *testing.T) {
	fx := buildFactory(map[string]*entity.Order{})

	_, err := fx.factory.BuildFromOrder(context.Background(), "no-existe")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestBuildFromOrder_ConsecutivosSecuenciales(t *testing.T) {
	orderA := completedOrder()
	orderB := completedOrder()
	orderB.ID, orderB.Number = "order-2", "ORD-2026-001002"
	fx := buildFactory(map[string]*entity.Order{"order-1": orderA, "order-2": orderB})

	docA, err := fx.factory.BuildFromOrder(context.Background(), "order-1")
	require.NoError(t, err)
	docB, err := fx.factory.BuildFromOrder(context.Background(), "order-2")
	require.NoError(t, err)

	assert.Equal(t, "000000001", docA.DocumentNumber)
	assert.Equal(t, "000000002", docB.DocumentNumber)
}

// ── BuildManual ──────────────────────────────────────────────────────────────

func manualInvoiceRequest() dto.ManualDocumentRequest {
	return dto.ManualDocumentRequest{
		Kind:       string(entity.KindInvoice),
		CustomerID: "cust-1",
		Lines: []dto.DocumentLineRequest{{
			Code:        "SRV-001",
			Description: "Servicio de instalación",
			Quantity:    dec("1"),
			UnitPrice:   dec("80.00"),
			Discount:    decimal.Zero,
			TaxRate:     dec("0.15"),
		}},
	}
}

func TestBuildManual_FacturaConTotalesDerivados(t *testing.T) {
	fx := buildFactory(nil)

	doc, err := fx.factory.BuildManual(context.Background(), manualInvoiceRequest())

	require.NoError(t, err)
	assert.Equal(t, entity.CreatedViaManual, doc.CreatedVia)
	assert.Equal(t, "USD", doc.Currency, "moneda por defecto")
	assert.Empty(t, doc.SourceOrderID)
	assert.True(t, doc.Subtotal.Equal(dec("80.00")))
	assert.True(t, doc.TaxAmount.Equal(dec("12.00")))
	assert.True(t, doc.TotalAmount.Equal(dec("92.00")))
	assert.True(t, doc.Reconcile())
}

func TestBuildManual_KindInvalido(t *testing.T) {
	fx := buildFactory(nil)
	req := manualInvoiceRequest()
	req.Kind = "DEBIT_NOTE"

	_, err := fx.factory.BuildManual(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestBuildManual_LineaNoPositivaRechazada(t *testing.T) {
	fx := buildFactory(nil)
	req := manualInvoiceRequest()
	req.Lines[0].Quantity = decimal.Zero

	_, err := fx.factory.BuildManual(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

// ── Notas de crédito ─────────────────────────────────────────────────────────

func creditNoteRequest(modifiedNumber string) dto.ManualDocumentRequest {
	req := manualInvoiceRequest()
	req.Kind = string(entity.KindCreditNote)
	req.ModifiedDocumentNumber = modifiedNumber
	req.Reason = "Devolución de mercadería por producto defectuoso"
	return req
}

// seedAuthorizedInvoice inserta una factura ya autorizada para acreditar.
func seedAuthorizedInvoice(repo *fakeDocumentRepo, number string) {
	repo.put(&entity.FiscalDocument{
		ID:             "inv-" + number,
		DocumentNumber: number,
		Kind:           entity.KindInvoice,
		Status:         entity.StatusAuthorized,
		CreatedAt:      time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
	})
}

func TestBuildManual_NotaDeCreditoReferenciaFactura(t *testing.T) {
	fx := buildFactory(nil)
	seedAuthorizedInvoice(fx.docRepo, "000000042")

	doc, err := fx.factory.BuildManual(context.Background(), creditNoteRequest("000000042"))

	require.NoError(t, err)
	assert.Equal(t, entity.KindCreditNote, doc.Kind)
	require.NotNil(t, doc.ModifiedDocument)
	assert.Equal(t, entity.KindInvoice, doc.ModifiedDocument.Type)
	assert.Equal(t, "000000042", doc.ModifiedDocument.Number)
	assert.Equal(t, "000000001", doc.DocumentNumber,
		"las notas de crédito llevan su propio consecutivo")
}

func TestBuildManual_NotaDeCreditoSinMotivoValido(t *testing.T) {
	fx := buildFactory(nil)
	seedAuthorizedInvoice(fx.docRepo, "000000042")

	casos := map[string]string{
		"muy corto": "por",
		"vacío":     "",
	}
	for name, reason := range casos {
		t.Run(name, func(t *testing.T) {
			req := creditNoteRequest("000000042")
			req.Reason = reason
			_, err := fx.factory.BuildManual(context.Background(), req)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestBuildManual_NotaDeCreditoSobreFacturaNoAutorizada(t *testing.T) {
	fx := buildFactory(nil)
	fx.docRepo.put(&entity.FiscalDocument{
		ID:             "inv-draft",
		DocumentNumber: "000000099",
		Kind:           entity.KindInvoice,
		Status:         entity.StatusDraft,
	})

	_, err := fx.factory.BuildManual(context.Background(), creditNoteRequest("000000099"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "solo se acreditan documentos autorizados")
}

func TestBuildManual_NotaDeCreditoSobreNotaDeCredito(t *testing.T) {
	fx := buildFactory(nil)
	seedAuthorizedInvoice(fx.docRepo, "000000042")
	req := creditNoteRequest("000000042")
	req.ModifiedDocumentType = string(entity.KindCreditNote)

	_, err := fx.factory.BuildManual(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestBuildManual_NotaDeCreditoSinDocumentoModificado(t *testing.T) {
	fx := buildFactory(nil)
	req := creditNoteRequest("")

	_, err := fx.factory.BuildManual(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
