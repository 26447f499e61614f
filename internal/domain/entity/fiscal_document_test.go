package entity_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/kevinvillajim/bcommerceBackEnd-sub004/internal/domain/entity"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// ── Estados ──────────────────────────────────────────────────────────────────

func TestDocumentStatus_Terminales(t *testing.T) {
	terminales := []entity.DocumentStatus{
		entity.StatusAuthorized, entity.StatusRejected, entity.StatusNotAuthorized,
		entity.StatusReturned, entity.StatusDefinitivelyFailed,
	}
	for _, st := range terminales {
		assert.True(t, st.IsTerminal(), "%s debe ser terminal", st)
	}

	noTerminales := []entity.DocumentStatus{
		entity.StatusDraft, entity.StatusSent, entity.StatusPending,
		entity.StatusProcessing, entity.StatusReceived, entity.StatusFailed,
	}
	for _, st := range noTerminales {
		assert.False(t, st.IsTerminal(), "%s no debe ser terminal", st)
	}
}

func TestDocumentStatus_TransitoriosDelSRI(t *testing.T) {
	assert.True(t, entity.StatusPending.IsAuthorityPending())
	assert.True(t, entity.StatusProcessing.IsAuthorityPending())
	assert.True(t, entity.StatusReceived.IsAuthorityPending())
	assert.False(t, entity.StatusSent.IsAuthorityPending())
	assert.False(t, entity.StatusAuthorized.IsAuthorityPending())
}

func TestCanSubmit(t *testing.T) {
	const maxRetries = 3

	casos := []struct {
		name       string
		status     entity.DocumentStatus
		retryCount int
		want       bool
	}{
		{"draft", entity.StatusDraft, 0, true},
		{"failed con reintentos", entity.StatusFailed, 2, true},
		{"failed agotado", entity.StatusFailed, 3, false},
		{"sent en vuelo", entity.StatusSent, 0, false},
		{"autorizado", entity.StatusAuthorized, 0, false},
		{"rechazado", entity.StatusRejected, 0, false},
		{"definitivamente fallido", entity.StatusDefinitivelyFailed, 3, false},
	}
	for _, c := range casos {
		t.Run(c.name, func(t *testing.T) {
			doc := &entity.FiscalDocument{Status: c.status, RetryCount: c.retryCount}
			assert.Equal(t, c.want, doc.CanSubmit(maxRetries))
		})
	}
}

func TestCanRetry_SoloFailedConReintentos(t *testing.T) {
	doc := &entity.FiscalDocument{Status: entity.StatusFailed, RetryCount: 1}
	assert.True(t, doc.CanRetry(3))

	doc.RetryCount = 3
	assert.False(t, doc.CanRetry(3))

	doc.Status = entity.StatusDraft
	doc.RetryCount = 0
	assert.False(t, doc.CanRetry(3), "DRAFT usa submit normal, no retry")
}

// ── Reconciliación ───────────────────────────────────────────────────────────

func reconciledDocument() *entity.FiscalDocument {
	return &entity.FiscalDocument{
		Subtotal:    dec("105.00"),
		TaxAmount:   dec("15.75"),
		TotalAmount: dec("120.75"),
		Lines: []entity.DocumentLine{
			{Quantity: dec("2"), UnitPrice: dec("50.00"), Subtotal: dec("100.00")},
			{Quantity: dec("1"), UnitPrice: dec("5.00"), Subtotal: dec("5.00")},
		},
	}
}

func TestReconcile_DocumentoConsistente(t *testing.T) {
	assert.True(t, reconciledDocument().Reconcile())
}

func TestReconcile_ToleraRedondeoDeUnCentavo(t *testing.T) {
	doc := reconciledDocument()
	doc.TotalAmount = dec("120.76")
	assert.True(t, doc.Reconcile(), "la tolerancia es de un centavo (half-up a dos decimales)")
}

func TestReconcile_RechazaDesviacionMayor(t *testing.T) {
	doc := reconciledDocument()
	doc.TotalAmount = dec("120.80")
	assert.False(t, doc.Reconcile())
}

func TestReconcile_LineasNoSumanElSubtotal(t *testing.T) {
	doc := reconciledDocument()
	doc.Lines[0].Subtotal = dec("90.00")
	assert.False(t, doc.Reconcile())
}

// ── Validación de líneas ─────────────────────────────────────────────────────

func TestValidateLines(t *testing.T) {
	valid := entity.DocumentLine{Quantity: dec("1"), UnitPrice: dec("10.00"), Discount: decimal.Zero}

	casos := []struct {
		name   string
		mutate func(l *entity.DocumentLine)
		want   bool
	}{
		{"línea válida", nil, true},
		{"cantidad cero", func(l *entity.DocumentLine) { l.Quantity = decimal.Zero }, false},
		{"cantidad negativa", func(l *entity.DocumentLine) { l.Quantity = dec("-1") }, false},
		{"precio cero", func(l *entity.DocumentLine) { l.UnitPrice = decimal.Zero }, false},
		{"descuento negativo", func(l *entity.DocumentLine) { l.Discount = dec("-0.01") }, false},
	}
	for _, c := range casos {
		t.Run(c.name, func(t *testing.T) {
			line := valid
			if c.mutate != nil {
				c.mutate(&line)
			}
			doc := &entity.FiscalDocument{Lines: []entity.DocumentLine{line}}
			assert.Equal(t, c.want, doc.ValidateLines())
		})
	}
}

func TestValidateLines_SinLineas(t *testing.T) {
	doc := &entity.FiscalDocument{}
	assert.False(t, doc.ValidateLines(), "un documento sin líneas no es válido")
}

// ── Asiento contable ─────────────────────────────────────────────────────────

func TestLedgerBalanced(t *testing.T) {
	txn := &entity.LedgerTransaction{Entries: []entity.LedgerEntry{
		{Account: entity.AccountReceivable, Debit: dec("120.75")},
		{Account: entity.AccountSalesRevenue, Credit: dec("105.00")},
		{Account: entity.AccountTaxPayable, Credit: dec("15.75")},
	}}
	assert.True(t, txn.Balanced())

	txn.Entries[2].Credit = dec("15.74")
	assert.False(t, txn.Balanced(), "un centavo de diferencia descuadra el asiento")
}
