package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Cuentas contables usadas por el registro automático de ventas.
const (
	AccountReceivable   = "1.1.2.01" // Cuentas por cobrar clientes
	AccountSalesRevenue = "4.1.1.01" // Ingresos por ventas
	AccountTaxPayable   = "2.1.3.01" // IVA por pagar
)

// LedgerTransaction es un asiento contable de partida doble derivado de una orden.
// ReferenceNumber se deriva del número de orden y es único: actúa como llave
// natural de idempotencia frente a entregas duplicadas del evento.
type LedgerTransaction struct {
	ID              string
	ReferenceNumber string
	OrderID         string
	Description     string
	Date            time.Time
	Entries         []LedgerEntry
	CreatedAt       time.Time
}

// LedgerEntry es una línea del asiento: débito o crédito sobre una cuenta.
type LedgerEntry struct {
	ID            string
	TransactionID string
	Account       string
	Debit         decimal.Decimal
	Credit        decimal.Decimal
	Note          string
}

// Balanced verifica la invariante de partida doble: Σdébitos == Σcréditos al centavo.
func (t *LedgerTransaction) Balanced() bool {
	debits, credits := decimal.Zero, decimal.Zero
	for _, e := range t.Entries {
		debits = debits.Add(e.Debit)
		credits = credits.Add(e.Credit)
	}
	return debits.Round(2).Equal(credits.Round(2))
}
