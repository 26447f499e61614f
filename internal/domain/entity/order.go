package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus estado de la orden en el marketplace.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusCompleted OrderStatus = "COMPLETED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// Order es una orden ya completada por checkout: los montos llegan resueltos
// (precios, descuentos e impuestos calculados) y el pipeline fiscal solo los
// copia y valida, nunca los recalcula.
type Order struct {
	ID           string
	Number       string // número visible de la orden, ej. "ORD-2026-001001"
	CustomerID   string
	Status       OrderStatus
	Subtotal     decimal.Decimal // base gravable sin impuestos
	TaxAmount    decimal.Decimal
	ShippingCost decimal.Decimal
	Total        decimal.Decimal
	Currency     string
	Items        []OrderItem
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// OrderItem línea de la orden con montos ya resueltos por checkout.
type OrderItem struct {
	ID          string
	OrderID     string
	ProductCode string
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	Discount    decimal.Decimal
	TaxRate     decimal.Decimal
	Subtotal    decimal.Decimal
	TaxAmount   decimal.Decimal
}
