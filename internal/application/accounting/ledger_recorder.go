// Package accounting registra el asiento contable de cada orden completada.
// Es independiente del pipeline fiscal: la venta se contabiliza al completarse
// la orden, sin importar el desenlace con el SRI.
package accounting

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kevinvillajim/bcommerceBackEnd-sub004/internal/domain"
	"github.com/kevinvillajim/bcommerceBackEnd-sub004/internal/domain/entity"
	"github.com/kevinvillajim/bcommerceBackEnd-sub004/internal/domain/event"
	"github.com/kevinvillajim/bcommerceBackEnd-sub004/internal/domain/repository"
	"github.com/kevinvillajim/bcommerceBackEnd-sub004/pkg/logger"
)

// LedgerTxRunner ejecuta fn con un LedgerRepository atado a una transacción:
// el asiento y sus líneas se confirman o deshacen juntos.
type LedgerTxRunner interface {
	RunLedger(ctx context.Context, fn func(repo repository.LedgerRepository) error) error
}

// LedgerRecorder construye y persiste el asiento de partida doble de una orden:
// débito a cuentas por cobrar por el total, crédito a ingresos por la base sin
// impuestos y crédito a IVA por pagar por el impuesto. Los montos se copian de
// la orden ya resuelta, nunca se recalculan.
type LedgerRecorder struct {
	ledgerRepo repository.LedgerRepository
	orderRepo  repository.OrderRepository
	txRunner   LedgerTxRunner
	log        *logger.Logger
}

// NewLedgerRecorder construye el registrador contable.
func NewLedgerRecorder(ledgerRepo repository.LedgerRepository, orderRepo repository.OrderRepository, txRunner LedgerTxRunner, log *logger.Logger) *LedgerRecorder {
	return &LedgerRecorder{ledgerRepo: ledgerRepo, orderRepo: orderRepo, txRunner: txRunner, log: log}
}

// ReferenceFor deriva la referencia única del asiento desde el número de orden.
func ReferenceFor(orderNumber string) string {
	return "LGR-" + orderNumber
}

// Record registra el asiento de la orden. Idempotente por reference_number:
// si el asiento ya existe, no-op. Un asiento descuadrado es un error fatal de
// consistencia interna: se aborta sin persistir nada y se alerta a operadores.
func (r *LedgerRecorder) Record(ctx context.Context, orderID string) error {
	order, err := r.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("ledger: obtener orden: %w", err)
	}
	if order == nil {
		return domain.ErrNotFound
	}

	reference := ReferenceFor(order.Number)
	if existing, err := r.ledgerRepo.GetByReference(ctx, reference); err != nil {
		return fmt.Errorf("ledger: verificar referencia: %w", err)
	} else if existing != nil {
		r.log.Debug().Str("order_id", orderID).Str("reference", reference).
			Msg("asiento ya registrado, entrega duplicada absorbida")
		return nil
	}

	// Base sin impuestos = subtotal + envío (montos ya resueltos por checkout).
	base := order.Subtotal.Add(order.ShippingCost)

	txn := &entity.LedgerTransaction{
		ID:              uuid.New().String(),
		ReferenceNumber: reference,
		OrderID:         order.ID,
		Description:     "Venta orden " + order.Number,
		Date:            time.Now(),
		CreatedAt:       time.Now(),
	}
	txn.Entries = []entity.LedgerEntry{
		{
			ID:            uuid.New().String(),
			TransactionID: txn.ID,
			Account:       entity.AccountReceivable,
			Debit:         order.Total,
			Note:          "Total de la orden",
		},
		{
			ID:            uuid.New().String(),
			TransactionID: txn.ID,
			Account:       entity.AccountSalesRevenue,
			Credit:        base,
			Note:          "Base gravable",
		},
		{
			ID:            uuid.New().String(),
			TransactionID: txn.ID,
			Account:       entity.AccountTaxPayable,
			Credit:        order.TaxAmount,
			Note:          "IVA",
		},
	}

	// Invariante de partida doble verificada ANTES de tocar la base de datos.
	if !txn.Balanced() {
		r.log.Error().Str("order_id", orderID).Str("reference", reference).
			Str("total", order.Total.String()).Str("base", base.String()).
			Str("tax", order.TaxAmount.String()).
			Msg("ASIENTO DESCUADRADO: bug de consistencia interna, nada se persiste")
		return fmt.Errorf("%w: orden %s", domain.ErrLedgerUnbalanced, order.Number)
	}

	err = r.txRunner.RunLedger(ctx, func(txRepo repository.LedgerRepository) error {
		return txRepo.Save(ctx, txn)
	})
	if err != nil {
		// Violación de unicidad sobre reference_number => otro worker registró
		// el asiento en paralelo; la idempotencia lo convierte en no-op.
		if existing, gerr := r.ledgerRepo.GetByReference(ctx, reference); gerr == nil && existing != nil {
			return nil
		}
		return fmt.Errorf("ledger: persistir asiento: %w", err)
	}

	r.log.Info().Str("order_id", orderID).Str("reference", reference).Msg("asiento contable registrado")
	return nil
}

// GetByOrder devuelve el asiento contable de una orden, o ErrNotFound.
func (r *LedgerRecorder) GetByOrder(ctx context.Context, orderID string) (*entity.LedgerTransaction, error) {
	txn, err := r.ledgerRepo.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("ledger: obtener asiento: %w", err)
	}
	if txn == nil {
		return nil, domain.ErrNotFound
	}
	return txn, nil
}

// RegisterSubscriptions conecta el registrador al bus: reacciona a
// OrderCompleted en paralelo con la generación del documento fiscal.
func (r *LedgerRecorder) RegisterSubscriptions(bus interface {
	Subscribe(topic string, handler func(ctx context.Context, evt event.Event))
}) {
	bus.Subscribe(event.TopicOrderCompleted, func(ctx context.Context, evt event.Event) {
		oc, ok := evt.(event.OrderCompleted)
		if !ok {
			return
		}
		if err := r.Record(ctx, oc.OrderID); err != nil {
			r.log.Error().Err(err).Str("order_id", oc.OrderID).Msg("registro contable falló")
		}
	})
}
