package repository

import (
	"context"

	"github.com/kevinvillajim/bcommerceBackEnd-sub004/internal/domain/entity"
)

// LedgerRepository define el puerto de persistencia del libro contable.
type LedgerRepository interface {
	// Save persiste el asiento y sus líneas en una sola transacción.
	// reference_number tiene constraint único: una violación indica registro
	// concurrente duplicado y el caller la trata como no-op.
	Save(ctx context.Context, txn *entity.LedgerTransaction) error
	GetByReference(ctx context.Context, referenceNumber string) (*entity.LedgerTransaction, error)
	GetByOrderID(ctx context.Context, orderID string) (*entity.LedgerTransaction, error)
}
