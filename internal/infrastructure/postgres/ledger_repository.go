package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/kevinvillajim/bcommerceBackEnd-sub004/internal/domain"
	"github.com/kevinvillajim/bcommerceBackEnd-sub004/internal/domain/entity"
	"github.com/kevinvillajim/bcommerceBackEnd-sub004/internal/domain/repository"
)

var _ repository.LedgerRepository = (*LedgerRepo)(nil)

// LedgerRepo implementa LedgerRepository sobre PostgreSQL.
type LedgerRepo struct {
	q Querier
}

// NewLedgerRepository construye el adaptador. Pasar pool o tx (Querier).
func NewLedgerRepository(q Querier) *LedgerRepo {
	return &LedgerRepo{q: q}
}

// Save persiste el asiento y sus líneas. La constraint única sobre
// reference_number convierte el registro concurrente duplicado en ErrDuplicate.
func (r *LedgerRepo) Save(ctx context.Context, txn *entity.LedgerTransaction) error {
	if txn.ID == "" {
		txn.ID = uuid.New().String()
	}
	const q = `
		INSERT INTO ledger_transactions (id, reference_number, order_id, description, date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.q.Exec(ctx, q,
		txn.ID, txn.ReferenceNumber, txn.OrderID, txn.Description, txn.Date, txn.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: referencia %s", domain.ErrDuplicate, txn.ReferenceNumber)
		}
		return fmt.Errorf("insert ledger_transaction: %w", err)
	}

	const ql = `
		INSERT INTO ledger_entries (id, transaction_id, account, debit, credit, note)
		VALUES ($1, $2, $3, $4, $5, $6)`
	for i := range txn.Entries {
		e := &txn.Entries[i]
		if e.ID == "" {
			e.ID = uuid.New().String()
		}
		e.TransactionID = txn.ID
		if _, err := r.q.Exec(ctx, ql, e.ID, e.TransactionID, e.Account, e.Debit, e.Credit, nullIfEmpty(e.Note)); err != nil {
			return fmt.Errorf("insert ledger_entry: %w", err)
		}
	}
	return nil
}

// GetByReference busca el asiento por su referencia única.
func (r *LedgerRepo) GetByReference(ctx context.Context, referenceNumber string) (*entity.LedgerTransaction, error) {
	const q = `
		SELECT id, reference_number, order_id, description, date, created_at
		FROM ledger_transactions WHERE reference_number = $1`
	return r.getOne(ctx, q, referenceNumber)
}

// GetByOrderID busca el asiento de una orden.
func (r *LedgerRepo) GetByOrderID(ctx context.Context, orderID string) (*entity.LedgerTransaction, error) {
	const q = `
		SELECT id, reference_number, order_id, description, date, created_at
		FROM ledger_transactions WHERE order_id = $1`
	return r.getOne(ctx, q, orderID)
}

func (r *LedgerRepo) getOne(ctx context.Context, q string, arg any) (*entity.LedgerTransaction, error) {
	var txn entity.LedgerTransaction
	err := r.q.QueryRow(ctx, q, arg).Scan(
		&txn.ID, &txn.ReferenceNumber, &txn.OrderID, &txn.Description, &txn.Date, &txn.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get ledger_transaction: %w", err)
	}

	const ql = `
		SELECT id, transaction_id, account, debit, credit, COALESCE(note, '')
		FROM ledger_entries WHERE transaction_id = $1 ORDER BY id`
	rows, err := r.q.Query(ctx, ql, txn.ID)
	if err != nil {
		return nil, fmt.Errorf("list ledger_entries: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var e entity.LedgerEntry
		if err := rows.Scan(&e.ID, &e.TransactionID, &e.Account, &e.Debit, &e.Credit, &e.Note); err != nil {
			return nil, fmt.Errorf("scan ledger_entry: %w", err)
		}
		txn.Entries = append(txn.Entries, e)
	}
	return &txn, rows.Err()
}
