package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/kevinvillajim/bcommerceBackEnd-sub004/internal/domain/entity"
	"github.com/kevinvillajim/bcommerceBackEnd-sub004/internal/domain/repository"
)

var _ repository.OrderRepository = (*OrderRepo)(nil)

// OrderRepo lectura de órdenes (el checkout escribe; el pipeline fiscal solo lee).
type OrderRepo struct {
	q Querier
}

// NewOrderRepository construye el adaptador. Pasar pool o tx (Querier).
func NewOrderRepository(q Querier) *OrderRepo {
	return &OrderRepo{q: q}
}

// GetByID obtiene la orden con sus items, o nil si no existe.
func (r *OrderRepo) GetByID(ctx context.Context, id string) (*entity.Order, error) {
	const q = `
		SELECT id, number, customer_id, status, subtotal, tax_amount, shipping_cost, total, currency, created_at, updated_at
		FROM orders WHERE id = $1`
	var o entity.Order
	var status string
	err := r.q.QueryRow(ctx, q, id).Scan(
		&o.ID, &o.Number, &o.CustomerID, &status,
		&o.Subtotal, &o.TaxAmount, &o.ShippingCost, &o.Total, &o.Currency,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	o.Status = entity.OrderStatus(status)

	const ql = `
		SELECT id, order_id, product_code, description, quantity, unit_price, discount, tax_rate, subtotal, tax_amount
		FROM order_items WHERE order_id = $1 ORDER BY id`
	rows, err := r.q.Query(ctx, ql, id)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var it entity.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductCode, &it.Description,
			&it.Quantity, &it.UnitPrice, &it.Discount, &it.TaxRate, &it.Subtotal, &it.TaxAmount); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		o.Items = append(o.Items, it)
	}
	return &o, rows.Err()
}

var _ repository.CustomerRepository = (*CustomerRepo)(nil)

// CustomerRepo lectura de clientes para copiar sus datos al documento fiscal.
type CustomerRepo struct {
	q Querier
}

// NewCustomerRepository construye el adaptador. Pasar pool o tx (Querier).
func NewCustomerRepository(q Querier) *CustomerRepo {
	return &CustomerRepo{q: q}
}

// GetByID obtiene un cliente, o nil si no existe.
func (r *CustomerRepo) GetByID(ctx context.Context, id string) (*entity.Customer, error) {
	const q = `
		SELECT id, identification_type, identification, name,
		       COALESCE(email, ''), COALESCE(address, ''), COALESCE(phone, ''),
		       created_at, updated_at
		FROM customers WHERE id = $1`
	var c entity.Customer
	err := r.q.QueryRow(ctx, q, id).Scan(
		&c.ID, &c.IdentificationType, &c.Identification, &c.Name,
		&c.Email, &c.Address, &c.Phone, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get customer: %w", err)
	}
	return &c, nil
}
