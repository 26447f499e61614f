package repository

import (
	"context"

	"github.com/kevinvillajim/bcommerceBackEnd-sub004/internal/domain/entity"
)

// OrderRepository acceso de solo lectura a órdenes completadas (el checkout es
// otro subsistema; aquí solo se consumen sus resultados).
type OrderRepository interface {
	// GetByID devuelve la orden con sus items, o nil si no existe.
	GetByID(ctx context.Context, id string) (*entity.Order, error)
}

// CustomerRepository acceso de lectura a clientes para copiar sus datos al documento.
type CustomerRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Customer, error)
}
