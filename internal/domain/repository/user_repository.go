package repository

import (
	"context"

	"github.com/kevinvillajim/bcommerceBackEnd-sub004/internal/domain/entity"
)

// UserRepository define el puerto de persistencia para usuarios administrativos.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	GetByID(ctx context.Context, id string) (*entity.User, error)
}
