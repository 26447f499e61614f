package entity

import "time"

// Roles válidos para User.
const (
	RoleAdmin    = "admin"
	RoleOperator = "operator" // operador del pipeline fiscal: reintentos, consultas SRI
)

// User representa un usuario administrativo del backend.
type User struct {
	ID           string
	Email        string
	PasswordHash string // bcrypt hash, nunca plano en dominio después de persistir
	Name         string
	Role         string // admin, operator
	Status       string // active, inactive
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
