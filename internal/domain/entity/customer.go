package entity

import "time"

// Tipos de identificación SRI (tabla 6 de la ficha técnica).
const (
	IdentificationRUC      = "04"
	IdentificationCedula   = "05"
	IdentificationPassport = "06"
)

// Customer es el comprador del marketplace. Sus datos se copian al documento
// fiscal en el momento de la creación (snapshot inmutable tras autorización).
type Customer struct {
	ID                 string
	IdentificationType string // 04=RUC, 05=Cédula, 06=Pasaporte
	Identification     string
	Name               string
	Email              string
	Address            string
	Phone              string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
