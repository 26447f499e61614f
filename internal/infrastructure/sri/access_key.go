package sri

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/kevinvillajim/bcommerceBackEnd-sub004/internal/domain/entity"
)

// Códigos de tipo de comprobante según la ficha técnica del SRI.
const (
	codDocFactura     = "01"
	codDocNotaCredito = "04"
)

// codDocFor traduce la clase de documento al código de comprobante del SRI.
func codDocFor(kind entity.DocumentKind) string {
	if kind == entity.KindCreditNote {
		return codDocNotaCredito
	}
	return codDocFactura
}

// BuildAccessKey arma la clave de acceso de 49 dígitos del comprobante:
// fecha (ddmmaaaa) + codDoc + RUC + ambiente + estab/ptoEmi + secuencial +
// código numérico + tipo de emisión + dígito verificador módulo 11.
// El secuencial debe venir ya con sus 9 dígitos.
func BuildAccessKey(issuedAt time.Time, kind entity.DocumentKind, ruc, environment, establishment, emissionPoint, sequential string) (string, error) {
	if len(ruc) != 13 {
		return "", fmt.Errorf("sri: RUC inválido %q, se esperan 13 dígitos", ruc)
	}
	if len(sequential) != 9 {
		return "", fmt.Errorf("sri: secuencial inválido %q, se esperan 9 dígitos", sequential)
	}

	// Código numérico de 8 dígitos: aleatorio, solo anti-colisión de claves.
	numericCode := fmt.Sprintf("%08d", rand.Intn(100000000))

	partial := issuedAt.Format("02012006") +
		codDocFor(kind) +
		ruc +
		environment +
		establishment + emissionPoint +
		sequential +
		numericCode +
		"1" // tipo de emisión: normal

	if len(partial) != 48 {
		return "", fmt.Errorf("sri: clave parcial de %d dígitos, se esperaban 48", len(partial))
	}
	return partial + checkDigitMod11(partial), nil
}

// checkDigitMod11 calcula el dígito verificador módulo 11 con pesos 2..7
// de derecha a izquierda; 11 => 0, 10 => 1.
func checkDigitMod11(digits string) string {
	weight := 2
	sum := 0
	for i := len(digits) - 1; i >= 0; i-- {
		sum += int(digits[i]-'0') * weight
		weight++
		if weight > 7 {
			weight = 2
		}
	}
	check := 11 - (sum % 11)
	switch check {
	case 11:
		check = 0
	case 10:
		check = 1
	}
	return fmt.Sprintf("%d", check)
}
