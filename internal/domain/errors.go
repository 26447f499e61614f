package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound     = errors.New("recurso no encontrado")
	ErrInvalidInput = errors.New("entrada inválida")
	ErrDuplicate    = errors.New("recurso duplicado")
	ErrUnauthorized = errors.New("no autorizado")
	ErrForbidden    = errors.New("acceso denegado")
	ErrConflict     = errors.New("conflicto con el estado actual")

	// ErrDuplicateDocument indica que la orden ya tiene un documento fiscal generado.
	ErrDuplicateDocument = errors.New("la orden ya tiene un documento fiscal")
	// ErrIllegalTransition indica una transición no permitida por la máquina de estados.
	ErrIllegalTransition = errors.New("transición de estado no permitida")
	// ErrRetriesExhausted indica que el documento agotó sus reintentos de envío al SRI.
	ErrRetriesExhausted = errors.New("reintentos de envío agotados")
	// ErrLedgerUnbalanced indica un asiento contable descuadrado (Σdébitos != Σcréditos).
	// Señala un bug interno: jamás debe persistirse un asiento en este estado.
	ErrLedgerUnbalanced = errors.New("asiento contable descuadrado")
)
