package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/kevinvillajim/bcommerceBackEnd-sub004/internal/application/accounting"
	"github.com/kevinvillajim/bcommerceBackEnd-sub004/internal/application/dto"
	"github.com/kevinvillajim/bcommerceBackEnd-sub004/internal/domain"
)

// LedgerHandler expone el asiento contable de una orden.
type LedgerHandler struct {
	recorder *accounting.LedgerRecorder
}

// NewLedgerHandler construye el handler contable.
func NewLedgerHandler(recorder *accounting.LedgerRecorder) *LedgerHandler {
	return &LedgerHandler{recorder: recorder}
}

// GetByOrder asiento contable de la orden.
// GET /api/orders/:id/ledger
func (h *LedgerHandler) GetByOrder(c *fiber.Ctx) error {
	txn, err := h.recorder.GetByOrder(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "asiento no encontrado"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}

	resp := dto.LedgerTransactionResponse{
		ID:              txn.ID,
		ReferenceNumber: txn.ReferenceNumber,
		OrderID:         txn.OrderID,
		Description:     txn.Description,
		Date:            txn.Date,
	}
	for _, e := range txn.Entries {
		resp.Entries = append(resp.Entries, dto.LedgerEntryResponse{
			Account: e.Account,
			Debit:   e.Debit,
			Credit:  e.Credit,
			Note:    e.Note,
		})
	}
	return c.JSON(resp)
}
