package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/kevinvillajim/bcommerceBackEnd-sub004/internal/application/billing"
	"github.com/kevinvillajim/bcommerceBackEnd-sub004/internal/application/dto"
	"github.com/kevinvillajim/bcommerceBackEnd-sub004/internal/domain"
	"github.com/kevinvillajim/bcommerceBackEnd-sub004/internal/domain/entity"
	"github.com/kevinvillajim/bcommerceBackEnd-sub004/internal/domain/event"
	"github.com/kevinvillajim/bcommerceBackEnd-sub004/internal/domain/repository"
)

// OrderHandler recibe la señal de orden completada desde el checkout y la
// convierte en un evento del bus. El endpoint es tolerante a re-entregas: los
// consumidores son idempotentes, así que repetir el POST es inocuo.
type OrderHandler struct {
	orderRepo repository.OrderRepository
	publisher billing.Publisher
}

// NewOrderHandler construye el handler de órdenes.
func NewOrderHandler(orderRepo repository.OrderRepository, publisher billing.Publisher) *OrderHandler {
	return &OrderHandler{orderRepo: orderRepo, publisher: publisher}
}

// Complete publica OrderCompleted para la orden indicada.
// POST /api/orders/:id/complete
func (h *OrderHandler) Complete(c *fiber.Ctx) error {
	id := c.Params("id")
	order, err := h.orderRepo.GetByID(c.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) || order == nil {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "orden no encontrada"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	if order == nil {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "orden no encontrada"})
	}
	if order.Status != entity.OrderStatusCompleted {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "BUSINESS_RULE", Message: "la orden no está completada"})
	}

	h.publisher.Publish(c.Context(), event.OrderCompleted{OrderID: order.ID})
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"order_id": order.ID, "published": true})
}
