package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/kevinvillajim/bcommerceBackEnd-sub004/internal/application/billing"
	"github.com/kevinvillajim/bcommerceBackEnd-sub004/internal/application/dto"
	"github.com/kevinvillajim/bcommerceBackEnd-sub004/internal/domain"
)

// DocumentHandler maneja las peticiones HTTP del pipeline fiscal (protegido).
type DocumentHandler struct {
	factory *billing.DocumentFactory
	admin   *billing.DocumentAdminUseCase
}

// NewDocumentHandler construye el handler de documentos.
func NewDocumentHandler(factory *billing.DocumentFactory, admin *billing.DocumentAdminUseCase) *DocumentHandler {
	return &DocumentHandler{factory: factory, admin: admin}
}

// mapDomainError traduce errores de dominio a respuestas HTTP: 404 recurso
// inexistente, 422 validación (incluye operaciones sobre un estado que no las
// admite), 400 regla de negocio (duplicados, reintentos agotados, precondición
// del pipeline no cumplida), 500 para lo demás.
func mapDomainError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "recurso no encontrado"})
	case errors.Is(err, domain.ErrInvalidInput):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	case errors.Is(err, domain.ErrIllegalTransition):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{Code: "INVALID_STATE", Message: err.Error()})
	case errors.Is(err, domain.ErrDuplicateDocument):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "DUPLICATE_DOCUMENT", Message: "la orden ya tiene un documento fiscal"})
	case errors.Is(err, domain.ErrRetriesExhausted):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "RETRIES_EXHAUSTED", Message: err.Error()})
	case errors.Is(err, domain.ErrConflict):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "BUSINESS_RULE", Message: err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
}

// List lista documentos fiscales con filtros.
// GET /api/documents
func (h *DocumentHandler) List(c *fiber.Ctx) error {
	var in dto.ListDocumentsRequest
	if err := c.QueryParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_QUERY", Message: "parámetros inválidos"})
	}
	docs, err := h.admin.List(c.Context(), in)
	if err != nil {
		return mapDomainError(c, err)
	}
	return c.JSON(docs)
}

// CreateManual crea un documento fiscal manual (factura o nota de crédito).
// POST /api/documents
func (h *DocumentHandler) CreateManual(c *fiber.Ctx) error {
	var in dto.ManualDocumentRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	doc, err := h.factory.BuildManual(c.Context(), in)
	if err != nil {
		return mapDomainError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":              doc.ID,
		"document_number": doc.DocumentNumber,
		"status":          doc.Status,
	})
}

// GetByID detalle completo del documento, con líneas.
// GET /api/documents/:id
func (h *DocumentHandler) GetByID(c *fiber.Ctx) error {
	doc, err := h.admin.Get(c.Context(), c.Params("id"))
	if err != nil {
		return mapDomainError(c, err)
	}
	return c.JSON(doc)
}

// UpdateCustomer edita datos del cliente (solo pre-autorización).
// PUT /api/documents/:id/customer
func (h *DocumentHandler) UpdateCustomer(c *fiber.Ctx) error {
	var in dto.UpdateCustomerRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	doc, err := h.admin.UpdateCustomer(c.Context(), c.Params("id"), in)
	if err != nil {
		return mapDomainError(c, err)
	}
	return c.JSON(doc)
}

// Retry reintento manual de envío al SRI.
// POST /api/documents/:id/retry
func (h *DocumentHandler) Retry(c *fiber.Ctx) error {
	status, err := h.admin.Retry(c.Context(), c.Params("id"))
	if err != nil {
		return mapDomainError(c, err)
	}
	return c.JSON(fiber.Map{"status": status})
}

// CheckStatus consulta de autorización por clave de acceso.
// POST /api/documents/:id/check-status
func (h *DocumentHandler) CheckStatus(c *fiber.Ctx) error {
	status, err := h.admin.CheckStatus(c.Context(), c.Params("id"))
	if err != nil {
		return mapDomainError(c, err)
	}
	return c.JSON(fiber.Map{"status": status})
}

// RetryFailed reenvío masivo de documentos FAILED reintenables.
// POST /api/documents/retry-failed
func (h *DocumentHandler) RetryFailed(c *fiber.Ctx) error {
	n, err := h.admin.RetryAllFailed(c.Context())
	if err != nil {
		return mapDomainError(c, err)
	}
	return c.JSON(fiber.Map{"retried": n})
}

// Undelivered documentos autorizados pero aún no notificados al cliente.
// GET /api/documents/undelivered
func (h *DocumentHandler) Undelivered(c *fiber.Ctx) error {
	docs, err := h.admin.ListUndelivered(c.Context())
	if err != nil {
		return mapDomainError(c, err)
	}
	return c.JSON(docs)
}

// DownloadPDF descarga el RIDE, generándolo bajo demanda si falta.
// GET /api/documents/:id/pdf
func (h *DocumentHandler) DownloadPDF(c *fiber.Ctx) error {
	pdf, filename, err := h.admin.DownloadPDF(c.Context(), c.Params("id"))
	if err != nil {
		return mapDomainError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Send(pdf)
}
