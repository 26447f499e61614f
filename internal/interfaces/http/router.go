package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/kevinvillajim/bcommerceBackEnd-sub004/internal/application/accounting"
	"github.com/kevinvillajim/bcommerceBackEnd-sub004/internal/application/auth"
	"github.com/kevinvillajim/bcommerceBackEnd-sub004/internal/application/billing"
	"github.com/kevinvillajim/bcommerceBackEnd-sub004/internal/domain/repository"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Factory   *billing.DocumentFactory
	AdminUC   *billing.DocumentAdminUseCase
	Recorder  *accounting.LedgerRecorder
	AuthUC    *auth.AuthUseCase
	OrderRepo repository.OrderRepository
	Publisher billing.Publisher
	JWTSecret string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Auth (público)
	authHandler := NewAuthHandler(deps.AuthUC)
	api.Post("/auth/login", authHandler.Login)

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))

	// Órdenes: hook del checkout + asiento contable
	orderHandler := NewOrderHandler(deps.OrderRepo, deps.Publisher)
	ledgerHandler := NewLedgerHandler(deps.Recorder)
	orders := protected.Group("/orders")
	orders.Post("/:id/complete", orderHandler.Complete)
	orders.Get("/:id/ledger", ledgerHandler.GetByOrder)

	// Documentos fiscales
	docHandler := NewDocumentHandler(deps.Factory, deps.AdminUC)
	docs := protected.Group("/documents")
	docs.Get("/", docHandler.List)
	docs.Post("/", docHandler.CreateManual)
	// Rutas fijas antes que /:id para que fiber no las capture como parámetro.
	docs.Get("/undelivered", docHandler.Undelivered)
	docs.Post("/retry-failed", RequireAdmin(), docHandler.RetryFailed)
	docs.Get("/:id", docHandler.GetByID)
	docs.Put("/:id/customer", docHandler.UpdateCustomer)
	docs.Post("/:id/retry", docHandler.Retry)
	docs.Post("/:id/check-status", docHandler.CheckStatus)
	docs.Get("/:id/pdf", docHandler.DownloadPDF)
}
