package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/kevinvillajim/bcommerceBackEnd-sub004/internal/application/accounting"
	"github.com/kevinvillajim/bcommerceBackEnd-sub004/internal/application/auth"
	"github.com/kevinvillajim/bcommerceBackEnd-sub004/internal/application/billing"
	"github.com/kevinvillajim/bcommerceBackEnd-sub004/internal/infrastructure/eventbus"
	infrapdf "github.com/kevinvillajim/bcommerceBackEnd-sub004/internal/infrastructure/pdf"
	"github.com/kevinvillajim/bcommerceBackEnd-sub004/internal/infrastructure/mail"
	"github.com/kevinvillajim/bcommerceBackEnd-sub004/internal/infrastructure/postgres"
	"github.com/kevinvillajim/bcommerceBackEnd-sub004/internal/infrastructure/scheduler"
	infrasri "github.com/kevinvillajim/bcommerceBackEnd-sub004/internal/infrastructure/sri"
	"github.com/kevinvillajim/bcommerceBackEnd-sub004/internal/infrastructure/storage"
	httpRouter "github.com/kevinvillajim/bcommerceBackEnd-sub004/internal/interfaces/http"
	"github.com/kevinvillajim/bcommerceBackEnd-sub004/pkg/config"
	"github.com/kevinvillajim/bcommerceBackEnd-sub004/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: "info",
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando pipeline fiscal")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	// Repositorios
	docRepo := postgres.NewDocumentRepository(pool)
	ledgerRepo := postgres.NewLedgerRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool)
	customerRepo := postgres.NewCustomerRepository(pool)
	userRepo := postgres.NewUserRepository(pool)
	txRunner := postgres.NewTxRunner(pool)

	// Bus de eventos y planificador de reintentos
	bus := eventbus.New(log)
	retrySched := scheduler.New(bus, log)

	// Adaptadores SRI / PDF / storage / correo
	sriClient := infrasri.NewClient(cfg.SRI, log)
	renderer := infrapdf.NewRIDERenderer(cfg.SRI)
	store, err := storage.NewLocalStore(cfg.Storage.Root)
	if err != nil {
		log.Fatal().Err(err).Msg("almacén de artefactos")
	}
	mailer := mail.NewSMTPMailer(cfg.SMTP)

	// Servicios del pipeline
	policy := billing.RetryPolicy{
		MaxRetries: cfg.Retry.MaxRetries,
		BaseDelay:  time.Duration(cfg.Retry.BaseDelaySec) * time.Second,
		MaxDelay:   time.Duration(cfg.Retry.MaxDelaySec) * time.Second,
	}
	factory := billing.NewDocumentFactory(docRepo, orderRepo, customerRepo, txRunner, bus, log)
	coordinator := billing.NewSubmissionCoordinator(docRepo, sriClient, retrySched, bus, policy, cfg.SRI.Timeout, log)
	artifacts := billing.NewArtifactPipeline(docRepo, renderer, store, log)
	notifier := billing.NewNotificationDispatcher(docRepo, store, mailer, log)
	adminUC := billing.NewDocumentAdminUseCase(docRepo, coordinator, artifacts, store)
	recorder := accounting.NewLedgerRecorder(ledgerRepo, orderRepo, txRunner, log)
	authUC := auth.NewAuthUseCase(userRepo, auth.JWTConfig{
		Secret:     cfg.JWT.Secret,
		ExpMinutes: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})

	// Suscripciones al bus (antes de aceptar tráfico)
	billing.RegisterSubscriptions(bus, factory, coordinator, artifacts, notifier, log)
	recorder.RegisterSubscriptions(bus)

	// Barrido de arranque: los timers de reintento no sobreviven reinicios,
	// así que los FAILED elegibles se reencolan al arrancar.
	if n, err := coordinator.RetryAllFailed(ctx); err != nil {
		log.Error().Err(err).Msg("barrido inicial de documentos FAILED")
	} else if n > 0 {
		log.Info().Int("count", n).Msg("documentos FAILED reencolados al arranque")
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 30,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "BCommerce Facturación API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		Factory:   factory,
		AdminUC:   adminUC,
		Recorder:  recorder,
		AuthUC:    authUC,
		OrderRepo: orderRepo,
		Publisher: bus,
		JWTSecret: cfg.JWT.Secret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	retrySched.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	// Deja terminar las entregas de eventos en vuelo.
	bus.Drain()
	log.Info().Msg("aplicación detenida")
}
