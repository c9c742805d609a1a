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

	"github.com/tu-usuario/facturalo-pe/internal/application/billing"
	"github.com/tu-usuario/facturalo-pe/internal/application/voiding"
	"github.com/tu-usuario/facturalo-pe/internal/application/webhooks"
	"github.com/tu-usuario/facturalo-pe/internal/infrastructure/postgres"
	"github.com/tu-usuario/facturalo-pe/internal/infrastructure/queue"
	httpRouter "github.com/tu-usuario/facturalo-pe/internal/interfaces/http"
	"github.com/tu-usuario/facturalo-pe/pkg/config"
	"github.com/tu-usuario/facturalo-pe/pkg/logger"
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
		Msg("iniciando API")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	redisQueue, err := queue.Connect(ctx, cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a Redis")
	}
	defer redisQueue.Close()

	companyRepo := postgres.NewCompanyRepository(pool)
	clientRepo := postgres.NewClientRepository(pool)
	docRepo := postgres.NewDocumentRepository(pool)
	voidedRepo := postgres.NewVoidedRepository(pool)
	webhookRepo := postgres.NewWebhookRepository(pool)
	catalogRepo := postgres.NewCatalogRepository(pool)
	txRunner := postgres.NewTxRunner(pool)

	checker := billing.NewBancarizationChecker(catalogRepo)
	documentUC := billing.NewDocumentUseCase(
		txRunner, docRepo, companyRepo, clientRepo, checker, redisQueue,
		log.Component("billing"),
	)
	voidedUC := voiding.NewUseCase(voidedRepo, docRepo, redisQueue, log.Component("voiding"))
	webhookUC := webhooks.NewManageUseCase(
		webhookRepo, cfg.Webhook.DefaultMaxRetries, cfg.Webhook.DefaultRetryDelay,
	)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Facturalo PE API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		DocumentUC: documentUC,
		VoidedUC:   voidedUC,
		WebhookUC:  webhookUC,
		JWTSecret:  cfg.JWT.Secret,
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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("API detenida")
}
