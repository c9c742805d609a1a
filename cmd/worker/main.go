package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/tu-usuario/facturalo-pe/internal/application/events"
	"github.com/tu-usuario/facturalo-pe/internal/application/notifications"
	"github.com/tu-usuario/facturalo-pe/internal/application/submission"
	"github.com/tu-usuario/facturalo-pe/internal/application/voiding"
	"github.com/tu-usuario/facturalo-pe/internal/application/webhooks"
	"github.com/tu-usuario/facturalo-pe/internal/infrastructure/mail"
	"github.com/tu-usuario/facturalo-pe/internal/infrastructure/postgres"
	"github.com/tu-usuario/facturalo-pe/internal/infrastructure/queue"
	"github.com/tu-usuario/facturalo-pe/internal/infrastructure/sunat"
	"github.com/tu-usuario/facturalo-pe/pkg/config"
	"github.com/tu-usuario/facturalo-pe/pkg/logger"
	"github.com/tu-usuario/facturalo-pe/pkg/ratelimit"
)

// popTimeout espera máxima de cada BRPOP antes de revisar cancelación y
// promover trabajos diferidos vencidos.
const popTimeout = 5 * time.Second

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
		Str("sunat_env", cfg.SUNAT.AppEnv).
		Msg("iniciando worker")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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
	notificationRepo := postgres.NewNotificationRepository(pool)

	transmitter := sunat.NewTransmitter(cfg.SUNAT.AppEnv, docRepo, log.Component("sunat"))
	limiter := ratelimit.NewTenantLimiter(cfg.SUNAT.RatePerMinute, cfg.SUNAT.RateBurst, nil)

	fanout := webhooks.NewFanout(webhookRepo, redisQueue, log.Component("webhooks"))
	notifier := notifications.NewService(
		notificationRepo, companyRepo, mailerOrNil(cfg.Mail), log.Component("notifications"),
	)
	dispatcher := events.NewDispatcher(fanout, notifier, log.Component("events"))

	pipeline := submission.NewPipeline(
		docRepo, companyRepo, clientRepo, transmitter, limiter, redisQueue,
		dispatcher, log.Component("submission"), cfg.SUNAT.AttemptTimeout,
	)
	deliverer := webhooks.NewDeliverer(
		webhookRepo, redisQueue, cfg.Webhook.Timeout, log.Component("delivery"),
	)
	voidWorker := voiding.NewWorker(
		voidedRepo, docRepo, companyRepo, transmitter, redisQueue,
		log.Component("voiding"),
	)

	lanes := []struct {
		lane    string
		process func(context.Context, string) error
	}{
		{queue.LaneSubmissions, pipeline.Process},
		{queue.LaneWebhooks, deliverer.Deliver},
		{queue.LaneVoided, voidWorker.ProcessSend},
		{queue.LaneTickets, voidWorker.ProcessTicket},
	}

	var wg sync.WaitGroup
	for _, l := range lanes {
		wg.Add(1)
		go func(lane string, process func(context.Context, string) error) {
			defer wg.Done()
			consumeLane(ctx, redisQueue, lane, process, log)
		}(l.lane, l.process)
	}

	wg.Wait()
	log.Info().Msg("worker detenido")
}

// consumeLane es el bucle de un carril: promueve los trabajos diferidos
// vencidos y bloquea en BRPOP hasta el siguiente ID. Un fallo de proceso se
// loguea y no tumba el bucle; el reintento lo gobierna la propia aplicación.
func consumeLane(ctx context.Context, q *queue.Queue, lane string, process func(context.Context, string) error, log *logger.Logger) {
	for {
		if ctx.Err() != nil {
			return
		}
		if err := q.PromoteDue(ctx, lane); err != nil && ctx.Err() == nil {
			log.Warn().Err(err).Str("lane", lane).Msg("promover trabajos diferidos")
		}

		id, err := q.Pop(ctx, lane, popTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warn().Err(err).Str("lane", lane).Msg("leer carril")
			time.Sleep(time.Second)
			continue
		}
		if id == "" {
			continue
		}

		if err := process(ctx, id); err != nil {
			log.Error().Err(err).Str("lane", lane).Str("id", id).Msg("procesar trabajo")
		}
	}
}

// mailerOrNil devuelve el puerto de correo o nil (interfaz nil, no un puntero
// tipado nil) cuando SMTP no está configurado.
func mailerOrNil(cfg config.MailConfig) notifications.Mailer {
	m := mail.New(cfg)
	if m == nil {
		return nil
	}
	return m
}
