package submission

import (
	"context"
	"time"

	"github.com/tu-usuario/facturalo-pe/internal/application/events"
	"github.com/tu-usuario/facturalo-pe/internal/domain/entity"
	"github.com/tu-usuario/facturalo-pe/internal/domain/repository"
	"github.com/tu-usuario/facturalo-pe/pkg/logger"
	"github.com/tu-usuario/facturalo-pe/pkg/ratelimit"
)

// MaxSendAttempts número total de intentos de transmisión por documento.
const MaxSendAttempts = 3

// RetryDelays espera fija antes del siguiente intento tras un fallo
// transitorio; indexado por número de intento ya consumido.
var RetryDelays = []time.Duration{30 * time.Second, 60 * time.Second, 120 * time.Second}

// rateDeferDelay re-encolado corto cuando el tenant agotó su cupo por minuto.
// El diferimiento NO consume intento: ocurre antes de reclamar el documento.
const rateDeferDelay = 5 * time.Second

// Pipeline procesa trabajos del carril de envío:
//
//	QUEUED → SENT (claim atómico) → transmisión → ACCEPTED | REJECTED | reintento | ERROR
//
// Cada intento corre bajo su propio timeout. El rechazo semántico de SUNAT es
// terminal y no consume reintentos; solo los fallos transitorios reintentan.
type Pipeline struct {
	docRepo     repository.DocumentRepository
	companyRepo repository.CompanyRepository
	clientRepo  repository.ClientRepository
	transmitter Transmitter
	limiter     *ratelimit.TenantLimiter
	queue       DelayedEnqueuer
	dispatcher  *events.Dispatcher
	log         *logger.Logger

	attemptTimeout time.Duration
}

// NewPipeline construye el pipeline de envío.
func NewPipeline(
	docRepo repository.DocumentRepository,
	companyRepo repository.CompanyRepository,
	clientRepo repository.ClientRepository,
	transmitter Transmitter,
	limiter *ratelimit.TenantLimiter,
	queue DelayedEnqueuer,
	dispatcher *events.Dispatcher,
	log *logger.Logger,
	attemptTimeout time.Duration,
) *Pipeline {
	if attemptTimeout <= 0 {
		attemptTimeout = 30 * time.Second
	}
	return &Pipeline{
		docRepo:        docRepo,
		companyRepo:    companyRepo,
		clientRepo:     clientRepo,
		transmitter:    transmitter,
		limiter:        limiter,
		queue:          queue,
		dispatcher:     dispatcher,
		log:            log,
		attemptTimeout: attemptTimeout,
	}
}

// Process ejecuta un intento de envío para el documento. Es seguro invocarlo
// más de una vez con el mismo ID: el claim condicionado hace que solo una
// invocación avance y el resto retorne sin efecto.
func (p *Pipeline) Process(ctx context.Context, documentID string) error {
	doc, err := p.docRepo.GetByID(ctx, documentID)
	if err != nil {
		return err
	}
	if doc == nil {
		p.log.Warn().Str("document_id", documentID).Msg("trabajo de envío para documento inexistente")
		return nil
	}
	if doc.Status != entity.StatusQueued {
		p.log.Debug().Str("document_id", documentID).Str("status", doc.Status).Msg("documento ya no está en cola, saltando")
		return nil
	}

	// El control de cupo va ANTES del claim: un diferimiento por rate limit
	// no debe incrementar send_attempts.
	if p.limiter != nil && !p.limiter.Allow(doc.CompanyID) {
		p.log.Debug().Str("document_id", documentID).Str("company_id", doc.CompanyID).Msg("cupo por minuto agotado, difiriendo envío")
		return p.queue.EnqueueSubmissionDelayed(ctx, documentID, rateDeferDelay)
	}

	claimed, attempts, err := p.docRepo.ClaimForSending(ctx, documentID)
	if err != nil {
		return err
	}
	if !claimed {
		return nil
	}

	company, err := p.companyRepo.GetByID(ctx, doc.CompanyID)
	if err != nil || company == nil {
		return p.handleTransientFailure(ctx, doc, attempts, "empresa emisora no disponible")
	}

	var client *entity.Client
	if doc.ClientID != "" {
		client, err = p.clientRepo.GetByID(ctx, doc.ClientID)
		if err != nil {
			return p.handleTransientFailure(ctx, doc, attempts, "adquiriente no disponible")
		}
	}

	details, err := p.docRepo.GetDetails(ctx, documentID)
	if err != nil {
		return p.handleTransientFailure(ctx, doc, attempts, "detalle no disponible")
	}
	doc.Details = doc.Details[:0]
	for _, d := range details {
		doc.Details = append(doc.Details, *d)
	}

	attemptCtx, cancel := context.WithTimeout(ctx, p.attemptTimeout)
	defer cancel()

	result, sendErr := p.transmitter.SendBill(attemptCtx, company, doc, client)
	if sendErr != nil {
		p.log.Warn().Err(sendErr).
			Str("document_id", documentID).
			Int("attempt", attempts).
			Msg("fallo transitorio de transmisión")
		return p.handleTransientFailure(ctx, doc, attempts, sendErr.Error())
	}

	return p.applyResult(ctx, doc, result)
}

// handleTransientFailure re-encola con el delay del intento o, si ya se agotó
// el presupuesto, finaliza en ERROR y dispara el aviso interno.
func (p *Pipeline) handleTransientFailure(ctx context.Context, doc *entity.Document, attempts int, lastErr string) error {
	if attempts >= MaxSendAttempts {
		ok, err := p.docRepo.FinalizeError(ctx, doc.ID, lastErr)
		if err != nil {
			return err
		}
		if ok {
			doc.Status = entity.StatusError
			doc.SendAttempts = attempts
			p.log.Error().
				Str("document_id", doc.ID).
				Int("attempts", attempts).
				Str("last_error", lastErr).
				Msg("reintentos agotados, documento en ERROR")
			if p.dispatcher != nil {
				p.dispatcher.Errored(ctx, events.DocumentErrored{Document: doc, LastErr: lastErr})
			}
		}
		return nil
	}

	// Devolver a QUEUED para que el próximo claim funcione; si la transición
	// no gana es que alguien más ya movió el documento.
	ok, err := p.docRepo.TransitionStatus(ctx, doc.ID, entity.StatusSent, entity.StatusQueued)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	delay := RetryDelays[len(RetryDelays)-1]
	if attempts-1 < len(RetryDelays) {
		delay = RetryDelays[attempts-1]
	}
	p.log.Info().
		Str("document_id", doc.ID).
		Int("attempt", attempts).
		Dur("retry_in", delay).
		Msg("reintento de envío programado")
	return p.queue.EnqueueSubmissionDelayed(ctx, doc.ID, delay)
}

// applyResult reconcilia la respuesta del WS contra la máquina de estados y
// emite los eventos tipados solo cuando la finalización condicionada gana.
func (p *Pipeline) applyResult(ctx context.Context, doc *entity.Document, result *BillResult) error {
	if result.Accepted {
		ok, err := p.docRepo.FinalizeAccepted(ctx, doc.ID, result.CDRHash, result.RawResponse)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		doc.Status = entity.StatusAccepted
		doc.CDRHash = result.CDRHash
		p.log.Info().
			Str("document_id", doc.ID).
			Str("numero", doc.FullNumber).
			Strs("observaciones", result.Notes).
			Msg("documento aceptado por SUNAT")
		if p.dispatcher != nil {
			p.dispatcher.Accepted(ctx, events.DocumentAccepted{Document: doc})
		}
		return nil
	}

	// Rechazo semántico: terminal, sin reintentos.
	ok, err := p.docRepo.FinalizeRejected(ctx, doc.ID, result.Code, result.RawResponse)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	doc.Status = entity.StatusRejected
	doc.ErrorCode = result.Code
	p.log.Warn().
		Str("document_id", doc.ID).
		Str("numero", doc.FullNumber).
		Str("error_code", result.Code).
		Str("descripcion", result.Description).
		Msg("documento rechazado por SUNAT")
	if p.dispatcher != nil {
		p.dispatcher.Rejected(ctx, events.DocumentRejected{
			Document:     doc,
			ErrorCode:    result.Code,
			ErrorMessage: result.Description,
		})
	}
	return nil
}
