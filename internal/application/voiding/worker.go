package voiding

import (
	"context"
	"time"

	"github.com/tu-usuario/facturalo-pe/internal/domain/entity"
	"github.com/tu-usuario/facturalo-pe/internal/domain/repository"
	"github.com/tu-usuario/facturalo-pe/pkg/logger"
)

// ticketPollDelay espera entre consultas getStatus del ticket.
const ticketPollDelay = 30 * time.Second

// sendRetryDelay espera antes de reintentar un sendSummary fallido; el
// re-encolado va al ZSET de diferidos para no martillar el WS caído.
const sendRetryDelay = 30 * time.Second

// TicketStatus es el resultado de un getStatus sobre el ticket del batch.
type TicketStatus struct {
	Processing  bool // SUNAT aún no resolvió el batch
	Accepted    bool
	Code        string
	Description string
	CDRHash     string
	RawResponse string
}

// SummaryTransmitter es el puerto sendSummary/getStatus hacia el WS SUNAT.
// Los errores devueltos son transitorios; el rechazo llega en TicketStatus.
type SummaryTransmitter interface {
	SendSummary(ctx context.Context, company *entity.Company, batch *entity.VoidedDocuments) (ticket string, raw string, err error)
	GetStatus(ctx context.Context, company *entity.Company, ticket string) (*TicketStatus, error)
}

// Worker ejecuta el flujo asíncrono de la comunicación de baja:
//
//	PENDING → sendSummary → ticket → SENT → getStatus → ACCEPTED | REJECTED
//
// Al aceptarse el batch se marca voided cada comprobante referenciado; ese es
// el único camino por el que un documento pasa a anulado.
type Worker struct {
	voidedRepo  repository.VoidedRepository
	docRepo     repository.DocumentRepository
	companyRepo repository.CompanyRepository
	transmitter SummaryTransmitter
	queue       Enqueuer
	log         *logger.Logger
	now         func() time.Time
}

// NewWorker construye el worker del flujo de baja.
func NewWorker(
	voidedRepo repository.VoidedRepository,
	docRepo repository.DocumentRepository,
	companyRepo repository.CompanyRepository,
	transmitter SummaryTransmitter,
	queue Enqueuer,
	log *logger.Logger,
) *Worker {
	return &Worker{
		voidedRepo:  voidedRepo,
		docRepo:     docRepo,
		companyRepo: companyRepo,
		transmitter: transmitter,
		queue:       queue,
		log:         log,
		now:         time.Now,
	}
}

// ProcessSend envía el batch por sendSummary y guarda el ticket. Un fallo
// transitorio deja el batch en PENDING y lo re-encola.
func (w *Worker) ProcessSend(ctx context.Context, voidedID string) error {
	batch, err := w.voidedRepo.GetByID(ctx, voidedID)
	if err != nil {
		return err
	}
	if batch == nil || batch.Status != entity.VoidedStatusPending {
		return nil
	}

	company, err := w.companyRepo.GetByID(ctx, batch.CompanyID)
	if err != nil || company == nil {
		// El batch sigue PENDING: vuelve al carril de bajas, nunca al de
		// tickets, donde ProcessTicket lo descartaría.
		w.log.Error().Err(err).Str("voided_id", voidedID).Msg("empresa emisora no disponible para la baja")
		return w.queue.EnqueueVoidedDelayed(ctx, voidedID, sendRetryDelay)
	}

	ticket, _, err := w.transmitter.SendSummary(ctx, company, batch)
	if err != nil {
		w.log.Warn().Err(err).Str("voided_id", voidedID).Msg("sendSummary falló, re-encolando")
		return w.queue.EnqueueVoidedDelayed(ctx, voidedID, sendRetryDelay)
	}

	ok, err := w.voidedRepo.MarkSent(ctx, voidedID, ticket)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	w.log.Info().
		Str("voided_id", voidedID).
		Str("identifier", batch.Identifier).
		Str("ticket", ticket).
		Msg("comunicación de baja enviada, ticket recibido")

	return w.queue.EnqueueTicketPoll(ctx, voidedID, ticketPollDelay)
}

// ProcessTicket consulta el ticket del batch. Mientras SUNAT siga procesando
// se re-encola el polling; al resolverse se finaliza el batch y, si fue
// aceptado, se marca voided cada comprobante referenciado.
func (w *Worker) ProcessTicket(ctx context.Context, voidedID string) error {
	batch, err := w.voidedRepo.GetByID(ctx, voidedID)
	if err != nil {
		return err
	}
	if batch == nil || batch.Status != entity.VoidedStatusSent {
		return nil
	}

	company, err := w.companyRepo.GetByID(ctx, batch.CompanyID)
	if err != nil || company == nil {
		return w.queue.EnqueueTicketPoll(ctx, voidedID, ticketPollDelay)
	}

	status, err := w.transmitter.GetStatus(ctx, company, batch.Ticket)
	if err != nil {
		w.log.Warn().Err(err).Str("voided_id", voidedID).Str("ticket", batch.Ticket).Msg("getStatus falló, reintentando")
		return w.queue.EnqueueTicketPoll(ctx, voidedID, ticketPollDelay)
	}
	if status.Processing {
		return w.queue.EnqueueTicketPoll(ctx, voidedID, ticketPollDelay)
	}

	if !status.Accepted {
		ok, err := w.voidedRepo.FinalizeRejected(ctx, voidedID, status.RawResponse)
		if err != nil {
			return err
		}
		if ok {
			w.log.Warn().
				Str("voided_id", voidedID).
				Str("identifier", batch.Identifier).
				Str("code", status.Code).
				Str("descripcion", status.Description).
				Msg("comunicación de baja rechazada; los comprobantes siguen vigentes")
		}
		return nil
	}

	ok, err := w.voidedRepo.FinalizeAccepted(ctx, voidedID, status.CDRHash, status.RawResponse)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	voidDate := w.now()
	for _, item := range batch.Items {
		if item.DocumentID == "" {
			continue
		}
		if err := w.docRepo.MarkVoided(ctx, item.DocumentID, voidedID, item.Reason, voidDate); err != nil {
			w.log.Error().Err(err).
				Str("voided_id", voidedID).
				Str("document_id", item.DocumentID).
				Msg("no se pudo marcar el comprobante como anulado")
		}
	}

	w.log.Info().
		Str("voided_id", voidedID).
		Str("identifier", batch.Identifier).
		Int("items", len(batch.Items)).
		Msg("comunicación de baja aceptada, comprobantes anulados")
	return nil
}
