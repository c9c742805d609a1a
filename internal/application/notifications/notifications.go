package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tu-usuario/facturalo-pe/internal/domain/entity"
	"github.com/tu-usuario/facturalo-pe/internal/domain/repository"
	"github.com/tu-usuario/facturalo-pe/pkg/logger"
)

// Mailer envía el aviso por correo al emisor. La implementación concreta vive
// en infraestructura (SMTP vía gomail).
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Service registra avisos internos y, si hay correo configurado, los envía al
// emisor. El correo es best-effort: su fallo solo se loguea.
type Service struct {
	repo        repository.NotificationRepository
	companyRepo repository.CompanyRepository
	mailer      Mailer // nil cuando el correo está deshabilitado
	log         *logger.Logger
	now         func() time.Time
}

// NewService construye el servicio de avisos.
func NewService(repo repository.NotificationRepository, companyRepo repository.CompanyRepository, mailer Mailer, log *logger.Logger) *Service {
	return &Service{repo: repo, companyRepo: companyRepo, mailer: mailer, log: log, now: time.Now}
}

// DocumentAccepted registra el aviso de aceptación.
func (s *Service) DocumentAccepted(ctx context.Context, doc *entity.Document) error {
	return s.record(ctx, doc, entity.EventDocumentAccepted,
		fmt.Sprintf("Comprobante %s aceptado", doc.FullNumber),
		fmt.Sprintf("SUNAT aceptó el comprobante %s emitido el %s.", doc.FullNumber, doc.IssueDate.Format("2006-01-02")))
}

// DocumentRejected registra el aviso de rechazo con el detalle SUNAT.
func (s *Service) DocumentRejected(ctx context.Context, doc *entity.Document, errorCode, errorMessage string) error {
	return s.record(ctx, doc, entity.EventDocumentRejected,
		fmt.Sprintf("Comprobante %s rechazado", doc.FullNumber),
		fmt.Sprintf("SUNAT rechazó el comprobante %s: %s - %s. Corrígelo y reenvíalo.", doc.FullNumber, errorCode, errorMessage))
}

// DocumentErrored registra el aviso de reintentos agotados.
func (s *Service) DocumentErrored(ctx context.Context, doc *entity.Document, lastErr string) error {
	return s.record(ctx, doc, "document.errored",
		fmt.Sprintf("Comprobante %s sin respuesta de SUNAT", doc.FullNumber),
		fmt.Sprintf("Se agotaron los intentos de envío del comprobante %s (último error: %s). Reenvíalo manualmente.", doc.FullNumber, lastErr))
}

func (s *Service) record(ctx context.Context, doc *entity.Document, event, title, body string) error {
	n := &entity.Notification{
		ID:         uuid.New().String(),
		CompanyID:  doc.CompanyID,
		DocumentID: doc.ID,
		EventName:  event,
		Title:      title,
		Body:       body,
		CreatedAt:  s.now(),
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return err
	}

	if s.mailer == nil {
		return nil
	}
	company, err := s.companyRepo.GetByID(ctx, doc.CompanyID)
	if err != nil || company == nil || company.Email == "" {
		return nil
	}
	if err := s.mailer.Send(ctx, company.Email, title, body); err != nil {
		s.log.Warn().Err(err).Str("notification_id", n.ID).Msg("no se pudo enviar el correo del aviso")
		return nil
	}
	if err := s.repo.MarkEmailSent(ctx, n.ID); err != nil {
		s.log.Warn().Err(err).Str("notification_id", n.ID).Msg("no se pudo marcar el correo como enviado")
	}
	return nil
}
