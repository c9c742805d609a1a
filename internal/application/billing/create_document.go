package billing

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tu-usuario/facturalo-pe/internal/application/dto"
	"github.com/tu-usuario/facturalo-pe/internal/domain"
	"github.com/tu-usuario/facturalo-pe/internal/domain/entity"
	"github.com/tu-usuario/facturalo-pe/internal/domain/repository"
	"github.com/tu-usuario/facturalo-pe/pkg/logger"
)

// DocumentUseCase orquesta el intake de comprobantes: valida contra el set de
// reglas, computa totales, aplica bancarización, persiste en PENDING dentro
// de una transacción y encola el envío a SUNAT.
type DocumentUseCase struct {
	txRunner    TxRunner
	docRepo     repository.DocumentRepository
	companyRepo repository.CompanyRepository
	clientRepo  repository.ClientRepository
	checker     *BancarizationChecker
	enqueuer    SubmissionEnqueuer
	log         *logger.Logger

	// now se inyecta en tests para congelar el reloj.
	now func() time.Time
}

// NewDocumentUseCase construye el caso de uso.
func NewDocumentUseCase(
	txRunner TxRunner,
	docRepo repository.DocumentRepository,
	companyRepo repository.CompanyRepository,
	clientRepo repository.ClientRepository,
	checker *BancarizationChecker,
	enqueuer SubmissionEnqueuer,
	log *logger.Logger,
) *DocumentUseCase {
	return &DocumentUseCase{
		txRunner:    txRunner,
		docRepo:     docRepo,
		companyRepo: companyRepo,
		clientRepo:  clientRepo,
		checker:     checker,
		enqueuer:    enqueuer,
		log:         log,
		now:         time.Now,
	}
}

// CreateDocument valida, computa y persiste el comprobante en PENDING; luego
// lo encola para envío. Cualquier fallo de validación retorna el mapa
// completo campo -> mensajes sin escribir nada.
func (uc *DocumentUseCase) CreateDocument(ctx context.Context, companyID string, in dto.CreateDocumentRequest) (*dto.DocumentResponse, error) {
	branch, err := uc.companyRepo.GetBranch(ctx, in.BranchID)
	if err != nil || branch == nil {
		return nil, domain.ErrNotFound
	}
	if branch.CompanyID != companyID {
		return nil, domain.ErrForbidden
	}

	var client *entity.Client
	if in.ClientID != "" {
		client, err = uc.clientRepo.GetByID(ctx, in.ClientID)
		if err != nil || client == nil {
			return nil, domain.ErrNotFound
		}
		if client.CompanyID != companyID {
			return nil, domain.ErrForbidden
		}
	}

	ve := ValidateDocument(&in, client)

	if in.AffectedDocumentID != "" && !ve.HasErrors() {
		affected, aErr := uc.docRepo.GetByID(ctx, in.AffectedDocumentID)
		if aErr != nil || affected == nil {
			return nil, domain.ErrNotFound
		}
		if affected.CompanyID != companyID {
			return nil, domain.ErrForbidden
		}
	}

	doc := uc.buildDocument(companyID, &in)
	NormalizeSaleNote(doc)
	ComputeTotals(doc)

	ve.Merge(uc.checker.Check(ctx, doc, client))
	if err := ve.ErrOrNil(); err != nil {
		return nil, err
	}

	// Persistencia atómica de cabecera y detalle, estado inicial PENDING.
	err = uc.txRunner.RunDocument(ctx, func(docs repository.DocumentRepository) error {
		if err := docs.Create(ctx, doc); err != nil {
			return err
		}
		for i := range doc.Details {
			if err := docs.CreateDetail(ctx, &doc.Details[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.log.Info().
		Str("document_id", doc.ID).
		Str("company_id", doc.CompanyID).
		Str("numero", doc.FullNumber).
		Str("total", doc.GrandTotal.StringFixed(2)).
		Msg("comprobante validado y persistido")

	if err := uc.submit(ctx, doc.ID); err != nil {
		// El documento queda en PENDING; el caller puede reintentar el envío.
		uc.log.Error().Err(err).Str("document_id", doc.ID).Msg("no se pudo encolar el envío")
	}

	return uc.toResponse(doc), nil
}

// Resubmit re-encola un documento en ERROR o REJECTED (o PENDING que nunca
// llegó a la cola). Un documento ACCEPTED, QUEUED o SENT no es reenviable:
// responde conflicto sin alterar estado.
func (uc *DocumentUseCase) Resubmit(ctx context.Context, companyID, id string) error {
	doc, err := uc.docRepo.GetByID(ctx, id)
	if err != nil || doc == nil {
		return domain.ErrNotFound
	}
	if doc.CompanyID != companyID {
		return domain.ErrForbidden
	}
	if !entity.ResubmitableStatuses[doc.Status] {
		return domain.ErrConflict
	}
	return uc.submit(ctx, id)
}

// submit consume el estado origen (PENDING/ERROR/REJECTED → QUEUED) y empuja
// el documento al carril de envío. La transición condicionada garantiza que
// dos llamadas concurrentes no encolen dos veces.
func (uc *DocumentUseCase) submit(ctx context.Context, id string) error {
	var queued bool
	for _, from := range []string{entity.StatusPending, entity.StatusError, entity.StatusRejected} {
		ok, err := uc.docRepo.TransitionStatus(ctx, id, from, entity.StatusQueued)
		if err != nil {
			return err
		}
		if ok {
			queued = true
			break
		}
	}
	if !queued {
		return domain.ErrConflict
	}
	return uc.enqueuer.EnqueueSubmission(ctx, id)
}

// GetDocument devuelve el comprobante con detalle completo.
func (uc *DocumentUseCase) GetDocument(ctx context.Context, companyID, id string) (*dto.DocumentResponse, error) {
	doc, err := uc.docRepo.GetByID(ctx, id)
	if err != nil || doc == nil {
		return nil, domain.ErrNotFound
	}
	if doc.CompanyID != companyID {
		return nil, domain.ErrForbidden
	}
	details, err := uc.docRepo.GetDetails(ctx, id)
	if err != nil {
		return nil, err
	}
	doc.Details = doc.Details[:0]
	for _, d := range details {
		doc.Details = append(doc.Details, *d)
	}
	return uc.toResponse(doc), nil
}

// GetStatus consulta ligera para polling del estado SUNAT.
func (uc *DocumentUseCase) GetStatus(ctx context.Context, companyID, id string) (*dto.DocumentStatusResponse, error) {
	doc, err := uc.docRepo.GetByID(ctx, id)
	if err != nil || doc == nil {
		return nil, domain.ErrNotFound
	}
	if doc.CompanyID != companyID {
		return nil, domain.ErrForbidden
	}
	return &dto.DocumentStatusResponse{
		ID:           doc.ID,
		Status:       doc.Status,
		SendAttempts: doc.SendAttempts,
		ErrorCode:    doc.ErrorCode,
		CDRHash:      doc.CDRHash,
	}, nil
}

func (uc *DocumentUseCase) buildDocument(companyID string, in *dto.CreateDocumentRequest) *entity.Document {
	now := uc.now()
	issueDate, _ := time.Parse("2006-01-02", in.IssueDate)

	doc := &entity.Document{
		ID:                 uuid.New().String(),
		CompanyID:          companyID,
		BranchID:           in.BranchID,
		Kind:               in.Kind,
		Series:             in.Series,
		Correlative:        in.Correlative,
		FullNumber:         entity.BuildFullNumber(in.Series, in.Correlative),
		ClientID:           in.ClientID,
		Currency:           in.Currency,
		ExchangeRate:       in.ExchangeRate,
		IssueDate:          issueDate,
		OperationType:      in.OperationType,
		GlobalDiscount:     in.GlobalDiscount,
		TotalOtherTaxes:    in.OtherTaxes,
		AffectedDocumentID: in.AffectedDocumentID,
		TotalWeight:        in.TotalWeight,
		Consignee:          in.Consignee,
		Status:             entity.StatusPending,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if in.DueDate != "" {
		if due, err := time.Parse("2006-01-02", in.DueDate); err == nil {
			doc.DueDate = &due
		}
	}

	for _, item := range in.Items {
		doc.Details = append(doc.Details, entity.Detail{
			ID:              uuid.New().String(),
			DocumentID:      doc.ID,
			ProductCode:     item.ProductCode,
			Description:     item.Description,
			Quantity:        item.Quantity,
			UnitPrice:       item.UnitPrice,
			AffectationCode: item.AffectationCode,
			IGVPercent:      item.IGVPercent,
			Discount:        item.Discount,
			ISC:             item.ISC,
			ICBPER:          item.ICBPER,
		})
	}

	if in.Payment != nil {
		doc.Payment = &entity.Payment{
			MethodCode:      in.Payment.MethodCode,
			Amount:          in.Payment.Amount,
			OperationNumber: in.Payment.OperationNumber,
			BankName:        in.Payment.BankName,
			Date:            parseDatePtr(in.Payment.Date),
		}
	}
	for _, mp := range in.MultiPayments {
		doc.MultiPayments = append(doc.MultiPayments, entity.MultiPayment{
			MethodCode:      mp.MethodCode,
			Amount:          mp.Amount,
			OperationNumber: mp.OperationNumber,
			BankName:        mp.BankName,
			Date:            parseDatePtr(mp.Date),
		})
	}
	for _, inst := range in.Installments {
		due, _ := time.Parse("2006-01-02", inst.DueDate)
		doc.Installments = append(doc.Installments, entity.Installment{
			Number:  inst.Number,
			Amount:  inst.Amount,
			DueDate: due,
		})
	}
	return doc
}

func (uc *DocumentUseCase) toResponse(doc *entity.Document) *dto.DocumentResponse {
	resp := &dto.DocumentResponse{
		ID:            doc.ID,
		CompanyID:     doc.CompanyID,
		Kind:          doc.Kind,
		Serie:         doc.Series,
		Correlativo:   doc.Correlative,
		Numero:        doc.FullNumber,
		Currency:      doc.Currency,
		IssueDate:     doc.IssueDate.Format("2006-01-02"),
		Status:        doc.Status,
		TotalTaxed:    doc.TotalTaxed,
		TotalExempt:   doc.TotalExempt,
		TotalUnaffect: doc.TotalUnaffected,
		TotalExport:   doc.TotalExport,
		TotalIGV:      doc.TotalIGV,
		TotalISC:      doc.TotalISC,
		TotalICBPER:   doc.TotalICBPER,
		GrandTotal:    doc.GrandTotal,
		Voided:        doc.Voided,
		ErrorCode:     doc.ErrorCode,
	}
	for _, d := range doc.Details {
		resp.Items = append(resp.Items, dto.DocumentItemResponse{
			ProductCode:     d.ProductCode,
			Description:     d.Description,
			Quantity:        d.Quantity,
			UnitPrice:       d.UnitPrice,
			AffectationCode: d.AffectationCode,
			IGVPercent:      d.IGVPercent,
			LineValue:       d.LineValue,
			LineIGV:         d.LineIGV,
		})
	}
	return resp
}

func parseDatePtr(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil
	}
	return &t
}
