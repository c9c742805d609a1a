package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tu-usuario/facturalo-pe/internal/domain"
	"github.com/tu-usuario/facturalo-pe/internal/domain/entity"
	"github.com/tu-usuario/facturalo-pe/internal/domain/repository"
)

var _ repository.DocumentRepository = (*DocumentRepo)(nil)

// DocumentRepo implementación de DocumentRepository (usable con pool o tx).
// Las transiciones de estado son UPDATEs condicionados: el RowsAffected
// decide quién ganó, sin SELECT FOR UPDATE ni locks distribuidos.
type DocumentRepo struct {
	q Querier
}

// NewDocumentRepository construye el adaptador. Pasar pool o tx (Querier).
func NewDocumentRepository(q Querier) *DocumentRepo {
	return &DocumentRepo{q: q}
}

// Create persiste la cabecera del comprobante. Los medios de pago y el
// cronograma de cuotas van como JSONB: son objetos de valor que solo se leen
// y escriben junto con la cabecera.
func (r *DocumentRepo) Create(ctx context.Context, doc *entity.Document) error {
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	payment, err := json.Marshal(doc.Payment)
	if err != nil {
		return fmt.Errorf("marshal payment: %w", err)
	}
	multiPayments, err := json.Marshal(doc.MultiPayments)
	if err != nil {
		return fmt.Errorf("marshal multi_payments: %w", err)
	}
	installments, err := json.Marshal(doc.Installments)
	if err != nil {
		return fmt.Errorf("marshal installments: %w", err)
	}

	query := `
		INSERT INTO documents (
			id, company_id, branch_id, kind, series, correlative, full_number,
			client_id, currency, exchange_rate, issue_date, due_date, operation_type,
			total_taxed, total_exempt, total_unaffected, total_export,
			total_igv, total_isc, total_icbper, total_other_taxes, global_discount, grand_total,
			status, send_attempts,
			payment, multi_payments, installments,
			affected_document_id, total_weight, consignee,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10, $11, $12, $13,
			$14, $15, $16, $17,
			$18, $19, $20, $21, $22, $23,
			$24, 0,
			$25, $26, $27,
			$28, $29, $30,
			$31, $32
		)`
	_, err = r.q.Exec(ctx, query,
		doc.ID, doc.CompanyID, doc.BranchID, doc.Kind, doc.Series, doc.Correlative, doc.FullNumber,
		nullIfEmpty(doc.ClientID), doc.Currency, doc.ExchangeRate, doc.IssueDate, doc.DueDate, nullIfEmpty(doc.OperationType),
		doc.TotalTaxed, doc.TotalExempt, doc.TotalUnaffected, doc.TotalExport,
		doc.TotalIGV, doc.TotalISC, doc.TotalICBPER, doc.TotalOtherTaxes, doc.GlobalDiscount, doc.GrandTotal,
		doc.Status,
		payment, multiPayments, installments,
		nullIfEmpty(doc.AffectedDocumentID), doc.TotalWeight, nullIfEmpty(doc.Consignee),
		doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

// CreateDetail persiste una línea del comprobante.
func (r *DocumentRepo) CreateDetail(ctx context.Context, detail *entity.Detail) error {
	if detail.ID == "" {
		detail.ID = uuid.New().String()
	}
	query := `
		INSERT INTO document_details (
			id, document_id, product_code, description, quantity, unit_price,
			affectation_code, igv_percent, discount, isc, icbper, line_value, line_igv
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := r.q.Exec(ctx, query,
		detail.ID, detail.DocumentID, nullIfEmpty(detail.ProductCode), detail.Description,
		detail.Quantity, detail.UnitPrice, detail.AffectationCode, detail.IGVPercent,
		detail.Discount, detail.ISC, detail.ICBPER, detail.LineValue, detail.LineIGV,
	)
	if err != nil {
		return fmt.Errorf("insert document detail: %w", err)
	}
	return nil
}

// Update reescribe los campos mutables de la cabecera (solo PENDING/REJECTED).
func (r *DocumentRepo) Update(ctx context.Context, doc *entity.Document) error {
	payment, _ := json.Marshal(doc.Payment)
	multiPayments, _ := json.Marshal(doc.MultiPayments)
	installments, _ := json.Marshal(doc.Installments)

	query := `
		UPDATE documents SET
			client_id = $2, currency = $3, exchange_rate = $4,
			issue_date = $5, due_date = $6, operation_type = $7,
			total_taxed = $8, total_exempt = $9, total_unaffected = $10, total_export = $11,
			total_igv = $12, total_isc = $13, total_icbper = $14,
			total_other_taxes = $15, global_discount = $16, grand_total = $17,
			payment = $18, multi_payments = $19, installments = $20,
			updated_at = $21
		WHERE id = $1 AND status IN ('PENDING', 'REJECTED')`
	tag, err := r.q.Exec(ctx, query,
		doc.ID, nullIfEmpty(doc.ClientID), doc.Currency, doc.ExchangeRate,
		doc.IssueDate, doc.DueDate, nullIfEmpty(doc.OperationType),
		doc.TotalTaxed, doc.TotalExempt, doc.TotalUnaffected, doc.TotalExport,
		doc.TotalIGV, doc.TotalISC, doc.TotalICBPER,
		doc.TotalOtherTaxes, doc.GlobalDiscount, doc.GrandTotal,
		payment, multiPayments, installments,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrConflict
	}
	return nil
}

const documentColumns = `
	id, company_id, branch_id, kind, series, correlative, full_number,
	COALESCE(client_id, ''), currency, exchange_rate, issue_date, due_date, COALESCE(operation_type, ''),
	total_taxed, total_exempt, total_unaffected, total_export,
	total_igv, total_isc, total_icbper, total_other_taxes, global_discount, grand_total,
	status, COALESCE(sunat_response, ''), COALESCE(error_code, ''), COALESCE(cdr_hash, ''),
	COALESCE(xml_path, ''), COALESCE(cdr_path, ''), COALESCE(pdf_path, ''), send_attempts,
	voided, COALESCE(voided_document_id, ''), COALESCE(void_reason, ''), void_date,
	COALESCE(affected_document_id, ''), total_weight, COALESCE(consignee, ''),
	payment, multi_payments, installments,
	created_at, updated_at`

// GetByID obtiene la cabecera completa por ID.
func (r *DocumentRepo) GetByID(ctx context.Context, id string) (*entity.Document, error) {
	row := r.q.QueryRow(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = $1`, id)
	return scanDocument(row)
}

// GetByFullNumber busca por (empresa, tipo, serie, correlativo).
func (r *DocumentRepo) GetByFullNumber(ctx context.Context, companyID, kind, series, correlative string) (*entity.Document, error) {
	row := r.q.QueryRow(ctx,
		`SELECT `+documentColumns+` FROM documents
		 WHERE company_id = $1 AND kind = $2 AND series = $3 AND correlative = $4`,
		companyID, kind, series, correlative)
	return scanDocument(row)
}

// GetDetails obtiene las líneas del comprobante en orden de inserción.
func (r *DocumentRepo) GetDetails(ctx context.Context, documentID string) ([]*entity.Detail, error) {
	query := `
		SELECT id, document_id, COALESCE(product_code, ''), description, quantity, unit_price,
		       affectation_code, igv_percent, discount, isc, icbper, line_value, line_igv
		FROM document_details WHERE document_id = $1 ORDER BY id`
	rows, err := r.q.Query(ctx, query, documentID)
	if err != nil {
		return nil, fmt.Errorf("list document details: %w", err)
	}
	defer rows.Close()
	var list []*entity.Detail
	for rows.Next() {
		var d entity.Detail
		if err := rows.Scan(&d.ID, &d.DocumentID, &d.ProductCode, &d.Description, &d.Quantity,
			&d.UnitPrice, &d.AffectationCode, &d.IGVPercent, &d.Discount, &d.ISC, &d.ICBPER,
			&d.LineValue, &d.LineIGV); err != nil {
			return nil, fmt.Errorf("scan detail: %w", err)
		}
		list = append(list, &d)
	}
	return list, rows.Err()
}

// TransitionStatus ejecuta la transición condicionada from -> to.
func (r *DocumentRepo) TransitionStatus(ctx context.Context, id, from, to string) (bool, error) {
	tag, err := r.q.Exec(ctx,
		`UPDATE documents SET status = $3, updated_at = NOW() WHERE id = $1 AND status = $2`,
		id, from, to)
	if err != nil {
		return false, fmt.Errorf("transition %s->%s: %w", from, to, err)
	}
	return tag.RowsAffected() > 0, nil
}

// ClaimForSending toma un QUEUED, lo pasa a SENT e incrementa send_attempts
// en la misma sentencia. El RETURNING devuelve el número de intento actual.
func (r *DocumentRepo) ClaimForSending(ctx context.Context, id string) (bool, int, error) {
	var attempts int
	err := r.q.QueryRow(ctx,
		`UPDATE documents
		 SET status = 'SENT', send_attempts = send_attempts + 1, updated_at = NOW()
		 WHERE id = $1 AND status = 'QUEUED'
		 RETURNING send_attempts`,
		id).Scan(&attempts)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, 0, nil
		}
		return false, 0, fmt.Errorf("claim document: %w", err)
	}
	return true, attempts, nil
}

// FinalizeAccepted cierra SENT -> ACCEPTED con el hash del CDR.
func (r *DocumentRepo) FinalizeAccepted(ctx context.Context, id, cdrHash, response string) (bool, error) {
	tag, err := r.q.Exec(ctx,
		`UPDATE documents
		 SET status = 'ACCEPTED', cdr_hash = $2, sunat_response = $3, error_code = NULL, updated_at = NOW()
		 WHERE id = $1 AND status = 'SENT'`,
		id, nullIfEmpty(cdrHash), nullIfEmpty(response))
	if err != nil {
		return false, fmt.Errorf("finalize accepted: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// FinalizeRejected cierra SENT -> REJECTED con el código NNNN.
func (r *DocumentRepo) FinalizeRejected(ctx context.Context, id, errorCode, response string) (bool, error) {
	tag, err := r.q.Exec(ctx,
		`UPDATE documents
		 SET status = 'REJECTED', error_code = $2, sunat_response = $3, updated_at = NOW()
		 WHERE id = $1 AND status = 'SENT'`,
		id, nullIfEmpty(errorCode), nullIfEmpty(response))
	if err != nil {
		return false, fmt.Errorf("finalize rejected: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// FinalizeError cierra SENT -> ERROR al agotar reintentos.
func (r *DocumentRepo) FinalizeError(ctx context.Context, id, response string) (bool, error) {
	tag, err := r.q.Exec(ctx,
		`UPDATE documents
		 SET status = 'ERROR', sunat_response = $2, updated_at = NOW()
		 WHERE id = $1 AND status = 'SENT'`,
		id, nullIfEmpty(response))
	if err != nil {
		return false, fmt.Errorf("finalize error: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// MarkVoided fija voided=true con la referencia al batch de baja aceptado.
func (r *DocumentRepo) MarkVoided(ctx context.Context, id, voidedID, reason string, date time.Time) error {
	_, err := r.q.Exec(ctx,
		`UPDATE documents
		 SET voided = TRUE, voided_document_id = $2, void_reason = $3, void_date = $4, updated_at = NOW()
		 WHERE id = $1`,
		id, voidedID, reason, date)
	if err != nil {
		return fmt.Errorf("mark voided: %w", err)
	}
	return nil
}

// HasAcceptedNoteReferencing detecta notas de crédito/débito ACCEPTED que
// referencian al documento.
func (r *DocumentRepo) HasAcceptedNoteReferencing(ctx context.Context, documentID string) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM documents
			WHERE affected_document_id = $1 AND kind IN ('07', '08') AND status = 'ACCEPTED'
		)`, documentID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check referencing notes: %w", err)
	}
	return exists, nil
}

func scanDocument(row pgx.Row) (*entity.Document, error) {
	var doc entity.Document
	var payment, multiPayments, installments []byte
	err := row.Scan(
		&doc.ID, &doc.CompanyID, &doc.BranchID, &doc.Kind, &doc.Series, &doc.Correlative, &doc.FullNumber,
		&doc.ClientID, &doc.Currency, &doc.ExchangeRate, &doc.IssueDate, &doc.DueDate, &doc.OperationType,
		&doc.TotalTaxed, &doc.TotalExempt, &doc.TotalUnaffected, &doc.TotalExport,
		&doc.TotalIGV, &doc.TotalISC, &doc.TotalICBPER, &doc.TotalOtherTaxes, &doc.GlobalDiscount, &doc.GrandTotal,
		&doc.Status, &doc.SunatResponse, &doc.ErrorCode, &doc.CDRHash,
		&doc.XMLPath, &doc.CDRPath, &doc.PDFPath, &doc.SendAttempts,
		&doc.Voided, &doc.VoidedDocumentID, &doc.VoidReason, &doc.VoidDate,
		&doc.AffectedDocumentID, &doc.TotalWeight, &doc.Consignee,
		&payment, &multiPayments, &installments,
		&doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get document: %w", err)
	}
	if len(payment) > 0 && string(payment) != "null" {
		if err := json.Unmarshal(payment, &doc.Payment); err != nil {
			return nil, fmt.Errorf("unmarshal payment: %w", err)
		}
	}
	if len(multiPayments) > 0 && string(multiPayments) != "null" {
		if err := json.Unmarshal(multiPayments, &doc.MultiPayments); err != nil {
			return nil, fmt.Errorf("unmarshal multi_payments: %w", err)
		}
	}
	if len(installments) > 0 && string(installments) != "null" {
		if err := json.Unmarshal(installments, &doc.Installments); err != nil {
			return nil, fmt.Errorf("unmarshal installments: %w", err)
		}
	}
	return &doc, nil
}
