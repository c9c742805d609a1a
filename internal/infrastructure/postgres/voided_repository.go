package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tu-usuario/facturalo-pe/internal/domain"
	"github.com/tu-usuario/facturalo-pe/internal/domain/entity"
	"github.com/tu-usuario/facturalo-pe/internal/domain/repository"
)

var _ repository.VoidedRepository = (*VoidedRepo)(nil)

// VoidedRepo implementación de VoidedRepository (usable con pool o tx).
type VoidedRepo struct {
	q Querier
}

// NewVoidedRepository construye el adaptador. Pasar pool o tx (Querier).
func NewVoidedRepository(q Querier) *VoidedRepo {
	return &VoidedRepo{q: q}
}

// Create persiste la comunicación de baja con sus referencias.
func (r *VoidedRepo) Create(ctx context.Context, batch *entity.VoidedDocuments) error {
	if batch.ID == "" {
		batch.ID = uuid.New().String()
	}
	query := `
		INSERT INTO voided_documents (id, company_id, identifier, reference_date, issue_date, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.q.Exec(ctx, query,
		batch.ID, batch.CompanyID, batch.Identifier, batch.ReferenceDate, batch.IssueDate,
		batch.Status, batch.CreatedAt, batch.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert voided batch: %w", err)
	}
	for i := range batch.Items {
		item := &batch.Items[i]
		if item.ID == "" {
			item.ID = uuid.New().String()
		}
		_, err := r.q.Exec(ctx,
			`INSERT INTO voided_items (id, voided_id, document_id, kind, series, correlative, reason)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			item.ID, batch.ID, nullIfEmpty(item.DocumentID), item.Kind, item.Series, item.Correlative, item.Reason,
		)
		if err != nil {
			return fmt.Errorf("insert voided item: %w", err)
		}
	}
	return nil
}

// GetByID obtiene la comunicación con sus referencias.
func (r *VoidedRepo) GetByID(ctx context.Context, id string) (*entity.VoidedDocuments, error) {
	query := `
		SELECT id, company_id, identifier, reference_date, issue_date, status,
		       COALESCE(ticket, ''), COALESCE(sunat_response, ''), COALESCE(cdr_hash, ''),
		       created_at, updated_at
		FROM voided_documents WHERE id = $1`
	var batch entity.VoidedDocuments
	err := r.q.QueryRow(ctx, query, id).Scan(
		&batch.ID, &batch.CompanyID, &batch.Identifier, &batch.ReferenceDate, &batch.IssueDate,
		&batch.Status, &batch.Ticket, &batch.SunatResponse, &batch.CDRHash,
		&batch.CreatedAt, &batch.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get voided batch: %w", err)
	}

	rows, err := r.q.Query(ctx,
		`SELECT id, voided_id, COALESCE(document_id, ''), kind, series, correlative, reason
		 FROM voided_items WHERE voided_id = $1 ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("list voided items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var item entity.VoidedItem
		if err := rows.Scan(&item.ID, &item.VoidedID, &item.DocumentID, &item.Kind,
			&item.Series, &item.Correlative, &item.Reason); err != nil {
			return nil, fmt.Errorf("scan voided item: %w", err)
		}
		batch.Items = append(batch.Items, item)
	}
	return &batch, rows.Err()
}

// NextSequence devuelve el siguiente NNN para RA-YYYYMMDD-NNN de la empresa.
// El identificador lleva la fecha de emisión de la comunicación, así que la
// secuencia se cuenta por día de emisión.
func (r *VoidedRepo) NextSequence(ctx context.Context, companyID string, date string) (int, error) {
	var count int
	err := r.q.QueryRow(ctx,
		`SELECT COUNT(*) FROM voided_documents
		 WHERE company_id = $1 AND identifier LIKE 'RA-' || $2 || '-%'`,
		companyID, date).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("next voided sequence: %w", err)
	}
	return count + 1, nil
}

// HasActiveRequestFor detecta solicitudes de baja vivas sobre el documento.
func (r *VoidedRepo) HasActiveRequestFor(ctx context.Context, documentID string) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM voided_items vi
			JOIN voided_documents vd ON vd.id = vi.voided_id
			WHERE vi.document_id = $1 AND vd.status IN ('PENDING', 'SENT', 'ACCEPTED')
		)`, documentID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check active void request: %w", err)
	}
	return exists, nil
}

// MarkSent guarda el ticket y transiciona PENDING -> SENT (condicionado).
func (r *VoidedRepo) MarkSent(ctx context.Context, id, ticket string) (bool, error) {
	tag, err := r.q.Exec(ctx,
		`UPDATE voided_documents
		 SET status = 'SENT', ticket = $2, updated_at = NOW()
		 WHERE id = $1 AND status = 'PENDING'`,
		id, ticket)
	if err != nil {
		return false, fmt.Errorf("mark voided sent: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// FinalizeAccepted cierra SENT -> ACCEPTED.
func (r *VoidedRepo) FinalizeAccepted(ctx context.Context, id, cdrHash, response string) (bool, error) {
	tag, err := r.q.Exec(ctx,
		`UPDATE voided_documents
		 SET status = 'ACCEPTED', cdr_hash = $2, sunat_response = $3, updated_at = NOW()
		 WHERE id = $1 AND status = 'SENT'`,
		id, nullIfEmpty(cdrHash), nullIfEmpty(response))
	if err != nil {
		return false, fmt.Errorf("finalize voided accepted: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// FinalizeRejected cierra SENT -> REJECTED; los comprobantes siguen vigentes.
func (r *VoidedRepo) FinalizeRejected(ctx context.Context, id, response string) (bool, error) {
	tag, err := r.q.Exec(ctx,
		`UPDATE voided_documents
		 SET status = 'REJECTED', sunat_response = $2, updated_at = NOW()
		 WHERE id = $1 AND status = 'SENT'`,
		id, nullIfEmpty(response))
	if err != nil {
		return false, fmt.Errorf("finalize voided rejected: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
