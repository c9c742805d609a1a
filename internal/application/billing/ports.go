package billing

import (
	"context"

	"github.com/tu-usuario/facturalo-pe/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción con el repositorio
// de documentos atado a la tx. Si fn retorna error se hace rollback: el
// intake nunca persiste estado parcial.
type TxRunner interface {
	RunDocument(ctx context.Context, fn func(docs repository.DocumentRepository) error) error
}

// SubmissionEnqueuer empuja un documento al carril de envío. La implementación
// concreta es la cola Redis; para tests se inyecta un fake.
type SubmissionEnqueuer interface {
	EnqueueSubmission(ctx context.Context, documentID string) error
}
