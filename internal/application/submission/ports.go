package submission

import (
	"context"
	"time"

	"github.com/tu-usuario/facturalo-pe/internal/domain/entity"
)

// BillResult es el resultado de un sendBill con CDR incluido en la respuesta.
type BillResult struct {
	Accepted    bool
	Code        string // código NNNN del CDR (0 = aceptado)
	Description string
	Notes       []string // observaciones de documentos aceptados con reparos
	CDR         []byte   // ZIP del ApplicationResponse tal como llegó
	CDRHash     string   // SHA-256 hex del CDR
	RawResponse string   // payload opaco para auditoría
}

// Transmitter es el puerto hacia el WS SUNAT. La implementación resuelve la
// cadena completa XML → firma → ZIP → SOAP → parseo de CDR; un error devuelto
// es siempre transitorio (red, timeout, 5xx del WS) y habilita reintento. El
// rechazo semántico llega como BillResult.Accepted = false, sin error.
type Transmitter interface {
	SendBill(ctx context.Context, company *entity.Company, doc *entity.Document, client *entity.Client) (*BillResult, error)
}

// DelayedEnqueuer re-encola un envío para ejecutarse después del delay.
type DelayedEnqueuer interface {
	EnqueueSubmission(ctx context.Context, documentID string) error
	EnqueueSubmissionDelayed(ctx context.Context, documentID string, delay time.Duration) error
}
