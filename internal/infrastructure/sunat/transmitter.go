package sunat

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tu-usuario/facturalo-pe/internal/application/submission"
	"github.com/tu-usuario/facturalo-pe/internal/application/voiding"
	"github.com/tu-usuario/facturalo-pe/internal/domain/entity"
	"github.com/tu-usuario/facturalo-pe/internal/domain/repository"
	"github.com/tu-usuario/facturalo-pe/internal/infrastructure/sunat/signer"
	"github.com/tu-usuario/facturalo-pe/pkg/logger"
)

// Transmitter resuelve la cadena completa hacia SUNAT: construir el XML UBL,
// firmarlo con el certificado del emisor, comprimirlo y entregarlo por SOAP,
// y parsear el CDR de la respuesta. Implementa los puertos de envío de
// comprobantes y de comunicaciones de baja.
//
// En entorno dev, y siempre para las notas de venta (tipo 80, documento
// interno sin efecto tributario), el envío se resuelve localmente con una
// aceptación simulada.
type Transmitter struct {
	env     string
	builder *XMLBuilder
	signer  *signer.Service
	soap    *SOAPClient
	docRepo repository.DocumentRepository
	log     *logger.Logger
}

var (
	_ submission.Transmitter     = (*Transmitter)(nil)
	_ voiding.SummaryTransmitter = (*Transmitter)(nil)
)

// NewTransmitter construye el transmisor para el entorno dado.
func NewTransmitter(env string, docRepo repository.DocumentRepository, log *logger.Logger) *Transmitter {
	return &Transmitter{
		env:     env,
		builder: NewXMLBuilder(),
		signer:  signer.NewService(),
		soap:    NewSOAPClient(env),
		docRepo: docRepo,
		log:     log,
	}
}

// SendBill transmite un comprobante y devuelve el resultado con el CDR.
// Un error devuelto es transitorio; el rechazo semántico llega en el result.
func (t *Transmitter) SendBill(ctx context.Context, company *entity.Company, doc *entity.Document, client *entity.Client) (*submission.BillResult, error) {
	signedXML, zipName, zipBytes, err := t.prepareDocument(ctx, company, doc, client)
	if err != nil {
		return nil, err
	}

	if doc.Kind == "80" || t.env == AppEnvDev {
		return t.simulateAccepted(doc, signedXML), nil
	}

	resp, raw, err := t.soap.SendBill(ctx, credentials(company), zipName, zipBytes)
	if err != nil {
		var fault *Fault
		if errors.As(err, &fault) {
			if result := t.resultFromFault(fault, raw); result != nil {
				return result, nil
			}
		}
		return nil, err
	}

	cdr, err := ParseCDR(resp.CDRZip)
	if err != nil {
		// CDR ilegible: tratar como transitorio, SUNAT lo reenvía al reintentar.
		return nil, fmt.Errorf("sunat: %w", err)
	}

	// Un código reintentable dentro del CDR se trata como fallo transitorio.
	if submission.Classify(cdr.Code) == submission.OutcomeRetry {
		return nil, fmt.Errorf("sunat: CDR con código reintentable %s: %s", cdr.Code, cdr.Description)
	}

	return &submission.BillResult{
		Accepted:    submission.Classify(cdr.Code) != submission.OutcomeRejected,
		Code:        cdr.Code,
		Description: cdr.Description,
		Notes:       cdr.Notes,
		CDR:         resp.CDRZip,
		CDRHash:     cdr.Hash,
		RawResponse: string(raw),
	}, nil
}

// SendSummary transmite la comunicación de baja y devuelve el ticket.
func (t *Transmitter) SendSummary(ctx context.Context, company *entity.Company, batch *entity.VoidedDocuments) (string, string, error) {
	xmlBytes, err := t.builder.BuildVoided(company, batch)
	if err != nil {
		return "", "", err
	}
	signedXML, err := t.sign(company, xmlBytes)
	if err != nil {
		return "", "", err
	}

	if t.env == AppEnvDev {
		return "DEV-" + batch.Identifier, `{"simulated":true}`, nil
	}

	xmlName, zipName := VoidedFilenames(company, batch)
	zipBytes, err := CompressXMLToZip(signedXML, xmlName)
	if err != nil {
		return "", "", err
	}

	resp, raw, err := t.soap.SendSummary(ctx, credentials(company), zipName, zipBytes)
	if err != nil {
		return "", string(raw), err
	}
	return resp.Ticket, string(raw), nil
}

// GetStatus consulta el ticket del batch de baja.
func (t *Transmitter) GetStatus(ctx context.Context, company *entity.Company, ticket string) (*voiding.TicketStatus, error) {
	if t.env == AppEnvDev {
		return &voiding.TicketStatus{
			Accepted:    true,
			Code:        "0",
			Description: "Comunicación de baja aceptada (simulada)",
			RawResponse: `{"simulated":true}`,
		}, nil
	}

	resp, raw, err := t.soap.GetStatus(ctx, credentials(company), ticket)
	if err != nil {
		return nil, err
	}

	// statusCode 98: SUNAT sigue procesando el batch.
	if resp.StatusCode == "98" {
		return &voiding.TicketStatus{Processing: true, RawResponse: string(raw)}, nil
	}

	st := &voiding.TicketStatus{RawResponse: string(raw)}
	if len(resp.CDRZip) > 0 {
		cdr, perr := ParseCDR(resp.CDRZip)
		if perr != nil {
			return nil, perr
		}
		st.Code = cdr.Code
		st.Description = cdr.Description
		st.CDRHash = cdr.Hash
		st.Accepted = submission.Classify(cdr.Code) == submission.OutcomeAccepted ||
			submission.Classify(cdr.Code) == submission.OutcomeObservation
		return st, nil
	}

	// Sin CDR: statusCode 99 sin contenido es rechazo plano.
	st.Code = resp.StatusCode
	st.Description = "ticket procesado sin CDR"
	st.Accepted = resp.StatusCode == "0"
	return st, nil
}

func credentials(company *entity.Company) Credentials {
	return Credentials{RUC: company.RUC, SOLUser: company.SOLUser, SOLPass: company.SOLPass}
}

// prepareDocument construye, firma y comprime el XML del comprobante.
func (t *Transmitter) prepareDocument(ctx context.Context, company *entity.Company, doc *entity.Document, client *entity.Client) (signedXML []byte, zipName string, zipBytes []byte, err error) {
	var affected *entity.Document
	if doc.AffectedDocumentID != "" {
		affected, err = t.docRepo.GetByID(ctx, doc.AffectedDocumentID)
		if err != nil {
			return nil, "", nil, fmt.Errorf("sunat: cargar documento afectado: %w", err)
		}
	}

	xmlBytes, err := t.builder.BuildDocument(company, doc, client, affected)
	if err != nil {
		return nil, "", nil, err
	}
	signedXML, err = t.sign(company, xmlBytes)
	if err != nil {
		return nil, "", nil, err
	}

	xmlName, zipName := DocumentFilenames(company, doc)
	zipBytes, err = CompressXMLToZip(signedXML, xmlName)
	if err != nil {
		return nil, "", nil, err
	}
	return signedXML, zipName, zipBytes, nil
}

// sign firma el XML con el certificado del emisor. En dev sin certificado
// configurado el XML va sin firmar; nunca sale al WS real.
func (t *Transmitter) sign(company *entity.Company, xmlBytes []byte) ([]byte, error) {
	if company.CertPath == "" {
		if t.env == AppEnvDev {
			return xmlBytes, nil
		}
		return nil, fmt.Errorf("sunat: el emisor %s no tiene certificado configurado", company.RUC)
	}
	cert, err := signer.Load(company.CertPath, company.CertPass)
	if err != nil {
		return nil, fmt.Errorf("sunat: cargar certificado: %w", err)
	}
	return t.signer.Sign(xmlBytes, cert)
}

// resultFromFault convierte un SOAP Fault en resultado de negocio solo si el
// código embebido corresponde a un rechazo semántico (2000-3999); para los
// demás devuelve nil y el pipeline trata el fault como transitorio.
func (t *Transmitter) resultFromFault(fault *Fault, raw []byte) *submission.BillResult {
	code := submission.ExtractFaultCode(fault.Code)
	if code == "" {
		code = submission.ExtractFaultCode(fault.Message)
	}
	if submission.Classify(code) != submission.OutcomeRejected {
		return nil
	}
	_, description := submission.SplitFaultMessage(fault.Message)
	if description == "" {
		description = fault.Message
	}
	return &submission.BillResult{
		Accepted:    false,
		Code:        code,
		Description: description,
		RawResponse: string(raw),
	}
}

// simulateAccepted resuelve localmente los envíos que no salen al WS: notas
// de venta y entorno dev.
func (t *Transmitter) simulateAccepted(doc *entity.Document, signedXML []byte) *submission.BillResult {
	sum := sha256.Sum256(signedXML)
	raw, _ := json.Marshal(map[string]string{
		"simulated":   "true",
		"full_number": doc.FullNumber,
	})
	t.log.Debug().Str("document_id", doc.ID).Msg("envío resuelto localmente")
	return &submission.BillResult{
		Accepted:    true,
		Code:        "0",
		Description: fmt.Sprintf("El comprobante %s ha sido aceptado", doc.FullNumber),
		CDRHash:     hex.EncodeToString(sum[:]),
		RawResponse: string(raw),
	}
}
