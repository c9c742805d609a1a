package sunat

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	soapNS         = "http://schemas.xmlsoap.org/soap/envelope/"
	soapNSService  = "http://service.sunat.gob.pe"
	wsseNS         = "http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-wssecurity-secext-1.0.xsd"
	passwordTextTy = "http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-username-token-profile-1.0#PasswordText"
)

// Credentials son las credenciales SOL del emisor para el WS. El usuario del
// UsernameToken es RUC concatenado con el usuario secundario SOL.
type Credentials struct {
	RUC     string
	SOLUser string
	SOLPass string
}

func (c Credentials) username() string {
	return c.RUC + c.SOLUser
}

// BillResponse es la respuesta de sendBill: el CDR comprimido, o un fault.
type BillResponse struct {
	CDRZip []byte // applicationResponse descomprimible (R-*.xml)
}

// SummaryResponse es la respuesta de sendSummary: el ticket de seguimiento.
type SummaryResponse struct {
	Ticket string
}

// StatusResponse es la respuesta de getStatus para un ticket.
type StatusResponse struct {
	StatusCode string // 0 = procesado con CDR, 98 = en proceso, 99 = procesado con errores
	CDRZip     []byte
}

// Fault es un SOAP Fault del WS SUNAT; el faultcode suele traer el código
// numérico de error del catálogo de SUNAT.
type Fault struct {
	Code    string
	Message string
}

func (f *Fault) Error() string {
	return fmt.Sprintf("sunat fault [%s]: %s", f.Code, f.Message)
}

// SOAPClient habla con el billService de SUNAT. Usa net/http de la stdlib,
// el envelope se arma con encoding/xml.
type SOAPClient struct {
	endpoint   string
	httpClient *http.Client
}

// NewSOAPClient construye el cliente para el entorno dado. El WS de SUNAT
// puede tardar varios segundos, de ahí el timeout generoso.
func NewSOAPClient(env string) *SOAPClient {
	endpoint := billServiceBeta
	if env == AppEnvProd {
		endpoint = billServiceProd
	}
	return &SOAPClient{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// ── Estructuras SOAP ─────────────────────────────────────────────────────────

type soapEnvelope struct {
	XMLName  xml.Name   `xml:"soapenv:Envelope"`
	XmlnsEnv string     `xml:"xmlns:soapenv,attr"`
	XmlnsSer string     `xml:"xmlns:ser,attr"`
	XmlnsWss string     `xml:"xmlns:wsse,attr"`
	Header   soapHeader `xml:"soapenv:Header"`
	Body     soapBody   `xml:"soapenv:Body"`
}

type soapHeader struct {
	Security wsseSecurity `xml:"wsse:Security"`
}

type wsseSecurity struct {
	UsernameToken wsseUsernameToken `xml:"wsse:UsernameToken"`
}

type wsseUsernameToken struct {
	Username string       `xml:"wsse:Username"`
	Password wssePassword `xml:"wsse:Password"`
}

type wssePassword struct {
	Type  string `xml:"Type,attr"`
	Value string `xml:",chardata"`
}

type soapBody struct {
	Content interface{}
}

func (b soapBody) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start.Name.Local = "soapenv:Body"
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	if err := e.Encode(b.Content); err != nil {
		return err
	}
	return e.EncodeToken(start.End())
}

type sendBillBody struct {
	XMLName     xml.Name `xml:"ser:sendBill"`
	FileName    string   `xml:"fileName"`
	ContentFile string   `xml:"contentFile"` // ZIP en Base64
}

type sendSummaryBody struct {
	XMLName     xml.Name `xml:"ser:sendSummary"`
	FileName    string   `xml:"fileName"`
	ContentFile string   `xml:"contentFile"`
}

type getStatusBody struct {
	XMLName xml.Name `xml:"ser:getStatus"`
	Ticket  string   `xml:"ticket"`
}

type responseEnvelope struct {
	Body responseBody `xml:"Body"`
}

type responseBody struct {
	SendBill    *sendBillResponse    `xml:"sendBillResponse"`
	SendSummary *sendSummaryResponse `xml:"sendSummaryResponse"`
	GetStatus   *getStatusResponse   `xml:"getStatusResponse"`
	Fault       *soapFault           `xml:"Fault"`
}

type sendBillResponse struct {
	ApplicationResponse string `xml:"applicationResponse"`
}

type sendSummaryResponse struct {
	Ticket string `xml:"ticket"`
}

type getStatusResponse struct {
	Status struct {
		StatusCode string `xml:"statusCode"`
		Content    string `xml:"content"`
	} `xml:"status"`
}

type soapFault struct {
	FaultCode   string `xml:"faultcode"`
	FaultString string `xml:"faultstring"`
}

// ── Operaciones ──────────────────────────────────────────────────────────────

// SendBill envía el ZIP del comprobante y devuelve el CDR (síncrono).
func (c *SOAPClient) SendBill(ctx context.Context, creds Credentials, zipName string, zipBytes []byte) (*BillResponse, []byte, error) {
	body := &sendBillBody{
		FileName:    zipName,
		ContentFile: base64.StdEncoding.EncodeToString(zipBytes),
	}
	raw, respBody, err := c.call(ctx, creds, "urn:sendBill", body)
	if err != nil {
		return nil, raw, err
	}
	if respBody.SendBill == nil {
		return nil, raw, fmt.Errorf("sunat: respuesta sendBill vacía")
	}
	cdrZip, err := base64.StdEncoding.DecodeString(respBody.SendBill.ApplicationResponse)
	if err != nil {
		return nil, raw, fmt.Errorf("sunat: applicationResponse no es Base64: %w", err)
	}
	return &BillResponse{CDRZip: cdrZip}, raw, nil
}

// SendSummary envía el ZIP del resumen (comunicación de baja) y devuelve el
// ticket para consultar el resultado con GetStatus.
func (c *SOAPClient) SendSummary(ctx context.Context, creds Credentials, zipName string, zipBytes []byte) (*SummaryResponse, []byte, error) {
	body := &sendSummaryBody{
		FileName:    zipName,
		ContentFile: base64.StdEncoding.EncodeToString(zipBytes),
	}
	raw, respBody, err := c.call(ctx, creds, "urn:sendSummary", body)
	if err != nil {
		return nil, raw, err
	}
	if respBody.SendSummary == nil || respBody.SendSummary.Ticket == "" {
		return nil, raw, fmt.Errorf("sunat: sendSummary no devolvió ticket")
	}
	return &SummaryResponse{Ticket: respBody.SendSummary.Ticket}, raw, nil
}

// GetStatus consulta el estado de un ticket de sendSummary.
func (c *SOAPClient) GetStatus(ctx context.Context, creds Credentials, ticket string) (*StatusResponse, []byte, error) {
	raw, respBody, err := c.call(ctx, creds, "urn:getStatus", &getStatusBody{Ticket: ticket})
	if err != nil {
		return nil, raw, err
	}
	if respBody.GetStatus == nil {
		return nil, raw, fmt.Errorf("sunat: respuesta getStatus vacía")
	}
	st := respBody.GetStatus.Status
	out := &StatusResponse{StatusCode: st.StatusCode}
	if st.Content != "" {
		cdrZip, decErr := base64.StdEncoding.DecodeString(st.Content)
		if decErr != nil {
			return nil, raw, fmt.Errorf("sunat: content del ticket no es Base64: %w", decErr)
		}
		out.CDRZip = cdrZip
	}
	return out, raw, nil
}

// call serializa el envelope, ejecuta el POST y desempaqueta la respuesta.
// Un SOAP Fault se devuelve como *Fault para que el caller lo clasifique.
func (c *SOAPClient) call(ctx context.Context, creds Credentials, action string, content interface{}) ([]byte, *responseBody, error) {
	envelope := soapEnvelope{
		XmlnsEnv: soapNS,
		XmlnsSer: soapNSService,
		XmlnsWss: wsseNS,
		Header: soapHeader{
			Security: wsseSecurity{
				UsernameToken: wsseUsernameToken{
					Username: creds.username(),
					Password: wssePassword{Type: passwordTextTy, Value: creds.SOLPass},
				},
			},
		},
		Body: soapBody{Content: content},
	}

	payload, err := xml.Marshal(envelope)
	if err != nil {
		return nil, nil, fmt.Errorf("sunat: serializar envelope: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, nil, fmt.Errorf("sunat: crear request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", action)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("sunat: llamada HTTP fallida: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, nil, fmt.Errorf("sunat: leer respuesta: %w", err)
	}

	var envResp responseEnvelope
	if err := xml.Unmarshal(raw, &envResp); err != nil {
		return raw, nil, fmt.Errorf("sunat: parsear respuesta SOAP: %w", err)
	}
	if f := envResp.Body.Fault; f != nil {
		return raw, nil, &Fault{Code: f.FaultCode, Message: f.FaultString}
	}
	return raw, &envResp.Body, nil
}
