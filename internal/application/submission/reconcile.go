package submission

import (
	"regexp"
	"strconv"
	"strings"
)

// Outcome clasifica la respuesta de SUNAT según el rango del código.
type Outcome int

const (
	// OutcomeAccepted código 0 en el CDR: comprobante aceptado.
	OutcomeAccepted Outcome = iota
	// OutcomeRetry códigos 0100–1999: error del sistema o del envío;
	// habilita reintento.
	OutcomeRetry
	// OutcomeRejected códigos 2000–3999: rechazo semántico del contribuyente;
	// terminal.
	OutcomeRejected
	// OutcomeObservation códigos >= 4000: aceptado con observaciones.
	OutcomeObservation
)

// faultCodeRe extrae el código NNNN del mensaje de fault SUNAT, que llega con
// el formato "NNNN - descripción" o como faultcode "soap-env:Client.NNNN".
var faultCodeRe = regexp.MustCompile(`(\d{4})`)

// faultMsgRe separa el prefijo "NNNN - " de la descripción del faultstring.
var faultMsgRe = regexp.MustCompile(`^(\d{4})\s*-\s*(.*)$`)

// ExtractFaultCode devuelve el código numérico de 4 dígitos embebido en el
// faultcode o faultstring de SUNAT, o cadena vacía si no hay ninguno.
func ExtractFaultCode(fault string) string {
	return faultCodeRe.FindString(fault)
}

// SplitFaultMessage separa "NNNN - descripción" en sus partes. Si el mensaje
// no trae prefijo numérico, devuelve código vacío y el mensaje entero.
func SplitFaultMessage(msg string) (code, description string) {
	msg = strings.TrimSpace(msg)
	if m := faultMsgRe.FindStringSubmatch(msg); m != nil {
		return m[1], strings.TrimSpace(m[2])
	}
	return "", msg
}

// Classify mapea un código SUNAT al resultado de la máquina de estados.
// Un código no numérico se trata como reintentable: ante la duda conviene
// reintentar antes que dar por rechazado un comprobante válido.
func Classify(code string) Outcome {
	if code == "" || code == "0" {
		return OutcomeAccepted
	}
	n, err := strconv.Atoi(code)
	if err != nil {
		return OutcomeRetry
	}
	switch {
	case n == 0:
		return OutcomeAccepted
	case n < 2000:
		return OutcomeRetry
	case n < 4000:
		return OutcomeRejected
	default:
		return OutcomeObservation
	}
}
