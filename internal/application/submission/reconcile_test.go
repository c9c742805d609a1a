package submission_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tu-usuario/facturalo-pe/internal/application/submission"
)

// Clasificación por rango del código SUNAT: 0 aceptado, 0100–1999 reintento,
// 2000–3999 rechazo terminal, >= 4000 observación.
func TestClassify(t *testing.T) {
	casos := []struct {
		code     string
		esperado submission.Outcome
	}{
		{"", submission.OutcomeAccepted},
		{"0", submission.OutcomeAccepted},
		{"0000", submission.OutcomeAccepted},
		{"0100", submission.OutcomeRetry},
		{"0156", submission.OutcomeRetry},
		{"1999", submission.OutcomeRetry},
		{"2000", submission.OutcomeRejected},
		{"2324", submission.OutcomeRejected},
		{"3999", submission.OutcomeRejected},
		{"4000", submission.OutcomeObservation},
		{"4332", submission.OutcomeObservation},
		// Código no numérico: ante la duda se reintenta.
		{"abc", submission.OutcomeRetry},
	}

	for _, c := range casos {
		assert.Equal(t, c.esperado, submission.Classify(c.code), "código %q", c.code)
	}
}

// El faultcode SUNAT suele llegar como "soap-env:Client.NNNN".
func TestExtractFaultCode(t *testing.T) {
	assert.Equal(t, "0156", submission.ExtractFaultCode("soap-env:Client.0156"))
	assert.Equal(t, "2324", submission.ExtractFaultCode("2324 - El comprobante fue registrado previamente"))
	assert.Equal(t, "", submission.ExtractFaultCode("Internal Server Error"))
}

func TestSplitFaultMessage(t *testing.T) {
	code, desc := submission.SplitFaultMessage("2324 - El comprobante fue registrado previamente con otros datos")
	assert.Equal(t, "2324", code)
	assert.Equal(t, "El comprobante fue registrado previamente con otros datos", desc)

	code, desc = submission.SplitFaultMessage("  0100-El sistema no puede responder su solicitud  ")
	assert.Equal(t, "0100", code)
	assert.Equal(t, "El sistema no puede responder su solicitud", desc)

	// Sin prefijo numérico devuelve el mensaje entero.
	code, desc = submission.SplitFaultMessage("conexión rechazada")
	assert.Equal(t, "", code)
	assert.Equal(t, "conexión rechazada", desc)
}
