package sunat_test

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tu-usuario/facturalo-pe/internal/domain/entity"
	"github.com/tu-usuario/facturalo-pe/internal/infrastructure/sunat"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

// zipCon arma un ZIP en memoria con las entradas (nombre, contenido) dadas.
func zipCon(t *testing.T, entradas map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range entradas {
		fw, err := zw.Create(name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func emisor() *entity.Company {
	return &entity.Company{RUC: "20123456789"}
}

// ──────────────────────────────────────────────────────────────────────────────
// Tests de nombres de archivo
// ──────────────────────────────────────────────────────────────────────────────

// SUNAT exige {RUC}-{TIPO}-{SERIE}-{CORRELATIVO} para comprobantes.
func TestDocumentFilenames(t *testing.T) {
	doc := &entity.Document{Kind: "01", Series: "F001", Correlative: "00000123"}
	xmlName, zipName := sunat.DocumentFilenames(emisor(), doc)

	assert.Equal(t, "20123456789-01-F001-00000123.xml", xmlName)
	assert.Equal(t, "20123456789-01-F001-00000123.zip", zipName)
}

// La comunicación de baja usa {RUC}-RA-YYYYMMDD-NNN.
func TestVoidedFilenames(t *testing.T) {
	batch := &entity.VoidedDocuments{Identifier: "RA-20260815-001"}
	xmlName, zipName := sunat.VoidedFilenames(emisor(), batch)

	assert.Equal(t, "20123456789-RA-20260815-001.xml", xmlName)
	assert.Equal(t, "20123456789-RA-20260815-001.zip", zipName)
}

// ──────────────────────────────────────────────────────────────────────────────
// Tests de empaquetado y extracción
// ──────────────────────────────────────────────────────────────────────────────

// El ZIP de ida contiene un único archivo con el nombre del comprobante.
func TestCompressXMLToZip_RoundTrip(t *testing.T) {
	contenido := []byte(`<?xml version="1.0"?><Invoice/>`)
	zipBytes, err := sunat.CompressXMLToZip(contenido, "20123456789-01-F001-00000123.xml")
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(zipBytes), int64(len(zipBytes)))
	require.NoError(t, err)
	require.Len(t, zr.File, 1)
	assert.Equal(t, "20123456789-01-F001-00000123.xml", zr.File[0].Name)

	rc, err := zr.File[0].Open()
	require.NoError(t, err)
	defer rc.Close()
	var out bytes.Buffer
	_, err = out.ReadFrom(rc)
	require.NoError(t, err)
	assert.Equal(t, contenido, out.Bytes())
}

// El CDR de respuesta es el R-*.xml dentro del ZIP; las demás entradas se
// ignoran.
func TestExtractCDR(t *testing.T) {
	zipBytes := zipCon(t, map[string]string{
		"dummy/":                             "",
		"R-20123456789-01-F001-00000123.xml": "<ApplicationResponse/>",
	})

	cdr, err := sunat.ExtractCDR(zipBytes)
	require.NoError(t, err)
	assert.Equal(t, "<ApplicationResponse/>", string(cdr))
}

func TestExtractCDR_SinApplicationResponse(t *testing.T) {
	zipBytes := zipCon(t, map[string]string{"otro.xml": "<x/>"})
	_, err := sunat.ExtractCDR(zipBytes)
	assert.Error(t, err)
}

func TestExtractCDR_ZipCorrupto(t *testing.T) {
	_, err := sunat.ExtractCDR([]byte("esto no es un zip"))
	assert.Error(t, err)
}

// ──────────────────────────────────────────────────────────────────────────────
// Tests ParseCDR
// ──────────────────────────────────────────────────────────────────────────────

const cdrAceptado = `<?xml version="1.0" encoding="UTF-8"?>
<ar:ApplicationResponse xmlns:ar="urn:oasis:names:specification:ubl:schema:xsd:ApplicationResponse-2"
  xmlns:cac="urn:oasis:names:specification:ubl:schema:xsd:CommonAggregateComponents-2"
  xmlns:cbc="urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2">
  <cac:DocumentResponse>
    <cac:Response>
      <cbc:ResponseCode>0</cbc:ResponseCode>
      <cbc:Description>La Factura numero F001-00000123, ha sido aceptada</cbc:Description>
    </cac:Response>
  </cac:DocumentResponse>
  <cbc:Note>4332 - El dato ingresado como atributo @listName es incorrecto</cbc:Note>
</ar:ApplicationResponse>`

func TestParseCDR_Aceptado(t *testing.T) {
	zipBytes := zipCon(t, map[string]string{"R-20123456789-01-F001-00000123.xml": cdrAceptado})

	cdr, err := sunat.ParseCDR(zipBytes)
	require.NoError(t, err)

	assert.Equal(t, "0", cdr.Code)
	assert.Contains(t, cdr.Description, "ha sido aceptada")
	require.Len(t, cdr.Notes, 1)
	assert.Contains(t, cdr.Notes[0], "4332")
	assert.Len(t, cdr.Hash, 64, "SHA-256 hex del ApplicationResponse")

	// El hash es reproducible sobre el mismo CDR.
	otra, err := sunat.ParseCDR(zipBytes)
	require.NoError(t, err)
	assert.Equal(t, cdr.Hash, otra.Hash)
}

func TestParseCDR_Rechazo(t *testing.T) {
	rechazo := `<?xml version="1.0"?>
<ar:ApplicationResponse xmlns:ar="urn:x" xmlns:cac="urn:y" xmlns:cbc="urn:z">
  <cac:DocumentResponse>
    <cac:Response>
      <cbc:ResponseCode>2324</cbc:ResponseCode>
      <cbc:Description>El comprobante fue registrado previamente con otros datos</cbc:Description>
    </cac:Response>
  </cac:DocumentResponse>
</ar:ApplicationResponse>`
	zipBytes := zipCon(t, map[string]string{"R-x.xml": rechazo})

	cdr, err := sunat.ParseCDR(zipBytes)
	require.NoError(t, err)
	assert.Equal(t, "2324", cdr.Code)
}

func TestParseCDR_SinResponse(t *testing.T) {
	zipBytes := zipCon(t, map[string]string{"R-x.xml": "<ApplicationResponse/>"})
	_, err := sunat.ParseCDR(zipBytes)
	assert.Error(t, err)
}
