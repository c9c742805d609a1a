package sunat

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/tu-usuario/facturalo-pe/internal/domain/entity"
)

// CompressXMLToZip empaqueta el XML firmado en un ZIP en memoria. SUNAT exige
// un ZIP con un único archivo cuyo nombre coincida con el del comprobante.
func CompressXMLToZip(xmlBytes []byte, xmlFilename string) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	fw, err := zw.Create(xmlFilename)
	if err != nil {
		return nil, fmt.Errorf("zip: crear entrada %s: %w", xmlFilename, err)
	}
	if _, err := fw.Write(xmlBytes); err != nil {
		return nil, fmt.Errorf("zip: escribir XML: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("zip: cerrar archivo: %w", err)
	}
	return buf.Bytes(), nil
}

// DocumentFilenames genera los nombres del XML y el ZIP del comprobante.
// Formato SUNAT: {RUC}-{TIPO}-{SERIE}-{CORRELATIVO}.
func DocumentFilenames(company *entity.Company, doc *entity.Document) (xmlName, zipName string) {
	base := fmt.Sprintf("%s-%s-%s-%s", company.RUC, doc.Kind, doc.Series, doc.Correlative)
	return base + ".xml", base + ".zip"
}

// VoidedFilenames genera los nombres del XML y el ZIP de la comunicación de
// baja. Formato: {RUC}-RA-YYYYMMDD-NNN (el identificador ya trae RA-...).
func VoidedFilenames(company *entity.Company, batch *entity.VoidedDocuments) (xmlName, zipName string) {
	base := fmt.Sprintf("%s-%s", company.RUC, batch.Identifier)
	return base + ".xml", base + ".zip"
}

// ExtractCDR descomprime el ZIP de respuesta y devuelve el contenido del
// R-*.xml (ApplicationResponse).
func ExtractCDR(zipBytes []byte) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(zipBytes), int64(len(zipBytes)))
	if err != nil {
		return nil, fmt.Errorf("cdr: abrir ZIP: %w", err)
	}
	for _, f := range zr.File {
		name := f.Name
		if !strings.HasSuffix(name, ".xml") || !strings.HasPrefix(strings.ToUpper(name), "R-") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("cdr: abrir %s: %w", name, err)
		}
		data, err := io.ReadAll(io.LimitReader(rc, 4<<20))
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("cdr: leer %s: %w", name, err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("cdr: el ZIP no contiene un R-*.xml")
}
