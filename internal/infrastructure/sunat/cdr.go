package sunat

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/beevik/etree"
)

// CDR es la constancia de recepción (ApplicationResponse) ya parseada.
// Code "0" significa aceptado; 2000-3999 rechazo; 4000+ observaciones.
type CDR struct {
	Code        string
	Description string
	Notes       []string
	XML         []byte
	Hash        string // SHA-256 hex del R-*.xml
}

// ParseCDR descomprime el ZIP de respuesta y extrae código, descripción y
// observaciones del ApplicationResponse.
func ParseCDR(zipBytes []byte) (*CDR, error) {
	cdrXML, err := ExtractCDR(zipBytes)
	if err != nil {
		return nil, err
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(cdrXML); err != nil {
		return nil, fmt.Errorf("cdr: parsear ApplicationResponse: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("cdr: ApplicationResponse sin raíz")
	}

	response := root.FindElement("//DocumentResponse/Response")
	if response == nil {
		return nil, fmt.Errorf("cdr: ApplicationResponse sin cac:Response")
	}

	out := &CDR{XML: cdrXML}
	if el := response.FindElement("ResponseCode"); el != nil {
		out.Code = el.Text()
	}
	if el := response.FindElement("Description"); el != nil {
		out.Description = el.Text()
	}
	for _, note := range root.FindElements("//Note") {
		if t := note.Text(); t != "" {
			out.Notes = append(out.Notes, t)
		}
	}

	sum := sha256.Sum256(cdrXML)
	out.Hash = hex.EncodeToString(sum[:])
	return out, nil
}
