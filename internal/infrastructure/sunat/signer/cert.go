// Carga de certificado del emisor desde .p12 (PKCS#12) o PEM.

package signer

import (
	"crypto/tls"
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/pkcs12"
)

// Load carga el certificado digital según la extensión del archivo. Los
// emisores suben .p12/.pfx de su CA; PEM se acepta para entornos de prueba.
func Load(path, password string) (tls.Certificate, error) {
	switch {
	case strings.HasSuffix(path, ".p12"), strings.HasSuffix(path, ".pfx"):
		return LoadFromP12(path, password)
	default:
		return LoadFromPEM(path)
	}
}

// LoadFromP12 carga certificado y llave privada desde un archivo .p12/.pfx.
// El password puede ser vacío si el archivo no está protegido.
func LoadFromP12(path, password string) (tls.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("leer p12: %w", err)
	}
	priv, cert, err := pkcs12.Decode(data, password)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("decodificar p12: %w", err)
	}
	// pkcs12.Decode devuelve solo el certificado hoja; suficiente para firmar.
	return tls.Certificate{
		Certificate: [][]byte{cert.Raw},
		PrivateKey:  priv,
		Leaf:        cert,
	}, nil
}

// LoadFromPEM carga certificado y llave desde un PEM combinado.
func LoadFromPEM(path string) (tls.Certificate, error) {
	cert, err := tls.LoadX509KeyPair(path, path)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("cargar PEM: %w", err)
	}
	return cert, nil
}
