// seed_catalogs genera el script SQL para poblar las tablas de referencia
// SUNAT (medios de pago del catálogo 59 y motivos de baja) a partir del CSV
// oficial, que se distribuye en ISO-8859-1.
//
// Uso: go run ./cmd/seed_catalogs [ruta/medios_pago.csv]
// Por defecto busca medios_pago.csv en el directorio actual.
// Escribe: internal/infrastructure/postgres/migrations/002_seed_catalogs.sql
package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// paymentMethod fila del catálogo 59: código, descripción y qué datos exige
// la declaración del medio de pago.
type paymentMethod struct {
	code        string
	description string
	requiresOp  bool
	requiresBnk bool
	requiresDt  bool
}

// voidReasons motivos de baja habituales; SUNAT no publica catálogo cerrado,
// estos son los que acepta el texto libre de la comunicación.
var voidReasons = []struct{ code, description string }{
	{"01", "Error en el RUC del adquiriente"},
	{"02", "Error en la descripción de los ítems"},
	{"03", "Error en los montos"},
	{"04", "Duplicado de comprobante"},
	{"05", "Anulación de la operación"},
}

func main() {
	csvPath := "medios_pago.csv"
	if len(os.Args) > 1 {
		csvPath = os.Args[1]
	}
	f, err := os.Open(csvPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Abrir CSV: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	// El CSV oficial llega en ISO-8859-1 con ; como separador.
	r := csv.NewReader(transform.NewReader(f, charmap.ISO8859_1.NewDecoder()))
	r.Comma = ';'
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Leer CSV: %v\n", err)
		os.Exit(1)
	}

	var methods []paymentMethod
	for i, rec := range records {
		if i == 0 || len(rec) < 5 { // cabecera
			continue
		}
		code := strings.TrimSpace(rec[0])
		if code == "" {
			continue
		}
		methods = append(methods, paymentMethod{
			code:        code,
			description: strings.TrimSpace(rec[1]),
			requiresOp:  parseBool(rec[2]),
			requiresBnk: parseBool(rec[3]),
			requiresDt:  parseBool(rec[4]),
		})
	}
	if len(methods) == 0 {
		fmt.Fprintln(os.Stderr, "el CSV no contiene medios de pago")
		os.Exit(1)
	}

	moduleRoot := findModuleRoot()
	outPath := filepath.Join(moduleRoot, "internal", "infrastructure", "postgres", "migrations", "002_seed_catalogs.sql")
	out, err := os.Create(outPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Crear archivo: %v\n", err)
		os.Exit(1)
	}
	defer out.Close()

	out.WriteString("-- Tablas de referencia SUNAT\n")
	out.WriteString("-- Generado desde el CSV del catálogo 59 (medios de pago)\n\n")

	out.WriteString("-- 1. Medios de pago\n")
	out.WriteString("INSERT INTO payment_methods (code, description, requires_op_number, requires_bank, requires_date) VALUES\n")
	for i, m := range methods {
		sep := ","
		if i == len(methods)-1 {
			sep = ""
		}
		fmt.Fprintf(out, "  ('%s', '%s', %t, %t, %t)%s\n",
			m.code, escapeSQL(m.description), m.requiresOp, m.requiresBnk, m.requiresDt, sep)
	}
	out.WriteString("ON CONFLICT (code) DO UPDATE SET description = EXCLUDED.description,\n")
	out.WriteString("  requires_op_number = EXCLUDED.requires_op_number,\n")
	out.WriteString("  requires_bank = EXCLUDED.requires_bank,\n")
	out.WriteString("  requires_date = EXCLUDED.requires_date;\n\n")

	out.WriteString("-- 2. Motivos de baja\n")
	out.WriteString("INSERT INTO void_reasons (code, description) VALUES\n")
	for i, vr := range voidReasons {
		sep := ","
		if i == len(voidReasons)-1 {
			sep = ""
		}
		fmt.Fprintf(out, "  ('%s', '%s')%s\n", vr.code, escapeSQL(vr.description), sep)
	}
	out.WriteString("ON CONFLICT (code) DO UPDATE SET description = EXCLUDED.description;\n")

	fmt.Printf("Generado %s: %d medios de pago, %d motivos de baja\n", outPath, len(methods), len(voidReasons))
}

func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "1" || s == "si" || s == "sí" || s == "true"
}

func escapeSQL(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

func findModuleRoot() string {
	dir, _ := os.Getwd()
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return dir
		}
		dir = parent
	}
}
