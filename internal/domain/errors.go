package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound      = errors.New("recurso no encontrado")
	ErrInvalidInput  = errors.New("entrada inválida")
	ErrDuplicate     = errors.New("recurso duplicado")
	ErrUnauthorized  = errors.New("no autorizado")
	ErrForbidden     = errors.New("acceso denegado")
	ErrConflict      = errors.New("conflicto con el estado actual")
	ErrRateLimited   = errors.New("límite de envíos por minuto alcanzado")
	ErrNotSubmitable = errors.New("el documento no está en un estado enviable")
)

// ValidationError agrupa TODOS los fallos de validación de un intake:
// campo -> lista de mensajes. Se responde como 422 con el detalle completo
// y nunca persiste estado parcial.
type ValidationError struct {
	Fields map[string][]string
}

// NewValidationError crea un acumulador de errores de validación vacío.
func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string][]string)}
}

// Add agrega un mensaje de error para un campo.
func (e *ValidationError) Add(field, message string) {
	e.Fields[field] = append(e.Fields[field], message)
}

// Merge incorpora los errores de otro ValidationError (puede ser nil).
func (e *ValidationError) Merge(other *ValidationError) {
	if other == nil {
		return
	}
	for field, msgs := range other.Fields {
		e.Fields[field] = append(e.Fields[field], msgs...)
	}
}

// HasErrors indica si se acumuló al menos un fallo.
func (e *ValidationError) HasErrors() bool {
	return len(e.Fields) > 0
}

// ErrOrNil devuelve el error solo si hay fallos acumulados.
func (e *ValidationError) ErrOrNil() error {
	if e.HasErrors() {
		return e
	}
	return nil
}

// Error implementa error con un resumen determinista (campos ordenados).
func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	var sb strings.Builder
	sb.WriteString("validación fallida:")
	for _, f := range fields {
		fmt.Fprintf(&sb, " %s=[%s]", f, strings.Join(e.Fields[f], "; "))
	}
	return sb.String()
}

// AsValidationError extrae un *ValidationError de la cadena de errores.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
