package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound            = errors.New("recurso no encontrado")
	ErrInvalidInput        = errors.New("entrada inválida")
	ErrDuplicate           = errors.New("recurso duplicado")
	ErrUnauthorized        = errors.New("no autorizado")
	ErrForbidden           = errors.New("acceso denegado")
	ErrConcurrencyConflict = errors.New("conflicto de concurrencia, reintente la operación")
	ErrSequenceExhausted   = errors.New("numeración de salidas agotada para el año")
)

// FieldError describe un error de validación sobre un campo concreto.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError agrupa los errores de validación de una petición.
// Nada se persiste cuando se devuelve.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validación: %s: %s", e.Errors[0].Field, e.Errors[0].Message)
	}
	parts := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		parts = append(parts, fe.Field)
	}
	return fmt.Sprintf("validación: %d errores (%s)", len(e.Errors), strings.Join(parts, ", "))
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// Add registra un error de campo.
func (e *ValidationError) Add(field, message string) {
	e.Errors = append(e.Errors, FieldError{Field: field, Message: message})
}

// OrNil devuelve nil si no se registró ningún error.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Errors) == 0 {
		return nil
	}
	return e
}

// NewValidationError crea un ValidationError de un solo campo.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Errors: []FieldError{{Field: field, Message: message}}}
}

// DuplicateMovementError indica que una línea ya tiene movimiento bajo el mismo albarán.
// Se informa por línea; el resto del lote continúa.
type DuplicateMovementError struct {
	CatalogCode  string `json:"catalog_code"`
	SerialNumber string `json:"serial_number"`
	DocumentID   string `json:"document_id"`
}

func (e *DuplicateMovementError) Error() string {
	return fmt.Sprintf("movimiento duplicado: %s/%s en albarán %s", e.CatalogCode, e.SerialNumber, e.DocumentID)
}

func (e *DuplicateMovementError) Unwrap() error { return ErrDuplicate }
