package domain

import "errors"

// Errores de dominio del contrato de almacenamiento (sin dependencias externas).
// Los backends traducen sus errores propios a esta taxonomía y los envuelven con %w,
// de modo que errors.Is funciona tanto contra el sentinel como contra la causa original.
var (
	ErrNotFound         = errors.New("recurso no encontrado")
	ErrConflict         = errors.New("conflicto con el estado actual")
	ErrValidation       = errors.New("validación fallida")
	ErrScopeViolation   = errors.New("el recurso pertenece a otro usuario")
	ErrStoreUnavailable = errors.New("almacenamiento no disponible")
)

// IsClientError indica si el error es atribuible a la petición del llamador
// (no encontrado, conflicto, validación o ámbito) y no a una falla del almacenamiento.
func IsClientError(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrScopeViolation)
}
