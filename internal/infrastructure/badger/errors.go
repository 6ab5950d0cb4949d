package badger

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/jhoicas/partsbin/internal/domain"
)

// translate clasifica errores de badger en la taxonomía de dominio conservando la causa.
func translate(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case domain.IsClientError(err), errors.Is(err, domain.ErrStoreUnavailable),
		errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w", op, err)
	case errors.Is(err, badger.ErrKeyNotFound):
		return fmt.Errorf("%s: %w: %w", op, domain.ErrNotFound, err)
	case errors.Is(err, badger.ErrConflict):
		return fmt.Errorf("%s: %w: %w", op, domain.ErrConflict, err)
	case errors.Is(err, badger.ErrEmptyKey), errors.Is(err, badger.ErrInvalidKey):
		return fmt.Errorf("%s: %w: %w", op, domain.ErrValidation, err)
	}
	// Base cerrada, transacción demasiado grande, disco: falla del almacenamiento.
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStoreUnavailable, err)
}

func notFound(op string, what string, id any) error {
	return fmt.Errorf("%s: %w: %s %v", op, domain.ErrNotFound, what, id)
}
