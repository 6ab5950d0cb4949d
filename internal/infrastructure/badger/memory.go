package badger

import (
	"context"

	"github.com/jhoicas/partsbin/pkg/config"
	"github.com/jhoicas/partsbin/pkg/logger"
)

// NewMemoryProvider proveedor sobre una base solo en memoria, ya sembrada.
// Pensado para pruebas y para la CLI con BADGER_IN_MEMORY.
func NewMemoryProvider(ctx context.Context, log *logger.Logger) (*Provider, error) {
	return Open(ctx, config.BadgerConfig{InMemory: true}, log)
}
