package postgres_test

import (
	"context"
	"os"
	"testing"

	"github.com/jhoicas/partsbin/internal/domain/entity"
	"github.com/jhoicas/partsbin/internal/domain/repository"
	"github.com/jhoicas/partsbin/internal/infrastructure/postgres"
	"github.com/jhoicas/partsbin/internal/storagetest"
	"github.com/jhoicas/partsbin/pkg/config"
	"github.com/jhoicas/partsbin/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testDatabaseURL base de datos desechable; sin ella las pruebas de integración se omiten.
const testDatabaseURL = "PARTSBIN_TEST_DATABASE_URL"

func openTestProvider(t *testing.T) *postgres.Provider {
	t.Helper()
	dsn := os.Getenv(testDatabaseURL)
	if dsn == "" {
		t.Skipf("%s no definido", testDatabaseURL)
	}
	ctx := context.Background()
	p, err := postgres.Open(ctx, config.DBConfig{DatabaseURL: dsn, MaxConns: 10}, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

// newEmpty vacía las tablas y vuelve a sembrar la taxonomía antes de cada caso.
func newEmpty(t *testing.T) repository.StorageProvider {
	t.Helper()
	p := openTestProvider(t)
	require.NoError(t, p.Reset(context.Background()))
	return p
}

func TestProvider_Contrato(t *testing.T) {
	storagetest.Run(t, newEmpty)
}

func TestMigrate_Idempotente(t *testing.T) {
	p := openTestProvider(t)
	ctx := context.Background()

	res, err := p.Migrate(ctx)
	require.NoError(t, err)
	assert.Empty(t, res.Applied, "todas las migraciones ya estaban aplicadas")
	assert.Zero(t, res.Seeded)

	types, err := p.GetPartTypes(ctx, nil)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(types), int(entity.MaxDefaultPartTypeID))
}
