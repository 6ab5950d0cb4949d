package badger_test

import (
	"context"
	"os"
	"testing"

	"github.com/jhoicas/partsbin/internal/domain"
	"github.com/jhoicas/partsbin/internal/domain/entity"
	"github.com/jhoicas/partsbin/internal/domain/repository"
	"github.com/jhoicas/partsbin/internal/infrastructure/badger"
	"github.com/jhoicas/partsbin/internal/storagetest"
	"github.com/jhoicas/partsbin/pkg/config"
	"github.com/jhoicas/partsbin/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemory(t *testing.T) repository.StorageProvider {
	t.Helper()
	p, err := badger.NewMemoryProvider(context.Background(), logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func TestProvider_Contrato(t *testing.T) {
	storagetest.Run(t, newMemory)
}

// ──────────────────────────────────────────────────────────────────────────────
// Comportamiento propio del backend embebido
// ──────────────────────────────────────────────────────────────────────────────

func TestProvider_PersisteEntreAperturas(t *testing.T) {
	ctx := context.Background()
	cfg := config.BadgerConfig{Path: t.TempDir()}
	uc := entity.NewUserContext(7)

	p, err := badger.Open(ctx, cfg, logger.Nop())
	require.NoError(t, err)
	part := entity.NewPart("LM7805")
	part.Quantity = 4
	part.Cost = decimal.RequireFromString("0.35")
	added, err := p.AddPart(ctx, part, uc)
	require.NoError(t, err)
	pt, err := p.GetOrCreatePartType(ctx, &entity.PartType{Name: "Regulador"}, uc)
	require.NoError(t, err)
	require.NoError(t, p.Close())

	p, err = badger.Open(ctx, cfg, logger.Nop())
	require.NoError(t, err)
	defer p.Close()

	got, err := p.GetPart(ctx, added.PartID, uc)
	require.NoError(t, err)
	assert.Equal(t, "LM7805", got.PartNumber)
	assert.True(t, got.Cost.Equal(decimal.RequireFromString("0.35")))

	types, err := p.GetPartTypes(ctx, uc)
	require.NoError(t, err)
	assert.Len(t, types, int(entity.MaxDefaultPartTypeID)+1, "la taxonomía no se vuelve a sembrar")

	again, err := p.GetOrCreatePartType(ctx, &entity.PartType{Name: "regulador"}, uc)
	require.NoError(t, err)
	assert.Equal(t, pt.PartTypeID, again.PartTypeID)

	next, err := p.AddPart(ctx, entity.NewPart("LM7812"), uc)
	require.NoError(t, err)
	assert.Greater(t, next.PartID, added.PartID, "la secuencia continúa tras reabrir")

	res, err := p.Migrate(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.Seeded)
}

func TestProvider_ContextoCancelado(t *testing.T) {
	p := newMemory(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.GetParts(ctx, entity.NewPage(1, 10), nil)
	assert.ErrorIs(t, err, context.Canceled)
	_, err = p.AddPart(ctx, entity.NewPart("X"), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProvider_CerradoNoDisponible(t *testing.T) {
	p, err := badger.NewMemoryProvider(context.Background(), nil)
	require.NoError(t, err)
	require.NoError(t, p.Close())

	_, err = p.GetPartsCount(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
}

func TestOpenBackend_RutaQueNoEsDirectorio(t *testing.T) {
	file := t.TempDir() + "/archivo"
	b, err := badger.OpenBackend(config.BadgerConfig{Path: t.TempDir()}, nil)
	require.NoError(t, err)
	require.NoError(t, b.Close())
	assert.True(t, b.IsClosed())

	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))
	_, err = badger.OpenBackend(config.BadgerConfig{Path: file}, nil)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
}
