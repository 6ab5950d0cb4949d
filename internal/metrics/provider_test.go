package metrics_test

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/jhoicas/partsbin/internal/domain"
	"github.com/jhoicas/partsbin/internal/domain/entity"
	"github.com/jhoicas/partsbin/internal/domain/repository"
	"github.com/jhoicas/partsbin/internal/infrastructure/badger"
	"github.com/jhoicas/partsbin/internal/metrics"
	"github.com/jhoicas/partsbin/internal/storagetest"
	"github.com/jhoicas/partsbin/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newInstrumented(t *testing.T, reg prometheus.Registerer, log *logger.Logger) (*metrics.Provider, *metrics.Metrics) {
	t.Helper()
	inner, err := badger.NewMemoryProvider(context.Background(), logger.Nop())
	require.NoError(t, err)
	m, err := metrics.New(reg)
	require.NoError(t, err)
	p := metrics.Wrap(inner, m, log)
	t.Cleanup(func() { _ = p.Close() })
	return p, m
}

// El decorador no altera la semántica del contrato.
func TestProvider_Contrato(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) repository.StorageProvider {
		p, _ := newInstrumented(t, prometheus.NewRegistry(), nil)
		return p
	})
}

func TestProvider_CuentaPorResultado(t *testing.T) {
	p, m := newInstrumented(t, prometheus.NewRegistry(), nil)
	ctx := context.Background()
	u7 := entity.NewUserContext(7)

	added, err := p.AddPart(ctx, entity.NewPart("LM358"), u7)
	require.NoError(t, err)
	_, err = p.GetPart(ctx, added.PartID, u7)
	require.NoError(t, err)
	_, err = p.GetPart(ctx, added.PartID, entity.NewUserContext(8))
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = p.GetParts(ctx, entity.NewPage(0, 10), u7)
	assert.ErrorIs(t, err, domain.ErrValidation)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Operations.WithLabelValues("AddPart", metrics.ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Operations.WithLabelValues("GetPart", metrics.ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Operations.WithLabelValues("GetPart", metrics.ResultNotFound)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Operations.WithLabelValues("GetParts", metrics.ResultValidation)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Inflight.WithLabelValues("GetPart")), "no quedan operaciones en curso")
	assert.Equal(t, 3, testutil.CollectAndCount(m.Duration), "un histograma por operación observada")
}

func TestProvider_LogPorNivel(t *testing.T) {
	var buf bytes.Buffer
	log := logger.FromZerolog(zerolog.New(&buf).Level(zerolog.DebugLevel))
	p, _ := newInstrumented(t, prometheus.NewRegistry(), log)
	ctx := context.Background()

	_, err := p.GetPart(ctx, 999, nil)
	require.Error(t, err)
	out := buf.String()
	assert.Contains(t, out, `"level":"warn"`)
	assert.Contains(t, out, `"op":"GetPart"`)
	assert.Contains(t, out, `"user":"system"`)
	assert.Contains(t, out, `"result":"not_found"`)

	buf.Reset()
	_, err = p.GetPartsCount(ctx, entity.NewUserContext(3))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"level":"debug"`)
	assert.Contains(t, buf.String(), `"component":"storage"`)
}

func TestNew_ReutilizaColectoresRegistrados(t *testing.T) {
	reg := prometheus.NewRegistry()
	a, err := metrics.New(reg)
	require.NoError(t, err)
	b, err := metrics.New(reg)
	require.NoError(t, err)
	assert.Same(t, a.Operations, b.Operations)
	assert.Same(t, a.Duration, b.Duration)
}

func TestResult(t *testing.T) {
	cases := map[error]string{
		nil: metrics.ResultOK,
		fmt.Errorf("x: %w", domain.ErrNotFound):         metrics.ResultNotFound,
		fmt.Errorf("x: %w", domain.ErrConflict):         metrics.ResultConflict,
		fmt.Errorf("x: %w", domain.ErrValidation):       metrics.ResultValidation,
		fmt.Errorf("x: %w", domain.ErrScopeViolation):   metrics.ResultScope,
		fmt.Errorf("x: %w", context.Canceled):           metrics.ResultCanceled,
		fmt.Errorf("x: %w", context.DeadlineExceeded):   metrics.ResultCanceled,
		fmt.Errorf("x: %w", domain.ErrStoreUnavailable): metrics.ResultUnavailable,
		fmt.Errorf("x"): metrics.ResultError,
	}
	for err, want := range cases {
		assert.Equal(t, want, metrics.Result(err), "%v", err)
	}
}
