// Package metrics instrumenta un repository.StorageProvider con métricas Prometheus
// y log estructurado por operación.
package metrics

import (
	"context"
	"errors"

	"github.com/jhoicas/partsbin/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "partsbin"

// Resultados posibles de una operación (etiqueta "result").
const (
	ResultOK          = "ok"
	ResultNotFound    = "not_found"
	ResultConflict    = "conflict"
	ResultValidation  = "validation"
	ResultScope       = "scope_violation"
	ResultCanceled    = "canceled"
	ResultUnavailable = "unavailable"
	ResultError       = "error"
)

// Metrics colectores del proveedor de almacenamiento.
type Metrics struct {
	Operations *prometheus.CounterVec
	Duration   *prometheus.HistogramVec
	Inflight   *prometheus.GaugeVec
}

// New crea y registra los colectores. Con reg nil usa el registro por defecto.
// Si ya estaban registrados (otro proveedor en el mismo proceso) reutiliza los existentes.
func New(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	ops := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "storage",
		Name:      "operations_total",
		Help:      "Operaciones del proveedor de almacenamiento por resultado",
	}, []string{"op", "result"})

	dur := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "storage",
		Name:      "operation_duration_seconds",
		Help:      "Latencia de las operaciones del proveedor",
		Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"op"})

	inflight := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "storage",
		Name:      "inflight_operations",
		Help:      "Operaciones en curso por tipo",
	}, []string{"op"})

	m := &Metrics{}
	var err error
	if m.Operations, err = register(reg, ops); err != nil {
		return nil, err
	}
	if m.Duration, err = register(reg, dur); err != nil {
		return nil, err
	}
	if m.Inflight, err = register(reg, inflight); err != nil {
		return nil, err
	}
	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// Result clasifica un error de la taxonomía de dominio en la etiqueta "result".
func Result(err error) string {
	switch {
	case err == nil:
		return ResultOK
	case errors.Is(err, domain.ErrNotFound):
		return ResultNotFound
	case errors.Is(err, domain.ErrConflict):
		return ResultConflict
	case errors.Is(err, domain.ErrValidation):
		return ResultValidation
	case errors.Is(err, domain.ErrScopeViolation):
		return ResultScope
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ResultCanceled
	case errors.Is(err, domain.ErrStoreUnavailable):
		return ResultUnavailable
	default:
		return ResultError
	}
}
