package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/jhoicas/partsbin/internal/domain/repository"
	"github.com/jhoicas/partsbin/internal/infrastructure/badger"
	"github.com/jhoicas/partsbin/internal/infrastructure/postgres"
	"github.com/jhoicas/partsbin/internal/metrics"
	"github.com/jhoicas/partsbin/pkg/config"
	"github.com/jhoicas/partsbin/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
)

// openProvider abre el backend configurado; ambos aplican sus migraciones al abrir.
func openProvider(ctx context.Context, cfg *config.Config, log *logger.Logger) (repository.StorageProvider, error) {
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		return postgres.Open(ctx, cfg.DB, log)
	case config.DriverBadger:
		return badger.Open(ctx, cfg.Badger, log)
	}
	return nil, fmt.Errorf("driver de almacenamiento desconocido: %q", cfg.Storage.Driver)
}

// storage abre (una sola vez) el proveedor, instrumentado si METRICS_ENABLED.
func (a *app) storage(ctx context.Context) (repository.StorageProvider, error) {
	if a.store != nil {
		return a.store, nil
	}
	p, err := openProvider(ctx, a.cfg, a.log)
	if err != nil {
		return nil, err
	}
	a.log.Debug().Str("driver", a.cfg.Storage.Driver).Msg("almacenamiento abierto")

	if !a.cfg.Metrics.Enabled {
		a.store = p
		return p, nil
	}
	a.registry = prometheus.NewRegistry()
	m, err := metrics.New(a.registry)
	if err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("registrar métricas: %w", err)
	}
	a.store = metrics.Wrap(p, m, a.log)
	return a.store, nil
}

// shutdown vuelca las métricas (si se pidió) y cierra el almacenamiento.
func (a *app) shutdown() error {
	var errs []error
	if a.metricsFile != "" && a.registry != nil {
		if err := prometheus.WriteToTextfile(a.metricsFile, a.registry); err != nil {
			errs = append(errs, fmt.Errorf("escribir métricas: %w", err))
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("cerrar almacenamiento: %w", err))
		}
		a.store = nil
	}
	return errors.Join(errs...)
}
