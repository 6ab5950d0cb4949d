// partsbin CLI de mantenimiento del inventario de componentes.
//
// Uso:
//
//	partsbin migrate
//	partsbin seed --file catalogo.csv --charset latin1 --user 7
//	partsbin stats --user 7 --out json
//	partsbin lowstock --results 20
//	partsbin search "lm358 dual"
//	partsbin query '{"op":"lt","field":"Quantity","value":5}'
//	partsbin export --format yaml --output respaldo.yaml
//
// El backend se elige con STORAGE_DRIVER (postgres | badger); ver pkg/config.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jhoicas/partsbin/internal/domain/entity"
	"github.com/jhoicas/partsbin/internal/domain/repository"
	"github.com/jhoicas/partsbin/pkg/config"
	"github.com/jhoicas/partsbin/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// app estado compartido por los subcomandos.
type app struct {
	cfg *config.Config
	log *logger.Logger

	userID      int
	out         string
	metricsFile string

	store    repository.StorageProvider
	registry *prometheus.Registry
}

// caller contexto de usuario según --user (negativo = sistema).
func (a *app) caller() *entity.UserContext {
	if a.userID < 0 {
		return nil
	}
	return entity.NewUserContext(a.userID)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{}
	err := newRootCmd(a).ExecuteContext(ctx)
	if cerr := a.shutdown(); err == nil {
		err = cerr
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		stop()
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "partsbin",
		Short:         "Inventario de componentes electrónicos (mantenimiento y reportes)",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("cargar configuración: %w", err)
			}
			a.cfg = cfg
			a.log = logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.Log.Level})
			switch a.out {
			case outText, outJSON, outYAML:
			default:
				return fmt.Errorf("--out inválido: %q (text | json | yaml)", a.out)
			}
			return nil
		},
	}

	root.PersistentFlags().IntVar(&a.userID, "user", -1, "UserId del llamador (negativo = sistema)")
	root.PersistentFlags().StringVar(&a.out, "out", outText, "Formato de salida: text|json|yaml")
	root.PersistentFlags().StringVar(&a.metricsFile, "metrics-file", "", "Escribe las métricas Prometheus en este archivo al terminar (formato textfile)")

	root.AddCommand(
		newMigrateCmd(a),
		newSeedCmd(a),
		newStatsCmd(a),
		newLowStockCmd(a),
		newSearchCmd(a),
		newQueryCmd(a),
		newExportCmd(a),
	)
	return root
}
