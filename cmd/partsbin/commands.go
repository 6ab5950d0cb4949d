package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jhoicas/partsbin/internal/application/dto"
	"github.com/jhoicas/partsbin/internal/application/inventory"
	"github.com/jhoicas/partsbin/internal/domain/query"
	"github.com/jhoicas/partsbin/internal/infrastructure/badger"
	"github.com/jhoicas/partsbin/internal/infrastructure/postgres"
	"github.com/jhoicas/partsbin/pkg/config"
	"github.com/spf13/cobra"
)

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Aplica migraciones pendientes y siembra la taxonomía de tipos",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			w := cmd.OutOrStdout()
			switch a.cfg.Storage.Driver {
			case config.DriverPostgres:
				pool, err := postgres.NewPool(ctx, a.cfg.DB)
				if err != nil {
					return err
				}
				defer pool.Close()
				res, err := postgres.Migrate(ctx, pool)
				if err != nil {
					return err
				}
				return a.emit(w, res, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "aplicadas: %v, omitidas: %d, tipos sembrados: %d (%s)\n",
						res.Applied, len(res.Skipped), res.Seeded, res.Duration)
					return err
				})
			default:
				p, err := badger.Open(ctx, a.cfg.Badger, a.log)
				if err != nil {
					return err
				}
				defer p.Close()
				res, err := p.Migrate(ctx)
				if err != nil {
					return err
				}
				return a.emit(w, res, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "almacén %s al día\n", a.cfg.Badger.Path)
					return err
				})
			}
		},
	}
}

func newSeedCmd(a *app) *cobra.Command {
	var file, format, charset string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Importa un catálogo de partes (csv) o una exportación previa (json|yaml)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				return fmt.Errorf("--file es requerido")
			}
			if format == "" {
				format = strings.TrimPrefix(strings.ToLower(filepath.Ext(file)), ".")
			}
			f, err := inventory.ParseFormat(format)
			if err != nil {
				return err
			}
			in, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("abrir %s: %w", file, err)
			}
			defer in.Close()

			store, err := a.storage(cmd.Context())
			if err != nil {
				return err
			}
			rep, err := inventory.NewImportUseCase(store).Import(cmd.Context(), a.caller(),
				inventory.ImportOptions{Format: f, Charset: charset}, in)
			if rep != nil {
				a.log.Info().Int("parts_created", rep.PartsCreated).Int("parts_updated", rep.PartsUpdated).
					Int("projects_created", rep.ProjectsCreated).Int("skipped", rep.Skipped).Msg("importación")
			}
			if err != nil {
				return err
			}
			return a.emit(cmd.OutOrStdout(), rep, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "tipos: %d, proyectos nuevos: %d, partes nuevas: %d, actualizadas: %d, archivos: %d, omitidas: %d\n",
					rep.PartTypes, rep.ProjectsCreated, rep.PartsCreated, rep.PartsUpdated, rep.FilesCreated, rep.Skipped)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "Archivo a importar")
	cmd.Flags().StringVar(&format, "format", "", "csv|json|yaml (por defecto según la extensión)")
	cmd.Flags().StringVar(&charset, "charset", "utf-8", "Codificación del CSV: utf-8|latin1|windows-1252")
	return cmd
}

func newStatsCmd(a *app) *cobra.Command {
	var top int
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Resumen del inventario y lista de reposición",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.storage(cmd.Context())
			if err != nil {
				return err
			}
			sum, err := inventory.NewSummaryUseCase(store).GetSummary(cmd.Context(), a.caller(), top)
			if err != nil {
				return err
			}
			return a.emit(cmd.OutOrStdout(), sum, func(w io.Writer) error { return printSummary(w, sum) })
		},
	}
	cmd.Flags().IntVar(&top, "top", inventory.DefaultTopLowStock, "Partes críticas a listar")
	return cmd
}

func newLowStockCmd(a *app) *cobra.Command {
	page := dto.PageRequest{}
	cmd := &cobra.Command{
		Use:   "lowstock",
		Short: "Partes por debajo de su umbral, las más críticas primero",
		RunE: func(cmd *cobra.Command, args []string) error {
			page.DefaultPage()
			store, err := a.storage(cmd.Context())
			if err != nil {
				return err
			}
			res, err := store.GetLowStock(cmd.Context(), page.ToEntity(), a.caller())
			if err != nil {
				return err
			}
			return a.emit(cmd.OutOrStdout(), res, func(w io.Writer) error {
				fmt.Fprintf(w, "%d partes bajo umbral (página %d)\n", res.TotalItems, page.Page)
				return printReplenishment(w, renumber(inventory.Replenishment(res.Items), page))
			})
		},
	}
	cmd.Flags().IntVar(&page.Page, "page", 1, "Página (base 1)")
	cmd.Flags().IntVar(&page.Results, "results", 20, "Resultados por página")
	return cmd
}

// renumber ajusta la prioridad al desplazamiento de la página.
func renumber(items []dto.ReplenishmentSuggestionDTO, page dto.PageRequest) []dto.ReplenishmentSuggestionDTO {
	offset := page.ToEntity().Offset()
	for i := range items {
		items[i].Priority += offset
	}
	return items
}

func newSearchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "search <palabras...>",
		Short: "Busca partes por palabras clave, ordenadas por relevancia",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.storage(cmd.Context())
			if err != nil {
				return err
			}
			res, err := store.FindParts(cmd.Context(), strings.Join(args, " "), a.caller())
			if err != nil {
				return err
			}
			return a.emit(cmd.OutOrStdout(), res, func(w io.Writer) error { return printSearch(w, res) })
		},
	}
}

func newQueryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "query <predicado-json>",
		Short: `Filtra partes con un predicado, ej. '{"op":"lt","field":"Quantity","value":5}'`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			expr, err := query.Parse([]byte(args[0]))
			if err != nil {
				return err
			}
			store, err := a.storage(cmd.Context())
			if err != nil {
				return err
			}
			parts, err := store.GetPartsMatching(cmd.Context(), expr, a.caller())
			if err != nil {
				return err
			}
			return a.emit(cmd.OutOrStdout(), parts, func(w io.Writer) error { return printParts(w, parts) })
		},
	}
}

func newExportCmd(a *app) *cobra.Command {
	var format, output string
	var secrets bool
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Exporta la instantánea visible para el usuario (json|yaml)",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := inventory.ParseFormat(format)
			if err != nil {
				return err
			}
			if f == inventory.FormatCSV {
				return fmt.Errorf("export: csv solo se admite para importar")
			}
			store, err := a.storage(cmd.Context())
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if output != "" && output != "-" {
				file, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("crear %s: %w", output, err)
				}
				defer file.Close()
				w = file
			}
			opts := inventory.ExportOptions{Format: f, IncludeSecrets: secrets}
			if err := inventory.NewExportUseCase(store).Export(cmd.Context(), a.caller(), opts, w); err != nil {
				return err
			}
			a.log.Info().Str("format", string(f)).Str("output", output).Msg("exportación completa")
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "json", "json|yaml")
	cmd.Flags().StringVar(&output, "output", "", "Archivo de salida (por defecto stdout)")
	cmd.Flags().BoolVar(&secrets, "include-secrets", false, "Incluye los tokens OAuth en claro")
	return cmd
}
