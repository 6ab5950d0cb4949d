package postgres

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jhoicas/partsbin/internal/domain/entity"
	migrations "github.com/jhoicas/partsbin/migrations/postgres"
)

// Formato de archivo: {version}_{nombre}.sql (ej: 0001_init.sql)
var migrationFilePattern = regexp.MustCompile(`^(\d+)_(.+)\.sql$`)

// migrationLockID clave del advisory lock que serializa migraciones concurrentes.
const migrationLockID = 7_220_114

// Migration una migración individual.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// MigrationResult resultado de aplicar migraciones.
type MigrationResult struct {
	Applied  []int
	Skipped  []int
	Seeded   int // tipos de parte por defecto insertados
	Duration time.Duration
}

// ParseMigrations lee las migraciones embebidas ordenadas por versión.
func ParseMigrations(fsys fs.FS) ([]Migration, error) {
	var out []Migration
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		m := migrationFilePattern.FindStringSubmatch(path.Base(p))
		if m == nil {
			return nil
		}
		version, _ := strconv.Atoi(m[1])
		content, err := fs.ReadFile(fsys, p)
		if err != nil {
			return fmt.Errorf("reading %s: %w", p, err)
		}
		out = append(out, Migration{Version: version, Name: m[2], SQL: string(content)})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	for i := 1; i < len(out); i++ {
		if out[i].Version == out[i-1].Version {
			return nil, fmt.Errorf("migración %d duplicada", out[i].Version)
		}
	}
	return out, nil
}

// Migrate aplica las migraciones pendientes y siembra la taxonomía de tipos por defecto.
// Todo ocurre en una transacción bajo advisory lock; es seguro ejecutarlo en cada arranque.
func Migrate(ctx context.Context, pool *pgxpool.Pool) (*MigrationResult, error) {
	start := time.Now()
	result := &MigrationResult{}

	list, err := ParseMigrations(migrations.FS)
	if err != nil {
		return nil, fmt.Errorf("parsing migrations: %w", err)
	}

	err = pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, migrationLockID); err != nil {
			return translate("migration lock", err)
		}
		if _, err := tx.Exec(ctx, `
			CREATE TABLE IF NOT EXISTS schema_migrations (
				version    INT PRIMARY KEY,
				name       TEXT NOT NULL,
				applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
			)`); err != nil {
			return translate("creating migrations table", err)
		}

		applied, err := appliedVersions(ctx, tx)
		if err != nil {
			return err
		}
		for _, m := range list {
			if applied[m.Version] {
				result.Skipped = append(result.Skipped, m.Version)
				continue
			}
			if _, err := tx.Exec(ctx, m.SQL); err != nil {
				return translate(fmt.Sprintf("applying migration %d_%s", m.Version, m.Name), err)
			}
			if _, err := tx.Exec(ctx,
				`INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`, m.Version, m.Name); err != nil {
				return translate("recording migration", err)
			}
			result.Applied = append(result.Applied, m.Version)
		}

		seeded, err := seedDefaultPartTypes(ctx, tx)
		if err != nil {
			return err
		}
		result.Seeded = seeded
		return nil
	})
	result.Duration = time.Since(start)
	if err != nil {
		return result, err
	}
	return result, nil
}

func appliedVersions(ctx context.Context, q Querier) (map[int]bool, error) {
	rows, err := q.Query(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, translate("getting applied migrations", err)
	}
	versions, err := pgx.CollectRows(rows, pgx.RowTo[int])
	if err != nil {
		return nil, translate("getting applied migrations", err)
	}
	out := make(map[int]bool, len(versions))
	for _, v := range versions {
		out[v] = true
	}
	return out, nil
}

// seedDefaultPartTypes inserta los tipos globales 1..33 con id explícito y avanza la secuencia
// para que los tipos creados después no colisionen.
func seedDefaultPartTypes(ctx context.Context, q Querier) (int, error) {
	seeded := 0
	for _, t := range entity.DefaultPartTypes(entity.Now()) {
		tag, err := q.Exec(ctx, `
			INSERT INTO part_types (part_type_id, parent_part_type_id, name, name_key, user_id, date_created_utc)
			VALUES ($1, $2, $3, $4, NULL, $5)
			ON CONFLICT DO NOTHING`,
			t.PartTypeID, t.ParentPartTypeID, t.Name, entity.NameKey(t.Name), t.DateCreatedUTC)
		if err != nil {
			return seeded, translate("seed part type "+t.Name, err)
		}
		seeded += int(tag.RowsAffected())
	}
	_, err := q.Exec(ctx, `
		SELECT setval(pg_get_serial_sequence('part_types', 'part_type_id'),
		              GREATEST((SELECT COALESCE(MAX(part_type_id), 0) FROM part_types), $1))`,
		entity.MaxDefaultPartTypeID)
	if err != nil {
		return seeded, translate("reset part type sequence", err)
	}
	return seeded, nil
}

// Reset vacía todas las tablas del inventario, reinicia los ids y vuelve a sembrar la
// taxonomía. Destructivo: solo para bases desechables (pruebas de integración).
func (p *Provider) Reset(ctx context.Context) error {
	return pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			TRUNCATE stored_files, parts, projects, oauth_credentials, part_types
			RESTART IDENTITY CASCADE`); err != nil {
			return translate("reset", err)
		}
		_, err := seedDefaultPartTypes(ctx, tx)
		return err
	})
}
