package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repos conjunto de repositorios atados a un mismo Querier (pool o tx).
type Repos struct {
	Parts       *PartRepo
	Projects    *ProjectRepo
	PartTypes   *PartTypeRepo
	StoredFiles *StoredFileRepo
	OAuth       *OAuthRepo
}

// NewRepos construye todos los repositorios sobre el Querier dado.
func NewRepos(q Querier) Repos {
	return Repos{
		Parts:       NewPartRepository(q),
		Projects:    NewProjectRepository(q),
		PartTypes:   NewPartTypeRepository(q),
		StoredFiles: NewStoredFileRepository(q),
		OAuth:       NewOAuthRepository(q),
	}
}

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// Run inicia una transacción, ejecuta fn con repos atados a la tx y hace Commit o Rollback.
func (r *TxRunner) Run(ctx context.Context, fn func(Repos) error) error {
	return r.run(ctx, pgx.TxOptions{}, fn)
}

// Snapshot transacción REPEATABLE READ de solo lectura: todas las lecturas de fn
// observan el mismo estado.
func (r *TxRunner) Snapshot(ctx context.Context, fn func(Repos) error) error {
	return r.run(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}, fn)
}

func (r *TxRunner) run(ctx context.Context, opts pgx.TxOptions, fn func(Repos) error) error {
	tx, err := r.pool.BeginTx(ctx, opts)
	if err != nil {
		return translate("begin transaction", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(NewRepos(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return translate("commit transaction", err)
	}
	return nil
}
