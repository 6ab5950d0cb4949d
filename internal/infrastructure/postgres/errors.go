package postgres

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jhoicas/partsbin/internal/domain"
)

// Querier mínima interfaz que cumplen *pgxpool.Pool y pgx.Tx.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Códigos SQLSTATE usados en la traducción.
const (
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeCheckViolation       = "23514"
	codeNotNullViolation     = "23502"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// isUniqueViolation verifica si un error es una violación de constraint único (23505).
func isUniqueViolation(err error) bool {
	return pgCode(err) == codeUniqueViolation
}

// translate clasifica un error de pgx en la taxonomía de dominio.
// El resultado envuelve tanto el sentinel como la causa original.
func translate(op string, err error) error {
	if err == nil {
		return nil
	}
	if isDomainError(err) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", op, err)
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w: %w", op, domain.ErrNotFound, err)
	}

	if code := pgCode(err); code != "" {
		switch {
		case code == codeUniqueViolation, code == codeForeignKeyViolation,
			code == codeSerializationFailure, code == codeDeadlockDetected:
			return fmt.Errorf("%s: %w: %w", op, domain.ErrConflict, err)
		case code == codeCheckViolation, code == codeNotNullViolation, strings.HasPrefix(code, "22"):
			return fmt.Errorf("%s: %w: %w", op, domain.ErrValidation, err)
		default:
			// 08 conexión, 53 recursos, 57 intervención del operador, XX internos.
			return fmt.Errorf("%s: %w: %w", op, domain.ErrStoreUnavailable, err)
		}
	}

	var connErr *pgconn.ConnectError
	var netErr net.Error
	switch {
	case errors.As(err, &connErr), errors.As(err, &netErr), pgconn.Timeout(err),
		errors.Is(err, context.DeadlineExceeded), strings.Contains(err.Error(), "closed pool"):
		return fmt.Errorf("%s: %w: %w", op, domain.ErrStoreUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isDomainError(err error) bool {
	return domain.IsClientError(err) || errors.Is(err, domain.ErrStoreUnavailable)
}
