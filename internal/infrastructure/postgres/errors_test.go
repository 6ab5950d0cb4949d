package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jhoicas/partsbin/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestTranslate(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"sin filas", pgx.ErrNoRows, domain.ErrNotFound},
		{"unique", &pgconn.PgError{Code: "23505"}, domain.ErrConflict},
		{"foreign key", &pgconn.PgError{Code: "23503"}, domain.ErrConflict},
		{"serialización", &pgconn.PgError{Code: "40001"}, domain.ErrConflict},
		{"check", &pgconn.PgError{Code: "23514"}, domain.ErrValidation},
		{"dato inválido", &pgconn.PgError{Code: "22003"}, domain.ErrValidation},
		{"conexión", &pgconn.PgError{Code: "08006"}, domain.ErrStoreUnavailable},
		{"timeout", context.DeadlineExceeded, domain.ErrStoreUnavailable},
		{"pool cerrado", errors.New("closed pool"), domain.ErrStoreUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := translate("op", tc.err)
			assert.ErrorIs(t, got, tc.want)
			assert.ErrorIs(t, got, tc.err, "la causa original debe seguir accesible")
		})
	}
}

func TestTranslate_ConservaErroresDeDominio(t *testing.T) {
	err := translate("op", domain.ErrScopeViolation)
	assert.ErrorIs(t, err, domain.ErrScopeViolation)
	assert.NotErrorIs(t, err, domain.ErrStoreUnavailable)

	assert.NoError(t, translate("op", nil))
	assert.ErrorIs(t, translate("op", context.Canceled), context.Canceled)
}
