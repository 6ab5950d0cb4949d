package postgres

import (
	"testing"
	"time"

	"github.com/jhoicas/partsbin/internal/domain/entity"
	"github.com/jhoicas/partsbin/internal/domain/query"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ──────────────────────────────────────────────────────────────────────────────
// Compilación de predicados a SQL (sin base de datos)
// ──────────────────────────────────────────────────────────────────────────────

func compile(t *testing.T, e query.Expr) (string, args) {
	t.Helper()
	pred, err := query.Compile(e)
	require.NoError(t, err)
	var a args
	sql, err := compilePredicate(pred.Expr(), &a)
	require.NoError(t, err)
	return sql, a
}

func TestColumns_TodoCampoTieneColumna(t *testing.T) {
	for _, f := range query.Fields() {
		_, ok := columns[f]
		assert.True(t, ok, "campo sin columna: %s", f)
	}
	assert.Len(t, columns, len(query.Fields()))
}

func TestCompilePredicate_ComparacionEntera(t *testing.T) {
	sql, a := compile(t, query.Lt(query.Quantity, 10))
	assert.Equal(t, "quantity < $1::bigint", sql)
	assert.Equal(t, args{int64(10)}, a)
}

func TestCompilePredicate_TextoUsaCollateC(t *testing.T) {
	sql, _ := compile(t, query.Ge(query.PartNumber, "LM"))
	assert.Equal(t, `part_number COLLATE "C" >= $1`, sql)

	sql, _ = compile(t, query.Eq(query.PartNumber, "LM358"))
	assert.Equal(t, "part_number = $1", sql)
}

func TestCompilePredicate_Contains(t *testing.T) {
	sql, a := compile(t, query.Contains(query.Description, "Op-Amp"))
	assert.Equal(t, "strpos(lower(description), lower($1)) > 0", sql)
	assert.Equal(t, args{"Op-Amp"}, a)

	sql, _ = compile(t, query.Contains(query.Keywords, "smd"))
	assert.Equal(t, "EXISTS (SELECT 1 FROM unnest(keywords) k WHERE lower(k) = lower($1))", sql)
}

func TestCompilePredicate_AnulablesNuncaProducenNull(t *testing.T) {
	sql, _ := compile(t, query.Eq(query.ProjectID, 3))
	assert.Equal(t, "COALESCE(project_id = $1::bigint, FALSE)", sql)

	sql, _ = compile(t, query.Ne(query.ProjectID, 3))
	assert.Equal(t, "project_id IS DISTINCT FROM $1::bigint", sql)

	sql, a := compile(t, query.Eq(query.UserID, nil))
	assert.Equal(t, "user_id IS NULL", sql)
	assert.Empty(t, a)

	sql, _ = compile(t, query.Ne(query.UserID, nil))
	assert.Equal(t, "user_id IS NOT NULL", sql)
}

func TestCompilePredicate_IsNull(t *testing.T) {
	sql, _ := compile(t, query.IsNull(query.Location))
	assert.Equal(t, "location = ''", sql)

	sql, _ = compile(t, query.IsNull(query.Keywords))
	assert.Equal(t, "cardinality(keywords) = 0", sql)
}

func TestCompilePredicate_Combinadores(t *testing.T) {
	sql, a := compile(t, query.And(
		query.Ge(query.Cost, "0.10"),
		query.Or(query.Eq(query.PartTypeID, 1), query.Not(query.Contains(query.Manufacturer, "TI"))),
	))
	assert.Equal(t,
		"(cost >= $1 AND (COALESCE(part_type_id, 0) = $2::bigint OR (NOT strpos(lower(manufacturer), lower($3)) > 0)))",
		sql)
	require.Len(t, a, 3)
	assert.True(t, decimal.RequireFromString("0.10").Equal(a[0].(decimal.Decimal)))

	sql, _ = compile(t, query.And())
	assert.Equal(t, "TRUE", sql)
	sql, _ = compile(t, query.Or())
	assert.Equal(t, "FALSE", sql)
}

func TestCompilePredicate_Fecha(t *testing.T) {
	since := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	sql, a := compile(t, query.Gt(query.DateCreatedUTC, since))
	assert.Equal(t, "date_created_utc > $1", sql)
	assert.Equal(t, since, a[0])
}

func TestOrderClause(t *testing.T) {
	assert.Equal(t, "part_id ASC", orderClause("", false))
	assert.Equal(t, "part_id DESC", orderClause(query.PartID, true))
	assert.Equal(t, `part_number COLLATE "C" DESC, part_id ASC`, orderClause(query.PartNumber, true))
	assert.Equal(t, "cost ASC, part_id ASC", orderClause(query.Cost, false))
}

func TestVisibleTo(t *testing.T) {
	var a args
	assert.Equal(t, "user_id IS NULL", visibleTo("user_id", nil, &a))
	assert.Empty(t, a)

	assert.Equal(t, "(user_id IS NULL OR user_id = $1)", visibleTo("user_id", entity.NewUserContext(7), &a))
	assert.Equal(t, args{7}, a)

	a = nil
	assert.Equal(t, "user_id = $1", ownedBy("user_id", entity.NewUserContext(3), &a))
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `10\%\_x\\`, escapeLike(`10%_x\`))
}

// ──────────────────────────────────────────────────────────────────────────────
// Prefiltro de búsqueda y destino de conflicto OAuth
// ──────────────────────────────────────────────────────────────────────────────

func TestSearchCondition_FilasNoASCIISiemprePasan(t *testing.T) {
	var a args
	sql := searchCondition([]string{"4k7", "50%"}, &a)
	require.Len(t, a, 1)
	assert.Equal(t, []string{"%4k7%", `%50\%%`}, a[0])
	assert.Contains(t, sql, "ILIKE ANY($1)")
	assert.Contains(t, sql, "octet_length(k) <> char_length(k)")
	assert.Contains(t, sql, "octet_length(concat_ws(")
}

func TestOAuthConflictTarget_GlobalYUsuarioSeparados(t *testing.T) {
	zero := 0
	assert.Equal(t, "(provider) WHERE user_id IS NULL", oauthConflictTarget(nil))
	assert.Equal(t, "(provider, user_id) WHERE user_id IS NOT NULL", oauthConflictTarget(&zero))
}
