package query_test

import (
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/jhoicas/partsbin/internal/domain"
	"github.com/jhoicas/partsbin/internal/domain/entity"
	"github.com/jhoicas/partsbin/internal/domain/query"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func int64Ptr(v int64) *int64 { return &v }

func mustCompile(t *testing.T, e query.Expr) *query.Predicate {
	t.Helper()
	p, err := query.Compile(e)
	require.NoError(t, err)
	return p
}

// ──────────────────────────────────────────────────────────────────────────────
// Normalización
// ──────────────────────────────────────────────────────────────────────────────

func TestParse_JSONConLiterales(t *testing.T) {
	e, err := query.Parse([]byte(`{
		"op": "and",
		"args": [
			{"op": "ge", "field": "Quantity", "value": 10},
			{"op": "lt", "field": "Cost", "value": "0.25"},
			{"op": "gt", "field": "DateCreatedUtc", "value": "2024-01-01T00:00:00-05:00"},
			{"op": "contains", "field": "Keywords", "value": "smd"}
		]
	}`))
	require.NoError(t, err)
	require.Len(t, e.Args, 4)

	// JSON entrega float64; la normalización lo deja en int64.
	assert.Equal(t, int64(10), e.Args[0].Value)
	assert.True(t, decimal.RequireFromString("0.25").Equal(e.Args[1].Value.(decimal.Decimal)))
	assert.Equal(t, time.Date(2024, 1, 1, 5, 0, 0, 0, time.UTC), e.Args[2].Value)
	assert.Equal(t, "smd", e.Args[3].Value)
}

func TestNormalize_Errores(t *testing.T) {
	deep := query.Eq(query.Quantity, 1)
	for i := 0; i <= query.MaxDepth; i++ {
		deep = query.Not(deep)
	}

	cases := map[string]query.Expr{
		"campo desconocido":         query.Eq("Color", 1),
		"operador desconocido":      {Op: "like", Field: query.PartNumber, Value: "x"},
		"entero con decimales":      query.Eq(query.Quantity, 1.5),
		"texto en campo numérico":   query.Gt(query.Quantity, "diez"),
		"contains sobre número":     query.Contains(query.Quantity, "1"),
		"contains sin texto":        query.Contains(query.PartNumber, 3),
		"isnull sobre entero":       query.IsNull(query.Quantity),
		"rango sobre keywords":      query.Lt(query.Keywords, "a"),
		"nulo en campo no anulable": query.Eq(query.PartNumber, nil),
		"rango con nulo":            query.Lt(query.ProjectID, nil),
		"fecha mal formada":         query.Gt(query.DateCreatedUTC, "ayer"),
		"decimal mal formado":       query.Eq(query.Cost, "uno"),
		"not sin argumento":         {Op: query.OpNot},
		"anidamiento excesivo":      deep,
	}
	for name, e := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := query.Normalize(e)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}

	_, err := query.Parse([]byte(`{"op":`))
	assert.ErrorIs(t, err, domain.ErrValidation)
}

// ──────────────────────────────────────────────────────────────────────────────
// Evaluación en memoria
// ──────────────────────────────────────────────────────────────────────────────

func TestPredicate_Match(t *testing.T) {
	p := &entity.Part{
		PartID:            5,
		PartNumber:        "LM358DR",
		Description:       "Dual Op-Amp",
		Quantity:          12,
		LowStockThreshold: 5,
		Cost:              decimal.RequireFromString("0.40"),
		Keywords:          []string{"OpAmp", "smd"},
		ProjectID:         int64Ptr(3),
		DateCreatedUTC:    time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}

	cases := []struct {
		name string
		e    query.Expr
		want bool
	}{
		{"igualdad entera", query.Eq(query.Quantity, 12), true},
		{"rango", query.Between(query.Quantity, 10, 20), true},
		{"decimal exacto", query.Eq(query.Cost, "0.4"), true},
		{"decimal menor", query.Lt(query.Cost, decimal.RequireFromString("0.41")), true},
		{"contains sin mayúsculas", query.Contains(query.Description, "op-amp"), true},
		{"contains en keywords es pertenencia", query.Contains(query.Keywords, "opamp"), true},
		{"keywords no es subcadena", query.Contains(query.Keywords, "op"), false},
		{"isnull texto vacío", query.IsNull(query.Location), true},
		{"isnull keywords", query.IsNull(query.Keywords), false},
		{"proyecto igual", query.Eq(query.ProjectID, 3), true},
		{"proyecto nulo", query.IsNull(query.ProjectID), false},
		{"ne nulo", query.Ne(query.ProjectID, nil), true},
		{"usuario global", query.Eq(query.UserID, nil), true},
		{"usuario ne con nulo", query.Ne(query.UserID, 7), true},
		{"usuario lt con nulo es falso", query.Lt(query.UserID, 7), false},
		{"fecha", query.Lt(query.DateCreatedUTC, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)), true},
		{"or vacío", query.Or(), false},
		{"and vacío", query.And(), true},
		{"not", query.Not(query.Eq(query.PartNumber, "LM358DR")), false},
		{"combinado", query.And(
			query.Or(query.Eq(query.PartNumber, "NE555"), query.Contains(query.PartNumber, "lm358")),
			query.Not(query.IsNull(query.Keywords)),
		), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, mustCompile(t, tc.e).Match(p))
		})
	}
}

func TestValue_YFields(t *testing.T) {
	p := &entity.Part{PartID: 1, UserID: nil}
	v, err := query.Value(query.UserID, p)
	require.NoError(t, err)
	assert.Nil(t, v.(*int64))

	_, err = query.Value("Nope", p)
	assert.ErrorIs(t, err, domain.ErrValidation)

	for _, f := range query.Fields() {
		_, ok := query.KindOf(f)
		assert.True(t, ok, f)
	}

	_, err = query.ParseOrderField("Keywords")
	assert.ErrorIs(t, err, domain.ErrValidation)
	f, err := query.ParseOrderField("Cost")
	require.NoError(t, err)
	assert.Equal(t, query.Cost, f)
}

// ──────────────────────────────────────────────────────────────────────────────
// Ordenamiento
// ──────────────────────────────────────────────────────────────────────────────

func TestComparePart(t *testing.T) {
	parts := []*entity.Part{
		{PartID: 1, PartNumber: "B", ProjectID: nil},
		{PartID: 2, PartNumber: "A", ProjectID: int64Ptr(9)},
		{PartID: 3, PartNumber: "B", ProjectID: int64Ptr(1)},
		{PartID: 4, PartNumber: "A", ProjectID: nil},
	}
	ids := func(f query.Field, desc bool) string {
		cp := append([]*entity.Part(nil), parts...)
		sort.Slice(cp, func(i, j int) bool { return query.ComparePart(cp[i], cp[j], f, desc) < 0 })
		var b strings.Builder
		for _, p := range cp {
			b.WriteByte(byte('0' + p.PartID))
		}
		return b.String()
	}

	assert.Equal(t, "2413", ids(query.PartNumber, false), "empate por PartID ascendente")
	assert.Equal(t, "1324", ids(query.PartNumber, true), "el desempate sigue ascendente")
	assert.Equal(t, "3214", ids(query.ProjectID, false), "nulos al final")
	assert.Equal(t, "1234", ids("", false))
}
