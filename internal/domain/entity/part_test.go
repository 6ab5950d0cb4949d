package entity_test

import (
	"strings"
	"testing"

	"github.com/jhoicas/partsbin/internal/domain"
	"github.com/jhoicas/partsbin/internal/domain/entity"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int       { return &v }
func int64Ptr(v int64) *int64 { return &v }

// ──────────────────────────────────────────────────────────────────────────────
// Igualdad de identidad: (PartID, UserID) y nada más
// ──────────────────────────────────────────────────────────────────────────────

func TestPart_EqualSoloPorIdentidad(t *testing.T) {
	a := &entity.Part{PartID: 1, UserID: intPtr(7), PartNumber: "LM358", Quantity: 1}
	b := &entity.Part{PartID: 1, UserID: intPtr(7), PartNumber: "NE555", Quantity: 99, Description: "otro"}
	assert.True(t, a.Equal(b), "PartNumber y demás campos no participan")
	assert.Equal(t, a.Key(), b.Key())

	cases := []struct {
		name string
		x, y *entity.Part
		want bool
	}{
		{"distinto usuario", &entity.Part{PartID: 1, UserID: intPtr(7)}, &entity.Part{PartID: 1, UserID: intPtr(8)}, false},
		{"global vs propio", &entity.Part{PartID: 1}, &entity.Part{PartID: 1, UserID: intPtr(7)}, false},
		{"ambos globales", &entity.Part{PartID: 1}, &entity.Part{PartID: 1}, true},
		{"distinto id", &entity.Part{PartID: 1}, &entity.Part{PartID: 2}, false},
		{"mismo número, distinto id", &entity.Part{PartID: 1, PartNumber: "X"}, &entity.Part{PartID: 2, PartNumber: "X"}, false},
		{"usuario 0 no es global", &entity.Part{PartID: 1, UserID: intPtr(0)}, &entity.Part{PartID: 1}, false},
		{"nil con nil", nil, nil, true},
		{"nil con valor", nil, &entity.Part{}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.x.Equal(tc.y))
			if tc.x != nil && tc.y != nil {
				assert.Equal(t, tc.want, tc.x.Key() == tc.y.Key(), "Key consistente con Equal")
			}
		})
	}
}

func TestPart_KeyComoLlaveDeMapa(t *testing.T) {
	seen := map[entity.PartKey]string{}
	seen[(&entity.Part{PartID: 1, UserID: intPtr(7), PartNumber: "A"}).Key()] = "A"
	seen[(&entity.Part{PartID: 1, UserID: intPtr(7), PartNumber: "B"}).Key()] = "B"
	seen[(&entity.Part{PartID: 1}).Key()] = "global"
	assert.Len(t, seen, 2)
	assert.Equal(t, "B", seen[(&entity.Part{PartID: 1, UserID: intPtr(7)}).Key()])
}

func TestNewPart_ValoresPorDefecto(t *testing.T) {
	p := entity.NewPart("R-001")
	assert.Equal(t, entity.DefaultLowStockThreshold, p.LowStockThreshold)
	assert.Equal(t, 1, p.LowStockThreshold)
	assert.True(t, p.Cost.IsZero())
	assert.Equal(t, entity.PartSchemaVersion, p.SchemaVersion)
	assert.Nil(t, p.UserID)
}

func TestPart_IsLowStockEstricto(t *testing.T) {
	p := &entity.Part{LowStockThreshold: 5}
	for qty, want := range map[int64]bool{0: true, 4: true, 5: false, 6: false} {
		p.Quantity = qty
		assert.Equal(t, want, p.IsLowStock(), "qty %d", qty)
	}
	assert.False(t, (&entity.Part{}).IsLowStock(), "umbral 0 nunca está bajo")
}

func TestPart_ValueExacto(t *testing.T) {
	p := &entity.Part{Quantity: 3, Cost: decimal.RequireFromString("0.1")}
	assert.Equal(t, "0.3", p.Value().String())

	sum := decimal.Zero
	milli := &entity.Part{Quantity: 1, Cost: decimal.RequireFromString("0.001")}
	for i := 0; i < 1000; i++ {
		sum = sum.Add(milli.Value())
	}
	assert.True(t, sum.Equal(decimal.RequireFromString("1.000")))
}

func TestPart_CloneEsProfundo(t *testing.T) {
	p := &entity.Part{PartID: 1, UserID: intPtr(7), ProjectID: int64Ptr(3), Keywords: []string{"a"}}
	c := p.Clone()
	*c.UserID = 8
	*c.ProjectID = 4
	c.Keywords[0] = "b"
	assert.Equal(t, 7, *p.UserID)
	assert.Equal(t, int64(3), *p.ProjectID)
	assert.Equal(t, "a", p.Keywords[0])
}

func TestPart_Validate(t *testing.T) {
	ok := entity.NewPart("LM358")
	require.NoError(t, ok.Validate())

	long := entity.NewPart(strings.Repeat("x", entity.MaxPartNumberLength+1))
	assert.Error(t, long.Validate())

	// el límite es en caracteres: 64 runas de 2 bytes siguen siendo válidas
	omega := entity.NewPart(strings.Repeat("Ω", entity.MaxPartNumberLength))
	assert.NoError(t, omega.Validate())
	omega.PartNumber += "Ω"
	assert.Error(t, omega.Validate())

	neg := entity.NewPart("X")
	neg.Cost = decimal.RequireFromString("-1")
	assert.Error(t, neg.Validate())

	_, err := entity.PrepareNewPart(neg, nil, entity.Now())
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestPart_String(t *testing.T) {
	p := &entity.Part{PartID: 12, PartNumber: "LM358", Description: "Dual op-amp"}
	assert.Equal(t, "12: LM358 - Dual op-amp", p.String())
	assert.Equal(t, "4: Radio", (&entity.Project{ProjectID: 4, Name: "Radio"}).String())
}

func TestUpgradePart(t *testing.T) {
	p := &entity.Part{SchemaVersion: 3}
	assert.True(t, entity.UpgradePart(p))
	assert.Equal(t, entity.PartSchemaVersion, p.SchemaVersion)
	assert.False(t, entity.UpgradePart(p))
}
