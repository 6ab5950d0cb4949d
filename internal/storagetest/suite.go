// Package storagetest contiene la batería de pruebas que todo repository.StorageProvider
// debe pasar. Cada backend la ejecuta desde su propio _test.go con una fábrica que
// entrega un almacén vacío (solo con la taxonomía por defecto sembrada).
package storagetest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jhoicas/partsbin/internal/domain"
	"github.com/jhoicas/partsbin/internal/domain/entity"
	"github.com/jhoicas/partsbin/internal/domain/query"
	"github.com/jhoicas/partsbin/internal/domain/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"
)

// Factory devuelve un proveedor recién creado y vacío. La fábrica registra su
// propio t.Cleanup para cerrarlo.
type Factory func(t *testing.T) repository.StorageProvider

// Run ejecuta la batería completa contra el backend de la fábrica.
func Run(t *testing.T, newProvider Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, sp repository.StorageProvider)
	}{
		{"Parts/AltaYLectura", testAddAndGetPart},
		{"Parts/Visibilidad", testPartVisibility},
		{"Parts/Actualizacion", testUpdatePart},
		{"Parts/ReferenciasInvisibles", testPartReferences},
		{"Parts/BajoUmbralConVisibilidad", testLowStockVisibility},
		{"Parts/PorNumero", testGetPartByNumber},
		{"Parts/Paginacion", testPagination},
		{"Parts/Orden", testOrderBy},
		{"Parts/Predicado", testPartsMatching},
		{"Parts/Busqueda", testFindParts},
		{"Parts/BusquedaUnicode", testFindPartsUnicodeFolding},
		{"Parts/NumeroMultibyte", testMultibytePartNumber},
		{"Aggregates/Conteos", testCounts},
		{"Aggregates/ValorExacto", testPartsValueExact},
		{"Aggregates/StockBajo", testLowStockBoundary},
		{"Aggregates/StockBajoRazonesCercanas", testLowStockNearRatios},
		{"PartTypes/Sembrados", testSeededPartTypes},
		{"PartTypes/GetOrCreate", testGetOrCreatePartType},
		{"PartTypes/GetOrCreateConcurrente", testGetOrCreatePartTypeConcurrent},
		{"PartTypes/GetOrCreateLlamadorCancelado", testGetOrCreatePartTypeCanceledCaller},
		{"PartTypes/ActualizarYEliminar", testUpdateDeletePartType},
		{"Projects/CRUD", testProjects},
		{"Projects/EliminarDesasociaPartes", testDeleteProjectDetachesParts},
		{"StoredFiles/CRUD", testStoredFiles},
		{"StoredFiles/CascadaAlEliminarParte", testStoredFilesCascade},
		{"OAuth/Credenciales", testOAuthCredentials},
		{"OAuth/EliminarEsIdempotente", testRemoveOAuthIdempotent},
		{"OAuth/NombreCanonico", testOAuthProviderName},
		{"Owners/UsuarioCeroNoEsGlobal", testUserZeroIsNotGlobal},
		{"Database/Instantanea", testGetDatabase},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.fn(t, newProvider(t))
		})
	}
}

var (
	system *entity.UserContext // nil: llamador de sistema
	user0  = entity.NewUserContext(0)
	user3  = entity.NewUserContext(3)
	user7  = entity.NewUserContext(7)
	user8  = entity.NewUserContext(8)
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────────────────────────────────

func addPart(t *testing.T, sp repository.StorageProvider, uc *entity.UserContext, number string, qty int64, threshold int, cost string) *entity.Part {
	t.Helper()
	p := entity.NewPart(number)
	p.Quantity = qty
	p.LowStockThreshold = threshold
	p.Cost = decimal.RequireFromString(cost)
	out, err := sp.AddPart(context.Background(), p, uc)
	require.NoError(t, err)
	return out
}

func partIDs(parts []*entity.Part) []int64 {
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		ids = append(ids, p.PartID)
	}
	return ids
}

func page(n, size int) entity.PaginatedRequest {
	return entity.NewPage(n, size)
}

// ──────────────────────────────────────────────────────────────────────────────
// Parts
// ──────────────────────────────────────────────────────────────────────────────

func testAddAndGetPart(t *testing.T, sp repository.StorageProvider) {
	ctx := context.Background()

	in := entity.NewPart("LM358")
	in.Quantity = 12
	in.Cost = decimal.RequireFromString("0.25")
	in.Description = "Dual op-amp"
	in.Manufacturer = "Texas Instruments"
	in.ArrowPartNumber = "LM358DR"
	in.Keywords = []string{" opamp ", "", "dual"}
	in.PartTypeID = int64(entity.OpAmp)
	in.PartID = 999 // el almacén asigna la identidad

	added, err := sp.AddPart(ctx, in, user7)
	require.NoError(t, err)
	assert.NotZero(t, added.PartID)
	assert.NotEqual(t, int64(999), added.PartID)
	require.NotNil(t, added.UserID)
	assert.Equal(t, 7, *added.UserID)
	assert.Equal(t, entity.PartSchemaVersion, added.SchemaVersion)
	assert.False(t, added.DateCreatedUTC.IsZero())
	assert.Equal(t, []string{"opamp", "dual"}, added.Keywords)
	assert.Equal(t, int64(999), in.PartID, "el valor del llamador no se muta")

	got, err := sp.GetPart(ctx, added.PartID, user7)
	require.NoError(t, err)
	assert.True(t, got.Equal(added))
	assert.Equal(t, "LM358", got.PartNumber)
	assert.Equal(t, int64(12), got.Quantity)
	assert.True(t, got.Cost.Equal(decimal.RequireFromString("0.25")), "cost = %s", got.Cost)
	assert.Equal(t, "LM358DR", got.ArrowPartNumber)
	assert.Equal(t, int64(entity.OpAmp), got.PartTypeID)
	assert.Equal(t, []string{"opamp", "dual"}, got.Keywords)
	assert.True(t, got.DateCreatedUTC.Equal(added.DateCreatedUTC))

	second := addPart(t, sp, user7, "LM358", 1, 1, "0")
	assert.Greater(t, second.PartID, added.PartID, "los ids crecen")
	assert.False(t, second.Equal(added), "mismo PartNumber, distinta identidad")

	_, err = sp.AddPart(ctx, &entity.Part{PartNumber: strings.Repeat("x", entity.MaxPartNumberLength+1)}, user7)
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = sp.AddPart(ctx, &entity.Part{PartNumber: "NEG", Quantity: -1}, user7)
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = sp.AddPart(ctx, &entity.Part{PartNumber: "NEG", Cost: decimal.RequireFromString("-0.01")}, user7)
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = sp.AddPart(ctx, nil, user7)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func testPartVisibility(t *testing.T, sp repository.StorageProvider) {
	ctx := context.Background()
	own := addPart(t, sp, user7, "OWN", 1, 1, "1")
	global := addPart(t, sp, system, "GLOBAL", 1, 1, "1")
	assert.Nil(t, global.UserID)

	_, err := sp.GetPart(ctx, own.PartID, user8)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = sp.GetPart(ctx, own.PartID, system)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	for _, uc := range []*entity.UserContext{system, user7, user8} {
		got, err := sp.GetPart(ctx, global.PartID, uc)
		require.NoError(t, err, "global visible para %s", uc)
		assert.Nil(t, got.UserID)
	}

	res, err := sp.GetParts(ctx, page(1, 100), user8)
	require.NoError(t, err)
	assert.Equal(t, 1, res.TotalItems)
	assert.Equal(t, []int64{global.PartID}, partIDs(res.Items))

	deleted, err := sp.DeletePart(ctx, own.PartID, user8)
	assert.ErrorIs(t, err, domain.ErrScopeViolation)
	assert.False(t, deleted)

	_, err = sp.GetPart(ctx, own.PartID, user7)
	assert.NoError(t, err, "el intento ajeno no debe borrar nada")
}

func testUpdatePart(t *testing.T, sp repository.StorageProvider) {
	ctx := context.Background()
	p := addPart(t, sp, user7, "BC547", 10, 2, "0.05")

	next := p.Clone()
	next.Quantity = 3
	next.Description = "NPN"
	next.UserID = nil                           // no se puede cambiar el dueño
	next.DateCreatedUTC = time.Unix(0, 0).UTC() // ni la fecha de creación
	updated, err := sp.UpdatePart(ctx, next, user7)
	require.NoError(t, err)
	require.NotNil(t, updated.UserID)
	assert.Equal(t, 7, *updated.UserID)
	assert.True(t, updated.DateCreatedUTC.Equal(p.DateCreatedUTC))

	got, err := sp.GetPart(ctx, p.PartID, user7)
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.Quantity)
	assert.Equal(t, "NPN", got.Description)

	_, err = sp.UpdatePart(ctx, next, user8)
	assert.ErrorIs(t, err, domain.ErrScopeViolation)

	missing := next.Clone()
	missing.PartID = p.PartID + 1000
	_, err = sp.UpdatePart(ctx, missing, user7)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	invalid := next.Clone()
	invalid.Quantity = -5
	_, err = sp.UpdatePart(ctx, invalid, user7)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func testPartReferences(t *testing.T, sp repository.StorageProvider) {
	ctx := context.Background()
	foreignProject, err := sp.AddProject(ctx, &entity.Project{Name: "Ajeno"}, user8)
	require.NoError(t, err)

	p := entity.NewPart("REF")
	p.ProjectID = &foreignProject.ProjectID
	_, err = sp.AddPart(ctx, p, user7)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	p.ProjectID = nil
	p.PartTypeID = 100_000
	_, err = sp.AddPart(ctx, p, user7)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	p.PartTypeID = int64(entity.Resistor)
	added, err := sp.AddPart(ctx, p, user7)
	require.NoError(t, err)

	added.ProjectID = &foreignProject.ProjectID
	_, err = sp.UpdatePart(ctx, added, user7)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func testLowStockVisibility(t *testing.T, sp repository.StorageProvider) {
	ctx := context.Background()
	r001 := addPart(t, sp, user7, "R-001", 0, 5, "0.10")

	low, err := sp.GetLowStock(ctx, page(1, 10), user7)
	require.NoError(t, err)
	assert.Equal(t, 1, low.TotalItems)
	assert.Equal(t, []int64{r001.PartID}, partIDs(low.Items))

	value, err := sp.GetPartsValue(ctx, user7)
	require.NoError(t, err)
	assert.True(t, value.Equal(decimal.RequireFromString("0.00")), "valor = %s", value)

	deleted, err := sp.DeletePart(ctx, r001.PartID, user7)
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = sp.GetPart(ctx, r001.PartID, user7)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	deleted, err = sp.DeletePart(ctx, r001.PartID, user7)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func testGetPartByNumber(t *testing.T, sp repository.StorageProvider) {
	ctx := context.Background()
	global := addPart(t, sp, system, "NE555", 1, 1, "0")
	own := addPart(t, sp, user7, "NE555", 1, 1, "0")
	addPart(t, sp, user7, "NE555", 1, 1, "0") // segunda propia: gana el menor id

	got, err := sp.GetPartByNumber(ctx, "NE555", user7)
	require.NoError(t, err)
	assert.Equal(t, own.PartID, got.PartID, "la parte propia gana sobre la global")

	got, err = sp.GetPartByNumber(ctx, "NE555", user8)
	require.NoError(t, err)
	assert.Equal(t, global.PartID, got.PartID)

	_, err = sp.GetPartByNumber(ctx, "ne555", user7)
	assert.ErrorIs(t, err, domain.ErrNotFound, "el número de parte es exacto")
	_, err = sp.GetPartByNumber(ctx, "NOPE", user7)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func testPagination(t *testing.T, sp repository.StorageProvider) {
	ctx := context.Background()
	var ids []int64
	for i := 0; i < 25; i++ {
		ids = append(ids, addPart(t, sp, user7, fmt.Sprintf("P-%02d", i), 1, 1, "0").PartID)
	}

	cases := []struct {
		page, size int
		want       []int64
	}{
		{1, 10, ids[:10]},
		{2, 10, ids[10:20]},
		{3, 10, ids[20:]},
		{4, 10, nil},
		{1000, 100, nil},
		{1, 100, ids},
	}
	for _, tc := range cases {
		res, err := sp.GetParts(ctx, page(tc.page, tc.size), user7)
		require.NoError(t, err)
		assert.Equal(t, 25, res.TotalItems, "página %d", tc.page)
		assert.LessOrEqual(t, len(res.Items), tc.size)
		assert.NotNil(t, res.Items)
		if tc.want == nil {
			assert.Empty(t, res.Items)
		} else {
			assert.Equal(t, tc.want, partIDs(res.Items))
		}
	}

	for _, bad := range []entity.PaginatedRequest{page(0, 10), page(1001, 10), page(1, 0), page(1, 101)} {
		_, err := sp.GetParts(ctx, bad, user7)
		assert.ErrorIs(t, err, domain.ErrValidation, "petición %+v", bad)
		_, err = sp.GetLowStock(ctx, bad, user7)
		assert.ErrorIs(t, err, domain.ErrValidation)
		_, err = sp.GetProjects(ctx, bad, user7)
		assert.ErrorIs(t, err, domain.ErrValidation)
		_, err = sp.GetStoredFiles(ctx, bad, user7)
		assert.ErrorIs(t, err, domain.ErrValidation)
	}
}

func testOrderBy(t *testing.T, sp repository.StorageProvider) {
	ctx := context.Background()
	a := addPart(t, sp, user7, "B", 5, 1, "0")
	b := addPart(t, sp, user7, "A", 9, 1, "0")
	c := addPart(t, sp, user7, "C", 5, 1, "0")

	req := entity.PaginatedRequest{Page: 1, Results: 10, OrderBy: string(query.Quantity), Direction: entity.Descending}
	res, err := sp.GetParts(ctx, req, user7)
	require.NoError(t, err)
	assert.Equal(t, []int64{b.PartID, a.PartID, c.PartID}, partIDs(res.Items), "empates por PartId ascendente")

	req = entity.PaginatedRequest{Page: 1, Results: 10, OrderBy: string(query.PartNumber)}
	res, err = sp.GetParts(ctx, req, user7)
	require.NoError(t, err)
	assert.Equal(t, []int64{b.PartID, a.PartID, c.PartID}, partIDs(res.Items))

	req = entity.PaginatedRequest{Page: 1, Results: 10, Direction: entity.Descending}
	res, err = sp.GetParts(ctx, req, user7)
	require.NoError(t, err)
	assert.Equal(t, []int64{c.PartID, b.PartID, a.PartID}, partIDs(res.Items))

	_, err = sp.GetParts(ctx, entity.PaginatedRequest{Page: 1, Results: 10, OrderBy: "Nope"}, user7)
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = sp.GetParts(ctx, entity.PaginatedRequest{Page: 1, Results: 10, OrderBy: string(query.Keywords)}, user7)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func testPartsMatching(t *testing.T, sp repository.StorageProvider) {
	ctx := context.Background()
	project, err := sp.AddProject(ctx, &entity.Project{Name: "Reloj"}, user7)
	require.NoError(t, err)

	cheap := addPart(t, sp, user7, "1N4148", 100, 10, "0.02")
	pricey := entity.NewPart("STM32F103")
	pricey.Quantity = 3
	pricey.Cost = decimal.RequireFromString("4.50")
	pricey.ProjectID = &project.ProjectID
	pricey.Keywords = []string{"MCU", "arm"}
	pricey.Description = "ARM Cortex-M3"
	pricey, err = sp.AddPart(ctx, pricey, user7)
	require.NoError(t, err)
	addPart(t, sp, user8, "HIDDEN", 1, 1, "0.01")

	cases := []struct {
		name string
		expr query.Expr
		want []int64
	}{
		{"menor que", query.Lt(query.Quantity, 10), []int64{pricey.PartID}},
		{"rango decimal", query.Between(query.Cost, "0.01", "1"), []int64{cheap.PartID}},
		{"igualdad texto", query.Eq(query.PartNumber, "1N4148"), []int64{cheap.PartID}},
		{"distinto", query.Ne(query.PartNumber, "1N4148"), []int64{pricey.PartID}},
		{"proyecto", query.Eq(query.ProjectID, project.ProjectID), []int64{pricey.PartID}},
		{"sin proyecto", query.Eq(query.ProjectID, nil), []int64{cheap.PartID}},
		{"proyecto distinto", query.Ne(query.ProjectID, project.ProjectID), []int64{cheap.PartID}},
		{"keyword", query.Contains(query.Keywords, "mcu"), []int64{pricey.PartID}},
		{"contiene", query.Contains(query.Description, "cortex"), []int64{pricey.PartID}},
		{"negación", query.Not(query.Contains(query.Description, "cortex")), []int64{cheap.PartID}},
		{"or", query.Or(query.Eq(query.Quantity, 3), query.Eq(query.Quantity, 100)), []int64{cheap.PartID, pricey.PartID}},
		{"and vacío", query.And(), []int64{cheap.PartID, pricey.PartID}},
		{"or vacío", query.Or(), []int64{}},
		{"dueño", query.Eq(query.UserID, 7), []int64{cheap.PartID, pricey.PartID}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := sp.GetPartsMatching(ctx, tc.expr, user7)
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, tc.want, partIDs(got))
		})
	}

	_, err = sp.GetPartsMatching(ctx, query.Eq("Nope", 1), user7)
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = sp.GetPartsMatching(ctx, query.Lt(query.Quantity, "muchos"), user7)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func testFindParts(t *testing.T, sp repository.StorageProvider) {
	ctx := context.Background()
	mk := func(number, description string, keywords ...string) *entity.Part {
		p := entity.NewPart(number)
		p.Description = description
		p.Keywords = keywords
		out, err := sp.AddPart(ctx, p, user7)
		require.NoError(t, err)
		return out
	}
	onlyResistor := mk("RC0603", "Thick film resistor 4k7")
	both := mk("RC0805", "10k Resistor 1%", "smd")
	onlyTenK := mk("POT-10K", "Trimmer", "10K")
	mk("C0603", "Ceramic capacitor 100nF")

	res, err := sp.FindParts(ctx, "resistor 10k", user7)
	require.NoError(t, err)
	require.Len(t, res, 3)
	assert.Equal(t, both.PartID, res[0].Result.PartID, "las dos palabras superan a una")
	for _, r := range res[1:] {
		assert.Less(t, r.Rank, res[0].Rank)
	}
	got := []int64{res[1].Result.PartID, res[2].Result.PartID}
	assert.ElementsMatch(t, []int64{onlyResistor.PartID, onlyTenK.PartID}, got)
	for i := 1; i < len(res); i++ {
		prev, cur := res[i-1], res[i]
		assert.True(t, prev.Rank > cur.Rank || (prev.Rank == cur.Rank && prev.Result.PartID < cur.Result.PartID),
			"orden estable por rank y luego PartId")
	}

	res, err = sp.FindParts(ctx, "RESISTOR", user8)
	require.NoError(t, err)
	assert.Empty(t, res, "las partes ajenas no aparecen")

	for _, empty := range []string{"", "   ", "\t\n"} {
		res, err = sp.FindParts(ctx, empty, user7)
		require.NoError(t, err)
		assert.NotNil(t, res)
		assert.Empty(t, res)
	}

	res, err = sp.FindParts(ctx, "50%_off", user7)
	require.NoError(t, err)
	assert.Empty(t, res, "comodines de LIKE se tratan como texto")
}

func testFindPartsUnicodeFolding(t *testing.T, sp repository.StorageProvider) {
	ctx := context.Background()
	kelvin := entity.NewPart("R-4\u212A7") // signo Kelvin, se pliega a "k"
	kelvin.Description = "Resistencia"
	added, err := sp.AddPart(ctx, kelvin, user7)
	require.NoError(t, err)
	tagged := entity.NewPart("SW-1")
	tagged.Keywords = []string{"\u212Aey"}
	taggedAdded, err := sp.AddPart(ctx, tagged, user7)
	require.NoError(t, err)
	addPart(t, sp, user7, "R-10K", 1, 1, "0")

	res, err := sp.FindParts(ctx, "4k7", user7)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, added.PartID, res[0].Result.PartID)

	res, err = sp.FindParts(ctx, "KEY", user7)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, taggedAdded.PartID, res[0].Result.PartID)
}

func testMultibytePartNumber(t *testing.T, sp repository.StorageProvider) {
	ctx := context.Background()
	number := strings.Repeat("Ω", entity.MaxPartNumberLength)
	added, err := sp.AddPart(ctx, entity.NewPart(number), user7)
	require.NoError(t, err, "el límite cuenta caracteres, no bytes")

	got, err := sp.GetPartByNumber(ctx, number, user7)
	require.NoError(t, err)
	assert.Equal(t, added.PartID, got.PartID)

	_, err = sp.AddPart(ctx, entity.NewPart(number+"Ω"), user7)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

// ──────────────────────────────────────────────────────────────────────────────
// Agregados
// ──────────────────────────────────────────────────────────────────────────────

func testCounts(t *testing.T, sp repository.StorageProvider) {
	ctx := context.Background()
	addPart(t, sp, user7, "A", 10, 1, "1.50")
	addPart(t, sp, user7, "B", 5, 1, "2")
	addPart(t, sp, system, "G", 100, 1, "0.01")
	addPart(t, sp, user8, "X", 1000, 1, "1")

	count, err := sp.GetPartsCount(ctx, user7)
	require.NoError(t, err)
	assert.Equal(t, int64(115), count, "suma de existencias, no filas")

	unique, err := sp.GetUniquePartsCount(ctx, user7)
	require.NoError(t, err)
	assert.Equal(t, int64(3), unique)

	value, err := sp.GetPartsValue(ctx, user7)
	require.NoError(t, err)
	assert.True(t, value.Equal(decimal.RequireFromString("26")), "valor = %s", value)

	unique, err = sp.GetUniquePartsCount(ctx, system)
	require.NoError(t, err)
	assert.Equal(t, int64(1), unique)

	empty, err := sp.GetPartsValue(ctx, user3)
	require.NoError(t, err)
	assert.True(t, empty.Equal(decimal.RequireFromString("1")), "user3 solo ve la global: %s", empty)
}

func testPartsValueExact(t *testing.T, sp repository.StorageProvider) {
	ctx := context.Background()
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i := 0; i < 1000; i++ {
		i := i
		g.Go(func() error {
			p := entity.NewPart(fmt.Sprintf("MILLI-%04d", i))
			p.Quantity = 1
			p.Cost = decimal.RequireFromString("0.001")
			_, err := sp.AddPart(ctx, p, user7)
			return err
		})
	}
	require.NoError(t, g.Wait())

	value, err := sp.GetPartsValue(context.Background(), user7)
	require.NoError(t, err)
	assert.True(t, value.Equal(decimal.RequireFromString("1.000")), "valor = %s", value)
	assert.Equal(t, "1", value.String())
}

func testLowStockBoundary(t *testing.T, sp repository.StorageProvider) {
	ctx := context.Background()
	below := addPart(t, sp, user7, "BELOW", 4, 5, "0")   // 4/5
	addPart(t, sp, user7, "AT", 5, 5, "0")               // excluida: el límite es estricto
	addPart(t, sp, user7, "ABOVE", 6, 5, "0")            // excluida
	addPart(t, sp, user7, "ZERO-THRESHOLD", 0, 0, "0")   // 0 < 0 es falso
	empty := addPart(t, sp, user7, "EMPTY", 0, 1, "0")   // 0/1
	critical := addPart(t, sp, user7, "CRIT", 2, 10, "0") // 2/10
	emptyToo := addPart(t, sp, user7, "EMPTY-2", 0, 3, "0")

	res, err := sp.GetLowStock(ctx, page(1, 100), user7)
	require.NoError(t, err)
	assert.Equal(t, 4, res.TotalItems)
	assert.Equal(t, []int64{empty.PartID, emptyToo.PartID, critical.PartID, below.PartID}, partIDs(res.Items),
		"más críticas primero, empates por PartId")
	for _, p := range res.Items {
		assert.Less(t, p.Quantity, int64(p.LowStockThreshold))
	}

	res, err = sp.GetLowStock(ctx, page(2, 3), user7)
	require.NoError(t, err)
	assert.Equal(t, 4, res.TotalItems)
	assert.Equal(t, []int64{below.PartID}, partIDs(res.Items))
}

// Con umbrales cercanos a 2^31 dos razones distintas difieren recién en el
// decimonoveno decimal; el orden debe seguir siendo exacto.
func testLowStockNearRatios(t *testing.T, sp repository.StorageProvider) {
	ctx := context.Background()
	higher := addPart(t, sp, user3, "HI", 715827882, 2147483647, "0")
	lower := addPart(t, sp, user3, "LO", 715827881, 2147483644, "0")

	res, err := sp.GetLowStock(ctx, page(1, 10), user3)
	require.NoError(t, err)
	assert.Equal(t, []int64{lower.PartID, higher.PartID}, partIDs(res.Items))
}

// ──────────────────────────────────────────────────────────────────────────────
// Tipos de parte
// ──────────────────────────────────────────────────────────────────────────────

func testSeededPartTypes(t *testing.T, sp repository.StorageProvider) {
	ctx := context.Background()
	types, err := sp.GetPartTypes(ctx, user7)
	require.NoError(t, err)
	require.Len(t, types, int(entity.MaxDefaultPartTypeID))

	for _, pt := range types {
		def := entity.DefaultPartType(pt.PartTypeID)
		assert.Equal(t, def.String(), pt.Name)
		assert.Nil(t, pt.UserID)
		if parent, ok := def.Parent(); ok {
			require.NotNil(t, pt.ParentPartTypeID, pt.Name)
			assert.Equal(t, int64(parent), *pt.ParentPartTypeID, pt.Name)
		} else {
			assert.Nil(t, pt.ParentPartTypeID, pt.Name)
		}
	}

	mosfet, err := sp.GetPartType(ctx, int64(entity.MOSFET), system)
	require.NoError(t, err)
	require.NotNil(t, mosfet.ParentPartTypeID)
	assert.Equal(t, int64(entity.Transistor), *mosfet.ParentPartTypeID)

	_, err = sp.GetPartType(ctx, 100_000, user7)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func testGetOrCreatePartType(t *testing.T, sp repository.StorageProvider) {
	ctx := context.Background()

	seeded, err := sp.GetOrCreatePartType(ctx, &entity.PartType{Name: "  resistor "}, user7)
	require.NoError(t, err)
	assert.Equal(t, int64(entity.Resistor), seeded.PartTypeID, "sin distinguir mayúsculas, encuentra el global")

	parent := int64(entity.IC)
	created, err := sp.GetOrCreatePartType(ctx, &entity.PartType{Name: "FPGA", ParentPartTypeID: &parent}, user7)
	require.NoError(t, err)
	assert.Greater(t, created.PartTypeID, entity.MaxDefaultPartTypeID)
	require.NotNil(t, created.UserID)
	assert.Equal(t, 7, *created.UserID)

	again, err := sp.GetOrCreatePartType(ctx, &entity.PartType{Name: "fpga"}, user7)
	require.NoError(t, err)
	assert.Equal(t, created.PartTypeID, again.PartTypeID)
	assert.Equal(t, "FPGA", again.Name)

	other, err := sp.GetOrCreatePartType(ctx, &entity.PartType{Name: "FPGA"}, user8)
	require.NoError(t, err)
	assert.NotEqual(t, created.PartTypeID, other.PartTypeID, "cada usuario tiene su propio tipo")

	_, err = sp.GetPartType(ctx, created.PartTypeID, user8)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = sp.GetOrCreatePartType(ctx, &entity.PartType{Name: "   "}, user7)
	assert.ErrorIs(t, err, domain.ErrValidation)

	missing := int64(100_000)
	_, err = sp.GetOrCreatePartType(ctx, &entity.PartType{Name: "Huérfano", ParentPartTypeID: &missing}, user7)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func testGetOrCreatePartTypeConcurrent(t *testing.T, sp repository.StorageProvider) {
	ctx := context.Background()
	const callers = 16

	var wg sync.WaitGroup
	ids := make([]int64, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := "Trimmer"
			if i%2 == 1 {
				name = "TRIMMER"
			}
			pt, err := sp.GetOrCreatePartType(ctx, &entity.PartType{Name: name}, user7)
			errs[i] = err
			if err == nil {
				ids[i] = pt.PartTypeID
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}

	types, err := sp.GetPartTypes(ctx, user7)
	require.NoError(t, err)
	n := 0
	for _, pt := range types {
		if strings.EqualFold(pt.Name, "trimmer") {
			n++
		}
	}
	assert.Equal(t, 1, n, "nunca se duplica")
}

func testGetOrCreatePartTypeCanceledCaller(t *testing.T, sp repository.StorageProvider) {
	canceled, cancel := context.WithCancel(context.Background())
	cancel()

	const callers = 8
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ctx := context.Background()
			if i == 0 {
				ctx = canceled
			}
			_, errs[i] = sp.GetOrCreatePartType(ctx, &entity.PartType{Name: "Varistor"}, user7)
		}(i)
	}
	wg.Wait()

	for i := 1; i < callers; i++ {
		assert.NoError(t, errs[i], "la cancelación de un llamador no afecta a los demás")
	}
	pt, err := sp.GetOrCreatePartType(context.Background(), &entity.PartType{Name: "varistor"}, user7)
	require.NoError(t, err)
	assert.Equal(t, "Varistor", pt.Name)
}

func testUpdateDeletePartType(t *testing.T, sp repository.StorageProvider) {
	ctx := context.Background()

	seeded, err := sp.GetPartType(ctx, int64(entity.Resistor), user7)
	require.NoError(t, err)
	seeded.Name = "Resistencia"
	_, err = sp.UpdatePartType(ctx, seeded, user7)
	assert.ErrorIs(t, err, domain.ErrScopeViolation)
	_, err = sp.DeletePartType(ctx, int64(entity.Resistor), system)
	assert.ErrorIs(t, err, domain.ErrScopeViolation)

	sensor, err := sp.GetOrCreatePartType(ctx, &entity.PartType{Name: "Thermistor"}, user7)
	require.NoError(t, err)
	probe, err := sp.GetOrCreatePartType(ctx, &entity.PartType{Name: "Probe"}, user7)
	require.NoError(t, err)

	sensor.Name = "NTC"
	renamed, err := sp.UpdatePartType(ctx, sensor, user7)
	require.NoError(t, err)
	assert.Equal(t, "NTC", renamed.Name)
	found, err := sp.GetOrCreatePartType(ctx, &entity.PartType{Name: "ntc"}, user7)
	require.NoError(t, err)
	assert.Equal(t, sensor.PartTypeID, found.PartTypeID, "el índice de nombre sigue al renombre")

	renamed.Name = "probe"
	_, err = sp.UpdatePartType(ctx, renamed, user7)
	assert.ErrorIs(t, err, domain.ErrConflict)

	renamed.Name = "NTC"
	renamed.ParentPartTypeID = &renamed.PartTypeID
	_, err = sp.UpdatePartType(ctx, renamed, user7)
	assert.ErrorIs(t, err, domain.ErrValidation)

	// Ciclo indirecto: probe -> NTC y luego NTC -> probe.
	probe.ParentPartTypeID = &renamed.PartTypeID
	_, err = sp.UpdatePartType(ctx, probe, user7)
	require.NoError(t, err)
	renamed.ParentPartTypeID = &probe.PartTypeID
	_, err = sp.UpdatePartType(ctx, renamed, user7)
	assert.ErrorIs(t, err, domain.ErrValidation)

	renamed.ParentPartTypeID = nil
	_, err = sp.UpdatePartType(ctx, renamed, user8)
	assert.ErrorIs(t, err, domain.ErrScopeViolation)

	// Referenciado por un subtipo.
	_, err = sp.DeletePartType(ctx, renamed.PartTypeID, user7)
	assert.ErrorIs(t, err, domain.ErrConflict)

	// Referenciado por una parte.
	p := entity.NewPart("NTC-10K")
	p.PartTypeID = probe.PartTypeID
	part, err := sp.AddPart(ctx, p, user7)
	require.NoError(t, err)
	_, err = sp.DeletePartType(ctx, probe.PartTypeID, user7)
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = sp.DeletePart(ctx, part.PartID, user7)
	require.NoError(t, err)
	deleted, err := sp.DeletePartType(ctx, probe.PartTypeID, user7)
	require.NoError(t, err)
	assert.True(t, deleted)
	deleted, err = sp.DeletePartType(ctx, probe.PartTypeID, user7)
	require.NoError(t, err)
	assert.False(t, deleted)

	// El nombre liberado puede volver a crearse.
	again, err := sp.GetOrCreatePartType(ctx, &entity.PartType{Name: "Probe"}, user7)
	require.NoError(t, err)
	assert.NotEqual(t, probe.PartTypeID, again.PartTypeID)
}

// ──────────────────────────────────────────────────────────────────────────────
// Proyectos
// ──────────────────────────────────────────────────────────────────────────────

func testProjects(t *testing.T, sp repository.StorageProvider) {
	ctx := context.Background()

	added, err := sp.AddProject(ctx, &entity.Project{Name: "Amplificador", Color: 3, Notes: "BOM v1"}, user7)
	require.NoError(t, err)
	assert.NotZero(t, added.ProjectID)
	assert.Equal(t, entity.ProjectSchemaVersion, added.SchemaVersion)
	assert.True(t, added.DateModifiedUTC.Equal(added.DateCreatedUTC))

	global, err := sp.AddProject(ctx, &entity.Project{Name: "amplificador"}, system)
	require.NoError(t, err)

	got, err := sp.GetProject(ctx, added.ProjectID, user7)
	require.NoError(t, err)
	assert.True(t, got.Equal(added))
	assert.Equal(t, "BOM v1", got.Notes)

	_, err = sp.GetProject(ctx, added.ProjectID, user8)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	byName, err := sp.GetProjectByName(ctx, "AMPLIFICADOR", user7)
	require.NoError(t, err)
	assert.Equal(t, added.ProjectID, byName.ProjectID, "el propio gana sobre el global")
	byName, err = sp.GetProjectByName(ctx, "Amplificador", user8)
	require.NoError(t, err)
	assert.Equal(t, global.ProjectID, byName.ProjectID)
	_, err = sp.GetProjectByName(ctx, "Nada", user7)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	next := got.Clone()
	next.Notes = "BOM v2"
	next.DateModifiedUTC = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC) // se ignora
	updated, err := sp.UpdateProject(ctx, next, user7)
	require.NoError(t, err)
	assert.True(t, updated.DateModifiedUTC.After(got.DateModifiedUTC), "DateModifiedUtc siempre avanza")
	assert.True(t, updated.DateCreatedUTC.Equal(got.DateCreatedUTC))

	reread, err := sp.GetProject(ctx, added.ProjectID, user7)
	require.NoError(t, err)
	assert.Equal(t, "BOM v2", reread.Notes)
	assert.True(t, reread.DateModifiedUTC.Equal(updated.DateModifiedUTC))

	_, err = sp.UpdateProject(ctx, next, user8)
	assert.ErrorIs(t, err, domain.ErrScopeViolation)
	next.Name = ""
	_, err = sp.UpdateProject(ctx, next, user7)
	assert.ErrorIs(t, err, domain.ErrValidation)

	list, err := sp.GetProjects(ctx, page(1, 1), user7)
	require.NoError(t, err)
	assert.Equal(t, 2, list.TotalItems)
	require.Len(t, list.Items, 1)
	assert.Equal(t, added.ProjectID, list.Items[0].ProjectID)

	deleted, err := sp.DeleteProject(ctx, added.ProjectID, user8)
	assert.ErrorIs(t, err, domain.ErrScopeViolation)
	assert.False(t, deleted)
	deleted, err = sp.DeleteProject(ctx, added.ProjectID, user7)
	require.NoError(t, err)
	assert.True(t, deleted)
	deleted, err = sp.DeleteProject(ctx, added.ProjectID, user7)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func testDeleteProjectDetachesParts(t *testing.T, sp repository.StorageProvider) {
	ctx := context.Background()
	project, err := sp.AddProject(ctx, &entity.Project{Name: "Radio"}, user7)
	require.NoError(t, err)

	p := entity.NewPart("TDA7000")
	p.ProjectID = &project.ProjectID
	part, err := sp.AddPart(ctx, p, user7)
	require.NoError(t, err)

	_, err = sp.DeleteProject(ctx, project.ProjectID, user7)
	require.NoError(t, err)

	got, err := sp.GetPart(ctx, part.PartID, user7)
	require.NoError(t, err)
	assert.Nil(t, got.ProjectID)
}

// ──────────────────────────────────────────────────────────────────────────────
// Archivos
// ──────────────────────────────────────────────────────────────────────────────

func testStoredFiles(t *testing.T, sp repository.StorageProvider) {
	ctx := context.Background()
	part := addPart(t, sp, user7, "ATmega328P", 1, 1, "2.10")

	ds, err := sp.AddStoredFile(ctx, &entity.StoredFile{
		OriginalFileName: "ATmega328P.PDF",
		StoredFileType:   entity.StoredFileDatasheet,
		PartID:           part.PartID,
		FileLength:       1024,
		Crc32:            0xdeadbeef,
	}, user7)
	require.NoError(t, err)
	assert.NotZero(t, ds.StoredFileID)
	assert.True(t, strings.HasSuffix(ds.FileName, ".pdf"), ds.FileName)

	img, err := sp.AddStoredFile(ctx, &entity.StoredFile{
		FileName:       "atmega.png",
		StoredFileType: entity.StoredFileImage,
		PartID:         part.PartID,
	}, user7)
	require.NoError(t, err)

	got, err := sp.GetStoredFile(ctx, ds.StoredFileID, user7)
	require.NoError(t, err)
	assert.Equal(t, ds.FileName, got.FileName)
	assert.Equal(t, uint32(0xdeadbeef), got.Crc32)
	assert.Equal(t, int64(1024), got.FileLength)

	byName, err := sp.GetStoredFileByName(ctx, "atmega.png", user7)
	require.NoError(t, err)
	assert.Equal(t, img.StoredFileID, byName.StoredFileID)

	_, err = sp.GetStoredFile(ctx, ds.StoredFileID, user8)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = sp.GetStoredFileByName(ctx, "atmega.png", user8)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = sp.GetStoredFileByName(ctx, "nope.png", user7)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	all, err := sp.GetStoredFilesForPart(ctx, part.PartID, nil, user7)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	datasheet := entity.StoredFileDatasheet
	only, err := sp.GetStoredFilesForPart(ctx, part.PartID, &datasheet, user7)
	require.NoError(t, err)
	require.Len(t, only, 1)
	assert.Equal(t, ds.StoredFileID, only[0].StoredFileID)

	none, err := sp.GetStoredFilesForPart(ctx, part.PartID, nil, user8)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	list, err := sp.GetStoredFiles(ctx, page(2, 1), user7)
	require.NoError(t, err)
	assert.Equal(t, 2, list.TotalItems)
	require.Len(t, list.Items, 1)
	assert.Equal(t, img.StoredFileID, list.Items[0].StoredFileID)

	_, err = sp.AddStoredFile(ctx, &entity.StoredFile{FileName: "atmega.png", StoredFileType: entity.StoredFileImage, PartID: part.PartID}, user7)
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = sp.AddStoredFile(ctx, &entity.StoredFile{StoredFileType: entity.StoredFileImage, PartID: part.PartID}, user8)
	assert.ErrorIs(t, err, domain.ErrNotFound, "la parte ajena no es visible")

	_, err = sp.AddStoredFile(ctx, &entity.StoredFile{StoredFileType: entity.StoredFileType(99), PartID: part.PartID}, user7)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func testStoredFilesCascade(t *testing.T, sp repository.StorageProvider) {
	ctx := context.Background()
	part := addPart(t, sp, user7, "ESP32", 1, 1, "3")
	f, err := sp.AddStoredFile(ctx, &entity.StoredFile{FileName: "esp32.pdf", StoredFileType: entity.StoredFileDatasheet, PartID: part.PartID}, user7)
	require.NoError(t, err)

	_, err = sp.DeletePart(ctx, part.PartID, user7)
	require.NoError(t, err)

	_, err = sp.GetStoredFile(ctx, f.StoredFileID, user7)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = sp.GetStoredFileByName(ctx, "esp32.pdf", user7)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// El nombre queda libre tras la cascada.
	other := addPart(t, sp, user7, "ESP32-S3", 1, 1, "4")
	_, err = sp.AddStoredFile(ctx, &entity.StoredFile{FileName: "esp32.pdf", StoredFileType: entity.StoredFileDatasheet, PartID: other.PartID}, user7)
	assert.NoError(t, err)
}

// ──────────────────────────────────────────────────────────────────────────────
// OAuth
// ──────────────────────────────────────────────────────────────────────────────

func testOAuthCredentials(t *testing.T, sp repository.StorageProvider) {
	ctx := context.Background()
	expiry := time.Now().Add(time.Hour).UTC()

	saved, err := sp.SaveOAuthCredential(ctx, entity.NewOAuthCredential("digikey", &oauth2.Token{
		AccessToken:  "a1",
		RefreshToken: "r1",
		Expiry:       expiry,
	}), user7)
	require.NoError(t, err)
	require.NotNil(t, saved.UserID)
	assert.Equal(t, 7, *saved.UserID)

	got, err := sp.GetOAuthCredential(ctx, "digikey", user7)
	require.NoError(t, err)
	assert.Equal(t, "a1", got.AccessToken)
	assert.True(t, got.DateExpiresUTC.Equal(expiry.Truncate(time.Microsecond)))
	assert.False(t, got.Expired(time.Now()))
	assert.Equal(t, "r1", got.Token().RefreshToken)

	_, err = sp.GetOAuthCredential(ctx, "digikey", user8)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = sp.GetOAuthCredential(ctx, "digikey", system)
	assert.ErrorIs(t, err, domain.ErrNotFound, "las credenciales no se comparten")
	_, err = sp.GetOAuthCredential(ctx, "mouser", user7)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	replaced, err := sp.SaveOAuthCredential(ctx, &entity.OAuthCredential{Provider: "digikey", AccessToken: "a2"}, user7)
	require.NoError(t, err)
	assert.True(t, replaced.DateCreatedUTC.Equal(saved.DateCreatedUTC), "el upsert conserva la creación")

	got, err = sp.GetOAuthCredential(ctx, "digikey", user7)
	require.NoError(t, err)
	assert.Equal(t, "a2", got.AccessToken)
	assert.Empty(t, got.RefreshToken)

	_, err = sp.SaveOAuthCredential(ctx, &entity.OAuthCredential{Provider: " "}, user7)
	assert.ErrorIs(t, err, domain.ErrValidation)

	require.NoError(t, sp.RemoveOAuthCredential(ctx, "digikey", user7))
	_, err = sp.GetOAuthCredential(ctx, "digikey", user7)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func testRemoveOAuthIdempotent(t *testing.T, sp repository.StorageProvider) {
	ctx := context.Background()
	assert.NoError(t, sp.RemoveOAuthCredential(ctx, "digikey", user3))
	assert.NoError(t, sp.RemoveOAuthCredential(ctx, "digikey", user3))

	// Eliminar la credencial de user3 no toca la de user7.
	_, err := sp.SaveOAuthCredential(ctx, &entity.OAuthCredential{Provider: "digikey", AccessToken: "x"}, user7)
	require.NoError(t, err)
	require.NoError(t, sp.RemoveOAuthCredential(ctx, "digikey", user3))
	_, err = sp.GetOAuthCredential(ctx, "digikey", user7)
	assert.NoError(t, err)
}

func testOAuthProviderName(t *testing.T, sp repository.StorageProvider) {
	ctx := context.Background()
	saved, err := sp.SaveOAuthCredential(ctx, &entity.OAuthCredential{Provider: " digikey ", AccessToken: "a"}, user7)
	require.NoError(t, err)
	assert.Equal(t, "digikey", saved.Provider)

	for _, name := range []string{" digikey ", "digikey", "digikey\t"} {
		got, err := sp.GetOAuthCredential(ctx, name, user7)
		require.NoError(t, err, "nombre %q", name)
		assert.Equal(t, "a", got.AccessToken)
	}

	require.NoError(t, sp.RemoveOAuthCredential(ctx, " digikey ", user7))
	_, err = sp.GetOAuthCredential(ctx, "digikey", user7)
	assert.ErrorIs(t, err, domain.ErrNotFound, "borrar con el mismo nombre elimina la credencial")
}

// ──────────────────────────────────────────────────────────────────────────────
// Dueños
// ──────────────────────────────────────────────────────────────────────────────

func testUserZeroIsNotGlobal(t *testing.T, sp repository.StorageProvider) {
	ctx := context.Background()

	_, err := sp.SaveOAuthCredential(ctx, &entity.OAuthCredential{Provider: "digikey", AccessToken: "global"}, system)
	require.NoError(t, err)
	own, err := sp.SaveOAuthCredential(ctx, &entity.OAuthCredential{Provider: "digikey", AccessToken: "cero"}, user0)
	require.NoError(t, err)
	require.NotNil(t, own.UserID)
	assert.Equal(t, 0, *own.UserID)

	got, err := sp.GetOAuthCredential(ctx, "digikey", system)
	require.NoError(t, err)
	assert.Equal(t, "global", got.AccessToken, "guardar como usuario 0 no pisa la global")
	assert.Nil(t, got.UserID)
	got, err = sp.GetOAuthCredential(ctx, "digikey", user0)
	require.NoError(t, err)
	assert.Equal(t, "cero", got.AccessToken)

	require.NoError(t, sp.RemoveOAuthCredential(ctx, "digikey", user0))
	_, err = sp.GetOAuthCredential(ctx, "digikey", system)
	assert.NoError(t, err)

	mine, err := sp.GetOrCreatePartType(ctx, &entity.PartType{Name: "Foo"}, user0)
	require.NoError(t, err)
	require.NotNil(t, mine.UserID)
	global, err := sp.GetOrCreatePartType(ctx, &entity.PartType{Name: "foo"}, system)
	require.NoError(t, err)
	assert.Nil(t, global.UserID)
	assert.NotEqual(t, mine.PartTypeID, global.PartTypeID)

	again, err := sp.GetOrCreatePartType(ctx, &entity.PartType{Name: "FOO"}, user0)
	require.NoError(t, err)
	assert.Equal(t, mine.PartTypeID, again.PartTypeID, "el propio gana sobre el global")

	_, err = sp.GetPartType(ctx, mine.PartTypeID, system)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// ──────────────────────────────────────────────────────────────────────────────
// Instantánea
// ──────────────────────────────────────────────────────────────────────────────

func testGetDatabase(t *testing.T, sp repository.StorageProvider) {
	ctx := context.Background()
	own := addPart(t, sp, user7, "OWN", 1, 1, "1")
	global := addPart(t, sp, system, "GLOBAL", 1, 1, "1")
	addPart(t, sp, user8, "FOREIGN", 1, 1, "1")
	_, err := sp.AddProject(ctx, &entity.Project{Name: "Mío"}, user7)
	require.NoError(t, err)
	_, err = sp.AddProject(ctx, &entity.Project{Name: "Ajeno"}, user8)
	require.NoError(t, err)
	_, err = sp.AddStoredFile(ctx, &entity.StoredFile{FileName: "own.png", StoredFileType: entity.StoredFileImage, PartID: own.PartID}, user7)
	require.NoError(t, err)
	_, err = sp.SaveOAuthCredential(ctx, &entity.OAuthCredential{Provider: "mouser", AccessToken: "m"}, user7)
	require.NoError(t, err)
	_, err = sp.SaveOAuthCredential(ctx, &entity.OAuthCredential{Provider: "mouser", AccessToken: "n"}, user8)
	require.NoError(t, err)

	db, err := sp.GetDatabase(ctx, user7)
	require.NoError(t, err)
	assert.Equal(t, entity.PartSchemaVersion, db.PartsSchemaVersion)
	assert.Equal(t, entity.ProjectSchemaVersion, db.ProjectsSchemaVersion)
	assert.Equal(t, []int64{own.PartID, global.PartID}, partIDs(db.Parts))
	assert.Len(t, db.PartTypes, int(entity.MaxDefaultPartTypeID))
	require.Len(t, db.Projects, 1)
	assert.Equal(t, "Mío", db.Projects[0].Name)
	assert.Len(t, db.StoredFiles, 1)
	require.Len(t, db.OAuthCredentials, 1)
	assert.Equal(t, "m", db.OAuthCredentials[0].AccessToken)

	sys, err := sp.GetDatabase(ctx, system)
	require.NoError(t, err)
	assert.Equal(t, []int64{global.PartID}, partIDs(sys.Parts))
	assert.Empty(t, sys.Projects)
	assert.NotNil(t, sys.Projects)
	assert.Empty(t, sys.OAuthCredentials)
}
