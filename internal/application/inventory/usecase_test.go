package inventory_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/jhoicas/partsbin/internal/application/inventory"
	"github.com/jhoicas/partsbin/internal/domain"
	"github.com/jhoicas/partsbin/internal/domain/entity"
	"github.com/jhoicas/partsbin/internal/infrastructure/badger"
	"github.com/jhoicas/partsbin/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"golang.org/x/text/encoding/charmap"
	"gopkg.in/yaml.v3"
)

func newStore(t *testing.T) *badger.Provider {
	t.Helper()
	p, err := badger.NewMemoryProvider(context.Background(), logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func addPart(t *testing.T, store *badger.Provider, uc *entity.UserContext, number string, qty int64, threshold int, cost string) *entity.Part {
	t.Helper()
	p := entity.NewPart(number)
	p.Quantity = qty
	p.LowStockThreshold = threshold
	p.Cost = decimal.RequireFromString(cost)
	out, err := store.AddPart(context.Background(), p, uc)
	require.NoError(t, err)
	return out
}

// ──────────────────────────────────────────────────────────────────────────────
// Resumen
// ──────────────────────────────────────────────────────────────────────────────

func TestSummary_AgregadosYReposicion(t *testing.T) {
	store := newStore(t)
	u7 := entity.NewUserContext(7)
	a := addPart(t, store, u7, "A", 1, 4, "0.50")
	addPart(t, store, u7, "B", 10, 2, "1.00")
	c := addPart(t, store, u7, "C", 0, 3, "2.00")
	addPart(t, store, entity.NewUserContext(8), "X", 0, 5, "9")

	sum, err := inventory.NewSummaryUseCase(store).GetSummary(context.Background(), u7, 0)
	require.NoError(t, err)

	assert.Equal(t, int64(11), sum.TotalQuantity)
	assert.Equal(t, int64(3), sum.UniqueParts)
	assert.Equal(t, "10.5", sum.TotalValue.String())
	assert.Equal(t, 2, sum.LowStockTotal)
	require.Len(t, sum.Replenishment, 2)

	first := sum.Replenishment[0]
	assert.Equal(t, c.PartID, first.PartID)
	assert.Equal(t, 1, first.Priority)
	assert.Equal(t, int64(5), first.IdealStock, "ceil(3 * 1.5)")
	assert.Equal(t, int64(5), first.SuggestedOrderQty)
	assert.Equal(t, "10", first.EstimatedOrderCost.String())

	second := sum.Replenishment[1]
	assert.Equal(t, a.PartID, second.PartID)
	assert.Equal(t, 2, second.Priority)
	assert.Equal(t, int64(6), second.IdealStock)
	assert.Equal(t, int64(5), second.SuggestedOrderQty)
	assert.Equal(t, "2.5", second.EstimatedOrderCost.String())
}

func TestSummary_TopLimitaLaLista(t *testing.T) {
	store := newStore(t)
	for _, n := range []string{"A", "B", "C"} {
		addPart(t, store, nil, n, 0, 1, "1")
	}
	sum, err := inventory.NewSummaryUseCase(store).GetSummary(context.Background(), nil, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, sum.LowStockTotal)
	assert.Len(t, sum.Replenishment, 2)
}

type failingStock struct {
	inventory.StockReader
	err error
}

func (f failingStock) GetPartsValue(context.Context, *entity.UserContext) (decimal.Decimal, error) {
	return decimal.Zero, f.err
}

func TestSummary_PropagaErrorDelAlmacen(t *testing.T) {
	store := newStore(t)
	boom := errors.New("disco lleno")
	_, err := inventory.NewSummaryUseCase(failingStock{StockReader: store, err: boom}).GetSummary(context.Background(), nil, 5)
	assert.ErrorIs(t, err, boom)
}

func TestReplenishment_SinDeficitNegativo(t *testing.T) {
	out := inventory.Replenishment([]*entity.Part{{PartID: 1, Quantity: 9, LowStockThreshold: 1, Cost: decimal.NewFromInt(3)}})
	require.Len(t, out, 1)
	assert.Equal(t, int64(2), out[0].IdealStock)
	assert.Zero(t, out[0].SuggestedOrderQty)
	assert.True(t, out[0].EstimatedOrderCost.IsZero())
	assert.NotNil(t, inventory.Replenishment(nil))
}

// ──────────────────────────────────────────────────────────────────────────────
// Exportación
// ──────────────────────────────────────────────────────────────────────────────

func TestExport_JSONOcultaSecretos(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	u3 := entity.NewUserContext(3)
	addPart(t, store, u3, "LM358", 4, 1, "0.4")
	_, err := store.SaveOAuthCredential(ctx, entity.NewOAuthCredential("digikey", &oauth2.Token{AccessToken: "secreto", RefreshToken: "r"}), u3)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, inventory.NewExportUseCase(store).Export(ctx, u3, inventory.ExportOptions{Format: inventory.FormatJSON}, &buf))
	assert.NotContains(t, buf.String(), "secreto")

	var db entity.Database
	require.NoError(t, json.Unmarshal(buf.Bytes(), &db))
	require.Len(t, db.Parts, 1)
	assert.Equal(t, "0.4", db.Parts[0].Cost.String())
	assert.Len(t, db.PartTypes, int(entity.MaxDefaultPartTypeID))
	require.Len(t, db.OAuthCredentials, 1)
	assert.Equal(t, "digikey", db.OAuthCredentials[0].Provider)

	buf.Reset()
	require.NoError(t, inventory.NewExportUseCase(store).Export(ctx, u3, inventory.ExportOptions{Format: inventory.FormatJSON, IncludeSecrets: true}, &buf))
	assert.Contains(t, buf.String(), "secreto")
}

func TestExport_YAML(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	addPart(t, store, nil, "NE555", 2, 1, "0.25")

	var buf bytes.Buffer
	require.NoError(t, inventory.NewExportUseCase(store).Export(ctx, nil, inventory.ExportOptions{Format: inventory.FormatYAML}, &buf))

	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &doc))
	parts, ok := doc["parts"].([]any)
	require.True(t, ok)
	require.Len(t, parts, 1)
	assert.Equal(t, "NE555", parts[0].(map[string]any)["partNumber"])

	err := inventory.NewExportUseCase(store).Export(ctx, nil, inventory.ExportOptions{Format: "xml"}, &buf)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]inventory.Format{"JSON": inventory.FormatJSON, " yml ": inventory.FormatYAML, "csv": inventory.FormatCSV} {
		got, err := inventory.ParseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := inventory.ParseFormat("toml")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

// ──────────────────────────────────────────────────────────────────────────────
// Importación
// ──────────────────────────────────────────────────────────────────────────────

func TestImport_IdaYVueltaEntreAlmacenes(t *testing.T) {
	ctx := context.Background()
	u7 := entity.NewUserContext(7)
	src := newStore(t)

	custom, err := src.GetOrCreatePartType(ctx, &entity.PartType{Name: "Potenciómetro"}, u7)
	require.NoError(t, err)
	child, err := src.GetOrCreatePartType(ctx, &entity.PartType{Name: "Trimmer", ParentPartTypeID: &custom.PartTypeID}, u7)
	require.NoError(t, err)
	proj, err := src.AddProject(ctx, &entity.Project{Name: "Radio"}, u7)
	require.NoError(t, err)

	p := entity.NewPart("3296W")
	p.PartTypeID = child.PartTypeID
	p.ProjectID = &proj.ProjectID
	p.Quantity = 7
	stored, err := src.AddPart(ctx, p, u7)
	require.NoError(t, err)
	q := entity.NewPart("1N4148")
	q.PartTypeID = int64(entity.Diode)
	_, err = src.AddPart(ctx, q, u7)
	require.NoError(t, err)
	_, err = src.AddStoredFile(ctx, &entity.StoredFile{FileName: "3296w.pdf", StoredFileType: entity.StoredFileDatasheet, PartID: stored.PartID}, u7)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, inventory.NewExportUseCase(src).Export(ctx, u7, inventory.ExportOptions{Format: inventory.FormatYAML}, &buf))

	dst := newStore(t)
	// Desplaza las secuencias para que los ids no coincidan por casualidad.
	_, err = dst.AddProject(ctx, &entity.Project{Name: "Otro"}, u7)
	require.NoError(t, err)

	rep, err := inventory.NewImportUseCase(dst).Import(ctx, u7, inventory.ImportOptions{Format: inventory.FormatYAML}, bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 2, rep.PartTypes)
	assert.Equal(t, 1, rep.ProjectsCreated)
	assert.Equal(t, 2, rep.PartsCreated)
	assert.Equal(t, 1, rep.FilesCreated)

	got, err := dst.GetPartByNumber(ctx, "3296W", u7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.Quantity)
	pt, err := dst.GetPartType(ctx, got.PartTypeID, u7)
	require.NoError(t, err)
	assert.Equal(t, "Trimmer", pt.Name)
	require.NotNil(t, pt.ParentPartTypeID)
	parent, err := dst.GetPartType(ctx, *pt.ParentPartTypeID, u7)
	require.NoError(t, err)
	assert.Equal(t, "Potenciómetro", parent.Name)
	require.NotNil(t, got.ProjectID)
	gotProj, err := dst.GetProject(ctx, *got.ProjectID, u7)
	require.NoError(t, err)
	assert.Equal(t, "Radio", gotProj.Name)

	diode, err := dst.GetPartByNumber(ctx, "1N4148", u7)
	require.NoError(t, err)
	assert.Equal(t, int64(entity.Diode), diode.PartTypeID)

	files, err := dst.GetStoredFilesForPart(ctx, got.PartID, nil, u7)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "3296w.pdf", files[0].FileName)

	// Segunda importación: actualiza en lugar de duplicar.
	rep, err = inventory.NewImportUseCase(dst).Import(ctx, u7, inventory.ImportOptions{Format: inventory.FormatYAML}, bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Zero(t, rep.PartsCreated)
	assert.Equal(t, 2, rep.PartsUpdated)
	assert.Zero(t, rep.ProjectsCreated)
	assert.Equal(t, 1, rep.Skipped, "el archivo ya existe")

	n, err := dst.GetUniquePartsCount(ctx, u7)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestImport_CicloDeTipos(t *testing.T) {
	doc := `{"partTypes":[
		{"partTypeId":40,"name":"A","parentPartTypeId":41},
		{"partTypeId":41,"name":"B","parentPartTypeId":40}]}`
	_, err := inventory.NewImportUseCase(newStore(t)).Import(context.Background(), nil,
		inventory.ImportOptions{Format: inventory.FormatJSON}, strings.NewReader(doc))
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestImport_CSVLatin1(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	u7 := entity.NewUserContext(7)

	csvText := "Part Number,Description,Quantity,Low Stock Threshold,Cost,Part Type,Project,Keywords,Columna Extra\n" +
		"LM358,Amplificador operacional dual,12,5,0.40,OpAmp,Órgano,smd; opamp,x\n" +
		"BC547,Transistor NPN,3,10,0.05,transistor,Órgano,,y\n" +
		",fila sin número,1,1,1,,,,\n"
	latin1, err := charmap.ISO8859_1.NewEncoder().String(csvText)
	require.NoError(t, err)

	rep, err := inventory.NewImportUseCase(store).Import(ctx, u7,
		inventory.ImportOptions{Format: inventory.FormatCSV, Charset: "latin1"}, strings.NewReader(latin1))
	require.NoError(t, err)
	assert.Equal(t, 2, rep.PartsCreated)
	assert.Equal(t, 1, rep.ProjectsCreated)
	assert.Equal(t, 2, rep.PartTypes)
	assert.Equal(t, 1, rep.Skipped)

	lm, err := store.GetPartByNumber(ctx, "LM358", u7)
	require.NoError(t, err)
	assert.Equal(t, int64(entity.OpAmp), lm.PartTypeID, "reutiliza el tipo sembrado")
	assert.Equal(t, []string{"smd", "opamp"}, lm.Keywords)
	assert.Equal(t, "0.4", lm.Cost.String())
	require.NotNil(t, lm.ProjectID)
	proj, err := store.GetProject(ctx, *lm.ProjectID, u7)
	require.NoError(t, err)
	assert.Equal(t, "Órgano", proj.Name)

	bc, err := store.GetPartByNumber(ctx, "BC547", u7)
	require.NoError(t, err)
	assert.Equal(t, int64(entity.Transistor), bc.PartTypeID)
	assert.True(t, bc.IsLowStock())
}

func TestImport_CSVErrores(t *testing.T) {
	uc := inventory.NewImportUseCase(newStore(t))
	ctx := context.Background()
	opts := inventory.ImportOptions{Format: inventory.FormatCSV}

	_, err := uc.Import(ctx, nil, opts, strings.NewReader("Description\nx\n"))
	assert.ErrorIs(t, err, domain.ErrValidation, "sin columna PartNumber")

	_, err = uc.Import(ctx, nil, opts, strings.NewReader("PartNumber,Quantity\nA,muchos\n"))
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Contains(t, err.Error(), "línea 2")

	_, err = uc.Import(ctx, nil, inventory.ImportOptions{Format: inventory.FormatCSV, Charset: "ebcdic"}, strings.NewReader(""))
	assert.ErrorIs(t, err, domain.ErrValidation)

	// BOM UTF-8 al inicio del encabezado.
	rep, err := uc.Import(ctx, nil, opts, strings.NewReader("\ufeffPartNumber\nZ1\n"))
	require.NoError(t, err)
	assert.Equal(t, 1, rep.PartsCreated)
}
