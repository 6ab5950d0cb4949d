package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/jhoicas/partsbin/internal/application/dto"
	"github.com/jhoicas/partsbin/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run ejecuta la CLI con una app nueva y la cierra, como hace main.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	a := &app{}
	root := newRootCmd(a)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	if cerr := a.shutdown(); err == nil {
		err = cerr
	}
	return out.String(), err
}

func badgerEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("STORAGE_DRIVER", "badger")
	t.Setenv("BADGER_PATH", filepath.Join(dir, "db"))
	t.Setenv("BADGER_IN_MEMORY", "false")
	t.Setenv("METRICS_ENABLED", "true")
	t.Setenv("LOG_LEVEL", "error")
	return dir
}

// ─────────────────────────────────────────────────────────────────────────────
// Flujo completo sobre Badger en disco
// ─────────────────────────────────────────────────────────────────────────────

func TestCLI_SeedLuegoStats(t *testing.T) {
	dir := badgerEnv(t)
	csvPath := filepath.Join(dir, "catalogo.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(
		"Part Number,Quantity,Low Stock Threshold,Cost\n"+
			"LM358,12,5,0.40\n"+
			"BC547,3,10,0.05\n"), 0o600))

	out, err := run(t, "seed", "--file", csvPath, "--user", "7", "--out", "json")
	require.NoError(t, err)
	var rep dto.ImportReportDTO
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	assert.Equal(t, 2, rep.PartsCreated)

	metricsFile := filepath.Join(dir, "partsbin.prom")
	out, err = run(t, "stats", "--user", "7", "--out", "json", "--metrics-file", metricsFile)
	require.NoError(t, err)
	var sum dto.InventorySummaryDTO
	require.NoError(t, json.Unmarshal([]byte(out), &sum))
	assert.Equal(t, int64(15), sum.TotalQuantity)
	assert.Equal(t, int64(2), sum.UniqueParts)
	assert.Equal(t, "4.95", sum.TotalValue.String())
	assert.Equal(t, 1, sum.LowStockTotal)
	require.Len(t, sum.Replenishment, 1)
	assert.Equal(t, "BC547", sum.Replenishment[0].PartNumber)
	assert.Equal(t, int64(12), sum.Replenishment[0].SuggestedOrderQty)

	prom, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), "partsbin_storage_operations_total")

	// otro usuario no ve las partes privadas de 7
	out, err = run(t, "stats", "--user", "8", "--out", "json")
	require.NoError(t, err)
	sum = dto.InventorySummaryDTO{}
	require.NoError(t, json.Unmarshal([]byte(out), &sum))
	assert.Zero(t, sum.UniqueParts)
}

func TestCLI_OutInvalido(t *testing.T) {
	badgerEnv(t)
	_, err := run(t, "stats", "--out", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--out")
}

func TestCLI_ExportRechazaCSV(t *testing.T) {
	badgerEnv(t)
	_, err := run(t, "export", "--format", "csv")
	require.Error(t, err)
}

func TestCLI_QueryPredicadoInvalido(t *testing.T) {
	badgerEnv(t)
	_, err := run(t, "query", "{no es json")
	require.Error(t, err)
}

// ─────────────────────────────────────────────────────────────────────────────
// Auxiliares de salida
// ─────────────────────────────────────────────────────────────────────────────

func TestRenumber_DesplazaPorPagina(t *testing.T) {
	items := []dto.ReplenishmentSuggestionDTO{{Priority: 1}, {Priority: 2}}
	got := renumber(items, dto.PageRequest{Page: 3, Results: 10})
	assert.Equal(t, 21, got[0].Priority)
	assert.Equal(t, 22, got[1].Priority)
}

func TestLocation_UneBins(t *testing.T) {
	assert.Equal(t, "Gabinete A/3/B", location(&entity.Part{Location: "Gabinete A", BinNumber: "3", BinNumber2: "B"}))
	assert.Equal(t, "7", location(&entity.Part{BinNumber2: "7"}))
	assert.Empty(t, location(&entity.Part{}))
}
