package badger

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/jhoicas/partsbin/internal/domain"
	"github.com/jhoicas/partsbin/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDKey_OrdenDeBytesIgualAOrdenNumerico(t *testing.T) {
	ids := []int64{1, 2, 255, 256, 65_536, 1 << 40}
	for i := 1; i < len(ids); i++ {
		prev, cur := makePartKey(ids[i-1]), makePartKey(ids[i])
		assert.Equal(t, -1, bytes.Compare(prev, cur), "%d < %d", ids[i-1], ids[i])
	}
	assert.Equal(t, int64(1<<40), idFromKey(partPrefix, makePartKey(1<<40)))
	assert.Equal(t, int64(42), decodeID(encodeID(42)))
}

func TestOwnerKeys(t *testing.T) {
	seven, seventy := 7, 70
	assert.Equal(t, "ptypen:g:resistor", string(makePartTypeNameKey(nil, "resistor")))
	assert.Equal(t, "ptypen:7:resistor", string(makePartTypeNameKey(&seven, "resistor")))
	assert.Equal(t, "oauth:7:digikey", string(makeOAuthKey(&seven, "digikey")))
	assert.False(t, bytes.HasPrefix(makeOAuthKey(&seventy, "digikey"), []byte(makePartialOAuthKey(&seven))),
		"el prefijo de un dueño no abarca a otro")

	zero := 0
	assert.NotEqual(t, makeOAuthKey(nil, "digikey"), makeOAuthKey(&zero, "digikey"), "usuario 0 no es el global")
	assert.NotEqual(t, makePartTypeNameKey(nil, "foo"), makePartTypeNameKey(&zero, "foo"))
	assert.Equal(t, makeOAuthKey(&seven, "digikey"), makeOAuthKey(&seven, " digikey "))
}

func TestFilePartKey_PrefijoPorParte(t *testing.T) {
	key := makeFilePartKey(5, 9)
	assert.True(t, bytes.HasPrefix(key, makePartialFilePartKey(5)))
	assert.False(t, bytes.HasPrefix(key, makePartialFilePartKey(6)))
	assert.Equal(t, int64(9), idFromKey(string(makePartialFilePartKey(5)), key))
}

func TestMigrate_SubeVersionDeRegistrosAntiguos(t *testing.T) {
	ctx := context.Background()
	p, err := NewMemoryProvider(ctx, nil)
	require.NoError(t, err)
	defer p.Close()

	created := time.Date(2021, 3, 4, 5, 6, 7, 0, time.UTC)
	err = p.b.update("seed old", func(txn *badger.Txn) error {
		old := &entity.Part{PartID: 500, PartNumber: "OLD", LowStockThreshold: 1, SchemaVersion: 3, DateCreatedUTC: created}
		if err := putJSON(txn, makePartKey(old.PartID), old); err != nil {
			return err
		}
		proj := &entity.Project{ProjectID: 500, Name: "Viejo", SchemaVersion: 2, DateCreatedUTC: created}
		return putJSON(txn, makeProjectKey(proj.ProjectID), proj)
	})
	require.NoError(t, err)

	// La lectura ya ve el registro actualizado aunque no se haya migrado.
	proj, err := p.GetProject(ctx, 500, nil)
	require.NoError(t, err)
	assert.Equal(t, entity.ProjectSchemaVersion, proj.SchemaVersion)
	assert.True(t, proj.DateModifiedUTC.Equal(created))

	res, err := p.Migrate(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.Seeded)
	assert.Equal(t, 1, res.UpgradedParts)
	assert.Equal(t, 1, res.UpgradedProjects)

	res, err = p.Migrate(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.UpgradedParts, "idempotente")

	err = p.b.view("check", func(txn *badger.Txn) error {
		part, err := getJSON[entity.Part](txn, makePartKey(500))
		require.NoError(t, err)
		assert.Equal(t, entity.PartSchemaVersion, part.SchemaVersion)
		return nil
	})
	require.NoError(t, err)
}

func TestTranslate_Badger(t *testing.T) {
	assert.NoError(t, translate("op", nil))
	cases := []struct {
		err  error
		want error
	}{
		{badger.ErrKeyNotFound, domain.ErrNotFound},
		{badger.ErrConflict, domain.ErrConflict},
		{badger.ErrEmptyKey, domain.ErrValidation},
		{badger.ErrDBClosed, domain.ErrStoreUnavailable},
		{badger.ErrTxnTooBig, domain.ErrStoreUnavailable},
	}
	for _, tc := range cases {
		got := translate("op", tc.err)
		assert.ErrorIs(t, got, tc.want, tc.err.Error())
		assert.ErrorIs(t, got, tc.err)
	}
	assert.ErrorIs(t, translate("op", context.Canceled), context.Canceled)
	assert.NotErrorIs(t, translate("op", domain.ErrScopeViolation), domain.ErrStoreUnavailable)
}
