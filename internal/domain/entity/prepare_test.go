package entity_test

import (
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/jhoicas/partsbin/internal/domain"
	"github.com/jhoicas/partsbin/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

// ──────────────────────────────────────────────────────────────────────────────
// UserContext
// ──────────────────────────────────────────────────────────────────────────────

func TestUserContext_Visibilidad(t *testing.T) {
	var system *entity.UserContext
	u7 := entity.NewUserContext(7)

	assert.True(t, system.CanSee(nil))
	assert.False(t, system.CanSee(intPtr(7)))
	assert.True(t, u7.CanSee(nil))
	assert.True(t, u7.CanSee(intPtr(7)))
	assert.False(t, u7.CanSee(intPtr(8)))

	assert.Nil(t, system.Owner())
	assert.Equal(t, 7, *u7.Owner())
	assert.Equal(t, "system", system.String())
	assert.Equal(t, "7", u7.String())

	assert.True(t, system.Owns(nil))
	assert.False(t, u7.Owns(nil), "los globales son visibles pero no propios")
}

func TestUserContext_CheckModify(t *testing.T) {
	u7 := entity.NewUserContext(7)
	assert.NoError(t, u7.CheckModify("op", intPtr(7)))
	assert.NoError(t, u7.CheckModify("op", nil))

	err := u7.CheckModify("update part", intPtr(8))
	assert.ErrorIs(t, err, domain.ErrScopeViolation)
	assert.Contains(t, err.Error(), "update part")

	var system *entity.UserContext
	assert.ErrorIs(t, system.CheckModify("op", intPtr(7)), domain.ErrScopeViolation)
}

// ──────────────────────────────────────────────────────────────────────────────
// Preparación de registros
// ──────────────────────────────────────────────────────────────────────────────

func TestPrepareNewPart_FijaDuenoYNoMutaEntrada(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	in := &entity.Part{PartID: 9, PartNumber: "X", UserID: intPtr(99), Keywords: []string{" a ", "  "}}

	out, err := entity.PrepareNewPart(in, entity.NewUserContext(7), now)
	require.NoError(t, err)
	assert.Zero(t, out.PartID)
	assert.Equal(t, 7, *out.UserID)
	assert.Equal(t, now, out.DateCreatedUTC)
	assert.Equal(t, []string{"a"}, out.Keywords)

	assert.Equal(t, int64(9), in.PartID)
	assert.Equal(t, 99, *in.UserID)
	assert.Equal(t, []string{" a ", "  "}, in.Keywords)

	out, err = entity.PrepareNewPart(&entity.Part{Keywords: []string{" "}}, nil, now)
	require.NoError(t, err)
	assert.Nil(t, out.UserID)
	assert.Nil(t, out.Keywords)
}

func TestPrepareProjectUpdate_FechaSiempreAvanza(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	existing := &entity.Project{ProjectID: 1, Name: "A", UserID: intPtr(7), DateCreatedUTC: created, DateModifiedUTC: created}

	later := created.Add(time.Hour)
	out, err := entity.PrepareProjectUpdate(&entity.Project{Name: "B"}, existing, later)
	require.NoError(t, err)
	assert.Equal(t, later, out.DateModifiedUTC)
	assert.Equal(t, int64(1), out.ProjectID)
	assert.Equal(t, 7, *out.UserID)

	// Reloj igual o atrasado: avanza un microsegundo.
	out, err = entity.PrepareProjectUpdate(&entity.Project{Name: "B"}, existing, created)
	require.NoError(t, err)
	assert.Equal(t, created.Add(time.Microsecond), out.DateModifiedUTC)

	_, err = entity.PrepareProjectUpdate(&entity.Project{}, existing, later)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestPreparePartTypeUpdate_PropioPadre(t *testing.T) {
	existing := &entity.PartType{PartTypeID: 40, Name: "X", UserID: intPtr(7)}
	_, err := entity.PreparePartTypeUpdate(&entity.PartType{Name: "X", ParentPartTypeID: int64Ptr(40)}, existing)
	assert.ErrorIs(t, err, domain.ErrValidation)

	out, err := entity.PreparePartTypeUpdate(&entity.PartType{PartTypeID: 1, Name: "  Y "}, existing)
	require.NoError(t, err)
	assert.Equal(t, int64(40), out.PartTypeID, "la identidad no se cambia")
	assert.Equal(t, "Y", out.Name)
}

func TestCheckPartTypeMutable(t *testing.T) {
	u7 := entity.NewUserContext(7)
	seeded := entity.DefaultPartTypes(entity.Now())[0]
	assert.ErrorIs(t, entity.CheckPartTypeMutable("op", seeded, nil), domain.ErrScopeViolation)
	assert.ErrorIs(t, entity.CheckPartTypeMutable("op", seeded, u7), domain.ErrScopeViolation)

	own := &entity.PartType{PartTypeID: 40, Name: "X", UserID: intPtr(7)}
	assert.NoError(t, entity.CheckPartTypeMutable("op", own, u7))
	assert.ErrorIs(t, entity.CheckPartTypeMutable("op", own, entity.NewUserContext(8)), domain.ErrScopeViolation)

	globalCustom := &entity.PartType{PartTypeID: 41, Name: "Y"}
	assert.NoError(t, entity.CheckPartTypeMutable("op", globalCustom, u7))
}

func TestCheckPartTypeParent(t *testing.T) {
	// 50 -> 51 -> 52 (raíz)
	types := map[int64]*entity.PartType{
		50: {PartTypeID: 50, ParentPartTypeID: int64Ptr(51)},
		51: {PartTypeID: 51, ParentPartTypeID: int64Ptr(52)},
		52: {PartTypeID: 52},
	}
	lookup := func(id int64) (*entity.PartType, error) {
		if pt, ok := types[id]; ok {
			return pt, nil
		}
		return nil, fmt.Errorf("tipo %d: %w", id, domain.ErrNotFound)
	}

	assert.NoError(t, entity.CheckPartTypeParent(0, nil, lookup))
	assert.NoError(t, entity.CheckPartTypeParent(0, int64Ptr(50), lookup))
	assert.ErrorIs(t, entity.CheckPartTypeParent(52, int64Ptr(50), lookup), domain.ErrValidation, "ciclo indirecto")
	assert.ErrorIs(t, entity.CheckPartTypeParent(0, int64Ptr(99), lookup), domain.ErrValidation, "padre inexistente")

	types[52].ParentPartTypeID = int64Ptr(50) // ciclo ya existente
	assert.ErrorIs(t, entity.CheckPartTypeParent(0, int64Ptr(50), lookup), domain.ErrValidation)
}

func TestPrepareNewStoredFile_NombreGenerado(t *testing.T) {
	out, err := entity.PrepareNewStoredFile(&entity.StoredFile{
		OriginalFileName: "Hoja de Datos.PDF",
		StoredFileType:   entity.StoredFileDatasheet,
		PartID:           1,
	}, entity.NewUserContext(7), entity.Now())
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(out.FileName, ".pdf"))
	assert.Len(t, out.FileName, 36+len(".pdf"))

	kept, err := entity.PrepareNewStoredFile(&entity.StoredFile{FileName: "fijo.png", StoredFileType: entity.StoredFileImage, PartID: 1}, nil, entity.Now())
	require.NoError(t, err)
	assert.Equal(t, "fijo.png", kept.FileName)

	_, err = entity.PrepareNewStoredFile(&entity.StoredFile{StoredFileType: entity.StoredFileImage}, nil, entity.Now())
	assert.ErrorIs(t, err, domain.ErrValidation, "PartID requerido")
	assert.Equal(t, "unknown", entity.StoredFileType(0).String())
	assert.Equal(t, "pinout", entity.StoredFilePinout.String())
}

func TestPrepareOAuthCredential(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	expiry := time.Date(2024, 5, 1, 11, 0, 0, 123_456_789, time.FixedZone("COT", -5*3600))

	c, err := entity.PrepareOAuthCredential(entity.NewOAuthCredential(" digikey ", &oauth2.Token{
		AccessToken: "a", Expiry: expiry,
	}), entity.NewUserContext(3), now)
	require.NoError(t, err)
	assert.Equal(t, "digikey", c.Provider)
	assert.Equal(t, 3, *c.UserID)
	assert.Equal(t, now, c.DateCreatedUTC)
	assert.Equal(t, time.UTC, c.DateExpiresUTC.Location())
	assert.Equal(t, 123_456_000, c.DateExpiresUTC.Nanosecond())

	tok := c.Token()
	assert.Equal(t, "a", tok.AccessToken)
	assert.Equal(t, "Bearer", tok.TokenType)
	assert.False(t, c.Expired(now))
	assert.True(t, c.Expired(expiry.Add(time.Second)))
	assert.False(t, (&entity.OAuthCredential{}).Expired(now), "sin vencimiento nunca expira")

	_, err = entity.PrepareOAuthCredential(&entity.OAuthCredential{Provider: "  "}, nil, now)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestProviderKey_MismaFormaAlGuardarYLeer(t *testing.T) {
	c, err := entity.PrepareOAuthCredential(&entity.OAuthCredential{Provider: "\tmouser "}, nil, time.Now())
	require.NoError(t, err)
	assert.Equal(t, entity.ProviderKey("\tmouser "), c.Provider)
	assert.Equal(t, "mouser", entity.ProviderKey(" mouser"))
	assert.Equal(t, "Mouser", entity.ProviderKey("Mouser"), "no cambia mayúsculas")
}

// ──────────────────────────────────────────────────────────────────────────────
// Orden de stock bajo
// ──────────────────────────────────────────────────────────────────────────────

func TestLowStockLess(t *testing.T) {
	parts := []*entity.Part{
		{PartID: 1, Quantity: 4, LowStockThreshold: 5},  // 0.8
		{PartID: 2, Quantity: 0, LowStockThreshold: 1},  // 0
		{PartID: 3, Quantity: 2, LowStockThreshold: 10}, // 0.2
		{PartID: 4, Quantity: 1, LowStockThreshold: 5},  // 0.2, empata con 3
		{PartID: 5, Quantity: 0, LowStockThreshold: 9},  // 0
	}
	sort.SliceStable(parts, func(i, j int) bool { return entity.LowStockLess(parts[i], parts[j]) })

	var ids []int64
	for _, p := range parts {
		ids = append(ids, p.PartID)
	}
	assert.Equal(t, []int64{2, 5, 3, 4, 1}, ids)
}

// ──────────────────────────────────────────────────────────────────────────────
// Taxonomía por defecto
// ──────────────────────────────────────────────────────────────────────────────

func TestDefaultPartTypes_Jerarquia(t *testing.T) {
	types := entity.DefaultPartTypes(entity.Now())
	require.Len(t, types, int(entity.MaxDefaultPartTypeID))

	byName := map[string]*entity.PartType{}
	for i, pt := range types {
		assert.Equal(t, int64(i+1), pt.PartTypeID, "ids estables y consecutivos")
		assert.True(t, pt.IsSystemDefault())
		byName[pt.Name] = pt
	}

	parents := map[string]string{
		"MOSFET": "Transistor", "IGBT": "Transistor", "JFET": "Transistor",
		"SCR": "Transistor", "DIAC": "Transistor", "TRIAC": "Transistor",
		"OpAmp": "IC", "Amplifier": "IC", "Memory": "IC", "Logic": "IC", "Interface": "IC",
		"Microcontroller": "IC", "Clock": "IC", "ADC": "IC", "VoltageRegulator": "IC",
		"EnergyMetering": "IC", "LedDriver": "IC",
	}
	for name, pt := range byName {
		want, hasParent := parents[name]
		if !hasParent {
			assert.Nil(t, pt.ParentPartTypeID, name)
			continue
		}
		require.NotNil(t, pt.ParentPartTypeID, name)
		assert.Equal(t, byName[want].PartTypeID, *pt.ParentPartTypeID, name)
	}

	assert.Equal(t, "Unknown", entity.DefaultPartType(0).String())
	_, ok := entity.Resistor.Parent()
	assert.False(t, ok)
	assert.False(t, (&entity.PartType{PartTypeID: 1, UserID: intPtr(7)}).IsSystemDefault())
}

func TestNameKey_CaseFolding(t *testing.T) {
	assert.Equal(t, entity.NameKey("MOSFET"), entity.NameKey("  mosfet "))
	assert.Equal(t, entity.NameKey("Résistance"), entity.NameKey("RÉSISTANCE"))
	assert.NotEqual(t, entity.NameKey("Diode"), entity.NameKey("Diodes"))
}
