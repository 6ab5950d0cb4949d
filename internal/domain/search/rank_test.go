package search_test

import (
	"testing"

	"github.com/jhoicas/partsbin/internal/domain/entity"
	"github.com/jhoicas/partsbin/internal/domain/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTerms_NormalizaYEliminaDuplicados(t *testing.T) {
	assert.Equal(t, []string{"lm358", "smd"}, search.Terms("  LM358 smd lm358\tSMD "))
	assert.Empty(t, search.Terms("   "))
	assert.True(t, search.NewRanker("").Empty())
	assert.Equal(t, []string{"op-amp"}, search.NewRanker("Op-Amp").Terms())
}

func TestRanker_Rank(t *testing.T) {
	r := search.NewRanker("lm358 dual")

	none := &entity.Part{PartID: 1, PartNumber: "NE555", Description: "Timer"}
	assert.Zero(t, r.Rank(none))

	one := &entity.Part{PartID: 2, PartNumber: "LM358N"}
	both := &entity.Part{PartID: 3, PartNumber: "LM358N", Description: "Dual op-amp"}
	many := &entity.Part{
		PartID:                 4,
		PartNumber:             "LM358N",
		ManufacturerPartNumber: "LM358N/NOPB",
		DigiKeyPartNumber:      "296-LM358N-ND",
		Keywords:               []string{"lm358", "LM358A"},
	}

	assert.Greater(t, r.Rank(both), r.Rank(one))
	assert.Greater(t, r.Rank(many), r.Rank(one), "más campos coincidentes suben el rank")
	assert.Greater(t, r.Rank(both), r.Rank(many), "dos términos siempre superan a uno")
}

func TestRanker_KeywordsCuentaUnaVez(t *testing.T) {
	r := search.NewRanker("res")
	a := &entity.Part{PartID: 1, Keywords: []string{"resistor"}}
	b := &entity.Part{PartID: 2, Keywords: []string{"resistor", "RES-0603", "thick res"}}
	assert.Equal(t, r.Rank(a), r.Rank(b))
	assert.Positive(t, r.Rank(a))
}

func TestRanker_RankAllOrdenEstable(t *testing.T) {
	parts := []*entity.Part{
		{PartID: 9, Description: "capacitor"},
		{PartID: 2, Description: "Capacitor"},
		{PartID: 5, Description: "resistor"},
		{PartID: 7, Description: "capacitor ceramic", Location: "caja capacitor"},
	}
	res := search.NewRanker("CAPACITOR").RankAll(parts)
	require.Len(t, res, 3, "rank 0 se omite")

	var ids []int64
	for _, sr := range res {
		ids = append(ids, sr.Result.PartID)
		assert.Positive(t, sr.Rank)
	}
	assert.Equal(t, []int64{7, 2, 9}, ids)
	assert.Equal(t, res[1].Rank, res[2].Rank)

	empty := search.NewRanker("").RankAll(parts)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}
