package inventory_test

import (
	"testing"

	"github.com/jhoicas/partsbin/internal/domain/inventory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestIdealStock_RedondeaHaciaArriba(t *testing.T) {
	cases := map[int]int64{0: 0, -3: 0, 1: 2, 2: 3, 3: 5, 10: 15, 7: 11}
	for threshold, want := range cases {
		assert.Equal(t, want, inventory.IdealStock(threshold), "umbral %d", threshold)
	}
}

func TestSuggestedOrder_NoNegativo(t *testing.T) {
	assert.Equal(t, int64(13), inventory.SuggestedOrder(2, 10))
	assert.Equal(t, int64(0), inventory.SuggestedOrder(40, 10))
	assert.Equal(t, int64(0), inventory.SuggestedOrder(0, 0))
}

func TestOrderCost(t *testing.T) {
	got := inventory.OrderCost(decimal.RequireFromString("0.25"), 13)
	assert.True(t, got.Equal(decimal.RequireFromString("3.25")), got.String())
	assert.True(t, inventory.OrderCost(decimal.NewFromInt(5), 0).IsZero())
}
