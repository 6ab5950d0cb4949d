package inventory

import "github.com/shopspring/decimal"

// IdealStock nivel objetivo de reposición: umbral * 1.5 redondeado hacia arriba.
func IdealStock(threshold int) int64 {
	t := int64(threshold)
	if t <= 0 {
		return 0
	}
	return (3*t + 1) / 2
}

// SuggestedOrder cantidad a pedir para llegar al nivel ideal (nunca negativa).
func SuggestedOrder(quantity int64, threshold int) int64 {
	n := IdealStock(threshold) - quantity
	if n < 0 {
		return 0
	}
	return n
}

// OrderCost costo estimado del pedido: costo unitario * cantidad.
func OrderCost(unitCost decimal.Decimal, qty int64) decimal.Decimal {
	if qty <= 0 {
		return decimal.Zero
	}
	return unitCost.Mul(decimal.NewFromInt(qty))
}
